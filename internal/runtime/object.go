package runtime

import (
	"fmt"
	"humanlang/internal/registry"
	"humanlang/internal/scope"
	"humanlang/internal/value"
	"strings"
)

// Object is an instance of a user-defined class. Its properties live in a
// scope of their own so typed fields reuse the scope's bookkeeping.
type Object struct {
	Class  *registry.Class
	Fields *scope.Scope
}

// newObject creates an instance with every declared property, inherited ones
// included, bound to null.
func newObject(reg *registry.Registry, cls *registry.Class) *Object {
	obj := &Object{Class: cls, Fields: scope.New(nil)}
	var chain []*registry.Class
	for c := cls; c != nil; c = reg.Parent(c) {
		chain = append(chain, c)
		if len(chain) > len(reg.ClassNames()) {
			break
		}
	}
	for k := len(chain) - 1; k >= 0; k-- {
		for _, name := range chain[k].PropOrder {
			obj.Fields.Set(name, value.Null, chain[k].Properties[name])
		}
	}
	return obj
}

func (o *Object) TypeName() string { return o.Class.Name }
func (o *Object) String() string   { return fmt.Sprintf("<object %s>", o.Class.Name) }

// Property reads a field, trying the exact key and then its lowercase form.
func (o *Object) Property(key string) (value.Value, bool) {
	if v, ok := o.Fields.Get(key); ok {
		return v, true
	}
	return o.Fields.Get(strings.ToLower(key))
}

// SetProperty writes a field. Undeclared keys are added on the fly.
func (o *Object) SetProperty(key string, v value.Value) error {
	if o.Fields.Update(key, v) {
		return nil
	}
	if lower := strings.ToLower(key); lower != key && o.Fields.Update(lower, v) {
		return nil
	}
	o.Fields.Set(key, v, "")
	return nil
}

// Summary lists the fields by name; it is what gets shown for an object.
func (o *Object) Summary() string {
	var b strings.Builder
	b.WriteString(o.Class.Name)
	b.WriteString(" {")
	for n, name := range o.Fields.Names() {
		if n > 0 {
			b.WriteString(", ")
		}
		v, _ := o.Fields.Get(name)
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value.Repr(v))
	}
	b.WriteString("}")
	return b.String()
}
