// Package value defines the tagged runtime values of humanlang.
package value

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Value is the interface for all runtime values.
type Value interface {
	TypeName() string
	String() string
}

// PropertyReader is implemented by values that expose named properties
// readable through "x's key".
type PropertyReader interface {
	Property(key string) (Value, bool)
}

// PropertyWriter is implemented by values whose properties can be assigned
// with "set x's key to ...".
type PropertyWriter interface {
	SetProperty(key string, v Value) error
}

// Null is the single null value.
var Null Value = NullVal{}

// ---- Primitive values ----

// NumberVal represents a number. All numbers are float64.
type NumberVal float64

func (v NumberVal) TypeName() string { return "Number" }
func (v NumberVal) String() string {
	return strconv.FormatFloat(float64(v), 'f', -1, 64)
}

// StringVal represents a string value.
type StringVal string

func (v StringVal) TypeName() string { return "String" }
func (v StringVal) String() string   { return string(v) }

// Property exposes the zero-argument string operations.
func (v StringVal) Property(key string) (Value, bool) {
	switch strings.ToLower(key) {
	case "upper":
		return StringVal(strings.ToUpper(string(v))), true
	case "lower":
		return StringVal(strings.ToLower(string(v))), true
	case "strip":
		return StringVal(strings.TrimSpace(string(v))), true
	case "title":
		return StringVal(cases.Title(language.English).String(string(v))), true
	case "words":
		fields := strings.Fields(string(v))
		items := make([]Value, len(fields))
		for i, f := range fields {
			items[i] = StringVal(f)
		}
		return NewList(items...), true
	}
	return nil, false
}

// BoolVal represents a boolean value.
type BoolVal bool

func (v BoolVal) TypeName() string { return "Boolean" }
func (v BoolVal) String() string   { return strconv.FormatBool(bool(v)) }

// NullVal represents null.
type NullVal struct{}

func (v NullVal) TypeName() string { return "Null" }
func (v NullVal) String() string   { return "null" }

// ---- List value ----

// ListVal represents an ordered list.
type ListVal struct {
	Elements []Value
}

// NewList creates a list holding the given elements.
func NewList(elems ...Value) *ListVal {
	return &ListVal{Elements: elems}
}

func (v *ListVal) TypeName() string { return "List" }
func (v *ListVal) String() string {
	parts := make([]string, len(v.Elements))
	for i, elem := range v.Elements {
		parts[i] = Repr(elem)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Property exposes first and last.
func (v *ListVal) Property(key string) (Value, bool) {
	switch strings.ToLower(key) {
	case "first":
		if len(v.Elements) == 0 {
			return Null, true
		}
		return v.Elements[0], true
	case "last":
		if len(v.Elements) == 0 {
			return Null, true
		}
		return v.Elements[len(v.Elements)-1], true
	}
	return nil, false
}

// ---- Map value ----

// MapVal represents a map (dictionary) value with ordered keys.
type MapVal struct {
	Keys   []string
	Values map[string]Value
}

// NewMap creates an empty map.
func NewMap() *MapVal {
	return &MapVal{Values: map[string]Value{}}
}

// Set inserts or replaces key, keeping insertion order.
func (v *MapVal) Set(key string, val Value) {
	if _, ok := v.Values[key]; !ok {
		v.Keys = append(v.Keys, key)
	}
	v.Values[key] = val
}

// Get looks up key exactly, then case-insensitively.
func (v *MapVal) Get(key string) (Value, bool) {
	if val, ok := v.Values[key]; ok {
		return val, true
	}
	for _, k := range v.Keys {
		if strings.EqualFold(k, key) {
			return v.Values[k], true
		}
	}
	return nil, false
}

func (v *MapVal) Property(key string) (Value, bool) { return v.Get(key) }

func (v *MapVal) SetProperty(key string, val Value) error {
	v.Set(key, val)
	return nil
}

func (v *MapVal) TypeName() string { return "Object" }
func (v *MapVal) String() string {
	parts := make([]string, len(v.Keys))
	for i, k := range v.Keys {
		parts[i] = fmt.Sprintf("%q: %s", k, Repr(v.Values[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ---- Helpers ----

// Repr formats a value the way it appears inside a container: strings are
// quoted.
func Repr(v Value) string {
	if s, ok := v.(StringVal); ok {
		return strconv.Quote(string(s))
	}
	if v == nil {
		return "null"
	}
	return v.String()
}

// IsTruthy returns the truthiness of a value.
func IsTruthy(v Value) bool {
	switch val := v.(type) {
	case nil, NullVal:
		return false
	case BoolVal:
		return bool(val)
	case NumberVal:
		return float64(val) != 0
	case StringVal:
		return string(val) != ""
	case *ListVal:
		return len(val.Elements) > 0
	case *MapVal:
		return len(val.Keys) > 0
	default:
		return true
	}
}

// Length returns the element count of lists, maps and strings.
func Length(v Value) (int, bool) {
	switch val := v.(type) {
	case StringVal:
		return len([]rune(string(val))), true
	case *ListVal:
		return len(val.Elements), true
	case *MapVal:
		return len(val.Keys), true
	default:
		return 0, false
	}
}

// Equal reports structural equality: numbers, strings and booleans by value,
// lists and maps element-wise, everything else by identity.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case NumberVal:
		y, ok := b.(NumberVal)
		return ok && x == y
	case StringVal:
		y, ok := b.(StringVal)
		return ok && x == y
	case BoolVal:
		y, ok := b.(BoolVal)
		return ok && x == y
	case NullVal, nil:
		switch b.(type) {
		case NullVal, nil:
			return true
		}
		return false
	case *ListVal:
		y, ok := b.(*ListVal)
		if !ok || len(x.Elements) != len(y.Elements) {
			return false
		}
		for i := range x.Elements {
			if !Equal(x.Elements[i], y.Elements[i]) {
				return false
			}
		}
		return true
	case *MapVal:
		y, ok := b.(*MapVal)
		if !ok || len(x.Keys) != len(y.Keys) {
			return false
		}
		for _, k := range x.Keys {
			yv, ok := y.Values[k]
			if !ok || !Equal(x.Values[k], yv) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// Compare orders two numbers or two strings. ok is false for any other pair.
func Compare(a, b Value) (cmp int, ok bool) {
	switch x := a.(type) {
	case NumberVal:
		y, isNum := b.(NumberVal)
		if !isNum {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case StringVal:
		y, isStr := b.(StringVal)
		if !isStr {
			return 0, false
		}
		return strings.Compare(string(x), string(y)), true
	}
	return 0, false
}

// TypeMatches reports whether v can live in a binding declared as typ.
// Class names are not resolved here; callers handle object types.
func TypeMatches(v Value, typ string) bool {
	switch {
	case typ == "" || typ == "any":
		return true
	case v == nil:
		return true
	}
	if _, isNull := v.(NullVal); isNull {
		return true
	}
	if typ == "List" || strings.HasPrefix(typ, "List of ") {
		_, ok := v.(*ListVal)
		return ok
	}
	return v.TypeName() == typ
}
