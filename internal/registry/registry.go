// Package registry holds the class and task definitions of one program run.
// Classes live in an indexed slice and refer to their parent by index.
package registry

import (
	"humanlang/internal/ast"
	"humanlang/internal/diag"
	"humanlang/internal/sentence"
	"humanlang/internal/span"
	"sort"
	"sync"
)

// NoParent is the parent index of a root class.
const NoParent = -1

// Task is a free task or a method. Both share one invocation shape.
type Task struct {
	Name    string
	Params  []sentence.Param
	Body    []ast.Element
	Returns string
	Async   bool
	Class   string // owning class, empty for free tasks
	Line    int
}

// Arity returns the number of declared parameters.
func (t *Task) Arity() int { return len(t.Params) }

// Class is a class definition.
type Class struct {
	Name       string
	Parent     int // index into the registry, NoParent for none
	Properties map[string]string
	PropOrder  []string
	Methods    map[string]*Task
	index      int
}

// Index returns the class's position in the registry.
func (c *Class) Index() int { return c.index }

// AddProperty declares a property with its type.
func (c *Class) AddProperty(name, typ string) {
	if _, ok := c.Properties[name]; !ok {
		c.PropOrder = append(c.PropOrder, name)
	}
	c.Properties[name] = typ
}

// AddMethod attaches a method to the class.
func (c *Class) AddMethod(t *Task) {
	t.Class = c.Name
	c.Methods[t.Name] = t
}

// Registry is the class table and the free task table.
type Registry struct {
	mu      sync.RWMutex
	classes []*Class
	byName  map[string]int
	tasks   map[string]*Task
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byName: make(map[string]int),
		tasks:  make(map[string]*Task),
	}
}

// DefineClass registers a class. The parent, if named, must already be
// registered. Redefining a name replaces the definition in place, keeping
// its index so subclasses stay linked.
func (r *Registry) DefineClass(name, parent string, s span.Span) (*Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parentIdx := NoParent
	if parent != "" {
		idx, ok := r.byName[parent]
		if !ok {
			return nil, diag.Errorf(diag.UnknownIdentifierError, "E2101", s,
				"class '%s' inherits from unknown class '%s'", name, parent)
		}
		parentIdx = idx
	}

	c := &Class{
		Name:       name,
		Parent:     parentIdx,
		Properties: make(map[string]string),
		Methods:    make(map[string]*Task),
	}
	if idx, ok := r.byName[name]; ok {
		if parentIdx == idx {
			return nil, diag.Errorf(diag.DeclarationError, "E2102", s, "class '%s' cannot inherit from itself", name)
		}
		c.index = idx
		r.classes[idx] = c
		return c, nil
	}
	c.index = len(r.classes)
	r.classes = append(r.classes, c)
	r.byName[name] = c.index
	return c, nil
}

// Class looks up a class by name.
func (r *Registry) Class(name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.classes[idx], true
}

// Parent returns the parent of c, or nil.
func (r *Registry) Parent(c *Class) *Class {
	if c == nil || c.Parent == NoParent {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.classes[c.Parent]
}

// chain walks c and its ancestors, stopping when fn returns true. The walk is
// bounded by the number of classes.
func (r *Registry) chain(c *Class, fn func(*Class) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for steps := 0; c != nil && steps <= len(r.classes); steps++ {
		if fn(c) {
			return
		}
		if c.Parent == NoParent {
			return
		}
		c = r.classes[c.Parent]
	}
}

// FindMethod looks up a method on c, walking to the parent on a miss.
func (r *Registry) FindMethod(c *Class, name string) (*Task, bool) {
	var found *Task
	r.chain(c, func(k *Class) bool {
		found = k.Methods[name]
		return found != nil
	})
	return found, found != nil
}

// FindProperty returns the declared type of a property on c or an ancestor.
func (r *Registry) FindProperty(c *Class, name string) (string, bool) {
	typ, ok := "", false
	r.chain(c, func(k *Class) bool {
		typ, ok = k.Properties[name]
		return ok
	})
	return typ, ok
}

// IsSubclass reports whether c is class name or derives from it.
func (r *Registry) IsSubclass(c *Class, name string) bool {
	found := false
	r.chain(c, func(k *Class) bool {
		found = k.Name == name
		return found
	})
	return found
}

// DefineTask registers a free task, replacing any task of the same name.
func (r *Registry) DefineTask(t *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.Name] = t
}

// Task looks up a free task by name.
func (r *Registry) Task(name string) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	return t, ok
}

// ClassNames returns the registered class names, sorted.
func (r *Registry) ClassNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TaskNames returns the registered free task names, sorted.
func (r *Registry) TaskNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MethodNames returns the methods visible on c, sorted.
func (r *Registry) MethodNames(c *Class) []string {
	seen := map[string]bool{}
	r.chain(c, func(k *Class) bool {
		for name := range k.Methods {
			seen[name] = true
		}
		return false
	})
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
