// Package scope implements the chained name/value/type environment used by
// both the type checker and the executor.
package scope

import (
	"sort"
	"sync"

	"humanlang/internal/diag"
	"humanlang/internal/span"
	"humanlang/internal/value"
)

// AnyType is the gradual type every unannotated binding has.
const AnyType = "any"

// Scope is one level of bindings with a link to its outer scope.
type Scope struct {
	mu     sync.RWMutex
	values map[string]value.Value
	types  map[string]string // declared types
	outer  *Scope

	pending    []*value.HandleVal
	hasPending bool // the scope owns a pending-task collection
}

// New creates a scope nested in outer (nil for a global scope).
func New(outer *Scope) *Scope {
	return &Scope{
		values: make(map[string]value.Value),
		types:  make(map[string]string),
		outer:  outer,
	}
}

// Outer returns the enclosing scope, or nil.
func (s *Scope) Outer() *Scope { return s.outer }

// Get looks up a value by walking the scope chain.
func (s *Scope) Get(name string) (value.Value, bool) {
	for sc := s; sc != nil; sc = sc.outer {
		sc.mu.RLock()
		v, ok := sc.values[name]
		sc.mu.RUnlock()
		if ok {
			return v, true
		}
	}
	return nil, false
}

// Type returns the declared type of name, walking outward. Undeclared names
// are "any".
func (s *Scope) Type(name string) string {
	for sc := s; sc != nil; sc = sc.outer {
		sc.mu.RLock()
		t, ok := sc.types[name]
		sc.mu.RUnlock()
		if ok {
			return t
		}
	}
	return AnyType
}

// Set binds name in this scope only. A type other than "any" is recorded.
func (s *Scope) Set(name string, v value.Value, typ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = v
	if typ != "" && typ != AnyType {
		s.types[name] = typ
	}
}

// Declare records a typed declaration in this scope. Declaring the same name
// twice in one scope is a DeclarationError.
func (s *Scope) Declare(name, typ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.types[name]; exists {
		return diag.Errorf(diag.DeclarationError, "E2001", span.Span{},
			"'%s' is already declared in this scope", name)
	}
	if typ == "" {
		typ = AnyType
	}
	s.types[name] = typ
	return nil
}

// DeclaredHere reports whether name is declared in this exact scope.
func (s *Scope) DeclaredHere(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.types[name]
	return ok
}

// Update assigns to the nearest scope that binds or declares name. It
// reports false when no scope in the chain knows the name.
func (s *Scope) Update(name string, v value.Value) bool {
	for sc := s; sc != nil; sc = sc.outer {
		sc.mu.Lock()
		_, bound := sc.values[name]
		_, declared := sc.types[name]
		if bound || declared {
			sc.values[name] = v
			sc.mu.Unlock()
			return true
		}
		sc.mu.Unlock()
	}
	return false
}

// Names lists every visible binding, sorted.
func (s *Scope) Names() []string {
	seen := map[string]bool{}
	var names []string
	for sc := s; sc != nil; sc = sc.outer {
		sc.mu.RLock()
		for name := range sc.values {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		for name := range sc.types {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		sc.mu.RUnlock()
	}
	sort.Strings(names)
	return names
}

// ---- pending task collection ----

// Detach registers a pending task handle on the nearest scope that owns a
// collection, creating one on this scope when none exists.
func (s *Scope) Detach(h *value.HandleVal) {
	owner := s.collectionOwner()
	if owner == nil {
		owner = s
	}
	owner.mu.Lock()
	owner.hasPending = true
	owner.pending = append(owner.pending, h)
	owner.mu.Unlock()
}

// Drain removes and returns every handle in the nearest collection.
func (s *Scope) Drain() []*value.HandleVal {
	owner := s.collectionOwner()
	if owner == nil {
		return nil
	}
	owner.mu.Lock()
	defer owner.mu.Unlock()
	handles := owner.pending
	owner.pending = nil
	return handles
}

// Pending returns the number of handles in the nearest collection.
func (s *Scope) Pending() int {
	owner := s.collectionOwner()
	if owner == nil {
		return 0
	}
	owner.mu.RLock()
	defer owner.mu.RUnlock()
	return len(owner.pending)
}

func (s *Scope) collectionOwner() *Scope {
	for sc := s; sc != nil; sc = sc.outer {
		sc.mu.RLock()
		has := sc.hasPending
		sc.mu.RUnlock()
		if has {
			return sc
		}
	}
	return nil
}
