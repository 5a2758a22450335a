package runtime

import (
	"fmt"
	"sort"
)

// Scope is one frame of local bindings. Scopes chain to their lexical parent;
// a boundary scope (a macro body) hides everything above it from lookups.
type Scope struct {
	values   map[string]Value
	parent   *Scope
	boundary bool
}

// NewScope creates a new scope, optionally nested under a parent.
func NewScope(parent *Scope) *Scope {
	return &Scope{
		values: make(map[string]Value),
		parent: parent,
	}
}

// NewBoundaryScope creates a scope whose lookups never reach past it.
func NewBoundaryScope(parent *Scope) *Scope {
	s := NewScope(parent)
	s.boundary = true
	return s
}

// Parent exposes the lexical parent (nil at the bottom of the stack).
func (s *Scope) Parent() *Scope {
	if s == nil {
		return nil
	}
	return s.parent
}

// Boundary reports whether lookups stop at this scope.
func (s *Scope) Boundary() bool {
	return s != nil && s.boundary
}

// Define inserts or shadows a binding in the current scope.
func (s *Scope) Define(name string, value Value) {
	s.values[name] = value
}

// Get retrieves a binding, searching outward until a boundary scope.
func (s *Scope) Get(name string) (Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.values[name]; ok {
			return v, true
		}
		if cur.boundary {
			break
		}
	}
	return nil, false
}

// Assign updates an existing binding in the first scope where it appears.
func (s *Scope) Assign(name string, value Value) error {
	for cur := s; cur != nil; cur = cur.parent {
		if _, ok := cur.values[name]; ok {
			cur.values[name] = value
			return nil
		}
		if cur.boundary {
			break
		}
	}
	return fmt.Errorf("undefined local variable '%s'", name)
}

// Has reports whether the binding is visible from this scope.
func (s *Scope) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// HasInCurrentScope reports whether the binding exists in the current scope.
func (s *Scope) HasInCurrentScope(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.values[name]
	return ok
}

// Keys returns the bindings of this scope in sorted order.
func (s *Scope) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Enclosing returns the nearest boundary scope at or above s, or nil.
func (s *Scope) Enclosing() *Scope {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.boundary {
			return cur
		}
	}
	return nil
}
