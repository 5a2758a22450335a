package runtime

import (
	"testing"
)

func TestCapabilitiesAreStable(t *testing.T) {
	values := []Value{
		StringValue{Val: "x"},
		NumberValue{Val: 1},
		True,
		NewSimpleHash(),
		NewSimpleSequence(),
		NewNamespace("lib.ftl"),
		NewElement("item", NewTextNode("1")),
		Missing,
		nil,
	}
	for _, v := range values {
		first := Capabilities(v).String()
		second := Capabilities(v).String()
		if first != second {
			t.Fatalf("capabilities of %#v changed: %s vs %s", v, first, second)
		}
	}
}

func TestCapabilitiesReportEveryInterface(t *testing.T) {
	el := NewElement("item", NewTextNode("1"))
	for _, c := range []Capability{CapNode, CapHash, CapScalar} {
		if !HasCapability(el, c) {
			t.Fatalf("expected element to expose %s, got %s", c, Describe(el))
		}
	}
	if HasCapability(el, CapSequence) {
		t.Fatalf("element must not expose sequence")
	}
	if got := Describe(NewSimpleSequence()); got != "sequence" {
		t.Fatalf("unexpected description %q", got)
	}
	if got := Describe(Missing); got != "missing" {
		t.Fatalf("unexpected description %q", got)
	}
	if !HasCapability(NewNamespace("lib"), CapHashEx) {
		t.Fatalf("namespace should be enumerable")
	}
}

func TestSimpleHashKeepsInsertionOrder(t *testing.T) {
	h := NewSimpleHash()
	h.Put("b", StringValue{Val: "1"})
	h.Put("a", StringValue{Val: "2"})
	h.Put("b", StringValue{Val: "3"})
	keys, _ := h.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Fatalf("unexpected keys %v", keys)
	}
	v, _ := h.Get("b")
	if got := v.(StringValue).Val; got != "3" {
		t.Fatalf("expected replaced value, got %s", got)
	}
	if v, _ := h.Get("missing"); v != nil {
		t.Fatalf("absent key should yield nil, got %#v", v)
	}
}

func TestScopeBoundaryHidesOuterBindings(t *testing.T) {
	outer := NewScope(nil)
	outer.Define("x", StringValue{Val: "outer"})
	inner := NewScope(outer)
	if _, ok := inner.Get("x"); !ok {
		t.Fatalf("expected nested scope to see outer binding")
	}
	macro := NewBoundaryScope(inner)
	if macro.Has("x") {
		t.Fatalf("boundary scope must hide caller bindings")
	}
	if err := macro.Assign("x", True); err == nil {
		t.Fatalf("expected assign past boundary to fail")
	}
	body := NewScope(macro)
	if body.Enclosing() != macro {
		t.Fatalf("expected enclosing boundary to be the macro scope")
	}
	body.Define("y", True)
	if !body.HasInCurrentScope("y") || macro.HasInCurrentScope("y") {
		t.Fatalf("define should bind only in the current scope")
	}
}

func TestNamespaceDefineMacroBindsOwner(t *testing.T) {
	ns := NewNamespace("lib.ftl")
	m := &MacroValue{}
	ns.DefineMacro(m)
	if m.Namespace != ns {
		t.Fatalf("expected macro to be bound to its namespace")
	}
	if ns.TemplateName() != "lib.ftl" {
		t.Fatalf("unexpected template name %q", ns.TemplateName())
	}
}

// namedList is a sequence whose items can also be looked up by name.
type namedList struct {
	names []string
	items []Value
}

func (l namedList) At(idx int) (Value, error) {
	if idx < 0 || idx >= len(l.items) {
		return nil, nil
	}
	return l.items[idx], nil
}

func (l namedList) Size() (int, error) { return len(l.items), nil }

func (l namedList) Get(key string) (Value, error) {
	for i, name := range l.names {
		if name == key {
			return l.items[i], nil
		}
	}
	return nil, nil
}

func (l namedList) IsEmpty() (bool, error) { return len(l.items) == 0, nil }

func (l namedList) Keys() ([]string, error) { return append([]string(nil), l.names...), nil }

func TestValueCanBeHashAndSequence(t *testing.T) {
	v := &namedList{names: []string{"a", "b"}, items: []Value{StringValue{Val: "1"}, StringValue{Val: "2"}}}
	if got := Describe(v); got != "hash+sequence" {
		t.Fatalf("unexpected description %q", got)
	}
	byName, _ := v.Get("b")
	byIndex, _ := v.At(1)
	if byName != byIndex {
		t.Fatalf("name and index lookups disagree: %v vs %v", byName, byIndex)
	}
	if wrapped := MustWrap(v); wrapped != Value(v) {
		t.Fatalf("wrap should pass the value through")
	}
	plain, ok := Unwrap(v).([]any)
	if !ok || len(plain) != 2 || plain[0] != "1" {
		t.Fatalf("expected a list, got %#v", Unwrap(v))
	}
}
