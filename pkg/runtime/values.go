package runtime

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"ftl/interpreter-go/pkg/ast"
)

// Value is any datum a template can read. What a value can do is decided only
// by the capability interfaces it implements (Scalar, Hash, Sequence, Node, ...);
// a single value may implement several of them.
type Value interface{}

// Scalar values have a string form.
type Scalar interface {
	AsString() (string, error)
}

type Number interface {
	AsNumber() (float64, error)
}

type Boolean interface {
	AsBool() (bool, error)
}

// Hash is a string-keyed lookup. Get returns a nil Value for an absent key.
type Hash interface {
	Get(key string) (Value, error)
	IsEmpty() (bool, error)
}

// HashEx is a Hash that can enumerate its keys.
type HashEx interface {
	Hash
	Keys() ([]string, error)
}

// Sequence is a finite, index-accessible list.
type Sequence interface {
	At(idx int) (Value, error)
	Size() (int, error)
}

// Node is a position in a host document tree.
type Node interface {
	ParentNode() (Node, error)
	ChildNodes() (Sequence, error)
	NodeName() (string, error)
	NodeType() (string, error)
	NodeNamespace() (string, error)
}

// Method is a host function callable from templates.
type Method interface {
	Exec(args []Value) (Value, error)
}

type missingValue struct{}

func (missingValue) String() string { return "missing" }

// Missing is the deliberate "no value" sentinel.
var Missing Value = missingValue{}

// IsMissing reports whether v is the Missing sentinel or a nil Value.
func IsMissing(v Value) bool {
	return v == nil || v == Missing
}

//-----------------------------------------------------------------------------
// Capabilities
//-----------------------------------------------------------------------------

type Capability string

const (
	CapScalar   Capability = "string"
	CapNumber   Capability = "number"
	CapBoolean  Capability = "boolean"
	CapHash     Capability = "hash"
	CapHashEx   Capability = "extended_hash"
	CapSequence Capability = "sequence"
	CapNode     Capability = "node"
	CapMacro    Capability = "macro"
	CapMethod   Capability = "method"
	CapMissing  Capability = "missing"
)

// CapabilitySet is the set of capabilities a value exposes.
type CapabilitySet map[Capability]struct{}

// Capabilities reports every capability v exposes. The answer depends only on
// the dynamic type of v, so it is stable for the lifetime of the value.
func Capabilities(v Value) CapabilitySet {
	set := make(CapabilitySet)
	if IsMissing(v) {
		set[CapMissing] = struct{}{}
		return set
	}
	if _, ok := v.(Scalar); ok {
		set[CapScalar] = struct{}{}
	}
	if _, ok := v.(Number); ok {
		set[CapNumber] = struct{}{}
	}
	if _, ok := v.(Boolean); ok {
		set[CapBoolean] = struct{}{}
	}
	if _, ok := v.(Hash); ok {
		set[CapHash] = struct{}{}
	}
	if _, ok := v.(HashEx); ok {
		set[CapHashEx] = struct{}{}
	}
	if _, ok := v.(Sequence); ok {
		set[CapSequence] = struct{}{}
	}
	if _, ok := v.(Node); ok {
		set[CapNode] = struct{}{}
	}
	if _, ok := v.(*MacroValue); ok {
		set[CapMacro] = struct{}{}
	}
	if _, ok := v.(Method); ok {
		set[CapMethod] = struct{}{}
	}
	return set
}

// HasCapability reports whether v exposes capability c.
func HasCapability(v Value, c Capability) bool {
	_, ok := Capabilities(v)[c]
	return ok
}

// Sorted returns the capabilities in a deterministic order.
func (s CapabilitySet) Sorted() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s CapabilitySet) String() string {
	caps := s.Sorted()
	parts := make([]string, 0, len(caps))
	for _, c := range caps {
		if c == CapHashEx {
			continue
		}
		parts = append(parts, string(c))
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "+")
}

// Describe names the observed capabilities of v for diagnostics.
func Describe(v Value) string {
	return Capabilities(v).String()
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type StringValue struct {
	Val string
}

func (v StringValue) AsString() (string, error) { return v.Val, nil }

type NumberValue struct {
	Val float64
}

func (v NumberValue) AsNumber() (float64, error) { return v.Val, nil }

// FormatNumber renders a number the way interpolations print it.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

type BoolValue struct {
	Val bool
}

func (v BoolValue) AsBool() (bool, error) { return v.Val, nil }

var (
	True  Value = BoolValue{Val: true}
	False Value = BoolValue{Val: false}
)

func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

//-----------------------------------------------------------------------------
// Containers
//-----------------------------------------------------------------------------

// SimpleHash is an insertion-ordered mutable hash.
type SimpleHash struct {
	keys   []string
	values map[string]Value
}

func NewSimpleHash() *SimpleHash {
	return &SimpleHash{values: make(map[string]Value)}
}

func (h *SimpleHash) Get(key string) (Value, error) {
	if h == nil {
		return nil, nil
	}
	return h.values[key], nil
}

func (h *SimpleHash) IsEmpty() (bool, error) {
	return h == nil || len(h.keys) == 0, nil
}

func (h *SimpleHash) Keys() ([]string, error) {
	if h == nil {
		return nil, nil
	}
	return append([]string(nil), h.keys...), nil
}

// Put inserts or replaces key, keeping the original insertion position.
func (h *SimpleHash) Put(key string, value Value) {
	if _, ok := h.values[key]; !ok {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

func (h *SimpleHash) Len() int {
	if h == nil {
		return 0
	}
	return len(h.keys)
}

// SimpleSequence is an append-only ordered list.
type SimpleSequence struct {
	items []Value
}

func NewSimpleSequence(items ...Value) *SimpleSequence {
	return &SimpleSequence{items: items}
}

func (s *SimpleSequence) At(idx int) (Value, error) {
	if s == nil || idx < 0 || idx >= len(s.items) {
		return nil, nil
	}
	return s.items[idx], nil
}

func (s *SimpleSequence) Size() (int, error) {
	if s == nil {
		return 0, nil
	}
	return len(s.items), nil
}

func (s *SimpleSequence) Add(v Value) {
	s.items = append(s.items, v)
}

//-----------------------------------------------------------------------------
// Callables
//-----------------------------------------------------------------------------

// MacroValue is a macro or function bound to the namespace that defined it.
type MacroValue struct {
	Definition *ast.MacroDefinition
	Namespace  *Namespace
}

func (m *MacroValue) Name() string {
	if m == nil || m.Definition == nil {
		return ""
	}
	return m.Definition.Name
}

func (m *MacroValue) IsFunction() bool {
	return m != nil && m.Definition != nil && m.Definition.IsFunction
}

// NativeMethod adapts a Go function to the Method capability.
type NativeMethod struct {
	Name string
	Impl func(args []Value) (Value, error)
}

func (m NativeMethod) Exec(args []Value) (Value, error) {
	if m.Impl == nil {
		return nil, fmt.Errorf("method %s has no implementation", m.Name)
	}
	return m.Impl(args)
}
