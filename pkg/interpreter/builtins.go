package interpreter

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"ftl/interpreter-go/pkg/ast"
	"ftl/interpreter-go/pkg/runtime"
)

type builtinFunc func(env *Environment, n *ast.BuiltIn, target runtime.Value) (runtime.Value, error)

var builtins map[string]builtinFunc

func init() {
	builtins = map[string]builtinFunc{
		"size":           biSize,
		"length":         stringBuiltin(func(s string) runtime.Value { return runtime.NumberValue{Val: float64(utf8.RuneCountInString(s))} }),
		"upper_case":     stringBuiltin(func(s string) runtime.Value { return runtime.StringValue{Val: strings.ToUpper(s)} }),
		"lower_case":     stringBuiltin(func(s string) runtime.Value { return runtime.StringValue{Val: strings.ToLower(s)} }),
		"trim":           stringBuiltin(func(s string) runtime.Value { return runtime.StringValue{Val: strings.TrimSpace(s)} }),
		"cap_first":      stringBuiltin(capFirst),
		"string":         biString,
		"c":              biString,
		"is_string":      capabilityTest(runtime.CapScalar),
		"is_number":      capabilityTest(runtime.CapNumber),
		"is_boolean":     capabilityTest(runtime.CapBoolean),
		"is_hash":        capabilityTest(runtime.CapHash),
		"is_sequence":    capabilityTest(runtime.CapSequence),
		"is_node":        capabilityTest(runtime.CapNode),
		"is_macro":       capabilityTest(runtime.CapMacro),
		"keys":           biKeys,
		"values":         biValues,
		"first":          sequenceAt(func(int) int { return 0 }),
		"last":           sequenceAt(func(size int) int { return size - 1 }),
		"node_name":      nodeBuiltin(func(n runtime.Node) (runtime.Value, error) { return nodeString(n.NodeName()) }),
		"node_type":      nodeBuiltin(func(n runtime.Node) (runtime.Value, error) { return nodeString(n.NodeType()) }),
		"node_namespace": nodeBuiltin(func(n runtime.Node) (runtime.Value, error) { return nodeString(n.NodeNamespace()) }),
		"children":       nodeBuiltin(biChildren),
		"parent":         nodeBuiltin(biParent),
		"root":           nodeBuiltin(biRoot),
		"ancestors":      nodeBuiltin(biAncestors),
	}
}

var loopBuiltins = map[string]func(*loopContext) runtime.Value{
	"index":    func(l *loopContext) runtime.Value { return runtime.NumberValue{Val: float64(l.index)} },
	"counter":  func(l *loopContext) runtime.Value { return runtime.NumberValue{Val: float64(l.index + 1)} },
	"has_next": func(l *loopContext) runtime.Value { return runtime.Bool(l.hasNext()) },
	"is_first": func(l *loopContext) runtime.Value { return runtime.Bool(l.index == 0) },
	"is_last":  func(l *loopContext) runtime.Value { return runtime.Bool(!l.hasNext()) },
}

func (env *Environment) evalBuiltIn(n *ast.BuiltIn) (runtime.Value, error) {
	if loopFn, ok := loopBuiltins[n.Name]; ok {
		id, isIdent := n.Target.(*ast.Identifier)
		var loop *loopContext
		if isIdent {
			loop = env.findLoop(id.Name)
		}
		if loop == nil {
			target, _ := env.eval(n.Target)
			mismatch := newTypeMismatch(ErrTypeMismatch, n.Target, target, "loop variable")
			mismatch.Tip = "?" + n.Name + " only applies to the variable of an enclosing #list"
			return nil, mismatch
		}
		return loopFn(loop), nil
	}
	if n.Name == "has_content" {
		target, err := env.evalTolerant(n.Target)
		if err != nil {
			return nil, err
		}
		ok, err := hasContent(target)
		if err != nil {
			return nil, err
		}
		return runtime.Bool(ok), nil
	}
	fn, ok := builtins[n.Name]
	if !ok {
		return nil, &UnboundReferenceError{Name: "?" + n.Name, Expression: n, Reason: "unknown built-in"}
	}
	target, err := env.evalRequired(n.Target)
	if err != nil {
		return nil, err
	}
	return fn(env, n, target)
}

func hasContent(v runtime.Value) (bool, error) {
	if runtime.IsMissing(v) {
		return false, nil
	}
	switch val := v.(type) {
	case runtime.Sequence:
		size, err := val.Size()
		return size > 0, err
	case runtime.Hash:
		empty, err := val.IsEmpty()
		return !empty, err
	case runtime.Scalar:
		s, err := val.AsString()
		return s != "", err
	}
	return true, nil
}

func stringBuiltin(fn func(string) runtime.Value) builtinFunc {
	return func(env *Environment, n *ast.BuiltIn, target runtime.Value) (runtime.Value, error) {
		scalar, ok := target.(runtime.Scalar)
		if !ok {
			return nil, newTypeMismatch(ErrNonString, n.Target, target, "string")
		}
		s, err := scalar.AsString()
		if err != nil {
			return nil, err
		}
		return fn(s), nil
	}
}

func capFirst(s string) runtime.Value {
	for idx, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		return runtime.StringValue{Val: s[:idx] + string(unicode.ToUpper(r)) + s[idx+utf8.RuneLen(r):]}
	}
	return runtime.StringValue{Val: s}
}

func capabilityTest(c runtime.Capability) builtinFunc {
	return func(_ *Environment, _ *ast.BuiltIn, target runtime.Value) (runtime.Value, error) {
		return runtime.Bool(runtime.HasCapability(target, c)), nil
	}
}

func biString(env *Environment, n *ast.BuiltIn, target runtime.Value) (runtime.Value, error) {
	s, err := env.displayString(n.Target, target)
	if err != nil {
		return nil, err
	}
	return runtime.StringValue{Val: s}, nil
}

func biSize(_ *Environment, n *ast.BuiltIn, target runtime.Value) (runtime.Value, error) {
	switch v := target.(type) {
	case runtime.Sequence:
		size, err := v.Size()
		if err != nil {
			return nil, err
		}
		return runtime.NumberValue{Val: float64(size)}, nil
	case runtime.HashEx:
		keys, err := v.Keys()
		if err != nil {
			return nil, err
		}
		return runtime.NumberValue{Val: float64(len(keys))}, nil
	}
	return nil, newTypeMismatch(ErrNonSequence, n.Target, target, "sequence or extended hash")
}

func biKeys(_ *Environment, n *ast.BuiltIn, target runtime.Value) (runtime.Value, error) {
	hash, ok := target.(runtime.HashEx)
	if !ok {
		return nil, newTypeMismatch(ErrTypeMismatch, n.Target, target, "extended hash")
	}
	keys, err := hash.Keys()
	if err != nil {
		return nil, err
	}
	seq := runtime.NewSimpleSequence()
	for _, k := range keys {
		seq.Add(runtime.StringValue{Val: k})
	}
	return seq, nil
}

func biValues(_ *Environment, n *ast.BuiltIn, target runtime.Value) (runtime.Value, error) {
	hash, ok := target.(runtime.HashEx)
	if !ok {
		return nil, newTypeMismatch(ErrTypeMismatch, n.Target, target, "extended hash")
	}
	keys, err := hash.Keys()
	if err != nil {
		return nil, err
	}
	seq := runtime.NewSimpleSequence()
	for _, k := range keys {
		val, err := hash.Get(k)
		if err != nil {
			return nil, err
		}
		seq.Add(val)
	}
	return seq, nil
}

func sequenceAt(index func(size int) int) builtinFunc {
	return func(_ *Environment, n *ast.BuiltIn, target runtime.Value) (runtime.Value, error) {
		seq, ok := target.(runtime.Sequence)
		if !ok {
			return nil, newTypeMismatch(ErrNonSequence, n.Target, target, "sequence")
		}
		size, err := seq.Size()
		if err != nil {
			return nil, err
		}
		if size == 0 {
			return runtime.Missing, nil
		}
		val, err := seq.At(index(size))
		if err != nil || val == nil {
			return runtime.Missing, err
		}
		return val, nil
	}
}

func nodeBuiltin(fn func(runtime.Node) (runtime.Value, error)) builtinFunc {
	return func(_ *Environment, n *ast.BuiltIn, target runtime.Value) (runtime.Value, error) {
		node, ok := target.(runtime.Node)
		if !ok {
			return nil, newTypeMismatch(ErrNonNode, n.Target, target, "node")
		}
		val, err := fn(node)
		if err != nil {
			return nil, fmt.Errorf("?%s: %w", n.Name, err)
		}
		return val, nil
	}
}

func nodeString(s string, err error) (runtime.Value, error) {
	if err != nil {
		return nil, err
	}
	return runtime.StringValue{Val: s}, nil
}

func biChildren(node runtime.Node) (runtime.Value, error) {
	children, err := node.ChildNodes()
	if err != nil {
		return nil, err
	}
	if children == nil {
		return runtime.NewSimpleSequence(), nil
	}
	return children, nil
}

func biParent(node runtime.Node) (runtime.Value, error) {
	parent, err := node.ParentNode()
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return runtime.Missing, nil
	}
	return parent, nil
}

func biRoot(node runtime.Node) (runtime.Value, error) {
	for {
		parent, err := node.ParentNode()
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return node, nil
		}
		node = parent
	}
}

func biAncestors(node runtime.Node) (runtime.Value, error) {
	seq := runtime.NewSimpleSequence()
	for {
		parent, err := node.ParentNode()
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return seq, nil
		}
		seq.Add(parent)
		node = parent
	}
}
