package interpreter

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"ftl/interpreter-go/pkg/ast"
	"ftl/interpreter-go/pkg/runtime"
)

// eval computes the value of expr. Unbound names and absent keys evaluate to
// runtime.Missing; it is up to the consumer to reject them.
func (env *Environment) eval(expr ast.Expression) (runtime.Value, error) {
	switch n := expr.(type) {
	case *ast.StringLiteral:
		return runtime.StringValue{Val: n.Value}, nil
	case *ast.NumberLiteral:
		return runtime.NumberValue{Val: n.Value}, nil
	case *ast.BooleanLiteral:
		return runtime.Bool(n.Value), nil
	case *ast.ListLiteral:
		seq := runtime.NewSimpleSequence()
		for _, item := range n.Items {
			val, err := env.evalRequired(item)
			if err != nil {
				return nil, err
			}
			seq.Add(val)
		}
		return seq, nil
	case *ast.HashLiteral:
		hash := runtime.NewSimpleHash()
		for _, entry := range n.Entries {
			key, err := env.evalString(entry.Key)
			if err != nil {
				return nil, err
			}
			val, err := env.evalRequired(entry.Value)
			if err != nil {
				return nil, err
			}
			hash.Put(key, val)
		}
		return hash, nil
	case *ast.Identifier:
		return env.lookup(n.Name)
	case *ast.SpecialVariable:
		return env.special(n)
	case *ast.DotVariable:
		return env.evalDot(n)
	case *ast.DynamicKey:
		return env.evalDynamicKey(n)
	case *ast.MethodCall:
		return env.evalMethodCall(n)
	case *ast.BuiltIn:
		return env.evalBuiltIn(n)
	case *ast.DefaultTo:
		val, err := env.evalTolerant(n.Target)
		if err != nil {
			return nil, err
		}
		if !runtime.IsMissing(val) {
			return val, nil
		}
		if n.Default == nil {
			return runtime.StringValue{}, nil
		}
		return env.eval(n.Default)
	case *ast.Exists:
		val, err := env.evalTolerant(n.Target)
		if err != nil {
			return nil, err
		}
		return runtime.Bool(!runtime.IsMissing(val)), nil
	case *ast.Comparison:
		return env.evalComparison(n)
	case *ast.And:
		left, err := env.evalBool(n.Left)
		if err != nil || !left {
			return runtime.False, err
		}
		right, err := env.evalBool(n.Right)
		return runtime.Bool(right), err
	case *ast.Or:
		left, err := env.evalBool(n.Left)
		if err != nil {
			return nil, err
		}
		if left {
			return runtime.True, nil
		}
		right, err := env.evalBool(n.Right)
		return runtime.Bool(right), err
	case *ast.Not:
		val, err := env.evalBool(n.Operand)
		if err != nil {
			return nil, err
		}
		return runtime.Bool(!val), nil
	case *ast.AddConcat:
		return env.evalAdd(n)
	case *ast.Arithmetic:
		return env.evalArithmetic(n)
	case *ast.Negate:
		f, err := env.evalNumber(n.Operand)
		if err != nil {
			return nil, err
		}
		return runtime.NumberValue{Val: -f}, nil
	case *ast.Parenthetical:
		return env.eval(n.Nested)
	case nil:
		return nil, &InternalInvariantError{Message: "nil expression"}
	}
	return nil, &InternalInvariantError{Message: fmt.Sprintf("unsupported expression %T", expr)}
}

// evalTolerant evaluates expr treating a missing value anywhere along a
// lookup chain as Missing, for the ! and ?? operators.
func (env *Environment) evalTolerant(expr ast.Expression) (runtime.Value, error) {
	val, err := env.eval(expr)
	if err != nil {
		if errors.Is(err, ErrUnboundReference) {
			return runtime.Missing, nil
		}
		return nil, err
	}
	return val, nil
}

func (env *Environment) evalRequired(expr ast.Expression) (runtime.Value, error) {
	val, err := env.eval(expr)
	if err != nil {
		return nil, err
	}
	if runtime.IsMissing(val) {
		return nil, &UnboundReferenceError{Name: ast.CanonicalForm(expr), Expression: expr}
	}
	return val, nil
}

func (env *Environment) evalString(expr ast.Expression) (string, error) {
	val, err := env.evalRequired(expr)
	if err != nil {
		return "", err
	}
	switch v := val.(type) {
	case runtime.Scalar:
		return v.AsString()
	case runtime.Number:
		f, err := v.AsNumber()
		if err != nil {
			return "", err
		}
		return runtime.FormatNumber(f), nil
	}
	return "", newTypeMismatch(ErrNonString, expr, val, "string")
}

func (env *Environment) evalBool(expr ast.Expression) (bool, error) {
	val, err := env.evalRequired(expr)
	if err != nil {
		return false, err
	}
	b, ok := val.(runtime.Boolean)
	if !ok {
		return false, newTypeMismatch(ErrTypeMismatch, expr, val, "boolean")
	}
	return b.AsBool()
}

func (env *Environment) evalNumber(expr ast.Expression) (float64, error) {
	val, err := env.evalRequired(expr)
	if err != nil {
		return 0, err
	}
	num, ok := val.(runtime.Number)
	if !ok {
		return 0, newTypeMismatch(ErrTypeMismatch, expr, val, "number")
	}
	return num.AsNumber()
}

func (env *Environment) evalDot(n *ast.DotVariable) (runtime.Value, error) {
	target, err := env.evalRequired(n.Target)
	if err != nil {
		return nil, err
	}
	hash, ok := target.(runtime.Hash)
	if !ok {
		return nil, newTypeMismatch(ErrTypeMismatch, n.Target, target, "hash")
	}
	val, err := hash.Get(n.Name)
	if err != nil {
		return nil, err
	}
	if val == nil {
		return runtime.Missing, nil
	}
	return val, nil
}

func (env *Environment) evalDynamicKey(n *ast.DynamicKey) (runtime.Value, error) {
	target, err := env.evalRequired(n.Target)
	if err != nil {
		return nil, err
	}
	key, err := env.evalRequired(n.Key)
	if err != nil {
		return nil, err
	}
	var val runtime.Value
	if num, ok := key.(runtime.Number); ok {
		seq, ok := target.(runtime.Sequence)
		if !ok {
			return nil, newTypeMismatch(ErrNonSequence, n.Target, target, "sequence")
		}
		f, err := num.AsNumber()
		if err != nil {
			return nil, err
		}
		if f != math.Trunc(f) {
			return nil, newTypeMismatch(ErrTypeMismatch, n.Key, key, "integer index")
		}
		val, err = seq.At(int(f))
		if err != nil {
			return nil, err
		}
	} else {
		name, ok := key.(runtime.Scalar)
		if !ok {
			return nil, newTypeMismatch(ErrTypeMismatch, n.Key, key, "string or number")
		}
		hash, ok := target.(runtime.Hash)
		if !ok {
			return nil, newTypeMismatch(ErrTypeMismatch, n.Target, target, "hash")
		}
		s, err := name.AsString()
		if err != nil {
			return nil, err
		}
		val, err = hash.Get(s)
		if err != nil {
			return nil, err
		}
	}
	if val == nil {
		return runtime.Missing, nil
	}
	return val, nil
}

func (env *Environment) evalMethodCall(n *ast.MethodCall) (runtime.Value, error) {
	target, err := env.evalRequired(n.Target)
	if err != nil {
		return nil, err
	}
	args := make([]runtime.Value, 0, len(n.Args))
	for _, arg := range n.Args {
		val, err := env.eval(arg)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}
	switch callee := target.(type) {
	case *runtime.MacroValue:
		if !callee.IsFunction() {
			mismatch := newTypeMismatch(ErrTypeMismatch, n.Target, target, "method or function")
			mismatch.Tip = "macros are called with <@" + callee.Name() + "/>"
			return nil, mismatch
		}
		return env.callFunction(callee, args)
	case runtime.Method:
		val, err := callee.Exec(args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ast.CanonicalForm(n), err)
		}
		if val == nil {
			return runtime.Missing, nil
		}
		return val, nil
	}
	return nil, newTypeMismatch(ErrTypeMismatch, n.Target, target, "method or function")
}

func (env *Environment) evalComparison(n *ast.Comparison) (runtime.Value, error) {
	left, err := env.evalRequired(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := env.evalRequired(n.Right)
	if err != nil {
		return nil, err
	}
	op := n.Operator
	var cmp int
	switch l := left.(type) {
	case runtime.Number:
		r, ok := right.(runtime.Number)
		if !ok {
			return nil, newTypeMismatch(ErrTypeMismatch, n.Right, right, "number")
		}
		lf, err := l.AsNumber()
		if err != nil {
			return nil, err
		}
		rf, err := r.AsNumber()
		if err != nil {
			return nil, err
		}
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		}
	case runtime.Scalar:
		r, ok := right.(runtime.Scalar)
		if !ok {
			return nil, newTypeMismatch(ErrTypeMismatch, n.Right, right, "string")
		}
		ls, err := l.AsString()
		if err != nil {
			return nil, err
		}
		rs, err := r.AsString()
		if err != nil {
			return nil, err
		}
		cmp = strings.Compare(ls, rs)
	case runtime.Boolean:
		r, ok := right.(runtime.Boolean)
		if !ok {
			return nil, newTypeMismatch(ErrTypeMismatch, n.Right, right, "boolean")
		}
		if op != "==" && op != "!=" {
			mismatch := newTypeMismatch(ErrTypeMismatch, n.Left, left, "number or string")
			mismatch.Tip = "booleans only support == and !="
			return nil, mismatch
		}
		lb, err := l.AsBool()
		if err != nil {
			return nil, err
		}
		rb, err := r.AsBool()
		if err != nil {
			return nil, err
		}
		if lb != rb {
			cmp = 1
		}
	default:
		return nil, newTypeMismatch(ErrTypeMismatch, n.Left, left, "number, string or boolean")
	}
	switch op {
	case "==":
		return runtime.Bool(cmp == 0), nil
	case "!=":
		return runtime.Bool(cmp != 0), nil
	case "<":
		return runtime.Bool(cmp < 0), nil
	case "<=":
		return runtime.Bool(cmp <= 0), nil
	case ">":
		return runtime.Bool(cmp > 0), nil
	case ">=":
		return runtime.Bool(cmp >= 0), nil
	}
	return nil, &InternalInvariantError{Message: "unknown comparison operator " + n.Operator}
}

func (env *Environment) evalAdd(n *ast.AddConcat) (runtime.Value, error) {
	left, err := env.evalRequired(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := env.evalRequired(n.Right)
	if err != nil {
		return nil, err
	}
	ln, lNum := left.(runtime.Number)
	rn, rNum := right.(runtime.Number)
	if lNum && rNum {
		lf, err := ln.AsNumber()
		if err != nil {
			return nil, err
		}
		rf, err := rn.AsNumber()
		if err != nil {
			return nil, err
		}
		return runtime.NumberValue{Val: lf + rf}, nil
	}
	_, lStr := left.(runtime.Scalar)
	_, rStr := right.(runtime.Scalar)
	if (lStr || lNum) && (rStr || rNum) {
		ls, err := env.displayString(n.Left, left)
		if err != nil {
			return nil, err
		}
		rs, err := env.displayString(n.Right, right)
		if err != nil {
			return nil, err
		}
		return runtime.StringValue{Val: ls + rs}, nil
	}
	if ls, ok := left.(runtime.Sequence); ok {
		rs, ok := right.(runtime.Sequence)
		if !ok {
			return nil, newTypeMismatch(ErrNonSequence, n.Right, right, "sequence")
		}
		return concatSequences(ls, rs)
	}
	if lh, ok := left.(runtime.HashEx); ok {
		rh, ok := right.(runtime.HashEx)
		if !ok {
			return nil, newTypeMismatch(ErrTypeMismatch, n.Right, right, "extended hash")
		}
		return mergeHashes(lh, rh)
	}
	return nil, newTypeMismatch(ErrTypeMismatch, n.Left, left, "number, string, sequence or extended hash")
}

func concatSequences(parts ...runtime.Sequence) (runtime.Value, error) {
	out := runtime.NewSimpleSequence()
	for _, part := range parts {
		size, err := part.Size()
		if err != nil {
			return nil, err
		}
		for idx := 0; idx < size; idx++ {
			item, err := part.At(idx)
			if err != nil {
				return nil, err
			}
			out.Add(item)
		}
	}
	return out, nil
}

func mergeHashes(parts ...runtime.HashEx) (runtime.Value, error) {
	out := runtime.NewSimpleHash()
	for _, part := range parts {
		keys, err := part.Keys()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			val, err := part.Get(key)
			if err != nil {
				return nil, err
			}
			out.Put(key, val)
		}
	}
	return out, nil
}

func (env *Environment) evalArithmetic(n *ast.Arithmetic) (runtime.Value, error) {
	lf, err := env.evalNumber(n.Left)
	if err != nil {
		return nil, err
	}
	rf, err := env.evalNumber(n.Right)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case "-":
		return runtime.NumberValue{Val: lf - rf}, nil
	case "*":
		return runtime.NumberValue{Val: lf * rf}, nil
	case "/":
		if rf == 0 {
			return nil, &ArgumentError{Callable: "operator " + n.Operator, Message: "division by zero"}
		}
		return runtime.NumberValue{Val: lf / rf}, nil
	case "%":
		if rf == 0 {
			return nil, &ArgumentError{Callable: "operator " + n.Operator, Message: "division by zero"}
		}
		return runtime.NumberValue{Val: math.Mod(lf, rf)}, nil
	}
	return nil, &InternalInvariantError{Message: "unknown arithmetic operator " + n.Operator}
}
