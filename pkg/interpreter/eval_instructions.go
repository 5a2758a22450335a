package interpreter

import (
	"fmt"

	"ftl/interpreter-go/pkg/ast"
	"ftl/interpreter-go/pkg/runtime"
)

func (env *Environment) accept(inst ast.Instruction) (step, error) {
	switch n := inst.(type) {
	case *ast.TextBlock:
		return step{}, env.write(n.Text)
	case *ast.Interpolation:
		return step{}, env.acceptInterpolation(n)
	case *ast.MixedContent:
		return step{children: tasks(n.Children...)}, nil
	case *ast.IfBlock:
		return env.acceptIf(n)
	case *ast.ConditionalBlock:
		return env.acceptIf(ast.NewIfBlock([]*ast.ConditionalBlock{n}))
	case *ast.ListBlock:
		return env.acceptList(n)
	case *ast.SepBlock:
		if loop := env.currentLoop(); loop != nil && loop.hasNext() {
			return step{children: tasks(n.Body)}, nil
		}
		return step{}, nil
	case *ast.BreakInstruction:
		return step{}, breakSignal{node: n}
	case *ast.Assignment:
		return step{}, env.acceptAssignment(n)
	case *ast.MacroDefinition:
		if !env.definedHere(n) {
			env.currentNS.DefineMacro(&runtime.MacroValue{Definition: n})
		}
		return step{}, nil
	case *ast.UnifiedCall:
		return env.acceptUnifiedCall(n)
	case *ast.NestedInstruction:
		return env.acceptNested(n)
	case *ast.ReturnInstruction:
		return env.acceptReturn(n)
	case *ast.ImportInstruction:
		name, err := env.evalString(n.TemplateName)
		if err != nil {
			return step{}, err
		}
		_, err = env.ImportLib(name, n.Namespace)
		return step{}, err
	case *ast.IncludeInstruction:
		name, err := env.evalString(n.TemplateName)
		if err != nil {
			return step{}, err
		}
		return env.includeStep(name)
	case *ast.RecurseNode:
		return env.acceptRecurse(n)
	case *ast.VisitNode:
		return env.acceptVisit(n)
	case *ast.FallbackInstruction:
		return env.acceptFallback(n)
	case *ast.StopInstruction:
		return env.acceptStop(n)
	case nil:
		return step{}, nil
	}
	return step{}, &InternalInvariantError{Message: fmt.Sprintf("unsupported instruction %T", inst)}
}

// definedHere reports whether the current namespace already binds n itself,
// so re-executing a hoisted definition keeps the existing closure.
func (env *Environment) definedHere(n *ast.MacroDefinition) bool {
	m, ok := env.currentNS.Macro(n.Name)
	return ok && m.Definition == n
}

func (env *Environment) acceptInterpolation(n *ast.Interpolation) error {
	val, err := env.eval(n.Expression)
	if err != nil {
		return err
	}
	if runtime.IsMissing(val) {
		return &UnboundReferenceError{Name: ast.CanonicalForm(n.Expression), Expression: n.Expression}
	}
	s, err := env.displayString(n.Expression, val)
	if err != nil {
		return err
	}
	return env.write(s)
}

// displayString is the text an interpolation prints for val.
func (env *Environment) displayString(expr ast.Expression, val runtime.Value) (string, error) {
	switch v := val.(type) {
	case runtime.Number:
		f, err := v.AsNumber()
		if err != nil {
			return "", err
		}
		return runtime.FormatNumber(f), nil
	case runtime.Scalar:
		return v.AsString()
	case runtime.Boolean:
		b, err := v.AsBool()
		if err != nil {
			return "", err
		}
		if b {
			return "true", nil
		}
		return "false", nil
	}
	mismatch := newTypeMismatch(ErrTypeMismatch, expr, val, "string or number")
	return "", mismatch
}

func (env *Environment) acceptIf(n *ast.IfBlock) (step, error) {
	for _, branch := range n.Branches {
		if branch == nil {
			continue
		}
		if branch.Kind == ast.ConditionalElse || branch.Condition == nil {
			return step{children: tasks(branch.Body)}, nil
		}
		ok, err := env.evalBool(branch.Condition)
		if err != nil {
			return step{}, err
		}
		if ok {
			return step{children: tasks(branch.Body)}, nil
		}
	}
	return step{}, nil
}

func (env *Environment) acceptList(n *ast.ListBlock) (step, error) {
	source, err := env.eval(n.Source)
	if err != nil {
		return step{}, err
	}
	if runtime.IsMissing(source) {
		return step{}, &UnboundReferenceError{Name: ast.CanonicalForm(n.Source), Expression: n.Source}
	}
	var (
		items runtime.Sequence
		size  int
	)
	switch src := source.(type) {
	case runtime.Sequence:
		items = src
		size, err = src.Size()
	case runtime.HashEx:
		var keys []string
		keys, err = src.Keys()
		seq := runtime.NewSimpleSequence()
		for _, k := range keys {
			seq.Add(runtime.StringValue{Val: k})
		}
		items, size = seq, len(keys)
	default:
		mismatch := newTypeMismatch(ErrNonSequence, n.Source, source, "sequence or extended hash")
		return step{}, mismatch
	}
	if err != nil {
		return step{}, err
	}
	if size == 0 {
		return step{children: tasks(n.Else)}, nil
	}
	if n.Body == nil {
		return step{}, nil
	}

	loop := &loopContext{variable: n.LoopVariable, index: -1, size: size}
	var iterate func() (step, error)
	iterate = func() (step, error) {
		loop.index++
		if loop.index >= loop.size {
			return step{}, nil
		}
		item, err := items.At(loop.index)
		if err != nil {
			return step{}, err
		}
		if item == nil {
			item = runtime.Missing
		}
		env.PushScope()
		env.scope.Define(n.LoopVariable, item)
		env.loops = append(env.loops, loop)
		return step{
			children: tasks(n.Body),
			resume:   iterate,
			cleanup: func() {
				env.loops = env.loops[:len(env.loops)-1]
				env.PopScope()
			},
		}, nil
	}
	first, err := iterate()
	if err != nil {
		return step{}, err
	}
	first.breakable = true
	return first, nil
}

func (env *Environment) acceptAssignment(n *ast.Assignment) error {
	val, err := env.eval(n.Value)
	if err != nil {
		return err
	}
	if runtime.IsMissing(val) {
		return &UnboundReferenceError{Name: ast.CanonicalForm(n.Value), Expression: n.Value}
	}
	switch n.Scope {
	case ast.ScopeGlobal:
		env.globals.Put(n.Name, val)
	case ast.ScopeLocal:
		var target *runtime.Scope
		if env.scope != nil {
			target = env.scope.Enclosing()
		}
		if target == nil || env.currentMacro() == nil {
			return &UnboundReferenceError{Name: n.Name, Reason: "#local used outside of a macro or function"}
		}
		target.Define(n.Name, val)
	default:
		env.currentNS.Put(n.Name, val)
	}
	return nil
}

func (env *Environment) acceptStop(n *ast.StopInstruction) (step, error) {
	if n.Message == nil {
		return step{}, &StopError{}
	}
	msg, err := env.evalString(n.Message)
	if err != nil {
		return step{}, err
	}
	return step{}, &StopError{Message: msg}
}

func (env *Environment) acceptReturn(n *ast.ReturnInstruction) (step, error) {
	var val runtime.Value = runtime.Missing
	if n.Value != nil {
		v, err := env.eval(n.Value)
		if err != nil {
			return step{}, err
		}
		val = v
	}
	return step{}, returnSignal{value: val}
}
