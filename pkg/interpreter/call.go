package interpreter

import (
	"fmt"

	"ftl/interpreter-go/pkg/ast"
	"ftl/interpreter-go/pkg/runtime"
)

type namedValue struct {
	name  string
	value runtime.Value
}

// callArgs are evaluated in the caller's environment before the callee's
// scope is entered.
type callArgs struct {
	named      []namedValue
	positional []runtime.Value
}

func (env *Environment) acceptUnifiedCall(n *ast.UnifiedCall) (step, error) {
	callee, err := env.eval(n.Callee)
	if err != nil {
		return step{}, err
	}
	if runtime.IsMissing(callee) {
		return step{}, &UnboundReferenceError{Name: ast.CanonicalForm(n.Callee), Expression: n.Callee}
	}
	macro, ok := callee.(*runtime.MacroValue)
	if !ok || macro.IsFunction() {
		return step{}, newTypeMismatch(ErrTypeMismatch, n.Callee, callee, "macro")
	}
	var args callArgs
	for _, arg := range n.Args {
		val, err := env.eval(arg.Value)
		if err != nil {
			return step{}, err
		}
		if runtime.IsMissing(val) {
			return step{}, &UnboundReferenceError{Name: ast.CanonicalForm(arg.Value), Expression: arg.Value}
		}
		args.named = append(args.named, namedValue{name: arg.Name, value: val})
	}
	return env.enterMacro(macro, args, n.Body, n.LoopVars)
}

// enterMacro switches to the macro's namespace and a fresh boundary scope,
// binds the arguments and returns the step running the body. The returned
// cleanup restores the caller's state.
func (env *Environment) enterMacro(macro *runtime.MacroValue, args callArgs, body ast.Instruction, loopVars []string) (step, error) {
	def := macro.Definition
	savedScope, savedNS := env.scope, env.currentNS
	ctx := &macroContext{
		macro:       macro,
		body:        body,
		loopVars:    loopVars,
		callerScope: savedScope,
		callerNS:    savedNS,
		callerDepth: len(env.macros),
		callerLoops: len(env.loops),
	}
	env.scope = runtime.NewBoundaryScope(savedScope)
	if macro.Namespace != nil {
		env.currentNS = macro.Namespace
	}
	env.macros = append(env.macros, ctx)
	restore := func() {
		env.macros = env.macros[:ctx.callerDepth]
		env.scope, env.currentNS = savedScope, savedNS
	}
	if err := env.bindArgs(def, args); err != nil {
		restore()
		return step{}, err
	}
	return step{
		children: tasks(def.Body),
		cleanup:  restore,
		onReturn: func(runtime.Value) {},
	}, nil
}

func (env *Environment) bindArgs(def *ast.MacroDefinition, args callArgs) error {
	kind := "macro"
	if def.IsFunction {
		kind = "function"
	}
	callable := kind + " " + def.Name
	bound := make(map[string]runtime.Value, len(def.Params))
	var extraNamed *runtime.SimpleHash
	var extraPositional *runtime.SimpleSequence

	if len(args.positional) > len(def.Params) && def.CatchAll == "" {
		return &ArgumentError{Callable: callable, Message: fmt.Sprintf("expects at most %d arguments, got %d", len(def.Params), len(args.positional))}
	}
	for idx, val := range args.positional {
		if idx < len(def.Params) {
			bound[def.Params[idx].Name] = val
			continue
		}
		if extraPositional == nil {
			extraPositional = runtime.NewSimpleSequence()
		}
		extraPositional.Add(val)
	}
	for _, arg := range args.named {
		if hasParam(def, arg.name) {
			bound[arg.name] = arg.value
			continue
		}
		if def.CatchAll == "" {
			return &ArgumentError{Callable: callable, Message: fmt.Sprintf("has no parameter named %q", arg.name)}
		}
		if extraNamed == nil {
			extraNamed = runtime.NewSimpleHash()
		}
		extraNamed.Put(arg.name, arg.value)
	}

	// Defaults are evaluated in order inside the callee, so they may refer to
	// earlier parameters.
	for _, param := range def.Params {
		if val, ok := bound[param.Name]; ok {
			env.scope.Define(param.Name, val)
			continue
		}
		if param.Default == nil {
			return &UnboundReferenceError{Name: param.Name, Reason: fmt.Sprintf("%s requires parameter", callable)}
		}
		val, err := env.eval(param.Default)
		if err != nil {
			return err
		}
		if runtime.IsMissing(val) {
			return &UnboundReferenceError{Name: ast.CanonicalForm(param.Default), Expression: param.Default}
		}
		env.scope.Define(param.Name, val)
	}
	if def.CatchAll != "" {
		switch {
		case extraPositional != nil:
			env.scope.Define(def.CatchAll, extraPositional)
		case extraNamed != nil:
			env.scope.Define(def.CatchAll, extraNamed)
		case def.IsFunction:
			env.scope.Define(def.CatchAll, runtime.NewSimpleSequence())
		default:
			env.scope.Define(def.CatchAll, runtime.NewSimpleHash())
		}
	}
	return nil
}

func hasParam(def *ast.MacroDefinition, name string) bool {
	for _, p := range def.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

// acceptNested runs the body the current macro was called with, in the
// caller's scope and namespace and with the caller's loops.
func (env *Environment) acceptNested(n *ast.NestedInstruction) (step, error) {
	ctx := env.currentMacro()
	if ctx == nil || ctx.body == nil {
		return step{}, nil
	}
	values := make([]runtime.Value, 0, len(n.Values))
	for _, expr := range n.Values {
		val, err := env.eval(expr)
		if err != nil {
			return step{}, err
		}
		values = append(values, val)
	}
	savedScope, savedNS, savedMacros, savedLoops := env.scope, env.currentNS, env.macros, env.loops
	env.scope = runtime.NewScope(ctx.callerScope)
	env.currentNS = ctx.callerNS
	env.macros = env.macros[:ctx.callerDepth:ctx.callerDepth]
	env.loops = env.loops[:ctx.callerLoops:ctx.callerLoops]
	for idx, name := range ctx.loopVars {
		if idx < len(values) {
			env.scope.Define(name, values[idx])
		} else {
			env.scope.Define(name, runtime.Missing)
		}
	}
	return step{
		children: tasks(ctx.body),
		cleanup: func() {
			env.scope, env.currentNS, env.macros, env.loops = savedScope, savedNS, savedMacros, savedLoops
		},
	}, nil
}

// callFunction runs a #function body to completion and returns the value of
// its #return, or Missing when it ends without one.
func (env *Environment) callFunction(fn *runtime.MacroValue, args []runtime.Value) (runtime.Value, error) {
	st, err := env.enterMacro(fn, callArgs{positional: args}, nil, nil)
	if err != nil {
		return nil, err
	}
	var result runtime.Value = runtime.Missing
	st.onReturn = func(v runtime.Value) { result = v }
	if err := env.execStep(fn.Definition, st); err != nil {
		return nil, err
	}
	return result, nil
}
