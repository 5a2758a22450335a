package interpreter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ftl/interpreter-go/pkg/ast"
	"ftl/interpreter-go/pkg/runtime"
	"ftl/interpreter-go/pkg/telemetry"
)

// Environment is the state of a single render. It must not be shared between
// goroutines.
type Environment struct {
	interp   *Interpreter
	out      io.Writer
	renderID string
	logger   *slog.Logger

	template   *ast.Template
	dataModel  runtime.Hash
	globals    *runtime.SimpleHash
	mainNS     *runtime.Namespace
	currentNS  *runtime.Namespace
	namespaces map[string]*runtime.Namespace

	scope     *runtime.Scope
	rootNode  runtime.Node
	recursion []*recursionFrame
	macros    []*macroContext
	loops     []*loopContext

	work      []*frame
	processed bool
}

type recursionFrame struct {
	node       runtime.Node
	namespaces namespaceList
	// index of the namespace whose handler is running; -1 when no handler matched
	index int
}

type macroContext struct {
	macro       *runtime.MacroValue
	body        ast.Instruction
	loopVars    []string
	callerScope *runtime.Scope
	callerNS    *runtime.Namespace
	callerDepth int
	callerLoops int
}

type loopContext struct {
	variable string
	index    int
	size     int
}

func (l *loopContext) hasNext() bool { return l.index+1 < l.size }

// NewEnvironment prepares a render of tmpl without running it.
func (i *Interpreter) NewEnvironment(out io.Writer, tmpl *ast.Template, data any) (*Environment, error) {
	if tmpl == nil {
		return nil, errors.New("interpreter: nil template")
	}
	if out == nil {
		out = io.Discard
	}
	model, err := wrapDataModel(data)
	if err != nil {
		return nil, err
	}
	i.register(tmpl)
	main := runtime.NewNamespace(tmpl.Name)
	id := uuid.NewString()
	return &Environment{
		interp:     i,
		out:        out,
		renderID:   id,
		logger:     i.logger.With("render_id", id),
		template:   tmpl,
		dataModel:  model,
		globals:    runtime.NewSimpleHash(),
		mainNS:     main,
		currentNS:  main,
		namespaces: map[string]*runtime.Namespace{tmpl.Name: main},
	}, nil
}

func (env *Environment) RenderID() string               { return env.renderID }
func (env *Environment) MainNamespace() *runtime.Namespace    { return env.mainNS }
func (env *Environment) CurrentNamespace() *runtime.Namespace { return env.currentNS }
func (env *Environment) Globals() *runtime.SimpleHash        { return env.globals }

// SetCurrentNode sets the node #recurse falls back to when no handler is
// running and no target is given.
func (env *Environment) SetCurrentNode(node runtime.Node) {
	env.rootNode = node
}

// CurrentNode is the node whose handler is running, or the node set with
// SetCurrentNode at top level.
func (env *Environment) CurrentNode() runtime.Node {
	if n := len(env.recursion); n > 0 {
		return env.recursion[n-1].node
	}
	return env.rootNode
}

// RecursionDepth is the number of nested node visits in progress.
func (env *Environment) RecursionDepth() int { return len(env.recursion) }

// ScopeDepth counts the local scopes currently in effect.
func (env *Environment) ScopeDepth() int {
	depth := 0
	for s := env.scope; s != nil; s = s.Parent() {
		depth++
	}
	return depth
}

func (env *Environment) PushScope() {
	env.scope = runtime.NewScope(env.scope)
}

func (env *Environment) PopScope() {
	if env.scope == nil {
		panic(&InternalInvariantError{Message: "scope stack underflow"})
	}
	env.scope = env.scope.Parent()
}

// Process runs the template. It may be called once.
func (env *Environment) Process() (err error) {
	if env.processed {
		return errors.New("interpreter: environment already processed")
	}
	env.processed = true
	name := env.template.Name
	start := time.Now()
	env.logger.Debug("render started", "template", name)
	defer func() {
		recoverInvariant(&err)
		elapsed := time.Since(start)
		outcome := telemetry.OutcomeSuccess
		switch {
		case errors.Is(err, ErrStop):
			outcome = telemetry.OutcomeStopped
		case err != nil:
			outcome = telemetry.OutcomeError
		}
		env.interp.metrics.RecordRender(name, outcome, elapsed)
		if err != nil {
			env.logger.Debug("render failed", "template", name, "outcome", outcome, "duration", elapsed, "error", err)
			return
		}
		env.logger.Debug("render finished", "template", name, "duration", elapsed)
	}()
	env.hoistMacros(env.template, env.mainNS)
	return env.execute(env.template.Root)
}

// Execute runs a single instruction against the current state of the
// environment. Hosts use it to drive renders piecewise.
func (env *Environment) Execute(inst ast.Instruction) (err error) {
	defer recoverInvariant(&err)
	return env.execute(inst)
}

func (env *Environment) runHostStep(st step) (err error) {
	defer recoverInvariant(&err)
	return env.execStep(nil, st)
}

// recoverInvariant turns an internal invariant panic back into an error.
// Any other panic is re-raised.
func recoverInvariant(err *error) {
	if r := recover(); r != nil {
		invariant, ok := r.(*InternalInvariantError)
		if !ok {
			panic(r)
		}
		*err = invariant
	}
}

// Lookup resolves name through the local scopes (up to the enclosing macro
// boundary), the current namespace, the globals and the data model. An unbound
// name yields runtime.Missing.
func (env *Environment) Lookup(name string) runtime.Value {
	val, err := env.lookup(name)
	if err != nil {
		env.logger.Debug("data model lookup failed", "name", name, "error", err)
		return runtime.Missing
	}
	return val
}

func (env *Environment) lookup(name string) (runtime.Value, error) {
	if env.scope != nil {
		if val, ok := env.scope.Get(name); ok {
			return val, nil
		}
	}
	if val, _ := env.currentNS.Get(name); val != nil {
		return val, nil
	}
	if val, _ := env.globals.Get(name); val != nil {
		return val, nil
	}
	val, err := env.dataModel.Get(name)
	if err != nil {
		return nil, err
	}
	if val == nil {
		return runtime.Missing, nil
	}
	return val, nil
}

func (env *Environment) templateName() string {
	if env.currentNS != nil {
		return env.currentNS.TemplateName()
	}
	return env.template.Name
}

func (env *Environment) write(s string) error {
	if s == "" {
		return nil
	}
	_, err := io.WriteString(env.out, s)
	return err
}

func (env *Environment) hoistMacros(tmpl *ast.Template, ns *runtime.Namespace) {
	for _, def := range tmpl.Macros {
		ns.DefineMacro(&runtime.MacroValue{Definition: def})
	}
}

// ImportLib loads the library name into its own namespace and returns it. The
// library runs once per environment with its output discarded; later imports
// of the same name return the same namespace. A non-empty alias binds the
// namespace in the current namespace.
func (env *Environment) ImportLib(name, alias string) (*runtime.Namespace, error) {
	ns, ok := env.namespaces[name]
	if !ok {
		tmpl, err := env.interp.resolve(name)
		if err != nil {
			return nil, &ImportError{Name: name, Err: err}
		}
		ns = runtime.NewNamespace(name)
		env.namespaces[name] = ns
		env.hoistMacros(tmpl, ns)
		env.logger.Debug("importing library", "library", name)
		env.interp.metrics.RecordImport(name)

		// The library runs outside any call, loop or node visit of the importer.
		savedNS, savedOut, savedScope := env.currentNS, env.out, env.scope
		savedMacros, savedLoops, savedRecursion := env.macros, env.loops, env.recursion
		env.currentNS, env.out, env.scope = ns, io.Discard, nil
		env.macros, env.loops, env.recursion = nil, nil, nil
		err = env.execute(tmpl.Root)
		env.currentNS, env.out, env.scope = savedNS, savedOut, savedScope
		env.macros, env.loops, env.recursion = savedMacros, savedLoops, savedRecursion
		if err != nil {
			return nil, err
		}
	}
	if alias != "" {
		env.currentNS.Put(alias, ns)
	}
	return ns, nil
}

// Include runs the named template in the current namespace, writing its output.
func (env *Environment) Include(name string) error {
	st, err := env.includeStep(name)
	if err != nil {
		return err
	}
	return env.execStep(nil, st)
}

func (env *Environment) includeStep(name string) (step, error) {
	tmpl, err := env.interp.resolve(name)
	if err != nil {
		return step{}, &ImportError{Name: name, Include: true, Err: err}
	}
	env.hoistMacros(tmpl, env.currentNS)
	return step{children: tasks(tmpl.Root)}, nil
}

func (env *Environment) pushRecursion(rf *recursionFrame) {
	env.recursion = append(env.recursion, rf)
}

func (env *Environment) popRecursion() {
	n := len(env.recursion)
	if n == 0 {
		panic(&InternalInvariantError{Message: "recursion stack underflow"})
	}
	env.recursion[n-1] = nil
	env.recursion = env.recursion[:n-1]
}

func (env *Environment) currentRecursion() *recursionFrame {
	if n := len(env.recursion); n > 0 {
		return env.recursion[n-1]
	}
	return nil
}

func (env *Environment) currentMacro() *macroContext {
	if n := len(env.macros); n > 0 {
		return env.macros[n-1]
	}
	return nil
}

func (env *Environment) findLoop(variable string) *loopContext {
	for idx := len(env.loops) - 1; idx >= 0; idx-- {
		if env.loops[idx].variable == variable {
			return env.loops[idx]
		}
	}
	return nil
}

func (env *Environment) currentLoop() *loopContext {
	if n := len(env.loops); n > 0 {
		return env.loops[n-1]
	}
	return nil
}

func (env *Environment) special(expr *ast.SpecialVariable) (runtime.Value, error) {
	switch expr.Name {
	case ast.SpecialNode:
		if node := env.CurrentNode(); node != nil {
			return node, nil
		}
		return runtime.Missing, nil
	case ast.SpecialNamespace:
		return env.currentNS, nil
	case ast.SpecialMain:
		return env.mainNS, nil
	case ast.SpecialGlobals:
		return env.globals, nil
	case ast.SpecialDataModel:
		return env.dataModel, nil
	case ast.SpecialCurrentTemplateName:
		return runtime.StringValue{Val: env.templateName()}, nil
	}
	return nil, &UnboundReferenceError{Name: "." + expr.Name, Expression: expr, Reason: "unknown special variable"}
}

func (env *Environment) String() string {
	return fmt.Sprintf("Environment(%s, render %s)", env.template.Name, env.renderID)
}
