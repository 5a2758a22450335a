package interpreter

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"

	"ftl/interpreter-go/pkg/ast"
	"ftl/interpreter-go/pkg/driver"
	"ftl/interpreter-go/pkg/runtime"
	"ftl/interpreter-go/pkg/telemetry"
)

func TestInterpolationAndText(t *testing.T) {
	tmpl := ast.Tmpl("page",
		ast.Text("Hello, "),
		ast.Interp(ast.Dot(ast.ID("user"), "name")),
		ast.Text("! You have "),
		ast.Interp(ast.ID("count")),
		ast.Text(" messages. "),
		ast.Interp(ast.ID("admin")),
	)
	got := mustRender(t, New(), tmpl, map[string]any{
		"user":  map[string]any{"name": "Ada"},
		"count": 3,
		"admin": false,
	})
	if got != "Hello, Ada! You have 3 messages. false" {
		t.Fatalf("got %q", got)
	}
}

func TestInterpolatingMissingValueFails(t *testing.T) {
	_, err := renderString(t, New(), ast.Tmpl("page", ast.Interp(ast.ID("nope"))), nil)
	if !errors.Is(err, ErrUnboundReference) {
		t.Fatalf("expected ErrUnboundReference, got %v", err)
	}
	if !strings.Contains(err.Error(), "nope has evaluated to null or missing") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestInterpolatingHashFails(t *testing.T) {
	_, err := renderString(t, New(), ast.Tmpl("page", ast.Interp(ast.ID("h"))), map[string]any{"h": map[string]any{}})
	var mismatch *TypeMismatchError
	if !errors.As(err, &mismatch) || mismatch.Expected != "string or number" {
		t.Fatalf("expected a type mismatch, got %v", err)
	}
}

func TestDataModelMustBeHash(t *testing.T) {
	if _, err := renderString(t, New(), ast.Tmpl("page"), []string{"a"}); err == nil {
		t.Fatalf("expected a non-hash data model to be rejected")
	}
}

func TestLookupOrder(t *testing.T) {
	tmpl := ast.Tmpl("page",
		ast.Global("v", ast.Str("global")),
		ast.Interp(ast.ID("v")),
		ast.Assign("v", ast.Str("namespace")),
		ast.Interp(ast.ID("v")),
		ast.ListOf(ast.StrList("loop"), "v", ast.Interp(ast.ID("v"))),
		ast.Interp(ast.ID("v")),
	)
	got := mustRender(t, New(), tmpl, map[string]any{"v": "data"})
	if got != "globalnamespaceloopnamespace" {
		t.Fatalf("got %q", got)
	}
}

func TestListWithSeparatorAndLoopBuiltins(t *testing.T) {
	tmpl := ast.Tmpl("page",
		ast.ListOf(ast.ID("xs"), "x", ast.Seq(
			ast.Interp(ast.BI(ast.ID("x"), "counter")),
			ast.Text("="),
			ast.Interp(ast.ID("x")),
			ast.If(ast.BI(ast.ID("x"), "is_last"), ast.Text(".")),
			ast.Sep(ast.Text(", ")),
		)),
	)
	got := mustRender(t, New(), tmpl, map[string]any{"xs": []string{"a", "b", "c"}})
	if got != "1=a, 2=b, 3=c." {
		t.Fatalf("got %q", got)
	}
}

func TestListElseAndHashKeys(t *testing.T) {
	empty := ast.ListOf(ast.List(), "x", ast.Text("item"))
	empty.Else = ast.Text("empty")
	keys := ast.ListOf(ast.Hash(ast.Str("a"), ast.Num(1), ast.Str("b"), ast.Num(2)), "k", ast.Interp(ast.ID("k")))
	got := mustRender(t, New(), ast.Tmpl("page", empty, ast.Text("|"), keys), nil)
	if got != "empty|ab" {
		t.Fatalf("got %q", got)
	}
}

func TestListOfScalarFails(t *testing.T) {
	_, err := renderString(t, New(), ast.Tmpl("page", ast.ListOf(ast.Num(1), "x", ast.Text("x"))), nil)
	if !errors.Is(err, ErrNonSequence) {
		t.Fatalf("expected ErrNonSequence, got %v", err)
	}
}

func TestBreakLeavesInnermostList(t *testing.T) {
	inner := ast.ListOf(ast.StrList("1", "2", "3"), "n", ast.Seq(
		ast.If(ast.Cmp("==", ast.ID("n"), ast.Str("2")), ast.Break()),
		ast.Interp(ast.ID("n")),
	))
	tmpl := ast.Tmpl("page", ast.ListOf(ast.StrList("a", "b"), "x", ast.Seq(ast.Interp(ast.ID("x")), inner)))
	env, out := newTestEnvironment(t, New(), tmpl, nil)
	if err := env.Process(); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.String() != "a1b1" {
		t.Fatalf("got %q", out.String())
	}
	if env.ScopeDepth() != 0 || len(env.loops) != 0 || len(env.work) != 0 {
		t.Fatalf("state leaked: scopes=%d loops=%d frames=%d", env.ScopeDepth(), len(env.loops), len(env.work))
	}
}

func TestBreakOutsideListFails(t *testing.T) {
	_, err := renderString(t, New(), ast.Tmpl("page", ast.Break()), nil)
	if err == nil || !strings.Contains(err.Error(), "#break") {
		t.Fatalf("expected a #break error, got %v", err)
	}

	tmpl := ast.Tmpl("page",
		ast.Macro("escape", nil, ast.Break()),
		ast.ListOf(ast.StrList("a"), "x", ast.Invoke(ast.ID("escape"), nil, nil)),
	)
	_, err = renderString(t, New(), tmpl, nil)
	if err == nil || !strings.Contains(err.Error(), "#break") {
		t.Fatalf("#break must not cross a macro call, got %v", err)
	}
}

func TestLoopBuiltinOnNonLoopVariable(t *testing.T) {
	_, err := renderString(t, New(), ast.Tmpl("page", ast.Interp(ast.BI(ast.ID("x"), "index"))), map[string]any{"x": 1})
	var mismatch *TypeMismatchError
	if !errors.As(err, &mismatch) || mismatch.Expected != "loop variable" {
		t.Fatalf("expected loop variable mismatch, got %v", err)
	}
}

func TestMacroArguments(t *testing.T) {
	greet := ast.Macro("greet", []*ast.MacroParam{
		ast.Par("name"),
		ast.ParDefault("punct", ast.Add(ast.ID("name"), ast.Str("!"))),
	}, ast.Seq(ast.Text("hi "), ast.Interp(ast.ID("punct")), ast.Text(";")))
	tmpl := ast.Tmpl("page",
		greet,
		ast.Invoke(ast.ID("greet"), []*ast.NamedArg{ast.Arg("name", ast.Str("bob"))}, nil),
		ast.Invoke(ast.ID("greet"), []*ast.NamedArg{ast.Arg("name", ast.Str("amy")), ast.Arg("punct", ast.Str("?"))}, nil),
	)
	got := mustRender(t, New(), tmpl, nil)
	if got != "hi bob!;hi ?;" {
		t.Fatalf("got %q", got)
	}
}

func TestMacroCatchAll(t *testing.T) {
	def := ast.NewMacroDefinition("tag", []*ast.MacroParam{ast.Par("name")}, "attrs", ast.Seq(
		ast.Interp(ast.ID("name")),
		ast.ListOf(ast.ID("attrs"), "k", ast.Seq(ast.Text(" "), ast.Interp(ast.ID("k")), ast.Text("="), ast.Interp(ast.Key(ast.ID("attrs"), ast.ID("k"))))),
	), false)
	tmpl := ast.Tmpl("page", def, ast.Invoke(ast.ID("tag"), []*ast.NamedArg{
		ast.Arg("name", ast.Str("a")),
		ast.Arg("href", ast.Str("/x")),
		ast.Arg("rel", ast.Str("next")),
	}, nil))
	got := mustRender(t, New(), tmpl, nil)
	if got != "a href=/x rel=next" {
		t.Fatalf("got %q", got)
	}
}

func TestMacroArgumentErrors(t *testing.T) {
	def := ast.Macro("m", []*ast.MacroParam{ast.Par("a")}, ast.Interp(ast.ID("a")))

	_, err := renderString(t, New(), ast.Tmpl("page", def, ast.Invoke(ast.ID("m"), []*ast.NamedArg{
		ast.Arg("a", ast.Num(1)), ast.Arg("b", ast.Num(2)),
	}, nil)), nil)
	if !errors.Is(err, ErrArgument) {
		t.Fatalf("unknown argument: expected ErrArgument, got %v", err)
	}

	_, err = renderString(t, New(), ast.Tmpl("page", def, ast.Invoke(ast.ID("m"), nil, nil)), nil)
	if !errors.Is(err, ErrUnboundReference) || !strings.Contains(err.Error(), "requires parameter") {
		t.Fatalf("missing argument: expected unbound reference, got %v", err)
	}

	_, err = renderString(t, New(), ast.Tmpl("page", ast.Invoke(ast.ID("absent"), nil, nil)), nil)
	if !errors.Is(err, ErrUnboundReference) {
		t.Fatalf("absent macro: expected unbound reference, got %v", err)
	}

	_, err = renderString(t, New(), ast.Tmpl("page", ast.Invoke(ast.ID("s"), nil, nil)), map[string]any{"s": "x"})
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("non-macro callee: expected type mismatch, got %v", err)
	}
}

func TestMacroScopeStopsAtCallBoundary(t *testing.T) {
	tmpl := ast.Tmpl("page",
		ast.Macro("inner", nil, ast.Interp(ast.Default(ast.ID("p"), ast.Str("hidden")))),
		ast.Macro("outer", []*ast.MacroParam{ast.Par("p")}, ast.Seq(
			ast.Interp(ast.ID("p")),
			ast.Invoke(ast.ID("inner"), nil, nil),
		)),
		ast.Invoke(ast.ID("outer"), []*ast.NamedArg{ast.Arg("p", ast.Str("seen"))}, nil),
	)
	got := mustRender(t, New(), tmpl, nil)
	if got != "seenhidden" {
		t.Fatalf("got %q", got)
	}
}

func TestNestedBodyRunsInCallerScope(t *testing.T) {
	call := ast.NewUnifiedCall(ast.ID("twice"), nil, []string{"i"}, ast.Seq(
		ast.Interp(ast.ID("x")),
		ast.Interp(ast.ID("i")),
		ast.Interp(ast.Default(ast.ID("secret"), ast.Str("-"))),
	))
	tmpl := ast.Tmpl("page",
		ast.Macro("twice", nil, ast.Seq(
			ast.Local("secret", ast.Str("s")),
			ast.Text("["),
			ast.Nested(ast.Num(1)),
			ast.Nested(ast.Num(2)),
			ast.Text("]"),
		)),
		ast.ListOf(ast.StrList("p"), "x", call),
	)
	got := mustRender(t, New(), tmpl, nil)
	if got != "[p1-p2-]" {
		t.Fatalf("got %q", got)
	}
}

func TestNestedBodySeesCallerLoop(t *testing.T) {
	call := ast.Invoke(ast.ID("each"), nil, ast.Seq(ast.Interp(ast.ID("x")), ast.Sep(ast.Text(","))))
	tmpl := ast.Tmpl("page",
		ast.Macro("each", nil, ast.ListOf(ast.StrList("1", "2"), "i", ast.Nested())),
		ast.ListOf(ast.StrList("a", "b"), "x", call),
	)
	got := mustRender(t, New(), tmpl, nil)
	if got != "a,a,bb" {
		t.Fatalf("got %q, want a,a,bb", got)
	}
}

func TestNestedWithoutBodyIsNoop(t *testing.T) {
	tmpl := ast.Tmpl("page",
		ast.Macro("m", nil, ast.Seq(ast.Text("a"), ast.Nested(), ast.Text("b"))),
		ast.Invoke(ast.ID("m"), nil, nil),
		ast.Nested(),
	)
	if got := mustRender(t, New(), tmpl, nil); got != "ab" {
		t.Fatalf("got %q", got)
	}
}

func TestFunctionsAndReturn(t *testing.T) {
	tmpl := ast.Tmpl("page",
		ast.Function("double", []*ast.MacroParam{ast.Par("n")}, ast.Return(ast.Arith("*", ast.ID("n"), ast.Num(2)))),
		ast.Macro("early", nil, ast.Seq(ast.Text("a"), ast.Return(nil), ast.Text("b"))),
		ast.Interp(ast.Call(ast.ID("double"), ast.Num(21))),
		ast.Invoke(ast.ID("early"), nil, nil),
	)
	if got := mustRender(t, New(), tmpl, nil); got != "42a" {
		t.Fatalf("got %q", got)
	}
}

func TestFunctionWithoutReturnYieldsMissing(t *testing.T) {
	tmpl := ast.Tmpl("page",
		ast.Function("nothing", nil, ast.Global("touched", ast.Bool(true))),
		ast.Interp(ast.Default(ast.Call(ast.ID("nothing")), ast.Str("none"))),
		ast.Interp(ast.ID("touched")),
	)
	if got := mustRender(t, New(), tmpl, nil); got != "nonetrue" {
		t.Fatalf("got %q", got)
	}
}

func TestCallingMacroAsFunctionFails(t *testing.T) {
	tmpl := ast.Tmpl("page", ast.Macro("m", nil, ast.Text("x")), ast.Interp(ast.Call(ast.ID("m"))))
	_, err := renderString(t, New(), tmpl, nil)
	var mismatch *TypeMismatchError
	if !errors.As(err, &mismatch) || !strings.Contains(mismatch.Tip, "<@m/>") {
		t.Fatalf("expected a macro call tip, got %v", err)
	}
}

func TestTopLevelReturnStopsQuietly(t *testing.T) {
	tmpl := ast.Tmpl("page", ast.Text("a"), ast.Return(nil), ast.Text("b"))
	if got := mustRender(t, New(), tmpl, nil); got != "a" {
		t.Fatalf("got %q", got)
	}
}

func TestLocalAssignment(t *testing.T) {
	tmpl := ast.Tmpl("page",
		ast.Macro("m", nil, ast.Seq(
			ast.ListOf(ast.StrList("a", "b"), "x", ast.Local("last", ast.ID("x"))),
			ast.Interp(ast.ID("last")),
		)),
		ast.Invoke(ast.ID("m"), nil, nil),
		ast.Interp(ast.Default(ast.ID("last"), ast.Str("-"))),
	)
	if got := mustRender(t, New(), tmpl, nil); got != "b-" {
		t.Fatalf("got %q", got)
	}

	_, err := renderString(t, New(), ast.Tmpl("page", ast.Local("x", ast.Num(1))), nil)
	if !errors.Is(err, ErrUnboundReference) {
		t.Fatalf("#local outside a macro: got %v", err)
	}
}

func TestAssignmentOfMissingValueFails(t *testing.T) {
	_, err := renderString(t, New(), ast.Tmpl("page", ast.Assign("x", ast.ID("nope"))), nil)
	if !errors.Is(err, ErrUnboundReference) {
		t.Fatalf("got %v", err)
	}
}

func TestMacroAssignsIntoItsOwnNamespace(t *testing.T) {
	lib := ast.Tmpl("lib",
		ast.Assign("counter", ast.Num(1)),
		ast.Text("library output is discarded"),
		ast.Macro("bump", nil, ast.Assign("counter", ast.Add(ast.ID("counter"), ast.Num(1)))),
	)
	tmpl := ast.Tmpl("page",
		ast.Import("lib", "a"),
		ast.Invoke(ast.Dot(ast.ID("a"), "bump"), nil, nil),
		ast.Import("lib", "b"),
		ast.Interp(ast.Dot(ast.ID("b"), "counter")),
		ast.Interp(ast.Default(ast.ID("counter"), ast.Str("!"))),
	)
	metrics := telemetry.NewRenderMetrics("ftl", nil)
	interp := New(WithLoader(driver.NewMapLoader(lib)), WithMetrics(metrics))
	if got := mustRender(t, interp, tmpl, nil); got != "2!" {
		t.Fatalf("got %q", got)
	}
	if n := counterValue(t, metrics, "ftl_imports_total", "library", "lib"); n != 1 {
		t.Fatalf("library ran %v times", n)
	}
}

func TestImportLibIsMemoized(t *testing.T) {
	lib := ast.Tmpl("lib", ast.Assign("x", ast.Num(1)))
	env, _ := newTestEnvironment(t, newTestInterpreter(lib), ast.Tmpl("page"), nil)
	first, err := env.ImportLib("lib", "l")
	if err != nil {
		t.Fatalf("ImportLib: %v", err)
	}
	first.Put("x", runtime.NumberValue{Val: 7})
	second, err := env.ImportLib("lib", "")
	if err != nil {
		t.Fatalf("ImportLib: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same namespace")
	}
	if v, _ := second.Get("x"); v != (runtime.NumberValue{Val: 7}) {
		t.Fatalf("mutation not visible: %v", v)
	}
	if env.Lookup("l") != runtime.Value(first) {
		t.Fatalf("alias not bound")
	}
}

func TestImportCycleTerminates(t *testing.T) {
	a := ast.Tmpl("a", ast.Import("b", "b"), ast.Assign("name", ast.Str("A")))
	b := ast.Tmpl("b", ast.Import("a", "a"), ast.Assign("name", ast.Str("B")))
	tmpl := ast.Tmpl("page", ast.Import("a", "a"), ast.Interp(ast.Dot(ast.ID("a"), "b", "a", "name")))
	if got := mustRender(t, newTestInterpreter(a, b), tmpl, nil); got != "A" {
		t.Fatalf("got %q", got)
	}
}

func TestImportRunsOutsideImporterCall(t *testing.T) {
	lib := ast.Tmpl("lib", ast.Nested())
	tmpl := ast.Tmpl("page",
		ast.Macro("m", nil, ast.Import("lib", "l")),
		ast.Assign("count", ast.Num(0)),
		ast.Invoke(ast.ID("m"), nil, ast.Assign("count", ast.Num(99))),
		ast.Interp(ast.ID("count")),
	)
	if got := mustRender(t, newTestInterpreter(lib), tmpl, nil); got != "0" {
		t.Fatalf("library ran the caller body: got %q", got)
	}
}

func TestImportRunsOutsideImporterLoopAndVisit(t *testing.T) {
	lib := ast.Tmpl("lib",
		ast.Sep(ast.Assign("sepRan", ast.Bool(true))),
		ast.Assign("sawNode", ast.Has(ast.Special(ast.SpecialNode))),
	)
	inLoop := ast.Tmpl("loop",
		ast.ListOf(ast.StrList("a", "b"), "x", ast.Import("lib", "l")),
		ast.Interp(ast.Default(ast.Dot(ast.ID("l"), "sepRan"), ast.Str("no"))),
	)
	if got := mustRender(t, newTestInterpreter(lib), inLoop, nil); got != "no" {
		t.Fatalf("library saw the importer's loop: got %q", got)
	}

	inHandler := ast.Tmpl("visit",
		ast.Macro("item", nil, ast.Seq(ast.Import("lib", "l"), ast.Interp(ast.Dot(ast.ID("l"), "sawNode")))),
		ast.Recurse(ast.ID("doc"), nil),
	)
	got := mustRender(t, newTestInterpreter(lib), inHandler, map[string]any{"doc": itemDocument()})
	if got != "falsefalse" {
		t.Fatalf("library saw the importer's node: got %q", got)
	}
}

func TestImportErrors(t *testing.T) {
	_, err := renderString(t, New(), ast.Tmpl("page", ast.Import("absent", "x")), nil)
	if !errors.Is(err, ErrImport) || !errors.Is(err, driver.ErrTemplateNotFound) {
		t.Fatalf("expected import failure wrapping not found, got %v", err)
	}

	broken := ast.Tmpl("broken", ast.Interp(ast.ID("nope")))
	_, err = renderString(t, newTestInterpreter(broken), ast.Tmpl("page", ast.Import("broken", "x")), nil)
	var tmplErr *TemplateError
	if !errors.As(err, &tmplErr) || tmplErr.Template != "broken" || !errors.Is(err, ErrUnboundReference) {
		t.Fatalf("expected the failure located in the library, got %v", err)
	}
}

func TestIncludeSharesNamespace(t *testing.T) {
	inc := ast.Tmpl("inc",
		ast.Text("["),
		ast.Interp(ast.ID("x")),
		ast.Assign("y", ast.Str("set by include")),
		ast.Text("]"),
	)
	tmpl := ast.Tmpl("page",
		ast.Assign("x", ast.Str("1")),
		ast.Include("inc"),
		ast.Interp(ast.ID("y")),
	)
	if got := mustRender(t, newTestInterpreter(inc), tmpl, nil); got != "[1]set by include" {
		t.Fatalf("got %q", got)
	}

	_, err := renderString(t, New(), ast.Tmpl("page", ast.Include("absent")), nil)
	var importErr *ImportError
	if !errors.As(err, &importErr) || !importErr.Include {
		t.Fatalf("expected include error, got %v", err)
	}
}

func TestStopKeepsPartialOutput(t *testing.T) {
	tmpl := ast.Tmpl("page", ast.Text("before"), ast.Stop(ast.Str("enough")), ast.Text("after"))
	out, err := renderString(t, New(), tmpl, nil)
	if !errors.Is(err, ErrStop) || !strings.Contains(err.Error(), "stopped: enough") {
		t.Fatalf("expected stop, got %v", err)
	}
	if out != "before" {
		t.Fatalf("got %q", out)
	}
}

func TestFailedMacroRestoresEnvironment(t *testing.T) {
	lib := ast.Tmpl("lib", ast.Macro("boom", []*ast.MacroParam{ast.Par("a")}, ast.ListOf(ast.StrList("x"), "x",
		ast.Seq(ast.Text("!"), ast.Interp(ast.ID("nope"))),
	)))
	tmpl := ast.Tmpl("page", ast.Import("lib", "l"), ast.Invoke(ast.Dot(ast.ID("l"), "boom"), []*ast.NamedArg{ast.Arg("a", ast.Num(1))}, nil))
	env, out := newTestEnvironment(t, newTestInterpreter(lib), tmpl, nil)
	if err := env.Process(); !errors.Is(err, ErrUnboundReference) {
		t.Fatalf("expected ErrUnboundReference, got %v", err)
	}
	if out.String() != "!" {
		t.Fatalf("got %q", out.String())
	}
	if env.ScopeDepth() != 0 || len(env.macros) != 0 || len(env.loops) != 0 || len(env.work) != 0 {
		t.Fatalf("state leaked: scopes=%d macros=%d loops=%d frames=%d",
			env.ScopeDepth(), len(env.macros), len(env.loops), len(env.work))
	}
	if env.CurrentNamespace() != env.MainNamespace() {
		t.Fatalf("namespace not restored")
	}
}

func TestEnvironmentProcessesOnce(t *testing.T) {
	env, _ := newTestEnvironment(t, New(), ast.Tmpl("page"), nil)
	if err := env.Process(); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := env.Process(); err == nil {
		t.Fatalf("expected second Process to fail")
	}
	if env.RenderID() == "" {
		t.Fatalf("missing render id")
	}
}

func TestPopScopeUnderflowIsInvariant(t *testing.T) {
	env, _ := newTestEnvironment(t, New(), ast.Tmpl("page"), nil)
	err := env.runHostStep(step{resume: func() (step, error) {
		env.PopScope()
		return step{}, nil
	}})
	if !errors.Is(err, ErrInternalInvariant) {
		t.Fatalf("expected ErrInternalInvariant, got %v", err)
	}
}

func TestSpecialVariables(t *testing.T) {
	lib := ast.Tmpl("lib", ast.Macro("who", nil, ast.Seq(
		ast.Interp(ast.Special(ast.SpecialCurrentTemplateName)),
		ast.Text(" "),
		ast.Interp(ast.Dot(ast.Special(ast.SpecialMain), "title")),
		ast.Text(" "),
		ast.Interp(ast.Dot(ast.Special(ast.SpecialDataModel), "title")),
		ast.Text(" "),
		ast.Interp(ast.Dot(ast.Special(ast.SpecialGlobals), "g")),
	)))
	tmpl := ast.Tmpl("page",
		ast.Import("lib", "l"),
		ast.Assign("title", ast.Str("main")),
		ast.Global("g", ast.Str("glob")),
		ast.Invoke(ast.Dot(ast.ID("l"), "who"), nil, nil),
	)
	got := mustRender(t, newTestInterpreter(lib), tmpl, map[string]any{"title": "data"})
	if got != "lib main data glob" {
		t.Fatalf("got %q", got)
	}
	_, err := renderString(t, New(), ast.Tmpl("page", ast.Interp(ast.Special("bogus"))), nil)
	if !errors.Is(err, ErrUnboundReference) {
		t.Fatalf("got %v", err)
	}
}

func TestLargeListDoesNotGrowStack(t *testing.T) {
	items := make([]int, 100000)
	tmpl := ast.Tmpl("page", ast.ListOf(ast.ID("items"), "x", ast.Text(".")))
	got := mustRender(t, New(), tmpl, map[string]any{"items": items})
	if len(got) != len(items) {
		t.Fatalf("rendered %d items", len(got))
	}
}

func TestDeepDocumentRecursion(t *testing.T) {
	const depth = 20000
	root := runtime.NewElement("n")
	cur := root
	for i := 1; i < depth; i++ {
		child := runtime.NewElement("n")
		cur.AppendChild(child)
		cur = child
	}
	tmpl := ast.Tmpl("page",
		ast.Macro("n", nil, ast.Seq(ast.Text("."), ast.Recurse(nil, nil))),
		ast.Visit(ast.ID("doc"), nil),
	)
	got := mustRender(t, New(), tmpl, map[string]any{"doc": root})
	if len(got) != depth {
		t.Fatalf("visited %d levels", len(got))
	}
}

func TestRenderNamed(t *testing.T) {
	interp := newTestInterpreter(ast.Tmpl("hello", ast.Text("hi "), ast.Interp(ast.ID("name"))))
	var out strings.Builder
	if err := interp.RenderNamed(&out, "hello", map[string]any{"name": "x"}); err != nil {
		t.Fatalf("RenderNamed: %v", err)
	}
	if out.String() != "hi x" {
		t.Fatalf("got %q", out.String())
	}
	if err := interp.RenderNamed(&out, "absent", nil); !errors.Is(err, driver.ErrTemplateNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestParseFallbackPolicy(t *testing.T) {
	for in, want := range map[string]FallbackPolicy{"": FallbackStrict, "strict": FallbackStrict, "text": FallbackText, "skip": FallbackSkip} {
		got, err := ParseFallbackPolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParseFallbackPolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFallbackPolicy("loud"); err == nil {
		t.Fatalf("expected an error for an unknown policy")
	}
}

func TestRenderMetricsAndLogging(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	metrics := telemetry.NewRenderMetrics("ftl", nil)
	interp := New(WithLogger(logger), WithMetrics(metrics), WithFallbackPolicy(FallbackText))

	mustRender(t, interp, ast.Tmpl("ok", ast.Recurse(ast.ID("doc"), nil)), map[string]any{"doc": itemDocument()})
	renderString(t, interp, ast.Tmpl("bad", ast.Interp(ast.ID("nope"))), nil)
	renderString(t, interp, ast.Tmpl("halt", ast.Stop(nil)), nil)

	if n := counterValue(t, metrics, "ftl_renders_total", "template", "ok"); n != 1 {
		t.Fatalf("ok renders = %v", n)
	}
	if n := counterValue(t, metrics, "ftl_renders_total", "outcome", telemetry.OutcomeError); n != 1 {
		t.Fatalf("error renders = %v", n)
	}
	if n := counterValue(t, metrics, "ftl_renders_total", "outcome", telemetry.OutcomeStopped); n != 1 {
		t.Fatalf("stopped renders = %v", n)
	}
	// root's two item children plus their text nodes
	if n := counterValue(t, metrics, "ftl_node_handlers_total", "handler", telemetry.FallbackHandler); n != 4 {
		t.Fatalf("fallback dispatches = %v", n)
	}
	if !strings.Contains(logs.String(), `"render_id"`) || !strings.Contains(logs.String(), "render failed") {
		t.Fatalf("unexpected log output: %s", logs.String())
	}
}

// counterValue sums the counters of family whose label has the given value.
func counterValue(t *testing.T, m *telemetry.RenderMetrics, family, label, value string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != family {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if hasLabel(metric, label, value) {
				total += metric.GetCounter().GetValue()
			}
		}
	}
	return total
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}
