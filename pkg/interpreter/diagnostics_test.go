package interpreter

import (
	"errors"
	"strings"
	"testing"

	"ftl/interpreter-go/pkg/ast"
	"ftl/interpreter-go/pkg/driver"
)

func failingMacroTemplate() *ast.Template {
	body := ast.WithSpan(ast.Interp(ast.WithSpan(ast.ID("missing"), ast.At(3, 5, 7))), ast.At(3, 3, 11))
	return ast.Tmpl("page",
		ast.WithSpan(ast.Macro("inner", nil, body), ast.At(2, 1, 20)),
		ast.WithSpan(ast.Invoke(ast.ID("inner"), nil, nil), ast.At(5, 1, 10)),
	)
}

func TestTemplateErrorLocationAndStack(t *testing.T) {
	_, err := renderString(t, New(), failingMacroTemplate(), nil)
	var tmplErr *TemplateError
	if !errors.As(err, &tmplErr) {
		t.Fatalf("expected *TemplateError, got %v", err)
	}
	if tmplErr.Template != "page" || tmplErr.Location.Line != 3 || tmplErr.Location.Column != 5 {
		t.Fatalf("unexpected location %+v", tmplErr.Location)
	}
	if got := tmplErr.Error(); got != "page:3:5: missing has evaluated to null or missing" {
		t.Fatalf("got %q", got)
	}
	stack := tmplErr.Stack()
	if len(stack) != 2 {
		t.Fatalf("expected two frames, got %+v", stack)
	}
	if stack[0].Line != 3 || stack[0].Column != 3 || stack[1].Line != 5 || stack[1].Template != "page" {
		t.Fatalf("unexpected frames %+v", stack)
	}
	if !strings.Contains(stack[1].Instruction, "inner") {
		t.Fatalf("caller frame should name the call, got %q", stack[1].Instruction)
	}
}

func TestDescribeTemplateError(t *testing.T) {
	_, err := renderString(t, New(), failingMacroTemplate(), nil)
	desc := DescribeTemplateError(err)
	lines := strings.Split(desc, "\n")
	if len(lines) != 3 {
		t.Fatalf("unexpected description:\n%s", desc)
	}
	if lines[0] != "template: page:3:5 missing has evaluated to null or missing" {
		t.Fatalf("got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "note: page:3:3 called from here (") {
		t.Fatalf("got %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "note: page:5:1 called from here (") {
		t.Fatalf("got %q", lines[2])
	}

	if got := DescribeTemplateError(errors.New("plain failure ")); got != "template: plain failure" {
		t.Fatalf("got %q", got)
	}
	if DescribeTemplateError(nil) != "" {
		t.Fatalf("nil error should describe as empty")
	}
}

func TestErrorsAreAttachedOnce(t *testing.T) {
	lib := ast.Tmpl("lib", ast.Macro("fail", nil, ast.WithSpan(ast.Stop(ast.Str("from lib")), ast.At(4, 2, 6))))
	tmpl := ast.Tmpl("page",
		ast.Import("lib", "l"),
		ast.ListOf(ast.StrList("a"), "x", ast.WithSpan(ast.Invoke(ast.Dot(ast.ID("l"), "fail"), nil, nil), ast.At(7, 3, 12))),
	)
	_, err := renderString(t, newTestInterpreter(lib), tmpl, nil)
	var tmplErr *TemplateError
	if !errors.As(err, &tmplErr) {
		t.Fatalf("expected *TemplateError, got %v", err)
	}
	var inner *TemplateError
	if errors.As(tmplErr.Err, &inner) {
		t.Fatalf("template error wrapped twice: %v", err)
	}
	if tmplErr.Template != "lib" || tmplErr.Location.Line != 4 {
		t.Fatalf("expected the failure in lib at line 4, got %+v", tmplErr.Location)
	}
	stack := tmplErr.Stack()
	if len(stack) < 2 || stack[len(stack)-1].Template != "page" {
		t.Fatalf("outermost frame should be in page: %+v", stack)
	}
}

func TestUnlocatedErrorsFallBackToTemplateName(t *testing.T) {
	_, err := renderString(t, New(), ast.Tmpl("plain", ast.Interp(ast.ID("nope"))), nil)
	var tmplErr *TemplateError
	if !errors.As(err, &tmplErr) || tmplErr.Template != "plain" {
		t.Fatalf("expected an error in plain, got %v", err)
	}
	if tmplErr.Location.Line != 0 {
		t.Fatalf("unexpected line %d", tmplErr.Location.Line)
	}
}

func TestOriginRegistryGrowsOncePerTemplate(t *testing.T) {
	lib := ast.Tmpl("lib", ast.Assign("x", ast.Num(1)))
	page := ast.Tmpl("page", ast.Import("lib", "l"), ast.Interp(ast.Dot(ast.ID("l"), "x")))
	interp := New(WithLoader(driver.NewMapLoader(lib)))

	registered := func() (int, int) {
		interp.originsMu.RLock()
		defer interp.originsMu.RUnlock()
		return len(interp.origins), len(interp.annotated)
	}

	if _, err := renderString(t, interp, page, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	nodes, templates := registered()
	if templates != 2 {
		t.Fatalf("expected page and lib to be registered, got %d", templates)
	}
	for n := 0; n < 3; n++ {
		if _, err := renderString(t, interp, page, nil); err != nil {
			t.Fatalf("render: %v", err)
		}
	}
	if gotNodes, gotTemplates := registered(); gotNodes != nodes || gotTemplates != templates {
		t.Fatalf("rendering again grew the registry: %d/%d nodes, %d/%d templates", gotNodes, nodes, gotTemplates, templates)
	}

	if _, err := renderString(t, interp, ast.Tmpl("other", ast.Text("o")), nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if _, gotTemplates := registered(); gotTemplates != templates+1 {
		t.Fatalf("a new template should be registered, got %d", gotTemplates)
	}
}
