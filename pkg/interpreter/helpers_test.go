package interpreter

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"ftl/interpreter-go/pkg/ast"
	"ftl/interpreter-go/pkg/driver"
	"ftl/interpreter-go/pkg/runtime"
)

func newTestInterpreter(libs ...*ast.Template) *Interpreter {
	return New(WithLoader(driver.NewMapLoader(libs...)))
}

func renderString(t *testing.T, interp *Interpreter, tmpl *ast.Template, data any) (string, error) {
	t.Helper()
	var out strings.Builder
	err := interp.Render(&out, tmpl, data)
	return out.String(), err
}

func mustRender(t *testing.T, interp *Interpreter, tmpl *ast.Template, data any) string {
	t.Helper()
	out, err := renderString(t, interp, tmpl, data)
	if err != nil {
		t.Fatalf("render %s failed: %v", tmpl.Name, err)
	}
	return out
}

func newTestEnvironment(t *testing.T, interp *Interpreter, tmpl *ast.Template, data any) (*Environment, *strings.Builder) {
	t.Helper()
	var out strings.Builder
	env, err := interp.NewEnvironment(&out, tmpl, data)
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}
	return env, &out
}

// itemDocument is root -> [item "1", item "2"].
func itemDocument() *runtime.Element {
	return runtime.NewElement("root",
		runtime.NewElement("item", runtime.NewTextNode("1")),
		runtime.NewElement("item", runtime.NewTextNode("2")),
	)
}

// echoHandler emits the name of the node it handles followed by text.
func echoHandler(name, suffix string) *ast.MacroDefinition {
	return ast.Macro(name, nil, ast.Seq(ast.Interp(ast.BI(ast.Special(ast.SpecialNode), "node_name")), ast.Text(suffix)))
}

func mustYAML(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(src), &node); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	return &node
}

// namespaceSet is a sequence of namespaces that also answers hash lookups
// from a separate decoy namespace.
type namespaceSet struct {
	items []runtime.Value
	decoy *runtime.Namespace
}

func (s namespaceSet) At(idx int) (runtime.Value, error) {
	if idx < 0 || idx >= len(s.items) {
		return nil, nil
	}
	return s.items[idx], nil
}

func (s namespaceSet) Size() (int, error) { return len(s.items), nil }

func (s namespaceSet) Get(key string) (runtime.Value, error) { return s.decoy.Get(key) }

func (s namespaceSet) IsEmpty() (bool, error) { return len(s.items) == 0, nil }

func handlerNamespace(name string, handlers ...*ast.MacroDefinition) *runtime.Namespace {
	ns := runtime.NewNamespace(name)
	for _, h := range handlers {
		ns.DefineMacro(&runtime.MacroValue{Definition: h})
	}
	return ns
}
