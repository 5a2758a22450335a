package ast

// Template is a compiled template: the root instruction plus the macros it
// declares at top level, which are visible before the body runs.
type Template struct {
	Name   string
	Root   Instruction
	Macros []*MacroDefinition
}

// NewTemplate wraps root and collects its top-level macro definitions.
func NewTemplate(name string, root Instruction) *Template {
	tmpl := &Template{Name: name, Root: root}
	tmpl.Macros = collectMacros(root, nil)
	return tmpl
}

func collectMacros(inst Instruction, out []*MacroDefinition) []*MacroDefinition {
	switch n := inst.(type) {
	case *MacroDefinition:
		out = append(out, n)
	case *MixedContent:
		for _, child := range n.Children {
			out = collectMacros(child, out)
		}
	}
	return out
}

// CanonicalForm renders the whole template back to source.
func (t *Template) CanonicalForm() string {
	if t == nil {
		return ""
	}
	return CanonicalForm(t.Root)
}
