package runtime

// Namespace is the variable table of one template or imported library. It is
// a mutable, ordered hash whose identity matters: imports of the same library
// within a render share one *Namespace.
type Namespace struct {
	SimpleHash
	name string
}

func NewNamespace(templateName string) *Namespace {
	return &Namespace{SimpleHash: *NewSimpleHash(), name: templateName}
}

// TemplateName is the name of the template that populated the namespace.
func (n *Namespace) TemplateName() string {
	if n == nil {
		return ""
	}
	return n.name
}

// Macro returns the macro bound to name, if any.
func (n *Namespace) Macro(name string) (*MacroValue, bool) {
	if n == nil {
		return nil, false
	}
	v, _ := n.Get(name)
	m, ok := v.(*MacroValue)
	return m, ok
}

// DefineMacro binds a macro definition into the namespace.
func (n *Namespace) DefineMacro(m *MacroValue) {
	m.Namespace = n
	n.Put(m.Name(), m)
}
