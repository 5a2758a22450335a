package runtime

import "strings"

// Document node types reported by NodeType.
const (
	NodeTypeDocument     = "document"
	NodeTypeElement      = "element"
	NodeTypeText         = "text"
	NodeTypeComment      = "comment"
	NodeTypePI           = "pi"
	NodeTypeDocumentType = "document_type"
)

// Element is a generic in-memory document node. Elements are also hashes of
// their child elements by name and scalars of their concatenated text.
type Element struct {
	Type      string
	Name      string
	Namespace string
	Text      string
	Attrs     map[string]string

	parent   *Element
	children []*Element
}

func NewDocument(children ...*Element) *Element {
	return newElement(&Element{Type: NodeTypeDocument, Name: "@document"}, children)
}

func NewElement(name string, children ...*Element) *Element {
	el := &Element{Type: NodeTypeElement, Name: name}
	if prefix, local, ok := strings.Cut(name, ":"); ok {
		el.Namespace = prefix
		el.Name = local
	}
	return newElement(el, children)
}

func NewTextNode(text string) *Element {
	return &Element{Type: NodeTypeText, Name: "@text", Text: text}
}

func NewCommentNode(text string) *Element {
	return &Element{Type: NodeTypeComment, Name: "@comment", Text: text}
}

func newElement(el *Element, children []*Element) *Element {
	for _, child := range children {
		el.AppendChild(child)
	}
	return el
}

// AppendChild adds child as the last child and returns el.
func (e *Element) AppendChild(child *Element) *Element {
	if child == nil {
		return e
	}
	child.parent = e
	e.children = append(e.children, child)
	return e
}

// QualifiedName is prefix:name for namespaced elements.
func (e *Element) QualifiedName() string {
	if e.Namespace == "" {
		return e.Name
	}
	return e.Namespace + ":" + e.Name
}

func (e *Element) ParentNode() (Node, error) {
	if e.parent == nil {
		return nil, nil
	}
	return e.parent, nil
}

func (e *Element) ChildNodes() (Sequence, error) {
	items := make([]Value, 0, len(e.children))
	for _, child := range e.children {
		items = append(items, child)
	}
	return NewSimpleSequence(items...), nil
}

func (e *Element) NodeName() (string, error)      { return e.Name, nil }
func (e *Element) NodeType() (string, error)      { return e.Type, nil }
func (e *Element) NodeNamespace() (string, error) { return e.Namespace, nil }

// AsString concatenates the text of the node and its descendants.
func (e *Element) AsString() (string, error) {
	var b strings.Builder
	e.writeText(&b)
	return b.String(), nil
}

func (e *Element) writeText(b *strings.Builder) {
	switch e.Type {
	case NodeTypeText:
		b.WriteString(e.Text)
	case NodeTypeComment, NodeTypePI:
	default:
		for _, child := range e.children {
			child.writeText(b)
		}
	}
}

// Get returns the child elements named key as a sequence, or the attribute
// "@name" when key starts with '@'. Absent keys yield nil.
func (e *Element) Get(key string) (Value, error) {
	if strings.HasPrefix(key, "@") {
		if v, ok := e.Attrs[key[1:]]; ok {
			return StringValue{Val: v}, nil
		}
		return nil, nil
	}
	var matches []Value
	for _, child := range e.children {
		if child.Type == NodeTypeElement && (child.Name == key || child.QualifiedName() == key) {
			matches = append(matches, child)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return NewSimpleSequence(matches...), nil
}

func (e *Element) IsEmpty() (bool, error) {
	return len(e.children) == 0 && len(e.Attrs) == 0, nil
}
