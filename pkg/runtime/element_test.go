package runtime

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestElementNavigation(t *testing.T) {
	a := NewElement("item", NewTextNode("1"))
	b := NewElement("x:item", NewTextNode("2"))
	root := NewElement("root", a, b)
	doc := NewDocument(root)

	parent, _ := a.ParentNode()
	if parent != root {
		t.Fatalf("expected parent to be root, got %#v", parent)
	}
	children, _ := root.ChildNodes()
	if size, _ := children.Size(); size != 2 {
		t.Fatalf("expected 2 children, got %d", size)
	}
	if ns, _ := b.NodeNamespace(); ns != "x" {
		t.Fatalf("expected namespace prefix x, got %q", ns)
	}
	if name, _ := b.NodeName(); name != "item" {
		t.Fatalf("expected local name item, got %q", name)
	}
	text, _ := doc.AsString()
	if text != "12" {
		t.Fatalf("expected concatenated text, got %q", text)
	}
	items, _ := root.Get("item")
	seq, ok := items.(Sequence)
	if !ok {
		t.Fatalf("expected sequence of child elements, got %#v", items)
	}
	if size, _ := seq.Size(); size != 2 {
		t.Fatalf("expected both items by local name, got %d", size)
	}
}

func TestYAMLDocument(t *testing.T) {
	src := `
root:
  "@id": r1
  list:
    - "1"
    - "2"
  title: hello
`
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(src), &node); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	doc, err := NewYAMLDocument(&node)
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	roots, _ := doc.Get("root")
	rootVal, _ := roots.(Sequence).At(0)
	root := rootVal.(*Element)
	if id, _ := root.Get("@id"); id.(StringValue).Val != "r1" {
		t.Fatalf("expected attribute, got %#v", id)
	}
	lists, _ := root.Get("list")
	listVal, _ := lists.(Sequence).At(0)
	children, _ := listVal.(*Element).ChildNodes()
	size, _ := children.Size()
	if size != 2 {
		t.Fatalf("expected two sequence items, got %d", size)
	}
	second, _ := children.At(1)
	if name, _ := second.(Node).NodeName(); name != SequenceItemName {
		t.Fatalf("unexpected item name %q", name)
	}
	if text, _ := second.(Scalar).AsString(); text != "2" {
		t.Fatalf("unexpected item text %q", text)
	}
}
