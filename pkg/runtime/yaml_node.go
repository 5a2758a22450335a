package runtime

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// SequenceItemName names the elements produced for YAML sequence entries.
const SequenceItemName = "item"

// NewYAMLDocument exposes a YAML node tree as a document tree. Mapping keys
// become elements, scalars become text children, sequence entries become
// elements named "item" under the element of their key. Keys starting with
// '@' are attributes of the enclosing element.
func NewYAMLDocument(root *yaml.Node) (*Element, error) {
	doc := NewDocument()
	if root == nil {
		return doc, nil
	}
	node := root
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return doc, nil
		}
		node = node.Content[0]
	}
	if err := fillElement(doc, node); err != nil {
		return nil, err
	}
	return doc, nil
}

func fillElement(parent *Element, node *yaml.Node) error {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil
		}
		parent.AppendChild(NewTextNode(node.Value))
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			value := node.Content[i+1]
			if strings.HasPrefix(key, "@") {
				if value.Kind != yaml.ScalarNode {
					return fmt.Errorf("yaml document: attribute %s at line %d must be a scalar", key, value.Line)
				}
				if parent.Attrs == nil {
					parent.Attrs = make(map[string]string)
				}
				parent.Attrs[key[1:]] = value.Value
				continue
			}
			if key == "#comment" {
				parent.AppendChild(NewCommentNode(value.Value))
				continue
			}
			child := NewElement(key)
			if err := fillElement(child, value); err != nil {
				return err
			}
			parent.AppendChild(child)
		}
	case yaml.SequenceNode:
		for _, entry := range node.Content {
			child := NewElement(SequenceItemName)
			if err := fillElement(child, entry); err != nil {
				return err
			}
			parent.AppendChild(child)
		}
	default:
		return fmt.Errorf("yaml document: unsupported node kind %d at line %d", node.Kind, node.Line)
	}
	return nil
}
