package driver

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ftl/interpreter-go/pkg/runtime"
)

// LoadData reads a YAML file whose top level is a mapping and wraps it as the
// data model of a render.
func LoadData(path string) (runtime.Hash, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("data: read %s: %w", path, err)
	}
	return DecodeData(path, data)
}

// DecodeData is LoadData over an in-memory document.
func DecodeData(source string, data []byte) (runtime.Hash, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("data: parse %s: %w", source, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	wrapped, err := runtime.Wrap(raw)
	if err != nil {
		return nil, fmt.Errorf("data: %s: %w", source, err)
	}
	return wrapped.(runtime.Hash), nil
}

// LoadDocument reads a YAML file as a document node tree.
func LoadDocument(path string) (*runtime.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("document: read %s: %w", path, err)
	}
	return DecodeDocument(path, data)
}

// DecodeDocument is LoadDocument over an in-memory document.
func DecodeDocument(source string, data []byte) (*runtime.Element, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("document: parse %s: %w", source, err)
	}
	doc, err := runtime.NewYAMLDocument(&node)
	if err != nil {
		return nil, fmt.Errorf("document: %s: %w", source, err)
	}
	return doc, nil
}
