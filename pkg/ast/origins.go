package ast

import "reflect"

// Walk visits root and every node reachable from its fields, parents before
// children and siblings in field order. Returning false from fn skips the
// node's descendants.
func Walk(root Node, fn func(Node) bool) {
	if root == nil || fn == nil {
		return
	}
	walkNode(root, fn, make(map[Node]struct{}))
}

func walkNode(node Node, fn func(Node) bool, visited map[Node]struct{}) {
	if _, ok := visited[node]; ok {
		return
	}
	visited[node] = struct{}{}
	if !fn(node) {
		return
	}
	val := reflect.ValueOf(node)
	if val.Kind() == reflect.Pointer {
		if val.IsNil() {
			return
		}
		val = val.Elem()
	}
	walkFields(val, fn, visited)
}

func walkFields(val reflect.Value, fn func(Node) bool, visited map[Node]struct{}) {
	switch val.Kind() {
	case reflect.Struct:
		for i := 0; i < val.NumField(); i++ {
			if !val.Type().Field(i).IsExported() {
				continue
			}
			walkValue(val.Field(i), fn, visited)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < val.Len(); i++ {
			walkValue(val.Index(i), fn, visited)
		}
	}
}

func walkValue(val reflect.Value, fn func(Node) bool, visited map[Node]struct{}) {
	if !val.IsValid() {
		return
	}
	switch val.Kind() {
	case reflect.Pointer, reflect.Interface:
		if val.IsNil() {
			return
		}
		if node, ok := val.Interface().(Node); ok {
			walkNode(node, fn, visited)
			return
		}
		walkValue(val.Elem(), fn, visited)
	case reflect.Struct, reflect.Slice, reflect.Array:
		walkFields(val, fn, visited)
	}
}

// AnnotateOrigins assigns the provided template name to every node reachable
// from root. The table map may be nil; when provided it is populated with
// node -> name entries and existing entries are kept.
func AnnotateOrigins(root Node, name string, table map[Node]string) map[Node]string {
	if table == nil {
		table = make(map[Node]string)
	}
	if root == nil || name == "" {
		return table
	}
	Walk(root, func(n Node) bool {
		if _, ok := table[n]; !ok {
			table[n] = name
		}
		return true
	})
	return table
}
