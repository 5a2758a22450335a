package driver

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"ftl/interpreter-go/pkg/ast"
)

// DecodeTemplate decodes a YAML AST fixture into a template named name.
// source labels the fixture in diagnostics (a file path, a git path or a
// database row).
//
// A fixture is either a list of instructions or a mapping with a "body" list.
// Every node is a mapping tagged with "type" plus the node's fields; a bare
// string in instruction position is shorthand for a TextBlock.
func DecodeTemplate(name, source string, data []byte) (*ast.Template, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, newDecodeError(source, 0, 0, "parse %s: %v", name, err)
	}
	d := &fixtureDecoder{source: source}
	var body any
	switch doc := raw.(type) {
	case nil:
		body = []any{}
	case []any:
		body = doc
	case map[string]any:
		if typ, _ := doc["type"].(string); typ != "" && typ != "Template" {
			body = doc
		} else {
			body = doc["body"]
		}
	default:
		return nil, d.errorf(nil, "template root must be a list or mapping, got %T", raw)
	}
	root, err := d.decodeBody(body)
	if err != nil {
		return nil, err
	}
	if root == nil {
		root = ast.NewMixedContent(nil)
	}
	tmpl := ast.NewTemplate(name, root)
	return tmpl, nil
}

type fixtureDecoder struct {
	source string
}

func (d *fixtureDecoder) errorf(node map[string]any, format string, args ...any) *DecodeError {
	line, column := 0, 0
	if node != nil {
		if span, ok := decodeSpan(node["span"]); ok {
			line, column = span.Start.Line, span.Start.Column
		}
	}
	return newDecodeError(d.source, line, column, format, args...)
}

// decodeBody accepts a list of instructions, a single instruction mapping or
// a bare text string. Lists of one element are returned unwrapped.
func (d *fixtureDecoder) decodeBody(raw any) (ast.Instruction, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return ast.NewTextBlock(v), nil
	case map[string]any:
		return d.decodeInstruction(v)
	case []any:
		children := make([]ast.Instruction, 0, len(v))
		for _, item := range v {
			child, err := d.decodeBody(item)
			if err != nil {
				return nil, err
			}
			if child != nil {
				children = append(children, child)
			}
		}
		if len(children) == 1 {
			return children[0], nil
		}
		return ast.NewMixedContent(children), nil
	default:
		return nil, d.errorf(nil, "invalid instruction %T", raw)
	}
}

func (d *fixtureDecoder) decodeInstruction(node map[string]any) (ast.Instruction, error) {
	decoded, err := d.decodeNode(node)
	if err != nil {
		return nil, err
	}
	inst, ok := decoded.(ast.Instruction)
	if !ok {
		return nil, d.errorf(node, "%s is not an instruction", decoded.NodeType())
	}
	return inst, nil
}

func (d *fixtureDecoder) decodeNode(node map[string]any) (ast.Node, error) {
	typ, _ := node["type"].(string)
	if typ == "" {
		return nil, d.errorf(node, "node is missing its type")
	}
	decoded, handled, err := d.decodeInstructionNodes(node, typ)
	if !handled {
		decoded, handled, err = d.decodeExpressionNodes(node, typ)
	}
	if err != nil {
		return nil, err
	}
	if !handled {
		return nil, d.errorf(node, "unsupported node type %s", typ)
	}
	if span, ok := decodeSpan(node["span"]); ok {
		ast.SetSpan(decoded, span)
	}
	return decoded, nil
}

func (d *fixtureDecoder) decodeInstructionNodes(node map[string]any, typ string) (ast.Node, bool, error) {
	switch typ {
	case "TextBlock":
		text, _ := node["text"].(string)
		return ast.NewTextBlock(text), true, nil
	case "Interpolation":
		expr, err := d.requireExpression(node, "expression")
		if err != nil {
			return nil, true, err
		}
		return ast.NewInterpolation(expr), true, nil
	case "MixedContent":
		childrenRaw, _ := node["children"].([]any)
		children := make([]ast.Instruction, 0, len(childrenRaw))
		for _, raw := range childrenRaw {
			child, err := d.decodeBody(raw)
			if err != nil {
				return nil, true, err
			}
			if child != nil {
				children = append(children, child)
			}
		}
		return ast.NewMixedContent(children), true, nil
	case "IfBlock":
		branchesRaw, _ := node["branches"].([]any)
		branches := make([]*ast.ConditionalBlock, 0, len(branchesRaw))
		for _, raw := range branchesRaw {
			branchNode, ok := raw.(map[string]any)
			if !ok {
				return nil, true, d.errorf(node, "invalid if branch %T", raw)
			}
			if _, ok := branchNode["type"]; !ok {
				branchNode["type"] = "ConditionalBlock"
			}
			decoded, err := d.decodeNode(branchNode)
			if err != nil {
				return nil, true, err
			}
			branch, ok := decoded.(*ast.ConditionalBlock)
			if !ok {
				return nil, true, d.errorf(branchNode, "invalid if branch %s", decoded.NodeType())
			}
			branches = append(branches, branch)
		}
		if len(branches) == 0 {
			return nil, true, d.errorf(node, "if block has no branches")
		}
		return ast.NewIfBlock(branches), true, nil
	case "ConditionalBlock":
		kind, _ := node["kind"].(string)
		if kind == "" {
			kind = string(ast.ConditionalIf)
		}
		cond, err := d.optionalExpression(node, "condition")
		if err != nil {
			return nil, true, err
		}
		if cond == nil && kind != string(ast.ConditionalElse) {
			return nil, true, d.errorf(node, "#%s needs a condition", kind)
		}
		body, err := d.decodeBody(node["body"])
		if err != nil {
			return nil, true, err
		}
		return ast.NewConditionalBlock(ast.ConditionalKind(kind), cond, body), true, nil
	case "ListBlock":
		source, err := d.requireExpression(node, "source")
		if err != nil {
			return nil, true, err
		}
		loopVar, _ := node["loopVariable"].(string)
		if loopVar == "" {
			return nil, true, d.errorf(node, "#list needs a loop variable")
		}
		body, err := d.decodeBody(node["body"])
		if err != nil {
			return nil, true, err
		}
		elseBody, err := d.decodeBody(node["else"])
		if err != nil {
			return nil, true, err
		}
		return ast.NewListBlock(source, loopVar, body, elseBody), true, nil
	case "SepBlock":
		body, err := d.decodeBody(node["body"])
		if err != nil {
			return nil, true, err
		}
		return ast.NewSepBlock(body), true, nil
	case "BreakInstruction":
		return ast.NewBreakInstruction(), true, nil
	case "Assignment":
		scope, _ := node["scope"].(string)
		name, _ := node["name"].(string)
		if name == "" {
			return nil, true, d.errorf(node, "assignment needs a name")
		}
		value, err := d.requireExpression(node, "value")
		if err != nil {
			return nil, true, err
		}
		switch ast.AssignScope(scope) {
		case "", ast.ScopeNamespace, ast.ScopeGlobal, ast.ScopeLocal:
		default:
			return nil, true, d.errorf(node, "unknown assignment scope %q", scope)
		}
		return ast.NewAssignment(ast.AssignScope(scope), name, value), true, nil
	case "MacroDefinition":
		name, _ := node["name"].(string)
		if name == "" {
			return nil, true, d.errorf(node, "macro needs a name")
		}
		paramsRaw, _ := node["params"].([]any)
		params := make([]*ast.MacroParam, 0, len(paramsRaw))
		for _, raw := range paramsRaw {
			param, err := d.decodeMacroParam(node, raw)
			if err != nil {
				return nil, true, err
			}
			params = append(params, param)
		}
		catchAll, _ := node["catchAll"].(string)
		isFunction, _ := node["isFunction"].(bool)
		body, err := d.decodeBody(node["body"])
		if err != nil {
			return nil, true, err
		}
		return ast.NewMacroDefinition(name, params, catchAll, body, isFunction), true, nil
	case "UnifiedCall":
		callee, err := d.requireExpression(node, "callee")
		if err != nil {
			return nil, true, err
		}
		argsRaw, _ := node["args"].([]any)
		args := make([]*ast.NamedArg, 0, len(argsRaw))
		for _, raw := range argsRaw {
			argNode, ok := raw.(map[string]any)
			if !ok {
				return nil, true, d.errorf(node, "invalid argument %T", raw)
			}
			argName, _ := argNode["name"].(string)
			value, err := d.requireExpression(argNode, "value")
			if err != nil {
				return nil, true, err
			}
			args = append(args, &ast.NamedArg{Name: argName, Value: value})
		}
		loopVars := decodeStrings(node["loopVars"])
		body, err := d.decodeBody(node["body"])
		if err != nil {
			return nil, true, err
		}
		return ast.NewUnifiedCall(callee, args, loopVars, body), true, nil
	case "NestedInstruction":
		values, err := d.expressionList(node, "values")
		if err != nil {
			return nil, true, err
		}
		return ast.NewNestedInstruction(values), true, nil
	case "ReturnInstruction":
		value, err := d.optionalExpression(node, "value")
		if err != nil {
			return nil, true, err
		}
		return ast.NewReturnInstruction(value), true, nil
	case "ImportInstruction":
		name, err := d.requireExpression(node, "templateName")
		if err != nil {
			return nil, true, err
		}
		namespace, _ := node["namespace"].(string)
		if namespace == "" {
			return nil, true, d.errorf(node, "#import needs a namespace alias")
		}
		return ast.NewImportInstruction(name, namespace), true, nil
	case "IncludeInstruction":
		name, err := d.requireExpression(node, "templateName")
		if err != nil {
			return nil, true, err
		}
		return ast.NewIncludeInstruction(name), true, nil
	case "RecurseNode", "VisitNode":
		target, err := d.optionalExpression(node, "targetNode")
		if err != nil {
			return nil, true, err
		}
		namespaces, err := d.optionalExpression(node, "namespaces")
		if err != nil {
			return nil, true, err
		}
		if typ == "VisitNode" {
			if target == nil {
				return nil, true, d.errorf(node, "#visit needs a target node")
			}
			return ast.NewVisitNode(target, namespaces), true, nil
		}
		return ast.NewRecurseNode(target, namespaces), true, nil
	case "FallbackInstruction":
		return ast.NewFallbackInstruction(), true, nil
	case "StopInstruction":
		message, err := d.optionalExpression(node, "message")
		if err != nil {
			return nil, true, err
		}
		return ast.NewStopInstruction(message), true, nil
	}
	return nil, false, nil
}

func (d *fixtureDecoder) decodeMacroParam(owner map[string]any, raw any) (*ast.MacroParam, error) {
	switch v := raw.(type) {
	case string:
		return &ast.MacroParam{Name: v}, nil
	case map[string]any:
		name, _ := v["name"].(string)
		if name == "" {
			return nil, d.errorf(owner, "macro parameter needs a name")
		}
		def, err := d.optionalExpression(v, "default")
		if err != nil {
			return nil, err
		}
		return &ast.MacroParam{Name: name, Default: def}, nil
	default:
		return nil, d.errorf(owner, "invalid macro parameter %T", raw)
	}
}

func decodeSpan(raw any) (ast.Span, bool) {
	spanNode, ok := raw.(map[string]any)
	if !ok {
		return ast.Span{}, false
	}
	start, _ := spanNode["start"].(map[string]any)
	end, _ := spanNode["end"].(map[string]any)
	span := ast.Span{Start: decodePosition(start), End: decodePosition(end)}
	return span, span != ast.Span{}
}

func decodePosition(raw map[string]any) ast.Position {
	if raw == nil {
		return ast.Position{}
	}
	line, _ := toInt(raw["line"])
	column, _ := toInt(raw["column"])
	return ast.Position{Line: line, Column: column}
}

func decodeStrings(raw any) []string {
	items, _ := raw.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func toInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float64:
		return v, nil
	}
	return 0, fmt.Errorf("expected a number, got %T", raw)
}
