package driver

import (
	"ftl/interpreter-go/pkg/ast"
)

func (d *fixtureDecoder) decodeExpressionNodes(node map[string]any, typ string) (ast.Node, bool, error) {
	switch typ {
	case "StringLiteral":
		val, _ := node["value"].(string)
		return ast.NewStringLiteral(val), true, nil
	case "NumberLiteral":
		val, err := toFloat(node["value"])
		if err != nil {
			return nil, true, d.errorf(node, "number literal: %v", err)
		}
		return ast.NewNumberLiteral(val), true, nil
	case "BooleanLiteral":
		val, _ := node["value"].(bool)
		return ast.NewBooleanLiteral(val), true, nil
	case "ListLiteral":
		items, err := d.expressionList(node, "items")
		if err != nil {
			return nil, true, err
		}
		return ast.NewListLiteral(items), true, nil
	case "HashLiteral":
		entriesRaw, _ := node["entries"].([]any)
		entries := make([]*ast.HashEntry, 0, len(entriesRaw))
		for _, raw := range entriesRaw {
			entryNode, ok := raw.(map[string]any)
			if !ok {
				return nil, true, d.errorf(node, "invalid hash entry %T", raw)
			}
			key, err := d.requireExpression(entryNode, "key")
			if err != nil {
				return nil, true, err
			}
			value, err := d.requireExpression(entryNode, "value")
			if err != nil {
				return nil, true, err
			}
			entries = append(entries, &ast.HashEntry{Key: key, Value: value})
		}
		return ast.NewHashLiteral(entries), true, nil
	case "Identifier":
		name, _ := node["name"].(string)
		if name == "" {
			return nil, true, d.errorf(node, "identifier needs a name")
		}
		return ast.NewIdentifier(name), true, nil
	case "SpecialVariable":
		name, _ := node["name"].(string)
		return ast.NewSpecialVariable(name), true, nil
	case "DotVariable":
		target, err := d.requireExpression(node, "target")
		if err != nil {
			return nil, true, err
		}
		name, _ := node["name"].(string)
		return ast.NewDotVariable(target, name), true, nil
	case "DynamicKey":
		target, err := d.requireExpression(node, "target")
		if err != nil {
			return nil, true, err
		}
		key, err := d.requireExpression(node, "key")
		if err != nil {
			return nil, true, err
		}
		return ast.NewDynamicKey(target, key), true, nil
	case "MethodCall":
		target, err := d.requireExpression(node, "target")
		if err != nil {
			return nil, true, err
		}
		args, err := d.expressionList(node, "args")
		if err != nil {
			return nil, true, err
		}
		return ast.NewMethodCall(target, args), true, nil
	case "BuiltIn":
		target, err := d.requireExpression(node, "target")
		if err != nil {
			return nil, true, err
		}
		name, _ := node["name"].(string)
		return ast.NewBuiltIn(target, name), true, nil
	case "DefaultTo":
		target, err := d.requireExpression(node, "target")
		if err != nil {
			return nil, true, err
		}
		def, err := d.optionalExpression(node, "default")
		if err != nil {
			return nil, true, err
		}
		return ast.NewDefaultTo(target, def), true, nil
	case "Exists":
		target, err := d.requireExpression(node, "target")
		if err != nil {
			return nil, true, err
		}
		return ast.NewExists(target), true, nil
	case "Not", "Negate", "Parenthetical":
		field := "operand"
		if typ == "Parenthetical" {
			field = "nested"
		}
		operand, err := d.requireExpression(node, field)
		if err != nil {
			return nil, true, err
		}
		switch typ {
		case "Not":
			return ast.NewNot(operand), true, nil
		case "Negate":
			return ast.NewNegate(operand), true, nil
		default:
			return ast.NewParenthetical(operand), true, nil
		}
	case "Comparison", "And", "Or", "AddConcat", "Arithmetic":
		left, err := d.requireExpression(node, "left")
		if err != nil {
			return nil, true, err
		}
		right, err := d.requireExpression(node, "right")
		if err != nil {
			return nil, true, err
		}
		op, _ := node["operator"].(string)
		switch typ {
		case "Comparison":
			if !validComparison(op) {
				return nil, true, d.errorf(node, "unknown comparison operator %q", op)
			}
			return ast.NewComparison(op, left, right), true, nil
		case "Arithmetic":
			if !validArithmetic(op) {
				return nil, true, d.errorf(node, "unknown arithmetic operator %q", op)
			}
			return ast.NewArithmetic(op, left, right), true, nil
		case "And":
			return ast.NewAnd(left, right), true, nil
		case "Or":
			return ast.NewOr(left, right), true, nil
		default:
			return ast.NewAddConcat(left, right), true, nil
		}
	}
	return nil, false, nil
}

func validComparison(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

func validArithmetic(op string) bool {
	switch op {
	case "-", "*", "/", "%":
		return true
	}
	return false
}

func (d *fixtureDecoder) requireExpression(node map[string]any, field string) (ast.Expression, error) {
	expr, err := d.optionalExpression(node, field)
	if err != nil {
		return nil, err
	}
	if expr == nil {
		typ, _ := node["type"].(string)
		return nil, d.errorf(node, "%s is missing %s", typ, field)
	}
	return expr, nil
}

func (d *fixtureDecoder) optionalExpression(node map[string]any, field string) (ast.Expression, error) {
	raw, ok := node[field]
	if !ok || raw == nil {
		return nil, nil
	}
	exprNode, ok := raw.(map[string]any)
	if !ok {
		return nil, d.errorf(node, "invalid %s %T", field, raw)
	}
	decoded, err := d.decodeNode(exprNode)
	if err != nil {
		return nil, err
	}
	expr, ok := decoded.(ast.Expression)
	if !ok {
		return nil, d.errorf(exprNode, "%s is not an expression", decoded.NodeType())
	}
	return expr, nil
}

func (d *fixtureDecoder) expressionList(node map[string]any, field string) ([]ast.Expression, error) {
	itemsRaw, _ := node[field].([]any)
	items := make([]ast.Expression, 0, len(itemsRaw))
	for _, raw := range itemsRaw {
		itemNode, ok := raw.(map[string]any)
		if !ok {
			return nil, d.errorf(node, "invalid %s element %T", field, raw)
		}
		decoded, err := d.decodeNode(itemNode)
		if err != nil {
			return nil, err
		}
		expr, ok := decoded.(ast.Expression)
		if !ok {
			return nil, d.errorf(itemNode, "%s is not an expression", decoded.NodeType())
		}
		items = append(items, expr)
	}
	return items, nil
}
