package ast

import (
	"strconv"
	"strings"
)

// Literals

type StringLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker

	Value string `json:"value"`
}

func NewStringLiteral(value string) *StringLiteral {
	return &StringLiteral{nodeImpl: newNodeImpl(NodeStringLiteral), Value: value}
}

func (n *StringLiteral) Symbol() string             { return n.Dump(true) }
func (n *StringLiteral) Parameters() []Parameter    { return []Parameter{{Role: RoleValue, Value: n.Value}} }
func (n *StringLiteral) Dump(canonical bool) string { return quote(n.Value) }

type NumberLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker

	Value float64 `json:"value"`
}

func NewNumberLiteral(value float64) *NumberLiteral {
	return &NumberLiteral{nodeImpl: newNodeImpl(NodeNumberLiteral), Value: value}
}

func (n *NumberLiteral) Symbol() string          { return n.Dump(true) }
func (n *NumberLiteral) Parameters() []Parameter { return []Parameter{{Role: RoleValue, Value: n.Value}} }
func (n *NumberLiteral) Dump(canonical bool) string {
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

type BooleanLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker

	Value bool `json:"value"`
}

func NewBooleanLiteral(value bool) *BooleanLiteral {
	return &BooleanLiteral{nodeImpl: newNodeImpl(NodeBooleanLiteral), Value: value}
}

func (n *BooleanLiteral) Symbol() string             { return n.Dump(true) }
func (n *BooleanLiteral) Parameters() []Parameter    { return []Parameter{{Role: RoleValue, Value: n.Value}} }
func (n *BooleanLiteral) Dump(canonical bool) string { return strconv.FormatBool(n.Value) }

type ListLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker

	Items []Expression `json:"items"`
}

func NewListLiteral(items []Expression) *ListLiteral {
	return &ListLiteral{nodeImpl: newNodeImpl(NodeListLiteral), Items: items}
}

func (n *ListLiteral) Symbol() string { return "[...]" }
func (n *ListLiteral) Parameters() []Parameter {
	params := make([]Parameter, 0, len(n.Items))
	for _, item := range n.Items {
		params = append(params, exprParam(RoleItemValue, item))
	}
	return params
}

func (n *ListLiteral) Dump(canonical bool) string {
	parts := make([]string, 0, len(n.Items))
	for _, item := range n.Items {
		parts = append(parts, CanonicalForm(item))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// StringItems returns the item values when every item is a string literal.
func (n *ListLiteral) StringItems() ([]string, bool) {
	out := make([]string, 0, len(n.Items))
	for _, item := range n.Items {
		lit, ok := item.(*StringLiteral)
		if !ok {
			return nil, false
		}
		out = append(out, lit.Value)
	}
	return out, true
}

type HashEntry struct {
	Key   Expression `json:"key"`
	Value Expression `json:"value"`
}

type HashLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker

	Entries []*HashEntry `json:"entries"`
}

func NewHashLiteral(entries []*HashEntry) *HashLiteral {
	return &HashLiteral{nodeImpl: newNodeImpl(NodeHashLiteral), Entries: entries}
}

func (n *HashLiteral) Symbol() string { return "{...}" }
func (n *HashLiteral) Parameters() []Parameter {
	params := make([]Parameter, 0, len(n.Entries)*2)
	for _, e := range n.Entries {
		params = append(params, exprParam(RoleItemKey, e.Key), exprParam(RoleItemValue, e.Value))
	}
	return params
}

func (n *HashLiteral) Dump(canonical bool) string {
	parts := make([]string, 0, len(n.Entries))
	for _, e := range n.Entries {
		parts = append(parts, CanonicalForm(e.Key)+": "+CanonicalForm(e.Value))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Variables

type Identifier struct {
	nodeImpl
	expressionMarker

	Name string `json:"name"`
}

func NewIdentifier(name string) *Identifier {
	return &Identifier{nodeImpl: newNodeImpl(NodeIdentifier), Name: name}
}

func (n *Identifier) Symbol() string             { return n.Dump(true) }
func (n *Identifier) Parameters() []Parameter    { return nil }
func (n *Identifier) Dump(canonical bool) string { return identifierForm(n.Name) }

// SpecialVariable reads engine state such as .node or .namespace.

type SpecialVariable struct {
	nodeImpl
	expressionMarker

	Name string `json:"name"`
}

const (
	SpecialNode                = "node"
	SpecialNamespace           = "namespace"
	SpecialMain                = "main"
	SpecialGlobals             = "globals"
	SpecialDataModel           = "data_model"
	SpecialCurrentTemplateName = "current_template_name"
)

func NewSpecialVariable(name string) *SpecialVariable {
	return &SpecialVariable{nodeImpl: newNodeImpl(NodeSpecialVariable), Name: name}
}

func (n *SpecialVariable) Symbol() string             { return n.Dump(true) }
func (n *SpecialVariable) Parameters() []Parameter    { return nil }
func (n *SpecialVariable) Dump(canonical bool) string { return "." + n.Name }

type DotVariable struct {
	nodeImpl
	expressionMarker

	Target Expression `json:"target"`
	Name   string     `json:"name"`
}

func NewDotVariable(target Expression, name string) *DotVariable {
	return &DotVariable{nodeImpl: newNodeImpl(NodeDotVariable), Target: target, Name: name}
}

func (n *DotVariable) Symbol() string { return "." }
func (n *DotVariable) Parameters() []Parameter {
	return []Parameter{exprParam(RoleLeftOperand, n.Target), {Role: RoleRightOperand, Value: n.Name}}
}

func (n *DotVariable) Dump(canonical bool) string {
	return CanonicalForm(n.Target) + "." + identifierForm(n.Name)
}

type DynamicKey struct {
	nodeImpl
	expressionMarker

	Target Expression `json:"target"`
	Key    Expression `json:"key"`
}

func NewDynamicKey(target, key Expression) *DynamicKey {
	return &DynamicKey{nodeImpl: newNodeImpl(NodeDynamicKey), Target: target, Key: key}
}

func (n *DynamicKey) Symbol() string { return "...[...]" }
func (n *DynamicKey) Parameters() []Parameter {
	return []Parameter{exprParam(RoleLeftOperand, n.Target), exprParam(RoleEnclosedOperand, n.Key)}
}

func (n *DynamicKey) Dump(canonical bool) string {
	return CanonicalForm(n.Target) + "[" + CanonicalForm(n.Key) + "]"
}

type MethodCall struct {
	nodeImpl
	expressionMarker

	Target Expression   `json:"target"`
	Args   []Expression `json:"args"`
}

func NewMethodCall(target Expression, args []Expression) *MethodCall {
	return &MethodCall{nodeImpl: newNodeImpl(NodeMethodCall), Target: target, Args: args}
}

func (n *MethodCall) Symbol() string { return "...(...)" }
func (n *MethodCall) Parameters() []Parameter {
	params := make([]Parameter, 0, 1+len(n.Args))
	params = append(params, exprParam(RoleCallee, n.Target))
	for _, arg := range n.Args {
		params = append(params, exprParam(RoleArgumentValue, arg))
	}
	return params
}

func (n *MethodCall) Dump(canonical bool) string {
	parts := make([]string, 0, len(n.Args))
	for _, arg := range n.Args {
		parts = append(parts, CanonicalForm(arg))
	}
	return CanonicalForm(n.Target) + "(" + strings.Join(parts, ", ") + ")"
}

// BuiltIn applies a built-in to its target: x?name.

type BuiltIn struct {
	nodeImpl
	expressionMarker

	Target Expression `json:"target"`
	Name   string     `json:"name"`
}

func NewBuiltIn(target Expression, name string) *BuiltIn {
	return &BuiltIn{nodeImpl: newNodeImpl(NodeBuiltIn), Target: target, Name: name}
}

func (n *BuiltIn) Symbol() string { return "?" + n.Name }
func (n *BuiltIn) Parameters() []Parameter {
	return []Parameter{exprParam(RoleLeftOperand, n.Target), {Role: RoleBuiltInName, Value: n.Name}}
}

func (n *BuiltIn) Dump(canonical bool) string {
	return CanonicalForm(n.Target) + "?" + n.Name
}

// DefaultTo substitutes a default for a missing value: x!d, or x! for an
// empty default.

type DefaultTo struct {
	nodeImpl
	expressionMarker

	Target  Expression `json:"target"`
	Default Expression `json:"default,omitempty"`
}

func NewDefaultTo(target, def Expression) *DefaultTo {
	return &DefaultTo{nodeImpl: newNodeImpl(NodeDefaultTo), Target: target, Default: def}
}

func (n *DefaultTo) Symbol() string { return "...!..." }
func (n *DefaultTo) Parameters() []Parameter {
	return []Parameter{exprParam(RoleLeftOperand, n.Target), exprParam(RoleDefaultValue, n.Default)}
}

func (n *DefaultTo) Dump(canonical bool) string {
	if n.Default == nil {
		return CanonicalForm(n.Target) + "!"
	}
	return CanonicalForm(n.Target) + "!" + CanonicalForm(n.Default)
}

type Exists struct {
	nodeImpl
	expressionMarker

	Target Expression `json:"target"`
}

func NewExists(target Expression) *Exists {
	return &Exists{nodeImpl: newNodeImpl(NodeExists), Target: target}
}

func (n *Exists) Symbol() string { return "...??" }
func (n *Exists) Parameters() []Parameter {
	return []Parameter{exprParam(RoleLeftOperand, n.Target)}
}
func (n *Exists) Dump(canonical bool) string { return CanonicalForm(n.Target) + "??" }

// Operators

type Comparison struct {
	nodeImpl
	expressionMarker

	Operator string     `json:"operator"`
	Left     Expression `json:"left"`
	Right    Expression `json:"right"`
}

func NewComparison(operator string, left, right Expression) *Comparison {
	return &Comparison{nodeImpl: newNodeImpl(NodeComparison), Operator: operator, Left: left, Right: right}
}

func (n *Comparison) Symbol() string          { return n.Operator }
func (n *Comparison) Parameters() []Parameter { return binaryParams(n.Left, n.Right) }
func (n *Comparison) Dump(canonical bool) string {
	return binaryForm(n.Left, n.Operator, n.Right)
}

type And struct {
	nodeImpl
	expressionMarker

	Left  Expression `json:"left"`
	Right Expression `json:"right"`
}

func NewAnd(left, right Expression) *And {
	return &And{nodeImpl: newNodeImpl(NodeAnd), Left: left, Right: right}
}

func (n *And) Symbol() string             { return "&&" }
func (n *And) Parameters() []Parameter    { return binaryParams(n.Left, n.Right) }
func (n *And) Dump(canonical bool) string { return binaryForm(n.Left, "&&", n.Right) }

type Or struct {
	nodeImpl
	expressionMarker

	Left  Expression `json:"left"`
	Right Expression `json:"right"`
}

func NewOr(left, right Expression) *Or {
	return &Or{nodeImpl: newNodeImpl(NodeOr), Left: left, Right: right}
}

func (n *Or) Symbol() string             { return "||" }
func (n *Or) Parameters() []Parameter    { return binaryParams(n.Left, n.Right) }
func (n *Or) Dump(canonical bool) string { return binaryForm(n.Left, "||", n.Right) }

type Not struct {
	nodeImpl
	expressionMarker

	Operand Expression `json:"operand"`
}

func NewNot(operand Expression) *Not {
	return &Not{nodeImpl: newNodeImpl(NodeNot), Operand: operand}
}

func (n *Not) Symbol() string             { return "!" }
func (n *Not) Parameters() []Parameter    { return []Parameter{exprParam(RoleOperand, n.Operand)} }
func (n *Not) Dump(canonical bool) string { return "!" + CanonicalForm(n.Operand) }

type AddConcat struct {
	nodeImpl
	expressionMarker

	Left  Expression `json:"left"`
	Right Expression `json:"right"`
}

func NewAddConcat(left, right Expression) *AddConcat {
	return &AddConcat{nodeImpl: newNodeImpl(NodeAddConcat), Left: left, Right: right}
}

func (n *AddConcat) Symbol() string             { return "+" }
func (n *AddConcat) Parameters() []Parameter    { return binaryParams(n.Left, n.Right) }
func (n *AddConcat) Dump(canonical bool) string { return binaryForm(n.Left, "+", n.Right) }

// Arithmetic covers -, *, / and %.

type Arithmetic struct {
	nodeImpl
	expressionMarker

	Operator string     `json:"operator"`
	Left     Expression `json:"left"`
	Right    Expression `json:"right"`
}

func NewArithmetic(operator string, left, right Expression) *Arithmetic {
	return &Arithmetic{nodeImpl: newNodeImpl(NodeArithmetic), Operator: operator, Left: left, Right: right}
}

func (n *Arithmetic) Symbol() string             { return n.Operator }
func (n *Arithmetic) Parameters() []Parameter    { return binaryParams(n.Left, n.Right) }
func (n *Arithmetic) Dump(canonical bool) string { return binaryForm(n.Left, n.Operator, n.Right) }

type Negate struct {
	nodeImpl
	expressionMarker

	Operand Expression `json:"operand"`
}

func NewNegate(operand Expression) *Negate {
	return &Negate{nodeImpl: newNodeImpl(NodeNegate), Operand: operand}
}

func (n *Negate) Symbol() string             { return "-..." }
func (n *Negate) Parameters() []Parameter    { return []Parameter{exprParam(RoleOperand, n.Operand)} }
func (n *Negate) Dump(canonical bool) string { return "-" + CanonicalForm(n.Operand) }

type Parenthetical struct {
	nodeImpl
	expressionMarker

	Nested Expression `json:"nested"`
}

func NewParenthetical(nested Expression) *Parenthetical {
	return &Parenthetical{nodeImpl: newNodeImpl(NodeParenthetical), Nested: nested}
}

func (n *Parenthetical) Symbol() string { return "(...)" }
func (n *Parenthetical) Parameters() []Parameter {
	return []Parameter{exprParam(RoleEnclosedOperand, n.Nested)}
}
func (n *Parenthetical) Dump(canonical bool) string { return "(" + CanonicalForm(n.Nested) + ")" }

func binaryParams(left, right Expression) []Parameter {
	return []Parameter{exprParam(RoleLeftOperand, left), exprParam(RoleRightOperand, right)}
}

func binaryForm(left Expression, op string, right Expression) string {
	return CanonicalForm(left) + " " + op + " " + CanonicalForm(right)
}
