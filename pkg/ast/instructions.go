package ast

import (
	"strings"
)

// TextBlock is static template text copied to the output.

type TextBlock struct {
	nodeImpl
	instructionMarker

	Text string `json:"text"`
}

func NewTextBlock(text string) *TextBlock {
	return &TextBlock{nodeImpl: newNodeImpl(NodeTextBlock), Text: text}
}

func (n *TextBlock) Symbol() string          { return "#text" }
func (n *TextBlock) ShownInStackTrace() bool { return false }
func (n *TextBlock) Parameters() []Parameter {
	return []Parameter{{Role: RoleContent, Value: n.Text}}
}

func (n *TextBlock) Dump(canonical bool) string {
	if canonical {
		return n.Text
	}
	return "text " + quote(abbreviate(n.Text, 30))
}

// Interpolation prints the value of an expression: ${expr}.

type Interpolation struct {
	nodeImpl
	instructionMarker

	Expression Expression `json:"expression"`
}

func NewInterpolation(expr Expression) *Interpolation {
	return &Interpolation{nodeImpl: newNodeImpl(NodeInterpolation), Expression: expr}
}

func (n *Interpolation) Symbol() string { return "${...}" }
func (n *Interpolation) Parameters() []Parameter {
	return []Parameter{exprParam(RoleContent, n.Expression)}
}

func (n *Interpolation) Dump(canonical bool) string {
	inner := "${" + CanonicalForm(n.Expression) + "}"
	if canonical {
		return inner
	}
	return quote(inner)
}

// MixedContent is an ordered run of sibling instructions.

type MixedContent struct {
	nodeImpl
	instructionMarker

	Children []Instruction `json:"children"`
}

func NewMixedContent(children []Instruction) *MixedContent {
	return &MixedContent{nodeImpl: newNodeImpl(NodeMixedContent), Children: children}
}

func (n *MixedContent) Symbol() string          { return "#mixed_content" }
func (n *MixedContent) ShownInStackTrace() bool { return false }
func (n *MixedContent) Parameters() []Parameter { return nil }

func (n *MixedContent) Dump(canonical bool) string {
	if !canonical {
		return n.Symbol()
	}
	var b strings.Builder
	for _, child := range n.Children {
		b.WriteString(CanonicalForm(child))
	}
	return b.String()
}

// IfBlock holds the #if / #elseif / #else branches of one conditional.

type IfBlock struct {
	nodeImpl
	instructionMarker

	Branches []*ConditionalBlock `json:"branches"`
}

func NewIfBlock(branches []*ConditionalBlock) *IfBlock {
	return &IfBlock{nodeImpl: newNodeImpl(NodeIfBlock), Branches: branches}
}

func (n *IfBlock) Symbol() string          { return "#if-#elseif-#else-container" }
func (n *IfBlock) ShownInStackTrace() bool { return false }
func (n *IfBlock) Parameters() []Parameter { return nil }

func (n *IfBlock) Dump(canonical bool) string {
	if !canonical {
		return n.Symbol()
	}
	var b strings.Builder
	for _, branch := range n.Branches {
		b.WriteString(branch.Dump(true))
	}
	b.WriteString("</#if>")
	return b.String()
}

type ConditionalKind string

const (
	ConditionalIf     ConditionalKind = "if"
	ConditionalElseIf ConditionalKind = "elseif"
	ConditionalElse   ConditionalKind = "else"
)

type ConditionalBlock struct {
	nodeImpl
	instructionMarker

	Kind      ConditionalKind `json:"kind"`
	Condition Expression      `json:"condition,omitempty"`
	Body      Instruction     `json:"body,omitempty"`
}

func NewConditionalBlock(kind ConditionalKind, condition Expression, body Instruction) *ConditionalBlock {
	return &ConditionalBlock{nodeImpl: newNodeImpl(NodeConditionalBlock), Kind: kind, Condition: condition, Body: body}
}

func (n *ConditionalBlock) Symbol() string { return "#" + string(n.Kind) }
func (n *ConditionalBlock) Parameters() []Parameter {
	return []Parameter{
		exprParam(RoleCondition, n.Condition),
		{Role: RoleAST, Value: string(n.Kind)},
	}
}

func (n *ConditionalBlock) Dump(canonical bool) string {
	var b strings.Builder
	if canonical {
		b.WriteByte('<')
	}
	b.WriteString(n.Symbol())
	if n.Condition != nil {
		b.WriteByte(' ')
		b.WriteString(CanonicalForm(n.Condition))
	}
	if canonical {
		b.WriteByte('>')
		b.WriteString(CanonicalForm(n.Body))
	}
	return b.String()
}

// ListBlock iterates a sequence (or the keys of a hash): #list src as x.

type ListBlock struct {
	nodeImpl
	instructionMarker

	Source       Expression  `json:"source"`
	LoopVariable string      `json:"loopVariable"`
	Body         Instruction `json:"body,omitempty"`
	Else         Instruction `json:"else,omitempty"`
}

func NewListBlock(source Expression, loopVariable string, body, elseBody Instruction) *ListBlock {
	return &ListBlock{nodeImpl: newNodeImpl(NodeListBlock), Source: source, LoopVariable: loopVariable, Body: body, Else: elseBody}
}

func (n *ListBlock) Symbol() string            { return "#list" }
func (n *ListBlock) NestedBlockRepeater() bool { return true }
func (n *ListBlock) Parameters() []Parameter {
	return []Parameter{
		exprParam(RoleListSource, n.Source),
		{Role: RoleLoopVariable, Value: n.LoopVariable},
		instParam(RoleElseContent, n.Else),
	}
}

func (n *ListBlock) Dump(canonical bool) string {
	var b strings.Builder
	if canonical {
		b.WriteByte('<')
	}
	b.WriteString(n.Symbol())
	b.WriteByte(' ')
	b.WriteString(CanonicalForm(n.Source))
	b.WriteString(" as ")
	b.WriteString(n.LoopVariable)
	if canonical {
		b.WriteByte('>')
		b.WriteString(CanonicalForm(n.Body))
		if n.Else != nil {
			b.WriteString("<#else>")
			b.WriteString(CanonicalForm(n.Else))
		}
		b.WriteString("</#list>")
	}
	return b.String()
}

// SepBlock prints its body unless the enclosing loop is on its last item.

type SepBlock struct {
	nodeImpl
	instructionMarker

	Body Instruction `json:"body,omitempty"`
}

func NewSepBlock(body Instruction) *SepBlock {
	return &SepBlock{nodeImpl: newNodeImpl(NodeSepBlock), Body: body}
}

func (n *SepBlock) Symbol() string          { return "#sep" }
func (n *SepBlock) Parameters() []Parameter { return nil }

func (n *SepBlock) Dump(canonical bool) string {
	if !canonical {
		return n.Symbol()
	}
	return "<#sep>" + CanonicalForm(n.Body) + "</#sep>"
}

type BreakInstruction struct {
	nodeImpl
	instructionMarker
}

func NewBreakInstruction() *BreakInstruction {
	return &BreakInstruction{nodeImpl: newNodeImpl(NodeBreakInstruction)}
}

func (n *BreakInstruction) Symbol() string          { return "#break" }
func (n *BreakInstruction) Parameters() []Parameter { return nil }

func (n *BreakInstruction) Dump(canonical bool) string {
	if canonical {
		return "<#break/>"
	}
	return n.Symbol()
}

// Assignment binds a variable: #assign, #global or #local.

type AssignScope string

const (
	ScopeNamespace AssignScope = "assign"
	ScopeGlobal    AssignScope = "global"
	ScopeLocal     AssignScope = "local"
)

type Assignment struct {
	nodeImpl
	instructionMarker

	Scope AssignScope `json:"scope"`
	Name  string      `json:"name"`
	Value Expression  `json:"value"`
}

func NewAssignment(scope AssignScope, name string, value Expression) *Assignment {
	if scope == "" {
		scope = ScopeNamespace
	}
	return &Assignment{nodeImpl: newNodeImpl(NodeAssignment), Scope: scope, Name: name, Value: value}
}

func (n *Assignment) Symbol() string { return "#" + string(n.Scope) }
func (n *Assignment) Parameters() []Parameter {
	return []Parameter{
		{Role: RoleAssignmentTarget, Value: n.Name},
		exprParam(RoleAssignmentSource, n.Value),
		{Role: RoleAssignmentScope, Value: string(n.Scope)},
	}
}

func (n *Assignment) Dump(canonical bool) string {
	body := n.Symbol() + " " + identifierForm(n.Name) + " = " + CanonicalForm(n.Value)
	if canonical {
		return "<" + body + ">"
	}
	return body
}

// MacroDefinition declares a macro (#macro) or a function (#function).

type MacroParam struct {
	Name    string     `json:"name"`
	Default Expression `json:"default,omitempty"`
}

type MacroDefinition struct {
	nodeImpl
	instructionMarker

	Name       string        `json:"name"`
	Params     []*MacroParam `json:"params"`
	CatchAll   string        `json:"catchAll,omitempty"`
	Body       Instruction   `json:"body,omitempty"`
	IsFunction bool          `json:"isFunction"`
}

func NewMacroDefinition(name string, params []*MacroParam, catchAll string, body Instruction, isFunction bool) *MacroDefinition {
	return &MacroDefinition{
		nodeImpl:   newNodeImpl(NodeMacroDefinition),
		Name:       name,
		Params:     params,
		CatchAll:   catchAll,
		Body:       body,
		IsFunction: isFunction,
	}
}

func (n *MacroDefinition) Symbol() string {
	if n.IsFunction {
		return "#function"
	}
	return "#macro"
}

func (n *MacroDefinition) Parameters() []Parameter {
	params := make([]Parameter, 0, 2+len(n.Params)*2)
	params = append(params, Parameter{Role: RoleMacroName, Value: n.Name})
	for _, p := range n.Params {
		params = append(params, Parameter{Role: RoleParameterName, Value: p.Name})
		params = append(params, exprParam(RoleParameterDefault, p.Default))
	}
	params = append(params, Parameter{Role: RoleCatchAll, Value: n.CatchAll})
	return params
}

func (n *MacroDefinition) Dump(canonical bool) string {
	var b strings.Builder
	if canonical {
		b.WriteByte('<')
	}
	b.WriteString(n.Symbol())
	b.WriteByte(' ')
	b.WriteString(identifierForm(n.Name))
	if n.IsFunction {
		b.WriteByte('(')
	}
	for idx, p := range n.Params {
		if idx > 0 {
			if n.IsFunction {
				b.WriteString(", ")
			} else {
				b.WriteByte(' ')
			}
		} else if !n.IsFunction {
			b.WriteByte(' ')
		}
		b.WriteString(identifierForm(p.Name))
		if p.Default != nil {
			b.WriteByte('=')
			b.WriteString(CanonicalForm(p.Default))
		}
	}
	if n.CatchAll != "" {
		if len(n.Params) > 0 && n.IsFunction {
			b.WriteString(", ")
		} else {
			b.WriteByte(' ')
		}
		b.WriteString(identifierForm(n.CatchAll))
		b.WriteString("...")
	}
	if n.IsFunction {
		b.WriteByte(')')
	}
	if canonical {
		b.WriteByte('>')
		b.WriteString(CanonicalForm(n.Body))
		b.WriteString("</")
		b.WriteString(n.Symbol())
		b.WriteByte('>')
	}
	return b.String()
}

// UnifiedCall invokes a user-defined directive: <@name a=1; x>...</@name>.

type NamedArg struct {
	Name  string     `json:"name"`
	Value Expression `json:"value"`
}

type UnifiedCall struct {
	nodeImpl
	instructionMarker

	Callee   Expression  `json:"callee"`
	Args     []*NamedArg `json:"args,omitempty"`
	LoopVars []string    `json:"loopVars,omitempty"`
	Body     Instruction `json:"body,omitempty"`
}

func NewUnifiedCall(callee Expression, args []*NamedArg, loopVars []string, body Instruction) *UnifiedCall {
	return &UnifiedCall{nodeImpl: newNodeImpl(NodeUnifiedCall), Callee: callee, Args: args, LoopVars: loopVars, Body: body}
}

func (n *UnifiedCall) Symbol() string { return "@" }
func (n *UnifiedCall) Parameters() []Parameter {
	params := make([]Parameter, 0, 1+len(n.Args)*2+len(n.LoopVars))
	params = append(params, exprParam(RoleCallee, n.Callee))
	for _, arg := range n.Args {
		params = append(params, Parameter{Role: RoleArgumentName, Value: arg.Name})
		params = append(params, exprParam(RoleArgumentValue, arg.Value))
	}
	for _, name := range n.LoopVars {
		params = append(params, Parameter{Role: RoleLoopVariable, Value: name})
	}
	return params
}

func (n *UnifiedCall) Dump(canonical bool) string {
	var b strings.Builder
	if canonical {
		b.WriteByte('<')
	}
	b.WriteByte('@')
	callee := CanonicalForm(n.Callee)
	b.WriteString(callee)
	for _, arg := range n.Args {
		b.WriteByte(' ')
		b.WriteString(identifierForm(arg.Name))
		b.WriteByte('=')
		b.WriteString(CanonicalForm(arg.Value))
	}
	if len(n.LoopVars) > 0 {
		b.WriteString("; ")
		b.WriteString(strings.Join(n.LoopVars, ", "))
	}
	if canonical {
		if n.Body == nil {
			b.WriteString("/>")
		} else {
			b.WriteByte('>')
			b.WriteString(CanonicalForm(n.Body))
			b.WriteString("</@")
			b.WriteString(callee)
			b.WriteByte('>')
		}
	}
	return b.String()
}

// NestedInstruction runs the nested content of the current macro call.

type NestedInstruction struct {
	nodeImpl
	instructionMarker

	Values []Expression `json:"values,omitempty"`
}

func NewNestedInstruction(values []Expression) *NestedInstruction {
	return &NestedInstruction{nodeImpl: newNodeImpl(NodeNestedInstruction), Values: values}
}

func (n *NestedInstruction) Symbol() string { return "#nested" }
func (n *NestedInstruction) Parameters() []Parameter {
	params := make([]Parameter, 0, len(n.Values))
	for _, v := range n.Values {
		params = append(params, exprParam(RolePassedValue, v))
	}
	return params
}

func (n *NestedInstruction) Dump(canonical bool) string {
	var b strings.Builder
	if canonical {
		b.WriteByte('<')
	}
	b.WriteString(n.Symbol())
	for idx, v := range n.Values {
		if idx == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		b.WriteString(CanonicalForm(v))
	}
	if canonical {
		b.WriteString("/>")
	}
	return b.String()
}

type ReturnInstruction struct {
	nodeImpl
	instructionMarker

	Value Expression `json:"value,omitempty"`
}

func NewReturnInstruction(value Expression) *ReturnInstruction {
	return &ReturnInstruction{nodeImpl: newNodeImpl(NodeReturnInstruction), Value: value}
}

func (n *ReturnInstruction) Symbol() string { return "#return" }
func (n *ReturnInstruction) Parameters() []Parameter {
	return []Parameter{exprParam(RoleValue, n.Value)}
}

func (n *ReturnInstruction) Dump(canonical bool) string {
	body := n.Symbol()
	if n.Value != nil {
		body += " " + CanonicalForm(n.Value)
	}
	if canonical {
		return "<" + body + "/>"
	}
	return body
}

// ImportInstruction loads a library into its own namespace: #import "lib" as ns.

type ImportInstruction struct {
	nodeImpl
	instructionMarker

	TemplateName Expression `json:"templateName"`
	Namespace    string     `json:"namespace"`
}

func NewImportInstruction(templateName Expression, namespace string) *ImportInstruction {
	return &ImportInstruction{nodeImpl: newNodeImpl(NodeImportInstruction), TemplateName: templateName, Namespace: namespace}
}

func (n *ImportInstruction) Symbol() string { return "#import" }
func (n *ImportInstruction) Parameters() []Parameter {
	return []Parameter{
		exprParam(RoleTemplateName, n.TemplateName),
		{Role: RoleNamespace, Value: n.Namespace},
	}
}

func (n *ImportInstruction) Dump(canonical bool) string {
	body := n.Symbol() + " " + CanonicalForm(n.TemplateName) + " as " + identifierForm(n.Namespace)
	if canonical {
		return "<" + body + ">"
	}
	return body
}

type IncludeInstruction struct {
	nodeImpl
	instructionMarker

	TemplateName Expression `json:"templateName"`
}

func NewIncludeInstruction(templateName Expression) *IncludeInstruction {
	return &IncludeInstruction{nodeImpl: newNodeImpl(NodeIncludeInstruction), TemplateName: templateName}
}

func (n *IncludeInstruction) Symbol() string { return "#include" }
func (n *IncludeInstruction) Parameters() []Parameter {
	return []Parameter{exprParam(RoleTemplateName, n.TemplateName)}
}

func (n *IncludeInstruction) Dump(canonical bool) string {
	body := n.Symbol() + " " + CanonicalForm(n.TemplateName)
	if canonical {
		return "<" + body + ">"
	}
	return body
}

// RecurseNode visits the children of a document node, optionally restricted
// to the namespaces named after "using".

type RecurseNode struct {
	nodeImpl
	instructionMarker

	TargetNode Expression `json:"targetNode,omitempty"`
	Namespaces Expression `json:"namespaces,omitempty"`
}

func NewRecurseNode(targetNode, namespaces Expression) *RecurseNode {
	return &RecurseNode{nodeImpl: newNodeImpl(NodeRecurseNode), TargetNode: targetNode, Namespaces: namespaces}
}

func (n *RecurseNode) Symbol() string { return "#recurse" }
func (n *RecurseNode) Parameters() []Parameter {
	return []Parameter{
		exprParam(RoleNode, n.TargetNode),
		exprParam(RoleNamespace, n.Namespaces),
	}
}

func (n *RecurseNode) Dump(canonical bool) string {
	return dumpTraversal(n.Symbol(), n.TargetNode, n.Namespaces, canonical)
}

// VisitNode dispatches a single document node to its handler.

type VisitNode struct {
	nodeImpl
	instructionMarker

	TargetNode Expression `json:"targetNode"`
	Namespaces Expression `json:"namespaces,omitempty"`
}

func NewVisitNode(targetNode, namespaces Expression) *VisitNode {
	return &VisitNode{nodeImpl: newNodeImpl(NodeVisitNode), TargetNode: targetNode, Namespaces: namespaces}
}

func (n *VisitNode) Symbol() string { return "#visit" }
func (n *VisitNode) Parameters() []Parameter {
	return []Parameter{
		exprParam(RoleNode, n.TargetNode),
		exprParam(RoleNamespace, n.Namespaces),
	}
}

func (n *VisitNode) Dump(canonical bool) string {
	return dumpTraversal(n.Symbol(), n.TargetNode, n.Namespaces, canonical)
}

func dumpTraversal(symbol string, target, namespaces Expression, canonical bool) string {
	var b strings.Builder
	if canonical {
		b.WriteByte('<')
	}
	b.WriteString(symbol)
	if target != nil {
		b.WriteByte(' ')
		b.WriteString(CanonicalForm(target))
	}
	if namespaces != nil {
		b.WriteString(" using ")
		b.WriteString(CanonicalForm(namespaces))
	}
	if canonical {
		b.WriteString("/>")
	}
	return b.String()
}

// FallbackInstruction hands the current node to the next matching handler.

type FallbackInstruction struct {
	nodeImpl
	instructionMarker
}

func NewFallbackInstruction() *FallbackInstruction {
	return &FallbackInstruction{nodeImpl: newNodeImpl(NodeFallbackInstruction)}
}

func (n *FallbackInstruction) Symbol() string          { return "#fallback" }
func (n *FallbackInstruction) Parameters() []Parameter { return nil }

func (n *FallbackInstruction) Dump(canonical bool) string {
	if canonical {
		return "<#fallback/>"
	}
	return n.Symbol()
}

type StopInstruction struct {
	nodeImpl
	instructionMarker

	Message Expression `json:"message,omitempty"`
}

func NewStopInstruction(message Expression) *StopInstruction {
	return &StopInstruction{nodeImpl: newNodeImpl(NodeStopInstruction), Message: message}
}

func (n *StopInstruction) Symbol() string { return "#stop" }
func (n *StopInstruction) Parameters() []Parameter {
	return []Parameter{exprParam(RoleMessage, n.Message)}
}

func (n *StopInstruction) Dump(canonical bool) string {
	body := n.Symbol()
	if n.Message != nil {
		body += " " + CanonicalForm(n.Message)
	}
	if canonical {
		return "<" + body + "/>"
	}
	return body
}
