package ast

import "fmt"

type NodeType string

const (
	// Instructions.
	NodeTextBlock           NodeType = "TextBlock"
	NodeInterpolation       NodeType = "Interpolation"
	NodeMixedContent        NodeType = "MixedContent"
	NodeIfBlock             NodeType = "IfBlock"
	NodeConditionalBlock    NodeType = "ConditionalBlock"
	NodeListBlock           NodeType = "ListBlock"
	NodeSepBlock            NodeType = "SepBlock"
	NodeBreakInstruction    NodeType = "BreakInstruction"
	NodeAssignment          NodeType = "Assignment"
	NodeMacroDefinition     NodeType = "MacroDefinition"
	NodeUnifiedCall         NodeType = "UnifiedCall"
	NodeNestedInstruction   NodeType = "NestedInstruction"
	NodeReturnInstruction   NodeType = "ReturnInstruction"
	NodeImportInstruction   NodeType = "ImportInstruction"
	NodeIncludeInstruction  NodeType = "IncludeInstruction"
	NodeRecurseNode         NodeType = "RecurseNode"
	NodeVisitNode           NodeType = "VisitNode"
	NodeFallbackInstruction NodeType = "FallbackInstruction"
	NodeStopInstruction     NodeType = "StopInstruction"

	// Expressions.
	NodeStringLiteral   NodeType = "StringLiteral"
	NodeNumberLiteral   NodeType = "NumberLiteral"
	NodeBooleanLiteral  NodeType = "BooleanLiteral"
	NodeListLiteral     NodeType = "ListLiteral"
	NodeHashLiteral     NodeType = "HashLiteral"
	NodeIdentifier      NodeType = "Identifier"
	NodeSpecialVariable NodeType = "SpecialVariable"
	NodeDotVariable     NodeType = "DotVariable"
	NodeDynamicKey      NodeType = "DynamicKey"
	NodeMethodCall      NodeType = "MethodCall"
	NodeBuiltIn         NodeType = "BuiltIn"
	NodeDefaultTo       NodeType = "DefaultTo"
	NodeExists          NodeType = "Exists"
	NodeComparison      NodeType = "Comparison"
	NodeAnd             NodeType = "And"
	NodeOr              NodeType = "Or"
	NodeNot             NodeType = "Not"
	NodeAddConcat       NodeType = "AddConcat"
	NodeArithmetic      NodeType = "Arithmetic"
	NodeNegate          NodeType = "Negate"
	NodeParenthetical   NodeType = "Parenthetical"
)

// Node is the shared contract of every AST node. Nodes are immutable once built
// and may be read concurrently by independent renders.
type Node interface {
	NodeType() NodeType
	Span() Span
	// Symbol is a short tag for the node kind, usually the instruction keyword.
	Symbol() string
	// Parameters lists the node's child parameters with their semantic roles.
	Parameters() []Parameter
	Dump(canonical bool) string
	ShownInStackTrace() bool
	isNode()
}

type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

type nodeImpl struct {
	Type NodeType `json:"type"`
	span Span
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (n nodeImpl) Span() Span         { return n.span }
func (nodeImpl) isNode()              {}
func (n *nodeImpl) setSpan(span Span) { n.span = span }

// Marker interfaces.

// Instruction is executed for its effect on the environment and the output.
type Instruction interface {
	Node
	instructionNode()
	// NestedBlockRepeater reports whether the instruction may run its nested
	// content more than once.
	NestedBlockRepeater() bool
}

type instructionMarker struct{}

func (instructionMarker) instructionNode()          {}
func (instructionMarker) NestedBlockRepeater() bool { return false }
func (instructionMarker) ShownInStackTrace() bool   { return true }

// Expression is evaluated for a value.
type Expression interface {
	Node
	expressionNode()
}

type expressionMarker struct{}

func (expressionMarker) expressionNode()         {}
func (expressionMarker) ShownInStackTrace() bool { return false }

type Literal interface {
	Expression
	literalNode()
}

type literalMarker struct{}

func (literalMarker) literalNode() {}

// ParamRole tags the semantic role of a node parameter.
type ParamRole string

const (
	RoleContent          ParamRole = "content"
	RoleCondition        ParamRole = "condition"
	RoleElseContent      ParamRole = "else content"
	RoleListSource       ParamRole = "list source"
	RoleLoopVariable     ParamRole = "target loop variable"
	RoleAssignmentScope  ParamRole = "variable scope"
	RoleAssignmentTarget ParamRole = "assignment target"
	RoleAssignmentSource ParamRole = "assignment source"
	RoleMacroName        ParamRole = "macro name"
	RoleParameterName    ParamRole = "parameter name"
	RoleParameterDefault ParamRole = "parameter default"
	RoleCatchAll         ParamRole = "catch-all parameter name"
	RoleCallee           ParamRole = "callee"
	RoleArgumentName     ParamRole = "argument name"
	RoleArgumentValue    ParamRole = "argument value"
	RolePassedValue      ParamRole = "passed value"
	RoleTemplateName     ParamRole = "template name"
	RoleNamespace        ParamRole = "namespace"
	RoleNode             ParamRole = "node"
	RoleMessage          ParamRole = "message"
	RoleValue            ParamRole = "value"
	RoleItemValue        ParamRole = "item value"
	RoleItemKey          ParamRole = "item key"
	RoleVariableName     ParamRole = "variable name"
	RoleLeftOperand      ParamRole = "left-hand operand"
	RoleRightOperand     ParamRole = "right-hand operand"
	RoleOperand          ParamRole = "operand"
	RoleAST              ParamRole = "AST-node subtype"
	RoleDefaultValue     ParamRole = "default value"
	RoleBuiltInName      ParamRole = "built-in name"
	RoleEnclosedOperand  ParamRole = "enclosed operand"
	RoleTarget           ParamRole = "target"
	RoleKey              ParamRole = "key"
)

// Parameter is one child slot of a node. Value is a Node, a string, a bool or
// nil for an absent optional child.
type Parameter struct {
	Role  ParamRole
	Value any
}

// IndexOutOfRange is raised (as a panic) for a parameter index past the
// node's arity; it is a programming error, not a template error.
type IndexOutOfRange struct {
	Node  NodeType
	Index int
	Count int
}

func (e IndexOutOfRange) Error() string {
	return fmt.Sprintf("ast: parameter index %d out of range for %s (count %d)", e.Index, e.Node, e.Count)
}

// ParamCount returns the node's fixed parameter arity.
func ParamCount(n Node) int {
	if n == nil {
		return 0
	}
	return len(n.Parameters())
}

// Param returns the parameter value at idx.
func Param(n Node, idx int) any {
	return paramAt(n, idx).Value
}

// ParamRoleAt returns the role of the parameter at idx.
func ParamRoleAt(n Node, idx int) ParamRole {
	return paramAt(n, idx).Role
}

func paramAt(n Node, idx int) Parameter {
	params := n.Parameters()
	if idx < 0 || idx >= len(params) {
		panic(IndexOutOfRange{Node: n.NodeType(), Index: idx, Count: len(params)})
	}
	return params[idx]
}

// exprParam keeps absent optional expressions as an untyped nil.
func exprParam(role ParamRole, expr Expression) Parameter {
	if expr == nil {
		return Parameter{Role: role}
	}
	return Parameter{Role: role, Value: expr}
}

func instParam(role ParamRole, inst Instruction) Parameter {
	if inst == nil {
		return Parameter{Role: role}
	}
	return Parameter{Role: role, Value: inst}
}

// CanonicalForm renders the node as template source.
func CanonicalForm(n Node) string {
	if n == nil {
		return ""
	}
	return n.Dump(true)
}

// DebugForm renders the node in the short form used by dumps and stack traces.
func DebugForm(n Node) string {
	if n == nil {
		return ""
	}
	return n.Dump(false)
}
