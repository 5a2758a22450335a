package ast

// Builder helpers used by tests and embedding hosts to assemble trees without
// a parser.

// Literal and variable helpers.

func ID(name string) *Identifier {
	return NewIdentifier(name)
}

func Str(value string) *StringLiteral {
	return NewStringLiteral(value)
}

func Num(value float64) *NumberLiteral {
	return NewNumberLiteral(value)
}

func Bool(value bool) *BooleanLiteral {
	return NewBooleanLiteral(value)
}

func List(items ...Expression) *ListLiteral {
	return NewListLiteral(items)
}

func StrList(values ...string) *ListLiteral {
	items := make([]Expression, 0, len(values))
	for _, v := range values {
		items = append(items, Str(v))
	}
	return NewListLiteral(items)
}

// Hash builds a hash literal from alternating key and value expressions.
func Hash(pairs ...Expression) *HashLiteral {
	if len(pairs)%2 != 0 {
		panic("ast: Hash expects key/value pairs")
	}
	entries := make([]*HashEntry, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		entries = append(entries, &HashEntry{Key: pairs[i], Value: pairs[i+1]})
	}
	return NewHashLiteral(entries)
}

func Special(name string) *SpecialVariable {
	return NewSpecialVariable(name)
}

func Dot(target Expression, names ...string) Expression {
	expr := target
	for _, name := range names {
		expr = NewDotVariable(expr, name)
	}
	return expr
}

func Key(target, key Expression) *DynamicKey {
	return NewDynamicKey(target, key)
}

func Call(target Expression, args ...Expression) *MethodCall {
	return NewMethodCall(target, args)
}

func BI(target Expression, name string) *BuiltIn {
	return NewBuiltIn(target, name)
}

func Default(target, def Expression) *DefaultTo {
	return NewDefaultTo(target, def)
}

func Has(target Expression) *Exists {
	return NewExists(target)
}

// Operator helpers.

func Cmp(op string, left, right Expression) *Comparison {
	return NewComparison(op, left, right)
}

func AndE(left, right Expression) *And {
	return NewAnd(left, right)
}

func OrE(left, right Expression) *Or {
	return NewOr(left, right)
}

func NotE(operand Expression) *Not {
	return NewNot(operand)
}

func Add(left, right Expression) *AddConcat {
	return NewAddConcat(left, right)
}

func Arith(op string, left, right Expression) *Arithmetic {
	return NewArithmetic(op, left, right)
}

func Neg(operand Expression) *Negate {
	return NewNegate(operand)
}

func Paren(nested Expression) *Parenthetical {
	return NewParenthetical(nested)
}

// Instruction helpers.

func Text(text string) *TextBlock {
	return NewTextBlock(text)
}

func Interp(expr Expression) *Interpolation {
	return NewInterpolation(expr)
}

// Seq groups instructions; a single instruction is returned unwrapped.
func Seq(children ...Instruction) Instruction {
	if len(children) == 1 {
		return children[0]
	}
	return NewMixedContent(children)
}

func If(cond Expression, body Instruction) *IfBlock {
	return NewIfBlock([]*ConditionalBlock{NewConditionalBlock(ConditionalIf, cond, body)})
}

func IfElse(cond Expression, body, elseBody Instruction) *IfBlock {
	return NewIfBlock([]*ConditionalBlock{
		NewConditionalBlock(ConditionalIf, cond, body),
		NewConditionalBlock(ConditionalElse, nil, elseBody),
	})
}

func ListOf(source Expression, loopVariable string, body Instruction) *ListBlock {
	return NewListBlock(source, loopVariable, body, nil)
}

func Sep(body Instruction) *SepBlock {
	return NewSepBlock(body)
}

func Break() *BreakInstruction {
	return NewBreakInstruction()
}

func Assign(name string, value Expression) *Assignment {
	return NewAssignment(ScopeNamespace, name, value)
}

func Global(name string, value Expression) *Assignment {
	return NewAssignment(ScopeGlobal, name, value)
}

func Local(name string, value Expression) *Assignment {
	return NewAssignment(ScopeLocal, name, value)
}

func Par(name string) *MacroParam {
	return &MacroParam{Name: name}
}

func ParDefault(name string, def Expression) *MacroParam {
	return &MacroParam{Name: name, Default: def}
}

func Macro(name string, params []*MacroParam, body Instruction) *MacroDefinition {
	return NewMacroDefinition(name, params, "", body, false)
}

func Function(name string, params []*MacroParam, body Instruction) *MacroDefinition {
	return NewMacroDefinition(name, params, "", body, true)
}

func Arg(name string, value Expression) *NamedArg {
	return &NamedArg{Name: name, Value: value}
}

func Invoke(callee Expression, args []*NamedArg, body Instruction) *UnifiedCall {
	return NewUnifiedCall(callee, args, nil, body)
}

func Nested(values ...Expression) *NestedInstruction {
	return NewNestedInstruction(values)
}

func Return(value Expression) *ReturnInstruction {
	return NewReturnInstruction(value)
}

func Import(name, namespace string) *ImportInstruction {
	return NewImportInstruction(Str(name), namespace)
}

func Include(name string) *IncludeInstruction {
	return NewIncludeInstruction(Str(name))
}

func Recurse(target, namespaces Expression) *RecurseNode {
	return NewRecurseNode(target, namespaces)
}

func Visit(target, namespaces Expression) *VisitNode {
	return NewVisitNode(target, namespaces)
}

func Fallback() *FallbackInstruction {
	return NewFallbackInstruction()
}

func Stop(message Expression) *StopInstruction {
	return NewStopInstruction(message)
}

// Tmpl builds a template from a sequence of root instructions.
func Tmpl(name string, children ...Instruction) *Template {
	return NewTemplate(name, NewMixedContent(children))
}
