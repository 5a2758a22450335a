package interpreter

import (
	"errors"
	"strings"
	"testing"

	"ftl/interpreter-go/pkg/ast"
)

func expressionData() map[string]any {
	return map[string]any{
		"x":      "set",
		"h":      map[string]any{"k": "v"},
		"doc":    itemDocument(),
		"repeat": func(s string) string { return strings.Repeat(s, 2) },
	}
}

func TestExpressions(t *testing.T) {
	firstItem := ast.BI(ast.BI(ast.ID("doc"), "children"), "first")
	cases := []struct {
		name string
		expr ast.Expression
		want string
	}{
		{"add numbers", ast.Add(ast.Num(1), ast.Num(2)), "3"},
		{"concat string and number", ast.Add(ast.Str("a"), ast.Num(1)), "a1"},
		{"divide", ast.Arith("/", ast.Num(7), ast.Num(2)), "3.5"},
		{"modulo", ast.Arith("%", ast.Num(7), ast.Num(3)), "1"},
		{"negate", ast.Neg(ast.Num(3)), "-3"},
		{"parenthetical", ast.Arith("*", ast.Paren(ast.Add(ast.Num(1), ast.Num(2))), ast.Num(2)), "6"},
		{"less than", ast.Cmp("<", ast.Num(1), ast.Num(2)), "true"},
		{"string equality", ast.Cmp("==", ast.Str("a"), ast.Str("a")), "true"},
		{"string ordering", ast.Cmp(">=", ast.Str("a"), ast.Str("b")), "false"},
		{"boolean inequality", ast.Cmp("!=", ast.Bool(true), ast.Bool(false)), "true"},
		{"and short circuits", ast.AndE(ast.Bool(false), ast.ID("nope")), "false"},
		{"or short circuits", ast.OrE(ast.Bool(true), ast.ID("nope")), "true"},
		{"not", ast.NotE(ast.Bool(true)), "false"},
		{"default for missing", ast.Default(ast.ID("nope"), ast.Str("d")), "d"},
		{"default along a chain", ast.Default(ast.Dot(ast.ID("nope"), "deep"), ast.Str("d")), "d"},
		{"default keeps value", ast.Default(ast.ID("x"), ast.Str("d")), "set"},
		{"default without fallback", ast.Default(ast.ID("nope"), nil), ""},
		{"exists missing", ast.Has(ast.ID("nope")), "false"},
		{"exists present", ast.Has(ast.Dot(ast.ID("h"), "k")), "true"},
		{"sequence index", ast.Key(ast.StrList("a", "b"), ast.Num(1)), "b"},
		{"hash key", ast.Key(ast.ID("h"), ast.Str("k")), "v"},
		{"absent key defaults", ast.Default(ast.Dot(ast.ID("h"), "absent"), ast.Str("none")), "none"},
		{"host method", ast.Call(ast.ID("repeat"), ast.Str("ab")), "abab"},
		{"sequence concat", ast.BI(ast.Add(ast.StrList("a"), ast.StrList("b", "c")), "size"), "3"},
		{"hash merge", ast.Dot(ast.Add(ast.Hash(ast.Str("a"), ast.Num(1)), ast.Hash(ast.Str("a"), ast.Num(2))), "a"), "2"},
		{"hash literal", ast.Dot(ast.Hash(ast.Str("k"), ast.Str("v")), "k"), "v"},
		{"trim", ast.BI(ast.Str(" hi "), "trim"), "hi"},
		{"upper case", ast.BI(ast.Str("abc"), "upper_case"), "ABC"},
		{"lower case", ast.BI(ast.Str("ABC"), "lower_case"), "abc"},
		{"length counts runes", ast.BI(ast.Str("héllo"), "length"), "5"},
		{"cap first", ast.BI(ast.Str("  word"), "cap_first"), "  Word"},
		{"size", ast.BI(ast.StrList("a", "b"), "size"), "2"},
		{"hash size", ast.BI(ast.ID("h"), "size"), "1"},
		{"first", ast.BI(ast.StrList("a", "b"), "first"), "a"},
		{"last", ast.BI(ast.StrList("a", "b"), "last"), "b"},
		{"has_content missing", ast.BI(ast.ID("nope"), "has_content"), "false"},
		{"has_content empty", ast.BI(ast.Str(""), "has_content"), "false"},
		{"has_content sequence", ast.BI(ast.StrList("a"), "has_content"), "true"},
		{"is_number", ast.BI(ast.Num(1), "is_number"), "true"},
		{"is_string on number", ast.BI(ast.Num(1), "is_string"), "false"},
		{"is_node", ast.BI(ast.ID("doc"), "is_node"), "true"},
		{"keys", ast.BI(ast.BI(ast.Hash(ast.Str("a"), ast.Num(1), ast.Str("b"), ast.Num(2)), "keys"), "last"), "b"},
		{"values", ast.BI(ast.BI(ast.Hash(ast.Str("a"), ast.Num(1), ast.Str("b"), ast.Num(2)), "values"), "first"), "1"},
		{"number to string", ast.Add(ast.BI(ast.Num(3), "string"), ast.Str("!")), "3!"},
		{"node name", ast.BI(ast.ID("doc"), "node_name"), "root"},
		{"node type", ast.BI(ast.ID("doc"), "node_type"), "element"},
		{"child", ast.BI(firstItem, "node_name"), "item"},
		{"parent", ast.BI(ast.BI(firstItem, "parent"), "node_name"), "root"},
		{"root", ast.BI(ast.BI(firstItem, "root"), "node_name"), "root"},
		{"ancestors", ast.BI(ast.BI(firstItem, "ancestors"), "size"), "1"},
		{"element text", firstItem, "1"},
		{"child elements by name", ast.BI(ast.Dot(ast.ID("doc"), "item"), "size"), "2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mustRender(t, New(), ast.Tmpl("expr", ast.Interp(tc.expr)), expressionData())
			if got != tc.want {
				t.Fatalf("%s = %q, want %q", ast.CanonicalForm(tc.expr), got, tc.want)
			}
		})
	}
}

func TestExpressionErrors(t *testing.T) {
	cases := []struct {
		name string
		expr ast.Expression
		want error
	}{
		{"division by zero", ast.Arith("/", ast.Num(1), ast.Num(0)), ErrArgument},
		{"add boolean", ast.Add(ast.Bool(true), ast.Num(1)), ErrTypeMismatch},
		{"order booleans", ast.Cmp("<", ast.Bool(true), ast.Bool(false)), ErrTypeMismatch},
		{"compare mixed", ast.Cmp("==", ast.Num(1), ast.Str("1")), ErrTypeMismatch},
		{"index a string", ast.Key(ast.Str("x"), ast.Num(0)), ErrNonSequence},
		{"fractional index", ast.Key(ast.StrList("a"), ast.Num(0.5)), ErrTypeMismatch},
		{"upper case number", ast.BI(ast.Num(1), "upper_case"), ErrNonString},
		{"node name of number", ast.BI(ast.Num(1), "node_name"), ErrNonNode},
		{"size of number", ast.BI(ast.Num(1), "size"), ErrNonSequence},
		{"unknown built-in", ast.BI(ast.Str("x"), "bogus"), ErrUnboundReference},
		{"dot on string", ast.Dot(ast.Str("x"), "y"), ErrTypeMismatch},
		{"dot on missing", ast.Dot(ast.ID("nope"), "y"), ErrUnboundReference},
		{"and of number", ast.AndE(ast.Num(1), ast.Bool(true)), ErrTypeMismatch},
		{"list with missing item", ast.BI(ast.List(ast.ID("nope")), "size"), ErrUnboundReference},
		{"call a string", ast.Call(ast.Str("x")), ErrTypeMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := renderString(t, New(), ast.Tmpl("expr", ast.Interp(tc.expr)), expressionData())
			if !errors.Is(err, tc.want) {
				t.Fatalf("%s: expected %v, got %v", ast.CanonicalForm(tc.expr), tc.want, err)
			}
		})
	}
}

func TestTypeMismatchMessage(t *testing.T) {
	_, err := renderString(t, New(), ast.Tmpl("expr", ast.Interp(ast.BI(ast.Dot(ast.ID("h"), "k"), "node_name"))), expressionData())
	var mismatch *TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *TypeMismatchError, got %v", err)
	}
	want := "expected node, but h.k has evaluated to string"
	if mismatch.Error() != want {
		t.Fatalf("got %q, want %q", mismatch.Error(), want)
	}
}
