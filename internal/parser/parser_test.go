package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"arrayviz/internal/errors"
)

// Test helper to check if parsing succeeds
func assertParseSuccess(t *testing.T, input string) *Program {
	t.Helper()
	prog, err := ParseSource(input)
	if err != nil {
		t.Fatalf("parsing %q failed: %v", input, err)
	}
	return prog
}

// Test helper to check if parsing fails
func assertParseError(t *testing.T, input string) *errors.Error {
	t.Helper()
	_, err := ParseSource(input)
	e, ok := errors.As(err)
	if !ok {
		t.Fatalf("expected parsing %q to fail, got %v", input, err)
	}
	return e
}

// sexpr renders an expression as a fully parenthesised string.
func sexpr(e Expr) string {
	switch n := e.(type) {
	case *NumberLiteral:
		return n.Raw
	case *StringLiteral:
		return fmt.Sprintf("%q", n.Value)
	case *FStringLiteral:
		return fmt.Sprintf("f%q", n.Template)
	case *BooleanLiteral:
		return fmt.Sprint(n.Value)
	case *NoneLiteral:
		return "None"
	case *Identifier:
		return n.Name
	case *Binary:
		return fmt.Sprintf("(%s %s %s)", n.Operator, sexpr(n.Left), sexpr(n.Right))
	case *Comparison:
		return fmt.Sprintf("(%s %s %s)", n.Operator, sexpr(n.Left), sexpr(n.Right))
	case *Unary:
		return fmt.Sprintf("(%s %s)", n.Operator, sexpr(n.Operand))
	case *Conditional:
		return fmt.Sprintf("(if %s %s %s)", sexpr(n.Condition), sexpr(n.Then), sexpr(n.Else))
	case *FuncCall:
		return fmt.Sprintf("(call %s%s)", n.Name.Name, args(n.Args))
	case *MethodCall:
		return fmt.Sprintf("(.%s %s%s)", n.Method.Name, sexpr(n.Receiver), args(n.Args))
	case *ListAccess:
		return fmt.Sprintf("(index %s %s)", sexpr(n.Target), sexpr(n.Index))
	case *ListSlice:
		return fmt.Sprintf("(slice %s %s %s %s)", sexpr(n.Target), opt(n.Start), opt(n.Stop), opt(n.Step))
	case *ListLiteral:
		parts := make([]string, len(n.Elements))
		for i, el := range n.Elements {
			parts[i] = sexpr(el)
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	return fmt.Sprintf("<%T>", e)
}

func args(a *ArgList) string {
	var sb strings.Builder
	for _, arg := range a.Args {
		sb.WriteString(" " + sexpr(arg))
	}
	return sb.String()
}

func opt(e Expr) string {
	if e == nil {
		return "_"
	}
	return sexpr(e)
}

func parseExpr(t *testing.T, src string) Expr {
	t.Helper()
	prog := assertParseSuccess(t, src)
	if len(prog.Body) != 1 {
		t.Fatalf("expected one statement, got %d", len(prog.Body))
	}
	stmt, ok := prog.Body[0].(*ExpressionStatement)
	if !ok {
		t.Fatalf("expected expression statement, got %T", prog.Body[0])
	}
	return stmt.Expr
}

func TestExpressionPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(+ 1 (* 2 3))"},
		{"1 - 2 - 3", "(- (- 1 2) 3)"},
		{"8 // 3 % 2", "(% (// 8 3) 2)"},
		{"2 ** 3 ** 2", "(** 2 (** 3 2))"},
		{"-2 ** 2", "(- (** 2 2))"},
		{"2 ** -1", "(** 2 (- 1))"},
		{"(1 + 2) * 3", "(* (+ 1 2) 3)"},
		{"not a == b", "(not (== a b))"},
		{"a and b or c", "(or (and a b) c)"},
		{"a or b and not c", "(or a (and b (not c)))"},
		{"x not in xs", "(not in x xs)"},
		{"x in xs", "(in x xs)"},
		{"a if c else b", "(if c a b)"},
		{"a if c else b if d else e", "(if c a (if d b e))"},
		{"1 + 2 < 4", "(< (+ 1 2) 4)"},
		{"f(1, g(2))", "(call f 1 (call g 2))"},
		{"xs[0][1]", "(index (index xs 0) 1)"},
		{"xs.append(4)", "(.append xs 4)"},
		{"name.upper().lower()", "(.lower (.upper name))"},
		{"[1, [2, 3], 'x']", `[1 [2 3] "x"]`},
		{"[]", "[]"},
		{"[1, 2,]", "[1 2]"},
		{"f'hi {n}'", `f"hi {n}"`},
		{"None", "None"},
		{"True != False", "(!= true false)"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := sexpr(parseExpr(t, tt.input)); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSliceCombinations(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"s[:]", "(slice s _ _ _)"},
		{"s[::]", "(slice s _ _ _)"},
		{"s[1:]", "(slice s 1 _ _)"},
		{"s[:2]", "(slice s _ 2 _)"},
		{"s[::3]", "(slice s _ _ 3)"},
		{"s[1:2]", "(slice s 1 2 _)"},
		{"s[1::3]", "(slice s 1 _ 3)"},
		{"s[:2:3]", "(slice s _ 2 3)"},
		{"s[1:2:3]", "(slice s 1 2 3)"},
		{"s[::-1]", "(slice s _ _ (- 1))"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := sexpr(parseExpr(t, tt.input)); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNumberLiterals(t *testing.T) {
	tests := []struct {
		input string
		want  NumberLiteral
	}{
		{"42", NumberLiteral{Raw: "42", Int: 42}},
		{"0x1F", NumberLiteral{Raw: "0x1F", Int: 31}},
		{"0b101", NumberLiteral{Raw: "0b101", Int: 5}},
		{"2.5", NumberLiteral{Raw: "2.5", Float: 2.5, IsFloat: true}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseExpr(t, tt.input).(*NumberLiteral)
			if diff := cmp.Diff(&tt.want, got, cmpopts.IgnoreTypes(Span{})); diff != "" {
				t.Errorf("literal mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStatements(t *testing.T) {
	src := strings.Join([]string{
		"x = 1",
		"nums[0] = 9",
		"total += x",
		"if x > 0:",
		"    pass",
		"elif x < 0:",
		"    x = -x",
		"else:",
		"    x = 0",
		"while x < 3: x = x + 1",
		"for n in nums:",
		"    if n: break",
		"    continue",
		"def f(a, b):",
		"    return a * b",
		"def g():",
		"    return",
		"",
	}, "\n")
	prog := assertParseSuccess(t, src)

	want := &Program{Body: []Stmt{
		&Assignment{Target: &Identifier{Name: "x"}, Value: &NumberLiteral{Raw: "1", Int: 1}},
		&Assignment{
			Target: &ListAccess{Target: &Identifier{Name: "nums"}, Index: &NumberLiteral{Raw: "0"}},
			Value:  &NumberLiteral{Raw: "9", Int: 9},
		},
		&Assignment{Target: &Identifier{Name: "total"}, Operator: "+", Value: &Identifier{Name: "x"}},
		&If{
			Condition: &Comparison{Operator: ">", Left: &Identifier{Name: "x"}, Right: &NumberLiteral{Raw: "0"}},
			Then:      &Block{Stmts: []Stmt{&Pass{}}},
			Else: &Elif{
				Condition: &Comparison{Operator: "<", Left: &Identifier{Name: "x"}, Right: &NumberLiteral{Raw: "0"}},
				Then: &Block{Stmts: []Stmt{&Assignment{
					Target: &Identifier{Name: "x"},
					Value:  &Unary{Operator: "-", Operand: &Identifier{Name: "x"}},
				}}},
				Else: &Block{Stmts: []Stmt{&Assignment{Target: &Identifier{Name: "x"}, Value: &NumberLiteral{Raw: "0"}}}},
			},
		},
		&While{
			Condition: &Comparison{Operator: "<", Left: &Identifier{Name: "x"}, Right: &NumberLiteral{Raw: "3", Int: 3}},
			Body: &Block{Stmts: []Stmt{&Assignment{
				Target: &Identifier{Name: "x"},
				Value:  &Binary{Operator: "+", Left: &Identifier{Name: "x"}, Right: &NumberLiteral{Raw: "1", Int: 1}},
			}}},
		},
		&For{
			Var:      &Identifier{Name: "n"},
			Iterable: &Identifier{Name: "nums"},
			Body: &Block{Stmts: []Stmt{
				&If{Condition: &Identifier{Name: "n"}, Then: &Block{Stmts: []Stmt{&Break{}}}},
				&Continue{},
			}},
		},
		&FuncDef{
			Name:   &Identifier{Name: "f"},
			Params: &FormalParamsList{Names: []*Identifier{{Name: "a"}, {Name: "b"}}},
			Body: &Block{Stmts: []Stmt{&Return{
				Value: &Binary{Operator: "*", Left: &Identifier{Name: "a"}, Right: &Identifier{Name: "b"}},
			}}},
		},
		&FuncDef{
			Name:   &Identifier{Name: "g"},
			Params: &FormalParamsList{},
			Body:   &Block{Stmts: []Stmt{&Return{}}},
		},
	}}

	opts := []cmp.Option{
		cmpopts.IgnoreTypes(Span{}),
		cmpopts.IgnoreFields(NumberLiteral{}, "Int"),
		cmpopts.EquateEmpty(),
	}
	if diff := cmp.Diff(want, prog, opts...); diff != "" {
		t.Errorf("program mismatch (-want +got):\n%s", diff)
	}
}

func TestSpans(t *testing.T) {
	prog := assertParseSuccess(t, "x = 1\nif x:\n    y = x + 22\n")
	ifStmt := prog.Body[1].(*If)
	if ifStmt.Start.Line != 2 || ifStmt.End.Line != 2 || ifStmt.End.Column != 6 {
		t.Errorf("if header span = %+v", ifStmt.Span)
	}
	assign := ifStmt.Then.Stmts[0].(*Assignment)
	value := assign.Value.(*Binary)
	if value.Start.Column != 9 || value.End.Column != 15 {
		t.Errorf("binary span = %+v", value.Span)
	}
	if ifStmt.Then.End != assign.End {
		t.Errorf("block end %+v != statement end %+v", ifStmt.Then.End, assign.End)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"chained comparison", "a < b < c", 1},
		{"assign to literal", "1 = x", 1},
		{"assign to call", "f() = 3", 1},
		{"missing colon", "if x\n    pass", 1},
		{"missing block", "while x:\ny = 1", 2},
		{"unexpected indent", "x = 1\n    y = 2", 2},
		{"unclosed paren", "print(1", 1},
		{"missing else", "a if b", 1},
		{"call on non-name", "xs[0](1)", 1},
		{"attribute without call", "xs.size", 1},
		{"duplicate parameter", "def f(a, a):\n    pass", 1},
		{"empty index", "xs[]", 1},
		{"trailing operator", "x = 1 +", 1},
		{"lex error surfaces", "x = 'oops", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := assertParseError(t, tt.input)
			if !e.Type.CompileTime() {
				t.Errorf("error type %s is not compile-time", e.Type)
			}
			if e.Location.Line != tt.line {
				t.Errorf("line = %d, want %d (%v)", e.Location.Line, tt.line, e)
			}
			if e.Source == "" {
				t.Errorf("source line not attached: %v", e)
			}
		})
	}
}

// The parser is deterministic: the same input always yields the same tree.
func TestParseIsDeterministic(t *testing.T) {
	src := "x = [1, 2][0] if a and not b else -c ** 2\nprint(x[::2], f'{x}')\n"
	first := assertParseSuccess(t, src)
	for i := 0; i < 5; i++ {
		again := assertParseSuccess(t, src)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("parse %d differs:\n%s", i, diff)
		}
	}
}
