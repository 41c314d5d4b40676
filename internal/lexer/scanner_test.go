package lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"arrayviz/internal/errors"
)

func types(t *testing.T, src string) []TokenType {
	t.Helper()
	tokens, err := NewScanner(src).ScanTokens()
	if err != nil {
		t.Fatalf("scan %q: %v", src, err)
	}
	out := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

func TestScanSimpleStatements(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []TokenType
	}{
		{
			name:  "assignment",
			input: "x = 2 + 3",
			want:  []TokenType{TokenIdent, TokenEqual, TokenNumber, TokenPlus, TokenNumber, TokenNewline, TokenEOF},
		},
		{
			name:  "operators longest match",
			input: "a //= b ** c != d <= e",
			want: []TokenType{TokenIdent, TokenFloorEqual, TokenIdent, TokenDoubleStar, TokenIdent,
				TokenNotEqual, TokenIdent, TokenLE, TokenIdent, TokenNewline, TokenEOF},
		},
		{
			name:  "keywords",
			input: "not x in y and True or None",
			want: []TokenType{TokenNot, TokenIdent, TokenIn, TokenIdent, TokenAnd, TokenTrue,
				TokenOr, TokenNone, TokenNewline, TokenEOF},
		},
		{
			name:  "comments and blank lines are dropped",
			input: "# header\n\nx = 1  # trailing\n\n",
			want:  []TokenType{TokenIdent, TokenEqual, TokenNumber, TokenNewline, TokenEOF},
		},
		{
			name:  "newlines inside brackets are ignored",
			input: "nums = [1,\n  2,\n  3]\n",
			want: []TokenType{TokenIdent, TokenEqual, TokenLBracket, TokenNumber, TokenComma,
				TokenNumber, TokenComma, TokenNumber, TokenRBracket, TokenNewline, TokenEOF},
		},
		{
			name:  "empty source",
			input: "",
			want:  []TokenType{TokenEOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, types(t, tt.input)); diff != "" {
				t.Errorf("token types mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScanIndentation(t *testing.T) {
	src := "while i < 3:\n  i = i + 1\n  if i:\n      pass\nprint(i)\n"
	want := []TokenType{
		TokenWhile, TokenIdent, TokenLT, TokenNumber, TokenColon, TokenNewline,
		TokenIndent, TokenIdent, TokenEqual, TokenIdent, TokenPlus, TokenNumber, TokenNewline,
		TokenIf, TokenIdent, TokenColon, TokenNewline,
		TokenIndent, TokenPass, TokenNewline,
		TokenDedent, TokenDedent, TokenIdent, TokenLParen, TokenIdent, TokenRParen, TokenNewline,
		TokenEOF,
	}
	if diff := cmp.Diff(want, types(t, src)); diff != "" {
		t.Errorf("token types mismatch (-want +got):\n%s", diff)
	}
}

func TestScanDedentsAtEOF(t *testing.T) {
	want := []TokenType{
		TokenDef, TokenIdent, TokenLParen, TokenRParen, TokenColon, TokenNewline,
		TokenIndent, TokenReturn, TokenNumber, TokenNewline, TokenDedent, TokenEOF,
	}
	if diff := cmp.Diff(want, types(t, "def f():\n    return 1")); diff != "" {
		t.Errorf("token types mismatch (-want +got):\n%s", diff)
	}
}

func TestScanInconsistentDedent(t *testing.T) {
	_, err := NewScanner("if x:\n    y = 1\n  z = 2\n").ScanTokens()
	if !errors.Is(err, errors.LexError) {
		t.Fatalf("expected LexError, got %v", err)
	}
	e, _ := errors.As(err)
	if e.Location.Line != 3 {
		t.Errorf("error line = %d, want 3", e.Location.Line)
	}
}

func TestScanLiterals(t *testing.T) {
	tests := []struct {
		input  string
		typ    TokenType
		lexeme string
	}{
		{"42", TokenNumber, "42"},
		{"0x1F", TokenNumber, "0x1F"},
		{"0b101", TokenNumber, "0b101"},
		{"3.25", TokenNumber, "3.25"},
		{`"hi"`, TokenString, "hi"},
		{`'it\'s'`, TokenString, "it's"},
		{`"say \"yes\""`, TokenString, `say "yes"`},
		{`"a\nb"`, TokenString, "a\nb"},
		{`f"x={x}"`, TokenFString, "x={x}"},
		{`f'{a} and {b}'`, TokenFString, "{a} and {b}"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens, err := NewScanner(tt.input).ScanTokens()
			if err != nil {
				t.Fatal(err)
			}
			if tokens[0].Type != tt.typ || tokens[0].Lexeme != tt.lexeme {
				t.Errorf("got %s %q, want %s %q", tokens[0].Type, tokens[0].Lexeme, tt.typ, tt.lexeme)
			}
		})
	}
}

func TestScanErrors(t *testing.T) {
	tests := []struct {
		input string
		line  int
		col   int
	}{
		{`x = "abc`, 1, 5},
		{"x = 0x", 1, 5},
		{"x = 0b102", 1, 5},
		{"y = 12abc", 1, 5},
		{"a = 1\nb = $", 2, 5},
		{"a = !b", 1, 5},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := NewScanner(tt.input).ScanTokens()
			e, ok := errors.As(err)
			if !ok || e.Type != errors.LexError {
				t.Fatalf("expected LexError, got %v", err)
			}
			if e.Location.Line != tt.line || e.Location.Column != tt.col {
				t.Errorf("location = %d:%d, want %d:%d", e.Location.Line, e.Location.Column, tt.line, tt.col)
			}
		})
	}
}

func TestTokenPositions(t *testing.T) {
	tokens, err := NewScanner("a = 1\n  \nbb = a").ScanTokens()
	if err != nil {
		t.Fatal(err)
	}
	var bb Token
	for _, tok := range tokens {
		if tok.Lexeme == "bb" {
			bb = tok
		}
	}
	want := Token{
		Type:   TokenIdent,
		Lexeme: "bb",
		Pos:    Position{Offset: 9, Line: 3, Column: 1},
		End:    Position{Offset: 11, Line: 3, Column: 3},
	}
	if diff := cmp.Diff(want, bb); diff != "" {
		t.Errorf("token mismatch (-want +got):\n%s", diff)
	}
}

func TestScanAllKeepsTrivia(t *testing.T) {
	all, err := NewScanner("x = 1 # c").ScanAll()
	if err != nil {
		t.Fatal(err)
	}
	var comments, spaces int
	for _, tok := range all {
		switch tok.Type {
		case TokenComment:
			comments++
			if tok.Lexeme != "# c" {
				t.Errorf("comment lexeme = %q", tok.Lexeme)
			}
		case TokenWhitespace:
			spaces++
		}
	}
	if comments != 1 || spaces != 3 {
		t.Errorf("comments=%d spaces=%d", comments, spaces)
	}
	if !IsKeyword("elif") || IsKeyword("print") {
		t.Error("keyword table wrong")
	}
}
