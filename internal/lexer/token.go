package lexer

import "fmt"

type TokenType string

const (
	// Layout
	TokenNewline    TokenType = "NEWLINE"
	TokenIndent     TokenType = "INDENT"
	TokenDedent     TokenType = "DEDENT"
	TokenEOF        TokenType = "EOF"
	TokenComment    TokenType = "COMMENT"
	TokenWhitespace TokenType = "WHITESPACE"

	// Literals
	TokenIdent   TokenType = "IDENT"
	TokenNumber  TokenType = "NUMBER"
	TokenString  TokenType = "STRING"
	TokenFString TokenType = "FSTRING"

	// Keywords
	TokenIf       TokenType = "IF"
	TokenElse     TokenType = "ELSE"
	TokenElif     TokenType = "ELIF"
	TokenWhile    TokenType = "WHILE"
	TokenFor      TokenType = "FOR"
	TokenIn       TokenType = "IN"
	TokenReturn   TokenType = "RETURN"
	TokenDef      TokenType = "DEF"
	TokenTrue     TokenType = "TRUE"
	TokenFalse    TokenType = "FALSE"
	TokenNone     TokenType = "NONE"
	TokenAnd      TokenType = "AND"
	TokenOr       TokenType = "OR"
	TokenNot      TokenType = "NOT"
	TokenBreak    TokenType = "BREAK"
	TokenContinue TokenType = "CONTINUE"
	TokenPass     TokenType = "PASS"

	// Symbols
	TokenLParen       TokenType = "("
	TokenRParen       TokenType = ")"
	TokenLBracket     TokenType = "["
	TokenRBracket     TokenType = "]"
	TokenComma        TokenType = ","
	TokenColon        TokenType = ":"
	TokenDot          TokenType = "."
	TokenPlus         TokenType = "+"
	TokenMinus        TokenType = "-"
	TokenStar         TokenType = "*"
	TokenDoubleStar   TokenType = "**"
	TokenSlash        TokenType = "/"
	TokenDoubleSlash  TokenType = "//"
	TokenPercent      TokenType = "%"
	TokenEqual        TokenType = "="
	TokenDoubleEqual  TokenType = "=="
	TokenNotEqual     TokenType = "!="
	TokenLT           TokenType = "<"
	TokenGT           TokenType = ">"
	TokenLE           TokenType = "<="
	TokenGE           TokenType = ">="
	TokenPlusEqual    TokenType = "+="
	TokenMinusEqual   TokenType = "-="
	TokenStarEqual    TokenType = "*="
	TokenSlashEqual   TokenType = "/="
	TokenFloorEqual   TokenType = "//="
	TokenPercentEqual TokenType = "%="
)

var keywords = map[string]TokenType{
	"if":       TokenIf,
	"else":     TokenElse,
	"elif":     TokenElif,
	"while":    TokenWhile,
	"for":      TokenFor,
	"in":       TokenIn,
	"return":   TokenReturn,
	"def":      TokenDef,
	"True":     TokenTrue,
	"False":    TokenFalse,
	"None":     TokenNone,
	"and":      TokenAnd,
	"or":       TokenOr,
	"not":      TokenNot,
	"break":    TokenBreak,
	"continue": TokenContinue,
	"pass":     TokenPass,
}

// IsKeyword reports whether name is a reserved word.
func IsKeyword(name string) bool {
	_, ok := keywords[name]
	return ok
}

// Position is a rune offset plus its 1-based line and column.
type Position struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Token is one lexical unit. For string tokens Lexeme holds the decoded text.
type Token struct {
	Type   TokenType
	Lexeme string
	Pos    Position
	End    Position
}

func (t Token) String() string {
	return fmt.Sprintf("[%s] '%s' %d:%d", t.Type, t.Lexeme, t.Pos.Line, t.Pos.Column)
}

// Trivia reports whether the token is dropped before parsing.
func (t Token) Trivia() bool {
	return t.Type == TokenComment || t.Type == TokenWhitespace
}
