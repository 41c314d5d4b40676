package lexer

import (
	"strings"
	"unicode"

	"arrayviz/internal/errors"
)

const tabWidth = 8

type Scanner struct {
	source   []rune
	tokens   []Token
	start    int
	current  int
	line     int
	column   int
	startPos Position

	indents     []int
	depth       int // open brackets; newlines inside them are not significant
	atLineStart bool
	lastType    TokenType // last non-trivia token emitted
}

func NewScanner(source string) *Scanner {
	return &Scanner{
		source:  []rune(source),
		line:    1,
		column:  1,
		indents: []int{0},
	}
}

// ScanTokens returns the stream handed to the parser: every token except
// comments and whitespace, terminated by EOF.
func (s *Scanner) ScanTokens() ([]Token, error) {
	all, err := s.ScanAll()
	if err != nil {
		return nil, err
	}
	tokens := make([]Token, 0, len(all))
	for _, t := range all {
		if !t.Trivia() {
			tokens = append(tokens, t)
		}
	}
	return tokens, nil
}

// ScanAll returns the full token stream including comment and whitespace tokens.
func (s *Scanner) ScanAll() ([]Token, error) {
	if s.tokens != nil {
		return s.tokens, nil
	}
	s.tokens = []Token{}
	s.atLineStart = true

	for !s.isAtEnd() {
		if s.atLineStart && s.depth == 0 {
			if err := s.indentation(); err != nil {
				return nil, err
			}
			continue
		}
		s.mark()
		if err := s.scanToken(); err != nil {
			return nil, err
		}
	}

	s.mark()
	if s.lastType != "" && s.lastType != TokenNewline {
		s.addToken(TokenNewline, "")
	}
	for len(s.indents) > 1 {
		s.indents = s.indents[:len(s.indents)-1]
		s.addToken(TokenDedent, "")
	}
	s.addToken(TokenEOF, "")
	return s.tokens, nil
}

// indentation measures the leading whitespace of a line and emits INDENT or
// DEDENT tokens. Blank and comment-only lines never change the indent stack.
func (s *Scanner) indentation() error {
	s.atLineStart = false
	s.mark()
	width := 0
	for !s.isAtEnd() && (s.peek() == ' ' || s.peek() == '\t') {
		if s.advance() == '\t' {
			width += tabWidth - width%tabWidth
		} else {
			width++
		}
	}
	if s.current > s.start {
		s.addToken(TokenWhitespace, string(s.source[s.start:s.current]))
	}
	if s.isAtEnd() {
		return nil
	}
	switch s.peek() {
	case '\n', '\r', '#':
		return nil
	}

	s.mark()
	top := s.indents[len(s.indents)-1]
	switch {
	case width > top:
		s.indents = append(s.indents, width)
		s.addToken(TokenIndent, "")
	case width < top:
		for width < top {
			s.indents = s.indents[:len(s.indents)-1]
			s.addToken(TokenDedent, "")
			top = s.indents[len(s.indents)-1]
		}
		if width != top {
			return errors.New(errors.LexError,
				"unindent does not match any outer indentation level", s.line, s.column)
		}
	}
	return nil
}

func (s *Scanner) scanToken() error {
	c := s.advance()
	switch c {
	case '(':
		s.depth++
		s.addToken(TokenLParen, "(")
	case ')':
		s.closeBracket()
		s.addToken(TokenRParen, ")")
	case '[':
		s.depth++
		s.addToken(TokenLBracket, "[")
	case ']':
		s.closeBracket()
		s.addToken(TokenRBracket, "]")
	case ',':
		s.addToken(TokenComma, ",")
	case ':':
		s.addToken(TokenColon, ":")
	case '.':
		s.addToken(TokenDot, ".")
	case '+':
		s.operator(TokenPlus, TokenPlusEqual)
	case '-':
		s.operator(TokenMinus, TokenMinusEqual)
	case '%':
		s.operator(TokenPercent, TokenPercentEqual)
	case '*':
		if s.match('*') {
			s.addToken(TokenDoubleStar, "**")
		} else {
			s.operator(TokenStar, TokenStarEqual)
		}
	case '/':
		if s.match('/') {
			s.operator(TokenDoubleSlash, TokenFloorEqual)
		} else {
			s.operator(TokenSlash, TokenSlashEqual)
		}
	case '=':
		s.operator(TokenEqual, TokenDoubleEqual)
	case '<':
		s.operator(TokenLT, TokenLE)
	case '>':
		s.operator(TokenGT, TokenGE)
	case '!':
		if !s.match('=') {
			return s.errorf("invalid syntax: unexpected character '!'")
		}
		s.addToken(TokenNotEqual, "!=")
	case '#':
		for !s.isAtEnd() && s.peek() != '\n' {
			s.advance()
		}
		s.addToken(TokenComment, s.text())
	case ' ', '\t', '\r':
		for !s.isAtEnd() && (s.peek() == ' ' || s.peek() == '\t' || s.peek() == '\r') {
			s.advance()
		}
		s.addToken(TokenWhitespace, s.text())
	case '\\':
		// explicit line continuation
		s.match('\r')
		if !s.match('\n') {
			return s.errorf("unexpected character after line continuation character")
		}
		s.addToken(TokenWhitespace, s.text())
	case '\n':
		if s.depth == 0 && s.lastType != "" && s.lastType != TokenNewline {
			s.addToken(TokenNewline, "")
		} else {
			s.addToken(TokenWhitespace, "\n")
		}
		s.atLineStart = true
	case '"', '\'':
		return s.string(c, TokenString)
	default:
		switch {
		case isDigit(c):
			return s.number(c)
		case (c == 'f' || c == 'F') && (s.peek() == '"' || s.peek() == '\''):
			return s.string(s.advance(), TokenFString)
		case isAlpha(c):
			s.identifier()
		default:
			return s.errorf("invalid character '%c'", c)
		}
	}
	return nil
}

func (s *Scanner) operator(plain, withEqual TokenType) {
	if s.match('=') {
		s.addToken(withEqual, string(withEqual))
		return
	}
	s.addToken(plain, string(plain))
}

func (s *Scanner) closeBracket() {
	if s.depth > 0 {
		s.depth--
	}
}

func (s *Scanner) identifier() {
	for isAlphaNumeric(s.peek()) {
		s.advance()
	}
	text := s.text()
	if kw, ok := keywords[text]; ok {
		s.addToken(kw, text)
		return
	}
	s.addToken(TokenIdent, text)
}

func (s *Scanner) number(first rune) error {
	switch {
	case first == '0' && (s.peek() == 'x' || s.peek() == 'X'):
		s.advance()
		if !s.digits(isHexDigit) {
			return s.errorf("invalid hexadecimal literal")
		}
	case first == '0' && (s.peek() == 'b' || s.peek() == 'B'):
		s.advance()
		if !s.digits(func(r rune) bool { return r == '0' || r == '1' }) || isDigit(s.peek()) {
			return s.errorf("invalid binary literal")
		}
	default:
		s.digits(isDigit)
		if s.peek() == '.' && isDigit(s.peekNext()) {
			s.advance()
			s.digits(isDigit)
		}
	}
	if isAlpha(s.peek()) {
		return s.errorf("invalid decimal literal")
	}
	s.addToken(TokenNumber, s.text())
	return nil
}

func (s *Scanner) digits(accept func(rune) bool) bool {
	n := 0
	for !s.isAtEnd() && accept(s.peek()) {
		s.advance()
		n++
	}
	return n > 0
}

func (s *Scanner) string(quote rune, typ TokenType) error {
	var sb strings.Builder
	for {
		if s.isAtEnd() || s.peek() == '\n' {
			return errors.New(errors.LexError, "unterminated string literal",
				s.startPos.Line, s.startPos.Column)
		}
		c := s.advance()
		if c == quote {
			break
		}
		if c != '\\' {
			sb.WriteRune(c)
			continue
		}
		if s.isAtEnd() {
			continue
		}
		switch e := s.advance(); e {
		case 'n':
			sb.WriteRune('\n')
		case 't':
			sb.WriteRune('\t')
		case 'r':
			sb.WriteRune('\r')
		case '0':
			sb.WriteRune(0)
		case '\\', '\'', '"':
			sb.WriteRune(e)
		case '\n':
		default:
			sb.WriteRune('\\')
			sb.WriteRune(e)
		}
	}
	s.addToken(typ, sb.String())
	return nil
}

func (s *Scanner) mark() {
	s.start = s.current
	s.startPos = s.pos()
}

func (s *Scanner) pos() Position {
	return Position{Offset: s.current, Line: s.line, Column: s.column}
}

func (s *Scanner) text() string {
	return string(s.source[s.start:s.current])
}

func (s *Scanner) addToken(t TokenType, lexeme string) {
	s.tokens = append(s.tokens, Token{Type: t, Lexeme: lexeme, Pos: s.startPos, End: s.pos()})
	if t != TokenComment && t != TokenWhitespace {
		s.lastType = t
	}
}

func (s *Scanner) errorf(format string, args ...any) error {
	return errors.Newf(errors.LexError, s.startPos.Line, s.startPos.Column, format, args...)
}

func (s *Scanner) match(expected rune) bool {
	if s.isAtEnd() || s.source[s.current] != expected {
		return false
	}
	s.advance()
	return true
}

func (s *Scanner) advance() rune {
	r := s.source[s.current]
	s.current++
	if r == '\n' {
		s.line++
		s.column = 1
	} else {
		s.column++
	}
	return r
}

func (s *Scanner) peek() rune {
	if s.isAtEnd() {
		return 0
	}
	return s.source[s.current]
}

func (s *Scanner) peekNext() rune {
	if s.current+1 >= len(s.source) {
		return 0
	}
	return s.source[s.current+1]
}

func (s *Scanner) isAtEnd() bool {
	return s.current >= len(s.source)
}

func isAlpha(c rune) bool {
	return unicode.IsLetter(c) || c == '_'
}

func isAlphaNumeric(c rune) bool {
	return isAlpha(c) || unicode.IsDigit(c)
}

func isDigit(c rune) bool {
	return '0' <= c && c <= '9'
}

func isHexDigit(c rune) bool {
	return isDigit(c) || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
