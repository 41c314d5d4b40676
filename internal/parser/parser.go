// internal/parser/parser.go
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"arrayviz/internal/errors"
	"arrayviz/internal/lexer"
)

var comparisonOps = map[lexer.TokenType]string{
	lexer.TokenLT:          "<",
	lexer.TokenGT:          ">",
	lexer.TokenLE:          "<=",
	lexer.TokenGE:          ">=",
	lexer.TokenDoubleEqual: "==",
	lexer.TokenNotEqual:    "!=",
	lexer.TokenIn:          "in",
}

var augmentedOps = map[lexer.TokenType]string{
	lexer.TokenPlusEqual:    "+",
	lexer.TokenMinusEqual:   "-",
	lexer.TokenStarEqual:    "*",
	lexer.TokenSlashEqual:   "/",
	lexer.TokenFloorEqual:   "//",
	lexer.TokenPercentEqual: "%",
}

type Parser struct {
	tokens      []lexer.Token
	current     int
	sourceLines []string // Source lines for error reporting
}

func NewParser(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

func NewParserWithSource(tokens []lexer.Token, source string) *Parser {
	return &Parser{
		tokens:      tokens,
		sourceLines: strings.Split(source, "\n"),
	}
}

// ParseSource scans and parses source in one go.
func ParseSource(source string) (*Program, error) {
	tokens, err := lexer.NewScanner(source).ScanTokens()
	if err != nil {
		if e, ok := errors.As(err); ok {
			e.AttachSource(strings.Split(source, "\n"))
		}
		return nil, err
	}
	return NewParserWithSource(tokens, source).Parse()
}

// Parse produces the Program or the first syntax error.
func (p *Parser) Parse() (prog *Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*errors.Error)
			if !ok {
				panic(r)
			}
			prog, err = nil, e
		}
	}()

	start := p.peek()
	var stmts []Stmt
	for !p.isAtEnd() {
		if p.match(lexer.TokenNewline) {
			continue
		}
		stmts = append(stmts, p.statement())
	}
	return &Program{Span: Span{Start: start.Pos, End: p.peek().End}, Body: stmts}, nil
}

func (p *Parser) statement() Stmt {
	switch {
	case p.match(lexer.TokenIf):
		return p.ifStatement()
	case p.match(lexer.TokenWhile):
		return p.whileStatement()
	case p.match(lexer.TokenFor):
		return p.forStatement()
	case p.match(lexer.TokenDef):
		return p.function()
	case p.check(lexer.TokenIndent):
		p.fail(p.peek(), "unexpected indent")
	}
	stmt := p.simpleStatement()
	p.endOfLine()
	return stmt
}

func (p *Parser) simpleStatement() Stmt {
	tok := p.peek()
	switch {
	case p.match(lexer.TokenPass):
		return &Pass{Span: p.spanFrom(tok)}
	case p.match(lexer.TokenBreak):
		return &Break{Span: p.spanFrom(tok)}
	case p.match(lexer.TokenContinue):
		return &Continue{Span: p.spanFrom(tok)}
	case p.match(lexer.TokenReturn):
		var value Expr
		if !p.check(lexer.TokenNewline) && !p.isAtEnd() {
			value = p.expression()
		}
		return &Return{Span: p.spanFrom(tok), Value: value}
	}

	expr := p.expression()

	if p.match(lexer.TokenEqual) {
		p.checkTarget(expr, tok)
		value := p.expression()
		return &Assignment{Span: p.spanFrom(tok), Target: expr, Value: value}
	}
	if op, ok := augmentedOps[p.peek().Type]; ok {
		p.advance()
		p.checkTarget(expr, tok)
		value := p.expression()
		return &Assignment{Span: p.spanFrom(tok), Target: expr, Operator: op, Value: value}
	}

	return &ExpressionStatement{Span: p.spanFrom(tok), Expr: expr}
}

func (p *Parser) checkTarget(target Expr, at lexer.Token) {
	switch target.(type) {
	case *Identifier, *ListAccess:
	default:
		p.fail(at, "cannot assign to expression")
	}
}

func (p *Parser) endOfLine() {
	if p.isAtEnd() {
		return
	}
	p.consume(lexer.TokenNewline, "expected end of line")
}

func (p *Parser) ifStatement() Stmt {
	start := p.previous()
	condition := p.expression()
	p.consume(lexer.TokenColon, "expected ':' after if condition")
	header := p.spanFrom(start)
	then := p.block()
	return &If{Span: header, Condition: condition, Then: then, Else: p.elseBranch()}
}

// elseBranch parses the optional elif/else tail of an if chain.
func (p *Parser) elseBranch() Stmt {
	switch {
	case p.match(lexer.TokenElif):
		start := p.previous()
		condition := p.expression()
		p.consume(lexer.TokenColon, "expected ':' after elif condition")
		header := p.spanFrom(start)
		then := p.block()
		return &Elif{Span: header, Condition: condition, Then: then, Else: p.elseBranch()}
	case p.match(lexer.TokenElse):
		p.consume(lexer.TokenColon, "expected ':' after else")
		return p.block()
	}
	return nil
}

func (p *Parser) whileStatement() Stmt {
	start := p.previous()
	condition := p.expression()
	p.consume(lexer.TokenColon, "expected ':' after while condition")
	header := p.spanFrom(start)
	return &While{Span: header, Condition: condition, Body: p.block()}
}

func (p *Parser) forStatement() Stmt {
	start := p.previous()
	name := p.identifier("expected loop variable name after 'for'")
	p.consume(lexer.TokenIn, "expected 'in' after loop variable")
	iterable := p.expression()
	p.consume(lexer.TokenColon, "expected ':' after for clause")
	header := p.spanFrom(start)
	return &For{Span: header, Var: name, Iterable: iterable, Body: p.block()}
}

func (p *Parser) function() Stmt {
	start := p.previous()
	name := p.identifier("expected function name after 'def'")
	open := p.consume(lexer.TokenLParen, "expected '(' after function name")

	params := &FormalParamsList{}
	seen := map[string]bool{}
	for !p.check(lexer.TokenRParen) {
		param := p.identifier("expected parameter name")
		if seen[param.Name] {
			p.fail(p.previous(), fmt.Sprintf("duplicate argument '%s' in function definition", param.Name))
		}
		seen[param.Name] = true
		params.Names = append(params.Names, param)
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	p.consume(lexer.TokenRParen, "expected ')' after parameters")
	params.Span = p.spanFrom(open)
	p.consume(lexer.TokenColon, "expected ':' after function signature")
	header := p.spanFrom(start)

	return &FuncDef{Span: header, Name: name, Params: params, Body: p.block()}
}

// block := simple_stmt NEWLINE | NEWLINE INDENT statement+ DEDENT
func (p *Parser) block() *Block {
	start := p.peek()
	if !p.match(lexer.TokenNewline) {
		stmt := p.simpleStatement()
		p.endOfLine()
		return &Block{Span: stmt.Location(), Stmts: []Stmt{stmt}}
	}
	p.consume(lexer.TokenIndent, "expected an indented block")
	var stmts []Stmt
	for !p.check(lexer.TokenDedent) && !p.isAtEnd() {
		if p.match(lexer.TokenNewline) {
			continue
		}
		stmts = append(stmts, p.statement())
	}
	p.consume(lexer.TokenDedent, "expected dedent after block")
	if len(stmts) == 0 {
		p.fail(start, "expected an indented block")
	}
	return &Block{
		Span:  Span{Start: stmts[0].Location().Start, End: lastEnd(stmts)},
		Stmts: stmts,
	}
}

func lastEnd(stmts []Stmt) lexer.Position {
	switch s := stmts[len(stmts)-1].(type) {
	case *If:
		return endOfChain(s.Then, s.Else)
	case *Elif:
		return endOfChain(s.Then, s.Else)
	case *While:
		return s.Body.End
	case *For:
		return s.Body.End
	case *FuncDef:
		return s.Body.End
	default:
		return s.Location().End
	}
}

func endOfChain(then *Block, tail Stmt) lexer.Position {
	switch t := tail.(type) {
	case nil:
		return then.End
	case *Elif:
		return endOfChain(t.Then, t.Else)
	default:
		return t.Location().End
	}
}

// --- Expression parsing, lowest precedence first ---

func (p *Parser) expression() Expr {
	return p.conditional()
}

func (p *Parser) conditional() Expr {
	then := p.or()
	if !p.match(lexer.TokenIf) {
		return then
	}
	condition := p.or()
	p.consume(lexer.TokenElse, "expected 'else' in conditional expression")
	otherwise := p.conditional()
	return &Conditional{
		Span:      Span{Start: then.Location().Start, End: otherwise.Location().End},
		Condition: condition,
		Then:      then,
		Else:      otherwise,
	}
}

func (p *Parser) or() Expr {
	left := p.and()
	for p.match(lexer.TokenOr) {
		right := p.and()
		left = binary("or", left, right)
	}
	return left
}

func (p *Parser) and() Expr {
	left := p.not()
	for p.match(lexer.TokenAnd) {
		right := p.not()
		left = binary("and", left, right)
	}
	return left
}

func (p *Parser) not() Expr {
	if p.match(lexer.TokenNot) {
		start := p.previous()
		operand := p.not()
		return &Unary{Span: Span{Start: start.Pos, End: operand.Location().End}, Operator: "not", Operand: operand}
	}
	return p.comparison()
}

func (p *Parser) comparison() Expr {
	left := p.additive()
	op, ok := p.comparisonOperator()
	if !ok {
		return left
	}
	right := p.additive()
	if _, chained := p.comparisonOperator(); chained {
		p.fail(p.previous(), "chained comparisons are not supported")
	}
	return &Comparison{
		Span:     Span{Start: left.Location().Start, End: right.Location().End},
		Operator: op,
		Left:     left,
		Right:    right,
	}
}

func (p *Parser) comparisonOperator() (string, bool) {
	if p.check(lexer.TokenNot) && p.checkNext(lexer.TokenIn) {
		p.advance()
		p.advance()
		return "not in", true
	}
	if op, ok := comparisonOps[p.peek().Type]; ok {
		p.advance()
		return op, true
	}
	return "", false
}

func (p *Parser) additive() Expr {
	left := p.multiplicative()
	for p.check(lexer.TokenPlus) || p.check(lexer.TokenMinus) {
		op := p.advance().Lexeme
		right := p.multiplicative()
		left = binary(op, left, right)
	}
	return left
}

func (p *Parser) multiplicative() Expr {
	left := p.unary()
	for p.check(lexer.TokenStar) || p.check(lexer.TokenSlash) ||
		p.check(lexer.TokenDoubleSlash) || p.check(lexer.TokenPercent) {
		op := p.advance().Lexeme
		right := p.unary()
		left = binary(op, left, right)
	}
	return left
}

func (p *Parser) unary() Expr {
	if p.check(lexer.TokenMinus) || p.check(lexer.TokenPlus) {
		tok := p.advance()
		operand := p.unary()
		return &Unary{Span: Span{Start: tok.Pos, End: operand.Location().End}, Operator: tok.Lexeme, Operand: operand}
	}
	return p.power()
}

// power is right-associative and binds tighter than a unary operator on its
// left: -2 ** 2 == -(2 ** 2), 2 ** -1 == 2 ** (-1).
func (p *Parser) power() Expr {
	base := p.postfix()
	if p.match(lexer.TokenDoubleStar) {
		exponent := p.unary()
		return binary("**", base, exponent)
	}
	return base
}

func (p *Parser) postfix() Expr {
	expr := p.primary()
	for {
		switch {
		case p.check(lexer.TokenLParen):
			ident, ok := expr.(*Identifier)
			if !ok {
				p.fail(p.peek(), "only named functions can be called")
			}
			args := p.arguments()
			expr = &FuncCall{Span: Span{Start: ident.Start, End: args.End}, Name: ident, Args: args}
		case p.match(lexer.TokenLBracket):
			expr = p.subscript(expr)
		case p.match(lexer.TokenDot):
			method := p.identifier("expected method name after '.'")
			if !p.check(lexer.TokenLParen) {
				p.fail(p.peek(), fmt.Sprintf("expected '(' after method name '%s'", method.Name))
			}
			args := p.arguments()
			expr = &MethodCall{
				Span:     Span{Start: expr.Location().Start, End: args.End},
				Receiver: expr,
				Method:   method,
				Args:     args,
			}
		default:
			return expr
		}
	}
}

func (p *Parser) arguments() *ArgList {
	open := p.consume(lexer.TokenLParen, "expected '('")
	args := &ArgList{}
	for !p.check(lexer.TokenRParen) {
		args.Args = append(args.Args, p.expression())
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	p.consume(lexer.TokenRParen, "expected ')' after arguments")
	args.Span = p.spanFrom(open)
	return args
}

// subscript parses what follows '[': an index or any of the eight
// start:stop:step combinations.
func (p *Parser) subscript(target Expr) Expr {
	var start, stop, step Expr
	if !p.check(lexer.TokenColon) {
		start = p.expression()
	}
	if !p.match(lexer.TokenColon) {
		if start == nil {
			p.fail(p.peek(), "expected index expression")
		}
		end := p.consume(lexer.TokenRBracket, "expected ']' after index")
		return &ListAccess{Span: Span{Start: target.Location().Start, End: end.End}, Target: target, Index: start}
	}
	if !p.check(lexer.TokenColon) && !p.check(lexer.TokenRBracket) {
		stop = p.expression()
	}
	if p.match(lexer.TokenColon) && !p.check(lexer.TokenRBracket) {
		step = p.expression()
	}
	end := p.consume(lexer.TokenRBracket, "expected ']' after slice")
	return &ListSlice{
		Span:   Span{Start: target.Location().Start, End: end.End},
		Target: target,
		Start:  start,
		Stop:   stop,
		Step:   step,
	}
}

func (p *Parser) primary() Expr {
	tok := p.advance()
	span := Span{Start: tok.Pos, End: tok.End}
	switch tok.Type {
	case lexer.TokenNumber:
		return p.number(tok)
	case lexer.TokenString:
		return &StringLiteral{Span: span, Value: tok.Lexeme}
	case lexer.TokenFString:
		return &FStringLiteral{Span: span, Template: tok.Lexeme}
	case lexer.TokenTrue:
		return &BooleanLiteral{Span: span, Value: true}
	case lexer.TokenFalse:
		return &BooleanLiteral{Span: span, Value: false}
	case lexer.TokenNone:
		return &NoneLiteral{Span: span}
	case lexer.TokenIdent:
		return &Identifier{Span: span, Name: tok.Lexeme}
	case lexer.TokenLBracket:
		list := &ListLiteral{}
		for !p.check(lexer.TokenRBracket) {
			list.Elements = append(list.Elements, p.expression())
			if !p.match(lexer.TokenComma) {
				break
			}
		}
		p.consume(lexer.TokenRBracket, "expected ']' after list elements")
		list.Span = p.spanFrom(tok)
		return list
	case lexer.TokenLParen:
		expr := p.expression()
		p.consume(lexer.TokenRParen, "expected ')' after expression")
		return expr
	case lexer.TokenNewline, lexer.TokenEOF:
		p.fail(tok, "unexpected end of line in expression")
	case lexer.TokenIndent:
		p.fail(tok, "unexpected indent")
	}
	p.fail(tok, fmt.Sprintf("unexpected token in expression: '%s'", tok.Lexeme))
	return nil
}

func (p *Parser) number(tok lexer.Token) Expr {
	lit := &NumberLiteral{Span: Span{Start: tok.Pos, End: tok.End}, Raw: tok.Lexeme}
	raw := strings.ToLower(tok.Lexeme)
	var err error
	switch {
	case strings.HasPrefix(raw, "0x"), strings.HasPrefix(raw, "0b"):
		lit.Int, err = strconv.ParseInt(raw, 0, 64)
	case strings.Contains(raw, "."):
		lit.IsFloat = true
		lit.Float, err = strconv.ParseFloat(raw, 64)
	default:
		lit.Int, err = strconv.ParseInt(raw, 10, 64)
	}
	if err != nil {
		p.fail(tok, fmt.Sprintf("invalid number literal '%s'", tok.Lexeme))
	}
	return lit
}

func binary(op string, left, right Expr) *Binary {
	return &Binary{
		Span:     Span{Start: left.Location().Start, End: right.Location().End},
		Operator: op,
		Left:     left,
		Right:    right,
	}
}

// --- Utility methods ---

func (p *Parser) identifier(msg string) *Identifier {
	tok := p.consume(lexer.TokenIdent, msg)
	return &Identifier{Span: Span{Start: tok.Pos, End: tok.End}, Name: tok.Lexeme}
}

func (p *Parser) spanFrom(start lexer.Token) Span {
	return Span{Start: start.Pos, End: p.previous().End}
}

func (p *Parser) match(t lexer.TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) consume(t lexer.TokenType, msg string) lexer.Token {
	if p.check(t) {
		return p.advance()
	}
	p.fail(p.peek(), msg)
	return lexer.Token{}
}

func (p *Parser) fail(tok lexer.Token, msg string) {
	if tok.Lexeme != "" {
		msg = fmt.Sprintf("%s (got '%s')", msg, tok.Lexeme)
	}
	err := errors.New(errors.ParseError, msg, tok.Pos.Line, tok.Pos.Column)
	if p.sourceLines != nil {
		err.AttachSource(p.sourceLines)
	}
	panic(err)
}

func (p *Parser) check(t lexer.TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) checkNext(t lexer.TokenType) bool {
	if p.current+1 >= len(p.tokens) {
		return false
	}
	return p.tokens[p.current+1].Type == t
}

func (p *Parser) advance() lexer.Token {
	tok := p.peek()
	if !p.isAtEnd() {
		p.current++
	}
	return tok
}

func (p *Parser) previous() lexer.Token {
	if p.current == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.current-1]
}

func (p *Parser) peek() lexer.Token {
	if len(p.tokens) == 0 {
		return lexer.Token{Type: lexer.TokenEOF}
	}
	return p.tokens[p.current]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == lexer.TokenEOF
}
