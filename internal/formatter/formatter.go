package formatter

import (
	"strings"

	"arrayviz/internal/parser"
)

// Operator precedence, loosest first. A child printed below the level its
// parent requires is parenthesised.
const (
	precConditional = iota + 1
	precOr
	precAnd
	precNot
	precComparison
	precAdditive
	precMultiplicative
	precUnary
	precPower
	precPostfix
)

type Formatter struct {
	indent    int
	indentStr string
	output    strings.Builder
	lineBreak string
}

func NewFormatter() *Formatter {
	return &Formatter{
		indent:    0,
		indentStr: "    ", // 4 spaces
		lineBreak: "\n",
	}
}

// Source parses src and returns it in canonical layout. Comments are not
// kept.
func Source(src string) (string, error) {
	prog, err := parser.ParseSource(src)
	if err != nil {
		return "", err
	}
	return NewFormatter().Format(prog.Body), nil
}

func (f *Formatter) Format(stmts []parser.Stmt) string {
	f.output.Reset()
	f.indent = 0

	for i, stmt := range stmts {
		f.formatStmt(stmt)
		if i < len(stmts)-1 {
			// Add blank line between top-level statements if needed
			if f.needsBlankLine(stmt, stmts[i+1]) {
				f.output.WriteString(f.lineBreak)
			}
		}
	}

	return f.output.String()
}

func (f *Formatter) needsBlankLine(curr, next parser.Stmt) bool {
	// Add blank line between function definitions
	_, currIsFunc := curr.(*parser.FuncDef)
	_, nextIsFunc := next.(*parser.FuncDef)
	return currIsFunc || nextIsFunc
}

func (f *Formatter) writeIndent() {
	for i := 0; i < f.indent; i++ {
		f.output.WriteString(f.indentStr)
	}
}

func (f *Formatter) line(parts ...string) {
	f.writeIndent()
	for _, p := range parts {
		f.output.WriteString(p)
	}
	f.output.WriteString(f.lineBreak)
}

func (f *Formatter) block(b *parser.Block) {
	f.indent++
	for _, s := range b.Stmts {
		f.formatStmt(s)
	}
	f.indent--
}

func (f *Formatter) formatStmt(stmt parser.Stmt) {
	switch s := stmt.(type) {
	case *parser.Block:
		for _, inner := range s.Stmts {
			f.formatStmt(inner)
		}

	case *parser.ExpressionStatement:
		f.line(expr(s.Expr, precConditional))

	case *parser.Assignment:
		f.line(expr(s.Target, precConditional), " ", s.Operator, "= ", expr(s.Value, precConditional))

	case *parser.Return:
		if s.Value == nil {
			f.line("return")
			return
		}
		f.line("return ", expr(s.Value, precConditional))

	case *parser.Break:
		f.line("break")

	case *parser.Continue:
		f.line("continue")

	case *parser.Pass:
		f.line("pass")

	case *parser.If:
		f.line("if ", expr(s.Condition, precConditional), ":")
		f.block(s.Then)
		f.elseBranch(s.Else)

	case *parser.Elif:
		f.line("elif ", expr(s.Condition, precConditional), ":")
		f.block(s.Then)
		f.elseBranch(s.Else)

	case *parser.While:
		f.line("while ", expr(s.Condition, precConditional), ":")
		f.block(s.Body)

	case *parser.For:
		f.line("for ", s.Var.Name, " in ", expr(s.Iterable, precConditional), ":")
		f.block(s.Body)

	case *parser.FuncDef:
		names := make([]string, len(s.Params.Names))
		for i, p := range s.Params.Names {
			names[i] = p.Name
		}
		f.line("def ", s.Name.Name, "(", strings.Join(names, ", "), "):")
		f.block(s.Body)
	}
}

func (f *Formatter) elseBranch(s parser.Stmt) {
	switch e := s.(type) {
	case nil:
	case *parser.Elif:
		f.formatStmt(e)
	case *parser.Block:
		f.line("else:")
		f.block(e)
	}
}

// expr renders e, parenthesised when it binds looser than min.
func expr(e parser.Expr, min int) string {
	s, prec := render(e)
	if prec < min {
		return "(" + s + ")"
	}
	return s
}

func render(e parser.Expr) (string, int) {
	switch e := e.(type) {
	case *parser.NumberLiteral:
		return e.Raw, precPostfix
	case *parser.StringLiteral:
		return quote(e.Value), precPostfix
	case *parser.FStringLiteral:
		return "f" + quote(e.Template), precPostfix
	case *parser.BooleanLiteral:
		if e.Value {
			return "True", precPostfix
		}
		return "False", precPostfix
	case *parser.NoneLiteral:
		return "None", precPostfix
	case *parser.Identifier:
		return e.Name, precPostfix

	case *parser.Conditional:
		return expr(e.Then, precOr) + " if " + expr(e.Condition, precOr) + " else " +
			expr(e.Else, precConditional), precConditional

	case *parser.Binary:
		switch e.Operator {
		case "or":
			return expr(e.Left, precOr) + " or " + expr(e.Right, precAnd), precOr
		case "and":
			return expr(e.Left, precAnd) + " and " + expr(e.Right, precNot), precAnd
		case "+", "-":
			return expr(e.Left, precAdditive) + " " + e.Operator + " " + expr(e.Right, precMultiplicative), precAdditive
		case "**":
			return expr(e.Left, precPostfix) + " ** " + expr(e.Right, precUnary), precPower
		}
		return expr(e.Left, precMultiplicative) + " " + e.Operator + " " + expr(e.Right, precUnary), precMultiplicative

	case *parser.Comparison:
		return expr(e.Left, precAdditive) + " " + e.Operator + " " + expr(e.Right, precAdditive), precComparison

	case *parser.Unary:
		if e.Operator == "not" {
			return "not " + expr(e.Operand, precNot), precNot
		}
		return e.Operator + expr(e.Operand, precUnary), precUnary

	case *parser.FuncCall:
		return e.Name.Name + args(e.Args), precPostfix

	case *parser.MethodCall:
		return expr(e.Receiver, precPostfix) + "." + e.Method.Name + args(e.Args), precPostfix

	case *parser.ListAccess:
		return expr(e.Target, precPostfix) + "[" + expr(e.Index, precConditional) + "]", precPostfix

	case *parser.ListSlice:
		var sb strings.Builder
		sb.WriteString(expr(e.Target, precPostfix))
		sb.WriteString("[")
		sb.WriteString(optional(e.Start))
		sb.WriteString(":")
		sb.WriteString(optional(e.Stop))
		if e.Step != nil {
			sb.WriteString(":")
			sb.WriteString(expr(e.Step, precConditional))
		}
		sb.WriteString("]")
		return sb.String(), precPostfix

	case *parser.ListLiteral:
		return "[" + list(e.Elements) + "]", precPostfix
	}
	return "", precPostfix
}

func optional(e parser.Expr) string {
	if e == nil {
		return ""
	}
	return expr(e, precConditional)
}

func args(a *parser.ArgList) string {
	if a == nil {
		return "()"
	}
	return "(" + list(a.Args) + ")"
}

func list(items []parser.Expr) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = expr(item, precConditional)
	}
	return strings.Join(parts, ", ")
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\t", `\t`,
	"\r", `\r`,
	"\x00", `\0`,
)

// quote writes s as a double-quoted literal the lexer reads back as s.
func quote(s string) string {
	return `"` + escaper.Replace(s) + `"`
}
