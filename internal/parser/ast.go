package parser

import "arrayviz/internal/lexer"

// Span is the source range a node was parsed from.
type Span struct {
	Start lexer.Position
	End   lexer.Position
}

// Location returns the span itself; embedding Span gives every node the method.
func (s Span) Location() Span { return s }

// Node is any AST node.
type Node interface {
	Location() Span
}

// Expr is the closed set of expression nodes.
type Expr interface {
	Node
	exprNode()
}

// NumberLiteral: 42, 0x2A, 0b101010, 4.2
type NumberLiteral struct {
	Span
	Raw     string
	Int     int64
	Float   float64
	IsFloat bool
}

// StringLiteral: "text" or 'text'
type StringLiteral struct {
	Span
	Value string
}

// FStringLiteral: f"Hello {name}"
type FStringLiteral struct {
	Span
	Template string
}

// BooleanLiteral: True / False
type BooleanLiteral struct {
	Span
	Value bool
}

// NoneLiteral: None
type NoneLiteral struct {
	Span
}

// Identifier: x
type Identifier struct {
	Span
	Name string
}

// Binary expression: a + b, a and b
type Binary struct {
	Span
	Operator string
	Left     Expr
	Right    Expr
}

// Comparison expression: a < b, a not in b
type Comparison struct {
	Span
	Operator string
	Left     Expr
	Right    Expr
}

// Unary expression: -x, +x, not x
type Unary struct {
	Span
	Operator string
	Operand  Expr
}

// Conditional expression: then if cond else otherwise
type Conditional struct {
	Span
	Condition Expr
	Then      Expr
	Else      Expr
}

// ArgList is the parenthesised argument list of a call.
type ArgList struct {
	Span
	Args []Expr
}

// FormalParamsList is the parameter list of a function definition.
type FormalParamsList struct {
	Span
	Names []*Identifier
}

// FuncCall: name(args...)
type FuncCall struct {
	Span
	Name *Identifier
	Args *ArgList
}

// ListAccess: target[index]
type ListAccess struct {
	Span
	Target Expr
	Index  Expr
}

// MethodCall: receiver.method(args...)
type MethodCall struct {
	Span
	Receiver Expr
	Method   *Identifier
	Args     *ArgList
}

// ListSlice: target[start:stop:step]; absent parts are nil.
type ListSlice struct {
	Span
	Target Expr
	Start  Expr
	Stop   Expr
	Step   Expr
}

// ListLiteral: [1, 2, 3]
type ListLiteral struct {
	Span
	Elements []Expr
}

func (*NumberLiteral) exprNode()    {}
func (*StringLiteral) exprNode()    {}
func (*FStringLiteral) exprNode()   {}
func (*BooleanLiteral) exprNode()   {}
func (*NoneLiteral) exprNode()      {}
func (*Identifier) exprNode()       {}
func (*Binary) exprNode()           {}
func (*Comparison) exprNode()       {}
func (*Unary) exprNode()            {}
func (*Conditional) exprNode()      {}
func (*ArgList) exprNode()          {}
func (*FormalParamsList) exprNode() {}
func (*FuncCall) exprNode()         {}
func (*ListAccess) exprNode()       {}
func (*MethodCall) exprNode()       {}
func (*ListSlice) exprNode()        {}
func (*ListLiteral) exprNode()      {}
