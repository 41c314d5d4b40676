package parser

// Stmt is the closed set of statement nodes. Compound statements (if, elif,
// while, for, def) span their header line only; their Block spans the body.
type Stmt interface {
	Node
	stmtNode()
}

// Program is the root: the ordered top-level statements.
type Program struct {
	Span
	Body []Stmt
}

// Assignment: x = v, xs[i] = v, x += v. Operator is "" for plain assignment
// or the binary operator of an augmented one ("+" for "+=").
type Assignment struct {
	Span
	Target   Expr // *Identifier or *ListAccess
	Operator string
	Value    Expr
}

// Return: return [value]
type Return struct {
	Span
	Value Expr
}

type Break struct {
	Span
}

type Continue struct {
	Span
}

type Pass struct {
	Span
}

// If: if cond: then [elif ...] [else: ...]. Else is nil, *Elif or *Block.
type If struct {
	Span
	Condition Expr
	Then      *Block
	Else      Stmt
}

// Elif is one link of a right-nested elif chain.
type Elif struct {
	Span
	Condition Expr
	Then      *Block
	Else      Stmt
}

// For: for var in iterable: body
type For struct {
	Span
	Var      *Identifier
	Iterable Expr
	Body     *Block
}

// While: while cond: body
type While struct {
	Span
	Condition Expr
	Body      *Block
}

// FuncDef: def name(params): body
type FuncDef struct {
	Span
	Name   *Identifier
	Params *FormalParamsList
	Body   *Block
}

// ExpressionStatement wraps an expression evaluated for its effect.
type ExpressionStatement struct {
	Span
	Expr Expr
}

// Block is an indented statement list (or a single inline simple statement).
type Block struct {
	Span
	Stmts []Stmt
}

func (*Program) stmtNode()             {}
func (*Assignment) stmtNode()          {}
func (*Return) stmtNode()              {}
func (*Break) stmtNode()               {}
func (*Continue) stmtNode()            {}
func (*Pass) stmtNode()                {}
func (*If) stmtNode()                  {}
func (*Elif) stmtNode()                {}
func (*For) stmtNode()                 {}
func (*While) stmtNode()               {}
func (*FuncDef) stmtNode()             {}
func (*ExpressionStatement) stmtNode() {}
func (*Block) stmtNode()               {}
