// internal/compiler/compiler.go
package compiler

import (
	"fmt"
	"strings"

	"arrayviz/internal/bytecode"
	"arrayviz/internal/errors"
	"arrayviz/internal/parser"
	"arrayviz/internal/vm"
)

// Compiler lowers an AST into a flat command sequence. Jump distances are
// computed from the lengths of already compiled children, so the output is
// position independent and function bodies can be compiled in isolation.
type Compiler struct {
	source     []rune
	lines      []string
	function   string
	loopDepth  int
	inFunction bool
}

func NewCompiler(source string) *Compiler {
	return &Compiler{
		source:   []rune(source),
		lines:    strings.Split(source, "\n"),
		function: "<module>",
	}
}

// CompileSource parses and compiles a whole program.
func CompileSource(source string) (*vm.Program, error) {
	prog, err := parser.ParseSource(source)
	if err != nil {
		return nil, err
	}
	code, err := NewCompiler(source).Compile(prog)
	if err != nil {
		return nil, err
	}
	return vm.NewProgram(code, source), nil
}

// Compile lowers prog. It never touches a VM.
func (c *Compiler) Compile(prog *parser.Program) (code []vm.Command, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*errors.Error); ok {
				err = e.AttachSource(c.lines)
				return
			}
			panic(r)
		}
	}()
	return c.stmts(prog.Body), nil
}

func (c *Compiler) fail(n parser.Node, format string, args ...any) {
	start := n.Location().Start
	panic(errors.Newf(errors.CompileError, start.Line, start.Column, format, args...))
}

// cmd stamps a command with the node's position.
func (c *Compiler) cmd(n parser.Node, cmd vm.Command) vm.Command {
	start := n.Location().Start
	cmd.Debug = bytecode.DebugInfo{Line: start.Line, Column: start.Column, Function: c.function}
	return cmd
}

func (c *Compiler) region(n parser.Node) *bytecode.Region {
	span := n.Location()
	r := &bytecode.Region{Start: span.Start, End: span.End}
	if span.Start.Offset >= 0 && span.End.Offset <= len(c.source) && span.Start.Offset <= span.End.Offset {
		r.Text = string(c.source[span.Start.Offset:span.End.Offset])
	}
	return r
}

func (c *Compiler) highlight(n parser.Node) vm.Command {
	return c.cmd(n, vm.Command{Op: bytecode.OpHighlightExpression, Region: c.region(n)})
}

func (c *Compiler) push(n parser.Node, v vm.Value) vm.Command {
	return c.cmd(n, vm.Command{Op: bytecode.OpPushValue, Value: v})
}

func seq(parts ...[]vm.Command) []vm.Command {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]vm.Command, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func one(cmds ...vm.Command) []vm.Command { return cmds }

// expr lowers an expression to commands that leave exactly one value on
// the evaluation stack.
func (c *Compiler) expr(e parser.Expr) []vm.Command {
	switch e := e.(type) {
	case *parser.NumberLiteral:
		if e.IsFloat {
			return one(c.push(e, vm.Float(e.Float)))
		}
		return one(c.push(e, vm.Int(e.Int)))

	case *parser.StringLiteral:
		return one(c.push(e, vm.Str(e.Value)))

	case *parser.FStringLiteral:
		return one(c.cmd(e, vm.Command{Op: bytecode.OpInterpolateFString, Template: e.Template}))

	case *parser.BooleanLiteral:
		return one(c.push(e, vm.Bool(e.Value)))

	case *parser.NoneLiteral:
		return one(c.push(e, vm.None))

	case *parser.Identifier:
		return one(
			c.highlight(e),
			c.cmd(e, vm.Command{Op: bytecode.OpRetrieveValue, Name: e.Name}),
		)

	case *parser.Binary:
		return seq(
			one(c.highlight(e)),
			c.expr(e.Left),
			c.expr(e.Right),
			one(c.cmd(e, vm.Command{Op: bytecode.OpBinary, Name: e.Operator})),
		)

	case *parser.Comparison:
		return seq(
			one(c.highlight(e)),
			c.expr(e.Left),
			c.expr(e.Right),
			one(c.cmd(e, vm.Command{Op: bytecode.OpComparison, Name: e.Operator})),
		)

	case *parser.Unary:
		return seq(
			one(c.highlight(e)),
			c.expr(e.Operand),
			one(c.cmd(e, vm.Command{Op: bytecode.OpUnary, Name: e.Operator})),
		)

	case *parser.Conditional:
		cond := c.expr(e.Condition)
		then := c.expr(e.Then)
		otherwise := c.expr(e.Else)
		return seq(
			one(c.highlight(e)),
			cond,
			one(c.cmd(e, vm.Command{Op: bytecode.OpConditionalJump, N: len(then) + 2})),
			then,
			one(c.cmd(e, vm.Command{Op: bytecode.OpJump, N: len(otherwise) + 1})),
			otherwise,
		)

	case *parser.FuncCall:
		return c.call(e)

	case *parser.MethodCall:
		return seq(
			one(c.highlight(e)),
			c.expr(e.Receiver),
			c.args(e.Args),
			one(c.cmd(e, vm.Command{Op: bytecode.OpMethodCall, Name: e.Method.Name, N: len(e.Args.Args)})),
		)

	case *parser.ListAccess:
		return seq(
			one(c.highlight(e)),
			c.expr(e.Target),
			c.expr(e.Index),
			one(c.cmd(e, vm.Command{Op: bytecode.OpIndexAccess})),
		)

	case *parser.ListSlice:
		return seq(
			one(c.highlight(e)),
			c.expr(e.Target),
			c.optional(e, e.Start),
			c.optional(e, e.Stop),
			c.optional(e, e.Step),
			one(c.cmd(e, vm.Command{Op: bytecode.OpListSlice})),
		)

	case *parser.ListLiteral:
		parts := make([][]vm.Command, 0, len(e.Elements)+1)
		for _, el := range e.Elements {
			parts = append(parts, c.expr(el))
		}
		parts = append(parts, one(c.cmd(e, vm.Command{Op: bytecode.OpCreateList, N: len(e.Elements)})))
		return seq(parts...)
	}
	c.fail(e, "cannot evaluate %T as an expression", e)
	return nil
}

// optional lowers an absent slice part to an explicit None marker.
func (c *Compiler) optional(owner parser.Node, e parser.Expr) []vm.Command {
	if e == nil {
		return one(c.push(owner, vm.None))
	}
	return c.expr(e)
}

func (c *Compiler) args(list *parser.ArgList) []vm.Command {
	parts := make([][]vm.Command, len(list.Args))
	for i, a := range list.Args {
		parts[i] = c.expr(a)
	}
	return seq(parts...)
}

// builtinOps are the builtins with a dedicated command.
var builtinOps = map[string]struct {
	op       bytecode.OpCode
	min, max int
}{
	"print": {bytecode.OpPrint, 0, -1},
	"len":   {bytecode.OpLen, 1, 1},
	"type":  {bytecode.OpType, 1, 1},
	"input": {bytecode.OpInput, 0, 1},
}

// IsBuiltinName reports whether name is reserved for a builtin.
func IsBuiltinName(name string) bool {
	_, ok := builtinOps[name]
	return ok || vm.IsBuiltin(name)
}

func (c *Compiler) call(e *parser.FuncCall) []vm.Command {
	name := e.Name.Name
	argc := len(e.Args.Args)
	var op vm.Command

	if b, ok := builtinOps[name]; ok {
		if argc < b.min || (b.max >= 0 && argc > b.max) {
			c.fail(e, "%s() %s", name, arityText(b.min, b.max, argc))
		}
		op = vm.Command{Op: b.op, N: argc}
	} else if vm.IsBuiltin(name) {
		op = vm.Command{Op: bytecode.OpCallBuiltin, Name: name, N: argc}
	} else {
		op = vm.Command{Op: bytecode.OpCallUserFunction, Name: name, N: argc}
	}

	return seq(
		one(c.highlight(e)),
		c.args(e.Args),
		one(c.cmd(e, op)),
	)
}

func arityText(min, max, got int) string {
	if min == max {
		return fmt.Sprintf("takes exactly %d argument%s (%d given)", min, plural(min), got)
	}
	if got < min {
		return fmt.Sprintf("takes at least %d argument%s (%d given)", min, plural(min), got)
	}
	return fmt.Sprintf("takes at most %d argument%s (%d given)", max, plural(max), got)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
