// internal/compiler/stmt_compiler.go
package compiler

import (
	"arrayviz/internal/bytecode"
	"arrayviz/internal/parser"
	"arrayviz/internal/vm"
)

func (c *Compiler) stmts(list []parser.Stmt) []vm.Command {
	parts := make([][]vm.Command, len(list))
	for i, s := range list {
		parts[i] = c.stmt(s)
	}
	return seq(parts...)
}

func (c *Compiler) statementHighlight(s parser.Stmt) vm.Command {
	return c.cmd(s, vm.Command{Op: bytecode.OpHighlightStatement, Region: c.region(s)})
}

// stmt lowers one statement. The evaluation stack depth is the same before
// and after the produced commands.
func (c *Compiler) stmt(s parser.Stmt) []vm.Command {
	switch s := s.(type) {
	case *parser.Block:
		return c.stmts(s.Stmts)

	case *parser.Pass:
		return one(c.statementHighlight(s))

	case *parser.ExpressionStatement:
		return seq(
			one(c.statementHighlight(s)),
			c.expr(s.Expr),
			one(c.cmd(s, vm.Command{Op: bytecode.OpPopValue})),
		)

	case *parser.Assignment:
		return c.assignment(s)

	case *parser.Return:
		if !c.inFunction {
			c.fail(s, "'return' outside function")
		}
		value := one(c.push(s, vm.None))
		if s.Value != nil {
			value = c.expr(s.Value)
		}
		return seq(
			one(c.statementHighlight(s)),
			value,
			one(c.cmd(s, vm.Command{Op: bytecode.OpReturn})),
		)

	case *parser.Break:
		if c.loopDepth == 0 {
			c.fail(s, "'break' outside loop")
		}
		return one(c.statementHighlight(s), c.cmd(s, vm.Command{Op: bytecode.OpBreak}))

	case *parser.Continue:
		if c.loopDepth == 0 {
			c.fail(s, "'continue' not properly in loop")
		}
		return one(c.statementHighlight(s), c.cmd(s, vm.Command{Op: bytecode.OpContinue}))

	case *parser.If:
		return c.branch(s, s.Condition, s.Then, s.Else)

	case *parser.Elif:
		return c.branch(s, s.Condition, s.Then, s.Else)

	case *parser.While:
		return c.while(s)

	case *parser.For:
		return c.forIn(s)

	case *parser.FuncDef:
		return c.funcDef(s)
	}
	c.fail(s, "unsupported statement %T", s)
	return nil
}

func (c *Compiler) assignment(s *parser.Assignment) []vm.Command {
	head := one(c.statementHighlight(s))

	switch target := s.Target.(type) {
	case *parser.Identifier:
		value := c.expr(s.Value)
		if s.Operator != "" {
			value = seq(
				one(
					c.highlight(target),
					c.cmd(target, vm.Command{Op: bytecode.OpRetrieveValue, Name: target.Name}),
				),
				value,
				one(c.cmd(s, vm.Command{Op: bytecode.OpBinary, Name: s.Operator})),
			)
		}
		return seq(head, value, one(c.cmd(s, vm.Command{Op: bytecode.OpAssignVariable, Name: target.Name})))

	case *parser.ListAccess:
		value := c.expr(s.Value)
		if s.Operator != "" {
			// The target and index are evaluated once for the read and
			// once for the store.
			value = seq(
				c.expr(target),
				value,
				one(c.cmd(s, vm.Command{Op: bytecode.OpBinary, Name: s.Operator})),
			)
		}
		return seq(
			head,
			c.expr(target.Target),
			c.expr(target.Index),
			value,
			one(c.cmd(s, vm.Command{Op: bytecode.OpStoreIndex})),
		)
	}
	c.fail(s, "cannot assign to expression")
	return nil
}

// branch lowers if/elif. A false condition skips the then-branch and, when
// an else branch follows, the Jump that closes the then-branch.
func (c *Compiler) branch(s parser.Stmt, cond parser.Expr, then *parser.Block, otherwise parser.Stmt) []vm.Command {
	condCode := c.expr(cond)
	thenCode := c.stmt(then)

	if otherwise == nil {
		return seq(
			one(c.statementHighlight(s)),
			condCode,
			one(c.cmd(s, vm.Command{Op: bytecode.OpConditionalJump, N: len(thenCode) + 1})),
			thenCode,
		)
	}

	elseCode := c.stmt(otherwise)
	return seq(
		one(c.statementHighlight(s)),
		condCode,
		one(c.cmd(s, vm.Command{Op: bytecode.OpConditionalJump, N: len(thenCode) + 2})),
		thenCode,
		one(c.cmd(s, vm.Command{Op: bytecode.OpJump, N: len(elseCode) + 1})),
		elseCode,
	)
}

func (c *Compiler) loopBody(body *parser.Block) []vm.Command {
	c.loopDepth++
	defer func() { c.loopDepth-- }()
	return c.stmt(body)
}

// while lowers to:
//
//	0      HighlightStatement
//	1      PushLoopBounds          continue -> 2, break -> 4+C+B
//	2      condition               (C commands)
//	2+C    ConditionalJump         -> 4+C+B
//	3+C    body                    (B commands)
//	3+C+B  Jump                    -> 2
//	4+C+B  PopLoopBounds
func (c *Compiler) while(s *parser.While) []vm.Command {
	cond := c.expr(s.Condition)
	body := c.loopBody(s.Body)
	C, B := len(cond), len(body)

	return seq(
		one(
			c.statementHighlight(s),
			c.cmd(s, vm.Command{Op: bytecode.OpPushLoopBounds, Continue: 1, Break: 3 + C + B}),
		),
		cond,
		one(c.cmd(s, vm.Command{Op: bytecode.OpConditionalJump, N: B + 2})),
		body,
		one(
			c.cmd(s, vm.Command{Op: bytecode.OpJump, N: -(1 + C + B)}),
			c.cmd(s, vm.Command{Op: bytecode.OpPopLoopBounds}),
		),
	)
}

// forIn lowers to:
//
//	0      HighlightStatement
//	1      PushLoopBounds          continue -> 3+I, break -> 6+I+B
//	2      iterable                (I commands)
//	2+I    CallBuiltin __iter__
//	3+I    AssignVariable iterate  pushes has-more
//	4+I    ConditionalJump         -> 6+I+B
//	5+I    body                    (B commands)
//	5+I+B  Jump                    -> 3+I
//	6+I+B  PopValue                drops the iterator
//	7+I+B  PopLoopBounds
func (c *Compiler) forIn(s *parser.For) []vm.Command {
	iterable := c.expr(s.Iterable)
	body := c.loopBody(s.Body)
	I, B := len(iterable), len(body)

	return seq(
		one(
			c.statementHighlight(s),
			c.cmd(s, vm.Command{Op: bytecode.OpPushLoopBounds, Continue: 2 + I, Break: 5 + I + B}),
		),
		iterable,
		one(
			c.cmd(s, vm.Command{Op: bytecode.OpCallBuiltin, Name: vm.IterBuiltin, N: 1}),
			c.cmd(s.Var, vm.Command{Op: bytecode.OpAssignVariable, Name: s.Var.Name, Iterate: true}),
			c.cmd(s, vm.Command{Op: bytecode.OpConditionalJump, N: B + 2}),
		),
		body,
		one(
			c.cmd(s, vm.Command{Op: bytecode.OpJump, N: -(2 + B)}),
			c.cmd(s, vm.Command{Op: bytecode.OpPopValue}),
			c.cmd(s, vm.Command{Op: bytecode.OpPopLoopBounds}),
		),
	)
}

// funcDef compiles the body once, at definition time. The body layout is
//
//	EnterScope, AssignVariable(param_n) ... AssignVariable(param_1),
//	statements, PushValue(None), Return, ExitScope
//
// Return always jumps to the final ExitScope.
func (c *Compiler) funcDef(s *parser.FuncDef) []vm.Command {
	name := s.Name.Name
	if IsBuiltinName(name) {
		c.fail(s.Name, "cannot redefine builtin '%s'", name)
	}

	params := make([]string, len(s.Params.Names))
	for i, p := range s.Params.Names {
		if IsBuiltinName(p.Name) {
			c.fail(p, "cannot use builtin '%s' as a parameter name", p.Name)
		}
		params[i] = p.Name
	}

	saved := *c
	c.function = name
	c.inFunction = true
	c.loopDepth = 0
	defer func() {
		c.function = saved.function
		c.inFunction = saved.inFunction
		c.loopDepth = saved.loopDepth
	}()

	prologue := make([]vm.Command, 0, len(params)+1)
	prologue = append(prologue, c.cmd(s, vm.Command{Op: bytecode.OpEnterScope}))
	for i := len(s.Params.Names) - 1; i >= 0; i-- {
		p := s.Params.Names[i]
		prologue = append(prologue, c.cmd(p, vm.Command{Op: bytecode.OpAssignVariable, Name: p.Name}))
	}
	epilogue := one(
		c.push(s, vm.None),
		c.cmd(s, vm.Command{Op: bytecode.OpReturn}),
		c.cmd(s, vm.Command{Op: bytecode.OpExitScope}),
	)

	fn := &vm.Function{
		Name:   name,
		Params: params,
		Body:   seq(prologue, c.stmt(s.Body), epilogue),
	}

	c.function = saved.function
	return one(
		c.statementHighlight(s),
		c.cmd(s, vm.Command{Op: bytecode.OpDefineFunction, Function: fn}),
	)
}
