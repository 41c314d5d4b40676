package vm

import (
	"strings"

	"arrayviz/internal/bytecode"
	"arrayviz/internal/errors"
)

// exec runs cmd against t and returns the next PC within the code that is
// active afterwards.
func (m *Machine) exec(t *txn, cmd *Command) (int, error) {
	s := t.s
	pc := s.PC
	next := pc + 1

	switch cmd.Op {
	case bytecode.OpPushValue:
		t.push(cmd.Value)

	case bytecode.OpPopValue:
		if _, err := t.pop(); err != nil {
			return 0, err
		}

	case bytecode.OpRetrieveValue:
		v, ok := s.Variables[cmd.Name]
		if !ok {
			return 0, errors.Newf(errors.NameError, 0, 0, "name '%s' is not defined", cmd.Name)
		}
		t.push(v)

	case bytecode.OpAssignVariable:
		if cmd.Iterate {
			top, err := t.peek()
			if err != nil {
				return 0, err
			}
			it, ok := top.(*Iterator)
			if !ok {
				return 0, internalErr("for-loop header expects an iterator, got %s", top.TypeName())
			}
			if !it.HasNext() {
				t.push(Bool(false))
				break
			}
			t.bind(cmd.Name, t.advance(it))
			t.push(Bool(true))
			break
		}
		v, err := t.pop()
		if err != nil {
			return 0, err
		}
		t.bind(cmd.Name, v)

	case bytecode.OpStoreIndex:
		vals, err := t.popN(3)
		if err != nil {
			return 0, err
		}
		if err := storeIndex(t, vals[0], vals[1], vals[2]); err != nil {
			return 0, err
		}

	case bytecode.OpBinary:
		vals, err := t.popN(2)
		if err != nil {
			return 0, err
		}
		r, err := BinaryOp(cmd.Name, vals[0], vals[1])
		if err != nil {
			return 0, err
		}
		t.push(r)

	case bytecode.OpComparison:
		vals, err := t.popN(2)
		if err != nil {
			return 0, err
		}
		r, err := CompareOp(cmd.Name, vals[0], vals[1])
		if err != nil {
			return 0, err
		}
		t.push(r)

	case bytecode.OpUnary:
		v, err := t.pop()
		if err != nil {
			return 0, err
		}
		r, err := UnaryOp(cmd.Name, v)
		if err != nil {
			return 0, err
		}
		t.push(r)

	case bytecode.OpConditionalJump:
		v, err := t.pop()
		if err != nil {
			return 0, err
		}
		if !Truthy(v) {
			next = pc + cmd.N
		}

	case bytecode.OpJump:
		next = pc + cmd.N

	case bytecode.OpPushLoopBounds:
		t.pushLoop(LoopBounds{Continue: pc + cmd.Continue, Break: pc + cmd.Break})

	case bytecode.OpPopLoopBounds:
		if err := t.popLoop(); err != nil {
			return 0, err
		}

	case bytecode.OpBreak, bytecode.OpContinue:
		if len(s.LoopStack) == 0 {
			word := "break"
			if cmd.Op == bytecode.OpContinue {
				word = "continue"
			}
			return 0, internalErr("'%s' outside loop", word)
		}
		top := s.LoopStack[len(s.LoopStack)-1]
		next = top.Break
		if cmd.Op == bytecode.OpContinue {
			next = top.Continue
		}

	case bytecode.OpEnterScope:
		t.pushScope()

	case bytecode.OpExitScope:
		return m.exitScope(t)

	case bytecode.OpReturn:
		if len(s.CallStack) == 0 {
			return 0, internalErr("'return' outside function")
		}
		v, err := t.pop()
		if err != nil {
			return 0, err
		}
		t.pushReturn(v)
		next = len(s.Code) - 1

	case bytecode.OpPrint:
		vals, err := t.popN(cmd.N)
		if err != nil {
			return 0, err
		}
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = v.String()
		}
		t.output(strings.Join(parts, " "))
		t.push(None)

	case bytecode.OpLen:
		v, err := t.pop()
		if err != nil {
			return 0, err
		}
		n, err := length(v)
		if err != nil {
			return 0, err
		}
		t.push(Int(int64(n)))

	case bytecode.OpType:
		v, err := t.pop()
		if err != nil {
			return 0, err
		}
		t.push(Str(ClassName(v)))

	case bytecode.OpInput:
		if cmd.N > 0 {
			vals, err := t.popN(cmd.N)
			if err != nil {
				return 0, err
			}
			t.output(vals[0].String())
		}
		t.push(Str(t.takeInput()))

	case bytecode.OpIndexAccess:
		vals, err := t.popN(2)
		if err != nil {
			return 0, err
		}
		v, err := indexValue(vals[0], vals[1])
		if err != nil {
			return 0, err
		}
		t.push(v)

	case bytecode.OpListSlice:
		vals, err := t.popN(4)
		if err != nil {
			return 0, err
		}
		v, err := sliceValue(vals[0], vals[1], vals[2], vals[3])
		if err != nil {
			return 0, err
		}
		t.push(v)

	case bytecode.OpCreateList:
		vals, err := t.popN(cmd.N)
		if err != nil {
			return 0, err
		}
		t.push(NewList(vals...))

	case bytecode.OpMethodCall:
		vals, err := t.popN(cmd.N + 1)
		if err != nil {
			return 0, err
		}
		v, err := callMethod(t, vals[0], cmd.Name, vals[1:])
		if err != nil {
			return 0, err
		}
		t.push(v)

	case bytecode.OpCallBuiltin:
		vals, err := t.popN(cmd.N)
		if err != nil {
			return 0, err
		}
		v, err := callBuiltin(cmd.Name, vals)
		if err != nil {
			return 0, err
		}
		t.push(v)

	case bytecode.OpCallUserFunction:
		return m.callFunction(t, cmd)

	case bytecode.OpDefineFunction:
		t.bind(cmd.Function.Name, cmd.Function)

	case bytecode.OpInterpolateFString:
		text, err := interpolate(cmd.Template, s.Variables)
		if err != nil {
			return 0, err
		}
		t.push(Str(text))

	case bytecode.OpHighlightExpression:
		t.highlightExpression(cmd.Region)

	case bytecode.OpHighlightStatement:
		t.highlightStatement(cmd.Region)

	default:
		return 0, internalErr("unknown opcode %s", cmd.Op)
	}

	if next < 0 || next > len(s.Code) {
		return 0, internalErr("jump target %d outside code of length %d", next, len(s.Code))
	}
	return next, nil
}

func (m *Machine) callFunction(t *txn, cmd *Command) (int, error) {
	s := t.s
	v, ok := s.Variables[cmd.Name]
	if !ok {
		return 0, errors.Newf(errors.NameError, 0, 0, "name '%s' is not defined", cmd.Name)
	}
	fn, ok := v.(*Function)
	if !ok {
		return 0, typeErr("'%s' object is not callable", v.TypeName())
	}
	if fn.Arity() != cmd.N {
		return 0, typeErr("%s() takes %d positional argument%s but %d %s given",
			fn.Name, fn.Arity(), plural(fn.Arity()), cmd.N, wasWere(cmd.N))
	}
	if len(s.CallStack) >= m.maxDepth {
		return 0, internalErr("maximum recursion depth exceeded")
	}
	if len(s.Stack) < cmd.N {
		return 0, internalErr("evaluation stack underflow")
	}
	t.pushFrame(&Frame{
		Function:   fn,
		Code:       s.Code,
		ReturnPC:   s.PC + 1,
		Expression: s.CurrentExpression,
		Statement:  s.CurrentStatement,
		StackDepth: len(s.Stack) - cmd.N,
		LoopDepth:  len(s.LoopStack),
	})
	s.Code = fn.Body
	return 0, nil
}

// exitScope finishes a call: restores the caller's variable mapping, drops
// whatever the body left on the stacks, and hands the return value over.
func (m *Machine) exitScope(t *txn) (int, error) {
	vars, err := t.popScope()
	if err != nil {
		return 0, err
	}
	t.replaceVars(vars)
	f, err := t.popFrame()
	if err != nil {
		return 0, err
	}
	if err := t.truncateLoops(f.LoopDepth); err != nil {
		return 0, err
	}
	ret, err := t.popReturn()
	if err != nil {
		return 0, err
	}
	if err := t.truncateStack(f.StackDepth); err != nil {
		return 0, err
	}
	t.push(ret)
	t.restoreHighlight(f)
	t.s.Code = f.Code
	return f.ReturnPC, nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func wasWere(n int) string {
	if n == 1 {
		return "was"
	}
	return "were"
}
