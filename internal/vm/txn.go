package vm

import (
	"arrayviz/internal/bytecode"
	"arrayviz/internal/errors"
)

// txn applies one command's mutations to a State, journaling each into an
// Inverse.
type txn struct {
	s   *State
	inv Inverse
}

func internalErr(format string, args ...any) *errors.Error {
	return errors.Newf(errors.RuntimeError, 0, 0, format, args...)
}

func (t *txn) push(v Value) {
	t.s.Stack = append(t.s.Stack, v)
	t.inv.record(change{kind: changePush})
}

func (t *txn) pop() (Value, error) {
	n := len(t.s.Stack)
	if n == 0 {
		return nil, internalErr("evaluation stack underflow")
	}
	v := t.s.Stack[n-1]
	t.s.Stack = t.s.Stack[:n-1]
	t.inv.record(change{kind: changePop, value: v})
	return v, nil
}

// popN pops n values and returns them bottom first.
func (t *txn) popN(n int) ([]Value, error) {
	if n > len(t.s.Stack) {
		return nil, internalErr("evaluation stack underflow")
	}
	out := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := t.pop()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (t *txn) peek() (Value, error) {
	if len(t.s.Stack) == 0 {
		return nil, internalErr("evaluation stack underflow")
	}
	return t.s.Stack[len(t.s.Stack)-1], nil
}

func (t *txn) truncateStack(depth int) error {
	for len(t.s.Stack) > depth {
		if _, err := t.pop(); err != nil {
			return err
		}
	}
	return nil
}

func (t *txn) bind(name string, v Value) {
	old, existed := t.s.Variables[name]
	t.s.Variables[name] = v
	t.inv.record(change{kind: changeBind, name: name, value: old, existed: existed})
}

func (t *txn) replaceVars(vars map[string]Value) {
	t.inv.record(change{kind: changeVars, vars: t.s.Variables})
	t.s.Variables = vars
}

func (t *txn) pushScope() {
	t.s.Scopes = append(t.s.Scopes, cloneVars(t.s.Variables))
	t.inv.record(change{kind: changeScopePush})
}

func (t *txn) popScope() (map[string]Value, error) {
	n := len(t.s.Scopes)
	if n == 0 {
		return nil, internalErr("scope stack underflow")
	}
	vars := t.s.Scopes[n-1]
	t.s.Scopes = t.s.Scopes[:n-1]
	t.inv.record(change{kind: changeScopePop, vars: vars})
	return vars, nil
}

// setElems installs a new element slice on l. elems must not share a
// backing array with l.Elems.
func (t *txn) setElems(l *List, elems []Value) {
	t.inv.record(change{kind: changeList, list: l, elems: l.Elems})
	l.Elems = elems
}

func (t *txn) advance(it *Iterator) Value {
	v := it.Items[it.Next]
	t.inv.record(change{kind: changeIter, iter: it, n: it.Next})
	it.Next++
	return v
}

func (t *txn) pushLoop(b LoopBounds) {
	t.s.LoopStack = append(t.s.LoopStack, b)
	t.inv.record(change{kind: changeLoopPush})
}

func (t *txn) popLoop() error {
	n := len(t.s.LoopStack)
	if n == 0 {
		return internalErr("loop stack underflow")
	}
	b := t.s.LoopStack[n-1]
	t.s.LoopStack = t.s.LoopStack[:n-1]
	t.inv.record(change{kind: changeLoopPop, bounds: b})
	return nil
}

func (t *txn) truncateLoops(depth int) error {
	for len(t.s.LoopStack) > depth {
		if err := t.popLoop(); err != nil {
			return err
		}
	}
	return nil
}

func (t *txn) pushFrame(f *Frame) {
	t.s.CallStack = append(t.s.CallStack, f)
	t.inv.record(change{kind: changeFramePush})
}

func (t *txn) popFrame() (*Frame, error) {
	n := len(t.s.CallStack)
	if n == 0 {
		return nil, internalErr("call stack underflow")
	}
	f := t.s.CallStack[n-1]
	t.s.CallStack = t.s.CallStack[:n-1]
	t.inv.record(change{kind: changeFramePop, frame: f})
	return f, nil
}

func (t *txn) pushReturn(v Value) {
	t.s.ReturnStack = append(t.s.ReturnStack, v)
	t.inv.record(change{kind: changeReturnPush})
}

func (t *txn) popReturn() (Value, error) {
	n := len(t.s.ReturnStack)
	if n == 0 {
		return nil, internalErr("return stack underflow")
	}
	v := t.s.ReturnStack[n-1]
	t.s.ReturnStack = t.s.ReturnStack[:n-1]
	t.inv.record(change{kind: changeReturnPop, value: v})
	return v, nil
}

func (t *txn) output(line string) {
	t.s.Outputs = append(t.s.Outputs, line)
	t.inv.record(change{kind: changeOutput})
}

// takeInput consumes the next queued answer, or "" when none is queued.
func (t *txn) takeInput() string {
	if len(t.s.Inputs) == 0 {
		return ""
	}
	text := t.s.Inputs[0]
	t.s.Inputs = t.s.Inputs[1:]
	t.inv.record(change{kind: changeInput, text: text})
	return text
}

func (t *txn) saveHighlight() {
	t.inv.record(change{kind: changeHighlight, hl: highlight{
		expression: t.s.CurrentExpression,
		statement:  t.s.CurrentStatement,
		line:       t.s.CurrentLine,
		lineCount:  t.s.LineCount,
	}})
}

func (t *txn) highlightExpression(r *bytecode.Region) {
	t.saveHighlight()
	t.s.CurrentExpression = r
}

func (t *txn) highlightStatement(r *bytecode.Region) {
	t.saveHighlight()
	t.s.CurrentStatement = r
	t.s.CurrentExpression = nil
	t.s.CurrentLine = r.Line()
	t.s.LineCount++
}

func (t *txn) restoreHighlight(f *Frame) {
	t.saveHighlight()
	t.s.CurrentExpression = f.Expression
	t.s.CurrentStatement = f.Statement
	t.s.CurrentLine = f.Statement.Line()
}
