package vm

import "arrayviz/internal/bytecode"

type changeKind uint8

const (
	changePush changeKind = iota
	changePop
	changeBind
	changeVars
	changeScopePush
	changeScopePop
	changeList
	changeIter
	changeLoopPush
	changeLoopPop
	changeFramePush
	changeFramePop
	changeReturnPush
	changeReturnPop
	changeOutput
	changeInput
	changeHighlight
)

type highlight struct {
	expression *bytecode.Region
	statement  *bytecode.Region
	line       int
	lineCount  int
}

// change records one primitive mutation and the data needed to revert it.
type change struct {
	kind    changeKind
	name    string
	value   Value
	existed bool
	vars    map[string]Value
	list    *List
	elems   []Value
	iter    *Iterator
	n       int
	bounds  LoopBounds
	frame   *Frame
	text    string
	hl      highlight
}

// Inverse reverts the effects of one executed command. It is built as the
// command runs, so a command that fails halfway is reverted exactly as far
// as it got.
type Inverse struct {
	changes []change
}

// Len is the number of primitive mutations recorded.
func (inv *Inverse) Len() int { return len(inv.changes) }

func (inv *Inverse) record(c change) {
	inv.changes = append(inv.changes, c)
}

// Apply reverts the recorded mutations in reverse order.
func (inv *Inverse) Apply(s *State) {
	for i := len(inv.changes) - 1; i >= 0; i-- {
		c := &inv.changes[i]
		switch c.kind {
		case changePush:
			s.Stack = s.Stack[:len(s.Stack)-1]
		case changePop:
			s.Stack = append(s.Stack, c.value)
		case changeBind:
			if c.existed {
				s.Variables[c.name] = c.value
			} else {
				delete(s.Variables, c.name)
			}
		case changeVars:
			s.Variables = c.vars
		case changeScopePush:
			s.Scopes = s.Scopes[:len(s.Scopes)-1]
		case changeScopePop:
			s.Scopes = append(s.Scopes, c.vars)
		case changeList:
			c.list.Elems = c.elems
		case changeIter:
			c.iter.Next = c.n
		case changeLoopPush:
			s.LoopStack = s.LoopStack[:len(s.LoopStack)-1]
		case changeLoopPop:
			s.LoopStack = append(s.LoopStack, c.bounds)
		case changeFramePush:
			s.CallStack = s.CallStack[:len(s.CallStack)-1]
		case changeFramePop:
			s.CallStack = append(s.CallStack, c.frame)
		case changeReturnPush:
			s.ReturnStack = s.ReturnStack[:len(s.ReturnStack)-1]
		case changeReturnPop:
			s.ReturnStack = append(s.ReturnStack, c.value)
		case changeOutput:
			s.Outputs = s.Outputs[:len(s.Outputs)-1]
		case changeInput:
			s.Inputs = append([]string{c.text}, s.Inputs...)
		case changeHighlight:
			s.CurrentExpression = c.hl.expression
			s.CurrentStatement = c.hl.statement
			s.CurrentLine = c.hl.line
			s.LineCount = c.hl.lineCount
		}
	}
}

// consumed returns the input answers this command took, in order.
func (inv *Inverse) consumed() []string {
	var out []string
	for _, c := range inv.changes {
		if c.kind == changeInput {
			out = append(out, c.text)
		}
	}
	return out
}
