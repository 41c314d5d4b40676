package vm

import (
	"maps"

	"arrayviz/internal/bytecode"
)

// Status is the driver state of a State.
type Status int

const (
	Ready Status = iota
	Running
	Halted
	Errored
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Errored:
		return "errored"
	}
	return "unknown"
}

// LoopBounds holds the absolute continue and break targets of a loop,
// within the code sequence that pushed them.
type LoopBounds struct {
	Continue int `json:"continue"`
	Break    int `json:"break"`
}

// Frame is one active user-function call.
type Frame struct {
	Function *Function
	// Caller's code and the PC to resume at.
	Code     []Command
	ReturnPC int
	// Caller's highlights, restored on return.
	Expression *bytecode.Region
	Statement  *bytecode.Region
	// Depths to truncate back to when the call finishes.
	StackDepth int
	LoopDepth  int
}

// Entry is one executed command in the history log.
type Entry struct {
	Command *Command
	PC      int
	Code    []Command
	Inverse Inverse
}

// State is the whole machine state. Every VM operation takes it explicitly.
type State struct {
	Program *Program

	// Active command sequence: the program or a function body.
	Code []Command
	PC   int

	LineCount         int
	CurrentLine       int
	CurrentExpression *bytecode.Region
	CurrentStatement  *bytecode.Region

	CallStack []*Frame
	History   []Entry

	Variables   map[string]Value
	Stack       []Value
	ReturnStack []Value
	LoopStack   []LoopBounds
	// Variable mappings saved by EnterScope.
	Scopes []map[string]Value

	Outputs []string
	// Queued answers for input(); consumed front first.
	Inputs []string

	Status Status
	Err    error
	Steps  int
}

// NewState creates the initial state for prog.
func NewState(prog *Program) *State {
	s := &State{Program: prog}
	s.Reset()
	return s
}

// Reset rewinds to the initial state, keeping the program and queued inputs
// that have not been consumed.
func (s *State) Reset() {
	inputs := s.Inputs
	for i := len(s.History) - 1; i >= 0; i-- {
		inputs = append(s.History[i].Inverse.consumed(), inputs...)
	}
	*s = State{
		Program:   s.Program,
		Code:      s.Program.Code,
		Variables: make(map[string]Value),
		Inputs:    inputs,
	}
}

// Done reports whether the state can no longer step forward.
func (s *State) Done() bool {
	return s.Status == Halted || s.Status == Errored
}

// Current returns the command at PC, or nil at the end of the code.
func (s *State) Current() *Command {
	if s.PC < 0 || s.PC >= len(s.Code) {
		return nil
	}
	return &s.Code[s.PC]
}

// Depth is the number of active user-function calls.
func (s *State) Depth() int { return len(s.CallStack) }

// Lookup returns the current binding of name.
func (s *State) Lookup(name string) (Value, bool) {
	v, ok := s.Variables[name]
	return v, ok
}

func cloneVars(vars map[string]Value) map[string]Value {
	if vars == nil {
		return map[string]Value{}
	}
	return maps.Clone(vars)
}
