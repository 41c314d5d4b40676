package vm

import (
	"maps"
	"slices"

	"arrayviz/internal/bytecode"
	"arrayviz/internal/errors"
)

// ValueView is a detached rendering of a Value. Lists carry an ID so that
// aliases of one list can be recognised.
type ValueView struct {
	Type  string      `json:"type"`
	Repr  string      `json:"repr"`
	ID    int         `json:"id,omitempty"`
	Items []ValueView `json:"items,omitempty"`
}

// Snapshot is a deep copy of the observable parts of a State.
type Snapshot struct {
	Status     string               `json:"status"`
	PC         int                  `json:"pc"`
	Line       int                  `json:"line"`
	LineCount  int                  `json:"line_count"`
	Steps      int                  `json:"steps"`
	Expression *bytecode.Region     `json:"expression,omitempty"`
	Statement  *bytecode.Region     `json:"statement,omitempty"`
	Command    string               `json:"command,omitempty"`
	Stack      []ValueView          `json:"stack"`
	Variables  map[string]ValueView `json:"variables"`
	Watches    map[string]ValueView `json:"watches,omitempty"`
	Loops      []LoopBounds         `json:"loops"`
	Outputs    []string             `json:"outputs"`
	CallDepth  int                  `json:"call_depth"`
	Error      *errors.Error        `json:"error,omitempty"`
}

type viewer struct {
	ids  map[*List]int
	open map[*List]bool
}

func (v *viewer) view(val Value) ValueView {
	out := ValueView{Type: val.TypeName(), Repr: val.Repr()}
	l, ok := val.(*List)
	if !ok {
		return out
	}
	id, seen := v.ids[l]
	if !seen {
		id = len(v.ids) + 1
		v.ids[l] = id
	}
	out.ID = id
	if v.open[l] {
		return out
	}
	v.open[l] = true
	out.Items = make([]ValueView, len(l.Elems))
	for i, e := range l.Elems {
		out.Items[i] = v.view(e)
	}
	delete(v.open, l)
	return out
}

// Snapshot copies the state for an observer. Each watched name is reported
// under Watches; unbound names render as "<unbound>".
func (s *State) Snapshot(watches ...string) *Snapshot {
	v := &viewer{ids: map[*List]int{}, open: map[*List]bool{}}
	snap := &Snapshot{
		Status:     s.Status.String(),
		PC:         s.PC,
		Line:       s.CurrentLine,
		LineCount:  s.LineCount,
		Steps:      s.Steps,
		Expression: copyRegion(s.CurrentExpression),
		Statement:  copyRegion(s.CurrentStatement),
		Stack:      make([]ValueView, len(s.Stack)),
		Variables:  make(map[string]ValueView, len(s.Variables)),
		Loops:      slices.Clone(s.LoopStack),
		Outputs:    slices.Clone(s.Outputs),
		CallDepth:  len(s.CallStack),
	}
	if cmd := s.Current(); cmd != nil {
		snap.Command = cmd.String()
	}
	for i, val := range s.Stack {
		snap.Stack[i] = v.view(val)
	}
	// Sorted so that list IDs are stable across snapshots.
	for _, name := range slices.Sorted(maps.Keys(s.Variables)) {
		snap.Variables[name] = v.view(s.Variables[name])
	}
	if len(watches) > 0 {
		snap.Watches = make(map[string]ValueView, len(watches))
		for _, name := range watches {
			val, ok := s.Variables[name]
			if !ok {
				snap.Watches[name] = ValueView{Repr: "<unbound>"}
				continue
			}
			snap.Watches[name] = v.view(val)
		}
	}
	if e, ok := errors.As(s.Err); ok {
		cp := *e
		snap.Error = &cp
	} else if s.Err != nil {
		snap.Error = errors.New(errors.RuntimeError, s.Err.Error(), 0, 0)
	}
	if snap.Loops == nil {
		snap.Loops = []LoopBounds{}
	}
	if snap.Outputs == nil {
		snap.Outputs = []string{}
	}
	return snap
}

func copyRegion(r *bytecode.Region) *bytecode.Region {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}
