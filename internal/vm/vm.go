package vm

import (
	"context"

	"github.com/rs/zerolog"

	"arrayviz/internal/errors"
)

const (
	// DefaultMaxSteps bounds Run so that a non-terminating program errors
	// instead of hanging.
	DefaultMaxSteps = 1_000_000
	// DefaultMaxDepth bounds user-function recursion.
	DefaultMaxDepth = 1000
)

// Machine executes commands against a State. It holds configuration only;
// all execution state lives in the State passed to each call.
type Machine struct {
	logger   zerolog.Logger
	maxSteps int
	maxDepth int
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the trace logger; the default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithMaxSteps sets the step limit Run enforces; n <= 0 disables it.
func WithMaxSteps(n int) Option {
	return func(m *Machine) { m.maxSteps = n }
}

// WithMaxDepth sets the maximum user-function call depth.
func WithMaxDepth(n int) Option {
	return func(m *Machine) { m.maxDepth = n }
}

func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		logger:   zerolog.Nop(),
		maxSteps: DefaultMaxSteps,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StepResult reports one forward step.
type StepResult struct {
	Status  Status
	Command *Command
	PC      int
	Err     error
}

// Step executes the command at PC. A command that fails is reverted before
// the error is reported, so the state is exactly as it was before the step.
func (m *Machine) Step(s *State) StepResult {
	if s.Done() {
		return StepResult{Status: s.Status, PC: s.PC, Err: s.Err}
	}
	if s.PC >= len(s.Code) {
		s.Status = Halted
		return StepResult{Status: s.Status, PC: s.PC}
	}

	pc := s.PC
	cmd := &s.Code[pc]
	code := s.Code
	t := &txn{s: s}

	m.logger.Trace().
		Stringer("op", cmd.Op).
		Int("pc", pc).
		Int("depth", len(s.CallStack)).
		Int("stack_depth", len(s.Stack)).
		Msg("step")

	next, err := m.exec(t, cmd)
	if err != nil {
		t.inv.Apply(s)
		s.Code = code
		s.PC = pc
		s.Status = Errored
		s.Err = m.locate(s, cmd, err)
		m.logger.Debug().Err(err).Stringer("op", cmd.Op).Int("pc", pc).Msg("command failed")
		return StepResult{Status: s.Status, Command: cmd, PC: pc, Err: s.Err}
	}

	s.History = append(s.History, Entry{Command: cmd, PC: pc, Code: code, Inverse: t.inv})
	s.PC = next
	s.Steps++
	s.Status = Running
	if s.PC >= len(s.Code) && len(s.CallStack) == 0 {
		s.Status = Halted
		m.logger.Debug().Int("steps", s.Steps).Int("lines", s.LineCount).Msg("program halted")
	}
	return StepResult{Status: s.Status, Command: cmd, PC: pc}
}

// locate attaches the failing command's source position to err.
func (m *Machine) locate(s *State, cmd *Command, err error) error {
	e, ok := errors.As(err)
	if !ok {
		return err
	}
	if cmd != nil {
		e.At(cmd.Debug.Line, cmd.Debug.Column)
	}
	if s.Program != nil {
		e.AttachSource(s.Program.Lines)
	}
	return e
}

// StepBack undoes the most recently executed command. From Errored it also
// clears the error. It returns false when there is nothing to undo.
func (m *Machine) StepBack(s *State) bool {
	if s.Status == Errored {
		s.Status = Running
		s.Err = nil
	}
	n := len(s.History)
	if n == 0 {
		s.Status = Ready
		return false
	}
	e := s.History[n-1]
	s.History = s.History[:n-1]
	e.Inverse.Apply(s)
	s.Code = e.Code
	s.PC = e.PC
	s.Steps--
	s.Status = Running
	if len(s.History) == 0 {
		s.Status = Ready
	}
	m.logger.Trace().Stringer("op", e.Command.Op).Int("pc", e.PC).Msg("step back")
	return true
}

// RunResult reports a Run.
type RunResult struct {
	Status Status
	Steps  int
	Err    error
}

// Run steps until the program halts, errors, exceeds the step limit or
// ctx is cancelled. Cancellation leaves the state resumable.
func (m *Machine) Run(ctx context.Context, s *State) RunResult {
	return m.RunUntil(ctx, s, nil)
}

// RunUntil is Run with a stop predicate checked before each step; a true
// result pauses the run without executing the command at PC.
func (m *Machine) RunUntil(ctx context.Context, s *State, stop func(*State) bool) RunResult {
	steps := 0
	for !s.Done() {
		if err := ctx.Err(); err != nil {
			return RunResult{Status: s.Status, Steps: steps, Err: err}
		}
		if stop != nil && steps > 0 && stop(s) {
			break
		}
		if m.maxSteps > 0 && s.Steps >= m.maxSteps {
			s.Status = Errored
			s.Err = m.locate(s, s.Current(), errors.Newf(errors.RuntimeError, 0, 0,
				"step limit of %d exceeded", m.maxSteps))
			break
		}
		m.Step(s)
		steps++
	}
	return RunResult{Status: s.Status, Steps: steps, Err: s.Err}
}

// Reset rewinds s to the start of its program.
func (m *Machine) Reset(s *State) {
	s.Reset()
	m.logger.Trace().Msg("reset")
}
