// internal/debugger/debugger.go
package debugger

import (
	"context"
	"fmt"
	"slices"
	"sort"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"

	"arrayviz/internal/compiler"
	"arrayviz/internal/errors"
	"arrayviz/internal/vm"
)

// ErrNotLoaded is returned by operations that need a program.
var ErrNotLoaded = pkgerrors.New("no program loaded")

// Breakpoint pauses Continue before a statement on Line executes.
type Breakpoint struct {
	ID       int  `json:"id"`
	Line     int  `json:"line"`
	Enabled  bool `json:"enabled"`
	HitCount int  `json:"hit_count"`
}

// StackFrame is one entry of the user-visible call stack.
type StackFrame struct {
	Function string `json:"function"`
	Line     int    `json:"line"`
}

// Debugger owns one program and its execution state.
type Debugger struct {
	machine     *vm.Machine
	logger      zerolog.Logger
	program     *vm.Program
	state       *vm.State
	breakpoints map[int]*Breakpoint
	nextBpID    int
	watches     []string
	// Inputs provided before a program is loaded.
	pending []string
}

// Option configures a Debugger.
type Option func(*Debugger)

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Debugger) { d.logger = l }
}

// New creates a debugger that executes with m.
func New(m *vm.Machine, opts ...Option) *Debugger {
	if m == nil {
		m = vm.NewMachine()
	}
	d := &Debugger{
		machine:     m,
		logger:      zerolog.Nop(),
		breakpoints: make(map[int]*Breakpoint),
		nextBpID:    1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Load compiles source and creates a fresh state for it. Breakpoints and
// watches survive a load; on a compile error the previous program stays.
func (d *Debugger) Load(source string) error {
	prog, err := compiler.CompileSource(source)
	if err != nil {
		return err
	}
	inputs := d.pending
	d.pending = nil
	if d.state != nil {
		inputs = append(d.unconsumed(), inputs...)
	}
	d.program = prog
	d.state = vm.NewState(prog)
	d.state.Inputs = inputs
	d.logger.Debug().Int("commands", len(prog.Code)).Int("lines", len(prog.Lines)).Msg("program loaded")
	return nil
}

// unconsumed returns the inputs the current state has not read yet.
func (d *Debugger) unconsumed() []string {
	d.machine.Reset(d.state)
	return d.state.Inputs
}

// Loaded reports whether a program is loaded.
func (d *Debugger) Loaded() bool { return d.state != nil }

// State exposes the live state. Callers must not mutate it.
func (d *Debugger) State() *vm.State { return d.state }

// Program returns the loaded program, or nil.
func (d *Debugger) Program() *vm.Program { return d.program }

// Lines returns the loaded source split into lines.
func (d *Debugger) Lines() []string {
	if d.program == nil {
		return nil
	}
	return d.program.Lines
}

// Step executes a single command.
func (d *Debugger) Step() (vm.StepResult, error) {
	if d.state == nil {
		return vm.StepResult{}, ErrNotLoaded
	}
	return d.machine.Step(d.state), nil
}

// Back undoes the most recent command. It reports false at the start of
// the program.
func (d *Debugger) Back() (bool, error) {
	if d.state == nil {
		return false, ErrNotLoaded
	}
	return d.machine.StepBack(d.state), nil
}

// BackLine undoes commands until the previous statement is about to run.
func (d *Debugger) BackLine() (int, error) {
	if d.state == nil {
		return 0, ErrNotLoaded
	}
	n := 0
	for d.machine.StepBack(d.state) {
		n++
		if atStatement(d.state) {
			break
		}
	}
	return n, nil
}

// StepInto runs until the next statement starts, at any call depth.
func (d *Debugger) StepInto(ctx context.Context) (vm.RunResult, error) {
	return d.runUntil(ctx, anyOf(atStatement, d.breakpointHit))
}

// StepOver runs until the next statement starts in the current function
// or a caller.
func (d *Debugger) StepOver(ctx context.Context) (vm.RunResult, error) {
	if d.state == nil {
		return vm.RunResult{}, ErrNotLoaded
	}
	return d.runUntil(ctx, anyOf(stepOver(d.state.Depth()), d.breakpointHit))
}

// StepOut runs until the current function returns to its caller.
func (d *Debugger) StepOut(ctx context.Context) (vm.RunResult, error) {
	if d.state == nil {
		return vm.RunResult{}, ErrNotLoaded
	}
	return d.runUntil(ctx, anyOf(stepOut(d.state.Depth()), d.breakpointHit))
}

// Run executes to completion, ignoring breakpoints.
func (d *Debugger) Run(ctx context.Context) (vm.RunResult, error) {
	return d.runUntil(ctx, nil)
}

// Continue executes until a breakpoint line is reached or the program
// halts or errors.
func (d *Debugger) Continue(ctx context.Context) (vm.RunResult, error) {
	return d.runUntil(ctx, d.breakpointHit)
}

func (d *Debugger) runUntil(ctx context.Context, stop func(*vm.State) bool) (vm.RunResult, error) {
	if d.state == nil {
		return vm.RunResult{}, ErrNotLoaded
	}
	res := d.machine.RunUntil(ctx, d.state, stop)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	d.logger.Debug().
		Stringer("status", res.Status).
		Int("steps", res.Steps).
		Int("line", d.state.CurrentLine).
		Msg("run paused")
	return res, nil
}

// Reset rewinds the program to its first command. Consumed inputs are
// queued again.
func (d *Debugger) Reset() error {
	if d.state == nil {
		return ErrNotLoaded
	}
	d.machine.Reset(d.state)
	return nil
}

// ProvideInput queues answers for input().
func (d *Debugger) ProvideInput(lines ...string) {
	if d.state == nil {
		d.pending = append(d.pending, lines...)
		return
	}
	d.state.Inputs = append(d.state.Inputs, lines...)
}

// AddBreakpoint sets a breakpoint on line and returns its ID.
func (d *Debugger) AddBreakpoint(line int) int {
	bp := &Breakpoint{ID: d.nextBpID, Line: line, Enabled: true}
	d.breakpoints[bp.ID] = bp
	d.nextBpID++
	return bp.ID
}

// RemoveBreakpoint deletes a breakpoint by ID.
func (d *Debugger) RemoveBreakpoint(id int) bool {
	if _, ok := d.breakpoints[id]; !ok {
		return false
	}
	delete(d.breakpoints, id)
	return true
}

// SetBreakpointEnabled toggles a breakpoint without removing it.
func (d *Debugger) SetBreakpointEnabled(id int, enabled bool) bool {
	bp, ok := d.breakpoints[id]
	if !ok {
		return false
	}
	bp.Enabled = enabled
	return true
}

// Breakpoints returns copies of all breakpoints ordered by ID.
func (d *Debugger) Breakpoints() []Breakpoint {
	out := make([]Breakpoint, 0, len(d.breakpoints))
	for _, bp := range d.breakpoints {
		out = append(out, *bp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Watch adds name to the watch list.
func (d *Debugger) Watch(name string) {
	if !slices.Contains(d.watches, name) {
		d.watches = append(d.watches, name)
	}
}

// Unwatch removes name from the watch list.
func (d *Debugger) Unwatch(name string) bool {
	i := slices.Index(d.watches, name)
	if i < 0 {
		return false
	}
	d.watches = slices.Delete(d.watches, i, i+1)
	return true
}

// Watches returns the watched names in the order they were added.
func (d *Debugger) Watches() []string { return slices.Clone(d.watches) }

// Snapshot copies the current state, including watched values.
func (d *Debugger) Snapshot() (*vm.Snapshot, error) {
	if d.state == nil {
		return nil, ErrNotLoaded
	}
	return d.state.Snapshot(d.watches...), nil
}

// Evaluate returns the current binding of a variable.
func (d *Debugger) Evaluate(name string) (vm.Value, error) {
	if d.state == nil {
		return nil, ErrNotLoaded
	}
	v, ok := d.state.Lookup(name)
	if !ok {
		return nil, errors.Newf(errors.NameError, 0, 0, "name '%s' is not defined", name)
	}
	return v, nil
}

// CallStack lists the active frames, innermost first.
func (d *Debugger) CallStack() []StackFrame {
	s := d.state
	if s == nil {
		return nil
	}
	name := func(i int) string {
		if i < 0 {
			return "<module>"
		}
		return s.CallStack[i].Function.Name
	}
	frames := []StackFrame{{Function: name(len(s.CallStack) - 1), Line: d.Line()}}
	for i := len(s.CallStack) - 1; i >= 0; i-- {
		frames = append(frames, StackFrame{Function: name(i - 1), Line: s.CallStack[i].Statement.Line()})
	}
	return frames
}

// Line is the line of the statement about to run, or of the last one
// executed when a statement is in progress.
func (d *Debugger) Line() int {
	if d.state == nil {
		return 0
	}
	if line := statementLine(d.state); line > 0 {
		return line
	}
	return d.state.CurrentLine
}

// Location describes the current position as "line N" or the final status.
func (d *Debugger) Location() string {
	s := d.state
	switch {
	case s == nil:
		return "no program"
	case s.Status == vm.Halted:
		return "halted"
	case s.Status == vm.Errored:
		return fmt.Sprintf("errored at line %d", s.CurrentLine)
	case d.Line() == 0:
		return "at start"
	}
	return fmt.Sprintf("line %d", d.Line())
}
