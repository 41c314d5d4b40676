// internal/debugger/console.go
package debugger

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/kr/pretty"
	"github.com/peterh/liner"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/term"

	"arrayviz/internal/vm"
)

const prompt = "(arrayviz) "

var commandNames = []string{
	"help", "step", "stepi", "next", "finish", "back", "backi", "continue", "run",
	"break", "delete", "list", "where", "watch", "unwatch", "print", "vars",
	"state", "out", "input", "reset", "source", "load", "quit",
}

// Console is an interactive command loop over a Debugger.
type Console struct {
	d           *Debugger
	in          io.Reader
	out         io.Writer
	historyFile string
	// Number of program outputs already echoed.
	shown int
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithHistoryFile persists line-editing history between sessions.
func WithHistoryFile(path string) ConsoleOption {
	return func(c *Console) { c.historyFile = path }
}

// NewConsole creates a console reading commands from in.
func NewConsole(d *Debugger, in io.Reader, out io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{d: d, in: in, out: out}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run reads commands until quit, end of input or ctx is cancelled. A
// terminal gets line editing; anything else is read line by line.
func (c *Console) Run(ctx context.Context) error {
	fmt.Fprintln(c.out, "arrayviz debugger. Type 'help' for available commands")
	if c.d.Loaded() {
		c.showLocation()
	}
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return c.runLiner(ctx)
	}
	return c.runPlain(ctx)
}

func (c *Console) runLiner(ctx context.Context) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(func(line string) []string {
		var out []string
		for _, name := range commandNames {
			if strings.HasPrefix(name, line) {
				out = append(out, name)
			}
		}
		return out
	})

	if c.historyFile != "" {
		if f, err := os.Open(c.historyFile); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(c.historyFile); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	for ctx.Err() == nil {
		line, err := ln.Prompt(prompt)
		if stderrors.Is(err, io.EOF) || stderrors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(c.out)
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(err, "read command")
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if c.Execute(ctx, line) {
			return nil
		}
	}
	return ctx.Err()
}

func (c *Console) runPlain(ctx context.Context) error {
	sc := bufio.NewScanner(c.in)
	for ctx.Err() == nil {
		fmt.Fprint(c.out, prompt)
		if !sc.Scan() {
			fmt.Fprintln(c.out)
			return pkgerrors.Wrap(sc.Err(), "read command")
		}
		if c.Execute(ctx, sc.Text()) {
			return nil
		}
	}
	return ctx.Err()
}

// Execute runs one console command and reports whether the session ended.
func (c *Console) Execute(ctx context.Context, line string) (quit bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, args := parts[0], parts[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), cmd))

	switch cmd {
	case "help", "h":
		c.showHelp()

	case "step", "s":
		c.move(c.d.StepInto(ctx))

	case "stepi", "si":
		res, err := c.d.Step()
		if c.report(err) {
			if res.Command != nil {
				fmt.Fprintf(c.out, "executed %s\n", res.Command)
			}
			c.afterMove()
		}

	case "next", "n":
		c.move(c.d.StepOver(ctx))

	case "finish", "f":
		c.move(c.d.StepOut(ctx))

	case "back", "bk":
		n, err := c.d.BackLine()
		if c.report(err) {
			if n == 0 {
				fmt.Fprintln(c.out, "already at the start of the program")
			}
			c.afterMove()
		}

	case "backi", "bi":
		ok, err := c.d.Back()
		if c.report(err) {
			if !ok {
				fmt.Fprintln(c.out, "already at the start of the program")
			}
			c.afterMove()
		}

	case "continue", "c":
		c.move(c.d.Continue(ctx))

	case "run", "r":
		c.move(c.d.Run(ctx))

	case "break", "b":
		if len(args) != 1 {
			fmt.Fprintln(c.out, "Usage: break <line>")
			return false
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			fmt.Fprintf(c.out, "Invalid line number: %s\n", args[0])
			return false
		}
		id := c.d.AddBreakpoint(n)
		fmt.Fprintf(c.out, "Breakpoint %d set at line %d\n", id, n)

	case "delete", "d":
		if len(args) != 1 {
			fmt.Fprintln(c.out, "Usage: delete <breakpoint_id>")
			return false
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(c.out, "Invalid breakpoint ID: %s\n", args[0])
			return false
		}
		if c.d.RemoveBreakpoint(id) {
			fmt.Fprintf(c.out, "Breakpoint %d removed\n", id)
		} else {
			fmt.Fprintf(c.out, "Breakpoint %d not found\n", id)
		}

	case "list", "l":
		c.listBreakpoints()

	case "where", "w":
		for i, f := range c.d.CallStack() {
			marker := "   "
			if i == 0 {
				marker = "-> "
			}
			fmt.Fprintf(c.out, "%s%d: %s (line %d)\n", marker, i, f.Function, f.Line)
		}

	case "watch":
		if len(args) == 0 {
			c.showWatches()
			return false
		}
		for _, name := range args {
			c.d.Watch(name)
		}

	case "unwatch":
		if len(args) == 0 {
			fmt.Fprintln(c.out, "Usage: unwatch <name>")
			return false
		}
		for _, name := range args {
			if !c.d.Unwatch(name) {
				fmt.Fprintf(c.out, "Watch not found: %s\n", name)
			}
		}

	case "print", "p":
		if len(args) != 1 {
			fmt.Fprintln(c.out, "Usage: print <name>")
			return false
		}
		v, err := c.d.Evaluate(args[0])
		if c.report(err) {
			fmt.Fprintf(c.out, "%s = %s\n", args[0], v.Repr())
		}

	case "vars", "v":
		c.showVariables()

	case "state":
		snap, err := c.d.Snapshot()
		if c.report(err) {
			pretty.Fprintf(c.out, "%# v\n", snap)
		}

	case "out", "o":
		if st := c.d.State(); st != nil {
			for _, o := range st.Outputs {
				fmt.Fprintln(c.out, o)
			}
			c.shown = len(st.Outputs)
		}

	case "input", "i":
		c.d.ProvideInput(rest)
		fmt.Fprintf(c.out, "queued input %q\n", rest)

	case "reset":
		if c.report(c.d.Reset()) {
			c.shown = 0
			c.showLocation()
		}

	case "source", "src":
		c.showSource()

	case "load":
		if rest == "" {
			fmt.Fprintln(c.out, "Usage: load <file>")
			return false
		}
		c.load(rest)

	case "quit", "q":
		fmt.Fprintln(c.out, "Debugging session terminated")
		return true

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for available commands)\n", cmd)
	}
	return false
}

func (c *Console) load(path string) {
	src, err := os.ReadFile(path)
	if err != nil {
		c.report(pkgerrors.Wrapf(err, "load %s", path))
		return
	}
	if c.report(c.d.Load(string(src))) {
		c.shown = 0
		fmt.Fprintf(c.out, "Loaded %s (%d lines)\n", path, len(c.d.Lines()))
		c.showLocation()
	}
}

// report prints err and returns whether the command may proceed.
func (c *Console) report(err error) bool {
	if err == nil {
		return true
	}
	fmt.Fprintf(c.out, "error: %v\n", err)
	return false
}

func (c *Console) move(_ vm.RunResult, err error) {
	if !c.report(err) {
		return
	}
	c.afterMove()
}

// afterMove echoes new program output and the new position.
func (c *Console) afterMove() {
	st := c.d.State()
	if st == nil {
		return
	}
	if c.shown > len(st.Outputs) {
		c.shown = len(st.Outputs)
	}
	for _, o := range st.Outputs[c.shown:] {
		fmt.Fprintln(c.out, o)
	}
	c.shown = len(st.Outputs)

	switch st.Status {
	case vm.Halted:
		fmt.Fprintf(c.out, "Program halted after %s steps, %s statements\n",
			humanize.Comma(int64(st.Steps)), humanize.Comma(int64(st.LineCount)))
		return
	case vm.Errored:
		fmt.Fprintln(c.out, st.Err)
		return
	}
	c.showLocation()
	c.showWatches()
}

// showLocation prints the lines around the current statement.
func (c *Console) showLocation() {
	st := c.d.State()
	if st == nil {
		fmt.Fprintln(c.out, "No program loaded")
		return
	}
	line := c.d.Line()
	fmt.Fprintf(c.out, "Current location: %s\n", c.d.Location())
	if line == 0 {
		return
	}
	lines := c.d.Lines()
	start := max(0, line-3)
	end := min(len(lines), line+2)
	for i := start; i < end; i++ {
		marker := "   "
		if i+1 == line {
			marker = "-> "
		}
		fmt.Fprintf(c.out, "%s%4d | %s\n", marker, i+1, lines[i])
	}
}

func (c *Console) showSource() {
	lines := c.d.Lines()
	if lines == nil {
		fmt.Fprintln(c.out, "No program loaded")
		return
	}
	bps := map[int]bool{}
	for _, bp := range c.d.Breakpoints() {
		bps[bp.Line] = bp.Enabled
	}
	for i, l := range lines {
		mark := " "
		if bps[i+1] {
			mark = "*"
		}
		fmt.Fprintf(c.out, "%s%4d | %s\n", mark, i+1, l)
	}
}

func (c *Console) listBreakpoints() {
	bps := c.d.Breakpoints()
	if len(bps) == 0 {
		fmt.Fprintln(c.out, "No breakpoints set")
		return
	}
	fmt.Fprintln(c.out, "Breakpoints:")
	for _, bp := range bps {
		status := "enabled"
		if !bp.Enabled {
			status = "disabled"
		}
		fmt.Fprintf(c.out, "  %d: line %d (%s) hits: %d\n", bp.ID, bp.Line, status, bp.HitCount)
	}
}

func (c *Console) showWatches() {
	snap, err := c.d.Snapshot()
	if err != nil || len(snap.Watches) == 0 {
		return
	}
	fmt.Fprintln(c.out, "Watches:")
	for _, name := range c.d.Watches() {
		fmt.Fprintf(c.out, "  %s = %s\n", name, snap.Watches[name].Repr)
	}
}

func (c *Console) showVariables() {
	st := c.d.State()
	if st == nil {
		fmt.Fprintln(c.out, "No program loaded")
		return
	}
	for _, name := range slices.Sorted(maps.Keys(st.Variables)) {
		fmt.Fprintf(c.out, "  %s = %s\n", name, st.Variables[name].Repr())
	}
}

func (c *Console) showHelp() {
	fmt.Fprintln(c.out, "Available commands:")
	fmt.Fprintln(c.out, "  help, h          - Show this help")
	fmt.Fprintln(c.out, "  step, s          - Run to the next statement, entering calls")
	fmt.Fprintln(c.out, "  stepi, si        - Execute one command")
	fmt.Fprintln(c.out, "  next, n          - Run to the next statement, stepping over calls")
	fmt.Fprintln(c.out, "  finish, f        - Run until the current function returns")
	fmt.Fprintln(c.out, "  back, bk         - Undo back to the previous statement")
	fmt.Fprintln(c.out, "  backi, bi        - Undo one command")
	fmt.Fprintln(c.out, "  continue, c      - Run to the next breakpoint")
	fmt.Fprintln(c.out, "  run, r           - Run to completion, ignoring breakpoints")
	fmt.Fprintln(c.out, "  break <line>     - Set a breakpoint")
	fmt.Fprintln(c.out, "  delete <id>      - Remove a breakpoint")
	fmt.Fprintln(c.out, "  list, l          - List breakpoints")
	fmt.Fprintln(c.out, "  where, w         - Show the call stack")
	fmt.Fprintln(c.out, "  watch [name...]  - Watch variables, or show watches")
	fmt.Fprintln(c.out, "  unwatch <name>   - Stop watching a variable")
	fmt.Fprintln(c.out, "  print <name>     - Print a variable")
	fmt.Fprintln(c.out, "  vars, v          - Print all variables")
	fmt.Fprintln(c.out, "  state            - Dump the full machine snapshot")
	fmt.Fprintln(c.out, "  out, o           - Print all program output")
	fmt.Fprintln(c.out, "  input <text>     - Queue an answer for input()")
	fmt.Fprintln(c.out, "  reset            - Restart the program")
	fmt.Fprintln(c.out, "  source, src      - List the program")
	fmt.Fprintln(c.out, "  load <file>      - Load a program")
	fmt.Fprintln(c.out, "  quit, q          - Exit debugger")
}
