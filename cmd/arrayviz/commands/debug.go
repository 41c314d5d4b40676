// cmd/arrayviz/commands/debug.go
package commands

import (
	"context"

	"github.com/pkg/errors"

	"arrayviz/internal/debugger"
)

// DebugCommand starts the interactive debugger, paused before the first
// statement.
func DebugCommand(ctx context.Context, s Streams, args []string) error {
	fs, g := newFlagSet("debug", s)
	breaks := fs.IntSliceP("break", "b", nil, "set a breakpoint on a line (repeatable)")
	watches := fs.StringSliceP("watch", "w", nil, "watch a variable (repeatable)")
	inputs := fs.StringArrayP("input", "i", nil, "queue an answer for input() (repeatable)")
	history := fs.String("history", "", "line-editing history file (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return errors.New("usage: arrayviz debug [flags] [file]")
	}
	e, err := g.load(fs, s)
	if err != nil {
		return err
	}

	d := debugger.New(e.machine(), debugger.WithLogger(e.logger))
	d.ProvideInput(*inputs...)
	for _, line := range *breaks {
		d.AddBreakpoint(line)
	}
	for _, name := range *watches {
		d.Watch(name)
	}
	if fs.NArg() == 1 {
		src, err := readSource(fs.Arg(0))
		if err != nil {
			return err
		}
		if err := d.Load(src); err != nil {
			return err
		}
	}

	hist := e.cfg.Debugger.HistoryFile
	if fs.Changed("history") {
		hist = *history
	}
	c := debugger.NewConsole(d, s.In, s.Out, debugger.WithHistoryFile(hist))
	return c.Run(ctx)
}
