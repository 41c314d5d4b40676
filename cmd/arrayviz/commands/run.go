// cmd/arrayviz/commands/run.go
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kr/pretty"
	"github.com/pkg/errors"

	"arrayviz/internal/compiler"
	"arrayviz/internal/vm"
)

// RunCommand compiles and runs a program to completion.
func RunCommand(ctx context.Context, s Streams, args []string) error {
	fs, g := newFlagSet("run", s)
	inputs := fs.StringArrayP("input", "i", nil, "queue an answer for input() (repeatable)")
	disasm := fs.Bool("disasm", false, "print the compiled commands instead of running")
	dump := fs.Bool("dump", false, "print the final machine snapshot")
	stats := fs.Bool("stats", false, "print step and statement counts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: arrayviz run [flags] <file>")
	}
	e, err := g.load(fs, s)
	if err != nil {
		return err
	}

	src, err := readSource(fs.Arg(0))
	if err != nil {
		return err
	}
	prog, err := compiler.CompileSource(src)
	if err != nil {
		return err
	}
	if *disasm {
		fmt.Fprint(s.Out, vm.Disassemble(prog.Code))
		return nil
	}

	st := vm.NewState(prog)
	st.Inputs = append(st.Inputs, *inputs...)
	start := time.Now()
	res := e.machine().Run(ctx, st)
	elapsed := time.Since(start)

	for _, out := range st.Outputs {
		fmt.Fprintln(s.Out, out)
	}
	if *dump {
		pretty.Fprintf(s.Out, "%# v\n", st.Snapshot())
	}
	if *stats {
		fmt.Fprintf(s.Err, "%s steps, %s statements in %s\n",
			humanize.Comma(int64(st.Steps)), humanize.Comma(int64(st.LineCount)), elapsed.Round(time.Microsecond))
	}
	e.logger.Debug().
		Str("file", fs.Arg(0)).
		Stringer("status", res.Status).
		Int("steps", st.Steps).
		Dur("elapsed", elapsed).
		Msg("run finished")
	return res.Err
}
