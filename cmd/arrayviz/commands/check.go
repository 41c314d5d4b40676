// cmd/arrayviz/commands/check.go
package commands

import (
	"context"
	"fmt"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"arrayviz/internal/compiler"
	rterrors "arrayviz/internal/errors"
	"arrayviz/internal/vm"
)

type checkResult struct {
	commands int
	steps    int
	outputs  int
	err      error
}

// CheckCommand compiles every file concurrently and, with --run, executes
// each one on its own machine.
func CheckCommand(ctx context.Context, s Streams, args []string) error {
	fs, g := newFlagSet("check", s)
	run := fs.Bool("run", false, "also run each program to completion")
	jobs := fs.IntP("jobs", "j", runtime.NumCPU(), "number of files checked at once")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("usage: arrayviz check [flags] <file>...")
	}
	e, err := g.load(fs, s)
	if err != nil {
		return err
	}

	files := fs.Args()
	results := make([]checkResult, len(files))
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(max(1, *jobs))
	for i, path := range files {
		grp.Go(func() error {
			results[i] = checkFile(gctx, e, path, *run)
			// Only cancellation stops the other checks.
			return gctx.Err()
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}

	failed := 0
	for i, path := range files {
		r := results[i]
		if r.err != nil {
			failed++
			fmt.Fprintf(s.Out, "%s: %s\n", path, summarize(r.err))
			continue
		}
		if *run {
			fmt.Fprintf(s.Out, "%s: ok (%s commands, %s steps, %d outputs)\n",
				path, humanize.Comma(int64(r.commands)), humanize.Comma(int64(r.steps)), r.outputs)
		} else {
			fmt.Fprintf(s.Out, "%s: ok (%s commands)\n", path, humanize.Comma(int64(r.commands)))
		}
	}
	if failed > 0 {
		return errors.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func checkFile(ctx context.Context, e env, path string, run bool) checkResult {
	src, err := readSource(path)
	if err != nil {
		return checkResult{err: err}
	}
	prog, err := compiler.CompileSource(src)
	if err != nil {
		return checkResult{err: err}
	}
	r := checkResult{commands: countCommands(prog.Code)}
	if !run {
		return r
	}
	st := vm.NewState(prog)
	res := e.machine().Run(ctx, st)
	r.steps, r.outputs, r.err = st.Steps, len(st.Outputs), res.Err
	return r
}

// summarize renders err on one line.
func summarize(err error) string {
	e, ok := rterrors.As(err)
	if !ok {
		return err.Error()
	}
	if e.Location.Line > 0 {
		return fmt.Sprintf("%s: %s (line %d)", e.Type, e.Message, e.Location.Line)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// countCommands includes the commands of function bodies.
func countCommands(code []vm.Command) int {
	n := len(code)
	for _, c := range code {
		if c.Function != nil {
			n += countCommands(c.Function.Body)
		}
	}
	return n
}
