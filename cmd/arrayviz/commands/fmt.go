// cmd/arrayviz/commands/fmt.go
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"arrayviz/internal/formatter"
)

// FmtCommand rewrites programs in canonical layout. By default the result
// goes to stdout; -w writes it back and -l only lists files that would change.
func FmtCommand(_ context.Context, s Streams, args []string) error {
	fs, g := newFlagSet("fmt", s)
	write := fs.BoolP("write", "w", false, "write the result back to the source file")
	list := fs.BoolP("list", "l", false, "list files whose formatting differs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("usage: arrayviz fmt [-w] [-l] <file>...")
	}
	e, err := g.load(fs, s)
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range fs.Args() {
		src, err := readSource(path)
		if err != nil {
			return err
		}
		out, err := formatter.Source(src)
		if err != nil {
			failed++
			fmt.Fprintf(s.Err, "%s: %s\n", path, summarize(err))
			continue
		}
		changed := out != src
		if *list {
			if changed {
				fmt.Fprintln(s.Out, path)
			}
			continue
		}
		if *write {
			if !changed {
				continue
			}
			if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
				return errors.Wrapf(err, "write %s", path)
			}
			e.logger.Debug().Str("file", path).Msg("formatted")
			continue
		}
		fmt.Fprint(s.Out, out)
	}
	if failed > 0 {
		return errors.Errorf("%d of %d files could not be formatted", failed, fs.NArg())
	}
	return nil
}
