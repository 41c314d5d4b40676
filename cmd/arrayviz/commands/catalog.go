// cmd/arrayviz/commands/catalog.go
package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"arrayviz/internal/catalog"
	"arrayviz/internal/compiler"
	"arrayviz/internal/vm"
)

const catalogUsage = `usage: arrayviz catalog [flags] <command>

commands:
  add <name> <file>   store a program
  list                list stored programs
  show <name|id>      print a program's source
  rm <name|id>        delete a program
  run <name|id>       run a stored program`

func applyCatalogFlags(e *env, driverSet bool, driver string, dsnSet bool, dsn string) {
	if driverSet {
		e.cfg.Catalog.Driver = driver
	}
	if dsnSet {
		e.cfg.Catalog.DSN = dsn
	}
}

// CatalogCommand manages the stored program catalog.
func CatalogCommand(ctx context.Context, s Streams, args []string) error {
	fs, g := newFlagSet("catalog", s)
	driver := fs.String("driver", "", "database driver: sqlite, postgres, mysql, sqlserver")
	dsn := fs.String("dsn", "", "data source name")
	inputs := fs.StringArrayP("input", "i", nil, "queue an answer for input() when running (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New(catalogUsage)
	}
	e, err := g.load(fs, s)
	if err != nil {
		return err
	}
	applyCatalogFlags(&e, fs.Changed("driver"), *driver, fs.Changed("dsn"), *dsn)

	sub, rest := fs.Arg(0), fs.Args()[1:]
	want := map[string]int{"add": 2, "list": 0, "show": 1, "rm": 1, "run": 1}
	n, ok := want[sub]
	if !ok {
		return errors.Errorf("unknown catalog command %q\n%s", sub, catalogUsage)
	}
	if len(rest) != n {
		return errors.New(catalogUsage)
	}

	store, err := catalog.Open(ctx, e.cfg.Catalog.Driver, e.cfg.Catalog.DSN, catalog.WithLogger(e.logger))
	if err != nil {
		return err
	}
	defer store.Close()

	switch sub {
	case "add":
		src, err := readSource(rest[1])
		if err != nil {
			return err
		}
		p, err := store.Add(ctx, rest[0], src)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.Out, "added %s (%s)\n", p.Name, p.ID)

	case "list":
		programs, err := store.List(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(s.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tID\tLINES\tADDED")
		for _, p := range programs {
			lines := strings.Count(strings.TrimSuffix(p.Source, "\n"), "\n") + 1
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.Name, p.ID, lines, humanize.Time(p.CreatedAt))
		}
		return tw.Flush()

	case "show":
		p, err := store.Get(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Fprint(s.Out, p.Source)
		if !strings.HasSuffix(p.Source, "\n") {
			fmt.Fprintln(s.Out)
		}

	case "rm":
		if err := store.Delete(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Fprintf(s.Out, "deleted %s\n", rest[0])

	case "run":
		p, err := store.Get(ctx, rest[0])
		if err != nil {
			return err
		}
		prog, err := compiler.CompileSource(p.Source)
		if err != nil {
			return err
		}
		st := vm.NewState(prog)
		st.Inputs = append(st.Inputs, *inputs...)
		res := e.machine().Run(ctx, st)
		for _, out := range st.Outputs {
			fmt.Fprintln(s.Out, out)
		}
		return res.Err
	}
	return nil
}
