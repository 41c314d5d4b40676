// cmd/arrayviz/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"arrayviz/cmd/arrayviz/commands"
)

const VERSION = "0.3.0"

// Build variables - can be set during build with ldflags
var (
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		showUsage()
		return 2
	}

	switch args[0] {
	case "--help", "-h", "help":
		showUsage()
		return 0
	case "--version", "-v", "version":
		showVersion()
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmds := map[string]func(context.Context, commands.Streams, []string) error{
		"run":     commands.RunCommand,
		"check":   commands.CheckCommand,
		"fmt":     commands.FmtCommand,
		"debug":   commands.DebugCommand,
		"serve":   commands.ServeCommand,
		"catalog": commands.CatalogCommand,
	}
	cmd, ok := cmds[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		showUsage()
		return 2
	}

	err := cmd(ctx, commands.StdStreams(), args[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, pflag.ErrHelp):
		return 0
	case ctx.Err() != nil:
		fmt.Fprintln(os.Stderr, "interrupted")
		return 130
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func showUsage() {
	fmt.Println("arrayviz - step-through interpreter for a teaching subset of Python")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  arrayviz run <file>              Run a program")
	fmt.Println("  arrayviz check [--run] <file>... Compile (and run) programs concurrently")
	fmt.Println("  arrayviz fmt [-w|-l] <file>...   Rewrite programs in canonical layout")
	fmt.Println("  arrayviz debug [file]            Step through a program interactively")
	fmt.Println("  arrayviz serve                   Serve debugger sessions over WebSocket")
	fmt.Println("  arrayviz catalog <command>       Manage stored programs")
	fmt.Println()
	fmt.Println("Common flags:")
	fmt.Println("  -c, --config <file>    TOML configuration file")
	fmt.Println("  --log-level <level>    trace, debug, info, warn or error")
	fmt.Println("  --max-steps <n>        step limit when running to completion")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  arrayviz run -i Ada greet.py")
	fmt.Println("  arrayviz debug -b 4 -w total sum.py")
	fmt.Println("  arrayviz catalog add bubble bubble.py")
	fmt.Println("  arrayviz serve --addr :8765")
}

func showVersion() {
	fmt.Printf("arrayviz %s (commit %s, built %s)\n", VERSION, GitCommit, BuildDate)
}
