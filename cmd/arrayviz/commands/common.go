// cmd/arrayviz/commands/common.go
package commands

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"arrayviz/internal/config"
	"arrayviz/internal/vm"
)

// Streams are the standard streams a command talks to.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdStreams returns the process's standard streams.
func StdStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// NewLogger writes human-readable logs to w at lvl.
func NewLogger(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().
		Logger()
}

// globalFlags are accepted by every subcommand.
type globalFlags struct {
	config   string
	logLevel string
	maxSteps int
}

func newFlagSet(name string, s Streams) (*pflag.FlagSet, *globalFlags) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(s.Err)
	g := &globalFlags{}
	fs.StringVarP(&g.config, "config", "c", "", "path to a TOML configuration file")
	fs.StringVar(&g.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	fs.IntVar(&g.maxSteps, "max-steps", 0, "step limit for running programs (0 keeps the configured limit)")
	return fs, g
}

// env is the configuration and logger a command runs with.
type env struct {
	cfg    config.Config
	logger zerolog.Logger
}

// load reads the configuration file and applies flag overrides.
func (g *globalFlags) load(fs *pflag.FlagSet, s Streams) (env, error) {
	cfg, err := config.Load(g.config)
	if err != nil {
		return env{}, err
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if fs.Changed("max-steps") {
		cfg.MaxSteps = g.maxSteps
	}
	if err := cfg.Validate(); err != nil {
		return env{}, errors.Wrap(err, "invalid flags")
	}
	lvl, err := cfg.Level()
	if err != nil {
		return env{}, err
	}
	return env{cfg: cfg, logger: NewLogger(s.Err, lvl)}, nil
}

func (e env) machine() *vm.Machine {
	return vm.NewMachine(e.cfg.MachineOptions(e.logger)...)
}

func readSource(path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "could not read file")
	}
	return string(src), nil
}
