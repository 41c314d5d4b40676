// internal/config/config.go
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"arrayviz/internal/vm"
)

// Config holds every tunable of the CLI, the server and the catalog.
type Config struct {
	MaxSteps int    `toml:"max_steps"`
	MaxDepth int    `toml:"max_depth"`
	LogLevel string `toml:"log_level"`

	Catalog  CatalogConfig  `toml:"catalog"`
	Server   ServerConfig   `toml:"server"`
	Debugger DebuggerConfig `toml:"debugger"`
}

// CatalogConfig selects the SQL database that stores programs.
type CatalogConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// ServerConfig configures the WebSocket session server.
type ServerConfig struct {
	Addr string `toml:"addr"`
	// Largest accepted request message, in bytes.
	ReadLimit int64 `toml:"read_limit"`
}

type DebuggerConfig struct {
	HistoryFile string `toml:"history_file"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		MaxSteps: vm.DefaultMaxSteps,
		MaxDepth: vm.DefaultMaxDepth,
		LogLevel: "info",
		Catalog: CatalogConfig{
			Driver: "sqlite",
			DSN:    "arrayviz.db",
		},
		Server: ServerConfig{
			Addr:      "localhost:8765",
			ReadLimit: 1 << 20,
		},
		Debugger: DebuggerConfig{
			HistoryFile: ".arrayviz_history",
		},
	}
}

// Load reads a TOML file over the defaults. A missing file is not an
// error; keys absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, errors.Wrapf(err, "load config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "load config %s", path)
	}
	return cfg, nil
}

// Validate checks values that cannot be used as given.
func (c Config) Validate() error {
	if c.MaxSteps < 0 {
		return errors.Errorf("max_steps must not be negative, got %d", c.MaxSteps)
	}
	if c.MaxDepth <= 0 {
		return errors.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Server.ReadLimit <= 0 {
		return errors.Errorf("server.read_limit must be positive, got %d", c.Server.ReadLimit)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, errors.Wrap(err, "log_level")
	}
	return lvl, nil
}

// MachineOptions translates the execution limits into VM options.
func (c Config) MachineOptions(logger zerolog.Logger) []vm.Option {
	return []vm.Option{
		vm.WithLogger(logger),
		vm.WithMaxSteps(c.MaxSteps),
		vm.WithMaxDepth(c.MaxDepth),
	}
}
