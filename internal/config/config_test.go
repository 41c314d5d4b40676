package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arrayviz.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.toml")} {
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q): %v", path, err)
		}
		if diff := cmp.Diff(Default(), cfg); diff != "" {
			t.Errorf("Load(%q) (-want +got):\n%s", path, diff)
		}
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
max_steps = 500
log_level = "debug"

[catalog]
driver = "postgres"
dsn = "postgres://localhost/arrayviz"

[server]
addr = ":9000"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	want.MaxSteps = 500
	want.LogLevel = "debug"
	want.Catalog = CatalogConfig{Driver: "postgres", DSN: "postgres://localhost/arrayviz"}
	want.Server.Addr = ":9000"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
	lvl, err := cfg.Level()
	if err != nil || lvl != zerolog.DebugLevel {
		t.Errorf("Level = %v, %v", lvl, err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "max_steps = ", "load config"},
		{"unknown key", "max_step = 3\n", `unknown key "max_step"`},
		{"negative steps", "max_steps = -1\n", "max_steps must not be negative"},
		{"zero depth", "max_depth = 0\n", "max_depth must be positive"},
		{"bad level", "log_level = \"loud\"\n", "log_level"},
		{"read limit", "[server]\nread_limit = 0\n", "server.read_limit must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestMachineOptions(t *testing.T) {
	if got := len(Default().MachineOptions(zerolog.Nop())); got != 3 {
		t.Errorf("got %d options, want 3", got)
	}
}
