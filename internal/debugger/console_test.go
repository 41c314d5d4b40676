package debugger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runConsole(t *testing.T, d *Debugger, script string) string {
	t.Helper()
	var out bytes.Buffer
	c := NewConsole(d, strings.NewReader(script), &out)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String()
}

func TestConsoleSession(t *testing.T) {
	d := load(t, loopSource)
	out := runConsole(t, d, strings.Join([]string{
		"break 3",
		"continue",
		"print total",
		"where",
		"watch total i",
		"next",
		"list",
		"run",
		"quit",
	}, "\n")+"\n")

	for _, want := range []string{
		"Current location: line 1",
		"Breakpoint 1 set at line 3",
		"Current location: line 3",
		"->    3 |     total = total + i",
		"total = 0",
		"-> 0: <module> (line 3)",
		"Watches:\n  total = 0\n  i = 1",
		"  1: line 3 (enabled) hits: 2",
		"3\nProgram halted after",
		"Debugging session terminated",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestConsoleBackAndReset(t *testing.T) {
	d := load(t, "print(1)\nprint(2)\n")
	out := runConsole(t, d, "run\nback\nout\nreset\nbacki\n")

	if !strings.Contains(out, "1\n2\nProgram halted") {
		t.Errorf("run output missing\n%s", out)
	}
	if !strings.Contains(out, "->    2 | print(2)") {
		t.Errorf("back did not return to line 2\n%s", out)
	}
	if !strings.Contains(out, "already at the start of the program") {
		t.Errorf("backi after reset did not report the start\n%s", out)
	}
	if got := len(d.State().Outputs); got != 0 {
		t.Errorf("outputs after reset = %d", got)
	}
}

func TestConsoleErrors(t *testing.T) {
	d := New(nil)
	out := runConsole(t, d, "vars\nstep\nfrobnicate\nbreak x\ndelete 9\nprint\nload /does/not/exist\n")
	for _, want := range []string{
		"No program loaded",
		"error: no program loaded",
		"Unknown command: frobnicate",
		"Invalid line number: x",
		"Breakpoint 9 not found",
		"Usage: print <name>",
		"error: load /does/not/exist",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestConsoleLoadAndInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greet.py")
	if err := os.WriteFile(path, []byte("n = input(\"? \")\nprint(n * 2)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	d := New(nil)
	out := runConsole(t, d, "input ab\nload "+path+"\nrun\nvars\n")
	for _, want := range []string{
		`queued input "ab"`,
		"Loaded " + path + " (2 lines)",
		"? \nabab\n",
		"  n = 'ab'",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}
