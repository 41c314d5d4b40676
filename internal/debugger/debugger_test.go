package debugger

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"arrayviz/internal/errors"
	"arrayviz/internal/vm"
)

const loopSource = `total = 0
for i in range(3):
    total = total + i
print(total)
`

const callSource = `def f(a):
    b = a * 2
    return b
y = f(1)
print(y)
`

func load(t *testing.T, src string) *Debugger {
	t.Helper()
	d := New(vm.NewMachine())
	if err := d.Load(src); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return d
}

func evaluate(t *testing.T, d *Debugger, name string) string {
	t.Helper()
	v, err := d.Evaluate(name)
	if err != nil {
		t.Fatalf("Evaluate(%s): %v", name, err)
	}
	return v.Repr()
}

func TestNotLoaded(t *testing.T) {
	d := New(nil)
	if _, err := d.Step(); !stderrors.Is(err, ErrNotLoaded) {
		t.Errorf("Step error = %v, want ErrNotLoaded", err)
	}
	if _, err := d.Run(context.Background()); !stderrors.Is(err, ErrNotLoaded) {
		t.Errorf("Run error = %v, want ErrNotLoaded", err)
	}
	if _, err := d.Snapshot(); !stderrors.Is(err, ErrNotLoaded) {
		t.Errorf("Snapshot error = %v, want ErrNotLoaded", err)
	}
	if got := d.Location(); got != "no program" {
		t.Errorf("Location = %q", got)
	}
}

func TestLoadAndRun(t *testing.T) {
	d := load(t, "x = 2 + 3\n")
	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != vm.Halted {
		t.Fatalf("status = %v, want halted", res.Status)
	}
	if got := evaluate(t, d, "x"); got != "5" {
		t.Errorf("x = %s, want 5", got)
	}
	if _, err := d.Evaluate("y"); !errors.Is(err, errors.NameError) {
		t.Errorf("Evaluate(y) error = %v, want NameError", err)
	}
}

func TestLoadErrorKeepsProgram(t *testing.T) {
	d := load(t, "x = 1\n")
	err := d.Load("x = (1\n")
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if e, ok := errors.As(err); !ok || !e.Type.CompileTime() {
		t.Fatalf("error = %v, want a compile-time error", err)
	}
	if got := d.Lines()[0]; got != "x = 1" {
		t.Errorf("program replaced: first line %q", got)
	}
}

func TestContinueStopsAtBreakpoints(t *testing.T) {
	d := load(t, loopSource)
	id := d.AddBreakpoint(3)
	ctx := context.Background()

	tests := []struct {
		total, i string
	}{
		{"0", "0"},
		{"0", "1"},
		{"1", "2"},
	}
	for n, tt := range tests {
		res, err := d.Continue(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if res.Status != vm.Running {
			t.Fatalf("hit %d: status = %v, want running", n+1, res.Status)
		}
		if got := d.Line(); got != 3 {
			t.Fatalf("hit %d: line = %d, want 3", n+1, got)
		}
		if got := evaluate(t, d, "total"); got != tt.total {
			t.Errorf("hit %d: total = %s, want %s", n+1, got, tt.total)
		}
		if got := evaluate(t, d, "i"); got != tt.i {
			t.Errorf("hit %d: i = %s, want %s", n+1, got, tt.i)
		}
	}

	res, err := d.Continue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != vm.Halted {
		t.Fatalf("status = %v, want halted", res.Status)
	}
	if diff := cmp.Diff([]string{"3"}, d.State().Outputs); diff != "" {
		t.Errorf("outputs (-want +got):\n%s", diff)
	}
	bps := d.Breakpoints()
	if len(bps) != 1 || bps[0].ID != id || bps[0].HitCount != 3 {
		t.Errorf("breakpoints = %+v, want one with 3 hits", bps)
	}
}

func TestDisabledBreakpointIsSkipped(t *testing.T) {
	d := load(t, loopSource)
	id := d.AddBreakpoint(3)
	d.SetBreakpointEnabled(id, false)
	res, err := d.Continue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != vm.Halted {
		t.Errorf("status = %v, want halted", res.Status)
	}
	if got := d.Breakpoints()[0].HitCount; got != 0 {
		t.Errorf("hit count = %d, want 0", got)
	}
}

func TestBreakpointManagement(t *testing.T) {
	d := New(nil)
	a := d.AddBreakpoint(4)
	b := d.AddBreakpoint(2)
	if a == b {
		t.Fatalf("duplicate breakpoint IDs %d", a)
	}
	if !d.RemoveBreakpoint(a) {
		t.Error("RemoveBreakpoint returned false for an existing ID")
	}
	if d.RemoveBreakpoint(a) {
		t.Error("RemoveBreakpoint returned true twice")
	}
	want := []Breakpoint{{ID: b, Line: 2, Enabled: true}}
	if diff := cmp.Diff(want, d.Breakpoints()); diff != "" {
		t.Errorf("breakpoints (-want +got):\n%s", diff)
	}
}

func TestSteppingThroughCalls(t *testing.T) {
	d := load(t, callSource)
	ctx := context.Background()

	step := func(name string, f func(context.Context) (vm.RunResult, error), line, depth int) {
		t.Helper()
		if _, err := f(ctx); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got := d.Line(); got != line {
			t.Fatalf("%s: line = %d, want %d", name, got, line)
		}
		if got := d.State().Depth(); got != depth {
			t.Fatalf("%s: depth = %d, want %d", name, got, depth)
		}
	}

	step("into", d.StepInto, 4, 0)
	step("into", d.StepInto, 2, 1)

	want := []StackFrame{{Function: "f", Line: 2}, {Function: "<module>", Line: 4}}
	if diff := cmp.Diff(want, d.CallStack()); diff != "" {
		t.Errorf("call stack (-want +got):\n%s", diff)
	}

	step("over", d.StepOver, 3, 1)
	if got := evaluate(t, d, "b"); got != "2" {
		t.Errorf("b = %s, want 2", got)
	}

	step("out", d.StepOut, 4, 0)
	if _, err := d.Evaluate("y"); err == nil {
		t.Error("y is bound before the assignment ran")
	}

	step("over", d.StepOver, 5, 0)
	if got := evaluate(t, d, "y"); got != "2" {
		t.Errorf("y = %s, want 2", got)
	}
}

func TestStepOverSkipsCallBodies(t *testing.T) {
	d := load(t, callSource)
	ctx := context.Background()
	var lines []int
	for {
		res, err := d.StepOver(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if res.Status == vm.Halted {
			break
		}
		lines = append(lines, d.Line())
	}
	if diff := cmp.Diff([]int{4, 5}, lines); diff != "" {
		t.Errorf("visited lines (-want +got):\n%s", diff)
	}
}

func TestBackLineReversesIntoCalls(t *testing.T) {
	d := load(t, callSource)
	ctx := context.Background()
	d.StepOver(ctx)
	d.StepOver(ctx)
	if got := d.Line(); got != 5 {
		t.Fatalf("line = %d, want 5", got)
	}

	for _, want := range []int{3, 2} {
		if _, err := d.BackLine(); err != nil {
			t.Fatal(err)
		}
		if got := d.Line(); got != want {
			t.Fatalf("after back: line = %d, want %d", got, want)
		}
		if got := d.State().Depth(); got != 1 {
			t.Fatalf("after back: depth = %d, want 1", got)
		}
	}
	if _, err := d.Evaluate("y"); err == nil {
		t.Error("y still bound after stepping back")
	}

	for {
		n, err := d.BackLine()
		if err != nil {
			t.Fatal(err)
		}
		if n == 0 {
			break
		}
	}
	if d.State().Status != vm.Ready || d.State().PC != 0 {
		t.Errorf("status = %v pc = %d, want ready at 0", d.State().Status, d.State().PC)
	}
}

func TestWatchesInSnapshot(t *testing.T) {
	d := load(t, "xs = [1, 2]\nys = xs\n")
	d.Watch("xs")
	d.Watch("missing")
	d.Watch("xs")
	if _, err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap, err := d.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"xs", "missing"}, d.Watches()); diff != "" {
		t.Errorf("watches (-want +got):\n%s", diff)
	}
	if got := snap.Watches["xs"].Repr; got != "[1, 2]" {
		t.Errorf("xs = %s", got)
	}
	if got := snap.Watches["missing"].Repr; got != "<unbound>" {
		t.Errorf("missing = %s", got)
	}
	if snap.Watches["xs"].ID != snap.Variables["ys"].ID {
		t.Error("watch and variable of one list have different IDs")
	}

	if !d.Unwatch("missing") || d.Unwatch("missing") {
		t.Error("Unwatch did not report removal once")
	}
}

func TestInputQueue(t *testing.T) {
	d := New(nil)
	d.ProvideInput("Ada")
	if err := d.Load("name = input(\"Name? \")\nprint(\"hi \" + name)\n"); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := d.Run(ctx); err != nil {
		t.Fatal(err)
	}
	want := []string{"Name? ", "hi Ada"}
	if diff := cmp.Diff(want, d.State().Outputs); diff != "" {
		t.Fatalf("outputs (-want +got):\n%s", diff)
	}

	if err := d.Reset(); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, d.State().Outputs); diff != "" {
		t.Errorf("outputs after reset (-want +got):\n%s", diff)
	}
}

func TestReloadKeepsUnreadInput(t *testing.T) {
	d := load(t, "x = 1\n")
	d.ProvideInput("first")
	if err := d.Load("a = input()\n"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := evaluate(t, d, "a"); got != "'first'" {
		t.Errorf("a = %s, want 'first'", got)
	}
}

func TestRunReportsRuntimeError(t *testing.T) {
	d := load(t, "x = 1\ny = x / 0\n")
	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != vm.Errored || !errors.Is(res.Err, errors.ZeroDivisionError) {
		t.Fatalf("result = %+v, want ZeroDivisionError", res)
	}
	if got := d.Location(); got != "errored at line 2" {
		t.Errorf("Location = %q", got)
	}
	if ok, _ := d.Back(); !ok {
		t.Fatal("Back from an error reported nothing to undo")
	}
	if d.State().Status == vm.Errored {
		t.Error("still errored after stepping back")
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	d := load(t, "while True:\n    pass\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Run(ctx); !stderrors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
