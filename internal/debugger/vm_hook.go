// internal/debugger/vm_hook.go
package debugger

import (
	"arrayviz/internal/bytecode"
	"arrayviz/internal/vm"
)

// Stop predicates for vm.Machine.RunUntil. Each is consulted before a
// command executes; true pauses the run with that command pending.

// atStatement is true when the next command starts a statement.
func atStatement(s *vm.State) bool {
	cmd := s.Current()
	return cmd != nil && cmd.Op == bytecode.OpHighlightStatement
}

// statementLine is the source line of the pending statement, or 0.
func statementLine(s *vm.State) int {
	if !atStatement(s) {
		return 0
	}
	cmd := s.Current()
	if line := cmd.Region.Line(); line > 0 {
		return line
	}
	return cmd.Debug.Line
}

func stepOver(depth int) func(*vm.State) bool {
	return func(s *vm.State) bool {
		return s.Depth() <= depth && atStatement(s)
	}
}

// stepOut pauses as soon as the frame active at depth has returned. At
// module level there is no caller, so it runs to the end.
func stepOut(depth int) func(*vm.State) bool {
	return func(s *vm.State) bool {
		return s.Depth() < depth
	}
}

// breakpointHit counts a hit on every enabled breakpoint for the pending
// statement's line.
func (d *Debugger) breakpointHit(s *vm.State) bool {
	line := statementLine(s)
	if line == 0 {
		return false
	}
	hit := false
	for _, bp := range d.breakpoints {
		if bp.Enabled && bp.Line == line {
			bp.HitCount++
			hit = true
		}
	}
	if hit {
		d.logger.Debug().Int("line", line).Msg("breakpoint hit")
	}
	return hit
}

// anyOf consults every predicate so that breakpoint hit counts stay
// accurate when another predicate also stops.
func anyOf(preds ...func(*vm.State) bool) func(*vm.State) bool {
	return func(s *vm.State) bool {
		stop := false
		for _, p := range preds {
			if p(s) {
				stop = true
			}
		}
		return stop
	}
}
