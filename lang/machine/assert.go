package machine

import (
	"fmt"
	"math"

	"github.com/remoe/duktape/lang/values"
)

// DebugAssertions gates the invariant checks below. They are not on the
// hot dispatch path by default — call sites thread them in explicitly
// rather than paying the cost on every instruction in normal operation.
// Nothing in this module sets the flag; it is false unless a caller turns
// it on.
var DebugAssertions = false

// assertValstackGeometry checks `valstack_top - valstack_bottom == nregs`
// for the activation at actIdx. It panics on violation, matching how the
// teacher's own packages treat an
// internal invariant failure (an unrecoverable bug, not a user-facing
// error) rather than returning one.
func assertValstackGeometry(th *Thread, actIdx int) {
	if !DebugAssertions {
		return
	}
	act := th.CallStack[actIdx]
	got := len(th.ValueStack) - act.IdxBottom
	want := act.Fn.Template.NRegs
	if got != want {
		panic(fmt.Sprintf("valstack geometry violated at activation %d: top-bottom=%d, nregs=%d", actIdx, got, want))
	}
}

// assertCatcherBounds checks that every live catcher's callstack_index
// refers to an existing activation, and that a TCF catcher's idx_base
// falls inside its owning activation's register range.
func assertCatcherBounds(th *Thread) {
	if !DebugAssertions {
		return
	}
	for _, c := range th.CatchStack {
		if c.CallstackIndex < 0 || c.CallstackIndex >= len(th.CallStack) {
			panic(fmt.Sprintf("catcher callstack_index %d out of range (callstack depth %d)", c.CallstackIndex, len(th.CallStack)))
		}
		if c.Kind == CatcherTCF {
			act := th.CallStack[c.CallstackIndex]
			if c.IdxBase+1 >= act.Fn.Template.NRegs+act.IdxBottom && c.IdxBase != 0 {
				panic(fmt.Sprintf("TCF catcher idx_base %d outside owning frame's register range", c.IdxBase))
			}
		}
	}
}

// assertLJNone checks that the unwind state is quiescent outside the
// unwind handler. Call it at the top of step, before the handler has had
// any chance to run for the instruction about to execute.
func assertLJNone(h *Heap) {
	if !DebugAssertions {
		return
	}
	if h.LJ.Type != LJNone {
		panic(fmt.Sprintf("lj.type != NONE (%s) outside the unwind handler", h.LJ.Type))
	}
}

// assertCanonicalNaN checks that a double about to be stored in a tagged
// value slot is bit-identical to its own normalize_nan result.
func assertCanonicalNaN(n values.Number) {
	if !DebugAssertions {
		return
	}
	// NaN != NaN under Go's float equality even for identical bit patterns,
	// so this has to compare bits directly rather than via NormalizeNaN(n) != n.
	if math.IsNaN(float64(n)) && !values.IsCanonicalNaN(n) {
		panic(fmt.Sprintf("number %v is not NaN-canonicalized", float64(n)))
	}
}

// assertReconfigPostcondition checks reconfig_valstack's documented
// postcondition. The final top the function leaves in place is
// idx_bottom+nregs (the re-established register window) regardless of
// retvalCount; what
// retvalCount actually governs is that idx_retval (and, when requested,
// idx_retval+1 for the single retval slot) remain addressable within that
// window, which is what this checks.
func assertReconfigPostcondition(th *Thread, actIdx int, retvalCount int) {
	if !DebugAssertions {
		return
	}
	act := th.CallStack[actIdx]
	top := len(th.ValueStack)
	if top != act.IdxBottom+act.Fn.Template.NRegs {
		panic(fmt.Sprintf("reconfig_valstack postcondition violated: top=%d, idx_bottom+nregs=%d", top, act.IdxBottom+act.Fn.Template.NRegs))
	}
	if act.IdxRetval+retvalCount > top {
		panic(fmt.Sprintf("reconfig_valstack postcondition violated: idx_retval+retval_count=%d exceeds top=%d", act.IdxRetval+retvalCount, top))
	}
}
