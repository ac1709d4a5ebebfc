package machine

import "github.com/remoe/duktape/lang/values"

// InternalExtra is the scratch margin reconfig_valstack reserves above a
// frame's nregs, for the executor's own transient bookkeeping (e.g.
// holding a callee/this/args window while a CALL is being set up, before
// the new frame's register window replaces it).
const InternalExtra = 8

// Push/Pop/Top/Get/Set/Dup/Replace/Require/SetTop implement the
// Value-Stack API's push/pop/dup/replace/require/get_top/set_top
// primitives.

func (th *Thread) Push(v values.Value) { th.ValueStack = append(th.ValueStack, v) }

func (th *Thread) Pop() values.Value {
	n := len(th.ValueStack) - 1
	v := th.ValueStack[n]
	th.ValueStack = th.ValueStack[:n]
	return v
}

func (th *Thread) Top() int { return len(th.ValueStack) }

func (th *Thread) Get(idx int) values.Value { return th.ValueStack[idx] }

func (th *Thread) Set(idx int, v values.Value) { th.ValueStack[idx] = v }

func (th *Thread) Dup(idx int) { th.Push(th.ValueStack[idx]) }

func (th *Thread) Replace(idx int, v values.Value) { th.Set(idx, v) }

// Require ensures the value stack can hold at least n more slots without
// reallocating on every subsequent Push; it is purely a capacity hint
// (Go's garbage-collected, growable slice already does the
// reference-counted engine's "owns its slots" bookkeeping for us).
func (th *Thread) Require(n int) {
	if cap(th.ValueStack)-len(th.ValueStack) >= n {
		return
	}
	grown := make([]values.Value, len(th.ValueStack), len(th.ValueStack)+n)
	copy(grown, th.ValueStack)
	th.ValueStack = grown
}

// SetTop resizes the value stack to exactly n slots, padding newly exposed
// slots with Undefined (`set_top` growing) or truncating (`set_top`
// shrinking).
func (th *Thread) SetTop(n int) {
	if n <= len(th.ValueStack) {
		th.ValueStack = th.ValueStack[:n]
		return
	}
	th.Require(n - len(th.ValueStack))
	for len(th.ValueStack) < n {
		th.ValueStack = append(th.ValueStack, values.Undefined{})
	}
}

// ReconfigValstack implements `reconfig_valstack(thread, activation_index,
// retval_count)`, called on every return-to-ECMAScript-frame and on
// catch/finally entry. actIdx names the activation whose frame is being
// (re)established as the thread's active register window.
func ReconfigValstack(th *Thread, actIdx int, retvalCount int) {
	reconfigValstackAt(th, actIdx, th.CallStack[actIdx].IdxRetval, retvalCount)
}

// reconfigValstackAt is ReconfigValstack's general form, parameterized on
// the retval slot explicitly instead of always reading it off the
// activation. ReconfigValstack passes the activation's own IdxRetval
// (where its eventual RETURN value belongs in its caller's frame). The two
// direct callers pass another slot: unwindReturn passes the returning
// callee's IdxRetval (the slot in the caller's frame that just received
// the return value), and deliverResumeResult passes whichever register an
// in-flight resume/yield CALL instruction is waiting on
// (act.PendingRetval), which can differ from IdxRetval within the same
// still-running activation.
func reconfigValstackAt(th *Thread, actIdx int, retvalIdx int, retvalCount int) {
	act := th.CallStack[actIdx]
	// 1. (the "frame base" is act.IdxBottom, read directly below; there is
	// no separate cached pointer to update in this representation)
	// 2. clamp top so retval_idx+retval_count is the new top.
	th.SetTop(retvalIdx + retvalCount)
	// 3. resize-with-shrink reservation.
	th.Require(act.IdxBottom + act.Fn.Template.NRegs + InternalExtra - len(th.ValueStack))
	// 4. set top to nregs relative to the frame base.
	th.SetTop(act.IdxBottom + act.Fn.Template.NRegs)
}
