package machine

import "github.com/remoe/duktape/lang/values"

// handleUnwind is the Unwind Handler: it drains h.LJ,
// repeatedly consulting the current thread's catch stack and call stack
// until the event is fully resolved (LJNone, execution resumes at some
// PC), diverted into a catch or finally handler (also resolved, from the
// dispatch loop's point of view — it just continues stepping, now inside
// the handler body), or propagated out of the thread entirely (consumed by
// unwindYield/returnFromThread/propagateThrow, which either hand
// control to a resumer Thread or produce a Go error for the host).
//
// Every case here is an explicit, bounded loop over existing slices
// (CatchStack/CallStack) — never Go recursion — which is what lets RETURN
// and THROW unwind an arbitrary number of compiled-function frames without
// growing the host call stack.
func (h *Heap) handleUnwind(th *Thread) error {
	for h.LJ.Type != LJNone {
		switch h.LJ.Type {
		case LJReturn:
			if err := h.unwindReturn(th); err != nil {
				return err
			}
		case LJThrow:
			if err := h.unwindThrow(th); err != nil {
				return err
			}
		case LJBreak, LJContinue:
			if err := h.unwindBreakContinue(th); err != nil {
				return err
			}
		case LJYield:
			if err := h.unwindYield(th); err != nil {
				return err
			}
		case LJResume:
			if err := h.unwindResume(th); err != nil {
				return err
			}
		case LJNormal:
			h.wipeAndReturn()
		}
	}
	return nil
}

// divertToCatcher finds, for the activation at actIdx, the first catcher
// (scanning from the top of the catch stack) that should intercept the
// current event, diverting into it. It returns handled == true when it
// diverted (h.LJ has been updated: either cleared, because the event is
// now just "enter this handler body", or replaced with a saved Pending
// event the handler must re-raise on ENDFIN).
func (h *Heap) divertToCatcher(th *Thread, actIdx int) (handled bool) {
	for len(th.CatchStack) > 0 {
		top := len(th.CatchStack) - 1
		c := th.CatchStack[top]
		if c.CallstackIndex != actIdx {
			return false
		}

		switch {
		case c.Kind == CatcherLabel:
			switch h.LJ.Type {
			case LJBreak:
				if c.LabelID == labelID(h.LJ.Value1) {
					th.CatchStack = th.CatchStack[:top]
					th.CallStack[actIdx].PC = c.PCBase
					h.wipeAndReturn()
					return true
				}
			case LJContinue:
				if c.LabelID == labelID(h.LJ.Value1) {
					th.CallStack[actIdx].PC = c.IdxBase
					h.wipeAndReturn()
					return true
				}
			}
			th.CatchStack = th.CatchStack[:top]
			continue

		case h.LJ.Type == LJThrow && c.Flags&CatchEnabled != 0:
			c.Flags &^= CatchEnabled
			h.enterCatchHandler(th, actIdx, c, h.LJ.Value1)
			h.wipeAndReturn()
			return true

		case c.Flags&FinallyEnabled != 0:
			c.Flags &^= FinallyEnabled
			c.Pending = h.LJ
			th.CallStack[actIdx].PC = c.PCBase
			ReconfigValstack(th, actIdx, 0)
			assertValstackGeometry(th, actIdx)
			h.wipeAndReturn()
			return true
		}

		th.CatchStack = th.CatchStack[:top]
	}
	return false
}

func labelID(v values.Value) int64 {
	if n, ok := v.(values.Number); ok {
		return int64(n)
	}
	return 0
}

// enterCatchHandler installs the caught value as the catch binding (when
// the TRYCATCH instruction requested one) and transfers control to the
// catch body.
func (h *Heap) enterCatchHandler(th *Thread, actIdx int, c *Catcher, thrown values.Value) {
	act := th.CallStack[actIdx]
	act.PC = c.PCBase
	ReconfigValstack(th, actIdx, 0)
	if c.Flags&CatchBindingEnabled != 0 {
		env := NewDeclarativeEnvironment(act.currentLexical())
		env.Declare(c.VarName, true, true, thrown)
		act.Lexical = env
		c.Flags |= LexEnvActive
	}
}

// unwindReturn implements RETURN's unwind case: if the
// current activation has a pending finally, divert into it; otherwise pop
// the activation, deliver the return value into its caller's idx_retval
// slot (or, at the bottom of the call stack, leave it there for Heap.run
// to read), and re-establish the caller's register window.
func (h *Heap) unwindReturn(th *Thread) error {
	idx, act, ok := th.topActivation()
	if !ok {
		h.raiseInternal("return with no active activation")
		return nil
	}
	if h.divertToCatcher(th, idx) {
		return nil
	}

	retval := h.LJ.Value1
	th.catchstackUnwindAboveActivation(idx - 1)
	th.callstackUnwindAboveActivation(idx - 1)
	th.ValueStack[act.IdxRetval] = retval

	if idx > 0 {
		// act.IdxRetval is the absolute slot, within the *caller's* (idx-1)
		// frame, that retval was just written into — not necessarily the
		// caller's own IdxRetval field (where the caller's eventual RETURN
		// lands one frame further up). reconfig_valstack's idx_retval is
		// always relative to the frame it is reconfiguring, so it must be
		// passed explicitly here.
		reconfigValstackAt(th, idx-1, act.IdxRetval, 1)
		h.wipeAndReturn()
		return nil
	}

	// idx == 0: th's own entry-level activation just returned. If th is a
	// coroutine, hand the value to whichever thread resumed it; otherwise
	// this is the outermost Go-level call (ExecuteProgram/callCompiledRecursive),
	// whose run loop reads retval back out of ValueStack[act.IdxRetval]
	// once it observes the call stack has unwound to entryDepth.
	h.wipeAndReturn()
	if th.Resumer != nil {
		return h.returnFromThread(th, retval)
	}
	return nil
}

// unwindThrow implements THROW's unwind case: walk outward through
// catchers and, failing that, activations, until a catch or finally
// handler claims the exception or the thread's call stack empties
// (propagated out to the resumer or the host).
func (h *Heap) unwindThrow(th *Thread) error {
	idx, _, ok := th.topActivation()
	if !ok {
		return h.propagateThrow(th)
	}
	if h.divertToCatcher(th, idx) {
		return nil
	}
	th.catchstackUnwindAboveActivation(idx - 1)
	th.callstackUnwindAboveActivation(idx - 1)
	return nil
}

// unwindBreakContinue implements BREAK/CONTINUE's unwind case: identical
// shape to THROW's scan, except it is an internal error (malformed
// bytecode) for the event to escape every activation, since ES5.1 forbids
// a labelled break/continue from crossing a function boundary.
func (h *Heap) unwindBreakContinue(th *Thread) error {
	idx, _, ok := th.topActivation()
	if !ok {
		h.raiseInternal("break/continue escaped the call stack")
		return nil
	}
	if h.divertToCatcher(th, idx) {
		return nil
	}
	h.raiseInternal("no matching label for break/continue")
	return nil
}

// returnFromThread delivers th's just-completed entry function's return
// value to the thread that resumed it, as that thread's `resume` call
// result — a thread with no caller of its own treats its final RETURN as
// an implicit yield to its resumer, terminating the thread. Mechanically
// identical to a yield's delivery (deliverResumeResult): the resumer's
// `resume` call site is still mid-instruction, not unwinding, so this must
// not go through unwindReturn's activation-popping RETURN handling — th
// terminating is not a RETURN event for the resumer, it is simply the
// value its resume() call expression evaluates to.
func (h *Heap) returnFromThread(th *Thread, val values.Value) error {
	th.State = StateTerminated
	resumer := th.Resumer
	th.Resumer = nil
	if resumer == nil {
		return nil
	}
	resumer.State = StateRunning
	h.setCurrentThread(resumer)
	return resumer.deliverResumeResult(h, val, false)
}

// propagateThrow handles a THROW unwinding past the bottom of th's call
// stack: an uncaught exception. If th was resumed, it becomes the `resume`
// call's thrown exception in the resumer; otherwise it becomes the Go
// error ExecuteProgram returns to the host.
func (h *Heap) propagateThrow(th *Thread) error {
	val := h.LJ.Value1
	h.wipeAndReturn()
	th.State = StateTerminated
	if th.Resumer != nil {
		resumer := th.Resumer
		th.Resumer = nil
		resumer.State = StateRunning
		h.LJ = LJState{Type: LJThrow, Value1: val, IsError: true}
		h.setCurrentThread(resumer)
		return h.handleUnwind(resumer)
	}
	return &values.ScriptError{Kind: values.Error, Message: "uncaught exception", Value: val}
}

// unwindYield implements the `yield` builtin's unwind case:
// suspend th at its current activation and hand the yielded value back to
// its resumer as that thread's `resume` call result.
func (h *Heap) unwindYield(th *Thread) error {
	resumer := th.Resumer
	if resumer == nil {
		h.raiseInternal("yield called on a thread with no resumer")
		return nil
	}
	val := h.LJ.Value1
	th.State = StateYielded
	idx, _, _ := th.topActivation()
	th.yieldActivation = idx
	h.wipeAndReturn()
	th.Resumer = nil
	resumer.State = StateRunning
	h.setCurrentThread(resumer)
	return resumer.deliverResumeResult(h, val, false)
}

// unwindResume implements the `resume` builtin's unwind case. A
// cancelling resume (lj.iserror) is rewritten into a THROW
// delivered at the target's suspension point instead of a normal resume
// value, and the loop in handleUnwind re-dispatches it through
// unwindThrow's catcher walk. A resume targeting a never-yet-run (INACTIVE)
// thread starts it from its PendingEntry instead of delivering into an
// existing activation; a resume targeting anything else (already RUNNING,
// RESUMED or TERMINATED) is an error.
func (h *Heap) unwindResume(th *Thread) error {
	target, _ := h.LJ.Value2.(*Thread)
	val := h.LJ.Value1
	isError := h.LJ.IsError
	if target == nil {
		h.raiseInternal("resume target is not a thread")
		return nil
	}
	origState := target.State

	if isError && origState != StateYielded {
		h.raiseInternal("resume target is not yielded")
		return nil
	}

	switch origState {
	case StateYielded:
		th.State = StateResumed
		target.Resumer = th
		target.State = StateRunning
		h.setCurrentThread(target)
		if isError {
			h.LJ = LJState{Type: LJThrow, Value1: val, IsError: true}
			return nil
		}
		h.wipeAndReturn()
		return target.deliverResumeResult(h, val, false)

	case StateInactive:
		if target.PendingEntry == nil {
			h.raiseInternal("resume target has no entry function")
			return nil
		}
		th.State = StateResumed
		target.Resumer = th
		target.State = StateRunning
		h.setCurrentThread(target)
		entry := target.PendingEntry
		this := target.PendingThis
		if this == nil {
			this = values.Undefined{}
		}
		h.wipeAndReturn()
		EcmaCallSetup(target, entry, this, []values.Value{val}, 0, false)
		return nil

	default:
		h.raiseInternal("resume target is %s, cannot be resumed", origState)
		return nil
	}
}

// deliverResumeResult writes val into the activation that called
// yield/is about to start running (the result of that call), re-establishes
// its register window, and clears the event so the dispatch loop resumes
// there on the next step.
func (th *Thread) deliverResumeResult(h *Heap, val values.Value, isError bool) error {
	idx := th.yieldActivation
	if idx < 0 || idx >= len(th.CallStack) {
		idx = len(th.CallStack) - 1
	}
	if idx < 0 {
		h.raiseInternal("resume target has no activation to resume into")
		return nil
	}
	// The call site's own PC was already advanced past the CALL
	// instruction when the resume/yield event was raised (mirroring the
	// ordinary-call convention in execCall). act.PendingRetval, stashed by
	// execCall at that same moment, names the register that call is
	// waiting on; it is not act.IdxRetval, which belongs to this
	// activation's own eventual RETURN and must survive untouched.
	act := th.CallStack[idx]
	retvalIdx := act.PendingRetval
	th.ValueStack[retvalIdx] = val
	reconfigValstackAt(th, idx, retvalIdx, 1)
	h.wipeAndReturn()
	return nil
}
