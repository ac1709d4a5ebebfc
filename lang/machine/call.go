package machine

import (
	"github.com/remoe/duktape/lang/bytecode"
	"github.com/remoe/duktape/lang/values"
)

// resolveCallee follows fn's bound-function chain (if any) down to the
// first non-bound target, applying the values.BoundChainSanity bound (via
// values.ResolveBoundChain) so a malicious or buggy bound-function chain
// can't loop forever. Heap.Limits.BoundChainSanity is not consulted.
func (th *Thread) resolveCallee(fn values.Value, callArgs []values.Value) (target values.Callable, this values.Value, args []values.Value, err error) {
	callable, ok := fn.(values.Callable)
	if !ok {
		return nil, nil, nil, values.NewError(values.TypeError, "value is not a function")
	}
	if bf, ok := callable.(*values.BoundFunction); ok {
		_ = bf // ResolveBoundChain walks it directly below
	}
	target, this, args, err = values.ResolveBoundChain(callable, callArgs)
	if err != nil {
		return nil, nil, nil, err
	}
	return target, this, args, nil
}

// HandleCall implements the Call API's `handle_call` contract: invoking a
// native/foreign (non-compiled) target directly, for host code outside the
// dispatch loop. A compiled Function target is rejected (those go through
// EcmaCallSetup to avoid native recursion). The CALL/CALLI opcode handler
// (execCall) does not use HandleCall; it resolves the bound chain and
// calls the target's CallInternal itself.
func (th *Thread) HandleCall(callee values.Value, this values.Value, callArgs []values.Value) (values.Value, error) {
	target, boundThis, args, err := th.resolveCallee(callee, callArgs)
	if err != nil {
		return nil, err
	}
	if boundThis != nil {
		this = boundThis
	}
	if _, isCompiled := target.(*Function); isCompiled {
		return nil, values.NewError(values.InternalError, "HandleCall invoked on a compiled target; use EcmaCallSetup")
	}
	return target.CallInternal(th, this, args)
}

// EcmaCallSetup implements the in-process "Ecma-call-setup" protocol:
// transitioning from the currently executing compiled function to target
// without growing the host (Go) call stack. It either pushes a new
// Activation on top of the call stack (ordinary call) or overwrites the
// current top Activation in place (tailcall == true, collapsing the
// current frame), which is what lets a self-tail-recursive compiled
// function run arbitrarily deep without consuming Go stack or CallStack
// slots per iteration.
//
// retvalIdx is the absolute ValueStack index (in the *calling* frame) that
// the callee's eventual RETURN should write into.
func EcmaCallSetup(th *Thread, target *Function, this values.Value, args []values.Value, retvalIdx int, tailcall bool) {
	nregs := target.Template.NRegs
	base := len(th.ValueStack)
	if tailcall {
		if idx, act, ok := th.topActivation(); ok {
			_ = act
			base = th.CallStack[idx].IdxBottom
		}
	}

	th.SetTop(base)
	th.Push(this)
	for i := 0; i < target.Template.NArgs; i++ {
		if i < len(args) {
			th.Push(args[i])
		} else {
			th.Push(values.Undefined{})
		}
	}
	// 'this' occupies one extra slot just below the register window and is
	// not part of nregs; the register window starts right after 'this', so
	// the arguments just pushed are r0..r(NArgs-1). Re-anchor idxBottom to
	// right after 'this'.
	idxBottom := base + 1
	th.SetTop(idxBottom + nregs)

	act := &Activation{
		Fn:        target,
		PC:        0,
		IdxBottom: idxBottom,
		IdxRetval: retvalIdx,
	}
	if tailcall {
		act.Flags |= ActTailcalled
		idx, _, _ := th.topActivation()
		th.CallStack[idx] = act
		th.catchstackUnwindAboveActivation(idx)
	} else {
		th.pushActivation(act)
	}
}

// execCall implements the CALL/CALLI opcode: reg[base] is
// the callee, reg[base+1] is the pre-bound this-value, reg[base+2:] are
// the n arguments (the convention CSVAR/CSPROP/CSVARI/CSPROPI set up two
// registers ahead for a method call). This engine does not distinguish
// CALLI from CALL beyond decoding them identically: CALLI is reserved for
// a future indirect call-target addressing mode that nothing in this ISA
// currently needs, since CSPROP/CSVAR already materialize callee+this into
// consecutive registers.
//
// It returns handled == true when it has already taken care of transferring
// control itself (a new/collapsed Activation was pushed for a compiled
// target, or a resume/yield event was installed on h.LJ) — in either case
// the caller must not perform the generic PC-advance a synchronous native
// call result does.
func (h *Heap) execCall(th *Thread, idx int, act *Activation, ins bytecode.Instruction) (handled bool, err error) {
	flags := ins.A()
	base := ins.B()
	n := int(ins.C())

	calleeVal := th.Get(act.IdxBottom + int(base))
	thisVal := th.Get(act.IdxBottom + int(base) + 1)
	args := make([]values.Value, n)
	for i := 0; i < n; i++ {
		args[i] = th.Get(act.IdxBottom + int(base) + 2 + i)
	}
	retvalIdx := act.IdxBottom + int(base)
	tailcall := flags&bytecode.CallTailcall != 0

	callable, ok := calleeVal.(values.Callable)
	if !ok {
		return false, values.NewError(values.TypeError, "called value is not a function")
	}

	if nf, ok := callable.(*values.NativeFunc); ok {
		switch nf {
		case h.yieldFn:
			// yield(value)
			var v values.Value = values.Undefined{}
			if len(args) > 0 {
				v = args[0]
			}
			act.PC++
			act.PendingRetval = retvalIdx
			h.LJ = LJState{Type: LJYield, Value1: v}
			return true, nil
		case h.resumeFn:
			// resume(target, value) or resume(target, isError, value) —
			// the 3-arg form injects a THROW at the target's suspension
			// point instead of a normal return value.
			var targetTh *Thread
			var v values.Value = values.Undefined{}
			isError := false
			if len(args) > 0 {
				targetTh, _ = args[0].(*Thread)
			}
			switch {
			case len(args) >= 3:
				isError = bool(values.ToBoolean(args[1]))
				v = args[2]
			case len(args) == 2:
				v = args[1]
			}
			if targetTh == nil {
				return false, values.NewError(values.TypeError, "resume target is not a thread")
			}
			act.PC++
			act.PendingRetval = retvalIdx
			h.LJ = LJState{Type: LJResume, Value1: v, Value2: targetTh, IsError: isError}
			return true, nil
		}
	}

	target, boundThis, mergedArgs, err := values.ResolveBoundChain(callable, args)
	if err != nil {
		return false, err
	}
	if boundThis != nil {
		thisVal = boundThis
	}

	if compiled, ok := target.(*Function); ok {
		if !tailcall && h.Limits.MaxCallStackDepth > 0 && len(th.CallStack) >= h.Limits.MaxCallStackDepth {
			return false, values.NewError(values.RangeError, "call stack limit (%d) reached", h.Limits.MaxCallStackDepth)
		}
		act.PC++
		setupRetval := retvalIdx
		if tailcall {
			// A tailcall collapses act in place (EcmaCallSetup overwrites
			// th.CallStack[idx] rather than pushing), so retvalIdx (a
			// register inside act's own, about-to-be-discarded window) is
			// the wrong target: the eventual RETURN must land where act's
			// own caller is expecting act's result, i.e. act.IdxRetval.
			setupRetval = act.IdxRetval
		}
		EcmaCallSetup(th, compiled, thisVal, mergedArgs, setupRetval, tailcall)
		return true, nil
	}

	result, err := target.CallInternal(th, thisVal, mergedArgs)
	if err != nil {
		return false, err
	}
	th.Set(retvalIdx, result)
	return false, nil
}

// callCompiledRecursive drives a nested, natively-recursive invocation of
// the dispatch loop to completion, returning the callee's final value.
// This is the path used by Function.CallInternal (and therefore by
// Thread.CallMethod) rather than EcmaCallSetup: it is never on the
// tail-call-sensitive CALL-opcode path, so paying for one Go stack frame
// per nested native call here is acceptable (see Thread.CallMethod's doc
// comment).
func (th *Thread) callCompiledRecursive(target *Function, this values.Value, args []values.Value) (values.Value, error) {
	entryDepth := len(th.CallStack)
	resultSlot := len(th.ValueStack)
	th.Push(values.Undefined{}) // reserved retval slot for this nested call
	EcmaCallSetup(th, target, this, args, resultSlot, false)

	heap := th.Heap
	prevCurrent := heap.current
	heap.setCurrentThread(th)
	defer heap.setCurrentThread(prevCurrent)

	val, err := heap.run(th, entryDepth)
	return val, err
}
