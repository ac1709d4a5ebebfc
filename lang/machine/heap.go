package machine

import (
	"github.com/dolthub/swiss"
	"github.com/remoe/duktape/lang/values"
)

// LJType names the kind of unwind event the Heap's single longjmp-style
// state currently carries. Exactly one Thread (the current one) is ever
// mid-unwind at a time, even though several Threads may be chained
// through Resumer links.
type LJType uint8

const (
	LJNone LJType = iota
	LJReturn
	LJThrow
	LJBreak
	LJContinue
	LJYield
	LJResume
	LJNormal
)

func (t LJType) String() string {
	switch t {
	case LJReturn:
		return "RETURN"
	case LJThrow:
		return "THROW"
	case LJBreak:
		return "BREAK"
	case LJContinue:
		return "CONTINUE"
	case LJYield:
		return "YIELD"
	case LJResume:
		return "RESUME"
	case LJNormal:
		return "NORMAL"
	default:
		return "NONE"
	}
}

// LJState is the Heap-level unwind-event record the Unwind Handler
// switches on. Value1/Value2 carry event-specific
// payloads: THROW's thrown value, RETURN's/YIELD's result value,
// RESUME's value to deliver to the resumee, BREAK/CONTINUE's target
// label id (boxed as a Number).
type LJState struct {
	Type    LJType
	Value1  values.Value
	Value2  values.Value
	IsError bool
}

// Limits holds bounds configurable by the embedding host (see
// internal/config). MaxCallStackDepth is enforced by the CALL opcode
// handler for non-tail calls into compiled functions (0 disables the
// check). BoundChainSanity is carried here but not read by the engine:
// bound-chain walks always use the values.BoundChainSanity constant.
type Limits struct {
	MaxCallStackDepth int
	BoundChainSanity  int
}

func DefaultLimits() Limits {
	return Limits{MaxCallStackDepth: 1000, BoundChainSanity: values.BoundChainSanity}
}

// Heap is the shared, engine-wide state every Thread of a single engine
// instance is created from: the string intern table, the global object,
// the unwind state lj, and the set of live Threads a single Heap owns.
type Heap struct {
	threads []*Thread
	current *Thread

	LJ LJState

	interned *swiss.Map[string, *values.String]
	Global   *values.Object
	Limits   Limits

	// yieldFn/resumeFn hold the identity of the coroutine builtins
	// registered by builtins.Register: the CALL opcode handler
	// special-cases a call whose callee is one of these two exact
	// *values.NativeFunc pointers instead of invoking them like an
	// ordinary native function.
	yieldFn  *values.NativeFunc
	resumeFn *values.NativeFunc
}

// RegisterCoroutineBuiltins installs the `yield`/`resume` identities the
// CALL opcode handler recognizes specially. It is exposed so package
// builtins (which constructs the actual NativeFunc values so they can also
// be reached as ordinary global bindings) can wire them in without this
// package importing builtins (which imports machine).
func (h *Heap) RegisterCoroutineBuiltins(yieldFn, resumeFn *values.NativeFunc) {
	h.yieldFn = yieldFn
	h.resumeFn = resumeFn
}

func NewHeap(limits Limits) *Heap {
	h := &Heap{
		interned: swiss.NewMap[string, *values.String](16),
		Global:   values.NewObject("global", nil),
		Limits:   limits,
	}
	return h
}

// Intern implements the Heap API's string-interning contract: repeated
// calls with an equal Go string return the identical *values.String
// pointer, so script-level strict-equality on strings can in principle be
// reduced to pointer comparison (the engine does not rely on this for
// correctness — StrictEquals still compares contents — but it avoids
// duplicate allocation for repeated identifiers and literals).
func (h *Heap) Intern(s string) *values.String {
	if v, ok := h.interned.Get(s); ok {
		return v
	}
	v := values.NewString(s)
	h.interned.Put(s, v)
	return v
}

// NewThread creates a fresh, inactive Thread sharing this Heap.
func (h *Heap) NewThread() *Thread {
	th := &Thread{
		Heap:            h,
		State:           StateInactive,
		InterruptInit:   0,
		yieldActivation: -1,
	}
	h.threads = append(h.threads, th)
	return th
}

// PrepareThread assigns the entry function (and this-binding) an INACTIVE
// thread will run on its first resume. Calling it on a thread that is not
// INACTIVE has no effect on any already-running entry.
func (h *Heap) PrepareThread(th *Thread, entry *Function, this values.Value) {
	th.PendingEntry = entry
	th.PendingThis = this
}

func (h *Heap) CurrentThread() *Thread { return h.current }

func (h *Heap) setCurrentThread(th *Thread) { h.current = th }

// wipeAndReturn clears the unwind state once the Unwind Handler has fully
// consumed it.
func (h *Heap) wipeAndReturn() { h.LJ = LJState{} }

// raiseInternal installs an InternalError THROW unwind event directly on
// the heap, used by assertion/invariant failures and by dispatcher-detected
// error conditions that have no Caller-bound values.ScriptError in hand.
func (h *Heap) raiseInternal(format string, args ...any) {
	h.LJ = LJState{
		Type:    LJThrow,
		Value1:  values.NewErrorObject(values.InternalError, format, args...),
		IsError: true,
	}
}
