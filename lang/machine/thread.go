package machine

import (
	"fmt"

	"github.com/remoe/duktape/lang/values"
)

// ThreadState is one of the five states a coroutine enumerates through.
type ThreadState uint8

const (
	StateInactive ThreadState = iota
	StateRunning
	StateResumed
	StateYielded
	StateTerminated
)

func (s ThreadState) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateRunning:
		return "running"
	case StateResumed:
		return "resumed"
	case StateYielded:
		return "yielded"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Thread is one cooperative coroutine: its three parallel stacks, its
// state, its resumer back-pointer, and its interrupt counter.
type Thread struct {
	Heap *Heap

	State ThreadState

	ValueStack []values.Value
	CallStack  []*Activation
	CatchStack []*Catcher

	// Resumer is non-nil iff this Thread is RESUMED or RUNNING via a
	// resume chain: it is the Thread whose `resume` call is waiting on
	// this one.
	Resumer *Thread

	// InterruptCounter/InterruptInit implement the dispatch loop's
	// per-instruction countdown: it decrements InterruptCounter every
	// instruction and calls InterruptHook on reaching zero.
	InterruptCounter int
	InterruptInit    int
	InterruptHook    func(th *Thread) error

	// yieldActivation records, for a YIELDED thread, the index of the
	// activation executing the `yield` call, so RESUME can find where to
	// deliver the resumed value by unwinding the resumee's call stack back
	// to the yield activation. -1 when th has never yielded.
	yieldActivation int

	// PendingEntry/PendingThis hold the entry function and this-binding a
	// still-INACTIVE thread will run the first time it is resumed (the
	// first RESUME of an inactive thread starts it). Set via
	// Heap.PrepareThread.
	PendingEntry *Function
	PendingThis  values.Value
}

var _ values.Caller = (*Thread)(nil)
var _ values.Value = (*Thread)(nil)

// String/Type let a Thread itself travel through registers, the constant
// pool and the `resume` builtin's argument list as an ordinary tagged
// value, even though it carries no ES5-visible properties of its own.
func (th *Thread) String() string { return fmt.Sprintf("[object Thread %s]", th.State) }
func (*Thread) Type() string      { return "object" }

// CallMethod implements values.Caller: it is how the arithmetic/coercion
// primitives in package values invoke a script-level method (valueOf,
// toString, a property accessor) without that package depending on
// package machine. Unlike the CALL opcode's in-process Ecma-call-setup
// transition, this always completes the call with an ordinary (native)
// recursive invocation of the dispatch loop when fn is a compiled
// Function — acceptable here because CallMethod is never on the
// tail-call-sensitive script-to-script path the tail-call tests exercise;
// it is only reached from native Go code reacting to a single coercion.
func (th *Thread) CallMethod(fn values.Value, this values.Value, args []values.Value) (values.Value, error) {
	callable, ok := fn.(values.Callable)
	if !ok {
		return nil, values.NewError(values.TypeError, "value is not callable")
	}
	return callable.CallInternal(th, this, args)
}
