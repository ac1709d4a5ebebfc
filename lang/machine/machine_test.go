package machine_test

import (
	"testing"

	"github.com/remoe/duktape/lang/bytecode"
	"github.com/remoe/duktape/lang/machine"
	"github.com/remoe/duktape/lang/machine/builtins"
	"github.com/remoe/duktape/lang/values"
	"github.com/stretchr/testify/require"
)

// newHeap builds a fresh Heap with the coroutine builtins registered, the
// shared setup every scenario below starts from.
func newHeap(t *testing.T) *machine.Heap {
	t.Helper()
	h := machine.NewHeap(machine.DefaultLimits())
	builtins.Register(h)
	return h
}

func assemble(t *testing.T, src string) *bytecode.Program {
	t.Helper()
	p, err := bytecode.Assemble([]byte(src))
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

// TestArithmeticScenario covers scenario 1: 7 + 35 == 42.
func TestArithmeticScenario(t *testing.T) {
	h := newHeap(t)
	prog := assemble(t, `
program:
function: main 2 0
	code:
		ldint r0, 7
		ldint r1, 35
		add r0, r0, r1
		return 2, r0
`)
	th := h.NewThread()
	result, err := h.ExecuteProgram(th, prog, nil, nil)
	require.NoError(t, err)
	require.Equal(t, values.NewNumber(42), result)
}

// TestStringConcatScenario covers scenario 2: "ab"+"cd" == "abcd".
func TestStringConcatScenario(t *testing.T) {
	h := newHeap(t)
	prog := assemble(t, `
program:
constants:
	string "ab"
	string "cd"
function: main 2 0
	code:
		ldconst r0, #0
		ldconst r1, #1
		add r0, r0, r1
		return 2, r0
`)
	th := h.NewThread()
	result, err := h.ExecuteProgram(th, prog, nil, nil)
	require.NoError(t, err)
	str, ok := result.(*values.String)
	require.True(t, ok, "expected a *values.String, got %T", result)
	require.Equal(t, "abcd", str.Go())
}

// TestTryCatchFinallyScenario covers scenario 3: a thrown value
// is caught, bound to the catch variable, and a finally block that always
// runs afterward appends to it, exercising TRYCATCH/ENDTRY/ENDCATCH/ENDFIN
// and the catch-binding's declarative environment together.
//
// The accumulator lives in a declared variable ("result"), not a raw
// register: reconfig_valstack wipes every register of the owning activation
// on catch/finally entry, so nothing carried in a register survives from
// the try body into the catch or finally body — only a variable, which
// lives in the environment rather than the value stack, does.
func TestTryCatchFinallyScenario(t *testing.T) {
	h := newHeap(t)
	prog := assemble(t, `
program:
constants:
	string "boom"
	string "e"
	string "!"
	string "result"
function: main 3 0
	code:
		ldconst r0, #3
		extra ldundef, r1
		declvar 0, r0, r1
		trycatch 2, 12
		trycatch 5, 8, #1
		throw #0
		endtry
		jump 4
		getvar r1, #1
		putvar r1, #3
		endcatch
		endtry
		getvar r1, #3
		ldconst r2, #2
		add r1, r1, r2
		putvar r1, #3
		endfin
		getvar r0, #3
		return 2, r0
`)
	th := h.NewThread()
	result, err := h.ExecuteProgram(th, prog, nil, nil)
	require.NoError(t, err)
	str, ok := result.(*values.String)
	require.True(t, ok, "expected a *values.String, got %T", result)
	require.Equal(t, "boom!", str.Go())
}

// TestLabelledBreakScenario covers scenario 4: a BREAK naming
// the outer of two nested labels unwinds past both, matching ES5.1's
// labelled-break-crosses-inner-blocks semantics.
func TestLabelledBreakScenario(t *testing.T) {
	h := newHeap(t)
	prog := assemble(t, `
program:
function: main 2 0
	code:
		label 100
		label 200
		ldint r0, 1
		break 100
		ldint r0, 999
		endlabel 200
		ldint r0, 888
		endlabel 100
		return 2, r0
`)
	th := h.NewThread()
	result, err := h.ExecuteProgram(th, prog, nil, nil)
	require.NoError(t, err)
	require.Equal(t, values.NewNumber(1), result)
}

// TestTailCallScenario covers scenario 6: a self-tail-recursive
// compiled function run 100000 deep returns without growing the call
// stack (it runs at all only because EcmaCallSetup's tailcall branch
// collapses each iteration's activation in place, per call.go).
func TestTailCallScenario(t *testing.T) {
	h := newHeap(t)
	prog := assemble(t, `
program:
constants:
	string "f"
function: main 6 0
	code:
		ldconst r1, #0
		closure r0, @f
		declvar 0, r1, r0
		ldreg r3, r0
		extra ldundef, r4
		ldint r5, 1
		ldintx r5, 34464
		call 0, r3, 1
		return 2, r3
function: f 6 1
	code:
		ldint r1, 0
		le r2, r0, r1
		if 1, r2
		jump 3
		ldint r0, 42
		return 2, r0
		getvar r3, #0
		extra ldundef, r4
		ldint r5, 1
		sub r5, r0, r5
		call 1, r3, 1
`)
	th := h.NewThread()
	result, err := h.ExecuteProgram(th, prog, nil, nil)
	require.NoError(t, err)
	require.Equal(t, values.NewNumber(42), result)
	// the whole 100000-deep chain ran inside a single activation slot
	require.Len(t, th.CallStack, 0)
}

// TestCoroutineScenario covers scenario 5: thread A resumes
// thread B with 10; B yields 20, which A observes as resume's result; A
// resumes B again with 30, which B's suspended yield() call returns; B
// then runs to completion and returns 40, which A observes as its second
// resume's result. A third resume, once B has terminated, raises.
func TestCoroutineScenario(t *testing.T) {
	h := newHeap(t)

	coroProg := assemble(t, `
program:
constants:
	string "yield"
function: coro 4 1
	code:
		getvar r1, #0
		extra ldundef, r2
		ldint r3, 20
		call 0, r1, 1
		ldint r0, 40
		return 2, r0
`)

	threadB := h.NewThread()
	entry := machine.PushClosure(coroProg.Toplevel, machine.NewObjectEnvironment(h.Global, nil), machine.NewObjectEnvironment(h.Global, nil))
	h.PrepareThread(threadB, entry, values.Undefined{})

	mainProg := assemble(t, `
program:
constants:
	string "resume"
function: main 7 1
	code:
		getvar r1, #0
		extra ldundef, r2
		ldreg r3, r0
		ldint r4, 10
		call 0, r1, 2
		ldreg r5, r1
		getvar r1, #0
		extra ldundef, r2
		ldreg r3, r0
		ldint r4, 30
		call 0, r1, 2
		ldreg r6, r1
		ldint r2, 100
		mul r2, r5, r2
		add r2, r2, r6
		return 2, r2
`)

	threadA := h.NewThread()
	result, err := h.ExecuteProgram(threadA, mainProg, values.Undefined{}, []values.Value{threadB})
	require.NoError(t, err)
	require.Equal(t, values.NewNumber(2040), result, "20 (first resume) *100 + 40 (second resume)")
	require.Equal(t, machine.StateTerminated, threadB.State)

	// A further resume targeting the now-terminated B must raise, not panic.
	resumeAgainProg := assemble(t, `
program:
constants:
	string "resume"
function: main 5 1
	code:
		getvar r1, #0
		extra ldundef, r2
		ldreg r3, r0
		ldint r4, 99
		call 0, r1, 2
		return 2, r1
`)
	threadA2 := h.NewThread()
	_, err = h.ExecuteProgram(threadA2, resumeAgainProg, values.Undefined{}, []values.Value{threadB})
	require.Error(t, err)
}
