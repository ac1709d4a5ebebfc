package machine

import (
	"github.com/remoe/duktape/lang/bytecode"
	"github.com/remoe/duktape/lang/values"
)

// ExecuteProgram implements the host-facing `execute_bytecode(thread)` entry
// point: realize prog's toplevel function as a closure over the global
// environment, push its entry-level activation onto th, and run the dispatch
// loop until that activation returns (or re-throws).
//
// th must be fresh (an empty call stack); this is the precondition
// execute_bytecode documents ("at least one compiled-function activation on
// thread's call stack" is established here, not assumed beforehand).
func (h *Heap) ExecuteProgram(th *Thread, prog *bytecode.Program, this values.Value, args []values.Value) (values.Value, error) {
	global := NewObjectEnvironment(h.Global, nil)
	entry := PushClosure(prog.Toplevel, global, global)

	if this == nil {
		this = values.Undefined{}
	}

	prevCurrent := h.current
	h.setCurrentThread(th)
	defer h.setCurrentThread(prevCurrent)

	th.State = StateRunning
	EcmaCallSetup(th, entry, this, args, 0, false)
	val, err := h.run(th, 0)
	if err == nil {
		th.State = StateTerminated
	}
	return val, err
}
