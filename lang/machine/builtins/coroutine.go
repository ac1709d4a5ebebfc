// Package builtins provides the small set of native functions the core
// engine exposes directly: the `resume`/`yield` coroutine primitives.
// Everything else (Object/Array/String/Math/... the standard library) is
// out of scope here and belongs to a higher layer built on top of this
// package's Call API.
package builtins

import (
	"github.com/remoe/duktape/lang/machine"
	"github.com/remoe/duktape/lang/values"
)

// Register creates the `yield` and `resume` native functions, installs
// their identity on heap so the CALL opcode handler recognizes them by
// identity rather than by name lookup (shadowing the global binding can't
// accidentally turn a plain call into a coroutine primitive), and binds
// them as properties of heap.Global.
func Register(h *machine.Heap) {
	yieldFn := values.NewNativeFunc("yield", func(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
		return nil, values.NewError(values.InternalError, "yield must be invoked through the CALL opcode, not CallInternal")
	})
	resumeFn := values.NewNativeFunc("resume", func(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
		return nil, values.NewError(values.InternalError, "resume must be invoked through the CALL opcode, not CallInternal")
	})

	h.RegisterCoroutineBuiltins(yieldFn, resumeFn)
	h.Global.DefineDataProperty("yield", yieldFn, true, false, true)
	h.Global.DefineDataProperty("resume", resumeFn, true, false, true)
}
