package machine

import (
	"fmt"

	"github.com/remoe/duktape/lang/bytecode"
	"github.com/remoe/duktape/lang/values"
)

// Function is a realized closure: an immutable compiled-function template
// paired with the lexical and variable environments it captured when the
// CLOSURE instruction realized it, from the activation's current lexical
// and variable environments. It implements values.Callable so the CALL
// opcode, bound-function chains and the host Call API can all treat it
// uniformly alongside native and light functions.
type Function struct {
	Template *bytecode.Function
	Lexical  *Environment
	Variable *Environment

	proto *values.Object // lazily created, see InstancePrototype
}

var _ values.Callable = (*Function)(nil)
var _ values.HasInstancePrototype = (*Function)(nil)

func (f *Function) String() string { return fmt.Sprintf("function %s() { [compiled code] }", f.Template.Name) }
func (*Function) Type() string     { return "object" }
func (f *Function) Name() string   { return f.Template.Name }

// CallInternal lets a compiled Function be invoked like any other
// Callable. It always completes the call with a native recursive
// invocation of the executor (see Thread.CallMethod's doc comment for why
// that is acceptable off the CALL-opcode path) rather than using
// Ecma-call-setup's frame-collapsing transition, which only the dispatch
// loop's CALL/CALLI handling needs.
func (f *Function) CallInternal(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	th, ok := c.(*Thread)
	if !ok {
		return nil, values.NewError(values.InternalError, "CallInternal requires a machine.Thread Caller")
	}
	return th.callCompiledRecursive(f, this, args)
}

// InstancePrototype returns f's own "prototype" object, creating it on
// first use. Every compiled function gets exactly one, matching ES5's
// rule that a Function object has an auto-created "prototype" own
// property the first time it is observed (here: the first instanceof
// check against it); it is not exposed as an ordinary gettable/settable
// property since this engine has no `new` operator to exercise that.
func (f *Function) InstancePrototype() *values.Object {
	if f.proto == nil {
		f.proto = values.NewObject("Object", nil)
	}
	return f.proto
}

// PushClosure realizes template as a Function capturing env's current
// lexical and variable environments, implementing the Call API's
// `push_closure` contract.
func PushClosure(template *bytecode.Function, lexical, variable *Environment) *Function {
	return &Function{Template: template, Lexical: lexical, Variable: variable}
}
