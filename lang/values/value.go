// Package values implements the tagged value representation manipulated by
// the bytecode dispatch loop, together with the arithmetic, bitwise,
// comparison and coercion primitives the loop calls into. It is the
// "leaves first" dependency named by the engine's component order: every
// other package in this module (bytecode, machine) depends on it, and it
// depends on nothing in this module except lang/token.
package values

import "fmt"

// Value is the interface implemented by every tagged value the engine can
// hold in a register, a constant pool slot, or a property. Scalar variants
// (Undefined, Null, Bool, Number) are plain Go values; heap-referencing
// variants (*String, *Object, *Buffer, *BoundFunction) are pointers so that
// identity comparison and Go's garbage collector do the reference-counted
// heap's job for us.
type Value interface {
	// String returns a human-readable representation, for debugging and
	// tracing only; it is not the ToString() coercion.
	String() string

	// Type returns the ES5 typeof-ish short name of the value's kind, used
	// by error messages and by TypeOf for the common case.
	Type() string
}

// Caller is implemented by the executor's Thread so that value-level
// coercions (ToPrimitive, string concatenation, accessor properties) can
// invoke script-level callables without this package depending on the
// executor. This is the single seam across the "leaves first" dependency
// boundary.
type Caller interface {
	// CallMethod invokes fn with the given this-binding and arguments and
	// returns its result synchronously. For a compiled function this
	// recurses natively into a nested run of the dispatch loop.
	CallMethod(fn Value, this Value, args []Value) (Value, error)
}

// Undefined is the tagged "undefined" value. There is exactly one value of
// this type, Undefined (the zero value).
type Undefined struct{}

func (Undefined) String() string { return "undefined" }
func (Undefined) Type() string   { return "undefined" }

// Null is the tagged "null" value. There is exactly one value of this type,
// Null (the zero value).
type Null struct{}

func (Null) String() string { return "null" }
func (Null) Type() string   { return "null" }

var (
	_ Value = Undefined{}
	_ Value = Null{}
)

// TypeOf implements the generic `typeof` operator for any tagged value,
// including the EXTRA TYPEOF opcode. Object and function values may report a
// more specific type ("function" for callables) than Type().
func TypeOf(v Value) string {
	switch v.(type) {
	case Undefined:
		return "undefined"
	case Null:
		return "object" // ES5 quirk: typeof null === "object"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case *String:
		return "string"
	case Callable:
		return "function"
	default:
		return v.Type()
	}
}

// IsNullOrUndefined reports whether v is one of the two "nullish" ES5
// values, used throughout the == comparison algorithm and property access
// checks.
func IsNullOrUndefined(v Value) bool {
	switch v.(type) {
	case Undefined, Null:
		return true
	default:
		return false
	}
}

func typeError(format string, args ...any) error {
	return &ScriptError{Kind: TypeError, Message: fmt.Sprintf(format, args...)}
}
