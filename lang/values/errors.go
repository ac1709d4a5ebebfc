package values

import "fmt"

// ErrorKind is the abstract error taxonomy the engine raises against.
type ErrorKind uint8

const (
	// Error is the base "user" error kind (a plain script-level throw of a
	// value that isn't one of the more specific kinds below).
	Error ErrorKind = iota
	InternalError
	RangeError
	TypeError
	ReferenceError
	SyntaxError
)

func (k ErrorKind) String() string {
	switch k {
	case InternalError:
		return "InternalError"
	case RangeError:
		return "RangeError"
	case TypeError:
		return "TypeError"
	case ReferenceError:
		return "ReferenceError"
	case SyntaxError:
		return "SyntaxError"
	default:
		return "Error"
	}
}

// ScriptError wraps an engine-raised error with its taxonomy kind. It
// satisfies the Go error interface so it can cross native Go call
// boundaries (the Call API, built-in functions) and also carries the
// tagged Value that should become the thrown value when the error re-enters
// the bytecode Throw/Unwind machinery.
type ScriptError struct {
	Kind    ErrorKind
	Message string
	// Value, if non-nil, is the exact tagged value to throw. When nil, the
	// engine constructs a plain error object from Kind and Message.
	Value Value
}

func (e *ScriptError) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds a ScriptError of the given kind with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *ScriptError {
	return &ScriptError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func internalError(format string, args ...any) *ScriptError {
	return NewError(InternalError, format, args...)
}

func rangeError(format string, args ...any) *ScriptError {
	return NewError(RangeError, format, args...)
}

func referenceError(format string, args ...any) *ScriptError {
	return NewError(ReferenceError, format, args...)
}

// NewErrorObject builds the tagged Object a ScriptError becomes when it
// crosses into the THROW unwind event as lj.value1: every thrown error,
// whether raised by the dispatcher itself or by script-level `throw`, is a
// plain Value the catch machinery can hand to a catch binding or propagate
// to the host.
func NewErrorObject(kind ErrorKind, format string, args ...any) *Object {
	msg := fmt.Sprintf(format, args...)
	o := NewObject("Error", nil)
	o.DefineDataProperty("name", NewString(kind.String()), true, false, true)
	o.DefineDataProperty("message", NewString(msg), true, false, true)
	return o
}

// AsThrowValue returns the Value that should become lj.value1 when e is
// raised: e.Value if the ScriptError already carries one (a script-level
// `throw` of an arbitrary value), otherwise a freshly built error Object.
func (e *ScriptError) AsThrowValue() Value {
	if e.Value != nil {
		return e.Value
	}
	return NewErrorObject(e.Kind, "%s", e.Message)
}
