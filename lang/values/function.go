package values

import "fmt"

// Callable is implemented by every tagged value that can appear as the
// target of a CALL/CALLI instruction: native functions, light functions,
// bound functions, and (in package machine) compiled functions.
type Callable interface {
	Value
	// Name returns the function's display name, used in error messages and
	// in the recursion-detection diagnostic.
	Name() string
	// CallInternal invokes the callable directly, without going through the
	// bytecode dispatch loop's CALL opcode. For native/light/bound
	// functions this is an ordinary (and therefore native-recursive) Go
	// call; for compiled functions (package machine) it is never called
	// directly by the dispatch loop, which instead uses the in-process
	// Ecma-call-setup protocol to avoid growing the host call stack.
	CallInternal(c Caller, this Value, args []Value) (Value, error)
}

// NativeFunc is a heap-allocated callable backed by a Go function, used for
// host-provided builtins (the `resume`/`yield` coroutine primitives, and
// anything else the embedding host registers via the Call API).
type NativeFunc struct {
	FuncName string
	Fn       func(c Caller, this Value, args []Value) (Value, error)
}

var _ Callable = (*NativeFunc)(nil)

func NewNativeFunc(name string, fn func(c Caller, this Value, args []Value) (Value, error)) *NativeFunc {
	return &NativeFunc{FuncName: name, Fn: fn}
}

func (f *NativeFunc) String() string { return fmt.Sprintf("function %s() { [native code] }", f.FuncName) }
func (*NativeFunc) Type() string     { return "object" }
func (f *NativeFunc) Name() string   { return f.FuncName }
func (f *NativeFunc) CallInternal(c Caller, this Value, args []Value) (Value, error) {
	return f.Fn(c, this, args)
}

// LightFunc is a compact, non-heap callable whose identity is carried by
// value rather than by pointer: copying a LightFunc never allocates and
// never participates in reference counting. It exists purely as an
// optional optimization over NativeFunc; the engine never relies on
// light-function identity for correctness (the original engine's
// "permanently-on light function test" debug property is deliberately not
// implemented).
type LightFunc struct {
	FuncName string
	Fn       func(c Caller, this Value, args []Value) (Value, error)
}

var _ Callable = LightFunc{}

func (f LightFunc) String() string { return fmt.Sprintf("function %s() { [light code] }", f.FuncName) }
func (LightFunc) Type() string     { return "object" }
func (f LightFunc) Name() string   { return f.FuncName }
func (f LightFunc) CallInternal(c Caller, this Value, args []Value) (Value, error) {
	return f.Fn(c, this, args)
}

// BoundChainSanity bounds the number of hops CALL/CALLI will follow through
// a chain of bound functions before raising InternalError, guaranteeing the
// walk terminates even on a malicious or buggy chain.
const BoundChainSanity = 64

// BoundFunction wraps a target Callable with a pre-bound this-value and
// leading arguments. Unlike the original C engine, which resolves the
// chain by repeated property reads, Target is a direct field access: the
// walk is O(1) per hop, since a systems-language implementation can store
// the final target directly on the bound function.
type BoundFunction struct {
	Target   Callable
	This     Value
	BoundArg []Value
	FuncName string
}

var _ Callable = (*BoundFunction)(nil)

func NewBoundFunction(target Callable, this Value, boundArgs []Value) *BoundFunction {
	return &BoundFunction{
		Target:   target,
		This:     this,
		BoundArg: boundArgs,
		FuncName: "bound " + target.Name(),
	}
}

func (b *BoundFunction) String() string { return fmt.Sprintf("function %s() { [bound code] }", b.FuncName) }
func (*BoundFunction) Type() string     { return "object" }
func (b *BoundFunction) Name() string   { return b.FuncName }

func (b *BoundFunction) CallInternal(c Caller, _ Value, args []Value) (Value, error) {
	final, this, merged, err := ResolveBoundChain(b, args)
	if err != nil {
		return nil, err
	}
	return final.CallInternal(c, this, merged)
}

// ResolveBoundChain follows fn's Target chain (if fn is a *BoundFunction)
// down to the first non-bound Callable, taking the this-binding of the
// innermost bound wrapper (the one wrapping the target) and concatenating bound arguments in
// outside-in order ahead of callArgs, exactly as CALL/CALLI's "follow the
// bound-function chain" step requires.
func ResolveBoundChain(fn Callable, callArgs []Value) (target Callable, this Value, args []Value, err error) {
	bf, ok := fn.(*BoundFunction)
	if !ok {
		return fn, nil, callArgs, nil
	}

	this = bf.This
	// collect bound argument segments innermost-last so we can prepend them
	// in the correct order once we know the final target.
	var segments [][]Value
	cur := bf
	for i := 0; ; i++ {
		if i >= BoundChainSanity {
			return nil, nil, nil, internalError("bound function chain exceeds sanity limit (%d)", BoundChainSanity)
		}
		segments = append(segments, cur.BoundArg)
		next, ok := cur.Target.(*BoundFunction)
		if !ok {
			target = cur.Target
			break
		}
		this = next.This
		cur = next
	}

	total := len(callArgs)
	for _, s := range segments {
		total += len(s)
	}
	args = make([]Value, 0, total)
	for _, s := range segments {
		args = append(args, s...)
	}
	args = append(args, callArgs...)
	return target, this, args, nil
}
