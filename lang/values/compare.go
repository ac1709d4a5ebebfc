package values

import (
	"math"

	"github.com/remoe/duktape/lang/token"
)

// triState is the result of AbstractRelationalComparison (ES5 §11.8.5),
// which may be "undefined" when either operand coerces to NaN.
type triState int8

const (
	triFalse triState = iota
	triTrue
	triUndefined
)

// Compare implements the EQ/NEQ/SEQ/SNEQ/GT/GE/LT/LE family with a single
// primitive: relational ops are expressed by one compare function with
// flags (left-first, negate) selected internally, so evaluation order is
// preserved. The left-first/negate flags are selected internally per ES5
// §11.8.1-§11.8.4 from the requested operator, rather than threaded through
// the call site, so the call convention matches how the dispatch loop calls
// it: Compare(caller, op, x, y).
func Compare(c Caller, op token.Token, x, y Value) (Bool, error) {
	switch op {
	case token.EQEQ:
		return Equals(c, x, y)
	case token.NEQ:
		eq, err := Equals(c, x, y)
		return !eq, err
	case token.SEQ:
		return StrictEquals(x, y), nil
	case token.SNEQ:
		return !StrictEquals(x, y), nil
	case token.LT:
		// x < y: AbstractRelationalComparison(x, y, LeftFirst=true)
		r, err := abstractRelational(c, x, y, true)
		return triToBool(r, false), err
	case token.GT:
		// x > y: AbstractRelationalComparison(y, x, LeftFirst=false)
		r, err := abstractRelational(c, y, x, false)
		return triToBool(r, false), err
	case token.LE:
		// x <= y: !AbstractRelationalComparison(y, x, LeftFirst=false),
		// with "true or undefined" both negating to false.
		r, err := abstractRelational(c, y, x, false)
		return triToBool(r, true), err
	case token.GE:
		// x >= y: !AbstractRelationalComparison(x, y, LeftFirst=true)
		r, err := abstractRelational(c, x, y, true)
		return triToBool(r, true), err
	default:
		return false, internalError("unsupported comparison operator %s", op)
	}
}

// triToBool converts AbstractRelationalComparison's tri-state result to a
// Bool. For the direct (non-negated) operators, undefined maps to false.
// For the negated operators (<=, >=), ES5 treats "true or undefined" as
// false and anything else as true, which is the same mapping as negating
// triTrue/triUndefined to false and triFalse to true.
func triToBool(r triState, negate bool) Bool {
	if !negate {
		return Bool(r == triTrue)
	}
	return Bool(r == triFalse)
}

// abstractRelational implements ES5 §11.8.5. x and y are evaluated through
// ToPrimitive(Number) in the order given by leftFirst, matching the source
// evaluation order so coercion side effects stay observable in the right
// sequence even when the bytecode operator swapped argument order (GT/LE
// above).
func abstractRelational(c Caller, x, y Value, leftFirst bool) (triState, error) {
	var px, py Value
	var err error
	if leftFirst {
		if px, err = ToPrimitive(c, x, HintNumber); err != nil {
			return triFalse, err
		}
		if py, err = ToPrimitive(c, y, HintNumber); err != nil {
			return triFalse, err
		}
	} else {
		if py, err = ToPrimitive(c, y, HintNumber); err != nil {
			return triFalse, err
		}
		if px, err = ToPrimitive(c, x, HintNumber); err != nil {
			return triFalse, err
		}
	}

	sx, xIsStr := px.(*String)
	sy, yIsStr := py.(*String)
	if xIsStr && yIsStr {
		if sx.s < sy.s {
			return triTrue, nil
		}
		return triFalse, nil
	}

	nx, err := ToNumber(c, px)
	if err != nil {
		return triFalse, err
	}
	ny, err := ToNumber(c, py)
	if err != nil {
		return triFalse, err
	}
	fx, fy := float64(nx), float64(ny)
	if math.IsNaN(fx) || math.IsNaN(fy) {
		return triUndefined, nil
	}
	if fx < fy {
		return triTrue, nil
	}
	return triFalse, nil
}

// Equals implements the abstract equality comparison `==` (ES5 §11.9.3).
func Equals(c Caller, x, y Value) (Bool, error) {
	if sameType(x, y) {
		return StrictEquals(x, y), nil
	}

	switch {
	case IsNullOrUndefined(x) && IsNullOrUndefined(y):
		return True, nil
	case isNumber(x) && isString(y):
		ny, err := ToNumber(c, y)
		if err != nil {
			return false, err
		}
		return Equals(c, x, ny)
	case isString(x) && isNumber(y):
		nx, err := ToNumber(c, x)
		if err != nil {
			return false, err
		}
		return Equals(c, nx, y)
	case isBool(x):
		nx, err := ToNumber(c, x)
		if err != nil {
			return false, err
		}
		return Equals(c, nx, y)
	case isBool(y):
		ny, err := ToNumber(c, y)
		if err != nil {
			return false, err
		}
		return Equals(c, x, ny)
	case (isNumber(x) || isString(x)) && isObject(y):
		py, err := ToPrimitive(c, y, HintNone)
		if err != nil {
			return false, err
		}
		return Equals(c, x, py)
	case isObject(x) && (isNumber(y) || isString(y)):
		px, err := ToPrimitive(c, x, HintNone)
		if err != nil {
			return false, err
		}
		return Equals(c, px, y)
	default:
		return False, nil
	}
}

// StrictEquals implements `===` (ES5 §11.9.6): no coercion is performed,
// so it never has side effects and never needs a Caller. NaN is never
// strict-equal to itself, the one case where strict_equals(x, x) is false.
func StrictEquals(x, y Value) Bool {
	if !sameType(x, y) {
		return False
	}
	switch a := x.(type) {
	case Undefined, Null:
		return True
	case Bool:
		return Bool(a == y.(Bool))
	case Number:
		fa, fb := float64(a), float64(y.(Number))
		if math.IsNaN(fa) || math.IsNaN(fb) {
			return False
		}
		return Bool(fa == fb)
	case *String:
		return Bool(a.Equals(y.(*String)))
	default:
		return Bool(x == y) // reference identity for objects/functions/etc.
	}
}

func sameType(x, y Value) bool {
	switch x.(type) {
	case Undefined:
		_, ok := y.(Undefined)
		return ok
	case Null:
		_, ok := y.(Null)
		return ok
	case Bool:
		_, ok := y.(Bool)
		return ok
	case Number:
		_, ok := y.(Number)
		return ok
	case *String:
		_, ok := y.(*String)
		return ok
	default:
		return TypeOf(x) == TypeOf(y) && !isScalarType(y)
	}
}

func isScalarType(v Value) bool {
	switch v.(type) {
	case Undefined, Null, Bool, Number, *String:
		return true
	default:
		return false
	}
}

func isNumber(v Value) bool { _, ok := v.(Number); return ok }
func isString(v Value) bool { _, ok := v.(*String); return ok }
func isBool(v Value) bool   { _, ok := v.(Bool); return ok }
func isObject(v Value) bool {
	switch v.(type) {
	case *Object, Callable:
		return true
	default:
		return false
	}
}

// HasInstancePrototype is implemented by callables that carry an own
// "prototype" object for instanceof's [[HasInstance]] walk (ES5 §15.3.5.3):
// right now only *machine.Function, whose prototype object is created
// lazily the first time it is asked for. Native, light and bound functions
// don't implement it; they are still valid instanceof operands (callable,
// so no TypeError), they just never match any object, matching duktape's
// behavior for a function with no "prototype" own property installed.
type HasInstancePrototype interface {
	Callable
	InstancePrototype() *Object
}

// InstanceOf implements the `instanceof` binary operator (ES5 §11.8.6):
// instanceof on a non-callable right-hand side raises TypeError. lhs is
// tested against rhs's prototype object by walking lhs's own prototype
// chain, per the default [[HasInstance]] algorithm (ES5 §15.3.5.3); rhs
// must be Callable or the operator itself throws before any walk happens.
func InstanceOf(lhs, rhs Value) (Bool, error) {
	ctor, ok := rhs.(Callable)
	if !ok {
		return false, typeError("cannot use instanceof with non-callable right-hand side")
	}
	target, ok := ctor.(HasInstancePrototype)
	if !ok {
		return false, nil
	}
	proto := target.InstancePrototype()
	if proto == nil {
		return false, nil
	}
	obj, ok := lhs.(*Object)
	if !ok {
		return false, nil
	}
	for cur := obj.Prototype; cur != nil; cur = cur.Prototype {
		if cur == proto {
			return true, nil
		}
	}
	return false, nil
}

// In implements the `in` binary operator (ES5 §11.8.7): lhs (coerced to a
// string) names a property, rhs must be an Object, and the result is
// whether that property exists anywhere in rhs's prototype chain.
func In(c Caller, lhs, rhs Value) (Bool, error) {
	obj, ok := rhs.(*Object)
	if !ok {
		return false, typeError("cannot use 'in' operator on a non-object")
	}
	key, err := ToString(c, lhs)
	if err != nil {
		return false, err
	}
	return Bool(obj.HasProperty(key.Go())), nil
}
