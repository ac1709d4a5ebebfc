package values

import (
	"math"
	"strconv"
	"strings"
)

// Hint controls ToPrimitive's preferred result type, per ES5 §9.1.
type Hint uint8

const (
	HintNone Hint = iota
	HintNumber
	HintString
)

// ToPrimitive implements `to_primitive(hint)` (ES5 §9.1), trying "valueOf"
// then "toString" for HintNumber/HintNone, and the reverse order for
// HintString. Any method call may have side effects (including mutating
// the very registers holding the operands), which is why callers in the
// arithmetic primitives continue with the values ToPrimitive returns
// rather than with anything read before the call.
func ToPrimitive(c Caller, v Value, hint Hint) (Value, error) {
	obj, ok := v.(*Object)
	if !ok {
		return v, nil
	}

	methods := [2]string{"valueOf", "toString"}
	if hint == HintString {
		methods = [2]string{"toString", "valueOf"}
	}

	for _, name := range methods {
		m, err := obj.Get(c, name)
		if err != nil {
			return nil, err
		}
		fn, ok := m.(Callable)
		if !ok {
			continue
		}
		res, err := c.CallMethod(fn, obj, nil)
		if err != nil {
			return nil, err
		}
		if _, isObj := res.(*Object); !isObj {
			return res, nil
		}
	}
	return nil, typeError("cannot convert object to primitive value")
}

// ToBoolean implements `to_boolean` (ES5 §9.2).
func ToBoolean(v Value) Bool {
	switch x := v.(type) {
	case Undefined, Null:
		return False
	case Bool:
		return x
	case Number:
		f := float64(x)
		if f == 0 || math.IsNaN(f) {
			return False
		}
		return True
	case *String:
		return Bool(x.byteLen > 0)
	default:
		return True // objects, buffers, pointers, callables are always truthy
	}
}

// ToNumber implements `to_number` (ES5 §9.3).
func ToNumber(c Caller, v Value) (Number, error) {
	switch x := v.(type) {
	case Number:
		return x, nil
	case Undefined:
		return Number(CanonicalNaN), nil
	case Null:
		return 0, nil
	case Bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case *String:
		return stringToNumber(x.s), nil
	default:
		prim, err := ToPrimitive(c, v, HintNumber)
		if err != nil {
			return 0, err
		}
		if _, ok := prim.(*Object); ok {
			return 0, typeError("cannot convert object to number")
		}
		return ToNumber(c, prim)
	}
}

func stringToNumber(s string) Number {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0
	}
	if t == "Infinity" || t == "+Infinity" {
		return Number(math.Inf(1))
	}
	if t == "-Infinity" {
		return Number(math.Inf(-1))
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return Number(CanonicalNaN)
	}
	return NewNumber(f)
}

// ToString implements `to_string` (ES5 §9.8).
func ToString(c Caller, v Value) (*String, error) {
	switch x := v.(type) {
	case *String:
		return x, nil
	case Undefined:
		return NewString("undefined"), nil
	case Null:
		return NewString("null"), nil
	case Bool:
		return NewString(x.String()), nil
	case Number:
		return NewString(x.String()), nil
	default:
		prim, err := ToPrimitive(c, v, HintString)
		if err != nil {
			return nil, err
		}
		if _, ok := prim.(*Object); ok {
			return nil, typeError("cannot convert object to string")
		}
		return ToString(c, prim)
	}
}

// ToInt32 implements `to_int32` (ES5 §9.5).
func ToInt32(c Caller, v Value) (int32, error) {
	n, err := ToNumber(c, v)
	if err != nil {
		return 0, err
	}
	return ToInt32Float(float64(n)), nil
}

// ToUint32 implements `to_uint32` (ES5 §9.6), used by the unsigned shift
// primitive.
func ToUint32(c Caller, v Value) (uint32, error) {
	n, err := ToNumber(c, v)
	if err != nil {
		return 0, err
	}
	return ToUint32Float(float64(n)), nil
}

// ToObject implements `to_object` (ES5 §9.9), boxing scalars where the
// engine needs an Object to hang properties off of. Since this minimal
// object model has no Boolean/Number/String wrapper classes, boxing a
// scalar yields a plain Object carrying the scalar under a "value"
// internal slot; property access on boxed primitives is out of scope for
// the CORE (callers needing it are exercising a feature this engine does
// not implement) and ToObject(nil or undefined) is a TypeError as in ES5.
func ToObject(v Value) (*Object, error) {
	switch x := v.(type) {
	case *Object:
		return x, nil
	case Undefined, Null:
		return nil, typeError("cannot convert %s to object", TypeOf(v))
	default:
		o := NewObject("Object", nil)
		o.DefineDataProperty("value", x, false, false, false)
		return o, nil
	}
}
