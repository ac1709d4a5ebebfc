package values

import (
	"math"

	"github.com/remoe/duktape/lang/token"
)

// Add implements the `+` operator (ES5 §11.6.1): a fast path when both
// operands are already numbers, otherwise ToPrimitive(NONE) on both, then
// string concatenation if either primitive is a string or buffer, else
// numeric addition. Operands may trigger method calls during coercion
// (valueOf/toString); those calls can have arbitrary side effects, so this
// function takes values by... value, never holding onto a stack slot
// pointer across a Caller.CallMethod invocation, since operand pointers are
// invalidated after ToPrimitive runs.
func Add(c Caller, x, y Value) (Value, error) {
	if xn, ok := x.(Number); ok {
		if yn, ok := y.(Number); ok {
			return NewNumber(float64(xn) + float64(yn)), nil
		}
	}

	px, err := ToPrimitive(c, x, HintNone)
	if err != nil {
		return nil, err
	}
	py, err := ToPrimitive(c, y, HintNone)
	if err != nil {
		return nil, err
	}

	if isStringOrBuffer(px) || isStringOrBuffer(py) {
		sx, err := ToString(c, px)
		if err != nil {
			return nil, err
		}
		sy, err := ToString(c, py)
		if err != nil {
			return nil, err
		}
		return concatStrings(sx, sy)
	}

	nx, err := ToNumber(c, px)
	if err != nil {
		return nil, err
	}
	ny, err := ToNumber(c, py)
	if err != nil {
		return nil, err
	}
	return NewNumber(float64(nx) + float64(ny)), nil
}

func isStringOrBuffer(v Value) bool {
	switch v.(type) {
	case *String, *Buffer:
		return true
	default:
		return false
	}
}

// ArithBinary implements SUB, MUL, DIV and MOD (ES5 §11.5). MOD follows C
// fmod semantics via math.Mod, matching the original engine's
// duk__compute_mod, not IEEE 754 remainder boundary behavior.
func ArithBinary(c Caller, op token.Token, x, y Value) (Value, error) {
	d1, d2, err := toNumberPair(c, x, y)
	if err != nil {
		return nil, err
	}

	var result float64
	switch op {
	case token.MINUS:
		result = d1 - d2
	case token.STAR:
		result = d1 * d2
	case token.SLASH:
		result = d1 / d2
	case token.MOD:
		result = math.Mod(d1, d2)
	default:
		return nil, internalError("unsupported arithmetic operator %s", op)
	}
	return NewNumber(result), nil
}

func toNumberPair(c Caller, x, y Value) (float64, float64, error) {
	if xn, ok := x.(Number); ok {
		if yn, ok := y.(Number); ok {
			return float64(xn), float64(yn), nil
		}
	}
	nx, err := ToNumber(c, x)
	if err != nil {
		return 0, 0, err
	}
	ny, err := ToNumber(c, y)
	if err != nil {
		return 0, 0, err
	}
	return float64(nx), float64(ny), nil
}

// BitwiseBinary implements AND, OR, XOR, SHL, SHR (signed) and USHR
// (unsigned) (ES5 §11.7/§11.10). Both operands coerce via ToInt32; the
// shift amount is additionally masked to its low 5 bits.
// Results are never NaN, so no normalization is required (mirrors the
// original's DUK_ASSERT(!DUK_ISNAN(val))).
func BitwiseBinary(c Caller, op token.Token, x, y Value) (Value, error) {
	i1, err := ToInt32(c, x)
	if err != nil {
		return nil, err
	}
	i2, err := ToInt32(c, y)
	if err != nil {
		return nil, err
	}

	var result float64
	switch op {
	case token.AND:
		result = float64(i1 & i2)
	case token.OR:
		result = float64(i1 | i2)
	case token.XOR:
		result = float64(i1 ^ i2)
	case token.SHL:
		shift := uint32(i2) & 0x1f
		result = float64(i1 << shift)
	case token.SHR:
		shift := uint32(i2) & 0x1f
		result = float64(i1 >> shift)
	case token.USHR:
		shift := uint32(i2) & 0x1f
		result = float64(uint32(i1) >> shift)
	default:
		return nil, internalError("unsupported bitwise operator %s", op)
	}
	return Number(result), nil
}

// ArithUnary implements UNM (unary minus), UNP (unary plus), INC and DEC.
func ArithUnary(c Caller, op token.Token, x Value) (Value, error) {
	n, err := ToNumber(c, x)
	if err != nil {
		return nil, err
	}
	d := float64(n)
	switch op {
	case token.UNM:
		d = -d
	case token.UNP:
		// identity
	case token.INC:
		d = d + 1
	case token.DEC:
		d = d - 1
	default:
		return nil, internalError("unsupported unary operator %s", op)
	}
	return NewNumber(d), nil
}

// BitwiseNot implements the `~` operator.
func BitwiseNot(c Caller, x Value) (Value, error) {
	i, err := ToInt32(c, x)
	if err != nil {
		return nil, err
	}
	return Number(float64(^i)), nil
}

// LogicalNot implements the `!` operator.
func LogicalNot(x Value) Bool {
	return !ToBoolean(x)
}
