package values

import (
	"math"
	"strconv"
)

// CanonicalNaN is the single bit pattern every NaN-valued Number is
// normalized to on construction and on every assignment through
// NormalizeNaN: any double stored is normalized to a canonical NaN, which
// keeps a packed tagged-value representation bit-comparable.
var CanonicalNaN = math.Float64frombits(0x7ff8000000000000)

// Number is the tagged numeric value.
type Number float64

var _ Value = Number(0)

func (n Number) String() string {
	f := float64(n)
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (Number) Type() string { return "number" }

// NewNumber returns a Number with any NaN bit pattern normalized to
// CanonicalNaN.
func NewNumber(f float64) Number {
	if math.IsNaN(f) {
		return Number(CanonicalNaN)
	}
	return Number(f)
}

// NormalizeNaN returns n with its bit pattern normalized if it is NaN. It is
// idempotent: NormalizeNaN(NormalizeNaN(x)) == NormalizeNaN(x), the property
// the stored representation requires.
func NormalizeNaN(n Number) Number {
	if math.IsNaN(float64(n)) {
		return Number(CanonicalNaN)
	}
	return n
}

// IsCanonicalNaN reports whether n's bits are exactly CanonicalNaN's,
// supporting the representation's bit-identity invariant tests.
func IsCanonicalNaN(n Number) bool {
	return math.Float64bits(float64(n)) == math.Float64bits(CanonicalNaN)
}

// ToInt32Float converts a float64 to a signed 32-bit integer using the ES5
// ToInt32 algorithm (§9.5): NaN/Infinity map to 0, otherwise truncate toward
// zero modulo 2^32 and reinterpret as signed.
func ToInt32Float(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	// truncate toward zero
	f = math.Trunc(f)
	// reduce modulo 2^32, keeping sign semantics of the ES5 algorithm
	const twoPow32 = 4294967296.0
	m := math.Mod(f, twoPow32)
	if m < 0 {
		m += twoPow32
	}
	u := uint32(m)
	return int32(u)
}

// ToUint32Float converts a float64 to an unsigned 32-bit integer using the
// ES5 ToUint32 algorithm (§9.6), sharing the same modulo-reduction as
// ToInt32Float but reinterpreting the low 32 bits as unsigned.
func ToUint32Float(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Trunc(f)
	const twoPow32 = 4294967296.0
	m := math.Mod(f, twoPow32)
	if m < 0 {
		m += twoPow32
	}
	return uint32(m)
}
