package values

import (
	"fmt"
	"unicode/utf8"
)

// String is the tagged, immutable string value. It carries precomputed byte
// length and character length. Construction and identity
// ("two strings with equal byte content are the same object") are the
// responsibility of the heap's intern table (package machine); this package
// only defines the shape and content-equality of the value itself, so that
// it remains usable in isolation (e.g. in arithmetic/compare unit tests that
// never touch a Heap).
type String struct {
	s       string
	byteLen int
	charLen int
}

var _ Value = (*String)(nil)

// NewString constructs a String wrapping s, precomputing its byte and
// character lengths. It does not intern s; callers that need identity
// semantics must go through the heap's intern table.
func NewString(s string) *String {
	return &String{
		s:       s,
		byteLen: len(s),
		charLen: utf8.RuneCountInString(s),
	}
}

func (s *String) String() string { return s.s }
func (*String) Type() string     { return "string" }

// Go returns the underlying Go string content.
func (s *String) Go() string { return s.s }

// ByteLen returns the precomputed byte length.
func (s *String) ByteLen() int { return s.byteLen }

// CharLen returns the precomputed character length.
func (s *String) CharLen() int { return s.charLen }

// Equals compares two strings by byte content, which is always correct even
// when one or both operands were not obtained from an intern table.
func (s *String) Equals(other *String) bool {
	if s == other {
		return true
	}
	return s.s == other.s
}

// MaxStringBytes bounds the combined length of a string concatenation
// before a RangeError is raised for overflow.
const MaxStringBytes = 1 << 30

func concatStrings(x, y *String) (*String, error) {
	if x.byteLen+y.byteLen > MaxStringBytes {
		return nil, &ScriptError{Kind: RangeError, Message: fmt.Sprintf("string too long (%d + %d bytes)", x.byteLen, y.byteLen)}
	}
	return NewString(x.s + y.s), nil
}
