package values

import "fmt"

// Buffer is the tagged raw-byte-buffer value (the "buffer" variant of the
// tagged value representation), used for binary data that should not be
// string-interned.
type Buffer struct {
	Bytes []byte
}

var _ Value = (*Buffer)(nil)

func NewBuffer(b []byte) *Buffer { return &Buffer{Bytes: b} }

func (b *Buffer) String() string { return fmt.Sprintf("[buffer %d bytes]", len(b.Bytes)) }
func (*Buffer) Type() string     { return "buffer" }

// Pointer is the tagged opaque host-pointer value (the "pointer" variant),
// used to round-trip host-owned addresses through script values without
// the engine interpreting them.
type Pointer struct {
	Addr uintptr
}

var _ Value = Pointer{}

func (p Pointer) String() string { return fmt.Sprintf("[pointer %#x]", p.Addr) }
func (Pointer) Type() string     { return "pointer" }
