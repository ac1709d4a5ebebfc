package values

// Bool is the tagged boolean value.
type Bool bool

const (
	True  = Bool(true)
	False = Bool(false)
)

var _ Value = Bool(false)

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (Bool) Type() string { return "boolean" }
