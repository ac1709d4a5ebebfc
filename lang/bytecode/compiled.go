package bytecode

import "github.com/remoe/duktape/lang/values"

// Function is the immutable compiled-function record: a flat instruction
// array, a constant pool, an inner-function template table (for CLOSURE),
// a register count, an argument count and a strict-mode flag. Grounded on
// the teacher's compiler.Funcode, trimmed to what a register machine needs
// (no locals/cells/freevars tables: this engine resolves variables through
// the Environment API at run time, not through compiled local slots).
type Function struct {
	Name      string
	Code      []Instruction
	Constants []values.Value
	Inner     []*Function // templates realized into closures by CLOSURE
	NRegs     int         // nregs: size of the frame's register window
	NArgs     int
	Strict    bool
	VarNames  []string // formal parameter names, for arguments object / declvar

	// -- transient assembler state, unused after Assemble returns --
	pendingInner   []string
	pendingInnerAt []int
}

// Program is the top-level compiled unit: one toplevel Function plus
// whatever Inner templates it (transitively) references. It is the unit the
// text assembler produces and the unit execute_bytecode's host API accepts.
type Program struct {
	Toplevel *Function
}
