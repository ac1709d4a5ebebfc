package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders fn's code array back into the assembler's mnemonic
// text form, one instruction per line prefixed with its pc. It is used by
// internal/tracing to dump a function before execution at the highest
// verbosity level, and is deliberately lossy about operand kind: operands
// are printed as raw field numbers, without RegOrConst decoding, so a
// REGCONST operand written "#N" shows up as N+RegLimit.
func Disassemble(fn *Function) string {
	var b strings.Builder
	fmt.Fprintf(&b, "function %s (nregs=%d nargs=%d strict=%v)\n", fn.Name, fn.NRegs, fn.NArgs, fn.Strict)
	for pc, ins := range fn.Code {
		fmt.Fprintf(&b, "%4d  %s\n", pc, disasmOne(ins))
	}
	return b.String()
}

func disasmOne(ins Instruction) string {
	op := ins.OP()
	switch op {
	case JUMP:
		return fmt.Sprintf("%-10s %d", op, int64(ins.ABC())-JumpBias)
	case BREAK, CONTINUE, LABEL, ENDLABEL:
		return fmt.Sprintf("%-10s %d", op, ins.ABC())
	case LDINT:
		return fmt.Sprintf("%-10s r%d, %d", op, ins.A(), int64(ins.BC())-LdintBias)
	case LDINTX:
		return fmt.Sprintf("%-10s r%d, %d", op, ins.A(), ins.BC())
	case LDREG, STREG, LDCONST, GETVAR, PUTVAR, CLOSURE:
		return fmt.Sprintf("%-10s r%d, %d", op, ins.A(), ins.BC())
	case NOP, ENDTRY, ENDCATCH, ENDFIN, INVLHS:
		return op.String()
	case EXTRA:
		return fmt.Sprintf("%-10s %s, %d, %d", op, ExtraOp(ins.A()), ins.B(), ins.C())
	default:
		return fmt.Sprintf("%-10s %d, %d, %d", op, ins.A(), ins.B(), ins.C())
	}
}
