package maincmd

import (
	"context"
	"fmt"
	"io"

	"github.com/mna/mainer"
	"github.com/remoe/duktape/lang/bytecode"
)

// Disasm assembles the .asm file named by args[0] and prints the
// disassembly of its toplevel function and every inner function template it
// (transitively) references, without executing it.
func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	prog, err := loadProgram(args[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	disasmFunction(stdio.Stdout, prog.Toplevel)
	return nil
}

func disasmFunction(w io.Writer, fn *bytecode.Function) {
	fmt.Fprintf(w, "function %s (%d regs, %d args):\n%s\n", fn.Name, fn.NRegs, fn.NArgs, bytecode.Disassemble(fn))
	for _, inner := range fn.Inner {
		disasmFunction(w, inner)
	}
}
