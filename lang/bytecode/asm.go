package bytecode

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/remoe/duktape/lang/values"
)

// This file implements a human-readable/writable form of a compiled
// program, used to build end-to-end dispatch-loop test scenarios without a
// front-end parser/compiler, which this engine does not provide. Grounded
// on the teacher's lang/compiler/asm.go: a line-oriented scanner over
// labeled sections, rewritten for this engine's register-based
// fixed-width instruction set instead of the teacher's variable-length
// stack-machine encoding.
//
// Format:
//
//	program:
//	constants:
//		string "abc"
//		int    1234
//		float  1.5
//	function: NAME NREGS NARGS [strict]
//		code:
//			ldint r0, 7
//			ldint r1, 35
//			add r0, r0, r1
//			return 2, r0          # flags=HAVE_RETVAL(2), value in r0
//
// Register operands are written "rN". REGCONST operands accept either a
// register ("rN") or a constant-pool reference ("#N"); the assembler
// encodes the latter as N+RegLimit so the executor's single operand decoder
// recovers which one it is by threshold. Multiple functions
// may be assembled; a later function is referenced from an earlier one's
// CLOSURE instruction by its function name via "@NAME" resolved once
// all functions have been read.

// Assemble parses src into a Program.
func Assemble(src []byte) (*Program, error) {
	a := &asm{s: bufio.NewScanner(bytes.NewReader(src)), byName: map[string]*Function{}}
	a.s.Buffer(make([]byte, 4096), 1<<20)

	fields := a.next()
	if len(fields) == 0 || fields[0] != "program:" {
		return nil, fmt.Errorf("asm: must start with 'program:'")
	}
	fields = a.next()

	if len(fields) > 0 && fields[0] == "constants:" {
		fields = a.constants()
	}

	var order []*Function
	for a.err == nil && len(fields) > 0 && fields[0] == "function:" {
		fn, rest := a.function(fields)
		if fn != nil {
			order = append(order, fn)
			a.byName[fn.Name] = fn
		}
		fields = rest
	}
	if a.err != nil {
		return nil, a.err
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("asm: no function defined")
	}

	// resolve @name closure references into Inner-table indices, appending
	// templates to each referencing function's Inner slice in first-use
	// order.
	for _, fn := range order {
		for i, ref := range fn.pendingInner {
			target, ok := a.byName[ref]
			if !ok {
				return nil, fmt.Errorf("asm: function %q: unknown inner function @%s", fn.Name, ref)
			}
			fn.Inner = append(fn.Inner, target)
			fn.Code[fn.pendingInnerAt[i]] = NewInstructionBC(CLOSURE, fn.Code[fn.pendingInnerAt[i]].A(), uint16(len(fn.Inner)-1))
		}
	}

	return &Program{Toplevel: order[0]}, nil
}

type asm struct {
	s       *bufio.Scanner
	p       *Program
	cur     *Function
	byName  map[string]*Function
	consts  []values.Value
	err     error
}

func (a *asm) next() []string {
	for a.s.Scan() {
		line := a.s.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.ReplaceAll(line, ",", " ")
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		return fields
	}
	return nil
}

func (a *asm) fail(format string, args ...any) {
	if a.err == nil {
		a.err = fmt.Errorf("asm: "+format, args...)
	}
}

func (a *asm) constants() []string {
	fields := a.next()
	for a.err == nil && len(fields) > 0 && fields[0] != "function:" {
		switch fields[0] {
		case "string":
			s := strings.Join(fields[1:], " ")
			s = strings.Trim(s, `"`)
			a.consts = append(a.consts, values.NewString(s))
		case "int":
			n, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				a.fail("bad int constant %q: %v", fields[1], err)
				return nil
			}
			a.consts = append(a.consts, values.NewNumber(float64(n)))
		case "float":
			f, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				a.fail("bad float constant %q: %v", fields[1], err)
				return nil
			}
			a.consts = append(a.consts, values.NewNumber(f))
		case "undefined":
			a.consts = append(a.consts, values.Undefined{})
		case "null":
			a.consts = append(a.consts, values.Null{})
		case "true":
			a.consts = append(a.consts, values.True)
		case "false":
			a.consts = append(a.consts, values.False)
		default:
			a.fail("unknown constant kind %q", fields[0])
			return nil
		}
		fields = a.next()
	}
	return fields
}

func (a *asm) function(fields []string) (*Function, []string) {
	if len(fields) < 4 {
		a.fail("invalid function: header, want 'function: NAME NREGS NARGS [strict]', got %q", fields)
		return nil, a.next()
	}
	nregs, err := strconv.Atoi(fields[2])
	if err != nil {
		a.fail("bad nregs %q: %v", fields[2], err)
		return nil, a.next()
	}
	nargs, err := strconv.Atoi(fields[3])
	if err != nil {
		a.fail("bad nargs %q: %v", fields[3], err)
		return nil, a.next()
	}
	fn := &Function{
		Name:      fields[1],
		NRegs:     nregs,
		NArgs:     nargs,
		Strict:    len(fields) > 4 && fields[4] == "strict",
		Constants: a.consts,
	}
	a.cur = fn

	fields = a.next()
	if len(fields) > 0 && fields[0] == "code:" {
		fields = a.code()
	}
	return fn, fields
}

func (a *asm) code() []string {
	fn := a.cur
	fields := a.next()
	for a.err == nil && len(fields) > 0 {
		switch fields[0] {
		case "function:":
			return fields
		}
		ins, innerRef := a.instruction(fields)
		fn.Code = append(fn.Code, ins)
		if innerRef != "" {
			fn.pendingInner = append(fn.pendingInner, innerRef)
			fn.pendingInnerAt = append(fn.pendingInnerAt, len(fn.Code)-1)
		}
		fields = a.next()
	}
	return fields
}

// parseReg parses "rN" into N.
func (a *asm) parseReg(tok string) uint8 {
	if !strings.HasPrefix(tok, "r") {
		a.fail("expected register operand (rN), got %q", tok)
		return 0
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil {
		a.fail("bad register operand %q: %v", tok, err)
		return 0
	}
	return uint8(n)
}

// parseRegConst parses either "rN" (register) or "#N" (constant-pool
// reference) into the merged REGCONST encoding RegOrConst decodes.
func (a *asm) parseRegConst(tok string) uint16 {
	if strings.HasPrefix(tok, "#") {
		n, err := strconv.Atoi(tok[1:])
		if err != nil {
			a.fail("bad constant operand %q: %v", tok, err)
			return 0
		}
		return uint16(RegLimit + n)
	}
	return uint16(a.parseReg(tok))
}

func (a *asm) parseInt(tok string) int64 {
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		a.fail("bad integer operand %q: %v", tok, err)
		return 0
	}
	return n
}

// instruction assembles one line into an Instruction, returning a non-empty
// innerRef if the line was a CLOSURE referencing a not-yet-resolved "@name".
func (a *asm) instruction(fields []string) (ins Instruction, innerRef string) {
	mnemonic := strings.ToLower(fields[0])
	args := fields[1:]
	op, ok := LookupOp(mnemonic)
	if !ok {
		a.fail("unknown opcode %q", mnemonic)
		return 0, ""
	}

	switch op {
	case NOP, ENDTRY, ENDCATCH, ENDFIN, INVLHS:
		return NewInstruction(op, 0, 0, 0), ""

	case LDREG, STREG:
		return NewInstructionBC(op, a.parseReg(args[0]), uint16(a.parseReg(args[1]))), ""

	case LDCONST:
		idx := strings.TrimPrefix(args[1], "#")
		n, _ := strconv.Atoi(idx)
		return NewInstructionBC(op, a.parseReg(args[0]), uint16(n)), ""

	case LDINT:
		v := a.parseInt(args[1])
		return NewInstructionBC(op, a.parseReg(args[0]), uint16(v+LdintBias)), ""

	case LDINTX:
		v := a.parseInt(args[1])
		return NewInstructionBC(op, a.parseReg(args[0]), uint16(v)), ""

	case MPUTOBJ, MPUTOBJI, MPUTARR:
		n := a.parseInt(args[2])
		return NewInstruction(op, a.parseReg(args[0]), a.parseReg(args[1]), uint8(n)), ""

	case GETVAR, PUTVAR:
		idx := strings.TrimPrefix(args[1], "#")
		n, _ := strconv.Atoi(idx)
		return NewInstructionBC(op, a.parseReg(args[0]), uint16(n)), ""

	case DECLVAR:
		flags := a.parseInt(args[0])
		b := a.parseReg(args[1])
		c := a.parseRegConst(args[2])
		return NewInstruction(op, uint8(flags), b, uint8(c)), ""

	case DELVAR:
		return NewInstruction(op, a.parseReg(args[0]), uint8(a.parseRegConst(args[1])), 0), ""

	case CSVAR:
		idx := strings.TrimPrefix(args[1], "#")
		n, _ := strconv.Atoi(idx)
		return NewInstruction(op, a.parseReg(args[0]), uint8(n), 0), ""

	case CSVARI:
		return NewInstruction(op, a.parseReg(args[0]), a.parseReg(args[1]), 0), ""

	case CLOSURE:
		target := strings.TrimPrefix(args[1], "@")
		return NewInstructionBC(op, a.parseReg(args[0]), 0), target

	case GETPROP, DELPROP:
		return NewInstruction(op, a.parseReg(args[0]), a.parseReg(args[1]), uint8(a.parseRegConst(args[2]))), ""

	case PUTPROP:
		return NewInstruction(op, a.parseReg(args[0]), uint8(a.parseRegConst(args[1])), uint8(a.parseRegConst(args[2]))), ""

	case CSPROP:
		idx := strings.TrimPrefix(args[2], "#")
		n, _ := strconv.Atoi(idx)
		return NewInstruction(op, a.parseReg(args[0]), a.parseReg(args[1]), uint8(n)), ""

	case CSPROPI:
		return NewInstruction(op, a.parseReg(args[0]), a.parseReg(args[1]), a.parseReg(args[2])), ""

	case ADD, SUB, MUL, DIV, MOD, BAND, BOR, BXOR, BASL, BASR, BLSR,
		EQ, NEQ, SEQ, SNEQ, GT, GE, LT, LE, INSTOF, IN:
		return NewInstruction(op, a.parseReg(args[0]), uint8(a.parseRegConst(args[1])), uint8(a.parseRegConst(args[2]))), ""

	case BNOT, LNOT:
		return NewInstruction(op, a.parseReg(args[0]), uint8(a.parseRegConst(args[1])), 0), ""

	case IF:
		want := a.parseInt(args[0])
		return NewInstruction(op, uint8(want), uint8(a.parseRegConst(args[1])), 0), ""

	case JUMP:
		off := a.parseInt(args[0])
		return NewInstructionABC(op, uint32(off+JumpBias)), ""

	case RETURN:
		flags := a.parseInt(args[0])
		if len(args) > 1 {
			return NewInstruction(op, uint8(flags), uint8(a.parseRegConst(args[1])), 0), ""
		}
		return NewInstruction(op, uint8(flags), 0, 0), ""

	case BREAK, CONTINUE, LABEL, ENDLABEL:
		id := a.parseInt(args[0])
		return NewInstructionABC(op, uint32(id)), ""

	case CALL, CALLI:
		flags := a.parseInt(args[0])
		base := a.parseReg(args[1])
		n := a.parseInt(args[2])
		return NewInstruction(op, uint8(flags), base, uint8(n)), ""

	case TRYCATCH:
		flags := a.parseInt(args[0])
		base := a.parseInt(args[1])
		var c uint8
		if len(args) > 2 {
			idx := strings.TrimPrefix(args[2], "#")
			n, _ := strconv.Atoi(idx)
			c = uint8(n)
		}
		return NewInstruction(op, uint8(flags), uint8(base), c), ""

	case THROW:
		return NewInstruction(op, 0, uint8(a.parseRegConst(args[0])), 0), ""

	case EXTRA:
		eop, ok := LookupExtraOp(strings.ToLower(args[0]))
		if !ok {
			a.fail("unknown extraop %q", args[0])
			return 0, ""
		}
		var b, c uint8
		if len(args) > 1 {
			b = uint8(a.parseRegConst(args[1]))
		}
		if len(args) > 2 {
			c = uint8(a.parseRegConst(args[2]))
		}
		return NewInstruction(op, uint8(eop), b, c), ""

	default:
		a.fail("opcode %s not supported by assembler", op)
		return 0, ""
	}
}
