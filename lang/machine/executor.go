package machine

import (
	"github.com/remoe/duktape/lang/bytecode"
	"github.com/remoe/duktape/lang/token"
	"github.com/remoe/duktape/lang/values"
)

// run drives the dispatch loop and the Unwind Handler trampoline until
// startThread's call stack has unwound back down to entryDepth, then
// returns the value RETURN delivered to that depth (or the error an
// uncaught THROW produced). Every iteration is a single fetch-decode-dispatch
// step followed, only if that step raised an unwind event, by a bounded pass
// of the Unwind Handler — never by a nested Go call — which is what lets an
// arbitrarily long tail-call chain or an exception unwinding many frames run
// without growing the host stack.
//
// Each iteration steps h.CurrentThread(), not a frozen startThread: a
// resume/yield unwind event (RESUME/YIELD) can switch which Thread is
// current mid-loop (the Scheduler never switches Threads outside the Unwind
// Handler), and the loop must keep following it so the newly-current
// Thread's own instructions actually execute, rather than spinning on a
// Thread that is merely suspended waiting on a resume.
func (h *Heap) run(startThread *Thread, entryDepth int) (values.Value, error) {
	var resultSlot = -1
	if entryDepth < len(startThread.CallStack) {
		resultSlot = startThread.CallStack[entryDepth].IdxRetval
	} else if entryDepth == 0 {
		resultSlot = 0
	}

	for {
		cur := h.current
		if cur == startThread && len(startThread.CallStack) <= entryDepth {
			break
		}

		if err := cur.tickInterrupt(); err != nil {
			return nil, err
		}

		if err := h.step(cur); err != nil {
			return nil, err
		}
		if h.LJ.Type != LJNone {
			if err := h.handleUnwind(cur); err != nil {
				return nil, err
			}
		}
	}

	if resultSlot >= 0 && resultSlot < len(startThread.ValueStack) {
		return startThread.ValueStack[resultSlot], nil
	}
	return values.Undefined{}, nil
}

// step fetches and executes exactly one instruction from th's current
// (topmost) activation. Most opcodes complete synchronously and advance
// PC themselves; control-transfer opcodes (RETURN/BREAK/CONTINUE/THROW,
// and calls into the `resume`/`yield` builtins) instead install an unwind
// event on h.LJ and leave it for run to hand to handleUnwind.
func (h *Heap) step(th *Thread) error {
	idx, act, ok := th.topActivation()
	if !ok {
		return nil
	}
	fn := act.Fn.Template
	if act.PC < 0 || act.PC >= len(fn.Code) {
		h.raiseInternal("program counter %d out of range for function %q", act.PC, fn.Name)
		return nil
	}
	ins := fn.Code[act.PC]
	op := ins.OP()

	advance := true
	defer func() {
		if advance && h.LJ.Type == LJNone {
			act.PC++
		}
	}()

	reg := func(r uint8) values.Value { return th.Get(act.IdxBottom + int(r)) }
	setReg := func(r uint8, v values.Value) { th.Set(act.IdxBottom+int(r), v) }
	regOrConst := func(rc uint8) values.Value {
		slot, isConst := bytecode.RegOrConst(uint16(rc))
		if isConst {
			return fn.Constants[slot]
		}
		return reg(uint8(slot))
	}
	throwErr := func(err error) {
		advance = false
		h.LJ = LJState{Type: LJThrow, Value1: asThrowValue(err), IsError: true}
	}

	switch op {
	case bytecode.NOP:

	case bytecode.LDREG:
		setReg(ins.A(), reg(uint8(ins.BC())))
	case bytecode.STREG:
		setReg(uint8(ins.BC()), reg(ins.A()))
	case bytecode.LDCONST:
		setReg(ins.A(), fn.Constants[ins.BC()])
	case bytecode.LDINT:
		setReg(ins.A(), values.NewNumber(float64(int32(ins.BC())-int32(bytecode.LdintBias))))
	case bytecode.LDINTX:
		prev, _ := reg(ins.A()).(values.Number)
		setReg(ins.A(), values.NewNumber(float64(prev)*(1<<bytecode.LdintxShift)+float64(ins.BC())))

	case bytecode.MPUTOBJ:
		obj, _ := reg(ins.A()).(*values.Object)
		base := ins.B()
		for i := uint8(0); i < 2*ins.C(); i += 2 {
			key, err := values.ToString(th, reg(base+i))
			if err != nil {
				throwErr(err)
				return nil
			}
			obj.DefineDataProperty(key.Go(), reg(base+i+1), true, true, true)
		}
	case bytecode.MPUTOBJI:
		obj, _ := reg(ins.A()).(*values.Object)
		startIdx, _ := reg(ins.B()).(values.Number)
		base := uint8(startIdx)
		for i := uint8(0); i < 2*ins.C(); i += 2 {
			key, err := values.ToString(th, reg(base+i))
			if err != nil {
				throwErr(err)
				return nil
			}
			obj.DefineDataProperty(key.Go(), reg(base+i+1), true, true, true)
		}
	case bytecode.MPUTARR:
		arr, _ := reg(ins.A()).(*values.Object)
		base := ins.B()
		startIdx, _ := reg(base).(values.Number)
		n := int(ins.C())
		for i := 0; i < n; i++ {
			arr.DefineDataProperty(values.NewNumber(float64(startIdx)+float64(i)).String(), reg(base+1+uint8(i)), true, true, true)
		}
		arr.LengthSet(int(startIdx) + n)

	case bytecode.GETVAR:
		name := fn.Constants[ins.BC()].(*values.String)
		v, err := GetVar(th, act.currentLexical(), name.Go())
		if err != nil {
			throwErr(err)
			return nil
		}
		setReg(ins.A(), v)
	case bytecode.PUTVAR:
		name := fn.Constants[ins.BC()].(*values.String)
		if err := PutVar(th, act.currentVariable(), name.Go(), reg(ins.A()), fn.Strict); err != nil {
			throwErr(err)
			return nil
		}
	case bytecode.DECLVAR:
		name, _ := reg(ins.B()).(*values.String)
		flags := ins.A()
		var v values.Value = values.Undefined{}
		if flags&bytecode.DeclvarUndefValue == 0 {
			v = regOrConst(ins.C())
		}
		DeclVar(act.currentVariable(), name.Go(), v, flags&bytecode.DeclvarFuncDecl != 0)
	case bytecode.DELVAR:
		name, err := values.ToString(th, regOrConst(ins.B()))
		if err != nil {
			throwErr(err)
			return nil
		}
		ok, err := DelVar(act.currentVariable(), name.Go())
		if err != nil {
			throwErr(err)
			return nil
		}
		setReg(ins.A(), values.Bool(ok))

	case bytecode.CSVAR:
		name := fn.Constants[ins.B()].(*values.String)
		v, err := GetVar(th, act.currentLexical(), name.Go())
		if err != nil {
			throwErr(err)
			return nil
		}
		setReg(ins.A(), v)
		setReg(ins.A()+1, values.Undefined{})
	case bytecode.CSVARI:
		name, err := values.ToString(th, reg(ins.B()))
		if err != nil {
			throwErr(err)
			return nil
		}
		v, err := GetVar(th, act.currentLexical(), name.Go())
		if err != nil {
			throwErr(err)
			return nil
		}
		setReg(ins.A(), v)
		setReg(ins.A()+1, values.Undefined{})

	case bytecode.CLOSURE:
		template := fn.Inner[ins.BC()]
		setReg(ins.A(), PushClosure(template, act.currentLexical(), act.currentVariable()))

	case bytecode.GETPROP:
		obj, err := values.ToObject(reg(ins.B()))
		if err != nil {
			throwErr(err)
			return nil
		}
		key, err := values.ToString(th, regOrConst(ins.C()))
		if err != nil {
			throwErr(err)
			return nil
		}
		v, err := obj.Get(th, key.Go())
		if err != nil {
			throwErr(err)
			return nil
		}
		setReg(ins.A(), v)
	case bytecode.PUTPROP:
		obj, err := values.ToObject(reg(ins.A()))
		if err != nil {
			throwErr(err)
			return nil
		}
		key, err := values.ToString(th, regOrConst(ins.B()))
		if err != nil {
			throwErr(err)
			return nil
		}
		if _, err := obj.Put(th, key.Go(), regOrConst(ins.C()), fn.Strict); err != nil {
			throwErr(err)
			return nil
		}
	case bytecode.DELPROP:
		obj, err := values.ToObject(reg(ins.B()))
		if err != nil {
			throwErr(err)
			return nil
		}
		key, err := values.ToString(th, regOrConst(ins.C()))
		if err != nil {
			throwErr(err)
			return nil
		}
		ok, err := obj.Delete(key.Go(), fn.Strict)
		if err != nil {
			throwErr(err)
			return nil
		}
		setReg(ins.A(), values.Bool(ok))
	case bytecode.CSPROP:
		base := reg(ins.B())
		obj, err := values.ToObject(base)
		if err != nil {
			throwErr(err)
			return nil
		}
		key := fn.Constants[ins.C()].(*values.String)
		v, err := obj.Get(th, key.Go())
		if err != nil {
			throwErr(err)
			return nil
		}
		setReg(ins.A(), v)
		setReg(ins.A()+1, base)
	case bytecode.CSPROPI:
		base := reg(ins.B())
		obj, err := values.ToObject(base)
		if err != nil {
			throwErr(err)
			return nil
		}
		key, err := values.ToString(th, reg(ins.C()))
		if err != nil {
			throwErr(err)
			return nil
		}
		v, err := obj.Get(th, key.Go())
		if err != nil {
			throwErr(err)
			return nil
		}
		setReg(ins.A(), v)
		setReg(ins.A()+1, base)

	case bytecode.ADD, bytecode.SUB, bytecode.MUL, bytecode.DIV, bytecode.MOD:
		var v values.Value
		var err error
		if op == bytecode.ADD {
			v, err = values.Add(th, regOrConst(ins.B()), regOrConst(ins.C()))
		} else {
			v, err = values.ArithBinary(th, arithToken(op), regOrConst(ins.B()), regOrConst(ins.C()))
		}
		if err != nil {
			throwErr(err)
			return nil
		}
		setReg(ins.A(), v)

	case bytecode.BAND, bytecode.BOR, bytecode.BXOR, bytecode.BASL, bytecode.BASR, bytecode.BLSR:
		v, err := values.BitwiseBinary(th, bitwiseToken(op), regOrConst(ins.B()), regOrConst(ins.C()))
		if err != nil {
			throwErr(err)
			return nil
		}
		setReg(ins.A(), v)
	case bytecode.BNOT:
		v, err := values.BitwiseNot(th, regOrConst(ins.B()))
		if err != nil {
			throwErr(err)
			return nil
		}
		setReg(ins.A(), v)
	case bytecode.LNOT:
		setReg(ins.A(), values.LogicalNot(regOrConst(ins.B())))

	case bytecode.EQ, bytecode.NEQ, bytecode.SEQ, bytecode.SNEQ, bytecode.GT, bytecode.GE, bytecode.LT, bytecode.LE:
		v, err := values.Compare(th, compareToken(op), regOrConst(ins.B()), regOrConst(ins.C()))
		if err != nil {
			throwErr(err)
			return nil
		}
		setReg(ins.A(), v)

	case bytecode.INSTOF:
		v, err := values.InstanceOf(regOrConst(ins.B()), regOrConst(ins.C()))
		if err != nil {
			throwErr(err)
			return nil
		}
		setReg(ins.A(), v)

	case bytecode.IN:
		v, err := values.In(th, regOrConst(ins.B()), regOrConst(ins.C()))
		if err != nil {
			throwErr(err)
			return nil
		}
		setReg(ins.A(), v)

	case bytecode.IF:
		want := ins.A() != 0
		cond := bool(values.ToBoolean(regOrConst(ins.B())))
		if cond == want {
			act.PC += 2
			advance = false
		}

	case bytecode.JUMP:
		act.PC = act.PC + int(int32(ins.ABC())-int32(bytecode.JumpBias))
		advance = false

	case bytecode.RETURN:
		advance = false
		var v values.Value = values.Undefined{}
		if ins.A()&bytecode.ReturnHaveRetval != 0 {
			v = regOrConst(ins.B())
		}
		h.LJ = LJState{Type: LJReturn, Value1: v}

	case bytecode.BREAK:
		advance = false
		h.LJ = LJState{Type: LJBreak, Value1: values.NewNumber(float64(int32(ins.ABC())))}
	case bytecode.CONTINUE:
		advance = false
		h.LJ = LJState{Type: LJContinue, Value1: values.NewNumber(float64(int32(ins.ABC())))}

	case bytecode.CALL, bytecode.CALLI:
		handled, err := h.execCall(th, idx, act, ins)
		if err != nil {
			throwErr(err)
			return nil
		}
		if handled {
			advance = false
		}

	case bytecode.LABEL:
		id := int64(int32(ins.ABC()))
		end := findMatchingEndLabel(fn.Code, act.PC, id)
		th.pushCatcher(&Catcher{
			Kind:           CatcherLabel,
			CallstackIndex: idx,
			PCBase:         end + 1,
			IdxBase:        act.PC + 1,
			LabelID:        id,
		})
	case bytecode.ENDLABEL:
		id := int64(int32(ins.ABC()))
		for n := len(th.CatchStack); n > 0; n-- {
			c := th.CatchStack[n-1]
			if c.CallstackIndex != idx {
				break
			}
			th.CatchStack = th.CatchStack[:n-1]
			if c.Kind == CatcherLabel && c.LabelID == id {
				break
			}
		}

	case bytecode.TRYCATCH:
		flags := ins.A()
		c := &Catcher{
			Kind:           CatcherTCF,
			CallstackIndex: idx,
			PCBase:         int(ins.B()),
			Flags:          flags & (CatchEnabled | FinallyEnabled | CatchBindingEnabled),
		}
		if flags&bytecode.TryHaveCatch != 0 {
			c.Flags |= CatchEnabled
		}
		if flags&bytecode.TryHaveFinally != 0 {
			c.Flags |= FinallyEnabled
		}
		if flags&bytecode.TryCatchBinding != 0 {
			c.Flags |= CatchBindingEnabled
			c.VarName = fn.Constants[ins.C()].(*values.String).Go()
		}
		th.pushCatcher(c)
	case bytecode.ENDTRY:
		if n := len(th.CatchStack); n > 0 && th.CatchStack[n-1].CallstackIndex == idx {
			c := th.CatchStack[n-1]
			if c.Flags&FinallyEnabled != 0 {
				c.Flags &^= FinallyEnabled
				c.Pending = LJState{Type: LJNormal}
				act.PC = c.PCBase
				advance = false
				return nil
			}
			th.CatchStack = th.CatchStack[:n-1]
		}
	case bytecode.ENDCATCH:
		if n := len(th.CatchStack); n > 0 && th.CatchStack[n-1].CallstackIndex == idx {
			c := th.CatchStack[n-1]
			if c.Flags&LexEnvActive != 0 {
				act.Lexical = act.currentLexical().Parent
			}
			if c.Flags&FinallyEnabled != 0 {
				c.Flags &^= (FinallyEnabled | CatchEnabled)
				c.Pending = LJState{Type: LJNormal}
				act.PC = c.PCBase
				advance = false
				return nil
			}
			th.CatchStack = th.CatchStack[:n-1]
		}
	case bytecode.ENDFIN:
		if n := len(th.CatchStack); n > 0 && th.CatchStack[n-1].CallstackIndex == idx {
			c := th.CatchStack[n-1]
			th.CatchStack = th.CatchStack[:n-1]
			if c.Pending.Type != LJNone && c.Pending.Type != LJNormal {
				advance = false
				h.LJ = c.Pending
			}
		}

	case bytecode.THROW:
		advance = false
		h.LJ = LJState{Type: LJThrow, Value1: regOrConst(ins.B()), IsError: true}

	case bytecode.INVLHS:
		throwErr(values.NewError(values.ReferenceError, "invalid assignment target"))
		return nil

	case bytecode.EXTRA:
		return h.stepExtra(th, idx, act, fn, ins, reg, setReg, regOrConst, throwErr, &advance)

	default:
		h.raiseInternal("unimplemented opcode %s", op)
	}

	return nil
}

func asThrowValue(err error) values.Value {
	if se, ok := err.(*values.ScriptError); ok {
		return se.AsThrowValue()
	}
	return values.NewErrorObject(values.InternalError, "%s", err.Error())
}

func arithToken(op bytecode.Op) token.Token {
	switch op {
	case bytecode.SUB:
		return token.MINUS
	case bytecode.MUL:
		return token.STAR
	case bytecode.DIV:
		return token.SLASH
	case bytecode.MOD:
		return token.MOD
	default:
		return token.PLUS
	}
}

func bitwiseToken(op bytecode.Op) token.Token {
	switch op {
	case bytecode.BAND:
		return token.AND
	case bytecode.BOR:
		return token.OR
	case bytecode.BXOR:
		return token.XOR
	case bytecode.BASL:
		return token.SHL
	case bytecode.BASR:
		return token.SHR
	default:
		return token.USHR
	}
}

func compareToken(op bytecode.Op) token.Token {
	switch op {
	case bytecode.EQ:
		return token.EQEQ
	case bytecode.NEQ:
		return token.NEQ
	case bytecode.SEQ:
		return token.SEQ
	case bytecode.SNEQ:
		return token.SNEQ
	case bytecode.GT:
		return token.GT
	case bytecode.GE:
		return token.GE
	case bytecode.LT:
		return token.LT
	default:
		return token.LE
	}
}

// findMatchingEndLabel scans forward from a LABEL instruction for its
// ENDLABEL, assuming well-nested label blocks (guaranteed by construction:
// this is our own ISA and the assembler/compiler is the only producer of
// LABEL/ENDLABEL pairs).
func findMatchingEndLabel(code []bytecode.Instruction, from int, id int64) int {
	depth := 0
	for pc := from + 1; pc < len(code); pc++ {
		switch code[pc].OP() {
		case bytecode.LABEL:
			depth++
		case bytecode.ENDLABEL:
			if depth == 0 && int64(int32(code[pc].ABC())) == id {
				return pc
			}
			depth--
		}
	}
	return len(code) - 1
}
