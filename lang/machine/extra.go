package machine

import (
	"github.com/remoe/duktape/lang/bytecode"
	"github.com/remoe/duktape/lang/token"
	"github.com/remoe/duktape/lang/values"
)

func extraUnaryToken(eop bytecode.ExtraOp) token.Token {
	switch eop {
	case bytecode.ExtraUNM:
		return token.UNM
	case bytecode.ExtraINC:
		return token.INC
	case bytecode.ExtraDEC:
		return token.DEC
	default:
		return token.UNP
	}
}

// stepExtra dispatches the secondary opcode carried in an EXTRA
// instruction's A field: the single-register loads/tests and the handful
// of operations that don't need a full primary opcode of their own.
func (h *Heap) stepExtra(
	th *Thread,
	idx int,
	act *Activation,
	fn *bytecode.Function,
	ins bytecode.Instruction,
	reg func(uint8) values.Value,
	setReg func(uint8, values.Value),
	regOrConst func(uint8) values.Value,
	throwErr func(error),
	advance *bool,
) error {
	eop := bytecode.ExtraOp(ins.A())
	b, c := ins.B(), ins.C()

	switch eop {
	case bytecode.ExtraLDTHIS:
		setReg(b, th.Get(act.IdxBottom-1))
	case bytecode.ExtraLDUNDEF:
		setReg(b, values.Undefined{})
	case bytecode.ExtraLDNULL:
		setReg(b, values.Null{})
	case bytecode.ExtraLDTRUE:
		setReg(b, values.True)
	case bytecode.ExtraLDFALSE:
		setReg(b, values.False)

	case bytecode.ExtraNEWOBJ:
		setReg(b, values.NewObject("Object", nil))
	case bytecode.ExtraNEWARR:
		arr := values.NewObject("Array", nil)
		arr.LengthSet(0)
		setReg(b, arr)
	case bytecode.ExtraSETALEN:
		arr, ok := reg(b).(*values.Object)
		if !ok {
			throwErr(values.NewError(values.InternalError, "setalen target is not an object"))
			return nil
		}
		n, _ := regOrConst(c).(values.Number)
		arr.LengthSet(int(n))

	case bytecode.ExtraTYPEOF:
		setReg(b, values.NewString(values.TypeOf(regOrConst(c))))
	case bytecode.ExtraTYPEOFID:
		name := fn.Constants[c].(*values.String)
		v, err := GetVar(th, act.currentLexical(), name.Go())
		if err != nil {
			// typeof on an unresolvable identifier yields "undefined"
			// rather than throwing (ES5.1 §11.4.3).
			setReg(b, values.NewString("undefined"))
			return nil
		}
		setReg(b, values.NewString(values.TypeOf(v)))
	case bytecode.ExtraTONUM:
		n, err := values.ToNumber(th, regOrConst(c))
		if err != nil {
			throwErr(err)
			return nil
		}
		setReg(b, n)

	case bytecode.ExtraINITENUM:
		obj, err := values.ToObject(regOrConst(c))
		if err != nil {
			throwErr(err)
			return nil
		}
		setReg(b, &enumeratorHandle{e: obj.EnumeratorCreate()})
	case bytecode.ExtraNEXTENUM:
		handle, ok := reg(c).(*enumeratorHandle)
		if !ok {
			throwErr(values.NewError(values.InternalError, "nextenum target is not an enumerator"))
			return nil
		}
		key, ok := handle.e.EnumeratorNext()
		if !ok {
			setReg(b, values.Undefined{})
			*advance = true
			return nil
		}
		setReg(b, values.NewString(key))

	case bytecode.ExtraINITGET, bytecode.ExtraINITGETI, bytecode.ExtraINITSET, bytecode.ExtraINITSETI:
		obj, ok := reg(ins.B()).(*values.Object)
		_ = obj
		if !ok {
			throwErr(values.NewError(values.InternalError, "init(get|set) target is not an object"))
			return nil
		}
		return h.stepInitAccessor(th, act, fn, ins, eop, reg, setReg, throwErr)

	case bytecode.ExtraUNM, bytecode.ExtraUNP, bytecode.ExtraINC, bytecode.ExtraDEC:
		v, err := values.ArithUnary(th, extraUnaryToken(eop), regOrConst(c))
		if err != nil {
			throwErr(err)
			return nil
		}
		setReg(b, v)

	case bytecode.ExtraNOP:

	default:
		h.raiseInternal("unimplemented extra opcode %s", eop)
	}
	return nil
}

// enumeratorHandle lets a for-in enumerator ride the register file as an
// opaque tagged value (it implements values.Value only to satisfy the type
// system; it is never visible to script code).
type enumeratorHandle struct{ e *values.PropertyEnumerator }

func (*enumeratorHandle) String() string { return "[object Enumerator]" }
func (*enumeratorHandle) Type() string   { return "object" }

var _ values.Value = (*enumeratorHandle)(nil)

// stepInitAccessor handles INITGET/INITGETI/INITSET/INITSETI: define an
// accessor pair's getter or setter half on the object literal under
// construction in reg[B], keyed either directly (const pool) or
// indirectly (a register holding the key string).
func (h *Heap) stepInitAccessor(
	th *Thread,
	act *Activation,
	fn *bytecode.Function,
	ins bytecode.Instruction,
	eop bytecode.ExtraOp,
	reg func(uint8) values.Value,
	setReg func(uint8, values.Value),
	throwErr func(error),
) error {
	obj := reg(ins.B()).(*values.Object)
	var key string
	switch eop {
	case bytecode.ExtraINITGET, bytecode.ExtraINITSET:
		key = fn.Constants[ins.C()].(*values.String).Go()
	default:
		s, err := values.ToString(th, reg(ins.C()))
		if err != nil {
			throwErr(err)
			return nil
		}
		key = s.Go()
	}
	fnVal := reg(ins.B() + 1)
	switch eop {
	case bytecode.ExtraINITGET, bytecode.ExtraINITGETI:
		obj.DefineAccessor(key, fnVal, nil, true, true)
	default:
		obj.DefineAccessor(key, nil, fnVal, true, true)
	}
	return nil
}
