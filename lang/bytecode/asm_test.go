package bytecode_test

import (
	"strings"
	"testing"

	"github.com/remoe/duktape/lang/bytecode"
	"github.com/stretchr/testify/require"
)

func TestAssemble(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		err  string // error "contains" this string, no error expected if empty
	}{
		{"empty", ``, "must start with 'program:'"},
		{"not program", `function:`, "must start with 'program:'"},
		{"program only", `program:`, "no function defined"},
		{
			"invalid function header",
			"program:\nfunction: Top\n\tcode:\n",
			"invalid function: header",
		},
		{
			"minimally valid",
			"program:\nfunction: Top 2 0\n\tcode:\n\t\treturn 0\n",
			"",
		},
		{
			"unknown opcode",
			"program:\nfunction: Top 1 0\n\tcode:\n\t\tfoobar\n",
			"unknown opcode",
		},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			p, err := bytecode.Assemble([]byte(c.in))
			if c.err == "" {
				require.NoError(t, err)
				require.NotNil(t, p)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), c.err)
		})
	}
}

func TestAssembleAddScenario(t *testing.T) {
	src := `
program:
function: Top 2 0
	code:
		ldint r0, 7
		ldint r1, 35
		add r0, r0, r1
		return 2, r0
`
	p, err := bytecode.Assemble([]byte(src))
	require.NoError(t, err)
	require.NotNil(t, p.Toplevel)
	require.Equal(t, 2, p.Toplevel.NRegs)
	require.Len(t, p.Toplevel.Code, 4)

	ins := p.Toplevel.Code[2]
	require.Equal(t, bytecode.ADD, ins.OP())
	require.EqualValues(t, 0, ins.A())
	require.EqualValues(t, 0, ins.B())
	require.EqualValues(t, 1, ins.C())
}

func TestAssembleStringConcatScenario(t *testing.T) {
	src := `
program:
constants:
	string "ab"
	string "cd"
function: Top 2 0
	code:
		ldconst r0, #0
		ldconst r1, #1
		add r0, r0, r1
		return 2, r0
`
	p, err := bytecode.Assemble([]byte(src))
	require.NoError(t, err)
	require.Len(t, p.Toplevel.Constants, 2)
	require.Equal(t, "ab", p.Toplevel.Constants[0].String())
}

func TestDisassemble(t *testing.T) {
	src := `
program:
function: Top 2 0
	code:
		ldint r0, 7
		jump 1
		return 2, r0
`
	p, err := bytecode.Assemble([]byte(src))
	require.NoError(t, err)
	out := bytecode.Disassemble(p.Toplevel)
	require.True(t, strings.Contains(out, "ldint"))
	require.True(t, strings.Contains(out, "jump"))
}

func TestClosureReference(t *testing.T) {
	src := `
program:
function: Top 1 0
	code:
		closure r0, @Inner
		return 2, r0
function: Inner 0 0
	code:
		return 0
`
	p, err := bytecode.Assemble([]byte(src))
	require.NoError(t, err)
	require.Len(t, p.Toplevel.Inner, 1)
	require.Equal(t, "Inner", p.Toplevel.Inner[0].Name)
	require.EqualValues(t, 0, p.Toplevel.Code[0].BC())
}
