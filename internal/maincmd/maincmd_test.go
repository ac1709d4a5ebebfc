package maincmd_test

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/remoe/duktape/internal/filetest"
	"github.com/remoe/duktape/lang/bytecode"
	"github.com/remoe/duktape/lang/machine"
	"github.com/remoe/duktape/lang/machine/builtins"
)

var testUpdateASM = flag.Bool("test.update-asm-tests", false, "update the asm golden files in testdata/asm")

// TestGoldenASM assembles and runs every .asm program in testdata/asm,
// diffing the printed return value against its .want golden file — the
// same filetest pattern the teacher's own packages use for golden output,
// applied here to end-to-end bytecode scenarios instead of parser/resolver
// output.
func TestGoldenASM(t *testing.T) {
	const dir = "../../testdata/asm"
	for _, fi := range filetest.SourceFiles(t, dir, ".asm") {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			path := filepath.Join(dir, fi.Name())
			got := runASMFile(t, path)
			filetest.DiffOutput(t, fi, got, dir, testUpdateASM)
		})
	}
}

func runASMFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	prog, err := bytecode.Assemble(data)
	if err != nil {
		t.Fatalf("assemble %s: %v", path, err)
	}

	h := machine.NewHeap(machine.DefaultLimits())
	builtins.Register(h)
	th := h.NewThread()

	result, err := h.ExecuteProgram(th, prog, nil, nil)
	if err != nil {
		t.Fatalf("execute %s: %v", path, err)
	}
	return fmt.Sprintf("%s\n", result)
}
