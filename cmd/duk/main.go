// Command duk is a thin assembler/runner/tracer for the bytecode execution
// engine: the parser/compiler producing that bytecode is out of scope here;
// this drives the lang/bytecode text assembly format instead. See `duk
// --help`.
package main

import (
	"os"

	"github.com/mna/mainer"
	"github.com/remoe/duktape/internal/maincmd"
)

var (
	// placeholder values, replaced on build
	version   = "{v}" // must be N.N[.N]
	buildDate = "{d}" // must be YYYY-mm-DD
)

func main() {
	c := maincmd.Cmd{BuildVersion: version, BuildDate: buildDate}
	os.Exit(int(c.Main(os.Args, mainer.CurrentStdio())))
}
