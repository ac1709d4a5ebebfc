// Package tracing provides a small leveled tracer for the execution engine,
// restoring in Go-idiomatic form the verbose/debug-only stack and lj-state
// dumps duktape's own duk_js_executor.c gates behind its DUK_DD/DUK_DDD
// macros. Nothing here is on the hot dispatch path unless a Tracer was
// actually installed at Debug or Trace level.
package tracing

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/remoe/duktape/lang/bytecode"
)

// Level orders the tracer's verbosity, mirroring DUK_D (off) / DUK_DD
// (debug) / DUK_DDD (trace, includes full structural dumps).
type Level int

const (
	LevelOff Level = iota
	LevelDebug
	LevelTrace
)

// Tracer writes leveled trace output to Out. A nil *Tracer is valid and
// silently discards everything, so call sites never need a nil check before
// calling Debugf/Tracef.
type Tracer struct {
	Level Level
	Out   io.Writer
}

// New builds a Tracer writing to out at the given level.
func New(level Level, out io.Writer) *Tracer {
	return &Tracer{Level: level, Out: out}
}

func (t *Tracer) enabled(l Level) bool {
	return t != nil && t.Level >= l && t.Out != nil
}

// Debugf logs a one-line message at LevelDebug, e.g. a thread switch or an
// unwind-event dispatch.
func (t *Tracer) Debugf(format string, args ...any) {
	if !t.enabled(LevelDebug) {
		return
	}
	fmt.Fprintf(t.Out, "[debug] "+format+"\n", args...)
}

// Tracef logs a one-line message at LevelTrace, the noisier per-instruction
// level.
func (t *Tracer) Tracef(format string, args ...any) {
	if !t.enabled(LevelTrace) {
		return
	}
	fmt.Fprintf(t.Out, "[trace] "+format+"\n", args...)
}

// DumpValue writes a spew structural dump of v under label, at LevelTrace
// only — this is the expensive, full-detail path (reflecting into
// Activation/Catcher/Value internals), not something a Debug-level run
// should pay for.
func (t *Tracer) DumpValue(label string, v any) {
	if !t.enabled(LevelTrace) {
		return
	}
	fmt.Fprintf(t.Out, "[trace] %s:\n%s", label, spew.Sdump(v))
}

// DumpFunction disassembles fn at LevelTrace, the same bytecode
// lang/bytecode.Disassemble a `cmd/duk disasm` run prints, folded into the
// trace stream so a `trace` run shows the toplevel function's code before
// executing it.
func (t *Tracer) DumpFunction(label string, fn *bytecode.Function) {
	if !t.enabled(LevelTrace) {
		return
	}
	fmt.Fprintf(t.Out, "[trace] %s:\n%s", label, bytecode.Disassemble(fn))
}
