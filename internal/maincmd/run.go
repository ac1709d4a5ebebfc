package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/remoe/duktape/internal/config"
	"github.com/remoe/duktape/internal/tracing"
	"github.com/remoe/duktape/lang/bytecode"
	"github.com/remoe/duktape/lang/machine"
	"github.com/remoe/duktape/lang/machine/builtins"
	"github.com/remoe/duktape/lang/values"
)

// loadProgram reads and assembles the .asm file at path.
func loadProgram(path string) (*bytecode.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	prog, err := bytecode.Assemble(src)
	if err != nil {
		return nil, fmt.Errorf("assembling %s: %w", path, err)
	}
	return prog, nil
}

// newEngine builds a Heap (with coroutine builtins registered) and its
// entry Thread from c's --config flag, optionally wiring a Tracer driven by
// --trace-level (or the level override runs like `trace` force).
func (c *Cmd) newEngine(levelOverride *tracing.Level) (*machine.Heap, *machine.Thread, *tracing.Tracer, error) {
	limits, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, nil, nil, err
	}

	h := machine.NewHeap(limits.MachineLimits())
	builtins.Register(h)
	th := h.NewThread()

	level := tracing.Level(c.TraceLevel)
	if levelOverride != nil {
		level = *levelOverride
	}
	tracer := tracing.New(level, os.Stderr)
	if level > tracing.LevelOff {
		// Drive the interrupt hook at every instruction so the trace stream
		// mirrors duktape's own DUK_DD per-opcode dumps; a real run leaves
		// InterruptInit at EngineLimits.InterruptInit instead (see the else
		// branch below).
		th.SetInterruptHook(1, func(th *machine.Thread) error {
			tracer.Tracef("thread=%p state=%s callstack_depth=%d valstack_top=%d", th, th.State, len(th.CallStack), len(th.ValueStack))
			if limits.MaxSteps > 0 {
				limits.MaxSteps--
				if limits.MaxSteps <= 0 {
					return values.NewError(values.RangeError, "step limit exceeded")
				}
			}
			return nil
		})
	} else if limits.MaxSteps > 0 {
		steps := limits.MaxSteps
		th.SetInterruptHook(limits.InterruptInit, func(th *machine.Thread) error {
			steps -= limits.InterruptInit
			if steps <= 0 {
				return values.NewError(values.RangeError, "step limit exceeded")
			}
			return nil
		})
	}

	return h, th, tracer, nil
}

// Run assembles and executes the .asm file named by args[0], printing its
// return value to stdout.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	prog, err := loadProgram(args[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	h, th, _, err := c.newEngine(nil)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	result, err := h.ExecuteProgram(th, prog, nil, nil)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	fmt.Fprintln(stdio.Stdout, result)
	return nil
}

// Trace behaves like Run, but forces tracing on (at --trace-level, or
// LevelTrace if the flag was left at its zero value) so every instruction
// executed is logged to stderr.
func (c *Cmd) Trace(ctx context.Context, stdio mainer.Stdio, args []string) error {
	prog, err := loadProgram(args[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	level := tracing.Level(c.TraceLevel)
	if level == tracing.LevelOff {
		level = tracing.LevelTrace
	}
	h, th, tracer, err := c.newEngine(&level)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	tracer.DumpFunction("toplevel", prog.Toplevel)

	result, err := h.ExecuteProgram(th, prog, nil, nil)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	fmt.Fprintln(stdio.Stdout, result)
	return nil
}
