package machine

// SetInterruptHook installs hook to run every init instructions, and arms
// the countdown so hook fires after the first init steps. Passing init <= 0
// disables the hook (th.InterruptHook remains set but tickInterrupt skips
// the countdown while InterruptInit is not positive).
func (th *Thread) SetInterruptHook(init int, hook func(th *Thread) error) {
	th.InterruptInit = init
	th.InterruptCounter = init
	th.InterruptHook = hook
}

// ClearInterruptHook removes any previously installed hook.
func (th *Thread) ClearInterruptHook() {
	th.InterruptHook = nil
	th.InterruptInit = 0
	th.InterruptCounter = 0
}

// tickInterrupt implements the dispatch loop's per-instruction countdown:
// decrement once per step, and on reaching zero, reset to InterruptInit and
// invoke the hook. A hook returning a non-nil error
// aborts the run loop the same way an uncaught THROW would — used by
// embedders to implement execution timeouts or step-count budgets.
func (th *Thread) tickInterrupt() error {
	if th.InterruptHook == nil || th.InterruptInit <= 0 {
		return nil
	}
	th.InterruptCounter--
	if th.InterruptCounter > 0 {
		return nil
	}
	th.InterruptCounter = th.InterruptInit
	return th.InterruptHook(th)
}
