package machine

// CatcherKind distinguishes a try/catch/finally entry from a labelled
// loop/block entry on the catch stack.
type CatcherKind uint8

const (
	CatcherTCF CatcherKind = iota
	CatcherLabel
)

// Catcher flag bits.
const (
	CatchEnabled = 1 << iota
	FinallyEnabled
	CatchBindingEnabled
	LexEnvActive
)

// Catcher is one entry of a Thread's catch stack: a try/catch/finally
// frame or a labelled-loop/block entry, recording the activation it
// belongs to, the PC of its handler code, and (for TCF catchers) the
// binding name to install the thrown value under.
type Catcher struct {
	Kind           CatcherKind
	CallstackIndex int
	PCBase         int
	Flags          uint8
	IdxBase        int
	VarName        string
	LabelID        int64

	// Pending stashes the in-flight unwind event a TCF catcher's finally
	// handler was entered to service, so ENDFIN can resume it once the
	// finally block completes and re-raises the pending event.
	Pending LJState
}

func (th *Thread) pushCatcher(c *Catcher) {
	th.CatchStack = append(th.CatchStack, c)
}

// catchstackUnwindAboveActivation discards every catcher belonging to an
// activation index greater than actIdx, used whenever the call stack is
// unwound down to actIdx so no stale catcher from a discarded frame is
// later consulted.
func (th *Thread) catchstackUnwindAboveActivation(actIdx int) {
	n := len(th.CatchStack)
	for n > 0 && th.CatchStack[n-1].CallstackIndex > actIdx {
		n--
	}
	th.CatchStack = th.CatchStack[:n]
}
