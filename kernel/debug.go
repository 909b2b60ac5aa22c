package kernel

import (
	"os"

	"github.com/davecgh/go-spew/spew"
)

// DumpState writes the process's register context and signal state to
// stderr. The machine calls it when a task dies abnormally with tracing on.
func (p *Process) DumpState() {
	spew.Fdump(os.Stderr, p.Pid, p.Regs, p.signals)
}
