package kernel

import (
	"context"
	"sync"

	"github.com/Hoblovski/rCore-Tutorial-Guide/log"
	"github.com/Hoblovski/rCore-Tutorial-Guide/pkg/waiter"
)

// ProcessGroup tracks related processes so a parent can reap exited
// children.
type ProcessGroup struct {
	mu sync.RWMutex

	processes []*Process

	events waiter.Waiter
}

func NewProcessGroup() *ProcessGroup {
	return &ProcessGroup{}
}

func (pg *ProcessGroup) Add(p *Process) {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	pg.processes = append(pg.processes, p)
}

func (pg *ProcessGroup) remove(p *Process) {
	for i, cur := range pg.processes {
		if cur == p {
			pg.processes = append(pg.processes[:i], pg.processes[i+1:]...)
			return
		}
	}
}

// ReapAny returns one dead process from the group, removing it. With block
// set it parks until a process exits or ctx is canceled.
func (pg *ProcessGroup) ReapAny(ctx context.Context, block bool) (*Process, error) {
	if !block {
		return pg.reapOnce()
	}

	c := make(chan struct{}, 1)
	ev := pg.events.RegisterChannel(ProcessExitted, c)
	defer pg.events.Unregister(ev)

	for {
		process, err := pg.reapOnce()
		if err != nil {
			return nil, err
		}

		if process != nil {
			return process, nil
		}

		log.L.Trace("process-waiting-reap")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c:
			// ok, try the loop again
		}
	}
}

func (pg *ProcessGroup) reapOnce() (*Process, error) {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	log.L.Trace("process-reap-once", "count", len(pg.processes))

	for _, p := range pg.processes {
		if p.Status() == Dead {
			pg.remove(p)
			if p.Kernel != nil {
				p.Kernel.processes.RemoveProc(p)
			}
			return p, nil
		}
	}

	return nil, nil
}

func (pg *ProcessGroup) ProcessExitted(p *Process) error {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	log.L.Trace("process-exitted", "pid", p.Pid)
	pg.events.Notify(ProcessExitted)

	return nil
}
