package waiter

import (
	"sync"

	"github.com/Hoblovski/rCore-Tutorial-Guide/log"
)

type EventType uint64

// Waiter fans event notifications out to registered listeners. The kernel
// uses it to park tasks waiting for a child to exit or for a stopped
// process to receive a new signal.
type Waiter struct {
	mu sync.RWMutex

	waiters map[*Event]struct{}
}

type Event struct {
	Mask     EventType
	Context  interface{}
	Callback func(e *Event)
}

func (w *Waiter) Register(e *Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.waiters == nil {
		w.waiters = make(map[*Event]struct{})
	}

	w.waiters[e] = struct{}{}
}

func triggerChan(e *Event) {
	c := e.Context.(chan struct{})

	select {
	case c <- struct{}{}:
	default:
	}
}

func (w *Waiter) RegisterChannel(mask EventType, c chan struct{}) *Event {
	e := &Event{
		Callback: triggerChan,
		Context:  c,
		Mask:     mask,
	}

	w.Register(e)

	return e
}

func (w *Waiter) Unregister(e *Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.waiters, e)
}

func (w *Waiter) Notify(mask EventType) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	log.L.Trace("waiters-notify", "count", len(w.waiters))

	for e := range w.waiters {
		if mask&e.Mask != 0 {
			e.Callback(e)
		}
	}
}
