package kernel

import (
	"context"
	"sync"

	"github.com/Hoblovski/rCore-Tutorial-Guide/abi"
	"github.com/Hoblovski/rCore-Tutorial-Guide/cpu"
	"github.com/Hoblovski/rCore-Tutorial-Guide/log"
)

// SignalAction describes a registered handler: the user code address to
// enter, and the extra signals blocked while the handler runs.
type SignalAction struct {
	Handler uint64
	Mask    abi.SignalSet
}

type DispatchKind int

const (
	// DispatchIdle means nothing was deliverable; resume user code normally.
	DispatchIdle DispatchKind = iota

	// DispatchBusy means a user handler is still active; the pending signal
	// stays queued for a later checkpoint.
	DispatchBusy

	// DispatchDelivered means the context was redirected into a handler.
	DispatchDelivered

	// DispatchKill means the process must terminate with ExitCode.
	DispatchKill

	// DispatchSuspend means the process just froze and leaves the run queue.
	DispatchSuspend

	// DispatchStillSuspended means the process stays frozen.
	DispatchStillSuspended

	// DispatchResumed means a frozen process may run again.
	DispatchResumed
)

var dispatchNames = map[DispatchKind]string{
	DispatchIdle:           "idle",
	DispatchBusy:           "busy",
	DispatchDelivered:      "delivered",
	DispatchKill:           "kill",
	DispatchSuspend:        "suspend",
	DispatchStillSuspended: "still-suspended",
	DispatchResumed:        "resumed",
}

func (k DispatchKind) String() string {
	return dispatchNames[k]
}

// DispatchResult is one dispatch decision. Signal is set for every kind
// except Idle with nothing pending, Busy, and StillSuspended.
type DispatchResult struct {
	Kind     DispatchKind
	Signal   abi.Signal
	ExitCode int
}

// SignalState is the per-process signal capability. The kernel core only
// touches signals through it, so tests can substitute their own.
type SignalState interface {
	AddSignal(sig abi.Signal)
	UpdateMask(mask abi.SignalSet) abi.SignalSet
	Mask() abi.SignalSet
	Pending() abi.SignalSet
	IsHandling() bool
	SetAction(sig abi.Signal, act SignalAction) bool
	GetAction(sig abi.Signal) (SignalAction, bool)
	FetchDeliverable() (abi.Signal, bool)
	Dispatch(regs *cpu.Context) DispatchResult
	SigReturn(regs *cpu.Context) bool
	Fork() SignalState
	Exec()
}

type handling int

const (
	handlingNone handling = iota
	handlingFrozen
	handlingUser
)

// unblockable can never be masked out.
var unblockable = abi.MakeSignalSet(abi.SIGKILL, abi.SIGSTOP)

// Signals is the per-process signal state: the received-but-unhandled set,
// the mask, the action table, and the handling state machine. One instance
// is owned by its process and never shared; the mutex only guards against
// another task's kill arriving while the owner is in the kernel.
type Signals struct {
	mu sync.Mutex

	received abi.SignalSet
	mask     abi.SignalSet
	actions  [abi.MaxSignal + 1]*SignalAction

	state     handling
	savedRegs cpu.Context
	savedMask abi.SignalSet
}

func NewSignals() *Signals {
	return &Signals{}
}

// AddSignal records sig as received. A signal already pending is not
// queued twice.
func (s *Signals) AddSignal(sig abi.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.received = s.received.Add(sig)
}

// UpdateMask installs a new mask and returns the previous one. SIGKILL and
// SIGSTOP are silently cleared from the installed mask; they can never be
// blocked.
func (s *Signals) UpdateMask(mask abi.SignalSet) abi.SignalSet {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.mask
	s.mask = mask &^ unblockable

	return old
}

func (s *Signals) Mask() abi.SignalSet {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mask
}

func (s *Signals) Pending() abi.SignalSet {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.received
}

func (s *Signals) IsHandling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state != handlingNone
}

// SetAction registers a handler for sig. Registrations for SIGKILL and
// SIGSTOP are rejected. A zero handler address clears the registration,
// restoring the default action.
func (s *Signals) SetAction(sig abi.Signal, act SignalAction) bool {
	if sig == abi.SIGKILL || sig == abi.SIGSTOP {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if act.Handler == 0 {
		s.actions[sig] = nil
		return true
	}

	dup := act
	s.actions[sig] = &dup

	return true
}

func (s *Signals) GetAction(sig abi.Signal) (SignalAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	act := s.actions[sig]
	if act == nil {
		return SignalAction{}, false
	}

	return *act, true
}

// FetchDeliverable removes and returns the lowest-numbered pending signal
// not blocked by the mask. The removed signal is in flight: it is gone
// from the pending set whether or not the caller acts on it.
func (s *Signals) FetchDeliverable() (abi.Signal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fetchLocked(^abi.SignalSet(0))
}

func (s *Signals) fetchLocked(allow abi.SignalSet) (abi.Signal, bool) {
	sig, ok := (s.received & allow).FirstNotIn(s.mask)
	if !ok {
		return 0, false
	}

	s.received = s.received.Remove(sig)

	return sig, true
}

// Dispatch makes one delivery decision against the context that would
// otherwise resume. Called exactly once per return-to-user transition.
func (s *Signals) Dispatch(regs *cpu.Context) DispatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case handlingFrozen:
		// Only SIGCONT thaws a frozen process. SIGKILL still gets through.
		sig, ok := s.fetchLocked(abi.MakeSignalSet(abi.SIGCONT, abi.SIGKILL))
		if !ok {
			return DispatchResult{Kind: DispatchStillSuspended}
		}

		s.state = handlingNone

		if sig == abi.SIGKILL {
			return DispatchResult{Kind: DispatchKill, Signal: sig, ExitCode: sig.ExitCode()}
		}

		return DispatchResult{Kind: DispatchResumed, Signal: sig}

	case handlingUser:
		return DispatchResult{Kind: DispatchBusy}
	}

	sig, ok := s.fetchLocked(^abi.SignalSet(0))
	if !ok {
		return DispatchResult{Kind: DispatchIdle}
	}

	switch sig {
	case abi.SIGKILL:
		// Bypasses the action table and the handling state entirely.
		return DispatchResult{Kind: DispatchKill, Signal: sig, ExitCode: sig.ExitCode()}
	case abi.SIGSTOP:
		s.state = handlingFrozen
		return DispatchResult{Kind: DispatchSuspend, Signal: sig}
	}

	if act := s.actions[sig]; act != nil {
		s.state = handlingUser
		s.savedRegs = *regs
		s.savedMask = s.mask
		s.mask = (s.mask | act.Mask) &^ unblockable

		regs.CallWith(act.Handler, uint64(sig))

		return DispatchResult{Kind: DispatchDelivered, Signal: sig}
	}

	if abi.DefaultAction(sig) == abi.ActionIgnore {
		return DispatchResult{Kind: DispatchIdle, Signal: sig}
	}

	return DispatchResult{Kind: DispatchKill, Signal: sig, ExitCode: sig.ExitCode()}
}

// SigReturn unwinds an active handler: the context saved at delivery is
// written back over regs and the pre-handler mask is reinstated. Fails,
// touching nothing, when no handler is active.
func (s *Signals) SigReturn(regs *cpu.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != handlingUser {
		return false
	}

	regs.Restore(&s.savedRegs)
	s.mask = s.savedMask
	s.state = handlingNone

	return true
}

// Fork builds the child's state: mask and action table are inherited,
// nothing is pending, no handler is active.
func (s *Signals) Fork() SignalState {
	s.mu.Lock()
	defer s.mu.Unlock()

	child := &Signals{
		mask: s.mask,
	}

	for i, act := range s.actions {
		if act != nil {
			dup := *act
			child.actions[i] = &dup
		}
	}

	return child
}

// Exec wipes the action table in place. The mask survives the new image.
func (s *Signals) Exec() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.actions {
		s.actions[i] = nil
	}
}

// DeliverSignal is the whole effect of an inbound kill: mark the signal
// received and nudge the target so a blocked syscall notices.
func (p *Process) DeliverSignal(sig abi.Signal) error {
	log.L.Trace("deliver-signal", "pid", p.Pid, "signal", sig)

	p.signals.AddSignal(sig)
	p.Interrupt()
	p.events.Notify(SignalArrived)

	return nil
}

// CheckpointOutcome tells the trap path how to resume a task after the
// delivery checkpoint ran.
type CheckpointOutcome int

const (
	// ResumeUser resumes user code normally (possibly into a handler when
	// the checkpoint redirected the context).
	ResumeUser CheckpointOutcome = iota

	// TaskStopped means the task left the runnable set; do not resume
	// until a new signal arrives.
	TaskStopped

	// TaskExited means the checkpoint terminated the process.
	TaskExited
)

// CheckpointWait drives checkpoint decisions until the task may resume or
// has exited. A stopped task parks here, off the run queue, waking on each
// new signal to decide again. The wake listener registers before the first
// decision so an arrival between decision and park cannot be lost.
func (t *Task) CheckpointWait(ctx context.Context) (CheckpointOutcome, error) {
	c := make(chan struct{}, 1)
	ev := t.events.RegisterChannel(SignalArrived, c)
	defer t.events.Unregister(ev)

	for {
		out := t.Checkpoint()
		if out != TaskStopped {
			return out, nil
		}

		select {
		case <-ctx.Done():
			return TaskStopped, ctx.Err()
		case <-c:
			// a new signal arrived, decide again
		}
	}
}

// Checkpoint drives one dispatch decision against the task's live context
// and executes the resulting fate. Invoked at every return-to-user
// transition: the syscall return path and the machine's run loop.
func (t *Task) Checkpoint() CheckpointOutcome {
	res := t.signals.Dispatch(t.Regs)

	log.L.Trace("signal-checkpoint", "pid", t.Pid, "result", res.Kind, "signal", res.Signal)

	switch res.Kind {
	case DispatchKill:
		t.ExitSignal(res.Signal, res.ExitCode)
		return TaskExited
	case DispatchSuspend, DispatchStillSuspended:
		t.setStatus(Stopped)
		return TaskStopped
	case DispatchResumed:
		t.setStatus(Running)
		return ResumeUser
	case DispatchDelivered:
		log.L.Trace("enter-signal-handler", "pid", t.Pid, "signal", res.Signal, "handler", t.Regs.PC)
		return ResumeUser
	default:
		return ResumeUser
	}
}
