package kernel

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"sync"

	"github.com/Hoblovski/rCore-Tutorial-Guide/abi"
	"github.com/Hoblovski/rCore-Tutorial-Guide/cpu"
	"github.com/Hoblovski/rCore-Tutorial-Guide/log"
	"github.com/Hoblovski/rCore-Tutorial-Guide/memory"
	"github.com/Hoblovski/rCore-Tutorial-Guide/pkg/waiter"
)

type prockey struct{}

func GetTask(ctx context.Context) (*Task, bool) {
	if v := ctx.Value(prockey{}); v != nil {
		return v.(*Task), true
	}

	return nil, false
}

func SetTask(ctx context.Context, t *Task) context.Context {
	return context.WithValue(ctx, prockey{}, t)
}

// Task is a process acting inside the kernel.
type Task struct {
	*Process
}

type ProcessStatus int

const (
	Init    ProcessStatus = 0
	Running ProcessStatus = 1
	Stopped ProcessStatus = 2
	Dead    ProcessStatus = 3
)

type ExitStatus struct {
	Code  int
	Signo int
}

func (e ExitStatus) Status() int32 {
	return ((int32(e.Code) & 0xff) << 8) | (int32(e.Signo) & 0xff)
}

// Process is one user process: its pid, address space, live register
// context, and signal state. The signal state is owned exclusively by the
// process; other processes only reach it through DeliverSignal.
type Process struct {
	parent *Process
	pg     *ProcessGroup

	Kernel *Kernel
	Pid    int
	Mem    *memory.VirtualMemory
	Regs   *cpu.Context
	Image  Image

	status     ProcessStatus
	exitStatus ExitStatus

	signals       SignalState
	interruptFunc func()
	events        waiter.Waiter

	mu sync.Mutex
}

const (
	_ waiter.EventType = iota
	ProcessExitted
	SignalArrived
)

// Signals exposes the process's signal capability.
func (p *Process) Signals() SignalState {
	return p.signals
}

// SetSignals replaces the signal capability. Only meant for tests that
// substitute a mock.
func (p *Process) SetSignals(s SignalState) {
	p.signals = s
}

func (p *Process) Parent() *Process {
	return p.parent
}

func (p *Process) Status() ProcessStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.status
}

func (p *Process) setStatus(st ProcessStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != Dead {
		p.status = st
	}
}

func (p *Process) Alive() bool {
	return p.Status() != Dead
}

func (p *Process) ExitStatus() ExitStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.exitStatus
}

func (p *Process) ReadAt(b []byte, off int64) (int, error) {
	return p.Mem.ReadAt(b, off)
}

func (p *Process) WriteAt(b []byte, off int64) (int, error) {
	return p.Mem.WriteAt(b, off)
}

func (p *Process) ReadCString(ptr int32) ([]byte, error) {
	var buf bytes.Buffer

	var t [1]byte

	off := int64(ptr)

	for {
		_, err := p.ReadAt(t[:], off)
		if err != nil {
			return nil, err
		}

		if t[0] == 0 {
			break
		}

		buf.WriteByte(t[0])
		off += 1
	}

	return buf.Bytes(), nil
}

type readAdapter struct {
	sub    io.ReaderAt
	offset int64
}

func (ra readAdapter) Read(b []byte) (int, error) {
	return ra.sub.ReadAt(b, ra.offset)
}

type writeAdapter struct {
	sub    io.WriterAt
	offset int64
}

func (wa writeAdapter) Write(b []byte) (int, error) {
	return wa.sub.WriteAt(b, wa.offset)
}

func (p *Process) CopyIn(addr int32, val interface{}) error {
	return binary.Read(readAdapter{sub: p, offset: int64(addr)}, binary.LittleEndian, val)
}

func (p *Process) CopyOut(addr int32, val interface{}) error {
	return binary.Write(writeAdapter{sub: p, offset: int64(addr)}, binary.LittleEndian, val)
}

// Fork duplicates the process: copied address space and register context,
// inherited signal mask and action table, empty pending set. The child
// shares nothing mutable with the parent.
func (p *Process) Fork() (*Process, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	child := &Process{
		Kernel:  p.Kernel,
		parent:  p,
		pg:      p.pg,
		Image:   p.Image,
		Mem:     p.Mem.Fork(),
		Regs:    p.Regs.Clone(),
		signals: p.signals.Fork(),
		status:  Running,
	}

	p.Kernel.processes.AssignPid(child)

	child.pg.Add(child)

	return child, nil
}

func (p *Process) WaitAnyChild(ctx context.Context, block bool) (int, ExitStatus, error) {
	target, err := p.pg.ReapAny(ctx, block)
	if err != nil {
		return 0, ExitStatus{}, err
	}

	if target == nil {
		return 0, ExitStatus{}, nil
	}

	return target.Pid, target.exitStatus, nil
}

// Exit terminates the process with a plain exit code.
func (p *Process) Exit(code int) {
	p.exit(ExitStatus{Code: code})
}

// ExitSignal terminates the process killed by sig. code is the negated
// signal number.
func (p *Process) ExitSignal(sig abi.Signal, code int) {
	p.exit(ExitStatus{Code: code, Signo: int(sig)})
}

func (p *Process) exit(status ExitStatus) {
	log.L.Trace("process-exit", "pid", p.Pid, "code", status.Code, "signal", status.Signo)

	p.mu.Lock()

	if p.status == Dead {
		p.mu.Unlock()
		return
	}

	p.exitStatus = status
	p.status = Dead

	p.mu.Unlock()

	p.pg.ProcessExitted(p)

	if p.parent != nil {
		p.parent.DeliverSignal(abi.SIGCHLD)
	}
}

// Interrupt cancels the task's in-flight blocking operation, if any.
func (p *Process) Interrupt() {
	p.mu.Lock()
	f := p.interruptFunc
	p.mu.Unlock()

	if f != nil {
		f()
	}
}

func (p *Process) SetInterrupt(f func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.interruptFunc = f
}

type ProcessManager struct {
	mu        sync.RWMutex
	highWater int
	processes map[int]*Process
}

func NewProcessManager() *ProcessManager {
	return &ProcessManager{
		processes: make(map[int]*Process),
	}
}

func (p *ProcessManager) AssignPid(proc *Process) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 1; i <= p.highWater; i++ {
		if _, ok := p.processes[i]; !ok {
			proc.Pid = i
			p.processes[i] = proc
			return i
		}
	}

	p.highWater++
	pid := p.highWater
	p.processes[pid] = proc
	proc.Pid = pid

	return pid
}

// Find looks a live process up by pid. This is the lookup capability the
// kill syscall goes through; nothing else resolves pids.
func (p *ProcessManager) Find(pid int) (*Process, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	proc, ok := p.processes[pid]
	if !ok || proc.Status() == Dead {
		return nil, false
	}

	return proc, true
}

func (p *ProcessManager) RemoveProc(proc *Process) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.processes, proc.Pid)
}
