// Package boundary is the machine side of the kernel: it executes program
// images and carries syscalls from user code into the kernel.
//
// An image is a table of blocks keyed by code address. A block is one
// straight-line piece of user code; it issues syscalls through its Env and
// picks the next block by writing Regs.PC. The delivery checkpoint may
// rewrite the context after any syscall, which is exactly how a signal
// handler gains control: the run loop simply finds the handler's block at
// the redirected address.
//
// Because a delivery rewrites the live context, a block must establish its
// continuation in PC before trapping and leave the registers alone
// afterwards; a late write would clobber a handler redirect. The syscall
// return value also lands in the first register, so a continuation block
// reads it from Arg0 and fork's shared continuation branches on it: zero in
// the child, the child's pid in the parent.
package boundary

import (
	"context"
	"sync"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/Hoblovski/rCore-Tutorial-Guide/cpu"
	"github.com/Hoblovski/rCore-Tutorial-Guide/kernel"
	"github.com/Hoblovski/rCore-Tutorial-Guide/syscalls"
)

type SyscallInvoker interface {
	InvokeSyscall(context.Context, syscalls.SysArgs) int32
}

// Env is what a block sees of its machine: its registers, its memory, and
// the syscall trap.
type Env struct {
	Regs *cpu.Context
	L    hclog.Logger

	ctx     context.Context
	task    *kernel.Task
	invoker SyscallInvoker
}

// Syscall traps into the kernel. The delivery checkpoint runs before it
// returns, so Regs may point somewhere new afterwards; the return value is
// also left in the first register for the next block.
func (e *Env) Syscall(idx int32, args ...int32) int32 {
	var req syscalls.SyscallRequest

	regs := []*int32{&req.R0, &req.R1, &req.R2, &req.R3, &req.R4, &req.R5, &req.R6}
	for i, a := range args {
		*regs[i] = a
	}

	return e.invoker.InvokeSyscall(e.ctx, syscalls.SysArgs{Index: idx, Args: req})
}

// Store writes val into the task's own memory, as a user-mode store would.
func (e *Env) Store(addr int32, val interface{}) error {
	return e.task.CopyOut(addr, val)
}

// Load reads val from the task's own memory.
func (e *Env) Load(addr int32, val interface{}) error {
	return e.task.CopyIn(addr, val)
}

// Block is one straight-line piece of user code.
type Block func(env *Env)

// Image is a runnable program: a block table with an entry address and a
// memory footprint.
type Image struct {
	Name  string
	Start uint64
	Size  int32
	Funcs map[uint64]Block
}

func (i *Image) Entry() uint64 {
	return i.Start
}

func (i *Image) MemSize() int32 {
	return i.Size
}

// Registry maps image paths to images. It is the kernel's loader.
type Registry struct {
	mu     sync.Mutex
	images map[string]*Image
}

func NewRegistry() *Registry {
	return &Registry{
		images: make(map[string]*Image),
	}
}

func (r *Registry) Register(img *Image) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.images[img.Name] = img
}

func (r *Registry) Load(path string) (kernel.Image, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	img, ok := r.images[path]
	if !ok {
		return nil, false
	}

	return img, true
}

// Machine executes tasks against their images. It implements
// kernel.Runner so fork can start children.
type Machine struct {
	L       hclog.Logger
	Invoker SyscallInvoker

	wg sync.WaitGroup
}

func (m *Machine) RunTask(t *kernel.Task) {
	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		m.run(t)
	}()
}

// Wait blocks until every started task has finished.
func (m *Machine) Wait() {
	m.wg.Wait()
}

func (m *Machine) run(t *kernel.Task) {
	ctx := kernel.SetTask(context.Background(), t)

	env := &Env{
		Regs:    t.Regs,
		L:       m.L,
		ctx:     ctx,
		task:    t,
		invoker: m.Invoker,
	}

	for t.Alive() {
		// Entering user code is a return-to-user transition of its own, so
		// signals sent while the task ran pure user code get a decision here
		// too, not only at syscall return.
		outcome, err := t.CheckpointWait(ctx)
		if err != nil {
			return
		}

		if outcome == kernel.TaskExited {
			break
		}

		img, ok := t.Image.(*Image)
		if !ok {
			m.L.Error("task has no runnable image", "pid", t.Pid)
			t.Exit(-1)
			break
		}

		fn, ok := img.Funcs[t.Regs.PC]
		if !ok {
			m.L.Error("pc outside image", "pid", t.Pid, "pc", t.Regs.PC, "image", img.Name)
			if m.L.IsTrace() {
				t.DumpState()
			}
			t.Exit(-1)
			break
		}

		env.Regs = t.Regs
		fn(env)
	}

	m.L.Trace("task-finished", "pid", t.Pid, "status", t.ExitStatus().Code)
}
