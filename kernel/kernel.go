package kernel

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Hoblovski/rCore-Tutorial-Guide/cpu"
	"github.com/Hoblovski/rCore-Tutorial-Guide/memory"
)

// Image is a loaded program image as the kernel sees it: an entry address
// and a memory footprint. How code at the entry executes is the machine's
// business, not the kernel's.
type Image interface {
	Entry() uint64
	MemSize() int32
}

// ImageLoader resolves a path to a program image. The loader itself is an
// external collaborator.
type ImageLoader interface {
	Load(path string) (Image, bool)
}

// Runner executes tasks. The boundary installs one so fork can start the
// child without the kernel knowing about the machine.
type Runner interface {
	RunTask(t *Task)
}

type Kernel struct {
	loader    ImageLoader
	runner    Runner
	processes *ProcessManager
}

func NewKernel(loader ImageLoader) (*Kernel, error) {
	k := &Kernel{
		loader:    loader,
		processes: NewProcessManager(),
	}

	return k, nil
}

func (k *Kernel) SetRunner(r Runner) {
	k.runner = r
}

func (k *Kernel) Processes() *ProcessManager {
	return k.processes
}

var ErrUnknownImage = errors.New("unknown program image")

// InitProcess creates a fresh process from a program image: empty pending
// set, empty mask, no handlers, no handling in progress.
func (k *Kernel) InitProcess(ctx context.Context, path string) (*Process, error) {
	proc := &Process{
		Kernel:  k,
		pg:      &ProcessGroup{},
		signals: NewSignals(),
		status:  Running,
	}

	k.processes.AssignPid(proc)

	proc.pg.Add(proc)

	if err := k.SetupProcess(proc, path); err != nil {
		return nil, err
	}

	return proc, nil
}

// SetupProcess installs a program image into proc: a fresh address space
// and a register context at the image entry.
func (k *Kernel) SetupProcess(proc *Process, path string) error {
	img, ok := k.loader.Load(path)
	if !ok {
		return errors.Wrapf(ErrUnknownImage, "path=%s", path)
	}

	mem := memory.NewVirtualMemory()

	if _, err := mem.NewRegion(0, img.MemSize()); err != nil {
		return err
	}

	proc.Image = img
	proc.Mem = mem
	proc.Regs = &cpu.Context{
		PC: img.Entry(),
		SP: uint64(img.MemSize()),
	}

	return nil
}

// Exec replaces the process image. The action table is wiped; the signal
// mask and the pending set survive the new image.
func (k *Kernel) Exec(proc *Process, path string) error {
	if err := k.SetupProcess(proc, path); err != nil {
		return err
	}

	proc.signals.Exec()

	return nil
}

// StartProcess hands the process to the installed runner.
func (k *Kernel) StartProcess(proc *Process) {
	if k.runner != nil {
		k.runner.RunTask(&Task{Process: proc})
	}
}
