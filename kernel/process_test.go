package kernel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"

	"github.com/Hoblovski/rCore-Tutorial-Guide/abi"
	"github.com/Hoblovski/rCore-Tutorial-Guide/cpu"
)

func testProcess(t *testing.T, k *Kernel, pg *ProcessGroup) *Process {
	p := &Process{
		Kernel:  k,
		pg:      pg,
		Regs:    &cpu.Context{PC: 0x1000},
		signals: NewSignals(),
		status:  Running,
	}

	k.processes.AssignPid(p)
	pg.Add(p)

	return p
}

func TestWait(t *testing.T) {
	n := neko.Modern(t)

	n.It("detects another process has exitted", func(t *testing.T) {
		k, err := NewKernel(nil)
		require.NoError(t, err)

		pg := &ProcessGroup{}

		parent := testProcess(t, k, pg)
		child := testProcess(t, k, pg)
		child.parent = parent

		child.Exit(1)

		ctx := context.Background()
		ctx, f := context.WithTimeout(ctx, 2*time.Second)
		defer f()

		pid, ret, err := parent.WaitAnyChild(ctx, true)
		require.NoError(t, err)

		require.Equal(t, child.Pid, pid)
		require.Equal(t, 1, ret.Code)
	})

	n.It("waits for a child to exit", func(t *testing.T) {
		k, err := NewKernel(nil)
		require.NoError(t, err)

		pg := &ProcessGroup{}

		parent := testProcess(t, k, pg)
		child := testProcess(t, k, pg)
		child.parent = parent

		go func() {
			time.Sleep(100 * time.Millisecond)
			child.Exit(1)
		}()

		ctx := context.Background()
		ctx, f := context.WithTimeout(ctx, 5*time.Second)
		defer f()

		pid, ret, err := parent.WaitAnyChild(ctx, true)
		require.NoError(t, err)

		require.Equal(t, child.Pid, pid)
		require.Equal(t, 1, ret.Code)
	})

	n.It("signals the parent with SIGCHLD when a child exits", func(t *testing.T) {
		k, err := NewKernel(nil)
		require.NoError(t, err)

		pg := &ProcessGroup{}

		parent := testProcess(t, k, pg)
		child := testProcess(t, k, pg)
		child.parent = parent

		child.Exit(0)

		require.True(t, parent.Signals().Pending().Contains(abi.SIGCHLD))
	})

	n.Meow()
}

func TestFork(t *testing.T) {
	n := neko.Modern(t)

	n.It("gives the child its own signal state", func(t *testing.T) {
		k, err := NewKernel(testLoader{})
		require.NoError(t, err)

		parent, err := k.InitProcess(context.Background(), "init")
		require.NoError(t, err)

		parent.Signals().UpdateMask(abi.MakeSignalSet(abi.SIGUSR1))
		parent.Signals().SetAction(abi.SIGUSR1, SignalAction{Handler: 0x2000})
		parent.Signals().AddSignal(abi.SIGUSR1)

		child, err := parent.Fork()
		require.NoError(t, err)

		require.NotEqual(t, parent.Pid, child.Pid)
		require.Equal(t, abi.MakeSignalSet(abi.SIGUSR1), child.Signals().Mask())

		act, ok := child.Signals().GetAction(abi.SIGUSR1)
		require.True(t, ok)
		require.Equal(t, uint64(0x2000), act.Handler)

		require.True(t, child.Signals().Pending().Empty())
	})

	n.It("copies the register context and memory", func(t *testing.T) {
		k, err := NewKernel(testLoader{})
		require.NoError(t, err)

		parent, err := k.InitProcess(context.Background(), "init")
		require.NoError(t, err)

		parent.Regs.Regs[2] = 99
		require.NoError(t, parent.CopyOut(0x100, int32(7)))

		child, err := parent.Fork()
		require.NoError(t, err)

		require.Equal(t, uint64(99), child.Regs.Regs[2])

		// writes after the fork stay private
		parent.Regs.Regs[2] = 100
		require.NoError(t, parent.CopyOut(0x100, int32(8)))

		var val int32
		require.NoError(t, child.CopyIn(0x100, &val))
		require.Equal(t, int32(7), val)
		require.Equal(t, uint64(99), child.Regs.Regs[2])
	})

	n.Meow()
}

func TestExec(t *testing.T) {
	n := neko.Modern(t)

	n.It("replaces the image and wipes handlers but not the mask", func(t *testing.T) {
		k, err := NewKernel(testLoader{})
		require.NoError(t, err)

		proc, err := k.InitProcess(context.Background(), "init")
		require.NoError(t, err)

		proc.Signals().UpdateMask(abi.MakeSignalSet(abi.SIGUSR1))
		proc.Signals().SetAction(abi.SIGUSR1, SignalAction{Handler: 0x2000})

		require.NoError(t, k.Exec(proc, "other"))

		_, ok := proc.Signals().GetAction(abi.SIGUSR1)
		require.False(t, ok)
		require.Equal(t, abi.MakeSignalSet(abi.SIGUSR1), proc.Signals().Mask())
		require.Equal(t, uint64(0x1000), proc.Regs.PC)
	})

	n.It("fails on an unknown image", func(t *testing.T) {
		k, err := NewKernel(testLoader{})
		require.NoError(t, err)

		proc, err := k.InitProcess(context.Background(), "init")
		require.NoError(t, err)

		require.Error(t, k.Exec(proc, "nope"))
	})

	n.Meow()
}

func TestCheckpoint(t *testing.T) {
	n := neko.Modern(t)

	n.It("terminates the task on SIGKILL", func(t *testing.T) {
		k, err := NewKernel(nil)
		require.NoError(t, err)

		pg := &ProcessGroup{}
		proc := testProcess(t, k, pg)
		task := &Task{Process: proc}

		proc.DeliverSignal(abi.SIGKILL)

		require.Equal(t, TaskExited, task.Checkpoint())
		require.Equal(t, Dead, proc.Status())
		require.Equal(t, -9, proc.ExitStatus().Code)
		require.Equal(t, int(abi.SIGKILL), proc.ExitStatus().Signo)
	})

	n.It("stops and resumes the task across SIGSTOP and SIGCONT", func(t *testing.T) {
		k, err := NewKernel(nil)
		require.NoError(t, err)

		pg := &ProcessGroup{}
		proc := testProcess(t, k, pg)
		task := &Task{Process: proc}

		proc.DeliverSignal(abi.SIGSTOP)

		require.Equal(t, TaskStopped, task.Checkpoint())
		require.Equal(t, Stopped, proc.Status())

		require.Equal(t, TaskStopped, task.Checkpoint())

		proc.DeliverSignal(abi.SIGCONT)

		require.Equal(t, ResumeUser, task.Checkpoint())
		require.Equal(t, Running, proc.Status())
	})

	n.It("resumes into the handler on delivery", func(t *testing.T) {
		k, err := NewKernel(nil)
		require.NoError(t, err)

		pg := &ProcessGroup{}
		proc := testProcess(t, k, pg)
		task := &Task{Process: proc}

		proc.Signals().SetAction(abi.SIGUSR1, SignalAction{Handler: 0x2000})
		proc.DeliverSignal(abi.SIGUSR1)

		require.Equal(t, ResumeUser, task.Checkpoint())
		require.Equal(t, uint64(0x2000), proc.Regs.PC)
	})

	n.Meow()
}

type testImage struct{}

func (testImage) Entry() uint64 {
	return 0x1000
}

func (testImage) MemSize() int32 {
	return 0x10000
}

type testLoader struct{}

func (testLoader) Load(path string) (Image, bool) {
	switch path {
	case "init", "other":
		return testImage{}, true
	}

	return nil, false
}
