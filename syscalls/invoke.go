package syscalls

import (
	"context"

	"github.com/Hoblovski/rCore-Tutorial-Guide/abi"
	"github.com/Hoblovski/rCore-Tutorial-Guide/kernel"
	"github.com/Hoblovski/rCore-Tutorial-Guide/log"
)

type Invoker struct {
	Kernel *kernel.Kernel
}

// InvokeSyscall runs one syscall for the current task and then drives the
// signal delivery checkpoint before control goes back to user code.
func (i *Invoker) InvokeSyscall(ctx context.Context, args SysArgs) int32 {
	f := Syscalls[args.Index]
	if f == nil {
		return -abi.ENOSYS
	}

	p, ok := kernel.GetTask(ctx)
	if !ok {
		return -abi.ENOSYS
	}

	callCtx, cancel := context.WithCancel(ctx)

	// An inbound signal cancels a blocking syscall.
	p.SetInterrupt(cancel)

	ret := f(callCtx, log.L, p, args)

	p.SetInterrupt(nil)
	cancel()

	// The return value lands in the context's first register before the
	// checkpoint runs, so a delivered handler saves it with the rest of the
	// context and sigreturn hands it back to the interrupted code.
	p.Regs.Regs[0] = uint64(int64(ret))

	// The delivery checkpoint: one dispatch decision per return to user
	// mode. A stopped task parks inside CheckpointWait until it is resumed
	// or killed.
	if _, err := p.CheckpointWait(ctx); err != nil {
		log.L.Trace("stopped-task-abandoned", "pid", p.Pid, "error", err)
		return -abi.EINTR
	}

	return ret
}
