package syscalls

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/Hoblovski/rCore-Tutorial-Guide/abi"
	"github.com/Hoblovski/rCore-Tutorial-Guide/kernel"
	"github.com/Hoblovski/rCore-Tutorial-Guide/log"
)

func sysFork(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	child, err := task.Fork()
	if err != nil {
		l.Error("error forking process", "error", err)
		return -abi.ENOSYS
	}

	// fork returns 0 in the child.
	child.Regs.Regs[0] = 0

	task.Kernel.StartProcess(child)

	return int32(child.Pid)
}

const (
	WNOHANG = 1
)

func sysWaitpid(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	var (
		pid      = args.Args.R0
		statAddr = args.Args.R1
		flags    = args.Args.R2
	)

	switch pid {
	case -1:
		pid, status, err := task.WaitAnyChild(ctx, flags&WNOHANG == 0)
		if err != nil {
			if err == context.Canceled {
				return -abi.EINTR
			}

			l.Error("error waiting for any child process", "error", err)
			return -abi.ENOSYS
		}

		if pid == 0 {
			log.L.Trace("waitpid-no-child")
			return -abi.ECHILD
		}

		if statAddr != 0 {
			// A negative code reports "killed by signal -code".
			if err := task.CopyOut(statAddr, int32(status.Code)); err != nil {
				return -abi.EFAULT
			}
		}

		log.L.Trace("waitpid-found-child", "pid", pid, "code", status.Code)
		return int32(pid)
	default:
		// Waiting on a specific child is not supported yet.
		return -abi.EINVAL
	}
}

func init() {
	Syscalls[SYS_FORK] = sysFork
	Syscalls[SYS_WAITPID] = sysWaitpid

	SyscallNames[SYS_FORK] = "fork"
	SyscallNames[SYS_WAITPID] = "waitpid"
}
