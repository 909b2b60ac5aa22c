package syscalls

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/Hoblovski/rCore-Tutorial-Guide/abi"
	"github.com/Hoblovski/rCore-Tutorial-Guide/kernel"
)

func sysExec(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	pathAddr := args.Args.R0

	path, err := task.ReadCString(pathAddr)
	if err != nil {
		l.Error("error reading path addr", "error", err)
		return -abi.EFAULT
	}

	err = task.Kernel.Exec(task.Process, string(path))
	if err != nil {
		if errors.Cause(err) == kernel.ErrUnknownImage {
			return -abi.ENOENT
		}

		l.Error("unable to exec process", "error", err, "path", path)
		return -abi.ENOSYS
	}

	return 0
}

func sysExit(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	task.Exit(int(args.Args.R0))
	return 0
}

func init() {
	Syscalls[SYS_EXEC] = sysExec
	Syscalls[SYS_EXIT] = sysExit

	SyscallNames[SYS_EXEC] = "exec"
	SyscallNames[SYS_EXIT] = "exit"
}
