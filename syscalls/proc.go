package syscalls

import (
	"context"
	"runtime"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/Hoblovski/rCore-Tutorial-Guide/kernel"
)

func sysGetpid(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	return int32(task.Pid)
}

func sysYield(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	runtime.Gosched()
	return 0
}

func init() {
	Syscalls[SYS_GETPID] = sysGetpid
	Syscalls[SYS_YIELD] = sysYield

	SyscallNames[SYS_GETPID] = "getpid"
	SyscallNames[SYS_YIELD] = "yield"
}
