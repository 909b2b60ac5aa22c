package syscalls

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/Hoblovski/rCore-Tutorial-Guide/kernel"
)

// Syscall numbers follow the RISC-V Linux convention the tutorial
// userland is built against.
const (
	SYS_EXIT        = 93
	SYS_YIELD       = 124
	SYS_KILL        = 129
	SYS_SIGACTION   = 134
	SYS_SIGPROCMASK = 135
	SYS_SIGRETURN   = 139
	SYS_GETPID      = 172
	SYS_FORK        = 220
	SYS_EXEC        = 221
	SYS_WAITPID     = 260
)

type SysArgs struct {
	Index int32
	Args  SyscallRequest
}

type SyscallRequest struct {
	R0, R1, R2, R3, R4, R5, R6 int32
}

var (
	Syscalls     [1024]func(context.Context, hclog.Logger, *kernel.Task, SysArgs) int32
	SyscallNames [1024]string
)
