package syscalls

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/Hoblovski/rCore-Tutorial-Guide/abi"
	"github.com/Hoblovski/rCore-Tutorial-Guide/kernel"
)

// kSigAction is the wire form of a handler registration in user memory.
type kSigAction struct {
	Handler uint64
	Mask    uint64
}

func sysKill(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	var (
		pid   = args.Args.R0
		signo = args.Args.R1
	)

	sig, ok := abi.SignalFromCode(signo)
	if !ok {
		return -abi.EINVAL
	}

	target, ok := task.Kernel.Processes().Find(int(pid))
	if !ok {
		return -abi.ESRCH
	}

	l.Trace("kill", "pid", task.Pid, "target", pid, "signal", sig)

	target.DeliverSignal(sig)

	return 0
}

func sysSigaction(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	var (
		signo   = args.Args.R0
		newAddr = args.Args.R1
		oldAddr = args.Args.R2
	)

	sig, ok := abi.SignalFromCode(signo)
	if !ok {
		return -abi.EINVAL
	}

	sigs := task.Signals()

	// The old action is read out before the new one lands.
	if oldAddr != 0 {
		var kact kSigAction

		if old, ok := sigs.GetAction(sig); ok {
			kact = kSigAction{Handler: old.Handler, Mask: uint64(old.Mask)}
		}

		if err := task.CopyOut(oldAddr, &kact); err != nil {
			l.Error("error copying out old sigaction", "error", err)
			return -abi.EFAULT
		}
	}

	if newAddr != 0 {
		var kact kSigAction

		if err := task.CopyIn(newAddr, &kact); err != nil {
			l.Error("error copying in sigaction", "error", err)
			return -abi.EFAULT
		}

		act := kernel.SignalAction{
			Handler: kact.Handler,
			Mask:    abi.SignalSet(kact.Mask),
		}

		if !sigs.SetAction(sig, act) {
			return -abi.EINVAL
		}

		l.Trace("sigaction", "pid", task.Pid, "signal", sig, "handler", kact.Handler)
	}

	return 0
}

func sysSigprocmask(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	mask := abi.SignalSet(uint32(args.Args.R0))

	old := task.Signals().UpdateMask(mask)

	l.Trace("sigprocmask", "pid", task.Pid, "mask", mask, "old", old)

	return int32(uint32(old))
}

func sysSigreturn(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	if !task.Signals().SigReturn(task.Regs) {
		return -abi.EINVAL
	}

	l.Trace("sigreturn", "pid", task.Pid, "pc", task.Regs.PC)

	// Return the restored first register so the interrupted syscall's own
	// return value survives the unwind.
	return int32(uint32(task.Regs.Regs[0]))
}

func init() {
	Syscalls[SYS_KILL] = sysKill
	Syscalls[SYS_SIGACTION] = sysSigaction
	Syscalls[SYS_SIGPROCMASK] = sysSigprocmask
	Syscalls[SYS_SIGRETURN] = sysSigreturn

	SyscallNames[SYS_KILL] = "kill"
	SyscallNames[SYS_SIGACTION] = "sigaction"
	SyscallNames[SYS_SIGPROCMASK] = "sigprocmask"
	SyscallNames[SYS_SIGRETURN] = "sigreturn"
}
