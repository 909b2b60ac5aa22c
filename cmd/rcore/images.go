package main

import (
	"github.com/Hoblovski/rCore-Tutorial-Guide/abi"
	"github.com/Hoblovski/rCore-Tutorial-Guide/boundary"
	"github.com/Hoblovski/rCore-Tutorial-Guide/syscalls"
)

// Demo userland. Blocks jump by assigning Regs.PC before they trap; a
// syscall's return value comes back in the first register, so fork's shared
// continuation block tells parent from child by Arg0.

const (
	addrMain    = 0x1000
	addrChild   = 0x1100
	addrParent  = 0x1200
	addrReap    = 0x1300
	addrForkRet = 0x1400
	addrHandler = 0x2000

	scratchAct  = 0x8000
	scratchStat = 0x8100

	imageSize = 0x10000
)

var imageNames = []string{"init", "stopdemo"}

func registerImages(reg *boundary.Registry) {
	reg.Register(initImage())
	reg.Register(stopDemoImage())
}

// wireAction mirrors the sigaction wire format.
type wireAction struct {
	Handler uint64
	Mask    uint64
}

func syscallRet(env *boundary.Env) int32 {
	return int32(uint32(env.Regs.Arg0()))
}

// initImage: the parent installs a SIGUSR1 handler and waits; the child
// signals the parent and exits. Shows sigaction, handler entry and
// sigreturn interleaved with a blocking waitpid.
func initImage() *boundary.Image {
	return &boundary.Image{
		Name:  "init",
		Start: addrMain,
		Size:  imageSize,
		Funcs: map[uint64]boundary.Block{
			addrMain: func(env *boundary.Env) {
				env.Store(scratchAct, &wireAction{Handler: addrHandler})
				env.Syscall(syscalls.SYS_SIGACTION, int32(abi.SIGUSR1), scratchAct, 0)

				env.Regs.PC = addrForkRet
				env.Syscall(syscalls.SYS_FORK)
			},

			addrForkRet: func(env *boundary.Env) {
				if env.Regs.Arg0() == 0 {
					env.Regs.PC = addrChild
				} else {
					env.Regs.PC = addrParent
				}
			},

			addrChild: func(env *boundary.Env) {
				env.L.Info("child: signalling parent", "pid", env.Syscall(syscalls.SYS_GETPID))
				env.Syscall(syscalls.SYS_KILL, 1, int32(abi.SIGUSR1))
				env.Syscall(syscalls.SYS_EXIT, 7)
			},

			addrParent: func(env *boundary.Env) {
				env.Regs.PC = addrReap
				env.Syscall(syscalls.SYS_WAITPID, -1, scratchStat)
			},

			addrReap: func(env *boundary.Env) {
				rc := syscallRet(env)

				if rc == -abi.EINTR {
					// A signal interrupted the wait; retry after the handler.
					env.Regs.PC = addrParent
					return
				}

				if rc < 0 {
					env.Syscall(syscalls.SYS_EXIT, rc)
					return
				}

				var code int32
				env.Load(scratchStat, &code)
				env.L.Info("parent: reaped child", "pid", rc, "code", code)

				env.Syscall(syscalls.SYS_EXIT, 0)
			},

			addrHandler: func(env *boundary.Env) {
				sig := abi.Signal(env.Regs.Arg0())
				env.L.Info("handler: caught signal", "signal", sig.String())
				env.Syscall(syscalls.SYS_SIGRETURN)
			},
		},
	}
}

// stopDemoImage: the child stops itself with SIGSTOP; the parent keeps
// prodding it with SIGCONT until it resumes, exits and can be reaped.
func stopDemoImage() *boundary.Image {
	return &boundary.Image{
		Name:  "stopdemo",
		Start: addrMain,
		Size:  imageSize,
		Funcs: map[uint64]boundary.Block{
			addrMain: func(env *boundary.Env) {
				env.Regs.PC = addrForkRet
				env.Syscall(syscalls.SYS_FORK)
			},

			addrForkRet: func(env *boundary.Env) {
				if pid := env.Regs.Arg0(); pid == 0 {
					env.Regs.PC = addrChild
				} else {
					env.Regs.Regs[1] = pid
					env.Regs.PC = addrParent
				}
			},

			addrChild: func(env *boundary.Env) {
				self := env.Syscall(syscalls.SYS_GETPID)
				env.L.Info("child: stopping", "pid", self)

				// Parks inside the checkpoint until SIGCONT arrives.
				env.Syscall(syscalls.SYS_KILL, self, int32(abi.SIGSTOP))

				env.L.Info("child: resumed", "pid", self)
				env.Syscall(syscalls.SYS_EXIT, 3)
			},

			addrParent: func(env *boundary.Env) {
				child := int32(env.Regs.Regs[1])
				env.Regs.PC = addrReap

				env.Syscall(syscalls.SYS_YIELD)
				env.Syscall(syscalls.SYS_KILL, child, int32(abi.SIGCONT))

				env.Syscall(syscalls.SYS_WAITPID, -1, scratchStat, syscalls.WNOHANG)
			},

			addrReap: func(env *boundary.Env) {
				rc := syscallRet(env)

				if rc <= 0 {
					// Child not reapable yet; keep prodding.
					env.Regs.PC = addrParent
					return
				}

				var code int32
				env.Load(scratchStat, &code)
				env.L.Info("parent: reaped child", "pid", rc, "code", code)

				env.Syscall(syscalls.SYS_EXIT, 0)
			},
		},
	}
}
