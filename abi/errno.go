package abi

// Error numbers returned (negated) by syscall handlers.
const (
	EPERM  = 1
	ENOENT = 2
	ESRCH  = 3
	EINTR  = 4
	ECHILD = 10
	EFAULT = 14
	EINVAL = 22
	ENOSYS = 38
)
