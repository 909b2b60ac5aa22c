package abi

// Signal identifies one asynchronous notification. Valid signals are
// 1..MaxSignal; 0 is never a deliverable signal.
type Signal int

const (
	SIGHUP    Signal = 1
	SIGINT    Signal = 2
	SIGQUIT   Signal = 3
	SIGILL    Signal = 4
	SIGTRAP   Signal = 5
	SIGABRT   Signal = 6
	SIGBUS    Signal = 7
	SIGFPE    Signal = 8
	SIGKILL   Signal = 9
	SIGUSR1   Signal = 10
	SIGSEGV   Signal = 11
	SIGUSR2   Signal = 12
	SIGPIPE   Signal = 13
	SIGALRM   Signal = 14
	SIGTERM   Signal = 15
	SIGSTKFLT Signal = 16
	SIGCHLD   Signal = 17
	SIGCONT   Signal = 18
	SIGSTOP   Signal = 19
	SIGTSTP   Signal = 20
	SIGTTIN   Signal = 21
	SIGTTOU   Signal = 22
	SIGURG    Signal = 23
	SIGXCPU   Signal = 24
	SIGXFSZ   Signal = 25
	SIGVTALRM Signal = 26
	SIGPROF   Signal = 27
	SIGWINCH  Signal = 28
	SIGIO     Signal = 29
	SIGPWR    Signal = 30
	SIGSYS    Signal = 31

	MaxSignal Signal = 31
)

var signalNames = map[Signal]string{
	SIGHUP:    "SIGHUP",
	SIGINT:    "SIGINT",
	SIGQUIT:   "SIGQUIT",
	SIGILL:    "SIGILL",
	SIGTRAP:   "SIGTRAP",
	SIGABRT:   "SIGABRT",
	SIGBUS:    "SIGBUS",
	SIGFPE:    "SIGFPE",
	SIGKILL:   "SIGKILL",
	SIGUSR1:   "SIGUSR1",
	SIGSEGV:   "SIGSEGV",
	SIGUSR2:   "SIGUSR2",
	SIGPIPE:   "SIGPIPE",
	SIGALRM:   "SIGALRM",
	SIGTERM:   "SIGTERM",
	SIGSTKFLT: "SIGSTKFLT",
	SIGCHLD:   "SIGCHLD",
	SIGCONT:   "SIGCONT",
	SIGSTOP:   "SIGSTOP",
	SIGTSTP:   "SIGTSTP",
	SIGTTIN:   "SIGTTIN",
	SIGTTOU:   "SIGTTOU",
	SIGURG:    "SIGURG",
	SIGXCPU:   "SIGXCPU",
	SIGXFSZ:   "SIGXFSZ",
	SIGVTALRM: "SIGVTALRM",
	SIGPROF:   "SIGPROF",
	SIGWINCH:  "SIGWINCH",
	SIGIO:     "SIGIO",
	SIGPWR:    "SIGPWR",
	SIGSYS:    "SIGSYS",
}

func (s Signal) String() string {
	if name, ok := signalNames[s]; ok {
		return name
	}

	return "SIG?"
}

// Valid reports whether s is an assigned signal number.
func (s Signal) Valid() bool {
	return s >= 1 && s <= MaxSignal
}

// SignalFromCode converts an untrusted numeric code, as passed to kill(2),
// into a Signal. Out-of-range codes yield ok == false, never a panic.
func SignalFromCode(code int32) (Signal, bool) {
	s := Signal(code)
	if !s.Valid() {
		return 0, false
	}

	return s, true
}

// ExitCode is the exit status a process terminated by s reports: the
// negated signal number, so wait observers can tell "killed by signal N"
// from a normal exit.
func (s Signal) ExitCode() int {
	return -int(s)
}

// Disposition is what happens to a process that receives a signal with no
// registered handler.
type Disposition int

const (
	// ActionTerminate kills the process with the signal's exit code.
	ActionTerminate Disposition = iota

	// ActionIgnore discards the signal.
	ActionIgnore
)

// DefaultAction maps a signal to its disposition when no handler is
// registered. Informational signals are ignored, everything else kills.
func DefaultAction(s Signal) Disposition {
	switch s {
	case SIGCHLD, SIGURG, SIGWINCH, SIGCONT:
		return ActionIgnore
	default:
		return ActionTerminate
	}
}
