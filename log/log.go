package log

import (
	"os"

	hclog "github.com/hashicorp/go-hclog"
)

// L is the kernel-wide logger. Syscall handlers receive it as a parameter
// so tests can substitute their own.
var L hclog.Logger

func init() {
	L = hclog.New(&hclog.LoggerOptions{
		Name: "rcore",
	})
	L.SetLevel(hclog.Info)

	if str := os.Getenv("TRACE"); str != "" {
		L.SetLevel(hclog.Trace)
	}
}

// EnableDebug raises the level to trace when the TRACE env var is set.
func EnableDebug() {
	if str := os.Getenv("TRACE"); str != "" {
		L.SetLevel(hclog.Trace)
	}
}
