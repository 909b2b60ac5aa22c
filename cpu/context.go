package cpu

// NumRegs is the size of the general register file.
const NumRegs = 8

// Context is the user-mode execution state saved at a trap and restored on
// return to user code: general registers plus program counter and stack
// pointer. Code addresses stored here are opaque to the kernel; only the
// machine executing the process interprets them.
type Context struct {
	Regs [NumRegs]uint64
	PC   uint64
	SP   uint64
}

// Clone returns an independent copy of the context.
func (c *Context) Clone() *Context {
	dup := *c

	return &dup
}

// Restore overwrites the context with a previously saved copy.
func (c *Context) Restore(saved *Context) {
	*c = *saved
}

// CallWith redirects the context to begin executing at addr with arg in
// the first argument-passing register. Used to enter a signal handler.
func (c *Context) CallWith(addr uint64, arg uint64) {
	c.PC = addr
	c.Regs[0] = arg
}

// Arg0 returns the first argument-passing register.
func (c *Context) Arg0() uint64 {
	return c.Regs[0]
}
