package mainloop

import (
	"sync/atomic"
)

// Loop is a main-loop handle: a quit flag driving repeated blocking
// iterations of its context. Several loops may share one context;
// sources belong to the context and outlive any loop.
type Loop struct {
	ctx  *Context
	quit atomic.Bool
}

// NewLoop creates a loop handle bound to the context.
func (c *Context) NewLoop() *Loop {
	return &Loop{ctx: c}
}

// NewLoop creates a loop handle bound to the default context.
func NewLoop() *Loop {
	return Default().NewLoop()
}

// Run clears the quit flag, then repeats blocking iterations until Quit
// is called. Quit is observed between iterations; a callback that calls
// Quit ends the loop once its iteration completes.
func (l *Loop) Run() {
	l.quit.Store(false)
	for !l.quit.Load() {
		l.ctx.iterate(true, true)
	}
}

// Quit flags the loop to stop. Safe to call from any goroutine,
// including from a dispatch callback of the running loop.
func (l *Loop) Quit() {
	l.quit.Store(true)
}

// Destroy releases the loop handle. The context and its sources are
// unaffected.
func (l *Loop) Destroy() {
	l.ctx = nil
}
