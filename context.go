package mainloop

import (
	"sync"

	"github.com/eapache/queue"
	"github.com/joeycumines/go-mainloop/internal/hooklist"
	"github.com/joeycumines/logiface"
)

// sourceRecord is the per-source state carried on each registry hook.
// The hook's Data/Destroy fields hold the user datum and its destroy
// notifier; the source-private datum and vtable live here.
type sourceRecord struct {
	funcs    *SourceFuncs
	priority int
	data     any
}

type sourceHook = hooklist.Hook[sourceRecord]

// Context owns one main loop's worth of state: the source registry, the
// poll-record registry, the pending-dispatch queue, the wake-up pipe,
// and the pluggable poll function and clock.
//
// A single mutex guards all of it. The mutex is held across prepare and
// check callbacks and released across the poll call and every dispatch
// callback. All exported methods are safe to call from any goroutine.
//
// Most programs use the process-wide [Default] context through the
// package-level functions; independent contexts are for embedding
// multiple loops in one process.
type Context struct {
	// Prevent copying
	_ [0]func()

	mu sync.Mutex

	// Source registry, priority-sorted, FIFO within priority.
	sources hooklist.List[sourceRecord]

	// Sources selected by the check phase, awaiting dispatch. Entries
	// hold an extra registry reference.
	pending *queue.Queue

	// Poll records in ascending priority order.
	pollRecords []*pollRec

	pollFunc PollFunc
	clock    func(*TimeVal)

	// Wake-up pipe; -1 until first use.
	wakeReadFD  int
	wakeWriteFD int
	wakeRec     PollFD

	// True while a poller is (about to be) blocked in the poll call.
	// Cleared either by the poller itself on return, or by a concurrent
	// SourceAdd that wrote a wake-up byte.
	pollWaiting bool

	log     *logiface.Logger[logiface.Event]
	metrics *Metrics
}

var (
	defaultContext     *Context
	defaultContextOnce sync.Once
)

// Default returns the process-wide context backing the package-level
// functions. It is created on first use.
func Default() *Context {
	defaultContextOnce.Do(func() {
		c, err := NewContext()
		if err != nil {
			panic(err)
		}
		defaultContext = c
	})
	return defaultContext
}

// NewContext creates an independent main-loop context.
func NewContext(opts ...ContextOption) (*Context, error) {
	cfg, err := resolveContextOptions(opts)
	if err != nil {
		return nil, err
	}

	c := &Context{
		pending:     queue.New(),
		pollFunc:    cfg.pollFunc,
		clock:       cfg.clock,
		wakeReadFD:  -1,
		wakeWriteFD: -1,
		log:         cfg.logger,
	}
	if cfg.metricsEnabled {
		c.metrics = newMetrics()
	}
	c.sources.Finalize = c.finalizeSource

	return c, nil
}

// finalizeSource runs once per source, with the lock held, after the
// source's last reference is dropped and it has been unlinked. The
// hook's own destroy notifier (the user destroy) runs immediately after.
func (c *Context) finalizeSource(h *sourceHook) {
	if fns := h.Payload.funcs; fns != nil && fns.Destroy != nil {
		fns.Destroy(h.Payload.data)
	}
	if c.metrics != nil {
		c.metrics.sourceRemoved()
	}
}

// CurrentTime fills tv from the context's clock.
func (c *Context) CurrentTime(tv *TimeVal) {
	c.mu.Lock()
	clock := c.clock
	c.mu.Unlock()
	clock(tv)
}

// SetClock replaces the context's clock; nil restores the wall clock.
// Intended for tests that need deterministic timer behavior.
func (c *Context) SetClock(clock func(*TimeVal)) {
	c.mu.Lock()
	if clock == nil {
		clock = CurrentTime
	}
	c.clock = clock
	c.mu.Unlock()
}

// SetPollFunc replaces the readiness backend; nil restores the default
// poll(2) backend.
func (c *Context) SetPollFunc(fn PollFunc) {
	c.mu.Lock()
	if fn == nil {
		fn = defaultPoll
	}
	c.pollFunc = fn
	c.mu.Unlock()
}

// Metrics returns a snapshot of the context's runtime metrics, or the
// zero snapshot if metrics were not enabled.
func (c *Context) Metrics() MetricsSnapshot {
	if c.metrics == nil {
		return MetricsSnapshot{}
	}
	return c.metrics.snapshot()
}

// Close releases the context's wake-up pipe and unregisters its poll
// record. Only for contexts that are done iterating; registered sources
// are not destroyed, and the context must not be iterated afterwards.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.wakeReadFD < 0 {
		return nil
	}

	for i, rec := range c.pollRecords {
		if rec.fd == &c.wakeRec {
			c.pollRecords = append(c.pollRecords[:i], c.pollRecords[i+1:]...)
			break
		}
	}

	err := closeFD(c.wakeReadFD)
	if e := closeFD(c.wakeWriteFD); err == nil {
		err = e
	}
	c.wakeReadFD = -1
	c.wakeWriteFD = -1
	c.pollWaiting = false

	return err
}

// SetPollFunc replaces the default context's readiness backend; nil
// restores the built-in poll(2) backend.
func SetPollFunc(fn PollFunc) {
	Default().SetPollFunc(fn)
}
