package mainloop

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-mainloop/internal/hooklist"
)

// Pending reports whether an iteration would dispatch at least one
// source, without dispatching anything.
func (c *Context) Pending() bool {
	return c.iterate(false, false)
}

// Iteration runs exactly one iteration of the loop: prepare all
// sources, poll (blocking iff block and no source is ready), check, and
// dispatch. It returns whether any source was dispatched.
func (c *Context) Iteration(block bool) bool {
	return c.iterate(block, true)
}

// iterate is the core primitive behind Pending and Iteration.
func (c *Context) iterate(block, dispatch bool) bool {
	if block && !dispatch {
		c.warnInvalid("iterate", "blocking iteration requires dispatch")
		return false
	}

	c.mu.Lock()

	var currentTime TimeVal
	c.clock(&currentTime)

	if c.metrics != nil {
		c.metrics.iterationStarted()
	}

	// If recursing, finish up the current dispatch before starting
	// over. A callback that re-enters the loop must consume dispatches
	// that were already promised.
	if c.pending.Length() > 0 {
		if dispatch {
			c.dispatchPending(&currentTime)
		}
		c.mu.Unlock()
		return true
	}

	// Prepare all sources.

	timeout := 0
	if block {
		timeout = -1
	}
	nready := 0
	currentPriority := 0

	hook := c.sources.FirstValid(true)
	for hook != nil {
		if nready > 0 && hook.Payload.priority > currentPriority {
			break
		}
		if hook.Flags&sourceCanRecurse == 0 && hook.InCall() {
			hook = c.sources.NextValid(hook, true)
			continue
		}

		c.sources.Ref(hook)

		sourceTimeout := -1
		ready := hook.Payload.funcs.Prepare != nil &&
			hook.Payload.funcs.Prepare(hook.Payload.data, &currentTime, &sourceTimeout)
		if ready {
			if !dispatch {
				c.sources.Unref(hook)
				c.mu.Unlock()
				return true
			}
			hook.Flags |= sourceReady
			nready++
			currentPriority = hook.Payload.priority
			timeout = 0
		}

		if sourceTimeout >= 0 {
			if timeout < 0 {
				timeout = sourceTimeout
			} else {
				timeout = min(timeout, sourceTimeout)
			}
		}

		tmp := c.sources.NextValid(hook, true)
		c.sources.Unref(hook)
		hook = tmp
	}

	// Poll, if necessary.

	c.pollLocked(timeout, nready > 0, currentPriority)

	// Check which sources need to be dispatched.

	nready = 0

	hook = c.sources.FirstValid(true)
	for hook != nil {
		if nready > 0 && hook.Payload.priority > currentPriority {
			break
		}
		if hook.Flags&sourceCanRecurse == 0 && hook.InCall() {
			hook = c.sources.NextValid(hook, true)
			continue
		}

		c.sources.Ref(hook)

		if hook.Flags&sourceReady != 0 ||
			(hook.Payload.funcs.Check != nil &&
				hook.Payload.funcs.Check(hook.Payload.data, &currentTime)) {
			if dispatch {
				hook.Flags &^= sourceReady
				// The pending entry holds its own reference, so the
				// source survives until its dispatch completes.
				c.sources.Ref(hook)
				c.pending.Add(hook)
				currentPriority = hook.Payload.priority
				nready++
			} else {
				c.sources.Unref(hook)
				c.mu.Unlock()
				return true
			}
		}

		tmp := c.sources.NextValid(hook, true)
		c.sources.Unref(hook)
		hook = tmp
	}

	// Now invoke the callbacks.

	retval := false
	if c.pending.Length() > 0 {
		c.dispatchPending(&currentTime)
		retval = true
	}

	c.mu.Unlock()

	return retval
}

// dispatchPending drains the pending-dispatch queue in order, releasing
// the lock around each dispatch callback. HOLDS: c.mu.
func (c *Context) dispatchPending(currentTime *TimeVal) {
	for c.pending.Length() > 0 {
		hook := c.pending.Remove().(*sourceHook)

		if hook.IsValid() {
			dispatchFn := hook.Payload.funcs.Dispatch
			sourceData := hook.Payload.data
			userData := hook.Data

			hook.Flags |= hooklist.FlagInCall

			var started time.Time
			if c.metrics != nil {
				started = time.Now()
			}

			c.mu.Unlock()
			keep := dispatchFn(sourceData, currentTime, userData)
			c.mu.Lock()

			hook.Flags &^= hooklist.FlagInCall

			if c.metrics != nil {
				c.metrics.dispatchDone(time.Since(started))
			}

			if !keep {
				c.sources.DestroyLink(hook)
			}
		}

		c.sources.Unref(hook)
	}
}

// pollLocked runs the poll phase: build the descriptor array filtered
// by the priority ceiling, release the lock around the poll call, and
// handle the wake-up pipe protocol. HOLDS: c.mu on entry and exit.
func (c *Context) pollLocked(timeout int, usePriority bool, priority int) {
	if c.wakeReadFD < 0 {
		r, w, err := createWakePipe()
		if err != nil {
			c.log.Crit().
				Err(err).
				Log("cannot create main loop wake-up pipe")
			panic(fmt.Sprintf("mainloop: cannot create wake-up pipe: %v", err))
		}
		c.wakeReadFD = r
		c.wakeWriteFD = w
		c.wakeRec = PollFD{FD: r, Events: EventRead}
		c.pollAddUnlocked(0, &c.wakeRec)
	}

	fds := make([]PollFD, 0, len(c.pollRecords))
	targets := make([]*PollFD, 0, len(c.pollRecords))
	for _, rec := range c.pollRecords {
		if usePriority && rec.priority > priority {
			break
		}
		fds = append(fds, PollFD{FD: rec.fd.FD, Events: rec.fd.Events})
		targets = append(targets, rec.fd)
	}

	pollFn := c.pollFunc

	c.pollWaiting = true

	c.mu.Unlock()
	n := pollFn(fds, timeout)
	c.mu.Lock()

	if n < 0 {
		c.log.Err().
			Limit().
			Int("nfds", len(fds)).
			Int("timeout_ms", timeout).
			Log("poll backend failed")
	}

	if !c.pollWaiting {
		// Another thread wrote a wake-up byte while we were out; drain
		// it so the pipe does not stay readable forever.
		var b [1]byte
		_, _ = readFD(c.wakeReadFD, b[:])
	} else {
		c.pollWaiting = false
	}

	// Copy result events back into the caller-owned descriptor
	// structs. The record list may have been mutated while the lock was
	// released, so the copy goes through the pointers captured above.
	for i := range fds {
		targets[i].REvents = fds[i].REvents
	}
}

// Pending reports whether the default context has a dispatch pending.
func Pending() bool {
	return Default().Pending()
}

// Iteration runs one iteration of the default context.
func Iteration(block bool) bool {
	return Default().Iteration(block)
}
