package mainloop

import (
	"github.com/joeycumines/go-mainloop/internal/hooklist"
)

// SourceCallback is the user callback invoked by the built-in timeout
// and idle sources. Returning false removes the source.
type SourceCallback func(data any) bool

// DestroyNotify releases a datum when its owner is destroyed.
type DestroyNotify func(data any)

// SourceFuncs is the four-operation capability vector every event
// source provides.
//
// Prepare and Check run with the context lock held and must not call
// back into the context. Dispatch runs with the lock released; it may
// add or remove sources, and may run the loop recursively. Destroy runs
// with the lock held, after the source has been unlinked from the
// registry.
type SourceFuncs struct {
	// Prepare reports whether the source is ready to dispatch before
	// polling, and writes the source's desired maximum wait in
	// milliseconds to *timeout. A negative timeout means the source
	// imposes no upper bound; zero forces a non-blocking poll.
	Prepare func(sourceData any, current *TimeVal, timeout *int) bool

	// Check decides readiness after the poll returns, typically from
	// descriptor result events or elapsed time.
	Check func(sourceData any, current *TimeVal) bool

	// Dispatch executes the user-visible side effect. Returning false
	// removes the source.
	Dispatch func(sourceData any, current *TimeVal, userData any) bool

	// Destroy releases the source-private datum. May be nil when there
	// is nothing to release.
	Destroy func(sourceData any)
}

// Source flag bits, stored in the caller-reserved region of the hook
// flag field.
const (
	sourceReady hooklist.Flags = 1 << (hooklist.FlagUserShift + iota)
	sourceCanRecurse
)

// PriorityDefault is the priority used by the convenience helpers.
// Lower values are more urgent; negative priorities are permitted.
const PriorityDefault = 0

// compareSourcePriority places a new source after all existing sources
// of equal priority, preserving registration order within a priority.
func compareSourcePriority(a, b *sourceHook) int {
	if a.Payload.priority < b.Payload.priority {
		return -1
	}
	return 1
}

var wakeByte = [1]byte{'A'}

// SourceAdd registers an event source and returns its identity tag,
// unique for the lifetime of the context. The source is inserted in
// priority order, after existing sources of equal priority. If the
// dispatch engine is blocked in poll, it is woken so the new source
// participates no later than the next iteration.
//
// funcs must be non-nil with a non-nil Dispatch; otherwise nothing is
// registered and 0 is returned.
func (c *Context) SourceAdd(priority int, canRecurse bool, funcs *SourceFuncs, sourceData, userData any, notify DestroyNotify) uint64 {
	if funcs == nil || funcs.Dispatch == nil {
		c.warnInvalid("SourceAdd", "nil source funcs")
		return 0
	}

	src := &sourceHook{
		Data:    userData,
		Payload: sourceRecord{funcs: funcs, priority: priority, data: sourceData},
	}
	if notify != nil {
		src.Destroy = hooklist.DestroyNotify(notify)
	}
	if canRecurse {
		src.Flags |= sourceCanRecurse
	}

	c.mu.Lock()
	c.sources.InsertSorted(src, compareSourcePriority)
	id := src.ID
	if c.metrics != nil {
		c.metrics.sourceAdded()
	}

	// Wake up the main loop if it is waiting in the poll.
	if c.pollWaiting {
		c.pollWaiting = false
		_, _ = writeFD(c.wakeWriteFD, wakeByte[:])
	}
	c.mu.Unlock()

	c.log.Trace().
		Uint64("source", id).
		Int("priority", priority).
		Log("source added")

	return id
}

// SourceRemove removes the source with the given identity tag. It
// returns whether the tag was found. The source's destroy hooks run
// exactly once, after it is unlinked; if the source is mid-dispatch
// they are deferred until that dispatch completes.
func (c *Context) SourceRemove(id uint64) bool {
	if id == 0 {
		c.warnInvalid("SourceRemove", "zero source id")
		return false
	}

	c.mu.Lock()
	h := c.sources.Get(id)
	if h != nil {
		c.sources.DestroyLink(h)
	}
	c.mu.Unlock()

	if h != nil {
		c.log.Trace().
			Uint64("source", id).
			Log("source removed")
	}
	return h != nil
}

// SourceRemoveByUserData removes the first source whose user datum
// equals data, returning whether one was found.
func (c *Context) SourceRemoveByUserData(data any) bool {
	c.mu.Lock()
	h := c.sources.Find(true, func(h *sourceHook) bool {
		return h.Data == data
	})
	if h != nil {
		c.sources.DestroyLink(h)
	}
	c.mu.Unlock()
	return h != nil
}

// SourceRemoveBySourceData removes the first source whose
// source-private datum equals data, returning whether one was found.
func (c *Context) SourceRemoveBySourceData(data any) bool {
	c.mu.Lock()
	h := c.sources.Find(true, func(h *sourceHook) bool {
		return h.Payload.data == data
	})
	if h != nil {
		c.sources.DestroyLink(h)
	}
	c.mu.Unlock()
	return h != nil
}

// SourceAdd registers an event source with the default context.
func SourceAdd(priority int, canRecurse bool, funcs *SourceFuncs, sourceData, userData any, notify DestroyNotify) uint64 {
	return Default().SourceAdd(priority, canRecurse, funcs, sourceData, userData, notify)
}

// SourceRemove removes a source from the default context by id.
func SourceRemove(id uint64) bool {
	return Default().SourceRemove(id)
}

// SourceRemoveByUserData removes the first default-context source whose
// user datum equals data.
func SourceRemoveByUserData(data any) bool {
	return Default().SourceRemoveByUserData(data)
}

// SourceRemoveBySourceData removes the first default-context source
// whose source-private datum equals data.
func SourceRemoveBySourceData(data any) bool {
	return Default().SourceRemoveBySourceData(data)
}
