// Package hooklist implements a ref-counted, doubly-linked list of
// callback hooks with validity flags and stable priority-sorted
// insertion.
//
// The list is designed to be iterated while entries are concurrently
// invalidated or inserted: destroying a hook marks it invalid, but the
// node is only unlinked, and its destroy notifier only run, once its
// reference count drops to zero. An iterator that holds a reference
// therefore always has intact next/prev pointers, and skips invalid
// nodes as it advances.
//
// The list itself performs no locking; callers serialize access.
package hooklist

// Flags is the per-hook bitflag field. Bits below FlagUserShift are
// reserved for the list; callers may use FlagUserShift and above.
type Flags uint32

const (
	// FlagActive is set on insertion and cleared by DestroyLink. A hook
	// with FlagActive cleared is skipped by valid-only traversal.
	FlagActive Flags = 1 << 0

	// FlagInCall marks a hook whose callback is currently executing.
	// The list never sets or clears it; it exists so callers can gate
	// reentrant invocation.
	FlagInCall Flags = 1 << 1

	// FlagUserShift is the first bit position available to callers.
	FlagUserShift = 4
)

// DestroyNotify releases a hook's user datum.
type DestroyNotify func(data any)

// Hook is a single list node. Payload carries caller data that rides
// along with the node; Data and Destroy follow the usual
// datum/destroy-notify pairing.
type Hook[T any] struct {
	next, prev *Hook[T]
	refCount   int

	// ID is the hook's identity tag, unique for the lifetime of the
	// list. It is assigned by InsertSorted and reset to zero by
	// DestroyLink; zero is never a live id.
	ID uint64

	// Flags holds FlagActive, FlagInCall, and caller bits.
	Flags Flags

	// Data is the caller-owned user datum.
	Data any

	// Destroy, if non-nil, is invoked on Data exactly once when the
	// hook is destroyed.
	Destroy DestroyNotify

	// Payload is arbitrary caller state attached to the node.
	Payload T
}

// IsValid reports whether the hook is still live: it has an id and its
// active flag is set.
func (h *Hook[T]) IsValid() bool {
	return h.ID != 0 && h.Flags&FlagActive != 0
}

// InCall reports whether the hook's callback is currently executing.
func (h *Hook[T]) InCall() bool {
	return h.Flags&FlagInCall != 0
}

// CompareFunc orders hooks during sorted insertion. A negative result
// places a before b.
type CompareFunc[T any] func(a, b *Hook[T]) int

// List is the hook container. The zero value is ready to use.
type List[T any] struct {
	head  *Hook[T]
	tail  *Hook[T]
	seqID uint64

	// Finalize, if non-nil, runs after a hook has been unlinked, just
	// before the list drops its last pointer to it.
	Finalize func(*Hook[T])
}

// InsertSorted links hook into the list at the position determined by
// cmp, after any existing hooks that compare equal, assigns it a fresh
// id, sets FlagActive, and takes the list's own reference.
func (l *List[T]) InsertSorted(hook *Hook[T], cmp CompareFunc[T]) {
	l.seqID++
	hook.ID = l.seqID
	hook.Flags |= FlagActive
	hook.refCount = 1

	var prev *Hook[T]
	cur := l.head
	for cur != nil && cmp(hook, cur) >= 0 {
		prev = cur
		cur = cur.next
	}

	hook.prev = prev
	hook.next = cur
	if prev != nil {
		prev.next = hook
	} else {
		l.head = hook
	}
	if cur != nil {
		cur.prev = hook
	} else {
		l.tail = hook
	}
}

// Get returns the hook with the given id, or nil. Destroyed hooks have
// id zero and never match.
func (l *List[T]) Get(id uint64) *Hook[T] {
	if id == 0 {
		return nil
	}
	for h := l.head; h != nil; h = h.next {
		if h.ID == id {
			return h
		}
	}
	return nil
}

// Find returns the first hook satisfying pred. With needValid, invalid
// hooks are skipped without being tested.
func (l *List[T]) Find(needValid bool, pred func(*Hook[T]) bool) *Hook[T] {
	for h := l.head; h != nil; h = h.next {
		if needValid && !h.IsValid() {
			continue
		}
		if pred(h) {
			return h
		}
	}
	return nil
}

// FirstValid returns the first valid hook, or nil. With mayBeInCall
// false, hooks whose FlagInCall is set are skipped as well.
func (l *List[T]) FirstValid(mayBeInCall bool) *Hook[T] {
	for h := l.head; h != nil; h = h.next {
		if h.IsValid() && (mayBeInCall || !h.InCall()) {
			return h
		}
	}
	return nil
}

// NextValid returns the first valid hook after h, or nil. The caller
// must still hold a reference on h (so that h remains linked).
func (l *List[T]) NextValid(h *Hook[T], mayBeInCall bool) *Hook[T] {
	if h == nil {
		return nil
	}
	for n := h.next; n != nil; n = n.next {
		if n.IsValid() && (mayBeInCall || !n.InCall()) {
			return n
		}
	}
	return nil
}

// Ref increments hook's reference count.
func (l *List[T]) Ref(hook *Hook[T]) {
	hook.refCount++
}

// Unref decrements hook's reference count. At zero the hook is
// unlinked, the list's Finalize (if set) runs on it, and finally the
// hook's destroy notifier is invoked on its user datum.
func (l *List[T]) Unref(hook *Hook[T]) {
	hook.refCount--
	if hook.refCount > 0 {
		return
	}

	if hook.prev != nil {
		hook.prev.next = hook.next
	} else {
		l.head = hook.next
	}
	if hook.next != nil {
		hook.next.prev = hook.prev
	} else {
		l.tail = hook.prev
	}
	hook.next = nil
	hook.prev = nil

	if l.Finalize != nil {
		l.Finalize(hook)
	}
	if destroy := hook.Destroy; destroy != nil {
		hook.Destroy = nil
		destroy(hook.Data)
	}
}

// DestroyLink invalidates hook and drops the reference taken at
// insertion. The node remains linked until all outstanding references
// are released; traversal skips it from now on. Finalization (and the
// destroy notifier) runs once the last reference is gone.
//
// Destroying an already-destroyed hook is a no-op.
func (l *List[T]) DestroyLink(hook *Hook[T]) {
	if hook.ID == 0 {
		return
	}
	hook.ID = 0
	hook.Flags &^= FlagActive

	l.Unref(hook)
}

// Empty reports whether the list has no hooks at all, valid or not.
func (l *List[T]) Empty() bool {
	return l.head == nil
}
