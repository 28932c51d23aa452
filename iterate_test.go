package mainloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIterate_PriorityGating: with A (priority 10) and B (priority 20)
// both always ready, only A is dispatched until A is removed.
func TestIterate_PriorityGating(t *testing.T) {
	c := newTestContext(t)

	var buf string
	a := c.SourceAdd(10, false, alwaysReadyFuncs(func() bool {
		buf += "A"
		return true
	}), nil, nil, nil)
	b := c.SourceAdd(20, false, alwaysReadyFuncs(func() bool {
		buf += "B"
		return true
	}), nil, nil, nil)
	require.NotZero(t, a)
	require.NotZero(t, b)

	assert.True(t, c.Iteration(false))
	assert.Equal(t, "A", buf)

	require.True(t, c.SourceRemove(a))

	assert.True(t, c.Iteration(false))
	assert.Equal(t, "AB", buf)
}

// TestIterate_RegistryOrderInvariant: source priorities are
// non-decreasing along the registry regardless of insertion order.
func TestIterate_RegistryOrderInvariant(t *testing.T) {
	c := newTestContext(t)

	for _, priority := range []int{7, -3, 0, 7, 2, -3, 100, 0} {
		c.SourceAdd(priority, false, alwaysReadyFuncs(func() bool { return true }), nil, nil, nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev := -1 << 62
	n := 0
	for h := c.sources.FirstValid(true); h != nil; h = c.sources.NextValid(h, true) {
		require.GreaterOrEqual(t, h.Payload.priority, prev)
		prev = h.Payload.priority
		n++
	}
	assert.Equal(t, 8, n)
}

// TestIterate_AddRemoveRoundTrip: adding then removing a source leaves
// the registry empty.
func TestIterate_AddRemoveRoundTrip(t *testing.T) {
	c := newTestContext(t)

	id := c.SourceAdd(0, false, alwaysReadyFuncs(func() bool { return true }), nil, nil, nil)
	require.NotZero(t, id)

	assert.True(t, c.SourceRemove(id))
	assert.False(t, c.SourceRemove(id))

	c.mu.Lock()
	assert.True(t, c.sources.Empty())
	c.mu.Unlock()

	assert.False(t, c.Iteration(false))
}

// TestIterate_RemoveByUserData removes only the first source whose user
// datum matches.
func TestIterate_RemoveByUserData(t *testing.T) {
	c := newTestContext(t)

	datum := new(int)
	fired := 0
	fn := alwaysReadyFuncs(func() bool {
		fired++
		return true
	})
	c.SourceAdd(0, false, fn, nil, datum, nil)
	c.SourceAdd(0, false, fn, nil, datum, nil)

	assert.True(t, c.SourceRemoveByUserData(datum))
	assert.True(t, c.SourceRemoveByUserData(datum))
	assert.False(t, c.SourceRemoveByUserData(datum))

	assert.False(t, c.Iteration(false))
	assert.Zero(t, fired)
}

// TestIterate_RemoveBySourceData removes by the source-private datum.
func TestIterate_RemoveBySourceData(t *testing.T) {
	c := newTestContext(t)

	type private struct{ n int }
	datum := &private{}
	destroyed := 0

	funcs := alwaysReadyFuncs(func() bool { return true })
	funcs.Destroy = func(sourceData any) {
		assert.Same(t, datum, sourceData)
		destroyed++
	}

	c.SourceAdd(0, false, funcs, datum, nil, nil)

	assert.True(t, c.SourceRemoveBySourceData(datum))
	assert.Equal(t, 1, destroyed)
	assert.False(t, c.SourceRemoveBySourceData(datum))
}

// TestIterate_DestroyExactlyOnce: explicit removal runs the vtable
// destroy and the user destroy once each, in that order.
func TestIterate_DestroyExactlyOnce(t *testing.T) {
	c := newTestContext(t)

	var order []string
	funcs := alwaysReadyFuncs(func() bool { return true })
	funcs.Destroy = func(sourceData any) { order = append(order, "source") }

	id := c.SourceAdd(0, false, funcs, nil, nil, func(data any) {
		order = append(order, "user")
	})

	require.True(t, c.SourceRemove(id))
	assert.Equal(t, []string{"source", "user"}, order)

	assert.False(t, c.SourceRemove(id))
	assert.Equal(t, []string{"source", "user"}, order)
}

// TestIterate_DestroyOnceViaDispatchRemoval: a dispatch returning false
// triggers the same exactly-once destruction.
func TestIterate_DestroyOnceViaDispatchRemoval(t *testing.T) {
	c := newTestContext(t)

	var order []string
	funcs := alwaysReadyFuncs(func() bool {
		order = append(order, "dispatch")
		return false
	})
	funcs.Destroy = func(sourceData any) { order = append(order, "source") }

	c.SourceAdd(0, false, funcs, nil, nil, func(data any) {
		order = append(order, "user")
	})

	assert.True(t, c.Iteration(false))
	assert.Equal(t, []string{"dispatch", "source", "user"}, order)

	assert.False(t, c.Iteration(false))
	assert.Equal(t, []string{"dispatch", "source", "user"}, order)
}

// TestIterate_RemoveDuringDispatchDefersDestroy: removing a source from
// its own dispatch defers destruction until the dispatch completes, and
// the source is not dispatched again.
func TestIterate_RemoveDuringDispatchDefersDestroy(t *testing.T) {
	c := newTestContext(t)

	destroyed := false
	var id uint64
	funcs := alwaysReadyFuncs(nil)
	funcs.Dispatch = func(sourceData any, current *TimeVal, userData any) bool {
		require.True(t, c.SourceRemove(id))
		// The destroy hooks must not have run yet; we are still inside
		// the dispatch.
		require.False(t, destroyed)
		return true // keep: removal above wins anyway
	}
	funcs.Destroy = func(sourceData any) { destroyed = true }

	id = c.SourceAdd(0, false, funcs, nil, nil, nil)

	assert.True(t, c.Iteration(false))
	assert.True(t, destroyed)
	assert.False(t, c.Iteration(false))
}

// TestIterate_InvalidArguments covers the fail-fast paths.
func TestIterate_InvalidArguments(t *testing.T) {
	c := newTestContext(t)

	assert.Zero(t, c.SourceAdd(0, false, nil, nil, nil, nil))
	assert.Zero(t, c.SourceAdd(0, false, &SourceFuncs{}, nil, nil, nil))
	assert.False(t, c.SourceRemove(0))
	assert.False(t, c.SourceRemoveByUserData(nil))
}

// TestIterate_CheckPhaseSelection: a source that is not ready at
// prepare but becomes ready at check is dispatched in the same
// iteration.
func TestIterate_CheckPhaseSelection(t *testing.T) {
	c := newTestContext(t)

	armed := false
	dispatched := 0
	c.SourceAdd(0, false, &SourceFuncs{
		Prepare: func(sourceData any, current *TimeVal, timeout *int) bool {
			*timeout = 0
			return false
		},
		Check: func(sourceData any, current *TimeVal) bool {
			return armed
		},
		Dispatch: func(sourceData any, current *TimeVal, userData any) bool {
			dispatched++
			return true
		},
	}, nil, nil, nil)

	assert.False(t, c.Iteration(false))
	assert.Zero(t, dispatched)

	armed = true
	assert.True(t, c.Iteration(false))
	assert.Equal(t, 1, dispatched)
}

// TestIterate_BlockWithoutDispatchRejected: iterate(block=true,
// dispatch=false) is a programming error and does nothing.
func TestIterate_BlockWithoutDispatchRejected(t *testing.T) {
	c := newTestContext(t)
	assert.False(t, c.iterate(true, false))
}
