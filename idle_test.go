package mainloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIdle_BasicDispatch registers a one-shot idle source and runs a
// single blocking iteration.
func TestIdle_BasicDispatch(t *testing.T) {
	c := newTestContext(t)

	var buf string
	id := c.IdleAdd(func(data any) bool {
		buf += "x"
		return false
	}, nil)
	require.NotZero(t, id)

	assert.True(t, c.Iteration(true))
	assert.Equal(t, "x", buf)

	// The source removed itself by returning false.
	assert.False(t, c.SourceRemove(id))
}

// TestIdle_FIFOWithinPriority verifies registration order is preserved
// for sources of equal priority within one iteration.
func TestIdle_FIFOWithinPriority(t *testing.T) {
	c := newTestContext(t)

	var buf string
	c.IdleAdd(func(data any) bool {
		buf += "1"
		return false
	}, nil)
	c.IdleAdd(func(data any) bool {
		buf += "2"
		return false
	}, nil)

	assert.True(t, c.Iteration(true))
	assert.Equal(t, "12", buf)
}

// TestIdle_RepeatsUntilFalse verifies an idle callback returning true
// stays registered and fires on every iteration.
func TestIdle_RepeatsUntilFalse(t *testing.T) {
	c := newTestContext(t)

	count := 0
	id := c.IdleAdd(func(data any) bool {
		count++
		return count < 3
	}, nil)

	for i := 0; i < 3; i++ {
		assert.True(t, c.Iteration(false))
	}
	assert.Equal(t, 3, count)
	assert.False(t, c.SourceRemove(id))

	// Nothing left to dispatch.
	assert.False(t, c.Iteration(false))
}

// TestIdle_PriorityCeilingStarvation: a ready priority-0 source starves
// a priority-1 idle source indefinitely.
func TestIdle_PriorityCeilingStarvation(t *testing.T) {
	c := newTestContext(t)

	high := 0
	low := 0
	c.IdleAddFull(0, func(data any) bool {
		high++
		return true
	}, nil, nil)
	c.IdleAddFull(1, func(data any) bool {
		low++
		return true
	}, nil, nil)

	for i := 0; i < 10; i++ {
		require.True(t, c.Iteration(false))
	}
	assert.Equal(t, 10, high)
	assert.Zero(t, low)
}

// TestIdle_NegativePriorityFirst verifies that a more urgent (negative)
// idle source preempts the default priority.
func TestIdle_NegativePriorityFirst(t *testing.T) {
	c := newTestContext(t)

	var buf string
	c.IdleAdd(func(data any) bool {
		buf += "default"
		return false
	}, nil)
	c.IdleAddFull(-100, func(data any) bool {
		buf += "urgent;"
		return false
	}, nil, nil)

	assert.True(t, c.Iteration(false))
	assert.Equal(t, "urgent;", buf)

	assert.True(t, c.Iteration(false))
	assert.Equal(t, "urgent;default", buf)
}

// TestIdle_UserDestroyNotify verifies the destroy notifier runs with
// the user datum when the idle source removes itself.
func TestIdle_UserDestroyNotify(t *testing.T) {
	c := newTestContext(t)

	var destroyed []any
	c.IdleAddFull(0, func(data any) bool {
		return false
	}, "payload", func(data any) {
		destroyed = append(destroyed, data)
	})

	assert.True(t, c.Iteration(false))
	assert.Equal(t, []any{"payload"}, destroyed)
}

// TestIdle_NilCallbackRejected verifies the fail-fast path.
func TestIdle_NilCallbackRejected(t *testing.T) {
	c := newTestContext(t)
	assert.Zero(t, c.IdleAdd(nil, nil))
	assert.False(t, c.Iteration(false))
}

// TestIdle_PendingProbe: Pending reports readiness without
// dispatching.
func TestIdle_PendingProbe(t *testing.T) {
	c := newTestContext(t)

	count := 0
	c.IdleAdd(func(data any) bool {
		count++
		return false
	}, nil)

	assert.True(t, c.Pending())
	assert.True(t, c.Pending())
	assert.Zero(t, count)

	assert.True(t, c.Iteration(false))
	assert.Equal(t, 1, count)
	assert.False(t, c.Pending())
}
