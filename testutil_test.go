package mainloop

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeClock is a deterministic clock for driving timeout sources.
type fakeClock struct {
	mu  sync.Mutex
	now TimeVal
}

func (f *fakeClock) Now(tv *TimeVal) {
	f.mu.Lock()
	*tv = f.now
	f.mu.Unlock()
}

func (f *fakeClock) Advance(msec int64) {
	f.mu.Lock()
	f.now.AddMilliseconds(msec)
	f.mu.Unlock()
}

func newTestContext(t *testing.T, opts ...ContextOption) *Context {
	t.Helper()
	c, err := NewContext(opts...)
	require.NoError(t, err)
	return c
}

// alwaysReadyFuncs returns a vtable whose prepare reports ready
// unconditionally and whose dispatch invokes fn.
func alwaysReadyFuncs(fn func() bool) *SourceFuncs {
	return &SourceFuncs{
		Prepare: func(sourceData any, current *TimeVal, timeout *int) bool {
			*timeout = 0
			return true
		},
		Check: func(sourceData any, current *TimeVal) bool {
			return true
		},
		Dispatch: func(sourceData any, current *TimeVal, userData any) bool {
			return fn()
		},
	}
}
