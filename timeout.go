package mainloop

// timeoutData is the source-private datum of a timeout source.
type timeoutData struct {
	expiration TimeVal
	interval   int64 // milliseconds
	callback   SourceCallback
}

var timeoutFuncs = SourceFuncs{
	Prepare:  timeoutPrepare,
	Check:    timeoutCheck,
	Dispatch: timeoutDispatch,
}

func timeoutPrepare(sourceData any, current *TimeVal, timeout *int) bool {
	data := sourceData.(*timeoutData)

	msec := current.MillisecondsUntil(&data.expiration)
	if msec <= 0 {
		*timeout = 0
		return true
	}
	*timeout = int(msec)
	return false
}

func timeoutCheck(sourceData any, current *TimeVal) bool {
	data := sourceData.(*timeoutData)
	return data.expiration.Compare(current) <= 0
}

func timeoutDispatch(sourceData any, current *TimeVal, userData any) bool {
	data := sourceData.(*timeoutData)

	if !data.callback(userData) {
		return false
	}

	// Re-arm relative to the current time, not the old expiration.
	data.expiration = *current
	data.expiration.AddMilliseconds(data.interval)
	return true
}

// TimeoutAddFull registers a timeout source firing after intervalMs
// milliseconds at the given priority. The callback keeps the timer
// repeating by returning true; returning false removes it. notify, if
// non-nil, releases the user datum when the source is destroyed.
func (c *Context) TimeoutAddFull(priority int, intervalMs uint, fn SourceCallback, data any, notify DestroyNotify) uint64 {
	if fn == nil {
		c.warnInvalid("TimeoutAddFull", "nil callback")
		return 0
	}

	td := &timeoutData{
		interval: int64(intervalMs),
		callback: fn,
	}
	c.CurrentTime(&td.expiration)
	td.expiration.AddMilliseconds(td.interval)

	return c.SourceAdd(priority, false, &timeoutFuncs, td, data, notify)
}

// TimeoutAdd registers a timeout source at the default priority.
func (c *Context) TimeoutAdd(intervalMs uint, fn SourceCallback, data any) uint64 {
	return c.TimeoutAddFull(PriorityDefault, intervalMs, fn, data, nil)
}

// TimeoutAddFull registers a timeout source with the default context.
func TimeoutAddFull(priority int, intervalMs uint, fn SourceCallback, data any, notify DestroyNotify) uint64 {
	return Default().TimeoutAddFull(priority, intervalMs, fn, data, notify)
}

// TimeoutAdd registers a timeout source with the default context at the
// default priority.
func TimeoutAdd(intervalMs uint, fn SourceCallback, data any) uint64 {
	return Default().TimeoutAdd(intervalMs, fn, data)
}
