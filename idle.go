package mainloop

// idleData is the source-private datum of an idle source.
type idleData struct {
	callback SourceCallback
}

var idleFuncs = SourceFuncs{
	Prepare:  idlePrepare,
	Check:    idleCheck,
	Dispatch: idleDispatch,
}

func idlePrepare(sourceData any, current *TimeVal, timeout *int) bool {
	*timeout = 0
	return true
}

func idleCheck(sourceData any, current *TimeVal) bool {
	return true
}

func idleDispatch(sourceData any, current *TimeVal, userData any) bool {
	data := sourceData.(*idleData)
	return data.callback(userData)
}

// IdleAddFull registers an idle source at the given priority: a source
// that is ready on every iteration where nothing more urgent is. The
// callback keeps the source alive by returning true; returning false
// removes it.
func (c *Context) IdleAddFull(priority int, fn SourceCallback, data any, notify DestroyNotify) uint64 {
	if fn == nil {
		c.warnInvalid("IdleAddFull", "nil callback")
		return 0
	}

	return c.SourceAdd(priority, false, &idleFuncs, &idleData{callback: fn}, data, notify)
}

// IdleAdd registers an idle source at the default priority.
func (c *Context) IdleAdd(fn SourceCallback, data any) uint64 {
	return c.IdleAddFull(PriorityDefault, fn, data, nil)
}

// IdleAddFull registers an idle source with the default context.
func IdleAddFull(priority int, fn SourceCallback, data any, notify DestroyNotify) uint64 {
	return Default().IdleAddFull(priority, fn, data, notify)
}

// IdleAdd registers an idle source with the default context at the
// default priority.
func IdleAdd(fn SourceCallback, data any) uint64 {
	return Default().IdleAdd(fn, data)
}
