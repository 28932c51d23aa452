// Structured logging for the mainloop package.
//
// Logging goes through logiface; a context with no logger attached (the
// default) pays only a nil check, since logiface loggers are inert when
// nil. Attach one with [WithLogger].
//
// Log points: invalid-argument fail-fast paths (warning), poll backend
// failures (error, caller-category rate limited), wake-up pipe creation
// failure (critical, immediately before aborting), and source
// add/remove (trace).

package mainloop

// warnInvalid logs a fail-fast rejection of an invalid argument.
func (c *Context) warnInvalid(op, reason string) {
	c.log.Warning().
		Str("op", op).
		Log(reason)
}
