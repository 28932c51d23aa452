// Package mainloop provides a priority-ordered, reentrant main loop for
// Go: a dispatcher over a heterogeneous set of event sources, coupled
// with file-descriptor polling and built-in timeout and idle sources.
//
// # Architecture
//
// A [Context] owns a source registry, a poll-record registry, and a
// wake-up pipe. Each iteration asks every source to prepare (reporting
// readiness and a maximum wait), polls the registered descriptors with
// the folded timeout, runs check on the sources, and dispatches the
// ready ones in strictly ascending priority order. Once a source at
// some priority is ready, lower-priority sources sit the iteration out
// entirely.
//
// Sources implement the four-operation [SourceFuncs] protocol
// (prepare, check, dispatch, destroy). [Context.TimeoutAdd] and
// [Context.IdleAdd] register the two built-in kinds. A [Loop] handle
// drives iterations until told to quit.
//
// The package-level functions ([SourceAdd], [IdleAdd], [TimeoutAdd],
// [Iteration], ...) operate on the process-wide [Default] context.
//
// # Platform Support
//
// Readiness notification uses poll(2) on Linux and macOS; [SelectPoll]
// is a shipped select(2)-based alternative, and any backend can be
// installed with [Context.SetPollFunc].
//
// # Thread Safety
//
// Registration and removal methods are safe to call from any
// goroutine. Dispatch is single-threaded and cooperative: user
// callbacks run on whichever goroutine is iterating, with the context
// lock released, so a callback may add or remove sources or run the
// loop recursively. Adding a source while another goroutine is blocked
// in poll wakes it via the wake-up pipe.
//
// # Usage
//
//	loop := mainloop.NewLoop()
//
//	mainloop.TimeoutAdd(1000, func(data any) bool {
//	    fmt.Println("tick")
//	    return true // keep firing
//	}, nil)
//
//	mainloop.IdleAdd(func(data any) bool {
//	    loop.Quit()
//	    return false
//	}, nil)
//
//	loop.Run()
package mainloop
