package mainloop

import (
	"github.com/joeycumines/logiface"
)

// contextOptions holds configuration options for Context creation.
type contextOptions struct {
	pollFunc       PollFunc
	clock          func(*TimeVal)
	logger         *logiface.Logger[logiface.Event]
	metricsEnabled bool
}

// --- Context Options ---

// ContextOption configures a Context instance.
type ContextOption interface {
	applyContext(*contextOptions) error
}

// contextOptionImpl implements ContextOption.
type contextOptionImpl struct {
	applyContextFunc func(*contextOptions) error
}

func (o *contextOptionImpl) applyContext(opts *contextOptions) error {
	return o.applyContextFunc(opts)
}

// WithPollFunc sets the readiness backend for the context. The default
// wraps poll(2); see also [SelectPoll]. Passing nil keeps the default.
func WithPollFunc(fn PollFunc) ContextOption {
	return &contextOptionImpl{func(opts *contextOptions) error {
		if fn != nil {
			opts.pollFunc = fn
		}
		return nil
	}}
}

// WithClock sets the context's clock, used by the prepare/check phases
// and the timeout source. The default is the wall clock. Intended for
// tests that need to drive time deterministically.
func WithClock(clock func(*TimeVal)) ContextOption {
	return &contextOptionImpl{func(opts *contextOptions) error {
		if clock != nil {
			opts.clock = clock
		}
		return nil
	}}
}

// WithLogger attaches a structured logger to the context. A nil logger
// (the default) disables logging; logiface loggers are inert when nil.
func WithLogger(logger *logiface.Logger[logiface.Event]) ContextOption {
	return &contextOptionImpl{func(opts *contextOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithMetrics enables runtime metrics collection on the context.
// When enabled, a snapshot can be read via Context.Metrics(). Adds a
// small overhead to each iteration; disabled by default.
func WithMetrics(enabled bool) ContextOption {
	return &contextOptionImpl{func(opts *contextOptions) error {
		opts.metricsEnabled = enabled
		return nil
	}}
}

// resolveContextOptions applies ContextOption instances to
// contextOptions.
func resolveContextOptions(opts []ContextOption) (*contextOptions, error) {
	cfg := &contextOptions{
		pollFunc: defaultPoll,
		clock:    CurrentTime,
	}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyContext(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
