package store

import (
	"log/slog"

	"github.com/roach88/reflux/clock"
)

// Recorder receives every dispatched action, in dispatch order. Implemented
// by record.Journal. Recording is best-effort: a returned error is logged
// and the dispatch proceeds.
type Recorder interface {
	Record(action any) error
}

type options struct {
	clock    clock.Clock
	logger   *slog.Logger
	recorder Recorder
}

func defaultOptions() options {
	return options{
		clock:  clock.NewSystem(),
		logger: slog.Default(),
	}
}

// Option configures a store at construction.
type Option func(*options)

// WithClock substitutes the clock backing the executor's timers. The test
// store uses this to drive timers from virtual time; production code should
// not need it.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger sets the logger for executor task failures and store warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRecorder attaches an action recorder, typically a record.Journal.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}
