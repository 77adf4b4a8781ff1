package watcher

import (
	"fmt"
	"io"
	"log"
	"time"
)

// DefaultPollInterval is how often the poll watcher re-checks modification times.
const DefaultPollInterval = time.Second

// options holds the settings New passes to a constructor.
type options struct {
	kind     Kind
	interval time.Duration
	logger   *log.Logger
}

// Option configures New.
type Option func(*options)

// WithKind forces a specific implementation. KindAuto is the default.
func WithKind(k Kind) Option {
	return func(o *options) {
		o.kind = k
	}
}

// WithPollInterval sets the poll watcher interval.
// Non-positive values keep DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithLogger sets the logger for watcher diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates a Watcher.
//
// With KindAuto (the default) it tries the notify watcher first. If that
// cannot be constructed, for example because the platform has no file
// notification support or the inotify instance limit is reached, it logs the
// reason and returns a poll watcher instead.
func New(opts ...Option) (Watcher, error) {
	o := &options{
		kind:     KindAuto,
		interval: DefaultPollInterval,
		logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.kind != KindAuto {
		return create(o.kind, o)
	}

	w, err := create(KindNotify, o)
	if err == nil {
		return w, nil
	}

	o.logger.Printf("notify watcher unavailable, polling every %v: %v", o.interval, err)
	return create(KindPoll, o)
}

// create looks up the constructor for k and calls it.
func create(k Kind, o *options) (Watcher, error) {
	constructor := getConstructor(k)
	if constructor == nil {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownKind, k, RegisteredKinds())
	}

	w, err := constructor(o)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s watcher: %w", k, err)
	}
	return w, nil
}
