package watcher

import (
	"context"
	"os"
	"time"
)

// PollWatcher waits for changes by comparing modification times.
// It works everywhere, at the cost of up to one interval of latency.
type PollWatcher struct {
	interval time.Duration
}

// NewPoll creates a PollWatcher that checks every interval.
// Non-positive intervals use DefaultPollInterval.
func NewPoll(interval time.Duration) *PollWatcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollWatcher{interval: interval}
}

// Kind returns KindPoll.
func (pw *PollWatcher) Kind() Kind {
	return KindPoll
}

// Interval returns the polling interval.
func (pw *PollWatcher) Interval() time.Duration {
	return pw.interval
}

// Wait records the modification time of every path, then re-checks them
// every interval. It returns nil as soon as a time differs or a path can no
// longer be read.
func (pw *PollWatcher) Wait(ctx context.Context, paths []string) error {
	mtimes := make(map[string]time.Time, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil
		}
		mtimes[p] = info.ModTime()
	}

	ticker := time.NewTicker(pw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			if changed(mtimes) {
				return nil
			}
		}
	}
}

// changed reports whether any recorded file is gone or has a new mtime.
func changed(mtimes map[string]time.Time) bool {
	for p, recorded := range mtimes {
		info, err := os.Stat(p)
		if err != nil {
			return true
		}
		if !info.ModTime().Equal(recorded) {
			return true
		}
	}
	return false
}

// Clear is a no-op: nothing is registered between calls.
func (pw *PollWatcher) Clear() error {
	return nil
}

// Close is a no-op.
func (pw *PollWatcher) Close() error {
	return nil
}
