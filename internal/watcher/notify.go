package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// drainQuiet is how long Clear waits for further pending events.
const drainQuiet = 20 * time.Millisecond

// relevantOps are the fsnotify operations that count as a change.
const relevantOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove |
	fsnotify.Rename | fsnotify.Chmod

// NotifyWatcher waits for changes using fsnotify.
// It is not safe for concurrent Wait calls.
type NotifyWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *log.Logger
	fallback *PollWatcher
	addWatch func(string) error

	mu      sync.Mutex
	watched []string
	closed  bool
}

// NewNotify creates a NotifyWatcher.
// A nil logger discards diagnostics.
func NewNotify(logger *log.Logger) (*NotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &NotifyWatcher{
		watcher:  w,
		logger:   logger,
		fallback: NewPoll(DefaultPollInterval),
		addWatch: w.Add,
	}, nil
}

// Kind returns KindNotify.
func (nw *NotifyWatcher) Kind() Kind {
	return KindNotify
}

// Wait adds a watch for every path and blocks until one of them changes.
// When the watches cannot be set up, for example because the inotify
// watch limit is reached, the wait is done by polling instead.
func (nw *NotifyWatcher) Wait(ctx context.Context, paths []string) error {
	if err := nw.add(paths); err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Gone between the tree walk and now: that is a change.
			return nil
		case errors.Is(err, ErrClosed):
			return err
		}
		nw.logger.Printf("%v, polling every %v instead", err, nw.fallback.Interval())
		return nw.fallback.Wait(ctx, paths)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-nw.watcher.Events:
			if !ok {
				return ErrClosed
			}
			if event.Op&relevantOps == 0 {
				continue
			}
			nw.logger.Printf("change: %s %s", event.Op, event.Name)
			return nil

		case err, ok := <-nw.watcher.Errors:
			if !ok {
				return ErrClosed
			}
			// Overflow means events were lost; one of them may be ours.
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				nw.logger.Printf("event queue overflow, treating as change")
				return nil
			}
			nw.logger.Printf("watch error: %v", err)
		}
	}
}

// add registers every path with fsnotify, remembering what was added.
// On failure the watches added by this call are removed again.
func (nw *NotifyWatcher) add(paths []string) error {
	nw.mu.Lock()
	defer nw.mu.Unlock()

	if nw.closed {
		return ErrClosed
	}

	start := len(nw.watched)
	for _, p := range paths {
		if err := nw.addWatch(p); err != nil {
			for _, added := range nw.watched[start:] {
				_ = nw.watcher.Remove(added)
			}
			nw.watched = nw.watched[:start]
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		nw.watched = append(nw.watched, p)
	}
	return nil
}

// Clear removes every watch and drains pending events and errors.
func (nw *NotifyWatcher) Clear() error {
	nw.mu.Lock()
	defer nw.mu.Unlock()

	if nw.closed {
		return ErrClosed
	}

	for _, p := range nw.watched {
		// The file may already be gone, which also drops the watch.
		_ = nw.watcher.Remove(p)
	}
	nw.watched = nil

	// The backend delivers one event at a time, so keep draining until it
	// has been quiet for drainQuiet.
	quiet := time.NewTimer(drainQuiet)
	defer quiet.Stop()
	for {
		select {
		case _, ok := <-nw.watcher.Events:
			if !ok {
				return nil
			}
		case _, ok := <-nw.watcher.Errors:
			if !ok {
				return nil
			}
		case <-quiet.C:
			return nil
		}
		quiet.Reset(drainQuiet)
	}
}

// Close shuts down the fsnotify watcher.
func (nw *NotifyWatcher) Close() error {
	nw.mu.Lock()
	defer nw.mu.Unlock()

	if nw.closed {
		return nil
	}
	nw.closed = true
	nw.watched = nil

	if err := nw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}
