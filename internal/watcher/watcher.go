// Package watcher blocks until one of a set of files changes.
//
// Two implementations share the Watcher interface:
//
//   - notify: event driven, one fsnotify watch per file
//   - poll: compares modification times once per interval
//
// New picks notify when the platform supports it and silently falls back to
// poll otherwise. The choice is made once; callers never switch variants.
//
// # Usage
//
//	w, err := watcher.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	for {
//	    if err := w.Wait(ctx, paths); err != nil {
//	        return err // ctx cancelled
//	    }
//	    // ... react to the change ...
//	    w.Clear()
//	}
//
// Wait has no timeout. The only ways out are a change to one of the paths or
// cancellation of ctx (normally wired to SIGINT).
package watcher

import (
	"context"
	"errors"
)

// Kind names a watcher implementation.
type Kind string

const (
	// KindAuto prefers KindNotify and falls back to KindPoll.
	KindAuto Kind = "auto"

	// KindNotify uses OS file notifications through fsnotify.
	KindNotify Kind = "notify"

	// KindPoll compares modification times on a fixed interval.
	KindPoll Kind = "poll"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// ParseKind converts a configuration value into a Kind.
// The empty string is treated as KindAuto.
// Any registered kind is accepted.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if k == "" || k == KindAuto {
		return KindAuto, nil
	}
	if !IsRegistered(k) {
		return "", ErrUnknownKind
	}
	return k, nil
}

// Watcher waits for changes to a set of files.
type Watcher interface {
	// Wait registers every path and blocks until any of them is created,
	// written, removed, renamed or has its attributes changed. A path that
	// no longer exists when Wait is called counts as a change.
	// Returns ctx.Err() if ctx is done first.
	Wait(ctx context.Context, paths []string) error

	// Clear drops all registrations and discards notifications that were
	// delivered but not consumed, so the next Wait starts clean.
	Clear() error

	// Close releases the underlying resources.
	Close() error

	// Kind reports which implementation this is.
	Kind() Kind
}

var (
	// ErrUnknownKind is returned for an unrecognised watcher kind.
	ErrUnknownKind = errors.New("unknown watcher kind")

	// ErrClosed is returned when a closed watcher is used.
	ErrClosed = errors.New("watcher closed")
)
