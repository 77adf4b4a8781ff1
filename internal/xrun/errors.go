package xrun

import (
	"errors"
	"fmt"
)

// Errors returned while setting up or running an xrun session.
//
// Configuration errors can be checked with errors.Is:
//
//	if errors.Is(err, xrun.ErrConfiguration) {
//	    // report and exit before entering the loop
//	}
var (
	// ErrConfiguration is wrapped by every error caused by bad user input.
	// These stop the session before anything is compiled.
	ErrConfiguration = errors.New("configuration error")

	// ErrEntryPointNotFound is returned when the designated program file
	// does not exist or does not survive filtering.
	ErrEntryPointNotFound = fmt.Errorf("%w: entry point not found", ErrConfiguration)

	// ErrEntryPointNotTopLevel is returned when the designated program
	// file is not in the top level directory.
	ErrEntryPointNotTopLevel = fmt.Errorf("%w: entry point must be a file in the top level directory", ErrConfiguration)

	// ErrBadRemap is returned for a map rule that is not "src:tgt" with
	// single file names on both sides.
	ErrBadRemap = fmt.Errorf("%w: invalid map rule", ErrConfiguration)

	// ErrCache is returned when the artifact cache cannot be created.
	ErrCache = errors.New("artifact cache unavailable")
)

// CompileError reports a nonzero exit from the cross compiler.
type CompileError struct {
	Source   string
	ExitCode int
	Err      error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s failed (exit %d): %v", e.Source, e.ExitCode, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// TransferError reports a failed copy of an artifact to the device.
type TransferError struct {
	Artifact string
	Dest     string
	ExitCode int
	Err      error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s to %s failed (exit %d): %v", e.Artifact, e.Dest, e.ExitCode, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// IsFatal returns true if the error must end the session.
// Configuration mistakes and an unusable cache are fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrConfiguration) {
		return true
	}

	if errors.Is(err, ErrCache) {
		return true
	}

	return false
}

// IsRecoverable returns true if the error only affects individual files.
// The affected artifacts stay stale and are retried on the next cycle.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}

	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return true
	}

	var transferErr *TransferError
	if errors.As(err, &transferErr) {
		return true
	}

	return false
}
