// Package logging builds the diagnostic loggers used across mpr.
//
// Diagnostics are silent by default. --debug sends them to stderr and
// --log-file appends them to a size-rotated file.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects where diagnostics go.
type Options struct {
	// Debug writes diagnostics to stderr.
	Debug bool

	// File, if set, receives diagnostics with rotation.
	File string

	// MaxSizeMB is the size at which the file is rotated.
	MaxSizeMB int

	// MaxBackups is how many rotated files are kept.
	MaxBackups int
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{MaxSizeMB: 5, MaxBackups: 3}
}

// Sink is the shared destination for every logger of one run.
type Sink struct {
	w    io.Writer
	file *lumberjack.Logger
}

// NewSink opens the destinations named by opts.
func NewSink(opts Options) *Sink {
	var writers []io.Writer
	if opts.Debug {
		writers = append(writers, os.Stderr)
	}

	s := &Sink{}
	if opts.File != "" {
		s.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		writers = append(writers, s.file)
	}

	switch len(writers) {
	case 0:
		s.w = io.Discard
	case 1:
		s.w = writers[0]
	default:
		s.w = io.MultiWriter(writers...)
	}
	return s
}

// Logger returns a logger writing to the sink with the given prefix,
// e.g. "[xrun] ".
func (s *Sink) Logger(prefix string) *log.Logger {
	return log.New(s.w, prefix, log.LstdFlags)
}

// Enabled reports whether anything is recorded.
func (s *Sink) Enabled() bool {
	return s.w != io.Discard
}

// Close closes the log file, if any.
func (s *Sink) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
