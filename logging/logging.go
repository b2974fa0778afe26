// Package logging builds the structured logger shared by every binary.
package logging

import (
	"io"
	"os"
	"sync"

	"cdr.dev/slog"
	"cdr.dev/slog/sloggers/sloghuman"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	// File, when set, adds a rotating human-readable sink at that path.
	File    string
	Verbose bool
	// Stderr defaults to os.Stderr.
	Stderr io.Writer
}

// Build returns the logger and a func that closes any file sinks.
func Build(name string, opts Options) (slog.Logger, func()) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	sinks := []slog.Sink{sloghuman.Sink(stderr)}
	closeLog := func() {}
	if opts.File != "" {
		w := &writeCloseFixer{w: &lumberjack.Logger{
			Filename: opts.File,
			MaxSize:  5, // MB
			// Without this, rotated logs will never be deleted.
			MaxBackups: 1,
		}}
		sinks = append(sinks, sloghuman.Sink(w))
		closeLog = func() { _ = w.Close() }
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.Make(sinks...).Named(name).Leveled(level), closeLog
}

// writeCloseFixer drops writes after Close, since lumberjack re-opens the
// file on Write.
type writeCloseFixer struct {
	w io.WriteCloser

	mu     sync.Mutex // Protects following.
	closed bool
}

func (c *writeCloseFixer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, io.ErrClosedPipe
	}
	return c.w.Write(p)
}

func (c *writeCloseFixer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.w.Close()
}
