// Package debug is the engine's logging front end. It wraps log/slog with
// the category logger used across the packages and can redirect everything
// into a log file while a full-screen monitor owns the terminal.
package debug

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

var (
	file    *os.File
	mu      sync.Mutex
	level   = new(slog.LevelVar)
	current atomic.Pointer[slog.Logger]
)

func init() {
	level.Set(slog.LevelInfo)
	current.Store(newLogger(os.Stderr))
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetVerbose switches between Info and Debug output.
func SetVerbose(v bool) {
	if v {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// SetOutput sends log output to w.
func SetOutput(w io.Writer) {
	current.Store(newLogger(w))
}

// Enable starts logging at debug level into path, truncating it.
func Enable(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	file = f
	level.Set(slog.LevelDebug)
	current.Store(newLogger(f))
	Logger().Info("debug logging started", "path", path)
	return nil
}

// Disable closes the log file and returns to stderr.
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		file.Close()
		file = nil
	}
	current.Store(newLogger(os.Stderr))
}

// Logger returns the active logger.
func Logger() *slog.Logger {
	return current.Load()
}

// For returns a logger tagged with a category.
func For(category string) *slog.Logger {
	return Logger().With("category", category)
}

// Log writes a formatted debug message under a category.
func Log(category, format string, args ...any) {
	l := Logger()
	if !l.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	l.Debug(fmt.Sprintf(format, args...), "category", category)
}

var (
	countersMu sync.Mutex
	counters   = make(map[string]int)
)

// LogEvery logs only every n-th call with the same category and format.
func LogEvery(n int, category, format string, args ...any) {
	countersMu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	countersMu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
