// Package logger provides the process-wide structured logger.
// Call sites pass a message and key/value pairs; output goes to stderr unless
// redirected with SetOutput.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu     sync.RWMutex
	level  = new(slog.LevelVar)
	format = "text"
	output io.Writer = os.Stderr
	log    = newLogger()
)

func newLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(output, opts))
	}
	return slog.New(slog.NewTextHandler(output, opts))
}

// Configure sets the level ("debug", "info", "warn", "error") and the format
// ("text" or "json"). Unknown levels fall back to info.
func Configure(lvl, fmtName string) {
	mu.Lock()
	defer mu.Unlock()
	level.Set(ParseLevel(lvl))
	if fmtName == "json" {
		format = "json"
	} else {
		format = "text"
	}
	log = newLogger()
}

// SetOutput sets the output writer. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	log = newLogger()
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log.With(args...)
}

func Debug(msg string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Error(msg, args...)
}
