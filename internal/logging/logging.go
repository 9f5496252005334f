// Package logging provides structured logging for the host controller and
// the in-container agent, built on log/slog.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Level mirrors slog.Level with a stable, lowercase string form for flags.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

func (l Level) toSlog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var (
	mu        sync.Mutex
	levelVar  = new(slog.LevelVar)
	logger    = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
)

// SetLevel adjusts the global minimum log level for the host CLI logger.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	levelVar.Set(l.toSlog())
}

// SetVerbose is a convenience wrapper matching the CLI's -v/-q flags.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(LevelDebug)
	}
}

// SetQuiet raises the threshold so only errors are printed.
func SetQuiet(quiet bool) {
	if quiet {
		SetLevel(LevelError)
	}
}

func get() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

func Debug(msg string, args ...any) { get().Debug(msg, args...) }
func Info(msg string, args ...any)  { get().Info(msg, args...) }
func Warn(msg string, args ...any)  { get().Warn(msg, args...) }
func Error(msg string, args ...any) { get().Error(msg, args...) }

// With returns a child logger with the given structured attributes attached.
func With(args ...any) *slog.Logger { return get().With(args...) }

// WithContext returns the global logger; kept for symmetry with contexts
// that carry a deadline/cancellation the caller wants to log against.
func WithContext(ctx context.Context) *slog.Logger { return get() }

// NewFileLogger returns a *slog.Logger that writes JSON lines to path
// through a rotating writer.
func NewFileLogger(path string, level Level) *slog.Logger {
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level.toSlog()}))
}

// RotatingWriter returns an io.WriteCloser suitable for the Process
// Runner's Logged mode: a rotating file sink so long-lived per-workspace
// init logs don't grow unbounded.
func RotatingWriter(path string) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    20,
		MaxBackups: 5,
		MaxAge:     90,
	}
}

// ParseLevel parses a level name, defaulting to info on unrecognized input.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}
