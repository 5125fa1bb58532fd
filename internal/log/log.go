package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// current is the process logger. Until Init runs it prints warnings and
// errors to stderr in console format.
var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.New(newConsoleHandler(os.Stderr, slog.LevelWarn)))
}

// Init installs the process logger for verbosity v and the named format.
// An unknown format is an error and leaves the current logger in place.
func Init(v int, format string) error {
	return InitWithOutput(v, format, os.Stderr)
}

// InitWithOutput is Init with an explicit destination.
func InitWithOutput(v int, format string, out io.Writer) error {
	if !ValidFormat(format) {
		return fmt.Errorf("unknown log format %q: must be one of %s, %s, %s",
			format, FormatConsole, FormatText, FormatJSON)
	}

	l := slog.New(NewHandler(HandlerOptions{
		Level:  VerbosityToLevel(v),
		Format: format,
		Output: out,
	}))
	current.Store(l)
	slog.SetDefault(l)
	return nil
}

// Component returns a logger whose records carry component=name.
func Component(name string) *slog.Logger {
	return current.Load().With("component", name)
}

// Error logs at error level (v=0).
func Error(msg string, args ...any) { current.Load().Error(msg, args...) }

// Warn logs at warn level (v=1).
func Warn(msg string, args ...any) { current.Load().Warn(msg, args...) }

// Info logs at info level (v=2).
func Info(msg string, args ...any) { current.Load().Info(msg, args...) }

// Debug logs at debug level (v=3).
func Debug(msg string, args ...any) { current.Load().Debug(msg, args...) }

// Trace logs at trace level (v=4).
func Trace(msg string, args ...any) {
	current.Load().Log(context.Background(), LevelTrace, msg, args...)
}
