// Package log provides structured logging with verbosity levels for polybuild.
// It wraps log/slog and follows kubectl/klog patterns: -v=N selects how much
// is printed, and everything goes to stderr so generated output on stdout
// stays clean.
package log

import "log/slog"

// LevelTrace is a custom level below Debug for per-header detail.
const LevelTrace = slog.Level(-8)

// Verbosity level constants for documentation and reference.
const (
	VerbosityError = 0 // Errors only (quiet)
	VerbosityWarn  = 1 // + Warnings (unknown config keys, ignored overlay keys)
	VerbosityInfo  = 2 // + Info (config loaded, script written)
	VerbosityDebug = 3 // + Debug (sources discovered, headers found)
	VerbosityTrace = 4 // + Trace (closure sizes, rendered rule counts)
)

// VerbosityToLevel maps -v=N to a slog level.
func VerbosityToLevel(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelError
	case v == 1:
		return slog.LevelWarn
	case v == 2:
		return slog.LevelInfo
	case v == 3:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

// LevelName returns the name for a level, including custom levels.
func LevelName(l slog.Level) string {
	if l == LevelTrace {
		return "TRACE"
	}
	return l.String()
}
