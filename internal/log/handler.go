package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Log formats accepted by HandlerOptions.Format.
const (
	FormatText    = "text"
	FormatJSON    = "json"
	FormatConsole = "console"
)

// ValidFormat reports whether format names a known handler.
func ValidFormat(format string) bool {
	switch format {
	case FormatText, FormatJSON, FormatConsole:
		return true
	}
	return false
}

// HandlerOptions configures the log handler.
type HandlerOptions struct {
	Level     slog.Leveler
	Format    string // "text", "json" or "console"
	Output    io.Writer
	AddSource bool
}

// NewHandler creates appropriate handler based on options.
func NewHandler(opts HandlerOptions) slog.Handler {
	if opts.Output == nil {
		opts.Output = os.Stderr // Always stderr, never stdout
	}

	handlerOpts := &slog.HandlerOptions{
		Level:       opts.Level,
		AddSource:   opts.AddSource,
		ReplaceAttr: replaceLevelNames,
	}

	switch opts.Format {
	case FormatJSON:
		return slog.NewJSONHandler(opts.Output, handlerOpts)
	case FormatConsole:
		return newConsoleHandler(opts.Output, opts.Level)
	default:
		return slog.NewTextHandler(opts.Output, handlerOpts)
	}
}

// replaceLevelNames customizes level display (TRACE, etc.).
func replaceLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level, ok := a.Value.Any().(slog.Level)
		if ok {
			a.Value = slog.StringValue(LevelName(level))
		}
	}
	return a
}

// consoleHandler prints one human readable line per record:
//
//	[POLYBUILD] finished converting Polybuild.toml output=.polybuild.mk
//
// The tag is bold when the output is a terminal.
type consoleHandler struct {
	mu    *sync.Mutex
	out   io.Writer
	level slog.Leveler
	tag   string
	attrs []slog.Attr
}

func newConsoleHandler(out io.Writer, level slog.Leveler) *consoleHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	tag := "[POLYBUILD]"
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		tag = "\033[1m[POLYBUILD]\033[0m"
	}
	return &consoleHandler{mu: &sync.Mutex{}, out: out, level: level, tag: tag}
}

func (h *consoleHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(h.tag)
	if r.Level >= slog.LevelWarn {
		sb.WriteString(" " + LevelName(r.Level) + ":")
	}
	sb.WriteString(" " + r.Message)

	writeAttr := func(a slog.Attr) bool {
		if a.Equal(slog.Attr{}) {
			return true
		}
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value.Resolve())
		return true
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(writeAttr)
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, sb.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup is a no-op: console output is flat.
func (h *consoleHandler) WithGroup(string) slog.Handler { return h }
