package watch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// ChangeType is the kind of a file change.
type ChangeType string

const (
	ChangeAdded    ChangeType = "+"
	ChangeModified ChangeType = "~"
	ChangeDeleted  ChangeType = "-"
)

// Event is one JSON line of --json output.
type Event struct {
	Event    string   `json:"event"`
	Time     string   `json:"time,omitempty"`
	Path     string   `json:"path,omitempty"`
	Change   string   `json:"change,omitempty"`
	Paths    []string `json:"paths,omitempty"`
	Written  []string `json:"written,omitempty"`
	Inputs   int      `json:"inputs,omitempty"`
	Dirs     int      `json:"dirs,omitempty"`
	Error    string   `json:"error,omitempty"`
	Stats    *Stats   `json:"stats,omitempty"`
	Duration string   `json:"duration,omitempty"`
}

// Stats counts what a watch session did.
type Stats struct {
	Regenerations int       `json:"regenerations"`
	Skipped       int       `json:"skipped"`
	Errors        int       `json:"errors"`
	StartTime     time.Time `json:"-"`
}

// LoggerConfig configures the logger.
type LoggerConfig struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
	JSON    bool
}

// Logger reports watch progress as text lines or JSON events.
type Logger struct {
	cfg   LoggerConfig
	color bool

	mu    sync.Mutex
	stats Stats
}

// NewLogger creates a logger writing to cfg.Writer, or stdout. Colors are
// used only when the writer is a terminal and NoColor is unset.
func NewLogger(cfg LoggerConfig) *Logger {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	color := false
	if f, ok := cfg.Writer.(*os.File); ok && !cfg.NoColor {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &Logger{cfg: cfg, color: color, stats: Stats{StartTime: time.Now()}}
}

// Ready reports the watched inputs once the first generation is done.
func (l *Logger) Ready(inputs, dirs int, root string) {
	l.emit(Event{Event: "ready", Inputs: inputs, Dirs: dirs, Path: root}, func() {
		l.printf("polybuild: watching %d inputs in %d directories under %s\n", inputs, dirs, root)
		l.printf("polybuild: ready\n\n")
	})
}

// FileChanged reports one file event. Text output shows it only when
// verbose.
func (l *Logger) FileChanged(path string, change ChangeType) {
	l.emit(Event{Event: "file_changed", Path: path, Change: string(change)}, func() {
		if l.cfg.Verbose {
			l.stamped("%s %s", l.paint(string(change), change), path)
		}
	})
}

// Regenerating reports that a batch of changes triggers a generation.
func (l *Logger) Regenerating(paths []string) {
	l.emit(Event{Event: "regenerating", Paths: paths}, func() {
		if len(paths) == 1 {
			l.stamped("%s changed, regenerating...", paths[0])
		} else {
			l.stamped("%d files changed, regenerating...", len(paths))
		}
	})
}

// Regenerated reports a finished generation. Only files whose content
// changed are listed.
func (l *Logger) Regenerated(written []string) {
	l.count(func(s *Stats) { s.Regenerations++ })
	l.emit(Event{Event: "regenerated", Written: written}, func() {
		mark := l.paint("✓", ChangeAdded)
		if len(written) == 0 {
			l.stamped("%s up to date", mark)
		}
		for _, path := range written {
			l.stamped("%s %s updated", mark, path)
		}
	})
}

// Skipped reports a batch whose inputs hashed the same as before.
func (l *Logger) Skipped(paths []string) {
	l.count(func(s *Stats) { s.Skipped++ })
	l.emit(Event{Event: "skipped", Paths: paths}, func() {
		if l.cfg.Verbose {
			l.stamped("inputs unchanged, skipping")
		}
	})
}

// Error reports a failed generation or watcher error.
func (l *Logger) Error(err error) {
	l.count(func(s *Stats) { s.Errors++ })
	l.emit(Event{Event: "error", Error: err.Error()}, func() {
		l.stamped("%s error: %v", l.paint("✗", ChangeDeleted), err)
	})
}

// Shutdown reports the session totals.
func (l *Logger) Shutdown() {
	stats := l.Stats()
	ev := Event{Event: "shutdown", Stats: &stats, Duration: time.Since(stats.StartTime).Round(time.Millisecond).String()}
	l.emit(ev, func() {
		l.printf("\npolybuild: shutting down (%d regenerations, %d errors)\n", stats.Regenerations, stats.Errors)
	})
}

// Stats returns a snapshot of the counters.
func (l *Logger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *Logger) count(update func(*Stats)) {
	l.mu.Lock()
	update(&l.stats)
	l.mu.Unlock()
}

// emit writes ev as JSON, or runs text otherwise.
func (l *Logger) emit(ev Event, text func()) {
	if !l.cfg.JSON {
		text()
		return
	}
	if ev.Time == "" && ev.Event != "ready" && ev.Event != "shutdown" {
		ev.Time = time.Now().Format(time.RFC3339)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		data = []byte(`{"event":"internal_error","error":"json marshal failed"}`)
	}
	l.printf("%s\n", data)
}

// stamped prints one line prefixed with the wall clock time.
func (l *Logger) stamped(format string, args ...any) {
	l.printf("[%s] "+format+"\n", append([]any{time.Now().Format("15:04:05")}, args...)...)
}

func (l *Logger) paint(s string, change ChangeType) string {
	if !l.color {
		return s
	}
	codes := map[ChangeType]string{
		ChangeAdded:    "\033[32m",
		ChangeModified: "\033[33m",
		ChangeDeleted:  "\033[31m",
	}
	return codes[change] + s + "\033[0m"
}

// printf drops write errors; the output is informational.
func (l *Logger) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(l.cfg.Writer, format, args...)
}
