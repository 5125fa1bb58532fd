package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/polybuild/polybuild/internal/digest"
	"github.com/polybuild/polybuild/pkg/source"
)

// DefaultDebounce is used when Config.Debounce is not positive.
const DefaultDebounce = 500 * time.Millisecond

// headerExtensions are watched in addition to source extensions, so that a
// header created in a watched directory triggers a generation.
var headerExtensions = map[string]bool{
	".h":   true,
	".hh":  true,
	".hpp": true,
	".hxx": true,
	".inl": true,
}

// Outcome describes one generation.
type Outcome struct {
	// Inputs are the files the generation read: the config file, every
	// source and every header of every closure.
	Inputs []string

	// Dirs are the directories to watch for new inputs.
	Dirs []string

	// Written are the files whose content changed on disk.
	Written []string
}

// RegenerateFunc runs one generation.
type RegenerateFunc func() (Outcome, error)

// Config configures the watcher.
type Config struct {
	// Root is the project directory. It is always watched.
	Root string

	// ConfigName is the base name of the project file.
	ConfigName string

	Debounce time.Duration
	Verbose  bool
	NoColor  bool
	JSON     bool
	Writer   io.Writer

	Regenerate RegenerateFunc
}

// Watcher regenerates the rule script when inputs change.
type Watcher struct {
	config    Config
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	logger    *Logger

	// mu serializes generations and guards the fields below.
	mu          sync.Mutex
	inputs      map[string]struct{}
	fingerprint string
	watched     map[string]struct{}
}

// New creates a watcher. Paths are compared in absolute form.
func New(cfg Config) (*Watcher, error) {
	if cfg.Regenerate == nil {
		return nil, errors.New("watch: Regenerate is required")
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", cfg.Root, err)
	}
	cfg.Root = root

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		config:    cfg,
		fsWatcher: fsWatcher,
		logger: NewLogger(LoggerConfig{
			Writer:  cfg.Writer,
			Verbose: cfg.Verbose,
			NoColor: cfg.NoColor,
			JSON:    cfg.JSON,
		}),
		inputs:  make(map[string]struct{}),
		watched: make(map[string]struct{}),
	}, nil
}

// Run generates once, then regenerates on every debounced batch of
// changes until ctx is cancelled. A failed generation is reported and the
// watcher keeps running, so a broken config can be fixed in place.
func (w *Watcher) Run(ctx context.Context) error {
	window := w.config.Debounce
	if window <= 0 {
		window = DefaultDebounce
	}
	w.debouncer = NewDebouncer(window, w.handleChanged)
	defer w.debouncer.Stop()

	if err := w.watchDir(w.config.Root); err != nil {
		return fmt.Errorf("failed to watch project: %w", err)
	}

	w.mu.Lock()
	w.regenerateLocked()
	inputs, dirs := len(w.inputs), len(w.watched)
	w.mu.Unlock()
	w.logger.Ready(inputs, dirs, w.config.Root)

	for {
		select {
		case <-ctx.Done():
			w.logger.Shutdown()
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if !w.relevant(path) {
		return
	}

	var change ChangeType
	switch {
	case event.Has(fsnotify.Create):
		change = ChangeAdded
	case event.Has(fsnotify.Write):
		change = ChangeModified
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		change = ChangeDeleted
	default:
		return
	}

	w.logger.FileChanged(w.display(path), change)
	w.debouncer.Add(path)
}

// relevant reports whether a change to path can affect the generated
// script.
func (w *Watcher) relevant(path string) bool {
	w.mu.Lock()
	_, known := w.inputs[path]
	w.mu.Unlock()
	if known {
		return true
	}

	name := filepath.Base(path)
	if w.config.ConfigName != "" && name == w.config.ConfigName {
		return true
	}
	ext := filepath.Ext(name)
	return source.KindOf(name) != source.None || headerExtensions[ext]
}

// handleChanged runs when the debouncer flushes. Batches that only touch
// known inputs whose combined digest is unchanged are skipped.
func (w *Watcher) handleChanged(paths []string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	slices.Sort(paths)
	display := make([]string, len(paths))
	for i, p := range paths {
		display[i] = w.display(p)
	}

	if w.unchangedLocked(paths) {
		w.logger.Skipped(display)
		return
	}

	w.logger.Regenerating(display)
	w.regenerateLocked()
}

func (w *Watcher) unchangedLocked(paths []string) bool {
	if w.fingerprint == "" {
		return false
	}
	for _, p := range paths {
		if _, ok := w.inputs[p]; !ok {
			return false
		}
	}
	current, err := digest.Fingerprint(w.sortedInputsLocked())
	return err == nil && current == w.fingerprint
}

// regenerateLocked runs one generation and refreshes the input set and
// watched directories. Caller must hold w.mu.
func (w *Watcher) regenerateLocked() {
	outcome, err := w.config.Regenerate()
	if err != nil {
		w.logger.Error(err)
		w.fingerprint = ""
		return
	}

	w.inputs = make(map[string]struct{}, len(outcome.Inputs))
	for _, p := range outcome.Inputs {
		w.inputs[w.abs(p)] = struct{}{}
	}

	fingerprint, err := digest.Fingerprint(w.sortedInputsLocked())
	if err != nil {
		w.logger.Error(err)
		fingerprint = ""
	}
	w.fingerprint = fingerprint

	for _, dir := range outcome.Dirs {
		if err := w.watchDir(w.abs(dir)); err != nil {
			w.logger.Error(err)
		}
	}

	written := make([]string, len(outcome.Written))
	for i, p := range outcome.Written {
		written[i] = w.display(w.abs(p))
	}
	w.logger.Regenerated(written)
}

func (w *Watcher) sortedInputsLocked() []string {
	paths := make([]string, 0, len(w.inputs))
	for p := range w.inputs {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// watchDir adds a single directory. Directories are not descended into:
// source directories are scanned non-recursively.
func (w *Watcher) watchDir(dir string) error {
	if _, ok := w.watched[dir]; ok {
		return nil
	}
	if err := w.fsWatcher.Add(dir); err != nil {
		if isWatchLimitError(err) {
			return fmt.Errorf("inotify watch limit reached for %s: %w\n"+
				"Increase limit with: sudo sysctl fs.inotify.max_user_watches=524288", dir, err)
		}
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.watched[dir] = struct{}{}
	return nil
}

func (w *Watcher) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(w.config.Root, path)
}

// display returns path relative to the project root when possible.
func (w *Watcher) display(path string) string {
	if rel, err := filepath.Rel(w.config.Root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// isWatchLimitError checks if an error is due to inotify watch limits.
func isWatchLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "no space left on device") ||
		strings.Contains(errStr, "too many open files")
}

// Close releases the file watcher.
func (w *Watcher) Close() error {
	if w.fsWatcher != nil {
		return w.fsWatcher.Close()
	}
	return nil
}
