package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// WatcherConfig configures the workflow directory watcher
type WatcherConfig struct {
	// Directories to watch. Entries may be globs as accepted by
	// Catalog.LoadGlob; the directory before the first glob character is
	// watched (non-recursive) and only files matching the glob are added.
	Directories []string

	// DebounceDelay is how long to wait for more changes before processing
	DebounceDelay time.Duration

	// Logger for logging events
	Logger *slog.Logger
}

// Watcher keeps a Catalog in sync with workflow files appearing in a set of
// directories. New and modified files are (re)registered under their derived
// name. Removed files are only logged: hooks already bound to a workflow keep
// their reference.
type Watcher struct {
	config  WatcherConfig
	catalog *Catalog
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	patterns []string

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op // path → most recent operation

	added chan string
}

// NewWatcher creates a watcher feeding catalog.
func NewWatcher(catalog *Catalog, config WatcherConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.DebounceDelay <= 0 {
		config.DebounceDelay = 100 * time.Millisecond
	}

	return &Watcher{
		config:  config,
		catalog: catalog,
		watcher: fsw,
		logger:  logger,
		pending: make(map[string]fsnotify.Op),
		added:   make(chan string, 100),
	}, nil
}

// Added returns a channel receiving the name of every workflow the watcher
// registers. Sends are dropped when the channel is full.
func (w *Watcher) Added() <-chan string {
	return w.added
}

// Start begins watching. Processing stops when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	for _, entry := range w.config.Directories {
		dir, pattern := splitGlob(entry)
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.patterns = append(w.patterns, pattern)
		w.logger.Debug("Watching workflow directory", "path", dir, "pattern", pattern)
	}

	go w.processEvents(ctx)

	w.logger.Info("Workflow watcher started",
		"directories", w.config.Directories,
		"debounce", w.config.DebounceDelay)
	return nil
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if strings.HasPrefix(filepath.Base(event.Name), ".") || !w.matches(event.Name) {
		return
	}

	w.pendingMu.Lock()
	w.pending[event.Name] = event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("Workflow file change detected",
		"path", event.Name,
		"op", event.Op.String())
}

func (w *Watcher) matches(path string) bool {
	path = filepath.Clean(path)
	for _, pattern := range w.patterns {
		if ok, _ := doublestar.PathMatch(pattern, path); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for path, op := range toProcess {
		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			w.logger.Info("Workflow file removed; existing hooks keep their reference",
				"path", path,
				"workflow", NameFromPath(path))
			continue
		}

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		wf, err := w.catalog.AddWorkflow(path, "")
		if err != nil {
			w.logger.Warn("Failed to register workflow", "path", path, "error", err)
			continue
		}
		w.logger.Info("Registered workflow", "workflow", wf.Name(), "path", wf.Path())

		select {
		case w.added <- wf.Name():
		default:
		}
	}
}
