// Package watch runs a long-lived watcher over the JSON data directory and
// triggers a database sync whenever the files change. Rapid editor saves are
// debounced so a burst of writes produces a single sync run.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SyncFunc runs one sync pass. changed lists the data files that triggered
// it, relative to the data directory; it is nil for the startup pass.
type SyncFunc func(ctx context.Context, changed []string) error

// Config holds tuning knobs for the watcher.
type Config struct {
	// DebounceInterval is how long a file must sit quiet in the change
	// queue before a sync runs. Batches rapid saves together.
	DebounceInterval time.Duration

	// Logger for watcher activity.
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 500 * time.Millisecond,
		Logger:           slog.Default(),
	}
}

// Watcher monitors a data directory and reruns the sync on changes.
type Watcher struct {
	dataDir string
	syncFn  SyncFunc
	config  *Config

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time
	changeQueueMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Watcher over dataDir. Use Start to begin watching.
func New(dataDir string, syncFn SyncFunc, config *Config) (*Watcher, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("dataDir cannot be empty")
	}
	if syncFn == nil {
		return nil, fmt.Errorf("syncFn cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultConfig().DebounceInterval
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		dataDir:     dataDir,
		syncFn:      syncFn,
		config:      config,
		watcher:     fsw,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start runs an initial sync, then watches the data directory until ctx is
// cancelled or Stop is called. It blocks for the lifetime of the watcher.
func (w *Watcher) Start(ctx context.Context) error {
	w.config.Logger.Info("starting watcher", "dir", w.dataDir)

	if err := w.syncFn(ctx, nil); err != nil {
		return fmt.Errorf("initial sync failed: %w", err)
	}

	if err := w.watcher.Add(w.dataDir); err != nil {
		return fmt.Errorf("failed to watch data directory: %w", err)
	}

	w.wg.Add(2)
	go w.watchFileEvents()
	go w.processChangeQueue()

	select {
	case <-ctx.Done():
		w.config.Logger.Info("shutdown signal received")
		return w.Stop()
	case <-w.ctx.Done():
		return nil
	}
}

// Stop shuts the watcher down and waits for its goroutines to exit.
func (w *Watcher) Stop() error {
	w.cancel()
	if err := w.watcher.Close(); err != nil {
		w.config.Logger.Warn("error closing watcher", "error", err)
	}
	w.wg.Wait()
	w.config.Logger.Info("watcher stopped")
	return nil
}

// watchFileEvents queues relevant filesystem events.
func (w *Watcher) watchFileEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !w.relevant(event.Name) {
				continue
			}
			w.config.Logger.Debug("file event", "op", event.Op.String(), "file", event.Name)
			w.queueChange(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.config.Logger.Warn("watcher error", "error", err)
		}
	}
}

// relevant reports whether a changed path should trigger a sync. The hash
// store file is written by the sync itself and would loop forever.
func (w *Watcher) relevant(path string) bool {
	if filepath.Ext(path) != ".json" {
		return false
	}
	return filepath.Base(path) != "hashes.json"
}

func (w *Watcher) queueChange(path string) {
	w.changeQueueMu.Lock()
	defer w.changeQueueMu.Unlock()
	w.changeQueue[path] = time.Now()
}

// processChangeQueue drains the change queue on a debounce ticker.
func (w *Watcher) processChangeQueue() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.processPendingChanges()
		}
	}
}

// processPendingChanges runs one sync for every file that has sat quiet for
// at least the debounce interval.
func (w *Watcher) processPendingChanges() {
	changed := w.takeRipeChanges()
	if len(changed) == 0 {
		return
	}

	w.config.Logger.Info("data files changed, syncing", "files", changed)
	if err := w.syncFn(w.ctx, changed); err != nil {
		w.config.Logger.Error("sync failed", "error", err)
	}
}

func (w *Watcher) takeRipeChanges() []string {
	w.changeQueueMu.Lock()
	defer w.changeQueueMu.Unlock()

	now := time.Now()
	var changed []string
	for path, queuedAt := range w.changeQueue {
		if now.Sub(queuedAt) < w.config.DebounceInterval {
			continue
		}
		rel, err := filepath.Rel(w.dataDir, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		changed = append(changed, rel)
		delete(w.changeQueue, path)
	}
	sort.Strings(changed)
	return changed
}
