// Package watcher ingests files dropped into a directory.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bull/docqa/internal/ingest"
)

// DefaultDebounce is how long a file must stay quiet before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

// Ingester ingests one file from disk.
type Ingester interface {
	IngestPath(ctx context.Context, path string) (*ingest.Result, error)
}

// Watcher ingests each file created in a directory once its writes settle.
// Later writes to a file it already ingested are ignored until the file is
// removed or renamed away, so rewriting a dropped file does not duplicate it.
type Watcher struct {
	fsw      *fsnotify.Watcher
	dir      string
	ingester Ingester
	debounce time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	timers   map[string]*time.Timer
	ingested map[string]struct{}
	ready    chan string
	done     chan struct{}
}

// New starts watching dir, creating it if needed. Call Run to process events.
func New(dir string, ingester Ingester, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create watch dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{
		fsw:      fsw,
		dir:      dir,
		ingester: ingester,
		debounce: debounce,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
		ingested: make(map[string]struct{}),
		ready:    make(chan string, 64),
		done:     make(chan struct{}),
	}, nil
}

// Run processes events until ctx is cancelled. Files are ingested one at a time.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()
	w.logger.Info("Watching drop folder", "dir", w.dir, "debounce", w.debounce)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", "dir", w.dir, "error", err)
		case path := <-w.ready:
			w.ingest(ctx, path)
		}
	}
}

func (w *Watcher) stop() {
	close(w.done)
	w.fsw.Close()

	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if ignored(event.Name) {
		return
	}
	path := event.Name

	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(w.ingested, path)
		return
	case event.Has(fsnotify.Create):
		delete(w.ingested, path)
	case event.Has(fsnotify.Write):
		if _, done := w.ingested[path]; done {
			w.logger.Debug("Ignoring write to already ingested file", "path", path)
			return
		}
	default:
		return
	}

	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}

	result, err := w.ingester.IngestPath(ctx, path)
	if err != nil {
		w.logger.Warn("Failed to ingest dropped file", "path", path, "error", err)
		return
	}
	if len(result.Files) > 0 {
		w.mu.Lock()
		w.ingested[path] = struct{}{}
		w.mu.Unlock()
	}
	for _, f := range result.Files {
		w.logger.Info("Ingested dropped file", "path", path, "doc_id", f.DocumentID, "units", f.Units)
	}
	for _, f := range result.Failed {
		w.logger.Warn("Dropped file rejected", "path", path, "doc_id", f.DocumentID, "error", f.Reason)
	}
}

// ignored skips hidden files and editor or download temp files.
func ignored(path string) bool {
	name := filepath.Base(path)
	switch {
	case strings.HasPrefix(name, "."),
		strings.HasSuffix(name, "~"),
		strings.HasSuffix(name, ".tmp"),
		strings.HasSuffix(name, ".part"),
		strings.HasSuffix(name, ".crdownload"):
		return true
	}
	return false
}
