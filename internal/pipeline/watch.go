package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rheese/tablescan/internal/errdefs"
)

// DefaultDebounce is how long a path must stay quiet before it is processed.
// Copying a large PDF into the input directory emits a burst of write events;
// the debounce collapses the burst into a single run.
const DefaultDebounce = 2 * time.Second

// Watcher hands newly arrived PDFs to a handler. Create and Write events for
// .pdf paths are debounced per path, everything else is ignored.
type Watcher struct {
	Dir      string
	Debounce time.Duration
	Handle   func(ctx context.Context, pdfPath string)
	Logger   *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher creates a watcher on dir, filling in defaults for zero values.
func NewWatcher(dir string, debounce time.Duration, handle func(context.Context, string), logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		Dir:      dir,
		Debounce: debounce,
		Handle:   handle,
		Logger:   logger,
		timers:   make(map[string]*time.Timer),
	}
}

// Run watches the directory until the context is canceled. Cancellation is a
// clean shutdown, not an error.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errdefs.Wrap(errdefs.KindIO, err, "failed to create filesystem watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(w.Dir); err != nil {
		return errdefs.Wrap(errdefs.KindIO, err, "failed to watch input directory")
	}

	w.Logger.Info("watching for pdfs", "dir", w.Dir, "debounce", w.Debounce)

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".pdf") {
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.Logger.Warn("watch error", "error", err)
		}
	}
}

// schedule arms the debounce timer for one path, resetting it if the path is
// still being written to.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}

	w.timers[path] = time.AfterFunc(w.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		w.Logger.Info("pdf settled", "file", filepath.Base(path))
		w.Handle(ctx, path)
	})
}
