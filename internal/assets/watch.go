package assets

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/dreamfield/internal/logger"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 150 * time.Millisecond

// Watcher reports changes to individual files. It watches the parent
// directories so files replaced by rename are still seen.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration

	mu    sync.Mutex
	files map[string]string // absolute path -> name given to Add
	dirs  map[string]bool

	changes chan string
}

// NewWatcher creates a watcher. A zero debounce uses DefaultDebounce.
func NewWatcher(debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		fs:       fsw,
		debounce: debounce,
		files:    make(map[string]string),
		dirs:     make(map[string]bool),
		changes:  make(chan string, 8),
	}, nil
}

// Add starts watching path. Change notifications carry name.
func (w *Watcher) Add(name, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.dirs[dir] {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	w.files[abs] = name
	return nil
}

// Changes delivers the name of each changed file once per burst of events.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Run forwards debounced changes until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.changes)
	defer w.fs.Close()

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case e, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) && !e.Has(fsnotify.Rename) {
				continue
			}
			w.mu.Lock()
			name, watched := w.files[filepath.Clean(e.Name)]
			w.mu.Unlock()
			if !watched {
				continue
			}
			pending[name] = true
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.Warn("file watcher error", zap.Error(err))

		case <-timer.C:
			for name := range pending {
				select {
				case w.changes <- name:
				case <-ctx.Done():
					return
				}
				delete(pending, name)
			}
		}
	}
}
