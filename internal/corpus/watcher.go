package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a path must be quiet before it is re-read.
const DefaultDebounce = 500 * time.Millisecond

// ChangeHandler receives an example whose file settled after a change.
type ChangeHandler func(ctx context.Context, ex Example)

// Watcher re-reads examples as their files change.
// The handler is always called from the goroutine running Run.
type Watcher struct {
	loader   *Loader
	fs       *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger
}

// NewWatcher creates a watcher over every quest and category directory of the loader's tree.
func NewWatcher(loader *Loader, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		loader:   loader,
		fs:       fsw,
		debounce: debounce,
		logger:   logger,
	}

	if err := w.addTree(); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree registers the root and the two directory levels under it.
func (w *Watcher) addTree() error {
	root := w.loader.Root()
	if err := w.fs.Add(root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}

	quests, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("failed to read example root: %w", err)
	}
	for _, quest := range quests {
		if !quest.IsDir() || isHidden(quest.Name()) {
			continue
		}
		questDir := filepath.Join(root, quest.Name())
		w.addDir(questDir)

		categories, err := os.ReadDir(questDir)
		if err != nil {
			w.logger.Warn("failed to read quest directory", zap.String("path", questDir), zap.Error(err))
			continue
		}
		for _, category := range categories {
			if category.IsDir() && !isHidden(category.Name()) {
				w.addDir(filepath.Join(questDir, category.Name()))
			}
		}
	}
	return nil
}

func (w *Watcher) addDir(dir string) {
	if err := w.fs.Add(dir); err != nil {
		w.logger.Warn("failed to watch directory", zap.String("path", dir), zap.Error(err))
	}
}

// depth returns how many path segments path sits below the root.
func (w *Watcher) depth(path string) int {
	rel, err := filepath.Rel(w.loader.Root(), path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}

// Run processes file events until ctx is cancelled. Changes to the same file
// within the debounce window collapse into one handler call.
func (w *Watcher) Run(ctx context.Context, handle ChangeHandler) error {
	defer w.fs.Close()

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.onEvent(event, pending)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", zap.Error(err))

		case now := <-ticker.C:
			for path, seen := range pending {
				if now.Sub(seen) < w.debounce {
					continue
				}
				delete(pending, path)
				w.dispatch(ctx, path, handle)
			}
		}
	}
}

func (w *Watcher) onEvent(event fsnotify.Event, pending map[string]time.Time) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if d := w.depth(event.Name); d >= 1 && d <= 2 && !isHidden(filepath.Base(event.Name)) {
				w.addDir(event.Name)
			}
			return
		}
	}

	if _, ok := w.loader.RefFromPath(event.Name); ok {
		pending[event.Name] = time.Now()
	}
}

func (w *Watcher) dispatch(ctx context.Context, path string, handle ChangeHandler) {
	ref, ok := w.loader.RefFromPath(path)
	if !ok {
		return
	}
	if _, err := os.Stat(path); err != nil {
		// removed or renamed away before it settled
		return
	}

	ex, err := w.loader.Read(ref)
	if err != nil {
		w.logger.Warn("failed to re-read changed example", zap.String("example", ref.Key()), zap.Error(err))
		return
	}
	w.logger.Debug("example changed", zap.String("example", ref.Key()))
	handle(ctx, ex)
}
