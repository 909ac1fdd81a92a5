package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/char5742/groovy-lsp/internal/config"
	"github.com/char5742/groovy-lsp/internal/logging"
)

// watcher is an fsnotify-driven incremental-update trigger, grounded on the
// teacher's FileWatcher: recursive directory watches, a debounced event
// flush, and an ignore check reused from the initial scan's exclude/
// gitignore logic instead of a separate FileScanner type.
type watcher struct {
	cfg       config.Config
	gitignore *config.GitignoreParser
	fsw       *fsnotify.Watcher
	onChange  func(ctx context.Context, path string) error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	debounce time.Duration
	mu       sync.Mutex
	pending  map[string]struct{}
	timer    *time.Timer
}

func newWatcher(cfg config.Config, gi *config.GitignoreParser, debounce time.Duration, onChange func(ctx context.Context, path string) error) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &watcher{
		cfg:       cfg,
		gitignore: gi,
		fsw:       fsw,
		onChange:  onChange,
		ctx:       ctx,
		cancel:    cancel,
		debounce:  debounce,
		pending:   make(map[string]struct{}),
	}, nil
}

// start adds recursive watches under root and begins processing fsnotify
// events, mirroring FileWatcher.Start/addWatches.
func (w *watcher) start(root string) error {
	visited := make(map[string]bool)
	err := filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && rel != "." && shouldExcludeDir(w.cfg, w.gitignore, filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			logging.Warnf(component, "failed to watch %s: %v", path, addErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.wg.Add(1)
	go w.processEvents()
	return nil
}

func (w *watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.addEvent(event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Warnf(component, "file watcher error: %v", err)
		}
	}
}

func (w *watcher) addEvent(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *watcher) flush() {
	w.mu.Lock()
	paths := w.pending
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	for path := range paths {
		if err := w.onChange(context.Background(), path); err != nil {
			logging.Debugf(component, "update_file %s: %v", path, err)
		}
	}
}

// stop cancels event processing and closes the fsnotify watcher. Events
// pending in the debounce window at shutdown are dropped deliberately,
// matching the teacher's "don't flush on shutdown" rule: flushing here can
// race the surrounding lifecycle's own teardown of the Symbol Index.
func (w *watcher) stop() {
	w.cancel()
	_ = w.fsw.Close()
	w.wg.Wait()
}
