// Package watch reloads a board file whenever it changes on disk.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/loader"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/model"
)

// DefaultDebounce is the quiet period before a reload.
const DefaultDebounce = 100 * time.Millisecond

// Watcher keeps the latest successfully parsed version of a board file.
// A reload that fails keeps the previous board.
type Watcher struct {
	path     string
	loader   *loader.Loader
	debounce time.Duration
	logger   *zap.Logger

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	stopped sync.Once

	mu      sync.RWMutex
	current *model.Board

	onReload []func(*loader.Result)
	onError  []func(error)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithLoader sets the loader used for every parse.
func WithLoader(l *loader.Loader) Option {
	return func(w *Watcher) {
		if l != nil {
			w.loader = l
		}
	}
}

// OnReload registers a handler called after each successful reload.
func OnReload(fn func(*loader.Result)) Option {
	return func(w *Watcher) { w.onReload = append(w.onReload, fn) }
}

// OnError registers a handler called when a reload fails.
func OnError(fn func(error)) Option {
	return func(w *Watcher) { w.onError = append(w.onError, fn) }
}

// New loads the board at path and prepares to watch it. The initial load
// must succeed.
func New(path string, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.loader == nil {
		w.loader = loader.New(loader.WithLogger(w.logger))
	}

	res, err := w.loader.Load(w.path)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial board: %w", err)
	}
	w.current = res.Board

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watching the directory also catches editors that save by renaming a
	// temporary file over the board.
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch board directory: %w", err)
	}
	w.watcher = fw
	return w, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string { return w.path }

// Board returns the current board.
func (w *Watcher) Board() *model.Board {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching in the background.
func (w *Watcher) Start() {
	go w.watchLoop()
	w.logger.Info("board watcher started", zap.String("path", w.path))
}

// Stop ends watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopped.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
		w.logger.Info("board watcher stopped", zap.String("path", w.path))
	})
}

func (w *Watcher) watchLoop() {
	var (
		timerMu  sync.Mutex
		debounce *time.Timer
	)
	defer func() {
		timerMu.Lock()
		if debounce != nil {
			debounce.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			timerMu.Lock()
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(w.debounce, w.reload)
			timerMu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	select {
	case <-w.stopCh:
		return
	default:
	}

	w.logger.Info("board file changed, reloading", zap.String("path", w.path))
	res, err := w.loader.Load(w.path)
	if err != nil {
		w.logger.Error("failed to reload board, keeping current", zap.Error(err))
		for _, fn := range w.onError {
			fn(err)
		}
		return
	}

	w.mu.Lock()
	w.current = res.Board
	w.mu.Unlock()

	for _, fn := range w.onReload {
		fn(res)
	}
}
