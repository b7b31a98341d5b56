package config

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/wippyai/tierup/errors"
	"github.com/wippyai/tierup/jit"
)

// DefaultDebounce is how long a file must stay quiet before it is reloaded.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a configuration file when it changes and hands every
// valid result to a callback. Invalid files are logged and skipped; the
// previous configuration stays in effect.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange func(*Config)
	logger   *zap.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	path     string
	debounce time.Duration
	reloads  atomic.Int64
	failures atomic.Int64
	stopOnce sync.Once
	started  atomic.Bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher creates a watcher for the file at path.
func NewWatcher(path string, onChange func(*Config), opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "resolve config path")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotInitialized, err, "create file watcher")
	}

	w := &Watcher{
		watcher:  fw,
		onChange: onChange,
		logger:   zap.NewNop(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		path:     abs,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// ReconfigureCompiler returns a callback that publishes the jit section of
// every reloaded configuration to c.
func ReconfigureCompiler(c *jit.Compiler) func(*Config) {
	return func(cfg *Config) {
		c.Reconfigure(&cfg.JIT)
	}
}

// Start begins watching. The directory is watched rather than the file so
// that editors replacing the file are seen. Start does not block.
func (w *Watcher) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return nil
	}

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		close(w.doneCh)
		return errors.New(errors.PhaseConfig, errors.KindNotFound).
			Path(w.path).
			Detail("watch config directory").
			Cause(err).
			Build()
	}

	go w.run(ctx)
	w.logger.Debug("watching config", zap.String("path", w.path))
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.started.Load() {
			<-w.doneCh
		}
		if err := w.watcher.Close(); err != nil {
			w.logger.Warn("close config watcher", zap.Error(err))
		}
	})
}

// Reloads returns the number of configurations handed to the callback.
func (w *Watcher) Reloads() int64 { return w.reloads.Load() }

// Failures returns the number of reloads rejected as invalid.
func (w *Watcher) Failures() int64 { return w.failures.Load() }

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write) != 0
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.failures.Add(1)
		w.logger.Warn("config reload rejected", zap.String("path", w.path), zap.Error(err))
		return
	}

	w.reloads.Add(1)
	w.logger.Info("config reloaded",
		zap.String("path", w.path),
		zap.Int("excluded", len(cfg.JIT.Exclude)),
	)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
