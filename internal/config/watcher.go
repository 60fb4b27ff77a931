package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses bursts of writes from editors into one reload.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads the configuration file when it changes and notifies
// registered callbacks with the new configuration.
type Watcher struct {
	loader    *Loader
	config    *Config
	callbacks []func(*Config)
	debounce  time.Duration
	mu        sync.RWMutex
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewWatcher creates a watcher that starts from initial. Call Start to begin
// watching.
func NewWatcher(loader *Loader, initial *Config, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		loader:   loader,
		config:   initial,
		debounce: DefaultDebounce,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start watches the directory holding the configuration file. Watching the
// directory keeps working when editors replace the file by renaming.
func (w *Watcher) Start() error {
	if w.loader.Path() == "" {
		w.logger.Info("Configuration hot reloading disabled: no config file")
		return nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(w.loader.Path())); err != nil {
		fsWatcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}
	w.watcher = fsWatcher

	go w.watchLoop()

	w.logger.Info("Configuration hot reloading enabled",
		zap.String("file", w.loader.Path()))
	return nil
}

func (w *Watcher) watchLoop() {
	defer w.watcher.Close()

	target := filepath.Clean(w.loader.Path())
	var debounceTimer *time.Timer

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			w.logger.Debug("Configuration file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()))

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.Reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		}
	}
}

// Reload reads the configuration again. An invalid file is logged and the
// current configuration stays in effect.
func (w *Watcher) Reload() {
	next, err := w.loader.Load()
	if err != nil {
		w.logger.Error("Invalid configuration after reload", zap.Error(err))
		return
	}

	w.mu.Lock()
	previous := w.config
	if reflect.DeepEqual(stripSources(previous), stripSources(next)) {
		w.mu.Unlock()
		w.logger.Debug("Configuration unchanged after reload")
		return
	}
	w.config = next
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	if previous != nil && previous.Logging.Level != next.Logging.Level {
		w.logger.Info("Configuration changes detected",
			zap.String("log_level", previous.Logging.Level+" -> "+next.Logging.Level))
	}

	for i, cb := range callbacks {
		w.invoke(i, cb, next)
	}
	w.logger.Info("Configuration reloaded", zap.Int("callbacks_notified", len(callbacks)))
}

func (w *Watcher) invoke(idx int, cb func(*Config), cfg *Config) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Configuration callback panicked",
				zap.Int("callback_index", idx),
				zap.Any("panic", r))
		}
	}()
	cb(cfg)
}

// OnChange registers a callback for configuration changes.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, callback)
	w.mu.Unlock()
}

// Current returns the configuration in effect.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Stop ends watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func stripSources(c *Config) Config {
	if c == nil {
		return Config{}
	}
	out := *c
	out.LoadedFrom = nil
	return out
}
