package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// TuningWatcher watches a tuning file for changes and hot-reloads the
// session constants without a restart
type TuningWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	current  Tuning
	mu       sync.RWMutex
	onChange []func(Tuning)
	logger   *zap.Logger
	stopCh   chan struct{}
	validate *validator.Validate
}

// NewTuningWatcher creates a watcher seeded from the given file
func NewTuningWatcher(tuningPath string, logger *zap.Logger) (*TuningWatcher, error) {
	tuning, err := loadTuningFromFile(tuningPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial tuning: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(tuningPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch tuning file: %w", err)
	}

	// Also watch the directory for atomic saves (rename operations)
	dir := filepath.Dir(tuningPath)
	if err := watcher.Add(dir); err != nil {
		logger.Warn("Failed to watch tuning directory", zap.Error(err))
	}

	return &TuningWatcher{
		path:     tuningPath,
		watcher:  watcher,
		current:  tuning,
		onChange: make([]func(Tuning), 0),
		logger:   logger,
		stopCh:   make(chan struct{}),
		validate: validator.New(),
	}, nil
}

// Current returns the active tuning
func (w *TuningWatcher) Current() Tuning {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked after every successful reload
func (w *TuningWatcher) OnChange(handler func(Tuning)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, handler)
}

// Start begins watching for tuning changes
func (w *TuningWatcher) Start() {
	go w.watchLoop()
	w.logger.Info("Tuning watcher started", zap.String("path", w.path))
}

// Stop stops watching for tuning changes
func (w *TuningWatcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
	w.logger.Info("Tuning watcher stopped")
}

// watchLoop is the main loop that watches for file changes
func (w *TuningWatcher) watchLoop() {
	// Debounce timer to avoid multiple reloads on editor write bursts
	var debounceTimer *time.Timer
	debounceDuration := 100 * time.Millisecond

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					w.handleTuningChange()
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

// handleTuningChange reloads and validates the tuning file
func (w *TuningWatcher) handleTuningChange() {
	w.logger.Info("Tuning file changed, reloading", zap.String("path", w.path))

	newTuning, err := loadTuningFromFile(w.path)
	if err != nil {
		w.logger.Error("Failed to reload tuning", zap.Error(err))
		return
	}

	if err := w.validate.Struct(newTuning); err != nil {
		w.logger.Error("Invalid tuning, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	old := w.current
	w.current = newTuning
	handlers := append(make([]func(Tuning), 0, len(w.onChange)), w.onChange...)
	w.mu.Unlock()

	if old.HoverClearDebounce != newTuning.HoverClearDebounce {
		w.logger.Info("Hover debounce changed",
			zap.Duration("old", old.HoverClearDebounce),
			zap.Duration("new", newTuning.HoverClearDebounce),
		)
	}
	if old.ViewportThrottle != newTuning.ViewportThrottle {
		w.logger.Info("Viewport throttle changed",
			zap.Duration("old", old.ViewportThrottle),
			zap.Duration("new", newTuning.ViewportThrottle),
		)
	}

	for _, handler := range handlers {
		handler(newTuning)
	}

	w.logger.Info("Tuning reloaded successfully")
}

// loadTuningFromFile reads tuning from a YAML file, filling unset fields
// from the defaults
func loadTuningFromFile(path string) (Tuning, error) {
	tuning := DefaultTuning()

	data, err := os.ReadFile(path)
	if err != nil {
		return tuning, err
	}
	if err := yaml.Unmarshal(data, &tuning); err != nil {
		return tuning, err
	}
	return tuning, nil
}
