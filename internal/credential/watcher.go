package credential

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"identity-mcp/pkg/logging"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the quiet period after the last file event
// before OnChange runs.
const DefaultDebounceInterval = 250 * time.Millisecond

// WatcherConfig configures a StoreWatcher.
type WatcherConfig struct {
	// Dir is the credential store directory.
	Dir string
	// FileName is the store file to react to. Empty reacts to every file.
	FileName string
	// Debounce overrides DefaultDebounceInterval.
	Debounce time.Duration
	// OnChange runs after the file was written, created, renamed or removed.
	OnChange func()
}

// StoreWatcher notices out-of-process changes to the credential store, such
// as `identity-mcp login` run in another terminal.
type StoreWatcher struct {
	mu      sync.Mutex
	config  WatcherConfig
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
}

// NewStoreWatcher creates a watcher. Call Start to begin watching.
func NewStoreWatcher(config WatcherConfig) *StoreWatcher {
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounceInterval
	}
	return &StoreWatcher{config: config}
}

// Start begins watching the directory.
func (w *StoreWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(w.config.Dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.config.Dir, err)
	}

	w.watcher = watcher
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	go w.processEvents(watcher.Events, watcher.Errors, w.stopCh, w.doneCh)

	logging.Info("CredentialWatcher", "Watching %s for credential changes", w.config.Dir)
	return nil
}

func (w *StoreWatcher) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	for {
		select {
		case <-stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("CredentialWatcher", err, "fsnotify error")
		}
	}
}

func (w *StoreWatcher) handleEvent(event fsnotify.Event) {
	if w.config.FileName != "" && filepath.Base(event.Name) != w.config.FileName {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	logging.Debug("CredentialWatcher", "Credential file changed: %s (%s)", event.Name, event.Op)
	w.triggerDebounced()
}

func (w *StoreWatcher) triggerDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		running := w.running
		callback := w.config.OnChange
		w.mu.Unlock()

		if running && callback != nil {
			callback()
		}
	})
}

// Stop stops watching and waits for the event loop to exit.
func (w *StoreWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	watcher := w.watcher
	doneCh := w.doneCh
	w.watcher = nil
	w.mu.Unlock()

	<-doneCh
	if watcher != nil {
		watcher.Close()
	}

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceMu.Unlock()

	logging.Debug("CredentialWatcher", "Stopped watching %s", w.config.Dir)
}
