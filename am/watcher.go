package am

import (
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/logger"
)

// DefaultDebouncePeriod is how long am.toml must stay quiet before a reload.
// Editors often save in several writes.
const DefaultDebouncePeriod = 500 * time.Millisecond

// ReloadCallback receives the freshly loaded config after am.toml changes.
type ReloadCallback func(*Config) error

// ConfigWatcher reloads am.toml when it changes on disk and hands the
// result to every registered ReloadCallback.
type ConfigWatcher struct {
	configPath     string
	fs             *fsnotify.Watcher
	debouncePeriod time.Duration

	mu        sync.Mutex
	callbacks []ReloadCallback
	pending   *time.Timer

	// set by Save so the resulting event does not trigger a reload
	selfWrite atomic.Bool
}

// active is the watcher Save notifies before it writes am.toml.
var active atomic.Pointer[ConfigWatcher]

// NewConfigWatcher starts an fsnotify watch on configPath. The file must exist.
func NewConfigWatcher(configPath string) (*ConfigWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}
	if err := fs.Add(configPath); err != nil {
		fs.Close()
		return nil, errors.Wrapf(err, "watch %s", configPath)
	}
	return &ConfigWatcher{
		configPath:     configPath,
		fs:             fs,
		debouncePeriod: DefaultDebouncePeriod,
	}, nil
}

// OnReload adds fn to the callbacks run after each reload.
func (cw *ConfigWatcher) OnReload(fn ReloadCallback) {
	cw.mu.Lock()
	cw.callbacks = append(cw.callbacks, fn)
	cw.mu.Unlock()
}

// MarkOwnWrite tells the watcher the next change to am.toml is ours.
func (cw *ConfigWatcher) MarkOwnWrite() {
	cw.selfWrite.Store(true)
}

// checkOwnWrite consumes the mark left by MarkOwnWrite.
func (cw *ConfigWatcher) checkOwnWrite() bool {
	return cw.selfWrite.CompareAndSwap(true, false)
}

// Start consumes fsnotify events in the background until Stop.
func (cw *ConfigWatcher) Start() {
	go cw.watchLoop()
}

func (cw *ConfigWatcher) watchLoop() {
	for {
		select {
		case ev, ok := <-cw.fs.Events:
			if !ok {
				return
			}
			cw.handle(ev)
		case err, ok := <-cw.fs.Errors:
			if !ok {
				return
			}
			logger.Warnw("am.toml watch error", logger.FieldError, err)
		}
	}
}

func (cw *ConfigWatcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return
	}
	if isBackupFile(ev.Name) {
		return
	}
	if cw.checkOwnWrite() {
		logger.Debugw("Skipping reload after Save", logger.FieldPath, ev.Name)
		return
	}
	logger.Infow("am.toml changed on disk",
		logger.FieldPath, ev.Name,
		"op", ev.Op.String())
	cw.scheduleReload()
}

// scheduleReload restarts the quiet period; the reload runs when it ends.
func (cw *ConfigWatcher) scheduleReload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.pending != nil {
		cw.pending.Stop()
	}
	cw.pending = time.AfterFunc(cw.debouncePeriod, func() {
		if err := cw.reload(); err != nil {
			logger.Errorw("am.toml reload failed",
				logger.FieldPath, cw.configPath,
				logger.FieldError, err)
		}
	})
}

// reload rereads the configuration and runs every callback, even when an
// earlier one fails.
func (cw *ConfigWatcher) reload() error {
	Reset()
	cfg, err := Load()
	if err != nil {
		return errors.Wrap(err, "load am.toml")
	}
	logger.Infow("am.toml reloaded", logger.FieldPath, cw.configPath)

	cw.mu.Lock()
	fns := append([]ReloadCallback(nil), cw.callbacks...)
	cw.mu.Unlock()

	var errs error
	for _, fn := range fns {
		if err := fn(cfg); err != nil {
			logger.Warnw("Reload callback rejected new settings", logger.FieldError, err)
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

// Stop ends the watch. Save no longer notifies cw afterwards.
func (cw *ConfigWatcher) Stop() error {
	active.CompareAndSwap(cw, nil)
	return cw.fs.Close()
}

// isBackupFile matches the am.toml.backN files Save rotates through.
func isBackupFile(path string) bool {
	ext := filepath.Ext(path)
	return strings.HasPrefix(ext, ".back") && len(ext) == len(".back1")
}

// SetGlobalWatcher registers cw as the watcher Save marks before writing.
func SetGlobalWatcher(cw *ConfigWatcher) {
	active.Store(cw)
}

// markSavedByUs is called by Save just before it writes am.toml.
func markSavedByUs() {
	if cw := active.Load(); cw != nil {
		cw.MarkOwnWrite()
	}
}
