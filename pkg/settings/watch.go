package settings

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/celerix-dev/celerix-settings/pkg/schema"
)

// SavedEvent reports that a settings file was saved by someone other than
// the watched Manager, typically another process of the host application.
type SavedEvent struct {
	Plugin schema.Plugin
	Scope  Scope
	// Settings is a detached Store holding the newly saved contents. The
	// Manager's own Store is left untouched.
	Settings *Store
}

// Watcher observes a Manager's settings directories.
//
// Only directories that exist when Run starts are watched.
type Watcher struct {
	manager  *Manager
	onSaved  func(SavedEvent)
	log      *slog.Logger
	notified map[Scope][sha256.Size]byte
}

// NewWatcher returns a watcher that calls onSaved for each external save.
func NewWatcher(m *Manager, onSaved func(SavedEvent)) *Watcher {
	return &Watcher{
		manager:  m,
		onSaved:  onSaved,
		log:      m.local.log,
		notified: make(map[Scope][sha256.Size]byte),
	}
}

// Run watches until ctx is cancelled. Callbacks run on the Run goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	for _, s := range []*Store{w.manager.local, w.manager.shared} {
		dir := filepath.Dir(s.path)
		if err := fw.Add(dir); err != nil {
			w.log.Debug("Not watching settings directory",
				"dir", dir,
				"scope", s.scope.String(),
				"error", err)
		}
	}

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Settings watcher error", "error", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleEvent processes a single fsnotify event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if filepath.Base(event.Name) != FileName {
		return
	}

	var store *Store
	for _, s := range []*Store{w.manager.local, w.manager.shared} {
		if filepath.Clean(event.Name) == filepath.Clean(s.path) {
			store = s
		}
	}
	if store == nil {
		return
	}

	data, err := store.fs.ReadFile(store.path)
	if err != nil || store.isOwnContent(data) {
		return
	}
	sum := sha256.Sum256(data)
	if prev, ok := w.notified[store.scope]; ok && prev == sum {
		return
	}

	fresh := NewStore(store.path, store.scope,
		WithLogger(store.log),
		WithRetryDelays(store.readRetryDelay, store.writeRetryDelay),
		withFileSystem(store.fs))
	if !fresh.ReadSettings() {
		// A partially copied file does not parse; the final write event will.
		return
	}
	w.notified[store.scope] = sum

	if w.onSaved != nil {
		w.onSaved(SavedEvent{Plugin: w.manager.plugin, Scope: store.scope, Settings: fresh})
	}
}
