package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/celerix-dev/celerix-settings/pkg/settings"
)

// Watch reloads a plugin's scope whenever its settings file is saved by
// another process. It blocks until ctx is cancelled.
func (h *Host) Watch(ctx context.Context) error {
	h.mu.RLock()
	managers := make([]*settings.Manager, 0, len(h.managers))
	for _, m := range h.managers {
		managers = append(managers, m)
	}
	h.mu.RUnlock()

	var wg sync.WaitGroup
	for _, m := range managers {
		id := m.Plugin().ID.String()
		w := settings.NewWatcher(m, func(ev settings.SavedEvent) {
			ok, err := h.Reload(id, ev.Scope)
			h.log.Info("Settings saved externally",
				"plugin", ev.Plugin.String(),
				"scope", ev.Scope.String(),
				"reloaded", ok,
				"error", err)
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				h.log.Warn("Settings watcher stopped", "plugin", m.Plugin().String(), "error", err)
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}
