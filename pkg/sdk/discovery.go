package sdk

import (
	"log/slog"
	"os"

	"github.com/celerix-dev/celerix-settings/internal/engine"
	"github.com/celerix-dev/celerix-settings/pkg/schema"
	"github.com/celerix-dev/celerix-settings/pkg/settings"
)

// EnvAddr names the environment variable holding the daemon address.
const EnvAddr = "CELERIX_SETTINGS_ADDR"

// New returns a store that is remote when a daemon answers at addr (or at
// CELERIX_SETTINGS_ADDR when addr is empty) and embedded otherwise. The
// embedded store hosts plugins and resolves paths with r.
func New(addr string, r settings.Resolver, plugins ...schema.Plugin) (SettingsStore, error) {
	if addr == "" {
		addr = os.Getenv(EnvAddr)
	}

	if addr != "" {
		client, err := Connect(addr)
		if err == nil {
			return client, nil
		}
		slog.Warn("Settings daemon unreachable, using embedded store", "addr", addr, "error", err)
	}

	// Embedded mode runs the same engine the daemon uses, inside the app process.
	host := engine.NewHost(r)
	for _, p := range plugins {
		if _, err := host.Register(p); err != nil {
			return nil, err
		}
	}
	return host, nil
}
