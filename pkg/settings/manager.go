package settings

import (
	"fmt"

	"github.com/celerix-dev/celerix-settings/pkg/schema"
)

// Manager owns a plugin's local (per-user) and shared (all-users) settings.
type Manager struct {
	plugin schema.Plugin
	local  *Store
	shared *Store
}

// NewManager resolves both settings paths for plugin and returns a Manager.
// It returns ErrPluginNotReady when the plugin has no name or id yet.
// Nothing is read from disk until settings are first accessed.
func NewManager(plugin schema.Plugin, r Resolver, opts ...StoreOption) (*Manager, error) {
	if !plugin.Ready() {
		return nil, ErrPluginNotReady
	}
	localPath, err := SettingsPath(r, plugin, ScopeLocal)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", plugin, err)
	}
	sharedPath, err := SettingsPath(r, plugin, ScopeShared)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", plugin, err)
	}
	return &Manager{
		plugin: plugin,
		local:  NewStore(localPath, ScopeLocal, opts...),
		shared: NewStore(sharedPath, ScopeShared, opts...),
	}, nil
}

// Plugin returns the identity the manager was created for.
func (m *Manager) Plugin() schema.Plugin { return m.plugin }

// Store returns the store for scope.
func (m *Manager) Store(scope Scope) *Store {
	if scope == ScopeShared {
		return m.shared
	}
	return m.local
}

// PluginSettings returns the per-user plugin-level settings.
func (m *Manager) PluginSettings() *Dictionary { return m.local.Plugin() }

// PluginSettingsShared returns the all-users plugin-level settings.
func (m *Manager) PluginSettingsShared() *Dictionary { return m.shared.Plugin() }

// CommandSettings returns the per-user settings of the named command.
func (m *Manager) CommandSettings(name string) *Dictionary { return m.local.Command(name) }

// CommandSettingsShared returns the all-users settings of the named command.
func (m *Manager) CommandSettingsShared(name string) *Dictionary { return m.shared.Command(name) }

// ContainsModifiedValues reports whether either scope has modified entries.
func (m *Manager) ContainsModifiedValues() bool {
	return m.shared.ContainsModifiedValues() || m.local.ContainsModifiedValues()
}

// WriteSettings writes the shared store, then the local store, and returns the
// local result. A failed shared write never prevents the local write.
func (m *Manager) WriteSettings() bool {
	m.writeShared()
	return m.local.WriteSettings()
}

func (m *Manager) writeShared() {
	defer func() {
		if r := recover(); r != nil {
			m.shared.log.Error("Recovered while writing shared settings", "plugin", m.plugin.String(), "panic", r)
		}
	}()
	m.shared.WriteSettings()
}
