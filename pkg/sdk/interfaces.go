package sdk

import (
	"errors"

	"github.com/celerix-dev/celerix-settings/internal/engine"
	"github.com/celerix-dev/celerix-settings/pkg/schema"
	"github.com/celerix-dev/celerix-settings/pkg/settings"
)

var (
	// ErrPluginNotFound is returned when the daemon does not host the plugin.
	ErrPluginNotFound = engine.ErrPluginNotFound
	// ErrKeyNotFound is returned when a requested key does not exist.
	ErrKeyNotFound = engine.ErrKeyNotFound
	// ErrVetoed is returned when a validator on the daemon cancelled a change.
	ErrVetoed = engine.ErrVetoed
	// ErrInvalidToken is returned when a plugin, command or key cannot be sent
	// over the line protocol because it contains whitespace or is empty.
	ErrInvalidToken = errors.New("name must be non-empty and contain no whitespace")
)

// --- Functional Interfaces (Interface Segregation) ---

// EntryReader reads single entries.
type EntryReader interface {
	Get(plugin string, scope settings.Scope, command, key string) (settings.EntryView, error)
}

// EntryWriter changes single entries.
type EntryWriter interface {
	Set(plugin string, scope settings.Scope, command, key, value string) error
	SetDefault(plugin string, scope settings.Scope, command, key, value string) error
	Delete(plugin string, scope settings.Scope, command, key string) error
}

// PluginEnumeration discovers plugins and their commands.
type PluginEnumeration interface {
	Plugins() ([]schema.Plugin, error)
	Commands(plugin string, scope settings.Scope) ([]string, error)
}

// BatchExporter retrieves whole dictionaries.
type BatchExporter interface {
	Dump(plugin string, scope settings.Scope, command string) ([]settings.EntryView, error)
}

// Persister controls when settings reach disk.
type Persister interface {
	Write(plugin string) (bool, error)
	Modified(plugin string) (bool, error)
}

// --- Composite Interfaces ---

// SettingsStore is the complete contract, satisfied by both Client and the
// embedded engine.
type SettingsStore interface {
	EntryReader
	EntryWriter
	PluginEnumeration
	BatchExporter
	Persister
}

var (
	_ SettingsStore        = (*Client)(nil)
	_ SettingsStore        = (*engine.Host)(nil)
	_ engine.SettingsStore = SettingsStore(nil)
)
