// Package engine hosts the settings of many plugins behind one thread-safe contract.
package engine

import (
	"errors"

	"github.com/celerix-dev/celerix-settings/pkg/schema"
	"github.com/celerix-dev/celerix-settings/pkg/settings"
)

var (
	// ErrPluginNotFound is returned when a requested plugin is not registered.
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrKeyNotFound is returned when a requested key does not exist in a dictionary.
	ErrKeyNotFound = settings.ErrKeyNotFound
	// ErrVetoed is returned when a validator cancelled a change.
	ErrVetoed = errors.New("change rejected by validator")
)

// PluginCommand names the plugin-level dictionary wherever a command name is expected.
const PluginCommand = ""

// SettingsStore is the primary interface for reading and changing hosted settings.
// Both the embedded Host and the remote network client implement this contract.
//
// Plugins are addressed by name or by id. Values travel as canonical strings.
type SettingsStore interface {
	// Plugins returns every registered plugin, sorted by name.
	Plugins() ([]schema.Plugin, error)
	// Commands returns the names of the commands that have settings in scope.
	Commands(plugin string, scope settings.Scope) ([]string, error)

	// Get returns a single entry.
	Get(plugin string, scope settings.Scope, command, key string) (settings.EntryView, error)
	// Set writes the current value of key.
	Set(plugin string, scope settings.Scope, command, key, value string) error
	// SetDefault writes the default value of key.
	SetDefault(plugin string, scope settings.Scope, command, key, value string) error
	// Delete removes key.
	Delete(plugin string, scope settings.Scope, command, key string) error

	// Dump returns every entry of one dictionary, sorted by key.
	Dump(plugin string, scope settings.Scope, command string) ([]settings.EntryView, error)

	// Write persists both scopes of plugin and reports whether the local file was written.
	Write(plugin string) (bool, error)
	// Modified reports whether either scope of plugin has unsaved or persisted changes.
	Modified(plugin string) (bool, error)
}
