package sdk

import (
	"github.com/celerix-dev/celerix-settings/internal/vault"
	"github.com/celerix-dev/celerix-settings/pkg/settings"
)

// --- Pinned Scopes ---

// Scope returns a handle that "remembers" plugin, scope and command.
// An empty command selects the plugin-level settings.
func Scope(s SettingsStore, plugin string, scope settings.Scope, command string) *ScopeHandle {
	return &ScopeHandle{store: s, plugin: plugin, scope: scope, command: command}
}

// ScopeHandle is a scoped view of one dictionary.
type ScopeHandle struct {
	store   SettingsStore
	plugin  string
	scope   settings.Scope
	command string
}

// Get retrieves an entry of the pinned dictionary.
func (h *ScopeHandle) Get(key string) (settings.EntryView, error) {
	return h.store.Get(h.plugin, h.scope, h.command, key)
}

// Value returns the effective value of key, falling back to its default.
func (h *ScopeHandle) Value(key string) (string, error) {
	return Get(h.store, settings.String, h.plugin, h.scope, h.command, key)
}

// Set stores the current value of key.
func (h *ScopeHandle) Set(key, value string) error {
	return h.store.Set(h.plugin, h.scope, h.command, key, value)
}

// SetDefault stores the default value of key.
func (h *ScopeHandle) SetDefault(key, value string) error {
	return h.store.SetDefault(h.plugin, h.scope, h.command, key, value)
}

// Delete removes key.
func (h *ScopeHandle) Delete(key string) error {
	return h.store.Delete(h.plugin, h.scope, h.command, key)
}

// Entries returns every entry of the pinned dictionary.
func (h *ScopeHandle) Entries() ([]settings.EntryView, error) {
	return h.store.Dump(h.plugin, h.scope, h.command)
}

// Vault returns a handle that encrypts values before they leave the process.
// A masterKey that is not 16, 24 or 32 bytes long makes every call on the
// handle fail.
func (h *ScopeHandle) Vault(masterKey []byte) *VaultHandle {
	codec, err := vault.SecretCodec(masterKey)
	return &VaultHandle{scope: h, codec: codec, err: err}
}

// VaultHandle provides client-side encryption for sensitive settings.
type VaultHandle struct {
	scope *ScopeHandle
	codec settings.Codec[string]
	err   error
}

// Set encrypts plaintext locally and stores the ciphertext.
func (v *VaultHandle) Set(key, plaintext string) error {
	if v.err != nil {
		return v.err
	}
	s := v.scope
	return Set(s.store, v.codec, s.plugin, s.scope, s.command, key, plaintext)
}

// Get retrieves and decrypts a value.
func (v *VaultHandle) Get(key string) (string, error) {
	if v.err != nil {
		return "", v.err
	}
	s := v.scope
	return Get(s.store, v.codec, s.plugin, s.scope, s.command, key)
}
