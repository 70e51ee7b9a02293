package engine

import (
	"fmt"

	"github.com/celerix-dev/celerix-settings/pkg/settings"
)

type rule struct {
	command, key string
	validator    settings.Validator
}

// AddRule registers v for key in both scopes of plugin. Rules survive Reload,
// which replaces the dictionaries they are attached to.
func (h *Host) AddRule(plugin, command, key string, v settings.Validator) error {
	if key == "" {
		return fmt.Errorf("%w: empty rule key", ErrKeyNotFound)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	m, err := h.lookup(plugin)
	if err != nil {
		return err
	}
	r := rule{command: command, key: key, validator: v}
	id := m.Plugin().ID.String()
	h.rules[id] = append(h.rules[id], r)
	for _, scope := range []settings.Scope{settings.ScopeLocal, settings.ScopeShared} {
		dictionaryForWrite(m, scope, command).RegisterValidator(key, v)
	}
	h.log.Debug("Registered rule", "plugin", m.Plugin().String(), "command", commandLabel(command), "key", key)
	return nil
}

// reapplyRules MUST be called while holding h.mu.
func (h *Host) reapplyRules(m *settings.Manager, scope settings.Scope) {
	for _, r := range h.rules[m.Plugin().ID.String()] {
		dictionaryForWrite(m, scope, r.command).RegisterValidator(r.key, r.validator)
	}
}
