// Package schema defines universal data structures used across the Celerix settings platform.
package schema

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Plugin identifies a plugin whose settings are persisted.
// Both fields are stable for the lifetime of the plugin once it has been initialized.
type Plugin struct {
	Name string    `json:"name"`
	ID   uuid.UUID `json:"id"`
}

// ParsePlugin builds a Plugin from its display name and textual unique id.
func ParsePlugin(name, id string) (Plugin, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Plugin{}, fmt.Errorf("plugin %q: invalid id %q: %w", name, id, err)
	}
	return Plugin{Name: name, ID: parsed}, nil
}

// Ready reports whether the identity is complete enough to resolve settings paths.
func (p Plugin) Ready() bool {
	return strings.TrimSpace(p.Name) != "" && p.ID != uuid.Nil
}

func (p Plugin) String() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.ID)
}
