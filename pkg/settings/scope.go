package settings

import (
	"fmt"
	"strings"
)

// Scope selects which settings file a Store is bound to.
type Scope int

const (
	// ScopeLocal settings belong to the current user.
	ScopeLocal Scope = iota
	// ScopeShared settings apply to every user of the machine.
	ScopeShared
)

func (s Scope) String() string {
	switch s {
	case ScopeLocal:
		return "local"
	case ScopeShared:
		return "shared"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// ParseScope converts "local" or "shared" (any case) to a Scope.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local", "":
		return ScopeLocal, nil
	case "shared":
		return ScopeShared, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidScope, s)
}
