package settings

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned by the strict accessors when a key has never been set.
	ErrKeyNotFound = errors.New("key not found")
	// ErrTypeMismatch is matched by *TypeError when a stored string cannot be parsed.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrPluginNotReady is returned when settings paths are resolved before the
	// plugin has a name and unique id.
	ErrPluginNotReady = errors.New("plugin identity not ready")
	// ErrInvalidScope is returned by ParseScope for unknown scope names.
	ErrInvalidScope = errors.New("invalid scope")
)

// TypeError is returned when a stored value cannot be parsed as the requested type.
type TypeError struct {
	Key   string
	Type  string
	Value string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("setting %q: value %q is not a valid %s", e.Key, e.Value, e.Type)
}

// Is implements error matching for TypeError.
func (e *TypeError) Is(target error) bool {
	return target == ErrTypeMismatch
}
