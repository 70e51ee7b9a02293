package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/celerix-dev/celerix-settings/pkg/schema"
)

const (
	vendorDir  = "celerix"
	pluginsDir = "Plug-ins"
)

// Resolver maps a plugin and scope to the directory holding its settings file.
type Resolver interface {
	Dir(plugin schema.Plugin, scope Scope) (string, error)
}

// DirResolver places settings under a per-user root and an all-users root.
type DirResolver struct {
	LocalRoot  string
	SharedRoot string
}

// DefaultResolver uses the user configuration directory for local settings
// and the platform's machine-wide configuration directory for shared ones.
func DefaultResolver() (DirResolver, error) {
	local, err := os.UserConfigDir()
	if err != nil {
		return DirResolver{}, fmt.Errorf("resolve user config dir: %w", err)
	}
	return DirResolver{LocalRoot: local, SharedRoot: sharedConfigRoot()}, nil
}

func sharedConfigRoot() string {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("ProgramData"); dir != "" {
			return dir
		}
		return `C:\ProgramData`
	case "darwin":
		return "/Library/Application Support"
	default:
		return "/etc/xdg"
	}
}

// Dir returns <root>/celerix/Plug-ins/<name> (<id>).
func (r DirResolver) Dir(plugin schema.Plugin, scope Scope) (string, error) {
	if !plugin.Ready() {
		return "", ErrPluginNotReady
	}
	root := r.LocalRoot
	if scope == ScopeShared {
		root = r.SharedRoot
	}
	if root == "" {
		return "", fmt.Errorf("no %s settings root configured", scope)
	}
	name := SanitizePathSegment(plugin.Name)
	if name == "" {
		name = "plugin"
	}
	return filepath.Join(root, vendorDir, pluginsDir, fmt.Sprintf("%s (%s)", name, plugin.ID)), nil
}

// SettingsPath returns the settings file path for plugin in scope.
func SettingsPath(r Resolver, plugin schema.Plugin, scope Scope) (string, error) {
	dir, err := r.Dir(plugin, scope)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// SanitizePathSegment strips characters that are not allowed in a path
// segment on any supported platform.
func SanitizePathSegment(name string) string {
	out := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return -1
		}
		return r
	}, name)
	return strings.Trim(out, " .")
}
