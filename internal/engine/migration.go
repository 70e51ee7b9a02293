package engine

import (
	"fmt"

	"github.com/celerix-dev/celerix-settings/pkg/settings"
)

// Migrate copies every modified value of plugin from scope from in src to
// scope to in dst and returns how many values were copied. This works for:
// - local -> shared within one store (promoting a user's settings to all users)
// - Embedded -> Remote (moving settings into a daemon)
// - Remote -> Embedded (taking an offline copy)
//
// Defaults are not copied; dst keeps its own.
func Migrate(src, dst SettingsStore, plugin string, from, to settings.Scope) (int, error) {
	commands, err := src.Commands(plugin, from)
	if err != nil {
		return 0, fmt.Errorf("failed to list commands of %s: %w", plugin, err)
	}

	copied := 0
	for _, command := range append([]string{PluginCommand}, commands...) {
		entries, err := src.Dump(plugin, from, command)
		if err != nil {
			return copied, fmt.Errorf("failed to dump %s/%s: %w", plugin, commandLabel(command), err)
		}

		for _, e := range entries {
			if !e.Modified || e.Value == "" {
				continue
			}
			if err := dst.Set(plugin, to, command, e.Key, e.Value); err != nil {
				return copied, fmt.Errorf("failed to set %s/%s/%s in destination: %w", plugin, commandLabel(command), e.Key, err)
			}
			copied++
		}
	}
	return copied, nil
}

func commandLabel(command string) string {
	if command == PluginCommand {
		return "."
	}
	return command
}
