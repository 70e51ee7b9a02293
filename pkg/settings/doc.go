// Package settings persists typed plugin settings as XML.
//
// Each plugin has two scopes, local (per-user) and shared (all-users). A
// scope holds one plugin-level Dictionary plus one Dictionary per command.
// Every entry keeps a current value and a default value as canonical
// strings; only entries whose current value differs from the default are
// written:
//
//	<?xml version="1.0" encoding="UTF-8"?>
//	<!-- celerix-settings: only values that differ from their defaults are stored -->
//	<settings id="1.0">
//	  <plugin>
//	    <entry key="Enabled">False</entry>
//	  </plugin>
//	  <command name="Line">
//	    <entry key="Tolerance">0.001</entry>
//	  </command>
//	</settings>
//
// Typical use from a plugin:
//
//	m, err := settings.NewManager(plugin, resolver)
//	if err != nil {
//		return err
//	}
//	enabled := m.PluginSettings().GetBool("Enabled", true)
//	settings.Set(m.CommandSettings("Line"), settings.Double, "Tolerance", 0.001)
//	defer m.WriteSettings()
//
// Reading and writing never return I/O errors: an unreadable file behaves
// like a missing one, and a failed write reports false.
package settings
