package settings

import "sort"

// Commands maps command names to their settings dictionaries.
// Dictionaries are created on first lookup.
type Commands struct {
	byName map[string]*Dictionary
}

// NewCommands returns an empty registry.
func NewCommands() *Commands {
	return &Commands{byName: make(map[string]*Dictionary)}
}

// Get returns the dictionary for name, creating it if needed.
func (c *Commands) Get(name string) *Dictionary {
	d, ok := c.byName[name]
	if !ok {
		d = NewDictionary()
		c.byName[name] = d
	}
	return d
}

// Lookup returns the dictionary for name without creating it.
func (c *Commands) Lookup(name string) (*Dictionary, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// Delete drops every setting for the named command.
func (c *Commands) Delete(name string) {
	delete(c.byName, name)
}

// Names returns every registered command name in sorted order.
func (c *Commands) Names() []string {
	names := make([]string, 0, len(c.byName))
	for n := range c.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ContainsModifiedValues reports whether any command dictionary has a modified entry.
func (c *Commands) ContainsModifiedValues() bool {
	for _, d := range c.byName {
		if d.ContainsModifiedValues() {
			return true
		}
	}
	return false
}

func (c *Commands) put(name string, d *Dictionary) {
	c.byName[name] = d
}
