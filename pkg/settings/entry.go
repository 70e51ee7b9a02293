package settings

// Entry is one key's current value and default value, both kept as canonical strings.
// The empty string means the slot is unset.
type Entry struct {
	current string
	def     string
}

// Get returns the default slot when isDefault is true or the current slot is
// unset, otherwise the current slot.
func (e *Entry) Get(isDefault bool) string {
	if isDefault || e.current == "" {
		return e.def
	}
	return e.current
}

// Set writes the selected slot without validation.
func (e *Entry) Set(isDefault bool, value string) {
	if isDefault {
		e.def = value
		return
	}
	e.current = value
}

// Modified reports whether the raw current and default strings differ.
func (e *Entry) Modified() bool {
	return e.current != e.def
}

// TryGetValue parses the selected slot with c.
func TryGetValue[T any](e *Entry, c Codec[T], isDefault bool) (T, bool) {
	return c.Parse(e.Get(isDefault))
}

// SetValue formats v with c and writes the selected slot when validate does not
// cancel the change. It reports whether the slot was written.
func SetValue[T any](e *Entry, c Codec[T], key string, isDefault bool, v T, validate Validator) bool {
	return e.apply(key, isDefault, c.Format(v), validate)
}

func (e *Entry) apply(key string, isDefault bool, value string, validate Validator) bool {
	if validate != nil {
		ev := &ChangeEvent{
			Key:          key,
			Default:      isDefault,
			Old:          e.Get(isDefault),
			New:          value,
			CurrentValue: value,
		}
		validate(ev)
		if ev.cancelled {
			return false
		}
		// The value captured before validation is written; edits to the event are not applied.
	}
	e.Set(isDefault, value)
	return true
}

// EntryView is a read-only copy of an entry.
type EntryView struct {
	Key      string `json:"key" yaml:"key"`
	Value    string `json:"value" yaml:"value"`
	Default  string `json:"default" yaml:"default"`
	Modified bool   `json:"modified" yaml:"modified"`
}
