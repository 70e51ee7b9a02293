package settings

import (
	"sort"
)

// Dictionary maps keys to entries for one scope: either a plugin's own
// settings or one command's settings.
//
// Dictionary does no locking; callers serialize access.
type Dictionary struct {
	entries    map[string]*Entry
	validators map[string]Validator
	validating int
}

// NewDictionary returns an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{
		entries:    make(map[string]*Entry),
		validators: make(map[string]Validator),
	}
}

// RegisterValidator replaces the validator for key. A nil validator removes it.
func (d *Dictionary) RegisterValidator(key string, v Validator) {
	if v == nil {
		delete(d.validators, key)
		return
	}
	d.validators[key] = v
}

// DeleteKey removes the entry for key.
func (d *Dictionary) DeleteKey(key string) {
	delete(d.entries, key)
}

// Has reports whether key has an entry.
func (d *Dictionary) Has(key string) bool {
	_, ok := d.entries[key]
	return ok
}

// Len returns the number of entries.
func (d *Dictionary) Len() int { return len(d.entries) }

// Keys returns every key in sorted order.
func (d *Dictionary) Keys() []string {
	keys := make([]string, 0, len(d.entries))
	for k := range d.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ContainsModifiedValues reports whether any entry's current value differs from its default.
func (d *Dictionary) ContainsModifiedValues() bool {
	for _, e := range d.entries {
		if e.Modified() {
			return true
		}
	}
	return false
}

// Entry returns a copy of the entry for key.
func (d *Dictionary) Entry(key string) (EntryView, bool) {
	e, ok := d.entries[key]
	if !ok {
		return EntryView{}, false
	}
	return EntryView{Key: key, Value: e.current, Default: e.def, Modified: e.Modified()}, true
}

// Snapshot returns a copy of every entry, sorted by key.
func (d *Dictionary) Snapshot() []EntryView {
	out := make([]EntryView, 0, len(d.entries))
	for _, k := range d.Keys() {
		v, _ := d.Entry(k)
		out = append(out, v)
	}
	return out
}

// SetRaw writes a canonical string into the current slot, validator-gated.
func (d *Dictionary) SetRaw(key, value string) bool {
	return d.write(key, false, value)
}

// SetDefaultRaw writes a canonical string into the default slot, validator-gated.
func (d *Dictionary) SetDefaultRaw(key, value string) bool {
	return d.write(key, true, value)
}

// write applies value to one slot of key's entry. The entry is created only if
// the change is accepted. Writes issued from inside one of this dictionary's
// validators are rejected.
func (d *Dictionary) write(key string, isDefault bool, value string) bool {
	if d.validating > 0 {
		return false
	}
	e, ok := d.entries[key]
	if !ok {
		e = &Entry{}
	}
	if v := d.validators[key]; v != nil {
		d.validating++
		applied := e.apply(key, isDefault, value, v)
		d.validating--
		if !applied {
			return false
		}
	} else {
		e.Set(isDefault, value)
	}
	d.entries[key] = e
	return true
}

// TryGet parses the effective value of key. It returns false when key is
// absent or its value does not parse, along with the codec's sentinel.
func TryGet[T any](d *Dictionary, c Codec[T], key string) (T, bool) {
	e, ok := d.entries[key]
	if !ok {
		return c.Sentinel(), false
	}
	return TryGetValue(e, c, false)
}

// Get parses the effective value of key. It returns ErrKeyNotFound when key
// is absent and a *TypeError when the stored value does not parse.
func Get[T any](d *Dictionary, c Codec[T], key string) (T, error) {
	e, ok := d.entries[key]
	if !ok {
		return c.Sentinel(), ErrKeyNotFound
	}
	v, ok := TryGetValue(e, c, false)
	if !ok {
		return v, &TypeError{Key: key, Type: c.Name(), Value: e.Get(false)}
	}
	return v, nil
}

// GetOr returns the effective value of key, registering def as its default.
//
// When the stored value parses, the default slot is overwritten with def on
// every call and the stored value is returned. Otherwise both slots are set
// to def and def is returned. Callers passing different defaults for the same
// key therefore move the default, which changes whether the entry counts as
// modified.
func GetOr[T any](d *Dictionary, c Codec[T], key string, def T) T {
	formatted := c.Format(def)
	if e, ok := d.entries[key]; ok {
		if v, ok := TryGetValue(e, c, false); ok {
			e.Set(true, formatted)
			return v
		}
	}
	d.entries[key] = &Entry{current: formatted, def: formatted}
	return def
}

// Set writes v into key's current slot. It reports false when a validator
// cancelled the change.
func Set[T any](d *Dictionary, c Codec[T], key string, v T) bool {
	return d.write(key, false, c.Format(v))
}

// SetDefault writes v into key's default slot. It reports false when a
// validator cancelled the change.
func SetDefault[T any](d *Dictionary, c Codec[T], key string, v T) bool {
	return d.write(key, true, c.Format(v))
}

// GetBool returns the boolean stored under key, registering def as its default.
func (d *Dictionary) GetBool(key string, def bool) bool { return GetOr(d, Bool, key, def) }

// SetBool sets the boolean stored under key.
func (d *Dictionary) SetBool(key string, v bool) bool { return Set(d, Bool, key, v) }

// GetInt returns the integer stored under key, registering def as its default.
func (d *Dictionary) GetInt(key string, def int32) int32 { return GetOr(d, Int, key, def) }

// SetInt sets the integer stored under key.
func (d *Dictionary) SetInt(key string, v int32) bool { return Set(d, Int, key, v) }

// GetDouble returns the number stored under key, registering def as its default.
func (d *Dictionary) GetDouble(key string, def float64) float64 { return GetOr(d, Double, key, def) }

// SetDouble sets the number stored under key.
func (d *Dictionary) SetDouble(key string, v float64) bool { return Set(d, Double, key, v) }

// GetString returns the string stored under key, registering def as its default.
func (d *Dictionary) GetString(key string, def string) string { return GetOr(d, String, key, def) }

// SetString sets the string stored under key.
func (d *Dictionary) SetString(key string, v string) bool { return Set(d, String, key, v) }
