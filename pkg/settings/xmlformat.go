package settings

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// FormatVersion is the value of the root element's id attribute.
const FormatVersion = "1.0"

const generatorComment = " celerix-settings: only values that differ from their defaults are stored "

// ErrUnsupportedFormat is returned when the root element is not a settings
// element of FormatVersion.
var ErrUnsupportedFormat = errors.New("unsupported settings document")

// ErrNotRepresentable is returned by EncodeDocument when a key, command name
// or value holds text an XML document cannot carry, such as control
// characters other than tab, newline and carriage return.
var ErrNotRepresentable = errors.New("text cannot be stored in a settings document")

type xmlDocument struct {
	XMLName  xml.Name     `xml:"settings"`
	ID       string       `xml:"id,attr"`
	Plugin   *xmlSection  `xml:"plugin"`
	Commands []xmlSection `xml:"command"`
}

type xmlSection struct {
	Name     string     `xml:"name,attr,omitempty"`
	Entries  []xmlEntry `xml:"entry"`
	Defaults []xmlEntry `xml:"entry_default"`
}

type xmlEntry struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// inbound mirrors xmlDocument but keeps every root attribute so the version
// id can be matched under any namespace prefix.
type inboundDocument struct {
	XMLName  xml.Name     `xml:"settings"`
	Attrs    []xml.Attr   `xml:",any,attr"`
	Plugin   *xmlSection  `xml:"plugin"`
	Commands []xmlSection `xml:"command"`
}

// rootVersion returns the format version id of the root element. Older files
// carried the id under a namespace prefix; both spellings are accepted.
func rootVersion(attrs []xml.Attr) string {
	var namespaced string
	for _, a := range attrs {
		if a.Name.Local != "id" {
			continue
		}
		if a.Name.Space == "" {
			return a.Value
		}
		namespaced = a.Value
	}
	return namespaced
}

// sectionFor renders the modified entries of d, or nil when nothing is modified.
func sectionFor(d *Dictionary, name string) *xmlSection {
	if d == nil || !d.ContainsModifiedValues() {
		return nil
	}
	s := &xmlSection{Name: name}
	for _, k := range d.Keys() {
		e := d.entries[k]
		if !e.Modified() {
			continue
		}
		s.Entries = append(s.Entries, xmlEntry{Key: k, Value: e.current})
	}
	return s
}

// parseSection loads s into d. Current values are applied before legacy
// defaults so neither kind is mistaken for the other.
func parseSection(d *Dictionary, s *xmlSection) {
	for _, e := range s.Entries {
		if e.Key == "" {
			continue
		}
		d.SetRaw(e.Key, e.Value)
	}
	for _, e := range s.Defaults {
		if e.Key == "" {
			continue
		}
		d.SetDefaultRaw(e.Key, e.Value)
	}
}

// EncodeDocument renders the modified entries of plugin and every command
// dictionary as a settings document. Commands without modified entries are
// omitted, as is the plugin element.
func EncodeDocument(plugin *Dictionary, commands *Commands) ([]byte, error) {
	doc := xmlDocument{ID: FormatVersion, Plugin: sectionFor(plugin, "")}
	if commands != nil {
		for _, name := range commands.Names() {
			if s := sectionFor(commands.byName[name], name); s != nil {
				doc.Commands = append(doc.Commands, *s)
			}
		}
	}

	if err := checkSection(doc.Plugin); err != nil {
		return nil, err
	}
	for i := range doc.Commands {
		if err := checkSection(&doc.Commands[i]); err != nil {
			return nil, err
		}
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<!--" + generatorComment + "-->\n")
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func checkSection(s *xmlSection) error {
	if s == nil {
		return nil
	}
	if !isXMLText(s.Name) {
		return fmt.Errorf("%w: command %q", ErrNotRepresentable, s.Name)
	}
	for _, e := range s.Entries {
		if !isXMLText(e.Key) {
			return fmt.Errorf("%w: key %q", ErrNotRepresentable, e.Key)
		}
		if !isXMLText(e.Value) {
			return fmt.Errorf("%w: value of %q", ErrNotRepresentable, e.Key)
		}
	}
	return nil
}

// isXMLText reports whether s survives an XML round trip unchanged. The
// encoder would replace anything else with U+FFFD.
func isXMLText(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		switch {
		case r == '\t', r == '\n', r == '\r':
		case r >= 0x20 && r <= 0xD7FF:
		case r >= 0xE000 && r <= 0xFFFD:
		case r >= 0x10000 && r <= utf8.MaxRune:
		default:
			return false
		}
	}
	return true
}

// DecodeDocument parses a settings document into fresh dictionaries.
func DecodeDocument(r io.Reader) (*Dictionary, *Commands, error) {
	var doc inboundDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("decode settings: %w", err)
	}
	if v := rootVersion(doc.Attrs); v != FormatVersion {
		return nil, nil, fmt.Errorf("%w: version %q", ErrUnsupportedFormat, v)
	}

	plugin := NewDictionary()
	if doc.Plugin != nil {
		parseSection(plugin, doc.Plugin)
	}
	commands := NewCommands()
	for i := range doc.Commands {
		s := &doc.Commands[i]
		if s.Name == "" {
			continue
		}
		d := NewDictionary()
		parseSection(d, s)
		commands.put(s.Name, d)
	}
	return plugin, commands, nil
}
