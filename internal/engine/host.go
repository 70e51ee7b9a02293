package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/celerix-dev/celerix-settings/pkg/schema"
	"github.com/celerix-dev/celerix-settings/pkg/settings"
)

// Host is the thread-safe registry of plugin settings served by the daemon.
//
// Every access to a Manager happens under mu because reading a dictionary may
// load it from disk.
type Host struct {
	mu       sync.RWMutex
	managers map[string]*settings.Manager // by plugin id
	rules    map[string][]rule            // by plugin id

	resolver  settings.Resolver
	opts      []settings.StoreOption
	log       *slog.Logger
	autoWrite bool
	wg        sync.WaitGroup
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithHostLogger sets the logger used by the Host and passed on to every Store.
func WithHostLogger(l *slog.Logger) HostOption {
	return func(h *Host) {
		if l != nil {
			h.log = l
		}
	}
}

// WithStoreOptions appends options applied to every Store the Host creates.
func WithStoreOptions(opts ...settings.StoreOption) HostOption {
	return func(h *Host) {
		h.opts = append(h.opts, opts...)
	}
}

// WithAutoWrite makes every successful change persist the plugin in the background.
func WithAutoWrite(enabled bool) HostOption {
	return func(h *Host) {
		h.autoWrite = enabled
	}
}

// NewHost returns an empty Host resolving settings paths with r.
func NewHost(r settings.Resolver, opts ...HostOption) *Host {
	h := &Host{
		managers: make(map[string]*settings.Manager),
		rules:    make(map[string][]rule),
		resolver: r,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Wait waits for all background writes to complete.
func (h *Host) Wait() {
	h.wg.Wait()
}

// Register adds plugin and returns its Manager. Registering the same id twice
// returns the existing Manager.
func (h *Host) Register(plugin schema.Plugin) (*settings.Manager, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if m, ok := h.managers[plugin.ID.String()]; ok {
		return m, nil
	}
	storeOpts := append([]settings.StoreOption{settings.WithLogger(h.log)}, h.opts...)
	m, err := settings.NewManager(plugin, h.resolver, storeOpts...)
	if err != nil {
		return nil, err
	}
	h.managers[plugin.ID.String()] = m
	h.log.Info("Registered plugin", "plugin", plugin.String())
	return m, nil
}

// lookup finds a manager by id or case-insensitive name.
// It MUST be called while holding h.mu.
func (h *Host) lookup(plugin string) (*settings.Manager, error) {
	if m, ok := h.managers[strings.ToLower(plugin)]; ok {
		return m, nil
	}
	for _, m := range h.managers {
		if strings.EqualFold(m.Plugin().Name, plugin) {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, plugin)
}

// dictionary returns an existing dictionary, or nil when the command has none.
func dictionary(m *settings.Manager, scope settings.Scope, command string) *settings.Dictionary {
	s := m.Store(scope)
	if command == PluginCommand {
		return s.Plugin()
	}
	d, _ := s.Commands().Lookup(command)
	return d
}

// dictionaryForWrite returns the dictionary, creating a command's on first use.
func dictionaryForWrite(m *settings.Manager, scope settings.Scope, command string) *settings.Dictionary {
	if command == PluginCommand {
		return m.Store(scope).Plugin()
	}
	return m.Store(scope).Command(command)
}

// Manager returns the Manager registered for plugin.
func (h *Host) Manager(plugin string) (*settings.Manager, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lookup(plugin)
}

// --- Interface Implementation ---

func (h *Host) Plugins() ([]schema.Plugin, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	list := make([]schema.Plugin, 0, len(h.managers))
	for _, m := range h.managers {
		list = append(list, m.Plugin())
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID.String() < list[j].ID.String()
	})
	return list, nil
}

func (h *Host) Commands(plugin string, scope settings.Scope) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, err := h.lookup(plugin)
	if err != nil {
		return nil, err
	}
	return m.Store(scope).Commands().Names(), nil
}

func (h *Host) Get(plugin string, scope settings.Scope, command, key string) (settings.EntryView, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, err := h.lookup(plugin)
	if err != nil {
		return settings.EntryView{}, err
	}
	d := dictionary(m, scope, command)
	if d == nil {
		return settings.EntryView{}, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	e, ok := d.Entry(key)
	if !ok {
		return settings.EntryView{}, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return e, nil
}

func (h *Host) Set(plugin string, scope settings.Scope, command, key, value string) error {
	return h.write(plugin, scope, command, key, func(d *settings.Dictionary) bool {
		return d.SetRaw(key, value)
	})
}

func (h *Host) SetDefault(plugin string, scope settings.Scope, command, key, value string) error {
	return h.write(plugin, scope, command, key, func(d *settings.Dictionary) bool {
		return d.SetDefaultRaw(key, value)
	})
}

func (h *Host) write(plugin string, scope settings.Scope, command, key string, apply func(*settings.Dictionary) bool) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrKeyNotFound)
	}
	h.mu.Lock()
	m, err := h.lookup(plugin)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	ok := apply(dictionaryForWrite(m, scope, command))
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrVetoed, key)
	}
	h.persistInBackground(m)
	return nil
}

func (h *Host) Delete(plugin string, scope settings.Scope, command, key string) error {
	h.mu.Lock()
	m, err := h.lookup(plugin)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	d := dictionary(m, scope, command)
	if d == nil || !d.Has(key) {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	d.DeleteKey(key)
	h.mu.Unlock()

	h.persistInBackground(m)
	return nil
}

func (h *Host) Dump(plugin string, scope settings.Scope, command string) ([]settings.EntryView, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, err := h.lookup(plugin)
	if err != nil {
		return nil, err
	}
	d := dictionary(m, scope, command)
	if d == nil {
		return []settings.EntryView{}, nil
	}
	return d.Snapshot(), nil
}

func (h *Host) Write(plugin string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, err := h.lookup(plugin)
	if err != nil {
		return false, err
	}
	return m.WriteSettings(), nil
}

func (h *Host) Modified(plugin string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, err := h.lookup(plugin)
	if err != nil {
		return false, err
	}
	return m.ContainsModifiedValues(), nil
}

// WriteAll persists every registered plugin and returns how many local files were written.
func (h *Host) WriteAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	written := 0
	for _, m := range h.managers {
		if m.WriteSettings() {
			written++
		}
	}
	return written
}

// Reload rereads one scope of plugin from disk, discarding unsaved changes.
func (h *Host) Reload(plugin string, scope settings.Scope) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, err := h.lookup(plugin)
	if err != nil {
		return false, err
	}
	if !m.Store(scope).ReadSettings() {
		return false, nil
	}
	h.reapplyRules(m, scope)
	return true, nil
}

func (h *Host) persistInBackground(m *settings.Manager) {
	if !h.autoWrite {
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.mu.Lock()
		defer h.mu.Unlock()
		m.WriteSettings()
	}()
}
