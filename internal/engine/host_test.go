package engine

import (
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/celerix-settings/pkg/schema"
	"github.com/celerix-dev/celerix-settings/pkg/settings"
)

var (
	marker = schema.Plugin{Name: "Marker", ID: uuid.MustParse("11111111-2222-4333-8444-555555555555")}
	ruler  = schema.Plugin{Name: "Ruler", ID: uuid.MustParse("aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee")}
)

func newTestHost(t *testing.T, opts ...HostOption) (*Host, settings.DirResolver) {
	t.Helper()
	root := t.TempDir()
	r := settings.DirResolver{
		LocalRoot:  filepath.Join(root, "user"),
		SharedRoot: filepath.Join(root, "machine"),
	}
	opts = append([]HostOption{WithHostLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	h := NewHost(r, opts...)
	_, err := h.Register(marker)
	require.NoError(t, err)
	_, err = h.Register(ruler)
	require.NoError(t, err)
	return h, r
}

func TestHost_RegisterIsIdempotent(t *testing.T) {
	h, _ := newTestHost(t)

	m1, err := h.Manager("marker")
	require.NoError(t, err)
	m2, err := h.Register(marker)
	require.NoError(t, err)
	assert.Same(t, m1, m2)

	_, err = h.Register(schema.Plugin{Name: "NoID"})
	assert.ErrorIs(t, err, settings.ErrPluginNotReady)

	plugins, err := h.Plugins()
	require.NoError(t, err)
	assert.Equal(t, []schema.Plugin{marker, ruler}, plugins)
}

func TestHost_LookupByNameOrID(t *testing.T) {
	h, _ := newTestHost(t)

	require.NoError(t, h.Set("Marker", settings.ScopeLocal, "", "Color", "red"))
	e, err := h.Get(marker.ID.String(), settings.ScopeLocal, "", "Color")
	require.NoError(t, err)
	assert.Equal(t, "red", e.Value)

	_, err = h.Get("Ghost", settings.ScopeLocal, "", "Color")
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

func TestHost_SetGetDelete(t *testing.T) {
	h, _ := newTestHost(t)

	_, err := h.Get("Marker", settings.ScopeLocal, "Line", "Tolerance")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, h.SetDefault("Marker", settings.ScopeLocal, "Line", "Tolerance", "0.01"))
	require.NoError(t, h.Set("Marker", settings.ScopeLocal, "Line", "Tolerance", "0.001"))

	e, err := h.Get("Marker", settings.ScopeLocal, "Line", "Tolerance")
	require.NoError(t, err)
	assert.Equal(t, settings.EntryView{Key: "Tolerance", Value: "0.001", Default: "0.01", Modified: true}, e)

	commands, err := h.Commands("Marker", settings.ScopeLocal)
	require.NoError(t, err)
	assert.Equal(t, []string{"Line"}, commands)

	shared, err := h.Commands("Marker", settings.ScopeShared)
	require.NoError(t, err)
	assert.Empty(t, shared)

	require.NoError(t, h.Delete("Marker", settings.ScopeLocal, "Line", "Tolerance"))
	assert.ErrorIs(t, h.Delete("Marker", settings.ScopeLocal, "Line", "Tolerance"), ErrKeyNotFound)
	assert.ErrorIs(t, h.Delete("Marker", settings.ScopeLocal, "Circle", "Radius"), ErrKeyNotFound)
	assert.ErrorIs(t, h.Set("Marker", settings.ScopeLocal, "", "", "x"), ErrKeyNotFound)
}

func TestHost_ReadsDoNotCreateCommands(t *testing.T) {
	h, _ := newTestHost(t)

	entries, err := h.Dump("Marker", settings.ScopeLocal, "Circle")
	require.NoError(t, err)
	assert.Empty(t, entries)

	commands, err := h.Commands("Marker", settings.ScopeLocal)
	require.NoError(t, err)
	assert.Empty(t, commands)
}

func TestHost_VetoedChange(t *testing.T) {
	h, _ := newTestHost(t)

	m, err := h.Manager("Marker")
	require.NoError(t, err)
	positive, err := settings.CompileRule(`float(new) > 0`)
	require.NoError(t, err)
	m.CommandSettings("Line").RegisterValidator("Width", positive)

	assert.NoError(t, h.Set("Marker", settings.ScopeLocal, "Line", "Width", "2"))
	assert.ErrorIs(t, h.Set("Marker", settings.ScopeLocal, "Line", "Width", "-2"), ErrVetoed)

	e, err := h.Get("Marker", settings.ScopeLocal, "Line", "Width")
	require.NoError(t, err)
	assert.Equal(t, "2", e.Value)
}

func TestHost_RulesSurviveReload(t *testing.T) {
	h, _ := newTestHost(t)

	short, err := settings.CompileRule(`len(new) <= 4`)
	require.NoError(t, err)
	require.NoError(t, h.AddRule("Marker", "", "Code", short))
	assert.ErrorIs(t, h.AddRule("Ghost", "", "Code", short), ErrPluginNotFound)

	require.NoError(t, h.Set("Marker", settings.ScopeShared, "", "Code", "abcd"))
	// Only the shared scope has changes, so the local result is false.
	_, err = h.Write("Marker")
	require.NoError(t, err)

	ok, err := h.Reload("Marker", settings.ScopeShared)
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, h.Set("Marker", settings.ScopeShared, "", "Code", "abcdef"), ErrVetoed)
	assert.ErrorIs(t, h.Set("Marker", settings.ScopeLocal, "", "Code", "abcdef"), ErrVetoed)
}

func TestHost_WriteAndReload(t *testing.T) {
	h, r := newTestHost(t)

	require.NoError(t, h.Set("Marker", settings.ScopeLocal, "", "Theme", "dark"))
	modified, err := h.Modified("Marker")
	require.NoError(t, err)
	assert.True(t, modified)

	ok, err := h.Write("Marker")
	require.NoError(t, err)
	assert.True(t, ok)

	path, err := settings.SettingsPath(r, marker, settings.ScopeLocal)
	require.NoError(t, err)
	assert.FileExists(t, path)

	require.NoError(t, h.Set("Marker", settings.ScopeLocal, "", "Theme", "light"))
	ok, err = h.Reload("Marker", settings.ScopeLocal)
	require.NoError(t, err)
	assert.True(t, ok)

	e, err := h.Get("Marker", settings.ScopeLocal, "", "Theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", e.Value)

	_, err = h.Write("Ghost")
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

func TestHost_WriteAll(t *testing.T) {
	h, _ := newTestHost(t)

	require.NoError(t, h.Set("Marker", settings.ScopeLocal, "", "A", "1"))
	require.NoError(t, h.Set("Ruler", settings.ScopeLocal, "", "B", "2"))
	require.NoError(t, h.Set("Ruler", settings.ScopeShared, "", "C", "3"))

	assert.Equal(t, 2, h.WriteAll())
}

func TestHost_AutoWrite(t *testing.T) {
	h, r := newTestHost(t, WithAutoWrite(true))

	require.NoError(t, h.Set("Ruler", settings.ScopeLocal, "Measure", "Units", "mm"))
	h.Wait()

	path, err := settings.SettingsPath(r, ruler, settings.ScopeLocal)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestHost_ConcurrentAccess(t *testing.T) {
	h, _ := newTestHost(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "Key"
			if i%2 == 0 {
				key = "Other"
			}
			assert.NoError(t, h.Set("Marker", settings.ScopeLocal, "Line", key, "v"))
			_, _ = h.Dump("Marker", settings.ScopeLocal, "Line")
			_, _ = h.Plugins()
		}(i)
	}
	wg.Wait()

	entries, err := h.Dump("Marker", settings.ScopeLocal, "Line")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
