package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/celerix-settings/pkg/schema"
)

func TestNewManager_RequiresPluginIdentity(t *testing.T) {
	r := testResolver(t)

	_, err := NewManager(schema.Plugin{Name: "Marker"}, r)
	assert.ErrorIs(t, err, ErrPluginNotReady)

	p := testPlugin()
	p.Name = "  "
	_, err = NewManager(p, r)
	assert.ErrorIs(t, err, ErrPluginNotReady)
}

func TestManager_FirstRunWritesNothing(t *testing.T) {
	r := testResolver(t)
	m := newTestManager(t, r)

	assert.True(t, m.PluginSettings().GetBool("Enabled", true))
	assert.False(t, m.WriteSettings())

	assert.NoFileExists(t, m.Store(ScopeLocal).Path())
	assert.NoFileExists(t, m.Store(ScopeShared).Path())
}

func TestManager_ModifyPersistReload(t *testing.T) {
	r := testResolver(t)

	m := newTestManager(t, r)
	m.PluginSettings().GetBool("Enabled", true)
	require.True(t, m.PluginSettings().SetBool("Enabled", false))
	require.True(t, m.WriteSettings())

	localPath, err := SettingsPath(r, testPlugin(), ScopeLocal)
	require.NoError(t, err)
	assert.Equal(t, localPath, m.Store(ScopeLocal).Path())
	assert.Contains(t, readFile(t, localPath), `<entry key="Enabled">False</entry>`)

	again := newTestManager(t, r)
	assert.False(t, again.PluginSettings().GetBool("Enabled", true))
}

func TestManager_RevertDeletesFile(t *testing.T) {
	r := testResolver(t)

	m := newTestManager(t, r)
	m.PluginSettings().GetBool("Enabled", true)
	m.PluginSettings().SetBool("Enabled", false)
	require.True(t, m.WriteSettings())
	path := m.Store(ScopeLocal).Path()
	require.FileExists(t, path)

	again := newTestManager(t, r)
	again.PluginSettings().GetBool("Enabled", true)
	again.PluginSettings().SetBool("Enabled", true)
	assert.False(t, again.WriteSettings())
	assert.NoFileExists(t, path)
}

func TestManager_CommandsAreIsolated(t *testing.T) {
	r := testResolver(t)

	m := newTestManager(t, r)
	m.CommandSettings("Line").GetDouble("Tolerance", 0.01)
	m.CommandSettings("Line").SetDouble("Tolerance", 0.001)
	m.CommandSettings("Circle").GetDouble("Tolerance", 0.01)
	require.True(t, m.WriteSettings())

	doc := readFile(t, m.Store(ScopeLocal).Path())
	assert.Contains(t, doc, `<command name="Line">`)
	assert.NotContains(t, doc, "Circle")

	again := newTestManager(t, r)
	assert.Equal(t, 0.01, again.CommandSettings("Circle").GetDouble("Tolerance", 0.01))
	assert.Equal(t, 0.001, again.CommandSettings("Line").GetDouble("Tolerance", 0.01))
}

func TestManager_ScopesAreIndependent(t *testing.T) {
	r := testResolver(t)

	m := newTestManager(t, r)
	m.PluginSettingsShared().SetString("License", "site")
	m.CommandSettingsShared("Line").SetInt("Count", 2)
	assert.True(t, m.ContainsModifiedValues())

	// Local has nothing modified, so the result is false even though shared was written.
	assert.False(t, m.WriteSettings())
	assert.NoFileExists(t, m.Store(ScopeLocal).Path())
	assert.FileExists(t, m.Store(ScopeShared).Path())

	again := newTestManager(t, r)
	assert.Equal(t, "site", again.PluginSettingsShared().GetString("License", ""))
	assert.False(t, again.PluginSettings().Has("License"))
}

func TestManager_SharedFailureDoesNotBlockLocal(t *testing.T) {
	r := testResolver(t)

	// A regular file where the shared root should be makes MkdirAll fail.
	require.NoError(t, os.MkdirAll(filepath.Dir(r.SharedRoot), 0o755))
	require.NoError(t, os.WriteFile(r.SharedRoot, []byte("not a directory"), 0o644))

	m := newTestManager(t, r)
	m.PluginSettingsShared().SetString("License", "site")
	m.PluginSettings().SetString("Theme", "dark")

	assert.True(t, m.WriteSettings())
	assert.FileExists(t, m.Store(ScopeLocal).Path())
}

func TestManager_StoreFallsBackToLocal(t *testing.T) {
	m := newTestManager(t, testResolver(t))

	assert.Same(t, m.Store(ScopeLocal), m.Store(Scope(42)))
	assert.Equal(t, testPlugin(), m.Plugin())
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("Shared")
	require.NoError(t, err)
	assert.Equal(t, ScopeShared, s)

	s, err = ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeLocal, s)

	_, err = ParseScope("global")
	assert.True(t, errors.Is(err, ErrInvalidScope))
	assert.Equal(t, "scope(7)", Scope(7).String())
}
