package settings

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_MissingFileReadsAsEmpty(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "p", FileName), ScopeLocal, testOptions()...)

	assert.False(t, s.ReadSettings())
	assert.Equal(t, 0, s.Plugin().Len())
	assert.False(t, s.ContainsModifiedValues())
}

func TestStore_WriteThenReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p", FileName)
	s := NewStore(path, ScopeLocal, testOptions()...)

	s.Plugin().GetBool("Enabled", true)
	s.Plugin().SetBool("Enabled", false)
	s.Command("Line").SetDouble("Tolerance", 0.001)
	require.True(t, s.WriteSettings())

	reloaded := NewStore(path, ScopeLocal, testOptions()...)
	require.True(t, reloaded.ReadSettings())
	assert.False(t, reloaded.Plugin().GetBool("Enabled", true))
	assert.Equal(t, 0.001, reloaded.Command("Line").GetDouble("Tolerance", 0.01))
	assert.True(t, reloaded.ContainsModifiedValues())
}

func TestStore_WriteKeepsBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p", FileName)
	s := NewStore(path, ScopeLocal, testOptions()...)

	s.Plugin().SetInt("Count", 1)
	require.True(t, s.WriteSettings())
	first := readFile(t, path)

	s.Plugin().SetInt("Count", 2)
	require.True(t, s.WriteSettings())

	assert.Equal(t, first, readFile(t, path+BackupSuffix))
	assert.Contains(t, readFile(t, path), `<entry key="Count">2</entry>`)

	s.Plugin().SetInt("Count", 3)
	require.True(t, s.WriteSettings())
	assert.Contains(t, readFile(t, path+BackupSuffix), `<entry key="Count">2</entry>`)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestStore_NothingModifiedDeletesFileAndPrunesDirs(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a", "b", "c", FileName)
	s := NewStore(path, ScopeLocal, testOptions()...)

	s.Plugin().GetInt("Count", 0)
	s.Plugin().SetInt("Count", 5)
	require.True(t, s.WriteSettings())
	assert.NoFileExists(t, path+BackupSuffix)

	s.Plugin().SetInt("Count", 0)
	assert.False(t, s.WriteSettings())

	assert.NoFileExists(t, path)
	assert.NoDirExists(t, filepath.Join(root, "a", "b", "c"))
	assert.NoDirExists(t, filepath.Join(root, "a", "b"))
	assert.DirExists(t, filepath.Join(root, "a"), "pruning stops after two levels")
}

func TestStore_DeleteKeepsNonEmptyDirs(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "plugin", FileName)
	writeFile(t, filepath.Join(root, "plugin", "notes.txt"), "keep")
	writeFile(t, path, `<settings id="1.0"><plugin><entry key="A">1</entry></plugin></settings>`)

	s := NewStore(path, ScopeLocal, testOptions()...)
	s.Plugin().DeleteKey("A")
	assert.False(t, s.WriteSettings())

	assert.NoFileExists(t, path)
	assert.FileExists(t, filepath.Join(root, "plugin", "notes.txt"))
}

func TestStore_UntouchedStoreKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p", FileName)
	writeFile(t, path, `<settings id="1.0"><plugin><entry key="A">1</entry></plugin></settings>`)

	s := NewStore(path, ScopeLocal, testOptions()...)
	assert.True(t, s.WriteSettings())
	assert.FileExists(t, path)
	assert.Contains(t, readFile(t, path), `<entry key="A">1</entry>`)
}

func TestStore_CorruptFileBehavesLikeFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p", FileName)
	writeFile(t, path, "<settings id=\"1.0\"><plugin><entry key=")

	s := NewStore(path, ScopeLocal, testOptions()...)
	assert.False(t, s.ReadSettings())
	assert.Equal(t, int32(4), s.Plugin().GetInt("Count", 4))
	assert.False(t, s.ContainsModifiedValues())
}

func TestStore_WrongVersionIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p", FileName)
	writeFile(t, path, `<settings id="0.9"><plugin><entry key="A">1</entry></plugin></settings>`)

	s := NewStore(path, ScopeLocal, testOptions()...)
	assert.False(t, s.ReadSettings())
	assert.False(t, s.Plugin().Has("A"))

	// A write with nothing modified removes the unreadable file.
	assert.False(t, s.WriteSettings())
	assert.NoFileExists(t, path)
}

func TestStore_LockedReadRetriesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p", FileName)
	writeFile(t, path, `<settings id="1.0"><plugin><entry key="A">1</entry></plugin></settings>`)

	fsys := &flakyFS{readErr: func(int) error { return errFileLocked }}
	s := NewStore(path, ScopeLocal, testOptions(withFileSystem(fsys))...)

	assert.False(t, s.ReadSettings())
	assert.Equal(t, 2, fsys.readCalls)
	assert.False(t, s.Plugin().Has("A"))
}

func TestStore_LockReleasedBeforeRetry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p", FileName)
	writeFile(t, path, `<settings id="1.0"><plugin><entry key="A">1</entry></plugin></settings>`)

	fsys := &flakyFS{readErr: func(call int) error {
		if call == 1 {
			return errFileLocked
		}
		return nil
	}}
	s := NewStore(path, ScopeLocal, testOptions(withFileSystem(fsys))...)

	assert.True(t, s.ReadSettings())
	assert.Equal(t, 2, fsys.readCalls)
	assert.True(t, s.Plugin().Has("A"))
}

func TestStore_OtherReadErrorsAreNotRetried(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p", FileName)
	writeFile(t, path, `<settings id="1.0"></settings>`)

	fsys := &flakyFS{readErr: func(int) error { return errors.New("io failure") }}
	s := NewStore(path, ScopeLocal, testOptions(withFileSystem(fsys))...)

	assert.False(t, s.ReadSettings())
	assert.Equal(t, 1, fsys.readCalls)
}

func TestStore_CopyRetriesUntilSuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p", FileName)
	fsys := &flakyFS{copyErr: func(call int) error {
		if call < copyAttempts {
			return errFileLocked
		}
		return nil
	}}
	s := NewStore(path, ScopeLocal, testOptions(withFileSystem(fsys))...)
	s.Plugin().SetString("Name", "x")

	assert.True(t, s.WriteSettings())
	assert.Equal(t, copyAttempts, fsys.copyCalls)
	assert.Contains(t, readFile(t, path), `<entry key="Name">x</entry>`)
}

func TestStore_CopyGivesUpAfterFiveAttempts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p", FileName)
	fsys := &flakyFS{copyErr: func(int) error { return errFileLocked }}
	s := NewStore(path, ScopeLocal, testOptions(withFileSystem(fsys))...)
	s.Plugin().SetString("Name", "x")

	assert.False(t, s.WriteSettings())
	assert.Equal(t, 5, fsys.copyCalls)
	assert.NoFileExists(t, path)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temporary file %s left behind", e.Name())
	}

	// The cache survives a failed write and a later write succeeds.
	fsys.copyErr = nil
	assert.True(t, s.WriteSettings())
	assert.FileExists(t, path)
}

func TestStore_IsOwnContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p", FileName)
	s := NewStore(path, ScopeLocal, testOptions()...)
	s.Plugin().SetString("Name", "x")
	require.True(t, s.WriteSettings())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, s.isOwnContent(data))
	assert.False(t, s.isOwnContent([]byte("<settings/>")))
}

func TestStore_ContentIsOwnWhileCopying(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p", FileName)
	fsys := &flakyFS{}
	s := NewStore(path, ScopeLocal, testOptions(withFileSystem(fsys))...)
	s.Plugin().SetString("Name", "x")
	require.True(t, s.WriteSettings())
	previous, err := os.ReadFile(path)
	require.NoError(t, err)

	s.Plugin().SetString("Name", "y")
	next, err := EncodeDocument(s.plugin, s.commands)
	require.NoError(t, err)

	var previousOwn, nextOwn bool
	fsys.copyErr = func(int) error {
		previousOwn = s.isOwnContent(previous)
		nextOwn = s.isOwnContent(next)
		return nil
	}
	require.True(t, s.WriteSettings())
	assert.True(t, previousOwn, "the replaced content is still known while copying")
	assert.True(t, nextOwn, "the new content is known before the copy completes")

	assert.True(t, s.isOwnContent(next))
	assert.False(t, s.isOwnContent(previous))
}

func TestStore_FailedCopyKeepsKnownContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p", FileName)
	fsys := &flakyFS{}
	s := NewStore(path, ScopeLocal, testOptions(withFileSystem(fsys))...)
	s.Plugin().SetString("Name", "x")
	require.True(t, s.WriteSettings())
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	fsys.copyErr = func(int) error { return errFileLocked }
	s.Plugin().SetString("Name", "y")
	require.False(t, s.WriteSettings())

	assert.True(t, s.isOwnContent(before))
	pending, err := EncodeDocument(s.plugin, s.commands)
	require.NoError(t, err)
	assert.False(t, s.isOwnContent(pending))
}

func TestStore_UnrepresentableValueIsNotWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p", FileName)
	s := NewStore(path, ScopeLocal, testOptions()...)
	s.Plugin().SetString("Name", "a\x01b")

	assert.False(t, s.WriteSettings())
	assert.NoFileExists(t, path)

	// The cache is kept, so fixing the value makes the next write succeed.
	v, ok := TryGet(s.Plugin(), String, "Name")
	require.True(t, ok)
	assert.Equal(t, "a\x01b", v)

	s.Plugin().SetString("Name", "ab")
	assert.True(t, s.WriteSettings())
	assert.FileExists(t, path)
}
