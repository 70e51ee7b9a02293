package settings

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/celerix-settings/pkg/schema"
)

// flakyFS wraps the real file system and injects failures into reads and copies.
type flakyFS struct {
	osFS

	readCalls int
	readErr   func(call int) error

	copyCalls int
	copyErr   func(call int) error
}

func (f *flakyFS) ReadFile(name string) ([]byte, error) {
	f.readCalls++
	if f.readErr != nil {
		if err := f.readErr(f.readCalls); err != nil {
			return nil, err
		}
	}
	return f.osFS.ReadFile(name)
}

func (f *flakyFS) Copy(src, dst string) error {
	f.copyCalls++
	if f.copyErr != nil {
		if err := f.copyErr(f.copyCalls); err != nil {
			return err
		}
	}
	return f.osFS.Copy(src, dst)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions(extra ...StoreOption) []StoreOption {
	return append([]StoreOption{
		WithLogger(quietLogger()),
		WithRetryDelays(time.Millisecond, time.Millisecond),
	}, extra...)
}

func testPlugin() schema.Plugin {
	return schema.Plugin{Name: "Marker", ID: uuid.MustParse("7d7f6c1a-3a4b-4c5d-9e8f-0a1b2c3d4e5f")}
}

func testResolver(t *testing.T) DirResolver {
	t.Helper()
	root := t.TempDir()
	return DirResolver{
		LocalRoot:  filepath.Join(root, "user"),
		SharedRoot: filepath.Join(root, "machine"),
	}
}

func newTestManager(t *testing.T, r Resolver, extra ...StoreOption) *Manager {
	t.Helper()
	m, err := NewManager(testPlugin(), r, testOptions(extra...)...)
	require.NoError(t, err)
	return m
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
