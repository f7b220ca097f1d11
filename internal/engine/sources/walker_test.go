package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/onionshare/onionshare/internal/engine"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files (relative path -> content) below root on the host filesystem.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func collect(t *testing.T, src engine.FileSource, root string) []string {
	t.Helper()
	var paths []string
	for p, err := range src.Files(root) {
		require.NoError(t, err)
		paths = append(paths, p)
	}
	return paths
}

func TestWalker_Files(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":           "a",
		"sub/b.txt":       "bb",
		"sub/deep/c.txt":  "ccc",
		"other/empty.txt": "",
	})

	got := collect(t, NewOsWalker(), root)

	assert.ElementsMatch(t, []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "sub", "b.txt"),
		filepath.Join(root, "sub", "deep", "c.txt"),
		filepath.Join(root, "other", "empty.txt"),
	}, got)
}

func TestWalker_SkipsSymlinks(t *testing.T) {
	outside := t.TempDir()
	writeTree(t, outside, map[string]string{
		"target.txt":     "outside",
		"dir/inside.txt": "outside too",
	})

	root := t.TempDir()
	writeTree(t, root, map[string]string{"real.txt": "real"})
	require.NoError(t, os.Symlink(filepath.Join(outside, "target.txt"), filepath.Join(root, "file-link")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "dir"), filepath.Join(root, "dir-link")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "missing"), filepath.Join(root, "dangling")))

	got := collect(t, NewOsWalker(), root)

	assert.Equal(t, []string{filepath.Join(root, "real.txt")}, got)
}

func TestWalker_FollowsSymlinkedRoot(t *testing.T) {
	target := t.TempDir()
	writeTree(t, target, map[string]string{"x.txt": "x"})

	link := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(target, link))

	got := collect(t, NewOsWalker(), link)

	assert.Equal(t, []string{filepath.Join(link, "x.txt")}, got)
}

func TestWalker_FileRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/only.txt", []byte("1"), 0o644))

	got := collect(t, NewWalker(fs), "/data/only.txt")

	assert.Equal(t, []string{"/data/only.txt"}, got)
}

func TestWalker_EmptyDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/empty/nested", 0o755))

	got := collect(t, NewWalker(fs), "/empty")

	assert.Empty(t, got)
}

func TestWalker_MissingRoot(t *testing.T) {
	w := NewWalker(afero.NewMemMapFs())

	var errs []error
	for p, err := range w.Files("/does/not/exist") {
		assert.Empty(t, p)
		errs = append(errs, err)
	}

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], engine.ErrNotFound)
}

func TestWalker_UnreadableSubdirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}

	root := t.TempDir()
	writeTree(t, root, map[string]string{"locked/secret.txt": "s"})
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	var lastErr error
	for _, err := range NewOsWalker().Files(root) {
		if err != nil {
			lastErr = err
		}
	}

	require.Error(t, lastErr)
	assert.ErrorIs(t, lastErr, engine.ErrIO)
}

func TestWalker_Restartable(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/r/one.txt", []byte("1"), 0o644))

	w := NewWalker(fs)
	first := collect(t, w, "/r")

	require.NoError(t, afero.WriteFile(fs, "/r/two.txt", []byte("2"), 0o644))
	second := collect(t, w, "/r")

	assert.Len(t, first, 1)
	assert.ElementsMatch(t, []string{"/r/one.txt", "/r/two.txt"}, second)
}

func TestWalker_StopEarly(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, name := range []string{"/r/a", "/r/b", "/r/c/d", "/r/c/e"} {
		require.NoError(t, afero.WriteFile(fs, name, []byte("x"), 0o644))
	}

	count := 0
	for _, err := range NewWalker(fs).Files("/r") {
		require.NoError(t, err)
		count++
		if count == 2 {
			break
		}
	}

	assert.Equal(t, 2, count)
}
