package archivers

import (
	"bytes"
	"errors"
	"io"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/onionshare/onionshare/internal/engine"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type zipEntry struct {
	content string
	method  uint16
	size    uint64
}

// readZipEntries opens the archive at path on fs and returns a map of entry name -> entry.
func readZipEntries(t *testing.T, fs afero.Fs, path string) map[string]zipEntry {
	t.Helper()

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	found := make(map[string]zipEntry)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())

		found[f.Name] = zipEntry{
			content: string(content),
			method:  f.Method,
			size:    f.UncompressedSize64,
		}
	}
	return found
}

func contents(entries map[string]zipEntry) map[string]string {
	return lo.MapValues(entries, func(e zipEntry, _ string) string { return e.content })
}

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
}

func newMemArchiver(t *testing.T, fs afero.Fs, opts ...ZipOption) *ZipArchiver {
	t.Helper()
	opts = append([]ZipOption{WithFs(fs), WithPath("/out/share.zip"), WithLogger(zaptest.NewLogger(t))}, opts...)
	a, err := NewZipArchiver(opts...)
	require.NoError(t, err)
	return a
}

func TestZipArchiver_AddFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/src/docs/readme.txt": "hello, world!"})

	a := newMemArchiver(t, fs)
	require.NoError(t, a.AddFile("/src/docs/readme.txt"))
	require.NoError(t, a.Close())

	found := readZipEntries(t, fs, a.Path())
	require.Len(t, found, 1)
	assert.Equal(t, "hello, world!", found["readme.txt"].content)
	assert.Equal(t, zip.Deflate, found["readme.txt"].method)
	assert.Equal(t, 1, a.Entries())
}

func TestZipArchiver_AddDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/home/user/root/sub/leaf.txt": "leaf",
		"/home/user/root/top.txt":      "top",
		"/home/user/root/a/b/c/d.txt":  "deep",
	})

	a := newMemArchiver(t, fs)
	require.NoError(t, a.AddDir("/home/user/root"))
	require.NoError(t, a.Close())

	assert.Equal(t, map[string]string{
		"root/sub/leaf.txt": "leaf",
		"root/top.txt":      "top",
		"root/a/b/c/d.txt":  "deep",
	}, contents(readZipEntries(t, fs, a.Path())))
}

func TestZipArchiver_AddDirTrailingSeparator(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/data/project/a.txt": "a"})

	a := newMemArchiver(t, fs)
	require.NoError(t, a.AddDir("/data/project//"))
	require.NoError(t, a.Close())

	assert.Equal(t, map[string]string{"project/a.txt": "a"}, contents(readZipEntries(t, fs, a.Path())))
}

func TestZipArchiver_AddDirEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data/empty/nested", 0o755))

	a := newMemArchiver(t, fs)
	require.NoError(t, a.AddDir("/data/empty"))
	require.NoError(t, a.Close())

	assert.Empty(t, readZipEntries(t, fs, a.Path()))
	assert.Zero(t, a.Entries())
}

func TestZipArchiver_MixedInputs(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/in/notes.txt":        "notes",
		"/in/photos/cat.jpg":   "meow",
		"/in/photos/2024/dog":  "woof",
		"/elsewhere/music.mp3": "la la",
	})

	a := newMemArchiver(t, fs)
	require.NoError(t, a.AddFile("/in/notes.txt"))
	require.NoError(t, a.AddDir("/in/photos"))
	require.NoError(t, a.AddFile("/elsewhere/music.mp3"))
	require.NoError(t, a.Close())

	assert.Equal(t, map[string]string{
		"notes.txt":       "notes",
		"photos/cat.jpg":  "meow",
		"photos/2024/dog": "woof",
		"music.mp3":       "la la",
	}, contents(readZipEntries(t, fs, a.Path())))
}

func TestZipArchiver_SkipsSymlinks(t *testing.T) {
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("do not share"), 0o644))

	base := t.TempDir()
	project := filepath.Join(base, "project")
	require.NoError(t, os.MkdirAll(project, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, "a.txt"), []byte("abcd"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(project, "link")))
	require.NoError(t, os.Symlink(outside, filepath.Join(project, "dir-link")))

	out := filepath.Join(t.TempDir(), "out.zip")
	a, err := NewZipArchiver(WithPath(out), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	require.NoError(t, a.AddDir(project))
	require.NoError(t, a.Close())

	found := readZipEntries(t, afero.NewOsFs(), out)
	require.Len(t, found, 1)
	entry, ok := found["project/a.txt"]
	require.True(t, ok, "expected project/a.txt in %v", found)
	assert.Equal(t, uint64(4), entry.size)
	assert.Equal(t, "abcd", entry.content)
}

func TestZipArchiver_SkipsOwnOutput(t *testing.T) {
	t.Run("in-memory", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, map[string]string{"/src/docs/a.txt": "aaaa"})

		a, err := NewZipArchiver(WithFs(fs), WithPath("/src/docs/out.zip"), WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		require.NoError(t, a.AddDir("/src/docs"))
		require.NoError(t, a.Close())

		assert.Equal(t, map[string]string{"docs/a.txt": "aaaa"}, contents(readZipEntries(t, fs, a.Path())))
	})

	t.Run("on disk with data already flushed", func(t *testing.T) {
		docs := filepath.Join(t.TempDir(), "docs")
		require.NoError(t, os.MkdirAll(docs, 0o755))
		big := strings.Repeat("0123456789abcdef", 1<<16)
		require.NoError(t, os.WriteFile(filepath.Join(docs, "a.bin"), []byte(big), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(docs, "z.txt"), []byte("z"), 0o644))

		out := filepath.Join(docs, "out.zip")
		a, err := NewZipArchiver(WithPath(out), WithCompressionLevel(0), WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		require.NoError(t, a.AddDir(docs))
		require.NoError(t, a.Close())

		found := readZipEntries(t, afero.NewOsFs(), out)
		assert.Len(t, found, 2)
		assert.Contains(t, found, "docs/a.bin")
		assert.Contains(t, found, "docs/z.txt")
		assert.NotContains(t, found, "docs/out.zip")
	})

	t.Run("add file rejects the archive", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		a := newMemArchiver(t, fs)
		defer a.Close()

		err := a.AddFile("/out/share.zip")
		require.ErrorIs(t, err, engine.ErrInvalidState)
		assert.Zero(t, a.Entries())
	})
}

type staticSource []string

func (s staticSource) Files(string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, f := range s {
			if !yield(f, nil) {
				return
			}
		}
	}
}

type failingSource struct{ err error }

func (s failingSource) Files(string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield("", s.err)
	}
}

func TestZipArchiver_WithFileSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/in/photos/cat.jpg":  "meow",
		"/in/photos/dog.jpg":  "woof",
		"/in/photos/skip.raw": "raw",
	})

	t.Run("only listed files are added", func(t *testing.T) {
		src := staticSource{"/in/photos/cat.jpg", "/in/photos/dog.jpg"}
		a := newMemArchiver(t, fs, WithFileSource(src))
		require.NoError(t, a.AddDir("/in/photos"))
		require.NoError(t, a.Close())

		assert.Equal(t, map[string]string{
			"photos/cat.jpg": "meow",
			"photos/dog.jpg": "woof",
		}, contents(readZipEntries(t, fs, a.Path())))
	})

	t.Run("source errors are returned", func(t *testing.T) {
		a := newMemArchiver(t, fs, WithFileSource(failingSource{err: engine.ErrIO}))
		defer a.Close()

		require.ErrorIs(t, a.AddDir("/in/photos"), engine.ErrIO)
		assert.Zero(t, a.Entries())
	})
}

func TestZipArchiver_RelativeDir(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "share", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "share", "sub", "f.txt"), []byte("f"), 0o644))
	t.Chdir(filepath.Join(base, "share"))

	out := filepath.Join(t.TempDir(), "out.zip")
	a, err := NewZipArchiver(WithPath(out))
	require.NoError(t, err)
	require.NoError(t, a.AddDir("."))
	require.NoError(t, a.Close())

	assert.Equal(t, map[string]string{"share/sub/f.txt": "f"}, contents(readZipEntries(t, afero.NewOsFs(), out)))
}

func TestZipArchiver_LargeContentRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := strings.Repeat("onionshare ", 100_000)
	writeFiles(t, fs, map[string]string{"/big/file.log": content})

	a := newMemArchiver(t, fs, WithCompressionLevel(9))
	require.NoError(t, a.AddFile("/big/file.log"))
	require.NoError(t, a.Close())

	found := readZipEntries(t, fs, a.Path())
	assert.Equal(t, content, found["file.log"].content)
	assert.Equal(t, uint64(len(content)), found["file.log"].size)

	info, err := fs.Stat(a.Path())
	require.NoError(t, err)
	assert.Less(t, info.Size(), int64(len(content)/10), "deflate should shrink repetitive content")
}

func TestZipArchiver_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/data/file.txt": "x"})
	require.NoError(t, fs.MkdirAll("/data/dir", 0o755))

	tests := []struct {
		name    string
		add     func(a *ZipArchiver) error
		wantErr error
	}{
		{
			name:    "missing file",
			add:     func(a *ZipArchiver) error { return a.AddFile("/data/missing.txt") },
			wantErr: engine.ErrNotFound,
		},
		{
			name:    "file is a directory",
			add:     func(a *ZipArchiver) error { return a.AddFile("/data/dir") },
			wantErr: engine.ErrIO,
		},
		{
			name:    "missing directory",
			add:     func(a *ZipArchiver) error { return a.AddDir("/data/missing") },
			wantErr: engine.ErrNotFound,
		},
		{
			name:    "directory is a file",
			add:     func(a *ZipArchiver) error { return a.AddDir("/data/file.txt") },
			wantErr: engine.ErrIO,
		},
		{
			name:    "filesystem root",
			add:     func(a *ZipArchiver) error { return a.AddDir("/") },
			wantErr: engine.ErrInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newMemArchiver(t, fs)
			defer a.Close()

			err := tt.add(a)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, a.Entries())
		})
	}
}

func TestZipArchiver_FailureKeepsArchiveOpen(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/data/ok.txt": "ok", "/data/later.txt": "later"})

	a := newMemArchiver(t, fs)
	require.NoError(t, a.AddFile("/data/ok.txt"))
	require.Error(t, a.AddFile("/data/gone.txt"))
	require.NoError(t, a.AddFile("/data/later.txt"))
	require.NoError(t, a.Close())

	assert.Equal(t, map[string]string{"ok.txt": "ok", "later.txt": "later"}, contents(readZipEntries(t, fs, a.Path())))
}

func TestZipArchiver_AddAfterClose(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/data/a.txt": "a", "/data/dir/b.txt": "b"})

	a := newMemArchiver(t, fs)
	require.NoError(t, a.AddFile("/data/a.txt"))
	require.NoError(t, a.Close())

	before, err := afero.ReadFile(fs, a.Path())
	require.NoError(t, err)

	err = a.AddFile("/data/a.txt")
	require.ErrorIs(t, err, engine.ErrInvalidState)

	err = a.AddDir("/data/dir")
	require.ErrorIs(t, err, engine.ErrInvalidState)

	after, err := afero.ReadFile(fs, a.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after, "archive must not change after Close")
	assert.Equal(t, 1, a.Entries())
}

func TestZipArchiver_CloseTwice(t *testing.T) {
	a := newMemArchiver(t, afero.NewMemMapFs())

	require.NoError(t, a.Close())
	assert.NoError(t, a.Close(), "second Close should be a no-op")
}

func TestZipArchiver_DeferredClose(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/data/a.txt": "a"})

	build := func() (path string, err error) {
		a, err := NewZipArchiver(WithFs(fs), WithPath("/out/deferred.zip"))
		if err != nil {
			return "", err
		}
		defer func() {
			err = errors.Join(err, a.Close())
		}()

		if err := a.AddFile("/data/a.txt"); err != nil {
			return "", err
		}
		return a.Path(), a.Close()
	}

	path, err := build()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.txt": "a"}, contents(readZipEntries(t, fs, path)))
}

func TestZipArchiver_DefaultPath(t *testing.T) {
	fs := afero.NewMemMapFs()

	a, err := NewZipArchiver(WithFs(fs))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	assert.Regexp(t, regexp.MustCompile(`^onionshare_[a-z2-7]{6}\.zip$`), filepath.Base(a.Path()))

	exists, err := afero.Exists(fs, a.Path())
	require.NoError(t, err)
	assert.True(t, exists)

	b, err := NewZipArchiver(WithFs(fs))
	require.NoError(t, err)
	require.NoError(t, b.Close())
	assert.NotEqual(t, filepath.Dir(a.Path()), filepath.Dir(b.Path()), "each archive gets its own temporary directory")
}

func TestZipArchiver_DefaultPathDeterministic(t *testing.T) {
	fs := afero.NewMemMapFs()
	seed := []byte{9, 9, 9, 9}

	a, err := NewZipArchiver(WithFs(fs), WithRandom(bytes.NewReader(seed)))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := NewZipArchiver(WithFs(fs), WithRandom(bytes.NewReader(seed)))
	require.NoError(t, err)
	require.NoError(t, b.Close())

	assert.Equal(t, filepath.Base(a.Path()), filepath.Base(b.Path()))
}

func TestNewZipArchiver_CompressionLevel(t *testing.T) {
	tests := []struct {
		level   int
		wantErr bool
	}{
		{level: -2},
		{level: -1},
		{level: 0},
		{level: 9},
		{level: -3, wantErr: true},
		{level: 10, wantErr: true},
	}

	for _, tt := range tests {
		a, err := NewZipArchiver(WithFs(afero.NewMemMapFs()), WithPath("/x.zip"), WithCompressionLevel(tt.level))
		if tt.wantErr {
			require.Error(t, err, "level %d", tt.level)
			continue
		}
		require.NoError(t, err, "level %d", tt.level)
		require.NoError(t, a.Close())
	}
}

func TestZipArchiver_Extension(t *testing.T) {
	a := newMemArchiver(t, afero.NewMemMapFs())
	defer a.Close()
	assert.Equal(t, ".zip", a.Extension())
}
