// Package sources provides file sources that enumerate regular files on a
// filesystem, and consumers built on top of them.
package sources

import (
	"io/fs"
	"iter"
	"path/filepath"

	"github.com/onionshare/onionshare/internal/engine"
	"github.com/spf13/afero"
)

// Walker is an engine.FileSource backed by an afero filesystem.
//
// The root passed to Files is resolved with Stat, so a root that is itself a
// symbolic link is followed. Below the root nothing is followed: symbolic
// links are skipped, whether they point to files or directories.
type Walker struct {
	fs afero.Fs
}

var _ engine.FileSource = (*Walker)(nil)

func NewWalker(fs afero.Fs) *Walker {
	return &Walker{fs: fs}
}

// NewOsWalker returns a Walker over the host filesystem.
func NewOsWalker() *Walker {
	return NewWalker(afero.NewOsFs())
}

// Fs returns the filesystem the walker reads from.
func (w *Walker) Fs() afero.Fs {
	return w.fs
}

// Files returns a depth-first sequence of the regular files below root.
//
// Paths are joined onto root, so an absolute root gives absolute paths. No
// particular order is guaranteed between entries of a directory. A root that
// is a regular file yields only itself. On failure a single ("", err) pair is
// yielded and the sequence ends; err wraps engine.ErrNotFound or engine.ErrIO.
func (w *Walker) Files(root string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		info, err := w.fs.Stat(root)
		if err != nil {
			yield("", engine.PathError("walk", root, err))
			return
		}

		if !info.IsDir() {
			if info.Mode().IsRegular() {
				yield(root, nil)
			}
			return
		}

		w.walkDir(root, yield)
	}
}

// walkDir reports false once the consumer stopped or an error was yielded.
func (w *Walker) walkDir(dir string, yield func(string, error) bool) bool {
	// ReadDir reports entries the way lstat does, so links are seen as links.
	entries, err := afero.ReadDir(w.fs, dir)
	if err != nil {
		yield("", engine.PathError("read directory", dir, err))
		return false
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		mode := entry.Mode()

		switch {
		case mode&fs.ModeSymlink != 0:
			continue
		case mode.IsDir():
			if !w.walkDir(path, yield) {
				return false
			}
		case mode.IsRegular():
			if !yield(path, nil) {
				return false
			}
		}
	}

	return true
}
