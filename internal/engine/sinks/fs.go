package sinks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/onionshare/onionshare/internal/engine"
	"github.com/spf13/afero"
)

const partialSuffix = ".partial"

// FilesystemSink publishes archives into a directory. Data is written next to
// the destination under a ".partial" name and renamed into place once fully
// written, so readers never observe a truncated archive.
type FilesystemSink struct {
	fs afero.Fs
}

func NewFilesystemSink(fs afero.Fs) engine.Sink {
	return &FilesystemSink{fs: fs}
}

// NewFilesystemSinkFromPath returns a sink rooted at path, creating it if needed.
func NewFilesystemSinkFromPath(path string) (engine.Sink, error) {
	cleanPath := filepath.Clean(path)

	if err := os.MkdirAll(cleanPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", cleanPath, err)
	}

	return NewFilesystemSink(afero.NewBasePathFs(afero.NewOsFs(), cleanPath)), nil
}

func (s *FilesystemSink) Name() string {
	return fmt.Sprintf("filesystem(%s)", s.fs.Name())
}

func (s *FilesystemSink) Kind() string {
	return "filesystem"
}

func (s *FilesystemSink) Write(ctx context.Context, path string, data io.Reader) (err error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	partial := path + partialSuffix
	f, err := s.fs.Create(partial)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, s.fs.Remove(partial))
		}
	}()

	if _, err := io.Copy(f, data); err != nil {
		return errors.Join(fmt.Errorf("failed to write to file: %w", err), f.Close())
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publishing %s: %w", path, err)
	}

	if err := s.fs.Rename(partial, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	return nil
}

func (s *FilesystemSink) Close(ctx context.Context) error {
	return nil
}
