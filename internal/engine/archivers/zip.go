package archivers

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/onionshare/onionshare/internal/engine"
	"github.com/onionshare/onionshare/internal/engine/sources"
	"github.com/onionshare/onionshare/internal/helpers"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	zipPrefix    = "onionshare_"
	zipExtension = ".zip"
)

// ZipArchiver streams files and directory trees into a ZIP archive on disk.
// Every entry is deflated; zip64 records are written when the archive needs
// them.
//
// A ZipArchiver is not safe for concurrent use. Once Close has been called,
// AddFile and AddDir fail with engine.ErrInvalidState, and further calls to
// Close do nothing.
type ZipArchiver struct {
	fs     afero.Fs
	src    engine.FileSource
	logger *zap.Logger
	random io.Reader
	level  int

	path    string
	absPath string
	self    fs.FileInfo
	file    afero.File
	writer  *zip.Writer
	entries int
	closed  bool
}

var _ engine.Archiver = (*ZipArchiver)(nil)

// ZipOption configures a ZipArchiver.
type ZipOption func(*ZipArchiver)

// WithPath sets the output path. Without it, the archive is created as
// onionshare_<random>.zip inside a fresh temporary directory.
func WithPath(path string) ZipOption {
	return func(a *ZipArchiver) {
		a.path = path
	}
}

// WithFs sets the filesystem both sources and the archive live on.
func WithFs(fs afero.Fs) ZipOption {
	return func(a *ZipArchiver) {
		a.fs = fs
	}
}

// WithFileSource overrides how directories are enumerated. Defaults to a
// sources.Walker on the archiver's filesystem.
func WithFileSource(src engine.FileSource) ZipOption {
	return func(a *ZipArchiver) {
		a.src = src
	}
}

func WithLogger(logger *zap.Logger) ZipOption {
	return func(a *ZipArchiver) {
		a.logger = logger
	}
}

// WithCompressionLevel sets the deflate level, from flate.HuffmanOnly (-2)
// to flate.BestCompression (9).
func WithCompressionLevel(level int) ZipOption {
	return func(a *ZipArchiver) {
		a.level = level
	}
}

// WithRandom sets the random source used to name default archives.
func WithRandom(r io.Reader) ZipOption {
	return func(a *ZipArchiver) {
		a.random = r
	}
}

// NewZipArchiver creates the output file and opens a ZIP writer on it.
func NewZipArchiver(opts ...ZipOption) (*ZipArchiver, error) {
	a := &ZipArchiver{
		fs:     afero.NewOsFs(),
		logger: zap.NewNop(),
		level:  flate.DefaultCompression,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.level < flate.HuffmanOnly || a.level > flate.BestCompression {
		return nil, fmt.Errorf("unsupported compression level %d", a.level)
	}

	if a.src == nil {
		a.src = sources.NewWalker(a.fs)
	}

	if a.path == "" {
		path, err := DefaultZipPath(a.fs, a.random)
		if err != nil {
			return nil, err
		}
		a.path = path
	} else {
		dir := filepath.Dir(a.path)
		if dir != "" && dir != "." {
			if err := a.fs.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create parent directory: %w: %w", engine.ErrIO, err)
			}
		}
	}

	f, err := a.fs.Create(a.path)
	if err != nil {
		return nil, fmt.Errorf("failed to create zip file: %w", engine.PathError("create", a.path, err))
	}

	if a.absPath, err = filepath.Abs(a.path); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to resolve zip path: %w: %w", engine.ErrIO, err)
	}
	if a.self, err = f.Stat(); err != nil {
		f.Close()
		return nil, engine.PathError("stat", a.path, err)
	}

	level := a.level
	a.file = f
	a.writer = zip.NewWriter(f)
	a.writer.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	a.logger.Debug("zip archive created", zap.String("path", a.path), zap.Int("level", level))

	return a, nil
}

// DefaultZipPath allocates a new temporary directory on fs and returns the
// path of onionshare_<suffix>.zip inside it, where suffix is six lowercase
// base32 characters.
func DefaultZipPath(fs afero.Fs, random io.Reader) (string, error) {
	dir, err := afero.TempDir(fs, "", "onionshare")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary directory: %w: %w", engine.ErrIO, err)
	}

	suffix, err := helpers.RandomString(random, 4, 6)
	if err != nil {
		return "", fmt.Errorf("failed to generate archive name: %w", err)
	}

	return filepath.Join(dir, zipPrefix+suffix+zipExtension), nil
}

// AddFile adds the regular file at path under its base name.
func (a *ZipArchiver) AddFile(path string) error {
	if a.closed {
		return fmt.Errorf("add file %s: %w: archive is closed", path, engine.ErrInvalidState)
	}

	info, err := a.fs.Stat(path)
	if err != nil {
		return engine.PathError("add file", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("add file %s: %w: not a regular file", path, engine.ErrIO)
	}
	if a.isSelf(path, info) {
		return fmt.Errorf("add file %s: %w: cannot add the archive to itself", path, engine.ErrInvalidState)
	}

	return a.writeEntry(path, filepath.Base(path), info)
}

// AddDir adds every regular file below path. Names are relative to the parent
// of path, so "docs/" yields entries such as "docs/guide/intro.md". Symbolic
// links are skipped and an empty directory adds nothing.
//
// If a file fails partway, the entries already written stay in the archive
// and the archive remains open.
func (a *ZipArchiver) AddDir(path string) error {
	if a.closed {
		return fmt.Errorf("add directory %s: %w: archive is closed", path, engine.ErrInvalidState)
	}

	root, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("add directory %s: %w: %w", path, engine.ErrIO, err)
	}

	parent := filepath.Dir(root)
	if parent == root {
		return fmt.Errorf("add directory %s: %w: cannot archive filesystem root", path, engine.ErrInvalidState)
	}

	info, err := a.fs.Stat(root)
	if err != nil {
		return engine.PathError("add directory", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("add directory %s: %w: not a directory", path, engine.ErrIO)
	}

	added := 0
	for file, err := range a.src.Files(root) {
		if err != nil {
			return err
		}

		name, err := filepath.Rel(parent, file)
		if err != nil {
			return fmt.Errorf("failed to compute entry name for %s: %w: %w", file, engine.ErrIO, err)
		}

		fileInfo, err := a.fs.Stat(file)
		if err != nil {
			return engine.PathError("stat", file, err)
		}
		if a.isSelf(file, fileInfo) {
			a.logger.Debug("skipping the archive itself", zap.String("path", file))
			continue
		}

		if err := a.writeEntry(file, filepath.ToSlash(name), fileInfo); err != nil {
			return err
		}
		added++
	}

	a.logger.Debug("added directory", zap.String("path", root), zap.Int("entries", added))

	return nil
}

// isSelf reports whether path is the archive being written, either by name or
// by file identity when the filesystem exposes it.
func (a *ZipArchiver) isSelf(path string, info fs.FileInfo) bool {
	if abs, err := filepath.Abs(path); err == nil && abs == a.absPath {
		return true
	}
	return os.SameFile(a.self, info)
}

func (a *ZipArchiver) writeEntry(path, name string, info fs.FileInfo) error {
	src, err := a.fs.Open(path)
	if err != nil {
		return engine.PathError("open", path, err)
	}
	defer src.Close()

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to build zip header for %s: %w: %w", path, engine.ErrIO, err)
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := a.writer.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create zip entry %s: %w: %w", name, engine.ErrIO, err)
	}

	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("failed to write zip entry %s: %w: %w", name, engine.ErrIO, err)
	}

	a.entries++
	a.logger.Debug("added zip entry",
		zap.String("path", path),
		zap.String("name", name),
		zap.Int64("size", info.Size()),
	)

	return nil
}

// Close writes the central directory and closes the output file. The file is
// released even when finalizing fails.
func (a *ZipArchiver) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	var errs error
	if err := a.writer.Close(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to finalize zip archive: %w: %w", engine.ErrIO, err))
	}
	if err := a.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		errs = errors.Join(errs, fmt.Errorf("failed to close zip file: %w: %w", engine.ErrIO, err))
	}

	if errs != nil {
		return errs
	}

	a.logger.Info("zip archive closed", zap.String("path", a.path), zap.Int("entries", a.entries))

	return nil
}

// Path returns the location of the archive.
func (a *ZipArchiver) Path() string {
	return a.path
}

// Entries returns the number of entries written so far.
func (a *ZipArchiver) Entries() int {
	return a.entries
}

// Extension returns the file extension for this archive type.
func (a *ZipArchiver) Extension() string {
	return zipExtension
}
