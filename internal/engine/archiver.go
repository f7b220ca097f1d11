package engine

import "iter"

// Archiver collects files and directory trees into a single archive on disk.
type Archiver interface {
	// AddFile adds a single regular file, named by its base name.
	AddFile(path string) error

	// AddDir adds every regular file below path. Entry names keep the
	// directory's own name as the top-level folder.
	AddDir(path string) error

	// Close finalizes the archive. Calling it more than once is a no-op.
	Close() error

	// Path returns the location of the archive being written.
	Path() string

	// Extension returns the file extension for this archive type (e.g., ".zip").
	Extension() string
}

// FileSource produces the regular files found below a root. Symbolic links are
// never part of the sequence. Every call re-reads the underlying filesystem.
type FileSource interface {
	Files(root string) iter.Seq2[string, error]
}
