package engine

import (
	"errors"
	"fmt"
	"io/fs"
)

// Error categories shared by the walker, the size calculator and the archivers.
// Wrapped errors keep the underlying cause, so both errors.Is(err, ErrNotFound)
// and errors.Is(err, fs.ErrNotExist) hold for a missing path.
var (
	// ErrNotFound is returned when a path does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIO covers unreadable entries, permission denials and failed writes.
	ErrIO = errors.New("i/o error")

	// ErrInvalidState is returned when an operation is not allowed in the
	// current state, such as adding to a closed archive.
	ErrInvalidState = errors.New("invalid state")
)

// PathError categorizes a filesystem error for path as ErrNotFound or ErrIO.
func PathError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s %s: %w: %w", op, path, ErrNotFound, err)
	}
	return fmt.Errorf("%s %s: %w: %w", op, path, ErrIO, err)
}
