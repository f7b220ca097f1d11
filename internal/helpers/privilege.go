package helpers

import "os"

// IsRoot reports whether the process runs with an effective uid of 0.
// Always false on Windows.
func IsRoot() bool {
	return os.Geteuid() == 0
}
