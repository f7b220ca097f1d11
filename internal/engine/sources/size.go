package sources

import (
	"github.com/onionshare/onionshare/internal/engine"
	"github.com/spf13/afero"
)

// DirSize returns the total size in bytes of the regular files src yields
// below root. Symbolic links contribute nothing.
func DirSize(fs afero.Fs, src engine.FileSource, root string) (int64, error) {
	var total int64

	for path, err := range src.Files(root) {
		if err != nil {
			return 0, err
		}

		info, err := fs.Stat(path)
		if err != nil {
			return 0, engine.PathError("stat", path, err)
		}
		total += info.Size()
	}

	return total, nil
}

// DirSizeOS is DirSize on the host filesystem.
func DirSizeOS(root string) (int64, error) {
	w := NewOsWalker()
	return DirSize(w.Fs(), w, root)
}
