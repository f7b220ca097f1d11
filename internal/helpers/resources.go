package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Category is a logical group of bundled resource files.
type Category string

const (
	CategoryHTML   Category = "html"
	CategoryLocale Category = "locale"
	CategoryShare  Category = "share"
)

// UnsupportedCategoryError is returned when a resource category is unknown or
// has no directory configured.
type UnsupportedCategoryError struct {
	Category Category
}

func (e *UnsupportedCategoryError) Error() string {
	return fmt.Sprintf("no resource directory configured for category %q", e.Category)
}

// Resources is the resolved set of base directories resource files are read
// from. It is built once (from config or from the executable location) and
// passed to whatever needs it.
type Resources struct {
	HTML   string
	Locale string
	Share  string
}

// Dir returns the base directory for category.
func (r Resources) Dir(category Category) (string, error) {
	var dir string
	switch category {
	case CategoryHTML:
		dir = r.HTML
	case CategoryLocale:
		dir = r.Locale
	case CategoryShare:
		dir = r.Share
	}
	if dir == "" {
		return "", &UnsupportedCategoryError{Category: category}
	}
	return dir, nil
}

// Path returns the absolute path of filename within category.
func (r Resources) Path(category Category, filename string) (string, error) {
	dir, err := r.Dir(category)
	if err != nil {
		return "", err
	}
	return filepath.Abs(filepath.Join(dir, filename))
}

func (r Resources) HTMLPath(filename string) (string, error) {
	return r.Path(CategoryHTML, filename)
}

func (r Resources) SharePath(filename string) (string, error) {
	return r.Path(CategoryShare, filename)
}

// DefaultResources derives resource directories from the location of the
// running executable. Inside a macOS application bundle the executable sits in
// Contents/MacOS and resources live in Contents/Resources/<category>. On every
// other platform all categories share the executable's directory.
func DefaultResources(goos, executable string) Resources {
	dir := filepath.Dir(executable)
	if goos == "darwin" {
		base := filepath.Join(filepath.Dir(dir), "Resources")
		return Resources{
			HTML:   filepath.Join(base, string(CategoryHTML)),
			Locale: filepath.Join(base, string(CategoryLocale)),
			Share:  filepath.Join(base, string(CategoryShare)),
		}
	}
	return Resources{HTML: dir, Locale: dir, Share: dir}
}

// ResourcesFromExecutable is DefaultResources for the current process.
func ResourcesFromExecutable() (Resources, error) {
	exe, err := os.Executable()
	if err != nil {
		return Resources{}, fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return DefaultResources(runtime.GOOS, exe), nil
}

// Platform returns the name of the operating system, e.g. "Linux" or "Darwin".
func Platform() string {
	return platformName(runtime.GOOS)
}

func platformName(goos string) string {
	switch goos {
	case "darwin":
		return "Darwin"
	case "linux":
		return "Linux"
	case "windows":
		return "Windows"
	case "":
		return ""
	default:
		return strings.ToUpper(goos[:1]) + goos[1:]
	}
}
