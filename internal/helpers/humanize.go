package helpers

import "fmt"

var sizeUnits = []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB", "ZiB", "YiB"}

// HumanReadableFilesize formats b bytes with one decimal and binary units,
// e.g. "512.0 B" or "1.5 KiB".
func HumanReadableFilesize(b int64) string {
	const thresh = 1024.0

	size := float64(b)
	if size < thresh {
		return fmt.Sprintf("%.1f B", size)
	}

	u := 0
	size /= thresh
	for size >= thresh && u < len(sizeUnits)-1 {
		size /= thresh
		u++
	}
	return fmt.Sprintf("%.1f %s", size, sizeUnits[u])
}
