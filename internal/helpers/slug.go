package helpers

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/spf13/afero"
)

// WordlistFile is the name of the word list in the share resource directory.
const WordlistFile = "wordlist"

var ErrEmptyWordlist = errors.New("wordlist is empty")

// BuildSlug returns two random words from the share word list joined by a
// hyphen, e.g. "deter-trig".
func BuildSlug(fs afero.Fs, res Resources, r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}

	path, err := res.SharePath(WordlistFile)
	if err != nil {
		return "", err
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", fmt.Errorf("failed to read wordlist %s: %w", path, err)
	}

	var words []string
	for _, line := range strings.Split(string(data), "\n") {
		if w := strings.TrimSpace(line); w != "" {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return "", fmt.Errorf("%s: %w", path, ErrEmptyWordlist)
	}

	picked := make([]string, 2)
	for i := range picked {
		n, err := rand.Int(r, big.NewInt(int64(len(words))))
		if err != nil {
			return "", fmt.Errorf("failed to pick word: %w", err)
		}
		picked[i] = words[n.Int64()]
	}

	return strings.Join(picked, "-"), nil
}
