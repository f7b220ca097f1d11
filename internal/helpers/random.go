package helpers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"io"
	"strings"
)

var slugEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// RandomString draws numBytes from r (crypto/rand when nil), hashes them with
// SHA-256 and returns the lowercase base32 encoding of the first 16 digest
// bytes, truncated to outputLen characters when outputLen is positive.
func RandomString(r io.Reader, numBytes, outputLen int) (string, error) {
	if r == nil {
		r = rand.Reader
	}

	b := make([]byte, numBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	sum := sha256.Sum256(b)
	s := strings.ToLower(slugEncoding.EncodeToString(sum[:16]))
	if outputLen <= 0 || outputLen >= len(s) {
		return s, nil
	}
	return s[:outputLen], nil
}
