package helpers

import "crypto/subtle"

// ConstantTimeCompare reports whether a and b are equal. For inputs of equal
// length the time taken does not depend on where they differ.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
