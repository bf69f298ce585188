package security

import (
	"crypto/sha256"
	"crypto/subtle"
)

// TokenEqual compares two bearer tokens in constant time. Both are hashed
// first so the comparison does not leak the expected length.
func TokenEqual(presented, expected string) bool {
	a := sha256.Sum256([]byte(presented))
	b := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
