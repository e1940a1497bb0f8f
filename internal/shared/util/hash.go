package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashUserKey maps a user ID to a fixed-length, filesystem- and S3-safe
// segment. Raw IDs can carry prefixes like "google:" that are awkward in keys.
func HashUserKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
