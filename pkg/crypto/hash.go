package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sha256Hex computes the SHA256 hash of an input string and returns it as a hex-encoded string.
func Sha256Hex(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// TokenFingerprint returns a short, stable, non-reversible label for a bearer token
// so it can appear in logs without leaking the token. Empty tokens map to "".
func TokenFingerprint(token string) string {
	if token == "" {
		return ""
	}
	return Sha256Hex(token)[:12]
}
