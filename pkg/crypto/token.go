package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

const fingerprintLength = 8

// HashToken returns the hex SHA-256 of a bearer token. Hashes are used as
// cache keys so raw tokens never sit in long-lived maps.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// Fingerprint is a short, log-safe identifier for a token. Empty tokens have
// an empty fingerprint.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	return HashToken(token)[:fingerprintLength]
}

// SameToken compares two tokens in constant time. Two empty tokens are never
// the same session.
func SameToken(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
