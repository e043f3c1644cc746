package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// hashRefreshToken is what gets persisted; the raw token only lives in the
// client's cookie.
func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// refreshTokenMatches compares a presented token against the stored hash in
// constant time. An empty stored hash never matches.
func refreshTokenMatches(token, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	return hmac.Equal([]byte(hashRefreshToken(token)), []byte(storedHash))
}
