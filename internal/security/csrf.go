package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// CSRFToken derives the anti-forgery token for a session from its stored hash.
func CSRFToken(secret string, sessionHash []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("csrf:"))
	mac.Write(sessionHash)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// CheckCSRF compares in constant time.
func CheckCSRF(expected string, presented string) bool {
	if expected == "" || presented == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(presented))
}
