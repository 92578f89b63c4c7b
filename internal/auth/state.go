package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
)

// NewState returns a random URL-safe OAuth state token.
func NewState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// StateMatches compares two state tokens in constant time.
func StateMatches(expected, got string) bool {
	if expected == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
