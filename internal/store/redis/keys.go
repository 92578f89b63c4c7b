package redis

import "fmt"

const (
	// KeyPrefixRevoked is the prefix for revoked session token ids
	KeyPrefixRevoked = "keeper:revoked:"
)

// RevokedKey returns the Redis key marking a token id as revoked
func RevokedKey(tokenID string) string {
	return KeyPrefixRevoked + tokenID
}

// ExtractTokenID extracts the token id from a revocation key
func ExtractTokenID(key string) (string, error) {
	if len(key) <= len(KeyPrefixRevoked) || key[:len(KeyPrefixRevoked)] != KeyPrefixRevoked {
		return "", fmt.Errorf("invalid revocation key: %s", key)
	}
	return key[len(KeyPrefixRevoked):], nil
}
