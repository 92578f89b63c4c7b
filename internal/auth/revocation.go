package auth

import (
	"context"
	"time"
)

// RevocationStore remembers signed-out token ids until they would expire anyway.
// store/redis.Store is the production implementation.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
