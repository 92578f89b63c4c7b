package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store handles Redis operations for session tokens
type Store struct {
	client redis.Cmdable
}

// NewStore creates a new Redis store
func NewStore(client redis.Cmdable) *Store {
	return &Store{
		client: client,
	}
}

// Revoke marks tokenID as revoked until ttl elapses. A token that is
// already expired needs no entry.
func (s *Store) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, RevokedKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID was revoked
func (s *Store) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := s.client.Get(ctx, RevokedKey(tokenID)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
}

// RevokedCount counts live revocation entries, for /infra style reporting.
func (s *Store) RevokedCount(ctx context.Context) (int, error) {
	var (
		cursor uint64
		n      int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, KeyPrefixRevoked+"*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to scan revocations: %w", err)
		}
		for _, k := range keys {
			if _, err := ExtractTokenID(k); err == nil {
				n++
			}
		}
		if next == 0 {
			return n, nil
		}
		cursor = next
	}
}
