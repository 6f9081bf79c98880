package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore remembers signed-out session tokens until they expire.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type nopRevocations struct{}

func (nopRevocations) Revoke(context.Context, string, time.Duration) error { return nil }
func (nopRevocations) IsRevoked(context.Context, string) (bool, error)     { return false, nil }

const revokedKeyPrefix = "vendora:session:revoked:"

type redisRevocations struct {
	client redis.Cmdable
}

// NewRedisRevocations stores revoked token ids in Redis with a TTL.
func NewRedisRevocations(client redis.Cmdable) RevocationStore {
	return &redisRevocations{client: client}
}

func (s *redisRevocations) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, revokedKeyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("auth: revoke session: %w", err)
	}
	return nil
}

func (s *redisRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("auth: check revocation: %w", err)
	}
	return n > 0, nil
}
