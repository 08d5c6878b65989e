package blacklist

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisStore implements Store on Redis, for deployments where revocations
// must survive a process restart or be shared between replicas. Expiry
// sweeping is delegated to Redis key TTLs.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new RedisStore. prefix namespaces the keys.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (r *RedisStore) key(token string) string {
	return fmt.Sprintf("%s:revoked:%s", r.prefix, token)
}

// Add implements Store.Add. SET with EX is idempotent per key.
func (r *RedisStore) Add(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.key(token), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token in redis: %w", err)
	}
	return nil
}

// Contains implements Store.Contains.
func (r *RedisStore) Contains(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist in redis: %w", err)
	}
	return n > 0, nil
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close redis blacklist client")
		return err
	}
	return nil
}
