package presence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRegistry is a Registry shared across instances: each user's active
// sessions live in one Redis set whose TTL is refreshed on every heartbeat,
// so crashed transports stop counting as online once the TTL lapses.
type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRegistry creates a Redis-backed presence registry. A non-positive
// ttl falls back to DefaultSessionTTL.
func NewRedisRegistry(client *redis.Client, ttl time.Duration) *RedisRegistry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisRegistry{client: client, ttl: ttl}
}

func sessionsKey(userID string) string {
	return "presence:sessions:" + userID
}

func (r *RedisRegistry) Track(ctx context.Context, userID, sessionID string) error {
	key := sessionsKey(userID)
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, key, sessionID)
	pipe.Expire(ctx, key, r.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisRegistry) Untrack(ctx context.Context, userID, sessionID string) error {
	return r.client.SRem(ctx, sessionsKey(userID), sessionID).Err()
}

func (r *RedisRegistry) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := r.client.Exists(ctx, sessionsKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
