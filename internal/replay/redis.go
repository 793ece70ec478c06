package replay

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultNonceTTL bounds how long a consumed nonce is remembered by the
// shared guard. Plays the same role as the memory guard's capacity.
const DefaultNonceTTL = 24 * time.Hour

// RedisGuard is a nonce set shared across server instances. Required
// when the relay is scaled horizontally, since the in-memory guard is
// process-local.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard creates a guard backed by the given redis client.
func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultNonceTTL
	}
	return &RedisGuard{client: client, ttl: ttl}
}

// CheckAndConsume implements Guard. SET NX makes the check-and-insert a
// single atomic round trip.
func (g *RedisGuard) CheckAndConsume(ctx context.Context, nonce string) (bool, error) {
	ok, err := g.client.SetNX(ctx, "nonce:"+nonce, "1", g.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
