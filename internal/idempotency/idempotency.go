// Package idempotency guards a transaction id against double
// application with a Redis SETNX-style reservation, used in front of
// the Postgres credit path (spec §7) so a retried Persistence call
// after a network timeout never pays out twice.
package idempotency

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard reserves transaction ids in Redis.
type Guard struct {
	client *redis.Client
	ttl    time.Duration
}

// New builds a Guard. ttl bounds how long a reservation survives,
// long enough to outlast any retry window for the same credit.
func New(client *redis.Client, ttl time.Duration) *Guard {
	return &Guard{client: client, ttl: ttl}
}

// Reserve attempts to claim txID. It returns true if this call is the
// first to claim it (the caller should proceed), false if the id was
// already reserved (the caller should treat the operation as already
// applied and no-op).
func (g *Guard) Reserve(ctx context.Context, txID string) (bool, error) {
	return g.client.SetNX(ctx, "ludo:credit:"+txID, 1, g.ttl).Result()
}

// Release frees a reservation, used when the wrapped operation fails
// after claiming the slot so a later retry isn't permanently blocked.
func (g *Guard) Release(ctx context.Context, txID string) error {
	return g.client.Del(ctx, "ludo:credit:"+txID).Err()
}
