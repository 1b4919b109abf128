package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// IdemCheckout caches idempotency keys from checkout so a retry resolves
// its order without the unique-column lookup. Entries expire with
// TTLIdempotency; a miss or a Redis failure reads as "not cached".
type IdemCheckout struct{ Redis *redis.Client }

func (c *IdemCheckout) OrderID(ctx context.Context, userID, key string) (string, bool) {
	v, err := c.Redis.Get(ctx, fmt.Sprintf(KeyIdemCheckout, userID, key)).Result()
	return v, err == nil && v != ""
}

func (c *IdemCheckout) Remember(ctx context.Context, userID, key, orderID string) {
	_ = c.Redis.Set(ctx, fmt.Sprintf(KeyIdemCheckout, userID, key), orderID, TTLIdempotency).Err()
}
