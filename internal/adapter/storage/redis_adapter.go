package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stockKeyPrefix    = "stock:"
	idempotencyKeyTTL = 24 * time.Hour
)

var decrementStockScript = redis.NewScript(`
local key = KEYS[1]

local current = redis.call('GET', key)
if not current then
	return 0
end

current = tonumber(current)
if current >= 1 then
	redis.call('DECR', key)
	return 1
end

return 0
`)

// RedisAdapter keeps the per-transaction deduction claims and an advisory
// mirror of product stock counts. The database remains authoritative for
// stock; the mirror only exists to fail fast under load.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisAdapter) DecrementStock(ctx context.Context, productID string) (bool, error) {
	key := stockKeyPrefix + productID

	result, err := decrementStockScript.Run(ctx, r.client, []string{key}).Int()
	if err != nil {
		return false, err
	}

	return result == 1, nil
}

func (r *RedisAdapter) IncrementStock(ctx context.Context, productID string) error {
	key := stockKeyPrefix + productID
	return r.client.Incr(ctx, key).Err()
}

func (r *RedisAdapter) SetStock(ctx context.Context, productID string, stock int) error {
	key := stockKeyPrefix + productID
	return r.client.Set(ctx, key, stock, 0).Err()
}
