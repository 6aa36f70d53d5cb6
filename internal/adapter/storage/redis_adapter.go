package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/stock-ledger/internal/core/domain"
)

const (
	stockKeyPrefix    = "stock:"
	idempotencyKeyTTL = 24 * time.Hour
)

// Script results: -1 missing key, -2 insufficient stock, otherwise the
// remaining quantity after the decrement.
var decrementStockScript = redis.NewScript(`
local key = KEYS[1]
local amount = tonumber(ARGV[1])

local current = redis.call('GET', key)
if not current then
	return -1
end

current = tonumber(current)
if current < amount then
	return -2
end

return redis.call('DECRBY', key, amount)
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) DecrementStock(ctx context.Context, itemID string, amount int) (int, error) {
	key := stockKeyPrefix + itemID

	result, err := decrementStockScript.Run(ctx, r.client, []string{key}, amount).Int()
	if err != nil {
		return 0, err
	}

	switch result {
	case -1:
		return 0, domain.ErrNotFound
	case -2:
		return 0, domain.ErrInsufficientStock
	default:
		return result, nil
	}
}

func (r *RedisAdapter) IncrementStock(ctx context.Context, itemID string, amount int) (int, error) {
	key := stockKeyPrefix + itemID

	remaining, err := r.client.IncrBy(ctx, key, int64(amount)).Result()
	if err != nil {
		return 0, err
	}
	return int(remaining), nil
}

func (r *RedisAdapter) SetStock(ctx context.Context, itemID string, quantity int) error {
	key := stockKeyPrefix + itemID
	return r.client.Set(ctx, key, quantity, 0).Err()
}

func (r *RedisAdapter) GetStock(ctx context.Context, itemID string) (int, error) {
	key := stockKeyPrefix + itemID

	quantity, err := r.client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return quantity, nil
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}
