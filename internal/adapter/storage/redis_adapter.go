package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/driftndash/storefront/internal/core/domain"
)

const (
	shippingOptionsKey = "ref:shipping"

	idempotencyKeyTTL  = 24 * time.Hour
	shippingOptionsTTL = 10 * time.Minute
)

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

func (r *RedisAdapter) DeleteIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisAdapter) GetShippingOptions(ctx context.Context) ([]domain.ShippingOption, error) {
	raw, err := r.client.Get(ctx, shippingOptionsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var opts []domain.ShippingOption
	if err := json.Unmarshal(raw, &opts); err != nil {
		return nil, fmt.Errorf("decode cached shipping options: %w", err)
	}
	return opts, nil
}

func (r *RedisAdapter) SetShippingOptions(ctx context.Context, opts []domain.ShippingOption) error {
	raw, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("encode shipping options: %w", err)
	}
	return r.client.Set(ctx, shippingOptionsKey, raw, shippingOptionsTTL).Err()
}
