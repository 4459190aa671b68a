package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"invoicebook/backend/internal/domain"
)

const distributorKeyPrefix = "invoicebook:distributor:"

type RedisDistributorCache struct {
	client *redis.Client
}

func NewRedisDistributorCache(addr string, password string, db int) *RedisDistributorCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisDistributorCache{client: client}
}

func (c *RedisDistributorCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisDistributorCache) Close() error {
	return c.client.Close()
}

func (c *RedisDistributorCache) Get(ctx context.Context, id string) (*domain.Distributor, bool, error) {
	val, err := c.client.Get(ctx, distributorKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var distributor domain.Distributor
	if err := json.Unmarshal([]byte(val), &distributor); err != nil {
		return nil, false, err
	}
	return &distributor, true, nil
}

func (c *RedisDistributorCache) Set(ctx context.Context, value *domain.Distributor, ttl time.Duration) error {
	if value == nil || value.ID == "" {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, distributorKey(value.ID), payload, ttl).Err()
}

func (c *RedisDistributorCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, distributorKey(id)).Err()
}

func distributorKey(id string) string {
	return distributorKeyPrefix + id
}
