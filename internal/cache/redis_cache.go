package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"catatkas/backend/internal/domain"
)

const revenueKeyPrefix = "revenue:"

type RedisRevenueCache struct {
	client *redis.Client
}

func NewRedisRevenueCache(addr string, password string, db int) *RedisRevenueCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisRevenueCache{client: client}
}

func (c *RedisRevenueCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisRevenueCache) Close() error {
	return c.client.Close()
}

func (c *RedisRevenueCache) GetStats(ctx context.Context, key string) (*domain.RevenueStats, bool, error) {
	val, err := c.client.Get(ctx, revenueKeyPrefix+key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var stats domain.RevenueStats
	if err := json.Unmarshal([]byte(val), &stats); err != nil {
		return nil, false, err
	}
	return &stats, true, nil
}

func (c *RedisRevenueCache) SetStats(ctx context.Context, key string, value *domain.RevenueStats, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, revenueKeyPrefix+key, payload, ttl).Err()
}

// Invalidate drops every cached range. SCAN keeps it safe on shared redis
// instances where KEYS would block.
func (c *RedisRevenueCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, revenueKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
