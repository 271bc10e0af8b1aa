// Package repository provides schedule cache implementations: redis-backed,
// in-memory, and a failover wrapper combining the two.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisScheduleCache stores computed day schedules in redis. Every cached key
// is also tracked in a per employee+date index set so a booking write can
// invalidate all schedule variants for that day at once.
type RedisScheduleCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient builds a redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisScheduleCache(client *redis.Client, ttl time.Duration) *RedisScheduleCache {
	if ttl <= 0 {
		ttl = models.ScheduleCacheTTLSeconds * time.Second
	}
	return &RedisScheduleCache{client: client, ttl: ttl}
}

func indexKey(employeeID, date string) string {
	return fmt.Sprintf("schedule_index:%s:%s", employeeID, date)
}

func (r *RedisScheduleCache) Get(ctx context.Context, key string) (*models.DaySchedule, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule from redis: %w", err)
	}

	var schedule models.DaySchedule
	if err := json.Unmarshal([]byte(val), &schedule); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule: %w", err)
	}
	return &schedule, nil
}

func (r *RedisScheduleCache) Set(ctx context.Context, employeeID, date, key string, schedule *models.DaySchedule) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set schedule in redis: %w", err)
	}

	idx := indexKey(employeeID, date)
	if err := r.client.SAdd(ctx, idx, key).Err(); err != nil {
		return fmt.Errorf("failed to index schedule key: %w", err)
	}
	// Index lives slightly longer than its members so invalidation never
	// misses a live key.
	r.client.Expire(ctx, idx, r.ttl+time.Second)

	return nil
}

func (r *RedisScheduleCache) InvalidateDay(ctx context.Context, employeeID, date string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	idx := indexKey(employeeID, date)
	keys, err := r.client.SMembers(ctx, idx).Result()
	if err != nil {
		return fmt.Errorf("failed to read schedule index: %w", err)
	}

	keys = append(keys, idx)
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate schedules: %w", err)
	}
	return nil
}

func (r *RedisScheduleCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	rateKey := fmt.Sprintf("rate_limit:%s", key)
	count, err := r.client.Incr(ctx, rateKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, rateKey, window)
	}

	return count <= int64(limit), nil
}

// Ping verifies the redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Close closes the redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
