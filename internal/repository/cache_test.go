package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"salonbook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func sampleSchedule(date string) *models.DaySchedule {
	return &models.DaySchedule{
		Date: date,
		Slots: []models.SlotStatus{
			{Time: "10:00", Available: true},
			{Time: "10:30", Available: false},
		},
	}
}

func TestRedisScheduleCacheRoundTrip(t *testing.T) {
	_, client := newTestRedis(t)
	cache := NewRedisScheduleCache(client, time.Minute)
	ctx := context.Background()

	key := "schedule:emp-1:svc-1:2025-03-10:0:false"
	require.NoError(t, cache.Set(ctx, "emp-1", "2025-03-10", key, sampleSchedule("2025-03-10")))

	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2025-03-10", got.Date)
	assert.Len(t, got.Slots, 2)
	assert.True(t, got.Slots[0].Available)
}

func TestRedisScheduleCacheMissReturnsNil(t *testing.T) {
	_, client := newTestRedis(t)
	cache := NewRedisScheduleCache(client, time.Minute)

	got, err := cache.Get(context.Background(), "schedule:absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisScheduleCacheInvalidateDay(t *testing.T) {
	_, client := newTestRedis(t)
	cache := NewRedisScheduleCache(client, time.Minute)
	ctx := context.Background()

	keyA := "schedule:emp-1:svc-1:2025-03-10:0:false"
	keyB := "schedule:emp-1:svc-2:2025-03-10:0:true"
	other := "schedule:emp-1:svc-1:2025-03-11:0:false"
	require.NoError(t, cache.Set(ctx, "emp-1", "2025-03-10", keyA, sampleSchedule("2025-03-10")))
	require.NoError(t, cache.Set(ctx, "emp-1", "2025-03-10", keyB, sampleSchedule("2025-03-10")))
	require.NoError(t, cache.Set(ctx, "emp-1", "2025-03-11", other, sampleSchedule("2025-03-11")))

	require.NoError(t, cache.InvalidateDay(ctx, "emp-1", "2025-03-10"))

	got, err := cache.Get(ctx, keyA)
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = cache.Get(ctx, keyB)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = cache.Get(ctx, other)
	require.NoError(t, err)
	assert.NotNil(t, got, "other days stay cached")
}

func TestRedisScheduleCacheRateLimit(t *testing.T) {
	_, client := newTestRedis(t)
	cache := NewRedisScheduleCache(client, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := cache.CheckRateLimit(ctx, "api-key-1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := cache.CheckRateLimit(ctx, "api-key-1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = cache.CheckRateLimit(ctx, "api-key-2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "limits are per key")
}

func TestMemoryScheduleCache(t *testing.T) {
	cache := NewMemoryScheduleCache(time.Minute)
	ctx := context.Background()

	key := "schedule:emp-1:svc-1:2025-03-10:0:false"
	require.NoError(t, cache.Set(ctx, "emp-1", "2025-03-10", key, sampleSchedule("2025-03-10")))

	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, cache.InvalidateDay(ctx, "emp-1", "2025-03-10"))
	got, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryScheduleCacheRateLimit(t *testing.T) {
	cache := NewMemoryScheduleCache(time.Minute)
	ctx := context.Background()

	allowed, err := cache.CheckRateLimit(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = cache.CheckRateLimit(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestFailoverScheduleCacheFallsBack(t *testing.T) {
	mr, client := newTestRedis(t)
	logger := zerolog.Nop()

	primary := NewRedisScheduleCache(client, time.Minute)
	fallback := NewMemoryScheduleCache(time.Minute)
	cache := NewFailoverScheduleCache(primary, fallback, &logger)
	ctx := context.Background()

	key := "schedule:emp-1:svc-1:2025-03-10:0:false"
	require.NoError(t, cache.Set(ctx, "emp-1", "2025-03-10", key, sampleSchedule("2025-03-10")))

	mr.Close()

	// Primary is down; writes and reads land in the memory fallback.
	require.NoError(t, cache.Set(ctx, "emp-1", "2025-03-10", key, sampleSchedule("2025-03-10")))
	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestFailoverScheduleCacheConcurrentAccess(t *testing.T) {
	mr, client := newTestRedis(t)
	logger := zerolog.Nop()

	primary := NewRedisScheduleCache(client, time.Minute)
	fallback := NewMemoryScheduleCache(time.Minute)
	cache := NewFailoverScheduleCache(primary, fallback, &logger)
	ctx := context.Background()

	// A dead primary makes every request touch the failover bookkeeping.
	mr.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := "schedule:emp-1:svc-1:2025-03-10:0:false"
			for j := 0; j < 25; j++ {
				_ = cache.Set(ctx, "emp-1", "2025-03-10", key, sampleSchedule("2025-03-10"))
				_, _ = cache.Get(ctx, key)
			}
		}()
	}
	wg.Wait()

	got, err := cache.Get(ctx, "schedule:emp-1:svc-1:2025-03-10:0:false")
	require.NoError(t, err)
	assert.NotNil(t, got)
}
