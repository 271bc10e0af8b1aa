package repository

import (
	"context"
	"sync/atomic"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
)

// FailoverScheduleCache serves from the primary cache until it errors, then
// switches to the fallback and probes the primary again after a minute.
type FailoverScheduleCache struct {
	primary  domain.ScheduleCache
	fallback domain.ScheduleCache
	logger   *zerolog.Logger
	isDown   atomic.Bool

	// lastCheck holds the unix nanos of the last failed primary attempt.
	// Concurrent requests read and write it, so it must stay atomic.
	lastCheck atomic.Int64
}

func NewFailoverScheduleCache(primary, fallback domain.ScheduleCache, logger *zerolog.Logger) *FailoverScheduleCache {
	return &FailoverScheduleCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverScheduleCache) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary schedule cache failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverScheduleCache) Get(ctx context.Context, key string) (*models.DaySchedule, error) {
	if !r.isDown.Load() {
		schedule, err := r.primary.Get(ctx, key)
		if err == nil {
			return schedule, nil
		}
		r.markDown(err)
	}

	// Try to recover after 1 minute.
	if r.isDown.Load() && time.Since(time.Unix(0, r.lastCheck.Load())) > time.Minute {
		schedule, err := r.primary.Get(ctx, key)
		if err == nil {
			r.isDown.Store(false)
			return schedule, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.Get(ctx, key)
}

func (r *FailoverScheduleCache) Set(ctx context.Context, employeeID, date, key string, schedule *models.DaySchedule) error {
	if !r.isDown.Load() {
		err := r.primary.Set(ctx, employeeID, date, key, schedule)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.Set(ctx, employeeID, date, key, schedule)
}

func (r *FailoverScheduleCache) InvalidateDay(ctx context.Context, employeeID, date string) error {
	if !r.isDown.Load() {
		err := r.primary.InvalidateDay(ctx, employeeID, date)
		if err == nil {
			// Keep the fallback coherent; it may hold entries written
			// while the primary was down.
			return r.fallback.InvalidateDay(ctx, employeeID, date)
		}
		r.markDown(err)
	}

	return r.fallback.InvalidateDay(ctx, employeeID, date)
}

func (r *FailoverScheduleCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
