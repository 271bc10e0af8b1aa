// Package schedule turns recurring availability windows, existing bookings
// and manual blocks into the bookable slot grid for a single day.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/metrics"
	"salonbook/internal/models"
	"salonbook/internal/timeutil"

	"github.com/rs/zerolog"
)

// Query identifies one day schedule request.
type Query struct {
	EmployeeID string
	ServiceID  string
	Date       string // YYYY-MM-DD

	// DurationOverride replaces the service duration when > 0, e.g. for
	// short consultation bookings.
	DurationOverride int

	// StaffBooking waives the client lead-time buffer for walk-in entry.
	StaffBooking bool
}

// CacheKey is stable across identical queries so repeated reads hit the cache.
func (q Query) CacheKey() string {
	return strings.Join([]string{
		"schedule", q.EmployeeID, q.ServiceID, q.Date,
		strconv.Itoa(q.DurationOverride), strconv.FormatBool(q.StaffBooking),
	}, ":")
}

// Scheduler computes day schedules. It is read-only and safe for concurrent
// use; the cache is optional.
type Scheduler struct {
	repo     domain.Repository
	cache    domain.ScheduleCache
	logger   *zerolog.Logger
	now      func() time.Time
	leadTime int
}

func NewScheduler(repo domain.Repository, cache domain.ScheduleCache, logger *zerolog.Logger) *Scheduler {
	return &Scheduler{
		repo:     repo,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
		leadTime: models.ClientLeadTimeMinutes,
	}
}

// SetClock overrides the wall clock, for tests.
func (s *Scheduler) SetClock(now func() time.Time) { s.now = now }

// SetLeadTime overrides the same-day client booking buffer, in minutes.
func (s *Scheduler) SetLeadTime(minutes int) {
	if minutes >= 0 {
		s.leadTime = minutes
	}
}

// InvalidateDay drops cached grids for the employee and date. Callers mutating
// bookings or blocks outside the booking service use this to keep reads fresh.
func (s *Scheduler) InvalidateDay(ctx context.Context, employeeID, date string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidateDay(ctx, employeeID, date)
}

// DaySchedule produces the full {time, available} grid for the query.
// Past dates and days without matching windows yield an empty slot list.
func (s *Scheduler) DaySchedule(ctx context.Context, q Query) (*models.DaySchedule, error) {
	metrics.IncSlotQueries()

	if timeutil.IsPastDate(q.Date, s.now()) {
		return &models.DaySchedule{Date: q.Date, Slots: []models.SlotStatus{}}, nil
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, q.CacheKey()); err != nil {
			s.logger.Warn().Err(err).Msg("schedule cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	service, err := s.repo.GetService(ctx, q.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("resolve service %s: %w", q.ServiceID, err)
	}

	duration := service.DurationMinutes
	if q.DurationOverride > 0 {
		duration = q.DurationOverride
	}
	if duration <= 0 {
		return nil, fmt.Errorf("service %s has no duration configured", q.ServiceID)
	}

	windows, err := s.MatchingWindows(ctx, q.EmployeeID, q.ServiceID, q.Date)
	if err != nil {
		return nil, err
	}

	schedule := &models.DaySchedule{Date: q.Date, Slots: []models.SlotStatus{}}
	if len(windows) == 0 {
		return schedule, nil
	}

	times := generateSlots(windows, duration)
	if len(times) == 0 {
		return schedule, nil
	}

	bookings, err := s.repo.ListBookingsByEmployeeDate(ctx, q.EmployeeID, q.Date)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	blocks, err := s.repo.ListBlocks(ctx, q.EmployeeID, q.Date)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}

	schedule.Slots = s.filterConflicts(times, duration, q, bookings, blocks)

	if s.cache != nil {
		if err := s.cache.Set(ctx, q.EmployeeID, q.Date, q.CacheKey(), schedule); err != nil {
			s.logger.Warn().Err(err).Msg("schedule cache write failed")
		}
	}

	return schedule, nil
}

// MatchingWindows returns the availability windows applying to the employee
// on the given date. Service-specific windows are preferred; when the service
// filter yields nothing, the employee's service-agnostic windows apply, so a
// staff member without a per-service override still has a schedule.
func (s *Scheduler) MatchingWindows(ctx context.Context, employeeID, serviceID, date string) ([]*models.AvailabilityWindow, error) {
	windows, err := s.repo.ListWindows(ctx, employeeID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	if len(windows) == 0 && serviceID != "" {
		windows, err = s.repo.ListWindows(ctx, employeeID, "")
		if err != nil {
			return nil, fmt.Errorf("list fallback windows: %w", err)
		}
	}

	weekday, err := timeutil.DayOfWeek(date)
	if err != nil {
		return nil, err
	}

	var matching []*models.AvailabilityWindow
	for _, w := range windows {
		if !w.IsAvailable || w.DayOfWeek != weekday {
			continue
		}
		if w.StartDate != "" && date < w.StartDate {
			continue
		}
		if w.EndDate != "" && date > w.EndDate {
			continue
		}
		matching = append(matching, w)
	}
	return matching, nil
}

// generateSlots expands each window into discrete slot start times of the
// given duration, then dedupes and sorts the union. Overlapping windows must
// not produce the same offerable time twice. Slots whose implied end would
// run past the window end are not offered.
func generateSlots(windows []*models.AvailabilityWindow, duration int) []string {
	seen := make(map[string]struct{})
	for _, w := range windows {
		end, err := timeutil.MinutesOfDay(w.EndTime)
		if err != nil {
			continue
		}
		lastStart := timeutil.FormatMinutes(end - duration)
		for _, t := range timeutil.SlotsBetween(w.StartTime, lastStart, duration) {
			seen[t] = struct{}{}
		}
	}

	times := make([]string, 0, len(seen))
	for t := range seen {
		times = append(times, t)
	}
	sort.Strings(times)
	return times
}

// filterConflicts marks each candidate slot unavailable when it starts too
// close to now (same-day only), overlaps a non-cancelled booking, or overlaps
// a blocked range.
func (s *Scheduler) filterConflicts(times []string, duration int, q Query, bookings []*models.Booking, blocks []*models.BlockedSlot) []models.SlotStatus {
	now := s.now()
	sameDay := timeutil.IsSameDay(q.Date, now)
	nowMinutes := now.Hour()*60 + now.Minute()

	leadTime := s.leadTime
	if q.StaffBooking {
		leadTime = 0
	}

	slots := make([]models.SlotStatus, 0, len(times))
	for _, t := range times {
		start, err := timeutil.MinutesOfDay(t)
		if err != nil {
			continue
		}
		end := start + duration

		available := true
		if sameDay && start < nowMinutes+leadTime {
			available = false
		}
		if available && conflictsWithBooking(start, end, bookings) {
			available = false
		}
		if available && conflictsWithBlock(start, end, duration, q.ServiceID, blocks) {
			available = false
		}

		slots = append(slots, models.SlotStatus{Time: t, Available: available})
	}
	return slots
}

func conflictsWithBooking(start, end int, bookings []*models.Booking) bool {
	for _, b := range bookings {
		if b.Status == models.StatusCancelled {
			continue
		}
		bStart, err := timeutil.MinutesOfDay(b.Time)
		if err != nil {
			continue
		}
		bEnd := bStart + b.DurationMinutes
		if timeutil.Overlaps(start, end, bStart, bEnd) {
			return true
		}
	}
	return false
}

// Blocks without a service apply to the whole day; service-specific blocks
// only suppress slots for that service.
func conflictsWithBlock(start, end, duration int, serviceID string, blocks []*models.BlockedSlot) bool {
	for _, blk := range blocks {
		if blk.ServiceID != "" && blk.ServiceID != serviceID {
			continue
		}
		blkStart, err := timeutil.MinutesOfDay(blk.StartTime)
		if err != nil {
			continue
		}
		blkEnd := blkStart + duration
		if blk.EndTime != "" {
			if parsed, err := timeutil.MinutesOfDay(blk.EndTime); err == nil {
				blkEnd = parsed
			}
		}
		if timeutil.Overlaps(start, end, blkStart, blkEnd) {
			return true
		}
	}
	return false
}
