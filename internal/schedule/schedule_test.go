package schedule

import (
	"context"
	"testing"
	"time"

	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/models"
	"salonbook/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	domain.Repository

	services map[string]*models.Service
	windows  []*models.AvailabilityWindow
	bookings []*models.Booking
	blocks   []*models.BlockedSlot
}

func (f *fakeRepo) GetService(_ context.Context, id string) (*models.Service, error) {
	if s, ok := f.services[id]; ok {
		return s, nil
	}
	return nil, database.ErrNotFound
}

func (f *fakeRepo) ListWindows(_ context.Context, employeeID, serviceID string) ([]*models.AvailabilityWindow, error) {
	var out []*models.AvailabilityWindow
	for _, w := range f.windows {
		if w.EmployeeID != employeeID {
			continue
		}
		if serviceID != "" && w.ServiceID != serviceID {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (f *fakeRepo) ListBookingsByEmployeeDate(_ context.Context, employeeID, date string) ([]*models.Booking, error) {
	var out []*models.Booking
	for _, b := range f.bookings {
		if b.EmployeeID == employeeID && b.Date == date {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListBlocks(_ context.Context, employeeID, date string) ([]*models.BlockedSlot, error) {
	var out []*models.BlockedSlot
	for _, blk := range f.blocks {
		if blk.EmployeeID == employeeID && blk.Date == date {
			out = append(out, blk)
		}
	}
	return out, nil
}

// saturdayNoon precedes the test Monday 2025-03-10.
var saturdayNoon = time.Date(2025, 3, 8, 12, 0, 0, 0, time.Local)

func mondayRepo() *fakeRepo {
	return &fakeRepo{
		services: map[string]*models.Service{
			"svc-1": {ID: "svc-1", Name: "Haircut", DurationMinutes: 30, Price: 10000},
		},
		windows: []*models.AvailabilityWindow{
			{EmployeeID: "emp-1", DayOfWeek: time.Monday, StartTime: "10:00", EndTime: "12:00", IsAvailable: true},
		},
	}
}

func newTestScheduler(repo domain.Repository, cache domain.ScheduleCache, now time.Time) *Scheduler {
	logger := zerolog.Nop()
	s := NewScheduler(repo, cache, &logger)
	s.SetClock(func() time.Time { return now })
	return s
}

func mondayQuery() Query {
	return Query{EmployeeID: "emp-1", ServiceID: "svc-1", Date: "2025-03-10"}
}

func slotTimes(s *models.DaySchedule) []string {
	out := make([]string, 0, len(s.Slots))
	for _, slot := range s.Slots {
		out = append(out, slot.Time)
	}
	return out
}

func availability(s *models.DaySchedule) map[string]bool {
	out := make(map[string]bool, len(s.Slots))
	for _, slot := range s.Slots {
		out[slot.Time] = slot.Available
	}
	return out
}

func TestDayScheduleMondayGrid(t *testing.T) {
	s := newTestScheduler(mondayRepo(), nil, saturdayNoon)

	result, err := s.DaySchedule(context.Background(), mondayQuery())
	require.NoError(t, err)

	assert.Equal(t, []string{"10:00", "10:30", "11:00", "11:30"}, slotTimes(result))
	for _, slot := range result.Slots {
		assert.True(t, slot.Available, "slot %s", slot.Time)
	}
}

func TestDayScheduleBookingConflict(t *testing.T) {
	repo := mondayRepo()
	repo.bookings = []*models.Booking{
		{EmployeeID: "emp-1", Date: "2025-03-10", Time: "11:00", DurationMinutes: 30, Status: models.StatusConfirmed},
	}
	s := newTestScheduler(repo, nil, saturdayNoon)

	result, err := s.DaySchedule(context.Background(), mondayQuery())
	require.NoError(t, err)

	avail := availability(result)
	assert.False(t, avail["11:00"])
	assert.True(t, avail["10:00"])
	assert.True(t, avail["10:30"])
	assert.True(t, avail["11:30"], "adjacent slot after the booking stays available")
}

func TestDayScheduleCancelledBookingIgnored(t *testing.T) {
	repo := mondayRepo()
	repo.bookings = []*models.Booking{
		{EmployeeID: "emp-1", Date: "2025-03-10", Time: "11:00", DurationMinutes: 30, Status: models.StatusCancelled},
	}
	s := newTestScheduler(repo, nil, saturdayNoon)

	result, err := s.DaySchedule(context.Background(), mondayQuery())
	require.NoError(t, err)
	assert.True(t, availability(result)["11:00"])
}

func TestDayScheduleBlockConflict(t *testing.T) {
	repo := mondayRepo()
	repo.blocks = []*models.BlockedSlot{
		// No explicit end: effective end is start + service duration.
		{EmployeeID: "emp-1", Date: "2025-03-10", StartTime: "10:30"},
	}
	s := newTestScheduler(repo, nil, saturdayNoon)

	result, err := s.DaySchedule(context.Background(), mondayQuery())
	require.NoError(t, err)

	avail := availability(result)
	assert.False(t, avail["10:30"])
	assert.True(t, avail["10:00"])
	assert.True(t, avail["11:00"])
}

func TestDaySchedulePastDateShortCircuits(t *testing.T) {
	s := newTestScheduler(mondayRepo(), nil, saturdayNoon)

	q := mondayQuery()
	q.Date = "2025-03-03"
	result, err := s.DaySchedule(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, result.Slots)
}

func TestDayScheduleNoWindows(t *testing.T) {
	repo := mondayRepo()
	repo.windows = nil
	s := newTestScheduler(repo, nil, saturdayNoon)

	result, err := s.DaySchedule(context.Background(), mondayQuery())
	require.NoError(t, err)
	assert.Empty(t, result.Slots)
}

func TestDayScheduleUnknownService(t *testing.T) {
	s := newTestScheduler(mondayRepo(), nil, saturdayNoon)

	q := mondayQuery()
	q.ServiceID = "missing"
	_, err := s.DaySchedule(context.Background(), q)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestDayScheduleServiceAgnosticFallback(t *testing.T) {
	repo := mondayRepo()
	// The only window is service-agnostic; the service-filtered lookup finds
	// nothing and must fall back to it.
	s := newTestScheduler(repo, nil, saturdayNoon)

	result, err := s.DaySchedule(context.Background(), mondayQuery())
	require.NoError(t, err)
	assert.Len(t, result.Slots, 4)
}

func TestDayScheduleOverlappingWindowsDeduped(t *testing.T) {
	repo := mondayRepo()
	repo.windows = append(repo.windows, &models.AvailabilityWindow{
		EmployeeID: "emp-1", ServiceID: "svc-1", DayOfWeek: time.Monday,
		StartTime: "11:00", EndTime: "13:00", IsAvailable: true,
	})
	s := newTestScheduler(repo, nil, saturdayNoon)

	result, err := s.DaySchedule(context.Background(), mondayQuery())
	require.NoError(t, err)

	// The service-specific window wins the lookup, but even with both windows
	// present no time may appear twice.
	times := slotTimes(result)
	seen := map[string]int{}
	for _, tm := range times {
		seen[tm]++
	}
	for tm, count := range seen {
		assert.Equal(t, 1, count, "time %s duplicated", tm)
	}
}

func TestDayScheduleValidityBounds(t *testing.T) {
	repo := mondayRepo()
	repo.windows[0].EndDate = "2025-03-09"
	s := newTestScheduler(repo, nil, saturdayNoon)

	result, err := s.DaySchedule(context.Background(), mondayQuery())
	require.NoError(t, err)
	assert.Empty(t, result.Slots, "window expired before the query date")
}

func TestDayScheduleSameDayLeadTime(t *testing.T) {
	repo := mondayRepo()
	// Monday 10:15: with the 30 minute client buffer, anything before 10:45
	// is gone.
	mondayMorning := time.Date(2025, 3, 10, 10, 15, 0, 0, time.Local)
	s := newTestScheduler(repo, nil, mondayMorning)

	result, err := s.DaySchedule(context.Background(), mondayQuery())
	require.NoError(t, err)

	avail := availability(result)
	assert.False(t, avail["10:00"])
	assert.False(t, avail["10:30"])
	assert.True(t, avail["11:00"])

	// Staff walk-in entry waives the buffer: 10:30 is still offerable.
	q := mondayQuery()
	q.StaffBooking = true
	result, err = s.DaySchedule(context.Background(), q)
	require.NoError(t, err)

	avail = availability(result)
	assert.False(t, avail["10:00"])
	assert.True(t, avail["10:30"])
}

func TestDayScheduleIdempotent(t *testing.T) {
	s := newTestScheduler(mondayRepo(), nil, saturdayNoon)

	first, err := s.DaySchedule(context.Background(), mondayQuery())
	require.NoError(t, err)
	second, err := s.DaySchedule(context.Background(), mondayQuery())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDayScheduleDurationOverride(t *testing.T) {
	s := newTestScheduler(mondayRepo(), nil, saturdayNoon)

	q := mondayQuery()
	q.DurationOverride = 60
	result, err := s.DaySchedule(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, []string{"10:00", "11:00"}, slotTimes(result))
}

func TestDayScheduleUsesCache(t *testing.T) {
	repo := mondayRepo()
	cache := repository.NewMemoryScheduleCache(time.Minute)
	s := newTestScheduler(repo, cache, saturdayNoon)
	ctx := context.Background()

	first, err := s.DaySchedule(ctx, mondayQuery())
	require.NoError(t, err)

	// A booking added behind the cache's back is invisible until the day is
	// invalidated.
	repo.bookings = append(repo.bookings, &models.Booking{
		EmployeeID: "emp-1", Date: "2025-03-10", Time: "11:00",
		DurationMinutes: 30, Status: models.StatusConfirmed,
	})

	cached, err := s.DaySchedule(ctx, mondayQuery())
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	require.NoError(t, cache.InvalidateDay(ctx, "emp-1", "2025-03-10"))

	fresh, err := s.DaySchedule(ctx, mondayQuery())
	require.NoError(t, err)
	assert.False(t, availability(fresh)["11:00"])
}

func TestDayScheduleLeadTimeConfigurable(t *testing.T) {
	repo := mondayRepo()
	mondayMorning := time.Date(2025, 3, 10, 10, 15, 0, 0, time.Local)

	s := newTestScheduler(repo, nil, mondayMorning)
	s.SetLeadTime(0)

	result, err := s.DaySchedule(context.Background(), mondayQuery())
	require.NoError(t, err)

	avail := availability(result)
	assert.False(t, avail["10:00"], "already started")
	assert.True(t, avail["10:30"], "no buffer configured")

	s.SetLeadTime(60)
	result, err = s.DaySchedule(context.Background(), mondayQuery())
	require.NoError(t, err)

	avail = availability(result)
	assert.False(t, avail["11:00"])
	assert.True(t, avail["11:30"])
}

func TestDayScheduleBlockScopedToService(t *testing.T) {
	repo := mondayRepo()
	repo.blocks = []*models.BlockedSlot{
		{EmployeeID: "emp-1", ServiceID: "svc-2", Date: "2025-03-10", StartTime: "10:30", EndTime: "11:00"},
	}
	s := newTestScheduler(repo, nil, saturdayNoon)

	result, err := s.DaySchedule(context.Background(), mondayQuery())
	require.NoError(t, err)
	assert.True(t, availability(result)["10:30"], "block for another service does not apply")

	repo.blocks[0].ServiceID = "svc-1"
	result, err = s.DaySchedule(context.Background(), mondayQuery())
	require.NoError(t, err)
	assert.False(t, availability(result)["10:30"])
}
