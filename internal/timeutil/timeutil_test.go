package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotsBetween(t *testing.T) {
	t.Run("inclusive bounds and spacing", func(t *testing.T) {
		slots := SlotsBetween("10:00", "12:00", 30)
		assert.Equal(t, []string{"10:00", "10:30", "11:00", "11:30", "12:00"}, slots)
	})

	t.Run("wraps across hour boundaries", func(t *testing.T) {
		slots := SlotsBetween("09:45", "10:30", 15)
		assert.Equal(t, []string{"09:45", "10:00", "10:15", "10:30"}, slots)
	})

	t.Run("start after end is empty", func(t *testing.T) {
		assert.Nil(t, SlotsBetween("12:00", "10:00", 30))
	})

	t.Run("last slot not past end", func(t *testing.T) {
		slots := SlotsBetween("10:00", "11:50", 45)
		assert.Equal(t, []string{"10:00", "10:45", "11:30"}, slots)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		assert.Nil(t, SlotsBetween("10:00", "11:00", 0))
		assert.Nil(t, SlotsBetween("banana", "11:00", 30))
	})
}

func TestAddMinutes(t *testing.T) {
	got, err := AddMinutes("10:45", 30)
	require.NoError(t, err)
	assert.Equal(t, "11:15", got)

	got, err = AddMinutes("09:00", 90)
	require.NoError(t, err)
	assert.Equal(t, "10:30", got)

	_, err = AddMinutes("25:99", 30)
	assert.Error(t, err)
}

func TestOverlaps(t *testing.T) {
	// [600,630) vs [615,645)
	assert.True(t, Overlaps(600, 630, 615, 645))
	assert.True(t, Overlaps(615, 645, 600, 630))
	// containment
	assert.True(t, Overlaps(600, 700, 630, 640))
	// adjacent intervals do not conflict
	assert.False(t, Overlaps(600, 630, 630, 660))
	assert.False(t, Overlaps(630, 660, 600, 630))
	// disjoint
	assert.False(t, Overlaps(600, 630, 700, 730))
}

func TestHoursUntil(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)

	h, err := HoursUntil("2025-03-11", "12:00", now)
	require.NoError(t, err)
	assert.InDelta(t, 24.0, h, 1e-9)

	h, err = HoursUntil("2025-03-10", "09:30", now)
	require.NoError(t, err)
	assert.InDelta(t, -2.5, h, 1e-9)

	_, err = HoursUntil("not-a-date", "09:30", now)
	assert.Error(t, err)
}

func TestIsPastDate(t *testing.T) {
	now := time.Date(2025, 3, 10, 23, 59, 0, 0, time.Local)

	assert.True(t, IsPastDate("2025-03-09", now))
	assert.False(t, IsPastDate("2025-03-10", now))
	assert.False(t, IsPastDate("2025-03-11", now))
	assert.True(t, IsPastDate("garbage", now))
}

func TestDayOfWeek(t *testing.T) {
	wd, err := DayOfWeek("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, wd)
}
