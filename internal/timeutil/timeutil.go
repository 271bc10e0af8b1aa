// Package timeutil provides pure wall-clock helpers for the scheduling core.
// Times are "HH:MM" strings, dates are "YYYY-MM-DD"; all arithmetic is
// minutes-of-day with no timezone or day-rollover handling.
package timeutil

import (
	"fmt"
	"time"

	"salonbook/internal/models"
)

// MinutesOfDay parses an "HH:MM" time into minutes since midnight.
func MinutesOfDay(t string) (int, error) {
	parsed, err := time.Parse(models.TimeLayout, t)
	if err != nil {
		return 0, fmt.Errorf("parse time %q: %w", t, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// FormatMinutes renders minutes since midnight as "HH:MM".
func FormatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// SlotsBetween returns every time point from start to end inclusive at
// stepMinutes increments. Returns nil when start > end or either time is
// malformed.
func SlotsBetween(start, end string, stepMinutes int) []string {
	if stepMinutes <= 0 {
		return nil
	}
	from, err := MinutesOfDay(start)
	if err != nil {
		return nil
	}
	to, err := MinutesOfDay(end)
	if err != nil {
		return nil
	}

	var slots []string
	for m := from; m <= to; m += stepMinutes {
		slots = append(slots, FormatMinutes(m))
	}
	return slots
}

// AddMinutes performs same-day wall-clock addition. The caller must ensure
// the result does not cross midnight.
func AddMinutes(t string, minutes int) (string, error) {
	m, err := MinutesOfDay(t)
	if err != nil {
		return "", err
	}
	return FormatMinutes(m + minutes), nil
}

// Overlaps reports whether the half-open minute intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Adjacent intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// HoursUntil returns the signed number of hours from now until the given
// local date and time. Negative for past appointments.
func HoursUntil(date, t string, now time.Time) (float64, error) {
	at, err := time.ParseInLocation(models.DateLayout+" "+models.TimeLayout, date+" "+t, now.Location())
	if err != nil {
		return 0, fmt.Errorf("parse date/time %q %q: %w", date, t, err)
	}
	return at.Sub(now).Hours(), nil
}

// IsPastDate reports whether date falls strictly before today's local
// midnight. Malformed dates are treated as past.
func IsPastDate(date string, now time.Time) bool {
	d, err := time.ParseInLocation(models.DateLayout, date, now.Location())
	if err != nil {
		return true
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return d.Before(midnight)
}

// IsSameDay reports whether date is today in now's location.
func IsSameDay(date string, now time.Time) bool {
	return date == now.Format(models.DateLayout)
}

// DayOfWeek returns the weekday of a "YYYY-MM-DD" date.
func DayOfWeek(date string) (time.Weekday, error) {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", date, err)
	}
	return d.Weekday(), nil
}
