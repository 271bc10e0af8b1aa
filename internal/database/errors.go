package database

import "errors"

var (
	// ErrNotFound signals an unknown booking/service/employee/window id.
	ErrNotFound = errors.New("not found")

	// ErrWindowOverlap signals that a new availability window overlaps an
	// existing one for the same employee and weekday.
	ErrWindowOverlap = errors.New("availability window overlaps an existing window")

	// ErrInvalidWindow signals a window whose start time is not before its
	// end time.
	ErrInvalidWindow = errors.New("window start time must be before end time")
)
