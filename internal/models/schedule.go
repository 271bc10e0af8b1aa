package models

import "time"

// AvailabilityWindow is a recurring weekly time range during which an employee
// accepts bookings. A window may be service-specific; windows with an empty
// ServiceID apply to any service. StartDate/EndDate bound the recurrence
// (inclusive) and are open-ended when empty.
type AvailabilityWindow struct {
	ID          string       `json:"id" yaml:"id"`
	EmployeeID  string       `json:"employee_id" yaml:"employee_id"`
	ServiceID   string       `json:"service_id,omitempty" yaml:"service_id"`
	DayOfWeek   time.Weekday `json:"day_of_week" yaml:"day_of_week"`
	StartTime   string       `json:"start_time" yaml:"start_time"` // HH:MM
	EndTime     string       `json:"end_time" yaml:"end_time"`     // HH:MM
	IsAvailable bool         `json:"is_available" yaml:"is_available"`
	StartDate   string       `json:"start_date,omitempty" yaml:"start_date"` // YYYY-MM-DD
	EndDate     string       `json:"end_date,omitempty" yaml:"end_date"`
	CreatedAt   time.Time    `json:"created_at" yaml:"-"`
}

// BlockedSlot is a manual unavailability on a single date. EndTime defaults to
// StartTime plus the service duration when empty. Blocks are created and
// deleted ad hoc, never mutated.
type BlockedSlot struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employee_id"`
	ServiceID  string    `json:"service_id,omitempty"`
	Date       string    `json:"date"`       // YYYY-MM-DD
	StartTime  string    `json:"start_time"` // HH:MM
	EndTime    string    `json:"end_time,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SlotStatus is one cell of a day's slot grid. The grid covers every generated
// slot, not just the available ones, so callers can render a full day view.
type SlotStatus struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// DaySchedule is the public result of a slot availability query.
type DaySchedule struct {
	Date  string       `json:"date"`
	Slots []SlotStatus `json:"slots"`
}
