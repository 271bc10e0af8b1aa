package models

import "time"

// Booking is the central entity of the engine. Dates and times are local
// wall-clock values; money is in minor currency units.
type Booking struct {
	ID          string `json:"id"`
	EmployeeID  string `json:"employee_id"`
	ServiceID   string `json:"service_id"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	ClientPhone string `json:"client_phone"`
	Date        string `json:"date"` // YYYY-MM-DD
	Time        string `json:"time"` // HH:MM

	// DurationMinutes is the slot length the booking occupies. Usually the
	// service duration, shorter for consultation bookings.
	DurationMinutes int `json:"duration_minutes"`

	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`

	DepositAmount   int64  `json:"deposit_amount"`
	DepositPaid     bool   `json:"deposit_paid"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`

	CreatedBy     string `json:"created_by"`
	CreatedByName string `json:"created_by_name"`
	CreatedByRole Role   `json:"created_by_role"`

	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	NoShowAt     *time.Time `json:"no_show_at,omitempty"`
	NoShowBy     string     `json:"no_show_by,omitempty"`

	// Close-out fields, set when the booking is completed.
	PaymentMethod PaymentMethod  `json:"payment_method,omitempty"`
	ClosedBy      string         `json:"closed_by,omitempty"`
	Extras        []ExtraService `json:"extras,omitempty"`

	Modifications []Modification `json:"modifications,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExtraService is an additional line item added at close-out.
type ExtraService struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// Modification is an immutable audit-trail entry appended to a booking.
// Entries are never edited or removed.
type Modification struct {
	Action      ModificationAction `json:"action"`
	Description string             `json:"description"`
	OldValue    string             `json:"old_value,omitempty"`
	NewValue    string             `json:"new_value,omitempty"`
	ActorID     string             `json:"actor_id"`
	ActorName   string             `json:"actor_name"`
	ActorRole   Role               `json:"actor_role"`
	CreatedAt   time.Time          `json:"created_at"`
}
