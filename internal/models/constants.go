package models

// Status is the booking lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no-show"
)

// IsTerminal reports whether no further lifecycle transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// PaymentStatus tracks the deposit payment state of a booking.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

// Role is the closed set of actor roles recognised by the authorization policy.
type Role string

const (
	RoleClient   Role = "client"
	RoleEmployee Role = "employee"
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
)

// IsPrivileged reports whether the role bypasses the client cancellation
// window and booking ownership checks.
func (r Role) IsPrivileged() bool {
	return r == RoleOwner || r == RoleAdmin
}

// PaymentMethod is how the outstanding balance was collected at close-out.
type PaymentMethod string

const (
	MethodCash PaymentMethod = "cash"
	MethodPOS  PaymentMethod = "pos"
)

// ModificationAction classifies audit-trail entries.
type ModificationAction string

const (
	ActionCreated         ModificationAction = "created"
	ActionStatusChanged   ModificationAction = "status_changed"
	ActionPaymentReceived ModificationAction = "payment_received"
	ActionCompleted       ModificationAction = "completed"
	ActionCancelled       ModificationAction = "cancelled"
	ActionRescheduled     ModificationAction = "rescheduled"
	ActionUpdated         ModificationAction = "updated"
)

const (
	// DepositPercent is the upfront share of the service price collected at
	// booking time.
	DepositPercent = 50

	// ClientLeadTimeMinutes is how far ahead of "now" a same-day slot must
	// start to be offered to self-service clients. Staff walk-ins have no
	// lead time.
	ClientLeadTimeMinutes = 30

	// CancellationWindowHours is the minimum notice a non-privileged actor
	// must give to cancel.
	CancellationWindowHours = 24.0

	// DateLayout and TimeLayout are the wall-clock wire formats used across
	// the scheduling core.
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// WorkerQueueSize is the notification queue capacity.
	WorkerQueueSize = 256

	// ScheduleCacheTTLSeconds bounds how long a computed day schedule may be
	// served from cache. Kept short because past-slot exclusion depends on
	// the current time.
	ScheduleCacheTTLSeconds = 60
)
