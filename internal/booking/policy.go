package booking

import (
	"errors"

	"salonbook/internal/models"
)

var (
	// ErrPermissionDenied rejects an actor the policy does not allow.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrCancellationWindow rejects a client cancellation inside the
	// 24-hour notice window.
	ErrCancellationWindow = errors.New("cancellation window has passed")

	// ErrAlreadyFinalized rejects transitions out of a terminal state.
	ErrAlreadyFinalized = errors.New("booking is already finalized")

	// ErrUseCancelEndpoint rejects status=cancelled via the generic edit
	// path; cancellation must run through Cancel so refund and
	// authorization rules always apply.
	ErrUseCancelEndpoint = errors.New("cancellation must use the cancel operation")

	// ErrPaymentNotCompleted rejects creation with an unauthorized payment.
	ErrPaymentNotCompleted = errors.New("payment has not completed")

	// ErrDepositTooLow rejects creation when the collected amount is below
	// the expected deposit.
	ErrDepositTooLow = errors.New("collected amount is below the required deposit")

	// ErrValidation covers missing or malformed required fields.
	ErrValidation = errors.New("validation failed")

	// ErrSlotTaken rejects creation when the requested slot overlaps an
	// existing non-cancelled booking visible at read time.
	ErrSlotTaken = errors.New("slot is already booked")

	// ErrRateLimited rejects creation when the actor exceeds the
	// per-window attempt budget.
	ErrRateLimited = errors.New("too many booking attempts")
)

// Actor identifies who is performing a lifecycle operation.
type Actor struct {
	ID   string
	Name string
	Role models.Role
}

// CanCancel is the single cancellation authorization rule: employees, owners
// and admins (or an explicit force override) may cancel at any time; everyone
// else only with at least windowHours of notice.
func CanCancel(actor Actor, hoursUntil, windowHours float64, force bool) bool {
	if force || actor.Role.IsPrivileged() || actor.Role == models.RoleEmployee {
		return true
	}
	return hoursUntil >= windowHours
}

// CanTransition restricts status transitions to the employee assigned to the
// booking or a privileged actor.
func CanTransition(actor Actor, b *models.Booking) bool {
	if actor.Role.IsPrivileged() {
		return true
	}
	return actor.Role == models.RoleEmployee && actor.ID == b.EmployeeID
}

// CanEdit restricts generic field edits: privileged actors edit freely; an
// employee edits only bookings they own and may not reassign the booking.
func CanEdit(actor Actor, b *models.Booking, reassigns bool) bool {
	if actor.Role.IsPrivileged() {
		return true
	}
	if actor.Role != models.RoleEmployee || actor.ID != b.EmployeeID {
		return false
	}
	return !reassigns
}

// CanDelete guards the administrative delete path that bypasses lifecycle
// rules.
func CanDelete(actor Actor) bool {
	return actor.Role.IsPrivileged()
}
