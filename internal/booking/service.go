// Package booking owns the state machine for a single booking: creation with
// payment verification, cancellation with conditional refund, status
// transitions and the append-only audit trail.
package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/events"
	"salonbook/internal/metrics"
	"salonbook/internal/models"
	"salonbook/internal/timeutil"

	"github.com/rs/zerolog"
)

// Refund outcomes returned by Cancel.
const (
	RefundNone      = "none"
	RefundDone      = "refunded"
	RefundFailed    = "failed"
	intentSucceeded = "succeeded"
)

// Creation attempts allowed per actor per window.
const (
	createRateLimit  = 10
	createRateWindow = time.Minute
)

type Service struct {
	repo         domain.Repository
	payments     domain.PaymentProcessor
	notify       domain.NotifyQueue
	eventBus     domain.EventPublisher
	cache        domain.ScheduleCache
	logger       *zerolog.Logger
	now          func() time.Time
	cancelWindow float64
}

func NewService(repo domain.Repository, payments domain.PaymentProcessor, notify domain.NotifyQueue,
	eventBus domain.EventPublisher, cache domain.ScheduleCache, logger *zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		payments:     payments,
		notify:       notify,
		eventBus:     eventBus,
		cache:        cache,
		logger:       logger,
		now:          time.Now,
		cancelWindow: models.CancellationWindowHours,
	}
}

// SetClock overrides the wall clock, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetCancellationWindow overrides the client notice period, in hours.
func (s *Service) SetCancellationWindow(hours float64) {
	if hours > 0 {
		s.cancelWindow = hours
	}
}

// CreateRequest carries the validated booking-creation payload.
type CreateRequest struct {
	EmployeeID       string
	ServiceID        string
	ClientName       string
	ClientEmail      string
	ClientPhone      string
	Date             string
	Time             string
	DurationOverride int

	// PaymentIntentID references the processor authorization covering the
	// deposit. Required unless Unpaid is set.
	PaymentIntentID string

	// Unpaid marks a staff-entered walk-in that skips payment verification.
	Unpaid bool

	Actor Actor
}

// Create persists a new booking. Payment verification is a hard failure: no
// booking exists without a verified deposit unless explicitly bypassed.
//
// The slot collision check runs against bookings visible at read time only;
// two concurrent creations of the same slot can both pass it. There is no
// lock or optimistic check at the data layer.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Booking, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	if err := s.checkCreateRate(ctx, req.Actor); err != nil {
		return nil, err
	}
	if timeutil.IsPastDate(req.Date, s.now()) {
		return nil, fmt.Errorf("%w: date %s is in the past", ErrValidation, req.Date)
	}

	service, err := s.repo.GetService(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("resolve service: %w", err)
	}
	if service.Price <= 0 {
		return nil, fmt.Errorf("%w: service %s has no price configured", ErrValidation, service.ID)
	}
	employee, err := s.repo.GetEmployee(ctx, req.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("resolve employee: %w", err)
	}

	duration := service.DurationMinutes
	if req.DurationOverride > 0 {
		duration = req.DurationOverride
	}

	if err := s.checkSlotFree(ctx, req.EmployeeID, req.Date, req.Time, duration); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		EmployeeID:      req.EmployeeID,
		ServiceID:       req.ServiceID,
		ClientName:      req.ClientName,
		ClientEmail:     req.ClientEmail,
		ClientPhone:     req.ClientPhone,
		Date:            req.Date,
		Time:            req.Time,
		DurationMinutes: duration,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentPending,
		CreatedBy:       req.Actor.ID,
		CreatedByName:   req.Actor.Name,
		CreatedByRole:   req.Actor.Role,
	}

	if !req.Unpaid {
		if s.payments == nil {
			return nil, fmt.Errorf("%w: no payment processor configured; only unpaid bookings can be created", ErrValidation)
		}
		intent, err := s.payments.GetPaymentIntent(ctx, req.PaymentIntentID)
		if err != nil {
			return nil, fmt.Errorf("verify payment intent: %w", err)
		}
		if intent.Status != intentSucceeded {
			return nil, fmt.Errorf("%w: payment intent status is %s", ErrPaymentNotCompleted, intent.Status)
		}
		if intent.AmountReceived < service.Deposit() {
			return nil, fmt.Errorf("%w: received %d, expected at least %d",
				ErrDepositTooLow, intent.AmountReceived, service.Deposit())
		}

		booking.PaymentIntentID = intent.ID
		booking.DepositAmount = intent.AmountReceived
		booking.DepositPaid = true
		booking.PaymentStatus = models.PaymentPaid
		booking.Status = models.StatusConfirmed
	}

	appendModification(booking, models.Modification{
		Action:      models.ActionCreated,
		Description: fmt.Sprintf("booking created for %s at %s %s", service.Name, booking.Date, booking.Time),
	}, req.Actor, s.now())

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("persist booking: %w", err)
	}

	metrics.IncBookingsCreated()
	s.invalidateSchedule(ctx, booking)
	s.publishEvent(events.EventBookingCreated, booking, req.Actor)
	s.sendCreationNotices(ctx, booking, service, employee)

	return booking, nil
}

func validateCreate(req CreateRequest) error {
	var missing []string
	if req.EmployeeID == "" {
		missing = append(missing, "employee_id")
	}
	if req.ServiceID == "" {
		missing = append(missing, "service_id")
	}
	if req.ClientName == "" {
		missing = append(missing, "client_name")
	}
	if req.Date == "" {
		missing = append(missing, "date")
	}
	if req.Time == "" {
		missing = append(missing, "time")
	}
	if !req.Unpaid && req.PaymentIntentID == "" {
		missing = append(missing, "payment_intent_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	if _, err := timeutil.MinutesOfDay(req.Time); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// checkCreateRate throttles booking creation per actor through the shared
// cache, so the limit holds across instances. Cache errors fail open.
func (s *Service) checkCreateRate(ctx context.Context, actor Actor) error {
	if s.cache == nil {
		return nil
	}
	key := actor.ID
	if key == "" {
		key = actor.Name
	}
	if key == "" {
		return nil
	}

	allowed, err := s.cache.CheckRateLimit(ctx, "booking_create:"+key, createRateLimit, createRateWindow)
	if err != nil {
		s.logger.Warn().Err(err).Str("actor_id", actor.ID).Msg("booking rate limit check failed")
		return nil
	}
	if !allowed {
		return fmt.Errorf("%w: more than %d in %s", ErrRateLimited, createRateLimit, createRateWindow)
	}
	return nil
}

func (s *Service) checkSlotFree(ctx context.Context, employeeID, date, at string, duration int) error {
	existing, err := s.repo.ListBookingsByEmployeeDate(ctx, employeeID, date)
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}
	start, err := timeutil.MinutesOfDay(at)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	end := start + duration

	for _, b := range existing {
		if b.Status == models.StatusCancelled {
			continue
		}
		bStart, err := timeutil.MinutesOfDay(b.Time)
		if err != nil {
			continue
		}
		if timeutil.Overlaps(start, end, bStart, bStart+b.DurationMinutes) {
			return fmt.Errorf("%w: %s %s conflicts with booking %s", ErrSlotTaken, date, at, b.ID)
		}
	}
	return nil
}

// CancelResult reports the refund outcome and how far ahead of the
// appointment the cancellation happened.
type CancelResult struct {
	Refund     string  `json:"refund"`
	HoursUntil float64 `json:"hours_until"`
}

// Cancel applies the cancellation policy and, for paid bookings, attempts to
// refund the recorded deposit. Refund failure never blocks the cancellation:
// the booking still becomes cancelled, and the payment status stays paid so
// the failure is visible for manual follow-up. Cancellation is irreversible.
func (s *Service) Cancel(ctx context.Context, id string, actor Actor, reason string, force bool) (*CancelResult, error) {
	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: status is %s", ErrAlreadyFinalized, booking.Status)
	}

	hours, err := timeutil.HoursUntil(booking.Date, booking.Time, s.now())
	if err != nil {
		return nil, fmt.Errorf("compute notice period: %w", err)
	}
	if !CanCancel(actor, hours, s.cancelWindow, force) {
		return nil, fmt.Errorf("%w: %.1f hours until appointment", ErrCancellationWindow, hours)
	}

	result := &CancelResult{Refund: RefundNone, HoursUntil: hours}

	if booking.PaymentStatus == models.PaymentPaid && booking.PaymentIntentID != "" && booking.DepositAmount > 0 {
		var refundErr error
		if s.payments == nil {
			refundErr = fmt.Errorf("no payment processor configured")
		} else {
			var refund *models.Refund
			refund, refundErr = s.payments.CreateRefund(ctx, booking.PaymentIntentID, booking.DepositAmount)
			if refundErr == nil && refund.Status == "failed" {
				refundErr = fmt.Errorf("refund status is failed")
			}
		}
		if refundErr != nil {
			result.Refund = RefundFailed
			metrics.IncRefundFailures()
			s.logger.Error().Err(refundErr).
				Str("booking_id", booking.ID).
				Str("payment_intent_id", booking.PaymentIntentID).
				Int64("amount", booking.DepositAmount).
				Msg("deposit refund failed; booking will still be cancelled")
		} else {
			result.Refund = RefundDone
			booking.PaymentStatus = models.PaymentRefunded
		}
	}

	now := s.now()
	oldStatus := booking.Status
	booking.Status = models.StatusCancelled
	booking.CancelledAt = &now
	booking.CancelReason = reason

	desc := "booking cancelled"
	if reason != "" {
		desc = fmt.Sprintf("booking cancelled: %s", reason)
	}
	appendModification(booking, models.Modification{
		Action:      models.ActionCancelled,
		Description: desc,
		OldValue:    string(oldStatus),
		NewValue:    string(models.StatusCancelled),
	}, actor, now)

	if err := s.repo.UpdateBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("persist cancellation: %w", err)
	}

	metrics.IncBookingsCancelled()
	s.invalidateSchedule(ctx, booking)
	s.publishEvent(events.EventBookingCancelled, booking, actor)
	s.enqueueNotice(ctx, models.Notification{
		Kind:      models.NotifyBookingCancelled,
		Recipient: booking.ClientEmail,
		BookingID: booking.ID,
		Data: map[string]string{
			"date":   booking.Date,
			"time":   booking.Time,
			"refund": result.Refund,
		},
	})

	return result, nil
}

// CloseOut carries the optional completion details recorded when a booking is
// closed at the desk.
type CloseOut struct {
	PaymentMethod models.PaymentMethod
	ClosedBy      string
	Extras        []models.ExtraService
}

// Transition moves a booking to confirmed, completed or no-show. Only the
// assigned employee or a privileged actor may do so, and only from a
// non-terminal state.
func (s *Service) Transition(ctx context.Context, id string, target models.Status, actor Actor, closeOut *CloseOut) (*models.Booking, error) {
	switch target {
	case models.StatusConfirmed, models.StatusCompleted, models.StatusNoShow:
	case models.StatusCancelled:
		return nil, ErrUseCancelEndpoint
	default:
		return nil, fmt.Errorf("%w: unknown target status %q", ErrValidation, target)
	}

	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if !CanTransition(actor, booking) {
		return nil, fmt.Errorf("%w: actor %s may not manage booking %s", ErrPermissionDenied, actor.ID, booking.ID)
	}
	if booking.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: status is %s", ErrAlreadyFinalized, booking.Status)
	}

	now := s.now()
	oldStatus := booking.Status
	booking.Status = target

	eventType := events.EventBookingConfirmed
	switch target {
	case models.StatusCompleted:
		booking.CompletedAt = &now
		eventType = events.EventBookingCompleted
		if closeOut != nil {
			booking.PaymentMethod = closeOut.PaymentMethod
			booking.ClosedBy = closeOut.ClosedBy
			booking.Extras = append(booking.Extras, closeOut.Extras...)
		}
	case models.StatusNoShow:
		booking.NoShowAt = &now
		booking.NoShowBy = actor.ID
		eventType = events.EventBookingNoShow
	}

	appendModification(booking, models.Modification{
		Action:      models.ActionStatusChanged,
		Description: fmt.Sprintf("status changed from %s to %s", oldStatus, target),
		OldValue:    string(oldStatus),
		NewValue:    string(target),
	}, actor, now)

	if target == models.StatusCompleted && closeOut != nil && closeOut.PaymentMethod != "" {
		appendModification(booking, models.Modification{
			Action:      models.ActionPaymentReceived,
			Description: fmt.Sprintf("balance collected via %s", closeOut.PaymentMethod),
			NewValue:    string(closeOut.PaymentMethod),
		}, actor, now)
	}

	if err := s.repo.UpdateBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("persist transition: %w", err)
	}

	s.invalidateSchedule(ctx, booking)
	s.publishEvent(eventType, booking, actor)
	return booking, nil
}

// UpdateRequest carries the optional non-status field edits. Nil pointers
// leave the field untouched.
type UpdateRequest struct {
	ClientName  *string
	ClientEmail *string
	ClientPhone *string
	Date        *string
	Time        *string
	ServiceID   *string
	EmployeeID  *string
	Status      *models.Status
}

// Update applies generic field edits under the edit policy. Changing status
// to cancelled here is always rejected; the dedicated Cancel operation is the
// only path that applies refund and authorization rules.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest, actor Actor) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}

	if req.Status != nil && *req.Status == models.StatusCancelled {
		return nil, ErrUseCancelEndpoint
	}

	reassigns := req.EmployeeID != nil && *req.EmployeeID != booking.EmployeeID
	if !CanEdit(actor, booking, reassigns) {
		return nil, fmt.Errorf("%w: actor %s may not edit booking %s", ErrPermissionDenied, actor.ID, booking.ID)
	}

	var changed []string
	apply := func(field string, dst *string, src *string) {
		if src != nil && *src != *dst {
			changed = append(changed, fmt.Sprintf("%s: %s -> %s", field, *dst, *src))
			*dst = *src
		}
	}
	apply("client_name", &booking.ClientName, req.ClientName)
	apply("client_email", &booking.ClientEmail, req.ClientEmail)
	apply("client_phone", &booking.ClientPhone, req.ClientPhone)
	apply("date", &booking.Date, req.Date)
	apply("time", &booking.Time, req.Time)
	apply("service_id", &booking.ServiceID, req.ServiceID)
	apply("employee_id", &booking.EmployeeID, req.EmployeeID)
	if req.Status != nil && *req.Status != booking.Status {
		changed = append(changed, fmt.Sprintf("status: %s -> %s", booking.Status, *req.Status))
		booking.Status = *req.Status
	}

	if len(changed) == 0 {
		return booking, nil
	}

	appendModification(booking, models.Modification{
		Action:      models.ActionUpdated,
		Description: strings.Join(changed, "; "),
	}, actor, s.now())

	if err := s.repo.UpdateBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("persist update: %w", err)
	}

	s.invalidateSchedule(ctx, booking)
	s.publishEvent(events.EventBookingUpdated, booking, actor)
	return booking, nil
}

// Delete is the administrative removal path. It bypasses lifecycle rules and
// physically deletes the booking.
func (s *Service) Delete(ctx context.Context, id string, actor Actor) error {
	if !CanDelete(actor) {
		return fmt.Errorf("%w: actor %s may not delete bookings", ErrPermissionDenied, actor.ID)
	}
	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return fmt.Errorf("get booking: %w", err)
	}
	if err := s.repo.DeleteBooking(ctx, id); err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	s.invalidateSchedule(ctx, booking)
	return nil
}

// Get returns a booking by id.
func (s *Service) Get(ctx context.Context, id string) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

// ListDay returns an employee's bookings for a date.
func (s *Service) ListDay(ctx context.Context, employeeID, date string) ([]*models.Booking, error) {
	return s.repo.ListBookingsByEmployeeDate(ctx, employeeID, date)
}

func appendModification(b *models.Booking, m models.Modification, actor Actor, at time.Time) {
	m.ActorID = actor.ID
	m.ActorName = actor.Name
	m.ActorRole = actor.Role
	m.CreatedAt = at
	b.Modifications = append(b.Modifications, m)
}

func (s *Service) sendCreationNotices(ctx context.Context, b *models.Booking, service *models.Service, employee *models.Employee) {
	kind := models.NotifyBookingPending
	if b.Status == models.StatusConfirmed {
		kind = models.NotifyBookingConfirmed
	}
	data := map[string]string{
		"service":  service.Name,
		"employee": employee.Name,
		"date":     b.Date,
		"time":     b.Time,
	}

	s.enqueueNotice(ctx, models.Notification{
		Kind:      kind,
		Recipient: b.ClientEmail,
		BookingID: b.ID,
		Data:      data,
	})
	if employee.TelegramChatID != 0 {
		s.enqueueNotice(ctx, models.Notification{
			Kind:      models.NotifyStaffNewBooking,
			ChatID:    employee.TelegramChatID,
			BookingID: b.ID,
			Data:      data,
		})
	}
}

// enqueueNotice hands a notification to the dispatch worker. Failures are
// logged and never propagated as operation failures.
func (s *Service) enqueueNotice(ctx context.Context, n models.Notification) {
	if s.notify == nil {
		return
	}
	if err := s.notify.Enqueue(ctx, n); err != nil {
		s.logger.Error().Err(err).Str("kind", n.Kind).Str("booking_id", n.BookingID).Msg("enqueue notification failed")
	}
}

func (s *Service) invalidateSchedule(ctx context.Context, b *models.Booking) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateDay(ctx, b.EmployeeID, b.Date); err != nil {
		s.logger.Warn().Err(err).Str("employee_id", b.EmployeeID).Str("date", b.Date).Msg("schedule cache invalidation failed")
	}
}

func (s *Service) publishEvent(eventType string, b *models.Booking, actor Actor) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:  b.ID,
		EmployeeID: b.EmployeeID,
		ServiceID:  b.ServiceID,
		ClientName: b.ClientName,
		Date:       b.Date,
		Time:       b.Time,
		Status:     string(b.Status),
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", b.ID).Msg("publish event error")
	}
}
