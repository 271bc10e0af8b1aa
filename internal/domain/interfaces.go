package domain

import (
	"context"
	"time"

	"salonbook/internal/models"
)

// Repository is the persistence capability consumed by the booking core.
// Implementations assign opaque string ids at creation and must be safe for
// concurrent use. No transactional guarantees are assumed.
type Repository interface {
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	CreateBooking(ctx context.Context, booking *models.Booking) error
	UpdateBooking(ctx context.Context, booking *models.Booking) error
	DeleteBooking(ctx context.Context, id string) error
	ListBookingsByEmployeeDate(ctx context.Context, employeeID, date string) ([]*models.Booking, error)
	ListBookingsByDate(ctx context.Context, date string) ([]*models.Booking, error)

	ListWindows(ctx context.Context, employeeID, serviceID string) ([]*models.AvailabilityWindow, error)
	CreateWindow(ctx context.Context, window *models.AvailabilityWindow) error
	DeleteWindow(ctx context.Context, id string) error

	ListBlocks(ctx context.Context, employeeID, date string) ([]*models.BlockedSlot, error)
	CreateBlock(ctx context.Context, block *models.BlockedSlot) error
	DeleteBlock(ctx context.Context, id string) error

	GetService(ctx context.Context, id string) (*models.Service, error)
	ListServices(ctx context.Context) ([]*models.Service, error)
	UpsertService(ctx context.Context, service *models.Service) error

	GetEmployee(ctx context.Context, id string) (*models.Employee, error)
	GetEmployeeByUserID(ctx context.Context, userID string) (*models.Employee, error)
	ListEmployees(ctx context.Context) ([]*models.Employee, error)
	UpsertEmployee(ctx context.Context, employee *models.Employee) error
}

// PaymentProcessor authorizes and refunds amounts with the external payment
// provider. Calls are blocking network calls with no automatic retry.
type PaymentProcessor interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*models.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*models.PaymentIntent, error)
	CreateRefund(ctx context.Context, paymentIntentID string, amount int64) (*models.Refund, error)
}

// Notifier delivers a single notification. Failures are the caller's problem;
// the booking core only ever invokes it through a fire-and-forget queue.
type Notifier interface {
	Send(ctx context.Context, n models.Notification) error
}

// NotifyQueue accepts notifications for asynchronous dispatch.
type NotifyQueue interface {
	Enqueue(ctx context.Context, n models.Notification) error
}

// EventPublisher fans booking lifecycle events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// ScheduleCache caches computed day schedules keyed by query and supports
// invalidation of everything cached for an employee's day.
type ScheduleCache interface {
	Get(ctx context.Context, key string) (*models.DaySchedule, error)
	Set(ctx context.Context, employeeID, date, key string, schedule *models.DaySchedule) error
	InvalidateDay(ctx context.Context, employeeID, date string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
