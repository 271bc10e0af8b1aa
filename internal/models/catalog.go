package models

import "time"

// Service is a bookable salon service. Price is in minor currency units.
type Service struct {
	ID              string    `json:"id" yaml:"id"`
	Name            string    `json:"name" yaml:"name"`
	DurationMinutes int       `json:"duration_minutes" yaml:"duration_minutes"`
	Price           int64     `json:"price" yaml:"price"`
	Active          bool      `json:"active" yaml:"active"`
	CreatedAt       time.Time `json:"created_at" yaml:"-"`
}

// Deposit returns the upfront amount due at booking time.
func (s *Service) Deposit() int64 {
	return s.Price * DepositPercent / 100
}

// Employee is a staff member who owns availability windows and bookings.
// UserID links the employee to their login identity. SelfEmployed controls
// how much of a sale the salon retains at reconciliation.
type Employee struct {
	ID             string    `json:"id" yaml:"id"`
	UserID         string    `json:"user_id" yaml:"user_id"`
	Name           string    `json:"name" yaml:"name"`
	SelfEmployed   bool      `json:"self_employed" yaml:"self_employed"`
	TelegramChatID int64     `json:"telegram_chat_id,omitempty" yaml:"telegram_chat_id"`
	Active         bool      `json:"active" yaml:"active"`
	CreatedAt      time.Time `json:"created_at" yaml:"-"`
}

// PaymentIntent mirrors the processor's authorization object.
type PaymentIntent struct {
	ID             string `json:"id"`
	ClientSecret   string `json:"client_secret,omitempty"`
	Status         string `json:"status"`
	AmountReceived int64  `json:"amount_received"`
}

// Refund mirrors the processor's refund object.
type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Notification is a fire-and-forget message handed to the dispatch worker.
type Notification struct {
	Kind      string            `json:"kind"`
	Recipient string            `json:"recipient,omitempty"`
	ChatID    int64             `json:"chat_id,omitempty"`
	BookingID string            `json:"booking_id,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Notification kinds understood by the notifier implementations.
const (
	NotifyBookingConfirmed = "booking_confirmed"
	NotifyBookingPending   = "booking_pending"
	NotifyBookingCancelled = "booking_cancelled"
	NotifyStaffNewBooking  = "staff_new_booking"
)
