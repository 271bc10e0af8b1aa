package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/models"

	"github.com/google/uuid"
)

const bookingColumns = `id, employee_id, service_id, client_name, client_email, client_phone,
        date, time, duration_minutes, status, payment_status, deposit_amount, deposit_paid,
        payment_intent_id, created_by, created_by_name, created_by_role,
        cancelled_at, cancel_reason, completed_at, no_show_at, no_show_by,
        payment_method, closed_by, extras, modifications, created_at, updated_at`

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	extras, err := json.Marshal(booking.Extras)
	if err != nil {
		return fmt.Errorf("encode extras: %w", err)
	}
	mods, err := json.Marshal(booking.Modifications)
	if err != nil {
		return fmt.Errorf("encode modifications: %w", err)
	}

	query := `INSERT INTO bookings (` + bookingColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = db.db.ExecContext(ctx, query,
		booking.ID,
		booking.EmployeeID,
		booking.ServiceID,
		booking.ClientName,
		booking.ClientEmail,
		booking.ClientPhone,
		booking.Date,
		booking.Time,
		booking.DurationMinutes,
		string(booking.Status),
		string(booking.PaymentStatus),
		booking.DepositAmount,
		booking.DepositPaid,
		booking.PaymentIntentID,
		booking.CreatedBy,
		booking.CreatedByName,
		string(booking.CreatedByRole),
		booking.CancelledAt,
		booking.CancelReason,
		booking.CompletedAt,
		booking.NoShowAt,
		booking.NoShowBy,
		string(booking.PaymentMethod),
		booking.ClosedBy,
		string(extras),
		string(mods),
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (db *DB) UpdateBooking(ctx context.Context, booking *models.Booking) error {
	booking.UpdatedAt = time.Now()

	extras, err := json.Marshal(booking.Extras)
	if err != nil {
		return fmt.Errorf("encode extras: %w", err)
	}
	mods, err := json.Marshal(booking.Modifications)
	if err != nil {
		return fmt.Errorf("encode modifications: %w", err)
	}

	query := `UPDATE bookings SET
            employee_id = ?, service_id = ?, client_name = ?, client_email = ?, client_phone = ?,
            date = ?, time = ?, duration_minutes = ?, status = ?, payment_status = ?,
            deposit_amount = ?, deposit_paid = ?, payment_intent_id = ?,
            cancelled_at = ?, cancel_reason = ?, completed_at = ?, no_show_at = ?, no_show_by = ?,
            payment_method = ?, closed_by = ?, extras = ?, modifications = ?, updated_at = ?
        WHERE id = ?`

	res, err := db.db.ExecContext(ctx, query,
		booking.EmployeeID,
		booking.ServiceID,
		booking.ClientName,
		booking.ClientEmail,
		booking.ClientPhone,
		booking.Date,
		booking.Time,
		booking.DurationMinutes,
		string(booking.Status),
		string(booking.PaymentStatus),
		booking.DepositAmount,
		booking.DepositPaid,
		booking.PaymentIntentID,
		booking.CancelledAt,
		booking.CancelReason,
		booking.CompletedAt,
		booking.NoShowAt,
		booking.NoShowBy,
		string(booking.PaymentMethod),
		booking.ClosedBy,
		string(extras),
		string(mods),
		booking.UpdatedAt,
		booking.ID,
	)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update booking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) DeleteBooking(ctx context.Context, id string) error {
	res, err := db.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete booking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return booking, nil
}

func (db *DB) ListBookingsByEmployeeDate(ctx context.Context, employeeID, date string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
        WHERE employee_id = ? AND date = ? ORDER BY time, created_at`
	return db.queryBookings(ctx, query, employeeID, date)
}

func (db *DB) ListBookingsByDate(ctx context.Context, date string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
        WHERE date = ? ORDER BY employee_id, time`
	return db.queryBookings(ctx, query, date)
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return bookings, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		booking                        models.Booking
		status, payStatus, role        string
		method                         sql.NullString
		email, phone, intentID         sql.NullString
		createdBy, createdByName       sql.NullString
		cancelReason, noShowBy, closer sql.NullString
		extrasRaw, modsRaw             sql.NullString
		cancelledAt, completedAt       sql.NullTime
		noShowAt                       sql.NullTime
	)

	err := row.Scan(
		&booking.ID,
		&booking.EmployeeID,
		&booking.ServiceID,
		&booking.ClientName,
		&email,
		&phone,
		&booking.Date,
		&booking.Time,
		&booking.DurationMinutes,
		&status,
		&payStatus,
		&booking.DepositAmount,
		&booking.DepositPaid,
		&intentID,
		&createdBy,
		&createdByName,
		&role,
		&cancelledAt,
		&cancelReason,
		&completedAt,
		&noShowAt,
		&noShowBy,
		&method,
		&closer,
		&extrasRaw,
		&modsRaw,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	booking.Status = models.Status(status)
	booking.PaymentStatus = models.PaymentStatus(payStatus)
	booking.CreatedByRole = models.Role(role)
	booking.ClientEmail = email.String
	booking.ClientPhone = phone.String
	booking.PaymentIntentID = intentID.String
	booking.CreatedBy = createdBy.String
	booking.CreatedByName = createdByName.String
	booking.CancelReason = cancelReason.String
	booking.NoShowBy = noShowBy.String
	booking.PaymentMethod = models.PaymentMethod(method.String)
	booking.ClosedBy = closer.String
	if cancelledAt.Valid {
		booking.CancelledAt = &cancelledAt.Time
	}
	if completedAt.Valid {
		booking.CompletedAt = &completedAt.Time
	}
	if noShowAt.Valid {
		booking.NoShowAt = &noShowAt.Time
	}

	if extrasRaw.Valid && extrasRaw.String != "" {
		if err := json.Unmarshal([]byte(extrasRaw.String), &booking.Extras); err != nil {
			return nil, fmt.Errorf("decode extras: %w", err)
		}
	}
	if modsRaw.Valid && modsRaw.String != "" {
		if err := json.Unmarshal([]byte(modsRaw.String), &booking.Modifications); err != nil {
			return nil, fmt.Errorf("decode modifications: %w", err)
		}
	}

	return &booking, nil
}
