package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"salonbook/internal/models"
	"salonbook/internal/timeutil"

	"github.com/google/uuid"
)

// ListWindows returns the employee's availability windows, optionally
// pre-filtered to a service. An empty serviceID returns every window.
func (db *DB) ListWindows(ctx context.Context, employeeID, serviceID string) ([]*models.AvailabilityWindow, error) {
	query := `SELECT id, employee_id, service_id, day_of_week, start_time, end_time,
            is_available, start_date, end_date, created_at
        FROM availability_windows WHERE employee_id = ?`
	args := []any{employeeID}
	if serviceID != "" {
		query += ` AND service_id = ?`
		args = append(args, serviceID)
	}
	query += ` ORDER BY day_of_week, start_time`

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query windows: %w", err)
	}
	defer rows.Close()

	var windows []*models.AvailabilityWindow
	for rows.Next() {
		var (
			w                  models.AvailabilityWindow
			svcID              sql.NullString
			startDate, endDate sql.NullString
			dayOfWeek          int
		)
		err := rows.Scan(&w.ID, &w.EmployeeID, &svcID, &dayOfWeek, &w.StartTime, &w.EndTime,
			&w.IsAvailable, &startDate, &endDate, &w.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan window: %w", err)
		}
		w.ServiceID = svcID.String
		w.StartDate = startDate.String
		w.EndDate = endDate.String
		w.DayOfWeek = time.Weekday(dayOfWeek)
		windows = append(windows, &w)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate windows: %w", err)
	}
	return windows, nil
}

// CreateWindow persists a new availability window. Rejects windows whose
// start is not before their end, and windows overlapping an existing one for
// the same employee and weekday.
func (db *DB) CreateWindow(ctx context.Context, window *models.AvailabilityWindow) error {
	start, err := timeutil.MinutesOfDay(window.StartTime)
	if err != nil {
		return fmt.Errorf("window start: %w", err)
	}
	end, err := timeutil.MinutesOfDay(window.EndTime)
	if err != nil {
		return fmt.Errorf("window end: %w", err)
	}
	if start >= end {
		return ErrInvalidWindow
	}

	existing, err := db.ListWindows(ctx, window.EmployeeID, "")
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.DayOfWeek != window.DayOfWeek {
			continue
		}
		otherStart, err := timeutil.MinutesOfDay(other.StartTime)
		if err != nil {
			continue
		}
		otherEnd, err := timeutil.MinutesOfDay(other.EndTime)
		if err != nil {
			continue
		}
		if timeutil.Overlaps(start, end, otherStart, otherEnd) {
			return ErrWindowOverlap
		}
	}

	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	window.CreatedAt = time.Now()

	_, err = db.db.ExecContext(ctx,
		`INSERT INTO availability_windows
            (id, employee_id, service_id, day_of_week, start_time, end_time, is_available, start_date, end_date, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		window.ID, window.EmployeeID, window.ServiceID, int(window.DayOfWeek),
		window.StartTime, window.EndTime, window.IsAvailable, window.StartDate, window.EndDate, window.CreatedAt)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	return nil
}

func (db *DB) DeleteWindow(ctx context.Context, id string) error {
	res, err := db.db.ExecContext(ctx, `DELETE FROM availability_windows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete window: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete window rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBlocks returns the employee's blocked ranges for a date.
func (db *DB) ListBlocks(ctx context.Context, employeeID, date string) ([]*models.BlockedSlot, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT id, employee_id, service_id, date, start_time, end_time, reason, created_at
        FROM blocked_slots WHERE employee_id = ? AND date = ? ORDER BY start_time`,
		employeeID, date)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*models.BlockedSlot
	for rows.Next() {
		var (
			b                      models.BlockedSlot
			svcID, endTime, reason sql.NullString
		)
		err := rows.Scan(&b.ID, &b.EmployeeID, &svcID, &b.Date, &b.StartTime, &endTime, &reason, &b.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		b.ServiceID = svcID.String
		b.EndTime = endTime.String
		b.Reason = reason.String
		blocks = append(blocks, &b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return blocks, nil
}

func (db *DB) CreateBlock(ctx context.Context, block *models.BlockedSlot) error {
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	block.CreatedAt = time.Now()

	_, err := db.db.ExecContext(ctx,
		`INSERT INTO blocked_slots (id, employee_id, service_id, date, start_time, end_time, reason, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		block.ID, block.EmployeeID, block.ServiceID, block.Date, block.StartTime, block.EndTime, block.Reason, block.CreatedAt)
	if err != nil {
		return fmt.Errorf("create block: %w", err)
	}
	return nil
}

func (db *DB) DeleteBlock(ctx context.Context, id string) error {
	res, err := db.db.ExecContext(ctx, `DELETE FROM blocked_slots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete block rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
