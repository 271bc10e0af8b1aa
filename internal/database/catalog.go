package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/models"

	"github.com/google/uuid"
)

func (db *DB) GetService(ctx context.Context, id string) (*models.Service, error) {
	var s models.Service
	err := db.db.QueryRowContext(ctx,
		`SELECT id, name, duration_minutes, price, active, created_at FROM services WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.Price, &s.Active, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get service: %w", err)
	}
	return &s, nil
}

func (db *DB) ListServices(ctx context.Context) ([]*models.Service, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT id, name, duration_minutes, price, active, created_at FROM services ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	defer rows.Close()

	var services []*models.Service
	for rows.Next() {
		var s models.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.Price, &s.Active, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, &s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}
	return services, nil
}

func (db *DB) UpsertService(ctx context.Context, service *models.Service) error {
	if service.ID == "" {
		service.ID = uuid.NewString()
	}
	if service.CreatedAt.IsZero() {
		service.CreatedAt = time.Now()
	}

	_, err := db.db.ExecContext(ctx,
		`INSERT INTO services (id, name, duration_minutes, price, active, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            duration_minutes = excluded.duration_minutes,
            price = excluded.price,
            active = excluded.active`,
		service.ID, service.Name, service.DurationMinutes, service.Price, service.Active, service.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert service: %w", err)
	}
	return nil
}

func (db *DB) GetEmployee(ctx context.Context, id string) (*models.Employee, error) {
	return db.getEmployee(ctx, `id = ?`, id)
}

func (db *DB) GetEmployeeByUserID(ctx context.Context, userID string) (*models.Employee, error) {
	return db.getEmployee(ctx, `user_id = ?`, userID)
}

func (db *DB) getEmployee(ctx context.Context, where string, arg any) (*models.Employee, error) {
	var e models.Employee
	err := db.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, self_employed, telegram_chat_id, active, created_at
        FROM employees WHERE `+where, arg).
		Scan(&e.ID, &e.UserID, &e.Name, &e.SelfEmployed, &e.TelegramChatID, &e.Active, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return &e, nil
}

func (db *DB) ListEmployees(ctx context.Context) ([]*models.Employee, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT id, user_id, name, self_employed, telegram_chat_id, active, created_at
        FROM employees ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var employees []*models.Employee
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name, &e.SelfEmployed, &e.TelegramChatID, &e.Active, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return employees, nil
}

func (db *DB) UpsertEmployee(ctx context.Context, employee *models.Employee) error {
	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}
	if employee.CreatedAt.IsZero() {
		employee.CreatedAt = time.Now()
	}

	_, err := db.db.ExecContext(ctx,
		`INSERT INTO employees (id, user_id, name, self_employed, telegram_chat_id, active, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            user_id = excluded.user_id,
            name = excluded.name,
            self_employed = excluded.self_employed,
            telegram_chat_id = excluded.telegram_chat_id,
            active = excluded.active`,
		employee.ID, employee.UserID, employee.Name, employee.SelfEmployed, employee.TelegramChatID, employee.Active, employee.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert employee: %w", err)
	}
	return nil
}
