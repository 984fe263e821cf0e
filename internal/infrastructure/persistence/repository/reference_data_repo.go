package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/domain/entity"
)

// ReferenceDataRepository implements port.ReferenceDataRepository
type ReferenceDataRepository struct {
	base
	logger *zap.Logger
}

// NewReferenceDataRepository creates a new reference data repository
func NewReferenceDataRepository(db *sql.DB, logger *zap.Logger) *ReferenceDataRepository {
	return &ReferenceDataRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// GetEmployee retrieves an employee by ID
func (r *ReferenceDataRepository) GetEmployee(ctx context.Context, id int64) (*entity.Employee, error) {
	query := `SELECT id, first_name, last_name, email, lark_open_id, active FROM employees WHERE id = ?`

	var e entity.Employee
	err := r.conn(ctx).QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.FirstName, &e.LastName, &e.Email, &e.LarkOpenID, &e.Active,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get employee", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &e, nil
}

// GetEventType retrieves an event type by ID
func (r *ReferenceDataRepository) GetEventType(ctx context.Context, id int64) (*entity.EventType, error) {
	var et entity.EventType
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT id, name FROM event_types WHERE id = ?`, id).Scan(&et.ID, &et.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get event type", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get event type: %w", err)
	}
	return &et, nil
}

// GetCurrency retrieves a currency by ID
func (r *ReferenceDataRepository) GetCurrency(ctx context.Context, id int64) (*entity.Currency, error) {
	var c entity.Currency
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT id, code, name, symbol FROM currencies WHERE id = ?`, id).Scan(&c.ID, &c.Code, &c.Name, &c.Symbol)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get currency", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get currency: %w", err)
	}
	return &c, nil
}

// GetExpenseType retrieves an expense type by ID
func (r *ReferenceDataRepository) GetExpenseType(ctx context.Context, id int64) (*entity.ExpenseType, error) {
	var et entity.ExpenseType
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT id, name FROM expense_types WHERE id = ?`, id).Scan(&et.ID, &et.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get expense type", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get expense type: %w", err)
	}
	return &et, nil
}

// UpsertEmployee inserts or replaces an employee keyed by ID
func (r *ReferenceDataRepository) UpsertEmployee(ctx context.Context, e *entity.Employee) error {
	query := `
		INSERT INTO employees (id, first_name, last_name, email, lark_open_id, active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			email = excluded.email,
			lark_open_id = excluded.lark_open_id,
			active = excluded.active
	`
	if _, err := r.conn(ctx).ExecContext(ctx, query,
		e.ID, e.FirstName, e.LastName, e.Email, e.LarkOpenID, e.Active,
	); err != nil {
		r.logger.Error("Failed to upsert employee", zap.Int64("id", e.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert employee: %w", err)
	}
	return nil
}

// UpsertEventType inserts or renames an event type keyed by ID
func (r *ReferenceDataRepository) UpsertEventType(ctx context.Context, et *entity.EventType) error {
	query := `
		INSERT INTO event_types (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`
	if _, err := r.conn(ctx).ExecContext(ctx, query, et.ID, et.Name); err != nil {
		r.logger.Error("Failed to upsert event type", zap.Int64("id", et.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert event type: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.ReferenceDataRepository = (*ReferenceDataRepository)(nil)
