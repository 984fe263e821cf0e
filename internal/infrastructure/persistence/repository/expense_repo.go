package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/domain/entity"
)

const expenseColumns = `id, claim_id, expense_type_id, expense_date, amount_cents, note, created_at, updated_at`

// ExpenseRepository implements port.ExpenseRepository
type ExpenseRepository struct {
	base
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) *ExpenseRepository {
	return &ExpenseRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create inserts a new expense and sets its ID
func (r *ExpenseRepository) Create(ctx context.Context, expense *entity.Expense) error {
	query := `
		INSERT INTO expenses (
			claim_id, expense_type_id, expense_date, amount_cents, note, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = now
	}
	if expense.UpdatedAt.IsZero() {
		expense.UpdatedAt = expense.CreatedAt
	}

	cents, err := toCents(expense.Amount)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}

	result, err := r.conn(ctx).ExecContext(ctx, query,
		expense.ClaimID,
		expense.ExpenseTypeID,
		expense.ExpenseDate.Format(entity.DateLayout),
		cents,
		expense.Note,
		utc(expense.CreatedAt),
		utc(expense.UpdatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create expense",
			zap.Int64("claim_id", expense.ClaimID),
			zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	expense.ID = id
	return nil
}

// GetByID retrieves an expense by ID
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

	expense, err := scanExpense(r.conn(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get expense by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	return expense, nil
}

// Update rewrites the mutable fields of an expense
func (r *ExpenseRepository) Update(ctx context.Context, expense *entity.Expense) error {
	query := `
		UPDATE expenses
		SET expense_type_id = ?, expense_date = ?, amount_cents = ?, note = ?, updated_at = ?
		WHERE id = ?
	`

	if expense.UpdatedAt.IsZero() {
		expense.UpdatedAt = time.Now()
	}

	cents, err := toCents(expense.Amount)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}

	_, err = r.conn(ctx).ExecContext(ctx, query,
		expense.ExpenseTypeID,
		expense.ExpenseDate.Format(entity.DateLayout),
		cents,
		expense.Note,
		utc(expense.UpdatedAt),
		expense.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update expense", zap.Int64("id", expense.ID), zap.Error(err))
		return fmt.Errorf("failed to update expense: %w", err)
	}

	return nil
}

// Delete removes an expense
func (r *ExpenseRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete expense", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}

// DeleteByClaimID removes every expense of a claim
func (r *ExpenseRepository) DeleteByClaimID(ctx context.Context, claimID int64) error {
	if _, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM expenses WHERE claim_id = ?`, claimID); err != nil {
		r.logger.Error("Failed to delete claim expenses", zap.Int64("claim_id", claimID), zap.Error(err))
		return fmt.Errorf("failed to delete claim expenses: %w", err)
	}
	return nil
}

// ListByClaimID returns a claim's expenses ordered by date
func (r *ExpenseRepository) ListByClaimID(ctx context.Context, claimID int64) ([]*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE claim_id = ? ORDER BY expense_date ASC, id ASC`

	rows, err := r.conn(ctx).QueryContext(ctx, query, claimID)
	if err != nil {
		r.logger.Error("Failed to list expenses", zap.Int64("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*entity.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}

	return expenses, rows.Err()
}

// CountByClaimID returns the number of expenses on a claim
func (r *ExpenseRepository) CountByClaimID(ctx context.Context, claimID int64) (int, error) {
	var count int
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses WHERE claim_id = ?`, claimID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count expenses: %w", err)
	}
	return count, nil
}

// SumByClaimID returns the exact sum of a claim's expense amounts
func (r *ExpenseRepository) SumByClaimID(ctx context.Context, claimID int64) (decimal.Decimal, error) {
	var cents int64
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE claim_id = ?`, claimID).Scan(&cents)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum expenses: %w", err)
	}
	return fromCents(cents), nil
}

func scanExpense(row rowScanner) (*entity.Expense, error) {
	var e entity.Expense
	var date string
	var cents int64

	if err := row.Scan(
		&e.ID,
		&e.ClaimID,
		&e.ExpenseTypeID,
		&date,
		&cents,
		&e.Note,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return nil, err
	}

	d, err := time.Parse(entity.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid expense date %q: %w", date, err)
	}
	e.ExpenseDate = d
	e.Amount = fromCents(cents)

	return &e, nil
}

// Verify interface compliance
var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
