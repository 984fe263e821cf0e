package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expense-claims/internal/application/port"
)

// SequenceRepository implements port.ReferenceSequenceRepository
type SequenceRepository struct {
	base
	logger *zap.Logger
}

// NewSequenceRepository creates a new reference sequence repository
func NewSequenceRepository(db *sql.DB, logger *zap.Logger) *SequenceRepository {
	return &SequenceRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Next increments the counter for day and returns the new value. The upsert
// is a single statement, so two callers never observe the same value.
func (r *SequenceRepository) Next(ctx context.Context, day string) (int64, error) {
	query := `
		INSERT INTO claim_reference_sequences (day, last_value) VALUES (?, 1)
		ON CONFLICT(day) DO UPDATE SET last_value = last_value + 1
		RETURNING last_value
	`

	var value int64
	if err := r.conn(ctx).QueryRowContext(ctx, query, day).Scan(&value); err != nil {
		r.logger.Error("Failed to advance reference sequence", zap.String("day", day), zap.Error(err))
		return 0, fmt.Errorf("failed to advance reference sequence: %w", err)
	}

	return value, nil
}

// Verify interface compliance
var _ port.ReferenceSequenceRepository = (*SequenceRepository)(nil)
