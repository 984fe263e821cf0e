package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/domain/entity"
)

const auditColumns = `id, entity_type, entity_id, action, acting_user, old_values, new_values,
	ip_address, user_agent, timestamp`

// AuditLogRepository implements port.AuditLogRepository. Rows are insert-only.
type AuditLogRepository struct {
	base
	logger *zap.Logger
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *sql.DB, logger *zap.Logger) *AuditLogRepository {
	return &AuditLogRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create appends an audit record
func (r *AuditLogRepository) Create(ctx context.Context, log *entity.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			entity_type, entity_id, action, acting_user, old_values, new_values,
			ip_address, user_agent, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}

	result, err := r.conn(ctx).ExecContext(ctx, query,
		log.EntityType,
		log.EntityID,
		string(log.Action),
		log.ActingUser,
		nullString(log.OldValues),
		nullString(log.NewValues),
		nullString(log.IPAddress),
		nullString(log.UserAgent),
		utc(log.Timestamp),
	)
	if err != nil {
		r.logger.Error("Failed to create audit log",
			zap.String("entity_type", log.EntityType),
			zap.Int64("entity_id", log.EntityID),
			zap.String("action", string(log.Action)),
			zap.Error(err))
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	log.ID = id
	return nil
}

// ListByEntity returns the history of one entity, newest first
func (r *AuditLogRepository) ListByEntity(ctx context.Context, entityType string, entityID int64) ([]*entity.AuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY timestamp DESC, id DESC`

	return r.list(ctx, query, entityType, entityID)
}

// ListByUser returns the most recent actions of a user, newest first
func (r *AuditLogRepository) ListByUser(ctx context.Context, user string, limit int) ([]*entity.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + auditColumns + ` FROM audit_logs
		WHERE acting_user = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`

	return r.list(ctx, query, user, limit)
}

func (r *AuditLogRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.AuditLog, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list audit logs", zap.Error(err))
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*entity.AuditLog
	for rows.Next() {
		var l entity.AuditLog
		var action string
		var oldValues, newValues, ip, ua sql.NullString

		if err := rows.Scan(
			&l.ID,
			&l.EntityType,
			&l.EntityID,
			&action,
			&l.ActingUser,
			&oldValues,
			&newValues,
			&ip,
			&ua,
			&l.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}

		l.Action = entity.AuditAction(action)
		l.OldValues = oldValues.String
		l.NewValues = newValues.String
		l.IPAddress = ip.String
		l.UserAgent = ua.String
		logs = append(logs, &l)
	}

	return logs, rows.Err()
}

// Verify interface compliance
var _ port.AuditLogRepository = (*AuditLogRepository)(nil)
