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

const attachmentColumns = `id, claim_id, original_filename, stored_filename, file_size, file_type,
	file_path, page_count, description, uploaded_by, created_at`

// AttachmentRepository implements port.AttachmentRepository
type AttachmentRepository struct {
	base
	logger *zap.Logger
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(db *sql.DB, logger *zap.Logger) *AttachmentRepository {
	return &AttachmentRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create inserts the attachment record if its claim is still in expected status.
// It returns false, and leaves att.ID unset, when the claim was not.
func (r *AttachmentRepository) Create(ctx context.Context, att *entity.Attachment, expected entity.ClaimStatus) (bool, error) {
	query := `
		INSERT INTO attachments (
			claim_id, original_filename, stored_filename, file_size, file_type,
			file_path, page_count, description, uploaded_by, created_at
		)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM claims WHERE id = ? AND status = ?)
	`

	if att.CreatedAt.IsZero() {
		att.CreatedAt = time.Now()
	}

	result, err := r.conn(ctx).ExecContext(ctx, query,
		att.ClaimID,
		att.OriginalFilename,
		att.StoredFilename,
		att.FileSize,
		att.FileType,
		att.FilePath,
		att.PageCount,
		att.Description,
		att.UploadedBy,
		utc(att.CreatedAt),
		att.ClaimID,
		string(expected),
	)
	if err != nil {
		r.logger.Error("Failed to create attachment",
			zap.Int64("claim_id", att.ClaimID),
			zap.String("stored_filename", att.StoredFilename),
			zap.Error(err))
		return false, fmt.Errorf("failed to create attachment: %w", err)
	}

	inserted, err := rowsAffected(result)
	if err != nil || !inserted {
		return false, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to get last insert id: %w", err)
	}

	att.ID = id
	return true, nil
}

// GetByID retrieves an attachment by ID
func (r *AttachmentRepository) GetByID(ctx context.Context, id int64) (*entity.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE id = ?`

	att, err := scanAttachment(r.conn(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get attachment by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}

	return att, nil
}

// ListByClaimID retrieves all attachments for a claim
func (r *AttachmentRepository) ListByClaimID(ctx context.Context, claimID int64) ([]*entity.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE claim_id = ? ORDER BY created_at ASC, id ASC`

	rows, err := r.conn(ctx).QueryContext(ctx, query, claimID)
	if err != nil {
		r.logger.Error("Failed to list attachments", zap.Int64("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*entity.Attachment
	for rows.Next() {
		att, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, att)
	}

	return attachments, rows.Err()
}

// Delete removes an attachment record if its claim is still in expected status
func (r *AttachmentRepository) Delete(ctx context.Context, id int64, expected entity.ClaimStatus) (bool, error) {
	query := `
		DELETE FROM attachments
		WHERE id = ?
		  AND EXISTS (SELECT 1 FROM claims c WHERE c.id = attachments.claim_id AND c.status = ?)
	`

	result, err := r.conn(ctx).ExecContext(ctx, query, id, string(expected))
	if err != nil {
		r.logger.Error("Failed to delete attachment", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to delete attachment: %w", err)
	}
	return rowsAffected(result)
}

// DeleteByClaimID removes every attachment record of a claim
func (r *AttachmentRepository) DeleteByClaimID(ctx context.Context, claimID int64) error {
	if _, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM attachments WHERE claim_id = ?`, claimID); err != nil {
		r.logger.Error("Failed to delete claim attachments", zap.Int64("claim_id", claimID), zap.Error(err))
		return fmt.Errorf("failed to delete claim attachments: %w", err)
	}
	return nil
}

// ExistsByFilePath reports whether any attachment row references path
func (r *AttachmentRepository) ExistsByFilePath(ctx context.Context, path string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM attachments WHERE file_path = ?)`, path).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check attachment path: %w", err)
	}
	return exists, nil
}

func scanAttachment(row rowScanner) (*entity.Attachment, error) {
	var att entity.Attachment
	if err := row.Scan(
		&att.ID,
		&att.ClaimID,
		&att.OriginalFilename,
		&att.StoredFilename,
		&att.FileSize,
		&att.FileType,
		&att.FilePath,
		&att.PageCount,
		&att.Description,
		&att.UploadedBy,
		&att.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &att, nil
}

// Verify interface compliance
var _ port.AttachmentRepository = (*AttachmentRepository)(nil)
