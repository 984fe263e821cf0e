package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/garyjia/expense-claims/internal/application/dispatcher"
	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/domain/apperror"
	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/garyjia/expense-claims/internal/domain/event"
)

// DefaultMaxAttachmentSize is the upload limit when none is configured
const DefaultMaxAttachmentSize int64 = 1 << 20

// DefaultAllowedTypes is the MIME allowlist for evidence files
var DefaultAllowedTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"image/gif",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Upload results reported to metrics
const (
	uploadResultOK         = "ok"
	uploadResultTooLarge   = "too_large"
	uploadResultBadType    = "type_not_allowed"
	uploadResultUnreadable = "unreadable"
	uploadResultEmpty      = "empty"
	uploadResultFailed     = "failed"
)

// AttachmentPolicy bounds what may be uploaded
type AttachmentPolicy struct {
	MaxSize      int64
	AllowedTypes []string
}

// UploadInput is one uploaded evidence file
type UploadInput struct {
	Filename    string
	Content     []byte
	Description string
}

// FileStream is an attachment opened for download
type FileStream struct {
	Attachment *entity.Attachment
	Content    io.ReadCloser
}

// AttachmentService guards a claim's evidence files
type AttachmentService interface {
	Upload(ctx context.Context, claimID int64, in UploadInput, principal entity.Principal) (*entity.Attachment, error)
	Delete(ctx context.Context, attachmentID int64, principal entity.Principal) error
	// GetFileStream opens the stored file regardless of claim status.
	// The caller must close the returned stream.
	GetFileStream(ctx context.Context, attachmentID int64) (*FileStream, error)
	List(ctx context.Context, claimID int64) ([]*entity.Attachment, error)
}

type attachmentServiceImpl struct {
	claimRepo      port.ClaimRepository
	attachmentRepo port.AttachmentRepository
	txManager      port.TransactionManager
	storage        port.FileStorage
	inspector      port.DocumentInspector
	policy         AttachmentPolicy
	allowed        map[string]bool
	publisher      publisher
	logger         Logger
	settings
}

// NewAttachmentService creates a new AttachmentService
func NewAttachmentService(
	claimRepo port.ClaimRepository,
	attachmentRepo port.AttachmentRepository,
	txManager port.TransactionManager,
	storage port.FileStorage,
	inspector port.DocumentInspector,
	policy AttachmentPolicy,
	events dispatcher.Dispatcher,
	logger Logger,
	opts ...Option,
) AttachmentService {
	if policy.MaxSize <= 0 {
		policy.MaxSize = DefaultMaxAttachmentSize
	}
	if len(policy.AllowedTypes) == 0 {
		policy.AllowedTypes = DefaultAllowedTypes
	}
	allowed := make(map[string]bool, len(policy.AllowedTypes))
	for _, t := range policy.AllowedTypes {
		allowed[strings.ToLower(strings.TrimSpace(t))] = true
	}

	cfg := newSettings(opts)
	return &attachmentServiceImpl{
		claimRepo:      claimRepo,
		attachmentRepo: attachmentRepo,
		txManager:      txManager,
		storage:        storage,
		inspector:      inspector,
		policy:         policy,
		allowed:        allowed,
		publisher:      publisher{dispatcher: events, metrics: cfg.metrics, logger: logger},
		logger:         logger,
		settings:       cfg,
	}
}

// Upload stores the file under the claim directory, then records the row only
// if the claim is still Initiated. A row failure or a claim that left Initiated
// after the file write removes the file best-effort.
func (s *attachmentServiceImpl) Upload(ctx context.Context, claimID int64, in UploadInput, principal entity.Principal) (*entity.Attachment, error) {
	claim, err := loadClaim(ctx, s.claimRepo, s.logger, claimID)
	if err != nil {
		return nil, err
	}
	if !claim.Status.IsEditable() {
		return nil, notEditable(claim)
	}

	size := int64(len(in.Content))
	if size == 0 {
		s.metrics.RecordUpload(uploadResultEmpty, size)
		return nil, apperror.Validation(apperror.CodeInvalidInput, "file is empty")
	}
	if size > s.policy.MaxSize {
		s.metrics.RecordUpload(uploadResultTooLarge, size)
		return nil, apperror.Validation(apperror.CodeFileTooLarge,
			fmt.Sprintf("file exceeds the %d byte limit", s.policy.MaxSize))
	}

	info, err := s.inspector.Inspect(ctx, in.Content)
	if err != nil {
		if errors.Is(err, port.ErrUnreadableDocument) {
			s.metrics.RecordUpload(uploadResultUnreadable, size)
			return nil, apperror.Validation(apperror.CodeFileUnreadable, "file content could not be read")
		}
		s.metrics.RecordUpload(uploadResultFailed, size)
		return nil, fmt.Errorf("inspect file: %w", err)
	}
	if !s.allowed[info.MIMEType] {
		s.metrics.RecordUpload(uploadResultBadType, size)
		return nil, apperror.Validation(apperror.CodeFileTypeNotAllowed,
			fmt.Sprintf("file type %s is not allowed", info.MIMEType)).
			WithMetadata("mime_type", info.MIMEType)
	}

	original := entity.SanitizeFilename(in.Filename)
	now := s.now()
	stored := entity.NewStoredFilename(now, entity.StoredExtension(original, info.Extension))

	att := &entity.Attachment{
		ClaimID:          claimID,
		OriginalFilename: original,
		StoredFilename:   stored,
		FileSize:         size,
		FileType:         info.MIMEType,
		FilePath:         entity.ClaimFilePath(claimID, stored),
		PageCount:        info.PageCount,
		Description:      strings.TrimSpace(in.Description),
		UploadedBy:       principal.Actor(),
		CreatedAt:        now,
	}

	if err := s.storage.Save(ctx, att.FilePath, in.Content, info.MIMEType); err != nil {
		s.metrics.RecordUpload(uploadResultFailed, size)
		s.logger.Error("Failed to store attachment", "error", err, "claim_id", claimID, "path", att.FilePath)
		return nil, fmt.Errorf("save file: %w", err)
	}

	created, err := s.attachmentRepo.Create(ctx, att, entity.ClaimStatusInitiated)
	if err != nil || !created {
		s.metrics.RecordUpload(uploadResultFailed, size)
		if delErr := s.storage.Delete(ctx, att.FilePath); delErr != nil {
			s.logger.Error("Failed to remove unreferenced file", "error", delErr, "path", att.FilePath)
		}
		if err != nil {
			s.logger.Error("Failed to create attachment record", "error", err, "claim_id", claimID, "path", att.FilePath)
			return nil, fmt.Errorf("create attachment: %w", err)
		}
		return nil, statusChanged(claimID)
	}

	s.metrics.RecordUpload(uploadResultOK, size)
	s.logger.Info("Attachment uploaded", "id", att.ID, "claim_id", claimID, "file_type", att.FileType, "size", size)
	s.publisher.publish(ctx, event.NewEvent(event.TypeAttachmentAdded, entity.EntityTypeAttachment, att.ID, claimID, principal.Actor()).
		WithValues(nil, att.Snapshot()))

	return att, nil
}

// Delete removes the stored file best-effort, then the row. The status check,
// file removal and row delete run in one transaction, so a claim submitted
// concurrently keeps both its row and its file.
func (s *attachmentServiceImpl) Delete(ctx context.Context, attachmentID int64, principal entity.Principal) error {
	att, err := s.getAttachment(ctx, attachmentID)
	if err != nil {
		return err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		claim, err := loadClaim(txCtx, s.claimRepo, s.logger, att.ClaimID)
		if err != nil {
			return err
		}
		if !claim.Status.IsEditable() {
			return notEditable(claim)
		}

		if err := s.storage.Delete(ctx, att.FilePath); err != nil {
			s.logger.Error("Failed to delete attachment file", "error", err, "id", attachmentID, "path", att.FilePath)
		}

		deleted, err := s.attachmentRepo.Delete(txCtx, attachmentID, entity.ClaimStatusInitiated)
		if err != nil {
			s.logger.Error("Failed to delete attachment record", "error", err, "id", attachmentID)
			return fmt.Errorf("delete attachment: %w", err)
		}
		if !deleted {
			return statusChanged(att.ClaimID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Attachment deleted", "id", attachmentID, "claim_id", att.ClaimID)
	s.publisher.publish(ctx, event.NewEvent(event.TypeAttachmentDeleted, entity.EntityTypeAttachment, attachmentID, att.ClaimID, principal.Actor()).
		WithValues(att.Snapshot(), nil))

	return nil
}

// GetFileStream opens the stored file of an attachment
func (s *attachmentServiceImpl) GetFileStream(ctx context.Context, attachmentID int64) (*FileStream, error) {
	att, err := s.getAttachment(ctx, attachmentID)
	if err != nil {
		return nil, err
	}

	rc, err := s.storage.Open(ctx, att.FilePath)
	if errors.Is(err, port.ErrFileNotFound) {
		return nil, apperror.NotFound(apperror.CodeFileNotFound,
			fmt.Sprintf("file of attachment %d not found", attachmentID))
	}
	if err != nil {
		s.logger.Error("Failed to open attachment file", "error", err, "id", attachmentID, "path", att.FilePath)
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &FileStream{Attachment: att, Content: rc}, nil
}

// List returns the attachments of a claim regardless of its status
func (s *attachmentServiceImpl) List(ctx context.Context, claimID int64) ([]*entity.Attachment, error) {
	if _, err := loadClaim(ctx, s.claimRepo, s.logger, claimID); err != nil {
		return nil, err
	}

	atts, err := s.attachmentRepo.ListByClaimID(ctx, claimID)
	if err != nil {
		s.logger.Error("Failed to list attachments", "error", err, "claim_id", claimID)
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return atts, nil
}

func (s *attachmentServiceImpl) getAttachment(ctx context.Context, id int64) (*entity.Attachment, error) {
	att, err := s.attachmentRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get attachment", "error", err, "id", id)
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	if att == nil {
		return nil, apperror.NotFound(apperror.CodeAttachmentNotFound, fmt.Sprintf("attachment %d not found", id))
	}
	return att, nil
}
