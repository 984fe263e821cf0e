package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-claims/internal/domain/claimquery"
	"github.com/garyjia/expense-claims/internal/domain/entity"
)

// ClaimRepository defines persistence operations for Claim.
// Conditional writes report whether a row matched the expected status.
type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.Claim) error
	GetByID(ctx context.Context, id int64) (*entity.Claim, error)
	UpdateHeader(ctx context.Context, id int64, expected entity.ClaimStatus, changes entity.ClaimChanges) (bool, error)
	Transition(ctx context.Context, id int64, t entity.ClaimTransition) (bool, error)
	UpdateTotal(ctx context.Context, id int64, expected entity.ClaimStatus, total decimal.Decimal, actor string, at time.Time) (bool, error)
	Delete(ctx context.Context, id int64, expected entity.ClaimStatus) (bool, error)
	Search(ctx context.Context, q claimquery.Query) ([]*entity.ClaimSummary, int64, error)
}

// ExpenseRepository defines persistence operations for Expense
type ExpenseRepository interface {
	Create(ctx context.Context, expense *entity.Expense) error
	GetByID(ctx context.Context, id int64) (*entity.Expense, error)
	Update(ctx context.Context, expense *entity.Expense) error
	Delete(ctx context.Context, id int64) error
	DeleteByClaimID(ctx context.Context, claimID int64) error
	ListByClaimID(ctx context.Context, claimID int64) ([]*entity.Expense, error)
	CountByClaimID(ctx context.Context, claimID int64) (int, error)
	SumByClaimID(ctx context.Context, claimID int64) (decimal.Decimal, error)
}

// AttachmentRepository defines persistence operations for Attachment
type AttachmentRepository interface {
	// Create and Delete write only while the owning claim is in expected status
	Create(ctx context.Context, att *entity.Attachment, expected entity.ClaimStatus) (bool, error)
	GetByID(ctx context.Context, id int64) (*entity.Attachment, error)
	ListByClaimID(ctx context.Context, claimID int64) ([]*entity.Attachment, error)
	Delete(ctx context.Context, id int64, expected entity.ClaimStatus) (bool, error)
	DeleteByClaimID(ctx context.Context, claimID int64) error
	ExistsByFilePath(ctx context.Context, path string) (bool, error)
}

// AuditLogRepository defines the append-only audit store
type AuditLogRepository interface {
	Create(ctx context.Context, log *entity.AuditLog) error
	ListByEntity(ctx context.Context, entityType string, entityID int64) ([]*entity.AuditLog, error)
	ListByUser(ctx context.Context, user string, limit int) ([]*entity.AuditLog, error)
}

// ReferenceDataRepository resolves read-only directory lookups.
// Getters return (nil, nil) when the row does not exist.
type ReferenceDataRepository interface {
	GetEmployee(ctx context.Context, id int64) (*entity.Employee, error)
	GetEventType(ctx context.Context, id int64) (*entity.EventType, error)
	GetCurrency(ctx context.Context, id int64) (*entity.Currency, error)
	GetExpenseType(ctx context.Context, id int64) (*entity.ExpenseType, error)
	UpsertEmployee(ctx context.Context, employee *entity.Employee) error
	UpsertEventType(ctx context.Context, eventType *entity.EventType) error
}

// ReferenceSequenceRepository hands out per-day counters for reference IDs
type ReferenceSequenceRepository interface {
	// Next atomically increments and returns the counter for day (YYYYMMDD)
	Next(ctx context.Context, day string) (int64, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
