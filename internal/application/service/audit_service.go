package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/garyjia/expense-claims/internal/application/dispatcher"
	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/domain/apperror"
	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/garyjia/expense-claims/internal/domain/event"
)

// DefaultActivityLimit caps UserActivity when no limit is given
const DefaultActivityLimit = 50

// AuditEntry is one state-changing action to record
type AuditEntry struct {
	EntityType string
	EntityID   int64
	Action     entity.AuditAction
	ActingUser string
	OldValues  map[string]interface{}
	NewValues  map[string]interface{}
	IPAddress  string
	UserAgent  string
}

// AuditService is the append-only audit trail
type AuditService interface {
	Log(ctx context.Context, entry AuditEntry) (*entity.AuditLog, error)
	EntityHistory(ctx context.Context, entityType string, entityID int64) ([]*entity.AuditLog, error)
	UserActivity(ctx context.Context, user string, limit int) ([]*entity.AuditLog, error)
	// Subscribe registers the audit observer for every claim event
	Subscribe(d dispatcher.Dispatcher)
}

type auditServiceImpl struct {
	auditRepo port.AuditLogRepository
	logger    Logger
	settings
}

// NewAuditService creates a new AuditService
func NewAuditService(auditRepo port.AuditLogRepository, logger Logger, opts ...Option) AuditService {
	return &auditServiceImpl{
		auditRepo: auditRepo,
		logger:    logger,
		settings:  newSettings(opts),
	}
}

// Log stores one audit record. Callers on the business path go through the
// observer, which never lets this error reach them.
func (s *auditServiceImpl) Log(ctx context.Context, entry AuditEntry) (*entity.AuditLog, error) {
	oldValues, err := marshalValues(entry.OldValues)
	if err != nil {
		return nil, fmt.Errorf("marshal old values: %w", err)
	}
	newValues, err := marshalValues(entry.NewValues)
	if err != nil {
		return nil, fmt.Errorf("marshal new values: %w", err)
	}

	record := &entity.AuditLog{
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     entry.Action,
		ActingUser: entry.ActingUser,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  entry.IPAddress,
		UserAgent:  entry.UserAgent,
		Timestamp:  s.now(),
	}

	if err := s.auditRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create audit log: %w", err)
	}
	return record, nil
}

// EntityHistory returns the audit records of one entity, newest first
func (s *auditServiceImpl) EntityHistory(ctx context.Context, entityType string, entityID int64) ([]*entity.AuditLog, error) {
	entityType = strings.TrimSpace(entityType)
	if entityType == "" {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "entity type is required")
	}

	logs, err := s.auditRepo.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		s.logger.Error("Failed to list entity history", "error", err, "entity_type", entityType, "entity_id", entityID)
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}

// UserActivity returns the latest audit records written by user
func (s *auditServiceImpl) UserActivity(ctx context.Context, user string, limit int) ([]*entity.AuditLog, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "user is required")
	}
	if limit <= 0 {
		limit = DefaultActivityLimit
	}

	logs, err := s.auditRepo.ListByUser(ctx, user, limit)
	if err != nil {
		s.logger.Error("Failed to list user activity", "error", err, "user", user)
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}

// Subscribe registers the audit observer synchronously so the record is
// written before the request returns
func (s *auditServiceImpl) Subscribe(d dispatcher.Dispatcher) {
	for _, t := range event.AllTypes {
		d.Observe(t, "audit-trail", s.observe)
	}
}

// auditMapping says how an event type is recorded
type auditMapping struct {
	action  entity.AuditAction
	onClaim bool // record against the owning claim instead of the event entity
}

var auditMappings = map[event.Type]auditMapping{
	event.TypeClaimCreated:      {action: entity.AuditActionCreate},
	event.TypeClaimUpdated:      {action: entity.AuditActionUpdate},
	event.TypeClaimDeleted:      {action: entity.AuditActionDelete},
	event.TypeClaimSubmitted:    {action: entity.AuditActionSubmit},
	event.TypeClaimApproved:     {action: entity.AuditActionApprove},
	event.TypeClaimRejected:     {action: entity.AuditActionReject},
	event.TypeExpenseAdded:      {action: entity.AuditActionAddExpense, onClaim: true},
	event.TypeExpenseUpdated:    {action: entity.AuditActionUpdate},
	event.TypeExpenseDeleted:    {action: entity.AuditActionDeleteExpense, onClaim: true},
	event.TypeAttachmentAdded:   {action: entity.AuditActionAddAttachment, onClaim: true},
	event.TypeAttachmentDeleted: {action: entity.AuditActionDeleteAttachment, onClaim: true},
}

func (s *auditServiceImpl) observe(ctx context.Context, evt *event.Event) error {
	mapping, ok := auditMappings[evt.Type]
	if !ok {
		return nil
	}

	entry := AuditEntry{
		EntityType: evt.EntityType,
		EntityID:   evt.EntityID,
		Action:     mapping.action,
		ActingUser: evt.Actor,
		OldValues:  evt.OldValues,
		NewValues:  evt.NewValues,
		IPAddress:  evt.GetPayloadString(payloadIPAddress),
		UserAgent:  evt.GetPayloadString(payloadUserAgent),
	}
	if mapping.onClaim {
		entry.EntityType = entity.EntityTypeClaim
		entry.EntityID = evt.ClaimID
	}

	if _, err := s.Log(ctx, entry); err != nil {
		return fmt.Errorf("audit %s: %w", evt.Type, err)
	}
	return nil
}

func marshalValues(values map[string]interface{}) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
