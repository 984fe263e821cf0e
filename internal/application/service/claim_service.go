package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-claims/internal/application/dispatcher"
	"github.com/garyjia/expense-claims/internal/application/port"
	appwf "github.com/garyjia/expense-claims/internal/application/workflow"
	"github.com/garyjia/expense-claims/internal/domain/apperror"
	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/garyjia/expense-claims/internal/domain/event"
	domainwf "github.com/garyjia/expense-claims/internal/domain/workflow"
)

// CreateClaimInput carries the header of a new claim
type CreateClaimInput struct {
	EmployeeID  int64
	EventTypeID int64
	CurrencyID  int64
	Remarks     string
}

// UpdateClaimInput carries optional header changes; nil fields are left untouched
type UpdateClaimInput struct {
	EventTypeID *int64
	CurrencyID  *int64
	Remarks     *string
}

// RejectClaimInput carries the rejection decision
type RejectClaimInput struct {
	Reason string
}

// ClaimService drives the claim lifecycle
type ClaimService interface {
	Create(ctx context.Context, in CreateClaimInput, principal entity.Principal) (*entity.Claim, error)
	Get(ctx context.Context, id int64) (*entity.ClaimDetail, error)
	Update(ctx context.Context, id int64, in UpdateClaimInput, principal entity.Principal) (*entity.Claim, error)
	Delete(ctx context.Context, id int64, principal entity.Principal) error
	Submit(ctx context.Context, id int64, principal entity.Principal) (*entity.Claim, error)
	// Approve and Reject trust the caller to have checked the principal's role
	Approve(ctx context.Context, id int64, principal entity.Principal) (*entity.Claim, error)
	Reject(ctx context.Context, id int64, in RejectClaimInput, principal entity.Principal) (*entity.Claim, error)
}

type claimServiceImpl struct {
	claimRepo      port.ClaimRepository
	expenseRepo    port.ExpenseRepository
	attachmentRepo port.AttachmentRepository
	referenceRepo  port.ReferenceDataRepository
	refGenerator   ReferenceGenerator
	txManager      port.TransactionManager
	storage        port.FileStorage
	publisher      publisher
	logger         Logger
	settings
}

// NewClaimService creates a new ClaimService
func NewClaimService(
	claimRepo port.ClaimRepository,
	expenseRepo port.ExpenseRepository,
	attachmentRepo port.AttachmentRepository,
	referenceRepo port.ReferenceDataRepository,
	refGenerator ReferenceGenerator,
	txManager port.TransactionManager,
	storage port.FileStorage,
	events dispatcher.Dispatcher,
	logger Logger,
	opts ...Option,
) ClaimService {
	cfg := newSettings(opts)
	return &claimServiceImpl{
		claimRepo:      claimRepo,
		expenseRepo:    expenseRepo,
		attachmentRepo: attachmentRepo,
		referenceRepo:  referenceRepo,
		refGenerator:   refGenerator,
		txManager:      txManager,
		storage:        storage,
		publisher:      publisher{dispatcher: events, metrics: cfg.metrics, logger: logger},
		logger:         logger,
		settings:       cfg,
	}
}

// Create opens a new claim in Initiated status with a zero total
func (s *claimServiceImpl) Create(ctx context.Context, in CreateClaimInput, principal entity.Principal) (*entity.Claim, error) {
	if err := s.requireEmployee(ctx, in.EmployeeID); err != nil {
		return nil, err
	}
	if err := s.requireEventType(ctx, in.EventTypeID); err != nil {
		return nil, err
	}
	if err := s.requireCurrency(ctx, in.CurrencyID); err != nil {
		return nil, err
	}

	now := s.now()
	actor := principal.Actor()
	claim := &entity.Claim{
		EmployeeID:  in.EmployeeID,
		EventTypeID: in.EventTypeID,
		CurrencyID:  in.CurrencyID,
		Status:      entity.ClaimStatusInitiated,
		Remarks:     strings.TrimSpace(in.Remarks),
		TotalAmount: decimal.Zero,
		CreatedBy:   actor,
		UpdatedBy:   actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		ref, err := s.refGenerator.Generate(txCtx)
		if err != nil {
			return fmt.Errorf("generate reference id: %w", err)
		}
		claim.ReferenceID = ref

		if err := s.claimRepo.Create(txCtx, claim); err != nil {
			return fmt.Errorf("create claim: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create claim", "error", err, "employee_id", in.EmployeeID)
		return nil, err
	}

	s.logger.Info("Claim created", "id", claim.ID, "reference_id", claim.ReferenceID, "actor", actor)
	s.publisher.publish(ctx, event.NewEvent(event.TypeClaimCreated, entity.EntityTypeClaim, claim.ID, claim.ID, actor).
		WithValues(nil, claim.Snapshot()).
		WithPayload("reference_id", claim.ReferenceID))

	return claim, nil
}

// Get returns the claim with its expenses and attachments
func (s *claimServiceImpl) Get(ctx context.Context, id int64) (*entity.ClaimDetail, error) {
	claim, err := s.getClaim(ctx, id)
	if err != nil {
		return nil, err
	}

	expenses, err := s.expenseRepo.ListByClaimID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to list expenses", "error", err, "claim_id", id)
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	attachments, err := s.attachmentRepo.ListByClaimID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to list attachments", "error", err, "claim_id", id)
		return nil, fmt.Errorf("list attachments: %w", err)
	}

	return &entity.ClaimDetail{
		Claim:       claim,
		Expenses:    expenses,
		Attachments: attachments,
	}, nil
}

// Update rewrites the header of an Initiated claim. The reference ID never changes.
func (s *claimServiceImpl) Update(ctx context.Context, id int64, in UpdateClaimInput, principal entity.Principal) (*entity.Claim, error) {
	claim, err := s.getClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claim.Status.IsEditable() {
		return nil, notEditable(claim)
	}

	changes := entity.ClaimChanges{
		EventTypeID: claim.EventTypeID,
		CurrencyID:  claim.CurrencyID,
		Remarks:     claim.Remarks,
		UpdatedBy:   principal.Actor(),
		UpdatedAt:   s.now(),
	}
	if in.EventTypeID != nil && *in.EventTypeID != claim.EventTypeID {
		if err := s.requireEventType(ctx, *in.EventTypeID); err != nil {
			return nil, err
		}
		changes.EventTypeID = *in.EventTypeID
	}
	if in.CurrencyID != nil && *in.CurrencyID != claim.CurrencyID {
		if err := s.requireCurrency(ctx, *in.CurrencyID); err != nil {
			return nil, err
		}
		changes.CurrencyID = *in.CurrencyID
	}
	if in.Remarks != nil {
		changes.Remarks = strings.TrimSpace(*in.Remarks)
	}

	ok, err := s.claimRepo.UpdateHeader(ctx, id, entity.ClaimStatusInitiated, changes)
	if err != nil {
		s.logger.Error("Failed to update claim", "error", err, "id", id)
		return nil, fmt.Errorf("update claim: %w", err)
	}
	if !ok {
		return nil, statusChanged(id)
	}

	before := claim.Snapshot()
	claim.EventTypeID = changes.EventTypeID
	claim.CurrencyID = changes.CurrencyID
	claim.Remarks = changes.Remarks
	claim.UpdatedBy = changes.UpdatedBy
	claim.UpdatedAt = changes.UpdatedAt

	s.publisher.publish(ctx, event.NewEvent(event.TypeClaimUpdated, entity.EntityTypeClaim, id, id, principal.Actor()).
		WithValues(before, claim.Snapshot()))

	return claim, nil
}

// Delete removes an Initiated claim with its expenses and attachment rows.
// Stored files are removed after commit; failures there are only logged.
func (s *claimServiceImpl) Delete(ctx context.Context, id int64, principal entity.Principal) error {
	claim, err := s.getClaim(ctx, id)
	if err != nil {
		return err
	}
	if !claim.Status.IsEditable() {
		return notEditable(claim)
	}

	var attachments []*entity.Attachment
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		attachments, err = s.attachmentRepo.ListByClaimID(txCtx, id)
		if err != nil {
			return fmt.Errorf("list attachments: %w", err)
		}
		if err := s.expenseRepo.DeleteByClaimID(txCtx, id); err != nil {
			return fmt.Errorf("delete expenses: %w", err)
		}
		if err := s.attachmentRepo.DeleteByClaimID(txCtx, id); err != nil {
			return fmt.Errorf("delete attachments: %w", err)
		}
		ok, err := s.claimRepo.Delete(txCtx, id, entity.ClaimStatusInitiated)
		if err != nil {
			return fmt.Errorf("delete claim: %w", err)
		}
		if !ok {
			return statusChanged(id)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to delete claim", "error", err, "id", id)
		return err
	}

	for _, att := range attachments {
		if err := s.storage.Delete(ctx, att.FilePath); err != nil {
			s.logger.Error("Failed to delete attachment file", "error", err, "path", att.FilePath, "claim_id", id)
		}
	}

	s.logger.Info("Claim deleted", "id", id, "reference_id", claim.ReferenceID, "actor", principal.Actor())
	s.publisher.publish(ctx, event.NewEvent(event.TypeClaimDeleted, entity.EntityTypeClaim, id, id, principal.Actor()).
		WithValues(claim.Snapshot(), nil))

	return nil
}

// Submit moves an Initiated claim with a positive ledger to Submitted,
// persisting the recomputed total in the same write
func (s *claimServiceImpl) Submit(ctx context.Context, id int64, principal entity.Principal) (*entity.Claim, error) {
	return s.transition(ctx, id, domainwf.TriggerSubmit, principal, func(txCtx context.Context, claim *entity.Claim, t *entity.ClaimTransition) error {
		count, err := s.expenseRepo.CountByClaimID(txCtx, id)
		if err != nil {
			return fmt.Errorf("count expenses: %w", err)
		}
		if count < 1 {
			return apperror.Validation(apperror.CodeClaimNoExpenses, "claim must have at least one expense")
		}

		total, err := s.expenseRepo.SumByClaimID(txCtx, id)
		if err != nil {
			return fmt.Errorf("sum expenses: %w", err)
		}
		if !total.IsPositive() {
			return apperror.Validation(apperror.CodeClaimZeroTotal, "claim total must be greater than zero")
		}

		t.TotalAmount = &total
		return nil
	})
}

// Approve moves a Submitted claim to Approved, recording the principal as approver
func (s *claimServiceImpl) Approve(ctx context.Context, id int64, principal entity.Principal) (*entity.Claim, error) {
	return s.transition(ctx, id, domainwf.TriggerApprove, principal, func(_ context.Context, _ *entity.Claim, t *entity.ClaimTransition) error {
		approver := principal.ID
		t.ApproverID = &approver
		return nil
	})
}

// Reject moves a Submitted claim to Rejected. An empty reason fails before
// the claim is read.
func (s *claimServiceImpl) Reject(ctx context.Context, id int64, in RejectClaimInput, principal entity.Principal) (*entity.Claim, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, apperror.Validation(apperror.CodeRejectionReason, "rejection reason is required")
	}

	return s.transition(ctx, id, domainwf.TriggerReject, principal, func(_ context.Context, _ *entity.Claim, t *entity.ClaimTransition) error {
		approver := principal.ID
		t.ApproverID = &approver
		t.RejectionReason = reason
		return nil
	})
}

type transitionGuard func(ctx context.Context, claim *entity.Claim, t *entity.ClaimTransition) error

var transitionEvents = map[domainwf.Trigger]event.Type{
	domainwf.TriggerSubmit:  event.TypeClaimSubmitted,
	domainwf.TriggerApprove: event.TypeClaimApproved,
	domainwf.TriggerReject:  event.TypeClaimRejected,
}

// transition resolves the target status from the transition table, runs the
// trigger's guards and applies a compare-and-swap write, all in one transaction
func (s *claimServiceImpl) transition(ctx context.Context, id int64, trigger domainwf.Trigger, principal entity.Principal, guard transitionGuard) (*entity.Claim, error) {
	var (
		claim  *entity.Claim
		before map[string]interface{}
		from   entity.ClaimStatus
	)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		c, err := s.getClaim(txCtx, id)
		if err != nil {
			return err
		}
		from = c.Status

		to, ok := appwf.Next(c.Status, trigger)
		if !ok {
			return apperror.InvalidState(apperror.CodeClaimInvalidState,
				fmt.Sprintf("cannot %s claim in status %s", strings.ToLower(trigger.String()), c.Status)).
				WithMetadata("status", c.Status.String())
		}

		t := entity.ClaimTransition{
			From:  c.Status,
			To:    to,
			At:    s.now(),
			Actor: principal.Actor(),
		}
		if guard != nil {
			if err := guard(txCtx, c, &t); err != nil {
				return err
			}
		}

		ok, err = s.claimRepo.Transition(txCtx, id, t)
		if err != nil {
			return fmt.Errorf("transition claim: %w", err)
		}
		if !ok {
			return statusChanged(id)
		}

		before = c.Snapshot()
		applyTransition(c, t)
		claim = c
		return nil
	})
	if from != "" {
		s.metrics.RecordTransition(from.String(), trigger.String(), err == nil)
	}
	if err != nil {
		if apperror.KindOf(err) == apperror.KindInternal {
			s.logger.Error("Failed to transition claim", "error", err, "id", id, "trigger", trigger.String())
		}
		return nil, err
	}

	s.logger.Info("Claim transitioned",
		"id", id,
		"reference_id", claim.ReferenceID,
		"from", from.String(),
		"to", claim.Status.String(),
		"actor", principal.Actor())

	s.publisher.publish(ctx, event.NewEvent(transitionEvents[trigger], entity.EntityTypeClaim, id, id, principal.Actor()).
		WithValues(before, claim.Snapshot()).
		WithPayload("reference_id", claim.ReferenceID).
		WithPayload("employee_id", claim.EmployeeID))

	return claim, nil
}

func applyTransition(c *entity.Claim, t entity.ClaimTransition) {
	at := t.At
	c.Status = t.To
	c.UpdatedBy = t.Actor
	c.UpdatedAt = at

	switch t.To {
	case entity.ClaimStatusSubmitted:
		c.SubmittedDate = &at
	case entity.ClaimStatusApproved:
		c.ApprovedDate = &at
		c.ApproverID = t.ApproverID
	case entity.ClaimStatusRejected:
		c.RejectedDate = &at
		c.RejectionReason = t.RejectionReason
		c.ApproverID = t.ApproverID
	}
	if t.TotalAmount != nil {
		c.TotalAmount = *t.TotalAmount
	}
}

func (s *claimServiceImpl) getClaim(ctx context.Context, id int64) (*entity.Claim, error) {
	return loadClaim(ctx, s.claimRepo, s.logger, id)
}

func (s *claimServiceImpl) requireEmployee(ctx context.Context, id int64) error {
	employee, err := s.referenceRepo.GetEmployee(ctx, id)
	if err != nil {
		return fmt.Errorf("get employee: %w", err)
	}
	if employee == nil {
		return apperror.NotFound(apperror.CodeEmployeeNotFound, fmt.Sprintf("employee %d not found", id))
	}
	return nil
}

func (s *claimServiceImpl) requireEventType(ctx context.Context, id int64) error {
	eventType, err := s.referenceRepo.GetEventType(ctx, id)
	if err != nil {
		return fmt.Errorf("get event type: %w", err)
	}
	if eventType == nil {
		return apperror.NotFound(apperror.CodeEventTypeNotFound, fmt.Sprintf("event type %d not found", id))
	}
	return nil
}

func (s *claimServiceImpl) requireCurrency(ctx context.Context, id int64) error {
	currency, err := s.referenceRepo.GetCurrency(ctx, id)
	if err != nil {
		return fmt.Errorf("get currency: %w", err)
	}
	if currency == nil {
		return apperror.NotFound(apperror.CodeCurrencyNotFound, fmt.Sprintf("currency %d not found", id))
	}
	return nil
}

// loadClaim reads a claim and turns absence into NotFound
func loadClaim(ctx context.Context, repo port.ClaimRepository, logger Logger, id int64) (*entity.Claim, error) {
	claim, err := repo.GetByID(ctx, id)
	if err != nil {
		logger.Error("Failed to get claim", "error", err, "id", id)
		return nil, fmt.Errorf("get claim: %w", err)
	}
	if claim == nil {
		return nil, apperror.NotFound(apperror.CodeClaimNotFound, fmt.Sprintf("claim %d not found", id))
	}
	return claim, nil
}

// notEditable reports a mutation attempted outside Initiated
func notEditable(claim *entity.Claim) error {
	return apperror.InvalidState(apperror.CodeClaimInvalidState,
		fmt.Sprintf("claim %s is %s and can no longer be modified", claim.ReferenceID, claim.Status)).
		WithMetadata("status", claim.Status.String())
}

// statusChanged reports a conditional write that matched no row
func statusChanged(id int64) error {
	return apperror.InvalidState(apperror.CodeClaimInvalidState,
		fmt.Sprintf("claim %d changed status concurrently", id))
}
