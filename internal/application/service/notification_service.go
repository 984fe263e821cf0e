package service

import (
	"context"
	"fmt"

	"github.com/garyjia/expense-claims/internal/application/dispatcher"
	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/garyjia/expense-claims/internal/domain/event"
)

// NotificationService tells approvers and claimants about decisions
type NotificationService interface {
	NotifySubmitted(ctx context.Context, claimID int64) error
	NotifyDecision(ctx context.Context, claimID int64) error
	// Subscribe registers the notifier as an asynchronous observer
	Subscribe(d dispatcher.Dispatcher)
}

type notificationServiceImpl struct {
	claimRepo      port.ClaimRepository
	referenceRepo  port.ReferenceDataRepository
	notifier       port.Notifier
	approverChatID string
	logger         Logger
}

// NewNotificationService creates a new NotificationService.
// An empty approverChatID disables submission notices.
func NewNotificationService(
	claimRepo port.ClaimRepository,
	referenceRepo port.ReferenceDataRepository,
	notifier port.Notifier,
	approverChatID string,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		claimRepo:      claimRepo,
		referenceRepo:  referenceRepo,
		notifier:       notifier,
		approverChatID: approverChatID,
		logger:         logger,
	}
}

// Subscribe registers handlers for submitted, approved and rejected claims
func (s *notificationServiceImpl) Subscribe(d dispatcher.Dispatcher) {
	d.ObserveAsync(event.TypeClaimSubmitted, "lark-notify-submitted", func(ctx context.Context, evt *event.Event) error {
		return s.NotifySubmitted(ctx, evt.ClaimID)
	})
	decided := func(ctx context.Context, evt *event.Event) error {
		return s.NotifyDecision(ctx, evt.ClaimID)
	}
	d.ObserveAsync(event.TypeClaimApproved, "lark-notify-decision", decided)
	d.ObserveAsync(event.TypeClaimRejected, "lark-notify-decision", decided)
}

// NotifySubmitted posts a new submission to the approver chat
func (s *notificationServiceImpl) NotifySubmitted(ctx context.Context, claimID int64) error {
	if s.approverChatID == "" {
		return nil
	}

	claim, employee, err := s.load(ctx, claimID)
	if err != nil {
		return err
	}

	currency := ""
	if c, err := s.referenceRepo.GetCurrency(ctx, claim.CurrencyID); err == nil && c != nil {
		currency = c.Code + " "
	}

	text := fmt.Sprintf("Claim %s from %s was submitted for approval.\nTotal: %s%s",
		claim.ReferenceID, employeeName(employee, claim.EmployeeID), currency, claim.TotalAmount.StringFixed(2))

	if err := s.notifier.SendText(ctx, port.ReceiveIDTypeChatID, s.approverChatID, text); err != nil {
		s.logger.Error("Failed to notify approvers", "error", err, "claim_id", claimID)
		return fmt.Errorf("send submitted notice: %w", err)
	}

	s.logger.Info("Approvers notified", "claim_id", claimID, "reference_id", claim.ReferenceID)
	return nil
}

// NotifyDecision tells the claimant their claim was approved or rejected
func (s *notificationServiceImpl) NotifyDecision(ctx context.Context, claimID int64) error {
	claim, employee, err := s.load(ctx, claimID)
	if err != nil {
		return err
	}
	if employee == nil || employee.LarkOpenID == "" {
		s.logger.Info("Claimant has no Lark account, skipping notice", "claim_id", claimID, "employee_id", claim.EmployeeID)
		return nil
	}

	var text string
	switch claim.Status {
	case entity.ClaimStatusApproved:
		text = fmt.Sprintf("Your claim %s for %s has been approved.", claim.ReferenceID, claim.TotalAmount.StringFixed(2))
	case entity.ClaimStatusRejected:
		text = fmt.Sprintf("Your claim %s was rejected.\nReason: %s", claim.ReferenceID, claim.RejectionReason)
	default:
		return nil
	}

	if err := s.notifier.SendText(ctx, port.ReceiveIDTypeOpenID, employee.LarkOpenID, text); err != nil {
		s.logger.Error("Failed to notify claimant", "error", err, "claim_id", claimID)
		return fmt.Errorf("send decision notice: %w", err)
	}

	s.logger.Info("Claimant notified", "claim_id", claimID, "status", claim.Status.String())
	return nil
}

func (s *notificationServiceImpl) load(ctx context.Context, claimID int64) (*entity.Claim, *entity.Employee, error) {
	claim, err := loadClaim(ctx, s.claimRepo, s.logger, claimID)
	if err != nil {
		return nil, nil, err
	}

	employee, err := s.referenceRepo.GetEmployee(ctx, claim.EmployeeID)
	if err != nil {
		s.logger.Error("Failed to get employee", "error", err, "employee_id", claim.EmployeeID)
		return nil, nil, fmt.Errorf("get employee: %w", err)
	}
	return claim, employee, nil
}

func employeeName(e *entity.Employee, id int64) string {
	if e == nil {
		return fmt.Sprintf("employee %d", id)
	}
	return e.FullName()
}
