package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-claims/internal/application/dispatcher"
	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/domain/apperror"
	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/garyjia/expense-claims/internal/domain/event"
)

// ExpenseInput carries the fields of an expense line
type ExpenseInput struct {
	ExpenseTypeID int64
	ExpenseDate   time.Time
	Amount        decimal.Decimal
	Note          string
}

// ExpenseService maintains a claim's expense ledger and its derived total
type ExpenseService interface {
	Create(ctx context.Context, claimID int64, in ExpenseInput, principal entity.Principal) (*entity.Expense, error)
	Update(ctx context.Context, expenseID int64, in ExpenseInput, principal entity.Principal) (*entity.Expense, error)
	Delete(ctx context.Context, expenseID int64, principal entity.Principal) error
	Get(ctx context.Context, expenseID int64) (*entity.Expense, error)
	List(ctx context.Context, claimID int64) ([]*entity.Expense, error)
}

type expenseServiceImpl struct {
	claimRepo     port.ClaimRepository
	expenseRepo   port.ExpenseRepository
	referenceRepo port.ReferenceDataRepository
	txManager     port.TransactionManager
	publisher     publisher
	logger        Logger
	settings
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(
	claimRepo port.ClaimRepository,
	expenseRepo port.ExpenseRepository,
	referenceRepo port.ReferenceDataRepository,
	txManager port.TransactionManager,
	events dispatcher.Dispatcher,
	logger Logger,
	opts ...Option,
) ExpenseService {
	cfg := newSettings(opts)
	return &expenseServiceImpl{
		claimRepo:     claimRepo,
		expenseRepo:   expenseRepo,
		referenceRepo: referenceRepo,
		txManager:     txManager,
		publisher:     publisher{dispatcher: events, metrics: cfg.metrics, logger: logger},
		logger:        logger,
		settings:      cfg,
	}
}

// Create adds an expense to an Initiated claim and recomputes the claim total
func (s *expenseServiceImpl) Create(ctx context.Context, claimID int64, in ExpenseInput, principal entity.Principal) (*entity.Expense, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	if err := s.requireExpenseType(ctx, in.ExpenseTypeID); err != nil {
		return nil, err
	}

	now := s.now()
	expense := &entity.Expense{
		ClaimID:       claimID,
		ExpenseTypeID: in.ExpenseTypeID,
		ExpenseDate:   dateOnly(in.ExpenseDate),
		Amount:        in.Amount,
		Note:          strings.TrimSpace(in.Note),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var total decimal.Decimal
	err := s.mutateLedger(ctx, claimID, principal, func(txCtx context.Context) error {
		return s.expenseRepo.Create(txCtx, expense)
	}, &total)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Expense added", "id", expense.ID, "claim_id", claimID, "amount", expense.Amount.StringFixed(2), "total", total.StringFixed(2))
	s.publisher.publish(ctx, event.NewEvent(event.TypeExpenseAdded, entity.EntityTypeExpense, expense.ID, claimID, principal.Actor()).
		WithValues(nil, expense.Snapshot()).
		WithPayload("total_amount", total.StringFixed(2)))

	return expense, nil
}

// Update rewrites an expense of an Initiated claim and recomputes the claim total
func (s *expenseServiceImpl) Update(ctx context.Context, expenseID int64, in ExpenseInput, principal entity.Principal) (*entity.Expense, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	expense, err := s.getExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if in.ExpenseTypeID != expense.ExpenseTypeID {
		if err := s.requireExpenseType(ctx, in.ExpenseTypeID); err != nil {
			return nil, err
		}
	}

	before := expense.Snapshot()
	updated := *expense
	updated.ExpenseTypeID = in.ExpenseTypeID
	updated.ExpenseDate = dateOnly(in.ExpenseDate)
	updated.Amount = in.Amount
	updated.Note = strings.TrimSpace(in.Note)
	updated.UpdatedAt = s.now()

	var total decimal.Decimal
	err = s.mutateLedger(ctx, expense.ClaimID, principal, func(txCtx context.Context) error {
		return s.expenseRepo.Update(txCtx, &updated)
	}, &total)
	if err != nil {
		return nil, err
	}

	s.publisher.publish(ctx, event.NewEvent(event.TypeExpenseUpdated, entity.EntityTypeExpense, expenseID, expense.ClaimID, principal.Actor()).
		WithValues(before, updated.Snapshot()).
		WithPayload("total_amount", total.StringFixed(2)))

	return &updated, nil
}

// Delete removes an expense of an Initiated claim and recomputes the claim total
func (s *expenseServiceImpl) Delete(ctx context.Context, expenseID int64, principal entity.Principal) error {
	expense, err := s.getExpense(ctx, expenseID)
	if err != nil {
		return err
	}

	var total decimal.Decimal
	err = s.mutateLedger(ctx, expense.ClaimID, principal, func(txCtx context.Context) error {
		return s.expenseRepo.Delete(txCtx, expenseID)
	}, &total)
	if err != nil {
		return err
	}

	s.logger.Info("Expense deleted", "id", expenseID, "claim_id", expense.ClaimID, "total", total.StringFixed(2))
	s.publisher.publish(ctx, event.NewEvent(event.TypeExpenseDeleted, entity.EntityTypeExpense, expenseID, expense.ClaimID, principal.Actor()).
		WithValues(expense.Snapshot(), nil).
		WithPayload("total_amount", total.StringFixed(2)))

	return nil
}

// Get returns one expense
func (s *expenseServiceImpl) Get(ctx context.Context, expenseID int64) (*entity.Expense, error) {
	return s.getExpense(ctx, expenseID)
}

// List returns the expenses of a claim in date order
func (s *expenseServiceImpl) List(ctx context.Context, claimID int64) ([]*entity.Expense, error) {
	if _, err := loadClaim(ctx, s.claimRepo, s.logger, claimID); err != nil {
		return nil, err
	}

	expenses, err := s.expenseRepo.ListByClaimID(ctx, claimID)
	if err != nil {
		s.logger.Error("Failed to list expenses", "error", err, "claim_id", claimID)
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// mutateLedger runs write, the total recomputation and the conditional
// total update as one transaction. The claim must be Initiated when the
// transaction starts and still Initiated when the total is written.
func (s *expenseServiceImpl) mutateLedger(ctx context.Context, claimID int64, principal entity.Principal, write func(ctx context.Context) error, total *decimal.Decimal) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		claim, err := loadClaim(txCtx, s.claimRepo, s.logger, claimID)
		if err != nil {
			return err
		}
		if !claim.Status.IsEditable() {
			return notEditable(claim)
		}

		if err := write(txCtx); err != nil {
			return fmt.Errorf("write expense: %w", err)
		}

		sum, err := s.expenseRepo.SumByClaimID(txCtx, claimID)
		if err != nil {
			return fmt.Errorf("sum expenses: %w", err)
		}

		ok, err := s.claimRepo.UpdateTotal(txCtx, claimID, entity.ClaimStatusInitiated, sum, principal.Actor(), s.now())
		if err != nil {
			return fmt.Errorf("update claim total: %w", err)
		}
		if !ok {
			return statusChanged(claimID)
		}

		*total = sum
		return nil
	})
	if err != nil && apperror.KindOf(err) == apperror.KindInternal {
		s.logger.Error("Failed to mutate expense ledger", "error", err, "claim_id", claimID)
	}
	return err
}

// validate checks date and amount before anything is read
func (s *expenseServiceImpl) validate(in ExpenseInput) error {
	if in.ExpenseDate.IsZero() {
		return apperror.Validation(apperror.CodeInvalidInput, "expense date is required")
	}
	if dateOnly(in.ExpenseDate).After(s.today()) {
		return apperror.Validation(apperror.CodeExpenseDateFuture, "expense date cannot be in the future")
	}
	if !in.Amount.IsPositive() {
		return apperror.Validation(apperror.CodeExpenseAmount, "amount must be greater than zero")
	}
	if in.Amount.GreaterThan(entity.MaxExpenseAmount) {
		return apperror.Validation(apperror.CodeExpenseAmount,
			fmt.Sprintf("amount cannot exceed %s", entity.MaxExpenseAmount.StringFixed(2)))
	}
	if in.Amount.Exponent() < -2 && !in.Amount.Truncate(2).Equal(in.Amount) {
		return apperror.Validation(apperror.CodeExpenseAmount, "amount cannot have more than 2 decimal places")
	}
	return nil
}

func (s *expenseServiceImpl) getExpense(ctx context.Context, id int64) (*entity.Expense, error) {
	expense, err := s.expenseRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get expense", "error", err, "id", id)
		return nil, fmt.Errorf("get expense: %w", err)
	}
	if expense == nil {
		return nil, apperror.NotFound(apperror.CodeExpenseNotFound, fmt.Sprintf("expense %d not found", id))
	}
	return expense, nil
}

func (s *expenseServiceImpl) requireExpenseType(ctx context.Context, id int64) error {
	expenseType, err := s.referenceRepo.GetExpenseType(ctx, id)
	if err != nil {
		return fmt.Errorf("get expense type: %w", err)
	}
	if expenseType == nil {
		return apperror.NotFound(apperror.CodeExpenseTypeNotFound, fmt.Sprintf("expense type %d not found", id))
	}
	return nil
}

// dateOnly drops the time of day, keeping the calendar date as written
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
