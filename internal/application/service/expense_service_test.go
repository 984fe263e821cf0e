package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-claims/internal/domain/apperror"
	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/garyjia/expense-claims/internal/domain/event"
)

type expenseFixture struct {
	claims   *mockClaimRepo
	expenses *mockExpenseRepo
	tx       *mockTxManager
	events   *recordingDispatcher
	svc      ExpenseService
	total    decimal.Decimal
	writes   int
}

func newExpenseFixture(stored *entity.Claim) *expenseFixture {
	f := &expenseFixture{
		claims:   &mockClaimRepo{},
		expenses: &mockExpenseRepo{},
		tx:       &mockTxManager{},
		events:   &recordingDispatcher{},
	}
	f.claims.getByIDFunc = func(ctx context.Context, id int64) (*entity.Claim, error) {
		if stored == nil || stored.ID != id {
			return nil, nil
		}
		cp := *stored
		return &cp, nil
	}
	f.claims.updateTotalFunc = func(ctx context.Context, id int64, expected entity.ClaimStatus, total decimal.Decimal) (bool, error) {
		f.total = total
		return true, nil
	}
	count := func() { f.writes++ }
	f.expenses.createFunc = func(ctx context.Context, e *entity.Expense) error { count(); e.ID = 11; return nil }
	f.expenses.updateFunc = func(ctx context.Context, e *entity.Expense) error { count(); return nil }
	f.expenses.deleteFunc = func(ctx context.Context, id int64) error { count(); return nil }

	f.svc = NewExpenseService(f.claims, f.expenses, newMockReferenceRepo(), f.tx, f.events, &mockLogger{},
		WithClock(fixedClock))
	return f
}

func expenseInput(amount string) ExpenseInput {
	return ExpenseInput{
		ExpenseTypeID: 3,
		ExpenseDate:   fixedDate,
		Amount:        decimal.RequireFromString(amount),
		Note:          "dinner",
	}
}

func TestExpenseService_Create_RecomputesTotal(t *testing.T) {
	f := newExpenseFixture(initiatedClaim(5))
	f.expenses.sumFunc = func(context.Context, int64) (decimal.Decimal, error) {
		return decimal.RequireFromString("150.75"), nil
	}

	expense, err := f.svc.Create(context.Background(), 5, expenseInput("50.25"), employee)

	require.NoError(t, err)
	assert.Equal(t, int64(11), expense.ID)
	assert.Equal(t, int64(5), expense.ClaimID)
	assert.Equal(t, "150.75", f.total.StringFixed(2))
	assert.Equal(t, 1, f.tx.calls, "write and total share one transaction")

	require.Len(t, f.events.events, 1)
	assert.Equal(t, event.TypeExpenseAdded, f.events.events[0].Type)
	assert.Equal(t, "150.75", f.events.events[0].GetPayloadString("total_amount"))
}

func TestExpenseService_Validation(t *testing.T) {
	tomorrow := fixedNow.AddDate(0, 0, 1)
	lateToday := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    ExpenseInput
		wantCode string
	}{
		{"future date", ExpenseInput{ExpenseTypeID: 3, ExpenseDate: tomorrow, Amount: decimal.NewFromInt(1)}, apperror.CodeExpenseDateFuture},
		{"zero amount", ExpenseInput{ExpenseTypeID: 3, ExpenseDate: fixedDate, Amount: decimal.Zero}, apperror.CodeExpenseAmount},
		{"negative amount", ExpenseInput{ExpenseTypeID: 3, ExpenseDate: fixedDate, Amount: decimal.NewFromInt(-5)}, apperror.CodeExpenseAmount},
		{"three decimals", ExpenseInput{ExpenseTypeID: 3, ExpenseDate: fixedDate, Amount: decimal.RequireFromString("10.005")}, apperror.CodeExpenseAmount},
		{"above maximum", ExpenseInput{ExpenseTypeID: 3, ExpenseDate: fixedDate, Amount: decimal.RequireFromString("1000000000.01")}, apperror.CodeExpenseAmount},
		{"past int64 cents", ExpenseInput{ExpenseTypeID: 3, ExpenseDate: fixedDate, Amount: decimal.RequireFromString("184467440737095516.17")}, apperror.CodeExpenseAmount},
		{"missing date", ExpenseInput{ExpenseTypeID: 3, Amount: decimal.NewFromInt(1)}, apperror.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newExpenseFixture(initiatedClaim(5))

			_, err := f.svc.Create(context.Background(), 5, tt.input, employee)

			appErr, ok := apperror.As(err)
			require.True(t, ok)
			assert.Equal(t, apperror.KindValidation, appErr.Kind)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Zero(t, f.writes)
		})
	}

	t.Run("today at any time of day is accepted", func(t *testing.T) {
		f := newExpenseFixture(initiatedClaim(5))
		in := expenseInput("1")
		in.ExpenseDate = lateToday

		_, err := f.svc.Create(context.Background(), 5, in, employee)
		assert.NoError(t, err)
	})

	t.Run("maximum amount is accepted", func(t *testing.T) {
		f := newExpenseFixture(initiatedClaim(5))

		_, err := f.svc.Create(context.Background(), 5, expenseInput("1000000000.00"), employee)
		assert.NoError(t, err)
	})

	t.Run("trailing zeros are not extra precision", func(t *testing.T) {
		f := newExpenseFixture(initiatedClaim(5))

		_, err := f.svc.Create(context.Background(), 5, expenseInput("10.500"), employee)
		assert.NoError(t, err)
	})
}

func TestExpenseService_TodayUsesBusinessLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 20:00 UTC on the 14th is already the 15th in Tokyo
	now := func() time.Time { return time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC) }
	svc := NewExpenseService(
		&mockClaimRepo{getByIDFunc: func(context.Context, int64) (*entity.Claim, error) { return initiatedClaim(5), nil }},
		&mockExpenseRepo{}, newMockReferenceRepo(), &mockTxManager{}, nil, &mockLogger{},
		WithClock(now), WithLocation(tokyo))

	in := expenseInput("1")
	in.ExpenseDate = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	_, err := svc.Create(context.Background(), 5, in, employee)
	assert.NoError(t, err)
}

func TestExpenseService_UnknownExpenseType(t *testing.T) {
	f := newExpenseFixture(initiatedClaim(5))
	in := expenseInput("1")
	in.ExpenseTypeID = 404

	_, err := f.svc.Create(context.Background(), 5, in, employee)

	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeExpenseTypeNotFound, appErr.Code)
}

func TestExpenseService_RequiresInitiatedClaim(t *testing.T) {
	stored := &entity.Expense{ID: 11, ClaimID: 5, ExpenseTypeID: 3, ExpenseDate: fixedDate, Amount: decimal.NewFromInt(10)}

	for _, status := range []entity.ClaimStatus{entity.ClaimStatusSubmitted, entity.ClaimStatusApproved, entity.ClaimStatusRejected} {
		t.Run(status.String(), func(t *testing.T) {
			f := newExpenseFixture(claimWithStatus(5, status))
			f.expenses.getByIDFunc = func(context.Context, int64) (*entity.Expense, error) {
				cp := *stored
				return &cp, nil
			}

			_, err := f.svc.Create(context.Background(), 5, expenseInput("1"), employee)
			assert.True(t, errors.Is(err, apperror.ErrInvalidState))

			_, err = f.svc.Update(context.Background(), 11, expenseInput("2"), employee)
			assert.True(t, errors.Is(err, apperror.ErrInvalidState))

			err = f.svc.Delete(context.Background(), 11, employee)
			assert.True(t, errors.Is(err, apperror.ErrInvalidState))

			assert.Zero(t, f.writes)
			assert.Empty(t, f.events.types())
		})
	}
}

func TestExpenseService_ConcurrentSubmitRollsBack(t *testing.T) {
	f := newExpenseFixture(initiatedClaim(5))
	f.claims.updateTotalFunc = func(context.Context, int64, entity.ClaimStatus, decimal.Decimal) (bool, error) {
		return false, nil
	}
	var txErr error
	f.tx.withTransactionFunc = func(ctx context.Context, fn func(ctx context.Context) error) error {
		txErr = fn(ctx)
		return txErr
	}

	_, err := f.svc.Create(context.Background(), 5, expenseInput("1"), employee)

	assert.True(t, errors.Is(err, apperror.ErrInvalidState))
	assert.Error(t, txErr, "the transaction sees the failure and rolls back")
	assert.Empty(t, f.events.types())
}

func TestExpenseService_Update(t *testing.T) {
	f := newExpenseFixture(initiatedClaim(5))
	f.expenses.getByIDFunc = func(context.Context, int64) (*entity.Expense, error) {
		return &entity.Expense{ID: 11, ClaimID: 5, ExpenseTypeID: 3, ExpenseDate: fixedDate, Amount: decimal.NewFromInt(10)}, nil
	}
	f.expenses.sumFunc = func(context.Context, int64) (decimal.Decimal, error) { return decimal.RequireFromString("99.99"), nil }

	expense, err := f.svc.Update(context.Background(), 11, expenseInput("99.99"), employee)

	require.NoError(t, err)
	assert.Equal(t, "99.99", expense.Amount.StringFixed(2))
	assert.Equal(t, "99.99", f.total.StringFixed(2))
	require.Len(t, f.events.events, 1)
	evt := f.events.events[0]
	assert.Equal(t, event.TypeExpenseUpdated, evt.Type)
	assert.Equal(t, "10.00", evt.OldValues["amount"])
	assert.Equal(t, "99.99", evt.NewValues["amount"])
}

func TestExpenseService_Delete(t *testing.T) {
	f := newExpenseFixture(initiatedClaim(5))
	f.expenses.getByIDFunc = func(context.Context, int64) (*entity.Expense, error) {
		return &entity.Expense{ID: 11, ClaimID: 5, Amount: decimal.NewFromInt(10)}, nil
	}

	require.NoError(t, f.svc.Delete(context.Background(), 11, employee))
	assert.True(t, f.total.IsZero())
	assert.Equal(t, []event.Type{event.TypeExpenseDeleted}, f.events.types())

	f.expenses.getByIDFunc = nil
	err := f.svc.Delete(context.Background(), 12, employee)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestExpenseService_List(t *testing.T) {
	f := newExpenseFixture(initiatedClaim(5))

	expenses, err := f.svc.List(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, expenses)

	_, err = f.svc.List(context.Background(), 6)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}
