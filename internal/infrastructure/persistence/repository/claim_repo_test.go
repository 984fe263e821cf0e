package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/expense-claims/internal/domain/claimquery"
	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/garyjia/expense-claims/internal/infrastructure/persistence/sqlite"
)

func newClaim(ref string, employeeID int64) *entity.Claim {
	return &entity.Claim{
		ReferenceID: ref,
		EmployeeID:  employeeID,
		EventTypeID: 1,
		CurrencyID:  1,
		Status:      entity.ClaimStatusInitiated,
		TotalAmount: decimal.Zero,
		CreatedBy:   "alice",
		UpdatedBy:   "alice",
	}
}

func TestClaimRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClaimRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	claim := newClaim("CLM-20240301-0001", 1)
	require.NoError(t, repo.Create(ctx, claim))
	assert.NotZero(t, claim.ID)

	got, err := repo.GetByID(ctx, claim.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "CLM-20240301-0001", got.ReferenceID)
	assert.Equal(t, entity.ClaimStatusInitiated, got.Status)
	assert.True(t, got.TotalAmount.IsZero())
	assert.Nil(t, got.SubmittedDate)
	assert.Nil(t, got.ApproverID)

	missing, err := repo.GetByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestClaimRepository_DuplicateReferenceRejected(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClaimRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newClaim("CLM-20240301-0001", 1)))
	err := repo.Create(ctx, newClaim("CLM-20240301-0001", 1))
	require.Error(t, err)
	assert.True(t, sqlite.IsUniqueViolation(err))
	assert.Contains(t, err.Error(), "already taken")
}

func TestClaimRepository_Transition(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClaimRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	claim := newClaim("CLM-20240301-0001", 1)
	require.NoError(t, repo.Create(ctx, claim))

	total := decimal.RequireFromString("150.75")
	now := time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)

	ok, err := repo.Transition(ctx, claim.ID, entity.ClaimTransition{
		From:        entity.ClaimStatusInitiated,
		To:          entity.ClaimStatusSubmitted,
		At:          now,
		Actor:       "alice",
		TotalAmount: &total,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	// same transition again loses the compare-and-swap
	ok, err = repo.Transition(ctx, claim.ID, entity.ClaimTransition{
		From: entity.ClaimStatusInitiated,
		To:   entity.ClaimStatusSubmitted,
		At:   now,
	})
	require.NoError(t, err)
	assert.False(t, ok)

	approver := int64(42)
	ok, err = repo.Transition(ctx, claim.ID, entity.ClaimTransition{
		From:            entity.ClaimStatusSubmitted,
		To:              entity.ClaimStatusRejected,
		At:              now.Add(time.Hour),
		Actor:           "boss",
		RejectionReason: "missing receipts",
		ApproverID:      &approver,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByID(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ClaimStatusRejected, got.Status)
	assert.True(t, total.Equal(got.TotalAmount))
	require.NotNil(t, got.SubmittedDate)
	assert.True(t, now.Equal(*got.SubmittedDate))
	require.NotNil(t, got.RejectedDate)
	assert.Nil(t, got.ApprovedDate)
	assert.Equal(t, "missing receipts", got.RejectionReason)
	require.NotNil(t, got.ApproverID)
	assert.Equal(t, int64(42), *got.ApproverID)
	assert.Equal(t, "boss", got.UpdatedBy)
	assert.Equal(t, "CLM-20240301-0001", got.ReferenceID)
}

func TestClaimRepository_ConditionalWrites(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClaimRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	claim := newClaim("CLM-20240301-0001", 1)
	require.NoError(t, repo.Create(ctx, claim))

	ok, err := repo.UpdateTotal(ctx, claim.ID, entity.ClaimStatusInitiated, decimal.RequireFromString("10.50"), "alice", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateTotal(ctx, claim.ID, entity.ClaimStatusSubmitted, decimal.RequireFromString("99"), "alice", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.UpdateHeader(ctx, claim.ID, entity.ClaimStatusInitiated, entity.ClaimChanges{
		EventTypeID: 2, CurrencyID: 2, Remarks: "updated", UpdatedBy: "alice", UpdatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByID(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.5", got.TotalAmount.String())
	assert.Equal(t, int64(2), got.EventTypeID)
	assert.Equal(t, "updated", got.Remarks)

	ok, err = repo.Delete(ctx, claim.ID, entity.ClaimStatusSubmitted)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Delete(ctx, claim.ID, entity.ClaimStatusInitiated)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClaimRepository_Search(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClaimRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 1; i <= 5; i++ {
		c := newClaim(fmt.Sprintf("CLM-20240301-%04d", i), 1)
		c.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, c))
	}
	bobs := newClaim("CLM-20240302-0001", 2)
	bobs.CreatedAt = base.Add(time.Hour)
	bobs.EventTypeID = 2
	require.NoError(t, repo.Create(ctx, bobs))

	submittedAt := time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC)
	ok, err := repo.Transition(ctx, bobs.ID, entity.ClaimTransition{
		From: entity.ClaimStatusInitiated, To: entity.ClaimStatusSubmitted, At: submittedAt, Actor: "bob",
	})
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repo.Transition(ctx, bobs.ID, entity.ClaimTransition{
		From: entity.ClaimStatusSubmitted, To: entity.ClaimStatusApproved, At: submittedAt, Actor: "boss",
	})
	require.NoError(t, err)
	require.True(t, ok)

	search := func(p claimquery.Params) ([]*entity.ClaimSummary, int64) {
		t.Helper()
		items, total, err := repo.Search(ctx, claimquery.Normalize(p, claimquery.DefaultPageDefaults))
		require.NoError(t, err)
		return items, total
	}

	t.Run("no filter returns everything newest first", func(t *testing.T) {
		items, total := search(claimquery.Params{})
		assert.Equal(t, int64(6), total)
		require.Len(t, items, 6)
		assert.Equal(t, "CLM-20240302-0001", items[0].ReferenceID)
		assert.Equal(t, "Bob Stone", items[0].EmployeeName)
		assert.Equal(t, "Client Visit", items[0].EventTypeName)
		assert.Equal(t, "USD", items[0].CurrencyCode)
	})

	t.Run("pagination keeps total", func(t *testing.T) {
		items, total := search(claimquery.Params{PageSize: 2, Page: 3, SortBy: "reference_id", SortDir: "asc"})
		assert.Equal(t, int64(6), total)
		require.Len(t, items, 2)
		assert.Equal(t, "CLM-20240301-0005", items[0].ReferenceID)
		assert.Equal(t, "CLM-20240302-0001", items[1].ReferenceID)
	})

	t.Run("employee name matches full name case-insensitively", func(t *testing.T) {
		items, total := search(claimquery.Params{EmployeeName: "ice wo"})
		assert.Equal(t, int64(5), total)
		assert.Len(t, items, 5)
	})

	t.Run("like wildcards are literal", func(t *testing.T) {
		_, total := search(claimquery.Params{ReferenceID: "%"})
		assert.Zero(t, total)
	})

	t.Run("reference substring", func(t *testing.T) {
		_, total := search(claimquery.Params{ReferenceID: "0302"})
		assert.Equal(t, int64(1), total)
	})

	t.Run("legacy include past employees", func(t *testing.T) {
		items, total := search(claimquery.Params{Include: "past_employees_only"})
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, int64(2), items[0].EmployeeID)
	})

	t.Run("closed claims scope", func(t *testing.T) {
		_, total := search(claimquery.Params{ClaimScope: "closed"})
		assert.Equal(t, int64(1), total)
	})

	t.Run("facets compose with AND", func(t *testing.T) {
		_, total := search(claimquery.Params{EmployeeScope: "current", ClaimScope: "pending_payment"})
		assert.Zero(t, total)
	})

	t.Run("status and event type", func(t *testing.T) {
		_, total := search(claimquery.Params{Status: "Initiated", EventTypeID: 1})
		assert.Equal(t, int64(5), total)
	})

	t.Run("submitted range is inclusive by date", func(t *testing.T) {
		_, total := search(claimquery.Params{SubmittedFrom: "2024-03-05", SubmittedTo: "2024-03-05"})
		assert.Equal(t, int64(1), total)

		_, total = search(claimquery.Params{SubmittedFrom: "2024-03-06"})
		assert.Zero(t, total)
	})

	t.Run("unknown sort falls back to creation time", func(t *testing.T) {
		items, _ := search(claimquery.Params{SortBy: "password", SortDir: "asc"})
		require.NotEmpty(t, items)
		assert.Equal(t, "CLM-20240301-0001", items[0].ReferenceID)
	})
}

func TestClaimRepository_SearchSubmittedDateInBusinessZone(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClaimRepository(db.DB, zap.NewNop())
	ctx := context.Background()
	singapore := time.FixedZone("SGT", 8*60*60)

	claim := newClaim("CLM-20261015-0001", 1)
	require.NoError(t, repo.Create(ctx, claim))
	// 07:00 on the 15th in Singapore is still the 14th in UTC
	ok, err := repo.Transition(ctx, claim.ID, entity.ClaimTransition{
		From:  entity.ClaimStatusInitiated,
		To:    entity.ClaimStatusSubmitted,
		At:    time.Date(2026, 10, 15, 7, 0, 0, 0, singapore),
		Actor: "alice",
	})
	require.NoError(t, err)
	require.True(t, ok)

	count := func(day string) int64 {
		t.Helper()
		q := claimquery.NormalizeIn(claimquery.Params{SubmittedFrom: day, SubmittedTo: day}, claimquery.DefaultPageDefaults, singapore)
		items, total, err := repo.Search(ctx, q)
		require.NoError(t, err)
		assert.Len(t, items, int(total))
		return total
	}

	assert.Equal(t, int64(1), count("2026-10-15"))
	assert.Equal(t, int64(0), count("2026-10-14"))
	assert.Equal(t, int64(0), count("2026-10-16"))
}

func TestClaimRepository_TransitionSQL(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	repo := NewClaimRepository(sqlDB, zap.NewNop())
	at := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	approver := int64(7)

	mock.ExpectExec(`UPDATE claims SET status = \?, updated_by = \?, updated_at = \?, approved_date = \?, approver_id = \? WHERE id = \? AND status = \?`).
		WithArgs("Approved", "boss", at, at, int64(7), int64(3), "Submitted").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Transition(context.Background(), 3, entity.ClaimTransition{
		From:       entity.ClaimStatusSubmitted,
		To:         entity.ClaimStatusApproved,
		At:         at,
		Actor:      "boss",
		ApproverID: &approver,
	})
	require.NoError(t, err)
	assert.False(t, ok, "zero affected rows must report a lost guard")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRepository_SearchSharesPredicate(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	repo := NewClaimRepository(sqlDB, zap.NewNop())
	q := claimquery.Normalize(claimquery.Params{Status: "Submitted", Include: "current_employees_only"}, claimquery.DefaultPageDefaults)

	mock.ExpectQuery(`SELECT COUNT\(\*\).*WHERE c.status = \? AND e.active = 1`).
		WithArgs("Submitted").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT .* WHERE c.status = \? AND e.active = 1 ORDER BY c.created_at DESC, c.id DESC LIMIT \? OFFSET \?`).
		WithArgs("Submitted", 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	items, total, err := repo.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRepository_SearchScanErrorFails(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	repo := NewClaimRepository(sqlDB, zap.NewNop())
	q := claimquery.Normalize(claimquery.Params{}, claimquery.DefaultPageDefaults)

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT .* LIMIT \? OFFSET \?`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))

	items, total, err := repo.Search(context.Background(), q)

	require.Error(t, err, "a row that cannot be scanned fails the whole page")
	assert.Contains(t, err.Error(), "failed to scan claim")
	assert.Nil(t, items)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
