package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/domain/claimquery"
	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/garyjia/expense-claims/internal/infrastructure/persistence/sqlite"
)

const claimColumns = `c.id, c.reference_id, c.employee_id, c.event_type_id, c.currency_id,
	c.status, c.remarks, c.total_amount_cents, c.submitted_date, c.approved_date,
	c.rejected_date, c.rejection_reason, c.approver_id, c.created_by, c.updated_by,
	c.created_at, c.updated_at`

// ClaimRepository implements port.ClaimRepository
type ClaimRepository struct {
	base
	logger *zap.Logger
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *sql.DB, logger *zap.Logger) *ClaimRepository {
	return &ClaimRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create inserts a new claim and sets its ID
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	query := `
		INSERT INTO claims (
			reference_id, employee_id, event_type_id, currency_id, status, remarks,
			total_amount_cents, created_by, updated_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = now
	}
	if claim.UpdatedAt.IsZero() {
		claim.UpdatedAt = claim.CreatedAt
	}

	cents, err := toCents(claim.TotalAmount)
	if err != nil {
		return fmt.Errorf("failed to create claim: %w", err)
	}

	result, err := r.conn(ctx).ExecContext(ctx, query,
		claim.ReferenceID,
		claim.EmployeeID,
		claim.EventTypeID,
		claim.CurrencyID,
		string(claim.Status),
		claim.Remarks,
		cents,
		claim.CreatedBy,
		claim.UpdatedBy,
		utc(claim.CreatedAt),
		utc(claim.UpdatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create claim",
			zap.String("reference_id", claim.ReferenceID),
			zap.Error(err))
		if sqlite.IsUniqueViolation(err) {
			return fmt.Errorf("failed to create claim: reference id %s already taken: %w", claim.ReferenceID, err)
		}
		return fmt.Errorf("failed to create claim: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	claim.ID = id
	return nil
}

// GetByID retrieves a claim by ID
func (r *ClaimRepository) GetByID(ctx context.Context, id int64) (*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims c WHERE c.id = ?`

	claim, err := scanClaim(r.conn(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get claim by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	return claim, nil
}

// UpdateHeader rewrites event type, currency and remarks if the claim is still in expected status
func (r *ClaimRepository) UpdateHeader(ctx context.Context, id int64, expected entity.ClaimStatus, changes entity.ClaimChanges) (bool, error) {
	query := `
		UPDATE claims
		SET event_type_id = ?, currency_id = ?, remarks = ?, updated_by = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.conn(ctx).ExecContext(ctx, query,
		changes.EventTypeID,
		changes.CurrencyID,
		changes.Remarks,
		changes.UpdatedBy,
		utc(changes.UpdatedAt),
		id,
		string(expected),
	)
	if err != nil {
		r.logger.Error("Failed to update claim", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to update claim: %w", err)
	}

	return rowsAffected(result)
}

// Transition moves the claim from t.From to t.To in a single conditional write.
// It returns false when the claim was not in t.From.
func (r *ClaimRepository) Transition(ctx context.Context, id int64, t entity.ClaimTransition) (bool, error) {
	sets := []string{"status = ?", "updated_by = ?", "updated_at = ?"}
	args := []interface{}{string(t.To), t.Actor, utc(t.At)}

	switch t.To {
	case entity.ClaimStatusSubmitted:
		sets = append(sets, "submitted_date = ?")
		args = append(args, utc(t.At))
	case entity.ClaimStatusApproved:
		sets = append(sets, "approved_date = ?", "approver_id = ?")
		args = append(args, utc(t.At), nullInt64(t.ApproverID))
	case entity.ClaimStatusRejected:
		sets = append(sets, "rejected_date = ?", "rejection_reason = ?", "approver_id = ?")
		args = append(args, utc(t.At), t.RejectionReason, nullInt64(t.ApproverID))
	}
	if t.TotalAmount != nil {
		cents, err := toCents(*t.TotalAmount)
		if err != nil {
			return false, fmt.Errorf("failed to transition claim: %w", err)
		}
		sets = append(sets, "total_amount_cents = ?")
		args = append(args, cents)
	}

	query := `UPDATE claims SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND status = ?`
	args = append(args, id, string(t.From))

	result, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to transition claim",
			zap.Int64("id", id),
			zap.String("from", t.From.String()),
			zap.String("to", t.To.String()),
			zap.Error(err))
		return false, fmt.Errorf("failed to transition claim: %w", err)
	}

	return rowsAffected(result)
}

// UpdateTotal persists a recomputed total if the claim is still in expected status
func (r *ClaimRepository) UpdateTotal(ctx context.Context, id int64, expected entity.ClaimStatus, total decimal.Decimal, actor string, at time.Time) (bool, error) {
	query := `
		UPDATE claims
		SET total_amount_cents = ?, updated_by = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	cents, err := toCents(total)
	if err != nil {
		return false, fmt.Errorf("failed to update claim total: %w", err)
	}

	result, err := r.conn(ctx).ExecContext(ctx, query, cents, actor, utc(at), id, string(expected))
	if err != nil {
		r.logger.Error("Failed to update claim total", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to update claim total: %w", err)
	}

	return rowsAffected(result)
}

// Delete removes the claim if it is still in expected status
func (r *ClaimRepository) Delete(ctx context.Context, id int64, expected entity.ClaimStatus) (bool, error) {
	result, err := r.conn(ctx).ExecContext(ctx,
		`DELETE FROM claims WHERE id = ? AND status = ?`, id, string(expected))
	if err != nil {
		r.logger.Error("Failed to delete claim", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to delete claim: %w", err)
	}

	return rowsAffected(result)
}

var sortColumns = map[claimquery.SortField]string{
	claimquery.SortCreatedAt:     "c.created_at",
	claimquery.SortUpdatedAt:     "c.updated_at",
	claimquery.SortSubmittedDate: "c.submitted_date",
	claimquery.SortApprovedDate:  "c.approved_date",
	claimquery.SortTotalAmount:   "c.total_amount_cents",
	claimquery.SortReferenceID:   "c.reference_id",
	claimquery.SortStatus:        "c.status",
	claimquery.SortEmployeeName:  "employee_name",
}

const searchFrom = `
	FROM claims c
	JOIN employees e ON e.id = c.employee_id
	JOIN event_types et ON et.id = c.event_type_id
	JOIN currencies cu ON cu.id = c.currency_id
`

// Search returns one page of claims matching q plus the total match count.
// Both statements share the same WHERE clause and arguments.
func (r *ClaimRepository) Search(ctx context.Context, q claimquery.Query) ([]*entity.ClaimSummary, int64, error) {
	where, args := buildClaimWhere(q.Filter)

	var total int64
	countQuery := `SELECT COUNT(*) ` + searchFrom + where
	if err := r.conn(ctx).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count claims", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count claims: %w", err)
	}

	column, ok := sortColumns[q.Sort.Field]
	if !ok {
		column = sortColumns[claimquery.SortCreatedAt]
	}
	dir := "ASC"
	if q.Sort.Desc {
		dir = "DESC"
	}

	itemsQuery := `SELECT ` + claimColumns + `,
			e.first_name || CASE WHEN e.last_name = '' THEN '' ELSE ' ' || e.last_name END AS employee_name,
			et.name, cu.code
		` + searchFrom + where +
		fmt.Sprintf(" ORDER BY %s %s, c.id %s", column, dir, dir)

	pageArgs := append(append([]interface{}{}, args...), q.Page.Size, q.Page.Offset())
	if q.Page.Size > 0 {
		itemsQuery += " LIMIT ? OFFSET ?"
	} else {
		pageArgs = args
	}

	rows, err := r.conn(ctx).QueryContext(ctx, itemsQuery, pageArgs...)
	if err != nil {
		r.logger.Error("Failed to search claims", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to search claims: %w", err)
	}
	defer rows.Close()

	var items []*entity.ClaimSummary
	for rows.Next() {
		summary := &entity.ClaimSummary{}
		claim, err := scanClaim(rows, &summary.EmployeeName, &summary.EventTypeName, &summary.CurrencyCode)
		if err != nil {
			r.logger.Error("Failed to scan claim", zap.Error(err))
			return nil, 0, fmt.Errorf("failed to scan claim: %w", err)
		}
		summary.Claim = *claim
		items = append(items, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate claims: %w", err)
	}

	return items, total, nil
}

func buildClaimWhere(f claimquery.Filter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if f.EmployeeName != "" {
		pattern := likePattern(f.EmployeeName)
		conds = append(conds, `(LOWER(e.first_name) LIKE ? ESCAPE '\'
			OR LOWER(e.last_name) LIKE ? ESCAPE '\'
			OR LOWER(e.first_name || ' ' || e.last_name) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if f.ReferenceID != "" {
		conds = append(conds, `LOWER(c.reference_id) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(f.ReferenceID))
	}
	if f.EventTypeID > 0 {
		conds = append(conds, "c.event_type_id = ?")
		args = append(args, f.EventTypeID)
	}
	if f.Status != "" {
		conds = append(conds, "c.status = ?")
		args = append(args, string(f.Status))
	}
	if f.SubmittedFrom != nil {
		conds = append(conds, "c.submitted_date >= ?")
		args = append(args, utc(*f.SubmittedFrom))
	}
	if f.SubmittedTo != nil {
		// inclusive end date
		conds = append(conds, "c.submitted_date < ?")
		args = append(args, utc(f.SubmittedTo.AddDate(0, 0, 1)))
	}

	switch f.EmployeeScope {
	case claimquery.EmployeeScopeCurrent:
		conds = append(conds, "e.active = 1")
	case claimquery.EmployeeScopePast:
		conds = append(conds, "e.active = 0")
	}

	if statuses := f.ClaimScope.Statuses(); len(statuses) > 0 {
		marks := make([]string, len(statuses))
		for i, s := range statuses {
			marks[i] = "?"
			args = append(args, string(s))
		}
		conds = append(conds, "c.status IN ("+strings.Join(marks, ", ")+")")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClaim(row rowScanner, extra ...interface{}) (*entity.Claim, error) {
	var c entity.Claim
	var status string
	var cents int64
	var submitted, approved, rejected sql.NullTime
	var approver sql.NullInt64

	dest := []interface{}{
		&c.ID,
		&c.ReferenceID,
		&c.EmployeeID,
		&c.EventTypeID,
		&c.CurrencyID,
		&status,
		&c.Remarks,
		&cents,
		&submitted,
		&approved,
		&rejected,
		&c.RejectionReason,
		&approver,
		&c.CreatedBy,
		&c.UpdatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	c.Status = entity.ClaimStatus(status)
	c.TotalAmount = fromCents(cents)
	c.SubmittedDate = timePtr(submitted)
	c.ApprovedDate = timePtr(approved)
	c.RejectedDate = timePtr(rejected)
	c.ApproverID = int64Ptr(approver)

	return &c, nil
}

// Verify interface compliance
var _ port.ClaimRepository = (*ClaimRepository)(nil)
