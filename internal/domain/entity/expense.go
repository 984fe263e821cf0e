package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the date-only format used for expense dates
const DateLayout = "2006-01-02"

// MaxExpenseAmount is the largest amount a single expense may carry
var MaxExpenseAmount = decimal.NewFromInt(1_000_000_000)

// Expense is a single dated cost item owned by a claim
type Expense struct {
	ID            int64           `json:"id"`
	ClaimID       int64           `json:"claim_id"`
	ExpenseTypeID int64           `json:"expense_type_id"`
	ExpenseDate   time.Time       `json:"expense_date"`
	Amount        decimal.Decimal `json:"amount"`
	Note          string          `json:"note,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Snapshot returns the auditable view of the expense
func (e *Expense) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"id":              e.ID,
		"claim_id":        e.ClaimID,
		"expense_type_id": e.ExpenseTypeID,
		"expense_date":    e.ExpenseDate.Format(DateLayout),
		"amount":          e.Amount.StringFixed(2),
		"note":            e.Note,
	}
}
