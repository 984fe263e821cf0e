package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Claim is an expense reimbursement request
type Claim struct {
	ID              int64           `json:"id"`
	ReferenceID     string          `json:"reference_id"`
	EmployeeID      int64           `json:"employee_id"`
	EventTypeID     int64           `json:"event_type_id"`
	CurrencyID      int64           `json:"currency_id"`
	Status          ClaimStatus     `json:"status"`
	Remarks         string          `json:"remarks,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	SubmittedDate   *time.Time      `json:"submitted_date,omitempty"`
	ApprovedDate    *time.Time      `json:"approved_date,omitempty"`
	RejectedDate    *time.Time      `json:"rejected_date,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	ApproverID      *int64          `json:"approver_id,omitempty"`
	CreatedBy       string          `json:"created_by"`
	UpdatedBy       string          `json:"updated_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ClaimDetail is a claim together with the rows it owns
type ClaimDetail struct {
	Claim       *Claim        `json:"claim"`
	Expenses    []*Expense    `json:"expenses"`
	Attachments []*Attachment `json:"attachments"`
}

// ClaimSummary is a claim row joined with display names for search results
type ClaimSummary struct {
	Claim
	EmployeeName  string `json:"employee_name"`
	EventTypeName string `json:"event_type_name"`
	CurrencyCode  string `json:"currency_code"`
}

// ClaimTransition describes a compare-and-swap status change
type ClaimTransition struct {
	From            ClaimStatus
	To              ClaimStatus
	At              time.Time
	Actor           string
	TotalAmount     *decimal.Decimal
	RejectionReason string
	ApproverID      *int64
}

// ClaimChanges holds the mutable header fields of an Initiated claim
type ClaimChanges struct {
	EventTypeID int64
	CurrencyID  int64
	Remarks     string
	UpdatedBy   string
	UpdatedAt   time.Time
}

// Snapshot returns the auditable view of the claim
func (c *Claim) Snapshot() map[string]interface{} {
	snap := map[string]interface{}{
		"reference_id":  c.ReferenceID,
		"employee_id":   c.EmployeeID,
		"event_type_id": c.EventTypeID,
		"currency_id":   c.CurrencyID,
		"status":        c.Status.String(),
		"remarks":       c.Remarks,
		"total_amount":  c.TotalAmount.StringFixed(2),
	}
	if c.RejectionReason != "" {
		snap["rejection_reason"] = c.RejectionReason
	}
	if c.ApproverID != nil {
		snap["approver_id"] = *c.ApproverID
	}
	return snap
}
