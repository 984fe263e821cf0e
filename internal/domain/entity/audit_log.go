package entity

import "time"

// AuditAction names a state-changing action recorded in the audit trail
type AuditAction string

const (
	AuditActionCreate           AuditAction = "CREATE"
	AuditActionUpdate           AuditAction = "UPDATE"
	AuditActionDelete           AuditAction = "DELETE"
	AuditActionSubmit           AuditAction = "SUBMIT"
	AuditActionApprove          AuditAction = "APPROVE"
	AuditActionReject           AuditAction = "REJECT"
	AuditActionAddExpense       AuditAction = "ADD_EXPENSE"
	AuditActionDeleteExpense    AuditAction = "DELETE_EXPENSE"
	AuditActionAddAttachment    AuditAction = "ADD_ATTACHMENT"
	AuditActionDeleteAttachment AuditAction = "DELETE_ATTACHMENT"
)

// Audited entity types
const (
	EntityTypeClaim      = "Claim"
	EntityTypeExpense    = "Expense"
	EntityTypeAttachment = "Attachment"
)

// AuditLog is an append-only record of a state-changing action
type AuditLog struct {
	ID         int64       `json:"id"`
	EntityType string      `json:"entity_type"`
	EntityID   int64       `json:"entity_id"`
	Action     AuditAction `json:"action"`
	ActingUser string      `json:"acting_user"`
	OldValues  string      `json:"old_values,omitempty"`
	NewValues  string      `json:"new_values,omitempty"`
	IPAddress  string      `json:"ip_address,omitempty"`
	UserAgent  string      `json:"user_agent,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}
