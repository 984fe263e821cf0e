package event

// Type identifies the type of domain event
type Type string

const (
	TypeClaimCreated      Type = "claim.created"
	TypeClaimUpdated      Type = "claim.updated"
	TypeClaimDeleted      Type = "claim.deleted"
	TypeClaimSubmitted    Type = "claim.submitted"
	TypeClaimApproved     Type = "claim.approved"
	TypeClaimRejected     Type = "claim.rejected"
	TypeExpenseAdded      Type = "expense.added"
	TypeExpenseUpdated    Type = "expense.updated"
	TypeExpenseDeleted    Type = "expense.deleted"
	TypeAttachmentAdded   Type = "attachment.added"
	TypeAttachmentDeleted Type = "attachment.deleted"
)

// AllTypes lists every event type in emission order of a typical claim
var AllTypes = []Type{
	TypeClaimCreated,
	TypeClaimUpdated,
	TypeExpenseAdded,
	TypeExpenseUpdated,
	TypeExpenseDeleted,
	TypeAttachmentAdded,
	TypeAttachmentDeleted,
	TypeClaimSubmitted,
	TypeClaimApproved,
	TypeClaimRejected,
	TypeClaimDeleted,
}

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}
