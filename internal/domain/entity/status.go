package entity

// ClaimStatus is the string-valued status stored on a claim
type ClaimStatus string

const (
	ClaimStatusInitiated         ClaimStatus = "Initiated"
	ClaimStatusSubmitted         ClaimStatus = "Submitted"
	ClaimStatusPendingApproval   ClaimStatus = "Pending Approval"
	ClaimStatusApproved          ClaimStatus = "Approved"
	ClaimStatusRejected          ClaimStatus = "Rejected"
	ClaimStatusPaid              ClaimStatus = "Paid"
	ClaimStatusCancelled         ClaimStatus = "Cancelled"
	ClaimStatusOnHold            ClaimStatus = "On Hold"
	ClaimStatusPartiallyApproved ClaimStatus = "Partially Approved"
)

// AllClaimStatuses lists the full status vocabulary in display order
var AllClaimStatuses = []ClaimStatus{
	ClaimStatusInitiated,
	ClaimStatusSubmitted,
	ClaimStatusPendingApproval,
	ClaimStatusApproved,
	ClaimStatusRejected,
	ClaimStatusPaid,
	ClaimStatusCancelled,
	ClaimStatusOnHold,
	ClaimStatusPartiallyApproved,
}

// ParseClaimStatus returns the status matching s and whether it is known
func ParseClaimStatus(s string) (ClaimStatus, bool) {
	for _, st := range AllClaimStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// String returns the string representation of the status
func (s ClaimStatus) String() string {
	return string(s)
}

// IsValid returns true if the status belongs to the vocabulary
func (s ClaimStatus) IsValid() bool {
	_, ok := ParseClaimStatus(string(s))
	return ok
}

// IsEditable reports whether expenses and attachments may change in this status
func (s ClaimStatus) IsEditable() bool {
	return s == ClaimStatusInitiated
}
