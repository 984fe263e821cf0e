package claimquery

import "strings"

// SortField is an allow-listed sort key
type SortField string

const (
	SortCreatedAt     SortField = "created_at"
	SortUpdatedAt     SortField = "updated_at"
	SortSubmittedDate SortField = "submitted_date"
	SortApprovedDate  SortField = "approved_date"
	SortTotalAmount   SortField = "total_amount"
	SortReferenceID   SortField = "reference_id"
	SortStatus        SortField = "status"
	SortEmployeeName  SortField = "employee_name"
)

var sortAliases = map[string]SortField{
	"created_at":     SortCreatedAt,
	"createdat":      SortCreatedAt,
	"updated_at":     SortUpdatedAt,
	"updatedat":      SortUpdatedAt,
	"submitted_date": SortSubmittedDate,
	"submitteddate":  SortSubmittedDate,
	"approved_date":  SortApprovedDate,
	"approveddate":   SortApprovedDate,
	"total_amount":   SortTotalAmount,
	"totalamount":    SortTotalAmount,
	"reference_id":   SortReferenceID,
	"referenceid":    SortReferenceID,
	"status":         SortStatus,
	"employee_name":  SortEmployeeName,
	"employeename":   SortEmployeeName,
}

// Sort is the resolved ordering of a search
type Sort struct {
	Field SortField
	Desc  bool
}

// ParseSort resolves sortBy against the allow-list, falling back to creation time.
// Direction defaults to descending.
func ParseSort(sortBy, dir string) Sort {
	field, ok := sortAliases[strings.ToLower(strings.TrimSpace(sortBy))]
	if !ok {
		field = SortCreatedAt
	}
	return Sort{
		Field: field,
		Desc:  !strings.EqualFold(strings.TrimSpace(dir), "asc"),
	}
}
