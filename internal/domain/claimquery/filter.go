// Package claimquery models claim search: filters, the legacy include
// translation table, sort allow-list and pagination.
package claimquery

import (
	"strings"
	"time"

	"github.com/garyjia/expense-claims/internal/domain/entity"
)

// EmployeeScope restricts results by employee record status
type EmployeeScope string

const (
	EmployeeScopeAll     EmployeeScope = "all"
	EmployeeScopeCurrent EmployeeScope = "current"
	EmployeeScopePast    EmployeeScope = "past"
)

// ClaimScope restricts results to a group of claim statuses
type ClaimScope string

const (
	ClaimScopeAll            ClaimScope = "all"
	ClaimScopeActive         ClaimScope = "active"
	ClaimScopeClosed         ClaimScope = "closed"
	ClaimScopePendingPayment ClaimScope = "pending_payment"
)

var claimScopeStatuses = map[ClaimScope][]entity.ClaimStatus{
	ClaimScopeActive: {
		entity.ClaimStatusInitiated,
		entity.ClaimStatusSubmitted,
		entity.ClaimStatusPendingApproval,
		entity.ClaimStatusOnHold,
	},
	ClaimScopeClosed: {
		entity.ClaimStatusApproved,
		entity.ClaimStatusRejected,
		entity.ClaimStatusPaid,
		entity.ClaimStatusCancelled,
	},
	ClaimScopePendingPayment: {
		entity.ClaimStatusApproved,
		entity.ClaimStatusPartiallyApproved,
	},
}

// Statuses returns the statuses admitted by the scope; nil means no restriction
func (s ClaimScope) Statuses() []entity.ClaimStatus {
	return claimScopeStatuses[s]
}

// ParseEmployeeScope returns the scope for s, or "" if s is not recognised
func ParseEmployeeScope(s string) EmployeeScope {
	switch scope := EmployeeScope(strings.ToLower(strings.TrimSpace(s))); scope {
	case EmployeeScopeAll, EmployeeScopeCurrent, EmployeeScopePast:
		return scope
	}
	return ""
}

// ParseClaimScope returns the scope for s, or "" if s is not recognised
func ParseClaimScope(s string) ClaimScope {
	switch scope := ClaimScope(strings.ToLower(strings.TrimSpace(s))); scope {
	case ClaimScopeAll, ClaimScopeActive, ClaimScopeClosed, ClaimScopePendingPayment:
		return scope
	}
	return ""
}

// legacyInclude maps each old combined include value onto the two facets.
// An empty field leaves that facet untouched.
var legacyInclude = map[string]struct {
	employees EmployeeScope
	claims    ClaimScope
}{
	"current_employees_only": {employees: EmployeeScopeCurrent},
	"past_employees_only":    {employees: EmployeeScopePast},
	"all_employees":          {employees: EmployeeScopeAll},
	"active_claims_only":     {claims: ClaimScopeActive},
	"closed_claims_only":     {claims: ClaimScopeClosed},
	"pending_payment":        {claims: ClaimScopePendingPayment},
}

// TranslateInclude splits a legacy include value into the two independent facets.
// Unknown values translate to no restriction.
func TranslateInclude(include string) (EmployeeScope, ClaimScope) {
	t, ok := legacyInclude[strings.ToLower(strings.TrimSpace(include))]
	if !ok {
		return "", ""
	}
	return t.employees, t.claims
}

// Filter is the full set of combinable claim search criteria
type Filter struct {
	EmployeeName  string
	ReferenceID   string
	EventTypeID   int64
	Status        entity.ClaimStatus
	SubmittedFrom *time.Time
	SubmittedTo   *time.Time
	EmployeeScope EmployeeScope
	ClaimScope    ClaimScope
}

// Params is the raw, string-typed search request before normalization
type Params struct {
	EmployeeName  string
	ReferenceID   string
	EventTypeID   int64
	Status        string
	SubmittedFrom string
	SubmittedTo   string
	Include       string
	EmployeeScope string
	ClaimScope    string
	SortBy        string
	SortDir       string
	Page          int
	PageSize      int
}

// Query is a normalized filter plus ordering and paging
type Query struct {
	Filter Filter
	Sort   Sort
	Page   Page
}

// Normalize turns raw parameters into a Query with date bounds in UTC
func Normalize(p Params, pageDefaults PageDefaults) Query {
	return NormalizeIn(p, pageDefaults, time.UTC)
}

// NormalizeIn turns raw parameters into a Query. Submitted-date bounds are
// midnights of the business day in loc. Unknown statuses, scopes, sort
// fields and malformed dates degrade to "no restriction" defaults.
func NormalizeIn(p Params, pageDefaults PageDefaults, loc *time.Location) Query {
	if loc == nil {
		loc = time.UTC
	}
	f := Filter{
		EmployeeName: strings.TrimSpace(p.EmployeeName),
		ReferenceID:  strings.TrimSpace(p.ReferenceID),
		EventTypeID:  p.EventTypeID,
	}
	if st, ok := entity.ParseClaimStatus(strings.TrimSpace(p.Status)); ok {
		f.Status = st
	}
	if d, ok := parseDate(p.SubmittedFrom, loc); ok {
		f.SubmittedFrom = &d
	}
	if d, ok := parseDate(p.SubmittedTo, loc); ok {
		f.SubmittedTo = &d
	}

	f.EmployeeScope, f.ClaimScope = TranslateInclude(p.Include)
	if s := ParseEmployeeScope(p.EmployeeScope); s != "" {
		f.EmployeeScope = s
	}
	if s := ParseClaimScope(p.ClaimScope); s != "" {
		f.ClaimScope = s
	}
	if f.EmployeeScope == "" {
		f.EmployeeScope = EmployeeScopeAll
	}
	if f.ClaimScope == "" {
		f.ClaimScope = ClaimScopeAll
	}

	return Query{
		Filter: f,
		Sort:   ParseSort(p.SortBy, p.SortDir),
		Page:   NewPage(p.Page, p.PageSize, pageDefaults),
	}
}

func parseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(entity.DateLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
