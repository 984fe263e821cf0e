package entity

import "strconv"

// Roles recognised by the HTTP adapter
const (
	RoleEmployee = "employee"
	RoleApprover = "approver"
	RoleAdmin    = "admin"
)

// Principal is the authenticated caller supplied by the upstream auth layer
type Principal struct {
	ID       int64
	Username string
	Role     string
}

// Actor returns the name recorded in audit and actor columns
func (p Principal) Actor() string {
	if p.Username != "" {
		return p.Username
	}
	return strconv.FormatInt(p.ID, 10)
}

// CanDecide reports whether the principal may approve or reject claims
func (p Principal) CanDecide() bool {
	return p.Role == RoleAdmin || p.Role == RoleApprover
}
