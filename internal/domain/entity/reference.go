package entity

// Employee is read-only directory data referenced by claims
type Employee struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email,omitempty"`
	LarkOpenID string `json:"lark_open_id,omitempty"`
	Active     bool   `json:"active"`
}

// FullName returns "first last"
func (e *Employee) FullName() string {
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

// EventType classifies the business event a claim belongs to
type EventType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Currency is an ISO currency a claim is denominated in
type Currency struct {
	ID     int64  `json:"id"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol,omitempty"`
}

// ExpenseType classifies an expense line
type ExpenseType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
