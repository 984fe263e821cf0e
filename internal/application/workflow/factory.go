package workflow

import (
	"sync"

	"github.com/garyjia/expense-claims/internal/domain/entity"
	domainwf "github.com/garyjia/expense-claims/internal/domain/workflow"
)

var claimTable = sync.OnceValues(buildClaimTable)

// buildClaimTable defines the transitions this service drives.
// Pending Approval, On Hold, Partially Approved and Approved are entered by
// collaborators outside this service and have no outgoing edges yet.
// Rejected, Paid and Cancelled are terminal.
func buildClaimTable() (*domainwf.Table, error) {
	b := domainwf.NewBuilder()

	b.Configure(domainwf.StateInitiated).
		Permit(domainwf.TriggerSubmit, domainwf.StateSubmitted)

	b.Configure(domainwf.StateSubmitted).
		Permit(domainwf.TriggerApprove, domainwf.StateApproved).
		Permit(domainwf.TriggerReject, domainwf.StateRejected)

	return b.Build()
}

// ClaimTable returns the shared claim transition table
func ClaimTable() *domainwf.Table {
	t, err := claimTable()
	if err != nil {
		panic(err)
	}
	return t
}

// ToState converts a stored claim status to a state machine state
func ToState(status entity.ClaimStatus) domainwf.State {
	return domainwf.State(status)
}

// ToStatus converts a state machine state back to a claim status
func ToStatus(state domainwf.State) entity.ClaimStatus {
	return entity.ClaimStatus(state)
}

// Next returns the status trigger leads to from status, or false if the
// transition table does not permit it
func Next(status entity.ClaimStatus, trigger domainwf.Trigger) (entity.ClaimStatus, bool) {
	to, err := ClaimTable().Next(ToState(status), trigger)
	if err != nil {
		return "", false
	}
	return ToStatus(to), true
}

// AllowedTriggers lists what may be done to a claim in status
func AllowedTriggers(status entity.ClaimStatus) []domainwf.Trigger {
	return ClaimTable().Permitted(ToState(status))
}
