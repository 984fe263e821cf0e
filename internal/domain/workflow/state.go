package workflow

// State represents a claim status as seen by the state machine
type State string

const (
	StateInitiated         State = "Initiated"
	StateSubmitted         State = "Submitted"
	StatePendingApproval   State = "Pending Approval"
	StateApproved          State = "Approved"
	StateRejected          State = "Rejected"
	StatePaid              State = "Paid"
	StateCancelled         State = "Cancelled"
	StateOnHold            State = "On Hold"
	StatePartiallyApproved State = "Partially Approved"
)

var validStates = map[State]bool{
	StateInitiated:         true,
	StateSubmitted:         true,
	StatePendingApproval:   true,
	StateApproved:          true,
	StateRejected:          true,
	StatePaid:              true,
	StateCancelled:         true,
	StateOnHold:            true,
	StatePartiallyApproved: true,
}

// Rejected, Paid and Cancelled never leave; the rest may gain transitions
// from collaborators outside this engine.
var terminalStates = map[State]bool{
	StateRejected:  true,
	StatePaid:      true,
	StateCancelled: true,
}

// IsTerminal returns true if no transition may ever leave the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid claim status
func (s State) IsValid() bool {
	return validStates[s]
}
