package workflow

import "errors"

var (
	// ErrInvalidTransition means the table has no edge for the trigger from the current status
	ErrInvalidTransition = errors.New("status transition not permitted")

	// ErrUnknownState means a status outside the claim vocabulary was used
	ErrUnknownState = errors.New("unknown claim status")

	ErrTerminalState       = errors.New("terminal status")
	ErrAmbiguousTransition = errors.New("ambiguous transition")
)
