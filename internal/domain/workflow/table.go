package workflow

import (
	"fmt"
	"sort"
)

// Table is a frozen status transition table. It holds no current state:
// callers look up the destination for the status they read and then write
// it conditionally on that status still being current.
type Table struct {
	next    map[State]map[Trigger]State
	sources map[Trigger][]State
}

// Edge is one permitted transition
type Edge struct {
	From    State
	Trigger Trigger
	To      State
}

// Next returns the state trigger leads to from the given state
func (t *Table) Next(from State, trigger Trigger) (State, error) {
	if !from.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownState, from)
	}
	to, ok := t.next[from][trigger]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s a claim in status %s", ErrInvalidTransition, trigger, from)
	}
	return to, nil
}

// Permitted returns the triggers allowed from state, sorted by name
func (t *Table) Permitted(from State) []Trigger {
	triggers := make([]Trigger, 0, len(t.next[from]))
	for trigger := range t.next[from] {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}

// Sources returns every state from which trigger may be fired
func (t *Table) Sources(trigger Trigger) []State {
	return append([]State(nil), t.sources[trigger]...)
}

// Edges lists the whole table ordered by source state and trigger
func (t *Table) Edges() []Edge {
	var edges []Edge
	for from, out := range t.next {
		for trigger, to := range out {
			edges = append(edges, Edge{From: from, Trigger: trigger, To: to})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].Trigger < edges[j].Trigger
	})
	return edges
}
