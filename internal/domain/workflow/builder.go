package workflow

import (
	"fmt"
	"sort"
)

// Builder collects status transitions and freezes them into a Table.
// Misconfiguration is recorded and reported by Build instead of panicking,
// so a bad table fails service startup rather than a request.
type Builder struct {
	edges map[State]map[Trigger]State
	err   error
}

// StateConfiguration adds outgoing edges for one source state
type StateConfiguration struct {
	b    *Builder
	from State
}

// NewBuilder creates an empty transition table builder
func NewBuilder() *Builder {
	return &Builder{edges: make(map[State]map[Trigger]State)}
}

// Configure returns the configuration for transitions leaving state
func (b *Builder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		b.fail(fmt.Errorf("%w: %q", ErrUnknownState, state))
	}
	return StateConfiguration{b: b, from: state}
}

// Permit lets trigger move the claim from the configured state to toState.
// A trigger may lead to exactly one destination per source state.
func (c StateConfiguration) Permit(trigger Trigger, toState State) StateConfiguration {
	switch {
	case !c.from.IsValid():
		// already recorded by Configure
	case !toState.IsValid():
		c.b.fail(fmt.Errorf("%w: %q", ErrUnknownState, toState))
	case c.from.IsTerminal():
		c.b.fail(fmt.Errorf("%w: %s cannot have outgoing transitions", ErrTerminalState, c.from))
	default:
		out := c.b.edges[c.from]
		if out == nil {
			out = make(map[Trigger]State)
			c.b.edges[c.from] = out
		}
		if prev, dup := out[trigger]; dup && prev != toState {
			c.b.fail(fmt.Errorf("%w: %s from %s leads to both %s and %s", ErrAmbiguousTransition, trigger, c.from, prev, toState))
			break
		}
		out[trigger] = toState
	}
	return c
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build freezes the collected edges. The returned Table is read-only and
// safe to share between goroutines.
func (b *Builder) Build() (*Table, error) {
	if b.err != nil {
		return nil, b.err
	}

	t := &Table{
		next:    make(map[State]map[Trigger]State, len(b.edges)),
		sources: make(map[Trigger][]State),
	}
	for from, out := range b.edges {
		cp := make(map[Trigger]State, len(out))
		for trigger, to := range out {
			cp[trigger] = to
			t.sources[trigger] = append(t.sources[trigger], from)
		}
		t.next[from] = cp
	}
	for trigger := range t.sources {
		sort.Slice(t.sources[trigger], func(i, j int) bool { return t.sources[trigger][i] < t.sources[trigger][j] })
	}
	return t, nil
}
