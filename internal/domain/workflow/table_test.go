package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateInitiated, false},
		{StateSubmitted, false},
		{StatePendingApproval, false},
		{StateApproved, false},
		{StateOnHold, false},
		{StatePartiallyApproved, false},
		{StateRejected, true},
		{StatePaid, true},
		{StateCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.IsTerminal())
		})
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"initiated", StateInitiated, true},
		{"status with space", StatePendingApproval, true},
		{"upper case is not a status", State("INITIATED"), false},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.IsValid())
		})
	}
}

func sampleTable(t *testing.T) *Table {
	t.Helper()
	b := NewBuilder()
	b.Configure(StateInitiated).Permit(TriggerSubmit, StateSubmitted)
	b.Configure(StateSubmitted).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected)
	table, err := b.Build()
	require.NoError(t, err)
	return table
}

func TestTable_Next(t *testing.T) {
	table := sampleTable(t)

	to, err := table.Next(StateInitiated, TriggerSubmit)
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, to)

	_, err = table.Next(StateApproved, TriggerReject)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	_, err = table.Next(State("Draft"), TriggerSubmit)
	assert.True(t, errors.Is(err, ErrUnknownState))
}

func TestTable_PermittedAndSources(t *testing.T) {
	table := sampleTable(t)

	assert.Equal(t, []Trigger{TriggerApprove, TriggerReject}, table.Permitted(StateSubmitted))
	assert.Empty(t, table.Permitted(StateOnHold))
	assert.Equal(t, []State{StateSubmitted}, table.Sources(TriggerApprove))
	assert.Empty(t, table.Sources(Trigger("PAY")))
}

func TestTable_Edges(t *testing.T) {
	assert.Equal(t, []Edge{
		{StateInitiated, TriggerSubmit, StateSubmitted},
		{StateSubmitted, TriggerApprove, StateApproved},
		{StateSubmitted, TriggerReject, StateRejected},
	}, sampleTable(t).Edges())
}

func TestTable_IsIndependentOfBuilder(t *testing.T) {
	b := NewBuilder()
	b.Configure(StateInitiated).Permit(TriggerSubmit, StateSubmitted)
	table, err := b.Build()
	require.NoError(t, err)

	b.Configure(StateSubmitted).Permit(TriggerApprove, StateApproved)

	_, err = table.Next(StateSubmitted, TriggerApprove)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestBuilder_Misconfiguration(t *testing.T) {
	tests := []struct {
		name      string
		configure func(b *Builder)
		want      error
	}{
		{"unknown source", func(b *Builder) { b.Configure(State("Draft")).Permit(TriggerSubmit, StateSubmitted) }, ErrUnknownState},
		{"unknown target", func(b *Builder) { b.Configure(StateInitiated).Permit(TriggerSubmit, State("Sent")) }, ErrUnknownState},
		{"edge out of terminal", func(b *Builder) { b.Configure(StatePaid).Permit(TriggerApprove, StateApproved) }, ErrTerminalState},
		{"two destinations", func(b *Builder) {
			b.Configure(StateSubmitted).
				Permit(TriggerApprove, StateApproved).
				Permit(TriggerApprove, StatePartiallyApproved)
		}, ErrAmbiguousTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			tt.configure(b)

			table, err := b.Build()

			assert.Nil(t, table)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestBuilder_RepeatedIdenticalEdgeIsAllowed(t *testing.T) {
	b := NewBuilder()
	b.Configure(StateInitiated).Permit(TriggerSubmit, StateSubmitted)
	b.Configure(StateInitiated).Permit(TriggerSubmit, StateSubmitted)

	_, err := b.Build()
	assert.NoError(t, err)
}
