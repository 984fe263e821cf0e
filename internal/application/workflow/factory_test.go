package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-claims/internal/domain/entity"
	domainwf "github.com/garyjia/expense-claims/internal/domain/workflow"
)

func TestBuildClaimTable(t *testing.T) {
	table, err := buildClaimTable()
	require.NoError(t, err)

	assert.Equal(t, []domainwf.Edge{
		{From: domainwf.StateInitiated, Trigger: domainwf.TriggerSubmit, To: domainwf.StateSubmitted},
		{From: domainwf.StateSubmitted, Trigger: domainwf.TriggerApprove, To: domainwf.StateApproved},
		{From: domainwf.StateSubmitted, Trigger: domainwf.TriggerReject, To: domainwf.StateRejected},
	}, table.Edges())
	assert.Same(t, ClaimTable(), ClaimTable())
}

func TestAllowedTriggers(t *testing.T) {
	tests := []struct {
		status   entity.ClaimStatus
		expected []domainwf.Trigger
	}{
		{entity.ClaimStatusInitiated, []domainwf.Trigger{domainwf.TriggerSubmit}},
		{entity.ClaimStatusSubmitted, []domainwf.Trigger{domainwf.TriggerApprove, domainwf.TriggerReject}},
		{entity.ClaimStatusApproved, []domainwf.Trigger{}},
		{entity.ClaimStatusRejected, []domainwf.Trigger{}},
		{entity.ClaimStatusPaid, []domainwf.Trigger{}},
		{entity.ClaimStatusOnHold, []domainwf.Trigger{}},
		{entity.ClaimStatusPendingApproval, []domainwf.Trigger{}},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, AllowedTriggers(tt.status))
		})
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		status  entity.ClaimStatus
		trigger domainwf.Trigger
		want    entity.ClaimStatus
		ok      bool
	}{
		{"submit from initiated", entity.ClaimStatusInitiated, domainwf.TriggerSubmit, entity.ClaimStatusSubmitted, true},
		{"approve from submitted", entity.ClaimStatusSubmitted, domainwf.TriggerApprove, entity.ClaimStatusApproved, true},
		{"reject from submitted", entity.ClaimStatusSubmitted, domainwf.TriggerReject, entity.ClaimStatusRejected, true},
		{"approve from initiated", entity.ClaimStatusInitiated, domainwf.TriggerApprove, "", false},
		{"submit twice", entity.ClaimStatusSubmitted, domainwf.TriggerSubmit, "", false},
		{"reject after approval", entity.ClaimStatusApproved, domainwf.TriggerReject, "", false},
		{"on hold has no entry point", entity.ClaimStatusOnHold, domainwf.TriggerApprove, "", false},
		{"unknown status", entity.ClaimStatus("Draft"), domainwf.TriggerSubmit, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Next(tt.status, tt.trigger)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusStateRoundTrip(t *testing.T) {
	for _, status := range entity.AllClaimStatuses {
		state := ToState(status)
		assert.True(t, state.IsValid(), "state %q should be valid", state)
		assert.Equal(t, status, ToStatus(state))
	}
}
