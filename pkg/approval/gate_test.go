package approval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukex/stageflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatedEdge() *models.Transition {
	return &models.Transition{
		ID:                   "stage-prod",
		Source:               "stage",
		Target:               "prod",
		RequiresApproval:     true,
		ApproverRole:         "prod-manager",
		ApprovalTimeoutHours: "24",
		Status:               models.ApprovalStatusPending,
	}
}

func TestStateOf(t *testing.T) {
	tests := []struct {
		name     string
		edge     *models.Transition
		expected State
	}{
		{"no approval", &models.Transition{Status: models.ApprovalStatusApproved}, StateNoApproval},
		{"pending", &models.Transition{RequiresApproval: true, Status: models.ApprovalStatusPending}, StatePending},
		{"empty status is pending", &models.Transition{RequiresApproval: true}, StatePending},
		{"approved", &models.Transition{RequiresApproval: true, Status: models.ApprovalStatusApproved}, StateApproved},
		{"rejected", &models.Transition{RequiresApproval: true, Status: models.ApprovalStatusRejected}, StateRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StateOf(tt.edge))
		})
	}
}

func TestApprove(t *testing.T) {
	edge := gatedEdge()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	decision, err := Approve(edge, "alice", "looks good", at)
	require.NoError(t, err)

	assert.Equal(t, StatePending, decision.From)
	assert.Equal(t, StateApproved, decision.To)
	assert.Equal(t, models.ApprovalStatusApproved, edge.Status)
	assert.Equal(t, "alice", edge.ApprovedBy)
	assert.Equal(t, at, *edge.ApprovedAt)
	assert.Equal(t, "looks good", edge.Comments)
	assert.True(t, CanTraverse(edge))
}

func TestDecisionsAreTerminal(t *testing.T) {
	edge := gatedEdge()

	_, err := Reject(edge, "bob", "not ready", time.Now())
	require.NoError(t, err)
	assert.False(t, CanTraverse(edge))

	_, err = Approve(edge, "alice", "", time.Now())
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.ApprovalStatusRejected, edge.Status)
	assert.Equal(t, "bob", edge.ApprovedBy)
}

func TestDecide_Guards(t *testing.T) {
	_, err := Approve(&models.Transition{ID: "plain"}, "alice", "", time.Now())
	require.ErrorIs(t, err, ErrApprovalNotRequired)

	_, err = Approve(gatedEdge(), " ", "", time.Now())
	require.ErrorIs(t, err, ErrApproverRequired)
}

func TestExpire(t *testing.T) {
	requested := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("not auto approve", func(t *testing.T) {
		edge := gatedEdge()
		_, expired, err := Expire(edge, requested, requested.Add(48*time.Hour))
		require.NoError(t, err)
		assert.False(t, expired)
		assert.Equal(t, models.ApprovalStatusPending, edge.Status)
	})

	t.Run("before deadline", func(t *testing.T) {
		edge := gatedEdge()
		edge.AutoApprove = true
		_, expired, err := Expire(edge, requested, requested.Add(23*time.Hour))
		require.NoError(t, err)
		assert.False(t, expired)
	})

	t.Run("after deadline", func(t *testing.T) {
		edge := gatedEdge()
		edge.AutoApprove = true
		decision, expired, err := Expire(edge, requested, requested.Add(24*time.Hour))
		require.NoError(t, err)
		assert.True(t, expired)
		assert.True(t, decision.Automatic)
		assert.Equal(t, AutoApprover, edge.ApprovedBy)
		assert.Equal(t, models.ApprovalStatusApproved, edge.Status)
	})

	t.Run("already decided", func(t *testing.T) {
		edge := gatedEdge()
		edge.AutoApprove = true
		edge.Status = models.ApprovalStatusRejected
		_, expired, err := Expire(edge, requested, requested.Add(100*time.Hour))
		require.NoError(t, err)
		assert.False(t, expired)
		assert.Equal(t, models.ApprovalStatusRejected, edge.Status)
	})
}

func TestDeadline(t *testing.T) {
	requested := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	edge := gatedEdge()

	_, ok := Deadline(edge, requested)
	assert.False(t, ok, "no deadline without auto approve")

	edge.AutoApprove = true
	deadline, ok := Deadline(edge, requested)
	require.True(t, ok)
	assert.Equal(t, requested.Add(24*time.Hour), deadline)

	edge.ApprovalTimeoutHours = ""
	_, ok = Deadline(edge, requested)
	assert.False(t, ok)
}

func TestMissingApproverRole(t *testing.T) {
	edge := gatedEdge()
	assert.False(t, MissingApproverRole(edge))

	edge.ApproverRole = ""
	assert.True(t, MissingApproverRole(edge))

	assert.False(t, MissingApproverRole(&models.Transition{}))
}

func TestMachine_Hooks(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	machine := NewMachine(func() time.Time { return fixed })

	var seen []Decision
	machine.OnDecision(func(_ context.Context, decision Decision) error {
		seen = append(seen, decision)

		return nil
	})
	machine.OnDecision(func(context.Context, Decision) error {
		return errors.New("publish failed")
	})

	edge := gatedEdge()
	decision, err := machine.Approve(t.Context(), edge, "alice", "")

	require.Error(t, err, "hook errors are reported")
	assert.Equal(t, models.ApprovalStatusApproved, edge.Status, "decision is applied even if a hook fails")
	require.Len(t, seen, 1)
	assert.Equal(t, decision, seen[0])
	assert.Equal(t, fixed, seen[0].At)
}

func TestMachine_InvalidDecisionSkipsHooks(t *testing.T) {
	machine := NewMachine(nil)

	called := false
	machine.OnDecision(func(context.Context, Decision) error {
		called = true

		return nil
	})

	_, err := machine.Reject(t.Context(), &models.Transition{ID: "plain"}, "alice", "")
	require.ErrorIs(t, err, ErrApprovalNotRequired)
	assert.False(t, called)
}
