package models

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStageNodeData(t *testing.T) {
	tests := []struct {
		name       string
		stageName  string
		parameters map[string]string
		wantErr    bool
	}{
		{name: "valid", stageName: "QA", parameters: map[string]string{"replicas": "2"}},
		{name: "nil parameters become empty", stageName: "dev"},
		{name: "blank stage name", stageName: "   ", wantErr: true},
		{name: "empty parameter key", stageName: "dev", parameters: map[string]string{"": "x"}, wantErr: true},
		{name: "empty parameter value", stageName: "dev", parameters: map[string]string{"k": ""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := NewStageNodeData(tt.stageName, "qa", tt.parameters)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidStageData)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, data.StageName, data.Label)
			assert.NotNil(t, data.Parameters)
		})
	}
}

func TestStageNodeData_ApplyCopiesParameters(t *testing.T) {
	params := map[string]string{"replicas": "2"}
	data, err := NewStageNodeData("QA", "qa", params)
	require.NoError(t, err)

	node := &StageNode{ID: "n1", StageName: "old"}
	data.Apply(node)
	params["replicas"] = "9"

	assert.Equal(t, "QA", node.StageName)
	assert.Equal(t, "QA", node.Label)
	assert.Equal(t, "qa", node.Environment)
	assert.Equal(t, "2", node.Parameters["replicas"])
}

func TestNewApprovalEdgeData(t *testing.T) {
	t.Run("not required clears role and timeout", func(t *testing.T) {
		data, err := NewApprovalEdgeData(false, "prod-manager", "24", true)
		require.NoError(t, err)

		assert.Empty(t, data.ApproverRole)
		assert.Empty(t, data.ApprovalTimeout)
		assert.True(t, data.AutoApprove)
		assert.Equal(t, ApprovalStatusPending, data.Status)
	})

	t.Run("required without role is rejected", func(t *testing.T) {
		_, err := NewApprovalEdgeData(true, "", "24", false)
		require.ErrorIs(t, err, ErrInvalidApprovalData)
	})

	t.Run("non numeric timeout is rejected", func(t *testing.T) {
		_, err := NewApprovalEdgeData(true, "prod-manager", "a day", false)
		require.ErrorIs(t, err, ErrInvalidApprovalData)
	})

	t.Run("required with role and timeout", func(t *testing.T) {
		data, err := NewApprovalEdgeData(true, "prod-manager", "24", false)
		require.NoError(t, err)

		assert.Equal(t, ApprovalEdgeData{
			RequiresApproval: true,
			ApproverRole:     "prod-manager",
			ApprovalTimeout:  "24",
			Status:           ApprovalStatusPending,
		}, data)
	})
}

func TestApprovalEdgeData_ApplyResetsDecision(t *testing.T) {
	approvedAt := time.Now()
	edge := &Transition{
		ID:               "e1",
		Source:           "a",
		Target:           "b",
		RequiresApproval: true,
		ApproverRole:     "lead",
		Status:           ApprovalStatusApproved,
		ApprovedBy:       "alice",
		ApprovedAt:       &approvedAt,
		Comments:         "ok",
	}

	data, err := NewApprovalEdgeData(true, "lead", "", false)
	require.NoError(t, err)
	data.Apply(edge)

	assert.Equal(t, ApprovalStatusPending, edge.Status)
	assert.Empty(t, edge.ApprovedBy)
	assert.Nil(t, edge.ApprovedAt)
	assert.Empty(t, edge.Comments)
}

func TestParseTimeoutHours(t *testing.T) {
	hours, err := ParseTimeoutHours(" 24 ")
	require.NoError(t, err)
	assert.Equal(t, 24, hours)

	_, err = ParseTimeoutHours("0")
	assert.Error(t, err)

	_, err = ParseTimeoutHours("1.5")
	assert.Error(t, err)
}

func TestStageTemplate(t *testing.T) {
	assert.Equal(t, "production", StageTemplate("PROD")["environment"])
	assert.Equal(t, "3", StageTemplate("prod")["replicas"])
	assert.Equal(t, map[string]string{"environment": "uat"}, StageTemplate("UAT"))

	template := StageTemplate("dev")
	template["replicas"] = "42"
	assert.Equal(t, "1", StageTemplate("dev")["replicas"], "templates must be copied")

}

func TestWorkflow_CloneIsDeep(t *testing.T) {
	workflow := &Workflow{
		ID:    "wf",
		Name:  "Release",
		Nodes: []*StageNode{{ID: "n1", StageName: "dev", Parameters: map[string]string{"a": "1"}}},
		Edges: []*Transition{{ID: "e1", Source: "n1", Target: "n1"}},
	}

	clone := workflow.Clone()
	clone.Nodes[0].Parameters["a"] = "2"
	clone.Nodes[0].Position.X = 10
	clone.Edges[0].Status = ApprovalStatusRejected

	assert.Equal(t, "1", workflow.Nodes[0].Parameters["a"])
	assert.Zero(t, workflow.Nodes[0].Position.X)
	assert.Empty(t, workflow.Edges[0].Status)
}

func TestWorkflow_Summary(t *testing.T) {
	workflow := &Workflow{
		ID:     "wf",
		Name:   "Release",
		Status: WorkflowStatusActive,
		Nodes:  []*StageNode{{ID: "a"}, {ID: "b"}},
		Edges:  []*Transition{{ID: "e"}},
	}

	summary := workflow.Summary()
	assert.Equal(t, 2, summary.StageCount)
	assert.Equal(t, 1, summary.EdgeCount)
	assert.Equal(t, WorkflowStatusActive, summary.Status)
}

func TestWorkflow_Validation(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	valid := &Workflow{Name: "Release", Status: WorkflowStatusDraft}
	require.NoError(t, validate.Struct(valid))

	invalid := &Workflow{Name: "Release", Status: "paused"}
	assert.Error(t, validate.Struct(invalid))

	assert.True(t, WorkflowStatusInactive.IsValid())
	assert.False(t, WorkflowStatus("paused").IsValid())
}

func TestTransition_Normalize(t *testing.T) {
	edge := &Transition{ApproverRole: "lead", ApprovalTimeoutHours: "4"}
	edge.Normalize()

	assert.Empty(t, edge.ApproverRole)
	assert.Empty(t, edge.ApprovalTimeoutHours)
	assert.Equal(t, ApprovalStatusPending, edge.Status)
}

func TestStepStatus_NodeStatus(t *testing.T) {
	assert.Equal(t, NodeStatusRunning, StepStatusRunning.NodeStatus())
	assert.Equal(t, NodeStatusCompleted, StepStatusCompleted.NodeStatus())
	assert.Equal(t, NodeStatusFailed, StepStatusFailed.NodeStatus())
	assert.Equal(t, NodeStatusNotStarted, StepStatusPending.NodeStatus())
}
