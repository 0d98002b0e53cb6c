package visual

import (
	"testing"

	"github.com/dukex/stageflow/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	tests := []struct {
		status   models.NodeStatus
		expected int
	}{
		{models.NodeStatusCompleted, 100},
		{models.NodeStatusRunning, 50},
		{models.NodeStatusAwaitingApproval, 75},
		{models.NodeStatusFailed, 25},
		{models.NodeStatusNotStarted, 0},
		{models.NodeStatus("unknown"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, Progress(tt.status))
		})
	}
}

func TestStatusColorAndIcon(t *testing.T) {
	assert.Equal(t, ColorGreen, StatusColor(models.NodeStatusCompleted))
	assert.Equal(t, ColorRed, StatusColor(models.NodeStatusFailed))
	assert.Equal(t, "spinner", StatusIcon(models.NodeStatusRunning))
	assert.Equal(t, StatusIcon(models.NodeStatusNotStarted), StatusIcon(""))
}

func TestStageIcon(t *testing.T) {
	assert.Equal(t, "rocket", StageIcon("Prod"))
	assert.Equal(t, "flask", StageIcon(" qa "))
	assert.Equal(t, DefaultStageIcon, StageIcon("uat"))
}

func TestForEdge(t *testing.T) {
	tests := []struct {
		name     string
		edge     *models.Transition
		expected EdgeStyle
	}{
		{
			name:     "no approval",
			edge:     &models.Transition{Status: models.ApprovalStatusPending},
			expected: EdgeStyle{Color: ColorGray},
		},
		{
			name:     "pending",
			edge:     &models.Transition{RequiresApproval: true, ApproverRole: "qa-lead", Status: models.ApprovalStatusPending},
			expected: EdgeStyle{Color: ColorYellow, Dashed: true},
		},
		{
			name:     "approved",
			edge:     &models.Transition{RequiresApproval: true, ApproverRole: "qa-lead", Status: models.ApprovalStatusApproved},
			expected: EdgeStyle{Color: ColorGreen},
		},
		{
			name:     "rejected",
			edge:     &models.Transition{RequiresApproval: true, ApproverRole: "qa-lead", Status: models.ApprovalStatusRejected},
			expected: EdgeStyle{Color: ColorRed},
		},
		{
			name:     "missing role",
			edge:     &models.Transition{RequiresApproval: true, Status: models.ApprovalStatusPending},
			expected: EdgeStyle{Color: ColorYellow, Dashed: true, MissingRole: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ForEdge(tt.edge))
		})
	}
}
