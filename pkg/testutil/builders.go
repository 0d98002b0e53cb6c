// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dukex/stageflow/pkg/models"
	"github.com/google/uuid"
)

// CreateTestStage creates a stage node with default values that can be overridden.
func CreateTestStage(stageName string, overrides ...func(*models.StageNode)) *models.StageNode {
	node := &models.StageNode{
		ID:          uuid.New().String(),
		Type:        models.NodeTypeStage,
		Position:    models.Position{X: 100, Y: 200},
		StageName:   stageName,
		Label:       stageName,
		Environment: models.StageTemplate(stageName)["environment"],
		Parameters:  models.StageTemplate(stageName),
		Status:      models.NodeStatusNotStarted,
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithNodeID sets the node id.
func WithNodeID(id string) func(*models.StageNode) {
	return func(n *models.StageNode) {
		n.ID = id
	}
}

// WithNodeStatus sets the node status.
func WithNodeStatus(status models.NodeStatus) func(*models.StageNode) {
	return func(n *models.StageNode) {
		n.Status = status
	}
}

// WithPosition sets the node position.
func WithPosition(x, y float64) func(*models.StageNode) {
	return func(n *models.StageNode) {
		n.Position = models.Position{X: x, Y: y}
	}
}

// CreateTestTransition creates an ungated pending transition between two nodes.
func CreateTestTransition(source, target string, overrides ...func(*models.Transition)) *models.Transition {
	edge := &models.Transition{
		ID:     source + "-" + target,
		Source: source,
		Target: target,
		Status: models.ApprovalStatusPending,
	}

	for _, override := range overrides {
		override(edge)
	}

	return edge
}

// WithApproval gates the transition behind approverRole.
func WithApproval(approverRole, timeoutHours string, autoApprove bool) func(*models.Transition) {
	return func(e *models.Transition) {
		e.RequiresApproval = true
		e.ApproverRole = approverRole
		e.ApprovalTimeoutHours = timeoutHours
		e.AutoApprove = autoApprove
	}
}

// CreateTestWorkflow creates a draft workflow with a dev -> qa -> prod chain.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	workflow := &models.Workflow{
		ID:          uuid.New().String(),
		Name:        "Test Workflow",
		Description: "release promotion",
		Version:     1,
		Status:      models.WorkflowStatusDraft,
		CreatedBy:   "test-user",
		CreatedAt:   now,
		UpdatedAt:   now,
		Nodes: []*models.StageNode{
			CreateTestStage("dev", WithNodeID("dev")),
			CreateTestStage("qa", WithNodeID("qa")),
			CreateTestStage("prod", WithNodeID("prod")),
		},
		Edges: []*models.Transition{
			CreateTestTransition("dev", "qa"),
			CreateTestTransition("qa", "prod", WithApproval("prod-manager", "24", false)),
		},
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithWorkflowID sets the workflow id.
func WithWorkflowID(id string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.ID = id
	}
}

// WithWorkflowName sets the workflow name and description.
func WithWorkflowName(name, description string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Name = name
		w.Description = description
	}
}

// WithWorkflowStatus sets the workflow status.
func WithWorkflowStatus(status models.WorkflowStatus) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Status = status
	}
}

// WithNodes replaces the workflow graph.
func WithNodes(nodes []*models.StageNode, edges []*models.Transition) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Nodes = nodes
		w.Edges = edges
	}
}
