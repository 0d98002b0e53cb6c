package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/stageflow/pkg/events"
	"github.com/dukex/stageflow/pkg/graph"
	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Workflow struct {
	base

	persistence persistence.Persistence
	validate    *validator.Validate
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, opts ...Option) *Workflow {
	return &Workflow{
		base:        newBase("workflow_service", opts),
		persistence: persistence,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListWorkflowsRequest contains options for listing workflows.
type ListWorkflowsRequest struct {
	// Filtering
	Status *models.WorkflowStatus

	// Sorting
	SortBy    string
	SortOrder string
}

// ListWorkflows retrieves every workflow matching the request, sorted.
func (w *Workflow) ListWorkflows(ctx context.Context, req ListWorkflowsRequest) ([]*models.Workflow, error) {
	if req.Status != nil && !req.Status.IsValid() {
		return nil, NewValidationError(
			"ListWorkflows",
			"INVALID_STATUS",
			fmt.Sprintf("invalid status '%s'", *req.Status),
			ErrInvalidStatus,
		)
	}

	opts := persistence.ListWorkflowsOptions{
		Status:    req.Status,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}

	workflows, err := w.persistence.WorkflowRepository().List(ctx, opts)
	if err != nil {
		switch {
		case errors.Is(err, persistence.ErrInvalidSortField):
			return nil, NewValidationError(
				"ListWorkflows",
				"INVALID_SORT_FIELD",
				fmt.Sprintf("invalid sort field '%s', allowed: created_at, updated_at, name", req.SortBy),
				ErrInvalidSortField,
			)
		case errors.Is(err, persistence.ErrInvalidSortOrder):
			return nil, NewValidationError(
				"ListWorkflows",
				"INVALID_SORT_ORDER",
				fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder),
				ErrInvalidSortOrder,
			)
		}

		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowRepository().GetByID(ctx, id)
}

// Create stores a new workflow snapshot. The ID, version and timestamps are assigned here.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusDraft
	}

	err := w.prepare("Create", workflow)
	if err != nil {
		return nil, err
	}

	now := w.timestamp()
	workflow.ID = uuid.New().String()
	workflow.Version = 1
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	w.saved(ctx, workflow, true)

	return workflow, nil
}

// Update replaces the snapshot of an existing workflow and bumps its version. The last
// write wins.
func (w *Workflow) Update(
	ctx context.Context,
	workflowID string,
	workflow *models.Workflow,
) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	existing, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status == "" {
		workflow.Status = existing.Status
	}

	err = w.prepare("Update", workflow)
	if err != nil {
		return nil, err
	}

	workflow.ID = workflowID
	workflow.Version = existing.Version + 1
	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = w.timestamp()

	if workflow.CreatedBy == "" {
		workflow.CreatedBy = existing.CreatedBy
	}

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	w.saved(ctx, workflow, false)

	return workflow, nil
}

// Delete removes a workflow together with its activities, mappings and approval records.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	_, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return err
	}

	err = w.deleteDependents(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow dependents: %w", err)
	}

	err = w.persistence.WorkflowRepository().Delete(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	w.metrics.WorkflowWritten("delete")
	w.publish(ctx, workflowID, events.WorkflowDeleted{
		BaseEvent: events.NewBaseEvent(events.WorkflowDeletedEvent, workflowID),
	})
	w.logger.InfoContext(ctx, "Workflow deleted", "workflow_id", workflowID)

	return nil
}

func (w *Workflow) deleteDependents(ctx context.Context, workflowID string) error {
	activities, err := w.persistence.ActivityRepository().List(ctx, workflowID)
	if err != nil {
		return err
	}

	for _, activity := range activities {
		err = ignoreNotFound(w.persistence.ActivityRepository().Delete(ctx, activity.ID))
		if err != nil {
			return err
		}
	}

	mappings, err := w.persistence.MappingRepository().List(ctx)
	if err != nil {
		return err
	}

	for _, mapping := range mappings {
		if mapping.WorkflowID != workflowID {
			continue
		}

		err = ignoreNotFound(w.persistence.MappingRepository().Delete(ctx, mapping.ID))
		if err != nil {
			return err
		}
	}

	approvals, err := w.persistence.ApprovalRepository().List(ctx)
	if err != nil {
		return err
	}

	for _, record := range approvals {
		if record.WorkflowID != workflowID {
			continue
		}

		err = ignoreNotFound(w.persistence.ApprovalRepository().Delete(ctx, record.ID))
		if err != nil {
			return err
		}
	}

	return nil
}

// prepare validates an incoming snapshot and clears approval settings on ungated edges.
func (w *Workflow) prepare(op string, workflow *models.Workflow) error {
	workflow.Name = strings.TrimSpace(workflow.Name)
	if workflow.Name == "" {
		return ErrWorkflowNameRequired
	}

	if !workflow.Status.IsValid() {
		return NewValidationError(op, "INVALID_STATUS", fmt.Sprintf("invalid status '%s'", workflow.Status), ErrInvalidStatus)
	}

	if workflow.Nodes == nil {
		workflow.Nodes = []*models.StageNode{}
	}

	if workflow.Edges == nil {
		workflow.Edges = []*models.Transition{}
	}

	for _, edge := range workflow.Edges {
		if edge != nil {
			edge.Normalize()
		}
	}

	err := w.validate.Struct(workflow)
	if err != nil {
		return NewValidationError(op, "INVALID_WORKFLOW", err.Error(), ErrInvalidRequest)
	}

	g := &graph.Graph{Nodes: workflow.Nodes, Edges: workflow.Edges}

	err = g.Validate()
	if err != nil {
		return NewValidationError(op, "INVALID_GRAPH", err.Error(), ErrInvalidGraph)
	}

	if workflow.Status == models.WorkflowStatusActive && stageCount(workflow) == 0 {
		return ErrNodesRequired
	}

	return nil
}

func (w *Workflow) saved(ctx context.Context, workflow *models.Workflow, created bool) {
	operation := "update"
	if created {
		operation = "create"
	}

	w.metrics.WorkflowWritten(operation)
	w.publish(ctx, workflow.ID, events.WorkflowSaved{
		BaseEvent: events.NewBaseEvent(events.WorkflowSavedEvent, workflow.ID),
		Name:      workflow.Name,
		Version:   workflow.Version,
		Created:   created,
	})
	w.logger.InfoContext(ctx, "Workflow saved", "workflow_id", workflow.ID, "version", workflow.Version, "operation", operation)
}

func stageCount(workflow *models.Workflow) int {
	count := 0

	for _, node := range workflow.Nodes {
		if node != nil && !node.IsPseudo() {
			count++
		}
	}

	return count
}

func ignoreNotFound(err error) error {
	if persistence.IsNotFound(err) {
		return nil
	}

	return err
}
