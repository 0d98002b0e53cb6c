package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dukex/stageflow/pkg/approval"
	"github.com/dukex/stageflow/pkg/events"
	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/persistence"
	"github.com/google/uuid"
)

// Executor owns execution state on the backend: summary counts and approval records.
type Executor struct {
	base

	persistence persistence.Persistence
	machine     *approval.Machine
}

func NewExecutor(persistence persistence.Persistence, opts ...Option) *Executor {
	executor := &Executor{
		base:        newBase("executor_service", opts),
		persistence: persistence,
	}

	executor.machine = approval.NewMachine(executor.now)
	executor.machine.OnDecision(func(_ context.Context, decision approval.Decision) error {
		executor.metrics.ApprovalDecided(string(decision.To), decision.Automatic)

		return nil
	})

	return executor
}

// Summary counts workflows, those with a running stage, those whose stages all
// completed, and the approvals still awaiting a decision.
func (e *Executor) Summary(ctx context.Context) (models.ExecutionSummary, error) {
	var summary models.ExecutionSummary

	workflows, err := e.persistence.WorkflowRepository().List(ctx, persistence.ListWorkflowsOptions{})
	if err != nil {
		return summary, fmt.Errorf("failed to list workflows: %w", err)
	}

	summary.Total = len(workflows)

	for _, workflow := range workflows {
		running, completed := executionState(workflow)
		if running {
			summary.Running++
		}

		if completed {
			summary.Completed++
		}
	}

	pending, err := e.PendingApprovals(ctx)
	if err != nil {
		return summary, err
	}

	summary.PendingApproval = len(pending)

	return summary, nil
}

func executionState(workflow *models.Workflow) (bool, bool) {
	running := false
	stages := 0
	completed := 0

	for _, node := range workflow.Nodes {
		if node.IsPseudo() {
			continue
		}

		stages++

		switch node.Status {
		case models.NodeStatusRunning:
			running = true
		case models.NodeStatusCompleted:
			completed++
		}
	}

	return running, stages > 0 && completed == stages
}

// PendingApprovals returns the open approval records, oldest first.
func (e *Executor) PendingApprovals(ctx context.Context) ([]*models.PendingApproval, error) {
	records, err := e.persistence.ApprovalRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}

	open := make([]*models.PendingApproval, 0, len(records))

	for _, record := range records {
		if record.IsOpen() {
			open = append(open, record)
		}
	}

	sort.SliceStable(open, func(i, j int) bool {
		return open[i].RequestedAt.Before(open[j].RequestedAt)
	})

	return open, nil
}

// RequestApprovalRequest opens an approval on a gated transition.
type RequestApprovalRequest struct {
	WorkflowID   string          `json:"workflowId"             validate:"required"`
	TransitionID string          `json:"transitionId"           validate:"required"`
	InstanceID   string          `json:"instanceId,omitempty"`
	ActivityID   string          `json:"activityId,omitempty"`
	ActivityName string          `json:"activityName,omitempty"`
	RequestedBy  string          `json:"requestedBy"            validate:"required"`
	Priority     models.Priority `json:"priority,omitempty"     validate:"omitempty,oneof=low medium high"`
	Description  string          `json:"description,omitempty"`
}

// RequestApproval records that execution reached a gated transition and marks the
// target stage as awaiting approval.
func (e *Executor) RequestApproval(ctx context.Context, req RequestApprovalRequest) (*models.PendingApproval, error) {
	if strings.TrimSpace(req.WorkflowID) == "" || strings.TrimSpace(req.TransitionID) == "" || strings.TrimSpace(req.RequestedBy) == "" {
		return nil, NewValidationError("RequestApproval", "INVALID_REQUEST",
			"workflowId, transitionId and requestedBy are required", ErrInvalidRequest)
	}

	workflow, err := e.persistence.WorkflowRepository().GetByID(ctx, req.WorkflowID)
	if err != nil {
		return nil, err
	}

	edge := findEdge(workflow, req.TransitionID)
	if edge == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransition, req.TransitionID)
	}

	switch approval.StateOf(edge) {
	case approval.StateNoApproval:
		return nil, fmt.Errorf("%w: %s", ErrApprovalNotRequired, edge.ID)
	case approval.StateApproved, approval.StateRejected:
		return nil, fmt.Errorf("%w: %s", ErrApprovalClosed, edge.ID)
	}

	open, err := e.PendingApprovals(ctx)
	if err != nil {
		return nil, err
	}

	for _, record := range open {
		if record.WorkflowID == workflow.ID && record.TransitionID == edge.ID {
			return nil, fmt.Errorf("%w: %s", ErrApprovalRequested, edge.ID)
		}
	}

	now := e.timestamp()
	record := &models.PendingApproval{
		ID:           uuid.New().String(),
		WorkflowID:   workflow.ID,
		WorkflowName: workflow.Name,
		InstanceID:   req.InstanceID,
		TransitionID: edge.ID,
		StageID:      edge.Target,
		ActivityID:   req.ActivityID,
		ActivityName: req.ActivityName,
		RequestedBy:  req.RequestedBy,
		RequestedAt:  now,
		Approver:     edge.ApproverRole,
		Status:       models.ApprovalStatusPending,
		Priority:     req.Priority,
		Description:  req.Description,
		ViewURL:      "/workflows/" + workflow.ID,
	}

	if deadline, ok := approval.Deadline(edge, now); ok {
		record.ExpiresAt = &deadline
	}

	if target := findNode(workflow, edge.Target); target != nil {
		record.StageName = target.StageName
		target.Status = models.NodeStatusAwaitingApproval
	}

	workflow.UpdatedAt = now

	err = e.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	err = e.persistence.ApprovalRepository().Save(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to save approval: %w", err)
	}

	e.metrics.ApprovalRequested()
	e.publish(ctx, workflow.ID, events.ApprovalRequested{
		BaseEvent:    events.NewBaseEvent(events.ApprovalRequestedEvent, workflow.ID),
		ApprovalID:   record.ID,
		TransitionID: record.TransitionID,
		StageID:      record.StageID,
		Approver:     record.Approver,
		ExpiresAt:    record.ExpiresAt,
	})
	e.logger.InfoContext(ctx, "Approval requested",
		"approval_id", record.ID, "workflow_id", workflow.ID, "transition_id", edge.ID)

	return record, nil
}

// DecisionRequest is the body of an approve or reject call.
type DecisionRequest struct {
	By       string `json:"by"                 validate:"required"`
	Comments string `json:"comments,omitempty"`
}

// Approve approves the approval record id and its transition.
func (e *Executor) Approve(ctx context.Context, id string, req DecisionRequest) (*models.PendingApproval, error) {
	return e.decide(ctx, "Approve", id, func(edge *models.Transition) (approval.Decision, error) {
		return e.machine.Approve(ctx, edge, req.By, req.Comments)
	})
}

// Reject rejects the approval record id and fails the gated stage.
func (e *Executor) Reject(ctx context.Context, id string, req DecisionRequest) (*models.PendingApproval, error) {
	return e.decide(ctx, "Reject", id, func(edge *models.Transition) (approval.Decision, error) {
		return e.machine.Reject(ctx, edge, req.By, req.Comments)
	})
}

func (e *Executor) decide(
	ctx context.Context,
	op string,
	id string,
	apply func(edge *models.Transition) (approval.Decision, error),
) (*models.PendingApproval, error) {
	record, err := e.persistence.ApprovalRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !record.IsOpen() {
		return nil, fmt.Errorf("%w: %s", ErrApprovalClosed, id)
	}

	workflow, err := e.persistence.WorkflowRepository().GetByID(ctx, record.WorkflowID)
	if err != nil {
		return nil, err
	}

	edge := findEdge(workflow, record.TransitionID)
	if edge == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransition, record.TransitionID)
	}

	decision, err := apply(edge)
	if err != nil && decision.TransitionID == "" {
		return nil, mapDecisionError(op, err)
	}

	if err != nil {
		e.logger.ErrorContext(ctx, "Approval decision hook failed", "approval_id", id, "error", err)
	}

	err = e.record(ctx, workflow, record, decision)
	if err != nil {
		return nil, err
	}

	return record, nil
}

// ExpireApprovals auto-approves every open record whose gate timed out before now.
func (e *Executor) ExpireApprovals(ctx context.Context, now time.Time) (int, error) {
	open, err := e.PendingApprovals(ctx)
	if err != nil {
		return 0, err
	}

	var (
		errs     []error
		approved int
	)

	for _, record := range open {
		workflow, err := e.persistence.WorkflowRepository().GetByID(ctx, record.WorkflowID)
		if err != nil {
			errs = append(errs, fmt.Errorf("approval %s: %w", record.ID, err))

			continue
		}

		edge := findEdge(workflow, record.TransitionID)
		if edge == nil {
			e.logger.WarnContext(ctx, "Approval references a missing transition",
				"approval_id", record.ID, "transition_id", record.TransitionID)

			continue
		}

		decision, expired, err := e.machine.ExpireAt(ctx, edge, record.RequestedAt, now)
		if !expired {
			if err != nil {
				errs = append(errs, fmt.Errorf("approval %s: %w", record.ID, err))
			}

			continue
		}

		err = e.record(ctx, workflow, record, decision)
		if err != nil {
			errs = append(errs, fmt.Errorf("approval %s: %w", record.ID, err))

			continue
		}

		approved++
	}

	return approved, errors.Join(errs...)
}

// record persists an applied decision on the workflow and on the approval record.
func (e *Executor) record(ctx context.Context, workflow *models.Workflow, record *models.PendingApproval, decision approval.Decision) error {
	status := models.ApprovalStatus(decision.To)
	decidedAt := decision.At

	record.Status = status
	record.DecidedBy = decision.By
	record.DecidedAt = &decidedAt
	record.Comments = decision.Comments

	if target := findNode(workflow, record.StageID); target != nil && target.Status == models.NodeStatusAwaitingApproval {
		if status == models.ApprovalStatusApproved {
			target.Status = models.NodeStatusRunning
		} else {
			target.Status = models.NodeStatusFailed
		}
	}

	workflow.UpdatedAt = decidedAt

	err := e.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	err = e.persistence.ApprovalRepository().Save(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to save approval: %w", err)
	}

	e.publish(ctx, workflow.ID, events.ApprovalDecided{
		BaseEvent:    events.NewBaseEvent(events.ApprovalDecidedEvent, workflow.ID),
		ApprovalID:   record.ID,
		TransitionID: record.TransitionID,
		Status:       status,
		DecidedBy:    decision.By,
		Comments:     decision.Comments,
		Automatic:    decision.Automatic,
	})
	e.logger.InfoContext(ctx, "Approval decided",
		"approval_id", record.ID, "status", status, "by", decision.By, "automatic", decision.Automatic)

	return nil
}

func mapDecisionError(op string, err error) error {
	switch {
	case errors.Is(err, approval.ErrApproverRequired):
		return NewValidationError(op, "APPROVER_REQUIRED", "approver is required", ErrApproverRequired)
	case errors.Is(err, approval.ErrApprovalNotRequired):
		return NewValidationError(op, "APPROVAL_NOT_REQUIRED", err.Error(), ErrApprovalNotRequired)
	case errors.Is(err, approval.ErrInvalidTransition):
		return &ServiceError{Op: op, Code: "APPROVAL_CLOSED", Message: err.Error(), Err: ErrApprovalClosed}
	}

	return err
}

func findEdge(workflow *models.Workflow, id string) *models.Transition {
	for _, edge := range workflow.Edges {
		if edge.ID == id {
			return edge
		}
	}

	return nil
}

func findNode(workflow *models.Workflow, id string) *models.StageNode {
	for _, node := range workflow.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}
