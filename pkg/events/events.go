// Package events defines the domain events published while editing, approving and
// simulating stage workflows.
package events

import (
	"time"

	"github.com/dukex/stageflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every stageflow event; consumers dispatch on the event type metadata.
const Topic = "stageflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow lifecycle events.
	WorkflowSavedEvent   EventType = "workflow.saved"
	WorkflowDeletedEvent EventType = "workflow.deleted"

	// Approval gate events.
	ApprovalRequestedEvent EventType = "approval.requested"
	ApprovalDecidedEvent   EventType = "approval.decided"

	// Simulation events.
	SimulationStepUpdatedEvent EventType = "simulation.step.updated"
	SimulationFinishedEvent    EventType = "simulation.finished"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

// WorkflowSaved is published after a workflow snapshot was created or updated.
type WorkflowSaved struct {
	BaseEvent

	Name    string `json:"name"`
	Version int    `json:"version"`
	Created bool   `json:"created"`
}

func (w WorkflowSaved) GetType() EventType {
	return WorkflowSavedEvent
}

type WorkflowDeleted struct {
	BaseEvent
}

func (w WorkflowDeleted) GetType() EventType {
	return WorkflowDeletedEvent
}

// ApprovalRequested is published when execution reaches a gated transition.
type ApprovalRequested struct {
	BaseEvent

	ApprovalID   string     `json:"approval_id"`
	TransitionID string     `json:"transition_id"`
	StageID      string     `json:"stage_id"`
	Approver     string     `json:"approver"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

func (a ApprovalRequested) GetType() EventType {
	return ApprovalRequestedEvent
}

// ApprovalDecided is published after a gate was approved or rejected, including
// automatic approval on timeout.
type ApprovalDecided struct {
	BaseEvent

	ApprovalID   string                `json:"approval_id"`
	TransitionID string                `json:"transition_id"`
	Status       models.ApprovalStatus `json:"status"`
	DecidedBy    string                `json:"decided_by"`
	Comments     string                `json:"comments,omitempty"`
	Automatic    bool                  `json:"automatic"`
}

func (a ApprovalDecided) GetType() EventType {
	return ApprovalDecidedEvent
}

// SimulationStepUpdated carries a step every time its status changes.
type SimulationStepUpdated struct {
	BaseEvent

	RunID string               `json:"run_id"`
	Step  models.ExecutionStep `json:"step"`
}

func (s SimulationStepUpdated) GetType() EventType {
	return SimulationStepUpdatedEvent
}

// SimulationFinished is published once per run.
type SimulationFinished struct {
	BaseEvent

	RunID        string        `json:"run_id"`
	Outcome      string        `json:"outcome"`
	FailedStepID string        `json:"failed_step_id,omitempty"`
	Duration     time.Duration `json:"duration"`
}

func (s SimulationFinished) GetType() EventType {
	return SimulationFinishedEvent
}
