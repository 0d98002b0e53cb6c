package models

import "time"

// StepStatus is the status of one simulated execution step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// NodeStatus maps a step status onto the stage node status used for rendering.
func (s StepStatus) NodeStatus() NodeStatus {
	switch s {
	case StepStatusRunning:
		return NodeStatusRunning
	case StepStatusCompleted:
		return NodeStatusCompleted
	case StepStatusFailed:
		return NodeStatusFailed
	default:
		return NodeStatusNotStarted
	}
}

// ExecutionStep is the transient record of one stage's simulated run.
type ExecutionStep struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Status       StepStatus    `json:"status"`
	StartTime    *time.Time    `json:"startTime,omitempty"`
	EndTime      *time.Time    `json:"endTime,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
}

// ExecutionSummary aggregates workflow execution counts for dashboards.
type ExecutionSummary struct {
	Total           int `json:"total"`
	Running         int `json:"running"`
	Completed       int `json:"completed"`
	PendingApproval int `json:"pendingApproval"`
}

// Priority of a pending approval.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// PendingApproval is a backend record of a human decision awaited on a transition.
type PendingApproval struct {
	ID           string         `json:"id"`
	WorkflowID   string         `json:"workflowId"             validate:"required"`
	WorkflowName string         `json:"workflowName"`
	InstanceID   string         `json:"instanceId"`
	TransitionID string         `json:"transitionId"           validate:"required"`
	StageID      string         `json:"stageId"`
	StageName    string         `json:"stageName"`
	ActivityID   string         `json:"activityId,omitempty"`
	ActivityName string         `json:"activityName,omitempty"`
	RequestedBy  string         `json:"requestedBy"`
	RequestedAt  time.Time      `json:"requestedAt"`
	ExpiresAt    *time.Time     `json:"expiresAt,omitempty"`
	Approver     string         `json:"approver"`
	Status       ApprovalStatus `json:"status"`
	Priority     Priority       `json:"priority,omitempty"`
	Description  string         `json:"description,omitempty"`
	ViewURL      string         `json:"viewURL"`
	DecidedBy    string         `json:"decidedBy,omitempty"`
	DecidedAt    *time.Time     `json:"decidedAt,omitempty"`
	Comments     string         `json:"comments,omitempty"`
}

// IsOpen reports whether the approval still awaits a decision.
func (p *PendingApproval) IsOpen() bool {
	return p.Status == ApprovalStatusPending
}
