package models

import "time"

// Activity is a unit of work attached to a workflow stage.
type Activity struct {
	ID          string            `json:"id"`
	WorkflowID  string            `json:"workflowId"  validate:"required"`
	StageID     string            `json:"stageId,omitempty"`
	Name        string            `json:"name"        validate:"required"`
	Description string            `json:"description,omitempty"`
	Type        string            `json:"type,omitempty"`
	Config      map[string]string `json:"config,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}
