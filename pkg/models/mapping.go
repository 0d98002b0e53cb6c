package models

import "time"

// FunctionalityType is the kind of external entity a workflow can be mapped to.
type FunctionalityType string

const (
	FunctionalityTypeFeature FunctionalityType = "feature"
	FunctionalityTypeAlert   FunctionalityType = "alert"
	FunctionalityTypeTask    FunctionalityType = "task"
)

// FunctionalityTypes lists the supported functionality types in display order.
var FunctionalityTypes = []FunctionalityType{
	FunctionalityTypeFeature,
	FunctionalityTypeAlert,
	FunctionalityTypeTask,
}

// Functionality is an external alert, task or feature that can run a workflow.
type Functionality struct {
	ID   string            `json:"id"   validate:"required"`
	Name string            `json:"name" validate:"required"`
	Type FunctionalityType `json:"type" validate:"required,oneof=feature alert task"`
}

// WorkflowMapping joins a workflow to a functionality.
type WorkflowMapping struct {
	ID                string            `json:"id"`
	WorkflowID        string            `json:"workflowId"        validate:"required"`
	FunctionalityID   string            `json:"functionalityId"   validate:"required"`
	FunctionalityName string            `json:"functionalityName" validate:"required"`
	FunctionalityType FunctionalityType `json:"functionalityType" validate:"required,oneof=feature alert task"`
	CreatedAt         time.Time         `json:"createdAt"`
}
