// Package models defines the core domain models for stage-based promotion workflows.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"    // Being edited, never run
	WorkflowStatusActive   WorkflowStatus = "active"   // Eligible for execution
	WorkflowStatusInactive WorkflowStatus = "inactive" // Kept for reference only
)

// WorkflowStatuses lists every valid workflow status.
var WorkflowStatuses = []WorkflowStatus{
	WorkflowStatusDraft,
	WorkflowStatusActive,
	WorkflowStatusInactive,
}

// IsValid reports whether s is a known workflow status.
func (s WorkflowStatus) IsValid() bool {
	for _, status := range WorkflowStatuses {
		if s == status {
			return true
		}
	}

	return false
}

// Workflow is a full snapshot of a promotion pipeline as stored by the backend of record.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"        validate:"required"`
	Description string         `json:"description"`
	Version     int            `json:"version"`
	Status      WorkflowStatus `json:"status"      validate:"omitempty,oneof=draft active inactive"`
	CreatedBy   string         `json:"createdBy"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Nodes       []*StageNode   `json:"nodes"       validate:"dive,required"`
	Edges       []*Transition  `json:"edges"       validate:"dive,required"`
}

// Clone returns a deep copy of the workflow.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}

	clone := *w
	clone.Nodes = CloneNodes(w.Nodes)
	clone.Edges = CloneEdges(w.Edges)

	return &clone
}

// Summary projects the workflow onto the fields shown in the workflow directory.
func (w *Workflow) Summary() WorkflowSummary {
	return WorkflowSummary{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Version:     w.Version,
		Status:      w.Status,
		CreatedBy:   w.CreatedBy,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
		StageCount:  len(w.Nodes),
		EdgeCount:   len(w.Edges),
	}
}

// WorkflowSummary is the directory view of a workflow without its graph.
type WorkflowSummary struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Version     int            `json:"version"`
	Status      WorkflowStatus `json:"status"`
	CreatedBy   string         `json:"createdBy"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	StageCount  int            `json:"stageCount"`
	EdgeCount   int            `json:"edgeCount"`
}
