// Package web provides HTTP request and response types for the stageflow API.
package web

import "github.com/dukex/stageflow/pkg/models"

// WorkflowRequest is the full snapshot sent on create and update. Identity, version and
// timestamps are owned by the server.
type WorkflowRequest struct {
	Name        string                `json:"name"        validate:"required"`
	Description string                `json:"description"`
	Status      models.WorkflowStatus `json:"status"      validate:"omitempty,oneof=draft active inactive"`
	CreatedBy   string                `json:"createdBy"`
	Nodes       []*models.StageNode   `json:"nodes"`
	Edges       []*models.Transition  `json:"edges"`
}

// Workflow converts the request into a workflow model.
func (r WorkflowRequest) Workflow() *models.Workflow {
	return &models.Workflow{
		Name:        r.Name,
		Description: r.Description,
		Status:      r.Status,
		CreatedBy:   r.CreatedBy,
		Nodes:       r.Nodes,
		Edges:       r.Edges,
	}
}

// ActivityRequest represents the request body for creating or replacing an activity.
type ActivityRequest struct {
	WorkflowID  string            `json:"workflowId"  validate:"required"`
	StageID     string            `json:"stageId"`
	Name        string            `json:"name"        validate:"required"`
	Description string            `json:"description"`
	Type        string            `json:"type"`
	Config      map[string]string `json:"config"`
}

func (r ActivityRequest) Activity() *models.Activity {
	return &models.Activity{
		WorkflowID:  r.WorkflowID,
		StageID:     r.StageID,
		Name:        r.Name,
		Description: r.Description,
		Type:        r.Type,
		Config:      r.Config,
	}
}

// MappingRequest represents the request body for mapping a functionality onto a workflow.
type MappingRequest struct {
	WorkflowID        string                   `json:"workflowId"        validate:"required"`
	FunctionalityID   string                   `json:"functionalityId"   validate:"required"`
	FunctionalityName string                   `json:"functionalityName"`
	FunctionalityType models.FunctionalityType `json:"functionalityType" validate:"omitempty,oneof=feature alert task"`
}

func (r MappingRequest) Mapping() *models.WorkflowMapping {
	return &models.WorkflowMapping{
		WorkflowID:        r.WorkflowID,
		FunctionalityID:   r.FunctionalityID,
		FunctionalityName: r.FunctionalityName,
		FunctionalityType: r.FunctionalityType,
	}
}
