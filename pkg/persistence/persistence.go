// Package persistence provides the storage abstraction of the backend of record.
package persistence

import (
	"context"

	"github.com/dukex/stageflow/pkg/models"
)

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ActivityRepository() ActivityRepository
	MappingRepository() MappingRepository
	FunctionalityRepository() FunctionalityRepository
	ApprovalRepository() ApprovalRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListWorkflowsOptions filters and orders a workflow listing. Listings are never paginated
// server side; clients fetch everything and page locally.
type ListWorkflowsOptions struct {
	Status    *models.WorkflowStatus
	SortBy    string
	SortOrder string
}

// WorkflowSortFields lists the fields a workflow listing may be ordered by.
var WorkflowSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"name":       true,
}

// Normalize applies defaults and checks the sort field against WorkflowSortFields.
func (o *ListWorkflowsOptions) Normalize() error {
	if o.SortBy == "" {
		o.SortBy = "updated_at"
	}

	if o.SortOrder == "" {
		o.SortOrder = "desc"
	}

	if !WorkflowSortFields[o.SortBy] {
		return ErrInvalidSortField
	}

	if o.SortOrder != "asc" && o.SortOrder != "desc" {
		return ErrInvalidSortOrder
	}

	return nil
}

type WorkflowRepository interface {
	List(ctx context.Context, opts ListWorkflowsOptions) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

type ActivityRepository interface {
	// List returns every activity, or only those of workflowID when it is not empty.
	List(ctx context.Context, workflowID string) ([]*models.Activity, error)
	GetByID(ctx context.Context, id string) (*models.Activity, error)
	Save(ctx context.Context, activity *models.Activity) error
	Delete(ctx context.Context, id string) error
}

type MappingRepository interface {
	List(ctx context.Context) ([]*models.WorkflowMapping, error)
	GetByID(ctx context.Context, id string) (*models.WorkflowMapping, error)
	Save(ctx context.Context, mapping *models.WorkflowMapping) error
	Delete(ctx context.Context, id string) error
}

type FunctionalityRepository interface {
	List(ctx context.Context) ([]*models.Functionality, error)
	GetByID(ctx context.Context, id string) (*models.Functionality, error)
	Save(ctx context.Context, functionality *models.Functionality) error
}

type ApprovalRepository interface {
	List(ctx context.Context) ([]*models.PendingApproval, error)
	GetByID(ctx context.Context, id string) (*models.PendingApproval, error)
	Save(ctx context.Context, approval *models.PendingApproval) error
	Delete(ctx context.Context, id string) error
}
