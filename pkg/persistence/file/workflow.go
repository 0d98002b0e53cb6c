package file

import (
	"context"

	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/persistence"
)

// WorkflowRepository stores workflow snapshots under <root>/workflows.
type WorkflowRepository struct {
	store *store[models.Workflow]
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{store: newStore[models.Workflow](root, "workflows", persistence.ErrWorkflowNotFound)}
}

// List returns filtered and sorted workflows with in-memory operations.
func (wr *WorkflowRepository) List(_ context.Context, opts persistence.ListWorkflowsOptions) ([]*models.Workflow, error) {
	err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	workflows, err := wr.store.all()
	if err != nil {
		return nil, err
	}

	workflows = persistence.FilterWorkflows(workflows, opts)
	persistence.SortWorkflows(workflows, opts)

	return workflows, nil
}

// GetByID retrieves a workflow by its ID from the file system.
func (wr *WorkflowRepository) GetByID(_ context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := wr.store.get(workflowID)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", workflowID, err)
	}

	return workflow, nil
}

// Save writes a workflow snapshot, replacing any previous version.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	err := wr.store.put(workflow.ID, workflow)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// Delete removes a workflow file.
func (wr *WorkflowRepository) Delete(_ context.Context, workflowID string) error {
	err := wr.store.remove(workflowID)
	if err != nil {
		return persistence.NewWorkflowError("Delete", workflowID, err)
	}

	return nil
}
