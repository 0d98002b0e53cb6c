package file

import (
	"context"

	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/persistence"
)

// ActivityRepository stores activities under <root>/activities.
type ActivityRepository struct {
	store *store[models.Activity]
}

func NewActivityRepository(root string) *ActivityRepository {
	return &ActivityRepository{store: newStore[models.Activity](root, "activities", persistence.ErrActivityNotFound)}
}

func (r *ActivityRepository) List(_ context.Context, workflowID string) ([]*models.Activity, error) {
	activities, err := r.store.all()
	if err != nil {
		return nil, err
	}

	if workflowID == "" {
		return activities, nil
	}

	filtered := make([]*models.Activity, 0, len(activities))

	for _, activity := range activities {
		if activity.WorkflowID == workflowID {
			filtered = append(filtered, activity)
		}
	}

	return filtered, nil
}

func (r *ActivityRepository) GetByID(_ context.Context, id string) (*models.Activity, error) {
	activity, err := r.store.get(id)
	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "activity", id, err)
	}

	return activity, nil
}

func (r *ActivityRepository) Save(_ context.Context, activity *models.Activity) error {
	err := r.store.put(activity.ID, activity)
	if err != nil {
		return persistence.NewRecordError("Save", "activity", activity.ID, err)
	}

	return nil
}

func (r *ActivityRepository) Delete(_ context.Context, id string) error {
	err := r.store.remove(id)
	if err != nil {
		return persistence.NewRecordError("Delete", "activity", id, err)
	}

	return nil
}

// MappingRepository stores workflow mappings under <root>/workflow-mappings.
type MappingRepository struct {
	store *store[models.WorkflowMapping]
}

func NewMappingRepository(root string) *MappingRepository {
	return &MappingRepository{store: newStore[models.WorkflowMapping](root, "workflow-mappings", persistence.ErrMappingNotFound)}
}

func (r *MappingRepository) List(_ context.Context) ([]*models.WorkflowMapping, error) {
	return r.store.all()
}

func (r *MappingRepository) GetByID(_ context.Context, id string) (*models.WorkflowMapping, error) {
	mapping, err := r.store.get(id)
	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "mapping", id, err)
	}

	return mapping, nil
}

func (r *MappingRepository) Save(_ context.Context, mapping *models.WorkflowMapping) error {
	err := r.store.put(mapping.ID, mapping)
	if err != nil {
		return persistence.NewRecordError("Save", "mapping", mapping.ID, err)
	}

	return nil
}

func (r *MappingRepository) Delete(_ context.Context, id string) error {
	err := r.store.remove(id)
	if err != nil {
		return persistence.NewRecordError("Delete", "mapping", id, err)
	}

	return nil
}

// FunctionalityRepository stores the functionality catalog under <root>/functionalities.
type FunctionalityRepository struct {
	store *store[models.Functionality]
}

func NewFunctionalityRepository(root string) *FunctionalityRepository {
	return &FunctionalityRepository{store: newStore[models.Functionality](root, "functionalities", persistence.ErrFunctionalityNotFound)}
}

func (r *FunctionalityRepository) List(_ context.Context) ([]*models.Functionality, error) {
	return r.store.all()
}

func (r *FunctionalityRepository) GetByID(_ context.Context, id string) (*models.Functionality, error) {
	functionality, err := r.store.get(id)
	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "functionality", id, err)
	}

	return functionality, nil
}

func (r *FunctionalityRepository) Save(_ context.Context, functionality *models.Functionality) error {
	err := r.store.put(functionality.ID, functionality)
	if err != nil {
		return persistence.NewRecordError("Save", "functionality", functionality.ID, err)
	}

	return nil
}

// ApprovalRepository stores pending approval records under <root>/approvals.
type ApprovalRepository struct {
	store *store[models.PendingApproval]
}

func NewApprovalRepository(root string) *ApprovalRepository {
	return &ApprovalRepository{store: newStore[models.PendingApproval](root, "approvals", persistence.ErrApprovalNotFound)}
}

func (r *ApprovalRepository) List(_ context.Context) ([]*models.PendingApproval, error) {
	return r.store.all()
}

func (r *ApprovalRepository) GetByID(_ context.Context, id string) (*models.PendingApproval, error) {
	approval, err := r.store.get(id)
	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "approval", id, err)
	}

	return approval, nil
}

func (r *ApprovalRepository) Save(_ context.Context, approval *models.PendingApproval) error {
	err := r.store.put(approval.ID, approval)
	if err != nil {
		return persistence.NewRecordError("Save", "approval", approval.ID, err)
	}

	return nil
}

func (r *ApprovalRepository) Delete(_ context.Context, id string) error {
	err := r.store.remove(id)
	if err != nil {
		return persistence.NewRecordError("Delete", "approval", id, err)
	}

	return nil
}
