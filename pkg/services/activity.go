package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Activity manages the activities attached to workflow stages.
type Activity struct {
	base

	persistence persistence.Persistence
	validate    *validator.Validate
}

func NewActivity(persistence persistence.Persistence, opts ...Option) *Activity {
	return &Activity{
		base:        newBase("activity_service", opts),
		persistence: persistence,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// List returns every activity, or only those of workflowID when it is set.
func (a *Activity) List(ctx context.Context, workflowID string) ([]*models.Activity, error) {
	activities, err := a.persistence.ActivityRepository().List(ctx, strings.TrimSpace(workflowID))
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	return activities, nil
}

func (a *Activity) Create(ctx context.Context, activity *models.Activity) (*models.Activity, error) {
	err := a.check(ctx, "CreateActivity", activity)
	if err != nil {
		return nil, err
	}

	now := a.timestamp()
	activity.ID = uuid.New().String()
	activity.CreatedAt = now
	activity.UpdatedAt = now

	err = a.persistence.ActivityRepository().Save(ctx, activity)
	if err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}

	return activity, nil
}

func (a *Activity) Update(ctx context.Context, id string, activity *models.Activity) (*models.Activity, error) {
	existing, err := a.persistence.ActivityRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	err = a.check(ctx, "UpdateActivity", activity)
	if err != nil {
		return nil, err
	}

	activity.ID = id
	activity.CreatedAt = existing.CreatedAt
	activity.UpdatedAt = a.timestamp()

	err = a.persistence.ActivityRepository().Save(ctx, activity)
	if err != nil {
		return nil, fmt.Errorf("failed to update activity: %w", err)
	}

	return activity, nil
}

func (a *Activity) Delete(ctx context.Context, id string) error {
	return a.persistence.ActivityRepository().Delete(ctx, id)
}

// check validates the payload and that it points at an existing workflow and stage.
func (a *Activity) check(ctx context.Context, op string, activity *models.Activity) error {
	if activity == nil {
		return ErrInvalidRequest
	}

	err := a.validate.Struct(activity)
	if err != nil {
		return NewValidationError(op, "INVALID_ACTIVITY", err.Error(), ErrInvalidRequest)
	}

	workflow, err := a.persistence.WorkflowRepository().GetByID(ctx, activity.WorkflowID)
	if persistence.IsWorkflowNotFound(err) {
		return NewValidationError(op, "UNKNOWN_WORKFLOW", "workflow "+activity.WorkflowID+" does not exist", ErrUnknownWorkflow)
	}

	if err != nil {
		return err
	}

	if activity.StageID == "" {
		return nil
	}

	for _, node := range workflow.Nodes {
		if node.ID == activity.StageID {
			return nil
		}
	}

	return NewValidationError(op, "UNKNOWN_STAGE", "stage "+activity.StageID+" does not exist", ErrInvalidRequest)
}
