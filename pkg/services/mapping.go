package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Mapping assigns catalog functionalities to workflows.
type Mapping struct {
	base

	persistence persistence.Persistence
	validate    *validator.Validate
}

func NewMapping(persistence persistence.Persistence, opts ...Option) *Mapping {
	return &Mapping{
		base:        newBase("mapping_service", opts),
		persistence: persistence,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (m *Mapping) List(ctx context.Context) ([]*models.WorkflowMapping, error) {
	mappings, err := m.persistence.MappingRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow mappings: %w", err)
	}

	return mappings, nil
}

// Create maps a functionality onto a workflow. Name and type default to the catalog entry.
func (m *Mapping) Create(ctx context.Context, mapping *models.WorkflowMapping) (*models.WorkflowMapping, error) {
	if mapping == nil {
		return nil, ErrInvalidRequest
	}

	_, err := m.persistence.WorkflowRepository().GetByID(ctx, mapping.WorkflowID)
	if persistence.IsWorkflowNotFound(err) {
		return nil, NewValidationError("CreateMapping", "UNKNOWN_WORKFLOW", "workflow "+mapping.WorkflowID+" does not exist", ErrUnknownWorkflow)
	}

	if err != nil {
		return nil, err
	}

	functionality, err := m.persistence.FunctionalityRepository().GetByID(ctx, mapping.FunctionalityID)
	if persistence.IsNotFound(err) {
		return nil, NewValidationError("CreateMapping", "UNKNOWN_FUNCTIONALITY",
			"functionality "+mapping.FunctionalityID+" does not exist", ErrUnknownFunctionality)
	}

	if err != nil {
		return nil, err
	}

	if mapping.FunctionalityName == "" {
		mapping.FunctionalityName = functionality.Name
	}

	if mapping.FunctionalityType == "" {
		mapping.FunctionalityType = functionality.Type
	}

	err = m.validate.Struct(mapping)
	if err != nil {
		return nil, NewValidationError("CreateMapping", "INVALID_MAPPING", err.Error(), ErrInvalidRequest)
	}

	existing, err := m.persistence.MappingRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow mappings: %w", err)
	}

	for _, other := range existing {
		if other.WorkflowID == mapping.WorkflowID && other.FunctionalityID == mapping.FunctionalityID {
			return nil, ErrMappingExists
		}
	}

	mapping.ID = uuid.New().String()
	mapping.CreatedAt = m.timestamp()

	err = m.persistence.MappingRepository().Save(ctx, mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow mapping: %w", err)
	}

	m.logger.InfoContext(ctx, "Functionality mapped",
		"workflow_id", mapping.WorkflowID, "functionality_id", mapping.FunctionalityID)

	return mapping, nil
}

func (m *Mapping) Delete(ctx context.Context, id string) error {
	return m.persistence.MappingRepository().Delete(ctx, id)
}

// Functionalities returns the catalog ordered by name.
func (m *Mapping) Functionalities(ctx context.Context) ([]*models.Functionality, error) {
	functionalities, err := m.persistence.FunctionalityRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list functionalities: %w", err)
	}

	sort.SliceStable(functionalities, func(i, j int) bool {
		return functionalities[i].Name < functionalities[j].Name
	})

	return functionalities, nil
}

// RegisterFunctionality adds or replaces a catalog entry.
func (m *Mapping) RegisterFunctionality(ctx context.Context, functionality *models.Functionality) error {
	if functionality == nil {
		return ErrInvalidRequest
	}

	err := m.validate.Struct(functionality)
	if err != nil {
		return NewValidationError("RegisterFunctionality", "INVALID_FUNCTIONALITY", err.Error(), ErrInvalidRequest)
	}

	return m.persistence.FunctionalityRepository().Save(ctx, functionality)
}
