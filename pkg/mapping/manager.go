// Package mapping manages the assignment of workflows to external functionalities.
package mapping

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/dukex/stageflow/pkg/log"
	"github.com/dukex/stageflow/pkg/models"
	"github.com/go-playground/validator/v10"
)

var (
	ErrWorkflowRequired      = errors.New("workflow id is required")
	ErrFunctionalityRequired = errors.New("functionality is required")
	ErrInvalidMapping        = errors.New("invalid workflow mapping")
	ErrAlreadyMapped         = errors.New("workflow is already mapped to this functionality")
	ErrMappingNotFound       = errors.New("workflow mapping not found")
)

// Backend is the slice of the REST client the manager needs.
type Backend interface {
	ListMappings(ctx context.Context) ([]*models.WorkflowMapping, error)
	CreateMapping(ctx context.Context, mapping *models.WorkflowMapping) (*models.WorkflowMapping, error)
	DeleteMapping(ctx context.Context, id string) error
	Functionalities(ctx context.Context) ([]*models.Functionality, error)
}

type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Manager keeps the loaded mappings and functionality catalog in sync with the backend.
type Manager struct {
	mu              sync.RWMutex
	backend         Backend
	validate        *validator.Validate
	logger          *slog.Logger
	mappings        []*models.WorkflowMapping
	functionalities []*models.Functionality
}

func NewManager(backend Backend, logger *slog.Logger) *Manager {
	return &Manager{
		backend:  backend,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   log.OrDefault(logger, "mapping"),
	}
}

// Load replaces the local state with the backend's mappings and functionalities.
func (m *Manager) Load(ctx context.Context) error {
	mappings, err := m.backend.ListMappings(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to load workflow mappings", "error", err)

		return fmt.Errorf("failed to load workflow mappings: %w", err)
	}

	functionalities, err := m.backend.Functionalities(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to load functionalities", "error", err)

		return fmt.Errorf("failed to load functionalities: %w", err)
	}

	m.mu.Lock()
	m.mappings = mappings
	m.functionalities = functionalities
	m.mu.Unlock()

	m.logger.DebugContext(ctx, "Mappings loaded", "mappings", len(mappings), "functionalities", len(functionalities))

	return nil
}

func (m *Manager) Functionalities() []*models.Functionality {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.functionalities)
}

// Functionality looks up a loaded functionality by id.
func (m *Manager) Functionality(id string) (*models.Functionality, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, functionality := range m.functionalities {
		if functionality.ID == id {
			return functionality, true
		}
	}

	return nil, false
}

func (m *Manager) Mappings() []*models.WorkflowMapping {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.mappings)
}

// Assign maps workflowID to functionality. Invalid input and duplicates of a loaded mapping
// are rejected before any request is sent.
func (m *Manager) Assign(ctx context.Context, workflowID string, functionality *models.Functionality) (*models.WorkflowMapping, error) {
	workflowID = strings.TrimSpace(workflowID)
	if workflowID == "" {
		return nil, ErrWorkflowRequired
	}

	if functionality == nil {
		return nil, ErrFunctionalityRequired
	}

	mapping := &models.WorkflowMapping{
		WorkflowID:        workflowID,
		FunctionalityID:   functionality.ID,
		FunctionalityName: functionality.Name,
		FunctionalityType: functionality.Type,
	}

	err := m.validate.Struct(mapping)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMapping, err)
	}

	if m.isMapped(workflowID, functionality.ID) {
		return nil, ErrAlreadyMapped
	}

	created, err := m.backend.CreateMapping(ctx, mapping)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to create workflow mapping",
			"workflow_id", workflowID, "functionality_id", functionality.ID, "error", err)

		return nil, fmt.Errorf("failed to create workflow mapping: %w", err)
	}

	m.mu.Lock()
	m.mappings = append(m.mappings, created)
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Workflow mapped",
		"workflow_id", workflowID, "functionality_id", functionality.ID, "type", functionality.Type)

	return created, nil
}

func (m *Manager) isMapped(workflowID, functionalityID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.ContainsFunc(m.mappings, func(mapping *models.WorkflowMapping) bool {
		return mapping.WorkflowID == workflowID && mapping.FunctionalityID == functionalityID
	})
}

// Remove deletes a loaded mapping once the confirmer agrees. It reports false without error
// when the user declines.
func (m *Manager) Remove(ctx context.Context, id string, confirmer Confirmer) (bool, error) {
	mapping, ok := m.find(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrMappingNotFound, id)
	}

	confirmed, err := confirmer.Confirm(ctx, fmt.Sprintf("Remove mapping of workflow %s to %s %q?",
		mapping.WorkflowID, mapping.FunctionalityType, mapping.FunctionalityName))
	if err != nil {
		return false, fmt.Errorf("confirmation failed: %w", err)
	}

	if !confirmed {
		return false, nil
	}

	err = m.backend.DeleteMapping(ctx, id)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to delete workflow mapping", "mapping_id", id, "error", err)

		return false, fmt.Errorf("failed to delete workflow mapping: %w", err)
	}

	m.mu.Lock()
	m.mappings = slices.DeleteFunc(m.mappings, func(mapping *models.WorkflowMapping) bool {
		return mapping.ID == id
	})
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Workflow mapping removed", "mapping_id", id)

	return true, nil
}

func (m *Manager) find(id string) (*models.WorkflowMapping, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, mapping := range m.mappings {
		if mapping.ID == id {
			return mapping, true
		}
	}

	return nil, false
}

// ByType returns the loaded mappings of one functionality type, in load order.
func (m *Manager) ByType(functionalityType models.FunctionalityType) []*models.WorkflowMapping {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*models.WorkflowMapping

	for _, mapping := range m.mappings {
		if mapping.FunctionalityType == functionalityType {
			matched = append(matched, mapping)
		}
	}

	return matched
}

// Grouped returns the loaded mappings keyed by every known functionality type.
func (m *Manager) Grouped() map[models.FunctionalityType][]*models.WorkflowMapping {
	groups := make(map[models.FunctionalityType][]*models.WorkflowMapping, len(models.FunctionalityTypes))

	for _, functionalityType := range models.FunctionalityTypes {
		groups[functionalityType] = m.ByType(functionalityType)
	}

	return groups
}
