package mocks

import (
	"context"

	"github.com/dukex/stageflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockBackend is a mock of the REST backend as seen by the directory, mapping and monitor
// state managers.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) ListWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockBackend) DeleteWorkflow(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockBackend) ListMappings(ctx context.Context) ([]*models.WorkflowMapping, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowMapping), args.Error(1)
}

func (m *MockBackend) CreateMapping(ctx context.Context, mapping *models.WorkflowMapping) (*models.WorkflowMapping, error) {
	args := m.Called(ctx, mapping)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowMapping), args.Error(1)
}

func (m *MockBackend) DeleteMapping(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockBackend) Functionalities(ctx context.Context) ([]*models.Functionality, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Functionality), args.Error(1)
}

func (m *MockBackend) Summary(ctx context.Context) (models.ExecutionSummary, error) {
	args := m.Called(ctx)

	return args.Get(0).(models.ExecutionSummary), args.Error(1)
}

func (m *MockBackend) PendingApprovals(ctx context.Context) ([]*models.PendingApproval, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.PendingApproval), args.Error(1)
}

// MockConfirmer answers confirmation prompts.
type MockConfirmer struct {
	mock.Mock
}

func (m *MockConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	args := m.Called(ctx, prompt)

	return args.Bool(0), args.Error(1)
}
