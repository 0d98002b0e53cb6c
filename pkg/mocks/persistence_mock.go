package mocks

import (
	"context"

	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) List(ctx context.Context, opts persistence.ListWorkflowsOptions) ([]*models.Workflow, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockActivityRepository is a mock implementation of persistence.ActivityRepository interface.
type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) List(ctx context.Context, workflowID string) ([]*models.Activity, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Activity), args.Error(1)
}

func (m *MockActivityRepository) GetByID(ctx context.Context, id string) (*models.Activity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Activity), args.Error(1)
}

func (m *MockActivityRepository) Save(ctx context.Context, activity *models.Activity) error {
	args := m.Called(ctx, activity)

	return args.Error(0)
}

func (m *MockActivityRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockMappingRepository is a mock implementation of persistence.MappingRepository interface.
type MockMappingRepository struct {
	mock.Mock
}

func (m *MockMappingRepository) List(ctx context.Context) ([]*models.WorkflowMapping, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowMapping), args.Error(1)
}

func (m *MockMappingRepository) GetByID(ctx context.Context, id string) (*models.WorkflowMapping, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowMapping), args.Error(1)
}

func (m *MockMappingRepository) Save(ctx context.Context, mapping *models.WorkflowMapping) error {
	args := m.Called(ctx, mapping)

	return args.Error(0)
}

func (m *MockMappingRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockFunctionalityRepository is a mock implementation of persistence.FunctionalityRepository interface.
type MockFunctionalityRepository struct {
	mock.Mock
}

func (m *MockFunctionalityRepository) List(ctx context.Context) ([]*models.Functionality, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Functionality), args.Error(1)
}

func (m *MockFunctionalityRepository) GetByID(ctx context.Context, id string) (*models.Functionality, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Functionality), args.Error(1)
}

func (m *MockFunctionalityRepository) Save(ctx context.Context, functionality *models.Functionality) error {
	args := m.Called(ctx, functionality)

	return args.Error(0)
}

// MockApprovalRepository is a mock implementation of persistence.ApprovalRepository interface.
type MockApprovalRepository struct {
	mock.Mock
}

func (m *MockApprovalRepository) List(ctx context.Context) ([]*models.PendingApproval, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.PendingApproval), args.Error(1)
}

func (m *MockApprovalRepository) GetByID(ctx context.Context, id string) (*models.PendingApproval, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.PendingApproval), args.Error(1)
}

func (m *MockApprovalRepository) Save(ctx context.Context, approval *models.PendingApproval) error {
	args := m.Called(ctx, approval)

	return args.Error(0)
}

func (m *MockApprovalRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	Workflows       *MockWorkflowRepository
	Activities      *MockActivityRepository
	Mappings        *MockMappingRepository
	Functionalities *MockFunctionalityRepository
	Approvals       *MockApprovalRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Workflows:       &MockWorkflowRepository{},
		Activities:      &MockActivityRepository{},
		Mappings:        &MockMappingRepository{},
		Functionalities: &MockFunctionalityRepository{},
		Approvals:       &MockApprovalRepository{},
	}
}

func (m *MockPersistence) WorkflowRepository() persistence.WorkflowRepository {
	return m.Workflows
}

func (m *MockPersistence) ActivityRepository() persistence.ActivityRepository {
	return m.Activities
}

func (m *MockPersistence) MappingRepository() persistence.MappingRepository {
	return m.Mappings
}

func (m *MockPersistence) FunctionalityRepository() persistence.FunctionalityRepository {
	return m.Functionalities
}

func (m *MockPersistence) ApprovalRepository() persistence.ApprovalRepository {
	return m.Approvals
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
