package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/persistence"
	"github.com/dukex/stageflow/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkflow(id, name string, status models.WorkflowStatus, updatedAt time.Time) *models.Workflow {
	return &models.Workflow{
		ID:        id,
		Name:      name,
		Version:   1,
		Status:    status,
		CreatedAt: updatedAt.Add(-time.Hour),
		UpdatedAt: updatedAt,
		Nodes: []*models.StageNode{
			{ID: "dev", Type: models.NodeTypeStage, StageName: "dev", Environment: "development", Status: models.NodeStatusNotStarted},
		},
		Edges: []*models.Transition{},
	}
}

func TestPersistence_WorkflowRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := file.NewPersistence("file://" + t.TempDir())
	repo := store.WorkflowRepository()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	workflow := newWorkflow("wf-1", "Release", models.WorkflowStatusDraft, now)

	require.NoError(t, repo.Save(ctx, workflow))

	loaded, err := repo.GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, workflow, loaded)

	workflow.Name = "Release v2"
	workflow.Version = 2
	require.NoError(t, repo.Save(ctx, workflow))

	loaded, err = repo.GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Release v2", loaded.Name)
	assert.Equal(t, 2, loaded.Version)

	require.NoError(t, repo.Delete(ctx, "wf-1"))

	_, err = repo.GetByID(ctx, "wf-1")
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = repo.Delete(ctx, "wf-1")
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestWorkflowRepository_List(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := file.NewPersistence(t.TempDir()).WorkflowRepository()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, newWorkflow("a", "Charlie", models.WorkflowStatusActive, base)))
	require.NoError(t, repo.Save(ctx, newWorkflow("b", "Alpha", models.WorkflowStatusDraft, base.Add(time.Hour))))
	require.NoError(t, repo.Save(ctx, newWorkflow("c", "Bravo", models.WorkflowStatusActive, base.Add(2*time.Hour))))

	ids := func(workflows []*models.Workflow) []string {
		out := make([]string, 0, len(workflows))
		for _, workflow := range workflows {
			out = append(out, workflow.ID)
		}

		return out
	}

	active := models.WorkflowStatusActive

	tests := []struct {
		name string
		opts persistence.ListWorkflowsOptions
		want []string
	}{
		{name: "defaults to updated_at desc", want: []string{"c", "b", "a"}},
		{name: "name asc", opts: persistence.ListWorkflowsOptions{SortBy: "name", SortOrder: "asc"}, want: []string{"b", "c", "a"}},
		{name: "created_at asc", opts: persistence.ListWorkflowsOptions{SortBy: "created_at", SortOrder: "asc"}, want: []string{"a", "b", "c"}},
		{name: "status filter", opts: persistence.ListWorkflowsOptions{Status: &active}, want: []string{"c", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			workflows, err := repo.List(ctx, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(workflows))
		})
	}

	_, err := repo.List(ctx, persistence.ListWorkflowsOptions{SortBy: "version"})
	require.ErrorIs(t, err, persistence.ErrInvalidSortField)

	_, err = repo.List(ctx, persistence.ListWorkflowsOptions{SortOrder: "sideways"})
	require.ErrorIs(t, err, persistence.ErrInvalidSortOrder)
}

func TestWorkflowRepository_ListEmptyRoot(t *testing.T) {
	t.Parallel()

	repo := file.NewPersistence(t.TempDir()).WorkflowRepository()

	workflows, err := repo.List(context.Background(), persistence.ListWorkflowsOptions{})
	require.NoError(t, err)
	assert.Empty(t, workflows)
}

func TestPersistence_RejectsUnsafeIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()
	repo := file.NewPersistence(root).WorkflowRepository()

	for _, id := range []string{"", "../escape", "nested/id", ".hidden"} {
		err := repo.Save(ctx, &models.Workflow{ID: id, Name: "x"})
		require.ErrorIs(t, err, persistence.ErrInvalidID, id)
	}

	_, err := os.Stat(filepath.Join(filepath.Dir(root), "escape.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestPersistence_Records(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	activities := store.ActivityRepository()
	require.NoError(t, activities.Save(ctx, &models.Activity{ID: "act-1", WorkflowID: "wf-1", Name: "Smoke tests", CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, activities.Save(ctx, &models.Activity{ID: "act-2", WorkflowID: "wf-2", Name: "Deploy", CreatedAt: now, UpdatedAt: now}))

	all, err := activities.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := activities.List(ctx, "wf-2")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "act-2", scoped[0].ID)

	require.NoError(t, activities.Delete(ctx, "act-1"))
	_, err = activities.GetByID(ctx, "act-1")
	require.ErrorIs(t, err, persistence.ErrActivityNotFound)
	assert.True(t, persistence.IsNotFound(err))

	functionalities := store.FunctionalityRepository()
	require.NoError(t, functionalities.Save(ctx, &models.Functionality{ID: "f-1", Name: "Checkout", Type: models.FunctionalityTypeFeature}))

	functionality, err := functionalities.GetByID(ctx, "f-1")
	require.NoError(t, err)
	assert.Equal(t, models.FunctionalityTypeFeature, functionality.Type)

	mappings := store.MappingRepository()
	mapping := &models.WorkflowMapping{
		ID:                "m-1",
		WorkflowID:        "wf-1",
		FunctionalityID:   "f-1",
		FunctionalityName: "Checkout",
		FunctionalityType: models.FunctionalityTypeFeature,
		CreatedAt:         now,
	}
	require.NoError(t, mappings.Save(ctx, mapping))

	listed, err := mappings.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*models.WorkflowMapping{mapping}, listed)

	require.NoError(t, mappings.Delete(ctx, "m-1"))
	require.ErrorIs(t, mappings.Delete(ctx, "m-1"), persistence.ErrMappingNotFound)

	approvals := store.ApprovalRepository()
	approval := &models.PendingApproval{
		ID:           "ap-1",
		WorkflowID:   "wf-1",
		TransitionID: "qa-prod",
		Approver:     "release-manager",
		Status:       models.ApprovalStatusPending,
		RequestedAt:  now,
	}
	require.NoError(t, approvals.Save(ctx, approval))

	loaded, err := approvals.GetByID(ctx, "ap-1")
	require.NoError(t, err)
	assert.Equal(t, approval, loaded)
	assert.True(t, loaded.IsOpen())
}

func TestPersistence_HealthCheck(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	require.NoError(t, file.NewPersistence(t.TempDir()).HealthCheck(ctx))
	require.Error(t, file.NewPersistence(filepath.Join(t.TempDir(), "missing")).HealthCheck(ctx))
	require.NoError(t, file.NewPersistence(t.TempDir()).Close(ctx))
}
