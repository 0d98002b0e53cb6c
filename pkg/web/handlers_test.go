package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/persistence"
	"github.com/dukex/stageflow/pkg/persistence/file"
	"github.com/dukex/stageflow/pkg/services"
	"github.com/dukex/stageflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(store persistence.Persistence) *fiber.App {
	handlers := web.NewAPIHandlers(
		services.NewWorkflow(store),
		services.NewActivity(store),
		services.NewMapping(store),
		services.NewExecutor(store),
		validator.New(validator.WithRequiredStructEnabled()),
	)

	app := fiber.New()
	handlers.Register(app)

	return app
}

func setupTestApp(t *testing.T) (*fiber.App, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	return newTestApp(store), store
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload any) (int, []byte) {
	t.Helper()

	var body io.Reader

	switch p := payload.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(p)
	default:
		encoded, err := json.Marshal(p)
		require.NoError(t, err)

		body = bytes.NewBuffer(encoded)
	}

	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, raw
}

func releaseRequest(name string) web.WorkflowRequest {
	return web.WorkflowRequest{
		Name:        name,
		Description: "promote to production",
		CreatedBy:   "alice",
		Nodes: []*models.StageNode{
			{ID: "qa", Type: models.NodeTypeStage, StageName: "qa", Environment: "testing", Status: models.NodeStatusNotStarted},
			{ID: "prod", Type: models.NodeTypeStage, StageName: "prod", Environment: "production", Status: models.NodeStatusNotStarted},
		},
		Edges: []*models.Transition{
			{ID: "qa-prod", Source: "qa", Target: "prod", RequiresApproval: true, ApproverRole: "prod-manager", ApprovalTimeoutHours: "24", Status: models.ApprovalStatusPending},
		},
	}
}

func createWorkflow(t *testing.T, app *fiber.App, name string) models.Workflow {
	t.Helper()

	status, body := doJSON(t, app, http.MethodPost, "/workflows", releaseRequest(name))
	require.Equal(t, http.StatusCreated, status, string(body))

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))

	return workflow
}

func decodeProblem(t *testing.T, body []byte) map[string]any {
	t.Helper()

	var problem map[string]any
	require.NoError(t, json.Unmarshal(body, &problem))

	return problem
}

func TestAPIHandlers_CreateWorkflow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		expectedType   string
	}{
		{
			name:           "successful creation",
			requestBody:    releaseRequest("Release"),
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing name",
			requestBody:    web.WorkflowRequest{Description: "no name"},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
		{
			name: "dangling edge",
			requestBody: web.WorkflowRequest{
				Name:  "Broken",
				Edges: []*models.Transition{{ID: "a-b", Source: "a", Target: "b"}},
			},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
		{
			name:           "null edge",
			requestBody:    `{"name":"x","edges":[null]}`,
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
		{
			name:           "null node",
			requestBody:    `{"name":"x","nodes":[null]}`,
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid-json",
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _ := setupTestApp(t)

			status, body := doJSON(t, app, http.MethodPost, "/workflows", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, status, string(body))

			if tt.expectedType != "" {
				assert.Equal(t, tt.expectedType, decodeProblem(t, body)["type"])

				return
			}

			var workflow models.Workflow
			require.NoError(t, json.Unmarshal(body, &workflow))
			assert.NotEmpty(t, workflow.ID)
			assert.Equal(t, 1, workflow.Version)
			assert.Equal(t, models.WorkflowStatusDraft, workflow.Status)
			assert.Len(t, workflow.Nodes, 2)
		})
	}
}

func TestAPIHandlers_WorkflowLifecycle(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)
	created := createWorkflow(t, app, "Release")

	status, body := doJSON(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	require.Equal(t, http.StatusOK, status)

	var fetched models.Workflow
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, created.ID, fetched.ID)

	update := releaseRequest("Release v2")
	update.Status = models.WorkflowStatusActive

	status, body = doJSON(t, app, http.MethodPut, "/workflows/"+created.ID, update)
	require.Equal(t, http.StatusOK, status, string(body))

	var updated models.Workflow
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "Release v2", updated.Name)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, models.WorkflowStatusActive, updated.Status)

	status, body = doJSON(t, app, http.MethodGet, "/workflows?status=active", nil)
	require.Equal(t, http.StatusOK, status)

	var listed []models.Workflow
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed, 1)

	status, body = doJSON(t, app, http.MethodGet, "/workflows?sort_by=owner", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", decodeProblem(t, body)["type"])

	status, _ = doJSON(t, app, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "workflow_not_found", decodeProblem(t, body)["type"])

	status, _ = doJSON(t, app, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPIHandlers_GetWorkflowsEmpty(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/workflows", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "[]", string(body))
}

func TestAPIHandlers_Activities(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)
	workflow := createWorkflow(t, app, "Release")

	status, body := doJSON(t, app, http.MethodPost, "/activities", web.ActivityRequest{
		WorkflowID: workflow.ID,
		StageID:    "qa",
		Name:       "Regression",
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	var activity models.Activity
	require.NoError(t, json.Unmarshal(body, &activity))

	status, body = doJSON(t, app, http.MethodPut, "/activities/"+activity.ID, web.ActivityRequest{
		WorkflowID: workflow.ID,
		StageID:    "qa",
		Name:       "Smoke",
	})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = doJSON(t, app, http.MethodGet, "/activities?workflowId="+workflow.ID, nil)
	require.Equal(t, http.StatusOK, status)

	var activities []models.Activity
	require.NoError(t, json.Unmarshal(body, &activities))
	require.Len(t, activities, 1)
	assert.Equal(t, "Smoke", activities[0].Name)

	status, _ = doJSON(t, app, http.MethodPost, "/activities", web.ActivityRequest{Name: "orphan"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, app, http.MethodDelete, "/activities/"+activity.ID, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = doJSON(t, app, http.MethodDelete, "/activities/"+activity.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "activity_not_found", decodeProblem(t, body)["type"])
}

func TestAPIHandlers_Mappings(t *testing.T) {
	t.Parallel()

	app, store := setupTestApp(t)
	workflow := createWorkflow(t, app, "Release")

	require.NoError(t, store.FunctionalityRepository().Save(t.Context(),
		&models.Functionality{ID: "checkout", Name: "Checkout", Type: models.FunctionalityTypeFeature}))

	status, body := doJSON(t, app, http.MethodGet, "/functionalities", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[{"id":"checkout","name":"Checkout","type":"feature"}]`, string(body))

	request := web.MappingRequest{WorkflowID: workflow.ID, FunctionalityID: "checkout"}

	status, body = doJSON(t, app, http.MethodPost, "/workflow-mappings", request)
	require.Equal(t, http.StatusCreated, status, string(body))

	var mapping models.WorkflowMapping
	require.NoError(t, json.Unmarshal(body, &mapping))
	assert.Equal(t, "Checkout", mapping.FunctionalityName)

	status, body = doJSON(t, app, http.MethodPost, "/workflow-mappings", request)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", decodeProblem(t, body)["type"])

	status, body = doJSON(t, app, http.MethodGet, "/workflow-mappings", nil)
	require.Equal(t, http.StatusOK, status)

	var mappings []models.WorkflowMapping
	require.NoError(t, json.Unmarshal(body, &mappings))
	assert.Len(t, mappings, 1)

	status, _ = doJSON(t, app, http.MethodDelete, "/workflow-mappings/"+mapping.ID, nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestAPIHandlers_Approvals(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)
	workflow := createWorkflow(t, app, "Release")

	status, body := doJSON(t, app, http.MethodPost, "/workflow-executors/pending-approvals", services.RequestApprovalRequest{
		WorkflowID:   workflow.ID,
		TransitionID: "qa-prod",
		RequestedBy:  "ci",
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	var record models.PendingApproval
	require.NoError(t, json.Unmarshal(body, &record))

	status, body = doJSON(t, app, http.MethodGet, "/workflow-executors/pending-approvals", nil)
	require.Equal(t, http.StatusOK, status)

	var pending []models.PendingApproval
	require.NoError(t, json.Unmarshal(body, &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "prod-manager", pending[0].Approver)

	status, body = doJSON(t, app, http.MethodGet, "/workflow-executors/workflow-summary", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"total":1,"running":0,"completed":0,"pendingApproval":1}`, string(body))

	status, _ = doJSON(t, app, http.MethodPost, "/workflow-executors/pending-approvals/"+record.ID+"/approve", services.DecisionRequest{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = doJSON(t, app, http.MethodPost, "/workflow-executors/pending-approvals/"+record.ID+"/approve",
		services.DecisionRequest{By: "bob", Comments: "go"})
	require.Equal(t, http.StatusOK, status, string(body))

	var decided models.PendingApproval
	require.NoError(t, json.Unmarshal(body, &decided))
	assert.Equal(t, models.ApprovalStatusApproved, decided.Status)

	status, body = doJSON(t, app, http.MethodPost, "/workflow-executors/pending-approvals/"+record.ID+"/reject",
		services.DecisionRequest{By: "carol"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", decodeProblem(t, body)["type"])

	status, body = doJSON(t, app, http.MethodPost, "/workflow-executors/pending-approvals/missing/reject",
		services.DecisionRequest{By: "carol"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "approval_not_found", decodeProblem(t, body)["type"])
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, status)

	var health map[string]any
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health["status"])
}
