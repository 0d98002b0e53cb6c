//go:build integration

package web_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/persistence/postgresql"
	"github.com/dukex/stageflow/pkg/services"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupIntegrationStore(t *testing.T) *postgresql.Persistence {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("stageflow_integration"),
		postgres.WithUsername("stageflow"),
		postgres.WithPassword("stageflow"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	databaseURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := postgresql.NewPersistence(ctx, slog.Default(), databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close(context.Background()) })

	return store
}

func TestWorkflowApproval_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	store := setupIntegrationStore(t)
	app := newTestApp(store)

	workflow := createWorkflow(t, app, "Integration Release")

	status, body := doJSON(t, app, http.MethodPost, "/workflow-executors/pending-approvals", services.RequestApprovalRequest{
		WorkflowID:   workflow.ID,
		TransitionID: "qa-prod",
		RequestedBy:  "ci",
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	var record models.PendingApproval
	require.NoError(t, json.Unmarshal(body, &record))

	status, body = doJSON(t, app, http.MethodPost, "/workflow-executors/pending-approvals/"+record.ID+"/reject",
		services.DecisionRequest{By: "bob", Comments: "not today"})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = doJSON(t, app, http.MethodGet, "/workflows/"+workflow.ID, nil)
	require.Equal(t, http.StatusOK, status)

	var stored models.Workflow
	require.NoError(t, json.Unmarshal(body, &stored))
	require.Len(t, stored.Edges, 1)
	assert.Equal(t, models.ApprovalStatusRejected, stored.Edges[0].Status)
	assert.Equal(t, "bob", stored.Edges[0].ApprovedBy)

	status, _ = doJSON(t, app, http.MethodDelete, "/workflows/"+workflow.ID, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = doJSON(t, app, http.MethodGet, "/workflow-executors/pending-approvals", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "[]", string(body))
}
