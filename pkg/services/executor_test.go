package services

import (
	"testing"
	"time"

	"github.com/dukex/stageflow/pkg/approval"
	"github.com/dukex/stageflow/pkg/events"
	"github.com/dukex/stageflow/pkg/metrics"
	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type executorFixture struct {
	clock     *fakeClock
	publisher *recordingPublisher
	workflows *Workflow
	executor  *Executor
	workflow  *models.Workflow
}

func newExecutorFixture(t *testing.T) *executorFixture {
	t.Helper()

	store := newTestPersistence(t)
	clock := &fakeClock{now: testNow}
	publisher := &recordingPublisher{}
	recorder := metrics.NewRecorder(metrics.Config{Registry: prometheus.NewRegistry()})

	fixture := &executorFixture{
		clock:     clock,
		publisher: publisher,
		workflows: NewWorkflow(store, WithClock(clock.Now)),
		executor:  NewExecutor(store, WithClock(clock.Now), WithPublisher(publisher), WithMetrics(recorder)),
	}

	workflow, err := fixture.workflows.Create(t.Context(), releaseWorkflow("Release"))
	require.NoError(t, err)

	fixture.workflow = workflow

	return fixture
}

func (f *executorFixture) request(t *testing.T) *models.PendingApproval {
	t.Helper()

	record, err := f.executor.RequestApproval(t.Context(), RequestApprovalRequest{
		WorkflowID:   f.workflow.ID,
		TransitionID: "qa-prod",
		RequestedBy:  "ci",
		Priority:     models.PriorityHigh,
	})
	require.NoError(t, err)

	return record
}

func TestExecutor_RequestApproval(t *testing.T) {
	f := newExecutorFixture(t)

	record := f.request(t)

	assert.Equal(t, f.workflow.ID, record.WorkflowID)
	assert.Equal(t, "Release", record.WorkflowName)
	assert.Equal(t, "prod", record.StageID)
	assert.Equal(t, "prod", record.StageName)
	assert.Equal(t, "prod-manager", record.Approver)
	assert.Equal(t, models.ApprovalStatusPending, record.Status)
	assert.Equal(t, "/workflows/"+f.workflow.ID, record.ViewURL)
	require.NotNil(t, record.ExpiresAt)
	assert.Equal(t, testNow.Add(24*time.Hour), *record.ExpiresAt)

	workflow, err := f.workflows.FetchByID(t.Context(), f.workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NodeStatusAwaitingApproval, findNode(workflow, "prod").Status)

	_, err = f.executor.RequestApproval(t.Context(), RequestApprovalRequest{WorkflowID: f.workflow.ID, TransitionID: "qa-prod", RequestedBy: "ci"})
	require.ErrorIs(t, err, ErrApprovalRequested)
	assert.True(t, IsConflictError(err))

	_, err = f.executor.RequestApproval(t.Context(), RequestApprovalRequest{WorkflowID: f.workflow.ID, TransitionID: "dev-qa", RequestedBy: "ci"})
	require.ErrorIs(t, err, ErrApprovalNotRequired)

	_, err = f.executor.RequestApproval(t.Context(), RequestApprovalRequest{WorkflowID: f.workflow.ID, TransitionID: "nope", RequestedBy: "ci"})
	require.ErrorIs(t, err, ErrUnknownTransition)

	_, err = f.executor.RequestApproval(t.Context(), RequestApprovalRequest{WorkflowID: f.workflow.ID, TransitionID: "qa-prod"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	published := f.publisher.Events()
	require.Len(t, published, 1)
	assert.Equal(t, events.ApprovalRequestedEvent, published[0].GetType())
}

func TestExecutor_Approve(t *testing.T) {
	f := newExecutorFixture(t)
	record := f.request(t)

	f.clock.Advance(time.Hour)

	decided, err := f.executor.Approve(t.Context(), record.ID, DecisionRequest{By: "bob", Comments: "ship it"})
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalStatusApproved, decided.Status)
	assert.Equal(t, "bob", decided.DecidedBy)
	assert.Equal(t, "ship it", decided.Comments)
	require.NotNil(t, decided.DecidedAt)
	assert.Equal(t, testNow.Add(time.Hour), *decided.DecidedAt)

	workflow, err := f.workflows.FetchByID(t.Context(), f.workflow.ID)
	require.NoError(t, err)

	edge := findEdge(workflow, "qa-prod")
	assert.Equal(t, models.ApprovalStatusApproved, edge.Status)
	assert.Equal(t, "bob", edge.ApprovedBy)
	assert.Equal(t, models.NodeStatusRunning, findNode(workflow, "prod").Status)

	pending, err := f.executor.PendingApprovals(t.Context())
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = f.executor.Reject(t.Context(), record.ID, DecisionRequest{By: "carol"})
	require.ErrorIs(t, err, ErrApprovalClosed)
	assert.True(t, IsConflictError(err))

	published := f.publisher.Events()
	require.Len(t, published, 2)

	decidedEvent, ok := published[1].(events.ApprovalDecided)
	require.True(t, ok)
	assert.Equal(t, record.ID, decidedEvent.ApprovalID)
	assert.Equal(t, models.ApprovalStatusApproved, decidedEvent.Status)
	assert.False(t, decidedEvent.Automatic)
}

func TestExecutor_Reject(t *testing.T) {
	f := newExecutorFixture(t)
	record := f.request(t)

	_, err := f.executor.Reject(t.Context(), record.ID, DecisionRequest{By: "  "})
	require.ErrorIs(t, err, ErrApproverRequired)
	assert.True(t, IsValidationError(err))

	decided, err := f.executor.Reject(t.Context(), record.ID, DecisionRequest{By: "bob", Comments: "tests flaky"})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusRejected, decided.Status)

	workflow, err := f.workflows.FetchByID(t.Context(), f.workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, approval.StateRejected, approval.StateOf(findEdge(workflow, "qa-prod")))
	assert.Equal(t, models.NodeStatusFailed, findNode(workflow, "prod").Status)

	_, err = f.executor.Approve(t.Context(), "missing", DecisionRequest{By: "bob"})
	require.ErrorIs(t, err, ErrApprovalNotFound)
	assert.True(t, IsNotFoundError(err))
}

func TestExecutor_ExpireApprovals(t *testing.T) {
	f := newExecutorFixture(t)
	record := f.request(t)

	approved, err := f.executor.ExpireApprovals(t.Context(), testNow.Add(23*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, approved)

	approved, err = f.executor.ExpireApprovals(t.Context(), testNow.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, approved)

	pending, err := f.executor.PendingApprovals(t.Context())
	require.NoError(t, err)
	assert.Empty(t, pending)

	workflow, err := f.workflows.FetchByID(t.Context(), f.workflow.ID)
	require.NoError(t, err)

	edge := findEdge(workflow, "qa-prod")
	assert.Equal(t, models.ApprovalStatusApproved, edge.Status)
	assert.Equal(t, approval.AutoApprover, edge.ApprovedBy)

	published := f.publisher.Events()
	decided, ok := published[len(published)-1].(events.ApprovalDecided)
	require.True(t, ok)
	assert.Equal(t, record.ID, decided.ApprovalID)
	assert.True(t, decided.Automatic)

	approved, err = f.executor.ExpireApprovals(t.Context(), testNow.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, approved)
}

func TestExecutor_ExpireSkipsGatesWithoutAutoApprove(t *testing.T) {
	f := newExecutorFixture(t)

	update := releaseWorkflow("Release")
	update.Edges[1].AutoApprove = false

	_, err := f.workflows.Update(t.Context(), f.workflow.ID, update)
	require.NoError(t, err)

	f.request(t)

	approved, err := f.executor.ExpireApprovals(t.Context(), testNow.Add(72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, approved)

	pending, err := f.executor.PendingApprovals(t.Context())
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestExecutor_ImplementsExpirer(t *testing.T) {
	var _ approval.Expirer = (*Executor)(nil)
}

func TestExecutor_Summary(t *testing.T) {
	f := newExecutorFixture(t)

	running := releaseWorkflow("Running")
	running.Nodes[0].Status = models.NodeStatusCompleted
	running.Nodes[1].Status = models.NodeStatusRunning

	_, err := f.workflows.Create(t.Context(), running)
	require.NoError(t, err)

	done := testutil.CreateTestWorkflow(testutil.WithWorkflowName("Done", "fully promoted"))
	done.Nodes = append(done.Nodes, &models.StageNode{ID: "end", Type: models.NodeTypeEnd, StageName: "end"})

	for _, node := range done.Nodes {
		if !node.IsPseudo() {
			node.Status = models.NodeStatusCompleted
		}
	}

	_, err = f.workflows.Create(t.Context(), done)
	require.NoError(t, err)

	f.request(t)

	summary, err := f.executor.Summary(t.Context())
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionSummary{Total: 3, Running: 1, Completed: 1, PendingApproval: 1}, summary)
}
