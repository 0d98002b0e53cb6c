package simulator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dukex/stageflow/pkg/eventbus"
	"github.com/dukex/stageflow/pkg/events"
	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted returns its values in order, repeating the last one.
type scripted struct {
	values []float64
	next   int
}

func (s *scripted) Float64() float64 {
	value := s.values[min(s.next, len(s.values)-1)]
	s.next++

	return value
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()

	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return p.err
}

func workflowOf(names ...string) *models.Workflow {
	workflow := &models.Workflow{ID: "wf-1", Name: "release"}
	workflow.Nodes = append(workflow.Nodes, &models.StageNode{ID: "start", Type: models.NodeTypeStart, StageName: "start"})

	for _, name := range names {
		workflow.Nodes = append(workflow.Nodes, testutil.CreateTestStage(name, testutil.WithNodeID(name)))
	}

	workflow.Nodes = append(workflow.Nodes, &models.StageNode{ID: "end", Type: models.NodeTypeEnd, StageName: "end"})

	return workflow
}

func newSimulator(random Random, clock *fakeClock, opts ...Option) *Simulator {
	opts = append([]Option{
		WithRandom(random),
		WithClock(clock.Now),
		WithSleep(clock.Sleep),
	}, opts...)

	return New(DefaultConfig(), opts...)
}

func TestSteps_SkipsPseudoNodes(t *testing.T) {
	steps := Steps(workflowOf("A", "B"))

	require.Len(t, steps, 2)
	assert.Equal(t, "A", steps[0].ID)
	assert.Equal(t, "B", steps[1].ID)

	for _, step := range steps {
		assert.Equal(t, models.StepStatusPending, step.Status)
		assert.Nil(t, step.StartTime)
	}
}

func TestRun_AllStepsSucceed(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	// delay draw 0.5 gives 2.5s, outcome draw 0.1 succeeds.
	sim := newSimulator(&scripted{values: []float64{0.5, 0.1}}, clock)

	result, err := sim.Run(t.Context(), workflowOf("A", "B", "C"), nil)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Empty(t, result.FailedStepID)

	for _, step := range result.Steps {
		assert.Equal(t, models.StepStatusCompleted, step.Status)
		require.NotNil(t, step.EndTime)
		assert.Equal(t, 2500*time.Millisecond, step.Duration)
	}

	assert.Equal(t, 7500*time.Millisecond, result.FinishedAt.Sub(result.StartedAt))
}

func TestRun_FailureHalts(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	// A: delay, success. B: delay, failure (0.9 >= 0.85).
	sim := newSimulator(&scripted{values: []float64{0, 0.1, 1, 0.9}}, clock)

	var observed []models.ExecutionStep

	result, err := sim.Run(t.Context(), workflowOf("A", "B", "C"), func(step models.ExecutionStep) {
		observed = append(observed, step)
	})
	require.NoError(t, err, "a failed step is an outcome, not an error")

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, "B", result.FailedStepID)

	assert.Equal(t, models.StepStatusCompleted, result.Steps[0].Status)
	assert.Equal(t, 1500*time.Millisecond, result.Steps[0].Duration)

	assert.Equal(t, models.StepStatusFailed, result.Steps[1].Status)
	assert.NotEmpty(t, result.Steps[1].ErrorMessage)
	assert.Equal(t, 3500*time.Millisecond, result.Steps[1].Duration)

	assert.Equal(t, models.ExecutionStep{ID: "C", Name: "C", Status: models.StepStatusPending}, result.Steps[2])

	statuses := make([]string, 0, len(observed))
	for _, step := range observed {
		statuses = append(statuses, step.ID+":"+string(step.Status))
	}

	assert.Equal(t, []string{"A:running", "A:completed", "B:running", "B:failed"}, statuses)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	clock := &fakeClock{now: time.Now()}

	sleep := func(ctx context.Context, _ time.Duration) error {
		cancel()

		return ctx.Err()
	}

	sim := newSimulator(&scripted{values: []float64{0.5, 0.1}}, clock, WithSleep(sleep))

	result, err := sim.Run(ctx, workflowOf("A", "B"), nil)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, OutcomeCancelled, result.Outcome)
	assert.Equal(t, models.StepStatusPending, result.Steps[0].Status)
	assert.Nil(t, result.Steps[0].StartTime)
	assert.Equal(t, models.StepStatusPending, result.Steps[1].Status)
}

func TestRun_PublishesEvents(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	publisher := &recordingPublisher{err: errors.New("broker down")}
	sim := newSimulator(&scripted{values: []float64{0.5, 0.1}}, clock, WithPublisher(publisher))

	result, err := sim.Run(t.Context(), workflowOf("A"), nil)
	require.NoError(t, err, "publish failures do not fail the run")

	require.Len(t, publisher.events, 3)
	assert.Equal(t, events.SimulationStepUpdatedEvent, publisher.events[0].GetType())
	assert.Equal(t, events.SimulationStepUpdatedEvent, publisher.events[1].GetType())

	finished, ok := publisher.events[2].(events.SimulationFinished)
	require.True(t, ok)
	assert.Equal(t, result.RunID, finished.RunID)
	assert.Equal(t, string(OutcomeCompleted), finished.Outcome)
}

func TestNew_Defaults(t *testing.T) {
	sim := New(Config{})
	assert.Equal(t, DefaultConfig(), sim.Config())

	sim = New(Config{MinDelay: 2, MaxDelay: 1, SuccessRate: 1})
	assert.InDelta(t, 2.0, sim.Config().MaxDelay, 0)

	sim = New(Config{Unit: time.Millisecond, SuccessRate: 0})
	assert.Zero(t, sim.Config().SuccessRate)
	assert.InDelta(t, DefaultConfig().MinDelay, sim.Config().MinDelay, 0)

	sim = New(Config{Unit: time.Millisecond, SuccessRate: 1.7})
	assert.InDelta(t, 1.0, sim.Config().SuccessRate, 0)

	sim = New(Config{Unit: time.Millisecond, SuccessRate: -0.2})
	assert.Zero(t, sim.Config().SuccessRate)
}

func TestRun_ZeroSuccessRateFailsFirstStep(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	sim := New(Config{Unit: time.Second, SuccessRate: 0},
		WithRandom(&scripted{values: []float64{0}}), WithClock(clock.Now), WithSleep(clock.Sleep))

	result, err := sim.Run(t.Context(), workflowOf("A", "B"), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, result.Steps[0].ID, result.FailedStepID)
	assert.Equal(t, models.StepStatusPending, result.Steps[1].Status)
}

func TestRun_SuccessRateBounds(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	sim := New(Config{SuccessRate: 1}, WithRandom(&scripted{values: []float64{0.999}}), WithClock(clock.Now), WithSleep(clock.Sleep))

	result, err := sim.Run(t.Context(), workflowOf("A", "B"), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
}
