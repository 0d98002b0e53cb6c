package simulator

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/stageflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blockingSimulator() *Simulator {
	return New(DefaultConfig(), WithSleep(func(ctx context.Context, _ time.Duration) error {
		<-ctx.Done()

		return ctx.Err()
	}))
}

func TestRunner_StartCancelsPrevious(t *testing.T) {
	runner := NewRunner(blockingSimulator())

	first := runner.Start(t.Context(), workflowOf("A"), nil)
	second := runner.Start(t.Context(), workflowOf("B"), nil)

	select {
	case <-first.Done():
	default:
		t.Fatal("first run should have finished before the second started")
	}

	result, err := first.Wait()
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomeCancelled, result.Outcome)

	runner.Stop()

	result, err = second.Wait()
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "B", result.Steps[0].ID)
}

func TestRunner_CompletesInBackground(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	runner := NewRunner(newSimulator(&scripted{values: []float64{0.5, 0.1}}, clock))

	steps := make(chan models.ExecutionStep, 10)
	run := runner.Start(t.Context(), workflowOf("A"), func(step models.ExecutionStep) {
		steps <- step
	})

	result, err := run.Wait()
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Len(t, steps, 2)

	runner.Stop()
}

func TestRun_Cancel(t *testing.T) {
	runner := NewRunner(blockingSimulator())
	run := runner.Start(t.Context(), workflowOf("A"), nil)

	run.Cancel()

	_, err := run.Wait()
	require.ErrorIs(t, err, context.Canceled)
}
