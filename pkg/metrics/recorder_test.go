package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue returns the value of the counter series name with the given labels.
func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := registry.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}

	metrics:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue metrics
				}
			}

			return metric.GetCounter().GetValue()
		}
	}

	return 0
}

func TestRecorder(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(Config{Registry: registry})

	recorder.SimulationStep("completed")
	recorder.SimulationStep("completed")
	recorder.SimulationStep("failed")
	recorder.SimulationRun("failed")
	recorder.ApprovalRequested()
	recorder.ApprovalDecided("approved", true)
	recorder.WorkflowWritten("update")

	assert.InDelta(t, 2, counterValue(t, registry, "stageflow_simulation_steps_total", map[string]string{"status": "completed"}), 0)
	assert.InDelta(t, 1, counterValue(t, registry, "stageflow_simulation_steps_total", map[string]string{"status": "failed"}), 0)
	assert.InDelta(t, 1, counterValue(t, registry, "stageflow_simulation_runs_total", map[string]string{"outcome": "failed"}), 0)
	assert.InDelta(t, 1, counterValue(t, registry, "stageflow_approval_requests_total", nil), 0)
	assert.InDelta(t, 1, counterValue(t, registry, "stageflow_approval_decisions_total", map[string]string{"status": "approved", "automatic": "true"}), 0)
	assert.InDelta(t, 1, counterValue(t, registry, "stageflow_workflow_writes_total", map[string]string{"operation": "update"}), 0)
}

func TestNilRecorder(t *testing.T) {
	var recorder *Recorder

	assert.NotPanics(t, func() {
		recorder.SimulationStep("completed")
		recorder.SimulationRun("completed")
		recorder.ApprovalRequested()
		recorder.ApprovalDecided("rejected", false)
		recorder.WorkflowWritten("create")
	})
}
