// Package metrics exposes stageflow counters to Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config holds the namespace and registry metrics are registered under.
type Config struct {
	Namespace string
	Registry  prometheus.Registerer
}

// Recorder records domain metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	simulationSteps   *prometheus.CounterVec
	simulationRuns    *prometheus.CounterVec
	approvalDecisions *prometheus.CounterVec
	approvalRequests  prometheus.Counter
	workflowWrites    *prometheus.CounterVec
}

// NewRecorder registers the stageflow metrics on config.Registry.
func NewRecorder(config Config) *Recorder {
	if config.Namespace == "" {
		config.Namespace = "stageflow"
	}

	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(config.Registry)

	return &Recorder{
		simulationSteps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "simulation_steps_total",
				Help:      "Simulated stage executions by final status",
			},
			[]string{"status"},
		),
		simulationRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "simulation_runs_total",
				Help:      "Simulation runs by outcome",
			},
			[]string{"outcome"},
		),
		approvalDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "approval_decisions_total",
				Help:      "Approval gate decisions by status and whether they were automatic",
			},
			[]string{"status", "automatic"},
		),
		approvalRequests: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "approval_requests_total",
				Help:      "Approvals requested on gated transitions",
			},
		),
		workflowWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "workflow_writes_total",
				Help:      "Workflow snapshots written by operation",
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) SimulationStep(status string) {
	if r == nil {
		return
	}

	r.simulationSteps.WithLabelValues(status).Inc()
}

func (r *Recorder) SimulationRun(outcome string) {
	if r == nil {
		return
	}

	r.simulationRuns.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ApprovalRequested() {
	if r == nil {
		return
	}

	r.approvalRequests.Inc()
}

func (r *Recorder) ApprovalDecided(status string, automatic bool) {
	if r == nil {
		return
	}

	r.approvalDecisions.WithLabelValues(status, strconv.FormatBool(automatic)).Inc()
}

// WorkflowWritten counts a create, update or delete of a workflow snapshot.
func (r *Recorder) WorkflowWritten(operation string) {
	if r == nil {
		return
	}

	r.workflowWrites.WithLabelValues(operation).Inc()
}
