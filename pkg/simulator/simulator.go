// Package simulator walks a saved workflow stage by stage, producing a time-ordered run
// with randomized durations and outcomes.
package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/dukex/stageflow/pkg/eventbus"
	"github.com/dukex/stageflow/pkg/events"
	"github.com/dukex/stageflow/pkg/log"
	"github.com/dukex/stageflow/pkg/metrics"
	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/otelhelper"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Config controls step timing and the failure rate. Each step waits between MinDelay and
// MaxDelay Units and succeeds with probability SuccessRate.
type Config struct {
	MinDelay    float64
	MaxDelay    float64
	Unit        time.Duration
	SuccessRate float64
}

// DefaultConfig waits 1.5 to 3.5 seconds per step and succeeds 85% of the time.
func DefaultConfig() Config {
	return Config{
		MinDelay:    1.5,
		MaxDelay:    3.5,
		Unit:        time.Second,
		SuccessRate: 0.85,
	}
}

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Observer receives a copy of a step each time its status changes.
type Observer func(step models.ExecutionStep)

// Random is the source of delays and outcomes. *rand.Rand satisfies it.
type Random interface {
	Float64() float64
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Result is the final state of a run.
type Result struct {
	RunID        string                 `json:"runId"`
	WorkflowID   string                 `json:"workflowId"`
	Outcome      Outcome                `json:"outcome"`
	FailedStepID string                 `json:"failedStepId,omitempty"`
	Steps        []models.ExecutionStep `json:"steps"`
	StartedAt    time.Time              `json:"startedAt"`
	FinishedAt   time.Time              `json:"finishedAt"`
}

// Option configures a Simulator.
type Option func(*Simulator)

func WithRandom(random Random) Option {
	return func(s *Simulator) { s.random = random }
}

func WithSleep(sleep SleepFunc) Option {
	return func(s *Simulator) { s.sleep = sleep }
}

func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Simulator) { s.tracer = tracer }
}

// WithPublisher publishes step and completion events. Publish failures are logged and
// never interrupt a run.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(s *Simulator) { s.publisher = publisher }
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(s *Simulator) { s.metrics = recorder }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) { s.logger = logger }
}

// Simulator runs workflows one step at a time. Runs on a single Simulator must not
// overlap; use a Runner to serialize them.
type Simulator struct {
	config Config

	mu     sync.Mutex
	random Random

	sleep     SleepFunc
	now       func() time.Time
	tracer    trace.Tracer
	publisher eventbus.EventPublisher
	metrics   *metrics.Recorder
	logger    *slog.Logger
}

// New creates a simulator. A zero Config means DefaultConfig. Otherwise a zero Unit or
// delay range falls back to the default, while SuccessRate is taken as given and clamped
// to [0, 1], so 0 fails every step.
func New(config Config, opts ...Option) *Simulator {
	defaults := DefaultConfig()

	if config == (Config{}) {
		config = defaults
	}

	if config.Unit <= 0 {
		config.Unit = defaults.Unit
	}

	if config.MinDelay <= 0 && config.MaxDelay <= 0 {
		config.MinDelay = defaults.MinDelay
		config.MaxDelay = defaults.MaxDelay
	}

	if config.MaxDelay < config.MinDelay {
		config.MaxDelay = config.MinDelay
	}

	config.SuccessRate = min(max(config.SuccessRate, 0), 1)

	s := &Simulator{
		config: config,
		random: rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:  sleepContext,
		now:    time.Now,
		tracer: otelhelper.Tracer("stageflow/simulator"),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = log.OrDefault(s.logger, "simulator")

	return s
}

// Config returns the effective configuration.
func (s *Simulator) Config() Config {
	return s.config
}

// Steps derives fresh pending steps from the workflow's stage nodes in order, skipping
// start and end markers.
func Steps(workflow *models.Workflow) []models.ExecutionStep {
	steps := make([]models.ExecutionStep, 0, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		if node.IsPseudo() {
			continue
		}

		name := node.Label
		if name == "" {
			name = node.StageName
		}

		steps = append(steps, models.ExecutionStep{
			ID:     node.ID,
			Name:   name,
			Status: models.StepStatusPending,
		})
	}

	return steps
}

// Run executes every step in order until one fails or ctx is cancelled. A failed step is
// reported in the Result, not as an error. On cancellation the in-flight step returns to
// pending and ctx.Err() is returned alongside the partial result.
func (s *Simulator) Run(ctx context.Context, workflow *models.Workflow, observe Observer) (*Result, error) {
	if observe == nil {
		observe = func(models.ExecutionStep) {}
	}

	result := &Result{
		RunID:      uuid.NewString(),
		WorkflowID: workflow.ID,
		Steps:      Steps(workflow),
		StartedAt:  s.now().UTC(),
	}

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "simulator.run",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
		attribute.String(otelhelper.RunIDKey, result.RunID),
	)
	defer span.End()

	logger := s.logger.With("workflow_id", workflow.ID, "run_id", result.RunID)
	logger.InfoContext(ctx, "Starting simulation", "steps", len(result.Steps))

	result.Outcome = OutcomeCompleted

	for i := range result.Steps {
		emit := func() {
			step := result.Steps[i]
			observe(step)
			s.publish(ctx, logger, workflow.ID, events.SimulationStepUpdated{
				BaseEvent: events.NewBaseEvent(events.SimulationStepUpdatedEvent, workflow.ID),
				RunID:     result.RunID,
				Step:      step,
			})
		}

		succeeded, err := s.runStep(ctx, &result.Steps[i], emit)
		if err != nil {
			result.Outcome = OutcomeCancelled
			otelhelper.SetError(span, err)

			break
		}

		if !succeeded {
			result.Outcome = OutcomeFailed
			result.FailedStepID = result.Steps[i].ID
			otelhelper.SetFailure(span, result.Steps[i].ErrorMessage)

			break
		}
	}

	result.FinishedAt = s.now().UTC()
	span.SetAttributes(attribute.String("stageflow.run.outcome", string(result.Outcome)))

	s.metrics.SimulationRun(string(result.Outcome))
	s.publish(ctx, logger, workflow.ID, events.SimulationFinished{
		BaseEvent:    events.NewBaseEvent(events.SimulationFinishedEvent, workflow.ID),
		RunID:        result.RunID,
		Outcome:      string(result.Outcome),
		FailedStepID: result.FailedStepID,
		Duration:     result.FinishedAt.Sub(result.StartedAt),
	})

	logger.InfoContext(ctx, "Simulation finished", "outcome", result.Outcome, "failed_step", result.FailedStepID)

	if result.Outcome == OutcomeCancelled {
		return result, ctx.Err()
	}

	return result, nil
}

func (s *Simulator) runStep(ctx context.Context, step *models.ExecutionStep, emit func()) (bool, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "simulator.step",
		attribute.String(otelhelper.StageIDKey, step.ID),
		attribute.String(otelhelper.StageNameKey, step.Name),
	)
	defer span.End()

	start := s.now().UTC()
	step.Status = models.StepStatusRunning
	step.StartTime = &start
	emit()

	delay, succeeded := s.draw()

	if err := s.sleep(ctx, delay); err != nil {
		step.Status = models.StepStatusPending
		step.StartTime = nil
		emit()
		otelhelper.SetError(span, err)

		return false, err
	}

	end := s.now().UTC()
	step.EndTime = &end
	step.Duration = end.Sub(start)

	if succeeded {
		step.Status = models.StepStatusCompleted
	} else {
		step.Status = models.StepStatusFailed
		step.ErrorMessage = fmt.Sprintf("stage %s failed during simulated execution", step.Name)
		otelhelper.SetFailure(span, step.ErrorMessage)
	}

	span.SetAttributes(attribute.String(otelhelper.StepStatusKey, string(step.Status)))
	s.metrics.SimulationStep(string(step.Status))
	emit()

	return succeeded, nil
}

// draw picks the delay and outcome of one step.
func (s *Simulator) draw() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spread := s.config.MaxDelay - s.config.MinDelay
	units := s.config.MinDelay + s.random.Float64()*spread
	succeeded := s.random.Float64() < s.config.SuccessRate

	return time.Duration(units * float64(s.config.Unit)), succeeded
}

func (s *Simulator) publish(ctx context.Context, logger *slog.Logger, workflowID string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, workflowID, event); err != nil {
		logger.WarnContext(ctx, "Failed to publish simulation event", "event_type", event.GetType(), "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
