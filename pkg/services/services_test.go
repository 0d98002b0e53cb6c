package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dukex/stageflow/pkg/eventbus"
	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/persistence/file"
)

var testNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *recordingPublisher) Events() []eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]eventbus.Event(nil), p.events...)
}

func newTestPersistence(t *testing.T) *file.Persistence {
	t.Helper()

	return file.NewPersistence(t.TempDir())
}

// releaseWorkflow builds dev -> qa -> prod with an approval gate in front of prod.
func releaseWorkflow(name string) *models.Workflow {
	return &models.Workflow{
		Name:        name,
		Description: "release promotion",
		CreatedBy:   "alice",
		Nodes: []*models.StageNode{
			{ID: "dev", Type: models.NodeTypeStage, StageName: "dev", Environment: "development", Status: models.NodeStatusNotStarted},
			{ID: "qa", Type: models.NodeTypeStage, StageName: "qa", Environment: "testing", Status: models.NodeStatusNotStarted},
			{ID: "prod", Type: models.NodeTypeStage, StageName: "prod", Environment: "production", Status: models.NodeStatusNotStarted},
		},
		Edges: []*models.Transition{
			{ID: "dev-qa", Source: "dev", Target: "qa", Status: models.ApprovalStatusPending},
			{
				ID:                   "qa-prod",
				Source:               "qa",
				Target:               "prod",
				RequiresApproval:     true,
				ApproverRole:         "prod-manager",
				ApprovalTimeoutHours: "24",
				AutoApprove:          true,
				Status:               models.ApprovalStatusPending,
			},
		},
	}
}
