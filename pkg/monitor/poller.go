// Package monitor polls the backend for execution status while a monitoring view is open.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/stageflow/pkg/log"
	"github.com/dukex/stageflow/pkg/models"
)

const DefaultInterval = 10 * time.Second

// Backend is the slice of the REST client the poller needs.
type Backend interface {
	Summary(ctx context.Context) (models.ExecutionSummary, error)
	PendingApprovals(ctx context.Context) ([]*models.PendingApproval, error)
}

// Snapshot is the outcome of one refresh. Err is set when either request failed; the
// other fields then hold whatever was fetched before the failure.
type Snapshot struct {
	Summary   models.ExecutionSummary
	Approvals []*models.PendingApproval
	FetchedAt time.Time
	Err       error
}

type Callback func(ctx context.Context, snapshot Snapshot)

type Config struct {
	Interval time.Duration
	Now      func() time.Time
	Logger   *slog.Logger
}

// Poller refreshes on Start and then every Interval until Stop or context cancellation.
type Poller struct {
	backend  Backend
	callback Callback
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	run     uint64
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewPoller(backend Backend, callback Callback, config Config) *Poller {
	p := &Poller{
		backend:  backend,
		callback: callback,
		interval: config.Interval,
		now:      config.Now,
		logger:   log.OrDefault(config.Logger, "monitor"),
	}

	if p.interval <= 0 {
		p.interval = DefaultInterval
	}

	if p.now == nil {
		p.now = time.Now
	}

	return p
}

// Start begins polling. Calling Start on a running poller does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.started = true
	p.run++

	p.wg.Add(1)

	go p.poll(pollCtx, p.run)

	p.logger.InfoContext(ctx, "Monitor started", "interval", p.interval)
}

// Stop tears the poller down and waits for an in-flight refresh to finish.
func (p *Poller) Stop() {
	p.mu.Lock()

	if !p.started {
		p.mu.Unlock()

		return
	}

	p.cancel()
	p.started = false
	p.mu.Unlock()

	p.wg.Wait()

	p.logger.Info("Monitor stopped")
}

// Running reports whether a poll loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.started
}

func (p *Poller) poll(ctx context.Context, run uint64) {
	defer p.wg.Done()
	defer p.finish(run)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

// finish marks the poller stopped when loop run ended on its own, so a later Start
// begins a new loop.
func (p *Poller) finish(run uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started && p.run == run {
		p.cancel()
		p.started = false
	}
}

func (p *Poller) refresh(ctx context.Context) {
	snapshot := p.Fetch(ctx)

	if ctx.Err() != nil {
		return
	}

	if p.callback != nil {
		p.callback(ctx, snapshot)
	}
}

// Fetch performs a single refresh without scheduling further ones.
func (p *Poller) Fetch(ctx context.Context) Snapshot {
	snapshot := Snapshot{FetchedAt: p.now()}

	summary, err := p.backend.Summary(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to fetch workflow summary", "error", err)
		snapshot.Err = fmt.Errorf("failed to fetch workflow summary: %w", err)

		return snapshot
	}

	snapshot.Summary = summary

	approvals, err := p.backend.PendingApprovals(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to fetch pending approvals", "error", err)
		snapshot.Err = fmt.Errorf("failed to fetch pending approvals: %w", err)

		return snapshot
	}

	snapshot.Approvals = approvals

	return snapshot
}
