package approval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule checks for timed-out gates once a minute.
const DefaultSweepSchedule = "@every 1m"

// Expirer auto-approves every open approval whose timeout elapsed before now and
// returns how many were approved.
type Expirer interface {
	ExpireApprovals(ctx context.Context, now time.Time) (int, error)
}

// Sweeper periodically runs an Expirer on a cron schedule. It is the backend-side
// owner of timeout auto-approval; clients never expire gates themselves.
type Sweeper struct {
	expirer  Expirer
	logger   *slog.Logger
	schedule string
	cron     *cron.Cron
	now      func() time.Time
}

// NewSweeper creates a sweeper. An empty schedule uses DefaultSweepSchedule.
func NewSweeper(expirer Expirer, logger *slog.Logger, schedule string) *Sweeper {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	return &Sweeper{
		expirer:  expirer,
		logger:   logger,
		schedule: schedule,
		cron:     cron.New(),
		now:      time.Now,
	}
}

// Start registers the sweep job and starts the scheduler.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Approval sweeper started", "schedule", s.schedule)

	return nil
}

// Sweep runs a single expiry pass.
func (s *Sweeper) Sweep(ctx context.Context) int {
	approved, err := s.expirer.ExpireApprovals(ctx, s.now().UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to expire approvals", "error", err)

		return approved
	}

	if approved > 0 {
		s.logger.InfoContext(ctx, "Auto-approved timed out gates", "count", approved)
	}

	return approved
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
