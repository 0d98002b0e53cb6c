package simulator

import (
	"context"
	"sync"

	"github.com/dukex/stageflow/pkg/models"
)

// Run is a handle on a simulation started by a Runner.
type Run struct {
	cancel context.CancelFunc
	done   chan struct{}
	result *Result
	err    error
}

// Done is closed when the run finishes.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run finishes and returns its result.
func (r *Run) Wait() (*Result, error) {
	<-r.done

	return r.result, r.err
}

// Cancel stops the run. The in-flight step returns to pending.
func (r *Run) Cancel() {
	r.cancel()
}

// Runner serializes simulations: starting a run cancels the previous one and waits for
// it to finish first.
type Runner struct {
	simulator *Simulator

	mu      sync.Mutex
	current *Run
}

func NewRunner(simulator *Simulator) *Runner {
	return &Runner{simulator: simulator}
}

// Start cancels any in-flight run and starts workflow in the background.
func (r *Runner) Start(ctx context.Context, workflow *models.Workflow, observe Observer) *Run {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()

	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{cancel: cancel, done: make(chan struct{})}
	r.current = run

	go func() {
		defer close(run.done)
		defer cancel()

		run.result, run.err = r.simulator.Run(runCtx, workflow, observe)
	}()

	return run
}

// Stop cancels the in-flight run, if any, and waits for it.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()
}

func (r *Runner) stopLocked() {
	if r.current == nil {
		return
	}

	r.current.cancel()
	<-r.current.done
	r.current = nil
}
