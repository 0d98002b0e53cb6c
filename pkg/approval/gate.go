// Package approval implements the approval gate state machine guarding stage transitions.
package approval

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dukex/stageflow/pkg/models"
)

// AutoApprover is recorded as approvedBy when a gate approves itself after its timeout.
const AutoApprover = "system:auto-approve"

var (
	ErrApprovalNotRequired = errors.New("transition does not require approval")
	ErrInvalidTransition   = errors.New("invalid approval transition")
	ErrApproverRequired    = errors.New("approver is required")
)

// State is the state of an approval gate. StateNoApproval is derived from a transition
// that does not require approval and is never stored.
type State string

const (
	StateNoApproval State = "no_approval"
	StatePending    State = "pending"
	StateApproved   State = "approved"
	StateRejected   State = "rejected"
)

// ValidTransitions lists the decisions allowed from each state. Approved and rejected
// are terminal until the transition is reconfigured.
var ValidTransitions = map[State][]State{
	StatePending: {StateApproved, StateRejected},
}

// StateOf derives the gate state of a transition.
func StateOf(edge *models.Transition) State {
	if !edge.RequiresApproval {
		return StateNoApproval
	}

	switch edge.Status {
	case models.ApprovalStatusApproved:
		return StateApproved
	case models.ApprovalStatusRejected:
		return StateRejected
	default:
		return StatePending
	}
}

// MissingApproverRole reports the error affordance shown for a gate without a role.
func MissingApproverRole(edge *models.Transition) bool {
	return edge.RequiresApproval && strings.TrimSpace(edge.ApproverRole) == ""
}

// CanTraverse reports whether execution may pass the transition.
func CanTraverse(edge *models.Transition) bool {
	state := StateOf(edge)

	return state == StateNoApproval || state == StateApproved
}

// Deadline returns when an auto-approving gate requested at requestedAt times out.
func Deadline(edge *models.Transition, requestedAt time.Time) (time.Time, bool) {
	if !edge.RequiresApproval || !edge.AutoApprove || edge.ApprovalTimeoutHours == "" {
		return time.Time{}, false
	}

	hours, err := models.ParseTimeoutHours(edge.ApprovalTimeoutHours)
	if err != nil {
		return time.Time{}, false
	}

	return requestedAt.Add(time.Duration(hours) * time.Hour), true
}

// Decision describes one applied gate transition.
type Decision struct {
	TransitionID string    `json:"transitionId"`
	From         State     `json:"from"`
	To           State     `json:"to"`
	By           string    `json:"by"`
	Comments     string    `json:"comments,omitempty"`
	At           time.Time `json:"at"`
	Automatic    bool      `json:"automatic"`
}

// Approve moves a pending gate to approved.
func Approve(edge *models.Transition, approver, comments string, at time.Time) (Decision, error) {
	return decide(edge, StateApproved, approver, comments, at)
}

// Reject moves a pending gate to rejected.
func Reject(edge *models.Transition, approver, comments string, at time.Time) (Decision, error) {
	return decide(edge, StateRejected, approver, comments, at)
}

// Expire auto-approves a pending gate whose timeout elapsed before now. It reports
// false without error when the gate is not eligible yet.
func Expire(edge *models.Transition, requestedAt, now time.Time) (Decision, bool, error) {
	if StateOf(edge) != StatePending {
		return Decision{}, false, nil
	}

	deadline, ok := Deadline(edge, requestedAt)
	if !ok || now.Before(deadline) {
		return Decision{}, false, nil
	}

	decision, err := decide(edge, StateApproved, AutoApprover, "approval timeout elapsed", now)
	if err != nil {
		return Decision{}, false, err
	}

	decision.Automatic = true

	return decision, true, nil
}

func decide(edge *models.Transition, to State, approver, comments string, at time.Time) (Decision, error) {
	if !edge.RequiresApproval {
		return Decision{}, fmt.Errorf("%w: %s", ErrApprovalNotRequired, edge.ID)
	}

	if strings.TrimSpace(approver) == "" {
		return Decision{}, ErrApproverRequired
	}

	from := StateOf(edge)
	if !slices.Contains(ValidTransitions[from], to) {
		return Decision{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	decidedAt := at.UTC()
	edge.Status = models.ApprovalStatus(to)
	edge.ApprovedBy = approver
	edge.ApprovedAt = &decidedAt
	edge.Comments = comments

	return Decision{
		TransitionID: edge.ID,
		From:         from,
		To:           to,
		By:           approver,
		Comments:     comments,
		At:           decidedAt,
	}, nil
}

// Hook is called after a decision has been applied.
type Hook func(ctx context.Context, decision Decision) error

// Machine applies decisions and notifies registered hooks.
type Machine struct {
	mu    sync.Mutex
	now   func() time.Time
	hooks []Hook
}

// NewMachine creates a Machine using now as its clock. A nil clock uses time.Now.
func NewMachine(now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}

	return &Machine{now: now}
}

// OnDecision registers a hook run after every applied decision.
func (m *Machine) OnDecision(hook Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks = append(m.hooks, hook)
}

// Approve approves edge as approver.
func (m *Machine) Approve(ctx context.Context, edge *models.Transition, approver, comments string) (Decision, error) {
	decision, err := Approve(edge, approver, comments, m.now())
	if err != nil {
		return Decision{}, err
	}

	return decision, m.notify(ctx, decision)
}

// Reject rejects edge as approver.
func (m *Machine) Reject(ctx context.Context, edge *models.Transition, approver, comments string) (Decision, error) {
	decision, err := Reject(edge, approver, comments, m.now())
	if err != nil {
		return Decision{}, err
	}

	return decision, m.notify(ctx, decision)
}

// Expire auto-approves edge if its timeout elapsed since requestedAt.
func (m *Machine) Expire(ctx context.Context, edge *models.Transition, requestedAt time.Time) (Decision, bool, error) {
	return m.ExpireAt(ctx, edge, requestedAt, m.now())
}

// ExpireAt is Expire evaluated at now instead of the machine clock.
func (m *Machine) ExpireAt(ctx context.Context, edge *models.Transition, requestedAt, now time.Time) (Decision, bool, error) {
	decision, expired, err := Expire(edge, requestedAt, now)
	if err != nil || !expired {
		return decision, expired, err
	}

	return decision, true, m.notify(ctx, decision)
}

func (m *Machine) notify(ctx context.Context, decision Decision) error {
	m.mu.Lock()
	hooks := slices.Clone(m.hooks)
	m.mu.Unlock()

	var errs []error

	for _, hook := range hooks {
		if err := hook(ctx, decision); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
