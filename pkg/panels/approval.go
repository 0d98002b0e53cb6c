package panels

import (
	"fmt"
	"strings"

	"github.com/dukex/stageflow/pkg/models"
)

// ApprovalPanel edits the approval gate of a transition.
type ApprovalPanel struct {
	edgeID           string
	requiresApproval bool
	approverRole     string
	approvalTimeout  string
	autoApprove      bool
}

// NewApprovalPanel opens a panel pre-populated from edge.
func NewApprovalPanel(edge *models.Transition) *ApprovalPanel {
	return &ApprovalPanel{
		edgeID:           edge.ID,
		requiresApproval: edge.RequiresApproval,
		approverRole:     edge.ApproverRole,
		approvalTimeout:  edge.ApprovalTimeoutHours,
		autoApprove:      edge.AutoApprove,
	}
}

// EdgeID returns the id of the transition being edited.
func (p *ApprovalPanel) EdgeID() string {
	return p.edgeID
}

func (p *ApprovalPanel) RequiresApproval() bool {
	return p.requiresApproval
}

// SetRequiresApproval toggles the gate. Turning it off clears the approver role.
func (p *ApprovalPanel) SetRequiresApproval(required bool) {
	p.requiresApproval = required
	if !required {
		p.approverRole = ""
	}
}

func (p *ApprovalPanel) ApproverRole() string {
	return p.approverRole
}

func (p *ApprovalPanel) SetApproverRole(role string) {
	p.approverRole = role
}

func (p *ApprovalPanel) ApprovalTimeout() string {
	return p.approvalTimeout
}

// SetApprovalTimeout sets the timeout in hours. It only matters when approval is required.
func (p *ApprovalPanel) SetApprovalTimeout(hours string) {
	p.approvalTimeout = hours
}

func (p *ApprovalPanel) AutoApprove() bool {
	return p.autoApprove
}

// SetAutoApprove controls whether the gate approves itself once the timeout elapses.
func (p *ApprovalPanel) SetAutoApprove(autoApprove bool) {
	p.autoApprove = autoApprove
}

// CanSave reports whether the save control is enabled.
func (p *ApprovalPanel) CanSave() bool {
	return !p.requiresApproval || strings.TrimSpace(p.approverRole) != ""
}

// Save validates the panel and returns the patch for the transition. The returned
// patch always carries status pending, so saving re-opens a decided gate.
func (p *ApprovalPanel) Save() (models.ApprovalEdgeData, error) {
	if !p.CanSave() {
		return models.ApprovalEdgeData{}, ErrApproverRoleRequired
	}

	if p.requiresApproval && strings.TrimSpace(p.approvalTimeout) != "" {
		if _, err := models.ParseTimeoutHours(p.approvalTimeout); err != nil {
			return models.ApprovalEdgeData{}, fmt.Errorf("%w: %w", ErrInvalidTimeout, err)
		}
	}

	data, err := models.NewApprovalEdgeData(p.requiresApproval, p.approverRole, p.approvalTimeout, p.autoApprove)
	if err != nil {
		return models.ApprovalEdgeData{}, fmt.Errorf("save approval panel: %w", err)
	}

	return data, nil
}
