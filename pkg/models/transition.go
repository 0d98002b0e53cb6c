package models

import "time"

// ApprovalStatus is the stored status of an approval gate.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// Transition is a directed edge between two stage nodes, optionally gated by an approval.
type Transition struct {
	ID                   string         `json:"id"                   validate:"required"`
	Source               string         `json:"source"               validate:"required"`
	Target               string         `json:"target"               validate:"required"`
	RequiresApproval     bool           `json:"requiresApproval"`
	ApproverRole         string         `json:"approverRole"`
	ApprovalTimeoutHours string         `json:"approvalTimeoutHours"`
	AutoApprove          bool           `json:"autoApprove"`
	Status               ApprovalStatus `json:"status"               validate:"omitempty,oneof=pending approved rejected"`
	ApprovedBy           string         `json:"approvedBy,omitempty"`
	ApprovedAt           *time.Time     `json:"approvedAt,omitempty"`
	Comments             string         `json:"comments,omitempty"`
}

// Touches reports whether the transition starts or ends at nodeID.
func (t *Transition) Touches(nodeID string) bool {
	return t.Source == nodeID || t.Target == nodeID
}

// Normalize clears the approval fields that are meaningless without an approval gate.
func (t *Transition) Normalize() {
	if !t.RequiresApproval {
		t.ApproverRole = ""
		t.ApprovalTimeoutHours = ""
	}

	if t.Status == "" {
		t.Status = ApprovalStatusPending
	}
}

// Clone returns a deep copy of the transition.
func (t *Transition) Clone() *Transition {
	if t == nil {
		return nil
	}

	clone := *t
	if t.ApprovedAt != nil {
		approvedAt := *t.ApprovedAt
		clone.ApprovedAt = &approvedAt
	}

	return &clone
}

// CloneEdges deep-copies an edge slice, preserving nil.
func CloneEdges(edges []*Transition) []*Transition {
	if edges == nil {
		return nil
	}

	clones := make([]*Transition, len(edges))
	for i, edge := range edges {
		clones[i] = edge.Clone()
	}

	return clones
}
