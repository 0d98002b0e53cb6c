package models

import (
	"maps"
	"time"
)

// NodeType distinguishes real stages from the start/end pseudo nodes.
type NodeType string

const (
	NodeTypeStage NodeType = "stage"
	NodeTypeStart NodeType = "start"
	NodeTypeEnd   NodeType = "end"
)

// IsPseudo reports whether nodes of this type are skipped by execution.
func (t NodeType) IsPseudo() bool {
	return t == NodeTypeStart || t == NodeTypeEnd
}

// NodeStatus is the execution state of a stage node.
type NodeStatus string

const (
	NodeStatusNotStarted       NodeStatus = "not_started"
	NodeStatusRunning          NodeStatus = "running"
	NodeStatusAwaitingApproval NodeStatus = "awaiting_approval"
	NodeStatusCompleted        NodeStatus = "completed"
	NodeStatusFailed           NodeStatus = "failed"
)

// Position is a canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// StageNode is a graph vertex representing one environment of the pipeline.
type StageNode struct {
	ID            string            `json:"id"                      validate:"required"`
	Type          NodeType          `json:"type,omitempty"          validate:"omitempty,oneof=stage start end"`
	Position      Position          `json:"position"`
	StageName     string            `json:"stageName"               validate:"required"`
	Label         string            `json:"label,omitempty"`
	Environment   string            `json:"environment"`
	Parameters    map[string]string `json:"parameters"`
	Status        NodeStatus        `json:"status"                  validate:"omitempty,oneof=not_started running awaiting_approval completed failed"`
	ExecutionTime string            `json:"executionTime,omitempty"`
	LastExecuted  *time.Time        `json:"lastExecuted,omitempty"`
}

// IsPseudo reports whether the node is a start/end marker rather than a stage.
func (n *StageNode) IsPseudo() bool {
	return n.Type.IsPseudo()
}

// Clone returns a deep copy of the node.
func (n *StageNode) Clone() *StageNode {
	if n == nil {
		return nil
	}

	clone := *n
	if n.Parameters != nil {
		clone.Parameters = maps.Clone(n.Parameters)
	}

	if n.LastExecuted != nil {
		lastExecuted := *n.LastExecuted
		clone.LastExecuted = &lastExecuted
	}

	return &clone
}

// CloneNodes deep-copies a node slice, preserving nil.
func CloneNodes(nodes []*StageNode) []*StageNode {
	if nodes == nil {
		return nil
	}

	clones := make([]*StageNode, len(nodes))
	for i, node := range nodes {
		clones[i] = node.Clone()
	}

	return clones
}
