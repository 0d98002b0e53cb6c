// Package graph holds the in-memory stage graph and its mutation primitives.
package graph

import (
	"errors"
	"fmt"

	"github.com/dukex/stageflow/pkg/models"
)

var (
	ErrNodeNotFound  = errors.New("node not found")
	ErrEdgeNotFound  = errors.New("edge not found")
	ErrDuplicateNode = errors.New("node already exists")
	ErrDuplicateEdge = errors.New("edge already exists")
	ErrDanglingEdge  = errors.New("edge references a missing node")
	ErrSelfLoop      = errors.New("edge cannot connect a node to itself")
	ErrHistoryEmpty  = errors.New("nothing to undo")
	ErrNilElement    = errors.New("graph contains a null node or edge")
)

// Graph is a set of stage nodes and the transitions between them. Node order is
// significant: the simulator executes stages in slice order.
type Graph struct {
	Nodes []*models.StageNode  `json:"nodes"`
	Edges []*models.Transition `json:"edges"`
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		Nodes: []*models.StageNode{},
		Edges: []*models.Transition{},
	}
}

// FromWorkflow copies the workflow's nodes and edges into a new graph, dropping null
// elements and edges whose endpoints are missing.
func FromWorkflow(workflow *models.Workflow) *Graph {
	g := &Graph{
		Nodes: make([]*models.StageNode, 0, len(workflow.Nodes)),
		Edges: make([]*models.Transition, 0, len(workflow.Edges)),
	}

	for _, node := range workflow.Nodes {
		if node != nil {
			g.Nodes = append(g.Nodes, node.Clone())
		}
	}

	for _, edge := range workflow.Edges {
		if edge == nil || g.Node(edge.Source) == nil || g.Node(edge.Target) == nil {
			continue
		}

		clone := edge.Clone()
		clone.Normalize()
		g.Edges = append(g.Edges, clone)
	}

	return g
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	clone := &Graph{
		Nodes: models.CloneNodes(g.Nodes),
		Edges: models.CloneEdges(g.Edges),
	}

	if clone.Nodes == nil {
		clone.Nodes = []*models.StageNode{}
	}

	if clone.Edges == nil {
		clone.Edges = []*models.Transition{}
	}

	return clone
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *models.StageNode {
	for _, node := range g.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// Edge returns the edge with the given id, or nil.
func (g *Graph) Edge(id string) *models.Transition {
	for _, edge := range g.Edges {
		if edge.ID == id {
			return edge
		}
	}

	return nil
}

// EdgesOf returns the edges that start or end at nodeID.
func (g *Graph) EdgesOf(nodeID string) []*models.Transition {
	var edges []*models.Transition

	for _, edge := range g.Edges {
		if edge.Touches(nodeID) {
			edges = append(edges, edge)
		}
	}

	return edges
}

// HasConnection reports whether an edge from source to target already exists.
func (g *Graph) HasConnection(source, target string) bool {
	for _, edge := range g.Edges {
		if edge.Source == source && edge.Target == target {
			return true
		}
	}

	return false
}

// AddNode appends a node.
func (g *Graph) AddNode(node *models.StageNode) error {
	if g.Node(node.ID) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, node.ID)
	}

	g.Nodes = append(g.Nodes, node)

	return nil
}

// ValidateEdge checks that an edge between source and target may be added.
func (g *Graph) ValidateEdge(source, target string) error {
	if source == target {
		return fmt.Errorf("%w: %s", ErrSelfLoop, source)
	}

	if g.Node(source) == nil {
		return fmt.Errorf("%w: source %s", ErrDanglingEdge, source)
	}

	if g.Node(target) == nil {
		return fmt.Errorf("%w: target %s", ErrDanglingEdge, target)
	}

	if g.HasConnection(source, target) {
		return fmt.Errorf("%w: %s -> %s", ErrDuplicateEdge, source, target)
	}

	return nil
}

// AddEdge appends an edge after checking both endpoints exist.
func (g *Graph) AddEdge(edge *models.Transition) error {
	if g.Edge(edge.ID) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateEdge, edge.ID)
	}

	if err := g.ValidateEdge(edge.Source, edge.Target); err != nil {
		return err
	}

	g.Edges = append(g.Edges, edge)

	return nil
}

// RemoveNode deletes a node and every edge touching it.
func (g *Graph) RemoveNode(id string) error {
	index := -1

	for i, node := range g.Nodes {
		if node.ID == id {
			index = i

			break
		}
	}

	if index < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	g.Nodes = append(g.Nodes[:index:index], g.Nodes[index+1:]...)

	kept := make([]*models.Transition, 0, len(g.Edges))
	for _, edge := range g.Edges {
		if !edge.Touches(id) {
			kept = append(kept, edge)
		}
	}

	g.Edges = kept

	return nil
}

// RemoveEdge deletes a single edge.
func (g *Graph) RemoveEdge(id string) error {
	for i, edge := range g.Edges {
		if edge.ID == id {
			g.Edges = append(g.Edges[:i:i], g.Edges[i+1:]...)

			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
}

// ReplaceNode swaps the node sharing node.ID for node, keeping its position in the order.
func (g *Graph) ReplaceNode(node *models.StageNode) error {
	for i, existing := range g.Nodes {
		if existing.ID == node.ID {
			g.Nodes[i] = node

			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrNodeNotFound, node.ID)
}

// ReplaceEdge swaps the edge sharing edge.ID for edge. Endpoints cannot change.
func (g *Graph) ReplaceEdge(edge *models.Transition) error {
	for i, existing := range g.Edges {
		if existing.ID != edge.ID {
			continue
		}

		if existing.Source != edge.Source || existing.Target != edge.Target {
			return fmt.Errorf("%w: endpoints of %s cannot change", ErrDanglingEdge, edge.ID)
		}

		g.Edges[i] = edge

		return nil
	}

	return fmt.Errorf("%w: %s", ErrEdgeNotFound, edge.ID)
}

// Validate checks the dangling-edge and approval invariants over the whole graph.
func (g *Graph) Validate() error {
	for _, node := range g.Nodes {
		if node == nil {
			return ErrNilElement
		}
	}

	for _, edge := range g.Edges {
		if edge == nil {
			return ErrNilElement
		}
	}

	var errs []error

	for _, edge := range g.Edges {
		if g.Node(edge.Source) == nil || g.Node(edge.Target) == nil {
			errs = append(errs, fmt.Errorf("%w: edge %s", ErrDanglingEdge, edge.ID))
		}

		if !edge.RequiresApproval && (edge.ApproverRole != "" || edge.ApprovalTimeoutHours != "") {
			errs = append(errs, fmt.Errorf("edge %s has approval settings without requiring approval", edge.ID))
		}
	}

	return errors.Join(errs...)
}
