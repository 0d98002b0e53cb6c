// Package canvas orchestrates editing of a stage graph: adding, connecting, moving and
// deleting elements, opening configuration panels and undoing mutations.
package canvas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/dukex/stageflow/pkg/graph"
	"github.com/dukex/stageflow/pkg/log"
	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/panels"
	"github.com/google/uuid"
)

const (
	NodeWidth  = 160
	NodeHeight = 80

	maxPlacementAttempts = 25
)

var ErrNoSelection = errors.New("no element selected")

// Bounds is the visible canvas area new nodes are placed in.
type Bounds struct {
	Width  float64
	Height float64
}

// DefaultBounds is used when Options.Bounds is empty.
var DefaultBounds = Bounds{Width: 800, Height: 600}

// Options configures a Controller. Zero values fall back to defaults.
type Options struct {
	Bounds       Bounds
	HistoryLimit int
	Rand         *rand.Rand
	Now          func() time.Time
	NewID        func() string
	Logger       *slog.Logger
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Controller owns the graph being edited and its undo history. Mutations are applied
// one at a time; each successful mutation first records the previous state.
type Controller struct {
	mu sync.Mutex

	graph   *graph.Graph
	history *graph.History

	workflow *models.Workflow

	stagePanel    *panels.StagePanel
	approvalPanel *panels.ApprovalPanel

	bounds Bounds
	rand   *rand.Rand
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// New creates a controller with an empty graph.
func New(opts Options) *Controller {
	if opts.Bounds.Width <= 0 || opts.Bounds.Height <= 0 {
		opts.Bounds = DefaultBounds
	}

	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	return &Controller{
		graph:    graph.New(),
		history:  graph.NewHistory(opts.HistoryLimit),
		workflow: &models.Workflow{Status: models.WorkflowStatusDraft},
		bounds:   opts.Bounds,
		rand:     opts.Rand,
		now:      opts.Now,
		newID:    opts.NewID,
		logger:   log.OrDefault(opts.Logger, "canvas"),
	}
}

// Graph returns a copy of the current graph.
func (c *Controller) Graph() *graph.Graph {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.graph.Clone()
}

// CanUndo reports whether there is a mutation to undo.
func (c *Controller) CanUndo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.history.Len() > 0
}

// SetDetails sets the name and description stored with the next save.
func (c *Controller) SetDetails(name, description string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.workflow.Name = name
	c.workflow.Description = description
}

// Load replaces the edited graph with workflow's and clears the history.
func (c *Controller) Load(workflow *models.Workflow) {
	c.mu.Lock()
	defer c.mu.Unlock()

	meta := workflow.Clone()
	meta.Nodes = nil
	meta.Edges = nil

	c.workflow = meta
	c.graph = graph.FromWorkflow(workflow)
	c.history.Reset()
	c.closePanels()

	c.logger.Debug("Loaded workflow", "workflow_id", workflow.ID, "nodes", len(c.graph.Nodes), "edges", len(c.graph.Edges))
}

// AddStageNode adds a stage at a random free position with the template parameters for
// stageName.
func (c *Controller) AddStageNode(stageName string) (*models.StageNode, error) {
	stageName = strings.TrimSpace(stageName)
	if stageName == "" {
		return nil, panels.ErrStageNameRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	parameters := models.StageTemplate(stageName)
	node := &models.StageNode{
		ID:          c.newID(),
		Type:        models.NodeTypeStage,
		Position:    c.freePosition(),
		StageName:   stageName,
		Label:       stageName,
		Environment: parameters["environment"],
		Parameters:  parameters,
		Status:      models.NodeStatusNotStarted,
	}

	if c.graph.Node(node.ID) != nil {
		return nil, fmt.Errorf("%w: %s", graph.ErrDuplicateNode, node.ID)
	}

	c.record()

	if err := c.graph.AddNode(node); err != nil {
		return nil, err
	}

	c.logger.Debug("Added stage", "node_id", node.ID, "stage", stageName)

	return node.Clone(), nil
}

// Connect adds a transition from source to target without an approval gate.
func (c *Controller) Connect(source, target string) (*models.Transition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.graph.ValidateEdge(source, target); err != nil {
		return nil, err
	}

	edge := &models.Transition{
		ID:               c.newID(),
		Source:           source,
		Target:           target,
		RequiresApproval: false,
		Status:           models.ApprovalStatusPending,
	}

	if c.graph.Edge(edge.ID) != nil {
		return nil, fmt.Errorf("%w: %s", graph.ErrDuplicateEdge, edge.ID)
	}

	c.record()

	if err := c.graph.AddEdge(edge); err != nil {
		return nil, err
	}

	c.logger.Debug("Connected stages", "edge_id", edge.ID, "source", source, "target", target)

	return edge.Clone(), nil
}

// DeleteNode removes a node together with every transition touching it.
func (c *Controller) DeleteNode(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.graph.Node(id) == nil {
		return fmt.Errorf("%w: %s", graph.ErrNodeNotFound, id)
	}

	c.record()

	if err := c.graph.RemoveNode(id); err != nil {
		return err
	}

	c.dropStalePanels()
	c.logger.Debug("Deleted stage", "node_id", id)

	return nil
}

// DeleteEdge removes a single transition.
func (c *Controller) DeleteEdge(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.graph.Edge(id) == nil {
		return fmt.Errorf("%w: %s", graph.ErrEdgeNotFound, id)
	}

	c.record()

	if err := c.graph.RemoveEdge(id); err != nil {
		return err
	}

	c.dropStalePanels()
	c.logger.Debug("Deleted transition", "edge_id", id)

	return nil
}

// ConfirmDeleteNode deletes a node after the user confirms. It reports whether the node
// was deleted.
func (c *Controller) ConfirmDeleteNode(ctx context.Context, id string, confirmer Confirmer) (bool, error) {
	c.mu.Lock()
	node := c.graph.Node(id)

	var prompt string
	if node != nil {
		prompt = fmt.Sprintf("Delete stage %q and its %d transition(s)?", node.StageName, len(c.graph.EdgesOf(id)))
	}
	c.mu.Unlock()

	if node == nil {
		return false, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, id)
	}

	ok, err := confirmer.Confirm(ctx, prompt)
	if err != nil || !ok {
		return false, err
	}

	return true, c.DeleteNode(id)
}

// ConfirmDeleteEdge deletes a transition after the user confirms.
func (c *Controller) ConfirmDeleteEdge(ctx context.Context, id string, confirmer Confirmer) (bool, error) {
	c.mu.Lock()
	edge := c.graph.Edge(id)

	var prompt string
	if edge != nil {
		prompt = fmt.Sprintf("Delete transition %s -> %s?", c.stageName(edge.Source), c.stageName(edge.Target))
	}
	c.mu.Unlock()

	if edge == nil {
		return false, fmt.Errorf("%w: %s", graph.ErrEdgeNotFound, id)
	}

	ok, err := confirmer.Confirm(ctx, prompt)
	if err != nil || !ok {
		return false, err
	}

	return true, c.DeleteEdge(id)
}

// UpdateNodeData validates a stage patch and applies it to a node.
func (c *Controller) UpdateNodeData(id string, data models.StageNodeData) error {
	if err := data.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	node := c.graph.Node(id)
	if node == nil {
		return fmt.Errorf("%w: %s", graph.ErrNodeNotFound, id)
	}

	updated := node.Clone()
	data.Apply(updated)

	c.record()

	return c.graph.ReplaceNode(updated)
}

// UpdateEdgeData validates an approval patch and applies it to a transition.
func (c *Controller) UpdateEdgeData(id string, data models.ApprovalEdgeData) error {
	if err := data.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	edge := c.graph.Edge(id)
	if edge == nil {
		return fmt.Errorf("%w: %s", graph.ErrEdgeNotFound, id)
	}

	updated := edge.Clone()
	data.Apply(updated)

	c.record()

	return c.graph.ReplaceEdge(updated)
}

// Commit applies a patch to the element with the given id.
func (c *Controller) Commit(id string, data models.ElementData) error {
	switch d := data.(type) {
	case models.StageNodeData:
		return c.UpdateNodeData(id, d)
	case models.ApprovalEdgeData:
		return c.UpdateEdgeData(id, d)
	default:
		return fmt.Errorf("unsupported element data %T", data)
	}
}

// MoveNode moves a node to position, as at the end of a drag.
func (c *Controller) MoveNode(id string, position models.Position) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	node := c.graph.Node(id)
	if node == nil {
		return fmt.Errorf("%w: %s", graph.ErrNodeNotFound, id)
	}

	if node.Position == position {
		return nil
	}

	c.record()
	node.Position = position

	return nil
}

// Undo restores the state before the most recent mutation.
func (c *Controller) Undo() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous, err := c.history.Pop()
	if err != nil {
		return err
	}

	c.graph = previous
	c.dropStalePanels()
	c.logger.Debug("Undid last change", "remaining", c.history.Len())

	return nil
}

// Clear removes every node and transition. It can be undone.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.graph.Nodes) == 0 && len(c.graph.Edges) == 0 {
		return
	}

	c.record()
	c.graph = graph.New()
	c.closePanels()
}

// Save returns the graph as a workflow snapshot stamped with createdAt and updatedAt.
// It performs no I/O.
func (c *Controller) Save() *models.Workflow {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UTC()

	snapshot := c.workflow.Clone()
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = now
	}

	snapshot.UpdatedAt = now
	snapshot.Nodes = models.CloneNodes(c.graph.Nodes)
	snapshot.Edges = models.CloneEdges(c.graph.Edges)

	return snapshot
}

// Adopt records server-assigned fields after a snapshot was persisted.
func (c *Controller) Adopt(saved *models.Workflow) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.workflow.ID = saved.ID
	c.workflow.Version = saved.Version
	c.workflow.CreatedBy = saved.CreatedBy
	c.workflow.CreatedAt = saved.CreatedAt
	c.workflow.UpdatedAt = saved.UpdatedAt

	if saved.Status != "" {
		c.workflow.Status = saved.Status
	}
}

// SelectNode opens the stage panel for a node.
func (c *Controller) SelectNode(id string) (*panels.StagePanel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node := c.graph.Node(id)
	if node == nil {
		return nil, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, id)
	}

	c.closePanels()
	c.stagePanel = panels.NewStagePanel(node)

	return c.stagePanel, nil
}

// SelectEdge opens the approval panel for a transition.
func (c *Controller) SelectEdge(id string) (*panels.ApprovalPanel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	edge := c.graph.Edge(id)
	if edge == nil {
		return nil, fmt.Errorf("%w: %s", graph.ErrEdgeNotFound, id)
	}

	c.closePanels()
	c.approvalPanel = panels.NewApprovalPanel(edge)

	return c.approvalPanel, nil
}

// CommitStagePanel saves the open stage panel onto its node and closes it.
func (c *Controller) CommitStagePanel() error {
	c.mu.Lock()
	panel := c.stagePanel
	c.mu.Unlock()

	if panel == nil {
		return ErrNoSelection
	}

	data, err := panel.Save()
	if err != nil {
		return err
	}

	if err := c.UpdateNodeData(panel.NodeID(), data); err != nil {
		return err
	}

	c.ClosePanels()

	return nil
}

// CommitApprovalPanel saves the open approval panel onto its transition and closes it.
func (c *Controller) CommitApprovalPanel() error {
	c.mu.Lock()
	panel := c.approvalPanel
	c.mu.Unlock()

	if panel == nil {
		return ErrNoSelection
	}

	data, err := panel.Save()
	if err != nil {
		return err
	}

	if err := c.UpdateEdgeData(panel.EdgeID(), data); err != nil {
		return err
	}

	c.ClosePanels()

	return nil
}

// ClosePanels discards any open panel without saving.
func (c *Controller) ClosePanels() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closePanels()
}

// ApplyStep renders a simulator step onto its node. Status changes are not recorded in
// the undo history.
func (c *Controller) ApplyStep(step models.ExecutionStep) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	node := c.graph.Node(step.ID)
	if node == nil {
		return fmt.Errorf("%w: %s", graph.ErrNodeNotFound, step.ID)
	}

	node.Status = step.Status.NodeStatus()

	if step.EndTime != nil {
		lastExecuted := *step.EndTime
		node.LastExecuted = &lastExecuted
		node.ExecutionTime = step.Duration.Round(time.Millisecond).String()
	}

	return nil
}

// ResetStatuses marks every stage as not started before a new run.
func (c *Controller) ResetStatuses() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, node := range c.graph.Nodes {
		if !node.IsPseudo() {
			node.Status = models.NodeStatusNotStarted
		}
	}
}

func (c *Controller) record() {
	c.history.Push(c.graph)
}

func (c *Controller) closePanels() {
	c.stagePanel = nil
	c.approvalPanel = nil
}

func (c *Controller) dropStalePanels() {
	if c.stagePanel != nil && c.graph.Node(c.stagePanel.NodeID()) == nil {
		c.stagePanel = nil
	}

	if c.approvalPanel != nil && c.graph.Edge(c.approvalPanel.EdgeID()) == nil {
		c.approvalPanel = nil
	}
}

func (c *Controller) stageName(id string) string {
	if node := c.graph.Node(id); node != nil {
		return node.StageName
	}

	return id
}

// freePosition draws random positions inside the bounds until one does not overlap an
// existing node. After maxPlacementAttempts the last draw is used.
func (c *Controller) freePosition() models.Position {
	maxX := max(c.bounds.Width-NodeWidth, 0)
	maxY := max(c.bounds.Height-NodeHeight, 0)

	var position models.Position

	for range maxPlacementAttempts {
		position = models.Position{
			X: float64(int(c.rand.Float64() * maxX)),
			Y: float64(int(c.rand.Float64() * maxY)),
		}

		if !c.overlaps(position) {
			break
		}
	}

	return position
}

func (c *Controller) overlaps(position models.Position) bool {
	for _, node := range c.graph.Nodes {
		dx := node.Position.X - position.X
		dy := node.Position.Y - position.Y

		if dx < NodeWidth && dx > -NodeWidth && dy < NodeHeight && dy > -NodeHeight {
			return true
		}
	}

	return false
}
