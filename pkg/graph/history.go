package graph

// DefaultHistoryLimit bounds the undo stack.
const DefaultHistoryLimit = 50

// History is a bounded LIFO stack of graph snapshots. There is no redo: popping a
// snapshot discards it.
type History struct {
	limit     int
	snapshots []*Graph
}

// NewHistory creates a history holding at most limit snapshots. A non-positive limit
// uses DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	return &History{limit: limit}
}

// Push stores a deep copy of g, dropping the oldest snapshot when full.
func (h *History) Push(g *Graph) {
	if len(h.snapshots) == h.limit {
		copy(h.snapshots, h.snapshots[1:])
		h.snapshots = h.snapshots[:len(h.snapshots)-1]
	}

	h.snapshots = append(h.snapshots, g.Clone())
}

// Pop removes and returns the most recent snapshot.
func (h *History) Pop() (*Graph, error) {
	if len(h.snapshots) == 0 {
		return nil, ErrHistoryEmpty
	}

	last := h.snapshots[len(h.snapshots)-1]
	h.snapshots[len(h.snapshots)-1] = nil
	h.snapshots = h.snapshots[:len(h.snapshots)-1]

	return last, nil
}

// Len returns the number of stored snapshots.
func (h *History) Len() int {
	return len(h.snapshots)
}

// Reset drops every snapshot.
func (h *History) Reset() {
	h.snapshots = nil
}
