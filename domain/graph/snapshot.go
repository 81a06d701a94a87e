package graph

import (
	"errors"

	"github.com/google/uuid"
)

// Snapshot is the atomic unit of graph replacement: an internally
// consistent set of nodes and edges that replaces the prior state
// wholesale. Invariants: node IDs are unique and every edge endpoint
// resolves within the snapshot.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`

	byID map[string]int
}

// SanitizeReport summarizes what a sanitization pass repaired
type SanitizeReport struct {
	DuplicateNodes    int
	UnidentifiedNodes int
	DanglingEdges     int
	DefaultedTypes    int
}

// Dirty reports whether the pass had to repair anything
func (r SanitizeReport) Dirty() bool {
	return r.DuplicateNodes > 0 || r.UnidentifiedNodes > 0 || r.DanglingEdges > 0 || r.DefaultedTypes > 0
}

// Sanitize normalizes the snapshot in a single ingestion pass: nodes
// without an ID and duplicate node IDs are dropped (first occurrence
// wins), nodes without a type get the unknown variant, edge types and
// labels are normalized, edges with endpoints outside the snapshot are
// dropped, and edges without an ID get one assigned. Downstream consumers
// can rely on the invariants without re-checking.
func (s *Snapshot) Sanitize() SanitizeReport {
	var report SanitizeReport

	s.byID = make(map[string]int, len(s.Nodes))
	nodes := s.Nodes[:0]
	for _, node := range s.Nodes {
		if node.ID == "" {
			report.UnidentifiedNodes++
			continue
		}
		if _, seen := s.byID[node.ID]; seen {
			report.DuplicateNodes++
			continue
		}
		if !node.Type.IsValid() {
			node.Type = ParseNodeType(string(node.Type))
			report.DefaultedTypes++
		}
		s.byID[node.ID] = len(nodes)
		nodes = append(nodes, node)
	}
	s.Nodes = nodes

	edges := s.Edges[:0]
	for _, edge := range s.Edges {
		_, srcOK := s.byID[edge.Source]
		_, tgtOK := s.byID[edge.Target]
		if !srcOK || !tgtOK {
			report.DanglingEdges++
			continue
		}
		edge.Type = ParseEdgeType(string(edge.Type))
		if edge.Label == "" {
			edge.Label = edge.Type.DisplayLabel()
		}
		if edge.ID == "" {
			edge.ID = uuid.New().String()
		}
		edges = append(edges, edge)
	}
	s.Edges = edges

	return report
}

// Validate checks the snapshot invariants without repairing anything
func (s *Snapshot) Validate() error {
	seen := make(map[string]struct{}, len(s.Nodes))
	for _, node := range s.Nodes {
		if _, dup := seen[node.ID]; dup {
			return errors.New("duplicate node id: " + node.ID)
		}
		seen[node.ID] = struct{}{}
	}
	for _, edge := range s.Edges {
		if _, ok := seen[edge.Source]; !ok {
			return errors.New("edge references non-existent source node: " + edge.Source)
		}
		if _, ok := seen[edge.Target]; !ok {
			return errors.New("edge references non-existent target node: " + edge.Target)
		}
	}
	return nil
}

// Node returns the node with the given ID, if present
func (s *Snapshot) Node(id string) (*Node, bool) {
	if s.byID != nil {
		if i, ok := s.byID[id]; ok {
			return &s.Nodes[i], true
		}
		return nil, false
	}
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return &s.Nodes[i], true
		}
	}
	return nil, false
}

// HasNode reports whether a node with the given ID is present
func (s *Snapshot) HasNode(id string) bool {
	_, ok := s.Node(id)
	return ok
}

// NodeIDs returns the raw node ID list in snapshot order, for
// visibility-tracking consumers such as overlay layers
func (s *Snapshot) NodeIDs() []string {
	ids := make([]string, len(s.Nodes))
	for i, node := range s.Nodes {
		ids[i] = node.ID
	}
	return ids
}

// WithPositions returns a copy of the snapshot with node positions taken
// from the given map. Node and edge identity and count are preserved;
// nodes absent from the map keep their previous position.
func (s *Snapshot) WithPositions(positions map[string]Position) *Snapshot {
	out := &Snapshot{
		Nodes: make([]Node, len(s.Nodes)),
		Edges: make([]Edge, len(s.Edges)),
		byID:  make(map[string]int, len(s.Nodes)),
	}
	copy(out.Edges, s.Edges)
	for i, node := range s.Nodes {
		if pos, ok := positions[node.ID]; ok {
			p := pos
			node.Position = &p
		}
		out.Nodes[i] = node
		out.byID[node.ID] = i
	}
	return out
}

// DeltaKind discriminates delta-stream operations
type DeltaKind string

const (
	DeltaAddNode    DeltaKind = "add_node"
	DeltaUpdateNode DeltaKind = "update_node"
	DeltaRemoveNode DeltaKind = "remove_node"
	DeltaAddEdge    DeltaKind = "add_edge"
	DeltaRemoveEdge DeltaKind = "remove_edge"
)

// Delta is a single incremental patch operation
type Delta struct {
	Kind DeltaKind `json:"kind"`
	Node *Node     `json:"node,omitempty"`
	Edge *Edge     `json:"edge,omitempty"`
	ID   string    `json:"id,omitempty"`
}

// Apply returns a new snapshot with the delta operations applied and
// re-sanitized, preserving both snapshot invariants. The receiver is not
// mutated.
func (s *Snapshot) Apply(deltas []Delta) *Snapshot {
	out := &Snapshot{
		Nodes: append([]Node(nil), s.Nodes...),
		Edges: append([]Edge(nil), s.Edges...),
	}

	for _, d := range deltas {
		switch d.Kind {
		case DeltaAddNode:
			if d.Node != nil {
				out.Nodes = append(out.Nodes, *d.Node)
			}
		case DeltaUpdateNode:
			if d.Node == nil {
				continue
			}
			for i := range out.Nodes {
				if out.Nodes[i].ID == d.Node.ID {
					out.Nodes[i] = *d.Node
					break
				}
			}
		case DeltaRemoveNode:
			nodes := out.Nodes[:0]
			for _, node := range out.Nodes {
				if node.ID != d.ID {
					nodes = append(nodes, node)
				}
			}
			out.Nodes = nodes
		case DeltaAddEdge:
			if d.Edge != nil {
				out.Edges = append(out.Edges, *d.Edge)
			}
		case DeltaRemoveEdge:
			edges := out.Edges[:0]
			for _, edge := range out.Edges {
				if edge.ID != d.ID {
					edges = append(edges, edge)
				}
			}
			out.Edges = edges
		}
	}

	// Re-sanitizing drops any edges orphaned by node removal
	out.Sanitize()
	return out
}
