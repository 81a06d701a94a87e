package graph

import "strings"

// EdgeType classifies a relationship between two map entities
type EdgeType string

const (
	EdgeTypeMemberOf  EdgeType = "MEMBER_OF"
	EdgeTypeOwns      EdgeType = "OWNS"
	EdgeTypeAlignedTo EdgeType = "ALIGNED_TO"
	EdgeTypeReportsTo EdgeType = "REPORTS_TO"
	EdgeTypeRelatedTo EdgeType = "RELATED_TO"
)

var knownEdgeTypes = map[EdgeType]struct{}{
	EdgeTypeMemberOf:  {},
	EdgeTypeOwns:      {},
	EdgeTypeAlignedTo: {},
	EdgeTypeReportsTo: {},
	EdgeTypeRelatedTo: {},
}

// ParseEdgeType maps a raw wire value onto a known variant, defaulting to
// EdgeTypeRelatedTo for anything missing or unrecognized
func ParseEdgeType(raw string) EdgeType {
	t := EdgeType(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := knownEdgeTypes[t]; ok {
		return t
	}
	return EdgeTypeRelatedTo
}

// DisplayLabel derives a human-readable label from the type
func (t EdgeType) DisplayLabel() string {
	return strings.ToLower(strings.ReplaceAll(string(t), "_", " "))
}

// Edge is a directed relationship between two nodes. Both endpoints must
// resolve within the same snapshot; edges that do not are dropped during
// sanitization.
type Edge struct {
	ID     string   `json:"id"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Type   EdgeType `json:"type"`
	Label  string   `json:"label,omitempty"`
}
