package graph

// NodeType classifies an entity on the knowledge map
type NodeType string

const (
	NodeTypeUser           NodeType = "USER"
	NodeTypeTeam           NodeType = "TEAM"
	NodeTypeProject        NodeType = "PROJECT"
	NodeTypeGoal           NodeType = "GOAL"
	NodeTypeKnowledgeAsset NodeType = "KNOWLEDGE_ASSET"
	NodeTypeDepartment     NodeType = "DEPARTMENT"

	// NodeTypeUnknown is the explicit default variant substituted during
	// sanitization for payloads that arrive without a type.
	NodeTypeUnknown NodeType = "UNKNOWN"
)

var knownNodeTypes = map[NodeType]struct{}{
	NodeTypeUser:           {},
	NodeTypeTeam:           {},
	NodeTypeProject:        {},
	NodeTypeGoal:           {},
	NodeTypeKnowledgeAsset: {},
	NodeTypeDepartment:     {},
	NodeTypeUnknown:        {},
}

// ParseNodeType maps a raw wire value onto a known variant, substituting
// NodeTypeUnknown for anything missing or unrecognized
func ParseNodeType(raw string) NodeType {
	t := NodeType(raw)
	if _, ok := knownNodeTypes[t]; ok {
		return t
	}
	return NodeTypeUnknown
}

// IsValid reports whether the type is one of the known variants
func (t NodeType) IsValid() bool {
	_, ok := knownNodeTypes[t]
	return ok
}

// Position is a 2D coordinate computed by a layout pass
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a single entity on the map. Identity is ID, unique within a
// snapshot. Position is populated by layout computation; everything else
// is immutable after ingestion.
type Node struct {
	ID       string                 `json:"id"`
	Label    string                 `json:"label"`
	Type     NodeType               `json:"type"`
	Position *Position              `json:"position,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// HasPosition reports whether a layout pass has placed this node
func (n *Node) HasPosition() bool {
	return n.Position != nil
}
