package events

import (
	"time"

	"mapcore/domain/graph"
)

// SessionEvent is the base interface for all session events. Events
// represent something that has already happened in the interaction layer;
// collaborators (tooltips, detail panels, overlays, link modals) subscribe
// to react to them.
type SessionEvent interface {
	GetEventType() string
	GetTimestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

func newBase(eventType string) BaseEvent {
	return BaseEvent{EventType: eventType, Timestamp: time.Now()}
}

// Selection events

// NodeSelected is raised when a node click resolves to a selection
type NodeSelected struct {
	BaseEvent
	NodeID   string         `json:"node_id"`
	NodeType graph.NodeType `json:"node_type"`
}

// NewNodeSelected creates a NodeSelected event
func NewNodeSelected(nodeID string, nodeType graph.NodeType) NodeSelected {
	return NodeSelected{BaseEvent: newBase("session.node_selected"), NodeID: nodeID, NodeType: nodeType}
}

// SelectionCleared is raised when a stage click deselects
type SelectionCleared struct {
	BaseEvent
}

// NewSelectionCleared creates a SelectionCleared event
func NewSelectionCleared() SelectionCleared {
	return SelectionCleared{BaseEvent: newBase("session.selection_cleared")}
}

// Hover events

// NodeHovered is raised the moment the pointer enters a node
type NodeHovered struct {
	BaseEvent
	NodeID string         `json:"node_id"`
	Screen graph.Position `json:"screen"`
}

// NewNodeHovered creates a NodeHovered event
func NewNodeHovered(nodeID string, screen graph.Position) NodeHovered {
	return NodeHovered{BaseEvent: newBase("session.node_hovered"), NodeID: nodeID, Screen: screen}
}

// HoverCleared is raised after the hover-clear debounce elapses
type HoverCleared struct {
	BaseEvent
}

// NewHoverCleared creates a HoverCleared event
func NewHoverCleared() HoverCleared {
	return HoverCleared{BaseEvent: newBase("session.hover_cleared")}
}

// Link-mode events

// LinkModeChanged is raised when link mode is entered or exited
type LinkModeChanged struct {
	BaseEvent
	Active bool `json:"active"`
}

// NewLinkModeChanged creates a LinkModeChanged event
func NewLinkModeChanged(active bool) LinkModeChanged {
	return LinkModeChanged{BaseEvent: newBase("session.link_mode_changed"), Active: active}
}

// LinkPromptTarget is raised after the source click; the UI prompts the
// user to select a target
type LinkPromptTarget struct {
	BaseEvent
	SourceID string `json:"source_id"`
}

// NewLinkPromptTarget creates a LinkPromptTarget event
func NewLinkPromptTarget(sourceID string) LinkPromptTarget {
	return LinkPromptTarget{BaseEvent: newBase("session.link_prompt_target"), SourceID: sourceID}
}

// LinkCreated is raised when both endpoints of a new relationship have
// been chosen; a collaborator performs the actual creation API call
type LinkCreated struct {
	BaseEvent
	Source graph.Node `json:"source"`
	Target graph.Node `json:"target"`
}

// NewLinkCreated creates a LinkCreated event
func NewLinkCreated(source, target graph.Node) LinkCreated {
	return LinkCreated{BaseEvent: newBase("session.link_created"), Source: source, Target: target}
}

// Viewport events

// ViewportChanged is raised on the throttled camera feed
type ViewportChanged struct {
	BaseEvent
	State graph.Viewport `json:"state"`
}

// NewViewportChanged creates a ViewportChanged event
func NewViewportChanged(state graph.Viewport) ViewportChanged {
	return ViewportChanged{BaseEvent: newBase("session.viewport_changed"), State: state}
}

// Load events

// SnapshotLoaded is raised after a load succeeds and positions are
// computed; NodeIDs feeds visibility-tracking overlay layers
type SnapshotLoaded struct {
	BaseEvent
	NodeIDs   []string `json:"node_ids"`
	NodeCount int      `json:"node_count"`
	EdgeCount int      `json:"edge_count"`
}

// NewSnapshotLoaded creates a SnapshotLoaded event
func NewSnapshotLoaded(nodeIDs []string, edgeCount int) SnapshotLoaded {
	return SnapshotLoaded{
		BaseEvent: newBase("session.snapshot_loaded"),
		NodeIDs:   nodeIDs,
		NodeCount: len(nodeIDs),
		EdgeCount: edgeCount,
	}
}

// LoadFailed is raised when a load fails; the previous snapshot remains
// displayed
type LoadFailed struct {
	BaseEvent
	Reason string `json:"reason"`
}

// NewLoadFailed creates a LoadFailed event
func NewLoadFailed(reason string) LoadFailed {
	return LoadFailed{BaseEvent: newBase("session.load_failed"), Reason: reason}
}
