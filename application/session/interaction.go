package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"mapcore/domain/events"
	"mapcore/domain/graph"
)

// InteractionState is the finite state of the gesture layer
type InteractionState int

const (
	// StateIdle is the normal browsing state
	StateIdle InteractionState = iota
	// StateLinkSelectingSource awaits the first click of link mode
	StateLinkSelectingSource
	// StateLinkAwaitingTarget holds the chosen source and awaits the
	// second click
	StateLinkAwaitingTarget
)

// SelectionState is the externally visible selection/hover state
type SelectionState struct {
	SelectedNodeID string
	HoveredNodeID  string
	HoverPosition  *graph.Position
}

// LinkModeState is the externally visible link-mode state
type LinkModeState struct {
	Active bool
	Source *graph.Node
}

// Interaction is the gesture state machine: selection, hover with
// debounced clearing, and two-click link creation. Misuse (stray clicks,
// re-clicking the link source) is a no-op, never an error.
type Interaction struct {
	mu         sync.Mutex
	state      InteractionState
	linkSource *graph.Node

	selectedNodeID string
	hoveredNodeID  string
	hoverPos       *graph.Position

	debounce   time.Duration
	hoverTimer *time.Timer
	hoverSeq   uint64

	dispatcher *events.Dispatcher
	logger     *zap.Logger
}

// NewInteraction creates the state machine in the idle state
func NewInteraction(hoverDebounce time.Duration, dispatcher *events.Dispatcher, logger *zap.Logger) *Interaction {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interaction{
		state:      StateIdle,
		debounce:   hoverDebounce,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// State returns the current machine state
func (i *Interaction) State() InteractionState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Selection returns the current selection/hover state
func (i *Interaction) Selection() SelectionState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return SelectionState{
		SelectedNodeID: i.selectedNodeID,
		HoveredNodeID:  i.hoveredNodeID,
		HoverPosition:  i.hoverPos,
	}
}

// LinkMode returns the current link-mode state
func (i *Interaction) LinkMode() LinkModeState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return LinkModeState{
		Active: i.state != StateIdle,
		Source: i.linkSource,
	}
}

// SetHoverDebounce replaces the hover-clear debounce window
func (i *Interaction) SetHoverDebounce(d time.Duration) {
	if d <= 0 {
		return
	}
	i.mu.Lock()
	i.debounce = d
	i.mu.Unlock()
}

// ClickNode processes a node click according to the current state. A
// node arriving without a valid type is tolerated: the unknown variant is
// substituted and the click proceeds.
func (i *Interaction) ClickNode(node graph.Node) {
	if !node.Type.IsValid() {
		i.logger.Warn("Clicked node has no valid type, substituting default",
			zap.String("nodeID", node.ID),
			zap.String("rawType", string(node.Type)),
		)
		node.Type = graph.ParseNodeType(string(node.Type))
	}

	i.mu.Lock()
	var out []events.SessionEvent

	switch i.state {
	case StateIdle:
		i.selectedNodeID = node.ID
		out = append(out, events.NewNodeSelected(node.ID, node.Type))

	case StateLinkSelectingSource:
		src := node
		i.linkSource = &src
		i.state = StateLinkAwaitingTarget
		out = append(out, events.NewLinkPromptTarget(node.ID))

	case StateLinkAwaitingTarget:
		// Re-clicking the source is ignored, not an error
		if i.linkSource != nil && i.linkSource.ID == node.ID {
			break
		}
		source := *i.linkSource
		i.linkSource = nil
		i.state = StateIdle
		out = append(out,
			events.NewLinkCreated(source, node),
			events.NewLinkModeChanged(false),
		)
	}
	i.mu.Unlock()

	for _, e := range out {
		i.dispatcher.Publish(e)
	}
}

// ClickBackground processes a stage click: the selection is always
// cleared and link mode, if active, is abandoned
func (i *Interaction) ClickBackground() {
	i.mu.Lock()
	var out []events.SessionEvent

	if i.selectedNodeID != "" {
		i.selectedNodeID = ""
	}
	out = append(out, events.NewSelectionCleared())

	if i.state != StateIdle {
		i.state = StateIdle
		i.linkSource = nil
		out = append(out, events.NewLinkModeChanged(false))
	}
	i.mu.Unlock()

	for _, e := range out {
		i.dispatcher.Publish(e)
	}
}

// EnterLinkMode starts the two-click edge creation flow
func (i *Interaction) EnterLinkMode() {
	i.mu.Lock()
	if i.state != StateIdle {
		i.mu.Unlock()
		return
	}
	i.state = StateLinkSelectingSource
	i.mu.Unlock()

	i.dispatcher.Publish(events.NewLinkModeChanged(true))
}

// CancelLinkMode abandons link mode from any state, discarding a partial
// selection
func (i *Interaction) CancelLinkMode() {
	i.mu.Lock()
	if i.state == StateIdle {
		i.mu.Unlock()
		return
	}
	i.state = StateIdle
	i.linkSource = nil
	i.mu.Unlock()

	i.dispatcher.Publish(events.NewLinkModeChanged(false))
}

// HoverNode processes a pointer hover. Entering a node applies
// immediately; leaving (nil node) is debounced so that moving from a node
// to its tooltip does not flicker-dismiss the tooltip. A new hover
// arriving before the debounce fires cancels the pending clear.
func (i *Interaction) HoverNode(node *graph.Node, screen *graph.Position) {
	i.mu.Lock()

	// Any fresh event invalidates a pending clear
	i.hoverSeq++
	if i.hoverTimer != nil {
		i.hoverTimer.Stop()
		i.hoverTimer = nil
	}

	if node == nil {
		if i.hoveredNodeID == "" {
			i.mu.Unlock()
			return
		}
		seq := i.hoverSeq
		i.hoverTimer = time.AfterFunc(i.debounce, func() { i.clearHover(seq) })
		i.mu.Unlock()
		return
	}

	changed := i.hoveredNodeID != node.ID
	i.hoveredNodeID = node.ID
	i.hoverPos = screen
	nodeID := node.ID
	var pos graph.Position
	if screen != nil {
		pos = *screen
	}
	i.mu.Unlock()

	if changed {
		i.dispatcher.Publish(events.NewNodeHovered(nodeID, pos))
	}
}

// clearHover fires after the debounce window; a stale sequence number
// means a newer hover event superseded this clear
func (i *Interaction) clearHover(seq uint64) {
	i.mu.Lock()
	if seq != i.hoverSeq || i.hoveredNodeID == "" {
		i.mu.Unlock()
		return
	}
	i.hoveredNodeID = ""
	i.hoverPos = nil
	i.hoverTimer = nil
	i.mu.Unlock()

	i.dispatcher.Publish(events.NewHoverCleared())
}

// Stop cancels any pending hover clear
func (i *Interaction) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.hoverTimer != nil {
		i.hoverTimer.Stop()
		i.hoverTimer = nil
	}
}
