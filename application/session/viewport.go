package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"mapcore/domain/events"
	"mapcore/domain/graph"
	apperrors "mapcore/pkg/errors"
)

// SnapshotProvider hands the viewport the current snapshot for node
// lookups without coupling it to the data controller
type SnapshotProvider func() *graph.Snapshot

// Viewport owns the camera pan/zoom state and exposes a throttled change
// feed. Throttling is time-based and last-call-wins: intermediate states
// within the window are coalesced, but the most recent state is always
// eventually delivered.
type Viewport struct {
	mu       sync.Mutex
	current  graph.Viewport
	interval time.Duration
	lastEmit time.Time
	timer    *time.Timer

	snapshot   SnapshotProvider
	dispatcher *events.Dispatcher
	logger     *zap.Logger
}

// NewViewport creates a viewport controller in the canonical default
// state
func NewViewport(interval time.Duration, snapshot SnapshotProvider, dispatcher *events.Dispatcher, logger *zap.Logger) *Viewport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Viewport{
		current:    graph.DefaultViewport(),
		interval:   interval,
		snapshot:   snapshot,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// State returns the current camera state
func (v *Viewport) State() graph.Viewport {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// SetInterval replaces the throttle window; applies from the next change
func (v *Viewport) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	v.mu.Lock()
	v.interval = interval
	v.mu.Unlock()
}

// OnViewportChange records a camera movement. Emission is throttled to at
// most once per interval; a trailing timer delivers whatever state is
// newest when the window reopens.
func (v *Viewport) OnViewportChange(state graph.Viewport) {
	v.mu.Lock()
	v.current = state

	now := time.Now()
	if now.Sub(v.lastEmit) >= v.interval {
		v.lastEmit = now
		if v.timer != nil {
			v.timer.Stop()
			v.timer = nil
		}
		v.mu.Unlock()
		v.dispatcher.Publish(events.NewViewportChanged(state))
		return
	}

	if v.timer == nil {
		remaining := v.interval - now.Sub(v.lastEmit)
		v.timer = time.AfterFunc(remaining, v.emitTrailing)
	}
	v.mu.Unlock()
}

// emitTrailing fires when the throttle window reopens and delivers the
// newest coalesced state
func (v *Viewport) emitTrailing() {
	v.mu.Lock()
	v.timer = nil
	v.lastEmit = time.Now()
	state := v.current
	v.mu.Unlock()

	v.dispatcher.Publish(events.NewViewportChanged(state))
}

// Reset returns the camera to the canonical default state, bypassing the
// throttle
func (v *Viewport) Reset() {
	v.mu.Lock()
	v.current = graph.DefaultViewport()
	v.lastEmit = time.Now()
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	state := v.current
	v.mu.Unlock()

	v.dispatcher.Publish(events.NewViewportChanged(state))
}

// CenterOn moves the camera to center the given node. A node absent from
// the current snapshot is reported, not thrown: the camera stays put.
func (v *Viewport) CenterOn(nodeID string) error {
	s := v.snapshot()
	if s == nil {
		return apperrors.NewNotFoundError("snapshot")
	}

	node, ok := s.Node(nodeID)
	if !ok || !node.HasPosition() {
		v.logger.Warn("Cannot center on node",
			zap.String("nodeID", nodeID),
			zap.Bool("present", ok),
		)
		return apperrors.NewNotFoundError("node " + nodeID)
	}

	v.mu.Lock()
	v.current.X = node.Position.X
	v.current.Y = node.Position.Y
	v.lastEmit = time.Now()
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	state := v.current
	v.mu.Unlock()

	v.dispatcher.Publish(events.NewViewportChanged(state))
	return nil
}

// Stop cancels any pending trailing emission
func (v *Viewport) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
}
