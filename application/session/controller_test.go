package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapcore/application/ports"
	"mapcore/domain/events"
	"mapcore/domain/graph"
	"mapcore/infrastructure/layout"
	apperrors "mapcore/pkg/errors"
)

// gatedFetcher blocks each FetchMapData call until its release channel is
// signalled, letting tests interleave in-flight loads deterministically
type gatedFetcher struct {
	mu        sync.Mutex
	responses map[string]*graph.Snapshot
	errs      map[string]error
	gates     map[string]chan struct{}
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{
		responses: make(map[string]*graph.Snapshot),
		errs:      make(map[string]error),
		gates:     make(map[string]chan struct{}),
	}
}

func (f *gatedFetcher) respond(center string, s *graph.Snapshot) chan struct{} {
	gate := make(chan struct{})
	f.mu.Lock()
	f.responses[center] = s
	f.gates[center] = gate
	f.mu.Unlock()
	return gate
}

func (f *gatedFetcher) failWith(center string, err error) {
	f.mu.Lock()
	f.errs[center] = err
	f.mu.Unlock()
}

func (f *gatedFetcher) FetchMapData(ctx context.Context, q ports.LoadQuery) (*graph.Snapshot, error) {
	f.mu.Lock()
	gate := f.gates[q.CenterNodeID]
	s := f.responses[q.CenterNodeID]
	err := f.errs[q.CenterNodeID]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func snapshotOf(ids ...string) *graph.Snapshot {
	nodes := make([]graph.Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, graph.Node{ID: id, Label: "Node " + id, Type: graph.NodeTypeTeam})
	}
	return &graph.Snapshot{Nodes: nodes}
}

func newTestController(f ports.MapDataFetcher) (*Controller, *Index, *events.Dispatcher) {
	d := events.NewDispatcher()
	idx := NewIndex(10)
	off := NewOffloader(&layout.Circular{}, nil, 50, layout.DefaultConfig(), nil, nil)
	return NewController(f, off, idx, d, nil, nil), idx, d
}

func TestController_LoadAppliesSnapshot(t *testing.T) {
	f := newGatedFetcher()
	f.respond("a", snapshotOf("a", "b"))
	c, idx, d := newTestController(f)
	loaded := newEventRecorder(d, "session.snapshot_loaded")

	// Unblock immediately
	f.mu.Lock()
	close(f.gates["a"])
	f.mu.Unlock()

	require.NoError(t, c.Load(context.Background(), ports.LoadQuery{CenterNodeID: "a"}))

	s := c.Snapshot()
	require.Len(t, s.Nodes, 2)
	for i := range s.Nodes {
		assert.True(t, s.Nodes[i].HasPosition(), "loaded nodes carry positions")
	}
	assert.Nil(t, c.Err())

	require.Equal(t, 1, loaded.count())
	evt := loaded.all()[0].(events.SnapshotLoaded)
	assert.ElementsMatch(t, []string{"a", "b"}, evt.NodeIDs)

	// Index follows the snapshot
	assert.Len(t, idx.Search("node", nil), 2)
}

func TestController_StaleResultDiscarded(t *testing.T) {
	f := newGatedFetcher()
	oldGate := f.respond("old", snapshotOf("old1"))
	newGate := f.respond("new", snapshotOf("new1"))
	c, idx, _ := newTestController(f)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = c.Load(context.Background(), ports.LoadQuery{CenterNodeID: "old"})
	}()
	time.Sleep(20 * time.Millisecond)
	go func() {
		defer wg.Done()
		_ = c.Load(context.Background(), ports.LoadQuery{CenterNodeID: "new"})
	}()
	time.Sleep(20 * time.Millisecond)

	// Newer request completes first; the older result must then be dropped
	close(newGate)
	time.Sleep(50 * time.Millisecond)
	close(oldGate)
	wg.Wait()

	s := c.Snapshot()
	require.Len(t, s.Nodes, 1)
	assert.Equal(t, "new1", s.Nodes[0].ID)

	// Stale result must not have rebuilt the index either
	assert.Len(t, idx.Search("node new1", nil), 1)
	assert.Empty(t, idx.Search("node old1", nil))
}

func TestController_StaleResultNeverAnnounces(t *testing.T) {
	f := newGatedFetcher()
	oldGate := f.respond("old", snapshotOf("old1"))
	newGate := f.respond("new", snapshotOf("new1"))
	c, idx, d := newTestController(f)
	loaded := newEventRecorder(d, "session.snapshot_loaded")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = c.Load(context.Background(), ports.LoadQuery{CenterNodeID: "old"})
	}()
	time.Sleep(20 * time.Millisecond)
	go func() {
		defer wg.Done()
		_ = c.Load(context.Background(), ports.LoadQuery{CenterNodeID: "new"})
	}()
	time.Sleep(20 * time.Millisecond)

	close(newGate)
	time.Sleep(50 * time.Millisecond)
	close(oldGate)
	wg.Wait()

	// Exactly one announcement, and it describes the displayed snapshot
	require.Equal(t, 1, loaded.count())
	evt := loaded.all()[0].(events.SnapshotLoaded)
	assert.Equal(t, []string{"new1"}, evt.NodeIDs)

	s := c.Snapshot()
	require.Len(t, s.Nodes, 1)
	assert.Equal(t, "new1", s.Nodes[0].ID)
	assert.Len(t, idx.Search("node new1", nil), 1)
	assert.Empty(t, idx.Search("node old1", nil))
}

func TestController_OutOfOrderCompletionConverges(t *testing.T) {
	f := newGatedFetcher()
	firstGate := f.respond("first", snapshotOf("f1"))
	secondGate := f.respond("second", snapshotOf("s1"))
	c, _, _ := newTestController(f)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = c.Load(context.Background(), ports.LoadQuery{CenterNodeID: "first"})
	}()
	time.Sleep(20 * time.Millisecond)
	go func() {
		defer wg.Done()
		_ = c.Load(context.Background(), ports.LoadQuery{CenterNodeID: "second"})
	}()
	time.Sleep(20 * time.Millisecond)

	// Older completes first, newer afterwards: newer wins
	close(firstGate)
	time.Sleep(50 * time.Millisecond)
	close(secondGate)
	wg.Wait()

	s := c.Snapshot()
	require.Len(t, s.Nodes, 1)
	assert.Equal(t, "s1", s.Nodes[0].ID)
}

func TestController_FailureKeepsPreviousSnapshot(t *testing.T) {
	f := newGatedFetcher()
	f.respond("good", snapshotOf("g1"))
	f.mu.Lock()
	close(f.gates["good"])
	f.mu.Unlock()
	f.failWith("bad", apperrors.NewDataFetchError("map data", assert.AnError))

	c, _, d := newTestController(f)
	failed := newEventRecorder(d, "session.load_failed")

	require.NoError(t, c.Load(context.Background(), ports.LoadQuery{CenterNodeID: "good"}))

	err := c.Load(context.Background(), ports.LoadQuery{CenterNodeID: "bad"})
	require.Error(t, err)
	assert.True(t, apperrors.IsDataFetch(err))

	// The last good snapshot stays on display
	s := c.Snapshot()
	require.Len(t, s.Nodes, 1)
	assert.Equal(t, "g1", s.Nodes[0].ID)
	assert.Error(t, c.Err())
	assert.Equal(t, 1, failed.count())
}

func TestController_NonAppErrorIsWrapped(t *testing.T) {
	f := newGatedFetcher()
	f.failWith("", assert.AnError)
	c, _, _ := newTestController(f)

	err := c.Load(context.Background(), ports.LoadQuery{})
	require.Error(t, err)
	assert.True(t, apperrors.IsDataFetch(err))
}

func TestController_InvalidQueryRejected(t *testing.T) {
	c, _, _ := newTestController(newGatedFetcher())

	err := c.Load(context.Background(), ports.LoadQuery{Depth: 99})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestController_SanitizesFetchedPayload(t *testing.T) {
	f := newGatedFetcher()
	dirty := &graph.Snapshot{
		Nodes: []graph.Node{
			{ID: "a", Label: "A", Type: graph.NodeTypeTeam},
			{ID: "a", Label: "A dup", Type: graph.NodeTypeTeam},
		},
		Edges: []graph.Edge{
			{ID: "e1", Source: "a", Target: "missing", Type: graph.EdgeTypeRelatedTo},
		},
	}
	f.respond("dirty", dirty)
	f.mu.Lock()
	close(f.gates["dirty"])
	f.mu.Unlock()
	c, _, _ := newTestController(f)

	require.NoError(t, c.Load(context.Background(), ports.LoadQuery{CenterNodeID: "dirty"}))

	s := c.Snapshot()
	assert.Len(t, s.Nodes, 1, "duplicate collapsed, first occurrence wins")
	assert.Empty(t, s.Edges, "dangling edge dropped")
	assert.Equal(t, "A", s.Nodes[0].Label)
}
