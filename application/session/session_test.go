package session

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapcore/application/ports"
	"mapcore/domain/events"
	"mapcore/domain/graph"
	"mapcore/infrastructure/cache"
	"mapcore/infrastructure/config"
	"mapcore/infrastructure/layout"
	apperrors "mapcore/pkg/errors"
)

// fakeBackend is an in-memory ports.BackendClient
type fakeBackend struct {
	snapshot    *graph.Snapshot
	entityCalls atomic.Int64
	linkCalls   atomic.Int64

	// slowID names one entity whose fetch blocks until cancelled
	slowID string
}

func (f *fakeBackend) FetchMapData(ctx context.Context, q ports.LoadQuery) (*graph.Snapshot, error) {
	return f.snapshot, nil
}

func (f *fakeBackend) FetchEntity(ctx context.Context, entityType, id string) (json.RawMessage, error) {
	f.entityCalls.Add(1)
	if id == f.slowID {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return json.RawMessage(`{"id":"` + id + `"}`), nil
}

func (f *fakeBackend) CreateLink(ctx context.Context, source, target graph.Node) error {
	f.linkCalls.Add(1)
	return nil
}

func newTestSession(t *testing.T, backend *fakeBackend) *Session {
	t.Helper()

	d := events.NewDispatcher()
	idx := NewIndex(10)
	off := NewOffloader(&layout.Circular{}, nil, 50, layout.DefaultConfig(), nil, nil)
	ctrl := NewController(backend, off, idx, d, nil, nil)
	vp := NewViewport(500*time.Millisecond, ctrl.Snapshot, d, nil)
	ia := NewInteraction(300*time.Millisecond, d, nil)
	ec := cache.New(50, time.Minute, nil)

	s := NewSession(ctrl, vp, ia, idx, off, backend, ec, time.Second, d, nil, nil)
	t.Cleanup(s.Close)

	require.NoError(t, s.Load(context.Background(), ports.LoadQuery{}))
	return s
}

func TestSession_SelectNodeFetchesAndCaches(t *testing.T) {
	backend := &fakeBackend{snapshot: snapshotOf("a", "b")}
	s := newTestSession(t, backend)

	payload, err := s.SelectNode(context.Background(), "a", graph.NodeTypeTeam)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a"}`, string(payload))
	assert.Equal(t, "a", s.Interaction.Selection().SelectedNodeID)

	// Second selection of the same entity is served from cache
	_, err = s.SelectNode(context.Background(), "a", graph.NodeTypeTeam)
	require.NoError(t, err)
	assert.Equal(t, int64(1), backend.entityCalls.Load())
}

func TestSession_SelectUnknownNode(t *testing.T) {
	backend := &fakeBackend{snapshot: snapshotOf("a")}
	s := newTestSession(t, backend)

	_, err := s.SelectNode(context.Background(), "ghost", graph.NodeTypeTeam)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	assert.Equal(t, int64(0), backend.entityCalls.Load())
}

func TestSession_SelectNodeDefaultsEntityType(t *testing.T) {
	backend := &fakeBackend{snapshot: snapshotOf("a")}
	s := newTestSession(t, backend)

	// Invalid hint falls back to the node's own type
	_, err := s.SelectNode(context.Background(), "a", "NOT_A_TYPE")
	require.NoError(t, err)
	assert.Equal(t, int64(1), backend.entityCalls.Load())
}

func TestSession_NewSelectionCancelsInFlightFetch(t *testing.T) {
	backend := &fakeBackend{snapshot: snapshotOf("a", "b"), slowID: "a"}
	s := newTestSession(t, backend)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.SelectNode(context.Background(), "a", graph.NodeTypeTeam)
		errCh <- err
	}()

	// Give the first fetch time to start, then supersede it
	time.Sleep(50 * time.Millisecond)
	_, err := s.SelectNode(context.Background(), "b", graph.NodeTypeTeam)
	require.NoError(t, err)

	select {
	case err := <-errCh:
		assert.Error(t, err, "superseded fetch must be abandoned")
	case <-time.After(time.Second):
		t.Fatal("first selection never returned")
	}
}

func TestSession_LinkNodes(t *testing.T) {
	backend := &fakeBackend{snapshot: snapshotOf("a", "b")}
	s := newTestSession(t, backend)

	a, _ := s.Controller.Snapshot().Node("a")
	b, _ := s.Controller.Snapshot().Node("b")

	require.NoError(t, s.LinkNodes(context.Background(), *a, *b))
	assert.Equal(t, int64(1), backend.linkCalls.Load())
}

func TestSession_LinkNodesRejectsSelfLink(t *testing.T) {
	backend := &fakeBackend{snapshot: snapshotOf("a")}
	s := newTestSession(t, backend)

	a, _ := s.Controller.Snapshot().Node("a")

	err := s.LinkNodes(context.Background(), *a, *a)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Equal(t, int64(0), backend.linkCalls.Load())
}

func TestSession_SearchDelegatesToIndex(t *testing.T) {
	backend := &fakeBackend{snapshot: snapshotOf("a", "b")}
	s := newTestSession(t, backend)

	assert.Len(t, s.Search("node", nil), 2)
	assert.Empty(t, s.Search("", nil))
}

func TestSession_ApplyTuning(t *testing.T) {
	backend := &fakeBackend{snapshot: snapshotOf("a", "b")}
	s := newTestSession(t, backend)

	s.ApplyTuning(config.Tuning{
		HoverClearDebounce:  10 * time.Millisecond,
		ViewportThrottle:    10 * time.Millisecond,
		SyncLayoutThreshold: 1,
		SearchResultLimit:   1,
		DetailFetchTimeout:  time.Second,
	})

	assert.Len(t, s.Search("node", nil), 1, "tightened result cap applies immediately")
}
