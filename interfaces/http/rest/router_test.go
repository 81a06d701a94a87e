package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mapcore/application/ports"
	"mapcore/application/session"
	"mapcore/domain/events"
	"mapcore/domain/graph"
	"mapcore/infrastructure/cache"
	"mapcore/infrastructure/config"
	"mapcore/infrastructure/layout"
	"mapcore/pkg/observability"
)

// stubBackend serves a fixed snapshot and canned entity payloads
type stubBackend struct {
	snapshot *graph.Snapshot
}

func (s *stubBackend) FetchMapData(ctx context.Context, q ports.LoadQuery) (*graph.Snapshot, error) {
	return s.snapshot, nil
}

func (s *stubBackend) FetchEntity(ctx context.Context, entityType, id string) (json.RawMessage, error) {
	return json.RawMessage(`{"id":"` + id + `","type":"` + entityType + `"}`), nil
}

func (s *stubBackend) CreateLink(ctx context.Context, source, target graph.Node) error {
	return nil
}

func testConfig(jwtSecret string) *config.Config {
	return &config.Config{
		ServerAddress:  ":0",
		Environment:    "development",
		BackendBaseURL: "http://localhost:9000",
		JWTSecret:      jwtSecret,
		JWTIssuer:      "mapcore",
		LogLevel:       "info",
		EnableMetrics:  false,
		EnableCORS:     false,
		Tuning:         config.DefaultTuning(),
	}
}

func newTestHandler(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()

	backend := &stubBackend{snapshot: &graph.Snapshot{Nodes: []graph.Node{
		{ID: "n1", Label: "Platform Team", Type: graph.NodeTypeTeam},
		{ID: "n2", Label: "Atlas Project", Type: graph.NodeTypeProject},
	}}}

	d := events.NewDispatcher()
	idx := session.NewIndex(10)
	off := session.NewOffloader(&layout.Circular{}, nil, 50, layout.DefaultConfig(), nil, nil)
	ctrl := session.NewController(backend, off, idx, d, nil, nil)
	vp := session.NewViewport(time.Millisecond, ctrl.Snapshot, d, nil)
	ia := session.NewInteraction(time.Millisecond, d, nil)
	ec := cache.New(10, time.Minute, nil)
	sess := session.NewSession(ctrl, vp, ia, idx, off, backend, ec, time.Second, d, nil, nil)
	t.Cleanup(sess.Close)

	metrics := observability.NewCollector("test")
	return NewRouter(sess, cfg, metrics, zap.NewNop()).Setup()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_HealthEndpoints(t *testing.T) {
	h := newTestHandler(t, testConfig(""))

	assert.Equal(t, http.StatusOK, doJSON(t, h, http.MethodGet, "/health", nil, nil).Code)
	assert.Equal(t, http.StatusOK, doJSON(t, h, http.MethodGet, "/ready", nil, nil).Code)
}

func TestRouter_LoadAndReadGraph(t *testing.T) {
	h := newTestHandler(t, testConfig(""))

	rec := doJSON(t, h, http.MethodPost, "/api/v1/graph/load", ports.LoadQuery{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/graph/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			NodeCount int `json:"node_count"`
			EdgeCount int `json:"edge_count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Data.NodeCount)
}

func TestRouter_SearchAfterLoad(t *testing.T) {
	h := newTestHandler(t, testConfig(""))
	require.Equal(t, http.StatusOK, doJSON(t, h, http.MethodPost, "/api/v1/graph/load", ports.LoadQuery{}, nil).Code)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/search?q=platform", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Count int `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Count)
}

func TestRouter_SelectAndDeselect(t *testing.T) {
	h := newTestHandler(t, testConfig(""))
	require.Equal(t, http.StatusOK, doJSON(t, h, http.MethodPost, "/api/v1/graph/load", ports.LoadQuery{}, nil).Code)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/nodes/n1/select", map[string]string{"entity_type": "TEAM"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/nodes/ghost/select", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/stage/click", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ViewportEndpoints(t *testing.T) {
	h := newTestHandler(t, testConfig(""))
	require.Equal(t, http.StatusOK, doJSON(t, h, http.MethodPost, "/api/v1/graph/load", ports.LoadQuery{}, nil).Code)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/viewport/", graph.Viewport{X: 5, Y: 5, Zoom: 2}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/viewport/center/n1", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/viewport/reset", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/viewport/center/ghost", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_LinkModeToggle(t *testing.T) {
	h := newTestHandler(t, testConfig(""))

	rec := doJSON(t, h, http.MethodPost, "/api/v1/link-mode", map[string]bool{"active": true}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Active bool `json:"Active"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Active)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/link-mode", map[string]bool{"active": false}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_AuthRequiredWhenSecretSet(t *testing.T) {
	secret := "test-secret"
	h := newTestHandler(t, testConfig(secret))

	rec := doJSON(t, h, http.MethodGet, "/api/v1/graph/", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	claims := jwt.MapClaims{
		"user_id": "u1",
		"iss":     "mapcore",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/graph/", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/graph/", nil, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
