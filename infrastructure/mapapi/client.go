// Package mapapi is the HTTP client for the external map backend. The
// backend owns persistence and data contracts; this client only shapes
// requests and decodes snapshots.
package mapapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"mapcore/application/ports"
	"mapcore/domain/graph"
	apperrors "mapcore/pkg/errors"
)

// Client talks to the map backend over HTTP with a circuit breaker in
// front of every call
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	token      string
	logger     *zap.Logger
}

var _ ports.BackendClient = (*Client)(nil)

// Option customizes the client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token attached to every request
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// NewClient creates a backend client
func NewClient(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "map-backend",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Only trip with enough requests to make a decision
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.8
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return c
}

// mapDataResponse is the wire shape of GET /map/data
type mapDataResponse struct {
	Nodes []wireNode `json:"nodes"`
	Edges []wireEdge `json:"edges"`
}

type wireNode struct {
	ID       string                 `json:"id"`
	Label    string                 `json:"label"`
	Type     string                 `json:"type"`
	Position *graph.Position        `json:"position,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

type wireEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
	Label  string `json:"label,omitempty"`
}

// FetchMapData retrieves a snapshot filtered by the query parameters.
// The returned snapshot is not yet sanitized; the data controller owns
// the ingestion pass.
func (c *Client) FetchMapData(ctx context.Context, query ports.LoadQuery) (*graph.Snapshot, error) {
	params := url.Values{}
	if len(query.Types) > 0 {
		params.Set("types", strings.Join(query.Types, ","))
	}
	if len(query.Statuses) > 0 {
		params.Set("statuses", strings.Join(query.Statuses, ","))
	}
	if query.CenterNodeID != "" {
		params.Set("center_node_id", query.CenterNodeID)
		params.Set("depth", strconv.Itoa(query.Depth))
	}
	if query.ClusterTeams {
		params.Set("cluster_teams", "true")
	}
	if query.Viewport != nil {
		params.Set("view_x", formatFloat(query.Viewport.X))
		params.Set("view_y", formatFloat(query.Viewport.Y))
		params.Set("view_ratio", formatFloat(query.Viewport.Zoom))
	}

	endpoint := c.baseURL + "/map/data"
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, apperrors.NewDataFetchError("map data", err)
	}

	var wire mapDataResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, apperrors.NewDataFetchError("map data", err)
	}

	snapshot := &graph.Snapshot{
		Nodes: make([]graph.Node, 0, len(wire.Nodes)),
		Edges: make([]graph.Edge, 0, len(wire.Edges)),
	}
	for _, n := range wire.Nodes {
		snapshot.Nodes = append(snapshot.Nodes, graph.Node{
			ID:       n.ID,
			Label:    n.Label,
			Type:     graph.NodeType(n.Type),
			Position: n.Position,
			Data:     n.Data,
		})
	}
	for _, e := range wire.Edges {
		snapshot.Edges = append(snapshot.Edges, graph.Edge{
			ID:     e.ID,
			Source: e.Source,
			Target: e.Target,
			Type:   graph.EdgeType(e.Type),
			Label:  e.Label,
		})
	}

	c.logger.Debug("Fetched map data",
		zap.Int("nodes", len(snapshot.Nodes)),
		zap.Int("edges", len(snapshot.Edges)),
	)

	return snapshot, nil
}

// FetchEntity retrieves a detail payload from GET /{type}s/{id}. The
// caller owns the deadline; hitting it surfaces a timeout error instead
// of a generic fetch failure.
func (c *Client) FetchEntity(ctx context.Context, entityType, id string) (json.RawMessage, error) {
	if entityType == "" || id == "" {
		return nil, apperrors.NewValidationError("entity type and id are required")
	}

	endpoint := fmt.Sprintf("%s/%ss/%s",
		c.baseURL,
		strings.ToLower(entityType),
		url.PathEscape(id),
	)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.NewTimeoutError("entity detail")
		}
		return nil, apperrors.NewDataFetchError("entity detail", err)
	}

	return json.RawMessage(body), nil
}

// CreateLink persists a relationship via POST /{type}s/{id}/link
func (c *Client) CreateLink(ctx context.Context, source, target graph.Node) error {
	endpoint := fmt.Sprintf("%s/%ss/%s/link",
		c.baseURL,
		strings.ToLower(string(source.Type)),
		url.PathEscape(source.ID),
	)

	payload, err := json.Marshal(map[string]string{
		"target_id":   target.ID,
		"target_type": string(target.Type),
	})
	if err != nil {
		return apperrors.NewInternalError("encoding link payload").WithCause(err)
	}

	_, err = c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return apperrors.NewDataFetchError("create link", err)
	}

	c.logger.Info("Link created",
		zap.String("source", source.ID),
		zap.String("target", target.ID),
	)
	return nil
}

// get issues a GET through the circuit breaker
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil)
}

// do issues a request through the circuit breaker
func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		c.attachAuth(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Unwrap url.Error so deadline checks work upstream
			var urlErr *url.Error
			if errors.As(err, &urlErr) {
				return nil, urlErr.Err
			}
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("backend returned %d: %s", resp.StatusCode, truncate(data, 256))
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// attachAuth adds the bearer token, warning once per call when the token
// is already expired so auth failures are attributable in the logs
func (c *Client) attachAuth(req *http.Request) {
	if c.token == "" {
		return
	}

	if claims := parseClaims(c.token); claims != nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(time.Now()) {
			c.logger.Warn("Backend token is expired", zap.Time("expired_at", exp.Time))
		}
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
}

// parseClaims decodes token claims without verifying the signature; the
// backend is the verifier, we only want the expiry for diagnostics
func parseClaims(token string) jwt.Claims {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	return parsed.Claims
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func truncate(data []byte, max int) string {
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
