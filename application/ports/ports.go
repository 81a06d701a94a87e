// Package ports defines the interfaces the session layer consumes.
// Infrastructure provides the implementations.
package ports

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"mapcore/domain/graph"
)

var validate = validator.New()

// LoadQuery carries the parameters that produce a graph snapshot. The
// viewport, when present, is an optional hint the backend may use to bias
// the query; nothing downstream assumes it filtered anything.
type LoadQuery struct {
	Types        []string        `json:"types,omitempty"`
	Statuses     []string        `json:"statuses,omitempty"`
	CenterNodeID string          `json:"center_node_id,omitempty"`
	Depth        int             `json:"depth,omitempty" validate:"gte=0,lte=6"`
	ClusterTeams bool            `json:"cluster_teams,omitempty"`
	Viewport     *graph.Viewport `json:"viewport,omitempty"`
}

// Validate checks the query parameters
func (q LoadQuery) Validate() error {
	return validate.Struct(q)
}

// MapDataFetcher retrieves graph snapshots from the map backend
type MapDataFetcher interface {
	FetchMapData(ctx context.Context, query LoadQuery) (*graph.Snapshot, error)
}

// EntityFetcher retrieves entity detail payloads. The payload is opaque
// to the session core beyond caching.
type EntityFetcher interface {
	FetchEntity(ctx context.Context, entityType, id string) (json.RawMessage, error)
}

// LinkCreator persists a relationship chosen through link mode
type LinkCreator interface {
	CreateLink(ctx context.Context, source, target graph.Node) error
}

// BackendClient is the full surface of the external map backend
type BackendClient interface {
	MapDataFetcher
	EntityFetcher
	LinkCreator
}
