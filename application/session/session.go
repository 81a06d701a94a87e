package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"mapcore/application/ports"
	"mapcore/domain/events"
	"mapcore/domain/graph"
	"mapcore/infrastructure/cache"
	"mapcore/infrastructure/config"
	apperrors "mapcore/pkg/errors"
	"mapcore/pkg/observability"
)

// Session is the facade over one map view: data loading, camera, gestures,
// search, and entity detail. One session per connected view.
type Session struct {
	Controller  *Controller
	Viewport    *Viewport
	Interaction *Interaction
	Index       *Index

	client    ports.BackendClient
	cache     *cache.EntityCache
	offloader *Offloader

	mu            sync.Mutex
	cancelDetail  context.CancelFunc
	detailTimeout time.Duration

	detailGroup singleflight.Group
	dispatcher  *events.Dispatcher
	metrics     *observability.Collector
	logger      *zap.Logger
}

// NewSession wires the session facade from its collaborators
func NewSession(
	controller *Controller,
	viewport *Viewport,
	interaction *Interaction,
	index *Index,
	offloader *Offloader,
	client ports.BackendClient,
	entityCache *cache.EntityCache,
	detailTimeout time.Duration,
	dispatcher *events.Dispatcher,
	metrics *observability.Collector,
	logger *zap.Logger,
) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		Controller:    controller,
		Viewport:      viewport,
		Interaction:   interaction,
		Index:         index,
		client:        client,
		cache:         entityCache,
		offloader:     offloader,
		detailTimeout: detailTimeout,
		dispatcher:    dispatcher,
		metrics:       metrics,
		logger:        logger,
	}
}

// Load fetches and applies a new snapshot
func (s *Session) Load(ctx context.Context, query ports.LoadQuery) error {
	return s.Controller.Load(ctx, query)
}

// Search runs a ranked query over the loaded node set
func (s *Session) Search(query string, types []graph.NodeType) []graph.Node {
	if s.metrics != nil {
		s.metrics.SearchQueries.Inc()
	}
	return s.Index.Search(query, types)
}

// SelectNode marks the node selected and fetches its detail payload,
// cache first. Selecting a new node abandons any detail fetch still in
// flight for the previous one.
func (s *Session) SelectNode(ctx context.Context, nodeID string, entityType graph.NodeType) (json.RawMessage, error) {
	node, ok := s.Controller.Snapshot().Node(nodeID)
	if !ok {
		return nil, apperrors.NewNotFoundError("node " + nodeID)
	}
	if !entityType.IsValid() {
		entityType = node.Type
	}

	s.Interaction.ClickNode(*node)

	key := cache.Key(string(entityType), nodeID)
	if payload, hit := s.cache.Get(key); hit {
		if s.metrics != nil {
			s.metrics.CacheHits.Inc()
		}
		return payload.(json.RawMessage), nil
	}
	if s.metrics != nil {
		s.metrics.CacheMisses.Inc()
	}

	s.mu.Lock()
	if s.cancelDetail != nil {
		s.cancelDetail()
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.detailTimeout)
	s.cancelDetail = cancel
	s.mu.Unlock()

	// Concurrent selections of the same entity share one backend call
	payload, err, _ := s.detailGroup.Do(key, func() (interface{}, error) {
		raw, err := s.client.FetchEntity(fetchCtx, string(entityType), nodeID)
		if err != nil {
			return nil, err
		}
		s.cache.Put(key, raw)
		return raw, nil
	})
	if err != nil {
		if apperrors.IsTimeout(err) || fetchCtx.Err() != nil {
			s.logger.Warn("Entity detail fetch abandoned",
				zap.String("nodeID", nodeID),
				zap.Error(err),
			)
		}
		return nil, err
	}
	return payload.(json.RawMessage), nil
}

// LinkNodes persists a relationship chosen through link mode
func (s *Session) LinkNodes(ctx context.Context, source, target graph.Node) error {
	if source.ID == target.ID {
		return apperrors.NewValidationError("cannot link a node to itself")
	}
	if err := s.client.CreateLink(ctx, source, target); err != nil {
		return err
	}
	s.logger.Info("Link created",
		zap.String("sourceID", source.ID),
		zap.String("targetID", target.ID),
	)
	return nil
}

// ApplyTuning pushes hot-reloaded tuning values into the live components
func (s *Session) ApplyTuning(t config.Tuning) {
	s.Viewport.SetInterval(t.ViewportThrottle)
	s.Interaction.SetHoverDebounce(t.HoverClearDebounce)
	s.offloader.SetThreshold(t.SyncLayoutThreshold)
	s.Index.SetLimit(t.SearchResultLimit)

	s.mu.Lock()
	if t.DetailFetchTimeout > 0 {
		s.detailTimeout = t.DetailFetchTimeout
	}
	s.mu.Unlock()

	s.logger.Info("Applied tuning",
		zap.Duration("viewportThrottle", t.ViewportThrottle),
		zap.Duration("hoverClearDebounce", t.HoverClearDebounce),
		zap.Int("syncLayoutThreshold", t.SyncLayoutThreshold),
	)
}

// Close releases timers and abandons any in-flight detail fetch
func (s *Session) Close() {
	s.mu.Lock()
	if s.cancelDetail != nil {
		s.cancelDetail()
		s.cancelDetail = nil
	}
	s.mu.Unlock()

	s.Viewport.Stop()
	s.Interaction.Stop()
}
