package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"mapcore/application/ports"
	"mapcore/domain/events"
	"mapcore/domain/graph"
	apperrors "mapcore/pkg/errors"
	"mapcore/pkg/observability"
)

// Controller owns the loaded snapshot and the load pipeline: fetch,
// sanitize, layout, publish. Concurrent loads are ordered by a generation
// token; a result from an older request never overwrites a newer one.
type Controller struct {
	mu         sync.Mutex
	notifyMu   sync.Mutex
	snapshot   *graph.Snapshot
	lastErr    error
	lastQuery  ports.LoadQuery
	issuedGen  uint64
	appliedGen uint64

	fetcher   ports.MapDataFetcher
	offloader *Offloader
	index     *Index

	dispatcher *events.Dispatcher
	metrics    *observability.Collector
	logger     *zap.Logger
}

// NewController creates a controller with an empty snapshot
func NewController(fetcher ports.MapDataFetcher, offloader *Offloader, index *Index, dispatcher *events.Dispatcher, metrics *observability.Collector, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		snapshot:   &graph.Snapshot{},
		fetcher:    fetcher,
		offloader:  offloader,
		index:      index,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Snapshot returns the currently applied snapshot. Callers treat it as
// read-only; every load replaces it wholesale.
func (c *Controller) Snapshot() *graph.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Err returns the error of the most recent load attempt, if any
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Params returns the query of the most recently issued load
func (c *Controller) Params() ports.LoadQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastQuery
}

// Load fetches a snapshot for the query and, if it is still the newest
// result, applies it. A failed load keeps the previous snapshot on
// display and records the error.
func (c *Controller) Load(ctx context.Context, query ports.LoadQuery) error {
	if err := query.Validate(); err != nil {
		return apperrors.NewValidationError("invalid load query: " + err.Error())
	}

	c.mu.Lock()
	c.issuedGen++
	gen := c.issuedGen
	c.lastQuery = query
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.LoadsTotal.Inc()
	}

	// Fetch and layout run outside the lock so slow loads never block
	// interaction state reads
	fetched, err := c.fetcher.FetchMapData(ctx, query)
	if err != nil {
		return c.fail(gen, err)
	}

	report := fetched.Sanitize()
	if report.Dirty() {
		c.logger.Warn("Snapshot required sanitization",
			zap.Int("duplicateNodes", report.DuplicateNodes),
			zap.Int("unidentifiedNodes", report.UnidentifiedNodes),
			zap.Int("danglingEdges", report.DanglingEdges),
			zap.Int("defaultedTypes", report.DefaultedTypes),
		)
	}

	positioned, err := c.offloader.Process(ctx, fetched)
	if err != nil {
		return c.fail(gen, err)
	}

	c.mu.Lock()
	if gen <= c.appliedGen {
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.LoadsDiscarded.Inc()
		}
		c.logger.Debug("Discarding stale load result",
			zap.Uint64("generation", gen),
		)
		return nil
	}
	c.appliedGen = gen
	c.snapshot = positioned
	c.lastErr = nil
	// Rebuilding under the lock keeps the index in lockstep with the
	// displayed snapshot even when loads complete out of order
	c.index.Rebuild(positioned)
	c.mu.Unlock()

	// Serialize publishing and re-check the generation so a result that
	// was superseded between unlock and publish stays silent
	c.notifyMu.Lock()
	c.mu.Lock()
	latest := gen == c.appliedGen
	c.mu.Unlock()
	if latest {
		c.dispatcher.Publish(events.NewSnapshotLoaded(positioned.NodeIDs(), len(positioned.Edges)))
	}
	c.notifyMu.Unlock()
	return nil
}

// fail records a load failure without touching the applied snapshot
func (c *Controller) fail(gen uint64, err error) error {
	appErr := apperrors.GetAppError(err)
	if appErr == nil {
		appErr = apperrors.NewDataFetchError("load map data", err)
	}

	c.mu.Lock()
	// A failure of a stale request does not clobber newer state
	if gen > c.appliedGen {
		c.lastErr = appErr
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.LoadFailures.Inc()
	}
	c.logger.Error("Graph load failed",
		zap.Uint64("generation", gen),
		zap.Error(appErr),
	)
	c.dispatcher.Publish(events.NewLoadFailed(appErr.Message))
	return appErr
}
