package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"mapcore/domain/graph"
	"mapcore/infrastructure/layout"
	apperrors "mapcore/pkg/errors"
	"mapcore/pkg/observability"
)

// Offloader decides where layout computation runs. Small graphs are
// positioned inline; larger ones go to the worker pool. Pool failure of
// any kind degrades to inline computation, never to an unpositioned
// snapshot.
type Offloader struct {
	mu        sync.RWMutex
	threshold int

	engine  layout.Engine
	pool    *layout.Pool
	cfg     layout.Config
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewOffloader creates an offloader. A nil pool forces inline
// computation for every graph.
func NewOffloader(engine layout.Engine, pool *layout.Pool, threshold int, cfg layout.Config, metrics *observability.Collector, logger *zap.Logger) *Offloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Offloader{
		threshold: threshold,
		engine:    engine,
		pool:      pool,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
	}
}

// SetThreshold replaces the node count at or above which layout is
// offloaded
func (o *Offloader) SetThreshold(n int) {
	if n < 0 {
		return
	}
	o.mu.Lock()
	o.threshold = n
	o.mu.Unlock()
}

// Process computes positions for the snapshot and returns a positioned
// copy. The input snapshot is never mutated.
func (o *Offloader) Process(ctx context.Context, s *graph.Snapshot) (*graph.Snapshot, error) {
	o.mu.RLock()
	threshold := o.threshold
	o.mu.RUnlock()

	if o.pool == nil || len(s.Nodes) < threshold {
		return o.inline(ctx, s)
	}

	start := time.Now()
	positions, err := o.offload(ctx, s)
	if err != nil {
		// Caller cancellation propagates; anything else falls back
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.logger.Warn("Offloaded layout failed, computing inline",
			zap.Int("nodeCount", len(s.Nodes)),
			zap.Error(err),
		)
		return o.inline(ctx, s)
	}

	if o.metrics != nil {
		o.metrics.ObserveLayout("worker", time.Since(start))
	}
	return s.WithPositions(positions), nil
}

// inline computes positions on the calling goroutine
func (o *Offloader) inline(ctx context.Context, s *graph.Snapshot) (*graph.Snapshot, error) {
	start := time.Now()
	positions, err := o.engine.Compute(ctx, s, o.cfg)
	if err != nil {
		return nil, err
	}
	if o.metrics != nil {
		o.metrics.ObserveLayout("sync", time.Since(start))
	}
	return s.WithPositions(positions), nil
}

// offload runs the layout on the worker pool
func (o *Offloader) offload(ctx context.Context, s *graph.Snapshot) (map[string]graph.Position, error) {
	handle, err := o.pool.Submit(ctx, func(taskCtx context.Context) (map[string]graph.Position, error) {
		return o.engine.Compute(taskCtx, s, o.cfg)
	})
	if err != nil {
		return nil, err
	}

	positions, err := handle.Wait(ctx)
	if err != nil {
		if apperrors.IsWorker(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, apperrors.NewWorkerError("layout task failed", err)
	}
	return positions, nil
}
