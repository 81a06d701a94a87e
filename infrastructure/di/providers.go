package di

import (
	"go.uber.org/zap"

	"mapcore/application/ports"
	"mapcore/application/session"
	"mapcore/domain/events"
	"mapcore/infrastructure/cache"
	"mapcore/infrastructure/config"
	"mapcore/infrastructure/layout"
	"mapcore/infrastructure/mapapi"
	"mapcore/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *observability.Collector
	Dispatcher  *events.Dispatcher
	Client      ports.BackendClient
	Cache       *cache.EntityCache
	Pool        *layout.Pool
	Offloader   *session.Offloader
	Index       *session.Index
	Controller  *session.Controller
	Viewport    *session.Viewport
	Interaction *session.Interaction
	Session     *session.Session
}

// Close releases the container's background resources
func (c *Container) Close() {
	c.Session.Close()
	c.Pool.Close()
	c.Cache.Dispose()
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideMetrics creates the metrics collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector("mapcore")
}

// ProvideDispatcher creates the session event dispatcher
func ProvideDispatcher() *events.Dispatcher {
	return events.NewDispatcher()
}

// ProvideBackendClient creates the map backend client
func ProvideBackendClient(cfg *config.Config, logger *zap.Logger) ports.BackendClient {
	return mapapi.NewClient(cfg.BackendBaseURL, logger, mapapi.WithToken(cfg.BackendToken))
}

// ProvideEntityCache creates the entity detail cache with evictions
// reported to the metrics collector
func ProvideEntityCache(cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) *cache.EntityCache {
	ec := cache.New(cfg.Tuning.CacheCapacity, cfg.Tuning.CacheTTL, logger)
	ec.OnEvict(func(count int) {
		metrics.CacheEvictions.Add(float64(count))
	})
	return ec
}

// ProvideLayoutEngine creates the default layout engine
func ProvideLayoutEngine(cfg *config.Config) layout.Engine {
	return layout.NewForceDirected()
}

// ProvideLayoutPool creates the layout worker pool
func ProvideLayoutPool(cfg *config.Config, logger *zap.Logger) *layout.Pool {
	return layout.NewPool(cfg.Tuning.LayoutWorkers, logger)
}

// ProvideLayoutConfig derives canvas geometry from tuning
func ProvideLayoutConfig(cfg *config.Config) layout.Config {
	lc := layout.DefaultConfig()
	lc.Iterations = cfg.Tuning.LayoutIterations
	return lc
}

// ProvideOffloader creates the layout offloader
func ProvideOffloader(
	engine layout.Engine,
	pool *layout.Pool,
	lc layout.Config,
	cfg *config.Config,
	metrics *observability.Collector,
	logger *zap.Logger,
) *session.Offloader {
	return session.NewOffloader(engine, pool, cfg.Tuning.SyncLayoutThreshold, lc, metrics, logger)
}

// ProvideIndex creates the search index
func ProvideIndex(cfg *config.Config) *session.Index {
	return session.NewIndex(cfg.Tuning.SearchResultLimit)
}

// ProvideController creates the graph data controller
func ProvideController(
	client ports.BackendClient,
	offloader *session.Offloader,
	index *session.Index,
	dispatcher *events.Dispatcher,
	metrics *observability.Collector,
	logger *zap.Logger,
) *session.Controller {
	return session.NewController(client, offloader, index, dispatcher, metrics, logger)
}

// ProvideViewport creates the viewport controller
func ProvideViewport(
	controller *session.Controller,
	cfg *config.Config,
	dispatcher *events.Dispatcher,
	logger *zap.Logger,
) *session.Viewport {
	return session.NewViewport(cfg.Tuning.ViewportThrottle, controller.Snapshot, dispatcher, logger)
}

// ProvideInteraction creates the interaction state machine
func ProvideInteraction(cfg *config.Config, dispatcher *events.Dispatcher, logger *zap.Logger) *session.Interaction {
	return session.NewInteraction(cfg.Tuning.HoverClearDebounce, dispatcher, logger)
}

// ProvideSession creates the session facade
func ProvideSession(
	controller *session.Controller,
	viewport *session.Viewport,
	interaction *session.Interaction,
	index *session.Index,
	offloader *session.Offloader,
	client ports.BackendClient,
	entityCache *cache.EntityCache,
	cfg *config.Config,
	dispatcher *events.Dispatcher,
	metrics *observability.Collector,
	logger *zap.Logger,
) *session.Session {
	return session.NewSession(
		controller,
		viewport,
		interaction,
		index,
		offloader,
		client,
		entityCache,
		cfg.Tuning.DetailFetchTimeout,
		dispatcher,
		metrics,
		logger,
	)
}
