//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"mapcore/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideDispatcher,
	ProvideBackendClient,
	ProvideEntityCache,
	ProvideLayoutEngine,
	ProvideLayoutPool,
	ProvideLayoutConfig,
	ProvideOffloader,
	ProvideIndex,
	ProvideController,
	ProvideViewport,
	ProvideInteraction,
	ProvideSession,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
