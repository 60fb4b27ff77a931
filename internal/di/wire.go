//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"activegraph/internal/config"
	"activegraph/internal/interfaces/http/rest"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideZapLogger,
	ProvideTracing,
	ProvideCollector,
	ProvideBusOptions,
	ProvideGraph,
	ProvideForwarder,
	rest.NewSession,
	ProvideHandler,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
