//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/pyrelight/pyrelight/internal/core/assets"
	"github.com/pyrelight/pyrelight/internal/core/observability/log"
	"github.com/pyrelight/pyrelight/internal/core/resources"
)

func ProvideLogger() *log.Logger {
	wire.Build(log.Provide)
	return log.New(log.LevelDebug)
}

func ProvideAssetStore() *assets.Store {
	wire.Build(assets.NewStore)
	return nil
}

func ProvideResourceRegistry(l log.Log) *resources.Registry {
	wire.Build(resources.NewRegistry)
	return nil
}
