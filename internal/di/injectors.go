//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"wqd/internal"
	"wqd/internal/controllers"
	"wqd/internal/notifier"
	"wqd/internal/providers"
	"wqd/internal/quality"
	"wqd/internal/services"
	"wqd/internal/storage"
	"wqd/internal/storage/interfaces"
	"wqd/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewReadCacheProvider,

		quality.ProvideNormalizer,
		quality.ProvideEvaluator,
		quality.ProvideAlertGate,
		wire.Bind(new(interfaces.AlertEvictor), new(*quality.AlertGate)),

		storage.NewZstdCompressor,
		storage.NewBackend,
		storage.ProvideReadingStore,
		storage.NewScheduler,

		notifier.NewHub,
		notifier.NewNotifierProvider,
		wire.Bind(new(notifier.Notifier), new(*notifier.FanOut)),

		services.NewIngestionService,
		controllers.NewApiController,
		controllers.NewHealthController,
		controllers.NewWsController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
