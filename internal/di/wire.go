//go:build wireinject
// +build wireinject

package di

import (
	"PoolCast/pkg/config"
	"PoolCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisClient,
		ProvideCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideEventPublisher,

		// Stores
		ProvideObservationStore,
		ProvideFeatureStore,
		ProvidePredictionStore,
		ProvideModelStore,
		ProvideAccuracyStore,
		ProvideCVStore,
		ProvideRetrainingStore,
		ProvideTelemetryStore,
		ProvideQualityStore,

		// Domain services
		ProvideFuelSource,
		ProvidePredictor,
		ProvideQualityAnalyzer,

		// Use cases
		ProvideFeatureCalculator,
		ProvideForecaster,
		ProvideTrainer,
		ProvideCrossValidator,
		ProvideValidationTracker,
		ProvideQualityAuditor,
		ProvideRetrainingScheduler,
		ProvideIngestHandler,
		ProvideJobQueue,

		// Delivery
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
