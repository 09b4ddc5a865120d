//go:build wireinject
// +build wireinject

package di

import (
	"MicroTrade/pkg/config"
	"MicroTrade/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideStateCache,

		// Repositories
		ProvideTradeStore,
		ProvideEventSink,

		// Venue
		ProvidePaperVenue,
		ProvideAccount,
		ProvideMarketStream,
		ProvideFeed,

		// Decision services
		ProvidePricing,
		ProvideExtractor,
		ProvidePredictor,
		ProvideLedger,
		ProvideTrainer,
		ProvideLearningLoop,

		// Use cases
		ProvideTraders,
		ProvideEngine,

		// HTTP and application server
		ProvideStatusHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
