//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"catgraph/application/ports"
	"catgraph/infrastructure/config"
	"catgraph/infrastructure/persistence/dynamodb"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideCollector,
	ProvideCloudWatchMetrics,
	ProvideDynamicConfig,
	ProvideDomainConfig,
	ProvideCategoryRepository,
	ProvideSimilarityRepository,
	ProvideEventStore,
	ProvideUnitOfWorkFactory,
	ProvideEventPublisher,
	ProvideEventBus,
	ProvideOutboxProcessor,
	ProvideCache,
	ProvideLockManager,
	ProvideHooks,
	ProvideAnalysisService,
	ProvideRemovalSaga,
	ProvideBulkLinkHandler,
	ProvidePruneHandler,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideRateLimiter,
	wire.Bind(new(ports.EventStore), new(*dynamodb.EventStore)),
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
