// Package di wires the application together. Providers live in
// providers.go, the injector declaration in wire.go, and the generated
// injector in wire_gen.go.
package di

import (
	"catgraph/application/commands"
	"catgraph/application/commands/bus"
	"catgraph/application/ports"
	querybus "catgraph/application/queries/bus"
	"catgraph/application/services"
	"catgraph/infrastructure/config"
	"catgraph/infrastructure/persistence/dynamodb"
	"catgraph/pkg/extensions"
	"catgraph/pkg/observability"
	"catgraph/pkg/ratelimit"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Dynamic *config.DynamicConfig

	CategoryRepo   ports.CategoryRepository
	SimilarityRepo ports.SimilarityRepository
	EventStore     ports.EventStore
	UoWFactory     ports.UnitOfWorkFactory
	LockManager    ports.LockManager
	Cache          ports.Cache

	EventBus       ports.EventBus
	EventPublisher ports.EventPublisher
	Outbox         *dynamodb.OutboxProcessor

	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus

	// BulkLink and Pruner are also reachable through the command bus; the
	// REST layer calls them directly because their per-item reports have
	// to reach the response.
	BulkLink *commands.BulkLinkCategoriesHandler
	Pruner   *commands.PruneOrphanEdgesHandler

	Analysis *services.AnalysisService
	Hooks    *extensions.HookManager

	Collector   *observability.Collector
	CloudWatch  *observability.CloudWatchMetrics
	RateLimiter ratelimit.RateLimiter
}
