package di

import (
	"context"
	"fmt"
	"time"

	"catgraph/application/commands"
	"catgraph/application/commands/bus"
	"catgraph/application/ports"
	"catgraph/application/queries"
	querybus "catgraph/application/queries/bus"
	queries_handlers "catgraph/application/queries/handlers"
	"catgraph/application/sagas"
	"catgraph/application/services"
	domaincfg "catgraph/domain/config"
	"catgraph/domain/events"
	"catgraph/infrastructure/config"
	"catgraph/infrastructure/messaging"
	"catgraph/infrastructure/messaging/eventbridge"
	infraobservability "catgraph/infrastructure/observability"
	"catgraph/infrastructure/persistence/dynamodb"
	"catgraph/infrastructure/persistence/memory"
	"catgraph/pkg/extensions"
	"catgraph/pkg/observability"
	"catgraph/pkg/ratelimit"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zapCfg.Build()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideCollector creates the Prometheus metrics collector
func ProvideCollector() *observability.Collector {
	return observability.NewCollector("catgraph")
}

// ProvideCloudWatchMetrics creates the CloudWatch metrics publisher
func ProvideCloudWatchMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.CloudWatchMetrics {
	namespace := fmt.Sprintf("CatGraph/%s", cfg.Environment)
	return observability.NewCloudWatchMetrics(namespace, client, logger)
}

// ProvideDynamicConfig creates the watched analysis limits source. Start runs
// here rather than in main so handlers wired below see file-backed limits
// instead of bare defaults.
func ProvideDynamicConfig(cfg *config.Config, logger *zap.Logger) (*config.DynamicConfig, error) {
	dynamic := config.NewDynamicConfig(domaincfg.DefaultDomainConfig(), cfg.AnalysisLimitsFile, logger)
	if err := dynamic.Start(); err != nil {
		return nil, fmt.Errorf("failed to start analysis limits watch: %w", err)
	}
	return dynamic, nil
}

// ProvideDomainConfig snapshots the domain limits for the command and query
// handlers. The overrides file only carries analysis tunables, so the
// hierarchy limits read from this snapshot never go stale; the analysis
// service holds the live source instead.
func ProvideDomainConfig(dynamic *config.DynamicConfig) *domaincfg.DomainConfig {
	return dynamic.Current()
}

// ProvideCategoryRepository creates a category repository
func ProvideCategoryRepository(client *awsdynamodb.Client, cfg *config.Config, collector *observability.Collector, logger *zap.Logger) ports.CategoryRepository {
	repo := dynamodb.NewCategoryRepository(client, cfg.DynamoDBTable, logger)
	return infraobservability.NewInstrumentedCategoryRepository(repo, collector, nil)
}

// ProvideSimilarityRepository creates a similarity edge repository
func ProvideSimilarityRepository(client *awsdynamodb.Client, cfg *config.Config, collector *observability.Collector, logger *zap.Logger) ports.SimilarityRepository {
	repo := dynamodb.NewSimilarityRepository(client, cfg.DynamoDBTable, logger)
	return infraobservability.NewInstrumentedSimilarityRepository(repo, collector, nil)
}

// ProvideEventStore creates the outbox-backed event store
func ProvideEventStore(client *awsdynamodb.Client, cfg *config.Config) *dynamodb.EventStore {
	return dynamodb.NewEventStore(client, cfg.DynamoDBTable)
}

// ProvideUnitOfWorkFactory creates the per-request transaction factory
func ProvideUnitOfWorkFactory(client *awsdynamodb.Client, cfg *config.Config, eventStore *dynamodb.EventStore, logger *zap.Logger) ports.UnitOfWorkFactory {
	return dynamodb.NewUnitOfWorkFactory(client, cfg.DynamoDBTable, eventStore, logger)
}

// ProvideEventPublisher creates the EventBridge publisher the outbox
// processor drains into
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// outboxRelayedEventTypes lists the event types the in-process bus copies
// into the outbox for EventBridge relay. categories.linked is absent: the
// link handler writes that event inside its unit of work, so the commit
// itself produced the outbox row and storing it again would relay it twice.
var outboxRelayedEventTypes = []string{
	"category.created",
	"category.relabeled",
	"category.moved",
	"category.deleted",
	"categories.unlinked",
	"analysis.completed",
}

// metricsSubscriberEventTypes lists the events that move the business
// counters.
var metricsSubscriberEventTypes = []string{
	"category.created",
	"category.deleted",
	"categories.linked",
	"categories.unlinked",
}

// treeCacheEventTypes lists the events after which the cached category tree
// is stale: anything that changes a node's place, label or existence.
var treeCacheEventTypes = []string{
	"category.created",
	"category.relabeled",
	"category.moved",
	"category.deleted",
}

// ProvideEventBus creates the in-process event bus with the outbox, metrics
// and cache invalidation subscriptions attached
func ProvideEventBus(eventStore *dynamodb.EventStore, collector *observability.Collector, cache ports.Cache, logger *zap.Logger) (ports.EventBus, error) {
	eventBus := messaging.NewInProcessEventBus(logger)

	outbox := messaging.NewOutboxSubscriber(eventStore, logger)
	for _, eventType := range outboxRelayedEventTypes {
		if err := eventBus.Subscribe(eventType, outbox); err != nil {
			return nil, fmt.Errorf("failed to subscribe outbox to %s: %w", eventType, err)
		}
	}

	counters := &metricsSubscriber{collector: collector}
	for _, eventType := range metricsSubscriberEventTypes {
		if err := eventBus.Subscribe(eventType, counters); err != nil {
			return nil, fmt.Errorf("failed to subscribe metrics to %s: %w", eventType, err)
		}
	}

	invalidator := messaging.NewCacheInvalidator(cache, logger, queries.GetTreeQuery{}.CacheKey())
	for _, eventType := range treeCacheEventTypes {
		if err := eventBus.Subscribe(eventType, invalidator); err != nil {
			return nil, fmt.Errorf("failed to subscribe cache invalidator to %s: %w", eventType, err)
		}
	}

	return eventBus, nil
}

// metricsSubscriber keeps the business counters in step with the domain
// events that change catalog size
type metricsSubscriber struct {
	collector *observability.Collector
}

func (s *metricsSubscriber) Handle(ctx context.Context, event events.DomainEvent) error {
	switch e := event.(type) {
	case events.CategoryCreated:
		s.collector.CategoriesCreated.Inc()
	case events.CategoryDeleted:
		s.collector.CategoriesDeleted.Inc()
		s.collector.EdgesRemoved.Add(float64(e.RemovedEdges))
	case events.CategoriesLinked:
		s.collector.EdgesCreated.Inc()
	case events.CategoriesUnlinked:
		s.collector.EdgesRemoved.Inc()
	}
	return nil
}

func (s *metricsSubscriber) CanHandle(eventType string) bool {
	for _, t := range metricsSubscriberEventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// ProvideOutboxProcessor creates the background relay that drains stored
// events to EventBridge
func ProvideOutboxProcessor(eventStore *dynamodb.EventStore, publisher ports.EventPublisher, logger *zap.Logger) *dynamodb.OutboxProcessor {
	return dynamodb.NewOutboxProcessor(eventStore, publisher, logger)
}

// ProvideCache creates the in-memory query and analysis cache
func ProvideCache() ports.Cache {
	return memory.NewCache()
}

// ProvideLockManager creates the DynamoDB-backed lock manager
func ProvideLockManager(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.LockManager {
	return dynamodb.NewDistributedLock(client, cfg.DynamoDBTable, logger)
}

// ProvideHooks creates the lifecycle hook manager with the default metric
// hooks registered
func ProvideHooks(collector *observability.Collector) *extensions.HookManager {
	hooks := extensions.NewHookManager()

	hooks.Register(extensions.HookAfterAnalysis, func(ctx context.Context, data interface{}) error {
		if d, ok := data.(extensions.AnalysisHookData); ok {
			collector.AnalysisRuns.WithLabelValues(d.Operation).Inc()
			collector.AnalysisDuration.WithLabelValues(d.Operation).Observe(d.Duration.Seconds())
		}
		return nil
	})

	hooks.Register(extensions.HookCacheHit, func(ctx context.Context, data interface{}) error {
		collector.CacheHits.Inc()
		return nil
	})

	hooks.Register(extensions.HookCacheMiss, func(ctx context.Context, data interface{}) error {
		collector.CacheMisses.Inc()
		return nil
	})

	return hooks
}

// ProvideAnalysisService creates the graph analysis service. It gets the
// live config source rather than the startup snapshot so analysis limit
// changes apply without a restart.
func ProvideAnalysisService(
	categoryRepo ports.CategoryRepository,
	similarityRepo ports.SimilarityRepository,
	dynamic *config.DynamicConfig,
	cache ports.Cache,
	eventBus ports.EventBus,
	hooks *extensions.HookManager,
	cfg *config.Config,
	logger *zap.Logger,
) *services.AnalysisService {
	service := services.NewAnalysisService(
		categoryRepo,
		similarityRepo,
		dynamic,
		cache,
		eventBus,
		cfg.AnalysisCacheTTLSeconds,
		logger,
	)
	service.UseHooks(hooks)
	return service
}

// ProvideRemovalSaga creates the category removal saga
func ProvideRemovalSaga(
	categoryRepo ports.CategoryRepository,
	similarityRepo ports.SimilarityRepository,
	domainCfg *domaincfg.DomainConfig,
	logger *zap.Logger,
) *sagas.CategoryRemovalSaga {
	return sagas.NewCategoryRemovalSaga(categoryRepo, similarityRepo, domainCfg, logger)
}

// ProvideBulkLinkHandler creates the bulk link handler. The REST layer holds
// the same instance to surface per-pair results, so the bus and the handler
// must not be wired separately.
func ProvideBulkLinkHandler(
	categoryRepo ports.CategoryRepository,
	similarityRepo ports.SimilarityRepository,
	eventBus ports.EventBus,
	locks ports.LockManager,
	domainCfg *domaincfg.DomainConfig,
	logger *zap.Logger,
) *commands.BulkLinkCategoriesHandler {
	return commands.NewBulkLinkCategoriesHandler(categoryRepo, similarityRepo, eventBus, locks, domainCfg, logger)
}

// ProvidePruneHandler creates the orphan edge prune handler, shared with the
// REST layer for the same reason as the bulk link handler
func ProvidePruneHandler(
	categoryRepo ports.CategoryRepository,
	similarityRepo ports.SimilarityRepository,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *commands.PruneOrphanEdgesHandler {
	return commands.NewPruneOrphanEdgesHandler(categoryRepo, similarityRepo, eventBus, logger)
}

// CommandHandlerAdapter adapts specific command handlers to the generic interface
type CommandHandlerAdapter struct {
	handler func(context.Context, bus.Command) error
}

func (a *CommandHandlerAdapter) Handle(ctx context.Context, cmd bus.Command) error {
	return a.handler(ctx, cmd)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	categoryRepo ports.CategoryRepository,
	similarityRepo ports.SimilarityRepository,
	uowFactory ports.UnitOfWorkFactory,
	eventBus ports.EventBus,
	locks ports.LockManager,
	removal *sagas.CategoryRemovalSaga,
	bulkLink *commands.BulkLinkCategoriesHandler,
	pruner *commands.PruneOrphanEdgesHandler,
	domainCfg *domaincfg.DomainConfig,
	collector *observability.Collector,
	logger *zap.Logger,
) *bus.CommandBus {
	commandBus := bus.NewCommandBusWithMiddleware(
		bus.LoggingMiddleware(newZapBusLogger(logger)),
		bus.MetricsMiddleware(commandBusMetrics{busMetrics{collector}}),
	)

	// Register CreateCategoryCommand handler. Mutating handlers return the
	// resulting entity for callers that hold them directly; the bus only
	// carries the error.
	createHandler := commands.NewCreateCategoryHandler(categoryRepo, eventBus, domainCfg, logger)
	commandBus.Register(commands.CreateCategoryCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			createCmd, ok := cmd.(commands.CreateCategoryCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			_, err := createHandler.Handle(ctx, createCmd)
			return err
		},
	})

	// Register UpdateCategoryCommand handler
	updateHandler := commands.NewUpdateCategoryHandler(categoryRepo, eventBus, domainCfg, logger)
	commandBus.Register(commands.UpdateCategoryCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			updateCmd, ok := cmd.(commands.UpdateCategoryCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			_, err := updateHandler.Handle(ctx, updateCmd)
			return err
		},
	})

	// Register MoveCategoryCommand handler
	moveHandler := commands.NewMoveCategoryHandler(categoryRepo, eventBus, locks, domainCfg, logger)
	commandBus.Register(commands.MoveCategoryCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			moveCmd, ok := cmd.(commands.MoveCategoryCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			_, err := moveHandler.Handle(ctx, moveCmd)
			return err
		},
	})

	// Register DeleteCategoryCommand handler
	deleteHandler := commands.NewDeleteCategoryHandler(removal, eventBus, locks, logger)
	commandBus.Register(commands.DeleteCategoryCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			deleteCmd, ok := cmd.(commands.DeleteCategoryCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			_, err := deleteHandler.Handle(ctx, deleteCmd)
			return err
		},
	})

	// Register LinkCategoriesCommand handler
	linkHandler := commands.NewLinkCategoriesHandler(categoryRepo, similarityRepo, uowFactory, eventBus, logger)
	commandBus.Register(commands.LinkCategoriesCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			linkCmd, ok := cmd.(commands.LinkCategoriesCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			_, err := linkHandler.Handle(ctx, linkCmd)
			return err
		},
	})

	// Register UnlinkCategoriesCommand handler
	unlinkHandler := commands.NewUnlinkCategoriesHandler(similarityRepo, eventBus, logger)
	commandBus.Register(commands.UnlinkCategoriesCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			unlinkCmd, ok := cmd.(commands.UnlinkCategoriesCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			return unlinkHandler.Handle(ctx, unlinkCmd)
		},
	})

	// Register BulkLinkCategoriesCommand handler, sharing the REST layer's
	// instance
	commandBus.Register(commands.BulkLinkCategoriesCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			bulkCmd, ok := cmd.(commands.BulkLinkCategoriesCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			_, err := bulkLink.Handle(ctx, bulkCmd)
			return err
		},
	})

	// Register PruneOrphanEdgesCommand handler
	commandBus.Register(commands.PruneOrphanEdgesCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			pruneCmd, ok := cmd.(commands.PruneOrphanEdgesCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			_, err := pruner.Handle(ctx, pruneCmd)
			return err
		},
	})

	return commandBus
}

// QueryHandlerAdapter adapts specific query handlers to the generic interface
type QueryHandlerAdapter struct {
	handler func(context.Context, querybus.Query) (interface{}, error)
}

func (a *QueryHandlerAdapter) Handle(ctx context.Context, query querybus.Query) (interface{}, error) {
	return a.handler(ctx, query)
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	categoryRepo ports.CategoryRepository,
	similarityRepo ports.SimilarityRepository,
	analysis *services.AnalysisService,
	cache ports.Cache,
	domainCfg *domaincfg.DomainConfig,
	cfg *config.Config,
	collector *observability.Collector,
	logger *zap.Logger,
) *querybus.QueryBus {
	queryBus := querybus.NewQueryBus()
	metrics := querybus.NewMetricsMiddleware(queryBusMetrics{busMetrics{collector}})

	// Register GetCategoryQuery handler
	getCategoryHandler := queries_handlers.NewGetCategoryHandler(categoryRepo, similarityRepo, domainCfg, logger)
	queryBus.Register(queries.GetCategoryQuery{}, metrics.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			getQuery, ok := query.(queries.GetCategoryQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return getCategoryHandler.Handle(ctx, getQuery)
		},
	}))

	// Register ListCategoriesQuery handler
	listHandler := queries_handlers.NewListCategoriesHandler(categoryRepo, logger)
	queryBus.Register(queries.ListCategoriesQuery{}, metrics.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			listQuery, ok := query.(queries.ListCategoriesQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return listHandler.Handle(ctx, listQuery)
		},
	}))

	treeHandler := queries_handlers.NewTreeQueryHandler(categoryRepo, domainCfg, logger)

	// Register GetTreeQuery handler. The full tree walk is the one read
	// worth caching; point reads stay uncached so clients observe their own
	// writes immediately. The event bus drops the cached tree on mutation
	// events, so the TTL only bounds staleness when a write skips the bus.
	var getTreeHandler querybus.QueryHandler = &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			treeQuery, ok := query.(queries.GetTreeQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return treeHandler.HandleGetTree(ctx, treeQuery)
		},
	}
	if cfg.QueryCacheTTLSeconds > 0 {
		getTreeHandler = querybus.NewCachingMiddleware(cache, cfg.QueryCacheTTLSeconds).Wrap(getTreeHandler)
	}
	queryBus.Register(queries.GetTreeQuery{}, metrics.Wrap(getTreeHandler))

	// Register GetRootsQuery handler
	queryBus.Register(queries.GetRootsQuery{}, metrics.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			rootsQuery, ok := query.(queries.GetRootsQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return treeHandler.HandleGetRoots(ctx, rootsQuery)
		},
	}))

	// Register GetChildrenQuery handler
	queryBus.Register(queries.GetChildrenQuery{}, metrics.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			childrenQuery, ok := query.(queries.GetChildrenQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return treeHandler.HandleGetChildren(ctx, childrenQuery)
		},
	}))

	// Register GetAncestorsQuery handler
	queryBus.Register(queries.GetAncestorsQuery{}, metrics.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			ancestorsQuery, ok := query.(queries.GetAncestorsQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return treeHandler.HandleGetAncestors(ctx, ancestorsQuery)
		},
	}))

	// Register GetDescendantsQuery handler
	queryBus.Register(queries.GetDescendantsQuery{}, metrics.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			descendantsQuery, ok := query.(queries.GetDescendantsQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return treeHandler.HandleGetDescendants(ctx, descendantsQuery)
		},
	}))

	similarityHandler := queries_handlers.NewSimilarityQueryHandler(categoryRepo, similarityRepo, logger)

	// Register GetSimilarQuery handler
	queryBus.Register(queries.GetSimilarQuery{}, metrics.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			similarQuery, ok := query.(queries.GetSimilarQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return similarityHandler.HandleGetSimilar(ctx, similarQuery)
		},
	}))

	// Register ListSimilaritiesQuery handler
	queryBus.Register(queries.ListSimilaritiesQuery{}, metrics.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			listQuery, ok := query.(queries.ListSimilaritiesQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return similarityHandler.HandleListSimilarities(ctx, listQuery)
		},
	}))

	analysisHandler := queries_handlers.NewAnalysisQueryHandler(analysis, logger)

	// Register GetIslandsQuery handler
	queryBus.Register(queries.GetIslandsQuery{}, metrics.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			islandsQuery, ok := query.(queries.GetIslandsQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return analysisHandler.HandleGetIslands(ctx, islandsQuery)
		},
	}))

	// Register GetDiameterQuery handler
	queryBus.Register(queries.GetDiameterQuery{}, metrics.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			diameterQuery, ok := query.(queries.GetDiameterQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return analysisHandler.HandleGetDiameter(ctx, diameterQuery)
		},
	}))

	// Register GetShortestPathQuery handler
	queryBus.Register(queries.GetShortestPathQuery{}, metrics.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			pathQuery, ok := query.(queries.GetShortestPathQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return analysisHandler.HandleGetShortestPath(ctx, pathQuery)
		},
	}))

	// Register GetStatsQuery handler
	queryBus.Register(queries.GetStatsQuery{}, metrics.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			statsQuery, ok := query.(queries.GetStatsQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return analysisHandler.HandleGetStats(ctx, statsQuery)
		},
	}))

	// Register GetReportQuery handler
	queryBus.Register(queries.GetReportQuery{}, metrics.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			reportQuery, ok := query.(queries.GetReportQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return analysisHandler.HandleGetReport(ctx, reportQuery)
		},
	}))

	return queryBus
}

// ProvideRateLimiter picks a limiter for the deployment shape: warm Lambda
// containers do not share memory, so they coordinate through DynamoDB, while
// a long-lived server keeps its buckets local. A zero rate disables limiting.
func ProvideRateLimiter(client *awsdynamodb.Client, cfg *config.Config) ratelimit.RateLimiter {
	if cfg.RateLimitPerSecond <= 0 {
		return nil
	}
	if cfg.IsLambda {
		return ratelimit.NewDistributedIPRateLimiter(client, cfg.DynamoDBTable, int(cfg.RateLimitPerSecond*60))
	}
	return ratelimit.NewTokenBucketLimiter(cfg.RateLimitBurst, time.Duration(float64(time.Second)/cfg.RateLimitPerSecond))
}

// zapBusLogger adapts zap to the buses' key-value logger interface
type zapBusLogger struct {
	sugar *zap.SugaredLogger
}

func newZapBusLogger(logger *zap.Logger) *zapBusLogger {
	return &zapBusLogger{sugar: logger.Sugar()}
}

func (l *zapBusLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *zapBusLogger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// busMetrics bridges the buses onto the Prometheus collector. The command
// and query packages declare identical but distinct metrics interfaces, so
// two thin wrappers share this implementation.
type busMetrics struct {
	collector *observability.Collector
}

func (m busMetrics) startTimer(metric, label string) *prometheus.Timer {
	return prometheus.NewTimer(m.collector.BusDuration.WithLabelValues(metric, label))
}

func (m busMetrics) increment(metric, label string) {
	m.collector.BusOperations.WithLabelValues(metric, label).Inc()
}

type commandBusMetrics struct{ busMetrics }

func (m commandBusMetrics) StartTimer(metric, label string) bus.Timer {
	return promTimer{m.startTimer(metric, label)}
}

func (m commandBusMetrics) Increment(metric, label string) {
	m.increment(metric, label)
}

type queryBusMetrics struct{ busMetrics }

func (m queryBusMetrics) StartTimer(metric, label string) querybus.Timer {
	return promTimer{m.startTimer(metric, label)}
}

func (m queryBusMetrics) Increment(metric, label string) {
	m.increment(metric, label)
}

// promTimer adapts a prometheus timer to the buses' Timer interface
type promTimer struct {
	timer *prometheus.Timer
}

func (t promTimer) Stop() {
	t.timer.ObserveDuration()
}
