package ports

import (
	"context"
	"time"

	"catgraph/domain/core/entities"
	"catgraph/domain/core/valueobjects"
	"catgraph/domain/events"
)

// CategoryRepository defines the interface for category persistence
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type CategoryRepository interface {
	// Save persists a category (create or update)
	Save(ctx context.Context, category *entities.Category) error

	// GetByID retrieves a category by its ID
	GetByID(ctx context.Context, id valueobjects.CategoryID) (*entities.Category, error)

	// GetAll retrieves the full category snapshot
	GetAll(ctx context.Context) ([]*entities.Category, error)

	// GetByParentID retrieves the direct children of a category
	GetByParentID(ctx context.Context, parentID valueobjects.CategoryID) ([]*entities.Category, error)

	// GetRoots retrieves all categories without a parent
	GetRoots(ctx context.Context) ([]*entities.Category, error)

	// Search finds categories matching the given criteria. The returned
	// count is the number of matches before Limit and Offset are applied.
	Search(ctx context.Context, criteria ListCriteria) ([]*entities.Category, int, error)

	// Delete removes a category
	Delete(ctx context.Context, id valueobjects.CategoryID) error

	// BulkSave saves multiple categories in one round trip
	BulkSave(ctx context.Context, categories []*entities.Category) error

	// DeleteBatch removes multiple categories in a batch operation
	DeleteBatch(ctx context.Context, ids []valueobjects.CategoryID) error

	// CountAll returns the number of stored categories
	CountAll(ctx context.Context) (int, error)
}

// SimilarityRepository defines the interface for similarity edge persistence.
// Edges are stored in canonical order, so implementations never see both
// (a,b) and (b,a) for the same pair.
type SimilarityRepository interface {
	// Save persists an edge; saving an existing edge is a no-op
	Save(ctx context.Context, edge valueobjects.SimilarityEdge) error

	// Exists reports whether the edge is stored
	Exists(ctx context.Context, edge valueobjects.SimilarityEdge) (bool, error)

	// GetAll retrieves every stored edge
	GetAll(ctx context.Context) ([]valueobjects.SimilarityEdge, error)

	// GetByCategoryID retrieves all edges touching a category
	GetByCategoryID(ctx context.Context, id valueobjects.CategoryID) ([]valueobjects.SimilarityEdge, error)

	// Delete removes an edge
	Delete(ctx context.Context, edge valueobjects.SimilarityEdge) error

	// DeleteByCategoryID removes all edges touching a category and
	// returns how many were removed
	DeleteByCategoryID(ctx context.Context, id valueobjects.CategoryID) (int, error)

	// BulkSave saves multiple edges in one round trip
	BulkSave(ctx context.Context, edges []valueobjects.SimilarityEdge) error

	// CountAll returns the number of stored edges
	CountAll(ctx context.Context) (int, error)
}

// ListCriteria defines category search parameters
type ListCriteria struct {
	// Search matches case-insensitive name substrings when non-empty
	Search string

	// ParentID filters to direct children of the given category; zero
	// means no parent filter
	ParentID valueobjects.CategoryID

	// RootsOnly filters to categories without a parent
	RootsOnly bool

	Limit     int
	Offset    int
	OrderBy   string
	OrderDesc bool
}

// EventStore defines the interface for event persistence
type EventStore interface {
	// SaveEvents persists domain events
	SaveEvents(ctx context.Context, events []events.DomainEvent) error

	// GetEvents retrieves events for an aggregate
	GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error)

	// GetEventsByType retrieves events of a specific type
	GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error)

	// GetEventsAfter retrieves events for an aggregate past a version
	GetEventsAfter(ctx context.Context, aggregateID string, version int) ([]events.DomainEvent, error)

	// DeleteEvents removes all events for an aggregate
	DeleteEvents(ctx context.Context, aggregateID string) error

	// DeleteEventsBatch removes all events for multiple aggregates
	DeleteEventsBatch(ctx context.Context, aggregateIDs []string) error
}

// UnitOfWork defines a transaction boundary for catalog mutations. Writes
// made through its repositories and events registered on it commit together
// or not at all; registered events land as outbox rows in the same commit.
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit(ctx context.Context) error

	// Rollback rolls back the transaction
	Rollback() error

	// CategoryRepository returns the category repository for this transaction
	CategoryRepository() CategoryRepository

	// SimilarityRepository returns the similarity repository for this transaction
	SimilarityRepository() SimilarityRepository

	// RegisterEvents queues domain events for the transaction's outbox
	RegisterEvents(events ...events.DomainEvent) error
}

// UnitOfWorkFactory creates isolated units of work. Each request gets its
// own instance, so concurrent handlers and warm Lambda containers never
// share transaction state.
type UnitOfWorkFactory interface {
	// Create returns a new unit of work with fresh state
	Create(ctx context.Context) (UnitOfWork, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventBus defines the interface for publishing domain events
type EventBus interface {
	EventPublisher

	// Subscribe registers a handler for an event type
	Subscribe(eventType string, handler EventHandler) error

	// Unsubscribe removes a handler
	Unsubscribe(eventType string, handler EventHandler) error
}

// EventHandler defines the interface for handling domain events
type EventHandler interface {
	// Handle processes an event
	Handle(ctx context.Context, event events.DomainEvent) error

	// CanHandle checks if this handler can process the event
	CanHandle(eventType string) bool
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}

// Lock is a held mutual-exclusion lease
type Lock interface {
	// Release gives the lock up before its TTL expires
	Release(ctx context.Context) error
}

// LockManager hands out named locks so concurrent writers (bulk imports,
// Lambda invocations) serialize on shared resources
type LockManager interface {
	// AcquireLock obtains the named lock or fails immediately
	AcquireLock(ctx context.Context, resource, owner string, ttl time.Duration) (Lock, error)

	// TryAcquireLock polls for the named lock until timeout elapses
	TryAcquireLock(ctx context.Context, resource, owner string, ttl, timeout time.Duration) (Lock, error)
}
