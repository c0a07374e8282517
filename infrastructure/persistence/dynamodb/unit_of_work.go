package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"catgraph/application/ports"
	"catgraph/domain/core/entities"
	"catgraph/domain/core/valueobjects"
	"catgraph/domain/events"
	pkgerrors "catgraph/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// TransactWriteItems caps one transaction at 100 items.
const maxTransactItems = 100

// UnitOfWork implements ports.UnitOfWork on a DynamoDB transaction. Writes
// made through its repositories stage as TransactWriteItems; registered
// events stage as outbox rows. Commit sends everything in one
// TransactWriteItems call, so nothing is visible until all of it is.
type UnitOfWork struct {
	client     *dynamodb.Client
	tableName  string
	eventStore *EventStore
	logger     *zap.Logger

	mu        sync.Mutex
	active    bool
	committed bool
	staged    []stagedWrite

	categories   *txCategoryRepository
	similarities *txSimilarityRepository
}

// stagedWrite pairs a transact item with the error to surface when its
// condition fails at commit. CancellationReasons come back index-aligned
// with the request, so the failing item identifies itself.
type stagedWrite struct {
	item       types.TransactWriteItem
	onConflict error
}

// NewUnitOfWork creates a unit of work with fresh state
func NewUnitOfWork(client *dynamodb.Client, tableName string, eventStore *EventStore, logger *zap.Logger) *UnitOfWork {
	uow := &UnitOfWork{
		client:     client,
		tableName:  tableName,
		eventStore: eventStore,
		logger:     logger,
	}
	uow.categories = &txCategoryRepository{
		CategoryRepository: NewCategoryRepository(client, tableName, logger),
		uow:                uow,
	}
	uow.similarities = &txSimilarityRepository{
		SimilarityRepository: NewSimilarityRepository(client, tableName, logger),
		uow:                  uow,
	}
	return uow
}

// Begin starts a new transaction
func (u *UnitOfWork) Begin(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.active {
		return errors.New("transaction already active")
	}

	u.active = true
	u.committed = false
	u.staged = nil
	return nil
}

// Commit sends all staged writes in one transaction
func (u *UnitOfWork) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.active {
		return errors.New("no active transaction")
	}
	if len(u.staged) == 0 {
		u.active = false
		u.committed = true
		return nil
	}

	items := make([]types.TransactWriteItem, len(u.staged))
	for i, write := range u.staged {
		items[i] = write.item
	}

	_, err := u.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		if conflictErr := u.conflictError(err); conflictErr != nil {
			return conflictErr
		}
		return wrapDynamoError("commit transaction", err)
	}

	u.logger.Debug("Transaction committed", zap.Int("items", len(items)))

	u.active = false
	u.committed = true
	u.staged = nil
	return nil
}

// Rollback discards the staged writes. Nothing reaches the table before
// Commit, so there is no remote state to undo.
func (u *UnitOfWork) Rollback() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.active || u.committed {
		return nil
	}

	u.logger.Debug("Transaction rolled back", zap.Int("discarded", len(u.staged)))

	u.active = false
	u.staged = nil
	return nil
}

// CategoryRepository returns the category repository for this transaction
func (u *UnitOfWork) CategoryRepository() ports.CategoryRepository {
	return u.categories
}

// SimilarityRepository returns the similarity repository for this transaction
func (u *UnitOfWork) SimilarityRepository() ports.SimilarityRepository {
	return u.similarities
}

// RegisterEvents queues domain events as outbox rows in the transaction
func (u *UnitOfWork) RegisterEvents(domainEvents ...events.DomainEvent) error {
	items, err := u.eventStore.PrepareEventItems(domainEvents...)
	if err != nil {
		return fmt.Errorf("failed to prepare event items: %w", err)
	}

	writes := make([]stagedWrite, len(items))
	for i, item := range items {
		writes[i] = stagedWrite{item: item}
	}
	return u.stage(writes...)
}

func (u *UnitOfWork) stage(writes ...stagedWrite) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.active {
		return errors.New("no active transaction")
	}
	if len(u.staged)+len(writes) > maxTransactItems {
		return fmt.Errorf("transaction exceeds %d items", maxTransactItems)
	}

	u.staged = append(u.staged, writes...)
	return nil
}

// conflictError maps a canceled transaction back to the staged write whose
// condition failed and returns that write's conflict error.
func (u *UnitOfWork) conflictError(err error) error {
	var txCanceled *types.TransactionCanceledException
	if !errors.As(err, &txCanceled) {
		return nil
	}

	for i, reason := range txCanceled.CancellationReasons {
		if reason.Code == nil || *reason.Code != "ConditionalCheckFailed" {
			continue
		}
		if i < len(u.staged) && u.staged[i].onConflict != nil {
			return u.staged[i].onConflict
		}
		return pkgerrors.ErrConcurrentModification.WithCause(err)
	}

	return nil
}

// UnitOfWorkFactory hands each request its own UnitOfWork, so concurrent
// handlers and warm Lambda containers never share transaction state.
type UnitOfWorkFactory struct {
	client     *dynamodb.Client
	tableName  string
	eventStore *EventStore
	logger     *zap.Logger
}

// NewUnitOfWorkFactory creates a new factory
func NewUnitOfWorkFactory(client *dynamodb.Client, tableName string, eventStore *EventStore, logger *zap.Logger) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		client:     client,
		tableName:  tableName,
		eventStore: eventStore,
		logger:     logger,
	}
}

// Create returns a new unit of work with fresh state
func (f *UnitOfWorkFactory) Create(ctx context.Context) (ports.UnitOfWork, error) {
	return NewUnitOfWork(f.client, f.tableName, f.eventStore, f.logger), nil
}

// txCategoryRepository stages writes on the owning transaction and passes
// reads through to the plain repository.
type txCategoryRepository struct {
	*CategoryRepository
	uow *UnitOfWork
}

func (r *txCategoryRepository) Save(ctx context.Context, category *entities.Category) error {
	av, err := attributevalue.MarshalMap(categoryToItem(category))
	if err != nil {
		return fmt.Errorf("failed to marshal category: %w", err)
	}

	return r.uow.stage(stagedWrite{
		item: types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(r.uow.tableName),
				Item:                av,
				ConditionExpression: aws.String("attribute_not_exists(PK) OR Version < :version"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":version": &types.AttributeValueMemberN{Value: strconv.Itoa(category.Version())},
				},
			},
		},
		onConflict: pkgerrors.ErrConcurrentModification.
			WithDetail("category_id", category.ID().String()),
	})
}

func (r *txCategoryRepository) Delete(ctx context.Context, id valueobjects.CategoryID) error {
	return r.uow.stage(stagedWrite{
		item: types.TransactWriteItem{
			Delete: &types.Delete{
				TableName:           aws.String(r.uow.tableName),
				Key:                 categoryKey(id),
				ConditionExpression: aws.String("attribute_exists(PK)"),
			},
		},
		onConflict: pkgerrors.ErrCategoryNotFound.
			WithDetail("category_id", id.String()),
	})
}

func (r *txCategoryRepository) BulkSave(ctx context.Context, categories []*entities.Category) error {
	writes := make([]stagedWrite, 0, len(categories))
	for _, category := range categories {
		av, err := attributevalue.MarshalMap(categoryToItem(category))
		if err != nil {
			return fmt.Errorf("failed to marshal category %s: %w", category.ID().String(), err)
		}
		writes = append(writes, stagedWrite{
			item: types.TransactWriteItem{
				Put: &types.Put{
					TableName: aws.String(r.uow.tableName),
					Item:      av,
				},
			},
		})
	}
	return r.uow.stage(writes...)
}

func (r *txCategoryRepository) DeleteBatch(ctx context.Context, ids []valueobjects.CategoryID) error {
	writes := make([]stagedWrite, 0, len(ids))
	for _, id := range ids {
		writes = append(writes, stagedWrite{
			item: types.TransactWriteItem{
				Delete: &types.Delete{
					TableName: aws.String(r.uow.tableName),
					Key:       categoryKey(id),
				},
			},
		})
	}
	return r.uow.stage(writes...)
}

// txSimilarityRepository stages writes on the owning transaction. Inside a
// transaction a duplicate cannot be skipped, so Save surfaces
// ErrDuplicateSimilarity at commit instead of the no-op the plain
// repository performs.
type txSimilarityRepository struct {
	*SimilarityRepository
	uow *UnitOfWork
}

func (r *txSimilarityRepository) Save(ctx context.Context, edge valueobjects.SimilarityEdge) error {
	av, err := attributevalue.MarshalMap(edgeToItem(edge))
	if err != nil {
		return fmt.Errorf("failed to marshal edge: %w", err)
	}

	return r.uow.stage(stagedWrite{
		item: types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(r.uow.tableName),
				Item:                av,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			},
		},
		onConflict: pkgerrors.ErrDuplicateSimilarity.
			WithDetail("category_a", edge.First().String()).
			WithDetail("category_b", edge.Second().String()),
	})
}

func (r *txSimilarityRepository) Delete(ctx context.Context, edge valueobjects.SimilarityEdge) error {
	return r.uow.stage(stagedWrite{
		item: types.TransactWriteItem{
			Delete: &types.Delete{
				TableName:           aws.String(r.uow.tableName),
				Key:                 edgeKey(edge),
				ConditionExpression: aws.String("attribute_exists(PK)"),
			},
		},
		onConflict: pkgerrors.ErrSimilarityNotFound.
			WithDetail("category_a", edge.First().String()).
			WithDetail("category_b", edge.Second().String()),
	})
}

func (r *txSimilarityRepository) BulkSave(ctx context.Context, edges []valueobjects.SimilarityEdge) error {
	writes := make([]stagedWrite, 0, len(edges))
	for _, edge := range edges {
		av, err := attributevalue.MarshalMap(edgeToItem(edge))
		if err != nil {
			return fmt.Errorf("failed to marshal edge %s: %w", edge.Key(), err)
		}
		writes = append(writes, stagedWrite{
			item: types.TransactWriteItem{
				Put: &types.Put{
					TableName: aws.String(r.uow.tableName),
					Item:      av,
				},
			},
		})
	}
	return r.uow.stage(writes...)
}

// DeleteByCategoryID reads the edges outside the transaction, then stages
// one delete per edge.
func (r *txSimilarityRepository) DeleteByCategoryID(ctx context.Context, id valueobjects.CategoryID) (int, error) {
	edges, err := r.GetByCategoryID(ctx, id)
	if err != nil {
		return 0, err
	}

	writes := make([]stagedWrite, 0, len(edges))
	for _, edge := range edges {
		writes = append(writes, stagedWrite{
			item: types.TransactWriteItem{
				Delete: &types.Delete{
					TableName: aws.String(r.uow.tableName),
					Key:       edgeKey(edge),
				},
			},
		})
	}
	if err := r.uow.stage(writes...); err != nil {
		return 0, err
	}
	return len(edges), nil
}
