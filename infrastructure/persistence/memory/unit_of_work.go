package memory

import (
	"context"
	"errors"
	"sync"

	"catgraph/application/ports"
	"catgraph/domain/core/entities"
	"catgraph/domain/core/valueobjects"
	"catgraph/domain/events"
	pkgerrors "catgraph/pkg/errors"
)

// UnitOfWork implements ports.UnitOfWork over the in-memory stores. Writes
// stage until Commit, which checks every condition and applies every write
// while holding all store locks, so the outcome is all-or-nothing exactly
// like the DynamoDB transaction.
type UnitOfWork struct {
	categories   *CategoryStore
	similarities *SimilarityStore
	eventStore   *EventStore

	mu        sync.Mutex
	active    bool
	committed bool
	staged    []stagedOp

	txCategories   *txCategoryStore
	txSimilarities *txSimilarityStore
}

// stagedOp pairs a commit-time condition with the mutation to apply once
// every condition in the transaction has passed. Both run with all store
// locks held.
type stagedOp struct {
	check func() error
	apply func()
}

// NewUnitOfWork creates a unit of work over the given stores
func NewUnitOfWork(categories *CategoryStore, similarities *SimilarityStore, eventStore *EventStore) *UnitOfWork {
	uow := &UnitOfWork{
		categories:   categories,
		similarities: similarities,
		eventStore:   eventStore,
	}
	uow.txCategories = &txCategoryStore{CategoryStore: categories, uow: uow}
	uow.txSimilarities = &txSimilarityStore{SimilarityStore: similarities, uow: uow}
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

// Commit applies all staged writes atomically
func (u *UnitOfWork) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.active {
		return errors.New("no active transaction")
	}

	u.categories.mu.Lock()
	defer u.categories.mu.Unlock()
	u.similarities.mu.Lock()
	defer u.similarities.mu.Unlock()
	u.eventStore.mu.Lock()
	defer u.eventStore.mu.Unlock()

	for _, op := range u.staged {
		if op.check == nil {
			continue
		}
		if err := op.check(); err != nil {
			return err
		}
	}
	for _, op := range u.staged {
		op.apply()
	}

	u.active = false
	u.committed = true
	u.staged = nil
	return nil
}

// Rollback discards the staged writes
func (u *UnitOfWork) Rollback() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.active || u.committed {
		return nil
	}

	u.active = false
	u.staged = nil
	return nil
}

// CategoryRepository returns the category repository for this transaction
func (u *UnitOfWork) CategoryRepository() ports.CategoryRepository {
	return u.txCategories
}

// SimilarityRepository returns the similarity repository for this transaction
func (u *UnitOfWork) SimilarityRepository() ports.SimilarityRepository {
	return u.txSimilarities
}

// RegisterEvents queues domain events for the transaction
func (u *UnitOfWork) RegisterEvents(domainEvents ...events.DomainEvent) error {
	staged := make([]events.DomainEvent, len(domainEvents))
	copy(staged, domainEvents)

	return u.stage(stagedOp{
		apply: func() {
			for _, event := range staged {
				u.eventStore.byAggregate[event.GetAggregateID()] = append(u.eventStore.byAggregate[event.GetAggregateID()], event)
				u.eventStore.ordered = append(u.eventStore.ordered, event)
			}
		},
	})
}

func (u *UnitOfWork) stage(ops ...stagedOp) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.active {
		return errors.New("no active transaction")
	}

	u.staged = append(u.staged, ops...)
	return nil
}

// UnitOfWorkFactory hands each caller its own UnitOfWork over shared
// stores, so concurrent tests never share transaction state.
type UnitOfWorkFactory struct {
	categories   *CategoryStore
	similarities *SimilarityStore
	eventStore   *EventStore
}

// NewUnitOfWorkFactory creates a new factory over the given stores
func NewUnitOfWorkFactory(categories *CategoryStore, similarities *SimilarityStore, eventStore *EventStore) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		categories:   categories,
		similarities: similarities,
		eventStore:   eventStore,
	}
}

// Create returns a new unit of work with fresh state
func (f *UnitOfWorkFactory) Create(ctx context.Context) (ports.UnitOfWork, error) {
	return NewUnitOfWork(f.categories, f.similarities, f.eventStore), nil
}

// txCategoryStore stages writes on the owning transaction and passes reads
// through to the shared store.
type txCategoryStore struct {
	*CategoryStore
	uow *UnitOfWork
}

func (r *txCategoryStore) Save(ctx context.Context, category *entities.Category) error {
	clone, err := cloneCategory(category)
	if err != nil {
		return err
	}
	key := category.ID().String()
	store := r.uow.categories

	return r.uow.stage(stagedOp{
		check: func() error {
			if existing, ok := store.categories[key]; ok && existing.Version() >= clone.Version() {
				return pkgerrors.ErrConcurrentModification.
					WithDetail("category_id", key)
			}
			return nil
		},
		apply: func() {
			store.categories[key] = clone
		},
	})
}

func (r *txCategoryStore) Delete(ctx context.Context, id valueobjects.CategoryID) error {
	key := id.String()
	store := r.uow.categories

	return r.uow.stage(stagedOp{
		check: func() error {
			if _, ok := store.categories[key]; !ok {
				return pkgerrors.ErrCategoryNotFound.
					WithDetail("category_id", key)
			}
			return nil
		},
		apply: func() {
			delete(store.categories, key)
		},
	})
}

func (r *txCategoryStore) BulkSave(ctx context.Context, categories []*entities.Category) error {
	store := r.uow.categories
	ops := make([]stagedOp, 0, len(categories))
	for _, category := range categories {
		clone, err := cloneCategory(category)
		if err != nil {
			return err
		}
		key := category.ID().String()
		ops = append(ops, stagedOp{
			apply: func() { store.categories[key] = clone },
		})
	}
	return r.uow.stage(ops...)
}

func (r *txCategoryStore) DeleteBatch(ctx context.Context, ids []valueobjects.CategoryID) error {
	store := r.uow.categories
	ops := make([]stagedOp, 0, len(ids))
	for _, id := range ids {
		key := id.String()
		ops = append(ops, stagedOp{
			apply: func() { delete(store.categories, key) },
		})
	}
	return r.uow.stage(ops...)
}

// txSimilarityStore stages writes on the owning transaction. Inside a
// transaction a duplicate cannot be skipped, so Save surfaces
// ErrDuplicateSimilarity at commit instead of the no-op the shared store
// performs.
type txSimilarityStore struct {
	*SimilarityStore
	uow *UnitOfWork
}

func (r *txSimilarityStore) Save(ctx context.Context, edge valueobjects.SimilarityEdge) error {
	store := r.uow.similarities

	return r.uow.stage(stagedOp{
		check: func() error {
			if _, ok := store.edges[edge.Key()]; ok {
				return pkgerrors.ErrDuplicateSimilarity.
					WithDetail("category_a", edge.First().String()).
					WithDetail("category_b", edge.Second().String())
			}
			return nil
		},
		apply: func() {
			store.edges[edge.Key()] = edge
		},
	})
}

func (r *txSimilarityStore) Delete(ctx context.Context, edge valueobjects.SimilarityEdge) error {
	store := r.uow.similarities

	return r.uow.stage(stagedOp{
		check: func() error {
			if _, ok := store.edges[edge.Key()]; !ok {
				return pkgerrors.ErrSimilarityNotFound.
					WithDetail("category_a", edge.First().String()).
					WithDetail("category_b", edge.Second().String())
			}
			return nil
		},
		apply: func() {
			delete(store.edges, edge.Key())
		},
	})
}

func (r *txSimilarityStore) BulkSave(ctx context.Context, edges []valueobjects.SimilarityEdge) error {
	store := r.uow.similarities
	ops := make([]stagedOp, 0, len(edges))
	for _, edge := range edges {
		staged := edge
		ops = append(ops, stagedOp{
			apply: func() { store.edges[staged.Key()] = staged },
		})
	}
	return r.uow.stage(ops...)
}

// DeleteByCategoryID reads the matching edges outside the transaction,
// then stages one delete per edge.
func (r *txSimilarityStore) DeleteByCategoryID(ctx context.Context, id valueobjects.CategoryID) (int, error) {
	edges, err := r.GetByCategoryID(ctx, id)
	if err != nil {
		return 0, err
	}

	store := r.uow.similarities
	ops := make([]stagedOp, 0, len(edges))
	for _, edge := range edges {
		staged := edge
		ops = append(ops, stagedOp{
			apply: func() { delete(store.edges, staged.Key()) },
		})
	}
	if err := r.uow.stage(ops...); err != nil {
		return 0, err
	}
	return len(edges), nil
}
