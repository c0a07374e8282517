// Package observability decorates the persistence ports with tracing and
// metrics so the stores themselves stay free of instrumentation concerns.
package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"catgraph/application/ports"
	"catgraph/domain/core/entities"
	"catgraph/domain/core/valueobjects"
	pkgerrors "catgraph/pkg/errors"
	"catgraph/pkg/observability"
)

// instrumentation carries the shared span and metric recording for one
// decorated repository.
type instrumentation struct {
	collector *observability.Collector
	tracer    trace.Tracer
	table     string
}

func newInstrumentation(collector *observability.Collector, tracer trace.Tracer, table string) instrumentation {
	if tracer == nil {
		tracer = otel.Tracer("catgraph/repository")
	}
	return instrumentation{
		collector: collector,
		tracer:    tracer,
		table:     table,
	}
}

// observe wraps one store call in a span and records its outcome on the
// Prometheus collector.
func (i instrumentation) observe(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	ctx, span := i.tracer.Start(ctx, "repository."+op, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
	}

	if i.collector != nil {
		i.collector.DBOperations.WithLabelValues(op, i.table, classifyOutcome(err)).Inc()
		i.collector.DBDuration.WithLabelValues(op, i.table).Observe(elapsed.Seconds())
	}

	return err
}

// classifyOutcome buckets store results so dashboards can tell lookup
// misses and write conflicts apart from real store failures.
func classifyOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, pkgerrors.ErrCategoryNotFound),
		errors.Is(err, pkgerrors.ErrSimilarityNotFound):
		return "not_found"
	case errors.Is(err, pkgerrors.ErrConcurrentModification),
		errors.Is(err, pkgerrors.ErrDuplicateSimilarity):
		return "conflict"
	default:
		return "error"
	}
}

// InstrumentedCategoryRepository decorates a CategoryRepository with spans
// and operation metrics.
type InstrumentedCategoryRepository struct {
	inner ports.CategoryRepository
	inst  instrumentation
}

// NewInstrumentedCategoryRepository wraps repo. A nil tracer falls back to
// the globally installed provider.
func NewInstrumentedCategoryRepository(repo ports.CategoryRepository, collector *observability.Collector, tracer trace.Tracer) *InstrumentedCategoryRepository {
	return &InstrumentedCategoryRepository{
		inner: repo,
		inst:  newInstrumentation(collector, tracer, "categories"),
	}
}

func (r *InstrumentedCategoryRepository) Save(ctx context.Context, category *entities.Category) error {
	attrs := []attribute.KeyValue{
		attribute.String("category.id", category.ID().String()),
		attribute.Int("category.version", category.Version()),
	}
	return r.inst.observe(ctx, "category.save", attrs, func(ctx context.Context) error {
		return r.inner.Save(ctx, category)
	})
}

func (r *InstrumentedCategoryRepository) GetByID(ctx context.Context, id valueobjects.CategoryID) (*entities.Category, error) {
	var category *entities.Category
	attrs := []attribute.KeyValue{attribute.String("category.id", id.String())}
	err := r.inst.observe(ctx, "category.get_by_id", attrs, func(ctx context.Context) error {
		var err error
		category, err = r.inner.GetByID(ctx, id)
		return err
	})
	return category, err
}

func (r *InstrumentedCategoryRepository) GetAll(ctx context.Context) ([]*entities.Category, error) {
	var categories []*entities.Category
	err := r.inst.observe(ctx, "category.get_all", nil, func(ctx context.Context) error {
		var err error
		categories, err = r.inner.GetAll(ctx)
		return err
	})
	return categories, err
}

func (r *InstrumentedCategoryRepository) GetByParentID(ctx context.Context, parentID valueobjects.CategoryID) ([]*entities.Category, error) {
	var categories []*entities.Category
	attrs := []attribute.KeyValue{attribute.String("category.parent_id", parentID.String())}
	err := r.inst.observe(ctx, "category.get_by_parent", attrs, func(ctx context.Context) error {
		var err error
		categories, err = r.inner.GetByParentID(ctx, parentID)
		return err
	})
	return categories, err
}

func (r *InstrumentedCategoryRepository) GetRoots(ctx context.Context) ([]*entities.Category, error) {
	var categories []*entities.Category
	err := r.inst.observe(ctx, "category.get_roots", nil, func(ctx context.Context) error {
		var err error
		categories, err = r.inner.GetRoots(ctx)
		return err
	})
	return categories, err
}

func (r *InstrumentedCategoryRepository) Search(ctx context.Context, criteria ports.ListCriteria) ([]*entities.Category, int, error) {
	var (
		categories []*entities.Category
		total      int
	)
	attrs := []attribute.KeyValue{
		attribute.Bool("search.roots_only", criteria.RootsOnly),
		attribute.Int("search.limit", criteria.Limit),
		attribute.Int("search.offset", criteria.Offset),
	}
	err := r.inst.observe(ctx, "category.search", attrs, func(ctx context.Context) error {
		var err error
		categories, total, err = r.inner.Search(ctx, criteria)
		return err
	})
	return categories, total, err
}

func (r *InstrumentedCategoryRepository) Delete(ctx context.Context, id valueobjects.CategoryID) error {
	attrs := []attribute.KeyValue{attribute.String("category.id", id.String())}
	return r.inst.observe(ctx, "category.delete", attrs, func(ctx context.Context) error {
		return r.inner.Delete(ctx, id)
	})
}

func (r *InstrumentedCategoryRepository) BulkSave(ctx context.Context, categories []*entities.Category) error {
	attrs := []attribute.KeyValue{attribute.Int("batch.size", len(categories))}
	return r.inst.observe(ctx, "category.bulk_save", attrs, func(ctx context.Context) error {
		return r.inner.BulkSave(ctx, categories)
	})
}

func (r *InstrumentedCategoryRepository) DeleteBatch(ctx context.Context, ids []valueobjects.CategoryID) error {
	attrs := []attribute.KeyValue{attribute.Int("batch.size", len(ids))}
	return r.inst.observe(ctx, "category.delete_batch", attrs, func(ctx context.Context) error {
		return r.inner.DeleteBatch(ctx, ids)
	})
}

func (r *InstrumentedCategoryRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.inst.observe(ctx, "category.count_all", nil, func(ctx context.Context) error {
		var err error
		count, err = r.inner.CountAll(ctx)
		return err
	})
	return count, err
}

// InstrumentedSimilarityRepository decorates a SimilarityRepository with
// spans and operation metrics.
type InstrumentedSimilarityRepository struct {
	inner ports.SimilarityRepository
	inst  instrumentation
}

// NewInstrumentedSimilarityRepository wraps repo. A nil tracer falls back
// to the globally installed provider.
func NewInstrumentedSimilarityRepository(repo ports.SimilarityRepository, collector *observability.Collector, tracer trace.Tracer) *InstrumentedSimilarityRepository {
	return &InstrumentedSimilarityRepository{
		inner: repo,
		inst:  newInstrumentation(collector, tracer, "similarities"),
	}
}

func edgeAttrs(edge valueobjects.SimilarityEdge) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("edge.first", edge.First().String()),
		attribute.String("edge.second", edge.Second().String()),
	}
}

func (r *InstrumentedSimilarityRepository) Save(ctx context.Context, edge valueobjects.SimilarityEdge) error {
	return r.inst.observe(ctx, "similarity.save", edgeAttrs(edge), func(ctx context.Context) error {
		return r.inner.Save(ctx, edge)
	})
}

func (r *InstrumentedSimilarityRepository) Exists(ctx context.Context, edge valueobjects.SimilarityEdge) (bool, error) {
	var exists bool
	err := r.inst.observe(ctx, "similarity.exists", edgeAttrs(edge), func(ctx context.Context) error {
		var err error
		exists, err = r.inner.Exists(ctx, edge)
		return err
	})
	return exists, err
}

func (r *InstrumentedSimilarityRepository) GetAll(ctx context.Context) ([]valueobjects.SimilarityEdge, error) {
	var edges []valueobjects.SimilarityEdge
	err := r.inst.observe(ctx, "similarity.get_all", nil, func(ctx context.Context) error {
		var err error
		edges, err = r.inner.GetAll(ctx)
		return err
	})
	return edges, err
}

func (r *InstrumentedSimilarityRepository) GetByCategoryID(ctx context.Context, id valueobjects.CategoryID) ([]valueobjects.SimilarityEdge, error) {
	var edges []valueobjects.SimilarityEdge
	attrs := []attribute.KeyValue{attribute.String("category.id", id.String())}
	err := r.inst.observe(ctx, "similarity.get_by_category", attrs, func(ctx context.Context) error {
		var err error
		edges, err = r.inner.GetByCategoryID(ctx, id)
		return err
	})
	return edges, err
}

func (r *InstrumentedSimilarityRepository) Delete(ctx context.Context, edge valueobjects.SimilarityEdge) error {
	return r.inst.observe(ctx, "similarity.delete", edgeAttrs(edge), func(ctx context.Context) error {
		return r.inner.Delete(ctx, edge)
	})
}

func (r *InstrumentedSimilarityRepository) DeleteByCategoryID(ctx context.Context, id valueobjects.CategoryID) (int, error) {
	var removed int
	attrs := []attribute.KeyValue{attribute.String("category.id", id.String())}
	err := r.inst.observe(ctx, "similarity.delete_by_category", attrs, func(ctx context.Context) error {
		var err error
		removed, err = r.inner.DeleteByCategoryID(ctx, id)
		return err
	})
	return removed, err
}

func (r *InstrumentedSimilarityRepository) BulkSave(ctx context.Context, edges []valueobjects.SimilarityEdge) error {
	attrs := []attribute.KeyValue{attribute.Int("batch.size", len(edges))}
	return r.inst.observe(ctx, "similarity.bulk_save", attrs, func(ctx context.Context) error {
		return r.inner.BulkSave(ctx, edges)
	})
}

func (r *InstrumentedSimilarityRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.inst.observe(ctx, "similarity.count_all", nil, func(ctx context.Context) error {
		var err error
		count, err = r.inner.CountAll(ctx)
		return err
	})
	return count, err
}
