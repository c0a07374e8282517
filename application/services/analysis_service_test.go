package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catgraph/application/ports"
	"catgraph/domain/config"
	"catgraph/domain/core/entities"
	"catgraph/domain/core/valueobjects"
	"catgraph/domain/events"
	"catgraph/infrastructure/messaging"
	"catgraph/infrastructure/persistence/memory"
	pkgerrors "catgraph/pkg/errors"
	"catgraph/pkg/extensions"
)

// analysisFixture seeds Electronics-Garden-Books as one chained island
// plus the isolated Music, enough to exercise paths, islands and the
// disconnected case.
type analysisFixture struct {
	categories   *memory.CategoryStore
	similarities *memory.SimilarityStore
	cache        *memory.Cache
	bus          *messaging.InProcessEventBus
	published    *busRecorder
	logger       *zap.Logger
}

func newAnalysisFixture(t *testing.T) *analysisFixture {
	t.Helper()
	f := &analysisFixture{
		categories:   memory.NewCategoryStore(),
		similarities: memory.NewSimilarityStore(),
		cache:        memory.NewCache(),
		published:    &busRecorder{},
		logger:       zap.NewNop(),
	}
	f.bus = messaging.NewInProcessEventBus(f.logger)
	require.NoError(t, f.bus.Subscribe(messaging.TopicAll, f.published))

	f.seed(t, 1, "Electronics")
	f.seed(t, 2, "Garden")
	f.seed(t, 3, "Books")
	f.seed(t, 4, "Music")
	f.link(t, 1, 2)
	f.link(t, 2, 3)
	return f
}

func (f *analysisFixture) service(source DomainConfigSource) *AnalysisService {
	return NewAnalysisService(f.categories, f.similarities, source, f.cache, f.bus, 60, f.logger)
}

func (f *analysisFixture) seed(t *testing.T, n int, name string) {
	t.Helper()
	label, err := valueobjects.NewCategoryLabel(name, "")
	require.NoError(t, err)
	category, err := entities.NewCategoryWithID(testID(t, n), label, valueobjects.CategoryID{})
	require.NoError(t, err)
	category.MarkEventsAsCommitted()
	require.NoError(t, f.categories.Save(context.Background(), category))
}

func (f *analysisFixture) link(t *testing.T, a, b int) {
	t.Helper()
	edge, err := valueobjects.NewSimilarityEdge(testID(t, a), testID(t, b))
	require.NoError(t, err)
	require.NoError(t, f.similarities.Save(context.Background(), edge))
}

func testID(t *testing.T, n int) valueobjects.CategoryID {
	t.Helper()
	id, err := valueobjects.NewCategoryIDFromString(fmt.Sprintf("00000000-0000-4000-8000-%012d", n))
	require.NoError(t, err)
	return id
}

type busRecorder struct {
	mu    sync.Mutex
	types []string
}

var _ ports.EventHandler = (*busRecorder)(nil)

func (r *busRecorder) Handle(_ context.Context, event events.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, event.GetEventType())
	return nil
}

func (r *busRecorder) CanHandle(string) bool { return true }

func (r *busRecorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

// hookRecorder captures the hook points fired around analysis runs.
type hookRecorder struct {
	mu     sync.Mutex
	points []extensions.HookPoint
	data   []extensions.AnalysisHookData
}

func (r *hookRecorder) install(hooks *extensions.HookManager, points ...extensions.HookPoint) {
	for _, point := range points {
		p := point
		hooks.Register(p, func(_ context.Context, data interface{}) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.points = append(r.points, p)
			if payload, ok := data.(extensions.AnalysisHookData); ok {
				r.data = append(r.data, payload)
			}
			return nil
		})
	}
}

func (r *hookRecorder) fired() []extensions.HookPoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]extensions.HookPoint(nil), r.points...)
}

func allAnalysisHookPoints() []extensions.HookPoint {
	return []extensions.HookPoint{
		extensions.HookBeforeAnalysis,
		extensions.HookAfterAnalysis,
		extensions.HookCacheHit,
		extensions.HookCacheMiss,
	}
}

func TestAnalysisServiceCachesBySnapshotVersion(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t)
	svc := f.service(StaticDomainConfig{})

	recorder := &hookRecorder{}
	hooks := extensions.NewHookManager()
	recorder.install(hooks, allAnalysisHookPoints()...)
	svc.UseHooks(hooks)

	first, err := svc.Analyze(ctx)
	require.NoError(t, err)
	second, err := svc.Analyze(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second, "an unchanged snapshot is served from cache")
	assert.Equal(t, []extensions.HookPoint{
		extensions.HookBeforeAnalysis,
		extensions.HookCacheMiss,
		extensions.HookAfterAnalysis,
		extensions.HookBeforeAnalysis,
		extensions.HookCacheHit,
	}, recorder.fired())

	assert.Equal(t, []string{"analysis.completed"}, f.published.seen(),
		"only the computed run announces itself")
}

func TestAnalysisServiceRecomputesAfterMutation(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t)
	svc := f.service(StaticDomainConfig{})

	first, err := svc.Analyze(ctx)
	require.NoError(t, err)

	// A rename bumps the category version, which changes the snapshot
	// checksum even though the graph structure is identical.
	category, err := f.categories.GetByID(ctx, testID(t, 1))
	require.NoError(t, err)
	label, err := valueobjects.NewCategoryLabel("Appliances", "")
	require.NoError(t, err)
	require.NoError(t, category.Relabel(label))
	require.NoError(t, f.categories.Save(ctx, category))

	second, err := svc.Analyze(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, first.Version, second.Version)
	assert.Equal(t, "Appliances", second.Names[testID(t, 1)])
	assert.Equal(t, first.Result.Stats.TotalEdges, second.Result.Stats.TotalEdges)
	assert.Equal(t, []string{"analysis.completed", "analysis.completed"}, f.published.seen())
}

func TestAnalysisServiceCacheDisabled(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t)

	cfg := config.DefaultDomainConfig()
	cfg.EnableAnalysisCache = false
	svc := f.service(StaticDomainConfig{Cfg: cfg})

	recorder := &hookRecorder{}
	hooks := extensions.NewHookManager()
	recorder.install(hooks, allAnalysisHookPoints()...)
	svc.UseHooks(hooks)

	first, err := svc.Analyze(ctx)
	require.NoError(t, err)
	second, err := svc.Analyze(ctx)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, []extensions.HookPoint{
		extensions.HookBeforeAnalysis,
		extensions.HookAfterAnalysis,
		extensions.HookBeforeAnalysis,
		extensions.HookAfterAnalysis,
	}, recorder.fired(), "cache hooks never fire with the cache disabled")
}

func TestAnalysisServiceBeforeHookRejects(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t)
	svc := f.service(StaticDomainConfig{})

	hooks := extensions.NewHookManager()
	hooks.Register(extensions.HookBeforeAnalysis, func(context.Context, interface{}) error {
		return errors.New("maintenance window")
	})
	svc.UseHooks(hooks)

	_, err := svc.Analyze(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis rejected")
	assert.Empty(t, f.published.seen())
}

func TestAnalysisServiceShortestPath(t *testing.T) {
	ctx := context.Background()

	t.Run("connected endpoints", func(t *testing.T) {
		f := newAnalysisFixture(t)
		svc := f.service(StaticDomainConfig{})

		snapshot, path, found, err := svc.ShortestPath(ctx, testID(t, 1), testID(t, 3))
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.True(t, found)
		require.Len(t, path, 3)
		assert.True(t, path[0].Equals(testID(t, 1)))
		assert.True(t, path[1].Equals(testID(t, 2)))
		assert.True(t, path[2].Equals(testID(t, 3)))
	})

	t.Run("disconnected endpoints are a found=false answer", func(t *testing.T) {
		f := newAnalysisFixture(t)
		svc := f.service(StaticDomainConfig{})

		snapshot, path, found, err := svc.ShortestPath(ctx, testID(t, 1), testID(t, 4))
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.False(t, found)
		assert.Empty(t, path)
	})

	t.Run("unknown endpoints are the caller's mistake", func(t *testing.T) {
		f := newAnalysisFixture(t)
		svc := f.service(StaticDomainConfig{})

		_, _, _, err := svc.ShortestPath(ctx, testID(t, 1), testID(t, 9))
		assert.ErrorIs(t, err, pkgerrors.ErrCategoryNotFound)
	})
}

func TestAnalysisServiceLoadGraphInconsistency(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t)
	svc := f.service(StaticDomainConfig{})

	// Deleting an endpoint behind the service's back leaves a dangling
	// edge in the same snapshot.
	require.NoError(t, f.categories.Delete(ctx, testID(t, 3)))

	_, err := svc.LoadGraph(ctx)
	assert.ErrorIs(t, err, pkgerrors.ErrSnapshotInconsistent)
}

func TestAnalysisServiceRenderReport(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t)
	svc := f.service(StaticDomainConfig{})

	text, report, err := svc.RenderReport(ctx)
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Contains(t, text, "Found 2 rabbit islands")
	assert.Contains(t, text, "Length: 2 hops")
	assert.Contains(t, text, "Path: Electronics → Garden → Books")
	assert.Contains(t, text, "STATISTICS")
	assert.Len(t, report.Version, 16)
}
