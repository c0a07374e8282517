package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"catgraph/application/ports"
	"catgraph/domain/core/entities"
	"catgraph/domain/core/valueobjects"
	"catgraph/domain/events"
	"catgraph/domain/services"
	pkgerrors "catgraph/pkg/errors"
	"catgraph/pkg/extensions"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const analysisCacheKeyPrefix = "analysis:"

// GraphSnapshot is one consistent load of the catalog and the edge set,
// identified by a checksum over its content. Two loads with the same
// version are interchangeable for analysis purposes.
type GraphSnapshot struct {
	Version   string
	LoadedAt  time.Time
	Adjacency *services.Adjacency
	Names     map[valueobjects.CategoryID]string
}

// AnalysisReport bundles a finished engine run with the snapshot it ran
// over, so callers can render names and report which catalog state
// produced the numbers.
type AnalysisReport struct {
	Version     string
	GeneratedAt time.Time
	Duration    time.Duration
	Names       map[valueobjects.CategoryID]string
	Result      *services.AnalysisResult
}

// AnalysisService loads graph snapshots and runs the analytics engine
// over them. Finished runs are cached keyed on the snapshot checksum:
// any catalog mutation changes the checksum, so the next query simply
// recomputes and stale entries age out on their TTL. The engine itself
// stays pure; all I/O lives here.
//
// The engine is rebuilt per operation from the config source, so limit
// changes picked up by a watching source apply to the next request
// without a restart.
type AnalysisService struct {
	categoryRepo   ports.CategoryRepository
	similarityRepo ports.SimilarityRepository
	cfgSource      DomainConfigSource
	cache          ports.Cache
	eventBus       ports.EventBus
	hooks          *extensions.HookManager
	cacheTTL       int
	logger         *zap.Logger
}

// NewAnalysisService creates a new analysis service. cacheTTLSeconds
// bounds how long a finished run may be served from cache; zero or
// negative falls back to five minutes.
func NewAnalysisService(
	categoryRepo ports.CategoryRepository,
	similarityRepo ports.SimilarityRepository,
	cfgSource DomainConfigSource,
	cache ports.Cache,
	eventBus ports.EventBus,
	cacheTTLSeconds int,
	logger *zap.Logger,
) *AnalysisService {
	if cfgSource == nil {
		cfgSource = StaticDomainConfig{}
	}
	if cacheTTLSeconds <= 0 {
		cacheTTLSeconds = 300
	}
	return &AnalysisService{
		categoryRepo:   categoryRepo,
		similarityRepo: similarityRepo,
		cfgSource:      cfgSource,
		cache:          cache,
		eventBus:       eventBus,
		cacheTTL:       cacheTTLSeconds,
		logger:         logger,
	}
}

// UseHooks installs lifecycle hooks fired around analysis runs. Before-hooks
// run synchronously and may reject the run; after-hooks and cache hooks run
// synchronously but their errors are only logged.
func (s *AnalysisService) UseHooks(hooks *extensions.HookManager) {
	s.hooks = hooks
}

func (s *AnalysisService) fireBlocking(ctx context.Context, point extensions.HookPoint, data extensions.AnalysisHookData) error {
	if s.hooks == nil {
		return nil
	}
	return s.hooks.Execute(ctx, point, data)
}

func (s *AnalysisService) fireLogged(ctx context.Context, point extensions.HookPoint, data extensions.AnalysisHookData) {
	if s.hooks == nil {
		return
	}
	if err := s.hooks.Execute(ctx, point, data); err != nil {
		s.logger.Warn("Analysis hook failed",
			zap.String("hook_point", string(point)),
			zap.Error(err))
	}
}

// LoadGraph reads the full catalog and edge set and builds the derived
// similarity graph. Every call loads fresh data; an edge referencing a
// category missing from the same load means the store is inconsistent.
func (s *AnalysisService) LoadGraph(ctx context.Context) (*GraphSnapshot, error) {
	categories, err := s.categoryRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	edges, err := s.similarityRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load similarity edges: %w", err)
	}

	ids := make([]valueobjects.CategoryID, 0, len(categories))
	names := make(map[valueobjects.CategoryID]string, len(categories))
	for _, category := range categories {
		ids = append(ids, category.ID())
		names[category.ID()] = category.Name()
	}

	adjacency, err := services.BuildAdjacency(ids, edges)
	if err != nil {
		return nil, pkgerrors.ErrSnapshotInconsistent.WithCause(err)
	}

	return &GraphSnapshot{
		Version:   snapshotVersion(categories, edges),
		LoadedAt:  time.Now(),
		Adjacency: adjacency,
		Names:     names,
	}, nil
}

// Analyze runs the full pipeline (islands, diameter, stats) over the
// current snapshot, serving a cached run when one exists for the same
// snapshot version.
func (s *AnalysisService) Analyze(ctx context.Context) (*AnalysisReport, error) {
	snapshot, err := s.LoadGraph(ctx)
	if err != nil {
		return nil, err
	}

	hookData := extensions.AnalysisHookData{
		Operation:       "analyze",
		SnapshotVersion: snapshot.Version,
		Categories:      snapshot.Adjacency.Size(),
		Edges:           snapshot.Adjacency.EdgeCount(),
	}
	if err := s.fireBlocking(ctx, extensions.HookBeforeAnalysis, hookData); err != nil {
		return nil, fmt.Errorf("analysis rejected: %w", err)
	}

	cfg := s.cfgSource.Current()
	cacheKey := analysisCacheKeyPrefix + snapshot.Version
	if cfg.EnableAnalysisCache && s.cache != nil {
		if cached, found := s.cache.Get(ctx, cacheKey); found {
			if report, ok := cached.(*AnalysisReport); ok {
				s.logger.Debug("Serving cached analysis",
					zap.String("snapshot_version", snapshot.Version))
				s.fireLogged(ctx, extensions.HookCacheHit, hookData)
				return report, nil
			}
		}
		s.fireLogged(ctx, extensions.HookCacheMiss, hookData)
	}

	started := time.Now()
	result, err := services.NewGraphAnalyticsService(cfg).Analyze(ctx, snapshot.Adjacency)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	duration := time.Since(started)

	report := &AnalysisReport{
		Version:     snapshot.Version,
		GeneratedAt: started,
		Duration:    duration,
		Names:       snapshot.Names,
		Result:      result,
	}

	if cfg.EnableAnalysisCache && s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, report, s.cacheTTL); err != nil {
			s.logger.Warn("Failed to cache analysis", zap.Error(err))
		}
	}

	if s.eventBus != nil {
		event := events.NewAnalysisCompleted(
			uuid.NewString(),
			result.Stats.TotalCategories,
			result.Stats.TotalEdges,
			result.Stats.IslandCount,
			result.Diameter.Length,
			duration,
			time.Now(),
		)
		if err := s.eventBus.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish analysis event", zap.Error(err))
		}
	}

	hookData.Duration = duration
	s.fireLogged(ctx, extensions.HookAfterAnalysis, hookData)

	s.logger.Info("Analysis run finished",
		zap.String("snapshot_version", snapshot.Version),
		zap.Int("categories", result.Stats.TotalCategories),
		zap.Int("edges", result.Stats.TotalEdges),
		zap.Int("islands", result.Stats.IslandCount),
		zap.Int("diameter", result.Diameter.Length),
		zap.Duration("duration", duration),
	)

	return report, nil
}

// ShortestPath answers a point-to-point path query over the current
// snapshot. Unknown endpoints are reported as not-found resource errors
// since the IDs were supplied by the caller; a missing path between two
// known categories is a legitimate found=false answer.
func (s *AnalysisService) ShortestPath(ctx context.Context, from, to valueobjects.CategoryID) (*GraphSnapshot, []valueobjects.CategoryID, bool, error) {
	snapshot, err := s.LoadGraph(ctx)
	if err != nil {
		return nil, nil, false, err
	}

	for _, id := range []valueobjects.CategoryID{from, to} {
		if !snapshot.Adjacency.Has(id) {
			return nil, nil, false, pkgerrors.ErrCategoryNotFound.WithDetail("category_id", id.String())
		}
	}

	hookData := extensions.AnalysisHookData{
		Operation:       "shortest_path",
		SnapshotVersion: snapshot.Version,
		Categories:      snapshot.Adjacency.Size(),
		Edges:           snapshot.Adjacency.EdgeCount(),
	}
	if err := s.fireBlocking(ctx, extensions.HookBeforeAnalysis, hookData); err != nil {
		return nil, nil, false, fmt.Errorf("analysis rejected: %w", err)
	}

	started := time.Now()
	engine := services.NewGraphAnalyticsService(s.cfgSource.Current())
	path, found, err := engine.ShortestPath(snapshot.Adjacency, from, to)
	if err != nil {
		return nil, nil, false, err
	}

	hookData.Duration = time.Since(started)
	s.fireLogged(ctx, extensions.HookAfterAnalysis, hookData)

	return snapshot, path, found, nil
}

// RenderReport produces the analyst-facing text report for the current
// snapshot
func (s *AnalysisService) RenderReport(ctx context.Context) (string, *AnalysisReport, error) {
	report, err := s.Analyze(ctx)
	if err != nil {
		return "", nil, err
	}
	engine := services.NewGraphAnalyticsService(s.cfgSource.Current())
	return engine.RenderReport(report.Result, report.Names), report, nil
}

// snapshotVersion derives a stable checksum for one snapshot. Category
// versions participate, so a rename refreshes everything that resolves
// names from the snapshot, not only structural changes.
func snapshotVersion(categories []*entities.Category, edges []valueobjects.SimilarityEdge) string {
	parts := make([]string, 0, len(categories)+len(edges))
	for _, category := range categories {
		parts = append(parts, fmt.Sprintf("c:%s:%d", category.ID(), category.Version()))
	}
	for _, edge := range edges {
		parts = append(parts, "e:"+edge.Key())
	}
	sort.Strings(parts)

	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
