package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	domaincfg "catgraph/domain/config"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DynamicConfig serves the current domain configuration and refreshes it
// when a YAML overrides file changes on disk. Analysis limits can be tuned
// on a running server this way: the analysis service rebuilds its engine
// from Current() per request.
//
// Readers get an immutable snapshot; reloads swap in a fresh copy instead
// of mutating the one already handed out.
type DynamicConfig struct {
	mu      sync.RWMutex
	current *domaincfg.DomainConfig

	base   *domaincfg.DomainConfig
	path   string
	logger *zap.Logger

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// analysisOverrides is the shape of the watched YAML file. Pointer fields
// distinguish "absent" from zero values, so the file only has to name the
// knobs it changes.
type analysisOverrides struct {
	TopConnectedCount      *int  `yaml:"top_connected_count"`
	IslandDisplayCap       *int  `yaml:"island_display_cap"`
	IslandDisplayHead      *int  `yaml:"island_display_head"`
	DiameterWorkers        *int  `yaml:"diameter_workers"`
	MaxBulkSimilarities    *int  `yaml:"max_bulk_similarities"`
	EnableParallelDiameter *bool `yaml:"enable_parallel_diameter"`
	EnableAnalysisCache    *bool `yaml:"enable_analysis_cache"`
}

// NewDynamicConfig creates a config source over the given base. The file
// at path supplies overrides; an empty path or missing file leaves the
// base untouched.
func NewDynamicConfig(base *domaincfg.DomainConfig, path string, logger *zap.Logger) *DynamicConfig {
	if base == nil {
		base = domaincfg.DefaultDomainConfig()
	}
	return &DynamicConfig{
		current: base,
		base:    base,
		path:    path,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Current returns the configuration in effect right now. Callers must not
// mutate the returned value.
func (d *DynamicConfig) Current() *domaincfg.DomainConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// Start loads the overrides file once and begins watching it for changes.
// Without a configured path it is a no-op.
func (d *DynamicConfig) Start() error {
	if d.path == "" {
		return nil
	}

	if err := d.reload(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}

	// Watch the directory, not the file: editors and config pushes often
	// replace the file by rename, which a file watch would lose.
	dir := filepath.Dir(d.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	d.watcher = watcher
	go d.watchLoop()

	d.logger.Info("Watching analysis limits file", zap.String("path", d.path))
	return nil
}

// Stop ends the file watch
func (d *DynamicConfig) Stop() {
	d.stopOnce.Do(func() {
		close(d.done)
		if d.watcher != nil {
			d.watcher.Close()
		}
	})
}

func (d *DynamicConfig) watchLoop() {
	target := filepath.Clean(d.path)

	for {
		select {
		case <-d.done:
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := d.reload(); err != nil {
				d.logger.Error("Failed to reload analysis limits",
					zap.String("path", d.path),
					zap.Error(err),
				)
			}
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Error("Config watcher error", zap.Error(err))
		}
	}
}

// reload reads the overrides file and swaps in a fresh config. A missing
// file restores the base configuration; a file that fails to parse or
// validate leaves the running config untouched.
func (d *DynamicConfig) reload() error {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			d.swap(d.base)
			return nil
		}
		return err
	}

	var overrides analysisOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to parse %s: %w", d.path, err)
	}

	next := *d.base
	if overrides.TopConnectedCount != nil {
		next.TopConnectedCount = *overrides.TopConnectedCount
	}
	if overrides.IslandDisplayCap != nil {
		next.IslandDisplayCap = *overrides.IslandDisplayCap
	}
	if overrides.IslandDisplayHead != nil {
		next.IslandDisplayHead = *overrides.IslandDisplayHead
	}
	if overrides.DiameterWorkers != nil {
		next.DiameterWorkers = *overrides.DiameterWorkers
	}
	if overrides.MaxBulkSimilarities != nil {
		next.MaxBulkSimilarities = *overrides.MaxBulkSimilarities
	}
	if overrides.EnableParallelDiameter != nil {
		next.EnableParallelDiameter = *overrides.EnableParallelDiameter
	}
	if overrides.EnableAnalysisCache != nil {
		next.EnableAnalysisCache = *overrides.EnableAnalysisCache
	}

	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid analysis limits in %s: %w", d.path, err)
	}

	d.swap(&next)
	d.logger.Info("Analysis limits reloaded",
		zap.String("path", d.path),
		zap.Int("topConnected", next.TopConnectedCount),
		zap.Int("islandDisplayCap", next.IslandDisplayCap),
		zap.Int("diameterWorkers", next.DiameterWorkers),
	)
	return nil
}

func (d *DynamicConfig) swap(cfg *domaincfg.DomainConfig) {
	d.mu.Lock()
	d.current = cfg
	d.mu.Unlock()
}
