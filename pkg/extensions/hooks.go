// Package extensions provides lifecycle hook points so deployments can
// attach behavior (metrics, audit, cache warming) without modifying the
// services that fire them.
package extensions

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// HookPoint represents a point in the application where hooks can be registered
type HookPoint string

const (
	// Command hooks
	HookBeforeCommandExecute HookPoint = "before_command_execute"
	HookAfterCommandExecute  HookPoint = "after_command_execute"
	HookCommandFailed        HookPoint = "command_failed"

	// Analysis hooks
	HookBeforeAnalysis HookPoint = "before_analysis"
	HookAfterAnalysis  HookPoint = "after_analysis"

	// Cache hooks
	HookCacheHit  HookPoint = "cache_hit"
	HookCacheMiss HookPoint = "cache_miss"
)

// Hook represents a function that can be executed at a hook point
type Hook func(ctx context.Context, data interface{}) error

// HookManager manages hooks for extension points
type HookManager struct {
	hooks map[HookPoint][]Hook
	mu    sync.RWMutex
}

// NewHookManager creates a new hook manager
func NewHookManager() *HookManager {
	return &HookManager{
		hooks: make(map[HookPoint][]Hook),
	}
}

// Register registers a hook for a specific hook point
func (m *HookManager) Register(point HookPoint, hook Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks[point] = append(m.hooks[point], hook)
}

// Execute runs all hooks for a hook point in registration order. The
// first error stops the chain, so before-hooks can reject an operation.
func (m *HookManager) Execute(ctx context.Context, point HookPoint, data interface{}) error {
	m.mu.RLock()
	hooks := m.hooks[point]
	m.mu.RUnlock()

	for i, hook := range hooks {
		if err := hook(ctx, data); err != nil {
			return fmt.Errorf("hook %d at %s failed: %w", i, point, err)
		}
	}

	return nil
}

// ExecuteAsync runs hooks in their own goroutines, dropping errors. For
// notification-style hooks where the caller must not wait.
func (m *HookManager) ExecuteAsync(ctx context.Context, point HookPoint, data interface{}) {
	m.mu.RLock()
	hooks := m.hooks[point]
	m.mu.RUnlock()

	for _, hook := range hooks {
		go func(h Hook) {
			_ = h(ctx, data)
		}(hook)
	}
}

// Clear removes all hooks for a specific hook point
func (m *HookManager) Clear(point HookPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.hooks, point)
}

// ClearAll removes all registered hooks
func (m *HookManager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks = make(map[HookPoint][]Hook)
}

// AnalysisHookData is the payload passed to analysis and cache hooks.
type AnalysisHookData struct {
	Operation       string        `json:"operation"`
	SnapshotVersion string        `json:"snapshot_version"`
	Duration        time.Duration `json:"duration"`
	Categories      int           `json:"categories"`
	Edges           int           `json:"edges"`
}

// CommandHookData is the payload passed to command hooks.
type CommandHookData struct {
	CommandType string `json:"command_type"`
	Err         error  `json:"-"`
}
