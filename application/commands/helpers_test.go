package commands

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catgraph/application/ports"
	"catgraph/domain/config"
	"catgraph/domain/core/entities"
	"catgraph/domain/core/valueobjects"
	"catgraph/domain/events"
	"catgraph/infrastructure/messaging"
	"catgraph/infrastructure/persistence/memory"
)

// testEnv assembles the command handlers' collaborators over the in-memory
// stores, the same shape the DI container wires in production.
type testEnv struct {
	categories   *memory.CategoryStore
	similarities *memory.SimilarityStore
	eventStore   *memory.EventStore
	uowFactory   *memory.UnitOfWorkFactory
	locks        *memory.LockManager
	bus          *messaging.InProcessEventBus
	published    *recordingHandler
	cfg          *config.DomainConfig
	logger       *zap.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		categories:   memory.NewCategoryStore(),
		similarities: memory.NewSimilarityStore(),
		eventStore:   memory.NewEventStore(),
		locks:        memory.NewLockManager(),
		published:    &recordingHandler{},
		cfg:          config.DefaultDomainConfig(),
		logger:       zap.NewNop(),
	}
	env.uowFactory = memory.NewUnitOfWorkFactory(env.categories, env.similarities, env.eventStore)
	env.bus = messaging.NewInProcessEventBus(env.logger)
	require.NoError(t, env.bus.Subscribe(messaging.TopicAll, env.published))
	return env
}

// seedCategory stores a category directly, bypassing the handlers.
func (env *testEnv) seedCategory(t *testing.T, n int, name string, parent valueobjects.CategoryID) *entities.Category {
	t.Helper()
	label, err := valueobjects.NewCategoryLabel(name, "")
	require.NoError(t, err)
	category, err := entities.NewCategoryWithID(testID(t, n), label, parent)
	require.NoError(t, err)
	category.MarkEventsAsCommitted()
	require.NoError(t, env.categories.Save(context.Background(), category))
	return category
}

func (env *testEnv) seedEdge(t *testing.T, a, b valueobjects.CategoryID) valueobjects.SimilarityEdge {
	t.Helper()
	edge, err := valueobjects.NewSimilarityEdge(a, b)
	require.NoError(t, err)
	require.NoError(t, env.similarities.Save(context.Background(), edge))
	return edge
}

// testID returns a deterministic UUID so assertions on ordering and adoption
// lists stay stable.
func testID(t *testing.T, n int) valueobjects.CategoryID {
	t.Helper()
	id, err := valueobjects.NewCategoryIDFromString(fmt.Sprintf("00000000-0000-4000-8000-%012d", n))
	require.NoError(t, err)
	return id
}

// slowCategoryStore widens the gap between a handler's snapshot load and
// its save, so tree mutations that are not serialized overlap reliably.
type slowCategoryStore struct {
	ports.CategoryRepository
	delay time.Duration
}

func (s *slowCategoryStore) GetAll(ctx context.Context) ([]*entities.Category, error) {
	categories, err := s.CategoryRepository.GetAll(ctx)
	time.Sleep(s.delay)
	return categories, err
}

// recordingHandler captures every event the bus delivers.
type recordingHandler struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

var _ ports.EventHandler = (*recordingHandler)(nil)

func (h *recordingHandler) Handle(_ context.Context, event events.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func (h *recordingHandler) CanHandle(string) bool { return true }

func (h *recordingHandler) typesSeen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	types := make([]string, len(h.events))
	for i, event := range h.events {
		types[i] = event.GetEventType()
	}
	return types
}
