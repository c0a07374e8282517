package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"catgraph/application/commands/bus"
	querybus "catgraph/application/queries/bus"
)

// newTestRouter wires the router over empty buses, enough to exercise the
// route table without a store behind it.
func newTestRouter() http.Handler {
	return NewRouter(Config{Version: "test"}, Deps{
		CommandBus: bus.NewCommandBus(),
		QueryBus:   querybus.NewQueryBus(),
		Logger:     zap.NewNop(),
	}).Setup()
}

func TestRouterBindsDocumentedPaths(t *testing.T) {
	router := newTestRouter()

	paths := []struct {
		name string
		path string
	}{
		{"stats", "/api/v2/analysis/stats"},
		{"islands", "/api/v2/analysis/islands"},
		{"diameter", "/api/v2/analysis/diameter"},
		{"shortest path", "/api/v2/analysis/shortest-path"},
		{"report", "/api/v2/analysis/report"},
		{"similarities by category", "/api/v2/similarities/by-category/00000000-0000-4000-8000-000000000001"},
		{"category tree", "/api/v2/categories/tree"},
	}
	for _, tc := range paths {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.NotEqual(t, http.StatusNotFound, rec.Code, "path %s is not mounted", tc.path)
			assert.NotEqual(t, http.StatusMethodNotAllowed, rec.Code, "path %s rejects GET", tc.path)
		})
	}
}
