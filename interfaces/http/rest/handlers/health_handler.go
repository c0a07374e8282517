package handlers

import (
	"context"
	"net/http"

	"catgraph/pkg/common"

	"go.uber.org/zap"
)

// OutboxStats reports the state of the transactional outbox. The DynamoDB
// outbox processor implements it; deployments without one leave it nil.
type OutboxStats interface {
	Stats(ctx context.Context) (map[string]interface{}, error)
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	outbox  OutboxStats
	version string
	logger  *zap.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(outbox OutboxStats, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		outbox:  outbox,
		version: version,
		logger:  logger,
	}
}

// Health handles GET /health. It answers as long as the process runs;
// dependency checks belong to readiness.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": h.version,
	})
}

// Ready handles GET /ready. It pings the event store through the outbox
// processor, so a failing table shows up here before traffic is routed in.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "ready",
		"version": h.version,
	}

	if h.outbox != nil {
		stats, err := h.outbox.Stats(r.Context())
		if err != nil {
			h.logger.Warn("Readiness check failed on outbox", zap.Error(err))
			common.RespondError(w, http.StatusServiceUnavailable, common.StandardErrorCodes.ServiceUnavailable, "Event store unreachable")
			return
		}
		response["outbox"] = stats
	}

	common.RespondJSON(w, http.StatusOK, response)
}
