package handlers

import (
	"context"
	"net/http"

	"github.com/eshaffer321/slipcheck/internal/api/dto"
)

// Pinger reports whether the transaction store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	*Base
	store Pinger
}

// NewHealthHandler creates a new health handler. A nil store skips the
// reachability check.
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{Base: &Base{}, store: store}
}

// ServeHTTP handles the health check request.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := dto.NewHealthResponse()
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			response.Status = "degraded"
			h.WriteJSON(w, http.StatusServiceUnavailable, response)
			return
		}
	}
	h.WriteJSON(w, http.StatusOK, response)
}
