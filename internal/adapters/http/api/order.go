package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dock108/scrolldown/internal/domain/model"
	"github.com/dock108/scrolldown/internal/domain/timeline"
	"github.com/dock108/scrolldown/internal/domain/types"
)

// OrderDependencies orders events without any session state.
type OrderDependencies interface {
	OrderEvents(ctx context.Context, m model.Moment, events []model.Event) ([]model.Event, timeline.Stats)
}

// OrderHandler handles stateless ordering requests.
type OrderHandler struct {
	deps OrderDependencies
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(deps OrderDependencies) *OrderHandler {
	return &OrderHandler{deps: deps}
}

// HandleOrder handles POST /moments/order.
func (h *OrderHandler) HandleOrder(w http.ResponseWriter, r *http.Request) {
	var req types.OrderRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	events, stats := h.deps.OrderEvents(r.Context(), req.Moment, req.Events)
	writeJSON(w, http.StatusOK, types.OrderResponse{
		Events:      events,
		FilteredOut: stats.FilteredOut,
		Unresolved:  stats.Unresolved,
	})
}
