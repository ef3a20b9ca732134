package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dock108/scrolldown/internal/adapters/mq/queue"
	"github.com/dock108/scrolldown/internal/domain/model"
	"github.com/dock108/scrolldown/internal/domain/types"
)

// PrefetchDependencies defines the interface for prefetch dependencies.
type PrefetchDependencies interface {
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)
	EnqueuePrefetch(ctx context.Context, id model.ID) error
}

// PrefetchHandler handles prefetch requests.
type PrefetchHandler struct {
	deps PrefetchDependencies
}

// NewPrefetchHandler creates a new prefetch handler.
func NewPrefetchHandler(deps PrefetchDependencies) *PrefetchHandler {
	return &PrefetchHandler{deps: deps}
}

// HandlePrefetch handles POST /prefetch requests.
func (h *PrefetchHandler) HandlePrefetch(w http.ResponseWriter, r *http.Request) {
	var req types.PrefetchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if req.MomentID.IsZero() {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing moment_id", ErrBadRequest))
		return
	}
	key := req.MomentID.String()

	if h.deps.SeenAndRecord(r.Context(), key) {
		writeJSON(w, http.StatusOK, types.PrefetchResponse{MomentID: req.MomentID, Status: "duplicate"})
		return
	}

	if err := h.deps.EnqueuePrefetch(r.Context(), req.MomentID); err != nil {
		// Let the moment be requested again.
		h.deps.Unrecord(r.Context(), key)
		if errors.Is(err, queue.ErrFull) {
			writeError(w, http.StatusTooManyRequests, "backpressure", fmt.Errorf("%w: %v", ErrBackpressure, err))
			return
		}
		writeError(w, http.StatusServiceUnavailable, "unavailable", fmt.Errorf("%w: %v", ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusAccepted, types.PrefetchResponse{MomentID: req.MomentID, Status: "accepted"})
}
