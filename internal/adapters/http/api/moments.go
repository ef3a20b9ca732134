package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dock108/scrolldown/internal/app/loader"
	"github.com/dock108/scrolldown/internal/domain/model"
	"github.com/dock108/scrolldown/internal/domain/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SessionHeader carries the consumer session a request belongs to.
const SessionHeader = "X-Session-ID"

// MomentDependencies runs a session's loader.
type MomentDependencies interface {
	LoadMoment(ctx context.Context, session string, m model.Moment) (loader.State, error)
}

// MomentsHandler serves a moment's ordered play-by-play.
type MomentsHandler struct {
	deps MomentDependencies
}

// NewMomentsHandler creates a new moments handler.
func NewMomentsHandler(deps MomentDependencies) *MomentsHandler {
	return &MomentsHandler{deps: deps}
}

// HandleGetPbp handles GET /moments/{momentID}/pbp. A failed load still
// returns the published state, with status 502; loaded_moment_id then names
// the moment the kept events belong to.
func (h *MomentsHandler) HandleGetPbp(w http.ResponseWriter, r *http.Request) {
	m, err := momentFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	session := strings.TrimSpace(r.Header.Get(SessionHeader))
	if session == "" {
		session = uuid.NewString()
	}
	w.Header().Set(SessionHeader, session)

	st, err := h.deps.LoadMoment(r.Context(), session, m)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", fmt.Errorf("%w: %v", ErrUnavailable, err))
		return
	}

	status := http.StatusOK
	if st.ErrorMessage != "" {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, types.MomentPbp{
		MomentID:       m.ID,
		LoadedMomentID: st.MomentID,
		Title:          m.DisplayTitle(),
		TimeLabel:      m.TimeLabel(),
		Events:         st.Events,
		IsLoading:      st.IsLoading,
		ErrorMessage:   st.ErrorMessage,
	})
}

func momentFromRequest(r *http.Request) (model.Moment, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "momentID"))
	if raw == "" {
		return model.Moment{}, fmt.Errorf("%w: missing moment id", ErrBadRequest)
	}
	m := model.Moment{ID: model.ParseID(raw)}

	q := r.URL.Query()
	if p := q.Get("period"); p != "" {
		period, err := strconv.Atoi(p)
		if err != nil {
			return model.Moment{}, fmt.Errorf("%w: invalid period %q", ErrBadRequest, p)
		}
		m.Period = &period
	}
	if c := q.Get("clock"); c != "" {
		m.GameClock = &c
	}
	return m, nil
}
