// Package types contains wire shapes shared by the HTTP API, the CLI and the
// live PBP client.
package types

import "github.com/dock108/scrolldown/internal/domain/model"

// MomentPbp is a session's view of a moment's play-by-play. MomentID is the
// requested moment; LoadedMomentID is the moment Events belong to, which
// differs from MomentID after a failed load. It is omitted before any
// successful load.
type MomentPbp struct {
	MomentID       model.ID      `json:"moment_id"`
	LoadedMomentID model.ID      `json:"loaded_moment_id,omitzero"`
	Title          string        `json:"title"`
	TimeLabel      string        `json:"time_label,omitempty"`
	Events         []model.Event `json:"events"`
	IsLoading      bool          `json:"is_loading"`
	ErrorMessage   string        `json:"error_message,omitempty"`
}

// PbpResponse is the body returned by the backend's moment PBP endpoint.
type PbpResponse struct {
	Events []model.Event `json:"events"`
}

// OrderRequest asks for events to be ordered relative to a moment.
type OrderRequest struct {
	Moment model.Moment  `json:"moment"`
	Events []model.Event `json:"events"`
}

// OrderResponse carries the ordered events and how many were dropped.
type OrderResponse struct {
	Events      []model.Event `json:"events"`
	FilteredOut int           `json:"filtered_out"`
	Unresolved  int           `json:"unresolved"`
}

// PrefetchRequest asks for a moment's PBP to be warmed in the background.
type PrefetchRequest struct {
	MomentID model.ID `json:"moment_id"`
}

// PrefetchResponse acknowledges a prefetch request.
type PrefetchResponse struct {
	MomentID model.ID `json:"moment_id"`
	Status   string   `json:"status"`
}
