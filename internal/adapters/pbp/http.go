package pbp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dock108/scrolldown/internal/domain/model"
	"github.com/dock108/scrolldown/internal/domain/types"
	"github.com/dock108/scrolldown/pkg/logger"
)

const (
	defaultHTTPTimeout = 5 * time.Second
	maxErrorBodyBytes  = 512
)

// HTTPFetcher reads moment play-by-play from the backend API.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
	logger  logger.Logger
}

// NewHTTPFetcher creates a client for the backend rooted at baseURL.
func NewHTTPFetcher(baseURL string, opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultHTTPTimeout},
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchMomentPbp issues GET {base}/api/moments/{id}/pbp.
func (f *HTTPFetcher) FetchMomentPbp(ctx context.Context, id model.ID) ([]model.Event, error) {
	endpoint := fmt.Sprintf("%s/api/moments/%s/pbp", f.baseURL, url.PathEscape(id.String()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch moment pbp: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch moment pbp: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		f.logger.Warn(ctx, "backend rejected pbp request",
			logger.String("moment_id", id.String()),
			logger.Int("status", resp.StatusCode),
			logger.String("body", string(body)),
		)
		return nil, fmt.Errorf("fetch moment pbp: %w %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var payload types.PbpResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("fetch moment pbp: decode: %w", err)
	}
	if payload.Events == nil {
		payload.Events = []model.Event{}
	}
	return payload.Events, nil
}
