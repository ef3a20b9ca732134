package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dock108/scrolldown/internal/domain/model"
	"github.com/dock108/scrolldown/internal/domain/types"
	"github.com/dock108/scrolldown/pkg/logger"
	"github.com/google/uuid"
)

// ErrViolations reports that at least one timeline failed verification.
var ErrViolations = errors.New("timeline violations")

const sessionHeader = "X-Session-ID"

type counters struct {
	prefetched, prefetchDup  atomic.Int64
	loaded, failed, violated atomic.Int64
	events                   atomic.Int64
}

// Run replays cfg.Moments moments across cfg.Sessions concurrent sessions
// and returns the collected statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Named("replay")

	log.Info(ctx, "starting replay",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("moments", cfg.Moments),
		logger.Int("sessions", cfg.Sessions),
		logger.Bool("prefetch", cfg.Prefetch),
		logger.Duration("timeout", cfg.Timeout))

	c := newClient(cfg.Timeout)
	if err := checkHealth(ctx, c, cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	moments := Moments(cfg.Moments)
	stats.MomentsRequested = len(moments)

	var n counters
	work := make(chan model.Moment, cfg.Sessions*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Sessions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session := uuid.NewString()
			for m := range work {
				if ctx.Err() != nil {
					return
				}
				replayMoment(ctx, c, cfg, session, m, &n, log)
			}
		}()
	}

	go func() {
		defer close(work)
		for _, m := range moments {
			select {
			case <-ctx.Done():
				return
			case work <- m:
			}
		}
	}()
	wg.Wait()

	stats.Prefetched = int(n.prefetched.Load())
	stats.PrefetchDup = int(n.prefetchDup.Load())
	stats.Loaded = int(n.loaded.Load())
	stats.LoadFailed = int(n.failed.Load())
	stats.Violations = int(n.violated.Load())
	stats.EventsReceived = int(n.events.Load())
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	log.Info(ctx, "replay finished",
		logger.Int("loaded", stats.Loaded),
		logger.Int("loadFailed", stats.LoadFailed),
		logger.Int("prefetched", stats.Prefetched),
		logger.Int("prefetchDuplicate", stats.PrefetchDup),
		logger.Int("events", stats.EventsReceived),
		logger.Int("violations", stats.Violations),
		logger.Duration("duration", stats.Duration))

	if stats.Violations > 0 {
		return stats, fmt.Errorf("%w: %d", ErrViolations, stats.Violations)
	}
	return stats, ctx.Err()
}

func replayMoment(ctx context.Context, c *client, cfg *Config, session string, m model.Moment, n *counters, log logger.Logger) {
	if cfg.Prefetch {
		switch status, err := prefetch(ctx, c, cfg.BaseURL, m.ID); {
		case err != nil:
			log.Warn(ctx, "prefetch failed", logger.String("moment_id", m.ID.String()), logger.Error(err))
		case status == http.StatusOK:
			n.prefetchDup.Add(1)
		default:
			n.prefetched.Add(1)
		}
	}

	pbp, err := fetchPbp(ctx, c, cfg.BaseURL, session, m)
	if err != nil {
		n.failed.Add(1)
		log.Warn(ctx, "load failed", logger.String("moment_id", m.ID.String()), logger.Error(err))
		return
	}
	n.loaded.Add(1)
	n.events.Add(int64(len(pbp.Events)))

	if err := Verify(m, pbp.Events); err != nil {
		n.violated.Add(1)
		log.Error(ctx, "timeline violation", logger.String("moment_id", m.ID.String()), logger.Error(err))
		return
	}
	if cfg.Verbose {
		log.Info(ctx, "moment verified",
			logger.String("moment_id", m.ID.String()),
			logger.String("time", m.TimeLabel()),
			logger.Int("events", len(pbp.Events)))
	}
}

func checkHealth(ctx context.Context, c *client, baseURL string) error {
	resp, err := c.get(ctx, baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("connect to service: %w", err)
	}
	_, _ = readBody(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func prefetch(ctx context.Context, c *client, baseURL string, id model.ID) (int, error) {
	resp, err := c.postJSON(ctx, baseURL+"/prefetch", types.PrefetchRequest{MomentID: id})
	if err != nil {
		return 0, err
	}
	_, _ = readBody(resp)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func fetchPbp(ctx context.Context, c *client, baseURL, session string, m model.Moment) (types.MomentPbp, error) {
	q := url.Values{}
	if m.Period != nil {
		q.Set("period", fmt.Sprint(*m.Period))
	}
	if m.GameClock != nil {
		q.Set("clock", *m.GameClock)
	}
	target := fmt.Sprintf("%s/moments/%s/pbp?%s", baseURL, url.PathEscape(m.ID.String()), q.Encode())

	resp, err := c.get(ctx, target, http.Header{sessionHeader: []string{session}})
	if err != nil {
		return types.MomentPbp{}, err
	}
	body, err := readBody(resp)
	if err != nil {
		return types.MomentPbp{}, fmt.Errorf("read body: %w", err)
	}

	var pbp types.MomentPbp
	if err := json.Unmarshal(body, &pbp); err != nil {
		return types.MomentPbp{}, fmt.Errorf("decode body (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return pbp, fmt.Errorf("status %d: %s", resp.StatusCode, pbp.ErrorMessage)
	}
	return pbp, nil
}
