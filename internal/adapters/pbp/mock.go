package pbp

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/dock108/scrolldown/internal/domain/gameclock"
	"github.com/dock108/scrolldown/internal/domain/model"
)

const (
	defaultMockLatency = 150 * time.Millisecond
	defaultMockSeed    = 42
	mockMinEvents      = 18
	mockMaxEvents      = 36
)

var (
	mockEventTypes = []string{"shot_made", "shot_missed", "rebound", "foul", "turnover", "timeout", "substitution", "free_throw"}
	mockTeams      = []string{"BOS", "LAL"}
	mockPlayers    = []string{"J. Tatum", "J. Brown", "L. James", "A. Davis", "D. White", "A. Reaves"}
)

// MockFetcher generates plausible play-by-play per moment. The same moment
// always yields the same events; responses are memoized after the first fetch.
type MockFetcher struct {
	minLatency time.Duration
	maxLatency time.Duration
	seed       int64
	failWith   error

	mu    sync.Mutex
	rng   *rand.Rand
	cache map[string][]model.Event
}

// NewMockFetcher creates a mock source.
func NewMockFetcher(opts ...MockOption) *MockFetcher {
	m := &MockFetcher{
		minLatency: defaultMockLatency,
		maxLatency: defaultMockLatency,
		seed:       defaultMockSeed,
		cache:      make(map[string][]model.Event),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.rng = rand.New(rand.NewSource(m.seed)) //nolint:gosec // deterministic jitter
	return m
}

// FetchMomentPbp waits for the simulated latency and returns the moment's events.
func (m *MockFetcher) FetchMomentPbp(ctx context.Context, id model.ID) ([]model.Event, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch moment pbp: %w", ctx.Err())
	case <-time.After(m.latency()):
	}

	if m.failWith != nil {
		return nil, m.failWith
	}

	key := id.String()
	m.mu.Lock()
	defer m.mu.Unlock()
	events, ok := m.cache[key]
	if !ok {
		events = generateEvents(m.seed, id)
		m.cache[key] = events
	}
	out := make([]model.Event, len(events))
	copy(out, events)
	return out, nil
}

func (m *MockFetcher) latency() time.Duration {
	if m.maxLatency <= m.minLatency {
		return m.minLatency
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.minLatency + time.Duration(m.rng.Int63n(int64(m.maxLatency-m.minLatency)))
}

func momentSeed(seed int64, id model.ID) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id.String()))
	return seed ^ int64(h.Sum64()) //nolint:gosec // wraparound is fine for a seed
}

// generateEvents builds a game's worth of events in shuffled order. Most carry
// period and clock, some an explicit elapsed value, and a few no time at all.
func generateEvents(seed int64, id model.ID) []model.Event {
	rng := rand.New(rand.NewSource(momentSeed(seed, id))) //nolint:gosec // deterministic mock data
	n := mockMinEvents + rng.Intn(mockMaxEvents-mockMinEvents+1)
	gameID := model.StringID("game-" + id.String())

	events := make([]model.Event, 0, n)
	home, away := 0, 0
	step := gameclock.RegulationPeriods * gameclock.RegulationPeriodSeconds / float64(n)
	for i := 0; i < n; i++ {
		at := float64(i)*step + rng.Float64()*step
		period := int(at/gameclock.RegulationPeriodSeconds) + 1
		remaining := gameclock.PeriodStart(period) + gameclock.RegulationPeriodSeconds - at
		clock := fmt.Sprintf("%d:%02d", int(remaining)/60, int(remaining)%60)

		team := rng.Intn(len(mockTeams))
		kind := mockEventTypes[rng.Intn(len(mockEventTypes))]
		switch kind {
		case "shot_made":
			if team == 0 {
				home += 2
			} else {
				away += 2
			}
		case "free_throw":
			if team == 0 {
				home++
			} else {
				away++
			}
		}

		ev := model.Event{
			ID:          model.IntID(int64(i + 1)),
			GameID:      gameID,
			EventType:   model.Ptr(kind),
			Description: model.Ptr(fmt.Sprintf("%s by %s", kind, mockPlayers[rng.Intn(len(mockPlayers))])),
			Team:        model.Ptr(mockTeams[team]),
			TeamID:      model.Ptr(fmt.Sprintf("team-%d", team+1)),
			HomeScore:   model.Ptr(home),
			AwayScore:   model.Ptr(away),
		}
		switch r := rng.Intn(10); {
		case r < 6:
			ev.Period = model.Ptr(period)
			ev.GameClock = model.Ptr(clock)
		case r < 9:
			ev.ElapsedSeconds = model.Ptr(at)
			ev.Period = model.Ptr(period)
		}
		events = append(events, ev)
	}

	rng.Shuffle(len(events), func(i, j int) { events[i], events[j] = events[j], events[i] })
	return events
}
