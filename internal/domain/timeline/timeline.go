// Package timeline selects the play-by-play events leading up to a moment and
// puts them in chronological order.
package timeline

import (
	"sort"

	"github.com/dock108/scrolldown/internal/domain/gameclock"
	"github.com/dock108/scrolldown/internal/domain/model"
)

// Filter keeps the events that are not later than the moment. Events whose
// time cannot be resolved are kept. When the moment itself cannot be
// resolved, all events are kept. The input slice is not modified.
func Filter(m model.Moment, events []model.Event) []model.Event {
	out := make([]model.Event, 0, len(events))
	bound, ok := gameclock.MomentKey(m)
	if !ok {
		return append(out, events...)
	}
	for _, e := range events {
		if key, known := gameclock.EventKey(e); known && key > bound {
			continue
		}
		out = append(out, e)
	}
	return out
}

type keyed struct {
	index int
	key   float64
	known bool
}

// Sort returns events ordered by elapsed game time. Resolved events come
// first in ascending order; unresolved ones follow. Ties keep input order.
// The input slice is not modified.
func Sort(events []model.Event) []model.Event {
	keys := make([]keyed, len(events))
	for i, e := range events {
		k, ok := gameclock.EventKey(e)
		keys[i] = keyed{index: i, key: k, known: ok}
	}

	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		switch {
		case a.known && b.known:
			return a.key < b.key
		case a.known != b.known:
			return a.known
		default:
			return false
		}
	})

	out := make([]model.Event, len(events))
	for i, k := range keys {
		out[i] = events[k.index]
	}
	return out
}

// Ordered filters events against the moment and sorts what remains.
func Ordered(m model.Moment, events []model.Event) []model.Event {
	return Sort(Filter(m, events))
}

// Stats summarizes how a set of events relates to a moment.
type Stats struct {
	Total       int
	Kept        int
	FilteredOut int
	Unresolved  int
}

// Summarize counts kept, dropped and unresolved events for the moment.
func Summarize(m model.Moment, events []model.Event) Stats {
	kept := Filter(m, events)
	s := Stats{Total: len(events), Kept: len(kept), FilteredOut: len(events) - len(kept)}
	for _, e := range kept {
		if _, ok := gameclock.EventKey(e); !ok {
			s.Unresolved++
		}
	}
	return s
}
