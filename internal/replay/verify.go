package replay

import (
	"fmt"

	"github.com/dock108/scrolldown/internal/domain/gameclock"
	"github.com/dock108/scrolldown/internal/domain/model"
)

// Verify checks that events form a valid timeline for m: nothing resolves
// later than the moment, resolved events are non-decreasing and unresolved
// events only appear after every resolved one.
func Verify(m model.Moment, events []model.Event) error {
	bound, bounded := gameclock.MomentKey(m)
	prev := 0.0
	sawResolved, sawUnresolved := false, false

	for i, e := range events {
		key, ok := gameclock.EventKey(e)
		if !ok {
			sawUnresolved = true
			continue
		}
		switch {
		case sawUnresolved:
			return fmt.Errorf("event %d (%s) resolves after an unresolved event", i, e.ID)
		case bounded && key > bound:
			return fmt.Errorf("event %d (%s) at %.1fs is after the moment at %.1fs", i, e.ID, key, bound)
		case sawResolved && key < prev:
			return fmt.Errorf("event %d (%s) at %.1fs precedes %.1fs", i, e.ID, key, prev)
		}
		prev, sawResolved = key, true
	}
	return nil
}
