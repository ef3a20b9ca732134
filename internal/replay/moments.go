package replay

import (
	"fmt"

	"github.com/dock108/scrolldown/internal/domain/gameclock"
	"github.com/dock108/scrolldown/internal/domain/model"
)

// clockStride spreads moment clocks across a period without repeating.
const clockStride = 37

// Moments returns n moments with IDs 1..n spread over regulation.
func Moments(n int) []model.Moment {
	out := make([]model.Moment, 0, n)
	for i := 0; i < n; i++ {
		period := 1 + i%gameclock.RegulationPeriods
		remaining := (i * clockStride) % int(gameclock.RegulationPeriodSeconds)
		clock := fmt.Sprintf("%d:%02d", remaining/60, remaining%60)
		out = append(out, model.Moment{
			ID:        model.IntID(int64(i + 1)),
			Period:    model.Ptr(period),
			GameClock: model.Ptr(clock),
		})
	}
	return out
}
