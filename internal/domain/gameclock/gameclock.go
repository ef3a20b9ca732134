// Package gameclock converts period and countdown clock readings into a
// single elapsed-game-seconds scale and resolves temporal keys for events
// and moments.
package gameclock

import (
	"math"
	"strconv"
	"strings"

	"github.com/dock108/scrolldown/internal/domain/model"
)

// Period lengths in seconds.
const (
	RegulationPeriods       = 4
	RegulationPeriodSeconds = 720.0
	OvertimePeriodSeconds   = 300.0
)

// PeriodLength returns the length of a period; periods after regulation are overtime.
func PeriodLength(period int) float64 {
	if period <= RegulationPeriods {
		return RegulationPeriodSeconds
	}
	return OvertimePeriodSeconds
}

// PeriodStart returns the elapsed seconds at which period begins.
func PeriodStart(period int) float64 {
	if period <= RegulationPeriods {
		return float64(period-1) * RegulationPeriodSeconds
	}
	return RegulationPeriods*RegulationPeriodSeconds + float64(period-RegulationPeriods-1)*OvertimePeriodSeconds
}

// ElapsedSeconds converts a period and a "MM:SS" countdown clock into elapsed
// game seconds. The second result is false when the key is unknown: period is
// not positive, the clock does not split into exactly two non-empty parts, or
// either part is not a finite number. Empty parts are ignored, so "1::30"
// reads as "1:30". A clock above the period length clamps to the
// period start.
func ElapsedSeconds(period int, clock string) (float64, bool) {
	if period <= 0 {
		return 0, false
	}
	parts := strings.FieldsFunc(clock, func(r rune) bool { return r == ':' })
	if len(parts) != 2 {
		return 0, false
	}
	minutes, ok := parseFinite(parts[0])
	if !ok {
		return 0, false
	}
	seconds, ok := parseFinite(parts[1])
	if !ok {
		return 0, false
	}
	remaining := minutes*60 + seconds
	return PeriodStart(period) + math.Max(0, PeriodLength(period)-remaining), true
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// EventKey resolves an event's temporal key. A finite explicit elapsed value
// wins over the period and clock; a NaN or infinite one counts as absent.
func EventKey(e model.Event) (float64, bool) {
	if e.ElapsedSeconds != nil {
		if v := *e.ElapsedSeconds; !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v, true
		}
	}
	return fromParts(e.Period, e.GameClock)
}

// MomentKey resolves a moment's temporal key from its period and clock.
func MomentKey(m model.Moment) (float64, bool) {
	return fromParts(m.Period, m.GameClock)
}

func fromParts(period *int, clock *string) (float64, bool) {
	if period == nil || clock == nil {
		return 0, false
	}
	return ElapsedSeconds(*period, *clock)
}
