// Package model contains domain models passed between layers.
package model

import "strconv"

// Event is one play-by-play record. Only Period, GameClock and ElapsedSeconds
// carry time; the rest is display payload passed through untouched.
type Event struct {
	ID             ID       `json:"id"`
	GameID         ID       `json:"game_id,omitzero"`
	Period         *int     `json:"period,omitempty"`
	GameClock      *string  `json:"game_clock,omitempty"`
	ElapsedSeconds *float64 `json:"elapsed_seconds,omitempty"`

	EventType   *string `json:"event_type,omitempty"`
	Description *string `json:"description,omitempty"`
	Team        *string `json:"team,omitempty"`
	TeamID      *string `json:"team_id,omitempty"`
	PlayerName  *string `json:"player_name,omitempty"`
	PlayerID    *string `json:"player_id,omitempty"`
	HomeScore   *int    `json:"home_score,omitempty"`
	AwayScore   *int    `json:"away_score,omitempty"`
}

// Ptr returns a pointer to v, for filling optional fields.
func Ptr[T any](v T) *T { return &v }

func itoa(n int) string { return strconv.Itoa(n) }
