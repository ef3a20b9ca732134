package model

import "strings"

const fallbackMomentTitle = "Moment update"

// Moment is a highlighted instant in a game that a timeline is built around.
type Moment struct {
	ID               ID      `json:"id"`
	Period           *int    `json:"period,omitempty"`
	GameClock        *string `json:"game_clock,omitempty"`
	Title            *string `json:"title,omitempty"`
	Description      *string `json:"description,omitempty"`
	TeamAbbreviation *string `json:"team_abbreviation,omitempty"`
	PlayerName       *string `json:"player_name,omitempty"`
}

// DisplayTitle returns the title, then the description, then a generic label.
func (m Moment) DisplayTitle() string {
	if m.Title != nil {
		return *m.Title
	}
	if m.Description != nil {
		return *m.Description
	}
	return fallbackMomentTitle
}

// TimeLabel renders "Q{period} • {clock}" from whichever parts are present.
// It is empty when the moment has neither.
func (m Moment) TimeLabel() string {
	parts := make([]string, 0, 2)
	if m.Period != nil {
		parts = append(parts, "Q"+itoa(*m.Period))
	}
	if m.GameClock != nil {
		parts = append(parts, *m.GameClock)
	}
	return strings.Join(parts, " • ")
}
