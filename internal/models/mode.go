package models

import "fmt"

// GameMode selects the roster rules for a session.
type GameMode string

const (
	// ModeSolo is playable alone; dares are self-directed.
	ModeSolo GameMode = "solo"
	// ModeParty requires at least two players to interact.
	ModeParty GameMode = "party"
)

// MinPlayers returns the smallest legal roster for the mode.
func (m GameMode) MinPlayers() int {
	if m == ModeSolo {
		return 1
	}
	return 2
}

// ParseGameMode validates a wire-level mode string.
func ParseGameMode(s string) (GameMode, error) {
	switch GameMode(s) {
	case ModeSolo, ModeParty:
		return GameMode(s), nil
	}
	return "", fmt.Errorf("unknown game mode %q", s)
}
