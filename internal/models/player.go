package models

// Player is one seat in a session roster. Display names are the only identity
// the game has; two players may share a name and are told apart purely by
// roster position. Per-player game data (asked/completed counts) lives in the
// session's index-aligned arrays, not here.
type Player struct {
	Name string `json:"name"`
}
