// internal/game/events.go
package game

import "github.com/dareloop/dareloop/internal/models"

// SessionEventType is an enum-like type for broadcasting session changes.
type SessionEventType string

const (
	EventSessionStarted  SessionEventType = "session_started"  // Initialization finished, first turn ready
	EventSessionTurn     SessionEventType = "session_turn"     // An outcome was recorded and the turn advanced
	EventSessionRoster   SessionEventType = "session_roster"   // A player joined or left mid-game
	EventSessionPending  SessionEventType = "session_pending"  // A dare was deferred to the pending queue
	EventSessionGameOver SessionEventType = "session_game_over" // Every player reached the quota
	EventSessionSync     SessionEventType = "session_sync"     // State sync for a freshly connected subscriber
)

// SessionEvent is what the engine hands to the presentation layer after every
// outcome report and roster edit. The engine has no notion of duration or
// animation; subscribers decide their own timing.
type SessionEvent struct {
	Type     SessionEventType       `json:"type"`
	Player   string                 `json:"player,omitempty"`
	Item     string                 `json:"item,omitempty"`
	Outcome  models.Outcome         `json:"outcome,omitempty"`
	Snapshot *models.Snapshot       `json:"snapshot,omitempty"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
}
