// internal/game/session.go
package game

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dareloop/dareloop/internal/content"
	"github.com/dareloop/dareloop/internal/journal"
	"github.com/dareloop/dareloop/internal/models"
)

// SessionState is the lifecycle state of a DareSession. There is no
// transition out of StateGameOver; a new session must be constructed to play
// again.
type SessionState string

const (
	StateInitializing SessionState = "initializing"
	StateInProgress   SessionState = "in_progress"
	StateGameOver     SessionState = "game_over"
)

// Roster and quota bounds. The minimum roster size depends on the game mode;
// see models.GameMode.MinPlayers.
const (
	MaxPlayers = 12
	MinQuota   = 1
	MaxQuota   = 10
)

// OnGameEndFunc handles a finished session, e.g. routing the caller to
// pending resolution or the standings screen.
type OnGameEndFunc func(sessionID uuid.UUID, final models.Snapshot)

// DareSession holds the entire state for one game session in memory: the
// roster with its index-aligned counters, the drawn item pool, the pending
// queue, and the turn cursor. Every mutating operation serializes on Mu so a
// roster edit can never interleave with a turn advance and leave the arrays
// misaligned.
type DareSession struct {
	ID     uuid.UUID
	PackID string
	Mode   models.GameMode
	Quota  int

	// Roster and its parallel counters. Invariant: the three slices are
	// always the same length and index-aligned.
	Players        []*models.Player
	AskedCount     []int
	CompletedCount []int

	// Turn logic
	CurrentPlayerIndex int
	CurrentItemIndex   int
	Items              []string
	TurnID             int // Increments each recorded outcome

	// Pending holds deferred dares in insertion order. Append-only; an
	// external resolution flow reads it back.
	Pending []models.PendingEntry

	State SessionState
	Mu    sync.Mutex

	// BroadcastFn is used to send events to the presentation layer. If nil,
	// no broadcast is done.
	BroadcastFn func(ev SessionEvent)

	// OnGameEnd is invoked once when every player reaches the quota.
	OnGameEnd OnGameEndFunc

	provider     content.Provider
	entitlements content.Entitlements

	actionIndex int // Increments for each journaled action
}

// NewDareSession builds a session in StateInitializing. The roster and quota
// are validated structurally; player names are passed through untouched
// (duplicates are legal, identity is roster position).
func NewDareSession(packID string, mode models.GameMode, quota int, names []string, provider content.Provider, entitlements content.Entitlements) (*DareSession, error) {
	if quota < MinQuota || quota > MaxQuota {
		return nil, fmt.Errorf("quota %d out of range [%d,%d]", quota, MinQuota, MaxQuota)
	}
	if len(names) < mode.MinPlayers() {
		return nil, fmt.Errorf("%w: mode %q needs at least %d players", ErrMinimumRoster, mode, mode.MinPlayers())
	}
	if len(names) > MaxPlayers {
		return nil, fmt.Errorf("%w: at most %d players", ErrCapacity, MaxPlayers)
	}
	if provider == nil {
		return nil, fmt.Errorf("content provider is required")
	}

	id, _ := uuid.NewRandom()
	g := &DareSession{
		ID:             id,
		PackID:         packID,
		Mode:           mode,
		Quota:          quota,
		Players:        make([]*models.Player, 0, len(names)),
		AskedCount:     make([]int, len(names)),
		CompletedCount: make([]int, len(names)),
		State:          StateInitializing,
		provider:       provider,
		entitlements:   entitlements,
	}
	for _, name := range names {
		g.Players = append(g.Players, &models.Player{Name: name})
	}
	return g, nil
}

// Initialize checks the pack entitlement, draws quota × roster items from the
// content provider, and transitions to StateInProgress. It runs to completion
// or fails explicitly; until it succeeds the session stays in
// StateInitializing and every read or write is rejected with ErrInvalidState.
// A short draw is tolerated: the item index simply wraps earlier.
func (g *DareSession) Initialize(ctx context.Context) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.State != StateInitializing {
		return fmt.Errorf("%w: initialize in state %q", ErrInvalidState, g.State)
	}
	if g.entitlements != nil && !g.entitlements.IsUnlocked(g.PackID) {
		return fmt.Errorf("%w: %q", ErrEntitlement, g.PackID)
	}

	want := g.Quota * len(g.Players)
	items, err := g.provider.Draw(ctx, g.PackID, want, nil)
	if err != nil {
		return fmt.Errorf("drawing %d items from pack %q: %w", want, g.PackID, err)
	}
	if len(items) < want {
		log.Printf("session %s: short draw from pack %q (%d of %d), items will repeat sooner", g.ID, g.PackID, len(items), want)
	}

	g.Items = items
	for i := range g.Players {
		g.AskedCount[i] = 0
		g.CompletedCount[i] = 0
	}
	g.CurrentPlayerIndex = 0
	g.CurrentItemIndex = 0
	g.State = StateInProgress

	g.logAction("", "session_initialize", map[string]interface{}{
		"pack":     g.PackID,
		"quota":    g.Quota,
		"players":  len(g.Players),
		"poolSize": len(g.Items),
	})
	g.fireEvent(SessionEvent{Type: EventSessionStarted, Snapshot: g.snapshotPtrLocked()})
	return nil
}

// CurrentTurn returns the player and item for the turn currently being
// presented. It is a pure read: calling it any number of times between
// outcome reports returns the same values. The item is the empty string when
// the pool is empty.
func (g *DareSession) CurrentTurn() (*models.Player, string, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.State != StateInProgress {
		return nil, "", fmt.Errorf("%w: current turn in state %q", ErrInvalidState, g.State)
	}
	return g.Players[g.CurrentPlayerIndex], g.currentItemLocked(), nil
}

// ReportOutcome records the sole effectful operation of a turn: it applies
// the outcome's counter change, logs a deferral if any, advances the player
// and item cursors, and detects game over. Exactly one outcome is in flight
// at a time; the whole report applies atomically under the session lock.
func (g *DareSession) ReportOutcome(outcome models.Outcome) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.State != StateInProgress {
		return fmt.Errorf("%w: report outcome in state %q", ErrInvalidState, g.State)
	}

	cur := g.CurrentPlayerIndex
	player := g.Players[cur]
	item := g.currentItemLocked()

	deferred := false
	switch outcome {
	case models.OutcomeCompleted:
		if g.CompletedCount[cur] < g.Quota {
			g.CompletedCount[cur]++
		}
	case models.OutcomeDeferred:
		// A deferral still counts toward the asked quota below; only the
		// completed count is withheld until the dare is resolved.
		g.Pending = append(g.Pending, models.PendingEntry{ItemText: item, PlayerName: player.Name})
		deferred = true
	case models.OutcomeFailed:
		// No counter change beyond the advancement below.
	default:
		return fmt.Errorf("unknown outcome %q", outcome)
	}

	if g.AskedCount[cur] < g.Quota {
		g.AskedCount[cur]++
	}
	g.TurnID++
	g.CurrentPlayerIndex = (cur + 1) % len(g.Players)
	// Advance the item cursor, wrapping to 0 once the drawn pool is
	// exhausted. Repeating an already-seen item is the documented fallback:
	// roster growth or high quotas can outpace the drawn pool.
	if g.CurrentItemIndex+1 < len(g.Items) {
		g.CurrentItemIndex++
	} else {
		g.CurrentItemIndex = 0
	}

	g.logAction(player.Name, "turn_outcome", map[string]interface{}{
		"turn":    g.TurnID,
		"item":    item,
		"outcome": string(outcome),
	})
	if deferred {
		g.fireEvent(SessionEvent{
			Type:     EventSessionPending,
			Player:   player.Name,
			Item:     item,
			Outcome:  outcome,
			Snapshot: g.snapshotPtrLocked(),
		})
	}

	if g.finishIfQuotaMetLocked() {
		return nil
	}

	g.fireEvent(SessionEvent{
		Type:     EventSessionTurn,
		Player:   player.Name,
		Item:     item,
		Outcome:  outcome,
		Snapshot: g.snapshotPtrLocked(),
	})
	return nil
}

// AddPlayer appends a player mid-game. The joiner starts at the current
// minimum asked count across the roster, not at zero, so a late join lands on
// the same round as the least-advanced player instead of behind everyone.
// The item pool grows to quota × new roster size, excluding already-drawn
// items where the provider can honor it. The draw happens before any state is
// touched so a provider failure leaves the session unchanged.
func (g *DareSession) AddPlayer(ctx context.Context, name string) (int, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.State != StateInProgress {
		return 0, fmt.Errorf("%w: add player in state %q", ErrInvalidState, g.State)
	}
	if len(g.Players) >= MaxPlayers {
		return 0, fmt.Errorf("%w: %d players", ErrCapacity, len(g.Players))
	}

	target := g.Quota * (len(g.Players) + 1)
	var drawn []string
	if target > len(g.Items) {
		exclude := make(map[string]struct{}, len(g.Items))
		for _, it := range g.Items {
			exclude[it] = struct{}{}
		}
		var err error
		drawn, err = g.provider.Draw(ctx, g.PackID, target-len(g.Items), exclude)
		if err != nil {
			return 0, fmt.Errorf("growing item pool for pack %q: %w", g.PackID, err)
		}
	}

	minAsked := g.AskedCount[0]
	for _, a := range g.AskedCount[1:] {
		if a < minAsked {
			minAsked = a
		}
	}

	g.Players = append(g.Players, &models.Player{Name: name})
	g.AskedCount = append(g.AskedCount, minAsked)
	g.CompletedCount = append(g.CompletedCount, 0)
	g.Items = append(g.Items, drawn...)
	g.clampCountersLocked()

	idx := len(g.Players) - 1
	log.Printf("session %s: player %q joined at index %d with asked count %d", g.ID, name, idx, minAsked)
	g.logAction(name, "roster_add", map[string]interface{}{"index": idx, "askedStart": minAsked, "poolSize": len(g.Items)})
	g.fireEvent(SessionEvent{Type: EventSessionRoster, Player: name, Snapshot: g.snapshotPtrLocked()})
	g.finishIfQuotaMetLocked()
	return idx, nil
}

// RemovePlayer removes the player at index and the aligned entries of all
// three arrays. The remaining players' counters are untouched. The turn
// pointer is adjusted so no remaining player's turn is skipped or replayed:
// removing an earlier index shifts the pointer down by one, and removing the
// current player leaves the pointer on whoever slid into the slot (wrapping
// to 0 when the removed player was last). The item pool shrinks to quota ×
// new roster size but never below the item currently being presented. If the
// removed player was the only one still below quota, the game ends.
func (g *DareSession) RemovePlayer(index int) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.State != StateInProgress {
		return fmt.Errorf("%w: remove player in state %q", ErrInvalidState, g.State)
	}
	if index < 0 || index >= len(g.Players) {
		return fmt.Errorf("player index %d out of range [0,%d)", index, len(g.Players))
	}
	if len(g.Players) <= g.Mode.MinPlayers() {
		return fmt.Errorf("%w: mode %q needs at least %d players", ErrMinimumRoster, g.Mode, g.Mode.MinPlayers())
	}

	removed := g.Players[index]
	g.Players = append(g.Players[:index], g.Players[index+1:]...)
	g.AskedCount = append(g.AskedCount[:index], g.AskedCount[index+1:]...)
	g.CompletedCount = append(g.CompletedCount[:index], g.CompletedCount[index+1:]...)

	if index < g.CurrentPlayerIndex {
		g.CurrentPlayerIndex--
	} else if g.CurrentPlayerIndex >= len(g.Players) {
		g.CurrentPlayerIndex = 0
	}
	g.clampCountersLocked()
	g.shrinkItemPoolLocked()

	log.Printf("session %s: player %q left from index %d, %d remain", g.ID, removed.Name, index, len(g.Players))
	g.logAction(removed.Name, "roster_remove", map[string]interface{}{"index": index, "remaining": len(g.Players)})
	g.fireEvent(SessionEvent{Type: EventSessionRoster, Player: removed.Name, Snapshot: g.snapshotPtrLocked()})
	// Removing the last under-quota player can satisfy every remaining index.
	g.finishIfQuotaMetLocked()
	return nil
}

// Snapshot returns the render-ready view of the session.
func (g *DareSession) Snapshot() models.Snapshot {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.snapshotLocked()
}

// PendingEntries returns a copy of the pending queue in insertion order.
func (g *DareSession) PendingEntries() []models.PendingEntry {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	out := make([]models.PendingEntry, len(g.Pending))
	copy(out, g.Pending)
	return out
}

// PlayerNames returns the roster names in order.
func (g *DareSession) PlayerNames() []string {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.playerNamesLocked()
}

// CompletedCounts returns a copy of the completed counters, index-aligned
// with PlayerNames. Together they feed the standings calculator.
func (g *DareSession) CompletedCounts() []int {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	out := make([]int, len(g.CompletedCount))
	copy(out, g.CompletedCount)
	return out
}

// currentItemLocked returns the item under the cursor, or "" when the pool is
// empty. Assumes lock is held.
func (g *DareSession) currentItemLocked() string {
	if len(g.Items) == 0 {
		return ""
	}
	return g.Items[g.CurrentItemIndex]
}

// allAskedLocked reports whether every roster index satisfies the quota.
// Assumes lock is held.
func (g *DareSession) allAskedLocked() bool {
	for _, a := range g.AskedCount {
		if a < g.Quota {
			return false
		}
	}
	return true
}

// finishIfQuotaMetLocked transitions to StateGameOver when every roster index
// satisfies the quota, firing the game-over event and the end callback
// exactly once. Outcome reports and roster edits both call this: a shrink
// that removes the last under-quota player ends the game the same way a
// final outcome does. Assumes lock is held.
func (g *DareSession) finishIfQuotaMetLocked() bool {
	if g.State != StateInProgress || !g.allAskedLocked() {
		return false
	}
	g.State = StateGameOver
	log.Printf("session %s: every player reached quota %d, game over after %d turns", g.ID, g.Quota, g.TurnID)
	g.logAction("", "session_game_over", map[string]interface{}{"turns": g.TurnID, "pending": len(g.Pending)})
	final := g.snapshotLocked()
	g.fireEvent(SessionEvent{Type: EventSessionGameOver, Snapshot: &final})
	if g.OnGameEnd != nil {
		g.OnGameEnd(g.ID, final)
	}
	return true
}

// clampCountersLocked forces every counter into [0, quota]. Counts must never
// exceed the quota even under re-entrant updates. Assumes lock is held.
func (g *DareSession) clampCountersLocked() {
	for i := range g.AskedCount {
		if g.AskedCount[i] < 0 {
			g.AskedCount[i] = 0
		} else if g.AskedCount[i] > g.Quota {
			g.AskedCount[i] = g.Quota
		}
		if g.CompletedCount[i] < 0 {
			g.CompletedCount[i] = 0
		} else if g.CompletedCount[i] > g.Quota {
			g.CompletedCount[i] = g.Quota
		}
	}
}

// shrinkItemPoolLocked truncates the pool to quota × roster size after a
// roster shrink, but never below the item currently being presented.
// Assumes lock is held.
func (g *DareSession) shrinkItemPoolLocked() {
	target := g.Quota * len(g.Players)
	if floor := g.CurrentItemIndex + 1; target < floor {
		target = floor
	}
	if len(g.Items) > target {
		g.Items = g.Items[:target]
	}
}

// playerNamesLocked returns the roster names. Assumes lock is held.
func (g *DareSession) playerNamesLocked() []string {
	names := make([]string, len(g.Players))
	for i, p := range g.Players {
		names[i] = p.Name
	}
	return names
}

// snapshotLocked builds the presentation snapshot. Assumes lock is held.
func (g *DareSession) snapshotLocked() models.Snapshot {
	snap := models.Snapshot{
		CurrentItem:    g.currentItemLocked(),
		AskedCount:     make([]int, len(g.AskedCount)),
		CompletedCount: make([]int, len(g.CompletedCount)),
		PendingCount:   len(g.Pending),
		GameOver:       g.State == StateGameOver,
	}
	if len(g.Players) > 0 && g.CurrentPlayerIndex < len(g.Players) {
		snap.CurrentPlayer = g.Players[g.CurrentPlayerIndex].Name
	}
	copy(snap.AskedCount, g.AskedCount)
	copy(snap.CompletedCount, g.CompletedCount)
	return snap
}

func (g *DareSession) snapshotPtrLocked() *models.Snapshot {
	snap := g.snapshotLocked()
	return &snap
}

// fireEvent hands an event to the presentation layer, if one is attached.
// Assumes lock is held.
func (g *DareSession) fireEvent(ev SessionEvent) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	}
}

// logAction publishes the action to the turn journal. The publish is
// asynchronous and nil-safe; the engine never blocks on or fails because of
// the journal. Assumes lock is held.
func (g *DareSession) logAction(playerName, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := journal.TurnRecord{
		SessionID:   g.ID,
		ActionIndex: g.actionIndex,
		PlayerName:  playerName,
		ActionType:  actionType,
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	}
	go func(rec journal.TurnRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if journal.Rdb == nil {
			// Redis is optional; sessions run fine without a journal.
			return
		}
		if err := journal.PublishTurnRecord(ctx, rec); err != nil {
			log.Printf("session %s: publishing journal record %d: %v", rec.SessionID, rec.ActionIndex, err)
		}
	}(record)
}
