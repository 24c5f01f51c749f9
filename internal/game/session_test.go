// internal/game/session_test.go
package game

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dareloop/dareloop/internal/content"
	"github.com/dareloop/dareloop/internal/models"
)

// mockBroadcaster collects events instead of sending them over WS. It must
// never call back into the session: fireEvent runs with the session lock held.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []SessionEvent
}

func (mb *mockBroadcaster) broadcastFn(ev SessionEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events = append(mb.events, ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events = nil
}

func (mb *mockBroadcaster) lastEvent() *SessionEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.events) == 0 {
		return nil
	}
	return &mb.events[len(mb.events)-1]
}

func (mb *mockBroadcaster) eventsOfType(t SessionEventType) []SessionEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []SessionEvent
	for _, ev := range mb.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// stubProvider hands out deterministic "dare-N" items. limit caps the total
// items it will ever produce (for short-draw tests); failNext makes the next
// Draw return an error.
type stubProvider struct {
	mu       sync.Mutex
	serial   int
	limit    int
	failNext bool
}

func (p *stubProvider) Draw(ctx context.Context, packID string, count int, exclude map[string]struct{}) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext {
		p.failNext = false
		return nil, fmt.Errorf("stub draw failure")
	}
	var items []string
	for len(items) < count {
		if p.limit > 0 && p.serial >= p.limit {
			break
		}
		p.serial++
		item := fmt.Sprintf("dare-%d", p.serial)
		if _, skip := exclude[item]; skip {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// setupSession builds and initializes an in-progress party session with the
// given roster and quota, wired to a mock broadcaster.
func setupSession(t *testing.T, names []string, quota int, provider *stubProvider) (*DareSession, *stubProvider, *mockBroadcaster) {
	t.Helper()
	if provider == nil {
		provider = &stubProvider{}
	}
	ents := content.NewStaticEntitlements("classic")

	g, err := NewDareSession("classic", models.ModeParty, quota, names, provider, ents)
	require.NoError(t, err)

	mb := &mockBroadcaster{}
	g.BroadcastFn = mb.broadcastFn

	require.NoError(t, g.Initialize(context.Background()))
	require.Equal(t, StateInProgress, g.State)

	mb.clear()
	return g, provider, mb
}

// TestTwoPlayerFullRound walks a two-player quota-two session through
// completed, failed, completed, deferred and checks the final tallies.
func TestTwoPlayerFullRound(t *testing.T) {
	g, _, mb := setupSession(t, []string{"Alice", "Bob"}, 2, nil)

	player, item, err := g.CurrentTurn()
	require.NoError(t, err)
	assert.Equal(t, "Alice", player.Name)
	assert.NotEmpty(t, item)

	require.NoError(t, g.ReportOutcome(models.OutcomeCompleted)) // Alice
	require.NoError(t, g.ReportOutcome(models.OutcomeFailed))    // Bob
	require.NoError(t, g.ReportOutcome(models.OutcomeCompleted)) // Alice
	require.NoError(t, g.ReportOutcome(models.OutcomeDeferred))  // Bob, ends the game

	snap := g.Snapshot()
	assert.True(t, snap.GameOver)
	assert.Equal(t, []int{2, 2}, snap.AskedCount)
	assert.Equal(t, []int{2, 0}, snap.CompletedCount)
	assert.Equal(t, 1, snap.PendingCount)

	pending := g.PendingEntries()
	require.Len(t, pending, 1)
	assert.Equal(t, "Bob", pending[0].PlayerName)

	last := mb.lastEvent()
	require.NotNil(t, last)
	assert.Equal(t, EventSessionGameOver, last.Type)
}

// TestTurnRotationWrapsRoster checks round-robin order over a full cycle.
func TestTurnRotationWrapsRoster(t *testing.T) {
	g, _, _ := setupSession(t, []string{"A", "B", "C"}, 3, nil)

	var order []string
	for i := 0; i < 6; i++ {
		player, _, err := g.CurrentTurn()
		require.NoError(t, err)
		order = append(order, player.Name)
		require.NoError(t, g.ReportOutcome(models.OutcomeFailed))
	}
	assert.Equal(t, []string{"A", "B", "C", "A", "B", "C"}, order)
}

// TestCurrentTurnIsIdempotent ensures repeated reads between reports return
// the same player and item.
func TestCurrentTurnIsIdempotent(t *testing.T) {
	g, _, _ := setupSession(t, []string{"A", "B"}, 3, nil)

	p1, item1, err := g.CurrentTurn()
	require.NoError(t, err)
	p2, item2, err := g.CurrentTurn()
	require.NoError(t, err)
	assert.Equal(t, p1.Name, p2.Name)
	assert.Equal(t, item1, item2)
}

// TestDeferredStillCountsAsAsked verifies a deferral consumes the player's
// turn and quota slot while withholding the completed credit.
func TestDeferredStillCountsAsAsked(t *testing.T) {
	g, _, mb := setupSession(t, []string{"A", "B"}, 2, nil)

	require.NoError(t, g.ReportOutcome(models.OutcomeDeferred))

	snap := g.Snapshot()
	assert.Equal(t, []int{1, 0}, snap.AskedCount)
	assert.Equal(t, []int{0, 0}, snap.CompletedCount)
	assert.Equal(t, 1, snap.PendingCount)

	pendingEvents := mb.eventsOfType(EventSessionPending)
	require.Len(t, pendingEvents, 1)
	assert.Equal(t, "A", pendingEvents[0].Player)
}

// TestCompletedNeverExceedsQuota exercises the counter clamp: outcomes beyond
// the quota do not push any counter past it.
func TestCompletedNeverExceedsQuota(t *testing.T) {
	g, _, _ := setupSession(t, []string{"A", "B"}, 1, nil)

	require.NoError(t, g.ReportOutcome(models.OutcomeCompleted)) // A finishes
	require.NoError(t, g.ReportOutcome(models.OutcomeCompleted)) // B finishes, game over

	snap := g.Snapshot()
	assert.True(t, snap.GameOver)
	for i := range snap.AskedCount {
		assert.LessOrEqual(t, snap.CompletedCount[i], snap.AskedCount[i])
		assert.LessOrEqual(t, snap.AskedCount[i], 1)
	}
}

// TestItemIndexWrapsWhenPoolExhausted uses a provider that can only supply
// three items for a four-turn session; the cursor must wrap to the start.
func TestItemIndexWrapsWhenPoolExhausted(t *testing.T) {
	g, _, _ := setupSession(t, []string{"A", "B"}, 2, &stubProvider{limit: 3})
	require.Len(t, g.Items, 3)

	var seen []string
	for i := 0; i < 4; i++ {
		_, item, err := g.CurrentTurn()
		require.NoError(t, err)
		seen = append(seen, item)
		require.NoError(t, g.ReportOutcome(models.OutcomeFailed))
	}
	// Fourth turn repeats the first item.
	assert.Equal(t, seen[0], seen[3])
	assert.Equal(t, []string{"dare-1", "dare-2", "dare-3", "dare-1"}, seen)
}

// TestEmptyPoolYieldsEmptyItem covers a provider that supplies nothing at all.
func TestEmptyPoolYieldsEmptyItem(t *testing.T) {
	// serial already at the limit, so every draw comes back empty.
	g, _, _ := setupSession(t, []string{"A", "B"}, 1, &stubProvider{limit: 1, serial: 1})

	_, item, err := g.CurrentTurn()
	require.NoError(t, err)
	assert.Equal(t, "", item)
	require.NoError(t, g.ReportOutcome(models.OutcomeFailed))
}

// TestJoinerStartsAtMinimumAsked adds a player mid-game and checks the
// fairness rule: the joiner's asked count matches the least-advanced player.
func TestJoinerStartsAtMinimumAsked(t *testing.T) {
	g, _, mb := setupSession(t, []string{"A", "B", "C"}, 2, nil)

	require.NoError(t, g.ReportOutcome(models.OutcomeCompleted)) // A asked once
	require.NoError(t, g.ReportOutcome(models.OutcomeFailed))    // B asked once

	idx, err := g.AddPlayer(context.Background(), "Dana")
	require.NoError(t, err)
	assert.Equal(t, 3, idx)

	snap := g.Snapshot()
	assert.Equal(t, []int{1, 1, 0, 0}, snap.AskedCount)
	assert.Equal(t, 0, snap.CompletedCount[idx])

	rosterEvents := mb.eventsOfType(EventSessionRoster)
	require.Len(t, rosterEvents, 1)
	assert.Equal(t, "Dana", rosterEvents[0].Player)
}

// TestJoinGrowsPoolWithoutDuplicates verifies the pool grows to quota times
// the new roster size and the new items do not repeat the existing ones.
func TestJoinGrowsPoolWithoutDuplicates(t *testing.T) {
	g, _, _ := setupSession(t, []string{"A", "B"}, 3, nil)
	require.Len(t, g.Items, 6)

	_, err := g.AddPlayer(context.Background(), "C")
	require.NoError(t, err)
	require.Len(t, g.Items, 9)

	unique := make(map[string]struct{}, len(g.Items))
	for _, it := range g.Items {
		_, dup := unique[it]
		assert.False(t, dup, "item %q drawn twice", it)
		unique[it] = struct{}{}
	}
}

// TestJoinFailedDrawLeavesSessionUntouched makes the provider fail during the
// pool growth and checks the roster and counters did not change.
func TestJoinFailedDrawLeavesSessionUntouched(t *testing.T) {
	g, provider, _ := setupSession(t, []string{"A", "B"}, 2, nil)
	before := g.Snapshot()

	provider.mu.Lock()
	provider.failNext = true
	provider.mu.Unlock()

	_, err := g.AddPlayer(context.Background(), "C")
	require.Error(t, err)

	after := g.Snapshot()
	assert.Equal(t, before, after)
	assert.Len(t, g.Players, 2)
	assert.Len(t, g.AskedCount, 2)
	assert.Len(t, g.CompletedCount, 2)
}

// TestRemoveCurrentPlayerPointerLandsOnSuccessor removes the player whose
// turn it is; the pointer must land on whoever slid into the slot.
func TestRemoveCurrentPlayerPointerLandsOnSuccessor(t *testing.T) {
	g, _, _ := setupSession(t, []string{"A", "B", "C"}, 2, nil)

	require.NoError(t, g.RemovePlayer(0)) // A is the current player

	player, _, err := g.CurrentTurn()
	require.NoError(t, err)
	assert.Equal(t, "B", player.Name)
	assert.Equal(t, 0, g.CurrentPlayerIndex)
}

// TestRemoveEarlierIndexShiftsPointerDown removes a player before the turn
// pointer and checks the same player keeps the turn.
func TestRemoveEarlierIndexShiftsPointerDown(t *testing.T) {
	g, _, _ := setupSession(t, []string{"A", "B", "C"}, 2, nil)

	require.NoError(t, g.ReportOutcome(models.OutcomeFailed)) // turn moves to B

	require.NoError(t, g.RemovePlayer(0))

	player, _, err := g.CurrentTurn()
	require.NoError(t, err)
	assert.Equal(t, "B", player.Name)
	assert.Equal(t, 0, g.CurrentPlayerIndex)
}

// TestRemoveLastPlayerWrapsPointer removes the final roster slot while it
// holds the turn; the pointer wraps to index 0.
func TestRemoveLastPlayerWrapsPointer(t *testing.T) {
	g, _, _ := setupSession(t, []string{"A", "B", "C"}, 2, nil)

	require.NoError(t, g.ReportOutcome(models.OutcomeFailed)) // to B
	require.NoError(t, g.ReportOutcome(models.OutcomeFailed)) // to C

	require.NoError(t, g.RemovePlayer(2))

	player, _, err := g.CurrentTurn()
	require.NoError(t, err)
	assert.Equal(t, "A", player.Name)
	assert.Equal(t, 0, g.CurrentPlayerIndex)
}

// TestRemoveShrinksPoolButNotBelowCursor plays deep into the pool and then
// shrinks the roster; the current item must survive the truncation.
func TestRemoveShrinksPoolButNotBelowCursor(t *testing.T) {
	g, _, _ := setupSession(t, []string{"A", "B", "C"}, 3, nil)
	require.Len(t, g.Items, 9)

	for i := 0; i < 7; i++ {
		require.NoError(t, g.ReportOutcome(models.OutcomeFailed))
	}
	require.Equal(t, 7, g.CurrentItemIndex)

	require.NoError(t, g.RemovePlayer(2))

	// Target would be 6 but the cursor sits at 7, so the pool keeps 8 items.
	assert.Len(t, g.Items, 8)
	_, item, err := g.CurrentTurn()
	require.NoError(t, err)
	assert.NotEmpty(t, item)
}

// TestRemoveLastUnderQuotaPlayerEndsGame shrinks the roster down to players
// who all met the quota; the removal itself must end the game rather than
// leave it running with nothing left to ask.
func TestRemoveLastUnderQuotaPlayerEndsGame(t *testing.T) {
	g, _, mb := setupSession(t, []string{"A", "B", "C"}, 1, nil)

	require.NoError(t, g.ReportOutcome(models.OutcomeCompleted)) // A meets quota
	require.NoError(t, g.ReportOutcome(models.OutcomeFailed))    // B meets quota

	calls := 0
	g.OnGameEnd = func(sessionID uuid.UUID, snap models.Snapshot) { calls++ }

	require.NoError(t, g.RemovePlayer(2)) // C never asked

	assert.Equal(t, StateGameOver, g.State)
	snap := g.Snapshot()
	assert.True(t, snap.GameOver)
	assert.Equal(t, []int{1, 1}, snap.AskedCount)
	assert.Equal(t, 1, calls)
	require.Len(t, mb.eventsOfType(EventSessionGameOver), 1)

	assert.ErrorIs(t, g.ReportOutcome(models.OutcomeFailed), ErrInvalidState)
}

// TestEachOutcomeAdvancesAskedSumByOne pins the progress guarantee: every
// recorded outcome raises the total asked count by exactly one until the
// game ends, regardless of the outcome kind.
func TestEachOutcomeAdvancesAskedSumByOne(t *testing.T) {
	g, _, _ := setupSession(t, []string{"A", "B", "C"}, 2, nil)

	askedSum := func() int {
		total := 0
		for _, a := range g.Snapshot().AskedCount {
			total += a
		}
		return total
	}

	outcomes := []models.Outcome{
		models.OutcomeCompleted, models.OutcomeDeferred, models.OutcomeFailed,
		models.OutcomeFailed, models.OutcomeCompleted, models.OutcomeDeferred,
	}
	for i, outcome := range outcomes {
		before := askedSum()
		require.NoError(t, g.ReportOutcome(outcome))
		assert.Equal(t, before+1, askedSum(), "turn %d made no progress", i+1)
	}
	assert.True(t, g.Snapshot().GameOver)
}

// TestRosterArraysStayAligned churns joins and leaves and asserts the three
// arrays never drift apart.
func TestRosterArraysStayAligned(t *testing.T) {
	g, _, _ := setupSession(t, []string{"A", "B"}, 2, nil)

	_, err := g.AddPlayer(context.Background(), "C")
	require.NoError(t, err)
	require.NoError(t, g.ReportOutcome(models.OutcomeCompleted))
	require.NoError(t, g.RemovePlayer(1))
	_, err = g.AddPlayer(context.Background(), "D")
	require.NoError(t, err)

	assert.Equal(t, len(g.Players), len(g.AskedCount))
	assert.Equal(t, len(g.Players), len(g.CompletedCount))
}

// TestAddPlayerAtCapacity fills the roster and checks the capacity error.
func TestAddPlayerAtCapacity(t *testing.T) {
	names := make([]string, MaxPlayers)
	for i := range names {
		names[i] = fmt.Sprintf("P%d", i)
	}
	g, _, _ := setupSession(t, names, 1, nil)

	_, err := g.AddPlayer(context.Background(), "Overflow")
	assert.ErrorIs(t, err, ErrCapacity)
}

// TestRemoveBelowModeMinimum checks party mode refuses to drop under two.
func TestRemoveBelowModeMinimum(t *testing.T) {
	g, _, _ := setupSession(t, []string{"A", "B"}, 2, nil)

	err := g.RemovePlayer(0)
	assert.ErrorIs(t, err, ErrMinimumRoster)
}

// TestSoloModeSinglePlayer verifies a one-player solo session can start and
// finish.
func TestSoloModeSinglePlayer(t *testing.T) {
	provider := &stubProvider{}
	g, err := NewDareSession("classic", models.ModeSolo, 2, []string{"Solo"}, provider, content.NewStaticEntitlements("classic"))
	require.NoError(t, err)
	require.NoError(t, g.Initialize(context.Background()))

	require.NoError(t, g.ReportOutcome(models.OutcomeCompleted))
	require.NoError(t, g.ReportOutcome(models.OutcomeCompleted))

	snap := g.Snapshot()
	assert.True(t, snap.GameOver)
	assert.Equal(t, []int{2}, snap.CompletedCount)
}

// TestOperationsRejectedOutsideInProgress covers the state gate before
// initialization and after game over.
func TestOperationsRejectedOutsideInProgress(t *testing.T) {
	provider := &stubProvider{}
	g, err := NewDareSession("classic", models.ModeParty, 1, []string{"A", "B"}, provider, content.NewStaticEntitlements("classic"))
	require.NoError(t, err)

	_, _, err = g.CurrentTurn()
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, g.ReportOutcome(models.OutcomeCompleted), ErrInvalidState)

	require.NoError(t, g.Initialize(context.Background()))
	require.NoError(t, g.ReportOutcome(models.OutcomeCompleted))
	require.NoError(t, g.ReportOutcome(models.OutcomeCompleted))
	require.Equal(t, StateGameOver, g.State)

	assert.ErrorIs(t, g.ReportOutcome(models.OutcomeCompleted), ErrInvalidState)
	_, err = g.AddPlayer(context.Background(), "C")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, g.RemovePlayer(0), ErrInvalidState)
	assert.ErrorIs(t, g.Initialize(context.Background()), ErrInvalidState)
}

// TestLockedPackRejectedAtInitialize starts a session against a pack the
// entitlements do not unlock.
func TestLockedPackRejectedAtInitialize(t *testing.T) {
	provider := &stubProvider{}
	g, err := NewDareSession("after-dark", models.ModeParty, 2, []string{"A", "B"}, provider, content.NewStaticEntitlements("classic"))
	require.NoError(t, err)

	err = g.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrEntitlement)
	assert.Equal(t, StateInitializing, g.State)
}

// TestQuotaBoundsValidated rejects quotas outside [1,10] at construction.
func TestQuotaBoundsValidated(t *testing.T) {
	provider := &stubProvider{}
	ents := content.NewStaticEntitlements("classic")

	_, err := NewDareSession("classic", models.ModeParty, 0, []string{"A", "B"}, provider, ents)
	assert.Error(t, err)
	_, err = NewDareSession("classic", models.ModeParty, 11, []string{"A", "B"}, provider, ents)
	assert.Error(t, err)
	_, err = NewDareSession("classic", models.ModeParty, 10, []string{"A", "B"}, provider, ents)
	assert.NoError(t, err)
}

// TestOnGameEndFiresOnce installs the end callback and finishes the game.
func TestOnGameEndFiresOnce(t *testing.T) {
	g, _, mb := setupSession(t, []string{"A", "B"}, 1, nil)

	calls := 0
	var final models.Snapshot
	g.OnGameEnd = func(sessionID uuid.UUID, snap models.Snapshot) {
		calls++
		final = snap
	}

	require.NoError(t, g.ReportOutcome(models.OutcomeCompleted))
	require.NoError(t, g.ReportOutcome(models.OutcomeFailed))

	assert.Equal(t, 1, calls)
	assert.True(t, final.GameOver)
	require.Len(t, mb.eventsOfType(EventSessionGameOver), 1)
}
