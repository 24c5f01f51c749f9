// internal/content/entitlements.go
package content

import "sync"

// StaticEntitlements is the in-process Entitlements implementation: a plain
// unlocked set. The purchase flow that would feed it is out of scope; the
// server unlocks the free packs at startup and premium packs stay locked.
type StaticEntitlements struct {
	mu       sync.RWMutex
	unlocked map[string]bool
}

// NewStaticEntitlements returns entitlements with the given packs unlocked.
func NewStaticEntitlements(packIDs ...string) *StaticEntitlements {
	e := &StaticEntitlements{unlocked: make(map[string]bool, len(packIDs))}
	for _, id := range packIDs {
		e.unlocked[id] = true
	}
	return e
}

// Unlock marks a pack as playable.
func (e *StaticEntitlements) Unlock(packID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unlocked[packID] = true
}

// IsUnlocked implements Entitlements.
func (e *StaticEntitlements) IsUnlocked(packID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.unlocked[packID]
}
