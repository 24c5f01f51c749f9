// internal/content/provider.go
package content

import (
	"context"
	"errors"
)

// ErrUnknownPack is returned when a draw references a pack the provider does
// not carry.
var ErrUnknownPack = errors.New("unknown content pack")

// Provider supplies dare texts for a pack. Draw returns at most count items,
// never more; a short draw is legal when the pack is smaller than requested,
// and callers must tolerate it. Items in exclude are skipped when the
// provider can honor exclusions. Draw may reach out to storage, hence the
// context.
type Provider interface {
	Draw(ctx context.Context, packID string, count int, exclude map[string]struct{}) ([]string, error)
}

// Entitlements answers whether a pack may be played. Premium packs report
// false until unlocked by the purchase flow, which lives outside this module.
type Entitlements interface {
	IsUnlocked(packID string) bool
}
