// internal/content/catalog.go
package content

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Catalog is the in-memory Provider the server and tests run against. It
// holds the built-in packs plus any custom packs registered at runtime.
// Draws shuffle a copy of the pack with the catalog's rand source, so tests
// can seed it for deterministic sequences.
type Catalog struct {
	mu    sync.Mutex
	packs map[string][]string
	rng   *rand.Rand
}

// NewCatalog builds a catalog pre-loaded with the built-in packs. Pass a nil
// rng to use a time-seeded source.
func NewCatalog(rng *rand.Rand) *Catalog {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	c := &Catalog{
		packs: make(map[string][]string),
		rng:   rng,
	}
	for id, items := range builtinPacks {
		c.packs[id] = append([]string(nil), items...)
	}
	return c
}

// RegisterPack adds or extends a pack with custom items. Duplicate texts
// within a pack are dropped so a re-registered custom pack stays stable.
func (c *Catalog) RegisterPack(packID string, items []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{}, len(c.packs[packID])+len(items))
	merged := c.packs[packID]
	for _, it := range merged {
		seen[it] = struct{}{}
	}
	for _, it := range items {
		if it == "" {
			continue
		}
		if _, dup := seen[it]; dup {
			continue
		}
		seen[it] = struct{}{}
		merged = append(merged, it)
	}
	c.packs[packID] = merged
}

// PackIDs lists the packs currently carried, for listing endpoints.
func (c *Catalog) PackIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.packs))
	for id := range c.packs {
		ids = append(ids, id)
	}
	return ids
}

// Draw implements Provider. It returns a shuffled selection of up to count
// items from the pack, skipping anything in exclude. Fewer than count items
// are returned when the pack cannot satisfy the request.
func (c *Catalog) Draw(ctx context.Context, packID string, count int, exclude map[string]struct{}) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	items, ok := c.packs[packID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPack, packID)
	}

	candidates := make([]string, 0, len(items))
	for _, it := range items {
		if _, skip := exclude[it]; skip {
			continue
		}
		candidates = append(candidates, it)
	}

	c.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	if len(candidates) > count {
		candidates = candidates[:count]
	}
	return candidates, nil
}
