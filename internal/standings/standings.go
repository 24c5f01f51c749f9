// internal/standings/standings.go
package standings

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"
)

// ErrPrecondition is returned when the calculator is invoked with missing or
// misaligned inputs. It fails fast rather than guessing.
var ErrPrecondition = errors.New("standings input incomplete")

// FallbackComment is assigned when no tier covers a player's score.
const FallbackComment = "The jury is still out on this one."

// Standing is one row of the final result: rank is the row's position in the
// returned slice.
type Standing struct {
	Rank      int    `json:"rank"`
	Player    string `json:"player"`
	Completed int    `json:"completed"`
	Comment   string `json:"comment"`
}

// Compute ranks players by completed count (descending, ties keep roster
// order) and assigns each a commentary line from the tier covering their
// score. A comment already handed to a higher-ranked player is excluded when
// picking; once a tier is exhausted the pick falls back to the full tier list
// rather than failing. Ranking is fully deterministic — randomness only
// affects which comment string is picked. Pass a nil rng for a time-seeded
// source.
func Compute(players []string, completed []int, table Table, packID string, rng *rand.Rand) ([]Standing, error) {
	if len(players) == 0 {
		return nil, fmt.Errorf("%w: empty roster", ErrPrecondition)
	}
	if len(players) != len(completed) {
		return nil, fmt.Errorf("%w: %d players but %d counts", ErrPrecondition, len(players), len(completed))
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	order := make([]int, len(players))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return completed[order[a]] > completed[order[b]]
	})

	tiers := table.TiersFor(packID)
	used := make(map[string]struct{}, len(players))
	out := make([]Standing, 0, len(players))
	for rank, idx := range order {
		comment := pickComment(tiers, completed[idx], used, rng)
		used[comment] = struct{}{}
		out = append(out, Standing{
			Rank:      rank + 1,
			Player:    players[idx],
			Completed: completed[idx],
			Comment:   comment,
		})
	}
	return out, nil
}

// pickComment selects a comment for the given score. Tiers are searched in
// order; the first tier with min <= score <= max wins.
func pickComment(tiers []Tier, score int, used map[string]struct{}, rng *rand.Rand) string {
	for _, tier := range tiers {
		if score < tier.Min || score > tier.Max {
			continue
		}
		if len(tier.Comments) == 0 {
			break
		}
		fresh := make([]string, 0, len(tier.Comments))
		for _, c := range tier.Comments {
			if _, taken := used[c]; !taken {
				fresh = append(fresh, c)
			}
		}
		if len(fresh) == 0 {
			// Every comment in the tier is taken; reuse is better than
			// leaving a player without one.
			fresh = tier.Comments
		}
		return fresh[rng.Intn(len(fresh))]
	}
	return FallbackComment
}
