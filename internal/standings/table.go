// internal/standings/table.go
package standings

import (
	"encoding/json"
	"fmt"
	"os"
)

// Tier covers the inclusive score range [Min, Max] with a list of candidate
// commentary lines. Tiers for a pack should be exhaustive and non-overlapping
// over the expected score range, but the calculator does not assume it.
type Tier struct {
	Min      int      `json:"min"`
	Max      int      `json:"max"`
	Comments []string `json:"comments"`
}

// Table maps pack identifiers to their commentary tiers. Packs without an
// entry fall back to the default tiers.
type Table struct {
	Packs   map[string][]Tier `json:"packs"`
	Default []Tier            `json:"default"`
}

// TiersFor returns the tiers for a pack, or the default tiers when the pack
// has no entry of its own.
func (t Table) TiersFor(packID string) []Tier {
	if tiers, ok := t.Packs[packID]; ok {
		return tiers
	}
	return t.Default
}

// LoadTable reads a commentary table from a JSON file, for operators shipping
// their own lines.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("reading commentary table: %w", err)
	}
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("parsing commentary table %s: %w", path, err)
	}
	return t, nil
}

// DefaultTable returns the built-in commentary tiers. Quotas top out at 10,
// so the highest tier is open-ended up to that bound.
func DefaultTable() Table {
	return Table{
		Default: []Tier{
			{Min: 0, Max: 0, Comments: []string{
				"Showed up, and that's something.",
				"A spectator in their own game.",
				"Next time, try saying yes to one of them.",
			}},
			{Min: 1, Max: 3, Comments: []string{
				"Warmed up just as it ended.",
				"Picked their battles very carefully.",
				"A cautious performance.",
				"Selective, but sincere.",
			}},
			{Min: 4, Max: 6, Comments: []string{
				"Solidly mid-table, solidly entertaining.",
				"Brought the energy when it counted.",
				"A respectable showing.",
				"Kept the party moving.",
			}},
			{Min: 7, Max: 10, Comments: []string{
				"Absolutely fearless.",
				"No dare left behind.",
				"The undisputed star of the evening.",
				"Someone check on their dignity, it did not survive.",
			}},
		},
	}
}
