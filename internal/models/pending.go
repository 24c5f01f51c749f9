package models

// PendingEntry is one deferred dare awaiting later resolution. Entries are
// append-only for the lifetime of a session; an external resolution flow reads
// them back. No deduplication: the same player may defer several dares and
// even the same dare twice.
type PendingEntry struct {
	ItemText   string `json:"itemText"`
	PlayerName string `json:"playerName"`
}
