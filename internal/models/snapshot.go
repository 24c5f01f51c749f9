package models

// Snapshot is the render-ready view of a session emitted after every outcome
// report and roster edit. It is sufficient for a UI to draw the current state
// without reaching into session internals.
type Snapshot struct {
	CurrentPlayer  string `json:"currentPlayer"`
	CurrentItem    string `json:"currentItem"`
	AskedCount     []int  `json:"askedCount"`
	CompletedCount []int  `json:"completedCount"`
	PendingCount   int    `json:"pendingCount"`
	GameOver       bool   `json:"gameOver"`
}
