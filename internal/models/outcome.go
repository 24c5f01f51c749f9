package models

import "fmt"

// Outcome is a player's report for a single turn. Exactly one outcome is
// reported per turn and it is terminal for that turn.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeDeferred  Outcome = "deferred"
)

// ParseOutcome validates a wire-level outcome string.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomeCompleted, OutcomeFailed, OutcomeDeferred:
		return Outcome(s), nil
	}
	return "", fmt.Errorf("unknown outcome %q", s)
}
