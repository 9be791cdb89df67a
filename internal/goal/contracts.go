package goal

import (
	"context"
	"errors"
)

// ErrSweepComplete signals that every currently eligible goal has been
// processed this round. The loop resets the round and idles — the normal
// "caught up" resting state, not an error.
var ErrSweepComplete = errors.New("goal: no candidates remain in this sweep")

// ErrExhausted signals that no goals will ever be produced again for this
// project; the loop stops with an all-goals-complete reason.
var ErrExhausted = errors.New("goal: all goals permanently complete")

// Oracle reports per-topic completeness and file-change impact. It is an
// external collaborator (backed by change detection and prior reports).
type Oracle interface {
	// IsStaleOrIncomplete reports whether a topic needs (re)work: no prior
	// result, completeness below threshold, outstanding follow-ups, or a
	// file-change impact above "low".
	IsStaleOrIncomplete(projectID, topicID string) (bool, error)

	// CompletenessOf returns the last known completeness score in [0,1].
	CompletenessOf(topicID string) (float64, error)
}

// Candidate is one generated question with a priority score.
type Candidate struct {
	Text     string
	Priority float64
}

// Generator produces candidate questions for the exploratory strategy.
type Generator interface {
	Generate(ctx context.Context, projectID string, avoid []string) ([]Candidate, error)
}

// Provider proposes the next unit of work. Implementations must be
// idempotent for a fixed processed snapshot: calling Next twice without an
// intervening MarkSelected or Reset returns the same candidate.
type Provider interface {
	// Next proposes the next goal, excluding IDs already processed in the
	// current round. Returns ErrSweepComplete or ErrExhausted when nothing
	// is selectable.
	Next(ctx context.Context, processed map[string]bool) (*Goal, error)

	// MarkSelected commits a selection returned by Next, advancing any
	// internal dedup or cache state.
	MarkSelected(g *Goal)

	// Reset clears per-sweep state when the processed round resets.
	Reset()

	// RequiresStalenessCheck reports whether the engine must consult the
	// oracle before executing a selected goal.
	RequiresStalenessCheck() bool
}
