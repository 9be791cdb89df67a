// Package guard implements the doom-loop guard: per-project failure streaks,
// backoff windows, daily quotas, and duplicate-goal detection. It is a pure
// decision layer — its only side effect is persisting its own counters.
package guard

import (
	"sync"
	"time"

	"github.com/smancode/sweep/internal/debug"
	"github.com/smancode/sweep/internal/store"
)

// Limits are the guard's configured ceilings.
type Limits struct {
	BackoffBase     time.Duration
	BackoffCap      int
	DailyQuotaLimit int
	DuplicateLimit  int
}

// Reason explains a skip decision.
type Reason string

const (
	ReasonNone    Reason = ""
	ReasonBackoff Reason = "backoff"
	ReasonQuota   Reason = "quota"
)

// Decision is the outcome of ShouldSkip.
type Decision struct {
	Skip             bool
	Reason           Reason
	RemainingBackoff time.Duration
}

// Guard tracks failure and duplicate streaks for one project. Counters are
// persisted in the project store and survive restarts; the loop never
// deletes them.
type Guard struct {
	store     *store.Store
	projectID string
	limits    Limits
	now       func() time.Time

	mu    sync.Mutex
	state *store.GuardState
}

// New loads (or initializes) the guard state for a project.
func New(st *store.Store, projectID string, limits Limits) (*Guard, error) {
	gs, err := st.LoadGuardState(projectID)
	if err != nil {
		return nil, err
	}
	return &Guard{
		store:     st,
		projectID: projectID,
		limits:    limits,
		now:       time.Now,
		state:     gs,
	}, nil
}

// ShouldSkip decides whether new work may start. Backoff wins over quota so
// the caller sleeps out the window instead of stopping for the day; either
// way Skip is true until both clear.
func (g *Guard) ShouldSkip() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().UTC()
	g.rollQuotaDayLocked(now)

	if now.Before(g.state.BackoffUntil) {
		return Decision{
			Skip:             true,
			Reason:           ReasonBackoff,
			RemainingBackoff: g.state.BackoffUntil.Sub(now),
		}
	}
	if g.state.DailyQuotaUsed >= g.limits.DailyQuotaLimit {
		return Decision{Skip: true, Reason: ReasonQuota}
	}
	return Decision{}
}

// RecordFailure increments the error streak and extends the backoff window.
// The window is non-decreasing in the streak length, capped, and never zero
// after a failure.
func (g *Guard) RecordFailure() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state.ConsecutiveErrors++
	backoff := g.BackoffDuration(g.state.ConsecutiveErrors)
	g.state.BackoffUntil = g.now().UTC().Add(backoff)
	debug.LogKV("guard", "failure recorded",
		"project", g.projectID,
		"consecutive_errors", g.state.ConsecutiveErrors,
		"backoff", backoff,
	)
	g.persistLocked()
}

// RecordSuccess resets the error streak, clears the backoff window, and
// counts one completed iteration against the daily quota.
func (g *Guard) RecordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().UTC()
	g.rollQuotaDayLocked(now)
	g.state.ConsecutiveErrors = 0
	g.state.BackoffUntil = time.Time{}
	g.state.DailyQuotaUsed++
	debug.LogKV("guard", "success recorded",
		"project", g.projectID,
		"quota_used", g.state.DailyQuotaUsed,
		"quota_limit", g.limits.DailyQuotaLimit,
	)
	g.persistLocked()
}

// CheckDuplicate feeds a candidate hash into the rolling dedup detector.
// Returns true when the consecutive-duplicate limit is reached and the loop
// must stop rather than keep retrying a generator that produces no novelty.
// The current sighting counts, so a limit of n trips on the nth consecutive
// selection of the same hash.
func (g *Guard) CheckDuplicate(candidateHash string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if candidateHash == g.state.LastGoalHash {
		g.state.ConsecutiveDuplicates++
	} else {
		g.state.LastGoalHash = candidateHash
		g.state.ConsecutiveDuplicates = 1
	}
	g.persistLocked()

	if g.state.ConsecutiveDuplicates >= g.limits.DuplicateLimit {
		debug.LogKV("guard", "duplicate limit reached",
			"project", g.projectID,
			"hash", candidateHash,
			"count", g.state.ConsecutiveDuplicates,
		)
		return true
	}
	return false
}

// BackoffDuration returns the backoff window after n consecutive errors.
func (g *Guard) BackoffDuration(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	if n > g.limits.BackoffCap {
		n = g.limits.BackoffCap
	}
	return g.limits.BackoffBase * time.Duration(n)
}

// State returns a copy of the current counters for status display.
func (g *Guard) State() store.GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return *g.state
}

// rollQuotaDayLocked resets the daily counter on UTC day rollover.
func (g *Guard) rollQuotaDayLocked(now time.Time) {
	day := now.Format("2006-01-02")
	if g.state.QuotaDay != day {
		g.state.QuotaDay = day
		g.state.DailyQuotaUsed = 0
		g.persistLocked()
	}
}

// persistLocked is best-effort: a guard write failure must not take the
// loop down, it only risks re-counting after a crash.
func (g *Guard) persistLocked() {
	if err := g.store.SaveGuardState(g.state); err != nil {
		debug.LogKV("guard", "guard state save failed", "project", g.projectID, "error", err)
	}
}
