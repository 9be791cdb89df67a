package guard

import (
	"testing"
	"time"

	"github.com/smancode/sweep/internal/store"
)

func newTestGuard(t *testing.T, limits Limits) (*Guard, *store.Store) {
	t.Helper()
	s, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New() error: %v", err)
	}
	if err := s.Init(store.ProjectConfig{ProjectID: "proj", Name: "proj", Strategy: store.StrategyStructured}); err != nil {
		t.Fatalf("store.Init() error: %v", err)
	}
	g, err := New(s, "proj", limits)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return g, s
}

func defaultLimits() Limits {
	return Limits{
		BackoffBase:     time.Minute,
		BackoffCap:      10,
		DailyQuotaLimit: 50,
		DuplicateLimit:  3,
	}
}

func TestBackoffDurationMonotonicAndCapped(t *testing.T) {
	g, _ := newTestGuard(t, defaultLimits())

	if d := g.BackoffDuration(0); d != 0 {
		t.Errorf("BackoffDuration(0) = %v, want 0", d)
	}

	prev := time.Duration(0)
	for n := 1; n <= 20; n++ {
		d := g.BackoffDuration(n)
		if d <= 0 {
			t.Fatalf("BackoffDuration(%d) = %v, want positive", n, d)
		}
		if d < prev {
			t.Fatalf("BackoffDuration(%d) = %v < BackoffDuration(%d) = %v", n, d, n-1, prev)
		}
		prev = d
	}

	ceiling := g.BackoffDuration(10)
	if got := g.BackoffDuration(11); got != ceiling {
		t.Errorf("BackoffDuration(11) = %v, want capped at %v", got, ceiling)
	}
	if got := g.BackoffDuration(100); got != ceiling {
		t.Errorf("BackoffDuration(100) = %v, want capped at %v", got, ceiling)
	}
}

func TestFailureOpensBackoffWindow(t *testing.T) {
	g, _ := newTestGuard(t, defaultLimits())
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	now := base
	g.now = func() time.Time { return now }

	if dec := g.ShouldSkip(); dec.Skip {
		t.Fatalf("ShouldSkip() = %+v before any failure", dec)
	}

	g.RecordFailure()
	dec := g.ShouldSkip()
	if !dec.Skip || dec.Reason != ReasonBackoff {
		t.Fatalf("ShouldSkip() = %+v after failure, want backoff skip", dec)
	}
	if dec.RemainingBackoff <= 0 || dec.RemainingBackoff > time.Minute {
		t.Errorf("RemainingBackoff = %v, want within (0, 1m]", dec.RemainingBackoff)
	}

	// The window closes once time passes it.
	now = base.Add(2 * time.Minute)
	if dec := g.ShouldSkip(); dec.Skip {
		t.Errorf("ShouldSkip() = %+v after window elapsed", dec)
	}
}

func TestBackoffGrowsWithStreak(t *testing.T) {
	g, _ := newTestGuard(t, defaultLimits())
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }

	g.RecordFailure()
	first := g.State().BackoffUntil
	g.RecordFailure()
	second := g.State().BackoffUntil

	if !second.After(first) {
		t.Errorf("backoff after 2 failures (%v) not later than after 1 (%v)", second, first)
	}
	if got := g.State().ConsecutiveErrors; got != 2 {
		t.Errorf("ConsecutiveErrors = %d, want 2", got)
	}
}

func TestSuccessResetsStreakAndCountsQuota(t *testing.T) {
	g, _ := newTestGuard(t, defaultLimits())
	g.RecordFailure()
	g.RecordFailure()
	g.RecordSuccess()

	st := g.State()
	if st.ConsecutiveErrors != 0 {
		t.Errorf("ConsecutiveErrors = %d after success, want 0", st.ConsecutiveErrors)
	}
	if !st.BackoffUntil.IsZero() {
		t.Errorf("BackoffUntil = %v after success, want zero", st.BackoffUntil)
	}
	if st.DailyQuotaUsed != 1 {
		t.Errorf("DailyQuotaUsed = %d, want 1", st.DailyQuotaUsed)
	}
}

func TestQuotaEnforcedAndRollsOverAtUTCDay(t *testing.T) {
	limits := defaultLimits()
	limits.DailyQuotaLimit = 2
	g, _ := newTestGuard(t, limits)

	day1 := time.Date(2026, 8, 25, 23, 0, 0, 0, time.UTC)
	now := day1
	g.now = func() time.Time { return now }

	g.RecordSuccess()
	g.RecordSuccess()

	dec := g.ShouldSkip()
	if !dec.Skip || dec.Reason != ReasonQuota {
		t.Fatalf("ShouldSkip() = %+v at quota, want quota skip", dec)
	}

	// Next UTC day: counter resets.
	now = day1.Add(2 * time.Hour)
	if dec := g.ShouldSkip(); dec.Skip {
		t.Fatalf("ShouldSkip() = %+v after day rollover", dec)
	}
	if got := g.State().DailyQuotaUsed; got != 0 {
		t.Errorf("DailyQuotaUsed = %d after rollover, want 0", got)
	}
}

func TestCheckDuplicateStreak(t *testing.T) {
	g, _ := newTestGuard(t, defaultLimits()) // limit 3

	if g.CheckDuplicate("h1") {
		t.Fatal("first sighting of h1 tripped the limit")
	}
	if g.CheckDuplicate("h1") {
		t.Fatal("second sighting tripped the limit early")
	}
	// The sighting itself counts: the third consecutive selection of the
	// same hash is the third occurrence, which meets the limit of 3.
	if !g.CheckDuplicate("h1") {
		t.Fatal("third consecutive sighting should trip the limit")
	}
	if got := g.State().ConsecutiveDuplicates; got != 3 {
		t.Errorf("ConsecutiveDuplicates = %d, want 3", got)
	}
}

func TestCheckDuplicateResetsOnNewHash(t *testing.T) {
	g, _ := newTestGuard(t, defaultLimits())

	g.CheckDuplicate("h1")
	g.CheckDuplicate("h1")
	g.CheckDuplicate("h2") // streak broken

	st := g.State()
	if st.LastGoalHash != "h2" {
		t.Errorf("LastGoalHash = %q, want h2", st.LastGoalHash)
	}
	if st.ConsecutiveDuplicates != 1 {
		t.Errorf("ConsecutiveDuplicates = %d after new hash, want 1", st.ConsecutiveDuplicates)
	}
}

func TestGuardStateSurvivesReopen(t *testing.T) {
	g, s := newTestGuard(t, defaultLimits())
	g.RecordFailure()
	g.RecordSuccess()
	g.RecordSuccess()

	reopened, err := New(s, "proj", defaultLimits())
	if err != nil {
		t.Fatalf("New() on reopen error: %v", err)
	}
	st := reopened.State()
	if st.DailyQuotaUsed != 2 {
		t.Errorf("DailyQuotaUsed = %d after reopen, want 2", st.DailyQuotaUsed)
	}
	if st.ConsecutiveErrors != 0 {
		t.Errorf("ConsecutiveErrors = %d after reopen, want 0", st.ConsecutiveErrors)
	}
}
