package store

import (
	"errors"
	"testing"
)

func TestCheckpointRoundTrip(t *testing.T) {
	s := newTestStore(t)

	state := &LoopState{
		ProjectID:            "proj",
		Enabled:              true,
		Phase:                PhaseExecuting,
		TotalIterations:      7,
		SuccessfulIterations: 3,
		ProcessedInRound:     []string{"arch"},
		CurrentGoal: &GoalState{
			ID:        "deps",
			Text:      "Dependency analysis",
			Hash:      "abc",
			FollowUps: []string{"cover transitive deps"},
			Iteration: 2,
		},
	}
	if err := s.SaveCheckpoint(state); err != nil {
		t.Fatalf("SaveCheckpoint() error: %v", err)
	}

	got, err := s.LoadCheckpoint()
	if err != nil {
		t.Fatalf("LoadCheckpoint() error: %v", err)
	}
	if got.Phase != PhaseExecuting {
		t.Errorf("Phase = %q, want %q", got.Phase, PhaseExecuting)
	}
	if got.TotalIterations != 7 || got.SuccessfulIterations != 3 {
		t.Errorf("counters = %d/%d, want 7/3", got.TotalIterations, got.SuccessfulIterations)
	}
	if got.CurrentGoal == nil || got.CurrentGoal.Iteration != 2 {
		t.Fatalf("CurrentGoal = %+v, want iteration 2", got.CurrentGoal)
	}
	if len(got.CurrentGoal.FollowUps) != 1 {
		t.Errorf("FollowUps = %v, want 1 entry", got.CurrentGoal.FollowUps)
	}
	if got.LastUpdated.IsZero() {
		t.Error("LastUpdated not stamped by SaveCheckpoint")
	}
}

func TestLoadCheckpointMissing(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.LoadCheckpoint(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadCheckpoint() error = %v, want ErrNotFound", err)
	}
}

func TestClearCheckpoint(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveCheckpoint(&LoopState{ProjectID: "proj", Phase: PhaseIdle}); err != nil {
		t.Fatalf("SaveCheckpoint() error: %v", err)
	}
	if err := s.ClearCheckpoint(); err != nil {
		t.Fatalf("ClearCheckpoint() error: %v", err)
	}
	if _, err := s.LoadCheckpoint(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadCheckpoint() after clear = %v, want ErrNotFound", err)
	}

	// Clearing again is not an error.
	if err := s.ClearCheckpoint(); err != nil {
		t.Fatalf("second ClearCheckpoint() error: %v", err)
	}
}

func TestGuardStateDefaultsWhenMissing(t *testing.T) {
	s := newTestStore(t)

	gs, err := s.LoadGuardState("proj")
	if err != nil {
		t.Fatalf("LoadGuardState() error: %v", err)
	}
	if gs.ProjectID != "proj" {
		t.Errorf("ProjectID = %q, want %q", gs.ProjectID, "proj")
	}
	if gs.ConsecutiveErrors != 0 || gs.DailyQuotaUsed != 0 {
		t.Errorf("fresh guard state not zeroed: %+v", gs)
	}
}

func TestGuardStateRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveGuardState(&GuardState{
		ProjectID:             "proj",
		ConsecutiveErrors:     4,
		QuotaDay:              "2026-08-25",
		DailyQuotaUsed:        12,
		LastGoalHash:          "h1",
		ConsecutiveDuplicates: 1,
	}); err != nil {
		t.Fatalf("SaveGuardState() error: %v", err)
	}

	gs, err := s.LoadGuardState("proj")
	if err != nil {
		t.Fatalf("LoadGuardState() error: %v", err)
	}
	if gs.ConsecutiveErrors != 4 || gs.DailyQuotaUsed != 12 || gs.ConsecutiveDuplicates != 1 {
		t.Errorf("guard counters not persisted: %+v", gs)
	}
}

func TestLoopStateCloneIsDeep(t *testing.T) {
	orig := &LoopState{
		ProcessedInRound: []string{"a"},
		CurrentGoal: &GoalState{
			ID:        "g",
			FollowUps: []string{"f1"},
			Result:    &GoalResult{Payload: "p", FollowUps: []string{"f2"}},
		},
	}
	cp := orig.Clone()

	cp.ProcessedInRound[0] = "mutated"
	cp.CurrentGoal.FollowUps[0] = "mutated"
	cp.CurrentGoal.Result.FollowUps[0] = "mutated"

	if orig.ProcessedInRound[0] != "a" {
		t.Error("Clone shares ProcessedInRound")
	}
	if orig.CurrentGoal.FollowUps[0] != "f1" {
		t.Error("Clone shares goal FollowUps")
	}
	if orig.CurrentGoal.Result.FollowUps[0] != "f2" {
		t.Error("Clone shares result FollowUps")
	}
}

func TestGuardImposed(t *testing.T) {
	tests := []struct {
		reason StopReason
		want   bool
	}{
		{StopQuotaExhausted, true},
		{StopConsecutiveDuplicate, true},
		{StopUserRequested, false},
		{StopAllGoalsComplete, false},
		{StopShutdown, false},
		{StopNotRunnable, false},
		{StopNone, false},
	}
	for _, tt := range tests {
		if got := tt.reason.GuardImposed(); got != tt.want {
			t.Errorf("GuardImposed(%q) = %v, want %v", tt.reason, got, tt.want)
		}
	}
}
