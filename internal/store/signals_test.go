package store

import "testing"

func TestStopSignalLifecycle(t *testing.T) {
	s := newTestStore(t)

	if s.StopRequested() {
		t.Fatal("StopRequested() = true before any signal")
	}
	if _, ok := s.ConsumeStopSignal(); ok {
		t.Fatal("ConsumeStopSignal() = true before any signal")
	}

	if err := s.SignalStop("user requested"); err != nil {
		t.Fatalf("SignalStop() error: %v", err)
	}
	if !s.StopRequested() {
		t.Fatal("StopRequested() = false after SignalStop")
	}

	reason, ok := s.ConsumeStopSignal()
	if !ok {
		t.Fatal("ConsumeStopSignal() = false after SignalStop")
	}
	if reason != "user requested" {
		t.Errorf("reason = %q, want %q", reason, "user requested")
	}

	// Consuming removes the signal.
	if s.StopRequested() {
		t.Error("StopRequested() = true after consume")
	}
	if _, ok := s.ConsumeStopSignal(); ok {
		t.Error("second ConsumeStopSignal() = true")
	}
}

func TestStopSignalEmptyReason(t *testing.T) {
	s := newTestStore(t)

	if err := s.SignalStop(""); err != nil {
		t.Fatalf("SignalStop() error: %v", err)
	}
	reason, ok := s.ConsumeStopSignal()
	if !ok {
		t.Fatal("ConsumeStopSignal() = false")
	}
	if reason == "" {
		t.Error("empty reason not defaulted")
	}
}
