package manager

import (
	"context"
	"testing"
	"time"

	"github.com/smancode/sweep/internal/engine"
	"github.com/smancode/sweep/internal/goal"
	"github.com/smancode/sweep/internal/guard"
	"github.com/smancode/sweep/internal/store"
)

// idleExecutor should never run in these tests.
type idleExecutor struct{}

func (idleExecutor) Execute(context.Context, *goal.Goal) (*engine.Result, error) {
	return &engine.Result{Completeness: 1}, nil
}

type idleSink struct{}

func (idleSink) Save(context.Context, string, *goal.Goal, string, engine.Evaluation, bool) error {
	return nil
}

// currentOracle reports every topic as current, so the loop idles instead
// of doing work.
type currentOracle struct{}

func (currentOracle) IsStaleOrIncomplete(string, string) (bool, error) { return false, nil }
func (currentOracle) CompletenessOf(string) (float64, error)           { return 1, nil }

type stubPrecondition struct {
	ok     bool
	reason string
}

func (p stubPrecondition) IsRunnable(string) (bool, string) { return p.ok, p.reason }

func newIdleLoop(t *testing.T) *engine.Loop {
	t.Helper()
	s, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New() error: %v", err)
	}
	if err := s.Init(store.ProjectConfig{ProjectID: "proj", Name: "proj", Strategy: store.StrategyStructured}); err != nil {
		t.Fatalf("store.Init() error: %v", err)
	}
	g, err := guard.New(s, "proj", guard.Limits{
		BackoffBase:     time.Millisecond,
		BackoffCap:      10,
		DailyQuotaLimit: 50,
		DuplicateLimit:  3,
	})
	if err != nil {
		t.Fatalf("guard.New() error: %v", err)
	}
	return &engine.Loop{
		Store:    s,
		Guard:    g,
		Provider: goal.NewStructured([]store.Topic{{ID: "arch", Title: "Architecture overview"}}),
		Oracle:   currentOracle{},
		Executor: idleExecutor{},
		Sink:     idleSink{},
		Config: engine.Config{
			ProjectID:            "proj",
			Strategy:             store.StrategyStructured,
			CompletionThreshold:  0.8,
			MaxIterationsPerGoal: 5,
			IdleInterval:         time.Hour, // park the loop in its idle sleep
		},
	}
}

func TestStartAndStop(t *testing.T) {
	m := New()
	l := newIdleLoop(t)

	if err := m.Start(context.Background(), "proj", l, nil); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if !m.Running("proj") {
		t.Fatal("Running() = false after Start")
	}

	m.Stop("proj", store.StopShutdown)
	if m.Running("proj") {
		t.Error("Running() = true after Stop")
	}
	if st := l.Status(); st.StopReason != store.StopShutdown {
		t.Errorf("stop reason = %q, want shutdown", st.StopReason)
	}
}

func TestStartRejectsDuplicateProject(t *testing.T) {
	m := New()
	l := newIdleLoop(t)

	if err := m.Start(context.Background(), "proj", l, nil); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer m.Stop("proj", store.StopShutdown)

	if err := m.Start(context.Background(), "proj", newIdleLoop(t), nil); err == nil {
		t.Fatal("second Start() for the same project should error")
	}
}

func TestStartFailsPrecondition(t *testing.T) {
	m := New()
	l := newIdleLoop(t)

	err := m.Start(context.Background(), "proj", l, stubPrecondition{ok: false, reason: "no analyzer command"})
	if err == nil {
		t.Fatal("Start() with failing precondition should error")
	}
	if m.Running("proj") {
		t.Error("Running() = true after precondition failure")
	}
	st := l.Status()
	if st.Phase != store.PhaseStopped {
		t.Errorf("phase = %q after precondition failure, want stopped", st.Phase)
	}
	if st.StopReason != store.StopNotRunnable {
		t.Errorf("stop reason = %q, want not_runnable", st.StopReason)
	}
}

func TestStopUnknownProjectIsNoop(t *testing.T) {
	m := New()
	m.Stop("ghost", store.StopShutdown) // must not panic or block
}

func TestWaitReturnsForUnknownProject(t *testing.T) {
	done := make(chan struct{})
	go func() {
		New().Wait("ghost")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait() blocked for an unknown project")
	}
}

func TestStatusReportsRunningLoops(t *testing.T) {
	m := New()
	if err := m.Start(context.Background(), "proj", newIdleLoop(t), stubPrecondition{ok: true}); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer m.Stop("proj", store.StopShutdown)

	status := m.Status()
	if _, ok := status["proj"]; !ok {
		t.Errorf("Status() = %v, want an entry for proj", status)
	}
}

func TestShutdownDrainsAllLoops(t *testing.T) {
	m := New()
	for _, id := range []string{"a", "b"} {
		l := newIdleLoop(t)
		l.Config.ProjectID = id
		if err := m.Start(context.Background(), id, l, nil); err != nil {
			t.Fatalf("Start(%s) error: %v", id, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.Shutdown(ctx)

	if m.Running("a") || m.Running("b") {
		t.Error("loops still running after Shutdown")
	}
}
