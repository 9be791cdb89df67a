// Package engine implements the resumable autonomous loop: a phase state
// machine that selects a goal, executes it through an external reasoning
// engine, evaluates the result, and either finalizes or iterates. One Loop
// runs per project; execution within a loop is strictly sequential.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/smancode/sweep/internal/debug"
	"github.com/smancode/sweep/internal/goal"
	"github.com/smancode/sweep/internal/guard"
	"github.com/smancode/sweep/internal/history"
	"github.com/smancode/sweep/internal/store"
)

// stopPollInterval is how often long sleeps re-check the stop signal file.
const stopPollInterval = 2 * time.Second

// Result is the outcome of one executor session.
type Result struct {
	Payload         string
	Completeness    float64 // in [0,1]
	MissingSections []string
	FollowUps       []string
}

// Executor performs one bounded multi-step reasoning session for a goal.
// It must be safely re-invocable: re-running after a crash may not corrupt
// external state.
type Executor interface {
	Execute(ctx context.Context, g *goal.Goal) (*Result, error)
}

// Evaluation summarizes a finished goal for the sink.
type Evaluation struct {
	Completeness    float64
	MissingSections []string
	FollowUps       []string
	Iterations      int
}

// Sink durably records a finished or best-effort partial unit of work.
type Sink interface {
	Save(ctx context.Context, projectID string, g *goal.Goal, payload string, eval Evaluation, terminal bool) error
}

// Config holds per-loop tuning. Values are expected to be validated by the
// config package before a Loop is built.
type Config struct {
	ProjectID              string
	Strategy               string
	CompletionThreshold    float64
	LowConfidenceThreshold float64
	MaxIterationsPerGoal   int
	IdleInterval           time.Duration
	ExecutorRatePerMinute  float64
}

// Status is the externally observable loop state.
type Status struct {
	ProjectID            string
	Phase                store.Phase
	StopReason           store.StopReason
	TotalIterations      int
	SuccessfulIterations int
	CurrentGoalID        string
	CurrentGoalText      string
	CurrentIteration     int
	LastUpdated          time.Time
}

// Loop is the per-project state machine controller. Collaborators are
// injected; the loop owns only the checkpoint and the phase logic.
type Loop struct {
	Store    *store.Store
	Guard    *guard.Guard
	Provider goal.Provider
	Oracle   goal.Oracle // consulted only when the provider requires staleness checks
	Executor Executor
	Sink     Sink
	Ledger   *history.Ledger // optional iteration ledger
	Config   Config

	limiter *rate.Limiter

	mu        sync.Mutex
	state     *store.LoopState
	processed map[string]bool
	cancel    context.CancelFunc
	stopOnce  sync.Once
	stopWith  store.StopReason
}

// Run executes the loop until it stops. It never returns an error for
// work failures — those become state transitions — only for broken wiring.
func (l *Loop) Run(ctx context.Context) error {
	if l.Store == nil || l.Guard == nil || l.Provider == nil || l.Executor == nil || l.Sink == nil {
		return errors.New("engine: loop missing collaborators")
	}
	if l.Provider.RequiresStalenessCheck() && l.Oracle == nil {
		return errors.New("engine: structured strategy requires an oracle")
	}
	if l.Config.ExecutorRatePerMinute > 0 {
		l.limiter = rate.NewLimiter(rate.Limit(l.Config.ExecutorRatePerMinute/60.0), 1)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	resumeGoal := l.restore(runCtx)

	debug.LogKV("engine", "loop starting",
		"project", l.Config.ProjectID,
		"strategy", l.Config.Strategy,
		"resuming", resumeGoal != nil,
	)

	for {
		if reason, done := l.checkStop(runCtx); done {
			return l.finalize(reason)
		}

		// CHECKING_GUARD
		l.setPhase(store.PhaseCheckingGuard)
		dec := l.Guard.ShouldSkip()
		if dec.Skip {
			if dec.Reason == guard.ReasonQuota {
				return l.finalize(store.StopQuotaExhausted)
			}
			debug.LogKV("engine", "backoff active",
				"project", l.Config.ProjectID,
				"remaining", dec.RemainingBackoff,
			)
			l.setPhase(store.PhaseIdle)
			l.sleep(runCtx, dec.RemainingBackoff)
			continue
		}

		// SELECTING_GOAL — or pick up the reconstructed in-flight goal
		// exactly once after a crash resume.
		var g *goal.Goal
		if resumeGoal != nil {
			g = resumeGoal
			resumeGoal = nil
			l.Provider.MarkSelected(g)
		} else {
			l.setPhase(store.PhaseSelectingGoal)
			var err error
			g, err = l.Provider.Next(runCtx, l.processedSnapshot())
			switch {
			case errors.Is(err, goal.ErrSweepComplete):
				l.completeSweep()
				l.setPhase(store.PhaseIdle)
				l.sleep(runCtx, l.Config.IdleInterval)
				continue
			case errors.Is(err, goal.ErrExhausted):
				return l.finalize(store.StopAllGoalsComplete)
			case err != nil:
				if runCtx.Err() != nil {
					continue
				}
				debug.LogKV("engine", "goal selection failed",
					"project", l.Config.ProjectID,
					"error", err,
				)
				l.Guard.RecordFailure()
				continue
			}

			// CHECKING_STALENESS (structured strategy only): skip goals the
			// oracle judges current, without doing work.
			if l.Provider.RequiresStalenessCheck() {
				l.setPhase(store.PhaseCheckingStaleness)
				needed, err := l.Oracle.IsStaleOrIncomplete(l.Config.ProjectID, g.ID)
				if err != nil {
					debug.LogKV("engine", "staleness check failed",
						"project", l.Config.ProjectID,
						"goal", g.ID,
						"error", err,
					)
					l.Guard.RecordFailure()
					continue
				}
				if !needed {
					debug.LogKV("engine", "goal current, skipping",
						"project", l.Config.ProjectID,
						"goal", g.ID,
					)
					l.markProcessed(g.ID)
					l.persist()
					continue
				}
			} else {
				// Exploratory strategy: a generator that keeps proposing the
				// same question is a stagnation condition, not a retry.
				if l.Guard.CheckDuplicate(g.Hash) {
					return l.finalize(store.StopConsecutiveDuplicate)
				}
			}
			l.Provider.MarkSelected(g)
		}

		l.runGoal(runCtx, g)
	}
}

// runGoal drives one goal through EXECUTING → EVALUATING → PERSISTING,
// looping back to EXECUTING for refinement rounds.
func (l *Loop) runGoal(ctx context.Context, g *goal.Goal) {
	// Processed-in-round is marked before the first execution so the goal
	// is not re-selected this sweep even if it fails.
	l.markProcessed(g.ID)
	l.setGoal(g)
	l.setPhaseAndPersist(store.PhaseExecuting)

	started := time.Now().UTC()

	for {
		if ctx.Err() != nil || l.Store.StopRequested() {
			// The outer loop consumes the stop at its phase boundary; the
			// checkpoint still shows the active phase for resume.
			return
		}
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				return
			}
		}

		debug.LogKV("engine", "executor starting",
			"project", l.Config.ProjectID,
			"goal", g.ID,
			"iteration", g.Iteration+1,
			"follow_ups", len(g.FollowUps),
		)
		res, err := l.Executor.Execute(ctx, g)
		if ctx.Err() != nil {
			// Stopped mid-flight: do not act on a result that arrives after
			// stop. The checkpoint still shows EXECUTING, so a restart
			// re-runs this goal.
			return
		}
		g.Iteration++
		l.bumpTotal()

		if err != nil {
			debug.LogKV("engine", "executor failed",
				"project", l.Config.ProjectID,
				"goal", g.ID,
				"error", err,
			)
			l.Guard.RecordFailure()
			l.recordHistory(g, history.OutcomeFailed, 0, false, err.Error(), started)
			l.clearGoal()
			l.persist()
			return
		}

		// EVALUATING
		l.syncGoal(g)
		l.setPhaseAndPersist(store.PhaseEvaluating)

		switch {
		case res.Completeness >= l.Config.CompletionThreshold:
			l.persistResult(ctx, g, res, true, started)
			return

		case g.Iteration < l.Config.MaxIterationsPerGoal:
			if res.Completeness < l.Config.LowConfidenceThreshold {
				g.FollowUps = append(g.FollowUps, correctiveFollowUp(res))
			} else {
				g.FollowUps = append(g.FollowUps, res.MissingSections...)
				g.FollowUps = append(g.FollowUps, res.FollowUps...)
			}
			debug.LogKV("engine", "refining goal",
				"project", l.Config.ProjectID,
				"goal", g.ID,
				"iteration", g.Iteration,
				"completeness", res.Completeness,
			)
			l.syncGoal(g)
			l.setPhaseAndPersist(store.PhaseExecuting)
			continue

		default:
			// Iteration budget exhausted: keep the best-effort partial.
			l.persistResult(ctx, g, res, false, started)
			return
		}
	}
}

// persistResult is the PERSISTING phase: sink save, guard success, goal
// cleared from the checkpoint.
func (l *Loop) persistResult(ctx context.Context, g *goal.Goal, res *Result, terminal bool, started time.Time) {
	eval := Evaluation{
		Completeness:    res.Completeness,
		MissingSections: res.MissingSections,
		FollowUps:       res.FollowUps,
		Iterations:      g.Iteration,
	}

	// Embed the result in the checkpoint before entering PERSISTING so a
	// crash mid-save can finish the save instead of re-running the goal.
	l.mu.Lock()
	if l.state.CurrentGoal != nil {
		l.state.CurrentGoal.Result = &store.GoalResult{
			Payload:         res.Payload,
			Completeness:    res.Completeness,
			MissingSections: res.MissingSections,
			FollowUps:       res.FollowUps,
			Terminal:        terminal,
		}
	}
	l.mu.Unlock()
	l.setPhaseAndPersist(store.PhasePersisting)

	if err := l.Sink.Save(ctx, l.Config.ProjectID, g, res.Payload, eval, terminal); err != nil {
		if ctx.Err() != nil {
			return
		}
		debug.LogKV("engine", "sink save failed",
			"project", l.Config.ProjectID,
			"goal", g.ID,
			"error", err,
		)
		l.Guard.RecordFailure()
		l.recordHistory(g, history.OutcomeFailed, res.Completeness, false, err.Error(), started)
		l.clearGoal()
		l.persist()
		return
	}

	l.Guard.RecordSuccess()
	outcome := history.OutcomeCompleted
	if terminal {
		l.bumpSuccessful()
	} else {
		outcome = history.OutcomePartial
	}
	l.recordHistory(g, outcome, res.Completeness, terminal, "", started)

	debug.LogKV("engine", "goal persisted",
		"project", l.Config.ProjectID,
		"goal", g.ID,
		"terminal", terminal,
		"completeness", res.Completeness,
		"iterations", g.Iteration,
	)

	l.clearGoal()
	l.persist()
}

// correctiveFollowUp builds the redo instruction injected after a
// low-confidence attempt.
func correctiveFollowUp(res *Result) string {
	msg := fmt.Sprintf(
		"The previous attempt was low quality (completeness %.2f). Redo the analysis from scratch, verifying every claim against the code.",
		res.Completeness,
	)
	if len(res.MissingSections) > 0 {
		msg += " Cover the missing sections: "
		for i, s := range res.MissingSections {
			if i > 0 {
				msg += ", "
			}
			msg += s
		}
		msg += "."
	}
	return msg
}

// restore loads the checkpoint and reconstructs the in-flight goal, if any.
// EXECUTING and EVALUATING both resume at EXECUTING — an evaluation that was
// never persisted is not trusted to survive a crash. PERSISTING resumes at
// PERSISTING only when the result payload survived in the checkpoint.
func (l *Loop) restore(ctx context.Context) *goal.Goal {
	st, err := l.Store.LoadCheckpoint()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			debug.LogKV("engine", "checkpoint load failed",
				"project", l.Config.ProjectID,
				"error", err,
			)
		}
		l.freshState()
		return nil
	}

	resumable := st.Enabled &&
		(st.Phase == store.PhaseSelectingGoal ||
			st.Phase == store.PhaseCheckingStaleness ||
			st.Phase == store.PhaseExecuting ||
			st.Phase == store.PhaseEvaluating ||
			st.Phase == store.PhasePersisting)
	if !resumable {
		l.freshState()
		return nil
	}

	l.mu.Lock()
	l.state = st.Clone()
	l.processed = make(map[string]bool, len(st.ProcessedInRound))
	for _, id := range st.ProcessedInRound {
		l.processed[id] = true
	}
	l.mu.Unlock()

	if st.CurrentGoal == nil {
		return nil
	}
	g := goal.FromState(st.CurrentGoal)

	if st.Phase == store.PhasePersisting && st.CurrentGoal.Result != nil {
		// Finish the interrupted save with the real prior result.
		r := st.CurrentGoal.Result
		debug.LogKV("engine", "resuming interrupted save",
			"project", l.Config.ProjectID,
			"goal", g.ID,
		)
		res := &Result{
			Payload:         r.Payload,
			Completeness:    r.Completeness,
			MissingSections: r.MissingSections,
			FollowUps:       r.FollowUps,
		}
		l.persistResult(ctx, g, res, r.Terminal, time.Now().UTC())
		return nil
	}

	debug.LogKV("engine", "resuming in-flight goal",
		"project", l.Config.ProjectID,
		"goal", g.ID,
		"iteration", g.Iteration,
		"checkpoint_phase", st.Phase,
	)
	return g
}

// Stop requests a cooperative stop. Idempotent; the loop exits at the next
// phase boundary and does not act on in-flight executor results. Stopping a
// loop that never ran still surfaces the reason through Status.
func (l *Loop) Stop(reason store.StopReason) {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.stopWith = reason
		if l.state == nil {
			l.state = &store.LoopState{
				ProjectID:  l.Config.ProjectID,
				Phase:      store.PhaseStopped,
				StopReason: reason,
			}
		}
		cancel := l.cancel
		l.mu.Unlock()
		debug.LogKV("engine", "stop requested", "project", l.Config.ProjectID, "reason", reason)
		if cancel != nil {
			cancel()
		}
	})
}

// Status returns a snapshot of the observable loop state.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Status{
		ProjectID:            l.Config.ProjectID,
		Phase:                store.PhaseIdle,
		TotalIterations:      0,
		SuccessfulIterations: 0,
	}
	if l.state != nil {
		s.Phase = l.state.Phase
		s.StopReason = l.state.StopReason
		s.TotalIterations = l.state.TotalIterations
		s.SuccessfulIterations = l.state.SuccessfulIterations
		s.LastUpdated = l.state.LastUpdated
		if l.state.CurrentGoal != nil {
			s.CurrentGoalID = l.state.CurrentGoal.ID
			s.CurrentGoalText = l.state.CurrentGoal.Text
			s.CurrentIteration = l.state.CurrentGoal.Iteration
		}
	}
	return s
}

// --- state helpers ---

func (l *Loop) freshState() {
	l.mu.Lock()
	l.state = &store.LoopState{
		ProjectID: l.Config.ProjectID,
		Enabled:   true,
		Phase:     store.PhaseIdle,
	}
	l.processed = make(map[string]bool)
	l.mu.Unlock()
}

// checkStop consumes external stop requests at a phase boundary.
func (l *Loop) checkStop(ctx context.Context) (store.StopReason, bool) {
	if ctx.Err() != nil {
		l.mu.Lock()
		reason := l.stopWith
		l.mu.Unlock()
		if reason == store.StopNone {
			reason = store.StopShutdown
		}
		return reason, true
	}
	if _, ok := l.Store.ConsumeStopSignal(); ok {
		return store.StopUserRequested, true
	}
	return store.StopNone, false
}

// finalize enters the terminal pseudo-state. Guard-imposed stops preserve
// the checkpoint so statistics survive; every other stop clears it so the
// next start begins a fresh sweep.
func (l *Loop) finalize(reason store.StopReason) error {
	l.mu.Lock()
	l.state.Phase = store.PhaseStopped
	l.state.StopReason = reason
	l.state.Enabled = false
	l.mu.Unlock()

	debug.LogKV("engine", "loop stopped", "project", l.Config.ProjectID, "reason", reason)

	if reason.GuardImposed() {
		l.persist()
		return nil
	}
	if err := l.Store.ClearCheckpoint(); err != nil {
		debug.LogKV("engine", "checkpoint clear failed",
			"project", l.Config.ProjectID,
			"error", err,
		)
	}
	return nil
}

// completeSweep resets the round after every eligible goal has been handled:
// processed-in-round clears, the provider's per-sweep caches clear, and the
// checkpoint is deleted (nothing to resume).
func (l *Loop) completeSweep() {
	l.mu.Lock()
	l.processed = make(map[string]bool)
	l.state = &store.LoopState{
		ProjectID: l.Config.ProjectID,
		Enabled:   true,
		Phase:     store.PhaseIdle,
	}
	l.mu.Unlock()

	l.Provider.Reset()
	if err := l.Store.ClearCheckpoint(); err != nil {
		debug.LogKV("engine", "checkpoint clear failed",
			"project", l.Config.ProjectID,
			"error", err,
		)
	}
	debug.LogKV("engine", "sweep complete", "project", l.Config.ProjectID)
}

func (l *Loop) setPhase(p store.Phase) {
	l.mu.Lock()
	l.state.Phase = p
	l.mu.Unlock()
}

// setPhaseAndPersist writes the checkpoint before the transition is treated
// as durable. A write failure is logged and the sweep continues in-memory:
// at-least-once re-execution after a crash is the accepted trade-off.
func (l *Loop) setPhaseAndPersist(p store.Phase) {
	l.setPhase(p)
	l.persist()
}

func (l *Loop) persist() {
	l.mu.Lock()
	l.state.ProcessedInRound = sortedKeys(l.processed)
	snapshot := l.state.Clone()
	l.mu.Unlock()

	if err := l.Store.SaveCheckpoint(snapshot); err != nil {
		debug.LogKV("engine", "checkpoint write failed",
			"project", l.Config.ProjectID,
			"phase", snapshot.Phase,
			"error", err,
		)
	}
}

func (l *Loop) processedSnapshot() map[string]bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make(map[string]bool, len(l.processed))
	for k, v := range l.processed {
		cp[k] = v
	}
	return cp
}

func (l *Loop) markProcessed(id string) {
	l.mu.Lock()
	l.processed[id] = true
	l.mu.Unlock()
}

func (l *Loop) setGoal(g *goal.Goal) {
	l.mu.Lock()
	l.state.CurrentGoal = g.ToState()
	l.mu.Unlock()
}

// syncGoal refreshes the checkpointed goal after follow-ups or iteration
// counts change.
func (l *Loop) syncGoal(g *goal.Goal) {
	l.mu.Lock()
	l.state.CurrentGoal = g.ToState()
	l.mu.Unlock()
}

func (l *Loop) clearGoal() {
	l.mu.Lock()
	l.state.CurrentGoal = nil
	l.state.Phase = store.PhaseSelectingGoal
	l.mu.Unlock()
}

func (l *Loop) bumpTotal() {
	l.mu.Lock()
	l.state.TotalIterations++
	l.mu.Unlock()
}

func (l *Loop) bumpSuccessful() {
	l.mu.Lock()
	l.state.SuccessfulIterations++
	l.mu.Unlock()
}

func (l *Loop) recordHistory(g *goal.Goal, outcome string, completeness float64, terminal bool, errText string, started time.Time) {
	if l.Ledger == nil {
		return
	}
	err := l.Ledger.Record(&history.Entry{
		ProjectID:    l.Config.ProjectID,
		GoalID:       g.ID,
		GoalText:     g.Text,
		Strategy:     l.Config.Strategy,
		Outcome:      outcome,
		Completeness: completeness,
		Terminal:     terminal,
		Iterations:   g.Iteration,
		Error:        errText,
		StartedAt:    started,
		FinishedAt:   time.Now().UTC(),
	})
	if err != nil {
		debug.LogKV("engine", "ledger write failed",
			"project", l.Config.ProjectID,
			"goal", g.ID,
			"error", err,
		)
	}
}

// sleep waits out d, waking early on cancellation or a pending stop signal.
// Returns true when the full duration elapsed.
func (l *Loop) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		wait := remaining
		if wait > stopPollInterval {
			wait = stopPollInterval
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		if l.Store.StopRequested() {
			return false
		}
	}
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
