// types_checkpoint.go holds the persisted loop and guard state records.
package store

import "time"

// Phase is the loop state machine phase.
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseCheckingGuard     Phase = "checking_guard"
	PhaseSelectingGoal     Phase = "selecting_goal"
	PhaseCheckingStaleness Phase = "checking_staleness"
	PhaseExecuting         Phase = "executing"
	PhaseEvaluating        Phase = "evaluating"
	PhasePersisting        Phase = "persisting"
	PhaseStopped           Phase = "stopped"
)

// StopReason tags the terminal state of a loop.
type StopReason string

const (
	StopNone                 StopReason = ""
	StopUserRequested        StopReason = "user_requested"
	StopQuotaExhausted       StopReason = "quota_exhausted"
	StopAllGoalsComplete     StopReason = "all_goals_complete"
	StopConsecutiveDuplicate StopReason = "consecutive_duplicate"
	StopNotRunnable          StopReason = "not_runnable"
	StopShutdown             StopReason = "shutdown"
)

// GuardImposed reports whether a stop reason was imposed by the doom-loop
// guard. Guard stops preserve the checkpoint so statistics survive; all
// other stops clear it.
func (r StopReason) GuardImposed() bool {
	switch r {
	case StopQuotaExhausted, StopConsecutiveDuplicate:
		return true
	}
	return false
}

// GoalResult is the last executor result embedded in the checkpoint while
// the loop is in the persisting phase. It lets a crashed loop finish the
// save instead of re-running the goal.
type GoalResult struct {
	Payload         string   `json:"payload"`
	Completeness    float64  `json:"completeness"`
	MissingSections []string `json:"missing_sections,omitempty"`
	FollowUps       []string `json:"follow_ups,omitempty"`
	Terminal        bool     `json:"terminal"`
}

// GoalState is the unit of work in flight, as persisted.
type GoalState struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Hash      string   `json:"hash"`
	FollowUps []string `json:"follow_ups,omitempty"`
	Iteration int      `json:"iteration"`

	// Result is set only while phase == persisting.
	Result *GoalResult `json:"result,omitempty"`
}

// LoopState is the checkpoint unit: one per project, replaced wholesale on
// every phase transition and persisted through SaveCheckpoint.
type LoopState struct {
	ProjectID            string     `json:"project_id"`
	Enabled              bool       `json:"enabled"`
	Phase                Phase      `json:"phase"`
	TotalIterations      int        `json:"total_iterations"`
	SuccessfulIterations int        `json:"successful_iterations"`
	CurrentGoal          *GoalState `json:"current_goal,omitempty"`
	ProcessedInRound     []string   `json:"processed_in_round,omitempty"`
	StopReason           StopReason `json:"stop_reason,omitempty"`
	LastUpdated          time.Time  `json:"last_updated"`
}

// Clone returns a deep copy so callers can hand out snapshots without
// sharing mutable slices.
func (st *LoopState) Clone() *LoopState {
	if st == nil {
		return nil
	}
	cp := *st
	cp.ProcessedInRound = append([]string(nil), st.ProcessedInRound...)
	if st.CurrentGoal != nil {
		g := *st.CurrentGoal
		g.FollowUps = append([]string(nil), st.CurrentGoal.FollowUps...)
		if st.CurrentGoal.Result != nil {
			r := *st.CurrentGoal.Result
			r.MissingSections = append([]string(nil), st.CurrentGoal.Result.MissingSections...)
			r.FollowUps = append([]string(nil), st.CurrentGoal.Result.FollowUps...)
			g.Result = &r
		}
		cp.CurrentGoal = &g
	}
	return &cp
}

// GuardState holds the doom-loop guard counters. Persisted separately from
// the checkpoint: the loop never deletes it, only its counters evolve.
type GuardState struct {
	ProjectID             string    `json:"project_id"`
	ConsecutiveErrors     int       `json:"consecutive_errors"`
	BackoffUntil          time.Time `json:"backoff_until,omitempty"`
	QuotaDay              string    `json:"quota_day,omitempty"` // UTC day "2006-01-02"
	DailyQuotaUsed        int       `json:"daily_quota_used"`
	LastGoalHash          string    `json:"last_goal_hash,omitempty"`
	ConsecutiveDuplicates int       `json:"consecutive_duplicates"`
}
