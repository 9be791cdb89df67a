package analyzer

import (
	"context"

	"github.com/smancode/sweep/internal/engine"
	"github.com/smancode/sweep/internal/goal"
	"github.com/smancode/sweep/internal/store"
)

// StoreSink records finished units of work as reports in the project store.
type StoreSink struct {
	Store  *store.Store
	Oracle *StoreOracle // optional: clears stale markers on save
}

func (s *StoreSink) Save(ctx context.Context, projectID string, g *goal.Goal, payload string, eval engine.Evaluation, terminal bool) error {
	rep := &store.Report{
		ProjectID:       projectID,
		GoalID:          g.ID,
		GoalText:        g.Text,
		Completeness:    eval.Completeness,
		MissingSections: eval.MissingSections,
		FollowUps:       eval.FollowUps,
		Terminal:        terminal,
		Iterations:      eval.Iterations,
	}
	if err := s.Store.SaveReport(rep, payload); err != nil {
		return err
	}
	if s.Oracle != nil && terminal {
		s.Oracle.ClearStale(g.ID)
	}
	return nil
}

// Precondition checks that a project is configured well enough to run
// unattended.
type Precondition struct {
	Config *store.ProjectConfig
}

func (p *Precondition) IsRunnable(projectID string) (bool, string) {
	if p.Config == nil {
		return false, "project not initialized"
	}
	if p.Config.AnalyzerCommand == "" {
		return false, "no analyzer command configured"
	}
	if p.Config.Strategy == store.StrategyExploratory && p.Config.GeneratorCommand == "" {
		return false, "exploratory strategy requires a generator command"
	}
	return true, ""
}
