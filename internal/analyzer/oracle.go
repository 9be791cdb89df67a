package analyzer

import (
	"os"
	"path/filepath"

	"github.com/smancode/sweep/internal/store"
)

// StoreOracle answers staleness and completeness questions from the report
// archive, plus stale markers dropped by external change detection: a file
// under .sweep/stale/<topic> flags a topic for rework regardless of its
// last report.
type StoreOracle struct {
	Store               *store.Store
	CompletionThreshold float64
}

func (o *StoreOracle) staleMarker(topicID string) string {
	return filepath.Join(o.Store.Root(), "stale", topicID)
}

// MarkStale flags a topic for rework. Used by change-detection hooks and
// the CLI.
func (o *StoreOracle) MarkStale(topicID string) error {
	dir := filepath.Join(o.Store.Root(), "stale")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(o.staleMarker(topicID), nil, 0644)
}

// ClearStale removes a topic's stale marker, if any.
func (o *StoreOracle) ClearStale(topicID string) {
	os.Remove(o.staleMarker(topicID))
}

// IsStaleOrIncomplete reports whether a topic needs (re)work: no prior
// report, a non-terminal last report, completeness below threshold,
// outstanding follow-ups, or an explicit stale marker.
func (o *StoreOracle) IsStaleOrIncomplete(projectID, topicID string) (bool, error) {
	if _, err := os.Stat(o.staleMarker(topicID)); err == nil {
		return true, nil
	}

	rep, err := o.Store.LatestReportForGoal(topicID)
	if err != nil {
		return false, err
	}
	if rep == nil {
		return true, nil
	}
	if !rep.Terminal {
		return true, nil
	}
	if rep.Completeness < o.CompletionThreshold {
		return true, nil
	}
	if len(rep.FollowUps) > 0 {
		return true, nil
	}
	return false, nil
}

// CompletenessOf returns the last known completeness for a topic, or 0
// when no report exists.
func (o *StoreOracle) CompletenessOf(topicID string) (float64, error) {
	rep, err := o.Store.LatestReportForGoal(topicID)
	if err != nil {
		return 0, err
	}
	if rep == nil {
		return 0, nil
	}
	return rep.Completeness, nil
}
