// reports.go contains the report archive: one metadata JSON plus a markdown
// payload per finished (or best-effort partial) unit of work.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Report is the durable record of one finished goal.
type Report struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"project_id"`
	GoalID          string    `json:"goal_id"`
	GoalText        string    `json:"goal_text"`
	Completeness    float64   `json:"completeness"`
	MissingSections []string  `json:"missing_sections,omitempty"`
	FollowUps       []string  `json:"follow_ups,omitempty"`
	Terminal        bool      `json:"terminal"` // false = iteration budget exhausted, partial kept
	Iterations      int       `json:"iterations"`
	Created         time.Time `json:"created"`
}

func (s *Store) reportsDir() string {
	return filepath.Join(s.root, "reports")
}

// SaveReport durably records a report and its markdown payload. The payload
// is written first so the metadata never references a missing body.
func (s *Store) SaveReport(rep *Report, payload string) error {
	dir := s.reportsDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	rep.Created = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	body := filepath.Join(dir, rep.ID+".md")
	if err := os.WriteFile(body, []byte(payload), 0644); err != nil {
		return fmt.Errorf("writing report body %s: %w", rep.ID, err)
	}
	if err := s.writeJSONLocked(filepath.Join(dir, rep.ID+".json"), rep); err != nil {
		return fmt.Errorf("writing report metadata %s: %w", rep.ID, err)
	}
	return nil
}

// GetReport loads report metadata by ID.
func (s *Store) GetReport(id string) (*Report, error) {
	var rep Report
	if err := s.readJSON(filepath.Join(s.reportsDir(), id+".json"), &rep); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rep, nil
}

// ReportPayload loads the markdown body of a report.
func (s *Store) ReportPayload(id string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.reportsDir(), id+".md"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(data), nil
}

// ListReports returns all report metadata, newest first.
func (s *Store) ListReports() ([]Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.reportsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var reports []Report
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var rep Report
		if err := s.readJSONLocked(filepath.Join(s.reportsDir(), e.Name()), &rep); err != nil {
			continue
		}
		reports = append(reports, rep)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Created.After(reports[j].Created) })
	return reports, nil
}

// LatestReportForGoal returns the newest report for a goal ID, or nil.
func (s *Store) LatestReportForGoal(goalID string) (*Report, error) {
	reports, err := s.ListReports()
	if err != nil {
		return nil, err
	}
	for i := range reports {
		if reports[i].GoalID == goalID {
			return &reports[i], nil
		}
	}
	return nil, nil
}
