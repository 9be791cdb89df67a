// Package history is the iteration ledger: one SQLite row per completed
// engine iteration. It exists for observability — ledger failures never
// fail the loop.
package history

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

type Ledger struct {
	db *sql.DB
}

// Entry is one recorded iteration outcome.
type Entry struct {
	ID           int64
	ProjectID    string
	GoalID       string
	GoalText     string
	Strategy     string
	Outcome      string // "completed", "partial", "failed", "skipped"
	Completeness float64
	Terminal     bool
	Iterations   int
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Outcome values.
const (
	OutcomeCompleted = "completed"
	OutcomePartial   = "partial"
	OutcomeFailed    = "failed"
)

func Open(dbPath string) (*Ledger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	l := &Ledger{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS iterations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT NOT NULL,
		goal_id TEXT NOT NULL,
		goal_text TEXT NOT NULL,
		strategy TEXT NOT NULL,
		outcome TEXT NOT NULL,
		completeness REAL NOT NULL DEFAULT 0,
		terminal INTEGER NOT NULL DEFAULT 0,
		iterations INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TIMESTAMP,
		finished_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_iterations_project ON iterations(project_id);
	CREATE INDEX IF NOT EXISTS idx_iterations_goal ON iterations(project_id, goal_id);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Record appends one iteration row.
func (l *Ledger) Record(e *Entry) error {
	res, err := l.db.Exec(
		`INSERT INTO iterations (project_id, goal_id, goal_text, strategy, outcome, completeness, terminal, iterations, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ProjectID, e.GoalID, e.GoalText, e.Strategy, e.Outcome,
		e.Completeness, boolToInt(e.Terminal), e.Iterations, e.Error,
		e.StartedAt, e.FinishedAt,
	)
	if err != nil {
		return err
	}
	e.ID, _ = res.LastInsertId()
	return nil
}

// List returns the newest entries for a project, most recent first.
func (l *Ledger) List(projectID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.Query(
		`SELECT id, project_id, goal_id, goal_text, strategy, outcome, completeness, terminal, iterations, error, started_at, finished_at
		 FROM iterations WHERE project_id = ? ORDER BY id DESC LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var terminal int
		var errText sql.NullString
		var started, finished sql.NullTime
		if err := rows.Scan(
			&e.ID, &e.ProjectID, &e.GoalID, &e.GoalText, &e.Strategy, &e.Outcome,
			&e.Completeness, &terminal, &e.Iterations, &errText, &started, &finished,
		); err != nil {
			return nil, err
		}
		e.Terminal = terminal != 0
		if errText.Valid {
			e.Error = errText.String
		}
		if started.Valid {
			e.StartedAt = started.Time
		}
		if finished.Valid {
			e.FinishedAt = finished.Time
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Totals returns lifetime iteration counts for a project across restarts.
func (l *Ledger) Totals(projectID string) (total, successful int, err error) {
	row := l.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN terminal = 1 THEN 1 ELSE 0 END), 0)
		 FROM iterations WHERE project_id = ?`,
		projectID,
	)
	err = row.Scan(&total, &successful)
	return total, successful, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
