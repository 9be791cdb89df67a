package store

import "time"

// Strategy names accepted in project config.
const (
	StrategyStructured  = "structured"
	StrategyExploratory = "exploratory"
)

// ProjectConfig describes one analyzed project. Stored as project.json.
type ProjectConfig struct {
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Strategy  string    `json:"strategy"` // "structured" or "exploratory"
	Topics    []Topic   `json:"topics,omitempty"`
	Created   time.Time `json:"created"`

	// AnalyzerCommand is the external reasoning command invoked per goal.
	// Empty means the project cannot run unattended (fails IsRunnable).
	AnalyzerCommand string `json:"analyzer_command,omitempty"`

	// GeneratorCommand produces candidate questions for the exploratory
	// strategy. Unused by the structured strategy.
	GeneratorCommand string `json:"generator_command,omitempty"`
}

// Topic is one entry of the structured analysis catalogue. Catalogue order
// is priority order: earlier topics win ties.
type Topic struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Hint  string `json:"hint,omitempty"` // extra instructions passed to the analyzer
}
