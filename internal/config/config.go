// Package config manages the global sweep configuration stored at
// ~/.sweep/config.yaml. Per-project settings live in the project store.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning holds the engine knobs. Zero values are replaced by defaults on
// load, so a hand-edited config only needs the keys it overrides.
type Tuning struct {
	// CompletionThreshold finalizes a goal when the executor's
	// completeness score reaches it.
	CompletionThreshold float64 `yaml:"completion_threshold"`

	// LowConfidenceThreshold triggers a corrective redo below it. Zero
	// means unset and takes the default; set a negative value to disable
	// corrective redos entirely.
	LowConfidenceThreshold float64 `yaml:"low_confidence_threshold"`

	// MaxIterationsPerGoal bounds refinement rounds for a single goal.
	MaxIterationsPerGoal int `yaml:"max_iterations_per_goal"`

	// IdleInterval is the sleep between sweeps when the project is caught up.
	IdleInterval time.Duration `yaml:"idle_interval"`

	// BackoffBase and BackoffCap shape the failure backoff curve:
	// backoff = BackoffBase * min(consecutiveErrors, BackoffCap).
	BackoffBase time.Duration `yaml:"backoff_base"`
	BackoffCap  int           `yaml:"backoff_cap"`

	// DailyQuotaLimit caps completed iterations per project per UTC day.
	DailyQuotaLimit int `yaml:"daily_quota_limit"`

	// DuplicateLimit stops the loop after this many consecutive identical
	// goal selections.
	DuplicateLimit int `yaml:"duplicate_limit"`

	// CandidateCount is how many questions the exploratory strategy
	// requests from the generator per selection.
	CandidateCount int `yaml:"candidate_count"`

	// ExecutorRatePerMinute throttles executor invocations across a loop.
	ExecutorRatePerMinute float64 `yaml:"executor_rate_per_minute"`
}

// Config is the global configuration.
type Config struct {
	Tuning Tuning `yaml:"tuning"`

	// Projects maps project IDs to their directories, so daemon-style
	// invocations can supervise several loops at once.
	Projects map[string]string `yaml:"projects,omitempty"`
}

// Defaults returns the default tuning values.
func Defaults() Tuning {
	return Tuning{
		CompletionThreshold:    0.8,
		LowConfidenceThreshold: 0.3,
		MaxIterationsPerGoal:   5,
		IdleInterval:           30 * time.Minute,
		BackoffBase:            time.Minute,
		BackoffCap:             10,
		DailyQuotaLimit:        50,
		DuplicateLimit:         3,
		CandidateCount:         5,
		ExecutorRatePerMinute:  6,
	}
}

// Dir returns the sweep config directory (~/.sweep), creating it if needed.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sweep"
	}
	dir := filepath.Join(home, ".sweep")
	os.MkdirAll(dir, 0755)
	return dir
}

func configPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads the global config, applying defaults for unset tuning values.
// A missing file yields a pure-defaults config.
func Load() (*Config, error) {
	cfg := &Config{Tuning: Defaults()}

	data, err := os.ReadFile(configPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Tuning = applyDefaults(cfg.Tuning)
	if err := validate(cfg.Tuning); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the global config.
func Save(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath(), data, 0644)
}

func applyDefaults(t Tuning) Tuning {
	d := Defaults()
	if t.CompletionThreshold == 0 {
		t.CompletionThreshold = d.CompletionThreshold
	}
	if t.LowConfidenceThreshold == 0 {
		t.LowConfidenceThreshold = d.LowConfidenceThreshold
	}
	if t.MaxIterationsPerGoal == 0 {
		t.MaxIterationsPerGoal = d.MaxIterationsPerGoal
	}
	if t.IdleInterval == 0 {
		t.IdleInterval = d.IdleInterval
	}
	if t.BackoffBase == 0 {
		t.BackoffBase = d.BackoffBase
	}
	if t.BackoffCap == 0 {
		t.BackoffCap = d.BackoffCap
	}
	if t.DailyQuotaLimit == 0 {
		t.DailyQuotaLimit = d.DailyQuotaLimit
	}
	if t.DuplicateLimit == 0 {
		t.DuplicateLimit = d.DuplicateLimit
	}
	if t.CandidateCount == 0 {
		t.CandidateCount = d.CandidateCount
	}
	if t.ExecutorRatePerMinute == 0 {
		t.ExecutorRatePerMinute = d.ExecutorRatePerMinute
	}
	return t
}

func validate(t Tuning) error {
	if t.CompletionThreshold <= 0 || t.CompletionThreshold > 1 {
		return fmt.Errorf("completion_threshold must be in (0,1], got %v", t.CompletionThreshold)
	}
	if t.LowConfidenceThreshold >= t.CompletionThreshold {
		return fmt.Errorf("low_confidence_threshold must be below completion_threshold, got %v", t.LowConfidenceThreshold)
	}
	if t.MaxIterationsPerGoal < 1 {
		return fmt.Errorf("max_iterations_per_goal must be >= 1, got %d", t.MaxIterationsPerGoal)
	}
	if t.BackoffBase <= 0 {
		return fmt.Errorf("backoff_base must be positive, got %v", t.BackoffBase)
	}
	if t.BackoffCap < 1 {
		return fmt.Errorf("backoff_cap must be >= 1, got %d", t.BackoffCap)
	}
	if t.DailyQuotaLimit < 1 {
		return fmt.Errorf("daily_quota_limit must be >= 1, got %d", t.DailyQuotaLimit)
	}
	if t.DuplicateLimit < 1 {
		return fmt.Errorf("duplicate_limit must be >= 1, got %d", t.DuplicateLimit)
	}
	return nil
}
