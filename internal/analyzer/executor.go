// Package analyzer provides the default collaborator implementations: a
// command-based executor and question generator, a report-backed oracle,
// and a store-backed sink. The reasoning engine itself stays external — any
// CLI that reads a prompt on stdin and prints a JSON result works.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/smancode/sweep/internal/debug"
	"github.com/smancode/sweep/internal/engine"
	"github.com/smancode/sweep/internal/goal"
)

// commandResult is the JSON contract the analyzer command prints on stdout.
type commandResult struct {
	Payload         string   `json:"payload"`
	Completeness    float64  `json:"completeness"`
	MissingSections []string `json:"missing_sections"`
	FollowUps       []string `json:"follow_ups"`
}

// CommandExecutor runs the configured analyzer command once per goal
// attempt. The prompt is piped to stdin; goal metadata rides in the
// environment so re-invocations after a crash are self-describing.
type CommandExecutor struct {
	ProjectID string
	Command   string
	WorkDir   string
}

func (e *CommandExecutor) Execute(ctx context.Context, g *goal.Goal) (*engine.Result, error) {
	name, args, err := splitCommand(e.Command)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.WorkDir
	cmd.Env = append(os.Environ(),
		"SWEEP_PROJECT_ID="+e.ProjectID,
		"SWEEP_GOAL_ID="+g.ID,
		fmt.Sprintf("SWEEP_ITERATION=%d", g.Iteration+1),
	)
	cmd.Stdin = strings.NewReader(buildPrompt(g))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	debug.LogKV("analyzer", "executor command starting",
		"project", e.ProjectID,
		"goal", g.ID,
		"binary", name,
	)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("analyzer command failed: %w (stderr: %s)", err, firstLine(stderr.String()))
	}

	var res commandResult
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		return nil, fmt.Errorf("parsing analyzer output: %w", err)
	}
	if res.Completeness < 0 {
		res.Completeness = 0
	}
	if res.Completeness > 1 {
		res.Completeness = 1
	}

	return &engine.Result{
		Payload:         res.Payload,
		Completeness:    res.Completeness,
		MissingSections: res.MissingSections,
		FollowUps:       res.FollowUps,
	}, nil
}

// buildPrompt renders the goal and its accumulated follow-ups as the
// analyzer prompt.
func buildPrompt(g *goal.Goal) string {
	var b strings.Builder
	b.WriteString("# Objective\n\n")
	b.WriteString(g.Text)
	b.WriteString("\n")

	if len(g.FollowUps) > 0 {
		b.WriteString("\n# Follow-ups from previous rounds\n\n")
		for _, f := range g.FollowUps {
			b.WriteString("- ")
			b.WriteString(f)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// splitCommand breaks a configured command line into binary and arguments.
// No shell is involved; quoting is not supported.
func splitCommand(command string) (string, []string, error) {
	fields := strings.Fields(strings.TrimSpace(command))
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("no analyzer command configured")
	}
	return fields[0], fields[1:], nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
