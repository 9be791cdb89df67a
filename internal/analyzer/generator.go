package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/smancode/sweep/internal/debug"
	"github.com/smancode/sweep/internal/goal"
)

// generatorInput is the JSON document piped to the generator command.
type generatorInput struct {
	ProjectID string   `json:"project_id"`
	Avoid     []string `json:"avoid,omitempty"`
}

// generatorCandidate is one element of the JSON array the generator prints.
type generatorCandidate struct {
	Text     string  `json:"text"`
	Priority float64 `json:"priority"`
}

// CommandGenerator produces exploratory candidate questions by running the
// configured generator command.
type CommandGenerator struct {
	ProjectID string
	Command   string
	WorkDir   string
}

func (g *CommandGenerator) Generate(ctx context.Context, projectID string, avoid []string) ([]goal.Candidate, error) {
	name, args, err := splitCommand(g.Command)
	if err != nil {
		return nil, err
	}

	input, err := json.Marshal(generatorInput{ProjectID: projectID, Avoid: avoid})
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = g.WorkDir
	cmd.Env = append(os.Environ(), "SWEEP_PROJECT_ID="+projectID)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	debug.LogKV("analyzer", "generator command starting",
		"project", projectID,
		"binary", name,
		"avoid", len(avoid),
	)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("generator command failed: %w (stderr: %s)", err, firstLine(stderr.String()))
	}

	var raw []generatorCandidate
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		return nil, fmt.Errorf("parsing generator output: %w", err)
	}

	cands := make([]goal.Candidate, 0, len(raw))
	for _, c := range raw {
		if c.Text == "" {
			continue
		}
		cands = append(cands, goal.Candidate{Text: c.Text, Priority: c.Priority})
	}
	return cands, nil
}
