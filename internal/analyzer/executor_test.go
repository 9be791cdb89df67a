package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smancode/sweep/internal/goal"
)

// writeScript drops an executable shell script into a temp dir and returns
// its path.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analyzer.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("writing script: %v", err)
	}
	return path
}

func TestExecuteParsesCommandOutput(t *testing.T) {
	script := writeScript(t, `cat > /dev/null
echo '{"payload":"# Findings","completeness":0.85,"missing_sections":["data layer"],"follow_ups":["check caching"]}'`)

	e := &CommandExecutor{ProjectID: "proj", Command: script}
	res, err := e.Execute(context.Background(), &goal.Goal{ID: "arch", Text: "Architecture overview"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.Payload != "# Findings" {
		t.Errorf("Payload = %q", res.Payload)
	}
	if res.Completeness != 0.85 {
		t.Errorf("Completeness = %v, want 0.85", res.Completeness)
	}
	if len(res.MissingSections) != 1 || len(res.FollowUps) != 1 {
		t.Errorf("sections/follow-ups = %v / %v", res.MissingSections, res.FollowUps)
	}
}

func TestExecuteClampsCompleteness(t *testing.T) {
	script := writeScript(t, `cat > /dev/null
echo '{"payload":"p","completeness":1.7}'`)

	e := &CommandExecutor{ProjectID: "proj", Command: script}
	res, err := e.Execute(context.Background(), &goal.Goal{ID: "arch", Text: "t"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.Completeness != 1 {
		t.Errorf("Completeness = %v, want clamped to 1", res.Completeness)
	}
}

func TestExecuteReceivesPromptAndEnv(t *testing.T) {
	out := filepath.Join(t.TempDir(), "captured")
	script := writeScript(t, `cat > `+out+`
echo "$SWEEP_GOAL_ID $SWEEP_ITERATION" >> `+out+`
echo '{"payload":"p","completeness":0.9}'`)

	e := &CommandExecutor{ProjectID: "proj", Command: script}
	g := &goal.Goal{
		ID:        "arch",
		Text:      "Architecture overview",
		FollowUps: []string{"cover the data layer"},
		Iteration: 2,
	}
	if _, err := e.Execute(context.Background(), g); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading capture: %v", err)
	}
	captured := string(data)
	if !strings.Contains(captured, "Architecture overview") {
		t.Error("prompt missing the goal text")
	}
	if !strings.Contains(captured, "cover the data layer") {
		t.Error("prompt missing the follow-up")
	}
	if !strings.Contains(captured, "arch 3") {
		t.Errorf("environment not passed, capture: %q", captured)
	}
}

func TestExecuteSurfacesCommandFailure(t *testing.T) {
	script := writeScript(t, `echo "model overloaded" >&2
exit 1`)

	e := &CommandExecutor{ProjectID: "proj", Command: script}
	_, err := e.Execute(context.Background(), &goal.Goal{ID: "arch", Text: "t"})
	if err == nil {
		t.Fatal("Execute() should fail when the command exits non-zero")
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Errorf("error %q missing stderr excerpt", err)
	}
}

func TestExecuteRejectsMalformedOutput(t *testing.T) {
	script := writeScript(t, `cat > /dev/null
echo "not json"`)

	e := &CommandExecutor{ProjectID: "proj", Command: script}
	if _, err := e.Execute(context.Background(), &goal.Goal{ID: "arch", Text: "t"}); err == nil {
		t.Fatal("Execute() should fail on non-JSON output")
	}
}

func TestBuildPrompt(t *testing.T) {
	g := &goal.Goal{Text: "Architecture overview"}
	p := buildPrompt(g)
	if !strings.Contains(p, "# Objective") || !strings.Contains(p, "Architecture overview") {
		t.Errorf("prompt = %q", p)
	}
	if strings.Contains(p, "Follow-ups") {
		t.Error("prompt mentions follow-ups with none present")
	}

	g.FollowUps = []string{"first", "second"}
	p = buildPrompt(g)
	if !strings.Contains(p, "- first") || !strings.Contains(p, "- second") {
		t.Errorf("prompt missing follow-up bullets: %q", p)
	}
}

func TestSplitCommand(t *testing.T) {
	name, args, err := splitCommand("  analyze --json -v  ")
	if err != nil {
		t.Fatalf("splitCommand() error: %v", err)
	}
	if name != "analyze" || len(args) != 2 {
		t.Errorf("splitCommand() = %q %v", name, args)
	}

	if _, _, err := splitCommand("   "); err == nil {
		t.Error("splitCommand() accepted an empty command")
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("one\ntwo\nthree"); got != "one" {
		t.Errorf("firstLine() = %q", got)
	}
	long := strings.Repeat("x", 300)
	if got := firstLine(long); len(got) != 200 {
		t.Errorf("firstLine() length = %d, want 200", len(got))
	}
}
