package cli

import (
	"path/filepath"
	"testing"

	"github.com/smancode/sweep/internal/store"
)

func TestProjectDirHonorsEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SWEEP_PROJECT_DIR", dir)

	got, err := projectDir()
	if err != nil {
		t.Fatalf("projectDir() error: %v", err)
	}
	want, _ := filepath.Abs(dir)
	if got != want {
		t.Errorf("projectDir() = %q, want %q", got, want)
	}
}

func TestOpenStoreRequiredFailsUninitialized(t *testing.T) {
	t.Setenv("SWEEP_PROJECT_DIR", t.TempDir())

	if _, err := openStoreRequired(); err == nil {
		t.Fatal("openStoreRequired() should fail without an initialized project")
	}
}

func TestOpenStoreRequiredFindsProject(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SWEEP_PROJECT_DIR", dir)

	s, err := store.New(dir)
	if err != nil {
		t.Fatalf("store.New() error: %v", err)
	}
	if err := s.Init(store.ProjectConfig{ProjectID: "proj", Name: "proj", Strategy: store.StrategyStructured}); err != nil {
		t.Fatalf("store.Init() error: %v", err)
	}

	got, err := openStoreRequired()
	if err != nil {
		t.Fatalf("openStoreRequired() error: %v", err)
	}
	if !got.Exists() {
		t.Error("opened store does not see the project")
	}
}

func TestStopReasonLabel(t *testing.T) {
	if got := stopReasonLabel(store.StopNone); got != "none" {
		t.Errorf("label for StopNone = %q", got)
	}
	if got := stopReasonLabel(store.StopQuotaExhausted); got != "quota_exhausted" {
		t.Errorf("label = %q", got)
	}
}
