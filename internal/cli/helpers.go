package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/smancode/sweep/internal/store"
)

// projectDir resolves the project directory: SWEEP_PROJECT_DIR if set,
// otherwise the current working directory.
func projectDir() (string, error) {
	if dir := os.Getenv("SWEEP_PROJECT_DIR"); dir != "" {
		return filepath.Abs(dir)
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	return dir, nil
}

// openStore opens the store for the resolved project directory. The store
// may not be initialized yet; callers check Exists when that matters.
func openStore() (*store.Store, error) {
	dir, err := projectDir()
	if err != nil {
		return nil, err
	}
	return store.New(dir)
}

// openStoreRequired opens the store and fails when the project has not been
// initialized.
func openStoreRequired() (*store.Store, error) {
	s, err := openStore()
	if err != nil {
		return nil, err
	}
	if !s.Exists() {
		return nil, fmt.Errorf("no sweep project here; run %ssweep init%s first", colorBold, colorReset)
	}
	return s, nil
}

func printHeader(title string) {
	fmt.Printf("\n%s%s%s\n", styleBoldWhite, title, colorReset)
}

func printField(label, value string) {
	fmt.Printf("  %s%-22s%s %s\n", colorDim, label, colorReset, value)
}

func printFieldColored(label, value, color string) {
	fmt.Printf("  %s%-22s%s %s%s%s\n", colorDim, label, colorReset, color, value, colorReset)
}

// phaseColor picks a display color for a loop phase.
func phaseColor(p store.Phase) string {
	switch p {
	case store.PhaseExecuting, store.PhaseEvaluating, store.PhasePersisting:
		return colorGreen
	case store.PhaseStopped:
		return colorRed
	case store.PhaseIdle:
		return colorDim
	default:
		return colorYellow
	}
}
