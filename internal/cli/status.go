package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/smancode/sweep/internal/history"
	"github.com/smancode/sweep/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show loop state and guard counters",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openStoreRequired()
	if err != nil {
		return err
	}
	proj, err := s.LoadProject()
	if err != nil {
		return err
	}

	printHeader("Project")
	printField("Name", proj.Name)
	printField("Strategy", proj.Strategy)
	if proj.Strategy == store.StrategyStructured {
		printField("Topics", fmt.Sprintf("%d", len(proj.Topics)))
	}

	cp, err := s.LoadCheckpoint()
	switch {
	case errors.Is(err, store.ErrNotFound):
		printHeader("Loop")
		printFieldColored("Phase", "not running", colorDim)
	case err != nil:
		return err
	default:
		printHeader("Loop")
		printFieldColored("Phase", string(cp.Phase), phaseColor(cp.Phase))
		if cp.StopReason != store.StopNone {
			printFieldColored("Stop reason", string(cp.StopReason), colorRed)
		}
		printField("Total iterations", fmt.Sprintf("%d", cp.TotalIterations))
		printField("Successful", fmt.Sprintf("%d", cp.SuccessfulIterations))
		printField("Processed this round", fmt.Sprintf("%d", len(cp.ProcessedInRound)))
		if cp.CurrentGoal != nil {
			printField("Current goal", cp.CurrentGoal.ID)
			printField("Goal iteration", fmt.Sprintf("%d", cp.CurrentGoal.Iteration))
		}
		printField("Last updated", cp.LastUpdated.Local().Format(time.RFC822))
	}

	gs, err := s.LoadGuardState(proj.ProjectID)
	if err != nil {
		return err
	}
	printHeader("Guard")
	printField("Consecutive errors", fmt.Sprintf("%d", gs.ConsecutiveErrors))
	if until := gs.BackoffUntil; !until.IsZero() && until.After(time.Now()) {
		printFieldColored("Backoff until", until.Local().Format(time.RFC822), colorYellow)
	}
	printField("Quota used today", fmt.Sprintf("%d", gs.DailyQuotaUsed))
	if gs.ConsecutiveDuplicates > 0 {
		printFieldColored("Consecutive duplicates", fmt.Sprintf("%d", gs.ConsecutiveDuplicates), colorYellow)
	}

	// Lifetime totals from the iteration ledger, when one exists.
	if ledger, err := history.Open(filepath.Join(s.Root(), "history.db")); err == nil {
		total, successful, terr := ledger.Totals(proj.ProjectID)
		ledger.Close()
		if terr == nil && total > 0 {
			printHeader("Lifetime")
			printField("Iterations", fmt.Sprintf("%d", total))
			printField("Successful", fmt.Sprintf("%d", successful))
		}
	}

	if s.StopRequested() {
		fmt.Printf("\n%sA stop signal is pending.%s\n", colorYellow, colorReset)
	}
	fmt.Println()
	return nil
}
