package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/smancode/sweep/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the iteration ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStoreRequired()
		if err != nil {
			return err
		}
		proj, err := s.LoadProject()
		if err != nil {
			return err
		}

		ledger, err := history.Open(filepath.Join(s.Root(), "history.db"))
		if err != nil {
			return fmt.Errorf("opening iteration ledger: %w", err)
		}
		defer ledger.Close()

		total, successful, err := ledger.Totals(proj.ProjectID)
		if err != nil {
			return err
		}
		entries, err := ledger.List(proj.ProjectID, historyLimit)
		if err != nil {
			return err
		}

		printHeader("Iterations")
		printField("Total", fmt.Sprintf("%d", total))
		printField("Successful", fmt.Sprintf("%d", successful))
		fmt.Println()

		for _, e := range entries {
			color := colorGreen
			switch e.Outcome {
			case history.OutcomeFailed:
				color = colorRed
			case history.OutcomePartial:
				color = colorYellow
			}
			line := fmt.Sprintf("  %s%s%s  %s%-9s%s  %.0f%%  %s",
				colorDim, e.FinishedAt.Local().Format("2006-01-02 15:04"), colorReset,
				color, e.Outcome, colorReset,
				e.Completeness*100,
				e.GoalID,
			)
			if e.Error != "" {
				line += fmt.Sprintf("  %s%s%s", colorRed, e.Error, colorReset)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of entries to show")
	rootCmd.AddCommand(historyCmd)
}
