package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smancode/sweep/internal/analyzer"
	"github.com/smancode/sweep/internal/store"
)

var staleCmd = &cobra.Command{
	Use:   "stale <topic-id>...",
	Short: "Flag topics for rework",
	Long: `Flag one or more topics as stale. The structured strategy re-selects a
flagged topic on its next sweep even when its last report was complete.
Intended for change-detection hooks (e.g. a post-merge git hook).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStoreRequired()
		if err != nil {
			return err
		}
		proj, err := s.LoadProject()
		if err != nil {
			return err
		}

		known := make(map[string]bool, len(proj.Topics))
		for _, t := range proj.Topics {
			known[t.ID] = true
		}

		oracle := &analyzer.StoreOracle{Store: s}
		for _, id := range args {
			if proj.Strategy == store.StrategyStructured && !known[id] {
				return fmt.Errorf("unknown topic %q", id)
			}
			if err := oracle.MarkStale(id); err != nil {
				return err
			}
			fmt.Printf("Flagged %s%s%s for rework.\n", colorBold, id, colorReset)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(staleCmd)
}
