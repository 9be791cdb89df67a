package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List finished reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStoreRequired()
		if err != nil {
			return err
		}
		reports, err := s.ListReports()
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			fmt.Println("No reports yet.")
			return nil
		}

		printHeader(fmt.Sprintf("Reports (%d)", len(reports)))
		for _, r := range reports {
			marker := styleBoldGreen + "done" + colorReset
			if !r.Terminal {
				marker = colorYellow + "partial" + colorReset
			}
			fmt.Printf("  %s%s%s  %s  %.0f%%  %s  %s%s%s\n",
				colorDim, r.Created.Local().Format("2006-01-02 15:04"), colorReset,
				marker,
				r.Completeness*100,
				r.GoalID,
				colorDim, r.ID, colorReset,
			)
		}
		fmt.Println()
		return nil
	},
}

var reportShowCmd = &cobra.Command{
	Use:   "show <report-id>",
	Short: "Print one report's metadata and payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStoreRequired()
		if err != nil {
			return err
		}
		rep, err := s.GetReport(args[0])
		if err != nil {
			return err
		}

		printHeader(rep.GoalText)
		printField("Goal", rep.GoalID)
		printField("Completeness", fmt.Sprintf("%.0f%%", rep.Completeness*100))
		printField("Terminal", fmt.Sprintf("%t", rep.Terminal))
		printField("Iterations", fmt.Sprintf("%d", rep.Iterations))
		printField("Created", rep.Created.Local().Format(time.RFC822))
		for _, m := range rep.MissingSections {
			printFieldColored("Missing", m, colorYellow)
		}
		for _, f := range rep.FollowUps {
			printField("Follow-up", f)
		}

		payload, err := s.ReportPayload(rep.ID)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s\n", payload)
		return nil
	},
}

func init() {
	reportsCmd.AddCommand(reportShowCmd)
	rootCmd.AddCommand(reportsCmd)
}
