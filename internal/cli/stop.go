package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Signal a running loop to stop",
	Long: `Signal the loop running for this project to stop. The signal is a file in
the project store, so it reaches a loop running in another process. The loop
notices it at the next phase boundary or sleep poll.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStoreRequired()
		if err != nil {
			return err
		}
		if err := s.SignalStop("user requested"); err != nil {
			return err
		}
		fmt.Printf("%sStop requested.%s The loop will halt at the next phase boundary.\n", styleBoldYellow, colorReset)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
