package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/smancode/sweep/internal/buildinfo"
	"github.com/smancode/sweep/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective global configuration",
	Long: `Show the effective tuning values: defaults merged with overrides from
~/.sweep/config.yaml. Edit that file to change them; unset keys keep their
defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("%s# %s%s\n%s", colorDim, config.Dir(), colorReset, data)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := buildinfo.Current()
		fmt.Printf("sweep %s (%s)\n", info.Version, info.Commit)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
