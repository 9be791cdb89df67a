package cli

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/smancode/sweep/internal/buildinfo"
	"github.com/smancode/sweep/internal/debug"
)

const (
	// ANSI color codes
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"

	// Combined styles
	styleBoldCyan   = "\033[1;36m"
	styleBoldGreen  = "\033[1;32m"
	styleBoldWhite  = "\033[1;37m"
	styleBoldYellow = "\033[1;33m"
)

var rootCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Unattended background analysis loops for software projects",
	Long: styleBoldCyan + `sweep` + colorReset + ` v` + buildinfo.Current().Version + ` — unattended background analysis loops.

Each loop repeatedly picks a unit of analytical work for a project, runs it
through an external reasoning command, judges whether the result is good
enough, and either finalizes a report or iterates with follow-ups. Loops
checkpoint every phase transition and resume after crashes; a doom-loop
guard enforces backoff, daily quotas, and duplicate detection.

` + colorBold + `Getting Started:` + colorReset + `
  sweep init --name my-project     Initialize a project
  sweep run                        Run the analysis loop in the foreground
  sweep status                     Show loop state and guard counters
  sweep reports                    List finished reports
  sweep stop                       Signal a running loop to stop`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Bare `sweep` in an interactive terminal shows the styled status
		// view; piped output gets plain help instead.
		if !isatty.IsTerminal(os.Stdout.Fd()) {
			return cmd.Help()
		}
		s, err := openStore()
		if err != nil || !s.Exists() {
			return cmd.Help()
		}
		return runStatus(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.PersistentFlags().Bool("debug", false, "Enable verbose debug logging to ~/.sweep/debug/")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		debugFlag, _ := cmd.Flags().GetBool("debug")
		if !debugFlag && !debug.ShouldEnableFromEnv() {
			return nil
		}
		logPath, err := debug.Init()
		if err != nil {
			return fmt.Errorf("initializing debug logger: %w", err)
		}
		fmt.Fprintf(os.Stderr, "%s[debug]%s logging to %s\n", colorDim, colorReset, logPath)
		debug.LogKV("cli", "sweep starting",
			"version", buildinfo.Current().Version,
			"pid", os.Getpid(),
			"command", cmd.Name(),
			"args", args,
		)
		return nil
	}
}

// Execute runs the root command.
func Execute() {
	defer debug.Close()
	if err := rootCmd.Execute(); err != nil {
		debug.Logf("cli", "exit with error: %v", err)
		fmt.Fprintf(os.Stderr, "%sError: %s%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	debug.Log("cli", "exit success")
}
