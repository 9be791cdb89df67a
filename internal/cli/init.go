package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/smancode/sweep/internal/config"
	"github.com/smancode/sweep/internal/store"
)

var (
	initName         string
	initStrategy     string
	initTopics       []string
	initAnalyzerCmd  string
	initGeneratorCmd string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sweep project in the current directory",
	Long: `Initialize a sweep project. Creates a ` + colorBold + `.sweep/` + colorReset + ` directory holding the
project config, loop checkpoints, guard counters, and the report archive.

Structured projects analyze a fixed topic catalogue in order; exploratory
projects ask a generator command for candidate questions. Topics are given
as ` + colorBold + `id:title` + colorReset + ` pairs, optionally ` + colorBold + `id:title:hint` + colorReset + `.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "Project name (defaults to directory name)")
	initCmd.Flags().StringVar(&initStrategy, "strategy", store.StrategyStructured, "Goal selection strategy: structured or exploratory")
	initCmd.Flags().StringArrayVar(&initTopics, "topic", nil, "Topic as id:title[:hint] (repeatable; structured strategy)")
	initCmd.Flags().StringVar(&initAnalyzerCmd, "analyzer-cmd", "", "Command run per goal; reads a prompt on stdin, prints JSON")
	initCmd.Flags().StringVar(&initGeneratorCmd, "generator-cmd", "", "Command producing candidate questions (exploratory strategy)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := projectDir()
	if err != nil {
		return err
	}

	s, err := store.New(dir)
	if err != nil {
		return err
	}
	if s.Exists() {
		return fmt.Errorf("project already initialized at %s", s.Root())
	}

	if initStrategy != store.StrategyStructured && initStrategy != store.StrategyExploratory {
		return fmt.Errorf("unknown strategy %q (want %s or %s)", initStrategy, store.StrategyStructured, store.StrategyExploratory)
	}

	topics, err := parseTopics(initTopics)
	if err != nil {
		return err
	}
	if initStrategy == store.StrategyStructured && len(topics) == 0 {
		return fmt.Errorf("structured strategy needs at least one --topic")
	}

	name := initName
	if name == "" {
		name = filepath.Base(dir)
	}

	cfg := store.ProjectConfig{
		ProjectID:        name,
		Name:             name,
		Strategy:         initStrategy,
		Topics:           topics,
		Created:          time.Now().UTC(),
		AnalyzerCommand:  initAnalyzerCmd,
		GeneratorCommand: initGeneratorCmd,
	}
	if err := s.Init(cfg); err != nil {
		return err
	}

	// Register the project globally so daemon-style invocations can find it.
	if global, err := config.Load(); err == nil {
		if global.Projects == nil {
			global.Projects = make(map[string]string)
		}
		global.Projects[name] = dir
		if err := config.Save(global); err != nil {
			fmt.Printf("%swarning:%s could not register project globally: %v\n", colorYellow, colorReset, err)
		}
	}

	printHeader("Project initialized")
	printField("Name", name)
	printField("Strategy", initStrategy)
	printField("Store", s.Root())
	if len(topics) > 0 {
		printField("Topics", fmt.Sprintf("%d", len(topics)))
	}
	fmt.Printf("\nRun %ssweep run%s to start the loop.\n", styleBoldGreen, colorReset)
	return nil
}

// parseTopics parses id:title[:hint] flag values. Catalogue order follows
// flag order.
func parseTopics(raw []string) ([]store.Topic, error) {
	topics := make([]store.Topic, 0, len(raw))
	seen := make(map[string]bool)
	for _, r := range raw {
		parts := strings.SplitN(r, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid topic %q: want id:title[:hint]", r)
		}
		if seen[parts[0]] {
			return nil, fmt.Errorf("duplicate topic id %q", parts[0])
		}
		seen[parts[0]] = true

		t := store.Topic{ID: parts[0], Title: parts[1]}
		if len(parts) == 3 {
			t.Hint = parts[2]
		}
		topics = append(topics, t)
	}
	return topics, nil
}
