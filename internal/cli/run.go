package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smancode/sweep/internal/analyzer"
	"github.com/smancode/sweep/internal/config"
	"github.com/smancode/sweep/internal/debug"
	"github.com/smancode/sweep/internal/engine"
	"github.com/smancode/sweep/internal/goal"
	"github.com/smancode/sweep/internal/guard"
	"github.com/smancode/sweep/internal/history"
	"github.com/smancode/sweep/internal/manager"
	"github.com/smancode/sweep/internal/store"
)

// shutdownGrace bounds how long Ctrl-C waits for the loop to reach a phase
// boundary before the process gives up on a clean drain.
const shutdownGrace = 30 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the analysis loop in the foreground",
	Long: `Run the analysis loop for this project until it stops or is interrupted.

The loop checkpoints every phase transition, so a crashed or killed run
resumes where it left off. Ctrl-C requests a cooperative stop and waits for
the current phase to finish.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	s, err := openStoreRequired()
	if err != nil {
		return err
	}
	proj, err := s.LoadProject()
	if err != nil {
		return fmt.Errorf("loading project config: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	t := cfg.Tuning

	// A stale stop signal from a previous run must not kill this one.
	s.ConsumeStopSignal()

	loop, ledger, err := buildLoop(s, proj, t)
	if err != nil {
		return err
	}
	if ledger != nil {
		defer ledger.Close()
	}

	printHeader("sweep run")
	printField("Project", proj.Name)
	printField("Strategy", proj.Strategy)
	printField("Store", s.Root())
	fmt.Println()

	mgr := manager.New()
	pre := &analyzer.Precondition{Config: proj}
	if err := mgr.Start(context.Background(), proj.ProjectID, loop, pre); err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		debug.LogKV("cli", "signal received", "signal", sig.String())
		fmt.Printf("\n%sStopping...%s\n", colorYellow, colorReset)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		mgr.Shutdown(ctx)
	}()

	mgr.Wait(proj.ProjectID)

	st := loop.Status()
	fmt.Printf("%sLoop stopped%s (reason: %s)\n", styleBoldYellow, colorReset, stopReasonLabel(st.StopReason))
	return nil
}

// buildLoop wires the engine from the project config and global tuning.
func buildLoop(s *store.Store, proj *store.ProjectConfig, t config.Tuning) (*engine.Loop, *history.Ledger, error) {
	g, err := guard.New(s, proj.ProjectID, guard.Limits{
		BackoffBase:     t.BackoffBase,
		BackoffCap:      t.BackoffCap,
		DailyQuotaLimit: t.DailyQuotaLimit,
		DuplicateLimit:  t.DuplicateLimit,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("loading guard state: %w", err)
	}

	workDir := filepath.Dir(s.Root())
	oracle := &analyzer.StoreOracle{Store: s, CompletionThreshold: t.CompletionThreshold}

	var provider goal.Provider
	switch proj.Strategy {
	case store.StrategyStructured:
		provider = goal.NewStructured(proj.Topics)
	case store.StrategyExploratory:
		gen := &analyzer.CommandGenerator{
			ProjectID: proj.ProjectID,
			Command:   proj.GeneratorCommand,
			WorkDir:   workDir,
		}
		provider = goal.NewExploratory(gen, proj.ProjectID, t.CandidateCount)
	default:
		return nil, nil, fmt.Errorf("unknown strategy %q in project config", proj.Strategy)
	}

	ledger, err := history.Open(filepath.Join(s.Root(), "history.db"))
	if err != nil {
		// The ledger is observability only; run without it.
		debug.Logf("cli", "iteration ledger unavailable: %v", err)
		ledger = nil
	}

	loop := &engine.Loop{
		Store:    s,
		Guard:    g,
		Provider: provider,
		Oracle:   oracle,
		Executor: &analyzer.CommandExecutor{
			ProjectID: proj.ProjectID,
			Command:   proj.AnalyzerCommand,
			WorkDir:   workDir,
		},
		Sink:   &analyzer.StoreSink{Store: s, Oracle: oracle},
		Ledger: ledger,
		Config: engine.Config{
			ProjectID:              proj.ProjectID,
			Strategy:               proj.Strategy,
			CompletionThreshold:    t.CompletionThreshold,
			LowConfidenceThreshold: t.LowConfidenceThreshold,
			MaxIterationsPerGoal:   t.MaxIterationsPerGoal,
			IdleInterval:           t.IdleInterval,
			ExecutorRatePerMinute:  t.ExecutorRatePerMinute,
		},
	}
	return loop, ledger, nil
}

func stopReasonLabel(r store.StopReason) string {
	if r == store.StopNone {
		return "none"
	}
	return string(r)
}
