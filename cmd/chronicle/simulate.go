package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/sundog-ai/chronicle/internal/logger"
	"github.com/sundog-ai/chronicle/internal/simulate"
)

var (
	simSessions    int
	simConcurrency int
	simSeed        int64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Generate synthetic multi-agent sessions through the write path",
	Long: `Simulate drives complete research-session event sequences through the
logging façade, exercising rotation, retention, and concurrent writes.

Example:
  chronicle simulate --sessions 50 --log-dir /tmp/chronicle-logs`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().IntVarP(&simSessions, "sessions", "n", 10, "Number of sessions to generate")
	simulateCmd.Flags().IntVar(&simConcurrency, "concurrency", 4, "Concurrent sessions")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "Random seed (0 derives one from --sessions)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry := logger.NewRegistry(cfg.LogDir, cfg.RetentionDays)
	defer func() {
		if closeErr := registry.Close(); closeErr != nil {
			fmt.Fprintln(os.Stderr, errStyle.Render("close: "+closeErr.Error()))
		}
	}()
	lg := logger.New(cfg, registry)

	bar := progressbar.NewOptions(simSessions,
		progressbar.OptionSetDescription("simulating"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
	)

	report, err := simulate.Run(cmd.Context(), lg, simulate.Options{
		Sessions:    simSessions,
		Concurrency: simConcurrency,
		Seed:        simSeed,
		OnSessionDone: func(string) {
			_ = bar.Add(1)
		},
	})
	if err != nil {
		return err
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	fmt.Println(okStyle.Render(fmt.Sprintf("wrote %d events across %d sessions under %s",
		report.Events, report.Sessions, cfg.LogDir)))
	return nil
}
