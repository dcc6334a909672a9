// Chronicle records and inspects structured multi-agent event logs: one JSON
// line per event, one dated file per category per day.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sundog-ai/chronicle/internal/analyze"
	"github.com/sundog-ai/chronicle/internal/config"
)

var version = "0.1.0"

// Persistent flags shared by all subcommands.
var (
	cfgFile string
	logDir  string
)

var rootCmd = &cobra.Command{
	Use:   "chronicle",
	Short: "Query and generate structured agent event logs",
	Long: `Chronicle inspects the per-category, date-rotated event logs written by the
logging engine: session timelines, numeric aggregates, live tailing, and a
synthetic traffic generator for exercising the write path.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	setupLogging()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging initializes the diagnostic logger from the environment.
func setupLogging() {
	level, err := zerolog.ParseLevel(os.Getenv("CHRONICLE_LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)

	if os.Getenv("CHRONICLE_LOG_FORMAT") == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (environment still overrides)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "log root directory (overrides config)")

	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(simulateCmd)
}

// loadConfig resolves configuration for a command invocation.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if logDir != "" {
		cfg.LogDir = logDir
	}
	return cfg, nil
}

// parseTimeRange builds a scan range from --since/--until flag values, which
// accept RFC 3339 timestamps or plain ISO dates.
func parseTimeRange(since, until string) (analyze.TimeRange, error) {
	var tr analyze.TimeRange

	parse := func(s string) (time.Time, error) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, nil
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid time %q (want RFC 3339 or YYYY-MM-DD)", s)
		}
		return t, nil
	}

	if since != "" {
		t, err := parse(since)
		if err != nil {
			return tr, err
		}
		tr.From = t
	}
	if until != "" {
		t, err := parse(until)
		if err != nil {
			return tr, err
		}
		// A bare date as the upper bound means the whole day.
		if len(until) == len("2006-01-02") {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		tr.To = t
	}
	return tr, nil
}
