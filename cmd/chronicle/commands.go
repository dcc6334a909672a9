package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/sundog-ai/chronicle/internal/analyze"
	"github.com/sundog-ai/chronicle/internal/event"
)

// Styles for human-readable output.
var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00CC66"))
)

var (
	sinceFlag    string
	untilFlag    string
	jsonFlag     bool
	categoryFlag string
	fieldFlag    string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions <session-id>",
	Short: "Print a session's merged event timeline across all categories",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessions,
}

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Summarize a numeric field over one category",
	Long: `Aggregate computes count, sum, mean, min, and max of a numeric field.

Examples:
  chronicle aggregate --category tool --field duration_ms
  chronicle aggregate --category performance --field value --since 2026-08-01`,
	RunE: runAggregate,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-category event counts",
	RunE:  runStats,
}

func init() {
	for _, cmd := range []*cobra.Command{sessionsCmd, aggregateCmd, statsCmd} {
		cmd.Flags().StringVar(&sinceFlag, "since", "", "Lower time bound (RFC 3339 or YYYY-MM-DD)")
		cmd.Flags().StringVar(&untilFlag, "until", "", "Upper time bound (RFC 3339 or YYYY-MM-DD)")
	}
	sessionsCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print raw JSON lines instead of the formatted view")

	aggregateCmd.Flags().StringVarP(&categoryFlag, "category", "c", "", "Event category (required)")
	aggregateCmd.Flags().StringVarP(&fieldFlag, "field", "f", "", "Numeric field name (required)")
	_ = aggregateCmd.MarkFlagRequired("category")
	_ = aggregateCmd.MarkFlagRequired("field")
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tr, err := parseTimeRange(sinceFlag, untilFlag)
	if err != nil {
		return err
	}

	result, err := analyze.New(cfg.LogDir).SessionEvents(cmd.Context(), args[0], tr)
	if err != nil {
		return err
	}

	for _, e := range result.Events {
		if jsonFlag {
			line, encErr := event.Encode(e)
			if encErr != nil {
				continue
			}
			fmt.Println(string(line))
			continue
		}
		fmt.Println(formatEvent(e))
	}

	fmt.Println()
	fmt.Println(mutedStyle.Render(fmt.Sprintf("%d events", len(result.Events))))
	if result.Malformed > 0 {
		fmt.Println(errStyle.Render(fmt.Sprintf("%d malformed lines skipped", result.Malformed)))
	}
	return nil
}

func runAggregate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := event.ParseCategory(categoryFlag)
	if err != nil {
		return err
	}
	tr, err := parseTimeRange(sinceFlag, untilFlag)
	if err != nil {
		return err
	}

	s, err := analyze.New(cfg.LogDir).Aggregate(cmd.Context(), cat, fieldFlag, tr)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("%s.%s", cat, fieldFlag)))
	if s.Count == 0 {
		fmt.Println(mutedStyle.Render("no matching events"))
		return nil
	}
	fmt.Printf("  count  %d\n", s.Count)
	fmt.Printf("  sum    %.3f\n", s.Sum)
	fmt.Printf("  mean   %.3f\n", s.Mean)
	fmt.Printf("  min    %.3f\n", s.Min)
	fmt.Printf("  max    %.3f\n", s.Max)
	if s.Malformed > 0 {
		fmt.Println(errStyle.Render(fmt.Sprintf("  %d malformed lines skipped", s.Malformed)))
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tr, err := parseTimeRange(sinceFlag, untilFlag)
	if err != nil {
		return err
	}

	stats, err := analyze.New(cfg.LogDir).Stats(cmd.Context(), tr)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("category      events  errors  sessions  malformed"))
	var totalEvents, totalMalformed int
	for _, cat := range event.Categories() {
		cs := stats[cat]
		totalEvents += cs.Events
		totalMalformed += cs.Malformed
		line := fmt.Sprintf("%-12s %7d %7d %9d %10d", cat, cs.Events, cs.Errors, cs.Sessions, cs.Malformed)
		if cs.Errors > 0 {
			fmt.Println(errStyle.Render(line))
		} else {
			fmt.Println(line)
		}
	}
	fmt.Println(mutedStyle.Render(fmt.Sprintf("total: %d events, %d malformed", totalEvents, totalMalformed)))
	return nil
}

// formatEvent renders one event as a compact single line for terminal reading.
func formatEvent(e event.Event) string {
	var b strings.Builder
	b.WriteString(mutedStyle.Render(e.Timestamp.Format("2006-01-02 15:04:05.000")))
	b.WriteByte(' ')
	if e.Level >= event.LevelError {
		b.WriteString(errStyle.Render(fmt.Sprintf("%-8s", e.Level)))
	} else {
		b.WriteString(okStyle.Render(fmt.Sprintf("%-8s", e.Level)))
	}
	b.WriteByte(' ')
	b.WriteString(titleStyle.Render(fmt.Sprintf("%-12s", e.Category)))

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k].Any())
	}
	return b.String()
}
