package cmd

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/screenreel/internal/config"
	"github.com/Iron-Ham/screenreel/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View the debug log",
	Long: `View and filter the screenreel debug log.

Examples:
  # Last 50 entries
  screenreel logs

  # Warnings and errors from the last hour
  screenreel logs --level warn --since 1h

  # Everything one capture source logged, as JSON
  screenreel logs --source left -n 0 --json

  # Entries for one recording
  screenreel logs --recording ~/Movies/screenreel/recording_20240501_093015.mp4`,
	RunE: runLogs,
}

var (
	logsDir       string
	logsTail      int
	logsLevel     string
	logsSince     string
	logsSource    string
	logsRecording string
	logsComponent string
	logsGrep      string
	logsJSON      bool
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVar(&logsDir, "dir", "", "Log directory (default: logging.dir)")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show entries since a duration ago (e.g., 1h, 30m) or an RFC 3339 time")
	logsCmd.Flags().StringVar(&logsSource, "source", "", "Only entries for this capture source id")
	logsCmd.Flags().StringVar(&logsRecording, "recording", "", "Only entries for this recording path")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "Only entries from this component")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Only entries whose message contains this text")
	logsCmd.Flags().BoolVar(&logsJSON, "json", false, "Print entries as a JSON array")
}

func runLogs(cmd *cobra.Command, args []string) error {
	dir := logsDir
	if dir == "" {
		dir = config.Get().Logging.ResolveDir()
	}

	filter, err := buildLogFilter(time.Now())
	if err != nil {
		return err
	}

	entries, err := logging.ReadLogs(dir)
	if err != nil {
		return err
	}
	entries = logging.TailLogs(logging.FilterLogs(entries, filter), logsTail)

	if logsJSON {
		return logging.WriteJSON(cmd.OutOrStdout(), entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching log entries.")
		return nil
	}
	return logging.WriteText(cmd.OutOrStdout(), entries)
}

func buildLogFilter(now time.Time) (logging.LogFilter, error) {
	filter := logging.LogFilter{
		Level:           logsLevel,
		SourceID:        logsSource,
		Recording:       logsRecording,
		Component:       logsComponent,
		MessageContains: logsGrep,
	}
	if logsLevel != "" {
		if !slices.Contains(config.ValidLogLevels(), strings.ToLower(logsLevel)) {
			return filter, fmt.Errorf("invalid --level %q: must be one of %s", logsLevel, strings.Join(config.ValidLogLevels(), ", "))
		}
	}
	if logsSince != "" {
		since, err := parseSince(logsSince, now)
		if err != nil {
			return filter, err
		}
		filter.Since = since
	}
	return filter, nil
}

// parseSince accepts a duration before now or an absolute RFC 3339 time.
func parseSince(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("invalid --since %q: duration must not be negative", s)
		}
		return now.Add(-d), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --since %q: use a duration like 1h or an RFC 3339 time", s)
}
