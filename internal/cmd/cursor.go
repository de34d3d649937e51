package cmd

import (
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/screenreel/internal/cursor"
)

var cursorCmd = &cobra.Command{
	Use:   "cursor",
	Short: "Inspect the cursor samples of a recording",
}

var cursorShowCmd = &cobra.Command{
	Use:   "show <recording.mp4>",
	Short: "Summarise the cursor samples saved next to a recording",
	Args:  cobra.ExactArgs(1),
	RunE:  runCursorShow,
}

var cursorJSON bool

func init() {
	rootCmd.AddCommand(cursorCmd)
	cursorCmd.AddCommand(cursorShowCmd)

	cursorShowCmd.Flags().BoolVar(&cursorJSON, "json", false, "Print every sample as JSON")
}

func runCursorShow(cmd *cobra.Command, args []string) error {
	samples, err := cursor.LoadFromFile(cursor.SidecarPath(args[0]))
	if err != nil {
		return err
	}
	if cursorJSON {
		if samples == nil {
			samples = []cursor.Sample{}
		}
		return writeJSON(cmd.OutOrStdout(), samples)
	}
	writeCursorSummary(cmd.OutOrStdout(), summarizeCursor(samples))
	return nil
}

// cursorSummary describes a set of cursor samples.
type cursorSummary struct {
	Count      int
	DurationMs uint64
	MinX, MinY float64
	MaxX, MaxY float64
	Distance   float64 // total path length in pixels
}

func summarizeCursor(samples []cursor.Sample) cursorSummary {
	var s cursorSummary
	s.Count = len(samples)
	if len(samples) == 0 {
		return s
	}

	first := samples[0]
	s.MinX, s.MaxX = first.X, first.X
	s.MinY, s.MaxY = first.Y, first.Y
	s.DurationMs = samples[len(samples)-1].TimestampMs - first.TimestampMs

	for i, p := range samples {
		s.MinX = min(s.MinX, p.X)
		s.MaxX = max(s.MaxX, p.X)
		s.MinY = min(s.MinY, p.Y)
		s.MaxY = max(s.MaxY, p.Y)
		if i > 0 {
			prev := samples[i-1]
			s.Distance += math.Hypot(p.X-prev.X, p.Y-prev.Y)
		}
	}
	return s
}

func writeCursorSummary(w io.Writer, s cursorSummary) {
	if s.Count == 0 {
		fmt.Fprintln(w, "No cursor samples.")
		return
	}
	fmt.Fprintf(w, "Samples:   %d\n", s.Count)
	fmt.Fprintf(w, "Duration:  %s\n", formatMs(s.DurationMs))
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Rate:      %.1f Hz\n", float64(s.Count-1)/(float64(s.DurationMs)/1000))
	}
	fmt.Fprintf(w, "Bounds:    (%.0f, %.0f) - (%.0f, %.0f)\n", s.MinX, s.MinY, s.MaxX, s.MaxY)
	fmt.Fprintf(w, "Distance:  %.0f px\n", s.Distance)
}
