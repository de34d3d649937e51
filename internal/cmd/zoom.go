package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/screenreel/internal/config"
	"github.com/Iron-Ham/screenreel/internal/recording"
)

var zoomCmd = &cobra.Command{
	Use:   "zoom",
	Short: "Inspect the zoom markers of a recording",
}

var zoomShowCmd = &cobra.Command{
	Use:   "show <recording.mp4>",
	Short: "Print the zoom markers saved next to a recording",
	Long: `Print the zoom markers saved next to a recording.

Older zoom files that store the centre as center_x/center_y are read too.
A missing or malformed file shows no markers.`,
	Args: cobra.ExactArgs(1),
	RunE: runZoomShow,
}

var zoomWatchCmd = &cobra.Command{
	Use:   "watch <recording.mp4>",
	Short: "Print the zoom markers every time the zoom file changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runZoomWatch,
}

var zoomJSON bool

func init() {
	rootCmd.AddCommand(zoomCmd)
	zoomCmd.AddCommand(zoomShowCmd)
	zoomCmd.AddCommand(zoomWatchCmd)

	zoomCmd.PersistentFlags().BoolVar(&zoomJSON, "json", false, "Print markers as JSON")
}

func runZoomShow(cmd *cobra.Command, args []string) error {
	markers, err := recording.ReadZoomMarkers(args[0])
	if err != nil {
		return err
	}
	return writeZoomMarkers(cmd.OutOrStdout(), markers, zoomJSON)
}

func runZoomWatch(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	logger := newLogger(cfg)
	defer func() { _ = logger.Close() }()

	out := cmd.OutOrStdout()
	printErr := func(err error) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}

	w, err := recording.NewWatcher(args[0], func(markers []recording.ZoomMarker) {
		if !zoomJSON {
			fmt.Fprintln(out, "--- zoom file changed ---")
		}
		if err := writeZoomMarkers(out, markers, zoomJSON); err != nil {
			printErr(err)
		}
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", recording.ZoomSidecarPath(args[0]), err)
	}

	markers, _ := recording.ReadZoomMarkers(args[0])
	if err := writeZoomMarkers(out, markers, zoomJSON); err != nil {
		printErr(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w.Start()
	<-ctx.Done()
	w.Stop()
	return nil
}

func writeZoomMarkers(w io.Writer, markers []recording.ZoomMarker, asJSON bool) error {
	if asJSON {
		if markers == nil {
			markers = []recording.ZoomMarker{}
		}
		return writeJSONLine(w, markers)
	}
	if len(markers) == 0 {
		fmt.Fprintln(w, "No zoom markers.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTART\tEND\tCENTRE\tSCALE")
	for i, m := range markers {
		end := formatMs(m.EndMs)
		if m.Open() {
			end = "open"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f%%, %.1f%%\t%.1fx\n", i+1, formatMs(m.StartMs), end, m.X, m.Y, m.Scale)
	}
	return tw.Flush()
}

// formatMs renders a millisecond offset as m:ss.mmm.
func formatMs(ms uint64) string {
	return fmt.Sprintf("%d:%02d.%03d", ms/60000, ms/1000%60, ms%1000)
}
