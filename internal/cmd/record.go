package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/Iron-Ham/screenreel/internal/app"
	"github.com/Iron-Ham/screenreel/internal/event"
	"github.com/Iron-Ham/screenreel/internal/recording"
	"github.com/Iron-Ham/screenreel/internal/tui"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the screen to an MP4 file",
	Long: `Record a screen (and optionally a microphone) with ffmpeg.

The recording is written to recording.output_dir as
recording_YYYYMMDD_HHMMSS.mp4. Cursor samples and zoom markers are saved
next to it as .mouse.json and .zoom.json.

In a terminal an interactive recorder is shown. Otherwise, or with --no-tui,
commands are read from stdin, one per line:

  z [scale]   toggle a zoom marker
  p           pause
  r           resume
  q           stop and save

Ctrl+C stops and saves in either mode.`,
	RunE: runRecord,
}

var (
	recordScreen    string
	recordMic       string
	recordZoomScale float64
	recordNoTUI     bool
)

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().StringVar(&recordScreen, "screen", "", "Screen device ID from 'screenreel devices' (default: first screen)")
	recordCmd.Flags().StringVar(&recordMic, "mic", "", "Microphone device ID (default: no audio)")
	recordCmd.Flags().Float64Var(&recordZoomScale, "zoom-scale", 0, "Zoom scale used by markers (default: recording.default_zoom_scale)")
	recordCmd.Flags().BoolVar(&recordNoTUI, "no-tui", false, "Read commands from stdin instead of showing the recorder")
}

func runRecord(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("zoom-scale") {
		viper.Set("recording.default_zoom_scale", recordZoomScale)
	}

	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	path, err := a.StartRecording(cmd.Context(), recordScreen, recordMic)
	if err != nil {
		return fmt.Errorf("failed to start recording: %w", err)
	}

	var saved string
	if !recordNoTUI && term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		events, cancel := a.Bus().Stream(16, event.TypeZoomToggled, event.TypeEncoderExited, event.TypeRecordingStateChanged)
		saved, err = tui.RunRecorder(a, path, events)
		cancel()
	} else {
		saved, err = recordPlain(cmd, a, path)
	}
	return reportRecording(cmd.OutOrStdout(), saved, len(a.ZoomMarkers()), err)
}

// reportRecording prints where a stopped recording was saved, even when the
// encoder failed and left a partial file, and passes err through.
func reportRecording(out io.Writer, saved string, markers int, err error) error {
	if saved != "" {
		fmt.Fprintf(out, "Saved %s\n", saved)
		if markers > 0 {
			fmt.Fprintf(out, "%d zoom marker(s) saved\n", markers)
		}
	}
	return err
}

// recordPlain drives an active recording from line commands on stdin until
// "q", end of input followed by a signal, or a signal.
func recordPlain(cmd *cobra.Command, a *app.App, path string) (string, error) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "Recording to %s\n", path)
	fmt.Fprintln(out, "Commands: z [scale], p, r, q. Ctrl+C stops.")

	events, cancel := a.Bus().Stream(16, event.TypeZoomToggled, event.TypeEncoderExited)
	defer cancel()
	finish := func() (string, error) {
		saved, err := a.StopRecording()
		drainRecordEvents(out, events)
		return saved, err
	}

	lines := make(chan string)
	go scanLines(ctx, cmd.InOrStdin(), lines)

	for {
		select {
		case <-ctx.Done():
			return finish()
		case e := <-events:
			printRecordEvent(out, e)
		case line, ok := <-lines:
			if !ok {
				// Input closed; keep recording until a signal arrives.
				lines = nil
				continue
			}
			done, err := applyRecordCommand(a, line, out)
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
			if done {
				return finish()
			}
		}
	}
}

// drainRecordEvents prints the events already buffered on events.
func drainRecordEvents(out io.Writer, events <-chan event.Event) {
	for {
		select {
		case e := <-events:
			printRecordEvent(out, e)
		default:
			return
		}
	}
}

// printRecordEvent reports closed zoom markers and the encoder exit.
func printRecordEvent(out io.Writer, e event.Event) {
	switch e := e.(type) {
	case event.ZoomToggledEvent:
		if !e.Open {
			fmt.Fprintf(out, "Zoom marker saved: %s - %s at %.1fx\n", formatMs(e.StartMs), formatMs(e.EndMs), e.Scale)
		}
	case event.EncoderExitedEvent:
		if e.Err != nil {
			fmt.Fprintf(out, "Encoder exited with code %d\n", e.ExitCode)
		} else {
			fmt.Fprintln(out, "Encoder finished")
		}
	}
}

func scanLines(ctx context.Context, r io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}

// recordActions is the part of the app a line command can drive.
type recordActions interface {
	PauseRecording() error
	ResumeRecording() error
	ToggleZoom(scale float64) (*recording.ZoomMarker, error)
}

// applyRecordCommand runs one stdin command. It reports done for "q".
func applyRecordCommand(a recordActions, line string, out io.Writer) (done bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch strings.ToLower(fields[0]) {
	case "q", "quit", "stop":
		return true, nil
	case "p", "pause":
		if err := a.PauseRecording(); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "Paused")
	case "r", "resume":
		if err := a.ResumeRecording(); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "Resumed")
	case "z", "zoom":
		scale := 0.0
		if len(fields) > 1 {
			s, err := recording.ParseZoomScale(fields[1])
			if err != nil {
				return false, err
			}
			scale = s
		}
		m, err := a.ToggleZoom(scale)
		if err != nil {
			return false, err
		}
		if m == nil {
			fmt.Fprintln(out, "Zoom off")
		} else {
			fmt.Fprintf(out, "Zoom %.1fx at %.0f%%,%.0f%% from %dms\n", m.Scale, m.X, m.Y, m.StartMs)
		}
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
	return false, nil
}
