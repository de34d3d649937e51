package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Iron-Ham/screenreel/internal/app"
	"github.com/Iron-Ham/screenreel/internal/capture"
	"github.com/Iron-Ham/screenreel/internal/platform"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Capture live preview frames from one or more sources",
	Long: `Capture preview frames from screens or windows and save the newest
frame of each source as a JPEG when the preview ends.

Sources are given as [id:]kind:native-id, where kind is "screen" or
"window" and native-id comes from 'screenreel sources'. When id is omitted
it defaults to kind-native-id.

Examples:
  # Preview the primary screen for five seconds
  screenreel preview --source screen:0 --duration 5s

  # Two windows at 10 fps until Ctrl+C, emitting frames as JSON
  screenreel preview --source left:window:4194307 --source right:window:4194311 --fps 10 --json`,
	RunE: runPreview,
}

var (
	previewSources  []string
	previewFPS      int
	previewWidth    int
	previewHeight   int
	previewDuration time.Duration
	previewOutDir   string
	previewJSON     bool
)

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().StringArrayVarP(&previewSources, "source", "s", nil, "Source to capture as [id:]kind:native-id (repeatable)")
	previewCmd.Flags().IntVar(&previewFPS, "fps", 0, "Frames per second (default: capture.default_fps)")
	previewCmd.Flags().IntVar(&previewWidth, "width", 0, "Maximum frame width (default: capture.default_width)")
	previewCmd.Flags().IntVar(&previewHeight, "height", 0, "Maximum frame height (default: capture.default_height)")
	previewCmd.Flags().DurationVarP(&previewDuration, "duration", "d", 0, "Stop after this long (default: until interrupted)")
	previewCmd.Flags().StringVarP(&previewOutDir, "out", "o", ".", "Directory the final frames are written to")
	previewCmd.Flags().BoolVar(&previewJSON, "json", false, "Print each new frame as a JSON line on stdout")
	_ = previewCmd.MarkFlagRequired("source")
}

// previewSource is one parsed --source value.
type previewSource struct {
	ID       string
	Kind     platform.SourceKind
	NativeID uint32
}

// parsePreviewSource parses "[id:]kind:native-id".
func parsePreviewSource(raw string) (previewSource, error) {
	parts := strings.Split(raw, ":")
	var id, kind, native string
	switch len(parts) {
	case 2:
		kind, native = parts[0], parts[1]
	case 3:
		id, kind, native = parts[0], parts[1], parts[2]
	default:
		return previewSource{}, fmt.Errorf("invalid source %q: want [id:]kind:native-id", raw)
	}

	k, err := platform.ParseSourceKind(kind)
	if err != nil {
		return previewSource{}, fmt.Errorf("invalid source %q: %w", raw, err)
	}
	n, err := strconv.ParseUint(native, 10, 32)
	if err != nil {
		return previewSource{}, fmt.Errorf("invalid source %q: native id must be a number", raw)
	}
	if id == "" {
		id = fmt.Sprintf("%s-%d", k, n)
	}
	return previewSource{ID: id, Kind: k, NativeID: uint32(n)}, nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	sources := make([]previewSource, 0, len(previewSources))
	seen := make(map[string]bool)
	for _, raw := range previewSources {
		s, err := parsePreviewSource(raw)
		if err != nil {
			return err
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate source id %q", s.ID)
		}
		seen[s.ID] = true
		sources = append(sources, s)
	}

	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	opts := capture.Options{FPS: previewFPS, Width: previewWidth, Height: previewHeight}
	for _, s := range sources {
		if err := a.StartCapture(s.ID, s.Kind.String(), s.NativeID, opts); err != nil {
			return fmt.Errorf("failed to start capture %s: %w", s.ID, err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if previewDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, previewDuration)
		defer cancel()
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Capturing %d source(s). Press Ctrl+C to stop.\n", len(sources))
	if err := streamPreview(ctx, cmd, a, sources); err != nil {
		return err
	}

	for _, s := range sources {
		if err := a.CaptureErr(s.ID); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s stopped: %v\n", s.ID, err)
		}
	}

	written, err := saveLatestFrames(a, sources, previewOutDir)
	for _, path := range written {
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s\n", path)
	}
	return err
}

// streamPreview waits for ctx, printing each new frame when --json is set.
func streamPreview(ctx context.Context, cmd *cobra.Command, a *app.App, sources []previewSource) error {
	if !previewJSON {
		<-ctx.Done()
		return nil
	}

	last := make(map[string]int64, len(sources))
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, s := range sources {
				payload, ok := a.GetFrame(s.ID)
				if !ok || payload.Timestamp == last[s.ID] {
					continue
				}
				last[s.ID] = payload.Timestamp
				if err := writeJSONLine(cmd.OutOrStdout(), payload); err != nil {
					return err
				}
			}
		}
	}
}

// saveLatestFrames writes the newest frame of every source to dir in
// parallel and returns the paths written.
func saveLatestFrames(a *app.App, sources []previewSource, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, len(sources))
	var g errgroup.Group
	for i, s := range sources {
		i, s := i, s
		g.Go(func() error {
			frame, ok := a.LatestFrame(s.ID)
			if !ok {
				return nil
			}
			path := filepath.Join(dir, previewFileName(s.ID))
			if err := os.WriteFile(path, frame.Data, 0644); err != nil {
				return fmt.Errorf("failed to write frame for %s: %w", s.ID, err)
			}
			paths[i] = path
			return nil
		})
	}
	err := g.Wait()

	var written []string
	for _, p := range paths {
		if p != "" {
			written = append(written, p)
		}
	}
	return written, err
}

// previewFileName makes id safe to use as a file name.
func previewFileName(id string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
	return safe + ".jpg"
}
