package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/screenreel/internal/encoder"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <screen.mp4> <camera.mp4>",
	Short: "Overlay a camera recording onto a screen recording",
	Long: `Overlay a camera recording onto a screen recording.

The layout is given in percentages of the screen size. The camera is scaled
to cover the rectangle and cropped to it. The screen recording is replaced
in place and the camera file is removed once the merge succeeds.

Example:
  # Camera in the bottom-right corner at a quarter of the width
  screenreel merge recording.mp4 camera.mp4 --x 72 --y 70 --width 25 --height 25`,
	Args: cobra.ExactArgs(2),
	RunE: runMerge,
}

var mergeLayout encoder.OverlayLayout

func init() {
	rootCmd.AddCommand(mergeCmd)

	mergeCmd.Flags().Float64Var(&mergeLayout.X, "x", 72, "Left edge of the overlay, percent of screen width")
	mergeCmd.Flags().Float64Var(&mergeLayout.Y, "y", 70, "Top edge of the overlay, percent of screen height")
	mergeCmd.Flags().Float64Var(&mergeLayout.Width, "width", 25, "Overlay width, percent of screen width")
	mergeCmd.Flags().Float64Var(&mergeLayout.Height, "height", 25, "Overlay height, percent of screen height")
}

func runMerge(cmd *cobra.Command, args []string) error {
	screenPath, cameraPath := args[0], args[1]

	if err := mergeLayout.Validate(); err != nil {
		return err
	}
	for _, p := range []string{screenPath, cameraPath} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("cannot read %s: %w", p, err)
		}
	}

	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Fprintf(cmd.ErrOrStderr(), "Merging %s into %s...\n", cameraPath, screenPath)
	if err := a.MergeCamera(cmd.Context(), screenPath, cameraPath, mergeLayout); err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Merged camera into %s\n", screenPath)
	return nil
}
