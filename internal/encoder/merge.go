package encoder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Iron-Ham/screenreel/internal/config"
	"github.com/Iron-Ham/screenreel/internal/errors"
	"github.com/Iron-Ham/screenreel/internal/logging"
)

// OverlayLayout places a camera recording on top of a screen recording.
// All fields are percentages of the screen size, 0-100.
type OverlayLayout struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Validate checks that every field is within 0-100 and the size is not zero.
func (l OverlayLayout) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{{"x", l.X}, {"y", l.Y}, {"width", l.Width}, {"height", l.Height}} {
		if f.value < 0 || f.value > 100 {
			return errors.NewValidationError("must be a percentage between 0 and 100").
				WithField(f.name).
				WithValue(f.value)
		}
	}
	if l.Width == 0 || l.Height == 0 {
		return errors.NewValidationError("overlay size must not be zero").WithField("width")
	}
	return nil
}

// Rect converts the layout to pixels for a screenW x screenH recording.
// The overlay size is rounded down to even numbers and is at least 2x2.
func (l OverlayLayout) Rect(screenW, screenH int) (x, y, w, h int) {
	w = max(2, int(l.Width/100*float64(screenW))/2*2)
	h = max(2, int(l.Height/100*float64(screenH))/2*2)
	x = int(l.X / 100 * float64(screenW))
	y = int(l.Y / 100 * float64(screenH))
	return x, y, w, h
}

// MergeArgs returns the ffmpeg arguments that overlay cameraPath onto
// screenPath at the given pixel rectangle. The camera is scaled to cover the
// rectangle and cropped to it.
func MergeArgs(goos, screenPath, cameraPath, outputPath string, x, y, w, h int, cfg config.EncoderConfig) []string {
	filter := fmt.Sprintf(
		"[1:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d[cam];[0:v][cam]overlay=%d:%d[vout]",
		w, h, w, h, x, y,
	)
	codec := cfg.VideoCodec
	if codec == "" {
		codec = DefaultVideoCodec(goos)
	}
	return []string{
		"-y",
		"-i", screenPath,
		"-i", cameraPath,
		"-filter_complex", filter,
		"-map", "[vout]",
		"-map", "0:a?",
		"-c:v", codec,
		"-b:v", cfg.VideoBitrate,
		"-c:a", "copy",
		"-shortest",
		outputPath,
	}
}

// mergeTempPath keeps the extension so ffmpeg picks the same container.
func mergeTempPath(screenPath string) string {
	ext := filepath.Ext(screenPath)
	return strings.TrimSuffix(screenPath, ext) + ".merging" + ext
}

// MergeCameraOverlay burns cameraPath into screenPath. On success the merged
// video replaces screenPath and cameraPath is removed. On failure both
// inputs are left untouched.
func MergeCameraOverlay(ctx context.Context, cfg config.EncoderConfig, screenPath, cameraPath string, layout OverlayLayout, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.NopLogger()
	}
	logger = logger.WithComponent("encoder").WithRecording(screenPath)

	if err := layout.Validate(); err != nil {
		return err
	}

	sw, sh, err := ProbeResolution(ctx, cfg.FFprobePath, screenPath)
	if err != nil {
		return err
	}
	x, y, w, h := layout.Rect(sw, sh)

	tmp := mergeTempPath(screenPath)
	args := MergeArgs(runtime.GOOS, screenPath, cameraPath, tmp, x, y, w, h, cfg)
	logger.Info("merging camera overlay",
		"screen_width", sw,
		"screen_height", sh,
		"overlay", fmt.Sprintf("%dx%d+%d+%d", w, h, x, y),
	)

	tail := NewTailBuffer(cfg.StderrTailBytes)
	cmd := exec.CommandContext(ctx, cfg.FFmpegPath, args...)
	cmd.Stderr = tail
	hideConsoleWindow(cmd)

	if err := cmd.Run(); err != nil {
		_ = os.Remove(tmp)
		mergeErr := errors.NewEncoderError("camera merge failed", errors.Join(errors.ErrEncoderExit, err)).
			WithStderrTail(tail.String())
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			mergeErr = mergeErr.WithExitCode(exitErr.ExitCode())
		}
		return mergeErr
	}

	if err := os.Rename(tmp, screenPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", screenPath, err)
	}
	if err := os.Remove(cameraPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove camera recording", "path", cameraPath, "error", err)
	}
	logger.Info("camera overlay merged")
	return nil
}
