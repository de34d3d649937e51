package encoder

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Iron-Ham/screenreel/internal/errors"
)

// ProbeResolution returns the size of the first video stream in path.
func ProbeResolution(ctx context.Context, ffprobePath, path string) (int, int, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=p=0:s=x",
		path,
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	hideConsoleWindow(cmd)

	if err := cmd.Run(); err != nil {
		return 0, 0, errors.NewEncoderError("ffprobe failed", err).
			WithStderrTail(strings.TrimSpace(stderr.String()))
	}
	return parseResolution(stdout.String())
}

// parseResolution parses ffprobe's "WIDTHxHEIGHT" output.
func parseResolution(out string) (int, int, error) {
	out = strings.TrimSpace(out)
	ws, hs, ok := strings.Cut(out, "x")
	if !ok || strings.Contains(hs, "x") {
		return 0, 0, fmt.Errorf("unexpected ffprobe output: %q", out)
	}
	w, err := strconv.Atoi(strings.TrimSpace(ws))
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("bad width: %q", ws)
	}
	h, err := strconv.Atoi(strings.TrimSpace(hs))
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("bad height: %q", hs)
	}
	return w, h, nil
}
