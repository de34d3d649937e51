package encoder

import (
	"slices"
	"strings"
	"testing"

	"github.com/Iron-Ham/screenreel/internal/config"
)

func encoderConfig() config.EncoderConfig {
	return config.Default().Encoder
}

// valueAfter returns the argument following the first occurrence of flag.
func valueAfter(args []string, flag string) string {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return ""
	}
	return args[i+1]
}

func TestBuildArgs_DarwinScreenOnly(t *testing.T) {
	job := Job{OutputPath: "/tmp/out.mp4", ScreenDevice: "1", FPS: 30}
	args := BuildArgs("darwin", job, encoderConfig())

	want := []string{
		"-y",
		"-f", "avfoundation",
		"-thread_queue_size", "1024",
		"-framerate", "30",
		"-capture_cursor", "1",
		"-capture_mouse_clicks", "1",
		"-i", "1:none",
		"-c:v", "h264_videotoolbox",
		"-b:v", "12M",
		"-pix_fmt", "yuv420p",
		"-r", "30",
		"-an",
		"/tmp/out.mp4",
	}
	if !slices.Equal(args, want) {
		t.Errorf("BuildArgs() =\n%v\nwant\n%v", args, want)
	}
}

func TestBuildArgs_DarwinWithMic(t *testing.T) {
	job := Job{OutputPath: "out.mp4", ScreenDevice: "2", MicDevice: "0", FPS: 30}
	args := BuildArgs("darwin", job, encoderConfig())
	joined := strings.Join(args, " ")

	for _, part := range []string{
		"-i 2:none",
		"-i none:0",
		"-map 0:v -map 1:a",
		"-ar 48000 -ac 2 -c:a aac -b:a 192k",
	} {
		if !strings.Contains(joined, part) {
			t.Errorf("args missing %q: %s", part, joined)
		}
	}
	if slices.Contains(args, "-an") {
		t.Error("args contain -an with a microphone")
	}
	if args[len(args)-1] != "out.mp4" {
		t.Errorf("last arg = %q, want output path", args[len(args)-1])
	}
}

func TestBuildArgs_MicNoneMeansNoAudio(t *testing.T) {
	job := Job{OutputPath: "out.mp4", MicDevice: "none", FPS: 24}
	args := BuildArgs("darwin", job, encoderConfig())
	if !slices.Contains(args, "-an") {
		t.Error("expected -an for mic 'none'")
	}
	if slices.Contains(args, "-map") {
		t.Error("unexpected -map without audio")
	}
	if got := valueAfter(args, "-i"); got != "none:none" {
		t.Errorf("screen input = %q, want %q", got, "none:none")
	}
}

func TestBuildArgs_Linux(t *testing.T) {
	job := Job{OutputPath: "out.mp4", FPS: 15, X: 1920, Y: 0, Width: 2560, Height: 1440, Display: ":1"}
	args := BuildArgs("linux", job, encoderConfig())

	if got := valueAfter(args, "-f"); got != "x11grab" {
		t.Errorf("-f = %q, want x11grab", got)
	}
	if got := valueAfter(args, "-video_size"); got != "2560x1440" {
		t.Errorf("-video_size = %q", got)
	}
	if got := valueAfter(args, "-i"); got != ":1+1920,0" {
		t.Errorf("-i = %q", got)
	}
	if got := valueAfter(args, "-c:v"); got != "libx264" {
		t.Errorf("-c:v = %q, want libx264", got)
	}
}

func TestBuildArgs_LinuxDefaultDisplay(t *testing.T) {
	args := BuildArgs("linux", Job{OutputPath: "o.mp4", FPS: 30, Width: 10, Height: 10}, encoderConfig())
	if got := valueAfter(args, "-i"); got != ":0.0+0,0" {
		t.Errorf("-i = %q", got)
	}
}

func TestBuildArgs_WindowsWithMic(t *testing.T) {
	job := Job{OutputPath: "o.mp4", MicDevice: "Microphone (USB)", FPS: 30, X: -1280, Y: 0, Width: 1280, Height: 1024}
	args := BuildArgs("windows", job, encoderConfig())
	joined := strings.Join(args, " ")

	for _, part := range []string{
		"-f gdigrab",
		"-offset_x -1280",
		"-i desktop",
		"-f dshow",
		"-i audio=Microphone (USB)",
	} {
		if !strings.Contains(joined, part) {
			t.Errorf("args missing %q: %s", part, joined)
		}
	}
}

func TestBuildArgs_ConfiguredCodecAndBitrate(t *testing.T) {
	cfg := encoderConfig()
	cfg.VideoCodec = "libx265"
	cfg.VideoBitrate = "8M"
	args := BuildArgs("darwin", Job{OutputPath: "o.mp4", FPS: 30}, cfg)
	if got := valueAfter(args, "-c:v"); got != "libx265" {
		t.Errorf("-c:v = %q", got)
	}
	if got := valueAfter(args, "-b:v"); got != "8M" {
		t.Errorf("-b:v = %q", got)
	}
}

func TestInputFormat(t *testing.T) {
	tests := map[string]string{
		"darwin":  "avfoundation",
		"linux":   "x11grab",
		"freebsd": "x11grab",
		"windows": "gdigrab",
	}
	for goos, want := range tests {
		if got := InputFormat(goos); got != want {
			t.Errorf("InputFormat(%q) = %q, want %q", goos, got, want)
		}
	}
}
