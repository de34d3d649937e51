package encoder

import (
	"fmt"
	"strconv"

	"github.com/Iron-Ham/screenreel/internal/config"
)

// Job describes one screen recording for the encoder.
type Job struct {
	// OutputPath is the file ffmpeg writes. It is overwritten if present.
	OutputPath string
	// ScreenDevice is the capture device: an avfoundation index on macOS.
	// It is ignored on Linux and Windows, which capture the region below.
	ScreenDevice string
	// MicDevice is the audio device. Empty or "none" records no audio.
	MicDevice string
	// FPS is the capture and output frame rate.
	FPS int
	// Region of the screen in global coordinates, used by x11grab and gdigrab.
	X, Y, Width, Height int
	// Display is the X11 display for x11grab. Empty means ":0.0".
	Display string
}

// HasAudio reports whether the job records a microphone.
func (j Job) HasAudio() bool {
	return j.MicDevice != "" && j.MicDevice != "none"
}

const threadQueueSize = "1024"

// InputFormat returns ffmpeg's screen grabbing demuxer for goos.
func InputFormat(goos string) string {
	switch goos {
	case "darwin":
		return "avfoundation"
	case "windows":
		return "gdigrab"
	default:
		return "x11grab"
	}
}

// DefaultVideoCodec returns the codec used when none is configured.
func DefaultVideoCodec(goos string) string {
	if goos == "darwin" {
		return "h264_videotoolbox"
	}
	return "libx264"
}

// BuildArgs returns the ffmpeg argument list for job on goos. The screen is
// always input 0 and the microphone, when present, a separate input 1 mapped
// explicitly.
func BuildArgs(goos string, job Job, cfg config.EncoderConfig) []string {
	fps := strconv.Itoa(job.FPS)
	args := []string{"-y"}

	args = append(args, screenInput(goos, job, fps)...)
	if job.HasAudio() {
		args = append(args, micInput(goos, job.MicDevice)...)
		args = append(args, "-map", "0:v", "-map", "1:a")
	}

	codec := cfg.VideoCodec
	if codec == "" {
		codec = DefaultVideoCodec(goos)
	}
	args = append(args,
		"-c:v", codec,
		"-b:v", cfg.VideoBitrate,
		"-pix_fmt", "yuv420p",
		"-r", fps,
	)

	if job.HasAudio() {
		args = append(args,
			"-ar", "48000",
			"-ac", "2",
			"-c:a", "aac",
			"-b:a", cfg.AudioBitrate,
		)
	} else {
		args = append(args, "-an")
	}

	return append(args, job.OutputPath)
}

func screenInput(goos string, job Job, fps string) []string {
	switch goos {
	case "darwin":
		screen := job.ScreenDevice
		if screen == "" {
			screen = "none"
		}
		return []string{
			"-f", "avfoundation",
			"-thread_queue_size", threadQueueSize,
			"-framerate", fps,
			"-capture_cursor", "1",
			"-capture_mouse_clicks", "1",
			"-i", screen + ":none",
		}
	case "windows":
		return []string{
			"-f", "gdigrab",
			"-thread_queue_size", threadQueueSize,
			"-framerate", fps,
			"-draw_mouse", "1",
			"-offset_x", strconv.Itoa(job.X),
			"-offset_y", strconv.Itoa(job.Y),
			"-video_size", fmt.Sprintf("%dx%d", job.Width, job.Height),
			"-i", "desktop",
		}
	default:
		display := job.Display
		if display == "" {
			display = ":0.0"
		}
		return []string{
			"-f", "x11grab",
			"-thread_queue_size", threadQueueSize,
			"-framerate", fps,
			"-draw_mouse", "1",
			"-video_size", fmt.Sprintf("%dx%d", job.Width, job.Height),
			"-i", fmt.Sprintf("%s+%d,%d", display, job.X, job.Y),
		}
	}
}

func micInput(goos, device string) []string {
	switch goos {
	case "darwin":
		return []string{"-f", "avfoundation", "-thread_queue_size", threadQueueSize, "-i", "none:" + device}
	case "windows":
		return []string{"-f", "dshow", "-thread_queue_size", threadQueueSize, "-i", "audio=" + device}
	default:
		return []string{"-f", "pulse", "-thread_queue_size", threadQueueSize, "-i", device}
	}
}
