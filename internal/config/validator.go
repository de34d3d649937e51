package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "capture.max_fps")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// bitrateRegex accepts ffmpeg bitrate strings such as "12M", "192k" or "800000".
var bitrateRegex = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?[kKmMgG]?$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Bounds of a zoom marker scale.
const (
	MinZoomScale = 1.0
	MaxZoomScale = 10.0
)

// MaxCaptureFPS is the hard frame rate cap of a capture session.
const MaxCaptureFPS = 30

// Hard ceilings for the other settings.
const (
	maxRecordingFPS = 120
	maxFrameEdge    = 8192
	maxStopTimeout  = 120000
	maxStderrTail   = 1 << 20
	maxLogSizeMB    = 1000
	maxCursorPeriod = 1000
)

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateCapture()...)
	errors = append(errors, c.validateCursor()...)
	errors = append(errors, c.validateRecording()...)
	errors = append(errors, c.validateEncoder()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func positiveInRange(field string, value, upper int) []ValidationError {
	if value <= 0 {
		return []ValidationError{{Field: field, Value: value, Message: "must be positive"}}
	}
	if value > upper {
		return []ValidationError{{Field: field, Value: value, Message: fmt.Sprintf("must be at most %d", upper)}}
	}
	return nil
}

func (c *Config) validateCapture() []ValidationError {
	var errors []ValidationError

	errors = append(errors, positiveInRange("capture.max_fps", c.Capture.MaxFPS, MaxCaptureFPS)...)
	errors = append(errors, positiveInRange("capture.default_fps", c.Capture.DefaultFPS, MaxCaptureFPS)...)
	errors = append(errors, positiveInRange("capture.default_width", c.Capture.DefaultWidth, maxFrameEdge)...)
	errors = append(errors, positiveInRange("capture.default_height", c.Capture.DefaultHeight, maxFrameEdge)...)

	if c.Capture.MaxFPS > 0 && c.Capture.DefaultFPS > c.Capture.MaxFPS {
		errors = append(errors, ValidationError{
			Field:   "capture.default_fps",
			Value:   c.Capture.DefaultFPS,
			Message: fmt.Sprintf("must not exceed capture.max_fps (%d)", c.Capture.MaxFPS),
		})
	}

	if c.Capture.JPEGQuality < 1 || c.Capture.JPEGQuality > 100 {
		errors = append(errors, ValidationError{
			Field:   "capture.jpeg_quality",
			Value:   c.Capture.JPEGQuality,
			Message: "must be between 1 and 100",
		})
	}

	return errors
}

func (c *Config) validateCursor() []ValidationError {
	return positiveInRange("cursor.sample_interval_ms", c.Cursor.SampleIntervalMs, maxCursorPeriod)
}

func (c *Config) validateRecording() []ValidationError {
	var errors []ValidationError

	errors = append(errors, positiveInRange("recording.fps", c.Recording.FPS, maxRecordingFPS)...)

	if s := c.Recording.DefaultZoomScale; s < MinZoomScale || s > MaxZoomScale {
		errors = append(errors, ValidationError{
			Field:   "recording.default_zoom_scale",
			Value:   s,
			Message: fmt.Sprintf("must be between %.1f and %.1f", MinZoomScale, MaxZoomScale),
		})
	}

	return errors
}

func (c *Config) validateEncoder() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Encoder.FFmpegPath) == "" {
		errors = append(errors, ValidationError{
			Field:   "encoder.ffmpeg_path",
			Value:   c.Encoder.FFmpegPath,
			Message: "must not be empty",
		})
	}
	if strings.TrimSpace(c.Encoder.FFprobePath) == "" {
		errors = append(errors, ValidationError{
			Field:   "encoder.ffprobe_path",
			Value:   c.Encoder.FFprobePath,
			Message: "must not be empty",
		})
	}

	for field, value := range map[string]string{
		"encoder.video_bitrate": c.Encoder.VideoBitrate,
		"encoder.audio_bitrate": c.Encoder.AudioBitrate,
	} {
		if !bitrateRegex.MatchString(value) {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   value,
				Message: "must be a bitrate such as 12M or 192k",
			})
		}
	}

	errors = append(errors, positiveInRange("encoder.stop_timeout_ms", c.Encoder.StopTimeoutMs, maxStopTimeout)...)
	errors = append(errors, positiveInRange("encoder.stderr_tail_bytes", c.Encoder.StderrTailBytes, maxStderrTail)...)

	// Map iteration order is random; keep output stable.
	slices.SortStableFunc(errors, func(a, b ValidationError) int {
		return strings.Compare(a.Field, b.Field)
	})

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	errors = append(errors, positiveInRange("logging.max_size_mb", c.Logging.MaxSizeMB, maxLogSizeMB)...)

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
