package config

import (
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "capture.max_fps",
		Value:   0,
		Message: "must be positive",
	}

	want := "capture.max_fps: must be positive (got: 0)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{{Field: "a", Value: 1, Message: "is invalid"}}
		if got, want := errs.Error(), "a: is invalid (got: 1)"; got != want {
			t.Errorf("Error() = %q, want %q", got, want)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.HasPrefix(result, "2 validation errors:\n") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "  2. field2") {
			t.Errorf("Error() should number entries: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	if errs := Default().Validate(); len(errs) != 0 {
		t.Errorf("Default config should be valid, got: %v", errs)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "zero max fps",
			mutate:    func(c *Config) { c.Capture.MaxFPS = 0 },
			wantField: "capture.max_fps",
		},
		{
			name:      "max fps above hard cap",
			mutate:    func(c *Config) { c.Capture.MaxFPS = 60 },
			wantField: "capture.max_fps",
		},
		{
			name:      "default fps above max",
			mutate:    func(c *Config) { c.Capture.MaxFPS, c.Capture.DefaultFPS = 20, 25 },
			wantField: "capture.default_fps",
		},
		{
			name:      "huge width",
			mutate:    func(c *Config) { c.Capture.DefaultWidth = 100000 },
			wantField: "capture.default_width",
		},
		{
			name:      "jpeg quality too high",
			mutate:    func(c *Config) { c.Capture.JPEGQuality = 101 },
			wantField: "capture.jpeg_quality",
		},
		{
			name:      "negative cursor interval",
			mutate:    func(c *Config) { c.Cursor.SampleIntervalMs = -5 },
			wantField: "cursor.sample_interval_ms",
		},
		{
			name:      "zoom scale below one",
			mutate:    func(c *Config) { c.Recording.DefaultZoomScale = 0.5 },
			wantField: "recording.default_zoom_scale",
		},
		{
			name:      "empty ffmpeg path",
			mutate:    func(c *Config) { c.Encoder.FFmpegPath = "  " },
			wantField: "encoder.ffmpeg_path",
		},
		{
			name:      "bad bitrate",
			mutate:    func(c *Config) { c.Encoder.VideoBitrate = "fast" },
			wantField: "encoder.video_bitrate",
		},
		{
			name:      "zero stop timeout",
			mutate:    func(c *Config) { c.Encoder.StopTimeoutMs = 0 },
			wantField: "encoder.stop_timeout_ms",
		},
		{
			name:      "unknown log level",
			mutate:    func(c *Config) { c.Logging.Level = "verbose" },
			wantField: "logging.level",
		},
		{
			name:      "negative backups",
			mutate:    func(c *Config) { c.Logging.MaxBackups = -1 },
			wantField: "logging.max_backups",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := cfg.Validate()
			if len(errs) != 1 {
				t.Fatalf("Validate() returned %d errors, want 1: %v", len(errs), errs)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.wantField)
			}
		})
	}
}

func TestBitrateRegex(t *testing.T) {
	for _, ok := range []string{"12M", "192k", "800000", "1.5M", "2G"} {
		if !bitrateRegex.MatchString(ok) {
			t.Errorf("bitrate %q should be valid", ok)
		}
	}
	for _, bad := range []string{"", "M", "12MB", "-1k", "fast"} {
		if bitrateRegex.MatchString(bad) {
			t.Errorf("bitrate %q should be invalid", bad)
		}
	}
}
