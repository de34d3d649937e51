package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete screenreel configuration
type Config struct {
	Capture   CaptureConfig   `mapstructure:"capture" yaml:"capture"`
	Cursor    CursorConfig    `mapstructure:"cursor" yaml:"cursor"`
	Recording RecordingConfig `mapstructure:"recording" yaml:"recording"`
	Encoder   EncoderConfig   `mapstructure:"encoder" yaml:"encoder"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// CaptureConfig controls live preview capture sessions
type CaptureConfig struct {
	// DefaultFPS is used when a capture request omits the frame rate (default: 15)
	DefaultFPS int `mapstructure:"default_fps" yaml:"default_fps"`
	// MaxFPS caps every requested frame rate (default: 30)
	MaxFPS int `mapstructure:"max_fps" yaml:"max_fps"`
	// DefaultWidth and DefaultHeight are the nominal frame size when omitted (default: 1280x720)
	DefaultWidth  int `mapstructure:"default_width" yaml:"default_width"`
	DefaultHeight int `mapstructure:"default_height" yaml:"default_height"`
	// JPEGQuality is the quality used to encode preview frames, 1-100 (default: 75)
	JPEGQuality int `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`
}

// CursorConfig controls pointer sampling during a recording
type CursorConfig struct {
	// SampleIntervalMs is the delay between pointer samples (default: 16, about 60 Hz)
	SampleIntervalMs int `mapstructure:"sample_interval_ms" yaml:"sample_interval_ms"`
}

// RecordingConfig controls recording sessions
type RecordingConfig struct {
	// OutputDir is where recordings are written.
	// If empty, defaults to ~/Movies/screenreel.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
	// DefaultZoomScale is used when a zoom toggle omits the scale (default: 2.0)
	DefaultZoomScale float64 `mapstructure:"default_zoom_scale" yaml:"default_zoom_scale"`
	// FPS is the encoder capture frame rate (default: 30)
	FPS int `mapstructure:"fps" yaml:"fps"`
}

// EncoderConfig controls the ffmpeg subprocess
type EncoderConfig struct {
	// FFmpegPath is the ffmpeg binary, resolved through PATH when not absolute (default: "ffmpeg")
	FFmpegPath string `mapstructure:"ffmpeg_path" yaml:"ffmpeg_path"`
	// FFprobePath is the ffprobe binary (default: "ffprobe")
	FFprobePath string `mapstructure:"ffprobe_path" yaml:"ffprobe_path"`
	// VideoCodec overrides the platform default codec.
	// Empty selects h264_videotoolbox on macOS and libx264 elsewhere.
	VideoCodec string `mapstructure:"video_codec" yaml:"video_codec"`
	// VideoBitrate is the target video bitrate (default: "12M")
	VideoBitrate string `mapstructure:"video_bitrate" yaml:"video_bitrate"`
	// AudioBitrate is the AAC bitrate when a microphone is recorded (default: "192k")
	AudioBitrate string `mapstructure:"audio_bitrate" yaml:"audio_bitrate"`
	// StopTimeoutMs is how long to wait for ffmpeg to exit after 'q' before killing it (default: 10000)
	StopTimeoutMs int `mapstructure:"stop_timeout_ms" yaml:"stop_timeout_ms"`
	// StderrTailBytes is how much trailing ffmpeg output is kept for error reports (default: 500)
	StderrTailBytes int `mapstructure:"stderr_tail_bytes" yaml:"stderr_tail_bytes"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rotated log files (default: false)
	Compress bool `mapstructure:"compress" yaml:"compress"`
	// Dir is where debug.log is written. If empty, defaults to <config dir>/logs.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			DefaultFPS:    15,
			MaxFPS:        30,
			DefaultWidth:  1280,
			DefaultHeight: 720,
			JPEGQuality:   75,
		},
		Cursor: CursorConfig{
			SampleIntervalMs: 16,
		},
		Recording: RecordingConfig{
			OutputDir:        "",
			DefaultZoomScale: 2.0,
			FPS:              30,
		},
		Encoder: EncoderConfig{
			FFmpegPath:      "ffmpeg",
			FFprobePath:     "ffprobe",
			VideoCodec:      "",
			VideoBitrate:    "12M",
			AudioBitrate:    "192k",
			StopTimeoutMs:   10000,
			StderrTailBytes: 500,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
			Dir:        "",
		},
	}
}

// SampleInterval returns the cursor sampling interval as a Duration
func (c *CursorConfig) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalMs) * time.Millisecond
}

// StopTimeout returns how long a graceful encoder stop may take
func (c *EncoderConfig) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutMs) * time.Millisecond
}

// ResolveOutputDir returns the directory recordings are written to.
// A leading "~/" is expanded to the user's home directory.
func (c *RecordingConfig) ResolveOutputDir() string {
	if c.OutputDir != "" {
		return expandHome(c.OutputDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "recordings"
	}
	return filepath.Join(home, "Movies", "screenreel")
}

// ResolveDir returns the directory debug.log is written to.
func (c *LoggingConfig) ResolveDir() string {
	if c.Dir != "" {
		return expandHome(c.Dir)
	}
	return filepath.Join(ConfigDir(), "logs")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Capture defaults
	viper.SetDefault("capture.default_fps", defaults.Capture.DefaultFPS)
	viper.SetDefault("capture.max_fps", defaults.Capture.MaxFPS)
	viper.SetDefault("capture.default_width", defaults.Capture.DefaultWidth)
	viper.SetDefault("capture.default_height", defaults.Capture.DefaultHeight)
	viper.SetDefault("capture.jpeg_quality", defaults.Capture.JPEGQuality)

	// Cursor defaults
	viper.SetDefault("cursor.sample_interval_ms", defaults.Cursor.SampleIntervalMs)

	// Recording defaults
	viper.SetDefault("recording.output_dir", defaults.Recording.OutputDir)
	viper.SetDefault("recording.default_zoom_scale", defaults.Recording.DefaultZoomScale)
	viper.SetDefault("recording.fps", defaults.Recording.FPS)

	// Encoder defaults
	viper.SetDefault("encoder.ffmpeg_path", defaults.Encoder.FFmpegPath)
	viper.SetDefault("encoder.ffprobe_path", defaults.Encoder.FFprobePath)
	viper.SetDefault("encoder.video_codec", defaults.Encoder.VideoCodec)
	viper.SetDefault("encoder.video_bitrate", defaults.Encoder.VideoBitrate)
	viper.SetDefault("encoder.audio_bitrate", defaults.Encoder.AudioBitrate)
	viper.SetDefault("encoder.stop_timeout_ms", defaults.Encoder.StopTimeoutMs)
	viper.SetDefault("encoder.stderr_tail_bytes", defaults.Encoder.StderrTailBytes)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "screenreel")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".screenreel"
	}
	return filepath.Join(home, ".config", "screenreel")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
