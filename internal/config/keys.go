package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// keyTypes lists every settable key and the type of its value.
var keyTypes = map[string]string{
	"capture.default_fps":          "int",
	"capture.max_fps":              "int",
	"capture.default_width":        "int",
	"capture.default_height":       "int",
	"capture.jpeg_quality":         "int",
	"cursor.sample_interval_ms":    "int",
	"recording.output_dir":         "string",
	"recording.default_zoom_scale": "float",
	"recording.fps":                "int",
	"encoder.ffmpeg_path":          "string",
	"encoder.ffprobe_path":         "string",
	"encoder.video_codec":          "string",
	"encoder.video_bitrate":        "string",
	"encoder.audio_bitrate":        "string",
	"encoder.stop_timeout_ms":      "int",
	"encoder.stderr_tail_bytes":    "int",
	"logging.enabled":              "bool",
	"logging.level":                "string",
	"logging.max_size_mb":          "int",
	"logging.max_backups":          "int",
	"logging.compress":             "bool",
	"logging.dir":                  "string",
}

// ValidKeys returns every settable key in sorted order.
func ValidKeys() []string {
	keys := make([]string, 0, len(keyTypes))
	for k := range keyTypes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// KeyType returns the value type of key: "int", "float", "bool" or "string".
func KeyType(key string) (string, bool) {
	t, ok := keyTypes[key]
	return t, ok
}

// ParseValue converts a command-line value to the type key expects.
func ParseValue(key, value string) (any, error) {
	t, ok := keyTypes[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key: %s", key)
	}
	value = strings.TrimSpace(value)
	switch t {
	case "int":
		v, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		return v, nil
	case "float":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected decimal", key)
		}
		return v, nil
	case "bool":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return v, nil
	default:
		return value, nil
	}
}

// FieldError returns the first validation error reported for field, or nil.
func (c *Config) FieldError(field string) error {
	for _, err := range c.Validate() {
		if err.Field == field {
			return err
		}
	}
	return nil
}

// SetValue parses value, applies it to viper and rolls it back if the
// resulting configuration is invalid for key.
func SetValue(key, value string) (any, error) {
	parsed, err := ParseValue(key, value)
	if err != nil {
		return nil, err
	}

	previous := viper.Get(key)
	viper.Set(key, parsed)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		viper.Set(key, previous)
		return nil, err
	}
	if err := cfg.FieldError(key); err != nil {
		viper.Set(key, previous)
		return nil, err
	}
	return parsed, nil
}
