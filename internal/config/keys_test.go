package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestValidKeysMatchDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	for _, key := range ValidKeys() {
		if !viper.IsSet(key) {
			t.Errorf("key %s has no default", key)
		}
	}
	if got := len(ValidKeys()); got != len(viper.AllKeys()) {
		t.Errorf("len(ValidKeys()) = %d, defaults register %d keys", got, len(viper.AllKeys()))
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		want    any
		wantErr string
	}{
		{"capture.max_fps", "24", 24, ""},
		{"capture.max_fps", " 24 ", 24, ""},
		{"capture.max_fps", "fast", nil, "expected integer"},
		{"recording.default_zoom_scale", "2.5", 2.5, ""},
		{"recording.default_zoom_scale", "x", nil, "expected decimal"},
		{"logging.compress", "true", true, ""},
		{"logging.compress", "yes", nil, "true or false"},
		{"encoder.video_codec", "libx265", "libx265", ""},
		{"nope.key", "1", nil, "unknown configuration key"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			got, err := ParseValue(tt.key, tt.value)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ParseValue() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseValue() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseValue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSetValue(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	if _, err := SetValue("capture.jpeg_quality", "90"); err != nil {
		t.Fatalf("SetValue() error = %v", err)
	}
	if got := viper.GetInt("capture.jpeg_quality"); got != 90 {
		t.Errorf("capture.jpeg_quality = %d, want 90", got)
	}

	_, err := SetValue("capture.jpeg_quality", "0")
	if err == nil || !strings.Contains(err.Error(), "between 1 and 100") {
		t.Fatalf("SetValue(0) error = %v", err)
	}
	if got := viper.GetInt("capture.jpeg_quality"); got != 90 {
		t.Errorf("capture.jpeg_quality = %d after a rejected value, want 90", got)
	}

	if _, err := SetValue("logging.level", "verbose"); err == nil {
		t.Error("SetValue(logging.level=verbose) succeeded")
	}
}

func TestFieldError(t *testing.T) {
	cfg := Default()
	if err := cfg.FieldError("capture.max_fps"); err != nil {
		t.Errorf("FieldError() on defaults = %v", err)
	}
	cfg.Capture.MaxFPS = 500
	if err := cfg.FieldError("capture.max_fps"); err == nil {
		t.Error("FieldError() = nil for max_fps 500")
	}
}
