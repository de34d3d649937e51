package recording

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/Iron-Ham/screenreel/internal/config"
	"github.com/Iron-Ham/screenreel/internal/errors"
)

// ZoomSuffix is appended to a recording path to name its zoom file.
const ZoomSuffix = ".zoom.json"

// DefaultZoomScale is used when a toggle does not name a scale.
const DefaultZoomScale = 2.0

// CheckZoomScale rejects scales outside [config.MinZoomScale,
// config.MaxZoomScale].
func CheckZoomScale(scale float64) error {
	if math.IsNaN(scale) || scale < config.MinZoomScale || scale > config.MaxZoomScale {
		return errors.NewValidationError(fmt.Sprintf("zoom scale must be between %.1f and %.1f", config.MinZoomScale, config.MaxZoomScale)).
			WithField("scale").
			WithValue(scale)
	}
	return nil
}

// ParseZoomScale parses a scale typed by the user and checks it with
// CheckZoomScale.
func ParseZoomScale(s string) (float64, error) {
	scale, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errors.NewValidationError(fmt.Sprintf("invalid zoom scale %q", s)).WithField("scale")
	}
	if err := CheckZoomScale(scale); err != nil {
		return 0, err
	}
	return scale, nil
}

// ZoomMarker is a zoomed-in span of a recording. X and Y are the zoom
// centre as percentages of the recorded screen. EndMs is 0 while the marker
// is still open.
type ZoomMarker struct {
	StartMs uint64  `json:"start_ms"`
	EndMs   uint64  `json:"end_ms"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Scale   float64 `json:"scale"`
}

// Open reports whether the marker has not been closed yet.
func (m ZoomMarker) Open() bool {
	return m.EndMs == 0
}

// Complete reports whether the marker covers a non-empty span.
func (m ZoomMarker) Complete() bool {
	return m.EndMs > m.StartMs
}

// ZoomSidecarPath returns the zoom file path for a recording.
func ZoomSidecarPath(recordingPath string) string {
	return recordingPath + ZoomSuffix
}

// WriteZoomMarkers writes markers to path as an indented JSON array.
func WriteZoomMarkers(path string, markers []ZoomMarker) error {
	data, err := json.MarshalIndent(markers, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode zoom markers: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// rawMarker accepts both the current and the legacy record layout.
type rawMarker struct {
	StartMs     *uint64  `json:"start_ms"`
	EndMs       *uint64  `json:"end_ms"`
	X           *float64 `json:"x"`
	Y           *float64 `json:"y"`
	Scale       *float64 `json:"scale"`
	TimestampMs *uint64  `json:"timestamp_ms"`
	DurationMs  *uint64  `json:"duration_ms"`
}

func (r rawMarker) normalize() (ZoomMarker, bool) {
	if r.X == nil || r.Y == nil || r.Scale == nil {
		return ZoomMarker{}, false
	}
	m := ZoomMarker{X: *r.X, Y: *r.Y, Scale: *r.Scale}
	switch {
	case r.StartMs != nil && r.EndMs != nil:
		m.StartMs, m.EndMs = *r.StartMs, *r.EndMs
	case r.TimestampMs != nil && r.DurationMs != nil:
		m.StartMs, m.EndMs = *r.TimestampMs, *r.TimestampMs+*r.DurationMs
	default:
		return ZoomMarker{}, false
	}
	return m, true
}

// ParseZoomMarkers decodes a zoom file. Records in the legacy layout
// {x, y, timestamp_ms, scale, duration_ms} become start=timestamp and
// end=timestamp+duration. Content that is not a list of markers in either
// layout yields an empty result.
func ParseZoomMarkers(data []byte) []ZoomMarker {
	var raw []rawMarker
	if err := json.Unmarshal(data, &raw); err != nil {
		return []ZoomMarker{}
	}
	out := make([]ZoomMarker, 0, len(raw))
	for _, r := range raw {
		m, ok := r.normalize()
		if !ok {
			return []ZoomMarker{}
		}
		out = append(out, m)
	}
	return out
}

// ReadZoomMarkers loads the zoom file next to recordingPath. A missing or
// unreadable file yields an empty result and no error.
func ReadZoomMarkers(recordingPath string) ([]ZoomMarker, error) {
	data, err := os.ReadFile(ZoomSidecarPath(recordingPath))
	if err != nil {
		return []ZoomMarker{}, nil
	}
	return ParseZoomMarkers(data), nil
}
