package encoder

import (
	"bytes"
	"context"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/Iron-Ham/screenreel/internal/errors"
	"github.com/Iron-Ham/screenreel/internal/platform"
)

// DeviceKind classifies a capture device.
type DeviceKind int

const (
	DeviceScreen DeviceKind = iota
	DeviceCamera
	DeviceMicrophone
)

func (k DeviceKind) String() string {
	switch k {
	case DeviceScreen:
		return "screen"
	case DeviceCamera:
		return "camera"
	case DeviceMicrophone:
		return "microphone"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k DeviceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Device is an ffmpeg input device. Geometry is only set for screens.
type Device struct {
	ID     string     `json:"id" yaml:"id"`
	Name   string     `json:"name" yaml:"name"`
	Kind   DeviceKind `json:"kind" yaml:"kind"`
	X      int        `json:"x,omitempty" yaml:"x,omitempty"`
	Y      int        `json:"y,omitempty" yaml:"y,omitempty"`
	Width  int        `json:"width,omitempty" yaml:"width,omitempty"`
	Height int        `json:"height,omitempty" yaml:"height,omitempty"`
}

// DeviceList groups devices by kind.
type DeviceList struct {
	Screens     []Device `json:"screens" yaml:"screens"`
	Cameras     []Device `json:"cameras" yaml:"cameras"`
	Microphones []Device `json:"microphones" yaml:"microphones"`
}

// FindScreen returns the screen with the given ID.
func (l DeviceList) FindScreen(id string) (Device, bool) {
	for _, d := range l.Screens {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}

// Geometry used when the platform reports no screens.
const (
	fallbackWidth  = 1920
	fallbackHeight = 1080
)

// ListDevices asks ffmpeg for its avfoundation devices. Device listing only
// exists on macOS; elsewhere the list is empty and callers fall back to the
// platform's screens.
func ListDevices(ctx context.Context, ffmpegPath string) (DeviceList, error) {
	if runtime.GOOS != "darwin" {
		return DeviceList{}, nil
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ffmpegPath, "-f", "avfoundation", "-list_devices", "true", "-i", "")
	cmd.Stderr = &stderr
	hideConsoleWindow(cmd)

	// ffmpeg always fails here because "" is not a real input.
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return DeviceList{}, errors.NewEncoderError("failed to run ffmpeg", errors.Join(errors.ErrEncoderSpawn, err))
		}
	}
	return ParseDeviceList(stderr.String()), nil
}

// ParseDeviceList parses the stderr of an avfoundation device listing.
// Video devices whose name mentions a screen, display or capture are
// screens; other video devices are cameras.
func ParseDeviceList(output string) DeviceList {
	const (
		none = iota
		video
		audio
	)

	var list DeviceList
	section := none
	for _, line := range strings.Split(output, "\n") {
		switch {
		case strings.Contains(line, "AVFoundation video devices:"):
			section = video
			continue
		case strings.Contains(line, "AVFoundation audio devices:"):
			section = audio
			continue
		}
		if section == none {
			continue
		}

		idx, name, ok := ParseDeviceLine(line)
		if !ok {
			continue
		}
		d := Device{ID: strconv.Itoa(idx), Name: name}
		switch {
		case section == audio:
			d.Kind = DeviceMicrophone
			list.Microphones = append(list.Microphones, d)
		case isScreenName(name):
			d.Kind = DeviceScreen
			list.Screens = append(list.Screens, d)
		default:
			d.Kind = DeviceCamera
			list.Cameras = append(list.Cameras, d)
		}
	}
	return list
}

func isScreenName(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "screen") ||
		strings.Contains(lower, "display") ||
		strings.Contains(lower, "capture")
}

// ParseDeviceLine extracts the index and name from a line such as
//
//	[AVFoundation indev @ 0x7f8] [0] FaceTime HD Camera
func ParseDeviceLine(line string) (int, string, bool) {
	_, rest, ok := strings.Cut(line, "]")
	if !ok {
		return 0, "", false
	}
	open := strings.Index(rest, "[")
	if open < 0 {
		return 0, "", false
	}
	inner, name, ok := strings.Cut(rest[open+1:], "]")
	if !ok {
		return 0, "", false
	}
	idx, err := strconv.Atoi(strings.TrimSpace(inner))
	if err != nil || idx < 0 {
		return 0, "", false
	}
	return idx, strings.TrimSpace(name), true
}

// WithGeometry fills in screen geometry from the platform's screens, matched
// by position, and guarantees at least one screen. Screens without a
// platform match get 1920x1080 at the origin.
func (l DeviceList) WithGeometry(sources []platform.Source) DeviceList {
	screens := platform.Screens(sources)
	geometry := func(i int) (x, y, w, h int) {
		if i < len(screens) {
			s := screens[i]
			return s.X, s.Y, s.Width, s.Height
		}
		return 0, 0, fallbackWidth, fallbackHeight
	}

	out := l
	out.Screens = make([]Device, 0, max(1, len(l.Screens)))
	for i, d := range l.Screens {
		d.X, d.Y, d.Width, d.Height = geometry(i)
		out.Screens = append(out.Screens, d)
	}

	if len(out.Screens) == 0 {
		d := Device{ID: "0", Name: "Default Screen", Kind: DeviceScreen}
		if len(screens) > 0 && screens[0].Name != "" {
			d.Name = screens[0].Name
		}
		d.X, d.Y, d.Width, d.Height = geometry(0)
		out.Screens = append(out.Screens, d)
	}
	return out
}
