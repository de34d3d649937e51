// Package platform abstracts the operating-system facilities screenreel
// depends on: enumerating capturable sources, grabbing a single still image
// from one of them, and querying the pointer position.
//
// The capture and recording packages only see the [Platform] interface.
// [Native] implements it on top of github.com/vova616/screenshot with
// per-OS window and pointer backends (X11 through xgb on Linux, user32 on
// Windows).
package platform

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/Iron-Ham/screenreel/internal/errors"
)

// Capture failures.
var (
	// ErrUnavailable indicates the source exists but could not be captured
	// right now (window minimised, display asleep, permission revoked).
	ErrUnavailable = errors.New("source unavailable")
	// ErrUnsupported indicates the operation is not implemented on this OS.
	ErrUnsupported = errors.New("not supported on this platform")
)

// SourceKind distinguishes windows from whole screens.
type SourceKind int

const (
	KindWindow SourceKind = iota
	KindScreen
)

// String returns the lower-case name used on the command line.
func (k SourceKind) String() string {
	switch k {
	case KindWindow:
		return "window"
	case KindScreen:
		return "screen"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k SourceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *SourceKind) UnmarshalText(text []byte) error {
	parsed, err := ParseSourceKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseSourceKind parses "window" or "screen", ignoring case and surrounding
// space. Anything else wraps errors.ErrInvalidSourceType.
func ParseSourceKind(s string) (SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "window":
		return KindWindow, nil
	case "screen":
		return KindScreen, nil
	default:
		return 0, errors.NewValidationError("use 'window' or 'screen'").
			WithField("source_type").
			WithValue(s).
			WithCause(errors.ErrInvalidSourceType)
	}
}

// Source is one capturable window or screen. X and Y locate the source in
// global screen space.
type Source struct {
	ID      uint32     `json:"id" yaml:"id"`
	Kind    SourceKind `json:"kind" yaml:"kind"`
	Name    string     `json:"name" yaml:"name"`
	X       int        `json:"x" yaml:"x"`
	Y       int        `json:"y" yaml:"y"`
	Width   int        `json:"width" yaml:"width"`
	Height  int        `json:"height" yaml:"height"`
	Primary bool       `json:"primary,omitempty" yaml:"primary,omitempty"`
}

// Bounds returns the source rectangle in global screen space.
func (s Source) Bounds() image.Rectangle {
	return image.Rect(s.X, s.Y, s.X+s.Width, s.Y+s.Height)
}

func (s Source) String() string {
	return fmt.Sprintf("%s %d %q %dx%d+%d+%d", s.Kind, s.ID, s.Name, s.Width, s.Height, s.X, s.Y)
}

// Platform is the narrow capability interface the core depends on.
type Platform interface {
	// EnumerateSources lists capturable screens and windows.
	EnumerateSources(ctx context.Context) ([]Source, error)

	// CaptureStill grabs one image of the given source. An error wrapping
	// ErrUnsupported is permanent; any other error is transient.
	CaptureStill(kind SourceKind, nativeID uint32) (image.Image, error)

	// PointerPosition returns the pointer location in global screen space.
	PointerPosition() (x, y float64, err error)
}

// IsFatal reports whether a CaptureStill error can never succeed for this
// source on this host. Every other error only means "no frame this tick".
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

// FindSource returns the source of the given kind and id.
func FindSource(sources []Source, kind SourceKind, id uint32) (Source, bool) {
	for _, s := range sources {
		if s.Kind == kind && s.ID == id {
			return s, true
		}
	}
	return Source{}, false
}

// Screens filters sources down to screens.
func Screens(sources []Source) []Source {
	var out []Source
	for _, s := range sources {
		if s.Kind == KindScreen {
			out = append(out, s)
		}
	}
	return out
}
