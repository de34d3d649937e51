package platform

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/vova616/screenshot"

	"github.com/Iron-Ham/screenreel/internal/logging"
)

// primaryScreenID is the native id reported for the main display.
const primaryScreenID = 0

// backend is the per-OS part of Native: window enumeration, window geometry
// lookup and pointer queries.
type backend interface {
	windows() ([]Source, error)
	windowRect(id uint32) (image.Rectangle, error)
	pointer() (x, y float64, err error)
	close() error
}

// Native is the Platform backed by the host's display server.
// It is safe for concurrent use.
type Native struct {
	logger *logging.Logger

	once  sync.Once
	mu    sync.RWMutex
	be    backend
	beErr error
}

// NewNative creates a Native platform. The OS backend is connected lazily on
// first use.
func NewNative(logger *logging.Logger) *Native {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Native{logger: logger.WithComponent("platform")}
}

func (n *Native) osBackend() (backend, error) {
	n.once.Do(func() {
		be, err := newBackend()
		if err != nil {
			n.logger.Warn("platform backend unavailable", "error", err)
		}
		n.mu.Lock()
		n.be, n.beErr = be, err
		n.mu.Unlock()
	})
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.be, n.beErr
}

// EnumerateSources returns the primary screen followed by visible top-level
// windows. Window enumeration failures are logged and the screen list is
// still returned.
func (n *Native) EnumerateSources(ctx context.Context) ([]Source, error) {
	rect, err := screenshot.ScreenRect()
	if err != nil {
		return nil, fmt.Errorf("failed to query screen bounds: %w", err)
	}

	sources := []Source{{
		ID:      primaryScreenID,
		Kind:    KindScreen,
		Name:    "Main Display",
		X:       rect.Min.X,
		Y:       rect.Min.Y,
		Width:   rect.Dx(),
		Height:  rect.Dy(),
		Primary: true,
	}}

	if err := ctx.Err(); err != nil {
		return sources, err
	}

	be, err := n.osBackend()
	if err != nil {
		return sources, nil
	}
	wins, err := be.windows()
	if err != nil {
		n.logger.Warn("window enumeration failed", "error", err)
		return sources, nil
	}
	return append(sources, wins...), nil
}

// CaptureStill grabs the primary screen or the bounding rectangle of a window.
// Only the primary screen is addressable; other screen ids are unavailable.
func (n *Native) CaptureStill(kind SourceKind, nativeID uint32) (image.Image, error) {
	switch kind {
	case KindScreen:
		if nativeID != primaryScreenID {
			return nil, fmt.Errorf("screen %d: %w", nativeID, ErrUnavailable)
		}
		img, err := screenshot.CaptureScreen()
		if err != nil {
			return nil, fmt.Errorf("screen capture failed: %w: %v", ErrUnavailable, err)
		}
		return img, nil

	case KindWindow:
		be, err := n.osBackend()
		if err != nil {
			return nil, fmt.Errorf("window capture: %w", ErrUnsupported)
		}
		rect, err := be.windowRect(nativeID)
		if err != nil {
			return nil, err
		}
		if screen, err := screenshot.ScreenRect(); err == nil {
			rect = rect.Intersect(screen)
		}
		if rect.Empty() {
			return nil, fmt.Errorf("window %d has no visible area: %w", nativeID, ErrUnavailable)
		}
		img, err := screenshot.CaptureRect(rect)
		if err != nil {
			return nil, fmt.Errorf("window capture failed: %w: %v", ErrUnavailable, err)
		}
		return img, nil

	default:
		return nil, fmt.Errorf("source kind %d: %w", kind, ErrUnsupported)
	}
}

// PointerPosition queries the pointer in global screen coordinates.
func (n *Native) PointerPosition() (float64, float64, error) {
	be, err := n.osBackend()
	if err != nil {
		return 0, 0, fmt.Errorf("pointer query: %w", ErrUnsupported)
	}
	return be.pointer()
}

// Close releases the display server connection, if one was opened.
func (n *Native) Close() error {
	n.once.Do(func() {})
	n.mu.Lock()
	defer n.mu.Unlock()

	var err error
	if n.be != nil {
		err = n.be.close()
	}
	n.be = nil
	n.beErr = ErrUnavailable
	return err
}
