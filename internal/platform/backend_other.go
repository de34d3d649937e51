//go:build !linux && !windows

package platform

import "image"

// stillOnlyBackend supports whole-screen capture only; window geometry and
// pointer queries need native bindings that are not wired on this OS.
type stillOnlyBackend struct{}

func newBackend() (backend, error) {
	return stillOnlyBackend{}, nil
}

func (stillOnlyBackend) windows() ([]Source, error) { return nil, nil }

func (stillOnlyBackend) windowRect(uint32) (image.Rectangle, error) {
	return image.Rectangle{}, ErrUnsupported
}

func (stillOnlyBackend) pointer() (float64, float64, error) {
	return 0, 0, ErrUnsupported
}

func (stillOnlyBackend) close() error { return nil }
