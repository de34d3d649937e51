//go:build windows

package platform

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"syscall"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32              = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows     = user32.NewProc("EnumWindows")
	procIsWindowVisible = user32.NewProc("IsWindowVisible")
	procGetWindowTextW  = user32.NewProc("GetWindowTextW")
	procGetWindowRect   = user32.NewProc("GetWindowRect")
	procGetCursorPos    = user32.NewProc("GetCursorPos")
)

type point struct {
	X, Y int32
}

// win32Backend uses user32 directly; it holds no connection state.
type win32Backend struct{}

func newBackend() (backend, error) {
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("load user32.dll: %w", err)
	}
	return win32Backend{}, nil
}

// EnumWindows callbacks are a finite resource, so a single callback is
// created and enumerations are serialised through enumMu.
var (
	enumMu   sync.Mutex
	enumAcc  []Source
	enumProc = windows.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		if vis, _, _ := procIsWindowVisible.Call(hwnd); vis == 0 {
			return 1
		}
		title := windowTitle(hwnd)
		if title == "" {
			return 1
		}
		rect, err := rectOf(hwnd)
		if err != nil || rect.Empty() {
			return 1
		}
		enumAcc = append(enumAcc, Source{
			ID:     uint32(hwnd),
			Kind:   KindWindow,
			Name:   title,
			X:      rect.Min.X,
			Y:      rect.Min.Y,
			Width:  rect.Dx(),
			Height: rect.Dy(),
		})
		return 1
	})
)

func (win32Backend) windows() ([]Source, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumAcc = nil
	if r, _, err := procEnumWindows.Call(enumProc, 0); r == 0 {
		if err != nil && !errors.Is(err, syscall.Errno(0)) {
			return nil, fmt.Errorf("EnumWindows: %w", err)
		}
		return nil, errors.New("EnumWindows failed")
	}
	sources := enumAcc
	enumAcc = nil
	return sources, nil
}

func windowTitle(hwnd uintptr) string {
	buf := make([]uint16, 256)
	n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return strings.TrimSpace(string(utf16.Decode(buf[:n])))
}

func rectOf(hwnd uintptr) (image.Rectangle, error) {
	var r windows.Rect
	if ok, _, err := procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&r))); ok == 0 {
		return image.Rectangle{}, fmt.Errorf("GetWindowRect: %w: %v", ErrUnavailable, err)
	}
	return image.Rect(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom)), nil
}

func (win32Backend) windowRect(id uint32) (image.Rectangle, error) {
	return rectOf(uintptr(id))
}

func (win32Backend) pointer() (float64, float64, error) {
	var p point
	if ok, _, err := procGetCursorPos.Call(uintptr(unsafe.Pointer(&p))); ok == 0 {
		return 0, 0, fmt.Errorf("GetCursorPos: %w", err)
	}
	return float64(p.X), float64(p.Y), nil
}

func (win32Backend) close() error { return nil }
