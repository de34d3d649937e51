//go:build linux

package platform

import (
	"fmt"
	"image"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// x11Backend talks to the X server over a single xgb connection.
// EWMH (_NET_CLIENT_LIST) is used to find top-level application windows.
type x11Backend struct {
	conn *xgb.Conn
	root xproto.Window

	mu    sync.Mutex
	atoms map[string]xproto.Atom
}

func newBackend() (backend, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	screen := xproto.Setup(conn).DefaultScreen(conn)
	return &x11Backend{
		conn:  conn,
		root:  screen.Root,
		atoms: make(map[string]xproto.Atom),
	}, nil
}

func (b *x11Backend) atom(name string) (xproto.Atom, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if a, ok := b.atoms[name]; ok {
		return a, nil
	}
	reply, err := xproto.InternAtom(b.conn, true, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("intern atom %s: %w", name, err)
	}
	b.atoms[name] = reply.Atom
	return reply.Atom, nil
}

func (b *x11Backend) windows() ([]Source, error) {
	clientList, err := b.atom("_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}
	if clientList == xproto.AtomNone {
		// No EWMH window manager running.
		return nil, nil
	}

	reply, err := xproto.GetProperty(b.conn, false, b.root, clientList, xproto.AtomWindow, 0, 1<<16).Reply()
	if err != nil {
		return nil, fmt.Errorf("read _NET_CLIENT_LIST: %w", err)
	}
	if reply.Format != 32 {
		return nil, nil
	}

	count := len(reply.Value) / 4
	sources := make([]Source, 0, count)
	for i := 0; i < count; i++ {
		win := xproto.Window(xgb.Get32(reply.Value[i*4:]))
		rect, err := b.geometry(win)
		if err != nil || rect.Empty() {
			continue
		}
		sources = append(sources, Source{
			ID:     uint32(win),
			Kind:   KindWindow,
			Name:   b.windowName(win),
			X:      rect.Min.X,
			Y:      rect.Min.Y,
			Width:  rect.Dx(),
			Height: rect.Dy(),
		})
	}
	return sources, nil
}

func (b *x11Backend) windowName(win xproto.Window) string {
	if netName, err := b.atom("_NET_WM_NAME"); err == nil && netName != xproto.AtomNone {
		reply, err := xproto.GetProperty(b.conn, false, win, netName, xproto.GetPropertyTypeAny, 0, 256).Reply()
		if err == nil && len(reply.Value) > 0 {
			return string(reply.Value)
		}
	}
	reply, err := xproto.GetProperty(b.conn, false, win, xproto.AtomWmName, xproto.GetPropertyTypeAny, 0, 256).Reply()
	if err != nil {
		return ""
	}
	return string(reply.Value)
}

// geometry returns the window rectangle translated into root coordinates.
func (b *x11Backend) geometry(win xproto.Window) (image.Rectangle, error) {
	geom, err := xproto.GetGeometry(b.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("window %d: %w: %v", win, ErrUnavailable, err)
	}
	pos, err := xproto.TranslateCoordinates(b.conn, win, b.root, 0, 0).Reply()
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("window %d: %w: %v", win, ErrUnavailable, err)
	}
	x, y := int(pos.DstX), int(pos.DstY)
	return image.Rect(x, y, x+int(geom.Width), y+int(geom.Height)), nil
}

func (b *x11Backend) windowRect(id uint32) (image.Rectangle, error) {
	return b.geometry(xproto.Window(id))
}

func (b *x11Backend) pointer() (float64, float64, error) {
	reply, err := xproto.QueryPointer(b.conn, b.root).Reply()
	if err != nil {
		return 0, 0, fmt.Errorf("query pointer: %w", err)
	}
	return float64(reply.RootX), float64(reply.RootY), nil
}

func (b *x11Backend) close() error {
	b.conn.Close()
	return nil
}
