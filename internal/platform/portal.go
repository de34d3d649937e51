package platform

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	portalBusName    = "org.freedesktop.portal.Desktop"
	portalObjectPath = dbus.ObjectPath("/org/freedesktop/portal/desktop")
	screenCastIface  = "org.freedesktop.portal.ScreenCast"
	propertiesGet    = "org.freedesktop.DBus.Properties.Get"
)

// PortalSourceTypes is the AvailableSourceTypes bitmask advertised by
// xdg-desktop-portal's ScreenCast interface.
type PortalSourceTypes uint32

const (
	PortalMonitor PortalSourceTypes = 1 << iota
	PortalWindow
	PortalVirtual
)

// Has reports whether every bit in t is set.
func (p PortalSourceTypes) Has(t PortalSourceTypes) bool {
	return p&t == t
}

// Names lists the advertised source types.
func (p PortalSourceTypes) Names() []string {
	var names []string
	if p.Has(PortalMonitor) {
		names = append(names, "monitor")
	}
	if p.Has(PortalWindow) {
		names = append(names, "window")
	}
	if p.Has(PortalVirtual) {
		names = append(names, "virtual")
	}
	return names
}

// ProbePortal asks xdg-desktop-portal on the session bus which ScreenCast
// source types it supports. Sessions without a portal (X11 without
// portal services, macOS, Windows) return an error.
func ProbePortal(ctx context.Context) (PortalSourceTypes, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return 0, fmt.Errorf("session bus: %w", ErrUnsupported)
	}

	obj := conn.Object(portalBusName, portalObjectPath)
	call := obj.CallWithContext(ctx, propertiesGet, 0, screenCastIface, "AvailableSourceTypes")
	if call.Err != nil {
		return 0, fmt.Errorf("query ScreenCast portal: %w", call.Err)
	}

	var v dbus.Variant
	if err := call.Store(&v); err != nil {
		return 0, fmt.Errorf("decode AvailableSourceTypes: %w", err)
	}
	mask, ok := v.Value().(uint32)
	if !ok {
		return 0, fmt.Errorf("AvailableSourceTypes has unexpected type %s", v.Signature())
	}
	return PortalSourceTypes(mask), nil
}
