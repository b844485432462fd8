// Package upower talks to the UPower daemon on the system bus.
package upower

import (
	"context"
	"fmt"

	godbus "github.com/godbus/dbus/v5"
)

const (
	busName   = "org.freedesktop.UPower"
	objPath   = "/org/freedesktop/UPower"
	ifaceName = "org.freedesktop.UPower"
)

// busObject is the subset of godbus.BusObject the client needs.
type busObject interface {
	CallWithContext(ctx context.Context, method string, flags godbus.Flags, args ...interface{}) *godbus.Call
}

// Client queries the UPower service.
type Client struct {
	conn *godbus.Conn
	obj  busObject
}

// Connect opens a private system bus connection to UPower.
func Connect() (*Client, error) {
	conn, err := godbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	return &Client{conn: conn, obj: conn.Object(busName, objPath)}, nil
}

// Close releases the bus connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// EnumerateDevices returns the object paths of all devices UPower knows about.
func (c *Client) EnumerateDevices(ctx context.Context) ([]godbus.ObjectPath, error) {
	var paths []godbus.ObjectPath
	if err := c.obj.CallWithContext(ctx, ifaceName+".EnumerateDevices", 0).Store(&paths); err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return paths, nil
}

// DisplayDevice returns the object path of the composite display device.
func (c *Client) DisplayDevice(ctx context.Context) (godbus.ObjectPath, error) {
	var path godbus.ObjectPath
	if err := c.obj.CallWithContext(ctx, ifaceName+".GetDisplayDevice", 0).Store(&path); err != nil {
		return "", fmt.Errorf("get display device: %w", err)
	}
	return path, nil
}

// Devices returns the same list `upower -e` prints: every enumerated device
// followed by the display device.
func (c *Client) Devices(ctx context.Context) ([]string, error) {
	paths, err := c.EnumerateDevices(ctx)
	if err != nil {
		return nil, err
	}
	devices := make([]string, 0, len(paths)+1)
	for _, p := range paths {
		devices = append(devices, string(p))
	}
	display, err := c.DisplayDevice(ctx)
	if err != nil {
		return nil, err
	}
	return append(devices, string(display)), nil
}
