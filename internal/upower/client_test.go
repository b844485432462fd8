package upower

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	godbus "github.com/godbus/dbus/v5"
)

type fakeObject struct {
	replies map[string]*godbus.Call
	calls   []string
}

func (f *fakeObject) CallWithContext(_ context.Context, method string, _ godbus.Flags, _ ...interface{}) *godbus.Call {
	f.calls = append(f.calls, method)
	if c, ok := f.replies[method]; ok {
		return c
	}
	return &godbus.Call{Err: errors.New("unknown method " + method)}
}

func TestDevices_EnumeratedThenDisplay(t *testing.T) {
	obj := &fakeObject{replies: map[string]*godbus.Call{
		ifaceName + ".EnumerateDevices": {Body: []interface{}{[]godbus.ObjectPath{
			"/org/freedesktop/UPower/devices/line_power_AC",
			"/org/freedesktop/UPower/devices/battery_BAT0",
		}}},
		ifaceName + ".GetDisplayDevice": {Body: []interface{}{godbus.ObjectPath("/org/freedesktop/UPower/devices/DisplayDevice")}},
	}}
	c := &Client{obj: obj}

	got, err := c.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices() error = %v", err)
	}
	want := []string{
		"/org/freedesktop/UPower/devices/line_power_AC",
		"/org/freedesktop/UPower/devices/battery_BAT0",
		"/org/freedesktop/UPower/devices/DisplayDevice",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Devices() = %#v, want %#v", got, want)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestDevices_EnumerateError(t *testing.T) {
	obj := &fakeObject{replies: map[string]*godbus.Call{
		ifaceName + ".EnumerateDevices": {Err: errors.New("service unknown")},
	}}
	c := &Client{obj: obj}

	_, err := c.Devices(context.Background())
	if err == nil {
		t.Fatal("Devices() error = nil, want enumerate error")
	}
	if !strings.Contains(err.Error(), "enumerate devices") {
		t.Fatalf("Devices() error = %q, want contains %q", err.Error(), "enumerate devices")
	}
	if len(obj.calls) != 1 {
		t.Fatalf("calls = %v, want only EnumerateDevices", obj.calls)
	}
}

func TestDevices_DisplayDeviceError(t *testing.T) {
	obj := &fakeObject{replies: map[string]*godbus.Call{
		ifaceName + ".EnumerateDevices": {Body: []interface{}{[]godbus.ObjectPath{}}},
	}}
	c := &Client{obj: obj}

	_, err := c.Devices(context.Background())
	if err == nil || !strings.Contains(err.Error(), "get display device") {
		t.Fatalf("Devices() error = %v, want get display device error", err)
	}
}
