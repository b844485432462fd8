package dbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	godbus "github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/cptspacemanspiff/power-probe/internal/probe"
	"github.com/cptspacemanspiff/power-probe/internal/storage"
)

const (
	BusName   = "org.gnome.PowerProbe"
	ObjPath   = "/org/gnome/PowerProbe"
	IfaceName = "org.gnome.PowerProbe"

	maxRangeSeconds = 86400 * 366
)

const introspectXML = `
<node>
  <interface name="` + IfaceName + `">
    <method name="GetLatestReport">
      <arg direction="out" type="s" name="json"/>
    </method>
    <method name="GetReports">
      <arg direction="in" type="x" name="from_epoch"/>
      <arg direction="in" type="x" name="to_epoch"/>
      <arg direction="out" type="s" name="json"/>
    </method>
    <method name="ProbeNow">
      <arg direction="out" type="s" name="json"/>
    </method>
  </interface>
` + introspect.IntrospectDataString + `
</node>`

// ProbeFunc runs a probe and returns its report.
type ProbeFunc func(ctx context.Context) *probe.Report

// Service exposes probe reports over D-Bus.
type Service struct {
	store *storage.DB
	probe ProbeFunc
	log   *slog.Logger

	// Serializes ProbeNow with itself; godbus dispatches calls concurrently.
	mu sync.Mutex
}

// NewService creates a new D-Bus service.
func NewService(store *storage.DB, run ProbeFunc, logger *slog.Logger) *Service {
	return &Service{store: store, probe: run, log: logger}
}

// Export registers the service on the session bus.
func (s *Service) Export() (*godbus.Conn, error) {
	conn, err := godbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	if err := conn.Export(s, ObjPath, IfaceName); err != nil {
		return nil, fmt.Errorf("export service: %w", err)
	}
	if err := conn.Export(introspect.Introspectable(introspectXML), ObjPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return nil, fmt.Errorf("export introspection: %w", err)
	}

	reply, err := conn.RequestName(BusName, godbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("request name: %w", err)
	}
	if reply != godbus.RequestNameReplyPrimaryOwner {
		return nil, fmt.Errorf("name %s already taken", BusName)
	}

	return conn, nil
}

// GetLatestReport returns the most recent stored report as JSON, or "null".
func (s *Service) GetLatestReport() (string, *godbus.Error) {
	report, err := s.store.LatestReport()
	if err != nil {
		return "", godbus.MakeFailedError(err)
	}
	return marshal(report)
}

// GetReports returns stored reports in a time range as a JSON array.
func (s *Service) GetReports(fromEpoch, toEpoch int64) (string, *godbus.Error) {
	if err := validateRange(fromEpoch, toEpoch); err != nil {
		return "", godbus.MakeFailedError(err)
	}
	reports, err := s.store.ReportsInRange(fromEpoch, toEpoch)
	if err != nil {
		return "", godbus.MakeFailedError(err)
	}
	if reports == nil {
		reports = []probe.Report{}
	}
	return marshal(reports)
}

// ProbeNow runs a probe, records it and returns it as JSON.
func (s *Service) ProbeNow() (string, *godbus.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := s.probe(context.Background())
	id, err := s.store.InsertReport(report)
	if err != nil {
		s.log.Error("store report", "err", err)
	} else {
		report.ID = id
	}
	return marshal(report)
}

func validateRange(from, to int64) error {
	if from < 0 {
		return fmt.Errorf("from_epoch must not be negative, got %d", from)
	}
	if to < from {
		return fmt.Errorf("to_epoch %d is before from_epoch %d", to, from)
	}
	if to-from > maxRangeSeconds {
		return fmt.Errorf("time range of %d seconds exceeds maximum %d", to-from, maxRangeSeconds)
	}
	return nil
}

func marshal(v any) (string, *godbus.Error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", godbus.MakeFailedError(err)
	}
	return string(data), nil
}
