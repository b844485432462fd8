package probe

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cptspacemanspiff/power-probe/internal/upower"
)

// DeviceLister is implemented by upower.Client.
type DeviceLister interface {
	Devices(ctx context.Context) ([]string, error)
	Close() error
}

// UPowerBusStep lists UPower devices over D-Bus instead of running the
// upower utility.
type UPowerBusStep struct {
	// Connect defaults to upower.Connect.
	Connect func() (DeviceLister, error)
}

func (s *UPowerBusStep) Name() string   { return "dbus" }
func (s *UPowerBusStep) Header() string { return "UPower devices (D-Bus):" }

func (s *UPowerBusStep) Run(ctx context.Context, logger *slog.Logger) (string, error) {
	connect := s.Connect
	if connect == nil {
		connect = func() (DeviceLister, error) { return upower.Connect() }
	}

	client, err := connect()
	if err != nil {
		return "", err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Debug("close bus connection", "err", err)
		}
	}()

	devices, err := client.Devices(ctx)
	if err != nil {
		return "", err
	}
	logger.Debug("enumerated devices", "count", len(devices))
	return strings.Join(devices, "\n"), nil
}
