package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/distatus/battery"
)

// BatteryStep prints a per-battery summary read through the platform battery
// API rather than raw sysfs.
type BatteryStep struct {
	// GetAll defaults to battery.GetAll.
	GetAll func() ([]*battery.Battery, error)
}

func (s *BatteryStep) Name() string   { return "battery" }
func (s *BatteryStep) Header() string { return "Batteries:" }

func (s *BatteryStep) Run(_ context.Context, logger *slog.Logger) (string, error) {
	getAll := s.GetAll
	if getAll == nil {
		getAll = battery.GetAll
	}

	batteries, err := getAll()
	var partial battery.Errors
	if err != nil && !errors.As(err, &partial) {
		return "", fmt.Errorf("read batteries: %w", err)
	}
	if len(batteries) == 0 {
		return "", errors.New("no battery found")
	}

	lines := make([]string, 0, len(batteries))
	for i, bat := range batteries {
		var batErr error
		if i < len(partial) {
			batErr = partial[i]
		}
		if batErr != nil {
			logger.Debug("partial battery data", "index", i, "err", batErr)
			if bat == nil || bat.Full == 0 {
				lines = append(lines, fmt.Sprintf("battery %d: %v", i, batErr))
				continue
			}
		}
		if bat == nil {
			continue
		}
		line := formatBattery(i, bat)
		if batErr != nil {
			line += fmt.Sprintf(" [partial: %v]", batErr)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

// formatBattery renders energy in Wh and rate in W; the library reports mWh
// and mW.
func formatBattery(i int, bat *battery.Battery) string {
	pct := 0.0
	if bat.Full > 0 {
		pct = bat.Current / bat.Full * 100
	}
	return fmt.Sprintf("battery %d: %s, %.1f%% (%.2f/%.2f Wh, design %.2f Wh, %.2f W)",
		i, bat.State.String(), pct,
		bat.Current/1000, bat.Full/1000, bat.Design/1000, bat.ChargeRate/1000)
}
