package probe

import "time"

// Options selects and configures the steps of a probe run.
type Options struct {
	UPowerPath string
	UPowerArgs []string
	Timeout    time.Duration
	SysfsRoot  string

	Details    bool
	Battery    bool
	UPowerDBus bool
}

// Steps returns the upower and power_supply listing steps, followed by any
// optional steps enabled in opts.
func Steps(opts Options) []Step {
	up := NewUPowerStep(opts.Timeout)
	if opts.UPowerPath != "" {
		up.Path = opts.UPowerPath
	}
	if opts.UPowerArgs != nil {
		up.Args = opts.UPowerArgs
	}

	steps := []Step{up, &SupplyListStep{Root: opts.SysfsRoot}}
	if opts.Details {
		steps = append(steps, &SupplyDetailsStep{Root: opts.SysfsRoot})
	}
	if opts.Battery {
		steps = append(steps, &BatteryStep{})
	}
	if opts.UPowerDBus {
		steps = append(steps, &UPowerBusStep{})
	}
	return steps
}
