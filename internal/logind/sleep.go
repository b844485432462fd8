// Package logind watches systemd-logind for suspend and resume.
package logind

import (
	"log/slog"

	"github.com/godbus/dbus/v5"
)

const managerIface = "org.freedesktop.login1.Manager"

// SleepMonitor listens for logind PrepareForSleep signals. Power supplies can
// appear or disappear while the machine sleeps (docks, USB-C chargers), so
// the daemon re-probes on every wake.
type SleepMonitor struct {
	conn *dbus.Conn
	done chan struct{}
	wake chan struct{}
	log  *slog.Logger
}

// NewSleepMonitor creates a new sleep monitor connected to the system bus.
func NewSleepMonitor(logger *slog.Logger) (*SleepMonitor, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, err
	}

	err = conn.AddMatchSignal(
		dbus.WithMatchInterface(managerIface),
		dbus.WithMatchMember("PrepareForSleep"),
	)
	if err != nil {
		return nil, err
	}

	m := newSleepMonitor(logger)
	m.conn = conn

	ch := make(chan *dbus.Signal, 16)
	conn.Signal(ch)
	go func() {
		defer conn.RemoveSignal(ch)
		m.listen(ch)
	}()
	return m, nil
}

func newSleepMonitor(logger *slog.Logger) *SleepMonitor {
	return &SleepMonitor{
		done: make(chan struct{}),
		wake: make(chan struct{}, 1),
		log:  logger,
	}
}

// Wake returns a channel that receives a value each time the system wakes from sleep.
func (m *SleepMonitor) Wake() <-chan struct{} {
	return m.wake
}

// Close stops the monitor.
func (m *SleepMonitor) Close() {
	close(m.done)
}

func (m *SleepMonitor) listen(ch <-chan *dbus.Signal) {
	for {
		select {
		case sig := <-ch:
			if sig == nil || sig.Name != managerIface+".PrepareForSleep" || len(sig.Body) < 1 {
				continue
			}
			active, ok := sig.Body[0].(bool)
			if !ok {
				continue
			}
			if active {
				m.log.Info("system going to sleep")
				continue
			}
			m.log.Info("system woke up")
			select {
			case m.wake <- struct{}{}:
			default:
			}
		case <-m.done:
			return
		}
	}
}
