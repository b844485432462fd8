package probe

import (
	"context"
	"errors"
	"os/exec"
	"reflect"
	"strings"
	"testing"
	"time"
)

type fakeCommander struct {
	out  []byte
	err  error
	wait bool

	name string
	args []string
}

func (f *fakeCommander) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.name = name
	f.args = args
	if f.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.out, f.err
}

func TestUPowerStep_PrintsStdoutVerbatim(t *testing.T) {
	out := "/org/freedesktop/UPower/devices/line_power_AC\n/org/freedesktop/UPower/devices/DisplayDevice\n"
	cmd := &fakeCommander{out: []byte(out)}
	step := NewUPowerStep(time.Second)
	step.Cmd = cmd

	got, err := step.Run(context.Background(), discardLogger())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != out {
		t.Fatalf("Run() = %q, want %q", got, out)
	}
	if cmd.name != "upower" || !reflect.DeepEqual(cmd.args, []string{"-e"}) {
		t.Fatalf("ran %s %v, want upower [-e]", cmd.name, cmd.args)
	}
}

func TestUPowerStep_NonZeroExitKeepsStdout(t *testing.T) {
	cmd := &fakeCommander{out: []byte("partial\n"), err: &exec.ExitError{Stderr: []byte("daemon not running")}}
	step := NewUPowerStep(time.Second)
	step.Cmd = cmd

	got, err := step.Run(context.Background(), discardLogger())
	if err != nil {
		t.Fatalf("Run() error = %v, want nil for non-zero exit", err)
	}
	if got != "partial\n" {
		t.Fatalf("Run() = %q, want %q", got, "partial\n")
	}
}

func TestUPowerStep_MissingBinary(t *testing.T) {
	cmd := &fakeCommander{err: &exec.Error{Name: "upower", Err: exec.ErrNotFound}}
	step := NewUPowerStep(time.Second)
	step.Cmd = cmd

	_, err := step.Run(context.Background(), discardLogger())
	if err == nil {
		t.Fatal("Run() error = nil, want not found error")
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("Run() error = %v, want exec.ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), `"upower"`) {
		t.Fatalf("Run() error = %q, want it to name the binary", err.Error())
	}
}

func TestUPowerStep_Timeout(t *testing.T) {
	step := NewUPowerStep(10 * time.Millisecond)
	step.Cmd = &fakeCommander{wait: true}

	_, err := step.Run(context.Background(), discardLogger())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want deadline exceeded", err)
	}
	if !strings.Contains(err.Error(), "upower -e") {
		t.Fatalf("Run() error = %q, want command in message", err.Error())
	}
}

func TestUPowerStep_RealMissingBinary(t *testing.T) {
	step := NewUPowerStep(time.Second)
	step.Path = "/nonexistent/upower-probe-test"

	_, err := step.Run(context.Background(), discardLogger())
	if err == nil {
		t.Fatal("Run() error = nil, want start failure")
	}
}
