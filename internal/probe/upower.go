package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Commander runs an external command and returns its standard output.
type Commander interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecCommander runs real processes.
type ExecCommander struct{}

func (ExecCommander) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// UPowerStep prints the device list reported by the upower utility.
type UPowerStep struct {
	Path    string
	Args    []string
	Timeout time.Duration
	Cmd     Commander
}

// NewUPowerStep returns a step running `upower -e` with the given timeout.
func NewUPowerStep(timeout time.Duration) *UPowerStep {
	return &UPowerStep{
		Path:    "upower",
		Args:    []string{"-e"},
		Timeout: timeout,
		Cmd:     ExecCommander{},
	}
}

func (s *UPowerStep) Name() string   { return "upower" }
func (s *UPowerStep) Header() string { return "" }

// Run returns stdout unmodified. A non-zero exit status still yields the
// captured stdout; only a failure to run the command at all is an error.
func (s *UPowerStep) Run(ctx context.Context, logger *slog.Logger) (string, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	cmd := s.Cmd
	if cmd == nil {
		cmd = ExecCommander{}
	}

	out, err := cmd.Output(ctx, s.Path, s.Args...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("%s %s: %w", s.Path, strings.Join(s.Args, " "), ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		logger.Info("command exited with non-zero status",
			"path", s.Path,
			"code", exitErr.ExitCode(),
			"stderr", strings.TrimSpace(string(exitErr.Stderr)))
		return string(out), nil
	}
	if err != nil {
		return "", err
	}

	logger.Debug("command output", "path", s.Path, "bytes", len(out))
	return string(out), nil
}
