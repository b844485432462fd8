package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/cptspacemanspiff/power-probe/internal/probe"
)

// DefaultPath is read when no -config flag is given. It may be absent.
var DefaultPath = "/etc/power-probe/config.toml"

const (
	minTimeoutSeconds       = 1
	maxTimeoutSeconds       = 300
	minIntervalSeconds      = 5
	maxIntervalSeconds      = 86400
	minRetentionDays        = 1
	maxRetentionDays        = 3650
	minCleanupIntervalHours = 1
	maxCleanupIntervalHours = 720
)

type Config struct {
	Probe   ProbeConfig   `toml:"probe"`
	Storage StorageConfig `toml:"storage"`
	Daemon  DaemonConfig  `toml:"daemon"`
}

type ProbeConfig struct {
	UPowerPath     string   `toml:"upower_path"`
	UPowerArgs     []string `toml:"upower_args"`
	SysfsRoot      string   `toml:"sysfs_root"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	Details        bool     `toml:"details"`
	Battery        bool     `toml:"battery"`
	UPowerDBus     bool     `toml:"upower_dbus"`
}

type StorageConfig struct {
	DBPath string `toml:"db_path"`
	Record bool   `toml:"record"`
}

type DaemonConfig struct {
	IntervalSeconds      int `toml:"interval_seconds"`
	RetentionDays        int `toml:"retention_days"`
	CleanupIntervalHours int `toml:"cleanup_interval_hours"`
}

func DefaultConfig() *Config {
	return &Config{
		Probe: ProbeConfig{
			UPowerPath:     "upower",
			UPowerArgs:     []string{"-e"},
			SysfsRoot:      "/sys",
			TimeoutSeconds: 10,
		},
		Storage: StorageConfig{
			DBPath: "/var/lib/power-probe/reports.db",
		},
		Daemon: DaemonConfig{
			IntervalSeconds:      300,
			RetentionDays:        30,
			CleanupIntervalHours: 24,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return NormalizeAndValidate(cfg)
}

// LoadOrDefault loads path, or returns the defaults when path is DefaultPath
// and the file does not exist. An explicitly chosen path must exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil && path == DefaultPath && errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

func NormalizeAndValidate(cfg *Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}

	sanitized := *cfg
	sanitized.Probe.UPowerArgs = append([]string(nil), cfg.Probe.UPowerArgs...)

	sanitized.Probe.UPowerPath = strings.TrimSpace(sanitized.Probe.UPowerPath)
	if sanitized.Probe.UPowerPath == "" {
		return nil, fmt.Errorf("probe.upower_path must not be empty")
	}

	var err error
	sanitized.Probe.SysfsRoot, err = sanitizePath("probe.sysfs_root", sanitized.Probe.SysfsRoot)
	if err != nil {
		return nil, err
	}
	sanitized.Storage.DBPath, err = sanitizePath("storage.db_path", sanitized.Storage.DBPath)
	if err != nil {
		return nil, err
	}

	if err := validateRange("probe.timeout_seconds", sanitized.Probe.TimeoutSeconds, minTimeoutSeconds, maxTimeoutSeconds); err != nil {
		return nil, err
	}
	if err := validateRange("daemon.interval_seconds", sanitized.Daemon.IntervalSeconds, minIntervalSeconds, maxIntervalSeconds); err != nil {
		return nil, err
	}
	if err := validateRange("daemon.retention_days", sanitized.Daemon.RetentionDays, minRetentionDays, maxRetentionDays); err != nil {
		return nil, err
	}
	if err := validateRange("daemon.cleanup_interval_hours", sanitized.Daemon.CleanupIntervalHours, minCleanupIntervalHours, maxCleanupIntervalHours); err != nil {
		return nil, err
	}

	return &sanitized, nil
}

// ProbeOptions maps the [probe] section onto probe.Options.
func (c *Config) ProbeOptions() probe.Options {
	return probe.Options{
		UPowerPath: c.Probe.UPowerPath,
		UPowerArgs: c.Probe.UPowerArgs,
		Timeout:    time.Duration(c.Probe.TimeoutSeconds) * time.Second,
		SysfsRoot:  c.Probe.SysfsRoot,
		Details:    c.Probe.Details,
		Battery:    c.Probe.Battery,
		UPowerDBus: c.Probe.UPowerDBus,
	}
}

func Save(path string, cfg *Config) error {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return fmt.Errorf("config path must not be empty")
	}

	sanitized, err := NormalizeAndValidate(cfg)
	if err != nil {
		return err
	}

	var data bytes.Buffer
	if err := toml.NewEncoder(&data).Encode(sanitized); err != nil {
		return fmt.Errorf("encode config TOML: %w", err)
	}

	dir := filepath.Dir(trimmedPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if tmpPath != "" {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data.Bytes()); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("chmod temp config file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}
	if err := os.Rename(tmpPath, trimmedPath); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	tmpPath = ""

	return nil
}

func sanitizePath(name, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%s must not be empty", name)
	}
	cleaned := filepath.Clean(trimmed)
	if !filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%s must be an absolute path, got %q", name, value)
	}
	return cleaned, nil
}

func validateRange(name string, value, min, max int) error {
	if value < min || value > max {
		return fmt.Errorf("%s must be between %d and %d, got %d", name, min, max, value)
	}

	return nil
}
