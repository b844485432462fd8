package probe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// sysfsRoot is the sysfs mount point. Tests point it at a temp dir.
var sysfsRoot = "/sys"

func powerSupplyDir(root string) string {
	if root == "" {
		root = sysfsRoot
	}
	return filepath.Join(root, "class", "power_supply")
}

// ListSupplies returns the entry names of the power_supply class directory,
// sorted by name.
func ListSupplies(root string) ([]string, error) {
	entries, err := os.ReadDir(powerSupplyDir(root))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// SupplyListStep prints the power_supply entries on one line.
type SupplyListStep struct {
	// Root overrides the sysfs mount point when set.
	Root string
}

func (s *SupplyListStep) Name() string   { return "sysfs" }
func (s *SupplyListStep) Header() string { return "Listing power supply:" }

func (s *SupplyListStep) Run(_ context.Context, logger *slog.Logger) (string, error) {
	names, err := ListSupplies(s.Root)
	if err != nil {
		return "", err
	}
	logger.Debug("listed power supplies", "dir", powerSupplyDir(s.Root), "count", len(names))
	return strings.Join(names, " "), nil
}

// readUevent parses the KEY=VALUE lines of a supply's uevent file.
func readUevent(dir string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "uevent"))
	if err != nil {
		return nil, fmt.Errorf("read uevent: %w", err)
	}
	return parseUevent(string(data)), nil
}

func parseUevent(data string) map[string]string {
	props := make(map[string]string)
	for _, line := range strings.Split(data, "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			props[k] = v
		}
	}
	return props
}

// isACOnline reports whether any mains adapter under root is online.
func isACOnline(root string) bool {
	names, err := ListSupplies(root)
	if err != nil {
		return false
	}
	for _, name := range names {
		dir := filepath.Join(powerSupplyDir(root), name)
		typ, err := os.ReadFile(filepath.Join(dir, "type"))
		if err != nil || strings.TrimSpace(string(typ)) != "Mains" {
			continue
		}
		if online, err := readIntFile(filepath.Join(dir, "online")); err == nil && online == 1 {
			return true
		}
	}
	return false
}

func readIntFile(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
}
