package probe

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
)

const ueventPrefix = "POWER_SUPPLY_"

// SupplyDetailsStep prints the uevent properties of every power supply as an
// aligned table.
type SupplyDetailsStep struct {
	Root string
}

func (s *SupplyDetailsStep) Name() string   { return "details" }
func (s *SupplyDetailsStep) Header() string { return "Power supply details:" }

func (s *SupplyDetailsStep) Run(_ context.Context, logger *slog.Logger) (string, error) {
	names, err := ListSupplies(s.Root)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('\n')

		props, err := readUevent(filepath.Join(powerSupplyDir(s.Root), name))
		if err != nil {
			logger.Debug("skip supply", "name", name, "err", err)
			fmt.Fprintf(&b, "  %v\n", err)
			continue
		}
		writeProps(&b, props)
	}

	online := "no"
	if isACOnline(s.Root) {
		online = "yes"
	}
	fmt.Fprintf(&b, "mains online: %s", online)
	return b.String(), nil
}

// writeProps writes one "  key  value" row per property, keys lower-cased
// with the POWER_SUPPLY_ prefix removed. NAME is skipped since it repeats the
// entry name.
func writeProps(b *strings.Builder, props map[string]string) {
	keys := make([]string, 0, len(props))
	width := 0
	for k := range props {
		if k == ueventPrefix+"NAME" {
			continue
		}
		keys = append(keys, k)
		if w := runewidth.StringWidth(displayKey(k)); w > width {
			width = w
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(b, "  %s  %s\n", runewidth.FillRight(displayKey(k), width), props[k])
	}
}

func displayKey(k string) string {
	return strings.ToLower(strings.TrimPrefix(k, ueventPrefix))
}
