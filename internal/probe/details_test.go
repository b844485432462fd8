package probe

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSupplyDetailsStep_AlignedTable(t *testing.T) {
	root := setTestSysfsRoot(t)
	writeTestFile(t, filepath.Join(root, "class/power_supply/AC/uevent"), strings.Join([]string{
		"POWER_SUPPLY_NAME=AC",
		"POWER_SUPPLY_TYPE=Mains",
		"POWER_SUPPLY_ONLINE=1",
		"",
	}, "\n"))
	writeTestFile(t, filepath.Join(root, "class/power_supply/AC/type"), "Mains\n")
	writeTestFile(t, filepath.Join(root, "class/power_supply/AC/online"), "1\n")
	writeTestFile(t, filepath.Join(root, "class/power_supply/BAT0/uevent"), strings.Join([]string{
		"POWER_SUPPLY_NAME=BAT0",
		"POWER_SUPPLY_STATUS=Full",
		"POWER_SUPPLY_CAPACITY=100",
		"",
	}, "\n"))

	got, err := (&SupplyDetailsStep{}).Run(context.Background(), discardLogger())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := strings.Join([]string{
		"AC",
		"  online  1",
		"  type    Mains",
		"BAT0",
		"  capacity  100",
		"  status    Full",
		"mains online: yes",
	}, "\n")
	if got != want {
		t.Fatalf("Run() =\n%s\nwant\n%s", got, want)
	}
}

func TestSupplyDetailsStep_MissingUevent(t *testing.T) {
	root := setTestSysfsRoot(t)
	if err := os.MkdirAll(filepath.Join(root, "class/power_supply/ucsi-source-psy-1"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := (&SupplyDetailsStep{}).Run(context.Background(), discardLogger())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(got, "ucsi-source-psy-1\n  read uevent:") {
		t.Fatalf("Run() = %q, want read uevent error under entry", got)
	}
	if !strings.HasSuffix(got, "mains online: no") {
		t.Fatalf("Run() = %q, want mains offline summary", got)
	}
}

func TestSupplyDetailsStep_MissingDir(t *testing.T) {
	_ = setTestSysfsRoot(t)

	if _, err := (&SupplyDetailsStep{}).Run(context.Background(), discardLogger()); err == nil {
		t.Fatal("Run() error = nil, want missing directory error")
	}
}

func TestWriteProps_WideValues(t *testing.T) {
	var b strings.Builder
	writeProps(&b, map[string]string{
		"POWER_SUPPLY_MANUFACTURER": "東芝",
		"POWER_SUPPLY_CYCLE_COUNT":  "42",
	})

	want := "  cycle_count   42\n  manufacturer  東芝\n"
	if b.String() != want {
		t.Fatalf("writeProps() = %q, want %q", b.String(), want)
	}
}
