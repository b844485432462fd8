// Command power-probe prints the power devices reported by upower and the
// entries of /sys/class/power_supply. Failures are printed in place of the
// result; the exit status only reflects usage and configuration errors.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cptspacemanspiff/power-probe/internal/config"
	"github.com/cptspacemanspiff/power-probe/internal/logging"
	"github.com/cptspacemanspiff/power-probe/internal/probe"
	"github.com/cptspacemanspiff/power-probe/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("power-probe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultPath, "path to TOML config file")
	details := fs.Bool("details", false, "also print uevent properties of every power supply")
	batteries := fs.Bool("battery", false, "also print a per-battery summary")
	busList := fs.Bool("dbus", false, "also list UPower devices over D-Bus")
	record := fs.Bool("record", false, "store the report in the database")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	history := fs.Int("history", 0, "print the last N recorded reports and exit")
	verbose := fs.Bool("verbose", false, "enable all verbose logging (equivalent to -log=all)")
	logFlag := fs.String("log", "", "comma-separated log topics: upower,sysfs,details,battery,dbus,store (or 'all')")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := logging.New(stderr, logging.ParseTopics(*logFlag, *verbose))
	storeLog := logger.With("topic", "store")

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		logger.Error("load config", "path", *configPath, "err", err)
		return 1
	}
	cfg.Probe.Details = cfg.Probe.Details || *details
	cfg.Probe.Battery = cfg.Probe.Battery || *batteries
	cfg.Probe.UPowerDBus = cfg.Probe.UPowerDBus || *busList
	cfg.Storage.Record = cfg.Storage.Record || *record

	if *history > 0 {
		return printHistory(cfg.Storage.DBPath, *history, *asJSON, stdout, logger)
	}

	report := probe.Run(ctx, probe.Steps(cfg.ProbeOptions()), logger)

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			logger.Error("write report", "err", err)
		}
	} else if err := report.WriteText(stdout); err != nil {
		logger.Error("write report", "err", err)
	}

	if cfg.Storage.Record {
		if id, err := recordReport(cfg.Storage.DBPath, report); err != nil {
			storeLog.Error("record report", "path", cfg.Storage.DBPath, "err", err)
		} else {
			storeLog.Info("report recorded", "id", id, "failed_steps", report.Failed())
		}
	}
	return 0
}

func recordReport(dbPath string, report *probe.Report) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return 0, fmt.Errorf("create data dir: %w", err)
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer store.Close()
	return store.InsertReport(report)
}

func printHistory(dbPath string, n int, asJSON bool, w io.Writer, logger *slog.Logger) int {
	if _, err := os.Stat(dbPath); err != nil {
		logger.Error("open database", "path", dbPath, "err", err)
		return 1
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		logger.Error("open database", "err", err)
		return 1
	}
	defer store.Close()

	reports, err := store.RecentReports(n)
	if err != nil {
		logger.Error("read reports", "err", err)
		return 1
	}

	if asJSON {
		if reports == nil {
			reports = []probe.Report{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			logger.Error("write reports", "err", err)
		}
		return 0
	}
	for _, r := range reports {
		fmt.Fprintf(w, "== report %d at %s (%d failed) ==\n", r.ID,
			time.Unix(r.Timestamp, 0).Format(time.RFC3339), r.Failed())
		if err := r.WriteText(w); err != nil {
			logger.Error("write reports", "err", err)
			return 0
		}
	}
	return 0
}
