package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cptspacemanspiff/power-probe/internal/config"
	dbussvc "github.com/cptspacemanspiff/power-probe/internal/dbus"
	"github.com/cptspacemanspiff/power-probe/internal/logging"
	"github.com/cptspacemanspiff/power-probe/internal/logind"
	"github.com/cptspacemanspiff/power-probe/internal/probe"
	"github.com/cptspacemanspiff/power-probe/internal/storage"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to TOML config file")
	verbose := flag.Bool("verbose", false, "enable all verbose logging (equivalent to -log=all)")
	logFlag := flag.String("log", "", "comma-separated log topics: upower,sysfs,details,battery,dbus,sleep,store (or 'all')")
	resetDB := flag.Bool("reset-db", false, "delete the database and start fresh")
	flag.Parse()

	logger := logging.New(os.Stderr, logging.ParseTopics(*logFlag, *verbose))
	sleepLog := logger.With("topic", "sleep")
	storeLog := logger.With("topic", "store")

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		logger.Error("load config", "path", *configPath, "err", err)
		os.Exit(1)
	}

	dbPath := cfg.Storage.DBPath
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("create data dir", "err", err)
		os.Exit(1)
	}

	if *resetDB {
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
				logger.Error("delete database", "err", err)
				os.Exit(1)
			}
		}
		logger.Info("database deleted", "path", dbPath)
		return
	}

	store, err := storage.Open(dbPath)
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	// Cancelling on SIGINT/SIGTERM also aborts a probe that is in progress.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	steps := probe.Steps(cfg.ProbeOptions())
	runProbe := func(ctx context.Context) *probe.Report {
		return probe.Run(ctx, steps, logger)
	}

	svc := dbussvc.NewService(store, runProbe, storeLog)
	conn, err := svc.Export()
	if err != nil {
		logger.Error("export dbus service", "err", err)
		os.Exit(1)
	}
	defer conn.Close()
	logger.Info("D-Bus service registered", "name", dbussvc.BusName)

	// Power supplies come and go across suspend, so re-probe on wake.
	sleepMon, err := logind.NewSleepMonitor(sleepLog)
	var wakeCh <-chan struct{}
	if err != nil {
		logger.Warn("sleep monitor unavailable", "err", err)
	} else {
		wakeCh = sleepMon.Wake()
		defer sleepMon.Close()
	}

	interval := time.Duration(cfg.Daemon.IntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	cleanupTicker := time.NewTicker(time.Duration(cfg.Daemon.CleanupIntervalHours) * time.Hour)
	defer cleanupTicker.Stop()

	logger.Info("power-probed started", "interval", interval, "steps", len(steps))
	probeAndStore(ctx, store, runProbe, storeLog)
	cleanup(store, cfg.Daemon.RetentionDays, storeLog)
	runLoop(ctx, ticker.C, cleanupTicker.C, wakeCh,
		func() { probeAndStore(ctx, store, runProbe, storeLog) },
		func() { cleanup(store, cfg.Daemon.RetentionDays, storeLog) },
		logger)
}

// runLoop probes on every tick and wake, cleans up on every cleanup tick, and
// returns once ctx is cancelled.
func runLoop(ctx context.Context, tick, cleanupTick <-chan time.Time, wake <-chan struct{}, probeFn, cleanupFn func(), logger *slog.Logger) {
	for {
		select {
		case <-tick:
			probeFn()
		case <-wake:
			logger.Info("wake signal received, probing")
			probeFn()
		case <-cleanupTick:
			cleanupFn()
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		}
	}
}

func probeAndStore(ctx context.Context, store *storage.DB, run dbussvc.ProbeFunc, logger *slog.Logger) {
	report := run(ctx)
	id, err := store.InsertReport(report)
	if err != nil {
		logger.Error("store report", "err", err)
		return
	}
	logger.Info("report stored", "id", id, "steps", len(report.Results), "failed", report.Failed())
}

func cleanup(store *storage.DB, retentionDays int, logger *slog.Logger) {
	before := time.Now().AddDate(0, 0, -retentionDays).Unix()
	n, err := store.DeleteOlderThan(before)
	if err != nil {
		logger.Error("cleanup", "err", err)
		return
	}
	if n > 0 {
		logger.Info("deleted old reports", "count", n)
	}
}
