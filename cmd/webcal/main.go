package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"webcal/internal/backup"
	"webcal/internal/calendar"
	"webcal/internal/config"
	appLog "webcal/internal/log"
	"webcal/internal/store"
	"webcal/internal/web"
)

// flagConfig holds CLI flag values that override the config file.
type flagConfig struct {
	configPath string
	listen     string
	dataFile   string
	debug      bool
}

func main() {
	appLog.Info("webcal starting", "version", "0.1.0")

	flags := parseFlags()

	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI flags override config file values if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.dataFile != "" {
		conf.DataFile = flags.dataFile
		conf.Normalize()
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"data_file", conf.DataFile,
		"timezone", conf.Timezone,
		"default_color", conf.DefaultColor,
		"import_horizon_days", conf.ImportHorizonDays,
		"backup_cron", conf.Backup.Cron,
		"snapshot_enabled", conf.Snapshot.Enabled,
	)

	fileStore := store.NewFileStore(conf.DataFile)
	if err := fileStore.Init(); err != nil {
		appLog.Error("failed to initialize event store", err, "data_file", conf.DataFile)
		os.Exit(1)
	}

	svc := calendar.NewService(fileStore)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if conf.Backup.Cron != "" {
		job := backup.NewJob(conf.DataFile, conf.Backup.Dir, conf.Backup.Keep)
		if err := job.Start(conf.Backup.Cron); err != nil {
			appLog.Error("failed to start backup scheduler", err, "spec", conf.Backup.Cron)
			os.Exit(1)
		}
		defer job.Stop()
	}

	if err := web.StartServer(ctx, conf, svc); err != nil {
		appLog.Error("HTTP server failed", err, "listen", conf.Listen)
		os.Exit(1)
	}

	appLog.Info("webcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.dataFile, "data", "", "Event data file path (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
