package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/aemet-solar/internal/aemet"
	"github.com/i474232898/aemet-solar/internal/config"
	"github.com/i474232898/aemet-solar/internal/repartition"
	"github.com/i474232898/aemet-solar/internal/scheduler"
	"github.com/i474232898/aemet-solar/internal/solar"
	"github.com/i474232898/aemet-solar/internal/stations"
	"github.com/i474232898/aemet-solar/internal/store"
)

const usage = `usage: aemet-solar <command> [flags]

commands:
  daily        fetch daily insolation for a year or a date range
  realtime     update the per-station hourly radiation files
  repartition  split consolidated daily files into per-station files
  stations     download the station inventory
  export       write per-station daily files as one Parquet file
  serve        run the scheduler and the status API
`

type command func(ctx context.Context, app *application, args []string) error

var commands = map[string]command{
	"daily":       runDaily,
	"realtime":    runRealtime,
	"repartition": runRepartition,
	"stations":    runStations,
	"export":      runExport,
	"serve":       runServe,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	setupLogging(cfg)

	app, err := newApplication(cfg)
	if err != nil {
		logrus.Fatalf("failed to initialise: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd(ctx, app, os.Args[2:]); err != nil {
		logrus.Errorf("%s: %v", os.Args[1], err)
		stop()
		os.Exit(1)
	}
}

func setupLogging(cfg *config.AppConfig) {
	logrus.SetLevel(cfg.LogLevel)
	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// application bundles the components shared by every command.
type application struct {
	cfg      *config.AppConfig
	datasets *store.CSVStore
	service  *solar.Service
	runner   *scheduler.Runner
}

func newApplication(cfg *config.AppConfig) (*application, error) {
	log := logrus.WithField("component", "aemet")

	// The windowed endpoints have no request timeout by default.
	daily := aemet.NewClient("daily", aemet.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Client:  &http.Client{Timeout: cfg.DailyHTTPTimeout},
		Retry: aemet.RetryPolicy{
			MaxAttempts: cfg.DailyMaxAttempts,
			Delay:       cfg.DailyRetryDelay,
		},
		BreakerThreshold: uint32(cfg.BreakerFailureThreshold),
		Logger:           log,
	})
	realtime := aemet.NewClient("realtime", aemet.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Client:  &http.Client{Timeout: cfg.RealtimeHTTPTimeout},
		Retry: aemet.RetryPolicy{
			MaxAttempts:         cfg.RealtimeMaxAttempts,
			Delay:               cfg.RealtimeRetryDelay,
			RetryMissingPointer: true,
		},
		BreakerThreshold: uint32(cfg.BreakerFailureThreshold),
		Logger:           log,
	})

	ref, err := stations.Load(cfg.StationsFile)
	if err != nil {
		return nil, fmt.Errorf("load station reference: %w", err)
	}
	if ref.Len() == 0 {
		logrus.Warnf("station reference %s is empty; coordinates will be null (run `aemet-solar stations`)", cfg.StationsFile)
	}

	reports := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	datasets := store.NewCSVStore()

	service := solar.NewService(datasets, reports,
		solar.WithDailyFetcher(daily),
		solar.WithRadiationFetcher(realtime),
		solar.WithStations(ref),
		solar.WithRealtimeDir(cfg.RealtimeDir),
		solar.WithLogger(logrus.WithField("component", "service")),
	)

	runner := scheduler.NewRunner(scheduler.RunnerConfig{
		Service:       service,
		Repartitioner: repartition.New(datasets, logrus.WithField("component", "repartition")),
		Inventory:     daily,
		DataDir:       cfg.DataDir,
		WindowDays:    cfg.WindowDays,
	})

	return &application{
		cfg:      cfg,
		datasets: datasets,
		service:  service,
		runner:   runner,
	}, nil
}
