package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/aemet-solar/internal/repartition"
	"github.com/i474232898/aemet-solar/internal/solar"
	"github.com/i474232898/aemet-solar/internal/stations"
)

// StationSource provides the station inventory.
type StationSource interface {
	FetchStations(ctx context.Context) ([]stations.StationRecord, error)
}

// Runner executes the ingestion jobs one at a time. The scheduler and the
// command line both go through it so that no two jobs write datasets at
// the same time.
type Runner struct {
	mu sync.Mutex

	service       *solar.Service
	repartitioner *repartition.Repartitioner
	inventory     StationSource

	dataDir    string
	windowDays int
	log        *logrus.Entry
}

// RunnerConfig holds the Runner's collaborators.
type RunnerConfig struct {
	Service       *solar.Service
	Repartitioner *repartition.Repartitioner
	Inventory     StationSource
	DataDir       string
	WindowDays    int
	Logger        *logrus.Entry
}

// NewRunner creates a new Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	log := cfg.Logger
	if log == nil {
		log = logrus.WithField("component", "runner")
	}
	return &Runner{
		service:       cfg.Service,
		repartitioner: cfg.Repartitioner,
		inventory:     cfg.Inventory,
		dataDir:       cfg.DataDir,
		windowDays:    cfg.WindowDays,
		log:           log,
	}
}

// Daily runs the windowed daily job.
func (r *Runner) Daily(ctx context.Context, job solar.DailyJob) (solar.JobReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job.WindowDays == 0 {
		job.WindowDays = r.windowDays
	}
	return r.service.RunDaily(ctx, job)
}

// Realtime runs the real-time hourly update.
func (r *Runner) Realtime(ctx context.Context) (solar.JobReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.service.RunRealtime(ctx)
}

// Repartition splits the consolidated files of dir (the data directory when
// dir is empty).
func (r *Runner) Repartition(ctx context.Context, dir string) (solar.JobReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.repartition(ctx, dir)
}

func (r *Runner) repartition(ctx context.Context, dir string) (solar.JobReport, error) {
	if dir == "" {
		dir = r.dataDir
	}
	report := solar.NewJobReport(solar.JobRepartition)
	rep, err := r.repartitioner.Run(ctx, dir)
	rep.Apply(&report)
	report.Finish(err)
	r.service.Record(report)
	return report, err
}

// Stations downloads the station inventory and writes it to path.
func (r *Runner) Stations(ctx context.Context, path string) (solar.JobReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := solar.NewJobReport(solar.JobStations)
	err := func() error {
		if r.inventory == nil {
			return fmt.Errorf("no station source configured")
		}
		records, err := r.inventory.FetchStations(ctx)
		if err != nil {
			return fmt.Errorf("fetch inventory: %w", err)
		}
		report.Fetched = len(records)
		if err := stations.Save(path, records); err != nil {
			return fmt.Errorf("save %s: %w", path, err)
		}
		report.Rows = len(records)
		report.Files = 1
		return nil
	}()
	report.Finish(err)
	r.service.Record(report)
	return report, err
}

// LookbackResult holds the reports of both steps of a lookback run. Split
// is nil when the fetch produced no rows or failed.
type LookbackResult struct {
	Fetch solar.JobReport
	Split *solar.JobReport
}

// Lookback fetches the days trailing now into a period file and splits it
// into the per-station files. The range ends yesterday, as today's
// climatological values are not yet published.
func (r *Runner) Lookback(ctx context.Context, now time.Time, days int) (LookbackResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start, end := LookbackRange(now, days)
	job := solar.DailyJob{
		Start:      start,
		End:        end,
		WindowDays: r.windowDays,
		Output:     filepath.Join(r.dataDir, solar.PeriodFileName(start, end)),
	}

	var res LookbackResult
	var err error
	res.Fetch, err = r.service.RunDaily(ctx, job)
	if err != nil {
		return res, err
	}
	if res.Fetch.Rows == 0 {
		r.log.Warnf("no rows for %s..%s; skipping repartition", start.Format(solar.DateLayout), end.Format(solar.DateLayout))
		return res, nil
	}

	split, err := r.repartition(ctx, r.dataDir)
	res.Split = &split
	return res, err
}

// LookbackRange returns the inclusive range of the days calendar days
// before now's date.
func LookbackRange(now time.Time, days int) (time.Time, time.Time) {
	if days < 1 {
		days = 1
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := today.AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -(days - 1))
	return start, end
}
