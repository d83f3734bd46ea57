package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

// Config controls when the scheduled jobs run.
type Config struct {
	Location     *time.Location
	RealtimeAt   string // HH:MM
	DailyAt      string // HH:MM
	LookbackDays int

	// Timeout bounds one run of a job. Zero means no bound.
	Timeout time.Duration
}

// Scheduler runs the real-time update and the daily lookback once a day.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    *Runner
	cfg       Config
	log       *logrus.Entry
}

// New creates a new Scheduler.
func New(cfg Config, runner *Runner) *Scheduler {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	cfg.Location = loc

	s := gocron.NewScheduler(loc)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		cfg:       cfg,
		log:       logrus.WithField("component", "scheduler"),
	}
}

// Start schedules the jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(1).Day().At(s.cfg.RealtimeAt).Tag("realtime").Do(s.runRealtime); err != nil {
		return err
	}
	if _, err := s.scheduler.Every(1).Day().At(s.cfg.DailyAt).Tag("daily").Do(s.runLookback); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	for _, j := range s.scheduler.Jobs() {
		s.log.Infof("job %v next run at %s", j.Tags(), j.NextRun().Format(time.RFC3339))
	}
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) context() (context.Context, context.CancelFunc) {
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(context.Background(), s.cfg.Timeout)
	}
	return context.WithCancel(context.Background())
}

func (s *Scheduler) runRealtime() {
	s.log.Info("running real-time radiation job")
	ctx, cancel := s.context()
	defer cancel()

	report, err := s.runner.Realtime(ctx)
	if err != nil {
		s.log.Errorf("real-time job failed: %v", err)
		return
	}
	s.log.Infof("real-time job done: %d station files updated in %s", report.Files, report.Duration())
}

func (s *Scheduler) runLookback() {
	s.log.Infof("running daily job for the last %d days", s.cfg.LookbackDays)
	ctx, cancel := s.context()
	defer cancel()

	res, err := s.runner.Lookback(ctx, time.Now().In(s.cfg.Location), s.cfg.LookbackDays)
	fetch := res.Fetch
	s.log.Infof("daily fetch: %d/%d windows failed, %d rows", fetch.FailedWindows, fetch.Windows, fetch.Rows)
	if res.Split != nil {
		s.log.Infof("repartition: %d rows into %d station files", res.Split.Rows, res.Split.Files)
	}
	if err != nil {
		s.log.Errorf("daily job failed: %v", err)
		return
	}
	s.log.Info("daily job done")
}
