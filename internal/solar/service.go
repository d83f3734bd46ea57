package solar

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/aemet-solar/internal/common"
	"github.com/i474232898/aemet-solar/internal/metrics"
)

// HourlyFileSuffix is appended to the normalized station name of every
// real-time per-station file.
const HourlyFileSuffix = "_radiacion_completo.csv"

// hourlyFileAliases maps normalized names to the file stems used by
// existing datasets before the station was renamed upstream.
var hourlyFileAliases = map[string]string{
	"Madrid_Ciudad_Universitaria": "Madrid,_Ciudad_Universitaria",
}

// HourlyFileName returns the per-station real-time file name for a
// station display name.
func HourlyFileName(stationName string) string {
	stem := common.NormalizeStationName(stationName)
	if alias, ok := hourlyFileAliases[stem]; ok {
		stem = alias
	}
	return stem + HourlyFileSuffix
}

// StationFileSuffix ends every per-station daily file written by the
// repartitioner and read back by the Parquet export.
const StationFileSuffix = "_daily.csv"

// DailyFilePrefix starts the name of every consolidated daily file.
const DailyFilePrefix = "insolation_daily"

// YearFileName names the consolidated file of a whole year.
func YearFileName(year int) string {
	return fmt.Sprintf("%s_%04d.csv", DailyFilePrefix, year)
}

// PeriodFileName names the consolidated file of an arbitrary date range.
func PeriodFileName(start, end time.Time) string {
	return fmt.Sprintf("%s_%s_%s.csv", DailyFilePrefix, start.Format(DateLayout), end.Format(DateLayout))
}

// DailyJob describes one windowed run of the daily job.
type DailyJob struct {
	Start      time.Time
	End        time.Time
	WindowDays int
	Output     string
}

// Service orchestrates fetching, extraction and merging of the datasets.
type Service struct {
	store     DatasetStore
	reports   ReportStore
	daily     DailyFetcher
	radiation RadiationFetcher
	stations  StationLookup

	realtimeDir string
	log         *logrus.Entry
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithDailyFetcher sets the source of daily observations.
func WithDailyFetcher(f DailyFetcher) ServiceOption {
	return func(s *Service) { s.daily = f }
}

// WithRadiationFetcher sets the source of real-time radiation reports.
func WithRadiationFetcher(f RadiationFetcher) ServiceOption {
	return func(s *Service) { s.radiation = f }
}

// WithStations sets the station reference used for enrichment.
func WithStations(l StationLookup) ServiceOption {
	return func(s *Service) { s.stations = l }
}

// WithRealtimeDir sets the directory of the per-station hourly files.
func WithRealtimeDir(dir string) ServiceOption {
	return func(s *Service) { s.realtimeDir = dir }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) ServiceOption {
	return func(s *Service) { s.log = l }
}

// NewService creates a new Service.
func NewService(store DatasetStore, reports ReportStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:       store,
		reports:     reports,
		realtimeDir: "real_time",
		log:         logrus.WithField("component", "service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunDaily walks the job's date range and merges every window into the
// consolidated output file. A failed or empty window is logged and
// skipped; the merge of a window is on disk before the next one is
// fetched.
func (s *Service) RunDaily(ctx context.Context, job DailyJob) (JobReport, error) {
	report := NewJobReport(JobDaily)
	if s.daily == nil {
		err := errors.New("no daily fetcher configured")
		s.finish(&report, err)
		return report, err
	}

	walker := WindowWalker{Start: job.Start, End: job.End, Days: job.WindowDays}
	log := s.log.WithFields(logrus.Fields{"job": JobDaily, "output": job.Output})
	log.Infof("fetching %s -> %s in %d-day windows", job.Start.Format(DateLayout), job.End.Format(DateLayout), job.WindowDays)

	res, err := walker.Walk(ctx, func(ctx context.Context, win Window) error {
		wlog := log.WithField("window", win.String())

		raw, err := s.daily.FetchDaily(ctx, win.From, win.To)
		if err != nil {
			wlog.Warnf("no data for window, skipping: %v", err)
			metrics.Windows.WithLabelValues("failed").Inc()
			return err
		}
		report.Fetched += len(raw)

		extracted := ExtractInsolation(raw)
		for _, sk := range extracted.Skipped {
			wlog.Warnf("skipping record of %s: %s", sk.Station, sk.Reason)
		}
		if extracted.Unparsed > 0 {
			wlog.Warnf("%d insolation values were not numeric and were stored as empty", extracted.Unparsed)
		}
		report.Skipped += len(extracted.Skipped)
		metrics.Skipped.WithLabelValues("record").Add(float64(len(extracted.Skipped)))

		if len(extracted.Rows) == 0 {
			wlog.Warn("no insolation records in window")
			metrics.Windows.WithLabelValues("empty").Inc()
			return nil
		}

		rows := Enrich(extracted.Rows, s.stations)
		total, err := MergeDailyFile(s.store, job.Output, rows, ByStationDate)
		if err != nil {
			wlog.Errorf("merge failed: %v", err)
			metrics.Windows.WithLabelValues("failed").Inc()
			return err
		}

		report.Rows += len(rows)
		metrics.Windows.WithLabelValues("merged").Inc()
		metrics.RowsWritten.WithLabelValues(JobDaily).Add(float64(len(rows)))
		wlog.Infof("merged %d rows (%d in dataset)", len(rows), total)
		return nil
	})

	report.Windows = res.Windows
	report.FailedWindows = len(res.Failed)
	if report.Rows > 0 {
		report.Files = 1
	}
	s.finish(&report, err)
	return report, err
}

// RunRealtime fetches the live radiation snapshot and fills the gaps of
// every station's hourly file. Failing to obtain the snapshot is fatal for
// the run; a station that cannot be written is logged and skipped.
func (s *Service) RunRealtime(ctx context.Context) (JobReport, error) {
	report := NewJobReport(JobRealtime)
	if s.radiation == nil {
		err := errors.New("no radiation fetcher configured")
		s.finish(&report, err)
		return report, err
	}
	log := s.log.WithField("job", JobRealtime)

	snapshot, err := s.radiation.FetchRadiation(ctx)
	if err != nil {
		err = fmt.Errorf("fetch radiation report: %w", err)
		s.finish(&report, err)
		return report, err
	}
	log.Infof("report of %s: %d stations, %d skipped", snapshot.Date.Format(DateLayout), len(snapshot.Stations), len(snapshot.Skipped))

	for _, sk := range snapshot.Skipped {
		log.Warnf("station ignored (incomplete data): %s: %s", sk.Station, sk.Reason)
	}
	report.Skipped = len(snapshot.Skipped)
	report.Fetched = len(snapshot.Stations) + len(snapshot.Skipped)
	metrics.Skipped.WithLabelValues("station").Add(float64(len(snapshot.Skipped)))

	for _, st := range snapshot.Stations {
		path := filepath.Join(s.realtimeDir, HourlyFileName(st.Name))
		total, err := MergeHourlyFile(s.store, path, st.Readings)
		if err != nil {
			log.Errorf("station %s: %v", st.Name, err)
			report.Skipped++
			continue
		}
		report.Files++
		report.Rows += len(st.Readings)
		metrics.RowsWritten.WithLabelValues(JobRealtime).Add(float64(len(st.Readings)))
		log.Debugf("updated %s (%d rows)", path, total)
	}

	s.finish(&report, nil)
	return report, nil
}

// GetLatest returns the most recent report of a job.
func (s *Service) GetLatest(job string) (JobReport, error) {
	return s.reports.GetLatest(job)
}

// GetLastSuccess returns the most recent run of a job that succeeded.
func (s *Service) GetLastSuccess(job string) (JobReport, error) {
	return s.reports.GetLastSuccess(job)
}

// GetRange returns the reports of a job started within [from, to].
func (s *Service) GetRange(job string, from, to time.Time) ([]JobReport, error) {
	return s.reports.GetRange(job, from, to)
}

// Record stores a report produced outside the service.
func (s *Service) Record(report JobReport) {
	if s.reports != nil {
		s.reports.SaveReport(report)
	}
	metrics.ObserveJob(report.Job, reportErr(report))
}

func (s *Service) finish(report *JobReport, err error) {
	report.Finish(err)
	s.Record(*report)
}

func reportErr(r JobReport) error {
	if r.Error == "" {
		return nil
	}
	return errors.New(r.Error)
}
