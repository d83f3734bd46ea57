package solar

import (
	"context"
	"time"
)

// DailyFetcher retrieves the daily climatological records of all stations
// for the inclusive date range [from, to].
type DailyFetcher interface {
	FetchDaily(ctx context.Context, from, to time.Time) ([]RawObservation, error)
}

// RadiationFetcher retrieves the current real-time radiation snapshot.
type RadiationFetcher interface {
	FetchRadiation(ctx context.Context) (RadiationReport, error)
}

// StationLookup resolves station metadata by station code.
type StationLookup interface {
	Lookup(code string) (Station, bool)
}

// DatasetStore is the contract of the on-disk dataset layer. Load methods
// return an empty dataset when the file does not exist; Save methods
// replace the file atomically.
type DatasetStore interface {
	LoadDaily(path string) ([]ObservationRow, error)
	SaveDaily(path string, rows []ObservationRow) error
	LoadHourly(path string) ([]HourlyReading, error)
	SaveHourly(path string, rows []HourlyReading) error
}

// ReportStore keeps the history of job runs.
type ReportStore interface {
	SaveReport(report JobReport)
	GetLatest(job string) (JobReport, error)
	GetLastSuccess(job string) (JobReport, error)
	GetRange(job string, from, to time.Time) ([]JobReport, error)
}
