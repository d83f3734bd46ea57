package solar

import (
	"time"

	"github.com/google/uuid"
)

// Job names used in reports, metrics and the status API.
const (
	JobDaily       = "daily"
	JobRealtime    = "realtime"
	JobRepartition = "repartition"
	JobStations    = "stations"
)

// JobReport summarizes one run of a job.
type JobReport struct {
	ID         string    `json:"id"`
	Job        string    `json:"job"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	Windows       int `json:"windows,omitempty"`
	FailedWindows int `json:"failedWindows,omitempty"`
	Fetched       int `json:"fetched"`
	Rows          int `json:"rows"`
	Skipped       int `json:"skipped"`
	Files         int `json:"files"`

	Error string `json:"error,omitempty"`
}

// NewJobReport starts a report for the named job.
func NewJobReport(job string) JobReport {
	return JobReport{
		ID:        uuid.NewString(),
		Job:       job,
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps the end time and records err, if any.
func (r *JobReport) Finish(err error) {
	r.FinishedAt = time.Now().UTC()
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration is the wall time of the run.
func (r JobReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
