// Package repartition splits consolidated multi-station daily files into
// durable per-station series.
package repartition

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/aemet-solar/internal/common"
	"github.com/i474232898/aemet-solar/internal/metrics"
	"github.com/i474232898/aemet-solar/internal/solar"
)

// PeriodsDir holds the per-station files of consolidated period files.
const PeriodsDir = "periods"

// The period form is checked first: its name also ends in four digits.
var (
	periodPattern = regexp.MustCompile(`^(.+)_(\d{4}-\d{2}-\d{2}_\d{4}-\d{2}-\d{2})\.csv$`)
	yearPattern   = regexp.MustCompile(`^(.+)_(\d{4})\.csv$`)
)

// Kind is the time partitioning of a consolidated file.
type Kind string

const (
	KindYear   Kind = "year"
	KindPeriod Kind = "period"
)

// Partition describes where the rows of one consolidated file go.
type Partition struct {
	Kind   Kind
	Suffix string // year or "start_end"
	OutDir string
}

// Classify recognises a consolidated file name. ok is false for names
// matching neither pattern.
func Classify(dir, name string) (Partition, bool) {
	if m := periodPattern.FindStringSubmatch(name); m != nil {
		return Partition{Kind: KindPeriod, Suffix: m[2], OutDir: filepath.Join(dir, PeriodsDir, m[2])}, true
	}
	if m := yearPattern.FindStringSubmatch(name); m != nil {
		return Partition{Kind: KindYear, Suffix: m[2], OutDir: filepath.Join(dir, m[2])}, true
	}
	return Partition{}, false
}

// StationFileName returns the per-station output file name.
func StationFileName(code, name, suffix string) string {
	return common.SafeFileName(fmt.Sprintf("%s_%s_%s", code, name, suffix)) + solar.StationFileSuffix
}

// Store is the dataset layer used by the Repartitioner.
type Store interface {
	solar.DatasetStore
	ScanDaily(path string) ([]solar.ObservationRow, []solar.SkippedRecord, error)
}

// Report summarizes one run.
type Report struct {
	Files     int // consolidated files found
	Processed int // consolidated files split and deleted
	Ignored   int // files with an unknown name pattern
	Failed    int // files left in place after an error
	Outputs   int // per-station files written
	Rows      int // rows merged into per-station files
	Dropped   int // rows dropped for an invalid date
}

// Apply copies the counters into a job report.
func (r Report) Apply(job *solar.JobReport) {
	job.Fetched = r.Files
	job.Rows = r.Rows
	job.Files = r.Outputs
	job.Skipped = r.Ignored + r.Dropped
}

// Repartitioner splits consolidated files of a directory.
type Repartitioner struct {
	store Store
	log   *logrus.Entry
}

// New creates a new Repartitioner.
func New(store Store, log *logrus.Entry) *Repartitioner {
	if log == nil {
		log = logrus.WithField("component", "repartition")
	}
	return &Repartitioner{store: store, log: log}
}

// Run processes every consolidated CSV file directly inside dir. Each file
// is split by station and merged into its per-station files; the input is
// deleted only after all of its stations were written. A failing file is
// left in place and the run moves on; the returned error aggregates every
// per-file failure.
func (r *Repartitioner) Run(ctx context.Context, dir string) (Report, error) {
	var rep Report

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			r.log.Warnf("directory %s does not exist; nothing to do", dir)
			return rep, nil
		}
		return rep, fmt.Errorf("list %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".csv") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		r.log.Infof("no consolidated files in %s", dir)
		return rep, nil
	}

	var result *multierror.Error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			result = multierror.Append(result, err)
			break
		}
		rep.Files++

		part, ok := Classify(dir, name)
		if !ok {
			r.log.Warnf("ignoring %s: unknown file name pattern", name)
			metrics.Skipped.WithLabelValues("file").Inc()
			rep.Ignored++
			continue
		}

		if err := r.splitFile(filepath.Join(dir, name), part, &rep); err != nil {
			r.log.WithField("file", name).Errorf("left in place: %v", err)
			rep.Failed++
			result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
			continue
		}
		rep.Processed++
	}

	return rep, result.ErrorOrNil()
}

func (r *Repartitioner) splitFile(path string, part Partition, rep *Report) error {
	log := r.log.WithFields(logrus.Fields{"file": filepath.Base(path), "partition": part.Suffix})

	rows, dropped, err := r.store.ScanDaily(path)
	if err != nil {
		return err
	}
	for _, d := range dropped {
		log.Warnf("dropping row of %s: %s", d.Station, d.Reason)
	}
	rep.Dropped += len(dropped)
	metrics.Skipped.WithLabelValues("row").Add(float64(len(dropped)))

	groups, order := groupByStation(rows)
	for _, code := range order {
		group := groups[code]
		out := filepath.Join(part.OutDir, StationFileName(code, group[0].Name, part.Suffix))
		total, err := solar.MergeDailyFile(r.store, out, group, solar.ByDate)
		if err != nil {
			return fmt.Errorf("station %s: %w", code, err)
		}
		rep.Outputs++
		rep.Rows += len(group)
		metrics.RowsWritten.WithLabelValues(solar.JobRepartition).Add(float64(len(group)))
		log.Debugf("station %s: %d rows (%d in file)", code, len(group), total)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove consolidated file: %w", err)
	}
	log.Infof("split into %d station files", len(order))
	return nil
}

// groupByStation groups rows by station code, keeping file order inside a
// group. order lists the codes sorted.
func groupByStation(rows []solar.ObservationRow) (map[string][]solar.ObservationRow, []string) {
	groups := make(map[string][]solar.ObservationRow)
	for _, row := range rows {
		groups[row.StationCode] = append(groups[row.StationCode], row)
	}
	order := make([]string, 0, len(groups))
	for code := range groups {
		order = append(order, code)
	}
	sort.Strings(order)
	return groups, order
}
