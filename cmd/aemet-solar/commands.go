package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/aemet-solar/internal/solar"
	"github.com/i474232898/aemet-solar/internal/store"
)

func runDaily(ctx context.Context, app *application, args []string) error {
	fs := flag.NewFlagSet("daily", flag.ContinueOnError)
	year := fs.Int("year", time.Now().Year(), "year to fetch")
	start := fs.String("start", "", "first day YYYY-MM-DD (default: January 1st of -year)")
	end := fs.String("end", "", "last day YYYY-MM-DD (default: December 31st of -year, capped at yesterday)")
	window := fs.Int("window", app.cfg.WindowDays, "days per request")
	out := fs.String("out", "", "consolidated output file (default: <data-dir>/insolation_daily_<year>.csv, or _<start>_<end>.csv with explicit dates)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	job, err := dailyJob(app.cfg.DataDir, *year, *start, *end, *window, *out, time.Now())
	if err != nil {
		return err
	}

	logrus.Infof("fetching daily insolation %s -> %s (%d-day windows) into %s",
		job.Start.Format(solar.DateLayout), job.End.Format(solar.DateLayout), job.WindowDays, job.Output)

	report, err := app.runner.Daily(ctx, job)
	printReport(report)
	return err
}

// dailyJob resolves the daily command's flags into a job.
func dailyJob(dataDir string, year int, start, end string, window int, out string, now time.Time) (solar.DailyJob, error) {
	job := solar.DailyJob{
		Start:      time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
		WindowDays: window,
		Output:     out,
	}

	var err error
	if start != "" {
		if job.Start, err = solar.ParseDate(start); err != nil || len(start) != len(solar.DateLayout) {
			return job, fmt.Errorf("invalid -start %q: want YYYY-MM-DD", start)
		}
	}
	if end != "" {
		if job.End, err = solar.ParseDate(end); err != nil || len(end) != len(solar.DateLayout) {
			return job, fmt.Errorf("invalid -end %q: want YYYY-MM-DD", end)
		}
	} else {
		yesterday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
		if job.End.After(yesterday) && !job.Start.After(yesterday) {
			job.End = yesterday
		}
	}

	if job.Output == "" {
		name := solar.YearFileName(year)
		if start != "" || end != "" {
			name = solar.PeriodFileName(job.Start, job.End)
		}
		job.Output = filepath.Join(dataDir, name)
	}

	walker := solar.WindowWalker{Start: job.Start, End: job.End, Days: job.WindowDays}
	return job, walker.Validate()
}

func runRealtime(ctx context.Context, app *application, args []string) error {
	fs := flag.NewFlagSet("realtime", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	report, err := app.runner.Realtime(ctx)
	printReport(report)
	return err
}

func runRepartition(ctx context.Context, app *application, args []string) error {
	fs := flag.NewFlagSet("repartition", flag.ContinueOnError)
	dir := fs.String("dir", app.cfg.DataDir, "directory holding the consolidated files")
	if err := fs.Parse(args); err != nil {
		return err
	}

	report, err := app.runner.Repartition(ctx, *dir)
	printReport(report)
	return err
}

func runStations(ctx context.Context, app *application, args []string) error {
	fs := flag.NewFlagSet("stations", flag.ContinueOnError)
	out := fs.String("out", app.cfg.StationsFile, "station reference file to write")
	if err := fs.Parse(args); err != nil {
		return err
	}

	report, err := app.runner.Stations(ctx, *out)
	printReport(report)
	return err
}

func runExport(_ context.Context, app *application, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	dir := fs.String("dir", app.cfg.DataDir, "directory searched for per-station daily files")
	out := fs.String("out", "", "Parquet file to write (default: <dir>/insolation_daily.parquet)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		*out = filepath.Join(*dir, solar.DailyFilePrefix+".parquet")
	}

	files, err := store.DailyFiles(*dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no per-station daily files found in " + *dir)
	}

	rows, err := store.ExportDailyParquet(app.datasets, files, *out)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Files", "Rows", "Output"})
	table.Append([]string{strconv.Itoa(len(files)), strconv.Itoa(rows), *out})
	table.Render()
	return nil
}

// printReport renders a job report as a table on stdout.
func printReport(r solar.JobReport) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Job", "Run", "Windows", "Failed", "Fetched", "Rows", "Skipped", "Files", "Duration", "Error"})
	table.Append([]string{
		r.Job,
		r.ID,
		strconv.Itoa(r.Windows),
		strconv.Itoa(r.FailedWindows),
		strconv.Itoa(r.Fetched),
		strconv.Itoa(r.Rows),
		strconv.Itoa(r.Skipped),
		strconv.Itoa(r.Files),
		r.Duration().Round(time.Millisecond).String(),
		r.Error,
	})
	table.Render()
}
