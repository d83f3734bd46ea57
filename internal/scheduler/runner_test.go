package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/aemet-solar/internal/repartition"
	"github.com/i474232898/aemet-solar/internal/solar"
	"github.com/i474232898/aemet-solar/internal/stations"
	"github.com/i474232898/aemet-solar/internal/store"
)

type staticDaily []solar.RawObservation

func (s staticDaily) FetchDaily(_ context.Context, from, to time.Time) ([]solar.RawObservation, error) {
	var out []solar.RawObservation
	for _, r := range s {
		d, _ := solar.ParseDate(r.Date)
		if !d.Before(from) && !d.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

type staticInventory struct {
	records []stations.StationRecord
	err     error
}

func (s staticInventory) FetchStations(context.Context) ([]stations.StationRecord, error) {
	return s.records, s.err
}

func sun(v string) *string { return &v }

func newTestRunner(t *testing.T, daily solar.DailyFetcher, inv StationSource) (*Runner, *store.MemoryStore, string) {
	t.Helper()
	dir := t.TempDir()
	csv := store.NewCSVStore()
	reports := store.NewMemoryStore(10, 0)
	svc := solar.NewService(csv, reports, solar.WithDailyFetcher(daily))
	return NewRunner(RunnerConfig{
		Service:       svc,
		Repartitioner: repartition.New(csv, nil),
		Inventory:     inv,
		DataDir:       dir,
		WindowDays:    3,
	}), reports, dir
}

func TestLookbackRange(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	start, end := LookbackRange(time.Date(2024, 3, 1, 6, 0, 0, 0, loc), 14)
	assert.Equal(t, "2024-02-16", start.Format(solar.DateLayout))
	assert.Equal(t, "2024-02-29", end.Format(solar.DateLayout))

	start, end = LookbackRange(time.Date(2024, 3, 1, 6, 0, 0, 0, loc), 0)
	assert.True(t, start.Equal(end))
}

func TestLookbackFetchesAndRepartitions(t *testing.T) {
	daily := staticDaily{
		{StationCode: "0076", Name: "BARCELONA AEROPUERTO", Date: "2024-02-20", Insolation: sun("7,5")},
		{StationCode: "0076", Name: "BARCELONA AEROPUERTO", Date: "2024-02-28", Insolation: sun("8")},
		{StationCode: "C447A", Name: "TENERIFE NORTE", Date: "2024-02-29", Insolation: sun("3")},
		{StationCode: "C447A", Name: "TENERIFE NORTE", Date: "2024-01-01", Insolation: sun("3")},
	}
	runner, reports, dir := newTestRunner(t, daily, nil)

	res, err := runner.Lookback(context.Background(), time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC), 14)
	require.NoError(t, err)
	assert.Equal(t, solar.JobDaily, res.Fetch.Job)
	assert.Equal(t, 5, res.Fetch.Windows)
	assert.Equal(t, 3, res.Fetch.Rows)
	require.NotNil(t, res.Split)
	assert.Equal(t, solar.JobRepartition, res.Split.Job)
	assert.Equal(t, 2, res.Split.Files)
	assert.Equal(t, 3, res.Split.Rows)

	period := "2024-02-16_2024-02-29"
	_, err = os.Stat(filepath.Join(dir, "insolation_daily_"+period+".csv"))
	assert.True(t, os.IsNotExist(err), "period file is consumed")

	files, err := store.DailyFiles(filepath.Join(dir, repartition.PeriodsDir, period))
	require.NoError(t, err)
	assert.Len(t, files, 2)

	latest, err := reports.GetLatest(solar.JobDaily)
	require.NoError(t, err)
	assert.Equal(t, 5, latest.Windows)
}

func TestLookbackWithoutRowsSkipsRepartition(t *testing.T) {
	runner, reports, _ := newTestRunner(t, staticDaily{}, nil)

	res, err := runner.Lookback(context.Background(), time.Now(), 2)
	require.NoError(t, err)
	assert.Equal(t, solar.JobDaily, res.Fetch.Job)
	assert.Nil(t, res.Split)

	_, err = reports.GetLatest(solar.JobRepartition)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStationsJob(t *testing.T) {
	alt := 4
	inv := staticInventory{records: []stations.StationRecord{
		{Code: "0076", Province: "BARCELONA", Name: "BARCELONA AEROPUERTO", Altitude: &alt, LatitudeCode: "411732N", LongitudeCode: "020412E"},
	}}
	runner, reports, dir := newTestRunner(t, staticDaily{}, inv)
	out := filepath.Join(dir, "todas_estacoes.csv")

	report, err := runner.Stations(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rows)

	ref, err := stations.Load(out)
	require.NoError(t, err)
	st, ok := ref.Lookup("0076")
	require.True(t, ok)
	assert.NotNil(t, st.Latitude)

	latest, err := reports.GetLatest(solar.JobStations)
	require.NoError(t, err)
	assert.Empty(t, latest.Error)
}

func TestStationsJobFailure(t *testing.T) {
	runner, reports, dir := newTestRunner(t, staticDaily{}, staticInventory{err: errors.New("retries exhausted")})

	_, err := runner.Stations(context.Background(), filepath.Join(dir, "todas_estacoes.csv"))
	require.Error(t, err)

	latest, err := reports.GetLatest(solar.JobStations)
	require.NoError(t, err)
	assert.Contains(t, latest.Error, "retries exhausted")
}
