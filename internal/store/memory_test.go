package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/aemet-solar/internal/solar"
)

func report(job string, started time.Time) solar.JobReport {
	return solar.JobReport{ID: started.String(), Job: job, StartedAt: started}
}

func TestMemoryStoreLatest(t *testing.T) {
	s := NewMemoryStore(0, 0)

	_, err := s.GetLatest(solar.JobDaily)
	assert.ErrorIs(t, err, ErrNotFound)

	now := time.Now().UTC()
	s.SaveReport(report(solar.JobDaily, now.Add(-time.Hour)))
	s.SaveReport(report(solar.JobDaily, now))
	s.SaveReport(report(solar.JobRealtime, now.Add(-2*time.Hour)))

	latest, err := s.GetLatest(solar.JobDaily)
	require.NoError(t, err)
	assert.Equal(t, now, latest.StartedAt)

	latest, err = s.GetLatest(solar.JobRealtime)
	require.NoError(t, err)
	assert.Equal(t, solar.JobRealtime, latest.Job)
}

func TestMemoryStoreRetentionByCount(t *testing.T) {
	s := NewMemoryStore(2, 0)
	now := time.Now().UTC()
	for i := 3; i > 0; i-- {
		s.SaveReport(report(solar.JobDaily, now.Add(-time.Duration(i)*time.Minute)))
	}

	got, err := s.GetRange(solar.JobDaily, now.Add(-time.Hour), now)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, now.Add(-2*time.Minute), got[0].StartedAt)
}

func TestMemoryStoreRetentionByAge(t *testing.T) {
	s := NewMemoryStore(0, time.Hour)
	now := time.Now().UTC()
	s.SaveReport(report(solar.JobDaily, now.Add(-3*time.Hour)))
	s.SaveReport(report(solar.JobDaily, now))

	got, err := s.GetRange(solar.JobDaily, now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMemoryStoreRangeOutside(t *testing.T) {
	s := NewMemoryStore(0, 0)
	now := time.Now().UTC()
	s.SaveReport(report(solar.JobDaily, now))

	_, err := s.GetRange(solar.JobDaily, now.Add(-2*time.Hour), now.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreKeepsLastSuccessAfterPruning(t *testing.T) {
	s := NewMemoryStore(2, time.Hour)
	now := time.Now().UTC()

	ok := report(solar.JobRealtime, now.Add(-5*time.Hour))
	s.SaveReport(ok)
	for i := 3; i > 0; i-- {
		failed := report(solar.JobRealtime, now.Add(-time.Duration(i)*time.Minute))
		failed.Error = "fetch radiation report: retries exhausted"
		s.SaveReport(failed)
	}

	got, err := s.GetRange(solar.JobRealtime, now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, r := range got {
		assert.NotEmpty(t, r.Error)
	}

	last, err := s.GetLastSuccess(solar.JobRealtime)
	require.NoError(t, err)
	assert.Equal(t, ok.ID, last.ID)

	_, err = s.GetLastSuccess(solar.JobDaily)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreAgePruningKeepsNewestRun(t *testing.T) {
	s := NewMemoryStore(0, time.Hour)
	old := report(solar.JobStations, time.Now().UTC().Add(-48*time.Hour))
	s.SaveReport(old)

	latest, err := s.GetLatest(solar.JobStations)
	require.NoError(t, err)
	assert.Equal(t, old.ID, latest.ID)
}
