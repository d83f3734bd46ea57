package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/aemet-solar/internal/solar"
)

var (
	// ErrNotFound is returned when no report is available for a job.
	ErrNotFound = errors.New("no reports for job")
)

// ReportHistory holds the runs of one job in the order they finished,
// plus the last run that ended without error.
type ReportHistory struct {
	Reports     []solar.JobReport
	LastSuccess *solar.JobReport
}

// MemoryStore is a concurrency-safe in-memory history of job reports.
//
// Runs are pruned by count and by age. The newest run and the last
// successful run of every job survive pruning, so a job that has been
// failing for longer than the retention window still shows when it last
// worked.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*ReportHistory

	maxRuns int           // <= 0: unlimited
	maxAge  time.Duration // <= 0: unlimited
}

// NewMemoryStore creates a new MemoryStore with optional limits.
func NewMemoryStore(maxRuns int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		jobs:    make(map[string]*ReportHistory),
		maxRuns: maxRuns,
		maxAge:  maxAge,
	}
}

// SaveReport records a finished run of its job.
func (s *MemoryStore) SaveReport(report solar.JobReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.jobs[report.Job]
	if !ok {
		h = &ReportHistory{}
		s.jobs[report.Job] = h
	}

	h.Reports = append(h.Reports, report)
	if report.Error == "" {
		r := report
		h.LastSuccess = &r
	}
	h.Reports = s.prune(h.Reports, time.Now())
}

// prune drops the runs beyond maxRuns and those started before the age
// cutoff. The newest run is never dropped.
func (s *MemoryStore) prune(runs []solar.JobReport, now time.Time) []solar.JobReport {
	if s.maxRuns > 0 && len(runs) > s.maxRuns {
		runs = runs[len(runs)-s.maxRuns:]
	}
	if s.maxAge <= 0 {
		return runs
	}

	cutoff := now.Add(-s.maxAge)
	i := 0
	for i < len(runs)-1 && runs[i].StartedAt.Before(cutoff) {
		i++
	}
	return runs[i:]
}

// GetLatest returns the most recent report of a job.
func (s *MemoryStore) GetLatest(job string) (solar.JobReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.jobs[job]
	if !ok || len(h.Reports) == 0 {
		return solar.JobReport{}, ErrNotFound
	}
	return h.Reports[len(h.Reports)-1], nil
}

// GetLastSuccess returns the most recent run of a job that finished
// without error, even when it has aged out of the history.
func (s *MemoryStore) GetLastSuccess(job string) (solar.JobReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.jobs[job]
	if !ok || h.LastSuccess == nil {
		return solar.JobReport{}, ErrNotFound
	}
	return *h.LastSuccess, nil
}

// GetRange returns the retained reports of a job started between from and
// to (inclusive).
func (s *MemoryStore) GetRange(job string, from, to time.Time) ([]solar.JobReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.jobs[job]
	if !ok {
		return nil, ErrNotFound
	}

	var result []solar.JobReport
	for _, r := range h.Reports {
		if !r.StartedAt.Before(from) && !r.StartedAt.After(to) {
			result = append(result, r)
		}
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
