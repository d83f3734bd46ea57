package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/aemet-solar/internal/solar"
	"github.com/i474232898/aemet-solar/internal/store"
)

func newApp(t *testing.T) (*fiber.App, *store.MemoryStore) {
	t.Helper()
	app := fiber.New()
	memStore := store.NewMemoryStore(10, time.Hour)
	RegisterRoutes(app, memStore)
	return app, memStore
}

func get(t *testing.T, app *fiber.App, url string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, url, nil))
	require.NoError(t, err)
	return resp
}

// TestJobNameValidation verifies that job endpoints only accept known job names.
func TestJobNameValidation(t *testing.T) {
	app, _ := newApp(t)

	// Missing name parameter should return 400.
	assert.Equal(t, http.StatusBadRequest, get(t, app, "/api/v1/jobs/latest").StatusCode)

	// Unknown job should also return 400.
	assert.Equal(t, http.StatusBadRequest, get(t, app, "/api/v1/jobs/latest?name=hourly").StatusCode)

	// Known job without runs is 404.
	assert.Equal(t, http.StatusNotFound, get(t, app, "/api/v1/jobs/latest?name=daily").StatusCode)
}

func TestLatestJob(t *testing.T) {
	app, memStore := newApp(t)

	report := solar.NewJobReport(solar.JobRealtime)
	report.Files = 12
	report.Finish(nil)
	memStore.SaveReport(report)

	resp := get(t, app, "/api/v1/jobs/latest?name=realtime")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Report solar.JobReport `json:"report"`
		OK     bool            `json:"ok"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, report.ID, body.Report.ID)
	assert.Equal(t, 12, body.Report.Files)
	assert.True(t, body.OK)
}

func TestLastSuccessfulJob(t *testing.T) {
	app, memStore := newApp(t)

	assert.Equal(t, http.StatusNotFound, get(t, app, "/api/v1/jobs/last-success?name=daily").StatusCode)

	ok := solar.NewJobReport(solar.JobDaily)
	ok.Finish(nil)
	memStore.SaveReport(ok)

	failed := solar.NewJobReport(solar.JobDaily)
	failed.Finish(errors.New("merge failed"))
	memStore.SaveReport(failed)

	resp := get(t, app, "/api/v1/jobs/last-success?name=daily")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Report solar.JobReport `json:"report"`
		OK     bool            `json:"ok"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, ok.ID, body.Report.ID)
	assert.True(t, body.OK)

	assert.Equal(t, http.StatusBadRequest, get(t, app, "/api/v1/jobs/last-success?name=weekly").StatusCode)
}

func TestJobHistory(t *testing.T) {
	app, memStore := newApp(t)

	report := solar.NewJobReport(solar.JobDaily)
	report.Finish(nil)
	memStore.SaveReport(report)

	from := report.StartedAt.Add(-time.Minute).Format(time.RFC3339)
	to := report.StartedAt.Add(time.Minute).Format(time.RFC3339)

	resp := get(t, app, "/api/v1/jobs/history?name=daily&from="+from+"&to="+to)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Job  string            `json:"job"`
		Runs []json.RawMessage `json:"runs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "daily", body.Job)
	assert.Len(t, body.Runs, 1)
}

func TestJobHistoryValidation(t *testing.T) {
	app, _ := newApp(t)

	// Missing range.
	assert.Equal(t, http.StatusBadRequest, get(t, app, "/api/v1/jobs/history?name=daily").StatusCode)

	// Inverted range.
	assert.Equal(t, http.StatusBadRequest,
		get(t, app, "/api/v1/jobs/history?name=daily&from=2024-02-01&to=2024-01-01").StatusCode)

	// Bad time format.
	assert.Equal(t, http.StatusBadRequest,
		get(t, app, "/api/v1/jobs/history?name=daily&from=yesterday&to=today").StatusCode)

	// Valid range, no runs.
	assert.Equal(t, http.StatusNotFound,
		get(t, app, "/api/v1/jobs/history?name=daily&from=2024-01-01&to=1706745600").StatusCode)
}
