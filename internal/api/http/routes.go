package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/aemet-solar/internal/solar"
	"github.com/i474232898/aemet-solar/internal/store"
)

var validate = validator.New()

// ReportSource is the read side of the job report history.
type ReportSource interface {
	GetLatest(job string) (solar.JobReport, error)
	GetLastSuccess(job string) (solar.JobReport, error)
	GetRange(job string, from, to time.Time) ([]solar.JobReport, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, reports ReportSource) {
	v1 := app.Group("/api/v1")

	v1.Get("/jobs/latest", func(c *fiber.Ctx) error {
		q, err := parseJobQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := reports.GetLatest(q.Name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no runs recorded for job")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch job report")
		}

		return c.JSON(reportView(report))
	})

	v1.Get("/jobs/last-success", func(c *fiber.Ctx) error {
		q, err := parseJobQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := reports.GetLastSuccess(q.Name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no successful run recorded for job")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch job report")
		}

		return c.JSON(reportView(report))
	})

	v1.Get("/jobs/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		runs, err := reports.GetRange(req.Job.Name, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no runs recorded for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch job history")
		}

		views := make([]fiber.Map, 0, len(runs))
		for _, r := range runs {
			views = append(views, reportView(r))
		}
		return c.JSON(fiber.Map{
			"job":  req.Job.Name,
			"from": req.From,
			"to":   req.To,
			"runs": views,
		})
	})
}

func reportView(r solar.JobReport) fiber.Map {
	return fiber.Map{
		"report":          r,
		"durationSeconds": r.Duration().Seconds(),
		"ok":              r.Error == "",
	}
}

// jobQuery identifies a job by name.
type jobQuery struct {
	Name string `validate:"required,oneof=daily realtime repartition stations"`
}

func parseJobQuery(c *fiber.Ctx) (jobQuery, error) {
	var q jobQuery

	q.Name = c.Query("name")

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Job  jobQuery
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	job, err := parseJobQuery(c)
	if err != nil {
		return err
	}
	h.Job = job

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries RFC3339, a plain date, then Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if d, err := solar.ParseDate(s); err == nil && len(s) == len(solar.DateLayout) {
		return d, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339, YYYY-MM-DD or unix seconds")
}
