package main

import (
	"context"
	"flag"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	httpapi "github.com/i474232898/aemet-solar/internal/api/http"
	"github.com/i474232898/aemet-solar/internal/scheduler"
)

func runServe(ctx context.Context, app *application, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := fs.String("port", app.cfg.Port, "HTTP port of the status API")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Scheduler that runs the daily and real-time jobs.
	sched := scheduler.New(scheduler.Config{
		Location:     app.cfg.ScheduleTZ,
		RealtimeAt:   app.cfg.RealtimeAt,
		DailyAt:      app.cfg.DailyAt,
		LookbackDays: app.cfg.DailyLookbackDays,
	}, app.runner)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	// Basic app configuration
	server := fiber.New(fiber.Config{
		AppName:               "aemet-solar",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	server.Use(logger.New())
	server.Use(recover.New())

	server.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "aemet-solar",
		})
	})
	server.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes.
	httpapi.RegisterRoutes(server, app.service)

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("status API listening on :%s", *port)
		errCh <- server.Listen(":" + *port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		logrus.Errorf("error during shutdown: %v", err)
	}
	return nil
}
