package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/soltixdb/enrollwatch/internal/config"
	"github.com/soltixdb/enrollwatch/internal/handlers"
	"github.com/soltixdb/enrollwatch/internal/logging"
	"github.com/soltixdb/enrollwatch/internal/metrics"
	"github.com/soltixdb/enrollwatch/internal/middleware"
	"github.com/soltixdb/enrollwatch/internal/services"
)

// Setup configures all routes and middlewares.
// m may be nil, in which case no metrics are recorded or served.
func Setup(app *fiber.App, logger *logging.Logger, dashboard *services.DashboardService, m *metrics.Metrics, cfg config.Config) *handlers.Handler {
	h := handlers.New(logger, dashboard, cfg.Events.Type)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
		ExposeHeaders: "Content-Disposition,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger, logging.DefaultMiddlewareConfig()))
	if m != nil {
		app.Use(m.Middleware())
	}

	// Health check and metrics (no auth required)
	app.Get("/health", h.Health)
	if m != nil && cfg.Metrics.Enabled {
		app.Get(cfg.Metrics.Path, m.Handler())
	}

	// API key authentication middleware
	authMiddleware := middleware.APIKeyAuth(logger, cfg.Auth.APIKeys, cfg.Auth.Enabled)

	// API v1 routes (protected by API key)
	v1 := app.Group("/v1", authMiddleware)

	// Dashboard sections
	v1.Get("/sections", h.Sections)
	v1.Get("/sections/:section", h.Section)

	// Aggregate views
	v1.Get("/overview", h.Overview)
	v1.Get("/states", h.States)
	v1.Get("/districts", h.Districts)
	v1.Get("/trends", h.Trends)
	v1.Get("/map", h.Map)
	v1.Get("/anomalies", h.Anomalies)
	v1.Get("/aggregate", h.Aggregate)

	// Selector vocabularies
	v1.Get("/selectors/states", h.StateSelector)
	v1.Get("/selectors/districts", h.DistrictSelector)

	// District drill-down, forecast and export
	v1.Get("/districts/:district", h.DistrictDetail)
	v1.Get("/districts/:district/forecast", h.Forecast)
	v1.Get("/districts/:district/forecast/export", h.ExportForecast)
	v1.Get("/districts/:district/backtest", h.Backtest)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, dashboard *services.DashboardService, m *metrics.Metrics, cfg config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Enrollwatch Dashboard",
		DisableStartupMessage: true,
		UnescapePath:          true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, dashboard, m, cfg)

	return app
}
