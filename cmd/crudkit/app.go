package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"crudkit/internal/auth"
	"crudkit/internal/catalog"
	"crudkit/internal/config"
	"crudkit/internal/engine"
	"crudkit/internal/instrument"
	"crudkit/internal/query"
	"crudkit/internal/store"
)

// openStore connects to the configured database and migrates the catalog
// tables. The memory driver needs no store and yields nil.
func openStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*store.Store, error) {
	if cfg.IsMemory() {
		return nil, nil
	}
	s, err := store.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	tables, err := catalog.Tables()
	if err != nil {
		s.Close()
		return nil, err
	}
	if err := s.Bootstrap(ctx, log, tables...); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// newApp assembles the HTTP application. metrics may be nil.
func newApp(cfg *config.Config, reg *engine.Registry, metrics *instrument.Metrics, log *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          engine.ErrorHandler(log),
		DisableStartupMessage: true,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	if metrics != nil {
		app.Use(metrics.Middleware())
		app.Get("/metrics", metrics.Handler())
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	var middleware []fiber.Handler
	if cfg.Auth.Enabled {
		middleware = append(middleware, auth.Middleware(cfg.Auth.JWTSecret), auth.RequireWriter())
	}
	limits := query.Limits{DefaultSize: cfg.Query.DefaultSize, MaxSize: cfg.Query.MaxSize}
	engine.RegisterRoutes(app, engine.NewHandler(reg, limits, log), middleware...)
	return app
}
