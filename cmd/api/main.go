package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"

	"github.com/dira-ar/dira/internal/adapters/gemini"
	"github.com/dira-ar/dira/internal/adapters/http"
	"github.com/dira-ar/dira/internal/adapters/mapbox"
	natsadapter "github.com/dira-ar/dira/internal/adapters/nats"
	"github.com/dira-ar/dira/internal/adapters/postgres"
	"github.com/dira-ar/dira/internal/adapters/valkey"
	"github.com/dira-ar/dira/internal/core/ports"
	"github.com/dira-ar/dira/internal/core/usecases"
	"github.com/dira-ar/dira/internal/pkg/config"
	"github.com/dira-ar/dira/internal/pkg/logging"
	"github.com/dira-ar/dira/internal/pkg/metrics"
	"github.com/dira-ar/dira/internal/pkg/telemetry"
	"github.com/dira-ar/dira/internal/workflows"
)

func main() {
	cfg, err := config.Load("dira-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("dira-api", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer func() {
				flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer flushCancel()
				if err := shutdown(flushCtx); err != nil {
					slog.Warn("tracer shutdown failed", "error", err)
				}
			}()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer cache.Close()

	// NATS
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, events disabled", "error", err)
	} else {
		defer nc.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Vision model
	vision, err := gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.ThoroughModel, cfg.Gemini.TimeoutSecs)
	if err != nil {
		log.Fatalf("gemini: %v", err)
	}

	// Elevation tiles
	elevation := mapbox.New(cfg.Mapbox.AccessToken, cfg.Mapbox.TileZoom, cache, cfg.Cache.TileTTLSeconds)

	// Temporal (manifest workflows)
	tc, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer tc.Close()
	manifests := workflows.NewStarter(tc, cfg.Temporal.TaskQueue)

	// Repos
	waypointRepo := postgres.NewWaypointRepo(db)

	// Use cases
	recorder := metrics.NewRecorder()
	terrain := usecases.NewTerrainService(elevation)
	fallback := usecases.NewFallbackPlanner(waypointRepo)

	// A failed NATS connect leaves events nil; the services treat a nil
	// publisher as "no event bus".
	var events ports.EventPublisher
	if nc != nil {
		events = nc
	}

	analysisSvc := usecases.NewAnalysisService(vision, fallback, cache, events, recorder, cfg.Cache.FrameTTLSeconds)
	horizonSvc := usecases.NewHorizonService(vision, terrain, events, recorder)
	guidanceSvc := usecases.NewGuidanceService(vision, events, recorder)
	celestialSvc := usecases.NewCelestialService(waypointRepo, terrain)
	waypointSvc := usecases.NewWaypointService(waypointRepo, cache)
	routeSvc := usecases.NewRouteService(vision, waypointRepo, cache, recorder, cfg.Cache.ManifestTTLSeconds)

	deps := &http.Dependencies{
		Analysis:  analysisSvc,
		Horizon:   horizonSvc,
		Guidance:  guidanceSvc,
		Celestial: celestialSvc,
		Waypoints: waypointSvc,
		Routes:    routeSvc,
		Manifests: manifests,
		Recorder:  recorder,
		NATS:      natsConn,
		DB:        db,
		Cache:     cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
		AppName:      "Dira API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.dira.ar",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
