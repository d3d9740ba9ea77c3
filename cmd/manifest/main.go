package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/dira-ar/dira/internal/adapters/gemini"
	natsadapter "github.com/dira-ar/dira/internal/adapters/nats"
	"github.com/dira-ar/dira/internal/adapters/postgres"
	"github.com/dira-ar/dira/internal/adapters/valkey"
	"github.com/dira-ar/dira/internal/core/usecases"
	"github.com/dira-ar/dira/internal/pkg/config"
	"github.com/dira-ar/dira/internal/pkg/logging"
	"github.com/dira-ar/dira/internal/pkg/metrics"
	"github.com/dira-ar/dira/internal/workflows"
)

// The manifest worker runs route pre-analysis workflows. It also bridges
// queued NATS manifest requests into Temporal, so clients can submit jobs
// through either the REST API or the message bus.
func main() {
	cfg, err := config.Load("dira-manifest")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("dira-manifest", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache (manifest storage)
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer cache.Close()

	// Vision model
	vision, err := gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.ThoroughModel, cfg.Gemini.TimeoutSecs)
	if err != nil {
		log.Fatalf("gemini: %v", err)
	}

	waypointRepo := postgres.NewWaypointRepo(db)
	recorder := metrics.NewRecorder()
	routeSvc := usecases.NewRouteService(vision, waypointRepo, cache, recorder, cfg.Cache.ManifestTTLSeconds)

	// Temporal worker
	tc, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer tc.Close()

	w := worker.New(tc, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.RouteManifestWorkflow)
	w.RegisterActivity(&workflows.ManifestActivities{Routes: routeSvc})

	// Bridge queued NATS requests into Temporal
	starter := workflows.NewStarter(tc, cfg.Temporal.TaskQueue)
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, queue bridge disabled", "error", err)
	} else {
		defer sub.Close()
		err = sub.SubscribeManifestRequests(ctx, func(ctx context.Context, req *natsadapter.ManifestRequest) error {
			return starter.StartRouteManifest(ctx, req.ManifestID, req.WaypointIDs, req.Origin)
		})
		if err != nil {
			slog.Warn("manifest request subscription failed", "error", err)
		}
	}

	slog.Info("manifest worker started", "taskQueue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
