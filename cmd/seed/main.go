package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/dira-ar/dira/internal/adapters/postgres"
	"github.com/dira-ar/dira/internal/core/domain"
	"github.com/dira-ar/dira/internal/core/usecases"
	"github.com/dira-ar/dira/internal/pkg/config"
	"github.com/dira-ar/dira/internal/pkg/logging"
)

// The seed tool loads a JSON file of waypoints into the store. The file is
// an array of waypoint objects:
//
//	[{"name": "Obelisco", "description": "...",
//	  "location": {"lat": -34.6037, "lon": -58.3816, "alt": 25}}]
func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: seed <waypoints.json>")
	}

	cfg, err := config.Load("dira-seed")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("dira-seed", "info", "text")

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("read %s: %v", os.Args[1], err)
	}

	var waypoints []domain.Waypoint
	if err := json.Unmarshal(data, &waypoints); err != nil {
		log.Fatalf("parse %s: %v", os.Args[1], err)
	}
	if len(waypoints) == 0 {
		log.Fatalf("%s contains no waypoints", os.Args[1])
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	svc := usecases.NewWaypointService(postgres.NewWaypointRepo(db), nil)

	const batchSize = 200
	total := 0
	for start := 0; start < len(waypoints); start += batchSize {
		end := start + batchSize
		if end > len(waypoints) {
			end = len(waypoints)
		}
		if err := svc.UpsertBatch(ctx, waypoints[start:end]); err != nil {
			log.Fatalf("upsert batch at %d: %v", start, err)
		}
		total += end - start
		slog.Info("batch stored", "count", end-start, "total", total)
	}

	slog.Info("seeding complete", "waypoints", total)
}
