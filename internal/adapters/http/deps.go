package http

import (
	"github.com/nats-io/nats.go"

	"github.com/dira-ar/dira/internal/adapters/postgres"
	"github.com/dira-ar/dira/internal/adapters/valkey"
	"github.com/dira-ar/dira/internal/core/ports"
	"github.com/dira-ar/dira/internal/core/usecases"
	"github.com/dira-ar/dira/internal/pkg/metrics"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Analysis  *usecases.AnalysisService
	Horizon   *usecases.HorizonService
	Guidance  *usecases.GuidanceService
	Celestial *usecases.CelestialService
	Waypoints *usecases.WaypointService
	Routes    *usecases.RouteService
	Manifests ports.ManifestStarter
	Recorder  *metrics.Recorder
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
}
