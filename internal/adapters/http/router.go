package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/dira-ar/dira/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 240 requests per minute per IP. Frame analysis clients
	// send a few requests per second while navigating.
	app.Use(limiter.New(limiter.Config{
		Max:        240,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Deprecated endpoint headers
	app.Use(DeprecationMiddleware([]DeprecatedRoute{
		{
			Path:        "/v1/navigation/analyze",
			SunsetDate:  time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
			Alternative: "/v1/navigation/frame",
		},
	}))

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")

	// Navigation pipeline. Frame analysis degrades internally after 10s of
	// model time; the route timeout only guards against a wedged handler.
	v1.Post("/navigation/frame", timeout.NewWithContext(AnalyzeFrameHandler(deps), 15*time.Second))
	v1.Post("/navigation/analyze", timeout.NewWithContext(AnalyzeFrameHandler(deps), 15*time.Second)) // deprecated alias
	v1.Post("/navigation/horizon", timeout.NewWithContext(AnalyzeHorizonHandler(deps), 30*time.Second))
	v1.Post("/navigation/guidance", timeout.NewWithContext(TurnGuidanceHandler(deps), 10*time.Second))

	// Sky projection
	v1.Get("/pois/search", timeout.NewWithContext(SearchPOIHandler(deps), 15*time.Second))
	v1.Get("/pois/visible", timeout.NewWithContext(VisiblePOIsHandler(deps), 15*time.Second))

	// Waypoint store
	v1.Get("/waypoints/nearby", timeout.NewWithContext(NearbyWaypointsHandler(deps), 15*time.Second))
	v1.Get("/waypoints/search", timeout.NewWithContext(SearchWaypointsHandler(deps), 15*time.Second))
	v1.Get("/waypoints/:id", timeout.NewWithContext(GetWaypointHandler(deps), 15*time.Second))
	v1.Post("/waypoints", timeout.NewWithContext(UpsertWaypointHandler(deps), 15*time.Second))
	v1.Post("/waypoints/batch", timeout.NewWithContext(BatchUpsertWaypointsHandler(deps), 30*time.Second))

	// Route manifests (async pre-analysis)
	v1.Post("/routes/manifest", timeout.NewWithContext(StartManifestHandler(deps), 15*time.Second))
	v1.Get("/routes/manifest/:id", timeout.NewWithContext(GetManifestHandler(deps), 15*time.Second))

	// Pipeline statistics
	v1.Get("/metrics/summary", MetricsSummaryHandler(deps))
	v1.Get("/metrics/errors", RecentAIErrorsHandler(deps))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
