package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/dira-ar/dira/internal/core/domain"
	"github.com/dira-ar/dira/internal/core/usecases"
	"github.com/dira-ar/dira/internal/pkg/imaging"
)

// frameRequest is the body of POST /v1/navigation/frame. The image is
// base64-encoded JPEG or PNG; a data URI prefix is accepted and stripped.
type frameRequest struct {
	Image           string  `json:"image"`
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	Heading         float64 `json:"heading"`
	ReasoningToken  string  `json:"reasoning_token"`
	DestinationHint string  `json:"destination_hint"`
}

// AnalyzeFrameHandler runs one camera frame through the navigation pipeline.
func AnalyzeFrameHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req frameRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Image == "" {
			return errBadRequest(c, "image is required")
		}

		image, err := imaging.DecodeBase64(req.Image)
		if err != nil {
			return errBadRequest(c, "image must be valid base64")
		}

		actx := domain.AnalysisContext{
			Location:        domain.GeoPoint{Lat: req.Lat, Lon: req.Lon},
			Heading:         req.Heading,
			ReasoningToken:  req.ReasoningToken,
			DestinationHint: req.DestinationHint,
		}

		fa, err := deps.Analysis.AnalyzeFrame(c.Context(), image, actx)
		if err != nil {
			if domain.IsValidation(err) {
				return errBadRequest(c, err.Error())
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(fa)
	}
}

// horizonRequest is the body of POST /v1/navigation/horizon.
type horizonRequest struct {
	Image          string              `json:"image"`
	Lat            float64             `json:"lat"`
	Lon            float64             `json:"lon"`
	Heading        float64             `json:"heading"`
	ReasoningToken string              `json:"reasoning_token"`
	VisiblePOIs    []domain.VisiblePOI `json:"visible_pois"`
}

// AnalyzeHorizonHandler refines POI placement against the detected skyline.
func AnalyzeHorizonHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req horizonRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Image == "" {
			return errBadRequest(c, "image is required")
		}

		image, err := imaging.DecodeBase64(req.Image)
		if err != nil {
			return errBadRequest(c, "image must be valid base64")
		}

		actx := domain.AnalysisContext{
			Location:       domain.GeoPoint{Lat: req.Lat, Lon: req.Lon},
			Heading:        req.Heading,
			ReasoningToken: req.ReasoningToken,
		}

		ha, err := deps.Horizon.AnalyzeHorizon(c.Context(), image, actx, req.VisiblePOIs)
		if err != nil {
			if domain.IsValidation(err) {
				return errBadRequest(c, err.Error())
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(ha)
	}
}

// guidanceRequest is the body of POST /v1/navigation/guidance.
type guidanceRequest struct {
	POIName        string  `json:"poi_name"`
	UserHeading    float64 `json:"user_heading"`
	TargetBearing  float64 `json:"target_bearing"`
	DistanceMeters float64 `json:"distance_meters"`
}

// TurnGuidanceHandler produces a short spoken-style directive for rotating
// toward a POI. Never fails once the input validates; the worst case is a
// templated phrase instead of a generated one.
func TurnGuidanceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req guidanceRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if strings.TrimSpace(req.POIName) == "" {
			return errBadRequest(c, "poi_name is required")
		}
		if !domain.ValidHeading(req.UserHeading) {
			return errBadRequest(c, "user_heading must be in [0, 360]")
		}
		if !domain.ValidHeading(req.TargetBearing) {
			return errBadRequest(c, "target_bearing must be in [0, 360]")
		}
		if req.DistanceMeters < 0 {
			return errBadRequest(c, "distance_meters must be non-negative")
		}

		tg := deps.Guidance.TurnGuidance(c.Context(), req.POIName, req.UserHeading, req.TargetBearing, req.DistanceMeters)
		return c.JSON(tg)
	}
}

// SearchPOIHandler finds a waypoint by name and projects it into the
// observer's sky.
func SearchPOIHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")
		if query == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		if lat == 0 && lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}

		poi, err := deps.Celestial.Search(c.Context(), query, domain.GeoPoint{Lat: lat, Lon: lon})
		if err != nil {
			if errors.Is(err, usecases.ErrPOINotFound) {
				return errNotFound(c, "no waypoint matches "+query)
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(poi)
	}
}

// VisiblePOIsHandler returns waypoints inside the observer's heading cone,
// filtered by terrain line of sight.
func VisiblePOIsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		if lat == 0 && lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}
		heading := c.QueryFloat("heading", 0)
		if !domain.ValidHeading(heading) {
			return errBadRequest(c, "heading must be in [0, 360]")
		}
		fov := c.QueryFloat("fov", 60)
		if fov <= 0 || fov > 360 {
			return errBadRequest(c, "fov must be between 1 and 360 degrees")
		}
		radius := c.QueryFloat("radius", 2000)
		if radius <= 0 || radius > 50000 {
			return errBadRequest(c, "radius must be between 1 and 50000 meters")
		}
		limit := c.QueryInt("limit", 20)
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		pois, err := deps.Celestial.VisibleCone(c.Context(), domain.GeoPoint{Lat: lat, Lon: lon}, heading, fov, radius, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(pois)
	}
}

// NearbyWaypointsHandler returns waypoints within a radius of a point.
func NearbyWaypointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryFloat("radius", 500)
		limit := c.QueryInt("limit", 50)

		if lat == 0 && lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}
		if radius <= 0 || radius > 10000 {
			return errBadRequest(c, "radius must be between 1 and 10000 meters")
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		wps, err := deps.Waypoints.FindNearby(c.Context(), lat, lon, radius, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(wps)
	}
}

// SearchWaypointsHandler performs partial name matching on waypoints.
func SearchWaypointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")
		if query == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		if len(query) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}
		limit := c.QueryInt("limit", 20)
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		wps, err := deps.Waypoints.Search(c.Context(), query, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(wps)
	}
}

// GetWaypointHandler returns a single waypoint by ID.
func GetWaypointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "waypoint id is required")
		}
		wp, err := deps.Waypoints.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "waypoint not found")
		}
		return c.JSON(wp)
	}
}

// UpsertWaypointHandler creates or updates a waypoint.
func UpsertWaypointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var wp domain.Waypoint
		if err := c.BodyParser(&wp); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if strings.TrimSpace(wp.Name) == "" {
			return errBadRequest(c, "name is required")
		}
		if err := wp.Location.Validate(); err != nil {
			return errBadRequest(c, err.Error())
		}

		if err := deps.Waypoints.Upsert(c.Context(), &wp); err != nil {
			return errInternal(c, err.Error())
		}
		return c.Status(201).JSON(wp)
	}
}

// BatchUpsertWaypointsHandler creates or updates multiple waypoints at once.
func BatchUpsertWaypointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var wps []domain.Waypoint
		if err := c.BodyParser(&wps); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(wps) == 0 {
			return errBadRequest(c, "at least one waypoint is required")
		}
		if len(wps) > 500 {
			return errBadRequest(c, "maximum 500 waypoints per batch")
		}

		for i := range wps {
			if strings.TrimSpace(wps[i].Name) == "" {
				return errBadRequest(c, "every waypoint needs a name")
			}
			if err := wps[i].Location.Validate(); err != nil {
				return errBadRequest(c, err.Error())
			}
		}

		if err := deps.Waypoints.UpsertBatch(c.Context(), wps); err != nil {
			return errInternal(c, err.Error())
		}
		return c.Status(201).JSON(fiber.Map{"upserted": len(wps)})
	}
}

// manifestRequest is the body of POST /v1/routes/manifest.
type manifestRequest struct {
	WaypointIDs []string        `json:"waypoint_ids"`
	Origin      domain.GeoPoint `json:"origin"`
}

// StartManifestHandler kicks off asynchronous route pre-analysis and returns
// the manifest ID for later pickup.
func StartManifestHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req manifestRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(req.WaypointIDs) == 0 {
			return errBadRequest(c, "waypoint_ids is required")
		}
		if len(req.WaypointIDs) > 50 {
			return errBadRequest(c, "maximum 50 waypoints per manifest")
		}
		if err := req.Origin.Validate(); err != nil {
			return errBadRequest(c, err.Error())
		}

		manifestID := uuid.NewString()
		if err := deps.Manifests.StartRouteManifest(c.Context(), manifestID, req.WaypointIDs, req.Origin); err != nil {
			return errInternal(c, err.Error())
		}

		return c.Status(202).JSON(fiber.Map{
			"manifest_id": manifestID,
			"status":      "accepted",
		})
	}
}

// GetManifestHandler returns a finished route manifest, or 404 while the
// workflow is still running.
func GetManifestHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "manifest id is required")
		}
		manifest, err := deps.Routes.GetManifest(c.Context(), id)
		if err != nil {
			return errInternal(c, err.Error())
		}
		if manifest == nil {
			return errNotFound(c, "manifest not ready")
		}
		return c.JSON(manifest)
	}
}

// MetricsSummaryHandler returns the rolling-window pipeline statistics.
func MetricsSummaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Recorder.Summary())
	}
}

// RecentAIErrorsHandler returns model failures recorded in the last 24 hours.
func RecentAIErrorsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		errs := deps.Recorder.RecentErrors()

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		total := len(errs)
		if offset >= total {
			errs = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			errs = errs[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: errs, Pagination: pg})
	}
}
