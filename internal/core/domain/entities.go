package domain

import (
	"time"
)

// Direction is the coarse walking direction of a navigation instruction.
type Direction string

const (
	DirectionForward    Direction = "forward"
	DirectionLeft       Direction = "left"
	DirectionRight      Direction = "right"
	DirectionTurnAround Direction = "turn-around"
)

// Waypoint is a named landmark stored in the waypoint store. Read-only to
// the analysis pipeline.
type Waypoint struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Location    GeoPoint       `json:"location"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Distance    *float64       `json:"distance,omitempty"` // computed field, meters
	CreatedAt   time.Time      `json:"created_at"`
}

// AnalysisContext carries the per-frame inputs to the navigation pipeline.
// Constructed per request and discarded after the response.
type AnalysisContext struct {
	Location        GeoPoint
	Heading         float64
	ReasoningToken  string // opaque, from the previous frame; empty = none
	DestinationHint string // optional destination landmark name
}

// NavigationInstruction is the pipeline's answer for one camera frame.
// Exactly one of the AI orchestrator or the fallback planner produces it.
type NavigationInstruction struct {
	Direction      Direction `json:"direction"`
	DistanceMeters float64   `json:"distance_meters"`
	Message        string    `json:"message"`
	Landmark       string    `json:"landmark,omitempty"`
	Confidence     float64   `json:"confidence"`
	IsLost         bool      `json:"is_lost,omitempty"`
}

// FrameAnalysis is the full frame-analysis result, including reasoning
// continuity and provenance. The ReasoningToken is an opaque blob; the
// pipeline never parses or mutates it, only hands it back to the caller.
type FrameAnalysis struct {
	ID             string                `json:"id"`
	Instruction    NavigationInstruction `json:"instruction"`
	Landmarks      []string              `json:"landmarks,omitempty"`
	ReasoningToken string                `json:"reasoning_token,omitempty"`
	Source         string                `json:"source"` // "ai", "fallback", or "cache"
	AnalyzedAt     time.Time             `json:"analyzed_at"`
}

// SkylineFeatureKind classifies a detected skyline obstacle.
type SkylineFeatureKind string

const (
	SkylineMountain SkylineFeatureKind = "mountain"
	SkylineBuilding SkylineFeatureKind = "building"
	SkylineTreeline SkylineFeatureKind = "treeline"
)

// SkylineFeature is a landscape element detected during horizon analysis.
// Ephemeral, produced per call.
type SkylineFeature struct {
	Kind          SkylineFeatureKind `json:"type"`
	BearingStart  float64            `json:"bearing_start"`
	BearingEnd    float64            `json:"bearing_end"`
	HeightDegrees float64            `json:"estimated_height_degrees"`
}

// POIAction tells the AR client what to do with a marker after horizon
// refinement.
type POIAction string

const (
	POIShow  POIAction = "show"
	POIHide  POIAction = "hide"
	POIRaise POIAction = "raise"
	POILower POIAction = "lower"
)

// VisiblePOI is a point of interest already placed in the caller's heading
// cone, with precomputed bearing and distance.
type VisiblePOI struct {
	Name           string  `json:"name"`
	BearingDegrees float64 `json:"bearing_degrees"`
	DistanceMeters float64 `json:"distance_meters"`
}

// RefinedPOI is a POI with an adjusted placement after skyline analysis.
type RefinedPOI struct {
	Name            string    `json:"name"`
	OriginalBearing float64   `json:"original_bearing"`
	Action          POIAction `json:"action"`
	YAdjustment     float64   `json:"y_adjustment"` // -1.0 .. 1.0
	Reasoning       string    `json:"reasoning,omitempty"`
}

// HorizonAnalysis is the result of refining POI placement against the
// detected skyline. On every failure path RefinedPOIs still carries the
// caller's POIs unmodified; the client always has something to render.
type HorizonAnalysis struct {
	HorizonLineYPercent int              `json:"horizon_line_y_percent"`
	SkylineFeatures     []SkylineFeature `json:"skyline_features"`
	RefinedPOIs         []RefinedPOI     `json:"refined_pois"`
	ReasoningToken      string           `json:"reasoning_token,omitempty"`
	SkippedReason       string           `json:"skipped_reason,omitempty"`
	Degraded            bool             `json:"degraded,omitempty"`
}

// AlignmentStatus describes where the user's heading stands relative to a
// target bearing.
type AlignmentStatus string

const (
	Aligned      AlignmentStatus = "aligned"
	TurningLeft  AlignmentStatus = "turning_left"
	TurningRight AlignmentStatus = "turning_right"
)

// TurnGuidance is a short spoken-style directive for rotating toward a POI.
// TurnDegrees is normalized to (-180, 180]; positive means turn left.
type TurnGuidance struct {
	Text        string          `json:"text"`
	Status      AlignmentStatus `json:"alignment_status"`
	TurnDegrees float64         `json:"turn_degrees"`
}

// CelestialPOI is a waypoint projected into the observer's sky: bearing,
// distance, curvature-corrected elevation angle, and a rendering height hint.
type CelestialPOI struct {
	Waypoint       Waypoint `json:"poi"`
	BearingDegrees float64  `json:"bearing_degrees"`
	DistanceMeters float64  `json:"distance_meters"`
	ElevationAngle float64  `json:"elevation_angle_degrees"`
	VisualHeight   float64  `json:"visual_height"`
}

// RouteManifestEntry is one waypoint's offline visual cue in a pre-analyzed
// route manifest.
type RouteManifestEntry struct {
	WaypointName string   `json:"waypoint_name"`
	VisualCue    string   `json:"visual_cue"`
	Landmarks    []string `json:"landmarks"`
	ApproachHint string   `json:"approach_hint"`
}

// RouteManifest is the offline navigation bundle for a whole route.
type RouteManifest struct {
	ID          string               `json:"id"`
	Entries     []RouteManifestEntry `json:"entries"`
	GeneratedAt time.Time            `json:"generated_at"`
}
