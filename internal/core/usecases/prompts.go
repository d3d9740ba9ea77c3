package usecases

import (
	"fmt"
	"strings"

	"github.com/dira-ar/dira/internal/core/domain"
)

// Prompt construction is pipeline responsibility; the vision adapter only
// carries transport. Keep the JSON contracts here in lockstep with the
// response structs in the services that parse them.

func framePrompt(actx domain.AnalysisContext) string {
	destinationContext := ""
	if actx.DestinationHint != "" {
		destinationContext = fmt.Sprintf(" User is navigating to: %q.", actx.DestinationHint)
	}

	return fmt.Sprintf(`You are Dira, a human-centric AR navigation assistant.%s

Current Context:
- Location: (%.6f, %.6f)
- Heading: %.1f° (0°=North, 90°=East, 180°=South, 270°=West)

Task: Analyze the camera frame and provide navigation guidance using visible landmarks.

Requirements:
1. Identify visible local landmarks (buildings, signs, stores, street features)
2. Compare landmark positions to user's heading
3. Give clear walking directions using "human landmarks" - what they can actually see
4. Estimate bearing adjustment needed (positive = turn right, negative = turn left)
5. Detect if user appears lost or off-route

Return ONLY valid JSON (no markdown):
{
  "instruction": "concise walking direction using visible landmarks",
  "bearing_adjustment": <integer degrees to adjust, -180 to 180>,
  "landmark_identified": "name of most prominent landmark visible",
  "confidence": <float 0.0-1.0>,
  "is_lost": <boolean>
}`,
		destinationContext, actx.Location.Lat, actx.Location.Lon, actx.Heading)
}

func horizonPrompt(actx domain.AnalysisContext, pois []domain.VisiblePOI) string {
	var poiSummary strings.Builder
	for _, poi := range pois {
		fmt.Fprintf(&poiSummary, "- %s at %.1f° (%.1fkm)\n",
			poi.Name, poi.BearingDegrees, poi.DistanceMeters/1000)
	}

	return fmt.Sprintf(`You are analyzing a landscape photo for AR navigation horizon markers.

Current Context:
- Location: (%.6f, %.6f)
- Camera Heading: %.1f° (0°=North, 90°=East, 180°=South, 270°=West)
- Field of View: ~90° horizontal

Visible POIs (Points of Interest) in this direction:
%s
Task: Analyze the landscape to refine AR marker placement:

1. Identify major visual features: mountains/hills, buildings, tree lines, and
   the horizon line position (as Y%% from bottom: 0-100)
2. For each POI, determine whether it is visually occluded and whether its
   Y-position should be adjusted against the skyline
3. Recommend positioning: "show" (display normally), "hide" (behind obstacle),
   "raise" (above skyline feature), "lower" (not blocked)

Return ONLY valid JSON:
{
  "horizon_line_y_percent": <integer 0-100, %% from bottom>,
  "skyline_features": [
    {"type": "mountain|building|treeline", "bearing_start": <degrees>, "bearing_end": <degrees>, "estimated_height_degrees": <vertical angle above horizon>}
  ],
  "refined_pois": [
    {"name": "POI name", "original_bearing": <degrees>, "action": "show|hide|raise|lower", "y_adjustment": <float -1.0 to 1.0>, "reasoning": "brief explanation"}
  ]
}`,
		actx.Location.Lat, actx.Location.Lon, actx.Heading, poiSummary.String())
}

func guidancePrompt(poiName string, turnAmount float64, direction string, distanceKM float64) string {
	return fmt.Sprintf(`You are a warm, encouraging AR navigation guide helping someone find %q.

Current situation:
- They need to turn %.0f° %s
- The target is %.1f km away

Generate a SHORT, natural voice guidance (max 12 words):
- Be conversational and warm
- Use encouraging language
- Don't mention technical terms like "degrees" unless necessary
- Keep it brief for real-time feedback

Return ONLY the guidance text, nothing else.`,
		poiName, turnAmount, direction, distanceKM)
}

func routePrompt(origin domain.GeoPoint, waypoints []domain.Waypoint) string {
	var list strings.Builder
	for _, wp := range waypoints {
		fmt.Fprintf(&list, "- %s: (%g, %g)\n", wp.Name, wp.Location.Lat, wp.Location.Lon)
	}

	return fmt.Sprintf(`Generate visual navigation cues for offline AR navigation.

User Location: (%g, %g)

Route Waypoints:
%s
For each waypoint, provide:
1. Visual description of the location
2. Key landmarks to look for
3. Directional hints from previous waypoint

Return JSON array:
[
  {
    "waypoint_name": "string",
    "visual_cue": "what to look for",
    "landmarks": ["landmark1", "landmark2"],
    "approach_hint": "how to approach from previous point"
  }
]`,
		origin.Lat, origin.Lon, list.String())
}
