package geospatial

import "math"

const (
	earthRadiusM = 6371000.0

	// Visual beam height for SkyAnchor rendering: 30 units at <=1 km,
	// shrinking with distance down to a floor of 5.
	baseVisualHeight = 30.0
	minVisualHeight  = 5.0
)

// Haversine calculates the great-circle distance in meters between two points.
// Symmetric; zero for coincident points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// Bearing returns the initial great-circle bearing from (lat1, lon1) to
// (lat2, lon2) in degrees [0, 360), 0 = north, clockwise.
// Coincident points resolve to 0 by convention. At exact antipodes the
// bearing is mathematically undefined; the atan2 result is returned as a
// deterministic value rather than an error.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	dLon := toRad(lon2 - lon1)
	y := math.Sin(dLon) * math.Cos(toRad(lat2))
	x := math.Cos(toRad(lat1))*math.Sin(toRad(lat2)) -
		math.Sin(toRad(lat1))*math.Cos(toRad(lat2))*math.Cos(dLon)

	deg := toDeg(math.Atan2(y, x))
	return math.Mod(deg+360, 360)
}

// ElevationAngle returns the vertical angle in degrees from an observer at
// altitude h1 to a target at altitude h2, corrected for Earth's curvature.
// The horizon drops by d²/(2R) over ground distance d, so the raw altitude
// delta is reduced before the arctangent; the result matches what the
// observer actually sees. Zero for coincident points.
func ElevationAngle(lat1, lon1, h1, lat2, lon2, h2 float64) float64 {
	d := Haversine(lat1, lon1, lat2, lon2)
	if d == 0 {
		return 0
	}

	horizonDrop := (d * d) / (2 * earthRadiusM)
	effectiveDeltaH := (h2 - h1) - horizonDrop

	return toDeg(math.Atan(effectiveDeltaH / d))
}

// VisualHeight maps a distance to a rendering height hint: 30 units at or
// below 1 km, inverse with distance beyond, never below 5. Monotonically
// non-increasing in distance.
func VisualHeight(distanceM float64) float64 {
	h := baseVisualHeight * (1000.0 / math.Max(distanceM, 1000.0))
	return math.Max(minVisualHeight, h)
}

// SignedDelta normalizes the difference between a target bearing and the
// current heading into (-180, 180]. Positive means the target is to the
// left (counter-clockwise), matching the turn-guidance convention.
func SignedDelta(targetBearing, heading float64) float64 {
	d := math.Mod(targetBearing-heading+360, 360)
	if d > 180 {
		d -= 360
	}
	return d
}

// BoundingBox returns a bounding box around a point with the given radius in
// meters. Approximate; fine at navigation scales.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
