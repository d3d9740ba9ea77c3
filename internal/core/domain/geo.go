package domain

import "fmt"

// GeoPoint represents a geographic coordinate (WGS 84) with an optional
// altitude in meters above sea level.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt,omitempty"`
}

// Validate checks coordinate ranges.
func (p GeoPoint) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude must be in [-90, 90], got %g", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("longitude must be in [-180, 180], got %g", p.Lon)
	}
	return nil
}

// NormalizeHeading folds a compass heading into [0, 360). 360 maps to 0.
func NormalizeHeading(deg float64) float64 {
	h := deg
	for h < 0 {
		h += 360
	}
	for h >= 360 {
		h -= 360
	}
	return h
}

// ValidHeading reports whether a heading is usable as compass input.
// Callers may send exactly 360; NormalizeHeading folds it to 0.
func ValidHeading(deg float64) bool {
	return deg >= 0 && deg <= 360
}
