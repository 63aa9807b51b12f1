// Package geo holds the great-circle distance and ETA math shared by the
// matcher and the tracking sessions. Distances are NOT routed: the system
// promises straight-line estimates only.
package geo

import (
	"math"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
)

const (
	EarthRadiusKm = 6371.0

	// DefaultSpeedKmh is assumed when the mover's speed is unknown or at the
	// floor. One policy everywhere; the divergent per-class defaults of older
	// revisions are gone.
	DefaultSpeedKmh = 30.0

	// MinMovingSpeedKmh is the floor below which a reported speed is treated
	// as standing still.
	MinMovingSpeedKmh = 1.0
)

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// Distance returns the Haversine great-circle distance between two points in
// kilometers, rounded to 2 decimal places.
func Distance(a, b models.GeoPoint) float64 {
	lat1 := degreesToRadians(a.Latitude)
	lat2 := degreesToRadians(b.Latitude)

	deltaLat := degreesToRadians(b.Latitude - a.Latitude)
	deltaLon := degreesToRadians(b.Longitude - a.Longitude)

	h := math.Pow(math.Sin(deltaLat/2), 2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Pow(math.Sin(deltaLon/2), 2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return round2(EarthRadiusKm * c)
}

// ETA returns the estimated minutes to cover distanceKm at speedKmh.
// Zero distance means arrival (0 minutes); any positive distance yields at
// least 1 minute. A speed at or below the moving floor falls back to the
// default assumed speed.
func ETA(distanceKm, speedKmh float64) int {
	if distanceKm <= 0 {
		return 0
	}
	if speedKmh <= MinMovingSpeedKmh {
		speedKmh = DefaultSpeedKmh
	}

	minutes := int(math.Round(distanceKm / speedKmh * 60))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// IsMoving reports whether a reported speed counts as movement.
func IsMoving(speedKmh float64) bool {
	return speedKmh > MinMovingSpeedKmh
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
