package geo

import (
	"math"
	"testing"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
)

func TestDistance_Symmetric(t *testing.T) {
	a := models.GeoPoint{Longitude: 77.5946, Latitude: 12.9716}
	b := models.GeoPoint{Longitude: 76.6394, Latitude: 12.2958}

	if d1, d2 := Distance(a, b), Distance(b, a); d1 != d2 {
		t.Fatalf("distance must be symmetric: %v vs %v", d1, d2)
	}
}

func TestDistance_SamePointIsZero(t *testing.T) {
	p := models.GeoPoint{Longitude: 77.5946, Latitude: 12.9716}
	if d := Distance(p, p); d != 0 {
		t.Fatalf("distance to self must be 0, got %v", d)
	}
}

func TestDistance_KnownPair(t *testing.T) {
	// ~1.5 km apart in Bengaluru.
	booking := models.GeoPoint{Longitude: 77.5946, Latitude: 12.9716}
	professional := models.GeoPoint{Longitude: 77.6046, Latitude: 12.9816}

	d := Distance(booking, professional)
	if math.Abs(d-1.5) > 0.1 {
		t.Fatalf("expected ~1.5 km, got %v", d)
	}
}

func TestDistance_RoundedToTwoDecimals(t *testing.T) {
	a := models.GeoPoint{Longitude: 77.5946, Latitude: 12.9716}
	b := models.GeoPoint{Longitude: 77.7123, Latitude: 13.0512}

	d := Distance(a, b)
	if d != round2(d) {
		t.Fatalf("distance %v not rounded to 2 decimals", d)
	}
}

func TestETA_ZeroDistance(t *testing.T) {
	if got := ETA(0, 30); got != 0 {
		t.Fatalf("eta at zero distance must be 0, got %d", got)
	}
}

func TestETA_MinimumOneMinute(t *testing.T) {
	if got := ETA(0.1, 60); got != 1 {
		t.Fatalf("any positive distance must yield at least 1 minute, got %d", got)
	}
}

func TestETA_DefaultSpeedFallback(t *testing.T) {
	// Unknown speed and floor speed both fall back to 30 km/h.
	if got := ETA(15, 0); got != 30 {
		t.Fatalf("expected 30 minutes at default speed, got %d", got)
	}
	if got := ETA(15, 1); got != 30 {
		t.Fatalf("floor speed must use the default, got %d", got)
	}
}

func TestETA_KnownScenario(t *testing.T) {
	booking := models.GeoPoint{Longitude: 77.5946, Latitude: 12.9716}
	professional := models.GeoPoint{Longitude: 77.6046, Latitude: 12.9816}

	d := Distance(booking, professional)
	if got := ETA(d, 30); got != 3 {
		t.Fatalf("expected ~3 minutes at 30 km/h for %v km, got %d", d, got)
	}
}

func TestETA_MonotonicInDistance(t *testing.T) {
	prev := 0
	for d := 0.5; d < 120; d += 0.7 {
		eta := ETA(d, 30)
		if eta < prev {
			t.Fatalf("eta decreased: distance %v gave %d after %d", d, eta, prev)
		}
		prev = eta
	}
}

func TestIsMoving(t *testing.T) {
	if IsMoving(1.0) {
		t.Fatal("speed at the floor is not movement")
	}
	if !IsMoving(1.1) {
		t.Fatal("speed above the floor is movement")
	}
}
