package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fieldhail/dispatch-system/internal/domain/types"
)

// GeoPoint is a WGS84 coordinate pair. The wire form is a two-element array
// with LONGITUDE FIRST: [longitude, latitude]. Every boundary of the system
// uses this ordering; the custom JSON codec below is what enforces it.
type GeoPoint struct {
	Longitude float64
	Latitude  float64
}

// Validate checks the WGS84 ranges: longitude [-180,180], latitude [-90,90].
func (p GeoPoint) Validate() error {
	if p.Longitude < -180 || p.Longitude > 180 || p.Latitude < -90 || p.Latitude > 90 {
		return types.ErrInvalidCoordinates
	}
	return nil
}

// MarshalJSON encodes the point as [longitude, latitude].
func (p GeoPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Longitude, p.Latitude})
}

// UnmarshalJSON decodes a [longitude, latitude] array.
func (p *GeoPoint) UnmarshalJSON(data []byte) error {
	var arr [2]float64
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("coordinates must be a [longitude, latitude] array: %w", err)
	}
	p.Longitude = arr[0]
	p.Latitude = arr[1]
	return nil
}

// Position is a professional's reported location sample.
type Position struct {
	Point          GeoPoint  `json:"coordinates"`
	SpeedKmh       float64   `json:"speed_kmh,omitempty"`
	HeadingDegrees float64   `json:"heading_degrees,omitempty"`
	AccuracyMeters float64   `json:"accuracy_meters,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
}
