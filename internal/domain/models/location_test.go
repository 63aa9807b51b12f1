package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/internal/domain/types"
)

func TestGeoPoint_MarshalLongitudeFirst(t *testing.T) {
	p := models.GeoPoint{Longitude: 76.8512, Latitude: 43.2220}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	assert.JSONEq(t, `[76.8512, 43.222]`, string(data))
}

func TestGeoPoint_UnmarshalLongitudeFirst(t *testing.T) {
	var p models.GeoPoint
	require.NoError(t, json.Unmarshal([]byte(`[76.8512, 43.2220]`), &p))

	assert.Equal(t, 76.8512, p.Longitude)
	assert.Equal(t, 43.2220, p.Latitude)
}

func TestGeoPoint_UnmarshalRejectsObjects(t *testing.T) {
	var p models.GeoPoint
	err := json.Unmarshal([]byte(`{"longitude": 76.8, "latitude": 43.2}`), &p)
	assert.Error(t, err)
}

func TestGeoPoint_Validate(t *testing.T) {
	tests := []struct {
		name    string
		point   models.GeoPoint
		wantErr bool
	}{
		{"valid", models.GeoPoint{Longitude: 76.85, Latitude: 43.22}, false},
		{"boundary", models.GeoPoint{Longitude: 180, Latitude: -90}, false},
		{"longitude too big", models.GeoPoint{Longitude: 180.01, Latitude: 0}, true},
		{"latitude too small", models.GeoPoint{Longitude: 0, Latitude: -90.5}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.point.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidCoordinates)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPosition_RoundTripKeepsOrdering(t *testing.T) {
	raw := []byte(`{"coordinates":[76.9,43.25],"speed_kmh":35,"heading_degrees":90,"recorded_at":"2026-01-15T10:30:00Z"}`)

	var pos models.Position
	require.NoError(t, json.Unmarshal(raw, &pos))
	assert.Equal(t, 76.9, pos.Point.Longitude)
	assert.Equal(t, 43.25, pos.Point.Latitude)

	out, err := json.Marshal(pos)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"coordinates":[76.9,43.25]`)
}
