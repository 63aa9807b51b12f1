package models

import (
	"slices"
	"time"

	"github.com/fieldhail/dispatch-system/internal/domain/types"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
)

type Professional struct {
	ID              uuid.UUID
	Name            string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Specializations []string // service categories; never empty
	Rating          float64
	Verification    types.VerificationStatus

	// Available is false exactly when CurrentBookingID is set.
	Available        bool
	CurrentBookingID *uuid.UUID

	LastPosition *Position // nil until the first position report
}

// Serves reports whether the professional's specializations cover category.
func (p *Professional) Serves(category string) bool {
	return slices.Contains(p.Specializations, category)
}

// Candidate is a matching result: a professional annotated with the
// great-circle distance to the booking location and a first ETA estimate.
type Candidate struct {
	ProfessionalID uuid.UUID `json:"professional_id"`
	Name           string    `json:"name"`
	Rating         float64   `json:"rating"`
	Position       GeoPoint  `json:"position"`
	SpeedKmh       float64   `json:"speed_kmh,omitempty"`
	DistanceKm     float64   `json:"distance_km"`
	EtaMinutes     int       `json:"eta_minutes"`
}
