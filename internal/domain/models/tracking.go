package models

import (
	"time"

	"github.com/fieldhail/dispatch-system/pkg/uuid"
)

// TrackingState is the live tracking snapshot attached 1:1 to an in-flight
// booking. It lives only while the booking is active; a terminal booking
// discards it.
type TrackingState struct {
	BookingID      uuid.UUID  `json:"booking_id"`
	ProfessionalID uuid.UUID  `json:"professional_id"`
	LastPosition   *Position  `json:"last_position,omitempty"`
	DistanceKm     float64    `json:"distance_km"`
	EtaMinutes     int        `json:"eta_minutes"`
	IsActive       bool       `json:"is_active"`
	IsMoving       bool       `json:"is_moving"`
	ArrivedAt      *time.Time `json:"arrived_at,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// HasData reports whether at least one position has been recorded. A snapshot
// without data is served as-is ("no data yet"), not as an error.
func (s TrackingState) HasData() bool {
	return s.LastPosition != nil
}
