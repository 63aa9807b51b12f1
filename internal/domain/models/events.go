package models

import (
	"time"

	"github.com/fieldhail/dispatch-system/internal/domain/types"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
)

/* ======================= rabbitmq (notify collaborator) ======================= */

// BookingStatusMessage is published to the notify exchange on every committed
// lifecycle transition. The notification collaborator owns delivery.
type BookingStatusMessage struct {
	BookingID      uuid.UUID           `json:"booking_id"`
	Number         string              `json:"number"`
	Status         types.BookingStatus `json:"status"`
	ProfessionalID *uuid.UUID          `json:"professional_id,omitempty"`
	Reason         string              `json:"reason,omitempty"`
	Timestamp      time.Time           `json:"timestamp"`
	CorrelationID  string              `json:"correlation_id"`
}

// CandidatesFoundMessage fans out a fresh PENDING booking to the matched
// professionals. Emitted by the asynchronous matching pass after create.
type CandidatesFoundMessage struct {
	BookingID     uuid.UUID   `json:"booking_id"`
	Number        string      `json:"number"`
	Category      string      `json:"category"`
	Location      GeoPoint    `json:"location"`
	Emergency     bool        `json:"emergency"`
	Candidates    []Candidate `json:"candidates"`
	CorrelationID string      `json:"correlation_id"`
}

/* ======================= position stream (inbound) ======================= */

// PositionUpdateMessage is one position sample streamed by the assigned
// professional, over the websocket or the position_updates queue.
type PositionUpdateMessage struct {
	BookingID      uuid.UUID `json:"booking_id"`
	ProfessionalID uuid.UUID `json:"professional_id"`
	Coordinates    GeoPoint  `json:"coordinates"`
	SpeedKmh       float64   `json:"speed_kmh,omitempty"`
	HeadingDegrees float64   `json:"heading_degrees,omitempty"`
	AccuracyMeters float64   `json:"accuracy_meters,omitempty"`
	Timestamp      time.Time `json:"timestamp,omitzero"`
}

// PositionAck is returned to the originating professional after each
// accepted position update.
type PositionAck struct {
	BookingID  uuid.UUID `json:"booking_id"`
	EtaMinutes int       `json:"eta"`
	DistanceKm float64   `json:"distance"`
}

/* ======================= websocket (tracking channel) ======================= */

// ChannelEvent is the envelope for everything delivered on a booking's
// tracking channel.
type ChannelEvent struct {
	EventType types.BookingEvent `json:"type"`
	Data      any                `json:"data"`
}

type LocationUpdatedEvent struct {
	BookingID   uuid.UUID `json:"booking_id"`
	Coordinates GeoPoint  `json:"coordinates"`
	EtaMinutes  int       `json:"eta"`
	DistanceKm  float64   `json:"distance"`
	IsMoving    bool      `json:"is_moving"`
	Timestamp   time.Time `json:"timestamp"`
}

type StatusChangedEvent struct {
	BookingID uuid.UUID           `json:"booking_id"`
	NewStatus types.BookingStatus `json:"new_status"`
	Timestamp time.Time           `json:"timestamp"`
}

type ProfessionalArrivedEvent struct {
	BookingID uuid.UUID `json:"booking_id"`
	Timestamp time.Time `json:"timestamp"`
}

type TrackingEndedEvent struct {
	BookingID uuid.UUID `json:"booking_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}
