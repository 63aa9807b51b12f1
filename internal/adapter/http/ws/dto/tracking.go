package dto

import (
	"time"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
	"github.com/fieldhail/dispatch-system/pkg/validator"
)

// Inbound message types on the tracking websocket.
const (
	MsgJoinTracking   = "join_tracking"
	MsgLeaveTracking  = "leave_tracking"
	MsgPositionUpdate = "position_update"
)

// Outbound message types.
const (
	MsgTrackingSnapshot = "tracking_snapshot"
	MsgPositionAck      = "position_ack"
)

// InboundMsg is decoded twice: once to learn the type, then into the
// concrete message for that type.
type InboundMsg struct {
	MsgType string `json:"type"`
}

// JoinTrackingMsg subscribes the caller to a booking's tracking channel.
// The reply is a tracking_snapshot with the current state.
type JoinTrackingMsg struct {
	MsgType   string    `json:"type"`
	BookingID uuid.UUID `json:"booking_id"`
}

func (m *JoinTrackingMsg) Validate(v *validator.Validator) {
	v.Check(m.BookingID != uuid.NilUUID, "booking_id", "must be provided")
}

type LeaveTrackingMsg struct {
	MsgType   string    `json:"type"`
	BookingID uuid.UUID `json:"booking_id"`
}

func (m *LeaveTrackingMsg) Validate(v *validator.Validator) {
	v.Check(m.BookingID != uuid.NilUUID, "booking_id", "must be provided")
}

// PositionUpdateMsg is one position sample from the assigned professional.
type PositionUpdateMsg struct {
	MsgType        string          `json:"type"`
	BookingID      uuid.UUID       `json:"booking_id"`
	Coordinates    models.GeoPoint `json:"coordinates"`
	SpeedKmh       float64         `json:"speed_kmh"`
	HeadingDegrees float64         `json:"heading_degrees"`
	AccuracyMeters float64         `json:"accuracy_meters"`
	Timestamp      time.Time       `json:"timestamp"`
}

func (m *PositionUpdateMsg) Validate(v *validator.Validator) {
	v.Check(m.BookingID != uuid.NilUUID, "booking_id", "must be provided")
	v.Check(m.Coordinates.Validate() == nil, "coordinates", "must be valid [longitude, latitude]")
	v.Check(m.SpeedKmh >= 0, "speed_kmh", "must not be negative")
	v.Check(m.HeadingDegrees >= 0 && m.HeadingDegrees < 360, "heading_degrees", "must be in [0, 360)")
	v.Check(m.AccuracyMeters >= 0, "accuracy_meters", "must not be negative")
}

// ToMessage binds the sample to the authenticated professional.
func (m *PositionUpdateMsg) ToMessage(professionalID uuid.UUID) models.PositionUpdateMessage {
	return models.PositionUpdateMessage{
		BookingID:      m.BookingID,
		ProfessionalID: professionalID,
		Coordinates:    m.Coordinates,
		SpeedKmh:       m.SpeedKmh,
		HeadingDegrees: m.HeadingDegrees,
		AccuracyMeters: m.AccuracyMeters,
		Timestamp:      m.Timestamp,
	}
}
