package models

import (
	"time"

	"github.com/fieldhail/dispatch-system/internal/domain/types"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
)

type Booking struct {
	ID              uuid.UUID
	Number          string
	Status          types.BookingStatus
	RequesterID     uuid.UUID
	ProfessionalID  *uuid.UUID // nil until the booking is ACCEPTED
	ServiceCategory string
	Location        GeoPoint
	ScheduledAt     time.Time
	Emergency       bool
	Notes           string

	// VerificationCode is the single-use 6-digit code the requester hands to
	// the professional; checked at completion, never exposed to professionals.
	VerificationCode string

	// TotalAmount is carried through opaquely; the core never computes it.
	TotalAmount float64

	CancellationReason *string

	CreatedAt   time.Time
	AcceptedAt  *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
}

// Reschedule is one entry of a booking's rescheduling history.
type Reschedule struct {
	BookingID uuid.UUID `json:"booking_id"`
	ActorID   uuid.UUID `json:"actor_id"`
	OldTime   time.Time `json:"old_time"`
	NewTime   time.Time `json:"new_time"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// BookingOverview is the admin listing row: an in-flight booking with its
// professional's last reported position.
type BookingOverview struct {
	BookingID      uuid.UUID           `json:"booking_id"`
	Number         string              `json:"number"`
	Status         types.BookingStatus `json:"status"`
	RequesterID    uuid.UUID           `json:"requester_id"`
	ProfessionalID *uuid.UUID          `json:"professional_id,omitempty"`
	Location       GeoPoint            `json:"location"`
	ScheduledAt    time.Time           `json:"scheduled_at"`
	LastPosition   *Position           `json:"last_position,omitempty"`
}
