package dto

import (
	"time"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/internal/domain/types"
	"github.com/fieldhail/dispatch-system/internal/service/dispatch"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
	"github.com/fieldhail/dispatch-system/pkg/validator"
)

// CreateBookingRequest is the requester-facing create payload. Location is a
// [longitude, latitude] array.
type CreateBookingRequest struct {
	ServiceCategory string          `json:"service_category"`
	Location        models.GeoPoint `json:"location"`
	ScheduledAt     *time.Time      `json:"scheduled_at,omitempty"`
	Emergency       bool            `json:"emergency,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	TotalAmount     float64         `json:"total_amount,omitempty"`
}

func (r *CreateBookingRequest) Validate(v *validator.Validator) {
	v.Check(r.ServiceCategory != "", "service_category", "must be provided")
	v.Check(r.Emergency || r.ScheduledAt != nil, "scheduled_at", "must be provided for scheduled bookings")
	v.Check(r.Location.Validate() == nil, "location", "must be a valid [longitude, latitude] pair")
	v.Check(r.TotalAmount >= 0, "total_amount", "must not be negative")
	v.Check(len(r.Notes) <= 2000, "notes", "must not exceed 2000 characters")
}

func (r *CreateBookingRequest) ToInput(requesterID uuid.UUID) dispatch.CreateBookingInput {
	in := dispatch.CreateBookingInput{
		RequesterID:     requesterID,
		ServiceCategory: r.ServiceCategory,
		Location:        r.Location,
		Emergency:       r.Emergency,
		Notes:           r.Notes,
		TotalAmount:     r.TotalAmount,
	}
	if r.ScheduledAt != nil {
		in.ScheduledAt = *r.ScheduledAt
	}
	return in
}

type CompleteBookingRequest struct {
	VerificationCode string `json:"verification_code"`
}

func (r *CompleteBookingRequest) Validate(v *validator.Validator) {
	v.Check(len(r.VerificationCode) == 6, "verification_code", "must be exactly 6 digits")
}

type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (r *CancelBookingRequest) Validate(v *validator.Validator) {
	v.Check(r.Reason != "", "reason", "must be provided")
	v.Check(len(r.Reason) <= 500, "reason", "must not exceed 500 characters")
}

type RescheduleBookingRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
	Reason      string    `json:"reason,omitempty"`
}

func (r *RescheduleBookingRequest) Validate(v *validator.Validator) {
	v.Check(!r.ScheduledAt.IsZero(), "scheduled_at", "must be provided")
}

// BookingResponse is the outward booking shape. The verification code is
// present only for the requester and admins.
type BookingResponse struct {
	ID                 uuid.UUID           `json:"id"`
	Number             string              `json:"number"`
	Status             types.BookingStatus `json:"status"`
	RequesterID        uuid.UUID           `json:"requester_id"`
	ProfessionalID     *uuid.UUID          `json:"professional_id,omitempty"`
	ServiceCategory    string              `json:"service_category"`
	Location           models.GeoPoint     `json:"location"`
	ScheduledAt        time.Time           `json:"scheduled_at"`
	Emergency          bool                `json:"emergency"`
	Notes              string              `json:"notes,omitempty"`
	VerificationCode   string              `json:"verification_code,omitempty"`
	TotalAmount        float64             `json:"total_amount"`
	CancellationReason *string             `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	AcceptedAt         *time.Time          `json:"accepted_at,omitempty"`
	StartedAt          *time.Time          `json:"started_at,omitempty"`
	CompletedAt        *time.Time          `json:"completed_at,omitempty"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty"`
}

func NewBookingResponse(b *models.Booking, includeCode bool) BookingResponse {
	resp := BookingResponse{
		ID:                 b.ID,
		Number:             b.Number,
		Status:             b.Status,
		RequesterID:        b.RequesterID,
		ProfessionalID:     b.ProfessionalID,
		ServiceCategory:    b.ServiceCategory,
		Location:           b.Location,
		ScheduledAt:        b.ScheduledAt,
		Emergency:          b.Emergency,
		Notes:              b.Notes,
		TotalAmount:        b.TotalAmount,
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt,
		AcceptedAt:         b.AcceptedAt,
		StartedAt:          b.StartedAt,
		CompletedAt:        b.CompletedAt,
		CancelledAt:        b.CancelledAt,
	}
	if includeCode {
		resp.VerificationCode = b.VerificationCode
	}
	return resp
}
