package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/fieldhail/dispatch-system/internal/adapter/http/handler/dto"
	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/internal/service/dispatch"
	"github.com/fieldhail/dispatch-system/pkg/logger"
	wrap "github.com/fieldhail/dispatch-system/pkg/logger/wrapper"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
	"github.com/fieldhail/dispatch-system/pkg/validator"
)

type Booking struct {
	service  DispatchService
	tracking TrackingReader
	l        logger.Logger
}

type DispatchService interface {
	CreateBooking(ctx context.Context, in dispatch.CreateBookingInput) (*models.Booking, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID, actor models.Actor) (*models.Booking, error)
	Assign(ctx context.Context, bookingID, professionalID uuid.UUID) (*models.Booking, error)
	Start(ctx context.Context, bookingID, professionalID uuid.UUID) (*models.Booking, error)
	Arrive(ctx context.Context, bookingID, professionalID uuid.UUID) (models.TrackingState, error)
	Complete(ctx context.Context, bookingID, professionalID uuid.UUID, code string) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID uuid.UUID, actor models.Actor, reason string) (*models.Booking, error)
	Reschedule(ctx context.Context, bookingID uuid.UUID, actor models.Actor, newTime time.Time, reason string) (*models.Booking, error)
}

// TrackingReader serves read-only tracking snapshots over plain HTTP; the
// live stream runs over the websocket.
type TrackingReader interface {
	Snapshot(ctx context.Context, bookingID uuid.UUID, actor models.Actor) (models.TrackingState, error)
}

func NewBooking(service DispatchService, tracking TrackingReader, l logger.Logger) *Booking {
	return &Booking{
		service:  service,
		tracking: tracking,
		l:        l,
	}
}

// Create godoc
//
//	@Summary	Create a booking
//	@Tags		bookings
//	@Accept		json
//	@Produce	json
//	@Param		request	body	dto.CreateBookingRequest	true	"booking details"
//	@Success	201	{object}	dto.BookingResponse
//	@Router		/bookings [post]
func (h *Booking) Create(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "create_booking")
	actor := models.ActorFromContext(ctx)

	var req dto.CreateBookingRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	booking, err := h.service.CreateBooking(ctx, req.ToInput(actor.ID))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to create booking", err)
		domainErrorResponse(w, err)
		return
	}

	// The creator sees the verification code exactly once here.
	response := envelope{"booking": dto.NewBookingResponse(booking, true)}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "booking created", "booking_id", booking.ID, "number", booking.Number)
}

// Get godoc
//
//	@Summary	Get a booking
//	@Tags		bookings
//	@Produce	json
//	@Param		booking_id	path	string	true	"booking id"
//	@Success	200	{object}	dto.BookingResponse
//	@Router		/bookings/{booking_id} [get]
func (h *Booking) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_booking")
	actor := models.ActorFromContext(ctx)

	bookingID, ok := h.pathBookingID(w, r)
	if !ok {
		return
	}

	booking, err := h.service.GetBooking(ctx, bookingID, actor)
	if err != nil {
		domainErrorResponse(w, err)
		return
	}

	includeCode := actor.IsAdmin() || actor.ID == booking.RequesterID
	response := envelope{"booking": dto.NewBookingResponse(booking, includeCode)}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		internalErrorResponse(w, err.Error())
	}
}

// Assign godoc
//
//	@Summary	Claim a pending booking
//	@Tags		bookings
//	@Produce	json
//	@Param		booking_id	path	string	true	"booking id"
//	@Success	200	{object}	dto.BookingResponse
//	@Failure	409	{object}	map[string]any	"ALREADY_TAKEN"
//	@Router		/bookings/{booking_id}/assign [post]
func (h *Booking) Assign(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "assign_booking")
	actor := models.ActorFromContext(ctx)

	bookingID, ok := h.pathBookingID(w, r)
	if !ok {
		return
	}

	booking, err := h.service.Assign(ctx, bookingID, actor.ID)
	if err != nil {
		h.l.Warn(ctx, "assign rejected", "booking_id", bookingID, "reason", GetReason(err))
		domainErrorResponse(w, err)
		return
	}

	response := envelope{"booking": dto.NewBookingResponse(booking, false)}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "booking assigned", "booking_id", bookingID, "professional_id", actor.ID)
}

// Start godoc
//
//	@Summary	Begin the service phase
//	@Tags		bookings
//	@Produce	json
//	@Param		booking_id	path	string	true	"booking id"
//	@Success	200	{object}	dto.BookingResponse
//	@Router		/bookings/{booking_id}/start [post]
func (h *Booking) Start(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "start_booking")
	actor := models.ActorFromContext(ctx)

	bookingID, ok := h.pathBookingID(w, r)
	if !ok {
		return
	}

	booking, err := h.service.Start(ctx, bookingID, actor.ID)
	if err != nil {
		domainErrorResponse(w, err)
		return
	}

	response := envelope{"booking": dto.NewBookingResponse(booking, false)}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		internalErrorResponse(w, err.Error())
	}
}

// Arrive godoc
//
//	@Summary	Report arrival at the booking location
//	@Tags		bookings
//	@Produce	json
//	@Param		booking_id	path	string	true	"booking id"
//	@Success	200	{object}	models.TrackingState
//	@Router		/bookings/{booking_id}/arrive [post]
func (h *Booking) Arrive(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "arrive_booking")
	actor := models.ActorFromContext(ctx)

	bookingID, ok := h.pathBookingID(w, r)
	if !ok {
		return
	}

	state, err := h.service.Arrive(ctx, bookingID, actor.ID)
	if err != nil {
		domainErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"tracking": state}, nil); err != nil {
		internalErrorResponse(w, err.Error())
	}
}

// Complete godoc
//
//	@Summary	Complete a booking with the verification code
//	@Tags		bookings
//	@Accept		json
//	@Produce	json
//	@Param		booking_id	path	string	true	"booking id"
//	@Param		request	body	dto.CompleteBookingRequest	true	"verification code"
//	@Success	200	{object}	dto.BookingResponse
//	@Failure	422	{object}	map[string]any	"BAD_CODE"
//	@Router		/bookings/{booking_id}/complete [post]
func (h *Booking) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "complete_booking")
	actor := models.ActorFromContext(ctx)

	bookingID, ok := h.pathBookingID(w, r)
	if !ok {
		return
	}

	var req dto.CompleteBookingRequest
	if err := readJSON(w, r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	booking, err := h.service.Complete(ctx, bookingID, actor.ID, req.VerificationCode)
	if err != nil {
		domainErrorResponse(w, err)
		return
	}

	response := envelope{"booking": dto.NewBookingResponse(booking, false)}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "booking completed", "booking_id", bookingID)
}

// Cancel godoc
//
//	@Summary	Cancel a pending or accepted booking
//	@Tags		bookings
//	@Accept		json
//	@Produce	json
//	@Param		booking_id	path	string	true	"booking id"
//	@Param		request	body	dto.CancelBookingRequest	true	"cancellation reason"
//	@Success	200	{object}	dto.BookingResponse
//	@Router		/bookings/{booking_id}/cancel [post]
func (h *Booking) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "cancel_booking")
	actor := models.ActorFromContext(ctx)

	bookingID, ok := h.pathBookingID(w, r)
	if !ok {
		return
	}

	var req dto.CancelBookingRequest
	if err := readJSON(w, r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	booking, err := h.service.Cancel(ctx, bookingID, actor, req.Reason)
	if err != nil {
		domainErrorResponse(w, err)
		return
	}

	includeCode := actor.IsAdmin() || actor.ID == booking.RequesterID
	response := envelope{"booking": dto.NewBookingResponse(booking, includeCode)}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "booking cancelled", "booking_id", bookingID, "reason", req.Reason)
}

// Reschedule godoc
//
//	@Summary	Move a booking to a new time
//	@Tags		bookings
//	@Accept		json
//	@Produce	json
//	@Param		booking_id	path	string	true	"booking id"
//	@Param		request	body	dto.RescheduleBookingRequest	true	"new schedule"
//	@Success	200	{object}	dto.BookingResponse
//	@Router		/bookings/{booking_id}/reschedule [post]
func (h *Booking) Reschedule(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "reschedule_booking")
	actor := models.ActorFromContext(ctx)

	bookingID, ok := h.pathBookingID(w, r)
	if !ok {
		return
	}

	var req dto.RescheduleBookingRequest
	if err := readJSON(w, r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	booking, err := h.service.Reschedule(ctx, bookingID, actor, req.ScheduledAt, req.Reason)
	if err != nil {
		domainErrorResponse(w, err)
		return
	}

	includeCode := actor.IsAdmin() || actor.ID == booking.RequesterID
	response := envelope{"booking": dto.NewBookingResponse(booking, includeCode)}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		internalErrorResponse(w, err.Error())
	}
}

// Tracking godoc
//
//	@Summary	Read the current tracking snapshot
//	@Tags		tracking
//	@Produce	json
//	@Param		booking_id	path	string	true	"booking id"
//	@Success	200	{object}	models.TrackingState
//	@Router		/bookings/{booking_id}/tracking [get]
func (h *Booking) Tracking(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "tracking_snapshot")
	actor := models.ActorFromContext(ctx)

	bookingID, ok := h.pathBookingID(w, r)
	if !ok {
		return
	}

	state, err := h.tracking.Snapshot(ctx, bookingID, actor)
	if err != nil {
		domainErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"tracking": state}, nil); err != nil {
		internalErrorResponse(w, err.Error())
	}
}

func (h *Booking) pathBookingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	bookingID, err := uuid.Parse(r.PathValue("booking_id"))
	if err != nil {
		h.l.Warn(r.Context(), "invalid booking uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid booking uuid format")
		return uuid.UUID{}, false
	}
	return bookingID, true
}
