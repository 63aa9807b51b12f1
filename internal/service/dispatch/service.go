package dispatch

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/internal/domain/types"
	"github.com/fieldhail/dispatch-system/pkg/logger"
	wrap "github.com/fieldhail/dispatch-system/pkg/logger/wrapper"
	"github.com/fieldhail/dispatch-system/pkg/metrics"
	"github.com/fieldhail/dispatch-system/pkg/trm"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
)

// Engine owns the booking lifecycle. Every transition is decided inside a
// single storage transaction; notifications, tracking events and candidate
// fan-out happen strictly after commit and are never allowed to unwind it.
type Engine struct {
	bookings      BookingRepo
	professionals ProfessionalRepo
	events        EventRepo
	matcher       CandidateFinder
	tracker       Tracker
	notify        NotifyPublisher
	tx            trm.TxManager
	l             logger.Logger

	now func() time.Time
}

func New(
	bookings BookingRepo,
	professionals ProfessionalRepo,
	events EventRepo,
	matcher CandidateFinder,
	tracker Tracker,
	notify NotifyPublisher,
	tx trm.TxManager,
	l logger.Logger,
) *Engine {
	return &Engine{
		bookings:      bookings,
		professionals: professionals,
		events:        events,
		matcher:       matcher,
		tracker:       tracker,
		notify:        notify,
		tx:            tx,
		l:             l,
		now:           time.Now,
	}
}

// CreateBookingInput carries the requester-supplied fields of a new booking.
type CreateBookingInput struct {
	RequesterID     uuid.UUID
	ServiceCategory string
	Location        models.GeoPoint
	ScheduledAt     time.Time
	Emergency       bool
	Notes           string
	TotalAmount     float64
}

// CreateBooking validates the request, persists the booking in PENDING and
// kicks off candidate matching asynchronously. The caller gets the booking
// back (verification code included) without waiting for the matching pass.
func (e *Engine) CreateBooking(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	ctx = wrap.WithAction(ctx, "create_booking")

	if err := in.Location.Validate(); err != nil {
		return nil, wrap.Error(ctx, err)
	}
	category := strings.TrimSpace(in.ServiceCategory)
	if category == "" {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: service category is required", types.ErrValidation))
	}

	now := e.now()
	scheduledAt := in.ScheduledAt
	if in.Emergency {
		// An emergency is always "now".
		scheduledAt = now
	} else if !scheduledAt.After(now) {
		// A zero or absent schedule is not in the future either.
		return nil, wrap.Error(ctx, types.ErrScheduledInPast)
	}

	id, err := uuid.New()
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	code, err := generateVerificationCode()
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	b := &models.Booking{
		ID:               id,
		Status:           types.StatusPending,
		RequesterID:      in.RequesterID,
		ServiceCategory:  category,
		Location:         in.Location,
		ScheduledAt:      scheduledAt,
		Emergency:        in.Emergency,
		Notes:            in.Notes,
		VerificationCode: code,
		TotalAmount:      in.TotalAmount,
		CreatedAt:        now,
	}

	ctx = wrap.WithBookingID(ctx, id.String())
	err = e.tx.Do(ctx, func(ctx context.Context) error {
		seq, err := e.bookings.NextSequence(ctx, now)
		if err != nil {
			return err
		}
		b.Number = formatBookingNumber(now, seq)

		if err := e.bookings.Create(ctx, b); err != nil {
			return err
		}
		return e.events.Append(ctx, models.AuditEntry{
			BookingID: b.ID,
			Event:     types.EventBookingCreated,
			ActorID:   &in.RequesterID,
			Data:      map[string]any{"number": b.Number, "emergency": b.Emergency},
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("create booking: %w", err))
	}

	metrics.ActiveBookingsGauge.Inc()
	e.l.Info(ctx, "booking created",
		"number", b.Number,
		"category", b.ServiceCategory,
		"emergency", b.Emergency,
	)

	// Matching must not block the create path. The goroutine carries a fresh
	// context so a closed request context cannot cancel it.
	go e.matchAndNotify(context.WithoutCancel(ctx), b)

	return b, nil
}

// matchAndNotify runs the candidate search for a fresh booking and fans the
// result out. All failures here are logged only: the booking stays PENDING
// and can be matched again.
func (e *Engine) matchAndNotify(ctx context.Context, b *models.Booking) {
	ctx = wrap.WithAction(ctx, "match_booking")

	candidates, err := e.matcher.FindCandidates(ctx, b.Location, b.ServiceCategory, b.Emergency)
	if err != nil {
		e.l.Error(ctx, "candidate search failed", err)
		return
	}
	if len(candidates) == 0 {
		e.l.Warn(ctx, "no candidates in range", "category", b.ServiceCategory)
		return
	}

	msg := models.CandidatesFoundMessage{
		BookingID:     b.ID,
		Number:        b.Number,
		Category:      b.ServiceCategory,
		Location:      b.Location,
		Emergency:     b.Emergency,
		Candidates:    candidates,
		CorrelationID: wrap.GetRequestID(ctx),
	}
	if err := e.notify.PublishCandidates(ctx, msg); err != nil {
		e.l.Error(ctx, "failed to publish candidates", err)
		return
	}

	if err := e.events.Append(ctx, models.AuditEntry{
		BookingID: b.ID,
		Event:     types.EventCandidatesNotified,
		Data:      map[string]any{"count": len(candidates)},
		CreatedAt: e.now(),
	}); err != nil {
		e.l.Warn(ctx, "failed to record candidates_notified event", "err", err.Error())
	}
}

// Assign claims a PENDING booking for the professional. Exactly one caller
// can win; everyone else gets ErrBookingTaken regardless of how close the
// race was.
func (e *Engine) Assign(ctx context.Context, bookingID, professionalID uuid.UUID) (*models.Booking, error) {
	ctx = wrap.WithAction(
		wrap.WithProfessionalID(wrap.WithBookingID(ctx, bookingID.String()), professionalID.String()),
		"assign_booking",
	)

	now := e.now()
	var (
		b *models.Booking
		p *models.Professional
	)
	err := e.tx.Do(ctx, func(ctx context.Context) error {
		var err error
		b, err = e.bookings.Get(ctx, bookingID)
		if err != nil {
			return err
		}
		p, err = e.professionals.Get(ctx, professionalID)
		if err != nil {
			return err
		}

		if !p.Serves(b.ServiceCategory) {
			return types.ErrSpecializationMismatch
		}
		if p.Verification != types.VerificationVerified {
			return types.ErrProfessionalUnverified
		}
		if !p.Available || p.CurrentBookingID != nil {
			return types.ErrProfessionalUnavailable
		}

		if b.Status != types.StatusPending {
			if b.ProfessionalID != nil {
				return types.ErrBookingTaken
			}
			return types.ErrInvalidBookingStatus
		}

		// The conditional write is the arbiter: the snapshot above may be
		// stale by the time we get here.
		claimed, err := e.bookings.AssignIfPending(ctx, bookingID, professionalID, now)
		if err != nil {
			return err
		}
		if !claimed {
			return types.ErrBookingTaken
		}

		if err := e.professionals.SetAssignment(ctx, professionalID, &bookingID); err != nil {
			return err
		}
		return e.events.Append(ctx, models.AuditEntry{
			BookingID: bookingID,
			Event:     types.EventStatusChanged,
			ActorID:   &professionalID,
			Data:      map[string]any{"from": types.StatusPending, "to": types.StatusAccepted},
			CreatedAt: now,
		})
	})
	if err != nil {
		if errors.Is(err, types.ErrBookingTaken) {
			metrics.AssignConflictsTotal.Inc()
		}
		return nil, wrap.Error(ctx, err)
	}

	b.Status = types.StatusAccepted
	b.ProfessionalID = &professionalID
	b.AcceptedAt = &now

	st := e.tracker.StartSession(ctx, b, professionalID, p.LastPosition)
	e.tracker.BroadcastStatus(ctx, b, types.StatusAccepted)
	e.publishStatus(ctx, b, "")

	e.l.Info(ctx, "booking assigned",
		"number", b.Number,
		"eta_minutes", st.EtaMinutes,
	)
	return b, nil
}

// Start moves an ACCEPTED booking into IN_PROGRESS. Only the assigned
// professional may start the work.
func (e *Engine) Start(ctx context.Context, bookingID, professionalID uuid.UUID) (*models.Booking, error) {
	ctx = wrap.WithAction(wrap.WithBookingID(ctx, bookingID.String()), "start_booking")

	now := e.now()
	b, err := e.transition(ctx, bookingID, professionalID, types.StatusAccepted, types.StatusInProgress, now)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	b.StartedAt = &now

	// Reseed the tracking session so the service phase opens with the
	// professional's freshest known position.
	if p, err := e.professionals.Get(ctx, professionalID); err == nil && p.LastPosition != nil {
		e.tracker.RefreshFromPosition(ctx, b, p.LastPosition)
	}

	e.tracker.BroadcastStatus(ctx, b, types.StatusInProgress)
	e.publishStatus(ctx, b, "")

	e.l.Info(ctx, "booking started", "number", b.Number)
	return b, nil
}

// Arrive records that the assigned professional reached the booking
// location. It is not a lifecycle transition: the booking status is
// untouched, only the tracking session and the audit trail change.
func (e *Engine) Arrive(ctx context.Context, bookingID, professionalID uuid.UUID) (models.TrackingState, error) {
	ctx = wrap.WithAction(wrap.WithBookingID(ctx, bookingID.String()), "arrive_booking")

	b, err := e.bookings.Get(ctx, bookingID)
	if err != nil {
		return models.TrackingState{}, wrap.Error(ctx, err)
	}
	if b.ProfessionalID == nil || *b.ProfessionalID != professionalID {
		return models.TrackingState{}, wrap.Error(ctx, types.ErrNotAllowed)
	}
	if !b.Status.Trackable() {
		return models.TrackingState{}, wrap.Error(ctx, types.ErrInvalidBookingStatus)
	}

	now := e.now()
	st := e.tracker.MarkArrived(ctx, b, now)

	if err := e.events.Append(ctx, models.AuditEntry{
		BookingID: bookingID,
		Event:     types.EventProfessionalArrived,
		ActorID:   &professionalID,
		CreatedAt: now,
	}); err != nil {
		e.l.Warn(ctx, "failed to record arrival event", "err", err.Error())
	}

	return st, nil
}

// Complete finishes an IN_PROGRESS booking. The professional must present
// the requester's 6-digit verification code; a wrong code leaves the booking
// untouched.
func (e *Engine) Complete(ctx context.Context, bookingID, professionalID uuid.UUID, code string) (*models.Booking, error) {
	ctx = wrap.WithAction(wrap.WithBookingID(ctx, bookingID.String()), "complete_booking")

	now := e.now()
	var b *models.Booking
	err := e.tx.Do(ctx, func(ctx context.Context) error {
		var err error
		b, err = e.bookings.Get(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.ProfessionalID == nil || *b.ProfessionalID != professionalID {
			return types.ErrNotAllowed
		}
		if b.Status != types.StatusInProgress {
			return types.ErrInvalidBookingStatus
		}
		if subtle.ConstantTimeCompare([]byte(code), []byte(b.VerificationCode)) != 1 {
			return types.ErrBadVerificationCode
		}

		moved, err := e.bookings.TransitionStatus(ctx, bookingID, types.StatusInProgress, types.StatusCompleted, now)
		if err != nil {
			return err
		}
		if !moved {
			return types.ErrInvalidBookingStatus
		}

		if err := e.professionals.SetAssignment(ctx, professionalID, nil); err != nil {
			return err
		}
		return e.events.Append(ctx, models.AuditEntry{
			BookingID: bookingID,
			Event:     types.EventStatusChanged,
			ActorID:   &professionalID,
			Data:      map[string]any{"from": types.StatusInProgress, "to": types.StatusCompleted},
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	b.Status = types.StatusCompleted
	b.CompletedAt = &now

	metrics.ActiveBookingsGauge.Dec()
	metrics.BookingsTotal.WithLabelValues(string(types.StatusCompleted)).Inc()

	e.tracker.BroadcastStatus(ctx, b, types.StatusCompleted)
	e.tracker.EndSession(ctx, bookingID, "completed")
	e.publishStatus(ctx, b, "")

	e.l.Info(ctx, "booking completed", "number", b.Number)
	return b, nil
}

// Cancel aborts a PENDING or ACCEPTED booking. The requester, the assigned
// professional or an admin may cancel; anything past ACCEPTED is final.
func (e *Engine) Cancel(ctx context.Context, bookingID uuid.UUID, actor models.Actor, reason string) (*models.Booking, error) {
	ctx = wrap.WithAction(wrap.WithBookingID(ctx, bookingID.String()), "cancel_booking")

	now := e.now()
	var b *models.Booking
	err := e.tx.Do(ctx, func(ctx context.Context) error {
		var err error
		b, err = e.bookings.Get(ctx, bookingID)
		if err != nil {
			return err
		}
		if !canModify(b, actor) {
			return types.ErrNotAllowed
		}
		if b.Status != types.StatusPending && b.Status != types.StatusAccepted {
			return types.ErrInvalidBookingStatus
		}

		cancelled, err := e.bookings.SetCancelled(ctx, bookingID, reason, now)
		if err != nil {
			return err
		}
		if !cancelled {
			return types.ErrInvalidBookingStatus
		}

		if b.ProfessionalID != nil {
			if err := e.professionals.SetAssignment(ctx, *b.ProfessionalID, nil); err != nil {
				return err
			}
		}
		return e.events.Append(ctx, models.AuditEntry{
			BookingID: bookingID,
			Event:     types.EventStatusChanged,
			ActorID:   &actor.ID,
			Data:      map[string]any{"from": b.Status, "to": types.StatusCancelled, "reason": reason},
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	hadSession := b.Status == types.StatusAccepted
	b.Status = types.StatusCancelled
	b.CancelledAt = &now
	b.CancellationReason = &reason

	metrics.ActiveBookingsGauge.Dec()
	metrics.BookingsTotal.WithLabelValues(string(types.StatusCancelled)).Inc()

	e.tracker.BroadcastStatus(ctx, b, types.StatusCancelled)
	if hadSession {
		e.tracker.EndSession(ctx, bookingID, "cancelled")
	}
	e.publishStatus(ctx, b, reason)

	e.l.Info(ctx, "booking cancelled", "number", b.Number, "reason", reason)
	return b, nil
}

// Reschedule moves a PENDING or ACCEPTED booking to a new time. Requester
// only; the old time is kept in the booking's reschedule history.
func (e *Engine) Reschedule(ctx context.Context, bookingID uuid.UUID, actor models.Actor, newTime time.Time, reason string) (*models.Booking, error) {
	ctx = wrap.WithAction(wrap.WithBookingID(ctx, bookingID.String()), "reschedule_booking")

	now := e.now()
	if newTime.Before(now) {
		return nil, wrap.Error(ctx, types.ErrScheduledInPast)
	}

	var b *models.Booking
	err := e.tx.Do(ctx, func(ctx context.Context) error {
		var err error
		b, err = e.bookings.Get(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.RequesterID != actor.ID && !actor.IsAdmin() {
			return types.ErrNotAllowed
		}
		if b.Status != types.StatusPending && b.Status != types.StatusAccepted {
			return types.ErrInvalidBookingStatus
		}

		if err := e.bookings.AppendReschedule(ctx, models.Reschedule{
			BookingID: bookingID,
			ActorID:   actor.ID,
			OldTime:   b.ScheduledAt,
			NewTime:   newTime,
			Reason:    reason,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		if err := e.bookings.UpdateScheduledAt(ctx, bookingID, newTime); err != nil {
			return err
		}
		return e.events.Append(ctx, models.AuditEntry{
			BookingID: bookingID,
			Event:     types.EventRescheduled,
			ActorID:   &actor.ID,
			Data:      map[string]any{"old_time": b.ScheduledAt, "new_time": newTime},
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	b.ScheduledAt = newTime
	e.l.Info(ctx, "booking rescheduled", "number", b.Number, "new_time", newTime)
	return b, nil
}

// GetBooking returns the booking to its requester, its assigned professional
// or an admin. Code redaction for professionals happens at the transport
// layer.
func (e *Engine) GetBooking(ctx context.Context, bookingID uuid.UUID, actor models.Actor) (*models.Booking, error) {
	ctx = wrap.WithAction(wrap.WithBookingID(ctx, bookingID.String()), "get_booking")

	b, err := e.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if !canModify(b, actor) {
		return nil, wrap.Error(ctx, types.ErrNotAllowed)
	}
	return b, nil
}

// ListActive returns every in-flight booking with its professional's last
// known position. Admin only.
func (e *Engine) ListActive(ctx context.Context, actor models.Actor) ([]models.BookingOverview, error) {
	ctx = wrap.WithAction(ctx, "list_active_bookings")

	if !actor.IsAdmin() {
		return nil, wrap.Error(ctx, types.ErrNotAllowed)
	}
	rows, err := e.bookings.ListActive(ctx)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return rows, nil
}

// transition is the shared ACCEPTED/IN_PROGRESS style move guarded by the
// assigned-professional check.
func (e *Engine) transition(ctx context.Context, bookingID, professionalID uuid.UUID, from, to types.BookingStatus, at time.Time) (*models.Booking, error) {
	var b *models.Booking
	err := e.tx.Do(ctx, func(ctx context.Context) error {
		var err error
		b, err = e.bookings.Get(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.ProfessionalID == nil || *b.ProfessionalID != professionalID {
			return types.ErrNotAllowed
		}
		if b.Status != from {
			return types.ErrInvalidBookingStatus
		}

		moved, err := e.bookings.TransitionStatus(ctx, bookingID, from, to, at)
		if err != nil {
			return err
		}
		if !moved {
			return types.ErrInvalidBookingStatus
		}
		return e.events.Append(ctx, models.AuditEntry{
			BookingID: bookingID,
			Event:     types.EventStatusChanged,
			ActorID:   &professionalID,
			Data:      map[string]any{"from": from, "to": to},
			CreatedAt: at,
		})
	})
	if err != nil {
		return nil, err
	}
	b.Status = to
	return b, nil
}

// publishStatus hands the committed transition to the notification
// collaborator. A broker outage is logged and swallowed.
func (e *Engine) publishStatus(ctx context.Context, b *models.Booking, reason string) {
	msg := models.BookingStatusMessage{
		BookingID:      b.ID,
		Number:         b.Number,
		Status:         b.Status,
		ProfessionalID: b.ProfessionalID,
		Reason:         reason,
		Timestamp:      e.now(),
		CorrelationID:  wrap.GetRequestID(ctx),
	}
	if err := e.notify.PublishStatus(ctx, msg); err != nil {
		e.l.Warn(ctx, "failed to publish status message",
			"status", b.Status,
			"err", err.Error(),
		)
	}
}

// canModify is the requester / assigned professional / admin rule shared by
// reads and cancellation.
func canModify(b *models.Booking, actor models.Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	if actor.ID == b.RequesterID {
		return true
	}
	return b.ProfessionalID != nil && *b.ProfessionalID == actor.ID
}
