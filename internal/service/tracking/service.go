package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/internal/domain/types"
	"github.com/fieldhail/dispatch-system/pkg/logger"
	wrap "github.com/fieldhail/dispatch-system/pkg/logger/wrapper"
	"github.com/fieldhail/dispatch-system/pkg/metrics"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
)

// Service owns the live tracking sessions of all in-flight bookings: it
// applies the professional's position stream, keeps ETA/distance fresh, and
// fans events out to the booking's tracking channel.
type Service struct {
	registry  *Registry
	bookings  BookingGetter
	positions PositionStore
	caster    *Broadcaster
	l         logger.Logger
}

func New(registry *Registry, bookings BookingGetter, positions PositionStore, caster *Broadcaster, l logger.Logger) *Service {
	return &Service{
		registry:  registry,
		bookings:  bookings,
		positions: positions,
		caster:    caster,
		l:         l,
	}
}

// StartSession creates the tracking session for a freshly accepted booking.
// When the professional has a known position the first ETA is computed from
// it right away.
func (s *Service) StartSession(ctx context.Context, b *models.Booking, professionalID uuid.UUID, lastPos *models.Position) models.TrackingState {
	ctx = wrap.WithAction(wrap.WithBookingID(ctx, b.ID.String()), "start_tracking_session")

	now := time.Now()
	sess := s.registry.Put(newSession(b, professionalID, now))
	st := sess.SeedPosition(lastPos, now)

	s.l.Info(ctx, "tracking session started",
		"professional_id", professionalID,
		"eta_minutes", st.EtaMinutes,
	)
	return st
}

// RefreshFromPosition reseeds the session from the professional's current
// position, e.g. when the service phase begins.
func (s *Service) RefreshFromPosition(ctx context.Context, b *models.Booking, pos *models.Position) {
	sess, ok := s.ensureSession(b)
	if !ok {
		return
	}
	sess.SeedPosition(pos, time.Now())
}

// UpdatePosition applies one position sample from the assigned professional.
// The sample is persisted onto the professional record first, then applied to
// the session and broadcast as a single ordered location_updated event.
func (s *Service) UpdatePosition(ctx context.Context, msg models.PositionUpdateMessage) (models.PositionAck, error) {
	ctx = wrap.WithAction(
		wrap.WithProfessionalID(wrap.WithBookingID(ctx, msg.BookingID.String()), msg.ProfessionalID.String()),
		"update_position",
	)

	if err := msg.Coordinates.Validate(); err != nil {
		return models.PositionAck{}, wrap.Error(ctx, err)
	}

	b, err := s.bookings.Get(ctx, msg.BookingID)
	if err != nil {
		return models.PositionAck{}, wrap.Error(ctx, err)
	}
	if b.ProfessionalID == nil || *b.ProfessionalID != msg.ProfessionalID {
		return models.PositionAck{}, wrap.Error(ctx, types.ErrNotAllowed)
	}
	if !b.Status.Trackable() {
		return models.PositionAck{}, wrap.Error(ctx, types.ErrInvalidBookingStatus)
	}

	now := time.Now()
	pos := models.Position{
		Point:          msg.Coordinates,
		SpeedKmh:       msg.SpeedKmh,
		HeadingDegrees: msg.HeadingDegrees,
		AccuracyMeters: msg.AccuracyMeters,
		RecordedAt:     msg.Timestamp,
	}
	if pos.RecordedAt.IsZero() {
		pos.RecordedAt = now
	}

	// Persist before applying: a storage timeout rejects the update as a
	// whole so a retry of the same sample stays idempotent.
	if err := s.positions.UpdatePosition(ctx, msg.ProfessionalID, pos); err != nil {
		return models.PositionAck{}, wrap.Error(ctx, fmt.Errorf("%w: persist position: %w", types.ErrDatabaseFailed, err))
	}

	sess, _ := s.ensureSession(b)
	st := sess.ApplyPosition(pos, now, func(st models.TrackingState, subscribers []uuid.UUID) {
		s.caster.Deliver(ctx, subscribers, sess.RequesterID(), models.ChannelEvent{
			EventType: types.EventLocationUpdated,
			Data: models.LocationUpdatedEvent{
				BookingID:   b.ID,
				Coordinates: pos.Point,
				EtaMinutes:  st.EtaMinutes,
				DistanceKm:  st.DistanceKm,
				IsMoving:    st.IsMoving,
				Timestamp:   st.UpdatedAt,
			},
		})
	})

	metrics.PositionUpdatesTotal.Inc()

	return models.PositionAck{
		BookingID:  b.ID,
		EtaMinutes: st.EtaMinutes,
		DistanceKm: st.DistanceKm,
	}, nil
}

// MarkArrived pins the session's ETA to 0 and broadcasts the arrival.
func (s *Service) MarkArrived(ctx context.Context, b *models.Booking, at time.Time) models.TrackingState {
	sess, ok := s.ensureSession(b)
	if !ok {
		return models.TrackingState{BookingID: b.ID}
	}

	return sess.MarkArrived(at, func(st models.TrackingState, subscribers []uuid.UUID) {
		s.caster.Deliver(ctx, subscribers, sess.RequesterID(), models.ChannelEvent{
			EventType: types.EventProfessionalArrived,
			Data: models.ProfessionalArrivedEvent{
				BookingID: b.ID,
				Timestamp: at,
			},
		})
	})
}

// EndSession finalizes and discards the session when the booking reaches a
// terminal state. The state is not persisted beyond the booking record.
func (s *Service) EndSession(ctx context.Context, bookingID uuid.UUID, reason string) {
	ctx = wrap.WithAction(wrap.WithBookingID(ctx, bookingID.String()), "end_tracking_session")

	sess, ok := s.registry.Get(bookingID)
	if !ok {
		return
	}

	now := time.Now()
	sess.End(now, func(st models.TrackingState, subscribers []uuid.UUID) {
		s.caster.Deliver(ctx, subscribers, sess.RequesterID(), models.ChannelEvent{
			EventType: types.EventTrackingEnded,
			Data: models.TrackingEndedEvent{
				BookingID: bookingID,
				Reason:    reason,
				Timestamp: now,
			},
		})
	})
	s.registry.Delete(bookingID)

	s.l.Info(ctx, "tracking session ended", "reason", reason)
}

// BroadcastStatus pushes a status_changed event to the booking's channel.
func (s *Service) BroadcastStatus(ctx context.Context, b *models.Booking, newStatus types.BookingStatus) {
	event := models.ChannelEvent{
		EventType: types.EventStatusChanged,
		Data: models.StatusChangedEvent{
			BookingID: b.ID,
			NewStatus: newStatus,
			Timestamp: time.Now(),
		},
	}

	if sess, ok := s.registry.Get(b.ID); ok {
		sess.Notify(func(st models.TrackingState, subscribers []uuid.UUID) {
			s.caster.Deliver(ctx, subscribers, sess.RequesterID(), event)
		})
		return
	}
	// No session (e.g. the booking never left PENDING): requester only.
	s.caster.Deliver(ctx, nil, b.RequesterID, event)
}

// Snapshot returns the current tracking state to an authorized actor. A
// session that has seen no position yet returns its empty ("no data yet")
// state, not an error.
func (s *Service) Snapshot(ctx context.Context, bookingID uuid.UUID, actor models.Actor) (models.TrackingState, error) {
	ctx = wrap.WithAction(wrap.WithBookingID(ctx, bookingID.String()), "tracking_snapshot")

	sess, err := s.authorizedSession(ctx, bookingID, actor)
	if err != nil {
		return models.TrackingState{}, wrap.Error(ctx, err)
	}
	return sess.Snapshot(), nil
}

// Join subscribes the actor to the booking's tracking channel and returns the
// latest snapshot so a (re)joining client catches up immediately.
func (s *Service) Join(ctx context.Context, bookingID uuid.UUID, actor models.Actor) (models.TrackingState, error) {
	ctx = wrap.WithAction(wrap.WithBookingID(ctx, bookingID.String()), "join_tracking_channel")

	sess, err := s.authorizedSession(ctx, bookingID, actor)
	if err != nil {
		return models.TrackingState{}, wrap.Error(ctx, err)
	}

	st := sess.Subscribe(actor.ID)
	s.l.Debug(ctx, "actor joined tracking channel", "actor_id", actor.ID)
	return st, nil
}

// Leave removes the actor's subscription. Unknown sessions are a no-op.
func (s *Service) Leave(ctx context.Context, bookingID uuid.UUID, actorID uuid.UUID) {
	if sess, ok := s.registry.Get(bookingID); ok {
		sess.Unsubscribe(actorID)
	}
}

// Disconnected clears every subscription of the actor. It never touches
// booking state.
func (s *Service) Disconnected(actorID uuid.UUID) {
	s.registry.DropSubscriber(actorID)
}

// authorizedSession loads the booking, applies the shared observation rule
// (requester, assigned professional, or admin) and resolves its session.
func (s *Service) authorizedSession(ctx context.Context, bookingID uuid.UUID, actor models.Actor) (*Session, error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !canObserve(b, actor) {
		return nil, types.ErrNotAllowed
	}

	sess, ok := s.ensureSession(b)
	if !ok {
		return nil, types.ErrTrackingNotActive
	}
	return sess, nil
}

// ensureSession returns the booking's session, recreating it from the
// booking record when the booking is in a trackable state (covers process
// restarts). Non-trackable bookings get no session.
func (s *Service) ensureSession(b *models.Booking) (*Session, bool) {
	if sess, ok := s.registry.Get(b.ID); ok {
		return sess, true
	}
	if !b.Status.Trackable() || b.ProfessionalID == nil {
		return nil, false
	}
	return s.registry.Put(newSession(b, *b.ProfessionalID, time.Now())), true
}

// canObserve is the single authorization rule for snapshots and channel
// joins.
func canObserve(b *models.Booking, actor models.Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	if actor.ID == b.RequesterID {
		return true
	}
	return b.ProfessionalID != nil && *b.ProfessionalID == actor.ID
}
