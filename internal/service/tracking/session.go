package tracking

import (
	"sync"
	"time"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/internal/service/geo"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
)

// Session is the mutable tracking state of one in-flight booking plus its
// subscriber set. All state access goes through the mutex; emit callbacks run
// under it so events for one booking can never be observed out of order.
type Session struct {
	mu sync.Mutex

	bookingID      uuid.UUID
	requesterID    uuid.UUID
	professionalID uuid.UUID
	target         models.GeoPoint

	state       models.TrackingState
	subscribers map[uuid.UUID]struct{}
}

func newSession(b *models.Booking, professionalID uuid.UUID, now time.Time) *Session {
	return &Session{
		bookingID:      b.ID,
		requesterID:    b.RequesterID,
		professionalID: professionalID,
		target:         b.Location,
		state: models.TrackingState{
			BookingID:      b.ID,
			ProfessionalID: professionalID,
			IsActive:       true,
			StartedAt:      now,
			UpdatedAt:      now,
		},
		subscribers: make(map[uuid.UUID]struct{}),
	}
}

// ApplyPosition recomputes distance and ETA against the booking target,
// stores the sample and hands the fresh state to emit while still holding
// the session lock.
func (s *Session) ApplyPosition(pos models.Position, now time.Time, emit func(st models.TrackingState, subscribers []uuid.UUID)) models.TrackingState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.LastPosition = &pos
	s.state.DistanceKm = geo.Distance(pos.Point, s.target)
	s.state.IsMoving = geo.IsMoving(pos.SpeedKmh)
	s.state.UpdatedAt = now

	if s.state.ArrivedAt != nil {
		// ETA stays pinned at 0 once the professional reported arrival.
		s.state.EtaMinutes = 0
	} else {
		s.state.EtaMinutes = geo.ETA(s.state.DistanceKm, pos.SpeedKmh)
	}

	if emit != nil {
		emit(s.state, s.subscriberIDs())
	}
	return s.state
}

// SeedPosition sets the professional's last known position without emitting,
// used when a session starts or restarts from persisted data.
func (s *Session) SeedPosition(pos *models.Position, now time.Time) models.TrackingState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pos != nil {
		s.state.LastPosition = pos
		s.state.DistanceKm = geo.Distance(pos.Point, s.target)
		s.state.EtaMinutes = geo.ETA(s.state.DistanceKm, pos.SpeedKmh)
		s.state.IsMoving = false
		s.state.UpdatedAt = now
	}
	return s.state
}

// MarkArrived records the arrival timestamp and forces ETA to 0. Calling it
// again simply overwrites the timestamp.
func (s *Session) MarkArrived(at time.Time, emit func(st models.TrackingState, subscribers []uuid.UUID)) models.TrackingState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.ArrivedAt = &at
	s.state.EtaMinutes = 0
	s.state.UpdatedAt = at

	if emit != nil {
		emit(s.state, s.subscriberIDs())
	}
	return s.state
}

// End deactivates the session and notifies the remaining subscribers.
func (s *Session) End(at time.Time, emit func(st models.TrackingState, subscribers []uuid.UUID)) models.TrackingState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.IsActive = false
	s.state.EndedAt = &at
	s.state.UpdatedAt = at

	if emit != nil {
		emit(s.state, s.subscriberIDs())
	}
	return s.state
}

// Snapshot returns the latest state. A session with no recorded position
// reports the "no data yet" zero values, which is a valid answer.
func (s *Session) Snapshot() models.TrackingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Notify hands the current state and subscriber list to emit under the lock,
// keeping arbitrary events ordered with respect to position updates.
func (s *Session) Notify(emit func(st models.TrackingState, subscribers []uuid.UUID)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	emit(s.state, s.subscriberIDs())
}

// Subscribe adds the actor to the channel. At most one subscription per
// (actor, booking): re-joining is idempotent. Returns the latest state so
// joiners catch up immediately instead of waiting for the next update.
func (s *Session) Subscribe(actorID uuid.UUID) models.TrackingState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribers[actorID] = struct{}{}
	return s.state
}

// Unsubscribe removes the actor from the channel.
func (s *Session) Unsubscribe(actorID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, actorID)
}

func (s *Session) RequesterID() uuid.UUID {
	return s.requesterID
}

func (s *Session) ProfessionalID() uuid.UUID {
	return s.professionalID
}

// subscriberIDs must be called with the lock held.
func (s *Session) subscriberIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	return ids
}
