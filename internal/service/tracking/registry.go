package tracking

import (
	"sync"

	"github.com/fieldhail/dispatch-system/pkg/metrics"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
)

// Registry maps booking ids to their live tracking sessions. It is owned by
// the tracking service instance: created at startup, torn down at shutdown.
// The registry lock only guards the map; per-booking state is guarded by each
// session's own lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]*Session),
	}
}

func (r *Registry) Get(bookingID uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[bookingID]
	return sess, ok
}

// Put registers a session, keeping an existing one if a racing caller got
// there first.
func (r *Registry) Put(sess *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[sess.bookingID]; ok {
		return existing
	}
	r.sessions[sess.bookingID] = sess
	metrics.TrackingSessionsGauge.Set(float64(len(r.sessions)))
	return sess
}

func (r *Registry) Delete(bookingID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, bookingID)
	metrics.TrackingSessionsGauge.Set(float64(len(r.sessions)))
}

// DropSubscriber removes the actor from every session's channel; called when
// a connection goes away. Disconnection never alters booking state.
func (r *Registry) DropSubscriber(actorID uuid.UUID) {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}
	r.mu.RUnlock()

	for _, sess := range sessions {
		sess.Unsubscribe(actorID)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
