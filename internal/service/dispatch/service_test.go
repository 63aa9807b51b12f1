package dispatch

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/internal/domain/types"
	"github.com/fieldhail/dispatch-system/pkg/logger"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
)

/* ======================= fakes ======================= */

// memBookings is an in-memory BookingRepo. AssignIfPending holds the store
// mutex for the whole check-and-set, mirroring the conditional UPDATE the
// real store runs.
type memBookings struct {
	mu        sync.Mutex
	bookings  map[uuid.UUID]*models.Booking
	history   []models.Reschedule
	sequences map[string]int
}

func newMemBookings() *memBookings {
	return &memBookings{bookings: make(map[uuid.UUID]*models.Booking)}
}

func (m *memBookings) Create(_ context.Context, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memBookings) Get(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, types.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBookings) AssignIfPending(_ context.Context, bookingID, professionalID uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return false, types.ErrBookingNotFound
	}
	if b.Status != types.StatusPending || b.ProfessionalID != nil {
		return false, nil
	}
	b.Status = types.StatusAccepted
	b.ProfessionalID = &professionalID
	b.AcceptedAt = &at
	return true, nil
}

func (m *memBookings) TransitionStatus(_ context.Context, bookingID uuid.UUID, from, to types.BookingStatus, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return false, types.ErrBookingNotFound
	}
	if b.Status != from {
		return false, nil
	}
	b.Status = to
	switch to {
	case types.StatusInProgress:
		b.StartedAt = &at
	case types.StatusCompleted:
		b.CompletedAt = &at
	}
	return true, nil
}

func (m *memBookings) SetCancelled(_ context.Context, bookingID uuid.UUID, reason string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return false, types.ErrBookingNotFound
	}
	if b.Status != types.StatusPending && b.Status != types.StatusAccepted {
		return false, nil
	}
	b.Status = types.StatusCancelled
	b.CancelledAt = &at
	b.CancellationReason = &reason
	return true, nil
}

func (m *memBookings) UpdateScheduledAt(_ context.Context, bookingID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return types.ErrBookingNotFound
	}
	b.ScheduledAt = at
	return nil
}

func (m *memBookings) AppendReschedule(_ context.Context, r models.Reschedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, r)
	return nil
}

func (m *memBookings) NextSequence(_ context.Context, day time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sequences == nil {
		m.sequences = make(map[string]int)
	}
	key := day.Format("2006-01-02")
	m.sequences[key]++
	return m.sequences[key], nil
}

func (m *memBookings) ListActive(_ context.Context) ([]models.BookingOverview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.BookingOverview
	for _, b := range m.bookings {
		if b.Status.Terminal() {
			continue
		}
		rows = append(rows, models.BookingOverview{
			BookingID:      b.ID,
			Number:         b.Number,
			Status:         b.Status,
			RequesterID:    b.RequesterID,
			ProfessionalID: b.ProfessionalID,
			Location:       b.Location,
			ScheduledAt:    b.ScheduledAt,
		})
	}
	return rows, nil
}

type memProfessionals struct {
	mu            sync.Mutex
	professionals map[uuid.UUID]*models.Professional
}

func newMemProfessionals() *memProfessionals {
	return &memProfessionals{professionals: make(map[uuid.UUID]*models.Professional)}
}

func (m *memProfessionals) Get(_ context.Context, id uuid.UUID) (*models.Professional, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.professionals[id]
	if !ok {
		return nil, types.ErrProfessionalNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProfessionals) SetAssignment(_ context.Context, id uuid.UUID, bookingID *uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.professionals[id]
	if !ok {
		return types.ErrProfessionalNotFound
	}
	p.CurrentBookingID = bookingID
	p.Available = bookingID == nil
	return nil
}

type memEvents struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (m *memEvents) Append(_ context.Context, e models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memEvents) ofType(event types.BookingEvent) []models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditEntry
	for _, e := range m.entries {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fakeMatcher struct {
	candidates []models.Candidate
	err        error
}

func (f *fakeMatcher) FindCandidates(_ context.Context, _ models.GeoPoint, _ string, _ bool) ([]models.Candidate, error) {
	return f.candidates, f.err
}

type fakeTracker struct {
	mu        sync.Mutex
	started   []uuid.UUID
	ended     []string
	broadcast []types.BookingStatus
	arrived   int
}

func (f *fakeTracker) StartSession(_ context.Context, b *models.Booking, _ uuid.UUID, _ *models.Position) models.TrackingState {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, b.ID)
	return models.TrackingState{BookingID: b.ID, IsActive: true}
}

func (f *fakeTracker) RefreshFromPosition(_ context.Context, _ *models.Booking, _ *models.Position) {}

func (f *fakeTracker) MarkArrived(_ context.Context, b *models.Booking, at time.Time) models.TrackingState {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.arrived++
	return models.TrackingState{BookingID: b.ID, IsActive: true, ArrivedAt: &at}
}

func (f *fakeTracker) EndSession(_ context.Context, _ uuid.UUID, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, reason)
}

func (f *fakeTracker) BroadcastStatus(_ context.Context, _ *models.Booking, status types.BookingStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcast = append(f.broadcast, status)
}

type fakeNotify struct {
	mu         sync.Mutex
	statuses   []models.BookingStatusMessage
	candidates chan models.CandidatesFoundMessage
}

func newFakeNotify() *fakeNotify {
	return &fakeNotify{candidates: make(chan models.CandidatesFoundMessage, 4)}
}

func (f *fakeNotify) PublishStatus(_ context.Context, msg models.BookingStatusMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, msg)
	return nil
}

func (f *fakeNotify) PublishCandidates(_ context.Context, msg models.CandidatesFoundMessage) error {
	f.candidates <- msg
	return nil
}

// fakeTx runs the function directly. Transactional atomicity in these tests
// comes from the in-memory stores' own locking.
type fakeTx struct{}

func (fakeTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

/* ======================= fixture ======================= */

type engineFixture struct {
	engine        *Engine
	bookings      *memBookings
	professionals *memProfessionals
	events        *memEvents
	matcher       *fakeMatcher
	tracker       *fakeTracker
	notify        *fakeNotify
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	f := &engineFixture{
		bookings:      newMemBookings(),
		professionals: newMemProfessionals(),
		events:        &memEvents{},
		matcher:       &fakeMatcher{},
		tracker:       &fakeTracker{},
		notify:        newFakeNotify(),
	}
	f.engine = New(
		f.bookings,
		f.professionals,
		f.events,
		f.matcher,
		f.tracker,
		f.notify,
		fakeTx{},
		logger.InitLogger("dispatch-test", logger.LevelError),
	)
	return f
}

func (f *engineFixture) addProfessional(t *testing.T, mutate func(p *models.Professional)) uuid.UUID {
	t.Helper()
	id := newID(t)
	p := &models.Professional{
		ID:              id,
		Name:            "pro-" + id.String()[:8],
		Specializations: []string{"plumbing"},
		Rating:          4.6,
		Verification:    types.VerificationVerified,
		Available:       true,
	}
	if mutate != nil {
		mutate(p)
	}
	f.professionals.professionals[id] = p
	return id
}

func (f *engineFixture) addPendingBooking(t *testing.T) *models.Booking {
	t.Helper()
	b := &models.Booking{
		ID:               newID(t),
		Number:           "BK-20260901-0001",
		Status:           types.StatusPending,
		RequesterID:      newID(t),
		ServiceCategory:  "plumbing",
		Location:         models.GeoPoint{Longitude: 77.5946, Latitude: 12.9716},
		ScheduledAt:      time.Now().Add(time.Hour),
		VerificationCode: "483920",
		CreatedAt:        time.Now(),
	}
	require.NoError(t, f.bookings.Create(context.Background(), b))
	return b
}

func newID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.New()
	require.NoError(t, err)
	return id
}

/* ======================= create ======================= */

func TestCreateBooking_GeneratesNumberAndCode(t *testing.T) {
	f := newEngineFixture(t)
	f.matcher.candidates = []models.Candidate{{ProfessionalID: newID(t), DistanceKm: 2.5}}

	b, err := f.engine.CreateBooking(context.Background(), CreateBookingInput{
		RequesterID:     newID(t),
		ServiceCategory: "plumbing",
		Location:        models.GeoPoint{Longitude: 77.5946, Latitude: 12.9716},
		ScheduledAt:     time.Now().Add(2 * time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, types.StatusPending, b.Status)
	assert.Regexp(t, regexp.MustCompile(`^BK-\d{8}-0001$`), b.Number)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), b.VerificationCode)

	// The async matching pass fans the candidates out.
	select {
	case msg := <-f.notify.candidates:
		assert.Equal(t, b.ID, msg.BookingID)
		assert.Len(t, msg.Candidates, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("candidates were never published")
	}
}

func TestCreateBooking_SequenceIncrementsWithinDay(t *testing.T) {
	f := newEngineFixture(t)

	var numbers []string
	for i := 0; i < 3; i++ {
		b, err := f.engine.CreateBooking(context.Background(), CreateBookingInput{
			RequesterID:     newID(t),
			ServiceCategory: "plumbing",
			Location:        models.GeoPoint{Longitude: 77.5946, Latitude: 12.9716},
			Emergency:       true,
		})
		require.NoError(t, err)
		numbers = append(numbers, b.Number)
	}
	assert.Regexp(t, `-0001$`, numbers[0])
	assert.Regexp(t, `-0002$`, numbers[1])
	assert.Regexp(t, `-0003$`, numbers[2])
}

func TestCreateBooking_ConcurrentCreatesGetDistinctNumbers(t *testing.T) {
	f := newEngineFixture(t)

	const creates = 10
	requesters := make([]uuid.UUID, creates)
	for i := range requesters {
		requesters[i] = newID(t)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]bool)
		errs    []error
	)
	for i := 0; i < creates; i++ {
		wg.Add(1)
		go func(requester uuid.UUID) {
			defer wg.Done()
			b, err := f.engine.CreateBooking(context.Background(), CreateBookingInput{
				RequesterID:     requester,
				ServiceCategory: "plumbing",
				Location:        models.GeoPoint{Longitude: 77.5946, Latitude: 12.9716},
				Emergency:       true,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers[b.Number] = true
		}(requesters[i])
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Len(t, numbers, creates, "every booking claims its own number")
}

func TestCreateBooking_RejectsPastSchedule(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.CreateBooking(context.Background(), CreateBookingInput{
		RequesterID:     newID(t),
		ServiceCategory: "plumbing",
		Location:        models.GeoPoint{Longitude: 77.5946, Latitude: 12.9716},
		ScheduledAt:     time.Now().Add(-time.Hour),
	})
	require.ErrorIs(t, err, types.ErrScheduledInPast)
}

func TestCreateBooking_RejectsAbsentSchedule(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.CreateBooking(context.Background(), CreateBookingInput{
		RequesterID:     newID(t),
		ServiceCategory: "plumbing",
		Location:        models.GeoPoint{Longitude: 77.5946, Latitude: 12.9716},
	})
	require.ErrorIs(t, err, types.ErrScheduledInPast)
}

func TestCreateBooking_EmergencyOverridesSchedule(t *testing.T) {
	f := newEngineFixture(t)

	b, err := f.engine.CreateBooking(context.Background(), CreateBookingInput{
		RequesterID:     newID(t),
		ServiceCategory: "electrical",
		Location:        models.GeoPoint{Longitude: 77.5946, Latitude: 12.9716},
		ScheduledAt:     time.Now().Add(-time.Hour), // ignored for emergencies
		Emergency:       true,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), b.ScheduledAt, 5*time.Second)
}

func TestCreateBooking_RejectsBadCoordinates(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.CreateBooking(context.Background(), CreateBookingInput{
		RequesterID:     newID(t),
		ServiceCategory: "plumbing",
		Location:        models.GeoPoint{Longitude: 181, Latitude: 12.9716},
	})
	require.ErrorIs(t, err, types.ErrInvalidCoordinates)
}

/* ======================= assign ======================= */

func TestAssign_ExactlyOneWinnerUnderContention(t *testing.T) {
	f := newEngineFixture(t)
	b := f.addPendingBooking(t)

	const contenders = 12
	ids := make([]uuid.UUID, contenders)
	for i := range ids {
		ids[i] = f.addProfessional(t, nil)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		losers  int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(professionalID uuid.UUID) {
			defer wg.Done()
			_, err := f.engine.Assign(context.Background(), b.ID, professionalID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			default:
				assert.ErrorIs(t, err, types.ErrBookingTaken)
				losers++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, contenders-1, losers)

	got, err := f.bookings.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusAccepted, got.Status)
	require.NotNil(t, got.ProfessionalID)

	// Exactly one professional carries the assignment.
	assigned := 0
	for _, p := range f.professionals.professionals {
		if p.CurrentBookingID != nil {
			assert.Equal(t, b.ID, *p.CurrentBookingID)
			assert.False(t, p.Available)
			assigned++
		}
	}
	assert.Equal(t, 1, assigned)

	// One tracking session, one accepted broadcast.
	assert.Equal(t, []uuid.UUID{b.ID}, f.tracker.started)
	assert.Equal(t, []types.BookingStatus{types.StatusAccepted}, f.tracker.broadcast)
}

func TestAssign_SpecializationMismatch(t *testing.T) {
	f := newEngineFixture(t)
	b := f.addPendingBooking(t)
	id := f.addProfessional(t, func(p *models.Professional) {
		p.Specializations = []string{"electrical"}
	})

	_, err := f.engine.Assign(context.Background(), b.ID, id)
	require.ErrorIs(t, err, types.ErrSpecializationMismatch)

	got, _ := f.bookings.Get(context.Background(), b.ID)
	assert.Equal(t, types.StatusPending, got.Status)
}

func TestAssign_UnverifiedProfessionalRejected(t *testing.T) {
	f := newEngineFixture(t)
	b := f.addPendingBooking(t)
	id := f.addProfessional(t, func(p *models.Professional) {
		p.Verification = types.VerificationPending
	})

	_, err := f.engine.Assign(context.Background(), b.ID, id)
	require.ErrorIs(t, err, types.ErrProfessionalUnverified)
}

func TestAssign_BusyProfessionalRejected(t *testing.T) {
	f := newEngineFixture(t)
	b := f.addPendingBooking(t)
	other := newID(t)
	id := f.addProfessional(t, func(p *models.Professional) {
		p.Available = false
		p.CurrentBookingID = &other
	})

	_, err := f.engine.Assign(context.Background(), b.ID, id)
	require.ErrorIs(t, err, types.ErrProfessionalUnavailable)
}

func TestAssign_CancelledBookingIsNotTaken(t *testing.T) {
	f := newEngineFixture(t)
	b := f.addPendingBooking(t)
	id := f.addProfessional(t, nil)

	_, err := f.engine.Cancel(context.Background(), b.ID, models.Actor{ID: b.RequesterID, Role: types.RoleRequester}, "changed my mind")
	require.NoError(t, err)

	// A cancelled booking reports a state conflict, not ALREADY_TAKEN.
	_, err = f.engine.Assign(context.Background(), b.ID, id)
	require.ErrorIs(t, err, types.ErrInvalidBookingStatus)
}

/* ======================= start / arrive / complete ======================= */

// runToAccepted creates a booking and assigns a professional to it.
func runToAccepted(t *testing.T, f *engineFixture) (*models.Booking, uuid.UUID) {
	t.Helper()
	b := f.addPendingBooking(t)
	proID := f.addProfessional(t, nil)
	got, err := f.engine.Assign(context.Background(), b.ID, proID)
	require.NoError(t, err)
	return got, proID
}

func TestStart_OnlyAssignedProfessional(t *testing.T) {
	f := newEngineFixture(t)
	b, proID := runToAccepted(t, f)

	_, err := f.engine.Start(context.Background(), b.ID, newID(t))
	require.ErrorIs(t, err, types.ErrNotAllowed)

	got, err := f.engine.Start(context.Background(), b.ID, proID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInProgress, got.Status)

	// Starting twice is a state conflict.
	_, err = f.engine.Start(context.Background(), b.ID, proID)
	require.ErrorIs(t, err, types.ErrInvalidBookingStatus)
}

func TestArrive_RecordsEventWithoutTransition(t *testing.T) {
	f := newEngineFixture(t)
	b, proID := runToAccepted(t, f)

	st, err := f.engine.Arrive(context.Background(), b.ID, proID)
	require.NoError(t, err)
	require.NotNil(t, st.ArrivedAt)

	got, _ := f.bookings.Get(context.Background(), b.ID)
	assert.Equal(t, types.StatusAccepted, got.Status)
	assert.Len(t, f.events.ofType(types.EventProfessionalArrived), 1)
}

func TestComplete_WrongCodeLeavesBookingUntouched(t *testing.T) {
	f := newEngineFixture(t)
	b, proID := runToAccepted(t, f)
	_, err := f.engine.Start(context.Background(), b.ID, proID)
	require.NoError(t, err)

	_, err = f.engine.Complete(context.Background(), b.ID, proID, "000000")
	require.ErrorIs(t, err, types.ErrBadVerificationCode)

	got, _ := f.bookings.Get(context.Background(), b.ID)
	assert.Equal(t, types.StatusInProgress, got.Status)

	p, _ := f.professionals.Get(context.Background(), proID)
	assert.NotNil(t, p.CurrentBookingID)
}

func TestComplete_FreesProfessionalAndEndsTracking(t *testing.T) {
	f := newEngineFixture(t)
	b, proID := runToAccepted(t, f)
	_, err := f.engine.Start(context.Background(), b.ID, proID)
	require.NoError(t, err)

	got, err := f.engine.Complete(context.Background(), b.ID, proID, "483920")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	p, _ := f.professionals.Get(context.Background(), proID)
	assert.True(t, p.Available)
	assert.Nil(t, p.CurrentBookingID)

	assert.Equal(t, []string{"completed"}, f.tracker.ended)
}

func TestComplete_RequiresInProgress(t *testing.T) {
	f := newEngineFixture(t)
	b, proID := runToAccepted(t, f)

	_, err := f.engine.Complete(context.Background(), b.ID, proID, "483920")
	require.ErrorIs(t, err, types.ErrInvalidBookingStatus)
}

/* ======================= cancel / reschedule ======================= */

func TestCancel_CompletedBookingRejected(t *testing.T) {
	f := newEngineFixture(t)
	b, proID := runToAccepted(t, f)
	_, err := f.engine.Start(context.Background(), b.ID, proID)
	require.NoError(t, err)
	_, err = f.engine.Complete(context.Background(), b.ID, proID, "483920")
	require.NoError(t, err)

	_, err = f.engine.Cancel(context.Background(), b.ID, models.Actor{ID: b.RequesterID, Role: types.RoleRequester}, "too late")
	require.ErrorIs(t, err, types.ErrInvalidBookingStatus)
}

func TestCancel_StrangerRejected(t *testing.T) {
	f := newEngineFixture(t)
	b := f.addPendingBooking(t)

	_, err := f.engine.Cancel(context.Background(), b.ID, models.Actor{ID: newID(t), Role: types.RoleRequester}, "not mine")
	require.ErrorIs(t, err, types.ErrNotAllowed)
}

func TestCancel_AcceptedFreesProfessional(t *testing.T) {
	f := newEngineFixture(t)
	b, proID := runToAccepted(t, f)

	got, err := f.engine.Cancel(context.Background(), b.ID, models.Actor{ID: b.RequesterID, Role: types.RoleRequester}, "found someone else")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCancelled, got.Status)
	require.NotNil(t, got.CancellationReason)

	p, _ := f.professionals.Get(context.Background(), proID)
	assert.True(t, p.Available)
	assert.Equal(t, []string{"cancelled"}, f.tracker.ended)
}

func TestCancel_AssignedProfessionalMayCancel(t *testing.T) {
	f := newEngineFixture(t)
	b, proID := runToAccepted(t, f)

	_, err := f.engine.Cancel(context.Background(), b.ID, models.Actor{ID: proID, Role: types.RoleProfessional}, "vehicle breakdown")
	require.NoError(t, err)
}

func TestReschedule_RequesterOnlyAndHistoryKept(t *testing.T) {
	f := newEngineFixture(t)
	b := f.addPendingBooking(t)
	newTime := time.Now().Add(48 * time.Hour)

	_, err := f.engine.Reschedule(context.Background(), b.ID, models.Actor{ID: newID(t), Role: types.RoleProfessional}, newTime, "")
	require.ErrorIs(t, err, types.ErrNotAllowed)

	got, err := f.engine.Reschedule(context.Background(), b.ID, models.Actor{ID: b.RequesterID, Role: types.RoleRequester}, newTime, "travel plans")
	require.NoError(t, err)
	assert.WithinDuration(t, newTime, got.ScheduledAt, time.Second)

	require.Len(t, f.bookings.history, 1)
	assert.WithinDuration(t, b.ScheduledAt, f.bookings.history[0].OldTime, time.Second)
	assert.Len(t, f.events.ofType(types.EventRescheduled), 1)
}

func TestReschedule_PastTimeRejected(t *testing.T) {
	f := newEngineFixture(t)
	b := f.addPendingBooking(t)

	_, err := f.engine.Reschedule(context.Background(), b.ID, models.Actor{ID: b.RequesterID, Role: types.RoleRequester}, time.Now().Add(-time.Minute), "")
	require.ErrorIs(t, err, types.ErrScheduledInPast)
}

/* ======================= reads ======================= */

func TestListActive_AdminOnly(t *testing.T) {
	f := newEngineFixture(t)
	f.addPendingBooking(t)
	f.addPendingBooking(t)

	_, err := f.engine.ListActive(context.Background(), models.Actor{ID: newID(t), Role: types.RoleRequester})
	require.ErrorIs(t, err, types.ErrNotAllowed)

	rows, err := f.engine.ListActive(context.Background(), models.Actor{ID: newID(t), Role: types.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestGetBooking_VisibilityRule(t *testing.T) {
	f := newEngineFixture(t)
	b, proID := runToAccepted(t, f)

	for _, actor := range []models.Actor{
		{ID: b.RequesterID, Role: types.RoleRequester},
		{ID: proID, Role: types.RoleProfessional},
		{ID: newID(t), Role: types.RoleAdmin},
	} {
		_, err := f.engine.GetBooking(context.Background(), b.ID, actor)
		require.NoError(t, err)
	}

	_, err := f.engine.GetBooking(context.Background(), b.ID, models.Actor{ID: newID(t), Role: types.RoleRequester})
	require.ErrorIs(t, err, types.ErrNotAllowed)
}
