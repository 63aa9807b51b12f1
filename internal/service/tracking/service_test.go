package tracking

import (
	"context"
	"errors"
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

type fakeBookings struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*models.Booking
}

func (f *fakeBookings) Get(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, types.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

type fakePositions struct {
	mu   sync.Mutex
	last map[uuid.UUID]models.Position
	err  error
}

func (f *fakePositions) UpdatePosition(_ context.Context, professionalID uuid.UUID, pos models.Position) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		f.last = make(map[uuid.UUID]models.Position)
	}
	f.last[professionalID] = pos
	return nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent map[uuid.UUID][]models.ChannelEvent
}

func (f *fakeSender) SendTo(actorID uuid.UUID, msg any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = make(map[uuid.UUID][]models.ChannelEvent)
	}
	f.sent[actorID] = append(f.sent[actorID], msg.(models.ChannelEvent))
	return nil
}

func (f *fakeSender) eventsFor(actorID uuid.UUID) []models.ChannelEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ChannelEvent(nil), f.sent[actorID]...)
}

/* ======================= fixture ======================= */

type fixture struct {
	svc       *Service
	bookings  *fakeBookings
	positions *fakePositions
	sender    *fakeSender

	booking      *models.Booking
	requester    uuid.UUID
	professional uuid.UUID
}

func newFixture(t *testing.T, status types.BookingStatus) *fixture {
	t.Helper()

	requesterID := mustUUID(t)
	professionalID := mustUUID(t)
	bookingID := mustUUID(t)

	b := &models.Booking{
		ID:             bookingID,
		RequesterID:    requesterID,
		ProfessionalID: &professionalID,
		Status:         status,
		Location:       models.GeoPoint{Longitude: 77.5946, Latitude: 12.9716},
	}

	bookings := &fakeBookings{bookings: map[uuid.UUID]*models.Booking{bookingID: b}}
	positions := &fakePositions{}
	sender := &fakeSender{}
	l := logger.InitLogger("tracking-test", logger.LevelError)

	svc := New(NewRegistry(), bookings, positions, NewBroadcaster(sender, l), l)

	return &fixture{
		svc:          svc,
		bookings:     bookings,
		positions:    positions,
		sender:       sender,
		booking:      b,
		requester:    requesterID,
		professional: professionalID,
	}
}

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.New()
	require.NoError(t, err)
	return id
}

func (f *fixture) positionMsg(lon, lat, speed float64) models.PositionUpdateMessage {
	return models.PositionUpdateMessage{
		BookingID:      f.booking.ID,
		ProfessionalID: f.professional,
		Coordinates:    models.GeoPoint{Longitude: lon, Latitude: lat},
		SpeedKmh:       speed,
		Timestamp:      time.Now(),
	}
}

/* ======================= tests ======================= */

func TestUpdatePosition_AckCarriesEtaAndDistance(t *testing.T) {
	f := newFixture(t, types.StatusAccepted)
	ctx := context.Background()

	ack, err := f.svc.UpdatePosition(ctx, f.positionMsg(77.6046, 12.9816, 40))
	require.NoError(t, err)

	assert.Equal(t, f.booking.ID, ack.BookingID)
	assert.Greater(t, ack.DistanceKm, 0.0)
	assert.GreaterOrEqual(t, ack.EtaMinutes, 1)
}

func TestUpdatePosition_PersistsOntoProfessional(t *testing.T) {
	f := newFixture(t, types.StatusAccepted)

	_, err := f.svc.UpdatePosition(context.Background(), f.positionMsg(77.6046, 12.9816, 40))
	require.NoError(t, err)

	pos, ok := f.positions.last[f.professional]
	require.True(t, ok)
	assert.Equal(t, 77.6046, pos.Point.Longitude)
	assert.Equal(t, 12.9816, pos.Point.Latitude)
}

func TestUpdatePosition_RejectsMalformedCoordinates(t *testing.T) {
	f := newFixture(t, types.StatusAccepted)

	_, err := f.svc.UpdatePosition(context.Background(), f.positionMsg(200, 12.9816, 40))
	require.ErrorIs(t, err, types.ErrInvalidCoordinates)

	// Nothing persisted, nothing broadcast.
	assert.Empty(t, f.positions.last)
	assert.Empty(t, f.sender.eventsFor(f.requester))
}

func TestUpdatePosition_RejectsUnassignedProfessional(t *testing.T) {
	f := newFixture(t, types.StatusAccepted)

	msg := f.positionMsg(77.6046, 12.9816, 40)
	msg.ProfessionalID = mustUUID(t)

	_, err := f.svc.UpdatePosition(context.Background(), msg)
	require.ErrorIs(t, err, types.ErrNotAllowed)
	assert.Empty(t, f.positions.last)
}

func TestUpdatePosition_RejectsNonTrackableStatus(t *testing.T) {
	for _, status := range []types.BookingStatus{
		types.StatusPending,
		types.StatusCompleted,
		types.StatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t, status)
			if status == types.StatusPending {
				f.booking.ProfessionalID = nil
			}

			_, err := f.svc.UpdatePosition(context.Background(), f.positionMsg(77.6046, 12.9816, 40))
			require.Error(t, err)
			assert.Empty(t, f.positions.last)
		})
	}
}

func TestUpdatePosition_StorageFailureRejectsWholeUpdate(t *testing.T) {
	f := newFixture(t, types.StatusAccepted)
	f.positions.err = errors.New("connection reset")

	_, err := f.svc.UpdatePosition(context.Background(), f.positionMsg(77.6046, 12.9816, 40))
	require.ErrorIs(t, err, types.ErrDatabaseFailed)

	// The failed sample never reaches the channel.
	assert.Empty(t, f.sender.eventsFor(f.requester))
}

func TestJoin_LateJoinerGetsLatestSnapshotNotReplay(t *testing.T) {
	f := newFixture(t, types.StatusAccepted)
	ctx := context.Background()

	// Three samples land before anyone joins.
	samples := [][2]float64{{77.6300, 13.0100}, {77.6100, 12.9900}, {77.6046, 12.9816}}
	var lastAck models.PositionAck
	for _, s := range samples {
		ack, err := f.svc.UpdatePosition(ctx, f.positionMsg(s[0], s[1], 40))
		require.NoError(t, err)
		lastAck = ack
	}

	st, err := f.svc.Join(ctx, f.booking.ID, models.Actor{ID: f.requester, Role: types.RoleRequester})
	require.NoError(t, err)

	// The join returns the single latest state; intermediate samples are gone.
	assert.Equal(t, lastAck.DistanceKm, st.DistanceKm)
	assert.Equal(t, lastAck.EtaMinutes, st.EtaMinutes)
	require.NotNil(t, st.LastPosition)
	assert.Equal(t, 77.6046, st.LastPosition.Point.Longitude)
}

func TestJoin_SubscriberReceivesSubsequentUpdatesOnce(t *testing.T) {
	f := newFixture(t, types.StatusAccepted)
	ctx := context.Background()

	actor := models.Actor{ID: f.requester, Role: types.RoleRequester}
	_, err := f.svc.Join(ctx, f.booking.ID, actor)
	require.NoError(t, err)
	// Re-join is idempotent: still one subscription.
	_, err = f.svc.Join(ctx, f.booking.ID, actor)
	require.NoError(t, err)

	_, err = f.svc.UpdatePosition(ctx, f.positionMsg(77.6046, 12.9816, 40))
	require.NoError(t, err)

	events := f.sender.eventsFor(f.requester)
	require.Len(t, events, 1)
	assert.Equal(t, types.EventLocationUpdated, events[0].EventType)
}

func TestJoin_RejectsStranger(t *testing.T) {
	f := newFixture(t, types.StatusAccepted)

	_, err := f.svc.Join(context.Background(), f.booking.ID, models.Actor{ID: mustUUID(t), Role: types.RoleRequester})
	require.ErrorIs(t, err, types.ErrNotAllowed)
}

func TestJoin_AdminAllowed(t *testing.T) {
	f := newFixture(t, types.StatusAccepted)

	_, err := f.svc.Join(context.Background(), f.booking.ID, models.Actor{ID: mustUUID(t), Role: types.RoleAdmin})
	require.NoError(t, err)
}

func TestSnapshot_NoDataYetIsValid(t *testing.T) {
	f := newFixture(t, types.StatusAccepted)

	st, err := f.svc.Snapshot(context.Background(), f.booking.ID, models.Actor{ID: f.requester, Role: types.RoleRequester})
	require.NoError(t, err)

	assert.False(t, st.HasData())
	assert.True(t, st.IsActive)
	assert.Zero(t, st.EtaMinutes)
}

func TestMarkArrived_PinsEtaToZero(t *testing.T) {
	f := newFixture(t, types.StatusAccepted)
	ctx := context.Background()

	_, err := f.svc.UpdatePosition(ctx, f.positionMsg(77.6300, 13.0100, 40))
	require.NoError(t, err)

	st := f.svc.MarkArrived(ctx, f.booking, time.Now())
	assert.Equal(t, 0, st.EtaMinutes)
	require.NotNil(t, st.ArrivedAt)

	// Later samples keep ETA pinned even when still far from the target.
	ack, err := f.svc.UpdatePosition(ctx, f.positionMsg(77.6300, 13.0100, 40))
	require.NoError(t, err)
	assert.Equal(t, 0, ack.EtaMinutes)
	assert.Greater(t, ack.DistanceKm, 0.0)
}

func TestEndSession_NotifiesAndDiscards(t *testing.T) {
	f := newFixture(t, types.StatusInProgress)
	ctx := context.Background()

	actor := models.Actor{ID: f.requester, Role: types.RoleRequester}
	_, err := f.svc.Join(ctx, f.booking.ID, actor)
	require.NoError(t, err)

	f.svc.EndSession(ctx, f.booking.ID, "completed")

	events := f.sender.eventsFor(f.requester)
	require.NotEmpty(t, events)
	assert.Equal(t, types.EventTrackingEnded, events[len(events)-1].EventType)

	// A completed booking has no session to rejoin.
	f.booking.Status = types.StatusCompleted
	_, err = f.svc.Snapshot(ctx, f.booking.ID, actor)
	require.ErrorIs(t, err, types.ErrTrackingNotActive)
}

func TestBroadcastStatus_FallsBackToRequesterWithoutSession(t *testing.T) {
	f := newFixture(t, types.StatusPending)
	f.booking.ProfessionalID = nil

	f.svc.BroadcastStatus(context.Background(), f.booking, types.StatusCancelled)

	events := f.sender.eventsFor(f.requester)
	require.Len(t, events, 1)
	assert.Equal(t, types.EventStatusChanged, events[0].EventType)
}

func TestUpdatePosition_OrderedDeliveryUnderConcurrency(t *testing.T) {
	f := newFixture(t, types.StatusAccepted)
	ctx := context.Background()

	_, err := f.svc.Join(ctx, f.booking.ID, models.Actor{ID: f.requester, Role: types.RoleRequester})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.UpdatePosition(ctx, f.positionMsg(77.6046, 12.9816, 40))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Every update produced exactly one event for the single subscriber.
	assert.Len(t, f.sender.eventsFor(f.requester), 20)
}
