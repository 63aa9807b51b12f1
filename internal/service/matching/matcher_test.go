package matching

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldhail/dispatch-system/config"
	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/internal/domain/types"
	"github.com/fieldhail/dispatch-system/pkg/logger"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
)

type fakeSource struct {
	candidates []models.Candidate
	err        error

	// captured arguments of the last call
	radiusKm float64
	limit    int
	category string
}

func (f *fakeSource) FindNearest(_ context.Context, _ models.GeoPoint, category string, radiusKm float64, limit int) ([]models.Candidate, error) {
	f.category = category
	f.radiusKm = radiusKm
	f.limit = limit
	return f.candidates, f.err
}

func testConfig() config.DispatchConfig {
	return config.DispatchConfig{
		DefaultRadiusKm:   25,
		EmergencyRadiusKm: 50,
		CandidateLimit:    10,
		EmergencyLimit:    5,
	}
}

func newMatcher(source *fakeSource) *Matcher {
	return New(source, testConfig(), logger.InitLogger("matching-test", logger.LevelError))
}

var testLocation = models.GeoPoint{Longitude: 77.5946, Latitude: 12.9716}

// Kilometres per degree of latitude on the 6371 km sphere.
const kmPerDegreeLat = 2 * math.Pi * 6371 / 360

// candidateAt places a candidate due north of testLocation so its Haversine
// distance comes out to distanceKm.
func candidateAt(t *testing.T, distanceKm, speedKmh float64) models.Candidate {
	t.Helper()
	id, err := uuid.New()
	require.NoError(t, err)
	return models.Candidate{
		ProfessionalID: id,
		SpeedKmh:       speedKmh,
		Position: models.GeoPoint{
			Longitude: testLocation.Longitude,
			Latitude:  testLocation.Latitude + distanceKm/kmPerDegreeLat,
		},
	}
}

func TestFindCandidates_UsesDefaultPolicy(t *testing.T) {
	source := &fakeSource{}
	m := newMatcher(source)

	_, err := m.FindCandidates(context.Background(), testLocation, "plumbing", false)
	require.NoError(t, err)

	assert.Equal(t, "plumbing", source.category)
	assert.Equal(t, 25.0, source.radiusKm)
	assert.Equal(t, 10, source.limit)
}

func TestFindCandidates_EmergencyWidensRadiusShrinksFanout(t *testing.T) {
	source := &fakeSource{}
	m := newMatcher(source)

	_, err := m.FindCandidates(context.Background(), testLocation, "plumbing", true)
	require.NoError(t, err)

	assert.Equal(t, 50.0, source.radiusKm)
	assert.Equal(t, 5, source.limit)
}

func TestFindCandidates_SortedByDistanceWithStableTiebreak(t *testing.T) {
	a := candidateAt(t, 3.2, 0)
	b := candidateAt(t, 1.1, 0)
	c := candidateAt(t, 3.2, 0)
	source := &fakeSource{candidates: []models.Candidate{a, c, b}}
	m := newMatcher(source)

	got, err := m.FindCandidates(context.Background(), testLocation, "plumbing", false)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, b.ProfessionalID, got[0].ProfessionalID)
	// Equal distances break on the professional id, so repeated runs agree.
	first, second := got[1].ProfessionalID.String(), got[2].ProfessionalID.String()
	assert.Less(t, first, second)
}

func TestFindCandidates_TruncatesToLimit(t *testing.T) {
	var candidates []models.Candidate
	for i := 0; i < 8; i++ {
		candidates = append(candidates, candidateAt(t, float64(i), 0))
	}
	source := &fakeSource{candidates: candidates}
	m := newMatcher(source)

	got, err := m.FindCandidates(context.Background(), testLocation, "plumbing", true)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	// The nearest five survive the cut.
	assert.Equal(t, 4.0, got[4].DistanceKm)
}

func TestFindCandidates_RecomputesDistanceAndCutsRadius(t *testing.T) {
	near := candidateAt(t, 24.9, 0)
	// The source prefilter runs with slack, so a candidate just past the
	// radius can still come back; the exact Haversine cut drops it.
	far := candidateAt(t, 25.04, 0)
	source := &fakeSource{candidates: []models.Candidate{far, near}}
	m := newMatcher(source)

	got, err := m.FindCandidates(context.Background(), testLocation, "plumbing", false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, near.ProfessionalID, got[0].ProfessionalID)
	assert.InDelta(t, 24.9, got[0].DistanceKm, 0.01)
}

func TestFindCandidates_FillsEta(t *testing.T) {
	source := &fakeSource{candidates: []models.Candidate{
		candidateAt(t, 10, 40), // moving: 10km at 40km/h = 15min
		candidateAt(t, 12, 0),  // unknown speed falls back to 30km/h = 24min
	}}
	m := newMatcher(source)

	got, err := m.FindCandidates(context.Background(), testLocation, "plumbing", false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 15, got[0].EtaMinutes)
	assert.Equal(t, 24, got[1].EtaMinutes)
}

func TestFindCandidates_RejectsBadLocation(t *testing.T) {
	m := newMatcher(&fakeSource{})

	_, err := m.FindCandidates(context.Background(), models.GeoPoint{Longitude: 77.5946, Latitude: 95}, "plumbing", false)
	require.ErrorIs(t, err, types.ErrInvalidCoordinates)
}

func TestFindCandidates_SourceFailurePropagates(t *testing.T) {
	source := &fakeSource{err: errors.New("index offline")}
	m := newMatcher(source)

	_, err := m.FindCandidates(context.Background(), testLocation, "plumbing", false)
	require.Error(t, err)
}
