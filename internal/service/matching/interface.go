package matching

import (
	"context"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
)

// CandidateSource is the geospatial index over professional positions:
// nearest-K available, verified professionals serving the category within
// radiusKm, already annotated with great-circle distance. The production
// implementation is the professional repository's nearest query.
type CandidateSource interface {
	FindNearest(ctx context.Context, location models.GeoPoint, category string, radiusKm float64, limit int) ([]models.Candidate, error)
}
