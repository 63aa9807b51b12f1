package matching

import (
	"context"
	"fmt"
	"sort"

	"github.com/fieldhail/dispatch-system/config"
	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/internal/service/geo"
	"github.com/fieldhail/dispatch-system/pkg/logger"
	wrap "github.com/fieldhail/dispatch-system/pkg/logger/wrapper"
)

// Matcher ranks eligible professionals for a pending booking. It is
// read-only: the only downstream effect is whatever the caller does with the
// returned set.
type Matcher struct {
	source CandidateSource
	cfg    config.DispatchConfig
	l      logger.Logger
}

func New(source CandidateSource, cfg config.DispatchConfig, l logger.Logger) *Matcher {
	return &Matcher{
		source: source,
		cfg:    cfg,
		l:      l,
	}
}

// FindCandidates returns up to the configured limit of professionals within
// the configured radius, ascending by distance with the professional id as a
// deterministic tiebreak. Emergency bookings widen the radius and shrink the
// fan-out.
func (m *Matcher) FindCandidates(ctx context.Context, location models.GeoPoint, category string, emergency bool) ([]models.Candidate, error) {
	ctx = wrap.WithAction(ctx, "find_candidates")

	if err := location.Validate(); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	radius := m.cfg.DefaultRadiusKm
	limit := m.cfg.CandidateLimit
	if emergency {
		radius = m.cfg.EmergencyRadiusKm
		limit = m.cfg.EmergencyLimit
	}

	candidates, err := m.source.FindNearest(ctx, location, category, radius, limit)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("candidate search failed: %w", err))
	}

	// The source only prefilters; the authoritative distance and radius cut
	// are the Haversine recomputation here.
	kept := candidates[:0]
	for _, c := range candidates {
		c.DistanceKm = geo.Distance(location, c.Position)
		if c.DistanceKm > radius {
			continue
		}
		kept = append(kept, c)
	}
	candidates = kept

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DistanceKm != candidates[j].DistanceKm {
			return candidates[i].DistanceKm < candidates[j].DistanceKm
		}
		return candidates[i].ProfessionalID.String() < candidates[j].ProfessionalID.String()
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	for i := range candidates {
		candidates[i].EtaMinutes = geo.ETA(candidates[i].DistanceKm, candidates[i].SpeedKmh)
	}

	m.l.Debug(ctx, "candidate search finished",
		"category", category,
		"radius_km", radius,
		"found", len(candidates),
	)

	return candidates, nil
}
