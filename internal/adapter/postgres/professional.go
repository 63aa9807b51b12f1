package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/internal/domain/types"
	"github.com/fieldhail/dispatch-system/pkg/metrics"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
)

type ProfessionalRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewProfessionalRepo(db *pgxpool.Pool, timeout time.Duration) *ProfessionalRepo {
	return &ProfessionalRepo{db: db, timeout: timeout}
}

func (r *ProfessionalRepo) Get(ctx context.Context, professionalID uuid.UUID) (*models.Professional, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	q := TxorDB(ctx, r.db)

	query := `
        SELECT
            id, name, specializations, rating, verification_status,
            available, current_booking_id,
            last_longitude, last_latitude, last_speed_kmh, last_heading_degrees,
            last_accuracy_meters, last_position_at,
            created_at, updated_at
        FROM professionals
        WHERE id = $1;`

	var (
		p          models.Professional
		lon, lat   *float64
		speed      *float64
		heading    *float64
		accuracy   *float64
		recordedAt *time.Time
	)
	err := q.QueryRow(ctx, query, professionalID).Scan(
		&p.ID, &p.Name, &p.Specializations, &p.Rating, &p.Verification,
		&p.Available, &p.CurrentBookingID,
		&lon, &lat, &speed, &heading, &accuracy, &recordedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	r.observe("professional_get", err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrProfessionalNotFound
		}
		return nil, fmt.Errorf("professional repo: Get: %w: %w", types.ErrDatabaseFailed, err)
	}

	if lon != nil && lat != nil {
		pos := models.Position{Point: models.GeoPoint{Longitude: *lon, Latitude: *lat}}
		if speed != nil {
			pos.SpeedKmh = *speed
		}
		if heading != nil {
			pos.HeadingDegrees = *heading
		}
		if accuracy != nil {
			pos.AccuracyMeters = *accuracy
		}
		if recordedAt != nil {
			pos.RecordedAt = *recordedAt
		}
		p.LastPosition = &pos
	}
	return &p, nil
}

func (r *ProfessionalRepo) SetAssignment(ctx context.Context, professionalID uuid.UUID, bookingID *uuid.UUID) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	q := TxorDB(ctx, r.db)

	query := `
        UPDATE professionals
        SET current_booking_id = $2, available = ($2 IS NULL), updated_at = now()
        WHERE id = $1;`

	tag, err := q.Exec(ctx, query, professionalID, bookingID)
	r.observe("professional_set_assignment", err)
	if err != nil {
		return fmt.Errorf("professional repo: SetAssignment: %w: %w", types.ErrDatabaseFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrProfessionalNotFound
	}
	return nil
}

func (r *ProfessionalRepo) UpdatePosition(ctx context.Context, professionalID uuid.UUID, pos models.Position) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	q := TxorDB(ctx, r.db)

	query := `
        UPDATE professionals
        SET last_longitude = $2, last_latitude = $3, last_speed_kmh = $4,
            last_heading_degrees = $5, last_accuracy_meters = $6,
            last_position_at = $7, updated_at = now()
        WHERE id = $1;`

	tag, err := q.Exec(ctx, query,
		professionalID,
		pos.Point.Longitude, pos.Point.Latitude, pos.SpeedKmh,
		pos.HeadingDegrees, pos.AccuracyMeters, pos.RecordedAt,
	)
	r.observe("professional_update_position", err)
	if err != nil {
		return fmt.Errorf("professional repo: UpdatePosition: %w: %w", types.ErrDatabaseFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrProfessionalNotFound
	}
	return nil
}

// FindNearest selects the eligible pool in SQL: verified, available
// professionals of the category with a known position, prefiltered by a
// spherical distance with a small slack. The authoritative distance is the
// caller's Haversine recomputation, so exact radius filtering, ranking,
// truncation and ETA fill stay with the caller.
func (r *ProfessionalRepo) FindNearest(ctx context.Context, location models.GeoPoint, category string, radiusKm float64, limit int) ([]models.Candidate, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	q := TxorDB(ctx, r.db)

	query := `
        SELECT id, name, rating, last_longitude, last_latitude, last_speed_kmh
        FROM (
            SELECT
                id, name, rating, last_longitude, last_latitude,
                COALESCE(last_speed_kmh, 0) AS last_speed_kmh,
                (6371 * acos(LEAST(1.0, GREATEST(-1.0,
                    cos(radians($1)) * cos(radians(last_latitude)) *
                    cos(radians(last_longitude) - radians($2)) +
                    sin(radians($1)) * sin(radians(last_latitude))
                )))) AS distance_km
            FROM professionals
            WHERE available = TRUE
              AND current_booking_id IS NULL
              AND verification_status = $3
              AND $4 = ANY(specializations)
              AND last_latitude IS NOT NULL
              AND last_longitude IS NOT NULL
        ) AS nearby
        WHERE distance_km <= $5 + 0.05
        ORDER BY distance_km ASC, id ASC
        LIMIT $6;`

	rows, err := q.Query(ctx, query,
		location.Latitude, location.Longitude,
		types.VerificationVerified, category, radiusKm, limit,
	)
	r.observe("professional_find_nearest", err)
	if err != nil {
		return nil, fmt.Errorf("professional repo: FindNearest: %w: %w", types.ErrDatabaseFailed, err)
	}
	defer rows.Close()

	var out []models.Candidate
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ProfessionalID, &c.Name, &c.Rating,
			&c.Position.Longitude, &c.Position.Latitude, &c.SpeedKmh,
		); err != nil {
			return nil, fmt.Errorf("professional repo: FindNearest scan: %w: %w", types.ErrDatabaseFailed, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("professional repo: FindNearest rows: %w: %w", types.ErrDatabaseFailed, err)
	}
	return out, nil
}

func (r *ProfessionalRepo) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *ProfessionalRepo) observe(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.DatabaseQueriesTotal.WithLabelValues(operation, status).Inc()
}
