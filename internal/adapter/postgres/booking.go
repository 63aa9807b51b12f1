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

type BookingRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewBookingRepo(db *pgxpool.Pool, timeout time.Duration) *BookingRepo {
	return &BookingRepo{db: db, timeout: timeout}
}

const bookingColumns = `
	id, number, status, requester_id, professional_id, service_category,
	longitude, latitude, scheduled_at, emergency, notes,
	verification_code, total_amount, cancellation_reason,
	created_at, accepted_at, started_at, completed_at, cancelled_at`

func (r *BookingRepo) Create(ctx context.Context, b *models.Booking) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	q := TxorDB(ctx, r.db)

	query := `
        INSERT INTO bookings (
            id, number, status, requester_id, service_category,
            longitude, latitude, scheduled_at, emergency, notes,
            verification_code, total_amount, created_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);`

	_, err := q.Exec(ctx, query,
		b.ID, b.Number, b.Status, b.RequesterID, b.ServiceCategory,
		b.Location.Longitude, b.Location.Latitude, b.ScheduledAt, b.Emergency, b.Notes,
		b.VerificationCode, b.TotalAmount, b.CreatedAt,
	)
	r.observe("booking_create", err)
	if err != nil {
		return fmt.Errorf("booking repo: Create: %w: %w", types.ErrDatabaseFailed, err)
	}
	return nil
}

func (r *BookingRepo) Get(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	q := TxorDB(ctx, r.db)

	query := `SELECT` + bookingColumns + ` FROM bookings WHERE id = $1;`

	var b models.Booking
	err := q.QueryRow(ctx, query, bookingID).Scan(
		&b.ID, &b.Number, &b.Status, &b.RequesterID, &b.ProfessionalID, &b.ServiceCategory,
		&b.Location.Longitude, &b.Location.Latitude, &b.ScheduledAt, &b.Emergency, &b.Notes,
		&b.VerificationCode, &b.TotalAmount, &b.CancellationReason,
		&b.CreatedAt, &b.AcceptedAt, &b.StartedAt, &b.CompletedAt, &b.CancelledAt,
	)
	r.observe("booking_get", err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrBookingNotFound
		}
		return nil, fmt.Errorf("booking repo: Get: %w: %w", types.ErrDatabaseFailed, err)
	}
	return &b, nil
}

// AssignIfPending is the single arbiter of the assign race: the WHERE clause
// only matches a still-unclaimed PENDING booking, so exactly one concurrent
// caller can see RowsAffected() == 1.
func (r *BookingRepo) AssignIfPending(ctx context.Context, bookingID, professionalID uuid.UUID, at time.Time) (bool, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	q := TxorDB(ctx, r.db)

	query := `
        UPDATE bookings
        SET status = $2, professional_id = $3, accepted_at = $4, updated_at = now()
        WHERE id = $1 AND status = $5 AND professional_id IS NULL;`

	tag, err := q.Exec(ctx, query, bookingID, types.StatusAccepted, professionalID, at, types.StatusPending)
	r.observe("booking_assign", err)
	if err != nil {
		return false, fmt.Errorf("booking repo: AssignIfPending: %w: %w", types.ErrDatabaseFailed, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *BookingRepo) TransitionStatus(ctx context.Context, bookingID uuid.UUID, from, to types.BookingStatus, at time.Time) (bool, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	q := TxorDB(ctx, r.db)

	var tsColumn string
	switch to {
	case types.StatusAccepted:
		tsColumn = "accepted_at"
	case types.StatusInProgress:
		tsColumn = "started_at"
	case types.StatusCompleted:
		tsColumn = "completed_at"
	default:
		return false, fmt.Errorf("booking repo: TransitionStatus: unsupported target status %q", to)
	}

	query := fmt.Sprintf(`
        UPDATE bookings
        SET status = $2, %s = $3, updated_at = now()
        WHERE id = $1 AND status = $4;`, tsColumn)

	tag, err := q.Exec(ctx, query, bookingID, to, at, from)
	r.observe("booking_transition", err)
	if err != nil {
		return false, fmt.Errorf("booking repo: TransitionStatus: %w: %w", types.ErrDatabaseFailed, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *BookingRepo) SetCancelled(ctx context.Context, bookingID uuid.UUID, reason string, at time.Time) (bool, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	q := TxorDB(ctx, r.db)

	query := `
        UPDATE bookings
        SET status = $2, cancellation_reason = $3, cancelled_at = $4, updated_at = now()
        WHERE id = $1 AND status IN ($5, $6);`

	tag, err := q.Exec(ctx, query, bookingID, types.StatusCancelled, reason, at, types.StatusPending, types.StatusAccepted)
	r.observe("booking_cancel", err)
	if err != nil {
		return false, fmt.Errorf("booking repo: SetCancelled: %w: %w", types.ErrDatabaseFailed, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *BookingRepo) UpdateScheduledAt(ctx context.Context, bookingID uuid.UUID, at time.Time) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	q := TxorDB(ctx, r.db)

	tag, err := q.Exec(ctx, `UPDATE bookings SET scheduled_at = $2, updated_at = now() WHERE id = $1;`, bookingID, at)
	r.observe("booking_reschedule", err)
	if err != nil {
		return fmt.Errorf("booking repo: UpdateScheduledAt: %w: %w", types.ErrDatabaseFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepo) AppendReschedule(ctx context.Context, re models.Reschedule) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	q := TxorDB(ctx, r.db)

	query := `
        INSERT INTO booking_reschedules (booking_id, actor_id, old_time, new_time, reason, created_at)
        VALUES ($1, $2, $3, $4, $5, $6);`

	_, err := q.Exec(ctx, query, re.BookingID, re.ActorID, re.OldTime, re.NewTime, re.Reason, re.CreatedAt)
	r.observe("booking_reschedule_history", err)
	if err != nil {
		return fmt.Errorf("booking repo: AppendReschedule: %w: %w", types.ErrDatabaseFailed, err)
	}
	return nil
}

// NextSequence claims the next booking-number sequence for the given day.
// The upsert is atomic, so two concurrent creates can never claim the same
// number.
func (r *BookingRepo) NextSequence(ctx context.Context, day time.Time) (int, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	q := TxorDB(ctx, r.db)

	query := `
        INSERT INTO booking_number_seq (day, last_seq)
        VALUES ($1, 1)
        ON CONFLICT (day) DO UPDATE SET last_seq = booking_number_seq.last_seq + 1
        RETURNING last_seq;`

	var seq int
	err := q.QueryRow(ctx, query, day.Format("2006-01-02")).Scan(&seq)
	r.observe("booking_next_sequence", err)
	if err != nil {
		return 0, fmt.Errorf("booking repo: NextSequence: %w: %w", types.ErrDatabaseFailed, err)
	}
	return seq, nil
}

// ListActive joins each non-terminal booking to its professional's last
// reported position for the admin overview.
func (r *BookingRepo) ListActive(ctx context.Context) ([]models.BookingOverview, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	q := TxorDB(ctx, r.db)

	query := `
        SELECT
            b.id, b.number, b.status, b.requester_id, b.professional_id,
            b.longitude, b.latitude, b.scheduled_at,
            p.last_longitude, p.last_latitude, p.last_speed_kmh, p.last_position_at
        FROM bookings b
        LEFT JOIN professionals p ON b.professional_id = p.id
        WHERE b.status NOT IN ($1, $2)
        ORDER BY b.created_at DESC;`

	rows, err := q.Query(ctx, query, types.StatusCompleted, types.StatusCancelled)
	r.observe("booking_list_active", err)
	if err != nil {
		return nil, fmt.Errorf("booking repo: ListActive: %w: %w", types.ErrDatabaseFailed, err)
	}
	defer rows.Close()

	var out []models.BookingOverview
	for rows.Next() {
		var (
			o          models.BookingOverview
			lon, lat   *float64
			speed      *float64
			recordedAt *time.Time
		)
		if err := rows.Scan(
			&o.BookingID, &o.Number, &o.Status, &o.RequesterID, &o.ProfessionalID,
			&o.Location.Longitude, &o.Location.Latitude, &o.ScheduledAt,
			&lon, &lat, &speed, &recordedAt,
		); err != nil {
			return nil, fmt.Errorf("booking repo: ListActive scan: %w: %w", types.ErrDatabaseFailed, err)
		}
		if lon != nil && lat != nil {
			pos := models.Position{
				Point: models.GeoPoint{Longitude: *lon, Latitude: *lat},
			}
			if speed != nil {
				pos.SpeedKmh = *speed
			}
			if recordedAt != nil {
				pos.RecordedAt = *recordedAt
			}
			o.LastPosition = &pos
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking repo: ListActive rows: %w: %w", types.ErrDatabaseFailed, err)
	}
	return out, nil
}

func (r *BookingRepo) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *BookingRepo) observe(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.DatabaseQueriesTotal.WithLabelValues(operation, status).Inc()
}
