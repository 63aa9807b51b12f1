package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/internal/domain/types"
	"github.com/fieldhail/dispatch-system/pkg/metrics"
	"github.com/fieldhail/dispatch-system/pkg/postgres"
)

// BookingEventRepo is the append-only audit trail of booking lifecycle
// events.
type BookingEventRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewBookingEventRepo(db *pgxpool.Pool, timeout time.Duration) *BookingEventRepo {
	return &BookingEventRepo{db: db, timeout: timeout}
}

func (r *BookingEventRepo) Append(ctx context.Context, e models.AuditEntry) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	q := TxorDB(ctx, r.db)

	query := `
        INSERT INTO booking_events (booking_id, event_type, actor_id, event_data, created_at)
        VALUES ($1, $2, $3, $4, $5);`

	_, err := q.Exec(ctx, query, e.BookingID, e.Event, e.ActorID, e.Data, e.CreatedAt)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.DatabaseQueriesTotal.WithLabelValues("booking_event_append", status).Inc()

	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return types.ErrBookingNotFound
		}
		return fmt.Errorf("booking event repo: Append: %w: %w", types.ErrDatabaseFailed, err)
	}
	return nil
}
