package dispatch

import (
	"context"
	"time"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/internal/domain/types"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
)

/*=================Booking Store======================*/

type BookingRepo interface {
	Create(ctx context.Context, b *models.Booking) error
	Get(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)

	// AssignIfPending atomically claims a PENDING, unassigned booking for the
	// professional. It reports false, without error, when the booking was no
	// longer claimable.
	AssignIfPending(ctx context.Context, bookingID, professionalID uuid.UUID, at time.Time) (bool, error)

	// TransitionStatus moves the booking from exactly `from` to `to`. A
	// booking found in any other status reports false.
	TransitionStatus(ctx context.Context, bookingID uuid.UUID, from, to types.BookingStatus, at time.Time) (bool, error)

	SetCancelled(ctx context.Context, bookingID uuid.UUID, reason string, at time.Time) (bool, error)
	UpdateScheduledAt(ctx context.Context, bookingID uuid.UUID, at time.Time) error
	AppendReschedule(ctx context.Context, r models.Reschedule) error

	// NextSequence atomically claims the next booking-number sequence for
	// the given calendar day.
	NextSequence(ctx context.Context, day time.Time) (int, error)

	ListActive(ctx context.Context) ([]models.BookingOverview, error)
}

/*=================Professional Store=================*/

type ProfessionalRepo interface {
	Get(ctx context.Context, professionalID uuid.UUID) (*models.Professional, error)

	// SetAssignment links or clears the professional's current booking and
	// flips availability accordingly.
	SetAssignment(ctx context.Context, professionalID uuid.UUID, bookingID *uuid.UUID) error
}

/*=================Audit Trail========================*/

type EventRepo interface {
	Append(ctx context.Context, e models.AuditEntry) error
}

/*=================Collaborators======================*/

// CandidateFinder ranks eligible professionals for a booking location.
type CandidateFinder interface {
	FindCandidates(ctx context.Context, location models.GeoPoint, category string, emergency bool) ([]models.Candidate, error)
}

// Tracker is the live tracking side of the system. Every method is
// post-commit: failures there never unwind a booking transition.
type Tracker interface {
	StartSession(ctx context.Context, b *models.Booking, professionalID uuid.UUID, lastPos *models.Position) models.TrackingState
	RefreshFromPosition(ctx context.Context, b *models.Booking, pos *models.Position)
	MarkArrived(ctx context.Context, b *models.Booking, at time.Time) models.TrackingState
	EndSession(ctx context.Context, bookingID uuid.UUID, reason string)
	BroadcastStatus(ctx context.Context, b *models.Booking, newStatus types.BookingStatus)
}

// NotifyPublisher hands committed lifecycle facts to the notification
// collaborator. Publish failures are logged and swallowed.
type NotifyPublisher interface {
	PublishStatus(ctx context.Context, msg models.BookingStatusMessage) error
	PublishCandidates(ctx context.Context, msg models.CandidatesFoundMessage) error
}
