package tracking

import (
	"context"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
)

/*=================Booking Store======================*/

type BookingGetter interface {
	Get(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
}

/*=================Professional Store=================*/

// PositionStore persists the latest reported position onto the professional
// record so assign-time ETA estimates survive restarts.
type PositionStore interface {
	UpdatePosition(ctx context.Context, professionalID uuid.UUID, pos models.Position) error
}

/*=================Delivery===========================*/

// Sender delivers one message to one connected actor. Implemented by the
// websocket connection hub.
type Sender interface {
	SendTo(actorID uuid.UUID, msg any) error
}
