package models

import (
	"time"

	"github.com/fieldhail/dispatch-system/internal/domain/types"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
)

// AuditEntry is one row of a booking's append-only event trail.
type AuditEntry struct {
	BookingID uuid.UUID          `json:"booking_id"`
	Event     types.BookingEvent `json:"event"`
	ActorID   *uuid.UUID         `json:"actor_id,omitempty"`
	Data      map[string]any     `json:"data,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}
