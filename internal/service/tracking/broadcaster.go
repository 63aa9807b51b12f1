package tracking

import (
	"context"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/pkg/logger"
	wrap "github.com/fieldhail/dispatch-system/pkg/logger/wrapper"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
)

// Broadcaster fans a channel event out to a booking's subscribers and to the
// requester's personal channel. Delivery failures are logged and swallowed:
// a dead subscriber must never affect a committed state change.
type Broadcaster struct {
	sender Sender
	l      logger.Logger
}

func NewBroadcaster(sender Sender, l logger.Logger) *Broadcaster {
	return &Broadcaster{
		sender: sender,
		l:      l,
	}
}

// Deliver sends event to every subscriber, then to the requester directly if
// they are not among them. The direct path covers requesters who never joined
// the channel (or whose join was lost with a dropped connection).
func (b *Broadcaster) Deliver(ctx context.Context, subscribers []uuid.UUID, requesterID uuid.UUID, event models.ChannelEvent) {
	ctx = wrap.WithAction(ctx, "broadcast_channel_event")

	requesterCovered := false
	for _, actorID := range subscribers {
		if actorID == requesterID {
			requesterCovered = true
		}
		if err := b.sender.SendTo(actorID, event); err != nil {
			b.l.Debug(ctx, "failed to deliver event to subscriber",
				"event_type", event.EventType,
				"subscriber_id", actorID,
				"err", err.Error(),
			)
		}
	}

	if !requesterCovered {
		if err := b.sender.SendTo(requesterID, event); err != nil {
			b.l.Debug(ctx, "failed to deliver event to requester",
				"event_type", event.EventType,
				"requester_id", requesterID,
				"err", err.Error(),
			)
		}
	}
}
