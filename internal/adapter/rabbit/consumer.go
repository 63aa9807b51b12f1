package rabbit

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/internal/domain/types"
	wrap "github.com/fieldhail/dispatch-system/pkg/logger/wrapper"
)

type PositionHandlerFunc func(ctx context.Context, msg models.PositionUpdateMessage) error

// ConsumePositions feeds queue-delivered position samples into the handler.
// It reconnects on broker loss and only requeues samples that failed on a
// transient error; a rejected sample (bad payload, state conflict) is
// dropped so the stream keeps moving.
func (r *DispatchBroker) ConsumePositions(ctx context.Context, fn PositionHandlerFunc) error {
	const op = "DispatchBroker.ConsumePositions"
	ctx = wrap.WithAction(ctx, types.ActionRabbitConsume)

	for {
		if ctx.Err() != nil {
			r.l.Debug(ctx, "position consumer stopped by context")
			return nil
		}

		if err := r.client.EnsureConnection(ctx); err != nil {
			r.l.Error(ctx, "ensure connection failed", err, "op", op)
			time.Sleep(2 * time.Second)
			continue
		}

		msgs, err := r.client.Channel.Consume(QueuePositionUpdates, "", false, false, false, false, nil)
		if err != nil {
			r.l.Error(ctx, "consume failed", err, "op", op)
			time.Sleep(2 * time.Second)
			continue
		}

		r.l.Info(ctx, "start consuming position updates", "queue", QueuePositionUpdates)

	consumeLoop:
		for {
			select {
			case <-ctx.Done():
				r.l.Info(ctx, "position consumer shutting down", "op", op)
				return nil

			case msg, ok := <-msgs:
				if !ok {
					r.l.Warn(ctx, "message channel closed, reconnecting", "op", op)
					time.Sleep(2 * time.Second)
					break consumeLoop
				}
				r.handlePosition(ctx, fn, msg)
			}
		}
	}
}

func (r *DispatchBroker) handlePosition(ctx context.Context, fn PositionHandlerFunc, msg amqp.Delivery) {
	var update models.PositionUpdateMessage
	if err := json.Unmarshal(msg.Body, &update); err != nil {
		r.l.Error(ctx, "decode position update failed", err)
		_ = msg.Reject(false)
		return
	}

	ctxx := wrap.WithRequestID(wrap.WithBookingID(ctx, update.BookingID.String()), msg.CorrelationId)

	if err := fn(ctxx, update); err != nil {
		if isRecoverableError(err) {
			r.l.Warn(ctxx, "position update failed, requeueing", "err", err.Error())
			_ = msg.Nack(false, true)
			return
		}
		// Authorization and state conflicts are final for this sample.
		r.l.Debug(ctxx, "position update rejected", "err", err.Error())
		_ = msg.Reject(false)
		return
	}

	if err := msg.Ack(false); err != nil {
		r.l.Warn(ctxx, "ack failed", "err", err.Error())
	}
}
