package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/fieldhail/dispatch-system/internal/domain/models"
	"github.com/fieldhail/dispatch-system/internal/domain/types"
	"github.com/fieldhail/dispatch-system/pkg/logger"
	wrap "github.com/fieldhail/dispatch-system/pkg/logger/wrapper"
	"github.com/fieldhail/dispatch-system/pkg/rabbit"
)

const (
	ExchangeBookingTopic = "booking_topic"

	QueuePositionUpdates = "position_updates"
	QueueBookingStatus   = "booking_status"

	keyPositionUpdates = "position.update.*"
)

// DispatchBroker publishes committed booking facts to the booking_topic
// exchange and consumes the queue-fed position stream.
type DispatchBroker struct {
	client *rabbit.RabbitMQ
	l      logger.Logger
}

func NewDispatchBroker(client *rabbit.RabbitMQ, l logger.Logger) *DispatchBroker {
	return &DispatchBroker{
		client: client,
		l:      l,
	}
}

// Setup declares the exchange and queues this service owns. Idempotent, so
// every instance runs it at startup.
func (r *DispatchBroker) Setup(ctx context.Context) error {
	const op = "DispatchBroker.Setup"

	if err := r.client.Channel.ExchangeDeclare(
		ExchangeBookingTopic,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return wrap.Error(wrap.WithAction(ctx, "declare_exchange"), fmt.Errorf("%s: declare exchange: %w", op, err))
	}

	for queue, bindingKey := range map[string]string{
		QueuePositionUpdates: keyPositionUpdates,
		QueueBookingStatus:   "booking.status.*",
	} {
		q, err := r.client.Channel.QueueDeclare(
			queue,
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			return wrap.Error(wrap.WithAction(ctx, "declare_queue"), fmt.Errorf("%s: declare queue %s: %w", op, queue, err))
		}
		if err := r.client.Channel.QueueBind(q.Name, bindingKey, ExchangeBookingTopic, false, nil); err != nil {
			return wrap.Error(wrap.WithAction(ctx, "bind_queue"), fmt.Errorf("%s: bind queue %s: %w", op, queue, err))
		}
	}
	return nil
}

func (r *DispatchBroker) publish(ctx context.Context, routingKey string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:   "application/json",
		Body:          body,
		Timestamp:     time.Now(),
		CorrelationId: wrap.GetRequestID(ctx),
	}

	if err := retry(5, 2*time.Second, func() error {
		if err := r.client.EnsureConnection(ctx); err != nil {
			return err
		}
		return r.client.Channel.PublishWithContext(ctx, ExchangeBookingTopic, routingKey, false, false, pub)
	}); err != nil {
		return fmt.Errorf("%w: %w", types.ErrFailedToPublishEvent, err)
	}
	return nil
}

// PublishStatus hands a committed lifecycle transition to the notification
// collaborator.
func (r *DispatchBroker) PublishStatus(ctx context.Context, msg models.BookingStatusMessage) error {
	ctx = wrap.WithAction(ctx, types.ActionRabbitPublish)
	key := fmt.Sprintf("booking.status.%s", msg.BookingID)

	if err := r.publish(ctx, key, msg); err != nil {
		return wrap.Error(ctx, err)
	}
	r.l.Debug(ctx, "published booking status", "key", key, "status", msg.Status)
	return nil
}

// PublishCandidates fans a fresh booking out to its matched professionals.
func (r *DispatchBroker) PublishCandidates(ctx context.Context, msg models.CandidatesFoundMessage) error {
	ctx = wrap.WithAction(ctx, types.ActionRabbitPublish)
	key := fmt.Sprintf("booking.candidates.%s", msg.BookingID)

	if err := r.publish(ctx, key, msg); err != nil {
		return wrap.Error(ctx, err)
	}
	r.l.Debug(ctx, "published candidates", "key", key, "count", len(msg.Candidates))
	return nil
}
