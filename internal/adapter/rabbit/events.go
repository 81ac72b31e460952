package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
	"github.com/navatransportes/nava-fleet/pkg/logger"
	wrap "github.com/navatransportes/nava-fleet/pkg/logger/wrapper"
	"github.com/navatransportes/nava-fleet/pkg/metrics"
	"github.com/navatransportes/nava-fleet/pkg/rabbit"
)

const (
	EventsExchange = "nava_events"
	QueueAdminFeed = "admin_feed"

	// BindAll receives every trip and payment event.
	BindAll = "#"
)

// EventBroker publishes domain events to the topic exchange and consumes them for the admin feed.
type EventBroker struct {
	client   *rabbit.RabbitMQ
	exchange string
	service  string

	l logger.Logger
}

func NewEventBroker(client *rabbit.RabbitMQ, service string, log logger.Logger) *EventBroker {
	return &EventBroker{
		client:   client,
		exchange: EventsExchange,
		service:  service,
		l:        log,
	}
}

func (b *EventBroker) declareExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(b.exchange, "topic", true, false, false, false, nil)
}

// Publish sends the event with routing key "<type>.<driverId>".
func (b *EventBroker) Publish(ctx context.Context, event models.Event) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_event")

	if err := b.client.EnsureConnection(ctx); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%w: %w", types.ErrFailedToPublishEvent, err))
	}

	body, err := json.Marshal(event)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal event: %w", err))
	}

	key := event.Type.RoutingKey(event.DriverID.String())
	requestID := wrap.FromContext(ctx).RequestID

	err = retry(ctx, 5, time.Second, func() error {
		ch := b.client.Channel()
		if ch == nil {
			if err := b.client.EnsureConnection(ctx); err != nil {
				return err
			}
			ch = b.client.Channel()
		}
		if err := b.declareExchange(ch); err != nil {
			return fmt.Errorf("declare exchange failed: %w", err)
		}
		return ch.PublishWithContext(
			ctx,
			b.exchange, // exchange
			key,        // routing key
			false,      // mandatory
			false,      // immediate
			amqp.Publishing{
				ContentType:   "application/json",
				DeliveryMode:  amqp.Persistent,
				CorrelationId: requestID,
				MessageId:     event.EntityID.String(),
				Type:          event.Type.String(),
				Timestamp:     event.Timestamp,
				Body:          body,
			},
		)
	})
	metrics.RecordRabbitMQPublish(b.service, event.Type.String(), err)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%w: %w", types.ErrFailedToPublishEvent, err))
	}

	b.l.Debug(ctx, "event published", "routing_key", key)
	return nil
}

// EventHandler processes one consumed event.
type EventHandler func(ctx context.Context, event models.Event) error

// ConsumeAdminFeed binds the admin feed queue to every event and calls fn for each delivery until ctx is done.
// The consumer survives broker restarts.
func (b *EventBroker) ConsumeAdminFeed(ctx context.Context, fn EventHandler) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_consume_admin_feed")

	for {
		if ctx.Err() != nil {
			b.l.Debug(ctx, "admin feed consumer stopped by context")
			return nil
		}

		if err := b.client.EnsureConnection(ctx); err != nil {
			b.l.Error(ctx, "ensure connection failed", err)
			pause(ctx, 2*time.Second)
			continue
		}

		msgs, err := b.subscribe(ctx)
		if err != nil {
			b.l.Error(ctx, "subscribe failed", err)
			pause(ctx, 2*time.Second)
			continue
		}

		b.l.Info(ctx, "start consuming events", "queue", QueueAdminFeed)

	consumeLoop:
		for {
			select {
			case <-ctx.Done():
				b.l.Info(ctx, "admin feed consumer shutting down")
				return nil

			case msg, ok := <-msgs:
				if !ok {
					b.l.Warn(ctx, "message channel closed, reconnecting")
					pause(ctx, 2*time.Second)
					break consumeLoop
				}
				b.handleDelivery(ctx, fn, msg)
			}
		}
	}
}

func (b *EventBroker) subscribe(ctx context.Context) (<-chan amqp.Delivery, error) {
	ch := b.client.Channel()
	if ch == nil {
		return nil, rabbit.ErrClosed
	}

	if err := b.declareExchange(ch); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("declare exchange failed: %w", err))
	}

	q, err := ch.QueueDeclare(QueueAdminFeed, true, false, false, false, nil)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("declare queue failed: %w", err))
	}

	if err := ch.QueueBind(q.Name, BindAll, b.exchange, false, nil); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("bind queue failed: %w", err))
	}

	if err := ch.Qos(32, 0, false); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("set qos failed: %w", err))
	}

	return ch.Consume(q.Name, "", false, false, false, false, nil)
}

// acknowledger is the subset of amqp.Delivery used to settle a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (b *EventBroker) handleDelivery(ctx context.Context, fn EventHandler, d amqp.Delivery) {
	err := b.dispatch(ctx, fn, d.Body, d.CorrelationId, d)
	metrics.RecordRabbitMQConsume(b.service, QueueAdminFeed, err)
}

func (b *EventBroker) dispatch(ctx context.Context, fn EventHandler, body []byte, correlationID string, ack acknowledger) error {
	var event models.Event
	if err := json.Unmarshal(body, &event); err != nil {
		b.l.Error(ctx, "failed to unmarshal event", err)
		_ = ack.Nack(false, false)
		return err
	}

	ctx = wrap.WithRequestID(wrap.WithAction(ctx, types.ActionEventConsumed), correlationID)

	if err := fn(ctx, event); err != nil {
		b.l.Error(wrap.ErrorCtx(ctx, err), "failed to handle event", err, "type", event.Type.String())
		_ = ack.Nack(false, isRecoverableError(err))
		return err
	}

	if err := ack.Ack(false); err != nil {
		b.l.Warn(ctx, "ack failed", "error", err.Error())
	}
	return nil
}

// NopPublisher drops events, used when the broker is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.Event) error { return nil }
