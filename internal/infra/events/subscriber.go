package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
)

const reconnectDelay = 5 * time.Second

// Listen receives every event published on exchange through a private,
// auto-deleted queue and passes it to handle. It reconnects after broker
// failures and returns when ctx is done.
func Listen(ctx context.Context, url, exchange string, handle func(domain.UploadEvent), logger *zap.Logger) {
	for {
		err := consume(ctx, url, exchange, handle, logger)
		if ctx.Err() != nil {
			logger.Info("event subscription stopped", zap.String("exchange", exchange))
			return
		}
		logger.Warn("event subscription interrupted, reconnecting",
			zap.String("exchange", exchange),
			zap.Duration("delay", reconnectDelay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func consume(ctx context.Context, url, exchange string, handle func(domain.UploadEvent), logger *zap.Logger) error {
	conn, ch, err := connect(url, exchange)
	if err != nil {
		return err
	}
	defer conn.Close()

	q, err := ch.QueueDeclare(
		"",    // name, server generated
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "#", exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		true,   // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	logger.Info("subscribed to events", zap.String("exchange", exchange), zap.String("queue", q.Name))
	return dispatch(ctx, msgs, handle, logger)
}

// dispatch decodes deliveries until ctx is done or msgs is closed.
// Malformed messages are logged and skipped.
func dispatch(ctx context.Context, msgs <-chan amqp.Delivery, handle func(domain.UploadEvent), logger *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			var event domain.UploadEvent
			if err := json.Unmarshal(d.Body, &event); err != nil {
				logger.Warn("discarding malformed event", zap.String("routing_key", d.RoutingKey), zap.Error(err))
				continue
			}
			logger.Debug("received event", zap.String("type", event.Type), zap.String("kind", string(event.Kind)))
			handle(event)
		}
	}
}
