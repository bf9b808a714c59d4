// Package events announces changes to canonical budget data over AMQP and
// lets other processes react to them.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
)

var tracer = otel.Tracer("events")

const publishTimeout = 5 * time.Second

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events to a durable topic exchange. The routing
// key is the event type, e.g. "upload.created". A publish on a closed
// channel redials once before giving up.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     io.Closer
	ch       channel
	exchange string
	redial   func() (io.Closer, channel, error)
	logger   *zap.Logger
}

// connect dials url, opens a channel and declares exchange.
func connect(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}
	return conn, ch, nil
}

// Dial connects to url and declares exchange.
func Dial(url, exchange string, logger *zap.Logger) (*AMQPPublisher, error) {
	redial := func() (io.Closer, channel, error) {
		conn, ch, err := connect(url, exchange)
		if err != nil {
			return nil, nil, err
		}
		return conn, ch, nil
	}

	conn, ch, err := redial()
	if err != nil {
		return nil, err
	}

	logger.Info("amqp publisher ready", zap.String("exchange", exchange))
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange, redial: redial, logger: logger}, nil
}

func newPublisher(ch channel, exchange string, logger *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, exchange: exchange, logger: logger}
}

// Publish sends event as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, event domain.UploadEvent) error {
	ctx, span := tracer.Start(ctx, "AMQP.Publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.type", event.Type),
		attribute.String("kind", string(event.Kind)),
	)

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Body:         body,
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	err = p.publishLocked(ctx, event.Type, msg)
	if errors.Is(err, amqp.ErrClosed) && p.redial != nil {
		if rerr := p.reconnectLocked(); rerr != nil {
			err = errors.Join(err, rerr)
		} else {
			err = p.publishLocked(ctx, event.Type, msg)
		}
	}
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.logger.Debug("published event",
		zap.String("type", event.Type),
		zap.String("kind", string(event.Kind)),
		zap.String("version_id", event.VersionID),
		zap.String("exchange", p.exchange),
	)
	return nil
}

func (p *AMQPPublisher) publishLocked(ctx context.Context, key string, msg amqp.Publishing) error {
	return p.ch.PublishWithContext(ctx,
		p.exchange, // exchange
		key,        // routing key
		false,      // mandatory
		false,      // immediate
		msg,
	)
}

// reconnectLocked replaces a dead connection. The caller holds p.mu.
func (p *AMQPPublisher) reconnectLocked() error {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	conn, ch, err := p.redial()
	if err != nil {
		p.logger.Warn("amqp reconnect failed", zap.String("exchange", p.exchange), zap.Error(err))
		return err
	}
	p.conn, p.ch = conn, ch
	p.logger.Info("amqp publisher reconnected", zap.String("exchange", p.exchange))
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			firstErr = err
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Noop discards events; used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, domain.UploadEvent) error { return nil }
