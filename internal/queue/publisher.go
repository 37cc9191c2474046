package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends an event to the events exchange under routingKey.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// AMQPPublisher publishes JSON events to a durable topic exchange.  The
// channel is reopened on the next publish after a failure, so a broker
// restart does not require a service restart.
type AMQPPublisher struct {
	url      string
	exchange string
	log      *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

var _ Publisher = (*AMQPPublisher)(nil)

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(url, exchange string, log *zap.Logger) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url, exchange: exchange, log: log}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect must be called with mu held (or before p is shared).
func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // kind
		true,       // durable
		false,      // autoDelete
		false,      // internal
		false,      // noWait
		nil,        // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal %s: %w", routingKey, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil || p.ch.IsClosed() {
		p.closeLocked()
		if err := p.connect(); err != nil {
			return err
		}
	}
	err = p.ch.PublishWithContext(ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		p.closeLocked()
		return fmt.Errorf("rabbitmq: publish %s: %w", routingKey, err)
	}
	p.log.Debug("event published", zap.String("routing_key", routingKey), zap.Int("bytes", len(body)))
	return nil
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
}

func (p *AMQPPublisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// NopPublisher drops every event.  It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
