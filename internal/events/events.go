// Package events publishes purchase changes to an AMQP exchange for
// downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/m3rciful/accbot/core/logger"
)

// Kind tells what happened to a purchase.
type Kind string

const (
	KindSaved     Kind = "purchase.saved"
	KindCorrected Kind = "purchase.corrected"
)

// Event is the JSON body of a published message.
type Event struct {
	Kind       Kind            `json:"kind"`
	PurchaseID int64           `json:"id"`
	CategoryID int64           `json:"category_id"`
	Category   string          `json:"category"`
	User       string          `json:"user"`
	Amount     decimal.Decimal `json:"amount"`
	Comment    *string         `json:"comment,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Publisher sends events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards events. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes persistent JSON messages to a direct exchange.
type AMQPPublisher struct {
	mu         sync.Mutex
	conn       *amqp.Connection
	ch         channel
	exchange   string
	routingKey string
	timeout    time.Duration
}

// Dial connects to url and declares the durable direct exchange.
func Dial(url, exchange, routingKey string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	p := newPublisher(ch, exchange, routingKey)
	p.conn = conn
	logger.Info(context.Background(), "events", "amqp.connected",
		slog.String("status", "ok"),
		slog.String("exchange", exchange),
		slog.String("routing_key", routingKey),
	)
	return p, nil
}

func newPublisher(ch channel, exchange, routingKey string) *AMQPPublisher {
	return &AMQPPublisher{
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
		timeout:    5 * time.Second,
	}
}

// Publish sends ev. The event kind is used as message type.
func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         string(ev.Kind),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, msg)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Kind, err)
	}
	logger.Debug(ctx, "events", "event.published",
		slog.String("status", "ok"),
		slog.String("kind", string(ev.Kind)),
		slog.Int64("purchase_id", ev.PurchaseID),
		slog.String("message_id", msg.MessageId),
	)
	return nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	if p.ch != nil {
		firstErr = p.ch.Close()
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
