// Package events publishes committed domain changes to RabbitMQ.
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

	"ridebook/internal/domain"
	"ridebook/internal/service"
)

var _ service.EventPublisher = (*Publisher)(nil)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// session is one broker connection with its channel. closed receives, or is
// closed, once the channel is gone.
type session struct {
	conn   io.Closer
	ch     channel
	closed <-chan *amqp.Error
}

type dialFunc func() (*session, error)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("event publisher closed")

// Publisher sends events to a topic exchange, routed by event type. A channel
// or connection the broker closes is replaced by a fresh dial on the next
// publish.
type Publisher struct {
	mu       sync.Mutex
	conn     io.Closer
	ch       channel
	closed   <-chan *amqp.Error
	dial     dialFunc
	exchange string
	shut     bool
}

// NewPublisher dials url and declares a durable topic exchange.
func NewPublisher(url, exchange string) (*Publisher, error) {
	p := &Publisher{
		exchange: exchange,
		dial:     func() (*session, error) { return dialAMQP(url, exchange) },
	}
	if err := p.redial(); err != nil {
		return nil, err
	}
	return p, nil
}

func dialAMQP(url, exchange string) (*session, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	// A closed connection closes its channels, so one watch covers both.
	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	return &session{conn: conn, ch: ch, closed: closed}, nil
}

// Publish implements service.EventPublisher.
func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         string(event.Type),
		Timestamp:    event.OccurredAt,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shut {
		return ErrPublisherClosed
	}
	if p.ch == nil || p.sessionClosed() {
		if err := p.redial(); err != nil {
			return err
		}
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, msg)
	if errors.Is(err, amqp.ErrClosed) && p.dial != nil {
		if rerr := p.redial(); rerr != nil {
			return rerr
		}
		err = p.ch.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, msg)
	}
	return err
}

func (p *Publisher) sessionClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

// redial drops the current session and opens a new one. Callers hold p.mu
// except during construction.
func (p *Publisher) redial() error {
	if p.dial == nil {
		return amqp.ErrClosed
	}
	p.release()
	s, err := p.dial()
	if err != nil {
		return fmt.Errorf("reconnect rabbitmq: %w", err)
	}
	p.conn, p.ch, p.closed = s.conn, s.ch, s.closed
	return nil
}

func (p *Publisher) release() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	var err error
	if p.conn != nil {
		err = p.conn.Close()
	}
	p.conn, p.ch, p.closed = nil, nil, nil
	return err
}

// Close closes the channel and the connection. Later publishes fail.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shut = true
	return p.release()
}

// publishTimeout bounds a single publish when the caller's context has no deadline.
const publishTimeout = 5 * time.Second

// WithTimeout wraps pub so that each publish gives up after publishTimeout.
func WithTimeout(pub service.EventPublisher) service.EventPublisher {
	return timeoutPublisher{next: pub}
}

type timeoutPublisher struct {
	next service.EventPublisher
}

func (t timeoutPublisher) Publish(ctx context.Context, event domain.Event) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, publishTimeout)
		defer cancel()
	}
	return t.next.Publish(ctx, event)
}
