package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/wod-leaderboard/internal/logging"
)

// Publisher publishes activity events.
type Publisher interface {
	Publish(ctx context.Context, ev ActivityEvent) error
	Close() error
}

// NopPublisher drops every event. Used when the broker is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ActivityEvent) error { return nil }
func (NopPublisher) Close() error                                 { return nil }

// ErrBrokerUnavailable is returned while the publisher waits out the
// backoff window after a failed dial.
var ErrBrokerUnavailable = errors.New("rabbitmq: broker unavailable")

const (
	dialTimeout    = 2 * time.Second
	redialCooldown = 30 * time.Second
)

// AMQPPublisher publishes events to a durable topic exchange, using the
// event type as routing key. The connection is opened lazily and reopened
// after a failure. After a failed dial no new dial is attempted for
// redialCooldown; events published in that window fail fast with
// ErrBrokerUnavailable instead of each waiting on the dial timeout.
type AMQPPublisher struct {
	url      string
	exchange string
	log      *logging.Logger
	now      func() time.Time

	mu        sync.Mutex
	conn      *amqp.Connection
	ch        *amqp.Channel
	nextDial  time.Time
	dialCount int
}

// NewAMQPPublisher returns a publisher for url. No connection is made
// until the first Publish.
func NewAMQPPublisher(url, exchange string, log *logging.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, exchange: exchange, log: log, now: time.Now}
}

// Publish marshals ev and sends it as a persistent message. Errors are
// logged and returned so the caller can choose to ignore them.
func (p *AMQPPublisher) Publish(ctx context.Context, ev ActivityEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if errors.Is(err, ErrBrokerUnavailable) {
		return err
	}
	if err != nil {
		p.log.Warn("rabbitmq: connect failed", "err", err, "event", ev.Type, "retry_in", redialCooldown)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(ev.Type),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, p.exchange, string(ev.Type), false, false, pub); err != nil {
		p.log.Warn("rabbitmq: publish failed", "err", err, "event", ev.Type)
		p.reset()
		return err
	}
	p.log.Debug("rabbitmq: published", "event", ev.Type, "workout_id", ev.WorkoutID)
	return nil
}

// channel returns an open channel, dialing if needed. Callers hold p.mu.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	if p.now().Before(p.nextDial) {
		return nil, ErrBrokerUnavailable
	}
	p.dialCount++
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		p.nextDial = p.now().Add(redialCooldown)
		return nil, fmt.Errorf("dial: %w", err)
	}
	p.nextDial = time.Time{}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := declareExchange(ch, p.exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

// declareExchange is idempotent. Durable so bindings survive broker restarts.
func declareExchange(ch *amqp.Channel, name string) error {
	if err := ch.ExchangeDeclare(
		name,    // name
		"topic", // kind
		true,    // durable
		false,   // autoDelete
		false,   // internal
		false,   // noWait
		nil,     // args
	); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	return nil
}
