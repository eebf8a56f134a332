// Package amqpmail publishes mail messages to a RabbitMQ queue. A
// separate worker renders and delivers them.
package amqpmail

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	amqp "github.com/rabbitmq/amqp091-go"

	auth "github.com/goliatone/go-partner-auth"
)

// DefaultQueue is the queue mail messages are published to unless
// overridden.
const DefaultQueue = "partner_auth.mail"

// channel is the slice of *amqp.Channel the mailer publishes through.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// Mailer implements auth.Mailer on top of an AMQP broker. Messages are
// published persistent to a durable queue so they survive broker
// restarts.
type Mailer struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   channel
}

// Option customizes the mailer.
type Option func(*Mailer)

// WithQueue overrides the queue name.
func WithQueue(queue string) Option {
	return func(m *Mailer) {
		if queue != "" {
			m.queue = queue
		}
	}
}

// New creates a Mailer connected to the broker at url and declares the
// mail queue.
func New(url string, opts ...Option) (*Mailer, error) {
	m := &Mailer{
		url:   url,
		queue: DefaultQueue,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	if err := m.connect(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Mailer) connect() error {
	conn, err := amqp.Dial(m.url)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to connect to broker")
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to open channel")
	}

	if _, err := ch.QueueDeclare(
		m.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to declare mail queue")
	}

	m.conn = conn
	m.ch = ch

	return nil
}

// Send implements auth.Mailer.
func (m *Mailer) Send(ctx context.Context, msg auth.MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to marshal mail message")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ch == nil || m.ch.IsClosed() {
		if err := m.connect(); err != nil {
			return err
		}
	}

	err = m.ch.PublishWithContext(ctx,
		"",      // default exchange
		m.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to publish mail message")
	}

	return nil
}

// Close releases the channel and connection.
func (m *Mailer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ch != nil {
		m.ch.Close()
		m.ch = nil
	}

	if m.conn != nil {
		err := m.conn.Close()
		m.conn = nil
		return err
	}

	return nil
}

var _ auth.Mailer = (*Mailer)(nil)
