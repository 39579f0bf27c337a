package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"tourdesk/internal/model"

	amqp "github.com/rabbitmq/amqp091-go"
)

// QueueName is the durable queue carrying email envelopes
const QueueName = "notifications.email"

// Transport hands an envelope onward and returns the outbox status it reached:
// SENT when the mail went out, PUBLISHED when a consumer will send it later.
type Transport interface {
	Deliver(ctx context.Context, env Envelope) (string, error)
}

// DirectTransport renders and sends in-process
type DirectTransport struct {
	mailer Mailer
}

func NewDirectTransport(mailer Mailer) *DirectTransport {
	return &DirectTransport{mailer: mailer}
}

func (t *DirectTransport) Deliver(ctx context.Context, env Envelope) (string, error) {
	mail, err := Render(env)
	if err != nil {
		return "", err
	}
	if err := t.mailer.Send(ctx, mail); err != nil {
		return "", err
	}
	return model.OutboxSent, nil
}

// AMQPTransport publishes persistent JSON envelopes to QueueName.
// The connection is opened lazily and reopened after a failure.
type AMQPTransport struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPTransport(url string) *AMQPTransport {
	return &AMQPTransport{url: url}
}

func (t *AMQPTransport) channel() (*amqp.Channel, error) {
	if t.ch != nil && !t.ch.IsClosed() {
		return t.ch, nil
	}
	t.closeLocked()

	conn, err := amqp.Dial(t.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: channel open failed: %w", err)
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: queue declare failed: %w", err)
	}
	t.conn, t.ch = conn, ch
	return ch, nil
}

func (t *AMQPTransport) Deliver(ctx context.Context, env Envelope) (string, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ch, err := t.channel()
	if err != nil {
		return "", err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.OutboxID.String(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", QueueName, false, false, pub); err != nil {
		t.closeLocked()
		return "", fmt.Errorf("rabbitmq: publish failed: %w", err)
	}
	return model.OutboxPublished, nil
}

// Close releases the broker connection
func (t *AMQPTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeLocked()
}

func (t *AMQPTransport) closeLocked() {
	if t.ch != nil {
		_ = t.ch.Close()
		t.ch = nil
	}
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
}
