package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tourdesk/internal/model"
	"tourdesk/internal/obs"
	"tourdesk/internal/repository"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Consumer reads envelopes from QueueName, sends them and marks the outbox row SENT.
type Consumer struct {
	url         string
	repo        repository.OutboxRepository
	mailer      Mailer
	maxAttempts int
	logger      *zap.Logger
	now         func() time.Time
}

func NewConsumer(url string, repo repository.OutboxRepository, mailer Mailer, maxAttempts int, logger *zap.Logger) *Consumer {
	return &Consumer{url: url, repo: repo, mailer: mailer, maxAttempts: maxAttempts, logger: logger, now: time.Now}
}

// ack decides what happens to a delivery
type ack int

const (
	ackDone ack = iota
	ackRequeue
	ackDrop
)

// Run keeps a consumer attached to the broker, reconnecting with backoff, until ctx is done.
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for ctx.Err() == nil {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn("notification consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := c.consumeLoop(ctx, conn); err != nil && ctx.Err() == nil {
			c.logger.Warn("notification consumer: loop ended, reconnecting", zap.Error(err))
			sleepCtx(ctx, 2*time.Second)
		}
		_ = conn.Close()
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		c.logger.Warn("notification consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			switch c.handle(ctx, d.Body, d.Redelivered) {
			case ackDone:
				_ = d.Ack(false)
			case ackRequeue:
				_ = d.Nack(false, true)
			case ackDrop:
				_ = d.Nack(false, false)
			}
		}
	}
}

// handle is idempotent: rows already SENT are acknowledged without sending again.
// A first failure is requeued on the broker; a failed redelivery goes back to the outbox schedule.
func (c *Consumer) handle(ctx context.Context, body []byte, redelivered bool) ack {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.Error("notification consumer: bad envelope", zap.Error(err))
		return ackDrop
	}

	row, err := c.repo.FindByID(ctx, env.OutboxID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.logger.Warn("notification consumer: outbox row gone", zap.String("outbox_id", env.OutboxID.String()))
			return ackDrop
		}
		return ackRequeue
	}
	if row.Status == model.OutboxSent {
		return ackDone
	}

	mail, err := Render(env)
	if err != nil {
		_ = c.repo.MarkFailed(ctx, row.ID, row.Attempts+1, err.Error())
		return ackDrop
	}

	if err := c.mailer.Send(ctx, mail); err != nil {
		if !redelivered {
			c.logger.Warn("notification consumer: send failed, requeueing",
				zap.String("kind", env.Kind), zap.String("recipient", env.To), zap.Error(err))
			return ackRequeue
		}
		if ferr := recordFailure(ctx, c.repo, c.logger, row, err, c.maxAttempts, c.now()); ferr != nil {
			return ackRequeue
		}
		return ackDone
	}

	if err := c.repo.MarkSent(ctx, row.ID, c.now()); err != nil {
		c.logger.Error("notification consumer: mark sent failed", zap.Error(err))
	}
	obs.NotificationsTotal.WithLabelValues(env.Kind, "sent").Inc()
	return ackDone
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
