package notify

import (
	"context"
	"time"

	"tourdesk/internal/model"
	"tourdesk/internal/obs"
	"tourdesk/internal/repository"

	"go.uber.org/zap"
)

const (
	baseBackoff = 5 * time.Second
	maxBackoff  = 10 * time.Minute
)

// Backoff is the delay before retry number attempts (1-based), doubling up to maxBackoff.
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := baseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// RelayConfig tunes polling
type RelayConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

// Relay polls due outbox rows and hands them to a Transport
type Relay struct {
	repo      repository.OutboxRepository
	tx        repository.TransactionManager
	transport Transport
	cfg       RelayConfig
	logger    *zap.Logger
	now       func() time.Time
}

func NewRelay(repo repository.OutboxRepository, tx repository.TransactionManager, transport Transport, cfg RelayConfig, logger *zap.Logger) *Relay {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	return &Relay{repo: repo, tx: tx, transport: transport, cfg: cfg, logger: logger, now: time.Now}
}

// Run polls until ctx is cancelled
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	r.logger.Info("notification relay started", zap.Duration("interval", r.cfg.Interval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("notification relay stopped")
			return
		case <-ticker.C:
			if _, err := r.Tick(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("notification relay poll failed", zap.Error(err))
			}
		}
	}
}

// Tick processes one batch and returns how many rows were claimed.
func (r *Relay) Tick(ctx context.Context) (int, error) {
	var claimed int
	err := r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		rows, err := r.repo.ClaimDue(txCtx, r.now(), r.cfg.BatchSize)
		if err != nil {
			return err
		}
		claimed = len(rows)
		obs.OutboxBatchSize.Observe(float64(claimed))
		for i := range rows {
			if err := r.process(txCtx, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

func (r *Relay) process(ctx context.Context, row *model.NotificationOutbox) error {
	env, err := EnvelopeFromRow(row)
	if err != nil {
		// undecodable payloads never succeed
		obs.NotificationsTotal.WithLabelValues(row.Kind, "failed").Inc()
		return r.repo.MarkFailed(ctx, row.ID, row.Attempts+1, err.Error())
	}

	status, err := r.transport.Deliver(ctx, env)
	if err == nil {
		obs.NotificationsTotal.WithLabelValues(row.Kind, statusLabel(status)).Inc()
		if status == model.OutboxSent {
			return r.repo.MarkSent(ctx, row.ID, r.now())
		}
		return r.repo.MarkPublished(ctx, row.ID)
	}

	return recordFailure(ctx, r.repo, r.logger, row, err, r.cfg.MaxAttempts, r.now())
}

// recordFailure schedules a retry or gives up after maxAttempts.
func recordFailure(ctx context.Context, repo repository.OutboxRepository, logger *zap.Logger, row *model.NotificationOutbox, cause error, maxAttempts int, now time.Time) error {
	attempts := row.Attempts + 1
	if attempts >= maxAttempts {
		logger.Error("notification delivery failed permanently",
			zap.String("kind", row.Kind),
			zap.String("recipient", row.Recipient),
			zap.Int("attempts", attempts),
			zap.Error(cause),
		)
		obs.NotificationsTotal.WithLabelValues(row.Kind, "failed").Inc()
		return repo.MarkFailed(ctx, row.ID, attempts, cause.Error())
	}

	next := now.Add(Backoff(attempts))
	logger.Warn("notification delivery failed, will retry",
		zap.String("kind", row.Kind),
		zap.String("recipient", row.Recipient),
		zap.Int("attempts", attempts),
		zap.Time("next_attempt_at", next),
		zap.Error(cause),
	)
	obs.NotificationsTotal.WithLabelValues(row.Kind, "retry").Inc()
	return repo.MarkRetry(ctx, row.ID, attempts, cause.Error(), next)
}

func statusLabel(status string) string {
	switch status {
	case model.OutboxSent:
		return "sent"
	case model.OutboxPublished:
		return "published"
	}
	return "unknown"
}
