package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Mailer sends a rendered email
type Mailer interface {
	Send(ctx context.Context, mail Email) error
}

type relayRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// RelayMailer posts emails to a transactional mail relay over HTTP
type RelayMailer struct {
	client *resty.Client
	from   string
	logger *zap.Logger
}

func NewRelayMailer(baseURL, apiKey, from string, logger *zap.Logger) *RelayMailer {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &RelayMailer{client: client, from: from, logger: logger}
}

func (m *RelayMailer) Send(ctx context.Context, mail Email) error {
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(relayRequest{From: m.from, To: mail.To, Subject: mail.Subject, HTML: mail.HTML}).
		Post("/send")
	if err != nil {
		return fmt.Errorf("mail relay request failed: %w", err)
	}
	if resp.IsError() {
		m.logger.Warn("mail relay rejected message",
			zap.String("to", mail.To),
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Errorf("mail relay returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// LogMailer only logs messages; used when no relay is configured
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, mail Email) error {
	m.logger.Info("email (not sent, no mail relay configured)",
		zap.String("to", mail.To),
		zap.String("subject", mail.Subject),
	)
	return nil
}
