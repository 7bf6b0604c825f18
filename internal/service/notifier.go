package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Notifier delivers a notification to a set of recipients. Delivery is
// best effort; implementations report success but never panic or block
// beyond their configured timeout.
type Notifier interface {
	Send(ctx context.Context, eventName string, recipients []string, template string, data map[string]any) bool
}

// LogNotifier writes every notification to the application log. It stands
// in for an email provider until an SMTP integration lands and doubles as
// an audit trail in development.
type LogNotifier struct {
	logger *zap.Logger
	from   string
}

// NewLogNotifier creates a log-backed sink. from is the sender address
// stamped on outgoing mail.
func NewLogNotifier(logger *zap.Logger, from string) *LogNotifier {
	return &LogNotifier{logger: logger, from: from}
}

func (l *LogNotifier) Send(_ context.Context, eventName string, recipients []string, template string, data map[string]any) bool {
	l.logger.Info("notification",
		zap.String("event", eventName),
		zap.String("template", template),
		zap.String("from", l.from),
		zap.Strings("recipients", recipients),
		zap.Any("data", data))
	return true
}

// WebhookNotifier POSTs notifications as JSON to a configured endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookNotifier creates a webhook sink with the given delivery timeout.
func NewWebhookNotifier(url string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type webhookPayload struct {
	Event      string         `json:"event"`
	Template   string         `json:"template"`
	Recipients []string       `json:"recipients"`
	Data       map[string]any `json:"data"`
}

func (w *WebhookNotifier) Send(ctx context.Context, eventName string, recipients []string, template string, data map[string]any) bool {
	body, err := json.Marshal(webhookPayload{
		Event:      eventName,
		Template:   template,
		Recipients: recipients,
		Data:       data,
	})
	if err != nil {
		w.logger.Warn("webhook payload encode failed", zap.Error(err))
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.logger.Warn("webhook request build failed", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Warn("webhook delivery failed",
			zap.String("url", w.url),
			zap.String("event", eventName),
			zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		w.logger.Warn("webhook rejected",
			zap.String("url", w.url),
			zap.Int("status", resp.StatusCode),
			zap.String("event", eventName))
		return false
	}
	return true
}
