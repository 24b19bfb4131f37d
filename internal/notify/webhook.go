package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	contentType  = "application/json"
	maxErrorBody = 1024
)

// Webhook posts every notification as a JSON document to a fixed URL.
type Webhook struct {
	requestURL *url.URL
	client     *http.Client
}

type WebhookPayload struct {
	Recipient string    `json:"recipient"`
	Text      string    `json:"text"`
	Time      time.Time `json:"time"`
}

func NewWebhook(serverURL string) (*Webhook, error) {
	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, errors.New("please define the webhook url with a scheme, e.g. `https://example.com/hook`")
	}
	return &Webhook{
		requestURL: parsedURL,
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (w *Webhook) Notify(ctx context.Context, recipient, text string) error {
	raw, err := json.Marshal(WebhookPayload{
		Recipient: recipient,
		Text:      text,
		Time:      time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.requestURL.String(), bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("webhook: unexpected status: %d, body: %s", resp.StatusCode, string(body))
	}
	slog.DebugContext(ctx, "webhook delivered", "status", resp.StatusCode)
	return nil
}
