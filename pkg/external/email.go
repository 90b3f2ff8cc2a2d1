package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// EmailMessage is one outbound email.
type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailClient sends through the transactional email provider with a
// 10 second timeout and up to 2 retries with exponential backoff. Email is a
// mutation, so unlike the lookup clients it retries on transient failure.
type EmailClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// NewEmailClient builds an email client against baseURL.
func NewEmailClient(baseURL, apiKey string) *EmailClient {
	return &EmailClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 10),
		maxRetries: 2,
		backoff:    500 * time.Millisecond,
		logger:     slog.Default().With("component", "email-client"),
	}
}

// Send delivers one message, retrying transient failures.
func (c *EmailClient) Send(ctx context.Context, msg EmailMessage) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff << (attempt - 1)
			c.logger.Warn("email send retrying",
				"to", msg.To, "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if lastErr = c.send(ctx, msg); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("email to %s failed after %d attempts: %w", msg.To, c.maxRetries+1, lastErr)
}

func (c *EmailClient) send(ctx context.Context, msg EmailMessage) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("email rate limit: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"to":          []map[string]string{{"email": msg.To}},
		"subject":     msg.Subject,
		"htmlContent": msg.Body,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v3/smtp/email", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("email provider returned %d", resp.StatusCode)
	}
	return nil
}
