package tsid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/tsi/internal/metrics"
	"github.com/GoSim-25-26J-441/tsi/pkg/config"
	"github.com/GoSim-25-26J-441/tsi/pkg/logger"
	"github.com/GoSim-25-26J-441/tsi/pkg/utils"
)

// ErrInvalidCallbackURL is returned for callback URLs that cannot be posted to.
var ErrInvalidCallbackURL = errors.New("invalid callback url")

// NotificationPayload is the JSON body posted to a run's callback URL.
type NotificationPayload struct {
	Run       RunRecord `json:"run"`
	Timestamp int64     `json:"timestamp"` // when the notification was sent, unix ms
}

// Notifier posts finished runs to their callback URLs.
type Notifier struct {
	httpClient *http.Client
	maxRetries int
	backoff    utils.BackoffStrategy
	metrics    *metrics.Collector
	wg         sync.WaitGroup
}

// NewNotifier creates a notifier from the callback config section.
func NewNotifier(cfg config.CallbackConfig) *Notifier {
	return &Notifier{
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		maxRetries: cfg.MaxRetries,
		backoff:    utils.BackoffFromConfig(cfg.Backoff, cfg.BaseMs, cfg.MaxMs),
	}
}

// WithMetrics records delivery results into c.
func (n *Notifier) WithMetrics(c *metrics.Collector) *Notifier {
	n.metrics = c
	return n
}

// ValidateCallbackURL accepts absolute http and https URLs with a host.
func ValidateCallbackURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCallbackURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidCallbackURL)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidCallbackURL)
	}
	return nil
}

// Notify sends rec to callbackURL in the background. A {run_id} placeholder
// in the URL is replaced with the run id.
func (n *Notifier) Notify(callbackURL string, rec RunRecord) {
	if callbackURL == "" {
		return
	}
	finalURL := strings.ReplaceAll(callbackURL, "{run_id}", rec.ID)
	payload := NotificationPayload{Run: rec, Timestamp: time.Now().UTC().UnixMilli()}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		err := n.Send(context.Background(), finalURL, payload)
		metrics.RecordCallback(n.metrics, err == nil)
		if err != nil {
			logger.Error("failed to send notification after retries",
				"callback_url", finalURL,
				"run_id", rec.ID,
				"status", rec.Status,
				"max_retries", n.maxRetries,
				"last_error", err)
		}
	}()
}

// Wait blocks until every background notification has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// Send posts payload, retrying on transport errors and non-2xx responses.
func (n *Notifier) Send(ctx context.Context, callbackURL string, payload NotificationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			delay := n.backoff.NextDelay(attempt - 1)
			logger.Debug("retrying notification",
				"callback_url", callbackURL,
				"run_id", payload.Run.ID,
				"attempt", attempt,
				"delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = n.post(ctx, callbackURL, body)
		if lastErr == nil {
			logger.Info("notification sent successfully",
				"run_id", payload.Run.ID,
				"status", payload.Run.Status)
			return nil
		}
		logger.Warn("notification attempt failed",
			"callback_url", callbackURL,
			"run_id", payload.Run.ID,
			"attempt", attempt+1,
			"error", lastErr)
	}
	return lastErr
}

func (n *Notifier) post(ctx context.Context, callbackURL string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "tsid/1.0")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}
