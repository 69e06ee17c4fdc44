// Package callback delivers the final verdict to a submission's optional
// callback_url via HTTP POST with bounded retry, using the standard
// net/http client.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/google/uuid"

	"github.com/oj-platform/judge-executor/internal/domain"
)

const (
	maxAttempts  = 3
	retryBackoff = 500 * time.Millisecond
)

// payload is the JSON body posted to the callback URL.
type payload struct {
	SubmissionID uuid.UUID     `json:"submission_id"`
	Verdict      domain.Result `json:"result"`
}

// Client posts verdicts to submission callback URLs.
type Client struct {
	http   *http.Client
	logger *zap.Logger
}

// New builds a Client with a bounded per-attempt timeout.
func New(logger *zap.Logger) *Client {
	return &Client{
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Deliver POSTs the result to url, making up to maxAttempts attempts and
// sleeping retryBackoff times the attempt number after each failed one.
// A response status of 300 or above or a network
// error is logged but never surfaces to the caller — callback delivery is
// best-effort and must not block the worker loop's ack/release sequence.
func (c *Client) Deliver(ctx context.Context, url string, id uuid.UUID, result domain.Result) {
	if url == "" {
		return
	}

	body, err := json.Marshal(payload{SubmissionID: id, Verdict: result})
	if err != nil {
		c.logger.Error("callback: marshal payload", zap.String("submission_id", id.String()), zap.Error(err))
		return
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.post(ctx, url, body); err != nil {
			lastErr = err
			time.Sleep(retryBackoff * time.Duration(attempt))
			continue
		}
		return
	}

	c.logger.Warn("callback: delivery failed after retries",
		zap.String("submission_id", id.String()), zap.String("url", url), zap.Error(lastErr))
}

func (c *Client) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("callback: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("callback: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("callback: unexpected status %d", resp.StatusCode)
	}
	return nil
}
