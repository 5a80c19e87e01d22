// Package submission posts evaluation runs to the workshop leaderboard.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mkrogh/eventtag/internal/domain"
)

const defaultTimeout = 15 * time.Second

// Request is a leaderboard submission.
type Request struct {
	TeamName    string                  `json:"team_name"`
	Model       string                  `json:"model"`
	Metrics     domain.AggregateMetrics `json:"metrics"`
	TotalCost   domain.MilliOre         `json:"total_cost_milliore"`
	TotalTokens int64                   `json:"total_tokens"`
	RecordCount int                     `json:"record_count"`
	SubmittedAt time.Time               `json:"submitted_at"`
}

// StatusError is a non-2xx dashboard response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dashboard returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the submission is worth reattempting.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client submits runs to the dashboard.
type Client struct {
	baseURL string
	hc      *http.Client
	logger  *slog.Logger
}

// New builds a submission client for the given dashboard base URL.
func New(baseURL string, hc *http.Client, logger *slog.Logger) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: baseURL, hc: hc, logger: logger.With("component", "submission")}
}

// Submit posts the run and returns the dashboard response body verbatim so
// callers can surface whatever the leaderboard echoes back.
func (c *Client) Submit(ctx context.Context, req Request) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal submission: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/submissions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create submission request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post submission: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read submission response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	c.logger.Info("run submitted",
		"team", req.TeamName,
		"model", req.Model,
		"records", req.RecordCount,
		"status", resp.StatusCode)
	return json.RawMessage(respBody), nil
}
