// Package platform provides the HTTP client for the platform backend
// RPCs: daily usage, limit check, and interaction logging.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vantagecrm/guru/domain"
)

// Client is an HTTP client for the platform backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new platform client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type dailyUsageRequest struct {
	UserID string `json:"user_id"`
}

type dailyUsageResponse struct {
	UsageCount int `json:"usage_count"`
}

// DailyUsage returns the user's interaction count for the current UTC day.
func (c *Client) DailyUsage(ctx context.Context, userID string) (int, error) {
	var resp dailyUsageResponse
	if err := c.post(ctx, "/rpc/daily_usage", dailyUsageRequest{UserID: userID}, &resp); err != nil {
		return 0, err
	}
	return resp.UsageCount, nil
}

type limitCheckRequest struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit"`
}

type limitCheckResponse struct {
	LimitReached bool `json:"limit_reached"`
}

// HasReachedLimit asks the backend whether the user's daily usage has
// reached the given limit. The check and the count live server-side so
// the answer is consistent with concurrent writers.
func (c *Client) HasReachedLimit(ctx context.Context, userID string, limit int) (bool, error) {
	var resp limitCheckResponse
	if err := c.post(ctx, "/rpc/has_reached_limit", limitCheckRequest{UserID: userID, Limit: limit}, &resp); err != nil {
		return false, err
	}
	return resp.LimitReached, nil
}

type logInteractionRequest struct {
	UserID     string          `json:"user_id"`
	Prompt     string          `json:"prompt"`
	Response   string          `json:"response"`
	Page       string          `json:"page"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	TokensUsed int             `json:"tokens_used"`
	Model      string          `json:"model"`
}

// LogInteraction writes one interaction record. A successful write is
// what advances the daily usage count.
func (c *Client) LogInteraction(ctx context.Context, rec *domain.InteractionLog) error {
	req := logInteractionRequest{
		UserID:     rec.UserID,
		Prompt:     rec.Prompt,
		Response:   rec.Response,
		Page:       rec.Page,
		Metadata:   rec.Metadata,
		TokensUsed: rec.TokensUsed,
		Model:      rec.Model,
	}
	return c.post(ctx, "/rpc/log_interaction", req, nil)
}

// post sends a JSON POST and decodes the JSON response into out.
func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call platform: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("platform returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
