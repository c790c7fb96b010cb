package voteguard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shrimbly/willienotwilly/internal/domain"
)

// Client talks to the vote API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the API at baseURL. httpClient may be nil.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// SubmitError is a non-success response from the vote endpoint. RateLimited
// distinguishes "try again later" from everything else.
type SubmitError struct {
	StatusCode  int
	Message     string
	RateLimited bool
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("vote rejected (HTTP %d): %s", e.StatusCode, e.Message)
}

type submitPayload struct {
	Model        string `json:"model"`
	FirstNotRock int    `json:"first_not_rock"`
}

type errorPayload struct {
	Error       string `json:"error"`
	RateLimited bool   `json:"rateLimited"`
}

// SubmitVote posts one vote. A non-2xx response is returned as *SubmitError.
func (c *Client) SubmitVote(ctx context.Context, subject domain.Subject, value int) error {
	body, err := json.Marshal(submitPayload{Model: string(subject), FirstNotRock: value})
	if err != nil {
		return fmt.Errorf("failed to encode vote: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/vote", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build vote request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vote request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var payload errorPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Error == "" {
		payload.Error = "vote failed"
	}
	return &SubmitError{
		StatusCode:  resp.StatusCode,
		Message:     payload.Error,
		RateLimited: payload.RateLimited || resp.StatusCode == http.StatusTooManyRequests,
	}
}

// Stats fetches the aggregate for one subject.
func (c *Client) Stats(ctx context.Context, subject domain.Subject) (domain.VoteStats, error) {
	url := fmt.Sprintf("%s/api/votes/%s/stats", c.baseURL, subject)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.VoteStats{}, fmt.Errorf("failed to build stats request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.VoteStats{}, fmt.Errorf("stats request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return domain.VoteStats{}, fmt.Errorf("stats request returned HTTP %d", resp.StatusCode)
	}

	var stats domain.VoteStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return domain.VoteStats{}, fmt.Errorf("failed to decode stats: %w", err)
	}
	return stats, nil
}
