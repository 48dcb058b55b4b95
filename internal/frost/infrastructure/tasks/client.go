package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client enqueues jobs on the external task queue over HTTP. The queue
// delivers at least once; callers pass an idempotency key in the overrides so
// the job runner can deduplicate.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// NewClient constructs a task queue client.
func NewClient(baseURL, token string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("tasks: empty base url")
	}
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type enqueueRequest struct {
	Job       string            `json:"job"`
	Overrides map[string]string `json:"overrides,omitempty"`
}

// Enqueue submits a job run request with the given overrides.
func (c *Client) Enqueue(ctx context.Context, job string, overrides map[string]string) error {
	if c == nil || c.baseURL == "" {
		return errors.New("tasks: empty base url")
	}
	if job == "" {
		return errors.New("tasks: empty job name")
	}

	body, err := json.Marshal(enqueueRequest{Job: job, Overrides: overrides})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs/enqueue", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("tasks: enqueue %s returned %d", job, resp.StatusCode)
	}
	return nil
}
