package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error codes the delivery service reports for tokens that are gone for good.
var unregisteredCodes = map[string]bool{
	"UNREGISTERED":                                true,
	"INVALID_REGISTRATION":                        true,
	"messaging/invalid-registration-token":        true,
	"messaging/registration-token-not-registered": true,
}

type multicastRequest struct {
	Notification multicastNotification `json:"notification"`
	Data         map[string]string     `json:"data,omitempty"`
	Tokens       []string              `json:"tokens"`
}

type multicastNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type multicastResponse struct {
	Responses []tokenResponse `json:"responses"`
}

type tokenResponse struct {
	Success   bool   `json:"success"`
	ErrorCode string `json:"errorCode,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HTTPPusher sends multicast notifications to an FCM-compatible endpoint.
type HTTPPusher struct {
	url       string
	serverKey string
	client    *http.Client
}

// HTTPPusherOption configures the pusher.
type HTTPPusherOption func(*HTTPPusher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) HTTPPusherOption {
	return func(p *HTTPPusher) {
		if client != nil {
			p.client = client
		}
	}
}

// NewHTTPPusher constructs a pusher for the given endpoint.
func NewHTTPPusher(url, serverKey string, opts ...HTTPPusherOption) (*HTTPPusher, error) {
	if url == "" {
		return nil, errors.New("push channel: empty url")
	}
	pusher := &HTTPPusher{
		url:       url,
		serverKey: serverKey,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(pusher)
	}
	return pusher, nil
}

// SendMulticast posts the message and maps the per-token responses. The
// response is expected to carry one entry per token, in token order.
func (p *HTTPPusher) SendMulticast(ctx context.Context, msg Message) (SendReport, error) {
	if p == nil || p.url == "" {
		return SendReport{}, errors.New("push channel: empty url")
	}
	if len(msg.Tokens) == 0 {
		return SendReport{}, errors.New("push channel: no tokens")
	}

	body, err := json.Marshal(multicastRequest{
		Notification: multicastNotification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
		Tokens:       msg.Tokens,
	})
	if err != nil {
		return SendReport{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return SendReport{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.serverKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.serverKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return SendReport{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return SendReport{}, fmt.Errorf("push channel: non-2xx response %d", resp.StatusCode)
	}

	var decoded multicastResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return SendReport{}, err
	}

	report := SendReport{Results: make([]TokenResult, 0, len(msg.Tokens))}
	for i, token := range msg.Tokens {
		result := TokenResult{Token: token}
		if i < len(decoded.Responses) {
			entry := decoded.Responses[i]
			result.OK = entry.Success
			if !entry.Success {
				result.Err = entry.Error
				if result.Err == "" {
					result.Err = entry.ErrorCode
				}
				result.Unregistered = unregisteredCodes[entry.ErrorCode] || unregisteredCodes[entry.Error]
			}
		}
		if result.OK {
			report.SuccessCount++
		} else {
			report.FailureCount++
		}
		report.Results = append(report.Results, result)
	}
	return report, nil
}
