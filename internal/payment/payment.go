// Package payment notifies the payment service about trip progress.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ukydev/travel-bot/internal/models"
)

// StatusCompleted is the payment status sent when a trip reaches its destination.
const StatusCompleted = "completed"

// StatusError is a non-2xx answer from the payment service.
type StatusError struct {
	PaymentID  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("payment %s status update failed with status: %d %s", e.PaymentID, e.StatusCode, e.Body)
}

// TokenSource provides bearer tokens for outgoing requests.
type TokenSource interface {
	GenerateToken(subject string) (string, error)
}

// Client updates payment statuses over HTTP.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
}

// NewClient creates a client for the payment service at baseURL. tokens may be nil.
func NewClient(baseURL string, httpClient *http.Client, tokens TokenSource) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: httpClient,
		Tokens:     tokens,
	}
}

// MarkCompleted sets the payment status of a trip to "completed".
func (c *Client) MarkCompleted(ctx context.Context, paymentID string) error {
	return c.UpdateStatus(ctx, paymentID, StatusCompleted)
}

// UpdateStatus sends PATCH /api/payment/{paymentID}/status.
func (c *Client) UpdateStatus(ctx context.Context, paymentID, status string) error {
	data, err := json.Marshal(models.StatusUpdate{Status: status})
	if err != nil {
		return fmt.Errorf("failed to marshal status update: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/payment/%s/status", c.BaseURL, url.PathEscape(paymentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Tokens != nil {
		token, err := c.Tokens.GenerateToken(paymentID)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{PaymentID: paymentID, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return nil
}
