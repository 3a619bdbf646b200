// Package billing wraps the Razorpay REST API directly (no SDK dependency).
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"platefuel_backend/internal/logger"
)

// Subscription mirrors the provider-side subscription entity.
type Subscription struct {
	ID         string            `json:"id"`
	PlanID     string            `json:"plan_id"`
	Status     string            `json:"status"`
	ShortURL   string            `json:"short_url"`
	TotalCount int               `json:"total_count"`
	Notes      map[string]string `json:"notes"`
	EndedAt    int64             `json:"ended_at"`
}

// Payment mirrors the provider-side payment entity carried in webhooks.
type Payment struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscription_id"`
	Status         string `json:"status"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}

// Gateway is the payment-provider surface the services depend on.
type Gateway interface {
	CreateSubscription(ctx context.Context, planID string, notes map[string]string) (*Subscription, error)
	FetchSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
}

// Client calls the Razorpay REST API with basic auth.
type Client struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(keyID, keySecret, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.razorpay.com/v1"
	}
	return &Client{
		keyID:      keyID,
		keySecret:  keySecret,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateSubscription creates a single-cycle, non-recurring subscription.
// total_count is pinned to 1: one billing cycle per checkout; renewals go
// through the resume flow instead.
func (c *Client) CreateSubscription(ctx context.Context, planID string, notes map[string]string) (*Subscription, error) {
	body := map[string]interface{}{
		"plan_id":         planID,
		"total_count":     1,
		"customer_notify": 1,
		"notes":           notes,
	}

	var sub Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions", body, &sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	if sub.ID == "" {
		return nil, fmt.Errorf("create subscription: missing subscription ID in response")
	}
	return &sub, nil
}

func (c *Client) FetchSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	var sub Subscription
	if err := c.do(ctx, http.MethodGet, "/subscriptions/"+subscriptionID, nil, &sub); err != nil {
		return nil, fmt.Errorf("fetch subscription: %w", err)
	}
	return &sub, nil
}

func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	start := time.Now()
	var sub Subscription
	err := c.do(ctx, http.MethodPost, "/subscriptions/"+subscriptionID+"/cancel", map[string]interface{}{
		"cancel_at_cycle_end": 0,
	}, &sub)
	logger.GatewayLog("cancel_subscription", subscriptionID, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("cancel subscription: %w", err)
	}
	return &sub, nil
}

// IsAlreadyFinalized reports whether a cancel error means the subscription
// had already reached a terminal paid state at the provider.
func IsAlreadyFinalized(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "completed") || strings.Contains(msg, "not cancellable")
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("razorpay request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read razorpay response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		msg := "unknown error"
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Description != "" {
			msg = apiErr.Error.Description
		}
		return fmt.Errorf("razorpay API error (%d): %s", resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("parse razorpay response: %w", err)
		}
	}
	return nil
}
