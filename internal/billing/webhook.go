package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Webhook event types delivered by the provider. Anything else is logged
// and ignored.
const (
	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionPending   = "subscription.pending"
	EventSubscriptionHalted    = "subscription.halted"
	EventSubscriptionCancelled = "subscription.cancelled"
	EventPaymentCaptured       = "payment.captured"
	EventPaymentFailed         = "payment.failed"
)

// WebhookEvent is the parsed provider push notification.
type WebhookEvent struct {
	// ID is the provider's delivery ID (X-Razorpay-Event-Id header); used
	// for duplicate suppression.
	ID      string
	Event   string `json:"event"`
	Payload struct {
		Subscription struct {
			Entity Subscription `json:"entity"`
		} `json:"subscription"`
		Payment struct {
			Entity Payment `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// VerifyWebhookSignature computes HMAC-SHA256 over the raw body with the
// shared secret and compares it against the header-supplied hex digest in
// constant time. This is the authentication mechanism for the webhook
// endpoint; it must run before the body is parsed.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseWebhookEvent decodes a verified webhook body.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("parse webhook event: %w", err)
	}
	if event.Event == "" {
		return nil, fmt.Errorf("parse webhook event: missing event type")
	}
	return &event, nil
}
