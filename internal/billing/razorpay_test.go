package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"subscription.activated"}`)
	secret := "whsec_test"

	assert.True(t, VerifyWebhookSignature(body, signBody(body, secret), secret))

	// Wrong secret, tampered body, empty inputs.
	assert.False(t, VerifyWebhookSignature(body, signBody(body, "other"), secret))
	assert.False(t, VerifyWebhookSignature([]byte(`{"event":"x"}`), signBody(body, secret), secret))
	assert.False(t, VerifyWebhookSignature(body, "", secret))
	assert.False(t, VerifyWebhookSignature(body, signBody(body, secret), ""))
	assert.False(t, VerifyWebhookSignature(body, "not-hex", secret))
}

func TestParseWebhookEvent(t *testing.T) {
	body := []byte(`{
		"event": "subscription.activated",
		"payload": {
			"subscription": {
				"entity": {
					"id": "sub_123",
					"status": "active",
					"notes": {"user_id": "user-1", "plan_type": "month"}
				}
			}
		}
	}`)

	event, err := ParseWebhookEvent(body)
	require.NoError(t, err)
	assert.Equal(t, "subscription.activated", event.Event)
	assert.Equal(t, "sub_123", event.Payload.Subscription.Entity.ID)
	assert.Equal(t, "user-1", event.Payload.Subscription.Entity.Notes["user_id"])
}

func TestParseWebhookEvent_Invalid(t *testing.T) {
	_, err := ParseWebhookEvent([]byte("not json"))
	assert.Error(t, err)

	_, err = ParseWebhookEvent([]byte(`{"payload": {}}`))
	assert.Error(t, err, "missing event name must be rejected")
}

func TestCreateSubscription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/subscriptions", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key_test", user)
		assert.Equal(t, "secret_test", pass)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "plan_month", req["plan_id"])
		assert.Equal(t, float64(1), req["total_count"])

		json.NewEncoder(w).Encode(Subscription{
			ID:       "sub_123",
			PlanID:   "plan_month",
			Status:   "created",
			ShortURL: "https://rzp.io/i/abc",
		})
	}))
	defer server.Close()

	client := NewClient("key_test", "secret_test", server.URL)
	sub, err := client.CreateSubscription(context.Background(), "plan_month", map[string]string{"user_id": "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "sub_123", sub.ID)
	assert.Equal(t, "https://rzp.io/i/abc", sub.ShortURL)
}

func TestCreateSubscription_EmptyIDRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient("k", "s", server.URL)
	_, err := client.CreateSubscription(context.Background(), "plan_month", nil)
	assert.Error(t, err)
}

func TestFetchSubscription_APIErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"code": "BAD_REQUEST_ERROR", "description": "The id provided does not exist"}}`))
	}))
	defer server.Close()

	client := NewClient("k", "s", server.URL)
	_, err := client.FetchSubscription(context.Background(), "sub_missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "The id provided does not exist")
	assert.Contains(t, err.Error(), "400")
}

func TestCancelSubscription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/subscriptions/sub_123/cancel", r.URL.Path)
		json.NewEncoder(w).Encode(Subscription{ID: "sub_123", Status: "cancelled"})
	}))
	defer server.Close()

	client := NewClient("k", "s", server.URL)
	sub, err := client.CancelSubscription(context.Background(), "sub_123")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", sub.Status)
}

func TestIsAlreadyFinalized(t *testing.T) {
	assert.True(t, IsAlreadyFinalized(errors.New("razorpay API error (400): Subscription is completed")))
	assert.True(t, IsAlreadyFinalized(errors.New("razorpay API error (400): The subscription is not cancellable in completed status")))
	assert.False(t, IsAlreadyFinalized(errors.New("razorpay request failed: connection refused")))
	assert.False(t, IsAlreadyFinalized(nil))
}
